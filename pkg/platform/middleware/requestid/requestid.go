// Package requestid assigns every request an ID for log correlation. An
// inbound X-Request-ID is trusted when present; otherwise a fresh UUID is
// generated. The ID is echoed on the response.
package requestid

import (
	"net/http"

	"github.com/google/uuid"

	"civicwatch/pkg/requestcontext"
)

const headerName = "X-Request-ID"

// Middleware injects the request ID into the context and response header.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(headerName)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set(headerName, requestID)
		ctx := requestcontext.WithRequestID(r.Context(), requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
