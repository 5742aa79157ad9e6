package httptransport

import (
	"context"
	"log/slog"
	"net/http"

	"civicwatch/pkg/platform/httputil"
	"civicwatch/pkg/requestcontext"

	"civicwatch/internal/jwttoken"
)

// AuthService is the slice of the one-time-code service the handler needs.
type AuthService interface {
	Issue(ctx context.Context, address string) error
	Verify(ctx context.Context, address string, candidate string) (jwttoken.TokenPair, error)
}

// AuthHandler wires the passwordless login endpoints to the code service.
type AuthHandler struct {
	service AuthService
	logger  *slog.Logger
}

func NewAuthHandler(service AuthService, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{service: service, logger: logger}
}

type requestCodeRequest struct {
	Email string `json:"email"`
}

type verifyCodeRequest struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

// HandleRequestCode handles POST /auth/code/request. The response is 202
// whether or not a code was actually sent, so the endpoint does not leak
// which addresses are throttled differently.
func (h *AuthHandler) HandleRequestCode(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[requestCodeRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	if err := h.service.Issue(ctx, req.Email); err != nil {
		writeServiceError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "login code issued", "request_id", requestID)
	httputil.WriteJSON(w, http.StatusAccepted, map[string]string{"status": "code sent"})
}

// HandleVerifyCode handles POST /auth/code/verify and returns a token pair
// on success.
func (h *AuthHandler) HandleVerifyCode(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[verifyCodeRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	pair, err := h.service.Verify(ctx, req.Email, req.Code)
	if err != nil {
		h.logger.WarnContext(ctx, "code verification failed", "error", err, "request_id", requestID)
		writeServiceError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "code verified", "request_id", requestID)
	httputil.WriteJSON(w, http.StatusOK, pair)
}
