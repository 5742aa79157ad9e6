// Package metadata extracts client network metadata early in the middleware
// chain so the audit trail can record who performed each moderation action.
package metadata

import (
	"net/http"
	"strings"

	"github.com/mssola/useragent"

	"civicwatch/pkg/requestcontext"
)

// ClientMetadata extracts the client IP and User-Agent from the request and
// adds them, plus a condensed browser/OS summary, to the context.
func ClientMetadata(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := ClientIPFromRequest(r)
		rawUA := r.Header.Get("User-Agent")

		ctx := requestcontext.WithClientMetadata(r.Context(), ip, rawUA, Summarize(rawUA))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Summarize condenses a raw User-Agent into "Browser/Version (OS)" for audit
// entries; raw UA strings are too noisy to store verbatim.
func Summarize(rawUA string) string {
	if rawUA == "" {
		return ""
	}
	ua := useragent.New(rawUA)
	name, version := ua.Browser()
	if name == "" {
		return rawUA
	}
	summary := name
	if version != "" {
		summary += "/" + version
	}
	if os := ua.OS(); os != "" {
		summary += " (" + os + ")"
	}
	return summary
}

// ClientIPFromRequest extracts the real client IP, handling proxies and load
// balancers.
func ClientIPFromRequest(r *http.Request) string {
	// X-Forwarded-For can contain multiple IPs (client, proxy1, proxy2, ...);
	// the first is the original client.
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if idx := strings.Index(xff, ","); idx != -1 {
			return strings.TrimSpace(xff[:idx])
		}
		return strings.TrimSpace(xff)
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}

	// RemoteAddr is "ip:port" (IPv6: "[::1]:port"); strip the port.
	if addr := r.RemoteAddr; addr != "" {
		if idx := strings.LastIndex(addr, ":"); idx != -1 {
			return addr[:idx]
		}
		return addr
	}

	return "unknown"
}
