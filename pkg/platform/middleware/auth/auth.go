// Package auth provides JWT bearer middleware. Claims land in the request
// context so handlers and services read identity without touching headers.
package auth

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	id "civicwatch/pkg/domain"
	dErrors "civicwatch/pkg/domain-errors"
	"civicwatch/pkg/platform/httputil"
	"civicwatch/pkg/requestcontext"
)

// Claims are the validated token claims the middleware needs.
type Claims struct {
	UserID string
	Role   string
}

// TokenValidator validates a bearer token and returns its claims.
type TokenValidator interface {
	ValidateToken(tokenString string) (*Claims, error)
}

const bearerPrefix = "Bearer "

// RequireAuth rejects requests without a valid bearer token and stores the
// authenticated identity in the context.
func RequireAuth(validator TokenValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, ok := authenticate(w, r, validator, logger, true)
			if !ok {
				return
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// OptionalAuth lets anonymous requests through but still rejects tokens
// that are present and invalid, so a caller never half-authenticates.
func OptionalAuth(validator TokenValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, ok := authenticate(w, r, validator, logger, false)
			if !ok {
				return
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole guards a route for specific roles. Must run after RequireAuth.
func RequireRole(roles ...string) func(http.Handler) http.Handler {
	allowed := make(map[string]struct{}, len(roles))
	for _, role := range roles {
		allowed[role] = struct{}{}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := allowed[requestcontext.UserRole(r.Context())]; !ok {
				httputil.WriteError(w, dErrors.New(dErrors.CodeForbidden, "insufficient role"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func authenticate(w http.ResponseWriter, r *http.Request, validator TokenValidator, logger *slog.Logger, required bool) (ctx context.Context, ok bool) {
	ctx = r.Context()
	authHeader := r.Header.Get("Authorization")

	token, hasToken := strings.CutPrefix(authHeader, bearerPrefix)
	if !hasToken {
		if required {
			logger.WarnContext(ctx, "unauthorized access, missing token",
				"request_id", requestcontext.RequestID(ctx),
			)
			httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "missing or invalid Authorization header"))
			return ctx, false
		}
		return ctx, true
	}

	claims, err := validator.ValidateToken(token)
	if err != nil {
		logger.WarnContext(ctx, "unauthorized access, invalid token",
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "invalid or expired token"))
		return ctx, false
	}

	userID, err := id.ParseUserID(claims.UserID)
	if err != nil {
		logger.WarnContext(ctx, "unauthorized access, malformed subject",
			"request_id", requestcontext.RequestID(ctx),
		)
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "invalid or expired token"))
		return ctx, false
	}

	ctx = requestcontext.WithUserID(ctx, userID)
	ctx = requestcontext.WithUserRole(ctx, claims.Role)
	return ctx, true
}
