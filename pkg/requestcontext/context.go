// Package requestcontext provides HTTP-independent context accessors for
// request-scoped values. Middleware sets them; services read them without
// importing net/http.
package requestcontext

import (
	"context"
	"time"

	id "civicwatch/pkg/domain"
)

// Context key types (unexported for encapsulation).
type (
	userIDKey      struct{}
	userRoleKey    struct{}
	clientIPKey    struct{}
	userAgentKey   struct{}
	clientInfoKey  struct{}
	requestIDKey   struct{}
	requestTimeKey struct{}
)

// UserID retrieves the authenticated user ID from the context.
// Returns the zero value (nil UUID) if not set.
func UserID(ctx context.Context) id.UserID {
	if userID, ok := ctx.Value(userIDKey{}).(id.UserID); ok {
		return userID
	}
	return id.UserID{}
}

// WithUserID injects a user ID into the context.
func WithUserID(ctx context.Context, userID id.UserID) context.Context {
	return context.WithValue(ctx, userIDKey{}, userID)
}

// UserRole retrieves the authenticated user's role string, empty if not set.
func UserRole(ctx context.Context) string {
	if role, ok := ctx.Value(userRoleKey{}).(string); ok {
		return role
	}
	return ""
}

// WithUserRole injects the authenticated user's role into the context.
func WithUserRole(ctx context.Context, role string) context.Context {
	return context.WithValue(ctx, userRoleKey{}, role)
}

// ClientIP retrieves the client IP address from the context.
func ClientIP(ctx context.Context) string {
	if ip, ok := ctx.Value(clientIPKey{}).(string); ok {
		return ip
	}
	return ""
}

// UserAgent retrieves the raw User-Agent from the context.
func UserAgent(ctx context.Context) string {
	if ua, ok := ctx.Value(userAgentKey{}).(string); ok {
		return ua
	}
	return ""
}

// ClientInfo retrieves the condensed browser/OS summary derived from the
// User-Agent, empty if not set.
func ClientInfo(ctx context.Context) string {
	if info, ok := ctx.Value(clientInfoKey{}).(string); ok {
		return info
	}
	return ""
}

// WithClientMetadata injects client IP, raw User-Agent, and the condensed
// client summary into a context. Useful for service unit tests that don't
// run the full HTTP middleware chain.
func WithClientMetadata(ctx context.Context, clientIP, userAgent, clientInfo string) context.Context {
	ctx = context.WithValue(ctx, clientIPKey{}, clientIP)
	ctx = context.WithValue(ctx, userAgentKey{}, userAgent)
	ctx = context.WithValue(ctx, clientInfoKey{}, clientInfo)
	return ctx
}

// RequestID retrieves the request ID from the context.
func RequestID(ctx context.Context) string {
	if reqID, ok := ctx.Value(requestIDKey{}).(string); ok {
		return reqID
	}
	return ""
}

// WithRequestID injects a request ID into the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, requestID)
}

// Now retrieves the request-scoped time from context.
// Falls back to time.Now() if not set (workers, CLI, tests).
func Now(ctx context.Context) time.Time {
	if t, ok := ctx.Value(requestTimeKey{}).(time.Time); ok {
		return t
	}
	return time.Now()
}

// WithTime injects a specific time into a context. Useful for deterministic
// expiry and window-reset tests.
func WithTime(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, requestTimeKey{}, t)
}
