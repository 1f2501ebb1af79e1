package httpx

import (
	"context"

	"erp-suite/backend/internal/security"
)

type contextKey struct{ name string }

var (
	claimsKey    = contextKey{"access_claims"}
	requestIDKey = contextKey{"request_id"}
)

// WithClaims returns a context carrying the verified access claims.
// The auth middleware sets this; handlers read it via GetClaims.
func WithClaims(ctx context.Context, claims *security.AccessClaims) context.Context {
	return context.WithValue(ctx, claimsKey, claims)
}

// GetClaims returns the access claims from context and true if set; otherwise nil, false.
func GetClaims(ctx context.Context) (*security.AccessClaims, bool) {
	v, ok := ctx.Value(claimsKey).(*security.AccessClaims)
	return v, ok
}

// WithRequestID returns a context carrying the request ID.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// GetRequestID returns the request ID from context and true if set; otherwise "", false.
func GetRequestID(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(requestIDKey).(string)
	return v, ok
}
