package types

import "context"

// UserClaims carries the identity extracted from a verified bearer token
type UserClaims struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

type contextKey string

// ClaimsContextKey is the request context key under which the auth
// middleware stores the verified claims
const ClaimsContextKey contextKey = "user_claims"

// ContextWithClaims returns a context carrying the given claims
func ContextWithClaims(ctx context.Context, claims *UserClaims) context.Context {
	return context.WithValue(ctx, ClaimsContextKey, claims)
}

// ClaimsFromContext extracts the verified claims from a request context
func ClaimsFromContext(ctx context.Context) (*UserClaims, bool) {
	claims, ok := ctx.Value(ClaimsContextKey).(*UserClaims)
	return claims, ok
}
