package middleware

import (
	"context"

	"github.com/golang-jwt/jwt/v5"
	"github.com/upb/order-protection/internal/shared"
)

// Context key type to avoid collisions
type contextKey string

// ClaimsKey is the context key for JWT claims
const ClaimsKey contextKey = "claims"

// Claims represents JWT claims extracted from the token
type Claims struct {
	jwt.RegisteredClaims
	Shop  string   `json:"shop,omitempty"`
	Scope []string `json:"scope,omitempty"`
}

// GetRequestIDFromContext retrieves the request ID from context
func GetRequestIDFromContext(ctx context.Context) string {
	return shared.RequestID(ctx)
}

// GetClaimsFromContext retrieves JWT claims from context
func GetClaimsFromContext(ctx context.Context) *Claims {
	if val := ctx.Value(ClaimsKey); val != nil {
		if claims, ok := val.(*Claims); ok {
			return claims
		}
	}
	return nil
}

// WithClaims adds JWT claims to the context
func WithClaims(ctx context.Context, claims *Claims) context.Context {
	return context.WithValue(ctx, ClaimsKey, claims)
}
