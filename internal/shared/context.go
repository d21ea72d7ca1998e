package shared

import "context"

// Context keys for request-scoped data. Keep types unexported to avoid collisions.
type ctxKey string

const (
	ctxKeyRequestID        ctxKey = "request-id"
	ctxKeyStorefrontCookie ctxKey = "storefront-cookie"
)

func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKeyRequestID, id)
}

func RequestID(ctx context.Context) string {
	v, _ := ctx.Value(ctxKeyRequestID).(string)
	return v
}

// WithStorefrontCookie stores the shopper's raw Cookie header so storefront
// calls act on the shopper's cart session.
func WithStorefrontCookie(ctx context.Context, cookie string) context.Context {
	return context.WithValue(ctx, ctxKeyStorefrontCookie, cookie)
}

func StorefrontCookie(ctx context.Context) string {
	v, _ := ctx.Value(ctxKeyStorefrontCookie).(string)
	return v
}
