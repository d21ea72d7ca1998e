package middleware

import (
	"net/http"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/upb/order-protection/internal/shared"
)

// RequestIDHeader carries the correlation id to and from the API
const RequestIDHeader = "X-Request-ID"

// StorefrontSession copies the shopper's Cookie header and the request id
// into the request context so storefront calls act on the shopper's cart and
// carry the same correlation id. It must run after chi's RequestID middleware.
func StorefrontSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		requestID := chimw.GetReqID(ctx)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		ctx = shared.WithRequestID(ctx, requestID)
		w.Header().Set(RequestIDHeader, requestID)

		if cookie := r.Header.Get("Cookie"); cookie != "" {
			ctx = shared.WithStorefrontCookie(ctx, cookie)
		}

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
