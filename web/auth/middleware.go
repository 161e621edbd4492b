package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/xcono/parkrest/apperr"
	"github.com/xcono/parkrest/service"
	"github.com/xcono/parkrest/web/response"
)

type contextKey struct{}

// PrincipalFrom extracts the authenticated principal stored by the
// middleware. The second return is false for unauthenticated requests.
func PrincipalFrom(ctx context.Context) (service.Principal, bool) {
	p, ok := ctx.Value(contextKey{}).(service.Principal)
	return p, ok
}

// Middleware rejects requests without a valid bearer token and stores the
// verified principal in the request context.
func Middleware(issuer *TokenIssuer, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			response.WriteError(w, apperr.Unauthorized("missing bearer token"))
			return
		}

		principal, err := issuer.Verify(strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			response.WriteError(w, err)
			return
		}

		ctx := context.WithValue(r.Context(), contextKey{}, principal)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
