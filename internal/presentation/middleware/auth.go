package middleware

import (
	"context"
	"net/http"

	"github.com/david-dina/Crypto-PP-sub000/internal/domain/entities"
)

type principalKey struct{}

// Principal returns the authenticated principal attached to the request
// context, if any.
func Principal(ctx context.Context) (entities.Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(entities.Principal)
	return p, ok
}

// Auth extracts the identity injected by the upstream auth gateway from the
// X-User-ID / X-User-Role / X-Company-ID headers. Session validation happens
// upstream; this service trusts the headers it is handed. Requests without
// an identity get 401.
func Auth() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID := r.Header.Get("X-User-ID")
			if userID == "" {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			principal := entities.Principal{
				UserID:    userID,
				CompanyID: r.Header.Get("X-Company-ID"),
				Role:      entities.RolePersonal,
			}
			if r.Header.Get("X-User-Role") == string(entities.RoleBusiness) {
				principal.Role = entities.RoleBusiness
			}

			ctx := context.WithValue(r.Context(), principalKey{}, principal)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
