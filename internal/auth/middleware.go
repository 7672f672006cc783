package auth

import (
	"net/http"
	"strings"

	"github.com/rancho/rancho-backend/internal/auth/token"
	"github.com/rancho/rancho-backend/pkg/errors"
	"github.com/rancho/rancho-backend/pkg/httputil"
)

// Middleware validates the Bearer session token and fills the user context
func Middleware(manager *token.Manager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if !strings.HasPrefix(header, "Bearer ") {
				httputil.Error(w, errors.TokenInvalid())
				return
			}

			claims, err := manager.Validate(strings.TrimPrefix(header, "Bearer "))
			if err != nil {
				httputil.Error(w, err)
				return
			}

			ctx := httputil.WithUserContext(r.Context(), claims.UserID, claims.NII, claims.Role, claims.Year)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
