package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/echolens/echolens/internal/api"
	"github.com/echolens/echolens/internal/domain"
)

type contextKey string

// BearerAuth guards a route group with a static bearer token. An empty
// expected token disables the check, for local development only.
func BearerAuth(expected string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if expected == "" {
				next.ServeHTTP(w, r)
				return
			}

			header := r.Header.Get("Authorization")
			token, ok := strings.CutPrefix(header, "Bearer ")
			if !ok {
				api.Error(w, http.StatusUnauthorized, "missing bearer token")
				return
			}

			if subtle.ConstantTimeCompare([]byte(token), []byte(expected)) != 1 {
				api.Error(w, http.StatusUnauthorized, domain.ErrInvalidAPIToken.Message)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
