package authz

import (
	"net/http"

	"github.com/storefront-labs/storefront-gateway/internal/storefront"
)

// Require returns a middleware that enforces an authz check.
// capability maps a request to the capability it needs; an empty result
// skips the check.
func Require(c Client, sess storefront.Session, capability func(*http.Request) string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			need := capability(r)
			if need == "" {
				next.ServeHTTP(w, r)
				return
			}
			allowed, err := Can(r.Context(), c, r, sess, need)
			if err != nil {
				http.Error(w, "authorization error", http.StatusForbidden)
				return
			}
			if !allowed {
				http.Error(w, "forbidden", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
