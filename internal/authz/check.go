package authz

import (
	"context"
	"log"
	"net/http"

	"github.com/storefront-labs/storefront-gateway/internal/storefront"
)

// RoleFromRequest resolves the effective role.
// Order of precedence:
// - the authenticated session user
// - X-Role header (dev/testing convenience)
// - anonymous
func RoleFromRequest(r *http.Request, sess storefront.Session) Role {
	if sess != nil {
		if u, ok := sess.User(); ok && u.Role != "" {
			return Role(u.Role)
		}
	}
	if v := r.Header.Get("X-Role"); v != "" {
		return Role(v)
	}
	return RoleAnonymous
}

// Can checks authorization using the provided client and request context.
func Can(ctx context.Context, c Client, r *http.Request, sess storefront.Session, capability string) (bool, error) {
	role := RoleFromRequest(r, sess)
	allowed, err := c.Check(ctx, role, capability)
	if err != nil {
		// Be explicit in logs; do not allow on error by default.
		log.Printf("authz check error role=%s capability=%s: %v", role, capability, err)
		return false, err
	}
	return allowed, nil
}
