package authz

import (
	"context"
)

// Role is the storefront account role carried on the session.
type Role string

const (
	RoleAdmin     Role = "admin"
	RoleSeller    Role = "seller"
	RoleCustomer  Role = "customer"
	RoleAnonymous Role = "anonymous"
)

// Capabilities checked by the gateway surfaces. One parameterized surface
// per concern, gated by capability, replaces the per-role page copies of
// the original app.
const (
	CapBrowseCatalog  = "browse_catalog"
	CapManageCart     = "manage_cart"
	CapPlaceOrders    = "place_orders"
	CapViewOwnOrders  = "view_own_orders"
	CapManageProducts = "manage_products"
	CapViewReports    = "view_reports"
	CapManageUsers    = "manage_users"
)

// Client performs authorization checks.
type Client interface {
	Check(ctx context.Context, role Role, capability string) (bool, error)
}

// StaticClient grants capabilities from a fixed role table.
type StaticClient struct {
	grants map[Role]map[string]bool
}

// NewStaticClient returns a client with the storefront's default grants.
func NewStaticClient() *StaticClient {
	grant := func(caps ...string) map[string]bool {
		m := make(map[string]bool, len(caps))
		for _, c := range caps {
			m[c] = true
		}
		return m
	}
	return &StaticClient{grants: map[Role]map[string]bool{
		RoleAnonymous: grant(CapBrowseCatalog),
		RoleCustomer:  grant(CapBrowseCatalog, CapManageCart, CapPlaceOrders, CapViewOwnOrders),
		RoleSeller:    grant(CapBrowseCatalog, CapManageProducts, CapViewReports),
		RoleAdmin:     grant(CapBrowseCatalog, CapManageProducts, CapViewReports, CapManageUsers, CapViewOwnOrders),
	}}
}

func (c *StaticClient) Check(ctx context.Context, role Role, capability string) (bool, error) {
	caps, ok := c.grants[role]
	if !ok {
		return false, nil
	}
	return caps[capability], nil
}

// NoopClient allows everything. Useful for local dev.
type NoopClient struct{}

func (n *NoopClient) Check(ctx context.Context, role Role, capability string) (bool, error) {
	return true, nil
}
