package authz

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/storefront-labs/storefront-gateway/internal/storefront"
)

type fakeClient struct{ allow bool }

func (f *fakeClient) Check(ctx context.Context, role Role, capability string) (bool, error) {
	return f.allow, nil
}

func TestCanAllowed(t *testing.T) {
	c := &fakeClient{allow: true}
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	sess := &storefront.StaticSession{Account: storefront.User{Role: "customer"}, HasAccount: true}
	allowed, err := Can(context.Background(), c, r, sess, CapViewOwnOrders)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if !allowed {
		t.Fatalf("expected allowed=true")
	}
}

func TestCanDenied(t *testing.T) {
	c := &fakeClient{allow: false}
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	allowed, err := Can(context.Background(), c, r, storefront.AnonymousSession{}, CapManageUsers)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if allowed {
		t.Fatalf("expected allowed=false")
	}
}

func TestRoleFromRequestPrecedence(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("X-Role", "seller")

	// Session user wins over the header.
	sess := &storefront.StaticSession{Account: storefront.User{Role: "admin"}, HasAccount: true}
	if got := RoleFromRequest(r, sess); got != RoleAdmin {
		t.Fatalf("expected admin, got %s", got)
	}

	if got := RoleFromRequest(r, storefront.AnonymousSession{}); got != RoleSeller {
		t.Fatalf("expected seller from header, got %s", got)
	}

	plain := httptest.NewRequest(http.MethodGet, "/", nil)
	if got := RoleFromRequest(plain, nil); got != RoleAnonymous {
		t.Fatalf("expected anonymous, got %s", got)
	}
}

func TestStaticClientGrants(t *testing.T) {
	c := NewStaticClient()
	cases := []struct {
		role       Role
		capability string
		want       bool
	}{
		{RoleCustomer, CapPlaceOrders, true},
		{RoleCustomer, CapManageProducts, false},
		{RoleSeller, CapManageProducts, true},
		{RoleSeller, CapManageUsers, false},
		{RoleAdmin, CapManageUsers, true},
		{RoleAnonymous, CapBrowseCatalog, true},
		{RoleAnonymous, CapPlaceOrders, false},
		{Role("ghost"), CapBrowseCatalog, false},
	}
	for _, tc := range cases {
		got, err := c.Check(context.Background(), tc.role, tc.capability)
		if err != nil {
			t.Fatalf("unexpected err: %v", err)
		}
		if got != tc.want {
			t.Fatalf("role=%s capability=%s: expected %v got %v", tc.role, tc.capability, tc.want, got)
		}
	}
}
