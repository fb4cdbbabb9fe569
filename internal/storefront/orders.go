package storefront

import (
	"context"
	"errors"
	"fmt"
)

// ListAddresses returns the customer's saved shipping addresses.
func (c *Client) ListAddresses(ctx context.Context) ([]Address, error) {
	var out struct {
		Addresses []Address `json:"addresses"`
	}
	if err := c.getJSON(ctx, "/addresses", nil, &out); err != nil {
		return nil, err
	}
	return out.Addresses, nil
}

// AddAddress saves a new shipping address and returns it with its id.
func (c *Client) AddAddress(ctx context.Context, addr Address) (*Address, error) {
	var out struct {
		Address *Address `json:"address"`
	}
	if err := c.postJSON(ctx, "/addresses", addr, &out); err != nil {
		return nil, err
	}
	if out.Address == nil {
		return nil, errors.New("address response missing address")
	}
	return out.Address, nil
}

// ListCustomerOrders fetches the authoritative order list for the session
// customer. This is the Order Refresh source of truth.
func (c *Client) ListCustomerOrders(ctx context.Context) ([]OrderRecord, error) {
	var out struct {
		Orders []OrderRecord `json:"orders"`
	}
	if err := c.getJSON(ctx, "/orders/customer", nil, &out); err != nil {
		return nil, err
	}
	return out.Orders, nil
}

// GetCustomerOrder fetches one order with its items and payment linkage.
func (c *Client) GetCustomerOrder(ctx context.Context, orderID int64) (*OrderRecord, error) {
	var out struct {
		Order *OrderRecord `json:"order"`
	}
	if err := c.getJSON(ctx, fmt.Sprintf("/orders/customer/%d", orderID), nil, &out); err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode == 404 {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	if out.Order == nil {
		return nil, ErrOrderNotFound
	}
	return out.Order, nil
}
