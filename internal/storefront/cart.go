package storefront

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// Cart returns the session customer's cart items.
func (c *Client) Cart(ctx context.Context) ([]CartItem, error) {
	var out struct {
		Items []CartItem `json:"items"`
	}
	if err := c.getJSON(ctx, "/cart", nil, &out); err != nil {
		return nil, err
	}
	return out.Items, nil
}

// AddToCart puts quantity units of a product into the cart.
func (c *Client) AddToCart(ctx context.Context, productID int64, quantity int) error {
	if quantity <= 0 {
		return errors.New("quantity must be positive")
	}
	payload := map[string]any{"product_id": productID, "quantity": quantity}
	return c.postJSON(ctx, "/cart/items", payload, nil)
}

// UpdateCartItem replaces the quantity for a product already in the cart.
func (c *Client) UpdateCartItem(ctx context.Context, productID int64, quantity int) error {
	if quantity <= 0 {
		return errors.New("quantity must be positive")
	}
	payload := map[string]any{"quantity": quantity}
	_, _, err := c.doRequest(ctx, http.MethodPut, fmt.Sprintf("/cart/items/%d", productID), nil, payload)
	return err
}

// RemoveCartItem drops a product from the cart.
func (c *Client) RemoveCartItem(ctx context.Context, productID int64) error {
	_, _, err := c.doRequest(ctx, http.MethodDelete, fmt.Sprintf("/cart/items/%d", productID), nil, nil)
	return err
}
