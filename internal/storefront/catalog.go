package storefront

import (
	"context"
	"errors"
	"fmt"
	"net/url"
)

// ListProducts fetches the catalog, optionally filtered by a search term
// and/or category.
func (c *Client) ListProducts(ctx context.Context, search string, categoryID int64) ([]Product, error) {
	query := url.Values{}
	if search != "" {
		query.Set("search", search)
	}
	if categoryID > 0 {
		query.Set("category_id", fmt.Sprintf("%d", categoryID))
	}
	var out struct {
		Products []Product `json:"products"`
	}
	if err := c.getJSON(ctx, "/products", query, &out); err != nil {
		return nil, err
	}
	return out.Products, nil
}

// GetProduct fetches one catalog entry with its reviews.
func (c *Client) GetProduct(ctx context.Context, productID int64) (*Product, []Review, error) {
	var out struct {
		Product *Product `json:"product"`
		Reviews []Review `json:"reviews"`
	}
	if err := c.getJSON(ctx, fmt.Sprintf("/products/%d", productID), nil, &out); err != nil {
		return nil, nil, err
	}
	if out.Product == nil {
		return nil, nil, errors.New("product response missing product")
	}
	return out.Product, out.Reviews, nil
}

// AddProduct creates a catalog entry for the seller owning the session.
func (c *Client) AddProduct(ctx context.Context, p Product) (*Product, error) {
	var out struct {
		Product *Product `json:"product"`
	}
	if err := c.postJSON(ctx, "/products", p, &out); err != nil {
		return nil, err
	}
	return out.Product, nil
}

func (c *Client) ListCategories(ctx context.Context) ([]Category, error) {
	var out struct {
		Categories []Category `json:"categories"`
	}
	if err := c.getJSON(ctx, "/categories", nil, &out); err != nil {
		return nil, err
	}
	return out.Categories, nil
}

// AddReview posts a review for a product the customer purchased.
func (c *Client) AddReview(ctx context.Context, productID int64, rating int, comment string) error {
	if rating < 1 || rating > 5 {
		return errors.New("rating must be between 1 and 5")
	}
	payload := map[string]any{"rating": rating, "comment": comment}
	return c.postJSON(ctx, fmt.Sprintf("/products/%d/reviews", productID), payload, nil)
}
