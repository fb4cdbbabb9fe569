package storefront

import (
	"context"
	"errors"
	"net/http"
	"net/url"
)

// Payment methods the backend accepts at initialization.
const (
	MethodCashOnDelivery = "cod"
	MethodChapa          = "chapa"
)

// InitializePayment places the order held in the cart. For redirect methods
// the response carries the processor checkout URL and the transaction
// reference that will come back on the redirect; for cash-on-delivery the
// backend creates the order immediately and returns it.
func (c *Client) InitializePayment(ctx context.Context, addressID int64, method string) (*PaymentInit, error) {
	if addressID <= 0 {
		return nil, errors.New("address id is required")
	}
	if method == "" {
		method = MethodCashOnDelivery
	}
	payload := map[string]any{"address_id": addressID, "method": method}
	var init PaymentInit
	if err := c.postJSON(ctx, "/payments/initialize", payload, &init); err != nil {
		return nil, err
	}
	return &init, nil
}

// CheckPaymentStatus performs one status check for a transaction reference
// and returns the raw response body. The payload shape varies between
// processor callbacks, so classification is left to the payment package.
func (c *Client) CheckPaymentStatus(ctx context.Context, txRef string) ([]byte, error) {
	if txRef == "" {
		return nil, errors.New("tx_ref is required")
	}
	query := url.Values{"tx_ref": []string{txRef}}
	_, body, err := c.doRequest(ctx, http.MethodGet, "/payments/check-status", query, nil)
	if err != nil {
		return nil, err
	}
	return body, nil
}
