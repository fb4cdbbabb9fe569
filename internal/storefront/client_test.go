package storefront

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDoRequestSendsBearerToken(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		_ = json.NewEncoder(w).Encode(map[string]any{"products": []any{}})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, &StaticSession{AccessToken: "tok-1"}, nil)
	_, err := c.ListProducts(context.Background(), "", 0)
	require.NoError(t, err)
	assert.Equal(t, "Bearer tok-1", gotAuth)
}

func TestAnonymousSessionOmitsAuthHeader(t *testing.T) {
	var hasAuth bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, hasAuth = r.Header["Authorization"]
		_ = json.NewEncoder(w).Encode(map[string]any{"categories": []any{}})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, nil, nil)
	_, err := c.ListCategories(context.Background())
	require.NoError(t, err)
	assert.False(t, hasAuth)
}

func TestErrorStatusYieldsAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"invalid credentials"}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, nil, nil)
	_, err := c.Login(context.Background(), "a@b.c", "nope")
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
	assert.Contains(t, apiErr.Body, "invalid credentials")
}

func TestCheckPaymentStatusReturnsRawBody(t *testing.T) {
	const body = `{"payment":{"status":"success","tx_ref":"tx-9"}}`
	var gotRef string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/payments/check-status", r.URL.Path)
		gotRef = r.URL.Query().Get("tx_ref")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, nil, nil)
	raw, err := c.CheckPaymentStatus(context.Background(), "tx-9")
	require.NoError(t, err)
	assert.Equal(t, "tx-9", gotRef)
	assert.JSONEq(t, body, string(raw))

	_, err = c.CheckPaymentStatus(context.Background(), "")
	assert.Error(t, err, "a missing reference never reaches the network")
}

func TestGetCustomerOrderNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, nil, nil)
	_, err := c.GetCustomerOrder(context.Background(), 12)
	assert.ErrorIs(t, err, ErrOrderNotFound)
}

func TestInitializePayment(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/payments/initialize", r.URL.Path)
		var req map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, float64(11), req["address_id"])
		assert.Equal(t, "chapa", req["method"])
		_ = json.NewEncoder(w).Encode(map[string]any{
			"checkout_url": "https://checkout.example/pay/abc",
			"tx_ref":       "tx-abc",
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, nil, nil)
	init, err := c.InitializePayment(context.Background(), 11, MethodChapa)
	require.NoError(t, err)
	assert.Equal(t, "tx-abc", init.TxRef)
	assert.Equal(t, "https://checkout.example/pay/abc", init.CheckoutURL)

	_, err = c.InitializePayment(context.Background(), 0, MethodChapa)
	assert.Error(t, err)
}

func TestAddReviewValidatesRating(t *testing.T) {
	c := NewClient("http://localhost:0", nil, nil)
	assert.Error(t, c.AddReview(context.Background(), 1, 0, "meh"))
	assert.Error(t, c.AddReview(context.Background(), 1, 6, "whoa"))
}
