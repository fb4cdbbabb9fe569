package api

import (
	"net/http"
	"strconv"
	"strings"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/storefront-labs/storefront-gateway/internal/authz"
	"github.com/storefront-labs/storefront-gateway/internal/storefront"
)

// RegisterCartRoutes wires the cart and address endpoints into the provided
// mux. Everything here mutates or reads customer state, so every route is
// gated on the manage_cart capability.
func RegisterCartRoutes(mux *http.ServeMux, client *storefront.Client, ac authz.Client) {
	sess := client.Session()
	guard := authz.Require(ac, sess, func(*http.Request) string { return authz.CapManageCart })

	// GET /api/cart, POST /api/cart/items, PUT/DELETE /api/cart/items/{id}
	mux.Handle("/api/cart", otelhttp.NewHandler(guard(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		items, err := client.Cart(r.Context())
		if err != nil {
			writeUpstreamError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"items": items})
	})), "cart"))

	mux.Handle("/api/cart/items", otelhttp.NewHandler(guard(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		var req struct {
			ProductID int64 `json:"product_id"`
			Quantity  int   `json:"quantity"`
		}
		if !decodeBody(w, r, &req) {
			return
		}
		if err := client.AddToCart(r.Context(), req.ProductID, req.Quantity); err != nil {
			writeUpstreamError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{"success": true})
	})), "cart-add"))

	mux.Handle("/api/cart/items/", otelhttp.NewHandler(guard(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handleCartItem(client, w, r)
	})), "cart-item"))

	// GET/POST /api/addresses
	mux.Handle("/api/addresses", otelhttp.NewHandler(guard(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			addrs, err := client.ListAddresses(r.Context())
			if err != nil {
				writeUpstreamError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{"addresses": addrs})
		case http.MethodPost:
			var addr storefront.Address
			if !decodeBody(w, r, &addr) {
				return
			}
			created, err := client.AddAddress(r.Context(), addr)
			if err != nil {
				writeUpstreamError(w, err)
				return
			}
			writeJSON(w, http.StatusCreated, created)
		default:
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		}
	})), "addresses"))
}

func handleCartItem(client *storefront.Client, w http.ResponseWriter, r *http.Request) {
	raw := strings.TrimPrefix(r.URL.Path, "/api/cart/items/")
	productID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || productID <= 0 {
		http.Error(w, "invalid product id", http.StatusBadRequest)
		return
	}
	switch r.Method {
	case http.MethodPut:
		var req struct {
			Quantity int `json:"quantity"`
		}
		if !decodeBody(w, r, &req) {
			return
		}
		if err := client.UpdateCartItem(r.Context(), productID, req.Quantity); err != nil {
			writeUpstreamError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"success": true})
	case http.MethodDelete:
		if err := client.RemoveCartItem(r.Context(), productID); err != nil {
			writeUpstreamError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"success": true})
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}
