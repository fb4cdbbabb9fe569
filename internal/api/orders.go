package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/storefront-labs/storefront-gateway/internal/authz"
	"github.com/storefront-labs/storefront-gateway/internal/order"
	"github.com/storefront-labs/storefront-gateway/internal/storefront"
)

// RegisterOrdersRoutes wires the customer order endpoints into the provided
// mux. Lists are served from the refresher's cache, which the background
// loop and terminal payment events keep current; detail fetches go upstream
// with the cache as fallback. Everything here exposes the customer's own
// order history, so every route is gated on view_own_orders.
func RegisterOrdersRoutes(mux *http.ServeMux, refresher *order.Refresher, sess storefront.Session, ac authz.Client) {
	guard := authz.Require(ac, sess, func(*http.Request) string { return authz.CapViewOwnOrders })

	// GET /api/orders → cached list, POST /api/orders → forced refresh
	mux.Handle("/api/orders", otelhttp.NewHandler(guard(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			handleOrdersList(refresher, w, r)
		case http.MethodPost:
			handleOrdersRefresh(refresher, w, r)
		default:
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		}
	})), "orders-list"))

	// GET /api/orders/{id} → detail
	mux.Handle("/api/orders/", otelhttp.NewHandler(guard(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		handleOrderDetail(refresher, w, r)
	})), "order-detail"))
}

func handleOrdersList(refresher *order.Refresher, w http.ResponseWriter, r *http.Request) {
	refreshedAt, lastErr := refresher.RefreshedAt()
	resp := map[string]any{
		"orders":       refresher.Orders(),
		"refreshed_at": refreshedAt,
	}
	if lastErr != nil {
		resp["stale"] = true
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleOrdersRefresh forces an immediate upstream fetch. POST /api/orders
// with no body, mirroring a manual reload of the order-history page.
func handleOrdersRefresh(refresher *order.Refresher, w http.ResponseWriter, r *http.Request) {
	if err := refresher.RefreshNow(r.Context()); err != nil {
		writeUpstreamError(w, err)
		return
	}
	handleOrdersList(refresher, w, r)
}

func handleOrderDetail(refresher *order.Refresher, w http.ResponseWriter, r *http.Request) {
	raw := strings.TrimPrefix(r.URL.Path, "/api/orders/")
	orderID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || orderID <= 0 {
		http.Error(w, "invalid order id", http.StatusBadRequest)
		return
	}
	rec, err := refresher.Detail(r.Context(), orderID)
	if err != nil {
		if errors.Is(err, storefront.ErrOrderNotFound) {
			http.Error(w, "order not found", http.StatusNotFound)
			return
		}
		writeUpstreamError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}
