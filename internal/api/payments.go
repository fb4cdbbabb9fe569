package api

import (
	"net/http"
	"strings"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/storefront-labs/storefront-gateway/internal/reconcile"
	"github.com/storefront-labs/storefront-gateway/internal/storefront"
)

// RegisterPaymentsRoutes wires checkout and payment-result endpoints into
// the provided mux.
//
// GET /api/payments/result?tx_ref= is the gateway's version of the
// payment-success page: it arms a poll session for the reference (idempotent
// while one is live) and returns the current snapshot. Callers poll this
// endpoint instead of the processor; the tracker owns the upstream cadence.
func RegisterPaymentsRoutes(mux *http.ServeMux, client *storefront.Client, tracker *reconcile.Tracker) {
	// POST /api/checkout → place the cart as an order
	mux.Handle("/api/checkout", otelhttp.NewHandler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		handleCheckout(client, tracker, w, r)
	}), "checkout"))

	// GET /api/payments/result?tx_ref= → snapshot (starts polling)
	mux.Handle("/api/payments/result", otelhttp.NewHandler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		handlePaymentResult(tracker, w, r)
	}), "payment-result"))

	// DELETE /api/payments/result/{tx_ref} → stop polling
	mux.Handle("/api/payments/result/", otelhttp.NewHandler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodDelete {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		handleStopPolling(tracker, w, r)
	}), "payment-result-stop"))
}

func handleCheckout(client *storefront.Client, tracker *reconcile.Tracker, w http.ResponseWriter, r *http.Request) {
	var req struct {
		AddressID int64  `json:"address_id"`
		Method    string `json:"method"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	init, err := client.InitializePayment(r.Context(), req.AddressID, req.Method)
	if err != nil {
		writeUpstreamError(w, err)
		return
	}
	// Redirect methods hand back a reference; arm the tracker now so the
	// result endpoint never races the processor redirect.
	if init.TxRef != "" {
		tracker.Start(init.TxRef)
	}
	writeJSON(w, http.StatusOK, init)
}

func handlePaymentResult(tracker *reconcile.Tracker, w http.ResponseWriter, r *http.Request) {
	txRef := r.URL.Query().Get("tx_ref")
	if txRef == "" {
		// Landing without a reference is a no-op, not an error: nothing
		// to reconcile, nothing gets armed.
		writeJSON(w, http.StatusOK, map[string]any{"active": false})
		return
	}
	tracker.Start(txRef)
	snap, ok := tracker.Session(txRef)
	if !ok {
		writeJSON(w, http.StatusOK, map[string]any{"tx_ref": txRef, "active": false})
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func handleStopPolling(tracker *reconcile.Tracker, w http.ResponseWriter, r *http.Request) {
	txRef := strings.TrimPrefix(r.URL.Path, "/api/payments/result/")
	if txRef == "" {
		http.Error(w, "tx_ref required", http.StatusBadRequest)
		return
	}
	tracker.Stop(txRef)
	writeJSON(w, http.StatusOK, map[string]any{"stopped": true, "tx_ref": txRef})
}
