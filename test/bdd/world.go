package bdd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/cucumber/godog"

	"github.com/storefront-labs/storefront-gateway/internal/order"
	"github.com/storefront-labs/storefront-gateway/internal/reconcile"
	"github.com/storefront-labs/storefront-gateway/internal/storefront"
)

// GatewayWorld wires a scripted upstream backend to a real tracker and
// refresher so scenarios exercise the reconciliation flow end to end,
// minus the network the processor lives on.
type GatewayWorld struct {
	t *testing.T

	backend   *httptest.Server
	client    *storefront.Client
	refresher *order.Refresher
	tracker   *reconcile.Tracker

	mu           sync.Mutex
	scripts      map[string][]scriptedCheck
	checkCalls   map[string]int
	orderFetches int
	orders       []storefront.OrderRecord
}

// scriptedCheck is one upstream response for GET /payments/check-status.
type scriptedCheck struct {
	status int
	body   string
	drop   bool // simulate a connection failure
}

func NewGatewayWorld(t *testing.T) *GatewayWorld {
	return &GatewayWorld{t: t}
}

func (w *GatewayWorld) Register(sc *godog.ScenarioContext) {
	// The initializer runs once per suite; each scenario gets fresh
	// backend/tracker state from the Before hook.
	sc.Before(func(ctx context.Context, _ *godog.Scenario) (context.Context, error) {
		w.setup()
		return ctx, nil
	})
	sc.After(func(ctx context.Context, _ *godog.Scenario, _ error) (context.Context, error) {
		w.teardown()
		return ctx, nil
	})

	w.registerReconcileSteps(sc)
}

func (w *GatewayWorld) setup() {
	w.mu.Lock()
	w.scripts = make(map[string][]scriptedCheck)
	w.checkCalls = make(map[string]int)
	w.orderFetches = 0
	w.orders = nil
	w.mu.Unlock()

	mux := http.NewServeMux()
	mux.HandleFunc("/payments/check-status", w.serveCheckStatus)
	mux.HandleFunc("/orders/customer", w.serveOrders)
	w.backend = httptest.NewServer(mux)

	logger := log.New(io.Discard, "", 0)
	w.client = storefront.NewClient(w.backend.URL, nil, nil)
	w.refresher = order.NewRefresher(w.client, logger, time.Hour)
	w.tracker = reconcile.NewTracker(w.client, w.refresher, logger, reconcile.Config{Interval: 2 * time.Millisecond})
}

func (w *GatewayWorld) teardown() {
	if w.tracker != nil {
		w.tracker.Close()
	}
	if w.backend != nil {
		w.backend.Close()
	}
}

func (w *GatewayWorld) serveCheckStatus(rw http.ResponseWriter, r *http.Request) {
	txRef := r.URL.Query().Get("tx_ref")

	w.mu.Lock()
	i := w.checkCalls[txRef]
	w.checkCalls[txRef]++
	script := w.scripts[txRef]
	w.mu.Unlock()

	if len(script) == 0 {
		http.Error(rw, `{"message":"unknown transaction"}`, http.StatusNotFound)
		return
	}
	if i >= len(script) {
		i = len(script) - 1
	}
	resp := script[i]
	if resp.drop {
		// Close without a response so the client sees a transport error.
		hj, ok := rw.(http.Hijacker)
		if !ok {
			panic("test server does not support hijacking")
		}
		conn, _, err := hj.Hijack()
		if err == nil {
			_ = conn.Close()
		}
		return
	}
	rw.Header().Set("Content-Type", "application/json")
	rw.WriteHeader(resp.status)
	_, _ = rw.Write([]byte(resp.body))
}

func (w *GatewayWorld) serveOrders(rw http.ResponseWriter, r *http.Request) {
	w.mu.Lock()
	w.orderFetches++
	orders := make([]storefront.OrderRecord, len(w.orders))
	copy(orders, w.orders)
	w.mu.Unlock()

	rw.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(rw).Encode(map[string]any{"orders": orders})
}

func (w *GatewayWorld) checkCount(txRef string) int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.checkCalls[txRef]
}

func (w *GatewayWorld) orderFetchCount() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.orderFetches
}

// waitForStatus blocks until the session for txRef reports status, or fails.
func (w *GatewayWorld) waitForStatus(txRef, status string) error {
	deadline := time.After(2 * time.Second)
	for {
		snap, ok := w.tracker.Session(txRef)
		if ok && string(snap.Status) == status {
			return nil
		}
		select {
		case <-deadline:
			if !ok {
				return fmt.Errorf("no session for %q", txRef)
			}
			return fmt.Errorf("session %q stuck at %q, wanted %q", txRef, snap.Status, status)
		case <-time.After(time.Millisecond):
		}
	}
}
