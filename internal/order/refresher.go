// Package order maintains the gateway's read-only view of the customer's
// orders: a cache refreshed on demand after terminal payment statuses and
// on a fixed background interval for list views.
package order

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/storefront-labs/storefront-gateway/internal/poller"
	"github.com/storefront-labs/storefront-gateway/internal/storefront"
)

// Lister fetches the authoritative order data. Satisfied by
// *storefront.Client.
type Lister interface {
	ListCustomerOrders(ctx context.Context) ([]storefront.OrderRecord, error)
	GetCustomerOrder(ctx context.Context, orderID int64) (*storefront.OrderRecord, error)
}

const defaultListInterval = 10 * time.Second

// Refresher owns the cached order list for one customer session. The cache
// is only ever replaced wholesale by a successful fetch; a failed refresh
// keeps the previous data.
type Refresher struct {
	client   Lister
	logger   *log.Logger
	interval time.Duration

	mu          sync.RWMutex
	orders      []storefront.OrderRecord
	refreshedAt time.Time
	refreshes   int
	lastErr     error

	hmu    sync.Mutex
	handle *poller.Handle
}

func NewRefresher(client Lister, logger *log.Logger, interval time.Duration) *Refresher {
	if interval <= 0 {
		interval = defaultListInterval
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Refresher{client: client, logger: logger, interval: interval}
}

// RefreshNow fetches the order list once. This is the collaborator invoked
// after a terminal payment status; callers tolerate its error.
func (r *Refresher) RefreshNow(ctx context.Context) error {
	orders, err := r.client.ListCustomerOrders(ctx)

	r.mu.Lock()
	defer r.mu.Unlock()
	r.refreshes++
	if err != nil {
		r.lastErr = err
		return err
	}
	r.lastErr = nil
	r.orders = orders
	r.refreshedAt = time.Now()
	return nil
}

// Start arms the background list refresh loop. Idempotent: a second Start
// without an intervening Stop keeps the existing loop.
func (r *Refresher) Start() {
	r.hmu.Lock()
	defer r.hmu.Unlock()
	if r.handle != nil && !r.handle.Cancelled() {
		return
	}
	r.handle = poller.Arm(func(ctx context.Context) {
		if err := r.RefreshNow(ctx); err != nil {
			r.logger.Printf("[orders] background refresh failed: %v", err)
		}
	}, r.interval)
}

// Stop cancels the background loop. Safe to call repeatedly, and
// independent of any payment polling: the two loops never share a handle.
func (r *Refresher) Stop() {
	r.hmu.Lock()
	h := r.handle
	r.hmu.Unlock()
	h.Cancel()
}

// Orders returns the cached list.
func (r *Refresher) Orders() []storefront.OrderRecord {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]storefront.OrderRecord, len(r.orders))
	copy(out, r.orders)
	return out
}

// Order returns one cached order by id.
func (r *Refresher) Order(orderID int64) (storefront.OrderRecord, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, o := range r.orders {
		if o.OrderID == orderID {
			return o, true
		}
	}
	return storefront.OrderRecord{}, false
}

// Detail fetches one order from the backend, falling back to the cache when
// the fetch fails and the order is known.
func (r *Refresher) Detail(ctx context.Context, orderID int64) (*storefront.OrderRecord, error) {
	ord, err := r.client.GetCustomerOrder(ctx, orderID)
	if err == nil {
		return ord, nil
	}
	if cached, ok := r.Order(orderID); ok {
		r.logger.Printf("[orders] detail fetch for %d failed, serving cache: %v", orderID, err)
		return &cached, nil
	}
	return nil, err
}

// RefreshedAt reports when the cache was last replaced, and the error from
// the most recent attempt.
func (r *Refresher) RefreshedAt() (time.Time, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.refreshedAt, r.lastErr
}

// Refreshes reports how many refresh attempts have run.
func (r *Refresher) Refreshes() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.refreshes
}
