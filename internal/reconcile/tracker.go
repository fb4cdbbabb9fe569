// Package reconcile owns payment status reconciliation: one tracker holds
// the in-flight poll sessions for a customer session, classifies each
// status-check response, and concludes sessions on terminal results.
//
// The original storefront duplicated this interval/clear-interval logic in
// every page that could observe a payment redirect; consolidating it here
// is what guarantees the at-most-one-poller and always-cancelled
// invariants in one place.
package reconcile

import (
	"context"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/storefront-labs/storefront-gateway/internal/payment"
	"github.com/storefront-labs/storefront-gateway/internal/poller"
	"github.com/storefront-labs/storefront-gateway/internal/storefront"
)

// StatusChecker performs one status check for a transaction reference and
// returns the raw response body. Satisfied by *storefront.Client.
type StatusChecker interface {
	CheckPaymentStatus(ctx context.Context, txRef string) ([]byte, error)
}

// OrderRefresher re-fetches the authoritative order data after a terminal
// payment status. Its failure never reopens a concluded session.
type OrderRefresher interface {
	RefreshNow(ctx context.Context) error
}

// Event is one observed state of a poll session, emitted to subscribers on
// every check. Views subscribe instead of running their own intervals.
type Event struct {
	SessionID string
	TxRef     string
	Status    payment.Status
	Order     *storefront.OrderRecord
	Message   string
	Checks    int
}

// Snapshot is the queryable state of a session, live or concluded.
type Snapshot struct {
	SessionID string                  `json:"session_id"`
	TxRef     string                  `json:"tx_ref"`
	Status    payment.Status          `json:"status"`
	Order     *storefront.OrderRecord `json:"order,omitempty"`
	Message   string                  `json:"message"`
	Checks    int                     `json:"checks"`
	Active    bool                    `json:"active"`
}

// Config controls polling cadence and the optional ceiling.
type Config struct {
	// Interval between status checks. Defaults to 5 seconds.
	Interval time.Duration
	// MaxChecks and MaxDuration bound a pending poll; zero means
	// unbounded, matching the historical behavior. When a bound passes
	// with the payment still pending the session concludes as timeout.
	MaxChecks   int
	MaxDuration time.Duration
}

const defaultInterval = 5 * time.Second

// Tracker manages every active PollSession keyed by transaction reference.
type Tracker struct {
	checker   StatusChecker
	refresher OrderRefresher
	logger    *log.Logger
	cfg       Config

	mu       sync.Mutex
	sessions map[string]*session
	resolved map[string]Snapshot
	subs     map[int]chan Event
	nextSub  int
	closed   bool
}

// session is the ephemeral per-reference state: the poll handle, the halt
// flag, and the latest observed status.
type session struct {
	id      string
	txRef   string
	started time.Time
	halted  atomic.Bool

	hmu    sync.Mutex
	handle *poller.Handle

	smu     sync.Mutex
	status  payment.Status
	order   *storefront.OrderRecord
	message string
	checks  int
}

func (s *session) setHandle(h *poller.Handle) {
	s.hmu.Lock()
	s.handle = h
	s.hmu.Unlock()
}

func (s *session) cancelHandle() {
	s.hmu.Lock()
	h := s.handle
	s.hmu.Unlock()
	h.Cancel()
}

func (s *session) snapshot(active bool) Snapshot {
	s.smu.Lock()
	defer s.smu.Unlock()
	return Snapshot{
		SessionID: s.id,
		TxRef:     s.txRef,
		Status:    s.status,
		Order:     s.order,
		Message:   s.message,
		Checks:    s.checks,
		Active:    active,
	}
}

// NewTracker builds a tracker. checker is required; refresher may be nil
// when there is no order view to refresh.
func NewTracker(checker StatusChecker, refresher OrderRefresher, logger *log.Logger, cfg Config) *Tracker {
	if cfg.Interval <= 0 {
		cfg.Interval = defaultInterval
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Tracker{
		checker:   checker,
		refresher: refresher,
		logger:    logger,
		cfg:       cfg,
		sessions:  make(map[string]*session),
		resolved:  make(map[string]Snapshot),
		subs:      make(map[int]chan Event),
	}
}

// Start begins reconciliation for txRef. It is a no-op when txRef is empty,
// when a session for txRef is already polling, or when the reference has
// already been consumed by a terminal success/failed outcome. A reference
// that previously concluded as error or timeout may be started again: the
// true outcome is still unknown upstream.
func (t *Tracker) Start(txRef string) {
	if txRef == "" {
		return
	}

	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return
	}
	if _, done := t.resolved[txRef]; done {
		t.mu.Unlock()
		return
	}
	if existing, ok := t.sessions[txRef]; ok {
		if !existing.halted.Load() {
			// Double-mount: exactly one poller per reference.
			t.mu.Unlock()
			return
		}
		// A halted error/timeout session is replaced by a fresh attempt.
		delete(t.sessions, txRef)
	}

	s := &session{
		id:      uuid.New().String(),
		txRef:   txRef,
		started: time.Now(),
		status:  payment.StatusPending,
	}
	t.sessions[txRef] = s
	t.mu.Unlock()

	h := poller.Arm(func(ctx context.Context) { t.check(ctx, s) }, t.cfg.Interval)
	s.setHandle(h)
	// The very first check can conclude the session before the handle is
	// recorded; the halt flag closes that window.
	if s.halted.Load() {
		h.Cancel()
	}
}

// Stop tears down the session for txRef, if any. Idempotent: stopping a
// concluded, stopped, or unknown reference is a no-op. This is the unmount
// path and must run regardless of whether a terminal state was reached.
func (t *Tracker) Stop(txRef string) {
	t.mu.Lock()
	s, ok := t.sessions[txRef]
	if ok {
		delete(t.sessions, txRef)
	}
	t.mu.Unlock()
	if !ok {
		return
	}
	s.halted.Store(true)
	s.cancelHandle()
}

// Session returns the current snapshot for txRef: the live session if one
// is polling or halted in place, otherwise the consumed terminal snapshot.
func (t *Tracker) Session(txRef string) (Snapshot, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if s, ok := t.sessions[txRef]; ok {
		return s.snapshot(!s.halted.Load()), true
	}
	snap, ok := t.resolved[txRef]
	return snap, ok
}

// ActiveSessions reports how many sessions are currently polling.
func (t *Tracker) ActiveSessions() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	n := 0
	for _, s := range t.sessions {
		if !s.halted.Load() {
			n++
		}
	}
	return n
}

// Subscribe registers a buffered listener for session events. The returned
// func unsubscribes; events that would block are dropped rather than
// stalling the poll loop.
func (t *Tracker) Subscribe(buf int) (<-chan Event, func()) {
	if buf <= 0 {
		buf = 16
	}
	ch := make(chan Event, buf)
	t.mu.Lock()
	id := t.nextSub
	t.nextSub++
	if t.closed {
		t.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	t.subs[id] = ch
	t.mu.Unlock()
	return ch, func() {
		t.mu.Lock()
		if c, ok := t.subs[id]; ok {
			delete(t.subs, id)
			close(c)
		}
		t.mu.Unlock()
	}
}

// Close halts every session and closes all subscriptions.
func (t *Tracker) Close() {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return
	}
	t.closed = true
	sessions := make([]*session, 0, len(t.sessions))
	for ref, s := range t.sessions {
		sessions = append(sessions, s)
		delete(t.sessions, ref)
	}
	for id, ch := range t.subs {
		delete(t.subs, id)
		close(ch)
	}
	t.mu.Unlock()

	for _, s := range sessions {
		s.halted.Store(true)
		s.cancelHandle()
	}
}

// check is the poll tick handler. It runs on the session's single poll
// goroutine, so per-session checks never overlap.
func (t *Tracker) check(ctx context.Context, s *session) {
	// Halt flag first: a tick can be queued at the instant Stop lands, and
	// a stopped session must never issue another check.
	if s.halted.Load() {
		return
	}

	body, err := t.checker.CheckPaymentStatus(ctx, s.txRef)
	res := payment.Interpret(body, err)

	if res.Status == payment.StatusPending && t.ceilingPassed(s) {
		res = payment.Timeout()
	}

	s.smu.Lock()
	s.checks++
	checks := s.checks
	s.status = res.Status
	if res.Order != nil {
		s.order = res.Order
	}
	s.message = res.Message
	order := s.order
	s.smu.Unlock()

	if res.ContinuePolling {
		t.publish(Event{SessionID: s.id, TxRef: s.txRef, Status: res.Status, Order: order, Message: res.Message, Checks: checks})
		return
	}

	t.conclude(ctx, s, res, checks)
}

func (t *Tracker) ceilingPassed(s *session) bool {
	if t.cfg.MaxChecks > 0 {
		s.smu.Lock()
		checks := s.checks
		s.smu.Unlock()
		// checks has not been incremented for the in-flight check yet.
		if checks+1 >= t.cfg.MaxChecks {
			return true
		}
	}
	if t.cfg.MaxDuration > 0 && time.Since(s.started) >= t.cfg.MaxDuration {
		return true
	}
	return false
}

// conclude cancels polling and applies the terminal side effects. The halt
// flag is set before the handle is cancelled so no stray tick can slip in
// between, and before any collaborator runs.
func (t *Tracker) conclude(ctx context.Context, s *session, res payment.Interpretation, checks int) {
	s.halted.Store(true)
	s.cancelHandle()

	snap := s.snapshot(false)

	t.mu.Lock()
	if res.ClearReference {
		// Reference consumed: a reload observes the resolved snapshot and
		// never resumes polling.
		delete(t.sessions, s.txRef)
		t.resolved[s.txRef] = snap
	}
	t.mu.Unlock()

	t.logger.Printf("[reconcile %s] tx_ref=%s concluded status=%s after %d check(s)", s.id, s.txRef, res.Status, checks)

	if res.RefreshOrders && t.refresher != nil {
		if err := t.refresher.RefreshNow(ctx); err != nil {
			// The payment outcome stands regardless.
			t.logger.Printf("[reconcile %s] order refresh after %s failed: %v", s.id, res.Status, err)
		}
	}

	t.publish(Event{SessionID: s.id, TxRef: s.txRef, Status: res.Status, Order: snap.Order, Message: res.Message, Checks: checks})
}

func (t *Tracker) publish(evt Event) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, ch := range t.subs {
		select {
		case ch <- evt:
		default:
		}
	}
}
