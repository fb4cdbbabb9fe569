package reconcile

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/storefront-labs/storefront-gateway/internal/payment"
)

// scriptChecker serves a fixed sequence of status-check responses, repeating
// the last one once the script is exhausted.
type scriptChecker struct {
	mu        sync.Mutex
	responses []checkResponse
	calls     int
}

type checkResponse struct {
	body []byte
	err  error
}

func (c *scriptChecker) CheckPaymentStatus(ctx context.Context, txRef string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	i := c.calls
	c.calls++
	if i >= len(c.responses) {
		i = len(c.responses) - 1
	}
	r := c.responses[i]
	return r.body, r.err
}

func (c *scriptChecker) callCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

type countingRefresher struct {
	mu    sync.Mutex
	count int
	err   error
}

func (r *countingRefresher) RefreshNow(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.count++
	return r.err
}

func (r *countingRefresher) refreshCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.count
}

func pendingBody() []byte { return []byte(`{"status":"pending"}`) }

func successBody() []byte {
	return []byte(`{"status":"success","order":{"order_id":42,"status":"processing"}}`)
}

func testConfig() Config { return Config{Interval: 2 * time.Millisecond} }

func TestPendingThenSuccessConcludes(t *testing.T) {
	checker := &scriptChecker{responses: []checkResponse{
		{body: pendingBody()},
		{body: pendingBody()},
		{body: successBody()},
	}}
	refresher := &countingRefresher{}
	tr := NewTracker(checker, refresher, nil, testConfig())
	defer tr.Close()

	tr.Start("tx-123")

	require.Eventually(t, func() bool {
		snap, ok := tr.Session("tx-123")
		return ok && snap.Status == payment.StatusSuccess
	}, time.Second, time.Millisecond)

	snap, ok := tr.Session("tx-123")
	require.True(t, ok)
	assert.False(t, snap.Active)
	assert.Equal(t, 3, snap.Checks)
	require.NotNil(t, snap.Order)
	assert.Equal(t, int64(42), snap.Order.OrderID)

	assert.Equal(t, 1, refresher.refreshCount())
	assert.Equal(t, 0, tr.ActiveSessions())

	// The reference is consumed: no amount of restarting resumes polling.
	calls := checker.callCount()
	tr.Start("tx-123")
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, calls, checker.callCount())
}

func TestStartEmptyReferenceIsNoop(t *testing.T) {
	checker := &scriptChecker{responses: []checkResponse{{body: pendingBody()}}}
	tr := NewTracker(checker, nil, nil, testConfig())
	defer tr.Close()

	tr.Start("")
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, 0, checker.callCount())
	assert.Equal(t, 0, tr.ActiveSessions())
}

func TestStartIsIdempotentWhilePolling(t *testing.T) {
	checker := &scriptChecker{responses: []checkResponse{{body: pendingBody()}}}
	tr := NewTracker(checker, nil, nil, testConfig())
	defer tr.Close()

	tr.Start("tx-dup")
	tr.Start("tx-dup")
	tr.Start("tx-dup")

	assert.Equal(t, 1, tr.ActiveSessions())
}

func TestStopHaltsChecks(t *testing.T) {
	checker := &scriptChecker{responses: []checkResponse{{body: pendingBody()}}}
	tr := NewTracker(checker, nil, nil, testConfig())
	defer tr.Close()

	tr.Start("tx-stop")
	require.Eventually(t, func() bool { return checker.callCount() >= 2 }, time.Second, time.Millisecond)

	tr.Stop("tx-stop")
	tr.Stop("tx-stop") // idempotent

	// Give any queued tick time to surface; the halt flag must swallow it.
	time.Sleep(5 * time.Millisecond)
	calls := checker.callCount()
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, calls, checker.callCount())
	assert.Equal(t, 0, tr.ActiveSessions())

	_, ok := tr.Session("tx-stop")
	assert.False(t, ok, "a stopped pending session leaves no snapshot behind")
}

func TestNetworkErrorConcludesWithoutRetry(t *testing.T) {
	checker := &scriptChecker{responses: []checkResponse{
		{err: errors.New("connection refused")},
	}}
	refresher := &countingRefresher{}
	tr := NewTracker(checker, refresher, nil, testConfig())
	defer tr.Close()

	tr.Start("tx-err")

	require.Eventually(t, func() bool {
		snap, ok := tr.Session("tx-err")
		return ok && snap.Status == payment.StatusError
	}, time.Second, time.Millisecond)

	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, 1, checker.callCount(), "a check error concludes immediately, no retries")
	assert.Equal(t, 0, refresher.refreshCount(), "an inconclusive outcome must not refresh orders")

	snap, _ := tr.Session("tx-err")
	assert.Equal(t, "Something went wrong while checking payment status.", snap.Message)
}

func TestErrorOutcomeIsRestartable(t *testing.T) {
	checker := &scriptChecker{responses: []checkResponse{
		{err: errors.New("boom")},
		{body: successBody()},
	}}
	refresher := &countingRefresher{}
	tr := NewTracker(checker, refresher, nil, testConfig())
	defer tr.Close()

	tr.Start("tx-retry")
	require.Eventually(t, func() bool {
		snap, ok := tr.Session("tx-retry")
		return ok && snap.Status == payment.StatusError
	}, time.Second, time.Millisecond)

	// The reference was not consumed, so a fresh mount polls again and can
	// reach the real outcome.
	tr.Start("tx-retry")
	require.Eventually(t, func() bool {
		snap, ok := tr.Session("tx-retry")
		return ok && snap.Status == payment.StatusSuccess
	}, time.Second, time.Millisecond)

	assert.Equal(t, 1, refresher.refreshCount())
}

func TestRefresherFailureDoesNotReopenSession(t *testing.T) {
	checker := &scriptChecker{responses: []checkResponse{{body: successBody()}}}
	refresher := &countingRefresher{err: errors.New("orders endpoint down")}
	tr := NewTracker(checker, refresher, nil, testConfig())
	defer tr.Close()

	tr.Start("tx-rf")
	require.Eventually(t, func() bool {
		snap, ok := tr.Session("tx-rf")
		return ok && snap.Status == payment.StatusSuccess
	}, time.Second, time.Millisecond)

	assert.Equal(t, 1, refresher.refreshCount())
	assert.Equal(t, 0, tr.ActiveSessions())
}

func TestMaxChecksTimesOut(t *testing.T) {
	checker := &scriptChecker{responses: []checkResponse{{body: pendingBody()}}}
	refresher := &countingRefresher{}
	cfg := testConfig()
	cfg.MaxChecks = 3
	tr := NewTracker(checker, refresher, nil, cfg)
	defer tr.Close()

	tr.Start("tx-slow")
	require.Eventually(t, func() bool {
		snap, ok := tr.Session("tx-slow")
		return ok && snap.Status == payment.StatusTimeout
	}, time.Second, time.Millisecond)

	assert.Equal(t, 3, checker.callCount())
	assert.Equal(t, 1, refresher.refreshCount())

	// Timed-out references stay restartable, like errors.
	tr.Start("tx-slow")
	assert.Equal(t, 1, tr.ActiveSessions())
}

func TestSubscribeObservesLifecycle(t *testing.T) {
	checker := &scriptChecker{responses: []checkResponse{
		{body: pendingBody()},
		{body: successBody()},
	}}
	tr := NewTracker(checker, nil, nil, testConfig())
	defer tr.Close()

	ch, cancel := tr.Subscribe(16)
	defer cancel()

	tr.Start("tx-sub")

	var got []Event
	deadline := time.After(time.Second)
	for len(got) < 2 {
		select {
		case evt := <-ch:
			got = append(got, evt)
		case <-deadline:
			t.Fatalf("timed out after %d event(s)", len(got))
		}
	}

	assert.Equal(t, payment.StatusPending, got[0].Status)
	assert.Equal(t, payment.StatusSuccess, got[1].Status)
	assert.Equal(t, "tx-sub", got[1].TxRef)
	assert.Equal(t, 2, got[1].Checks)
}

func TestCloseHaltsEverything(t *testing.T) {
	checker := &scriptChecker{responses: []checkResponse{{body: pendingBody()}}}
	tr := NewTracker(checker, nil, nil, testConfig())

	tr.Start("tx-a")
	tr.Start("tx-b")
	require.Eventually(t, func() bool { return checker.callCount() >= 2 }, time.Second, time.Millisecond)

	tr.Close()
	time.Sleep(5 * time.Millisecond)
	calls := checker.callCount()
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, calls, checker.callCount())

	// Closed trackers refuse new sessions.
	tr.Start("tx-c")
	assert.Equal(t, 0, tr.ActiveSessions())
}
