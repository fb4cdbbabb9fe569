package bdd

import (
	"fmt"
	"net/http"
	"time"

	"github.com/cucumber/godog"

	"github.com/storefront-labs/storefront-gateway/internal/storefront"
)

func (w *GatewayWorld) registerReconcileSteps(sc *godog.ScenarioContext) {
	sc.Step(`^the processor reports "([^"]+)" (\d+) times? and then "([^"]+)" with order (\d+) for reference "([^"]+)"$`, w.scriptStatusSequence)
	sc.Step(`^the processor reports "([^"]+)" for reference "([^"]+)"$`, w.scriptSingleStatus)
	sc.Step(`^the processor is unreachable for reference "([^"]+)"$`, w.scriptUnreachable)
	sc.Step(`^the backend lists (\d+) orders? for the customer$`, w.seedOrders)

	sc.Step(`^the customer lands on the payment result page with reference "([^"]+)"$`, w.landWithReference)
	sc.Step(`^the customer lands on the payment result page with no reference$`, w.landWithoutReference)
	sc.Step(`^the customer lands on the payment result page with reference "([^"]+)" again$`, w.landWithReference)
	sc.Step(`^the customer leaves the page for reference "([^"]+)"$`, w.leavePage)
	sc.Step(`^the session for "([^"]+)" concludes as "([^"]+)"$`, w.waitForStatus)

	sc.Step(`^the processor was checked (\d+) times? for reference "([^"]+)"$`, w.assertCheckCount)
	sc.Step(`^the processor is never checked for reference "([^"]*)"$`, w.assertNeverChecked)
	sc.Step(`^no further checks happen for reference "([^"]+)"$`, w.assertNoFurtherChecks)
	sc.Step(`^the order list was refreshed (\d+) times?$`, w.assertOrderFetches)
	sc.Step(`^the order list was never refreshed$`, w.assertNoOrderFetches)
	sc.Step(`^no reconciliation session is active$`, w.assertNoActiveSessions)
	sc.Step(`^the session message for "([^"]+)" is "([^"]+)"$`, w.assertSessionMessage)
	sc.Step(`^reference "([^"]+)" is consumed$`, w.assertReferenceConsumed)
	sc.Step(`^reference "([^"]+)" can be polled again$`, w.assertReferenceRestartable)
}

func (w *GatewayWorld) scriptStatusSequence(first string, repeats int, final string, orderID int, txRef string) error {
	var script []scriptedCheck
	for i := 0; i < repeats; i++ {
		script = append(script, scriptedCheck{status: http.StatusOK, body: fmt.Sprintf(`{"status":%q}`, first)})
	}
	finalBody := fmt.Sprintf(`{"status":%q,"order":{"order_id":%d,"status":"processing","payment_status":%q}}`, final, orderID, final)
	script = append(script, scriptedCheck{status: http.StatusOK, body: finalBody})

	w.mu.Lock()
	w.scripts[txRef] = script
	w.mu.Unlock()
	return nil
}

func (w *GatewayWorld) scriptSingleStatus(status, txRef string) error {
	w.mu.Lock()
	w.scripts[txRef] = []scriptedCheck{{status: http.StatusOK, body: fmt.Sprintf(`{"status":%q}`, status)}}
	w.mu.Unlock()
	return nil
}

func (w *GatewayWorld) scriptUnreachable(txRef string) error {
	w.mu.Lock()
	w.scripts[txRef] = []scriptedCheck{{drop: true}}
	w.mu.Unlock()
	return nil
}

func (w *GatewayWorld) seedOrders(n int) error {
	orders := make([]storefront.OrderRecord, 0, n)
	for i := 1; i <= n; i++ {
		orders = append(orders, storefront.OrderRecord{OrderID: int64(i), Status: "processing"})
	}
	w.mu.Lock()
	w.orders = orders
	w.mu.Unlock()
	return nil
}

func (w *GatewayWorld) landWithReference(txRef string) error {
	w.tracker.Start(txRef)
	return nil
}

func (w *GatewayWorld) landWithoutReference() error {
	w.tracker.Start("")
	return nil
}

func (w *GatewayWorld) leavePage(txRef string) error {
	w.tracker.Stop(txRef)
	return nil
}

func (w *GatewayWorld) assertCheckCount(want int, txRef string) error {
	if got := w.checkCount(txRef); got != want {
		return fmt.Errorf("expected %d check(s) for %s, got %d", want, txRef, got)
	}
	return nil
}

func (w *GatewayWorld) assertNeverChecked(txRef string) error {
	// Give a would-be poll loop time to fire.
	time.Sleep(20 * time.Millisecond)
	return w.assertCheckCount(0, txRef)
}

func (w *GatewayWorld) assertNoFurtherChecks(txRef string) error {
	// Let any in-flight check land before taking the baseline.
	time.Sleep(10 * time.Millisecond)
	before := w.checkCount(txRef)
	time.Sleep(20 * time.Millisecond)
	if after := w.checkCount(txRef); after != before {
		return fmt.Errorf("checks for %s advanced from %d to %d", txRef, before, after)
	}
	return nil
}

func (w *GatewayWorld) assertOrderFetches(want int) error {
	if got := w.orderFetchCount(); got != want {
		return fmt.Errorf("expected %d order refresh(es), got %d", want, got)
	}
	return nil
}

func (w *GatewayWorld) assertNoOrderFetches() error {
	return w.assertOrderFetches(0)
}

func (w *GatewayWorld) assertNoActiveSessions() error {
	if n := w.tracker.ActiveSessions(); n != 0 {
		return fmt.Errorf("expected no active sessions, got %d", n)
	}
	return nil
}

func (w *GatewayWorld) assertSessionMessage(txRef, want string) error {
	snap, ok := w.tracker.Session(txRef)
	if !ok {
		return fmt.Errorf("no session for %q", txRef)
	}
	if snap.Message != want {
		return fmt.Errorf("message for %s: got %q, want %q", txRef, snap.Message, want)
	}
	return nil
}

// assertReferenceConsumed starts the reference again and verifies no new
// checks happen: a terminal success/failed outcome retires the reference.
func (w *GatewayWorld) assertReferenceConsumed(txRef string) error {
	before := w.checkCount(txRef)
	w.tracker.Start(txRef)
	time.Sleep(20 * time.Millisecond)
	if after := w.checkCount(txRef); after != before {
		return fmt.Errorf("consumed reference %s polled again (%d -> %d)", txRef, before, after)
	}
	if n := w.tracker.ActiveSessions(); n != 0 {
		return fmt.Errorf("consumed reference %s left %d active session(s)", txRef, n)
	}
	return nil
}

func (w *GatewayWorld) assertReferenceRestartable(txRef string) error {
	before := w.checkCount(txRef)
	w.tracker.Start(txRef)
	deadline := time.After(time.Second)
	for w.checkCount(txRef) == before {
		select {
		case <-deadline:
			return fmt.Errorf("reference %s did not poll again after restart", txRef)
		case <-time.After(time.Millisecond):
		}
	}
	return nil
}
