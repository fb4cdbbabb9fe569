package payment

import (
	"encoding/json"

	"github.com/storefront-labs/storefront-gateway/internal/storefront"
)

// User-facing messages for each outcome. The view layer renders exactly one
// of these; the interpreter never exposes raw errors to it.
const (
	msgPending = "Payment is still pending..."
	msgSuccess = "Payment successful. Your order has been placed."
	msgFailed  = "Payment failed."
	msgError   = "Something went wrong while checking payment status."
	msgTimeout = "Payment confirmation timed out. Check your orders for the final status."
)

// Interpretation is the full decision for one status-check response: the
// classified status plus every side effect the tracker must apply.
type Interpretation struct {
	Status          Status
	Order           *storefront.OrderRecord
	Message         string
	ContinuePolling bool
	RefreshOrders   bool
	// ClearReference marks the transaction reference as consumed so a
	// reload cannot resurrect a resolved poll. Left false on error: the
	// true outcome is still unknown upstream.
	ClearReference bool
}

// checkStatusEnvelope accepts both response shapes the backend has been
// observed to produce: `status` at the top level and nested under
// `payment.status`.
type checkStatusEnvelope struct {
	Status  string                  `json:"status"`
	Order   *storefront.OrderRecord `json:"order"`
	Payment *storefront.PaymentRef  `json:"payment"`
}

// Interpret classifies one raw status-check response. checkErr is any
// transport or HTTP-level failure from the fetch itself; when set, the body
// is ignored. Pure: no I/O, no retries, no panics.
func Interpret(body []byte, checkErr error) Interpretation {
	if checkErr != nil {
		return errorInterpretation()
	}

	var env checkStatusEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return errorInterpretation()
	}

	status := env.Status
	if status == "" && env.Payment != nil {
		status = env.Payment.Status
	}

	switch Status(status) {
	case StatusPending:
		return Interpretation{
			Status:          StatusPending,
			Order:           env.Order,
			Message:         msgPending,
			ContinuePolling: true,
		}
	case StatusSuccess:
		return Interpretation{
			Status:         StatusSuccess,
			Order:          env.Order,
			Message:        msgSuccess,
			RefreshOrders:  true,
			ClearReference: true,
		}
	case StatusFailed:
		return Interpretation{
			Status:         StatusFailed,
			Order:          env.Order,
			Message:        msgFailed,
			RefreshOrders:  true,
			ClearReference: true,
		}
	default:
		// Missing or unknown status field. Treating this as pending would
		// poll a broken contract forever, so it is a hard error.
		return errorInterpretation()
	}
}

// Timeout is the interpretation applied when a configured poll ceiling
// passes with the payment still pending.
func Timeout() Interpretation {
	return Interpretation{
		Status:        StatusTimeout,
		Message:       msgTimeout,
		RefreshOrders: true,
	}
}

func errorInterpretation() Interpretation {
	return Interpretation{
		Status:  StatusError,
		Message: msgError,
	}
}
