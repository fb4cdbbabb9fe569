package payment

// Status is the gateway-side classification of a payment attempt.
type Status string

const (
	// StatusPending is the only non-terminal value: the processor has not
	// resolved the payment yet and polling continues.
	StatusPending Status = "pending"
	// StatusSuccess and StatusFailed are reported by the processor.
	StatusSuccess Status = "success"
	StatusFailed  Status = "failed"
	// StatusError covers client-side failures: network errors, malformed
	// payloads, or a response missing any status field.
	StatusError Status = "error"
	// StatusTimeout is reached when a poll ceiling is configured and a
	// payment is still pending once the ceiling passes. Distinct from
	// StatusError so callers can tell "gave up waiting" from "broke".
	StatusTimeout Status = "timeout"
)

// Terminal reports whether no further polling should happen for s.
func (s Status) Terminal() bool {
	return s == StatusSuccess || s == StatusFailed || s == StatusError || s == StatusTimeout
}
