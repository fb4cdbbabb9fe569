package payment

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInterpretPending(t *testing.T) {
	res := Interpret([]byte(`{"status":"pending"}`), nil)
	assert.Equal(t, StatusPending, res.Status)
	assert.True(t, res.ContinuePolling)
	assert.False(t, res.RefreshOrders)
	assert.False(t, res.ClearReference)
	assert.Equal(t, "Payment is still pending...", res.Message)
}

func TestInterpretSuccessWithOrder(t *testing.T) {
	body := []byte(`{"status":"success","order":{"order_id":42,"status":"processing","total_amount":199.99}}`)
	res := Interpret(body, nil)
	assert.Equal(t, StatusSuccess, res.Status)
	assert.False(t, res.ContinuePolling)
	assert.True(t, res.RefreshOrders)
	assert.True(t, res.ClearReference)
	require.NotNil(t, res.Order)
	assert.Equal(t, int64(42), res.Order.OrderID)
}

func TestInterpretFailed(t *testing.T) {
	res := Interpret([]byte(`{"status":"failed"}`), nil)
	assert.Equal(t, StatusFailed, res.Status)
	assert.False(t, res.ContinuePolling)
	assert.True(t, res.RefreshOrders)
	assert.True(t, res.ClearReference)
	assert.Equal(t, "Payment failed.", res.Message)
}

// The backend has been observed nesting the status under payment.status;
// both shapes must classify identically.
func TestInterpretNestedPaymentStatus(t *testing.T) {
	res := Interpret([]byte(`{"payment":{"status":"success","tx_ref":"tx-1"}}`), nil)
	assert.Equal(t, StatusSuccess, res.Status)
	assert.True(t, res.ClearReference)

	// Top-level status wins when both are present.
	res = Interpret([]byte(`{"status":"pending","payment":{"status":"success"}}`), nil)
	assert.Equal(t, StatusPending, res.Status)
}

func TestInterpretCheckError(t *testing.T) {
	res := Interpret([]byte(`{"status":"success"}`), errors.New("connection refused"))
	assert.Equal(t, StatusError, res.Status)
	assert.False(t, res.ContinuePolling)
	assert.False(t, res.RefreshOrders)
	assert.False(t, res.ClearReference)
	assert.Equal(t, "Something went wrong while checking payment status.", res.Message)
}

func TestInterpretMalformedAndUnknown(t *testing.T) {
	cases := map[string][]byte{
		"malformed json": []byte(`{"status":`),
		"empty body":     []byte(``),
		"no status":      []byte(`{"order":{"order_id":1}}`),
		"unknown status": []byte(`{"status":"paid"}`),
	}
	for name, body := range cases {
		res := Interpret(body, nil)
		assert.Equalf(t, StatusError, res.Status, "%s should classify as error", name)
		assert.Falsef(t, res.ContinuePolling, "%s must not keep polling", name)
		assert.Falsef(t, res.ClearReference, "%s must leave the reference restartable", name)
	}
}

func TestTimeout(t *testing.T) {
	res := Timeout()
	assert.Equal(t, StatusTimeout, res.Status)
	assert.False(t, res.ContinuePolling)
	assert.True(t, res.RefreshOrders)
	assert.False(t, res.ClearReference)
}

func TestStatusTerminal(t *testing.T) {
	assert.False(t, StatusPending.Terminal())
	for _, s := range []Status{StatusSuccess, StatusFailed, StatusError, StatusTimeout} {
		assert.Truef(t, s.Terminal(), "%s", s)
	}
}
