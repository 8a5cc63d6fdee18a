package payment_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"StoreFront/internal/payment"
)

func TestVerifySignature(t *testing.T) {
	const secret = "gateway-secret"

	cb := payment.Callback{
		PaymentID: "gw_pay_1",
		OrderID:   "gw_order_1",
		Signature: payment.Sign(secret, "gw_order_1", "gw_pay_1"),
	}
	require.True(t, payment.VerifySignature(secret, cb))

	cb.Signature = payment.Sign("wrong-secret", "gw_order_1", "gw_pay_1")
	require.False(t, payment.VerifySignature(secret, cb))

	cb.Signature = ""
	require.False(t, payment.VerifySignature(secret, cb))

	require.False(t, payment.VerifySignature("", payment.Callback{Signature: "x"}),
		"no configured secret means nothing can verify")
}
