// Package payment holds the pieces of the hosted payment flow the storefront
// sees: the order payload handed to the widget and the callback it posts
// back when collection finishes.
package payment

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// Callback carries the gateway identifiers posted by the hosted widget after
// the customer completes (or abandons) payment.
type Callback struct {
	PaymentID string `json:"gatewayPaymentId"`
	OrderID   string `json:"gatewayOrderId"`
	Signature string `json:"gatewaySignature"`
	// Failure is set when the widget reports an error (load failure, user
	// abort) instead of a completed payment.
	Failure string `json:"failure,omitempty"`
}

// VerifySignature checks the callback against the gateway key secret. The
// signature is HMAC-SHA256 over "<gateway order id>|<gateway payment id>",
// hex encoded. A failed check means the callback cannot be trusted and must
// not reach the verification endpoint.
func VerifySignature(secret string, cb Callback) bool {
	if secret == "" || cb.Signature == "" {
		return false
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(cb.OrderID + "|" + cb.PaymentID))
	want := hex.EncodeToString(mac.Sum(nil))

	return hmac.Equal([]byte(want), []byte(cb.Signature))
}

// Sign produces the signature the gateway would attach. Used by tests and
// local fakes.
func Sign(secret, orderID, paymentID string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(orderID + "|" + paymentID))
	return hex.EncodeToString(mac.Sum(nil))
}
