// Package signature authenticates inbound gateway payloads. Both the webhook
// stream and the synchronous checkout callback carry a hex-encoded HMAC-SHA256
// computed by the gateway over a shared secret.
package signature

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// Verify reports whether signature is the hex HMAC-SHA256 of body under
// secret. The comparison is constant time. It must be given the exact raw
// request bytes: re-serializing a decoded payload can produce different bytes
// and a false negative. Malformed input yields false, never a panic.
func Verify(body []byte, signature, secret string) bool {
	if signature == "" || secret == "" {
		return false
	}
	got, err := hex.DecodeString(signature)
	if err != nil {
		return false
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hmac.Equal(got, mac.Sum(nil))
}

// VerifyCheckout verifies the signature the gateway hands the client after
// checkout, computed over "<orderRef>|<paymentRef>".
func VerifyCheckout(orderRef, paymentRef, signature, secret string) bool {
	if orderRef == "" || paymentRef == "" {
		return false
	}
	return Verify([]byte(orderRef+"|"+paymentRef), signature, secret)
}

// Sign returns the hex HMAC-SHA256 of body under secret. Used by tests and
// by tooling that replays webhook payloads.
func Sign(body []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}
