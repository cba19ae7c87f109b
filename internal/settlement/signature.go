package settlement

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// VerifySignature checks the gateway callback signature: HMAC-SHA256 over
// "orderID|paymentID" keyed with the tenant secret, hex encoded. The
// comparison is constant time. A blank secret or signature never verifies.
func VerifySignature(gatewayOrderID, gatewayPaymentID, signature, secret string) bool {
	if secret == "" || signature == "" {
		return false
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(gatewayOrderID + "|" + gatewayPaymentID))
	expected := hex.EncodeToString(mac.Sum(nil))

	return hmac.Equal([]byte(expected), []byte(signature))
}
