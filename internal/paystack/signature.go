package paystack

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
)

// SignatureHeader is the HTTP header Paystack signs webhook deliveries with.
const SignatureHeader = "x-paystack-signature"

// VerifySignature reports whether signature is the hex HMAC-SHA512 digest of
// body under secret. It must be given the exact raw request bytes: hashing a
// re-serialized form breaks verification on whitespace and key ordering.
// The comparison is constant-time to avoid leaking a signature oracle.
func VerifySignature(body []byte, signature, secret string) bool {
	mac := hmac.New(sha512.New, []byte(secret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}
