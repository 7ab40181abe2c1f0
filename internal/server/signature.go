package server

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// SignatureHeader carries the hex HMAC-SHA256 of the raw request body.
const SignatureHeader = "X-Signature"

// verifySignature recomputes the digest over the raw body and compares it to
// the presented hex signature in constant time.
func verifySignature(secret, body []byte, presented string) bool {
	if len(secret) == 0 || presented == "" {
		return false
	}
	decoded, err := hex.DecodeString(presented)
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, secret)
	mac.Write(body)
	return hmac.Equal(mac.Sum(nil), decoded)
}
