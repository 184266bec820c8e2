// Package sign implements the webhook signature scheme: HMAC-SHA256 over the
// exact request body, carried in X-Webhook-Signature as
// "sha256=<lowercase hex>".
package sign

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Prefix is the literal header-value prefix before the hex digest.
const Prefix = "sha256="

// Sign computes the signature header value for body under secret. The secret
// is used as UTF-8 bytes.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return Prefix + hex.EncodeToString(mac.Sum(nil))
}

// Verify reports whether header is a valid signature for body under secret.
// The comparison is constant time.
func Verify(secret string, body []byte, header string) bool {
	if !strings.HasPrefix(header, Prefix) {
		return false
	}
	got, err := hex.DecodeString(strings.TrimPrefix(header, Prefix))
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hmac.Equal(mac.Sum(nil), got)
}
