package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"strings"
)

// SignaturePrefix is accepted in front of the hex digest for senders that use
// the "sha256=<hex>" form.
const SignaturePrefix = "sha256="

// HMACValidator is the default validator: HMAC-SHA256 over the raw body, hex
// encoded, compared in constant time.
type HMACValidator struct{}

// Verify implements SignatureValidator.
func (HMACValidator) Verify(header http.Header, body []byte, secret, headerName string) bool {
	if secret == "" || headerName == "" {
		return false
	}
	signature := strings.TrimSpace(header.Get(headerName))
	if signature == "" {
		return false
	}
	signature = strings.TrimPrefix(signature, SignaturePrefix)

	expectedMAC := Sign(body, secret)

	return hmac.Equal([]byte(expectedMAC), []byte(strings.ToLower(signature)))
}

// Sign returns the lowercase hex HMAC-SHA256 of payload.
func Sign(payload []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}
