// Package channel is the LINE side of the bot: webhook verification and
// decoding, the HTTP handler, and the reply and media clients.
package channel

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"

	"linenote/internal/domain"
)

// SignatureHeader carries the base64 HMAC-SHA256 of the request body.
const SignatureHeader = "X-Line-Signature"

// Sign computes the signature LINE would send for body.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// VerifySignature checks signature against body. Every failure returns
// domain.ErrAuthentication.
func VerifySignature(secret string, body []byte, signature string) error {
	if signature == "" || secret == "" {
		return domain.ErrAuthentication
	}
	got, err := base64.StdEncoding.DecodeString(signature)
	if err != nil {
		return domain.ErrAuthentication
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	if !hmac.Equal(mac.Sum(nil), got) {
		return domain.ErrAuthentication
	}
	return nil
}
