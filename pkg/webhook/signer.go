package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"time"
)

// SignatureHeader carries the event signature.
const SignatureHeader = "X-Storefront-Signature"

// HMACSigner signs payloads as
//
//	X-Storefront-Signature: t={timestamp},v1={signature}
//
// where signature = hex(HMAC-SHA256(secret, "{timestamp}.{payload}")).
type HMACSigner struct {
	now func() time.Time
}

// NewHMACSigner creates a signer stamped with wall-clock time.
func NewHMACSigner() *HMACSigner {
	return &HMACSigner{now: time.Now}
}

func (s *HMACSigner) Sign(payload []byte, secret string) map[string]string {
	return s.SignWithTimestamp(payload, secret, s.now().Unix())
}

// SignWithTimestamp signs with a fixed timestamp.
func (s *HMACSigner) SignWithTimestamp(payload []byte, secret string, timestamp int64) map[string]string {
	sig := ComputeSignature(timestamp, payload, secret)
	return map[string]string{
		SignatureHeader: fmt.Sprintf("t=%d,v1=%s", timestamp, sig),
	}
}

// ComputeSignature returns the hex HMAC-SHA256 of "{timestamp}.{payload}".
func ComputeSignature(timestamp int64, payload []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(strconv.FormatInt(timestamp, 10)))
	mac.Write([]byte("."))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}
