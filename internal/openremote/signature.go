package openremote

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
)

// VerifySignature checks a hex HMAC-SHA256 of body under secret. The
// signature may carry a "sha256=" prefix.
func VerifySignature(secret, body []byte, signature string) error {
	if len(secret) == 0 {
		return errors.New("signature: secret is empty")
	}
	if signature == "" {
		return errors.New("signature: missing")
	}

	got, err := hex.DecodeString(strings.TrimPrefix(signature, "sha256="))
	if err != nil {
		return fmt.Errorf("signature: invalid hex: %w", err)
	}

	if subtle.ConstantTimeCompare(Sign(secret, body), got) != 1 {
		return errors.New("signature: mismatch")
	}
	return nil
}

// Sign returns the raw HMAC-SHA256 of body under secret.
func Sign(secret, body []byte) []byte {
	mac := hmac.New(sha256.New, secret)
	mac.Write(body)
	return mac.Sum(nil)
}
