// Package security implements HMAC signing of webhook bodies.
package security

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
)

var (
	// ErrMissingSignature indicates the request carried no signature header.
	ErrMissingSignature = errors.New("missing signature")
	// ErrNoSecret indicates the shared secret is not configured.
	ErrNoSecret = errors.New("webhook secret not configured")
	// ErrMismatch indicates the computed digest does not match.
	ErrMismatch = errors.New("signature mismatch")
)

// SignatureError wraps a signature verification failure.
type SignatureError struct {
	Reason error
}

func (e *SignatureError) Error() string {
	return fmt.Sprintf("signature verification failed: %v", e.Reason)
}

func (e *SignatureError) Unwrap() error { return e.Reason }

// Verifier checks hex-encoded HMAC-SHA256 signatures against a shared
// secret.
type Verifier struct {
	secret []byte
}

// NewVerifier constructs a Verifier for the given shared secret.
func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: []byte(secret)}
}

// Verify compares the provided signature against the HMAC-SHA256 digest
// of body under constant-time comparison.
func (v *Verifier) Verify(body []byte, signature string) error {
	if signature == "" {
		return &SignatureError{Reason: ErrMissingSignature}
	}
	if len(v.secret) == 0 {
		return &SignatureError{Reason: ErrNoSecret}
	}
	if !hmac.Equal([]byte(v.Sign(body)), []byte(signature)) {
		return &SignatureError{Reason: ErrMismatch}
	}
	return nil
}

// Sign returns the hex-encoded HMAC-SHA256 digest of body. Used to
// produce valid signatures for outbound test requests.
func (v *Verifier) Sign(body []byte) string {
	mac := hmac.New(sha256.New, v.secret)
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}
