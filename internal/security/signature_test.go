package security

import (
	"errors"
	"testing"
)

func TestVerifyRoundTrip(t *testing.T) {
	v := NewVerifier("topsecret")
	body := []byte(`{"ticker":"BTCUSDT"}`)

	if err := v.Verify(body, v.Sign(body)); err != nil {
		t.Fatalf("valid signature rejected: %v", err)
	}
}

func TestVerifyFailures(t *testing.T) {
	v := NewVerifier("topsecret")
	body := []byte("payload")

	cases := []struct {
		name      string
		verifier  *Verifier
		signature string
		reason    error
	}{
		{"missing signature", v, "", ErrMissingSignature},
		{"no secret", NewVerifier(""), "deadbeef", ErrNoSecret},
		{"tampered body", v, NewVerifier("topsecret").Sign([]byte("other")), ErrMismatch},
		{"wrong secret", v, NewVerifier("othersecret").Sign(body), ErrMismatch},
	}

	for _, tc := range cases {
		err := tc.verifier.Verify(body, tc.signature)
		if err == nil {
			t.Errorf("%s: expected error", tc.name)
			continue
		}
		var serr *SignatureError
		if !errors.As(err, &serr) {
			t.Errorf("%s: expected *SignatureError, got %T", tc.name, err)
			continue
		}
		if !errors.Is(err, tc.reason) {
			t.Errorf("%s: reason = %v, want %v", tc.name, serr.Reason, tc.reason)
		}
	}
}
