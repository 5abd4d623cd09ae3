package telegram

import "fmt"

// FailureKind classifies how a delivery attempt (or the whole send)
// failed.
type FailureKind string

const (
	// KindRateLimited means the remote reported HTTP 429 and retries ran out.
	KindRateLimited FailureKind = "rate_limited"
	// KindTimeout means the final attempt exceeded the request timeout.
	KindTimeout FailureKind = "timeout"
	// KindTransport means the final attempt failed below HTTP (DNS, conn reset).
	KindTransport FailureKind = "transport"
	// KindRemoteRejected means the remote answered with a non-retryable error.
	KindRemoteRejected FailureKind = "remote_rejected"
	// KindExhausted means every attempt failed without a clearer cause.
	KindExhausted FailureKind = "exhausted"
)

// DeliveryError is the terminal failure of a send after all retries
// are spent.
type DeliveryError struct {
	Kind     FailureKind
	Attempts int
	Err      error
}

func (e *DeliveryError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("delivery failed (%s) after %d attempt(s): %v", e.Kind, e.Attempts, e.Err)
	}
	return fmt.Sprintf("delivery failed (%s) after %d attempt(s)", e.Kind, e.Attempts)
}

func (e *DeliveryError) Unwrap() error { return e.Err }
