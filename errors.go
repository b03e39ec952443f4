package escrow

import (
	"errors"
	"fmt"
)

var (
	ErrNoPaymentMethods = errors.New("no payment methods offered")
	ErrNoDestination    = errors.New("no payment destination")
	ErrNotFound         = errors.New("not found")
	ErrProvisionFailed  = errors.New("channel provision failed")
)

// TransportError marks a network-level failure (dial, timeout) on an
// outbound call. Invoice creation is not idempotent on the gateway
// side, so callers must not retry it on this error.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport failure on %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// GatewayError is a non-2xx response from the payment gateway. Body is
// kept verbatim for diagnostics.
type GatewayError struct {
	StatusCode int
	Body       string
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("gateway rejected request: status %d: %s", e.StatusCode, e.Body)
}

func IsTransport(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}

func IsGatewayRejected(err error) bool {
	var ge *GatewayError
	return errors.As(err, &ge)
}
