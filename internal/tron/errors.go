package tron

import (
	"errors"
	"fmt"
)

var (
	// ErrAddressNotFound means the address is well formed but has no account on chain.
	ErrAddressNotFound = errors.New("address not found")

	// ErrBadAddress means the address fails TRON address validation.
	ErrBadAddress = errors.New("bad address")
)

// UpstreamError wraps a transport or protocol failure talking to the node.
type UpstreamError struct {
	Op  string
	Err error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("tron %s: %v", e.Op, e.Err)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}
