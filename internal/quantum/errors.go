package quantum

import "errors"

var (
	// ErrInvalidQubitIndex is returned when a gate names a qubit outside the
	// register. It signals a bug in whoever built the gate and is never retried.
	ErrInvalidQubitIndex = errors.New("invalid qubit index")

	// ErrInvalidConfiguration is returned for non-positive qubit or shot
	// counts before any simulation work starts.
	ErrInvalidConfiguration = errors.New("invalid configuration")
)
