package broker

import (
	"errors"
	"fmt"
)

// ErrUnknownDriver is returned by the factory when configuration references
// an unsupported broker. It is fatal for that account only.
var ErrUnknownDriver = errors.New("unknown broker driver")

// ConnectionError wraps a failure to establish or reuse a brokerage
// session. It aborts only the affected account's processing.
type ConnectionError struct {
	Driver string
	Err    error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("%s: connection failed: %v", e.Driver, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }
