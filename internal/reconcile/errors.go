package reconcile

import (
	"fmt"

	"alerter/internal/domain"
)

// PolicyViolationError means the computed limit price exceeded the
// configured maximum fill ceiling. The order is never submitted; the
// violation is recovered locally.
type PolicyViolationError struct {
	Symbol  string
	Limit   float64
	Ceiling float64
}

func (e *PolicyViolationError) Error() string {
	return fmt.Sprintf("%s: limit price %.4f exceeds max fill %.4f", e.Symbol, e.Limit, e.Ceiling)
}

// NotFilledError reports a terminal order status other than Filled after
// polling. It carries the requested delta and the final broker-reported
// status; the dispatcher adds the account context. Never retried
// automatically.
type NotFilledError struct {
	Symbol string
	Delta  int
	Status domain.OrderStatus
}

func (e *NotFilledError) Error() string {
	return fmt.Sprintf("order for %s (delta %+d) ended %s without filling", e.Symbol, e.Delta, e.Status)
}
