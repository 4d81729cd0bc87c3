package intent

import (
	"fmt"
	"strings"

	"alerter/internal/domain"
)

// IncompleteIntentError reports which required fields a parsed message
// failed to provide. It is recovered locally by the dispatcher: the
// affected account is skipped, no order is attempted.
type IncompleteIntentError struct {
	Missing []string
}

func (e *IncompleteIntentError) Error() string {
	return fmt.Sprintf("incomplete trade intent: missing %s", strings.Join(e.Missing, ", "))
}

// CheckActionable returns an IncompleteIntentError when ti cannot be turned
// into an order, nil otherwise.
func CheckActionable(ti domain.TradeIntent) error {
	if ti.Actionable() {
		return nil
	}
	return &IncompleteIntentError{Missing: ti.MissingFields()}
}
