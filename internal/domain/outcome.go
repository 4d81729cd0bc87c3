package domain

import "time"

// OutcomeStatus classifies the result of processing one message for one
// account.
type OutcomeStatus string

const (
	// OutcomeFilled — the order reached Filled.
	OutcomeFilled OutcomeStatus = "filled"
	// OutcomeNoOrderNeeded — live position already matched the target.
	OutcomeNoOrderNeeded OutcomeStatus = "no_order_needed"
	// OutcomeSkippedDisabled — the account has options trading disabled.
	OutcomeSkippedDisabled OutcomeStatus = "skipped_disabled"
	// OutcomeSkippedZeroSize — the resolved tier maps to 0 contracts.
	OutcomeSkippedZeroSize OutcomeStatus = "skipped_zero_size"
	// OutcomeParseIncomplete — a required intent field was missing.
	OutcomeParseIncomplete OutcomeStatus = "parse_incomplete"
	// OutcomePolicyViolation — the computed limit exceeded the fill ceiling.
	OutcomePolicyViolation OutcomeStatus = "policy_violation"
	// OutcomeFailed — broker connection failure or a non-filled terminal
	// order status.
	OutcomeFailed OutcomeStatus = "failed"
)

// Outcome is the per-account result of one dispatched message. Failures for
// one account never prevent other accounts from being attempted, so a
// dispatch pass yields one Outcome per enabled account.
type Outcome struct {
	Account   string
	Status    OutcomeStatus
	Intent    TradeIntent
	Contracts int
	MaxFill   float64
	OrderID   string
	Err       error
	At        time.Time
}
