// Package sizing resolves message tiers to per-account contract counts and
// computes the maximum allowed fill price for an alert.
package sizing

import "alerter/internal/domain"

// Policy holds one account's contract-count tiers and fill allowance,
// sourced from configuration and immutable for the run.
type Policy struct {
	Light   int
	Regular int
	Lotto   int
	// MaxFillAllowancePct is the permitted fraction above the alerted fill
	// price before an order is refused, e.g. 0.15.
	MaxFillAllowancePct float64
	// UseOptions gates the account: when false the dispatcher skips it
	// entirely.
	UseOptions bool
}

// Contracts maps a sizing tier to this account's contract count. The
// default tier uses the regular count. A result of 0 means "skip this
// account", not an error.
func (p Policy) Contracts(tier domain.SizingTier) int {
	switch tier {
	case domain.TierLight:
		return p.Light
	case domain.TierLotto:
		return p.Lotto
	case domain.TierRegular, domain.TierDefault:
		return p.Regular
	}
	return p.Regular
}

// MaxFill computes the fill-price ceiling: the expected fill marked up by
// the allowance percentage, rounded to the instrument's tick.
func (p Policy) MaxFill(expectedFill, roundPrecision float64) float64 {
	return domain.RoundTo(expectedFill*(1+p.MaxFillAllowancePct), roundPrecision)
}
