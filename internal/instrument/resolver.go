// Package instrument maps ticker symbols to instrument metadata: asset
// class, price rounding precision, and order-type policy.
package instrument

import (
	"strings"

	"alerter/internal/domain"
)

// Resolver is a pure lookup table of instrument specs. It holds no mutable
// state and is safe to share across accounts.
type Resolver struct {
	specs map[string]domain.InstrumentSpec
}

// NewResolver builds the static spec table.
func NewResolver() *Resolver {
	r := &Resolver{specs: make(map[string]domain.InstrumentSpec)}

	add := func(class domain.AssetClass, precision float64, symbols ...string) {
		for _, sym := range symbols {
			r.specs[sym] = domain.InstrumentSpec{
				Symbol:         sym,
				Class:          class,
				RoundPrecision: precision,
				Policy:         domain.PolicyLimitOrder,
			}
		}
	}

	// Index futures. ES/NQ tick in quarter points.
	add(domain.AssetFuture, 4, "ES", "NQ", "MES", "MNQ", "YM", "ZN", "HE")
	add(domain.AssetFuture, 10, "RTY", "CL", "NG", "GC", "SI", "HG", "MGC", "MSI", "MHG")
	add(domain.AssetFuture, 100, "DX")

	// CME micro forex futures.
	add(domain.AssetForexFuture, 10000, "M6E", "M6A", "M6B", "MJY", "MSF", "MIR", "MNH", "MCD")

	// Cash indices.
	add(domain.AssetIndex, 100, "SPX", "NDX", "VIX")

	return r
}

// Resolve returns the spec for symbol, falling back to a default US equity
// spec (cent rounding, limit orders) for anything not in the table. A
// TradingView-style "1!" continuous-contract suffix is stripped first.
func (r *Resolver) Resolve(symbol string) domain.InstrumentSpec {
	sym := strings.ToUpper(strings.TrimSuffix(symbol, "1!"))
	if spec, ok := r.specs[sym]; ok {
		return spec
	}
	return domain.InstrumentSpec{
		Symbol:         sym,
		Class:          domain.AssetEquity,
		RoundPrecision: 100,
		Policy:         domain.PolicyLimitOrder,
	}
}

// Normalize strips the continuous-contract suffix and upper-cases the symbol.
func Normalize(symbol string) string {
	return strings.ToUpper(strings.TrimSuffix(symbol, "1!"))
}
