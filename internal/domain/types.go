// Package domain defines the shared types that flow between the parser,
// sizing policy, reconciliation engine, and broker drivers.
package domain

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// ---------------------------------------------------------------------------
// Enums
// ---------------------------------------------------------------------------

// PutCall identifies the option right.
type PutCall string

const (
	Call PutCall = "C"
	Put  PutCall = "P"
)

// SizingTier names a contract-count preset selectable per message.
type SizingTier string

const (
	TierDefault SizingTier = "default"
	TierLight   SizingTier = "light"
	TierRegular SizingTier = "regular"
	TierLotto   SizingTier = "lotto"
)

// AssetClass classifies an instrument for routing and rounding purposes.
type AssetClass string

const (
	AssetEquity      AssetClass = "equity"
	AssetIndex       AssetClass = "index"
	AssetFuture      AssetClass = "future"
	AssetForexFuture AssetClass = "forex_future"
)

// OrderPolicy selects how orders for an instrument are priced.
type OrderPolicy string

const (
	PolicyMarketOrder OrderPolicy = "market"
	PolicyLimitOrder  OrderPolicy = "limit"
)

// Side is the direction of an order.
type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

// OrderStatus is the lifecycle state of an order attempt. An attempt is
// terminal once its status is Filled, Cancelled, or TimedOut.
type OrderStatus string

const (
	OrderSubmitted       OrderStatus = "submitted"
	OrderPartiallyFilled OrderStatus = "partially_filled"
	OrderFilled          OrderStatus = "filled"
	OrderCancelled       OrderStatus = "cancelled"
	OrderTimedOut        OrderStatus = "timed_out"
)

// Terminal reports whether no further polling should occur for s.
func (s OrderStatus) Terminal() bool {
	switch s {
	case OrderFilled, OrderCancelled, OrderTimedOut:
		return true
	}
	return false
}

// ---------------------------------------------------------------------------
// Trade intent
// ---------------------------------------------------------------------------

// TradeIntent is the structured interpretation of a free-text alert message.
// Pointer fields are nil until a token sets them.
type TradeIntent struct {
	Symbol       string
	Strike       *float64
	PutCall      PutCall
	Expiry       time.Time
	ExpectedFill *float64
	Tier         SizingTier
}

// Actionable reports whether the intent carries enough information to be
// turned into an order: symbol, strike, and put/call must all be set.
func (ti TradeIntent) Actionable() bool {
	return ti.Symbol != "" && ti.Strike != nil && ti.PutCall != ""
}

// MissingFields lists the required fields still unset, for error reporting.
func (ti TradeIntent) MissingFields() []string {
	var missing []string
	if ti.Symbol == "" {
		missing = append(missing, "symbol")
	}
	if ti.Strike == nil {
		missing = append(missing, "strike")
	}
	if ti.PutCall == "" {
		missing = append(missing, "put_call")
	}
	return missing
}

// String renders the intent in the one-line summary form printed after each
// parsed message.
func (ti TradeIntent) String() string {
	strike := "nil"
	if ti.Strike != nil {
		strike = fmt.Sprintf("%g", *ti.Strike)
	}
	fill := "nil"
	if ti.ExpectedFill != nil {
		fill = fmt.Sprintf("%g", *ti.ExpectedFill)
	}
	pc := "nil"
	if ti.PutCall != "" {
		pc = string(ti.PutCall)
	}
	return fmt.Sprintf("symbol=%s strike=%s put_call=%s expiry=%s expected_fill=%s",
		ti.Symbol, strike, pc, ti.Expiry.Format("2006-01-02"), fill)
}

// ---------------------------------------------------------------------------
// Instruments
// ---------------------------------------------------------------------------

// InstrumentSpec holds per-symbol metadata: asset class, tick rounding, and
// order-type policy. Specs are immutable and looked up by symbol.
type InstrumentSpec struct {
	Symbol         string
	Class          AssetClass
	RoundPrecision float64 // ticks per unit; prices round to nearest 1/RoundPrecision
	Policy         OrderPolicy
}

// RoundTo rounds price to the nearest 1/precision. A precision of 100 rounds
// to cents; 4 rounds to quarter points (ES/NQ ticks).
func RoundTo(price, precision float64) float64 {
	if precision <= 0 {
		return price
	}
	return math.Round(price*precision) / precision
}

// OptionSymbol builds the OCC-style contract symbol used for option position
// lookups and order routing, e.g. SPX 4105 P 2023-04-13 -> SPX230413P04105000.
func OptionSymbol(underlying string, expiry time.Time, strike float64, pc PutCall) string {
	return fmt.Sprintf("%s%s%s%08d",
		strings.ToUpper(underlying),
		expiry.Format("060102"),
		pc,
		int64(math.Round(strike*1000)))
}

// ---------------------------------------------------------------------------
// Orders
// ---------------------------------------------------------------------------

// OrderAttempt tracks a single submitted order from submission to a terminal
// status. It is exclusively owned by one reconciliation call and mutated only
// by polled broker reads.
type OrderAttempt struct {
	BrokerOrderID string
	Symbol        string
	Side          Side
	Quantity      int
	LimitPrice    float64 // 0 means market order
	Status        OrderStatus
	SubmittedAt   time.Time
}

// Bar is one OHLCV daily bar, persisted by the backfill store.
type Bar struct {
	Symbol     string
	Timestamp  time.Time
	Open       float64
	High       float64
	Low        float64
	Close      float64
	Volume     int64
	TradeCount int64
	VWAP       float64
}
