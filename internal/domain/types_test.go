package domain

import (
	"testing"
	"time"
)

func TestRoundTo(t *testing.T) {
	tests := []struct {
		price     float64
		precision float64
		want      float64
	}{
		{4.221, 100, 4.22},   // cents
		{4.8299, 100, 4.83},  // cents, round up
		{4105.3, 4, 4105.25}, // quarter points
		{82.063, 10, 82.1},   // tenths
		{105.126, 0, 105.126}, // zero precision passes through
	}
	for _, tt := range tests {
		if got := RoundTo(tt.price, tt.precision); got != tt.want {
			t.Errorf("RoundTo(%g, %g) = %g, want %g", tt.price, tt.precision, got, tt.want)
		}
	}
}

func TestOptionSymbol(t *testing.T) {
	expiry := time.Date(2023, time.April, 13, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		underlying string
		strike     float64
		pc         PutCall
		want       string
	}{
		{"SPX", 4105, Put, "SPX230413P04105000"},
		{"spy", 408, Call, "SPY230413C00408000"},
		{"AAPL", 162.5, Call, "AAPL230413C00162500"},
	}
	for _, tt := range tests {
		if got := OptionSymbol(tt.underlying, expiry, tt.strike, tt.pc); got != tt.want {
			t.Errorf("OptionSymbol(%s, %g, %s) = %q, want %q", tt.underlying, tt.strike, tt.pc, got, tt.want)
		}
	}
}

func TestOrderStatusTerminal(t *testing.T) {
	terminal := []OrderStatus{OrderFilled, OrderCancelled, OrderTimedOut}
	for _, s := range terminal {
		if !s.Terminal() {
			t.Errorf("%q.Terminal() = false, want true", s)
		}
	}
	for _, s := range []OrderStatus{OrderSubmitted, OrderPartiallyFilled} {
		if s.Terminal() {
			t.Errorf("%q.Terminal() = true, want false", s)
		}
	}
}

func TestTradeIntentActionable(t *testing.T) {
	strike := 4105.0

	full := TradeIntent{Symbol: "SPX", Strike: &strike, PutCall: Put}
	if !full.Actionable() {
		t.Error("intent with symbol, strike, put_call should be actionable")
	}
	if missing := full.MissingFields(); len(missing) != 0 {
		t.Errorf("MissingFields = %v, want none", missing)
	}

	partial := TradeIntent{Symbol: "SPX"}
	if partial.Actionable() {
		t.Error("intent without strike should not be actionable")
	}
	missing := partial.MissingFields()
	if len(missing) != 2 || missing[0] != "strike" || missing[1] != "put_call" {
		t.Errorf("MissingFields = %v, want [strike put_call]", missing)
	}
}
