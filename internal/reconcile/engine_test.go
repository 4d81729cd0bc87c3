package reconcile

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"alerter/internal/broker"
	"alerter/internal/domain"
	"alerter/internal/instrument"
	"alerter/internal/quote"
)

var testExpiry = time.Date(2023, time.April, 10, 0, 0, 0, 0, time.UTC)

// newTestEngine returns an engine whose Sleep is a no-op counter.
func newTestEngine(t *testing.T) (*Engine, *int) {
	t.Helper()
	sleeps := 0
	e := New(instrument.NewResolver(), quote.NewCache(quote.DefaultTTL, nil))
	e.Sleep = func(_ context.Context, _ time.Duration) error {
		sleeps++
		return nil
	}
	return e, &sleeps
}

func hasCall(d *broker.SimulatorDriver, prefix string) bool {
	for _, c := range d.Calls {
		if strings.HasPrefix(c, prefix) {
			return true
		}
	}
	return false
}

func TestReconcileNoOrderNeeded(t *testing.T) {
	e, _ := newTestEngine(t)
	drv := broker.NewSimulatorDriver()

	occ := domain.OptionSymbol("SPX", testExpiry, 4105, domain.Put)
	drv.Positions[occ] = 2

	attempt, err := e.Reconcile(context.Background(), Request{
		Symbol:         "SPX",
		Expiry:         testExpiry,
		Strike:         4105,
		PutCall:        domain.Put,
		TargetPosition: 2,
	}, drv)
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if attempt != nil {
		t.Errorf("attempt = %+v, want nil for position already at target", attempt)
	}
	if hasCall(drv, "submit_order") {
		t.Error("no order should be submitted when delta is zero")
	}
}

func TestReconcileFill(t *testing.T) {
	e, sleeps := newTestEngine(t)
	drv := broker.NewSimulatorDriver()

	occ := domain.OptionSymbol("SPX", testExpiry, 4105, domain.Put)
	drv.Prices[occ] = 4.20
	drv.StatusScript = []domain.OrderStatus{
		domain.OrderSubmitted,
		domain.OrderPartiallyFilled,
		domain.OrderPartiallyFilled,
		domain.OrderFilled,
	}

	attempt, err := e.Reconcile(context.Background(), Request{
		Symbol:         "SPX",
		Expiry:         testExpiry,
		Strike:         4105,
		PutCall:        domain.Put,
		TargetPosition: 2,
		MaxPrice:       4.83,
	}, drv)
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if attempt.Status != domain.OrderFilled {
		t.Errorf("Status = %q, want filled", attempt.Status)
	}
	if attempt.Side != domain.SideBuy || attempt.Quantity != 2 {
		t.Errorf("order = %s x%d, want buy x2", attempt.Side, attempt.Quantity)
	}
	// 4.20 * 1.005 = 4.221, cent rounding.
	if attempt.LimitPrice != 4.22 {
		t.Errorf("LimitPrice = %g, want 4.22", attempt.LimitPrice)
	}
	if len(drv.Orders) != 1 {
		t.Fatalf("orders submitted = %d, want 1", len(drv.Orders))
	}
	if got := drv.Orders[0]; got.Symbol != occ || !got.ExtendedHours {
		t.Errorf("OrderRequest = %+v, want extended-hours order on %s", got, occ)
	}
	// Three non-terminal statuses before the fill, one sleep after each.
	if *sleeps != 3 {
		t.Errorf("sleeps = %d, want 3", *sleeps)
	}
}

func TestReconcileTimeout(t *testing.T) {
	e, _ := newTestEngine(t)
	drv := broker.NewSimulatorDriver()
	drv.Limit = 3

	drv.Prices["SPY"] = 400
	drv.StatusScript = []domain.OrderStatus{domain.OrderSubmitted}

	attempt, err := e.Reconcile(context.Background(), Request{
		Symbol:         "SPY",
		TargetPosition: 1,
	}, drv)
	if err == nil {
		t.Fatal("expected NotFilledError on poll exhaustion")
	}
	var nf *NotFilledError
	if !errors.As(err, &nf) {
		t.Fatalf("error type = %T, want *NotFilledError", err)
	}
	if nf.Status != domain.OrderTimedOut {
		t.Errorf("Status = %q, want timed_out", nf.Status)
	}
	if attempt == nil || attempt.Status != domain.OrderTimedOut {
		t.Errorf("attempt = %+v, want timed_out attempt returned", attempt)
	}
}

func TestReconcileCancelledOrder(t *testing.T) {
	e, _ := newTestEngine(t)
	drv := broker.NewSimulatorDriver()

	drv.Prices["SPY"] = 400
	drv.StatusScript = []domain.OrderStatus{
		domain.OrderSubmitted,
		domain.OrderCancelled,
	}

	_, err := e.Reconcile(context.Background(), Request{
		Symbol:         "SPY",
		TargetPosition: 1,
	}, drv)
	var nf *NotFilledError
	if !errors.As(err, &nf) {
		t.Fatalf("error = %v, want *NotFilledError", err)
	}
	if nf.Status != domain.OrderCancelled {
		t.Errorf("Status = %q, want cancelled", nf.Status)
	}
}

func TestReconcilePolicyViolation(t *testing.T) {
	e, _ := newTestEngine(t)
	drv := broker.NewSimulatorDriver()

	occ := domain.OptionSymbol("SPY", testExpiry, 408, domain.Put)
	drv.Prices[occ] = 10 // limit 10.05, above the 10.00 ceiling

	_, err := e.Reconcile(context.Background(), Request{
		Symbol:         "SPY",
		Expiry:         testExpiry,
		Strike:         408,
		PutCall:        domain.Put,
		TargetPosition: 1,
		MaxPrice:       10.00,
	}, drv)
	var pv *PolicyViolationError
	if !errors.As(err, &pv) {
		t.Fatalf("error = %v, want *PolicyViolationError", err)
	}
	if pv.Limit != 10.05 || pv.Ceiling != 10.00 {
		t.Errorf("violation = limit %g ceiling %g, want 10.05 / 10", pv.Limit, pv.Ceiling)
	}
	if hasCall(drv, "submit_order") {
		t.Error("violating order must not reach the broker")
	}
}

func TestReconcileSellUsesLowCollar(t *testing.T) {
	e, _ := newTestEngine(t)
	drv := broker.NewSimulatorDriver()

	drv.Positions["SPY"] = 2
	drv.Prices["SPY"] = 400
	drv.StatusScript = []domain.OrderStatus{domain.OrderFilled}

	attempt, err := e.Reconcile(context.Background(), Request{
		Symbol:         "SPY",
		TargetPosition: 0,
	}, drv)
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if attempt.Side != domain.SideSell || attempt.Quantity != 2 {
		t.Errorf("order = %s x%d, want sell x2", attempt.Side, attempt.Quantity)
	}
	// 400 * 0.995 = 398.
	if attempt.LimitPrice != 398 {
		t.Errorf("LimitPrice = %g, want 398", attempt.LimitPrice)
	}
}

func TestReconcileQuoteCacheReuse(t *testing.T) {
	e, _ := newTestEngine(t)
	drv := broker.NewSimulatorDriver()

	e.Quotes.Put("SPY", 400)
	drv.StatusScript = []domain.OrderStatus{domain.OrderFilled}

	attempt, err := e.Reconcile(context.Background(), Request{
		Symbol:         "SPY",
		TargetPosition: 1,
	}, drv)
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if attempt.LimitPrice != 402 {
		t.Errorf("LimitPrice = %g, want 402", attempt.LimitPrice)
	}
	if hasCall(drv, "get_price") {
		t.Error("fresh cached quote should skip the driver price call")
	}
}

// marketResolver forces the market-order policy regardless of symbol.
type marketResolver struct{}

func (marketResolver) Resolve(symbol string) domain.InstrumentSpec {
	return domain.InstrumentSpec{
		Symbol:         symbol,
		Class:          domain.AssetEquity,
		Policy:         domain.PolicyMarketOrder,
		RoundPrecision: 100,
	}
}

func TestReconcileMarketPolicySkipsQuote(t *testing.T) {
	e, _ := newTestEngine(t)
	e.Resolver = marketResolver{}
	drv := broker.NewSimulatorDriver()

	drv.StatusScript = []domain.OrderStatus{domain.OrderFilled}

	attempt, err := e.Reconcile(context.Background(), Request{
		Symbol:         "SPY",
		TargetPosition: 1,
	}, drv)
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if attempt.LimitPrice != 0 {
		t.Errorf("LimitPrice = %g, want 0 for market order", attempt.LimitPrice)
	}
	if hasCall(drv, "get_price") {
		t.Error("market-policy order should not quote the symbol")
	}
}
