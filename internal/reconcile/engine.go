// Package reconcile implements the position reconciliation engine: given a
// target absolute position it computes the required order, submits it
// through a broker driver, and polls until a terminal status.
package reconcile

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"alerter/internal/broker"
	"alerter/internal/domain"
	"alerter/internal/instrument"
	"alerter/internal/quote"
)

// Limit-price collars around the quoted price: buys pay slightly above to
// guarantee a fill, sells accept slightly below.
const (
	highLimitFactor = 1.005
	lowLimitFactor  = 0.995
)

// Request describes one desired position. A non-empty PutCall makes this an
// option reconciliation, tracked under the OCC contract symbol; option
// contracts are only ever bought in this design.
type Request struct {
	Symbol         string
	Expiry         time.Time
	Strike         float64
	PutCall        domain.PutCall
	TargetPosition int
	// MaxPrice, when positive, is a ceiling on the computed limit price;
	// exceeding it is a policy violation, not a broker error.
	MaxPrice float64
}

// OrderSymbol returns the symbol the position and order are tracked under.
func (r Request) OrderSymbol() string {
	if r.PutCall != "" {
		return domain.OptionSymbol(r.Symbol, r.Expiry, r.Strike, r.PutCall)
	}
	return instrument.Normalize(r.Symbol)
}

// SpecResolver looks up instrument metadata. Satisfied by
// instrument.Resolver.
type SpecResolver interface {
	Resolve(symbol string) domain.InstrumentSpec
}

// Engine reconciles desired positions against live broker state. Sleep and
// Interval are injectable so tests can simulate status transitions without
// wall-clock delay.
type Engine struct {
	Resolver SpecResolver
	Quotes   *quote.Cache
	Interval time.Duration
	Sleep    func(ctx context.Context, d time.Duration) error
	Log      *slog.Logger
}

// New creates an Engine with the production 1-second poll interval.
func New(resolver SpecResolver, quotes *quote.Cache) *Engine {
	return &Engine{
		Resolver: resolver,
		Quotes:   quotes,
		Interval: time.Second,
		Sleep:    ctxSleep,
		Log:      slog.Default().With("component", "reconcile"),
	}
}

// Reconcile drives one request to a terminal state. A (nil, nil) return
// means no order was needed: the live position already matched the target.
// On a non-filled terminal status the attempt is returned alongside a
// NotFilledError; the engine never retries and never cancels the order, it
// only stops waiting.
func (e *Engine) Reconcile(ctx context.Context, req Request, drv broker.Driver) (*domain.OrderAttempt, error) {
	orderSym := req.OrderSymbol()

	current, err := drv.GetPositionSize(ctx, orderSym)
	if err != nil {
		return nil, fmt.Errorf("reading position for %s: %w", orderSym, err)
	}

	delta := req.TargetPosition - current
	if delta == 0 {
		e.Log.Info("position already at target", "symbol", orderSym, "target", req.TargetPosition)
		return nil, nil
	}

	side := domain.SideBuy
	if delta < 0 {
		side = domain.SideSell
	}
	qty := delta
	if qty < 0 {
		qty = -qty
	}

	spec := e.Resolver.Resolve(req.Symbol)
	limit := 0.0
	if spec.Policy == domain.PolicyLimitOrder {
		price, err := e.currentPrice(ctx, req, orderSym, drv)
		if err != nil {
			return nil, err
		}
		if side == domain.SideBuy {
			limit = domain.RoundTo(price*highLimitFactor, spec.RoundPrecision)
		} else {
			limit = domain.RoundTo(price*lowLimitFactor, spec.RoundPrecision)
		}
		if req.MaxPrice > 0 && limit > req.MaxPrice {
			return nil, &PolicyViolationError{
				Symbol:  orderSym,
				Limit:   limit,
				Ceiling: req.MaxPrice,
			}
		}
	}

	orderID, err := drv.SubmitOrder(ctx, broker.OrderRequest{
		Symbol:        orderSym,
		Side:          side,
		Quantity:      qty,
		LimitPrice:    limit,
		ExtendedHours: true,
	})
	if err != nil {
		return nil, fmt.Errorf("submitting order for %s: %w", orderSym, err)
	}

	attempt := &domain.OrderAttempt{
		BrokerOrderID: orderID,
		Symbol:        orderSym,
		Side:          side,
		Quantity:      qty,
		LimitPrice:    limit,
		Status:        domain.OrderSubmitted,
		SubmittedAt:   time.Now(),
	}

	return e.poll(ctx, attempt, delta, drv)
}

// currentPrice reads the quote cache, falling back to the driver on a miss
// or stale entry, and refreshes the cache with whatever the driver returns.
func (e *Engine) currentPrice(ctx context.Context, req Request, orderSym string, drv broker.Driver) (float64, error) {
	if price, ok := e.Quotes.Get(orderSym); ok {
		return price, nil
	}

	var price float64
	var err error
	if req.PutCall != "" {
		price, err = drv.GetOptionPrice(ctx, req.Symbol, req.Expiry, req.Strike, req.PutCall)
	} else {
		price, err = drv.GetPrice(ctx, req.Symbol)
	}
	if err != nil {
		return 0, fmt.Errorf("quoting %s: %w", orderSym, err)
	}
	e.Quotes.Put(orderSym, price)
	return price, nil
}

// poll re-queries the order status at a fixed interval until it is terminal
// or the driver's iteration budget runs out.
func (e *Engine) poll(ctx context.Context, attempt *domain.OrderAttempt, delta int, drv broker.Driver) (*domain.OrderAttempt, error) {
	for i := 0; i < drv.PollLimit(); i++ {
		status, err := drv.GetOrderStatus(ctx, attempt.BrokerOrderID)
		if err != nil {
			return attempt, fmt.Errorf("polling order %s: %w", attempt.BrokerOrderID, err)
		}
		attempt.Status = status

		switch {
		case status == domain.OrderFilled:
			e.Log.Info("order filled", "symbol", attempt.Symbol, "orderID", attempt.BrokerOrderID)
			return attempt, nil
		case status.Terminal():
			return attempt, &NotFilledError{
				Symbol: attempt.Symbol,
				Delta:  delta,
				Status: status,
			}
		}

		if err := e.Sleep(ctx, e.Interval); err != nil {
			return attempt, err
		}
	}

	attempt.Status = domain.OrderTimedOut
	return attempt, &NotFilledError{
		Symbol: attempt.Symbol,
		Delta:  delta,
		Status: domain.OrderTimedOut,
	}
}

// ctxSleep is a context-aware sleep.
func ctxSleep(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}
