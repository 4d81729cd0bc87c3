// Package broker defines the Driver capability interface through which the
// reconciliation engine talks to brokerages, and provides the IBKR, Alpaca,
// and simulator implementations plus the factory that selects one per
// account.
package broker

import (
	"context"
	"time"

	"alerter/internal/domain"
)

// OrderRequest describes one order submission. Option orders carry the
// OCC-style contract symbol; a zero LimitPrice means a market order.
type OrderRequest struct {
	Symbol        string
	Side          domain.Side
	Quantity      int
	LimitPrice    float64
	ExtendedHours bool
}

// Driver is the brokerage capability surface. Implementations are selected
// once at account-setup time; new brokers are added by implementing this
// interface, not by extending a branch chain.
type Driver interface {
	// Name returns the driver identifier (e.g. "ibkr", "alpaca").
	Name() string

	// Connect establishes or revalidates the brokerage session. Safe to
	// call repeatedly; cached sessions are reused.
	Connect(ctx context.Context) error

	// GetPrice returns the current price for an underlying symbol.
	GetPrice(ctx context.Context, symbol string) (float64, error)

	// GetOptionPrice returns the current price of a specific option
	// contract.
	GetOptionPrice(ctx context.Context, symbol string, expiry time.Time, strike float64, putCall domain.PutCall) (float64, error)

	// GetNetLiquidity returns the account's net liquidation value.
	GetNetLiquidity(ctx context.Context) (float64, error)

	// GetPositionSize returns the signed position for a symbol, 0 when no
	// position exists.
	GetPositionSize(ctx context.Context, symbol string) (int, error)

	// SubmitOrder sends the order and returns the broker order id.
	SubmitOrder(ctx context.Context, req OrderRequest) (string, error)

	// GetOrderStatus re-queries the status of a previously submitted order.
	GetOrderStatus(ctx context.Context, orderID string) (domain.OrderStatus, error)

	// DownloadBars fetches historical daily bars for a symbol.
	DownloadBars(ctx context.Context, symbol string, start, end time.Time) ([]domain.Bar, error)

	// HealthCheck exercises the account surface: net liquidity, a
	// reference quote, and reference positions.
	HealthCheck(ctx context.Context) error

	// PollLimit is the bounded iteration count for the fill poll loop;
	// brokers with slower fill reporting get a larger budget.
	PollLimit() int
}
