package broker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"alerter/internal/domain"
)

// Compile-time interface check.
var _ Driver = (*SimulatorDriver)(nil)

// SimulatorDriver implements Driver in memory for paper runs and tests. It
// records every call and serves scripted prices, positions, and order
// status sequences.
type SimulatorDriver struct {
	mu sync.Mutex

	// Scripted state.
	Prices       map[string]float64 // symbol -> price (underlyings and OCC contracts)
	Positions    map[string]int     // symbol -> signed size
	StatusScript []domain.OrderStatus
	ConnectErr   error
	Limit        int // poll budget; defaults to 5

	// Recorded activity.
	Calls   []string
	Orders  []OrderRequest
	scripts map[string][]domain.OrderStatus // orderID -> remaining statuses
	nextID  int
}

// NewSimulatorDriver creates an empty SimulatorDriver.
func NewSimulatorDriver() *SimulatorDriver {
	return &SimulatorDriver{
		Prices:    make(map[string]float64),
		Positions: make(map[string]int),
		scripts:   make(map[string][]domain.OrderStatus),
	}
}

// Name returns "simulator".
func (d *SimulatorDriver) Name() string { return "simulator" }

// PollLimit returns the scripted poll budget.
func (d *SimulatorDriver) PollLimit() int {
	if d.Limit > 0 {
		return d.Limit
	}
	return 5
}

func (d *SimulatorDriver) record(call string) {
	d.mu.Lock()
	d.Calls = append(d.Calls, call)
	d.mu.Unlock()
}

// CallCount returns how many driver calls have been recorded.
func (d *SimulatorDriver) CallCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.Calls)
}

// Connect returns the scripted connection error, if any.
func (d *SimulatorDriver) Connect(_ context.Context) error {
	d.record("connect")
	return d.ConnectErr
}

// GetPrice serves the scripted price for symbol.
func (d *SimulatorDriver) GetPrice(_ context.Context, symbol string) (float64, error) {
	d.record("get_price:" + symbol)
	d.mu.Lock()
	defer d.mu.Unlock()
	p, ok := d.Prices[symbol]
	if !ok {
		return 0, fmt.Errorf("no scripted price for %s", symbol)
	}
	return p, nil
}

// GetOptionPrice serves the scripted price for the OCC contract symbol.
func (d *SimulatorDriver) GetOptionPrice(_ context.Context, symbol string, expiry time.Time, strike float64, putCall domain.PutCall) (float64, error) {
	occ := domain.OptionSymbol(symbol, expiry, strike, putCall)
	d.record("get_price_opt:" + occ)
	d.mu.Lock()
	defer d.mu.Unlock()
	p, ok := d.Prices[occ]
	if !ok {
		return 0, fmt.Errorf("no scripted option price for %s", occ)
	}
	return p, nil
}

// GetNetLiquidity returns a fixed figure.
func (d *SimulatorDriver) GetNetLiquidity(_ context.Context) (float64, error) {
	d.record("get_net_liquidity")
	return 100000, nil
}

// GetPositionSize returns the scripted position, 0 when unset.
func (d *SimulatorDriver) GetPositionSize(_ context.Context, symbol string) (int, error) {
	d.record("get_position_size:" + symbol)
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.Positions[symbol], nil
}

// SubmitOrder records the order and assigns the status script to the new
// order id.
func (d *SimulatorDriver) SubmitOrder(_ context.Context, req OrderRequest) (string, error) {
	d.record("submit_order:" + req.Symbol)
	d.mu.Lock()
	defer d.mu.Unlock()
	d.nextID++
	id := fmt.Sprintf("sim-%d", d.nextID)
	d.Orders = append(d.Orders, req)
	d.scripts[id] = append([]domain.OrderStatus(nil), d.StatusScript...)
	return id, nil
}

// GetOrderStatus pops the next scripted status for the order; once the
// script is exhausted the last status repeats.
func (d *SimulatorDriver) GetOrderStatus(_ context.Context, orderID string) (domain.OrderStatus, error) {
	d.record("get_order_status:" + orderID)
	d.mu.Lock()
	defer d.mu.Unlock()
	script, ok := d.scripts[orderID]
	if !ok {
		return "", fmt.Errorf("unknown order %s", orderID)
	}
	if len(script) == 0 {
		return domain.OrderSubmitted, nil
	}
	status := script[0]
	if len(script) > 1 {
		d.scripts[orderID] = script[1:]
	}
	return status, nil
}

// DownloadBars returns no data.
func (d *SimulatorDriver) DownloadBars(_ context.Context, symbol string, _, _ time.Time) ([]domain.Bar, error) {
	d.record("download_bars:" + symbol)
	return nil, nil
}

// HealthCheck always passes.
func (d *SimulatorDriver) HealthCheck(_ context.Context) error {
	d.record("health_check")
	return nil
}
