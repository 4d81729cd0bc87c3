package broker

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"strings"
	"sync"
	"time"

	"alerter/internal/domain"
	"alerter/internal/instrument"
	"alerter/internal/util"
)

// Compile-time interface check.
var _ Driver = (*IBKRDriver)(nil)

// ibkrPollLimit bounds the fill poll loop for IBKR.
const ibkrPollLimit = 15

// Client Portal snapshot field ids.
const (
	fieldLastPrice  = "31"
	fieldClosePrice = "7296"
)

// IBKRDriver implements Driver against the Interactive Brokers Client
// Portal gateway REST API. There is no maintained Go SDK for IBKR, so this
// talks HTTP to the local gateway directly. The gateway serves a
// self-signed certificate, hence the insecure transport.
type IBKRDriver struct {
	account  string
	baseURL  string // e.g. https://localhost:5000/v1/api
	http     *http.Client
	resolver *instrument.Resolver
	log      *slog.Logger

	mu        sync.Mutex
	connected bool
	conids    map[string]int64 // symbol -> conid
}

// NewIBKRDriver creates an IBKRDriver for the named account, talking to the
// Client Portal gateway at host:port.
func NewIBKRDriver(account, host string, port int, resolver *instrument.Resolver) *IBKRDriver {
	transport := &http.Transport{
		TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
	}
	return &IBKRDriver{
		account: account,
		baseURL: fmt.Sprintf("https://%s:%d/v1/api", host, port),
		http: &http.Client{
			Transport: transport,
			Timeout:   30 * time.Second,
		},
		resolver: resolver,
		conids:   make(map[string]int64),
		log:      slog.Default().With("driver", "ibkr", "account", account),
	}
}

// Name returns "ibkr".
func (d *IBKRDriver) Name() string { return "ibkr" }

// PollLimit returns the poll-loop iteration budget.
func (d *IBKRDriver) PollLimit() int { return ibkrPollLimit }

// Connect verifies the gateway session is authenticated, retrying a few
// times since the gateway can take a moment after login.
func (d *IBKRDriver) Connect(ctx context.Context) error {
	d.mu.Lock()
	if d.connected {
		d.mu.Unlock()
		return nil
	}
	d.mu.Unlock()

	err := util.Retry(ctx, 4, time.Second, func() error {
		var status struct {
			Authenticated bool `json:"authenticated"`
			Connected     bool `json:"connected"`
		}
		if err := d.post(ctx, "/iserver/auth/status", nil, &status); err != nil {
			return err
		}
		if !status.Authenticated || !status.Connected {
			return fmt.Errorf("gateway session not authenticated")
		}
		return nil
	})
	if err != nil {
		return &ConnectionError{Driver: "ibkr", Err: err}
	}

	d.mu.Lock()
	d.connected = true
	d.mu.Unlock()
	d.log.Info("connected", "gateway", d.baseURL)
	return nil
}

// conid resolves and caches the contract id for a symbol via secdef search.
func (d *IBKRDriver) conid(ctx context.Context, symbol string) (int64, error) {
	sym := instrument.Normalize(symbol)

	d.mu.Lock()
	if id, ok := d.conids[sym]; ok {
		d.mu.Unlock()
		return id, nil
	}
	d.mu.Unlock()

	secType := "STK"
	switch d.resolver.Resolve(sym).Class {
	case domain.AssetFuture, domain.AssetForexFuture:
		secType = "FUT"
	case domain.AssetIndex:
		secType = "IND"
	}

	var results []struct {
		Conid   int64  `json:"conid"`
		Symbol  string `json:"symbol"`
		SecType string `json:"secType"`
	}
	path := fmt.Sprintf("/iserver/secdef/search?symbol=%s&secType=%s", sym, secType)
	if err := d.get(ctx, path, &results); err != nil {
		return 0, fmt.Errorf("secdef search for %s: %w", sym, err)
	}
	for _, r := range results {
		if strings.EqualFold(r.Symbol, sym) {
			d.mu.Lock()
			d.conids[sym] = r.Conid
			d.mu.Unlock()
			return r.Conid, nil
		}
	}
	return 0, fmt.Errorf("no contract found for %s", sym)
}

// snapshotPrice returns the last price for a conid, falling back to the
// previous close when the last price is unavailable.
func (d *IBKRDriver) snapshotPrice(ctx context.Context, conid int64) (float64, error) {
	var snapshots []map[string]any
	path := fmt.Sprintf("/iserver/marketdata/snapshot?conids=%d&fields=%s,%s",
		conid, fieldLastPrice, fieldClosePrice)
	if err := d.get(ctx, path, &snapshots); err != nil {
		return 0, fmt.Errorf("marketdata snapshot for conid %d: %w", conid, err)
	}
	if len(snapshots) == 0 {
		return 0, fmt.Errorf("empty snapshot for conid %d", conid)
	}

	if p, ok := snapshotField(snapshots[0], fieldLastPrice); ok {
		return p, nil
	}
	if p, ok := snapshotField(snapshots[0], fieldClosePrice); ok {
		return p, nil
	}
	return 0, fmt.Errorf("no last or close price for conid %d", conid)
}

func snapshotField(snap map[string]any, field string) (float64, bool) {
	raw, ok := snap[field]
	if !ok {
		return 0, false
	}
	switch v := raw.(type) {
	case float64:
		if math.IsNaN(v) {
			return 0, false
		}
		return v, true
	case string:
		var p float64
		if _, err := fmt.Sscanf(strings.TrimPrefix(v, "C"), "%f", &p); err != nil {
			return 0, false
		}
		return p, true
	}
	return 0, false
}

// GetPrice returns the current price for an underlying symbol.
func (d *IBKRDriver) GetPrice(ctx context.Context, symbol string) (float64, error) {
	if err := d.Connect(ctx); err != nil {
		return 0, err
	}
	id, err := d.conid(ctx, symbol)
	if err != nil {
		return 0, err
	}
	price, err := d.snapshotPrice(ctx, id)
	if err != nil {
		return 0, err
	}
	d.log.Debug("get_price", "symbol", symbol, "price", price)
	return price, nil
}

// GetOptionPrice returns the current price for an option contract, located
// through secdef/info on the underlying conid.
func (d *IBKRDriver) GetOptionPrice(ctx context.Context, symbol string, expiry time.Time, strike float64, putCall domain.PutCall) (float64, error) {
	if err := d.Connect(ctx); err != nil {
		return 0, err
	}
	underlying, err := d.conid(ctx, symbol)
	if err != nil {
		return 0, err
	}

	var contracts []struct {
		Conid int64 `json:"conid"`
	}
	path := fmt.Sprintf("/iserver/secdef/info?conid=%d&sectype=OPT&month=%s&strike=%g&right=%s",
		underlying, strings.ToUpper(expiry.Format("Jan06")), strike, putCall)
	if err := d.get(ctx, path, &contracts); err != nil {
		return 0, fmt.Errorf("secdef info for %s option: %w", symbol, err)
	}
	if len(contracts) == 0 {
		return 0, fmt.Errorf("no option contract for %s %g%s %s",
			symbol, strike, putCall, expiry.Format("2006-01-02"))
	}
	return d.snapshotPrice(ctx, contracts[0].Conid)
}

// GetNetLiquidity returns the account's net liquidation value.
func (d *IBKRDriver) GetNetLiquidity(ctx context.Context) (float64, error) {
	if err := d.Connect(ctx); err != nil {
		return 0, err
	}
	var summary struct {
		NetLiquidation struct {
			Amount float64 `json:"amount"`
		} `json:"netliquidation"`
	}
	path := fmt.Sprintf("/portfolio/%s/summary", d.account)
	if err := d.get(ctx, path, &summary); err != nil {
		return 0, fmt.Errorf("portfolio summary: %w", err)
	}
	return summary.NetLiquidation.Amount, nil
}

// GetPositionSize returns the signed position for a symbol, 0 when none.
func (d *IBKRDriver) GetPositionSize(ctx context.Context, symbol string) (int, error) {
	if err := d.Connect(ctx); err != nil {
		return 0, err
	}
	var positions []struct {
		ContractDesc string  `json:"contractDesc"`
		Position     float64 `json:"position"`
	}
	path := fmt.Sprintf("/portfolio/%s/positions/0", d.account)
	if err := d.get(ctx, path, &positions); err != nil {
		return 0, fmt.Errorf("positions: %w", err)
	}

	sym := instrument.Normalize(symbol)
	for _, p := range positions {
		fields := strings.Fields(p.ContractDesc)
		if len(fields) == 0 {
			continue
		}
		if strings.EqualFold(fields[0], sym) {
			size := int(math.Round(p.Position))
			d.log.Debug("get_position_size", "symbol", sym, "size", size)
			return size, nil
		}
	}
	return 0, nil
}

// SubmitOrder places a DAY order through the gateway, outside regular
// trading hours allowed.
func (d *IBKRDriver) SubmitOrder(ctx context.Context, req OrderRequest) (string, error) {
	if err := d.Connect(ctx); err != nil {
		return "", err
	}
	id, err := d.conid(ctx, req.Symbol)
	if err != nil {
		return "", err
	}

	orderType := "MKT"
	if req.LimitPrice > 0 {
		orderType = "LMT"
	}
	side := "BUY"
	if req.Side == domain.SideSell {
		side = "SELL"
	}

	body := map[string]any{
		"orders": []map[string]any{{
			"conid":      id,
			"side":       side,
			"quantity":   req.Quantity,
			"orderType":  orderType,
			"price":      req.LimitPrice,
			"tif":        "DAY",
			"outsideRTH": req.ExtendedHours,
		}},
	}

	var replies []struct {
		OrderID string `json:"order_id"`
	}
	path := fmt.Sprintf("/iserver/account/%s/orders", d.account)
	if err := d.post(ctx, path, body, &replies); err != nil {
		return "", fmt.Errorf("place order for %s: %w", req.Symbol, err)
	}
	if len(replies) == 0 || replies[0].OrderID == "" {
		return "", fmt.Errorf("gateway returned no order id for %s", req.Symbol)
	}
	d.log.Info("order placed",
		"symbol", req.Symbol,
		"side", req.Side,
		"qty", req.Quantity,
		"limit", req.LimitPrice,
		"orderID", replies[0].OrderID,
	)
	return replies[0].OrderID, nil
}

// GetOrderStatus maps gateway order states onto the lifecycle enum.
func (d *IBKRDriver) GetOrderStatus(ctx context.Context, orderID string) (domain.OrderStatus, error) {
	if err := d.Connect(ctx); err != nil {
		return "", err
	}
	var status struct {
		OrderStatus string `json:"order_status"`
	}
	path := fmt.Sprintf("/iserver/account/order/status/%s", orderID)
	if err := d.get(ctx, path, &status); err != nil {
		return "", fmt.Errorf("order status %s: %w", orderID, err)
	}
	switch status.OrderStatus {
	case "Filled":
		return domain.OrderFilled, nil
	case "Cancelled", "ApiCancelled", "Inactive":
		return domain.OrderCancelled, nil
	default:
		// Submitted, PreSubmitted, PendingSubmit, ...
		return domain.OrderSubmitted, nil
	}
}

// DownloadBars fetches historical daily bars through the gateway.
func (d *IBKRDriver) DownloadBars(ctx context.Context, symbol string, start, end time.Time) ([]domain.Bar, error) {
	if err := d.Connect(ctx); err != nil {
		return nil, err
	}
	id, err := d.conid(ctx, symbol)
	if err != nil {
		return nil, err
	}

	days := int(end.Sub(start).Hours()/24) + 1
	var history struct {
		Data []struct {
			O float64 `json:"o"`
			H float64 `json:"h"`
			L float64 `json:"l"`
			C float64 `json:"c"`
			V float64 `json:"v"`
			T int64   `json:"t"` // Unix ms
		} `json:"data"`
	}
	path := fmt.Sprintf("/iserver/marketdata/history?conid=%d&period=%dd&bar=1d&outsideRth=false", id, days)
	if err := d.get(ctx, path, &history); err != nil {
		return nil, fmt.Errorf("history for %s: %w", symbol, err)
	}

	sym := instrument.Normalize(symbol)
	var bars []domain.Bar
	for _, b := range history.Data {
		ts := time.UnixMilli(b.T)
		if ts.Before(start) || ts.After(end) {
			continue
		}
		bars = append(bars, domain.Bar{
			Symbol:    sym,
			Timestamp: ts,
			Open:      b.O,
			High:      b.H,
			Low:       b.L,
			Close:     b.C,
			Volume:    int64(b.V),
		})
	}
	return bars, nil
}

// HealthCheck exercises the account surface end to end.
func (d *IBKRDriver) HealthCheck(ctx context.Context) error {
	if _, err := d.GetNetLiquidity(ctx); err != nil {
		return err
	}
	if _, err := d.GetPrice(ctx, "SOXL"); err != nil {
		return err
	}
	if _, err := d.GetPositionSize(ctx, "SOXL"); err != nil {
		return err
	}
	if _, err := d.GetPositionSize(ctx, "SOXS"); err != nil {
		return err
	}
	return nil
}

// ---------------------------------------------------------------------------
// HTTP helpers
// ---------------------------------------------------------------------------

func (d *IBKRDriver) get(ctx context.Context, path string, out any) error {
	return d.do(ctx, http.MethodGet, path, nil, out)
}

func (d *IBKRDriver) post(ctx context.Context, path string, body, out any) error {
	return d.do(ctx, http.MethodPost, path, body, out)
}

func (d *IBKRDriver) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, d.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := d.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("%s %s: status %d: %s", method, path, resp.StatusCode, strings.TrimSpace(string(data)))
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
