package broker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/alpacahq/alpaca-trade-api-go/v3/alpaca"
	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"
	"github.com/shopspring/decimal"

	"alerter/internal/domain"
)

// Compile-time interface check.
var _ Driver = (*AlpacaDriver)(nil)

// alpacaPollLimit bounds the fill poll loop; Alpaca order status can lag a
// little, so it gets the larger budget.
const alpacaPollLimit = 30

// AlpacaDriver implements Driver on top of the Alpaca trading and
// market-data APIs.
type AlpacaDriver struct {
	account string
	key     string
	secret  string
	paper   bool

	trading *alpaca.Client
	data    *marketdata.Client
	log     *slog.Logger
}

// NewAlpacaDriver creates an AlpacaDriver for the named account. The clients
// are constructed lazily in Connect.
func NewAlpacaDriver(account, key, secret string, paper bool) *AlpacaDriver {
	return &AlpacaDriver{
		account: account,
		key:     key,
		secret:  secret,
		paper:   paper,
		log:     slog.Default().With("driver", "alpaca", "account", account),
	}
}

// Name returns "alpaca".
func (d *AlpacaDriver) Name() string { return "alpaca" }

// PollLimit returns the poll-loop iteration budget.
func (d *AlpacaDriver) PollLimit() int { return alpacaPollLimit }

// Connect builds the trading and data clients and verifies the session by
// fetching the account.
func (d *AlpacaDriver) Connect(_ context.Context) error {
	if d.trading != nil {
		return nil
	}

	baseURL := "https://api.alpaca.markets"
	if d.paper {
		baseURL = "https://paper-api.alpaca.markets"
	}
	trading := alpaca.NewClient(alpaca.ClientOpts{
		APIKey:    d.key,
		APISecret: d.secret,
		BaseURL:   baseURL,
	})

	if _, err := trading.GetAccount(); err != nil {
		return &ConnectionError{Driver: "alpaca", Err: err}
	}

	d.trading = trading
	d.data = marketdata.NewClient(marketdata.ClientOpts{
		APIKey:    d.key,
		APISecret: d.secret,
	})
	d.log.Info("connected", "paper", d.paper)
	return nil
}

// GetPrice returns the latest ask price for an underlying symbol.
func (d *AlpacaDriver) GetPrice(ctx context.Context, symbol string) (float64, error) {
	if err := d.Connect(ctx); err != nil {
		return 0, err
	}
	q, err := d.data.GetLatestQuote(symbol, marketdata.GetLatestQuoteRequest{})
	if err != nil {
		return 0, fmt.Errorf("latest quote for %s: %w", symbol, err)
	}
	d.log.Debug("get_price", "symbol", symbol, "price", q.AskPrice)
	return q.AskPrice, nil
}

// GetOptionPrice returns the latest ask price for an option contract.
func (d *AlpacaDriver) GetOptionPrice(ctx context.Context, symbol string, expiry time.Time, strike float64, putCall domain.PutCall) (float64, error) {
	if err := d.Connect(ctx); err != nil {
		return 0, err
	}
	occ := domain.OptionSymbol(symbol, expiry, strike, putCall)
	q, err := d.data.GetLatestOptionQuote(occ, marketdata.GetLatestOptionQuoteRequest{})
	if err != nil {
		return 0, fmt.Errorf("latest option quote for %s: %w", occ, err)
	}
	price, err := askFromOptionQuote(q, occ)
	if err != nil {
		return 0, err
	}
	d.log.Debug("get_price_opt", "contract", occ, "price", price)
	return price, nil
}

// askFromOptionQuote extracts the ask price. The SDK reports an unknown or
// illiquid contract as a nil quote with a nil error, which must not pass for
// a zero price.
func askFromOptionQuote(q *marketdata.OptionQuote, occ string) (float64, error) {
	if q == nil {
		return 0, fmt.Errorf("no quote for option contract %s", occ)
	}
	return q.AskPrice, nil
}

// GetNetLiquidity returns the account's last equity in USD.
func (d *AlpacaDriver) GetNetLiquidity(ctx context.Context) (float64, error) {
	if err := d.Connect(ctx); err != nil {
		return 0, err
	}
	acct, err := d.trading.GetAccount()
	if err != nil {
		return 0, fmt.Errorf("get account: %w", err)
	}
	return acct.LastEquity.InexactFloat64(), nil
}

// GetPositionSize returns the signed position quantity for symbol. A
// missing position is 0, not an error.
func (d *AlpacaDriver) GetPositionSize(ctx context.Context, symbol string) (int, error) {
	if err := d.Connect(ctx); err != nil {
		return 0, err
	}
	pos, err := d.trading.GetPosition(symbol)
	if err != nil {
		var apiErr *alpaca.APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode == 404 {
			return 0, nil
		}
		return 0, fmt.Errorf("get position for %s: %w", symbol, err)
	}
	size := int(pos.Qty.IntPart())
	d.log.Debug("get_position_size", "symbol", symbol, "size", size)
	return size, nil
}

// SubmitOrder places a DAY order, limit or market, with extended hours
// enabled for limit orders when requested.
func (d *AlpacaDriver) SubmitOrder(ctx context.Context, req OrderRequest) (string, error) {
	if err := d.Connect(ctx); err != nil {
		return "", err
	}

	qty := decimal.NewFromInt(int64(req.Quantity))
	por := alpaca.PlaceOrderRequest{
		Symbol:      req.Symbol,
		Qty:         &qty,
		TimeInForce: alpaca.Day,
	}
	switch req.Side {
	case domain.SideBuy:
		por.Side = alpaca.Buy
	case domain.SideSell:
		por.Side = alpaca.Sell
	}
	if req.LimitPrice > 0 {
		limit := decimal.NewFromFloat(req.LimitPrice)
		por.Type = alpaca.Limit
		por.LimitPrice = &limit
		por.ExtendedHours = req.ExtendedHours
	} else {
		por.Type = alpaca.Market
	}

	order, err := d.trading.PlaceOrder(por)
	if err != nil {
		return "", fmt.Errorf("place order for %s: %w", req.Symbol, err)
	}
	d.log.Info("order placed",
		"symbol", req.Symbol,
		"side", req.Side,
		"qty", req.Quantity,
		"limit", req.LimitPrice,
		"orderID", order.ID,
	)
	return order.ID, nil
}

// GetOrderStatus maps Alpaca order states onto the lifecycle enum.
func (d *AlpacaDriver) GetOrderStatus(ctx context.Context, orderID string) (domain.OrderStatus, error) {
	if err := d.Connect(ctx); err != nil {
		return "", err
	}
	order, err := d.trading.GetOrder(orderID)
	if err != nil {
		return "", fmt.Errorf("get order %s: %w", orderID, err)
	}
	switch order.Status {
	case "filled":
		return domain.OrderFilled, nil
	case "partially_filled":
		return domain.OrderPartiallyFilled, nil
	case "canceled", "expired", "rejected", "done_for_day":
		return domain.OrderCancelled, nil
	default:
		// new, accepted, pending_new, held, ...
		return domain.OrderSubmitted, nil
	}
}

// DownloadBars fetches daily bars for a symbol from the market-data API.
func (d *AlpacaDriver) DownloadBars(ctx context.Context, symbol string, start, end time.Time) ([]domain.Bar, error) {
	if err := d.Connect(ctx); err != nil {
		return nil, err
	}
	alpacaBars, err := d.data.GetBars(symbol, marketdata.GetBarsRequest{
		TimeFrame: marketdata.OneDay,
		Start:     start,
		End:       end,
	})
	if err != nil {
		return nil, fmt.Errorf("GetBars for %s: %w", symbol, err)
	}

	bars := make([]domain.Bar, 0, len(alpacaBars))
	for _, ab := range alpacaBars {
		bars = append(bars, domain.Bar{
			Symbol:     symbol,
			Timestamp:  ab.Timestamp,
			Open:       ab.Open,
			High:       ab.High,
			Low:        ab.Low,
			Close:      ab.Close,
			Volume:     int64(ab.Volume),
			TradeCount: int64(ab.TradeCount),
			VWAP:       ab.VWAP,
		})
	}
	return bars, nil
}

// HealthCheck exercises the account surface end to end.
func (d *AlpacaDriver) HealthCheck(ctx context.Context) error {
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
