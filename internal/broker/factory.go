package broker

import (
	"fmt"

	"alerter/internal/config"
	"alerter/internal/instrument"
	"alerter/internal/quote"
)

// Factory builds drivers from account configuration. It owns a TTL
// connection cache so accounts sharing credentials or a gateway reuse one
// live session instead of reconnecting per dispatch.
type Factory struct {
	resolver *instrument.Resolver
	conns    *quote.ConnCache[Driver]
}

// NewFactory creates a Factory. The resolver informs IBKR contract lookups.
func NewFactory(resolver *instrument.Resolver) *Factory {
	return &Factory{
		resolver: resolver,
		conns:    quote.NewConnCache[Driver](quote.ConnTTL, nil),
	}
}

// Driver returns the driver for an account, creating it on first use.
// Configuration referencing an unsupported broker yields ErrUnknownDriver,
// which is fatal for that account only.
func (f *Factory) Driver(cfg config.Account) (Driver, error) {
	var key string
	switch cfg.Driver {
	case "ibkr":
		key = fmt.Sprintf("ibkr:%s:%d", cfg.IBKR.Host, cfg.IBKR.Port)
	case "alpaca":
		key = "alpaca:" + cfg.Alpaca.Key
	case "simulator":
		key = "simulator:" + cfg.Name
	default:
		return nil, fmt.Errorf("account %s: %w: %q", cfg.Name, ErrUnknownDriver, cfg.Driver)
	}

	if d, ok := f.conns.Get(key); ok {
		return d, nil
	}

	var d Driver
	switch cfg.Driver {
	case "ibkr":
		d = NewIBKRDriver(cfg.Name, cfg.IBKR.Host, cfg.IBKR.Port, f.resolver)
	case "alpaca":
		d = NewAlpacaDriver(cfg.Name, cfg.Alpaca.Key, cfg.Alpaca.Secret, cfg.Alpaca.Paper)
	case "simulator":
		d = NewSimulatorDriver()
	}

	f.conns.Put(key, d)
	return d, nil
}
