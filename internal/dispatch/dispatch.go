// Package dispatch fans one alert message out to every configured account:
// parse against the account's whitelist, apply its sizing policy, then
// reconcile. Accounts are processed sequentially in configuration order and
// fail independently.
package dispatch

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"alerter/internal/broker"
	"alerter/internal/config"
	"alerter/internal/domain"
	"alerter/internal/intent"
	"alerter/internal/reconcile"
	"alerter/internal/sizing"
)

// Account bundles everything needed to process a message for one brokerage
// account.
type Account struct {
	Name   string
	Driver broker.Driver
	Policy sizing.Policy
	Parser *intent.Parser
}

// Journal persists per-account outcomes. Implemented by store.Journal; nil
// disables journaling.
type Journal interface {
	Record(ctx context.Context, message string, o domain.Outcome) error
}

// Dispatcher runs the per-account pipeline for each incoming message.
type Dispatcher struct {
	Accounts []Account
	Engine   *reconcile.Engine
	Journal  Journal
	Log      *slog.Logger
}

// New creates a Dispatcher.
func New(accounts []Account, engine *reconcile.Engine, journal Journal) *Dispatcher {
	return &Dispatcher{
		Accounts: accounts,
		Engine:   engine,
		Journal:  journal,
		Log:      slog.Default().With("component", "dispatch"),
	}
}

// BuildAccounts assembles dispatch accounts from configuration. An account
// referencing an unknown driver is reported and dropped; the others still
// run.
func BuildAccounts(cfg *config.Config, factory *broker.Factory) ([]Account, []error) {
	mode := intent.SameDay
	if cfg.Trading.ExpiryMode == "next_day" {
		mode = intent.NextDay
	}

	var accounts []Account
	var errs []error
	for _, ac := range cfg.Accounts {
		drv, err := factory.Driver(ac)
		if err != nil {
			errs = append(errs, err)
			continue
		}

		symbols := ac.Symbols
		if len(symbols) == 0 {
			symbols = cfg.Trading.Symbols
		}
		accounts = append(accounts, Account{
			Name:   ac.Name,
			Driver: drv,
			Policy: sizing.Policy{
				Light:               ac.Sizing.Light,
				Regular:             ac.Sizing.Regular,
				Lotto:               ac.Sizing.Lotto,
				MaxFillAllowancePct: ac.MaxFillAllowancePct,
				UseOptions:          ac.UseOptions,
			},
			Parser: intent.New(intent.NewWhitelist(symbols), mode),
		})
	}
	return accounts, errs
}

// Dispatch processes one message for every account in order. Each account
// yields exactly one Outcome; a failure for one account never prevents the
// next from being attempted.
func (d *Dispatcher) Dispatch(ctx context.Context, message string) []domain.Outcome {
	outcomes := make([]domain.Outcome, 0, len(d.Accounts))
	for _, acct := range d.Accounts {
		o := d.processAccount(ctx, acct, message)
		o.At = time.Now()

		switch o.Status {
		case domain.OutcomeFilled, domain.OutcomeNoOrderNeeded:
			d.Log.Info("account done", "account", acct.Name, "status", o.Status, "orderID", o.OrderID)
		case domain.OutcomeSkippedDisabled, domain.OutcomeSkippedZeroSize:
			d.Log.Debug("account skipped", "account", acct.Name, "status", o.Status)
		default:
			d.Log.Warn("account failed", "account", acct.Name, "status", o.Status, "err", o.Err)
		}

		if d.Journal != nil {
			if err := d.Journal.Record(ctx, message, o); err != nil {
				d.Log.Warn("journal write failed", "account", acct.Name, "err", err)
			}
		}
		outcomes = append(outcomes, o)
	}
	return outcomes
}

// processAccount runs the parse → size → reconcile pipeline for one
// account.
func (d *Dispatcher) processAccount(ctx context.Context, acct Account, message string) domain.Outcome {
	o := domain.Outcome{Account: acct.Name}

	if !acct.Policy.UseOptions {
		o.Status = domain.OutcomeSkippedDisabled
		return o
	}

	ti := acct.Parser.Parse(message)
	o.Intent = ti

	if err := intent.CheckActionable(ti); err != nil {
		o.Status = domain.OutcomeParseIncomplete
		o.Err = err
		return o
	}
	// An unparseable date token clears the expiry; without one the OCC
	// contract symbol would be nonsense, so stop here.
	if ti.Expiry.IsZero() {
		o.Status = domain.OutcomeParseIncomplete
		o.Err = &intent.IncompleteIntentError{Missing: []string{"expiry"}}
		return o
	}

	contracts := acct.Policy.Contracts(ti.Tier)
	o.Contracts = contracts
	if contracts == 0 {
		o.Status = domain.OutcomeSkippedZeroSize
		return o
	}

	if err := acct.Driver.Connect(ctx); err != nil {
		o.Status = domain.OutcomeFailed
		o.Err = err
		return o
	}

	// The alerted fill price caps what we are willing to pay; when the
	// message had none, the live option quote stands in.
	if ti.ExpectedFill == nil {
		price, err := acct.Driver.GetOptionPrice(ctx, ti.Symbol, ti.Expiry, *ti.Strike, ti.PutCall)
		if err != nil {
			o.Status = domain.OutcomeFailed
			o.Err = err
			return o
		}
		ti.ExpectedFill = &price
		o.Intent = ti
	}

	spec := d.Engine.Resolver.Resolve(ti.Symbol)
	o.MaxFill = acct.Policy.MaxFill(*ti.ExpectedFill, spec.RoundPrecision)

	attempt, err := d.Engine.Reconcile(ctx, reconcile.Request{
		Symbol:         ti.Symbol,
		Expiry:         ti.Expiry,
		Strike:         *ti.Strike,
		PutCall:        ti.PutCall,
		TargetPosition: contracts,
		MaxPrice:       o.MaxFill,
	}, acct.Driver)

	if attempt != nil {
		o.OrderID = attempt.BrokerOrderID
	}

	switch {
	case err == nil && attempt == nil:
		o.Status = domain.OutcomeNoOrderNeeded
	case err == nil:
		o.Status = domain.OutcomeFilled
	default:
		var policyErr *reconcile.PolicyViolationError
		if errors.As(err, &policyErr) {
			o.Status = domain.OutcomePolicyViolation
		} else {
			o.Status = domain.OutcomeFailed
		}
		o.Err = err
	}
	return o
}
