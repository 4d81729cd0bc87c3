// Command alerter-backfill downloads historical daily bars for the symbol
// whitelist through a configured account's driver and writes them to the
// Parquet bar store.
package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"alerter/internal/broker"
	"alerter/internal/config"
	"alerter/internal/instrument"
	"alerter/internal/intent"
	"alerter/internal/store"
	"alerter/internal/util"
)

func main() {
	cfgPath := flag.String("config", defaultConfigPath(), "path to YAML config")
	account := flag.String("account", "", "account whose driver downloads the data (default: first)")
	years := flag.Int("years", 5, "years of history to download")
	workers := flag.Int("workers", 4, "concurrent download workers")
	perMin := flag.Int("rate", 60, "download requests per minute")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger := util.NewLogger(os.Stdout, cfg.Logging.Level)
	util.SetDefault(logger)

	ac, ok := pickAccount(cfg, *account)
	if !ok {
		log.Fatalf("account %q not found in config", *account)
	}

	factory := broker.NewFactory(instrument.NewResolver())
	drv, err := factory.Driver(ac)
	if err != nil {
		log.Fatalf("driver setup failed: %v", err)
	}

	symbols := ac.Symbols
	if len(symbols) == 0 {
		symbols = cfg.Trading.Symbols
	}
	if len(symbols) == 0 {
		symbols = intent.DefaultSymbols
	}

	bars := store.NewParquetStore(cfg.Storage.DataDir)
	limiter := util.NewRateLimiter(*perMin)

	end := time.Now()
	start := end.AddDate(-*years, 0, 0)
	runStart := time.Now()

	ctx := context.Background()
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(*workers)

	for _, symbol := range symbols {
		g.Go(func() error {
			if err := limiter.Wait(ctx); err != nil {
				return err
			}
			data, err := drv.DownloadBars(ctx, symbol, start, end)
			if err != nil {
				// One symbol failing shouldn't sink the whole run.
				slog.Error("download failed", "symbol", symbol, "err", err)
				return nil
			}
			if err := bars.WriteBars(ctx, data); err != nil {
				return err
			}
			slog.Info("symbol done", "symbol", symbol, "bars", len(data))
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		log.Fatalf("backfill failed: %v", err)
	}
	slog.Info("backfill complete",
		"symbols", len(symbols),
		"elapsed", time.Since(runStart).Round(time.Second),
	)
}

func pickAccount(cfg *config.Config, name string) (config.Account, bool) {
	if name == "" {
		return cfg.Accounts[0], true
	}
	for _, ac := range cfg.Accounts {
		if ac.Name == name {
			return ac, true
		}
	}
	return config.Account{}, false
}

func defaultConfigPath() string {
	if p := os.Getenv("ALERTER_CONFIG"); p != "" {
		return p
	}
	return "config/alerter.yaml"
}
