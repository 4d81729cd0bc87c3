// Command alerter-health runs the broker health check for every configured
// account and exits non-zero if any fails.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"time"

	"alerter/internal/broker"
	"alerter/internal/config"
	"alerter/internal/instrument"
	"alerter/internal/util"
)

func main() {
	cfgPath := flag.String("config", defaultConfigPath(), "path to YAML config")
	timeout := flag.Duration("timeout", 60*time.Second, "overall health check timeout")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger := util.NewLogger(os.Stdout, cfg.Logging.Level)
	util.SetDefault(logger)

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	factory := broker.NewFactory(instrument.NewResolver())

	failed := false
	for _, ac := range cfg.Accounts {
		drv, err := factory.Driver(ac)
		if err != nil {
			logger.Error("driver setup failed", "account", ac.Name, "err", err)
			failed = true
			continue
		}
		if err := drv.HealthCheck(ctx); err != nil {
			logger.Error("health check failed", "account", ac.Name, "driver", drv.Name(), "err", err)
			failed = true
			continue
		}
		logger.Info("health check passed", "account", ac.Name, "driver", drv.Name())
	}

	if failed {
		os.Exit(1)
	}
}

func defaultConfigPath() string {
	if p := os.Getenv("ALERTER_CONFIG"); p != "" {
		return p
	}
	return "config/alerter.yaml"
}
