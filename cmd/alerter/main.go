// Command alerter reads trade-alert messages from stdin, one per line, and
// executes each against every configured brokerage account. An empty line
// exits.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/charmbracelet/lipgloss"

	"alerter/internal/broker"
	"alerter/internal/config"
	"alerter/internal/dispatch"
	"alerter/internal/domain"
	"alerter/internal/instrument"
	"alerter/internal/quote"
	"alerter/internal/reconcile"
	"alerter/internal/store"
	"alerter/internal/util"
)

// Styles.
var (
	promptStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	summaryStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("15"))
	okStyle      = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("10"))
	skipStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	failStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("9"))
)

func main() {
	cfgPath := flag.String("config", defaultConfigPath(), "path to YAML config")
	light := flag.Int("light", -1, "override light-tier contracts for all accounts")
	regular := flag.Int("regular", -1, "override regular-tier contracts for all accounts")
	lotto := flag.Int("lotto", -1, "override lotto-tier contracts for all accounts")
	allowance := flag.Float64("allow-fill-above-message", -1, "override max fill allowance pct for all accounts")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	applyOverrides(cfg, *light, *regular, *lotto, *allowance)

	logger := util.NewLogger(os.Stdout, cfg.Logging.Level)
	util.SetDefault(logger)

	resolver := instrument.NewResolver()
	quotes := quote.NewCache(quote.DefaultTTL, nil)
	engine := reconcile.New(resolver, quotes)
	factory := broker.NewFactory(resolver)

	var journal *store.Journal
	if cfg.Storage.JournalPath != "" {
		journal, err = store.OpenJournal(cfg.Storage.JournalPath)
		if err != nil {
			log.Fatalf("failed to open journal: %v", err)
		}
		defer journal.Close()
	}

	accounts, setupErrs := dispatch.BuildAccounts(cfg, factory)
	for _, err := range setupErrs {
		fmt.Println(failStyle.Render(fmt.Sprintf("account setup: %v", err)))
	}
	if len(accounts) == 0 {
		log.Fatal("no usable accounts")
	}

	var d *dispatch.Dispatcher
	if journal != nil {
		d = dispatch.New(accounts, engine, journal)
	} else {
		d = dispatch.New(accounts, engine, nil)
	}

	ctx := context.Background()
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print(promptStyle.Render("Enter message: "))
		if !scanner.Scan() {
			break
		}
		message := scanner.Text()
		if message == "" {
			break
		}

		for _, o := range d.Dispatch(ctx, message) {
			printOutcome(o)
		}
	}
}

// printOutcome renders the per-account summary line: parsed fields, the
// computed max fill, and the resolved contract count, followed by the
// outcome.
func printOutcome(o domain.Outcome) {
	summary := fmt.Sprintf("[%s] %s max_fill=%g contracts=%d",
		o.Account, o.Intent, o.MaxFill, o.Contracts)
	fmt.Println(summaryStyle.Render(summary))

	switch o.Status {
	case domain.OutcomeFilled:
		fmt.Println(okStyle.Render(fmt.Sprintf("  filled (order %s)", o.OrderID)))
	case domain.OutcomeNoOrderNeeded:
		fmt.Println(okStyle.Render("  position already at target"))
	case domain.OutcomeSkippedDisabled:
		fmt.Println(skipStyle.Render("  skipped: options disabled"))
	case domain.OutcomeSkippedZeroSize:
		fmt.Println(skipStyle.Render("  skipped: tier resolves to 0 contracts"))
	default:
		fmt.Println(failStyle.Render(fmt.Sprintf("  %s: %v", o.Status, o.Err)))
	}
}

func applyOverrides(cfg *config.Config, light, regular, lotto int, allowance float64) {
	for i := range cfg.Accounts {
		a := &cfg.Accounts[i]
		if light >= 0 {
			a.Sizing.Light = light
		}
		if regular >= 0 {
			a.Sizing.Regular = regular
		}
		if lotto >= 0 {
			a.Sizing.Lotto = lotto
		}
		if allowance >= 0 {
			a.MaxFillAllowancePct = allowance
		}
	}
}

func defaultConfigPath() string {
	if p := os.Getenv("ALERTER_CONFIG"); p != "" {
		return p
	}
	return "config/alerter.yaml"
}
