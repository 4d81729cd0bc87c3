// Package intent turns free-text trade-alert messages into structured trade
// intents. Messages are split on whitespace and each token is classified by
// an ordered rule table; later tokens overwrite fields set by earlier ones,
// so the effective semantics are last-match-wins per field.
package intent

import (
	"strconv"
	"strings"
	"time"

	"alerter/internal/domain"
)

// ExpiryMode controls the default expiry assigned when a message carries no
// date token.
type ExpiryMode string

const (
	// SameDay defaults the expiry to the processing date (0DTE alerts).
	SameDay ExpiryMode = "same_day"
	// NextDay defaults the expiry to the next calendar day, for feeds where
	// same-day intents have already passed by processing time.
	NextDay ExpiryMode = "next_day"
)

// Whitelist is the set of recognized underlying symbols, keyed upper-case.
type Whitelist map[string]struct{}

// NewWhitelist builds a Whitelist from a symbol list, case-insensitively.
func NewWhitelist(symbols []string) Whitelist {
	wl := make(Whitelist, len(symbols))
	for _, s := range symbols {
		wl[strings.ToUpper(s)] = struct{}{}
	}
	return wl
}

// Contains reports membership, ignoring case.
func (wl Whitelist) Contains(symbol string) bool {
	_, ok := wl[strings.ToUpper(symbol)]
	return ok
}

// DefaultSymbols is the stock whitelist used when an account configures none.
var DefaultSymbols = []string{
	"ES", "NQ", "SPX", "SPY", "QQQ", "MSFT", "AAPL", "AMD", "TSLA", "AMZN",
	"GOOG", "GOOGL", "FB", "NVDA", "NFLX", "INTC", "CSCO", "ADBE", "BABA",
	"BIDU", "PYPL", "MA",
}

// Parser classifies message tokens against a symbol whitelist. Now is the
// clock used for default expiries and date-token years; tests override it.
type Parser struct {
	Whitelist Whitelist
	Mode      ExpiryMode
	Now       func() time.Time
}

// New creates a Parser. A nil or empty whitelist falls back to
// DefaultSymbols.
func New(wl Whitelist, mode ExpiryMode) *Parser {
	if len(wl) == 0 {
		wl = NewWhitelist(DefaultSymbols)
	}
	return &Parser{Whitelist: wl, Mode: mode, Now: time.Now}
}

// rule attempts to classify one token. It returns true when the token was
// consumed; evaluation for that token stops at the first matching rule.
// Rules may read the intent built so far: the bare-integer rule only fires
// while the strike is unset, otherwise the token falls through to the
// decimal-fill rule. That ordering is load-bearing.
type rule struct {
	name  string
	apply func(p *Parser, tok string, ti *domain.TradeIntent) bool
}

// rules is evaluated strictly in order for every token.
var rules = []rule{
	{"keyword", (*Parser).matchKeyword},
	{"symbol", (*Parser).matchSymbol},
	{"strike-suffix", (*Parser).matchStrikeSuffix},
	{"bare-strike", (*Parser).matchBareStrike},
	{"fill", (*Parser).matchFill},
	{"dollar-fill", (*Parser).matchDollarFill},
	{"date", (*Parser).matchDate},
}

// Parse tokenizes message and folds the rule table over its tokens. The
// returned intent may be incomplete; callers must check Actionable before
// acting on it. Unrecognized tokens are ignored, never errors.
func (p *Parser) Parse(message string) domain.TradeIntent {
	now := p.Now()
	expiry := now
	if p.Mode == NextDay {
		expiry = now.AddDate(0, 0, 1)
	}
	ti := domain.TradeIntent{
		Expiry: midnight(expiry),
		Tier:   domain.TierDefault,
	}

	for _, tok := range strings.Fields(message) {
		for _, r := range rules {
			if r.apply(p, tok, &ti) {
				break
			}
		}
	}
	return ti
}

func (p *Parser) matchKeyword(tok string, ti *domain.TradeIntent) bool {
	switch strings.ToLower(tok) {
	case "light":
		ti.Tier = domain.TierLight
	case "regular":
		ti.Tier = domain.TierRegular
	case "lotto":
		ti.Tier = domain.TierLotto
	case "call", "calls":
		ti.PutCall = domain.Call
	case "put", "puts":
		ti.PutCall = domain.Put
	default:
		return false
	}
	return true
}

func (p *Parser) matchSymbol(tok string, ti *domain.TradeIntent) bool {
	if !p.Whitelist.Contains(tok) {
		return false
	}
	ti.Symbol = strings.ToUpper(tok)
	return true
}

// matchStrikeSuffix handles tokens like "4105P" or "280c": digits followed
// by a put/call letter set both fields at once.
func (p *Parser) matchStrikeSuffix(tok string, ti *domain.TradeIntent) bool {
	if len(tok) < 2 {
		return false
	}
	body, suffix := tok[:len(tok)-1], tok[len(tok)-1]
	if !allDigits(body) {
		return false
	}
	var pc domain.PutCall
	switch suffix {
	case 'c', 'C':
		pc = domain.Call
	case 'p', 'P':
		pc = domain.Put
	default:
		return false
	}
	strike, err := strconv.ParseFloat(body, 64)
	if err != nil {
		return false
	}
	ti.Strike = &strike
	ti.PutCall = pc
	return true
}

// matchBareStrike fires only while the strike is unset, so a plain number
// after the strike is known falls through to the fill rule instead.
func (p *Parser) matchBareStrike(tok string, ti *domain.TradeIntent) bool {
	if ti.Strike != nil || !allDigits(tok) {
		return false
	}
	strike, err := strconv.ParseFloat(tok, 64)
	if err != nil {
		return false
	}
	ti.Strike = &strike
	return true
}

func (p *Parser) matchFill(tok string, ti *domain.TradeIntent) bool {
	if !numericish(tok) {
		return false
	}
	fill, err := strconv.ParseFloat(tok, 64)
	if err != nil {
		return false
	}
	ti.ExpectedFill = &fill
	return true
}

func (p *Parser) matchDollarFill(tok string, ti *domain.TradeIntent) bool {
	if len(tok) < 2 || tok[0] != '$' || !numericish(tok[1:]) {
		return false
	}
	fill, err := strconv.ParseFloat(tok[1:], 64)
	if err != nil {
		return false
	}
	ti.ExpectedFill = &fill
	return true
}

// matchDate handles "13/April" and "May/5" style tokens. An unparseable
// month name clears the expiry rather than erroring.
func (p *Parser) matchDate(tok string, ti *domain.TradeIntent) bool {
	day, name, ok := splitDateToken(tok)
	if !ok {
		return false
	}
	ti.Expiry = p.flexibleDate(day, name)
	return true
}

// flexibleDate resolves a day number and a month name to a date in the
// current year, biased day-first per the feed's conventions. Unknown month
// names yield the zero time.
func (p *Parser) flexibleDate(day int, monthName string) time.Time {
	month, ok := monthByName(monthName)
	if !ok || day < 1 || day > 31 {
		return time.Time{}
	}
	now := p.Now()
	return time.Date(now.Year(), month, day, 0, 0, 0, 0, now.Location())
}

// ---------------------------------------------------------------------------
// Token helpers
// ---------------------------------------------------------------------------

// splitDateToken recognizes "<digits>/<alpha>" and "<alpha>/<digits>" with a
// month name of at least two letters.
func splitDateToken(tok string) (day int, monthName string, ok bool) {
	parts := strings.SplitN(tok, "/", 2)
	if len(parts) != 2 {
		return 0, "", false
	}
	a, b := parts[0], parts[1]
	switch {
	case allDigits(a) && alphaWord(b):
		day, _ = strconv.Atoi(a)
		return day, b, true
	case alphaWord(a) && allDigits(b):
		day, _ = strconv.Atoi(b)
		return day, a, true
	}
	return 0, "", false
}

var months = map[string]time.Month{
	"january": time.January, "february": time.February, "march": time.March,
	"april": time.April, "may": time.May, "june": time.June,
	"july": time.July, "august": time.August, "september": time.September,
	"october": time.October, "november": time.November, "december": time.December,
}

// monthByName matches a full month name or an unambiguous prefix of at
// least three letters ("apr", "sept"), ignoring case.
func monthByName(name string) (time.Month, bool) {
	lower := strings.ToLower(name)
	if m, ok := months[lower]; ok {
		return m, true
	}
	if len(lower) < 3 {
		return 0, false
	}
	var found time.Month
	var hits int
	for full, m := range months {
		if strings.HasPrefix(full, lower) {
			found = m
			hits++
		}
	}
	if hits == 1 {
		return found, true
	}
	return 0, false
}

func allDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// numericish matches the original fill pattern: digits and dots only, so
// both "2.50" and bare "315" qualify.
func numericish(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if (r < '0' || r > '9') && r != '.' {
			return false
		}
	}
	return true
}

func alphaWord(s string) bool {
	if len(s) < 2 {
		return false
	}
	for _, r := range s {
		if !('a' <= r && r <= 'z') && !('A' <= r && r <= 'Z') {
			return false
		}
	}
	return true
}

func midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
