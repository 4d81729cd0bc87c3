package store

import (
	"context"
	"testing"
	"time"

	"alerter/internal/domain"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestBarsRoundtrip(t *testing.T) {
	s := NewParquetStore(t.TempDir())
	ctx := context.Background()

	bars := []domain.Bar{
		{Symbol: "SPY", Timestamp: day(2023, 4, 10), Open: 407.1, High: 409.8, Low: 406.5, Close: 408.5, Volume: 1000, TradeCount: 50, VWAP: 408.0},
		{Symbol: "SPY", Timestamp: day(2023, 4, 11), Open: 408.5, High: 410.2, Low: 408.0, Close: 409.9, Volume: 1200, TradeCount: 60, VWAP: 409.2},
	}
	if err := s.WriteBars(ctx, bars); err != nil {
		t.Fatalf("WriteBars: %v", err)
	}

	got, err := s.ReadBars(ctx, "SPY", day(2023, 4, 1), day(2023, 4, 30))
	if err != nil {
		t.Fatalf("ReadBars: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("bars = %d, want 2", len(got))
	}
	if got[0].Close != 408.5 || got[1].Close != 409.9 {
		t.Errorf("closes = %g, %g", got[0].Close, got[1].Close)
	}
}

func TestBarsMergeDeduplicates(t *testing.T) {
	s := NewParquetStore(t.TempDir())
	ctx := context.Background()

	first := []domain.Bar{
		{Symbol: "QQQ", Timestamp: day(2023, 4, 10), Close: 315.0},
		{Symbol: "QQQ", Timestamp: day(2023, 4, 11), Close: 316.0},
	}
	if err := s.WriteBars(ctx, first); err != nil {
		t.Fatal(err)
	}

	// Re-download overlaps one day with a corrected close; new data wins.
	second := []domain.Bar{
		{Symbol: "QQQ", Timestamp: day(2023, 4, 11), Close: 316.5},
		{Symbol: "QQQ", Timestamp: day(2023, 4, 12), Close: 317.0},
	}
	if err := s.WriteBars(ctx, second); err != nil {
		t.Fatal(err)
	}

	got, err := s.ReadBars(ctx, "QQQ", day(2023, 4, 1), day(2023, 4, 30))
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 3 {
		t.Fatalf("bars = %d, want 3 after dedupe", len(got))
	}
	if got[1].Close != 316.5 {
		t.Errorf("overlapping bar Close = %g, want corrected 316.5", got[1].Close)
	}
}

func TestBarsSplitAcrossYears(t *testing.T) {
	s := NewParquetStore(t.TempDir())
	ctx := context.Background()

	bars := []domain.Bar{
		{Symbol: "SPY", Timestamp: day(2022, 12, 30), Close: 382.4},
		{Symbol: "SPY", Timestamp: day(2023, 1, 3), Close: 380.8},
	}
	if err := s.WriteBars(ctx, bars); err != nil {
		t.Fatal(err)
	}

	got, err := s.ReadBars(ctx, "SPY", day(2022, 12, 1), day(2023, 1, 31))
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("bars = %d, want 2 across the year boundary", len(got))
	}
}

func TestListSymbols(t *testing.T) {
	s := NewParquetStore(t.TempDir())
	ctx := context.Background()

	if err := s.WriteBars(ctx, []domain.Bar{
		{Symbol: "spy", Timestamp: day(2023, 4, 10), Close: 408.5},
		{Symbol: "QQQ", Timestamp: day(2023, 4, 10), Close: 315.0},
	}); err != nil {
		t.Fatal(err)
	}

	symbols, err := s.ListSymbols(ctx)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"QQQ", "SPY"}
	if len(symbols) != 2 || symbols[0] != want[0] || symbols[1] != want[1] {
		t.Errorf("symbols = %v, want %v", symbols, want)
	}

	empty := NewParquetStore(t.TempDir())
	symbols, err = empty.ListSymbols(ctx)
	if err != nil || symbols != nil {
		t.Errorf("empty store: symbols = %v, err = %v", symbols, err)
	}
}
