package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"alerter/internal/domain"
)

func TestJournalRecordAndRecent(t *testing.T) {
	j, err := OpenJournal(filepath.Join(t.TempDir(), "journal.db"))
	if err != nil {
		t.Fatalf("OpenJournal: %v", err)
	}
	defer j.Close()

	ctx := context.Background()
	strike := 4105.0
	fill := 4.20

	outcomes := []domain.Outcome{
		{
			Account: "ibkr-main",
			Status:  domain.OutcomeFilled,
			Intent: domain.TradeIntent{
				Symbol:       "SPX",
				Strike:       &strike,
				PutCall:      domain.Put,
				Expiry:       time.Date(2023, 4, 10, 0, 0, 0, 0, time.UTC),
				ExpectedFill: &fill,
				Tier:         domain.TierLight,
			},
			Contracts: 2,
			MaxFill:   4.83,
			OrderID:   "ib-1001",
			At:        time.Date(2023, 4, 10, 14, 31, 0, 0, time.UTC),
		},
		{
			Account: "alpaca-paper",
			Status:  domain.OutcomeFailed,
			Err:     errors.New("gateway down"),
			At:      time.Date(2023, 4, 10, 14, 32, 0, 0, time.UTC),
		},
	}
	for _, o := range outcomes {
		if err := j.Record(ctx, "Light SPX 4105P fill 4.20 @here", o); err != nil {
			t.Fatalf("Record(%s): %v", o.Account, err)
		}
	}

	entries, err := j.Recent(ctx, 10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("entries = %d, want 2", len(entries))
	}

	// Newest first.
	if entries[0].Account != "alpaca-paper" {
		t.Errorf("entries[0].Account = %q, want alpaca-paper", entries[0].Account)
	}
	if entries[0].Error != "gateway down" {
		t.Errorf("entries[0].Error = %q, want gateway down", entries[0].Error)
	}

	filled := entries[1]
	if filled.Status != string(domain.OutcomeFilled) {
		t.Errorf("Status = %q, want filled", filled.Status)
	}
	if filled.Symbol != "SPX" || filled.Contracts != 2 || filled.OrderID != "ib-1001" {
		t.Errorf("entry = %+v", filled)
	}
	if !filled.At.Equal(time.Date(2023, 4, 10, 14, 31, 0, 0, time.UTC)) {
		t.Errorf("At = %v", filled.At)
	}
}

func TestJournalRecentLimit(t *testing.T) {
	j, err := OpenJournal(filepath.Join(t.TempDir(), "journal.db"))
	if err != nil {
		t.Fatalf("OpenJournal: %v", err)
	}
	defer j.Close()

	ctx := context.Background()
	for i := 0; i < 5; i++ {
		o := domain.Outcome{Account: "a", Status: domain.OutcomeSkippedDisabled, At: time.Now()}
		if err := j.Record(ctx, "msg", o); err != nil {
			t.Fatal(err)
		}
	}

	entries, err := j.Recent(ctx, 3)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 3 {
		t.Errorf("entries = %d, want 3", len(entries))
	}
}
