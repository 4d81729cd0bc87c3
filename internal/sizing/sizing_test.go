package sizing

import (
	"testing"

	"alerter/internal/domain"
)

func TestContracts(t *testing.T) {
	p := Policy{Light: 2, Regular: 3, Lotto: 2}

	tests := []struct {
		tier domain.SizingTier
		want int
	}{
		{domain.TierLight, 2},
		{domain.TierRegular, 3},
		{domain.TierLotto, 2},
		{domain.TierDefault, 3}, // default falls back to regular
	}
	for _, tt := range tests {
		if got := p.Contracts(tt.tier); got != tt.want {
			t.Errorf("Contracts(%q) = %d, want %d", tt.tier, got, tt.want)
		}
	}
}

func TestContractsZeroMeansSkip(t *testing.T) {
	p := Policy{Light: 0, Regular: 3, Lotto: 1}
	if got := p.Contracts(domain.TierLight); got != 0 {
		t.Errorf("Contracts(light) = %d, want 0", got)
	}
}

func TestMaxFill(t *testing.T) {
	p := Policy{MaxFillAllowancePct: 0.15}

	// 4.20 * 1.15 = 4.83, cent rounding.
	if got := p.MaxFill(4.20, 100); got != 4.83 {
		t.Errorf("MaxFill(4.20) = %g, want 4.83", got)
	}
	// Quarter-point rounding for index futures ticks.
	if got := p.MaxFill(5.75, 4); got != 6.50 {
		t.Errorf("MaxFill(5.75, 4) = %g, want 6.50", got)
	}
}
