package discount

import (
	"testing"
	"time"
)

func TestApplyPercentage(t *testing.T) {
	rule := Rule{Code: "TEN", IsPercentage: true, Value: 10}
	if got := rule.Apply(10_000); got != 1000 {
		t.Fatalf("expected 1000, got %d", got)
	}
	// half-away-from-zero on odd subtotals
	if got := rule.Apply(7550); got != 755 {
		t.Fatalf("expected 755, got %d", got)
	}
	if got := rule.Apply(5); got != 1 {
		t.Fatalf("expected 1 cent (0.5 rounds away from zero), got %d", got)
	}
}

func TestApplyFixed(t *testing.T) {
	rule := Rule{Code: "FLAT", IsPercentage: false, Value: 30}
	if got := rule.Apply(2500); got != 3000 {
		t.Fatalf("expected raw fixed amount 3000, got %d", got)
	}
}

func TestApplyEmptyRule(t *testing.T) {
	if got := (Rule{}).Apply(10_000); got != 0 {
		t.Fatalf("empty rule must apply zero, got %d", got)
	}
}

func TestRecordValidate(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)
	max := int32(5)

	cases := []struct {
		name     string
		rec      Record
		subtotal int64
		want     error
	}{
		{"unpublished", Record{Code: "A", Published: false}, 1000, ErrNotFound},
		{"expired", Record{Code: "A", Published: true, ExpiresAt: &past}, 1000, ErrExpired},
		{"not yet expired", Record{Code: "A", Published: true, ExpiresAt: &future}, 1000, nil},
		{"usage exhausted", Record{Code: "A", Published: true, UsageCount: 5, MaxUsage: &max}, 1000, ErrUsageExceeded},
		{"usage under cap", Record{Code: "A", Published: true, UsageCount: 4, MaxUsage: &max}, 1000, nil},
		{"min spend unmet", Record{Code: "A", Published: true, MinSubtotal: 2000}, 1999, ErrMinimumSpendUnmet},
		{"min spend met", Record{Code: "A", Published: true, MinSubtotal: 2000}, 2000, nil},
	}
	for _, tc := range cases {
		if got := tc.rec.Validate(now, tc.subtotal); got != tc.want {
			t.Fatalf("%s: got %v, want %v", tc.name, got, tc.want)
		}
	}
}
