package domain

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestTimeEntryStop_BillableAmounts(t *testing.T) {
	start := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	e := NewTimeEntry(1, 1, nil, dec("60"), DefaultWithholdingTaxRate, start)

	e.Stop(start.Add(90 * time.Minute))

	if e.DurationMinutes == nil || *e.DurationMinutes != 90 {
		t.Fatalf("expected 90 minutes, got %v", e.DurationMinutes)
	}
	if !e.Amount.Equal(dec("90.00")) {
		t.Fatalf("expected amount 90.00, got %s", e.Amount)
	}
	if !e.WithholdingTaxAmount.Equal(dec("18.00")) {
		t.Fatalf("expected withholding 18.00, got %s", e.WithholdingTaxAmount)
	}
	if !e.NetAmount.Equal(dec("72.00")) {
		t.Fatalf("expected net 72.00, got %s", e.NetAmount)
	}
	if e.IsRunning() {
		t.Fatalf("expected entry to be stopped")
	}
}

func TestTimeEntryStop_NonBillableHasNoWithholding(t *testing.T) {
	start := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	e := NewTimeEntry(1, 1, nil, dec("80"), DefaultWithholdingTaxRate, start)
	e.IsBillable = false

	e.Stop(start.Add(45 * time.Minute))

	if !e.Amount.Equal(dec("60.00")) {
		t.Fatalf("expected amount 60.00, got %s", e.Amount)
	}
	if !e.WithholdingTaxAmount.IsZero() {
		t.Fatalf("expected no withholding, got %s", e.WithholdingTaxAmount)
	}
	if !e.NetAmount.Equal(e.Amount) {
		t.Fatalf("expected net == amount, got %s", e.NetAmount)
	}
}

func TestTimeEntryStop_RoundsToNearestMinute(t *testing.T) {
	start := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	tests := []struct {
		elapsed time.Duration
		want    int64
	}{
		{29 * time.Second, 0},
		{30 * time.Second, 1},
		{10*time.Minute + 29*time.Second, 10},
		{10*time.Minute + 31*time.Second, 11},
	}
	for _, tt := range tests {
		e := NewTimeEntry(1, 1, nil, dec("60"), DefaultWithholdingTaxRate, start)
		e.Stop(start.Add(tt.elapsed))
		if *e.DurationMinutes != tt.want {
			t.Errorf("elapsed %s: expected %d minutes, got %d", tt.elapsed, tt.want, *e.DurationMinutes)
		}
	}
}

func TestTimeEntryAmount_ThirdOfAnHourIsExact(t *testing.T) {
	start := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	e := NewTimeEntry(1, 1, nil, dec("100"), DefaultWithholdingTaxRate, start)
	e.Stop(start.Add(20 * time.Minute))

	if !e.Amount.Equal(dec("33.33")) {
		t.Fatalf("expected 33.33, got %s", e.Amount)
	}
	if !e.Amount.Equal(e.WithholdingTaxAmount.Add(e.NetAmount)) {
		t.Fatalf("expected gross = withholding + net")
	}
}

func TestTimeEntryValidate(t *testing.T) {
	start := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	e := NewTimeEntry(1, 0, nil, dec("-1"), DefaultWithholdingTaxRate, start)
	end := start.Add(-time.Minute)
	e.EndTime = &end

	err := e.Validate()
	v, ok := err.(*ValidationError)
	if !ok {
		t.Fatalf("expected *ValidationError, got %v", err)
	}
	for _, field := range []string{"projectId", "hourlyRate", "endTime"} {
		if _, ok := v.Fields[field]; !ok {
			t.Errorf("expected error for %s", field)
		}
	}
}
