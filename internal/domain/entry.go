package domain

import (
	"math"
	"time"

	"github.com/shopspring/decimal"
)

type TimeEntry struct {
	ID                   int64           `json:"id"`
	UserID               int64           `json:"userId"`
	ProjectID            int64           `json:"projectId"`
	AssignmentID         *int64          `json:"assignmentId,omitempty"`
	StartTime            time.Time       `json:"startTime"`
	EndTime              *time.Time      `json:"endTime,omitempty"`         // nil while running
	DurationMinutes      *int64          `json:"durationMinutes,omitempty"` // set on stop
	IsBillable           bool            `json:"isBillable"`
	HourlyRate           decimal.Decimal `json:"hourlyRate"` // frozen at start
	WithholdingTaxRate   decimal.Decimal `json:"withholdingTaxRate"`
	Amount               decimal.Decimal `json:"amount"`
	WithholdingTaxAmount decimal.Decimal `json:"withholdingTaxAmount"`
	NetAmount            decimal.Decimal `json:"netAmount"`
	Description          string          `json:"description,omitempty"`
	Notes                string          `json:"notes,omitempty"`
	InvoiceID            *int64          `json:"invoiceId,omitempty"` // nil = unbilled, non-nil = locked
	CreatedAt            time.Time       `json:"createdAt"`
	UpdatedAt            time.Time       `json:"updatedAt"`
}

// NewTimeEntry creates a running, billable entry starting at now
func NewTimeEntry(userID, projectID int64, assignmentID *int64, hourlyRate, withholdingRate decimal.Decimal, now time.Time) *TimeEntry {
	return &TimeEntry{
		UserID:             userID,
		ProjectID:          projectID,
		AssignmentID:       assignmentID,
		StartTime:          now,
		IsBillable:         true,
		HourlyRate:         hourlyRate,
		WithholdingTaxRate: withholdingRate,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
}

// Duration returns the elapsed time, measured up to now for a running entry
func (e *TimeEntry) Duration(now time.Time) time.Duration {
	if e.EndTime == nil {
		return now.Sub(e.StartTime)
	}
	return e.EndTime.Sub(e.StartTime)
}

// Minutes returns the recorded duration in whole minutes, 0 while running
func (e *TimeEntry) Minutes() int64 {
	if e.DurationMinutes == nil {
		return 0
	}
	return *e.DurationMinutes
}

// Hours returns the recorded duration in hours
func (e *TimeEntry) Hours() decimal.Decimal {
	return HoursFromMinutes(e.Minutes())
}

// AccruedAmount is the gross value of a running entry so far.
func (e *TimeEntry) AccruedAmount(now time.Time) decimal.Decimal {
	if !e.IsRunning() {
		return e.Amount
	}
	return AmountForMinutes(roundMinutes(e.Duration(now)), e.HourlyRate)
}

// IsLocked returns true if the entry is attached to an invoice
func (e *TimeEntry) IsLocked() bool {
	return e.InvoiceID != nil
}

// IsRunning returns true if the entry has no end time
func (e *TimeEntry) IsRunning() bool {
	return e.EndTime == nil
}

// Stop sets the end time, the rounded duration and every amount field.
func (e *TimeEntry) Stop(endTime time.Time) {
	e.EndTime = &endTime
	minutes := roundMinutes(endTime.Sub(e.StartTime))
	e.DurationMinutes = &minutes
	e.CalculateAmounts()
	e.UpdatedAt = endTime
}

// CalculateAmounts derives gross, withholding and net from the recorded
// duration. Non-billable entries carry no withholding.
func (e *TimeEntry) CalculateAmounts() {
	e.Amount = AmountForMinutes(e.Minutes(), e.HourlyRate)
	if e.IsBillable {
		e.WithholdingTaxAmount = RoundMoney(e.Amount.Mul(e.WithholdingTaxRate))
	} else {
		e.WithholdingTaxAmount = decimal.Zero
	}
	e.NetAmount = e.Amount.Sub(e.WithholdingTaxAmount)
}

// Validate returns a *ValidationError if the entry is invalid
func (e *TimeEntry) Validate() error {
	v := NewValidationError()
	if e.UserID <= 0 {
		v.Add("userId", "user ID is required")
	}
	if e.ProjectID <= 0 {
		v.Add("projectId", "project ID is required")
	}
	if e.HourlyRate.IsNegative() {
		v.Add("hourlyRate", "hourly rate cannot be negative")
	}
	if e.WithholdingTaxRate.IsNegative() || e.WithholdingTaxRate.GreaterThan(decimal.NewFromInt(1)) {
		v.Add("withholdingTaxRate", "withholding tax rate must be between 0 and 1")
	}
	if e.StartTime.IsZero() {
		v.Add("startTime", "start time is required")
	}
	if e.EndTime != nil && !e.EndTime.After(e.StartTime) {
		v.Add("endTime", "end time must be after start time")
	}
	return v.Err()
}

func roundMinutes(d time.Duration) int64 {
	if d <= 0 {
		return 0
	}
	return int64(math.Round(d.Minutes()))
}
