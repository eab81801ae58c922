package domain

import (
	"math"
	"time"

	"github.com/shopspring/decimal"
)

// Progress is the read model shared by projects and assignments.
type Progress struct {
	Status               string          `json:"status"`
	EstimatedHours       decimal.Decimal `json:"estimatedHours"`
	ActualHours          decimal.Decimal `json:"actualHours"`
	RemainingHours       decimal.Decimal `json:"remainingHours"`
	CompletionPercentage int             `json:"completionPercentage"`
	IsOverdue            bool            `json:"isOverdue"`
	Deadline             *time.Time      `json:"deadline,omitempty"`
	DaysRemaining        *int            `json:"daysRemaining,omitempty"`
}

func newProgress(status string, estimated, actual decimal.Decimal, deadline *time.Time, overdue bool, now time.Time) Progress {
	p := Progress{
		Status:               status,
		EstimatedHours:       estimated,
		ActualHours:          actual,
		RemainingHours:       decimal.Max(decimal.Zero, estimated.Sub(actual)),
		CompletionPercentage: CompletionPercentage(actual, estimated),
		IsOverdue:            overdue,
		Deadline:             deadline,
	}
	if deadline != nil {
		days := DaysBetween(now, *deadline)
		p.DaysRemaining = &days
	}
	return p
}

// DaysBetween counts whole days from now to t, truncated toward zero.
func DaysBetween(now, t time.Time) int {
	return int(math.Trunc(t.Sub(now).Hours() / 24))
}
