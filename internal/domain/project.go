package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type ProjectStatus string

const (
	ProjectStatusPlanning   ProjectStatus = "planning"
	ProjectStatusInProgress ProjectStatus = "in_progress"
	ProjectStatusOnHold     ProjectStatus = "on_hold"
	ProjectStatusCompleted  ProjectStatus = "completed"
	ProjectStatusCancelled  ProjectStatus = "cancelled"
)

// Valid reports whether s is a known project status
func (s ProjectStatus) Valid() bool {
	switch s {
	case ProjectStatusPlanning, ProjectStatusInProgress, ProjectStatusOnHold,
		ProjectStatusCompleted, ProjectStatusCancelled:
		return true
	}
	return false
}

// IsClosed reports a terminal status
func (s ProjectStatus) IsClosed() bool {
	return s == ProjectStatusCompleted || s == ProjectStatusCancelled
}

const (
	MinPriority     = 1
	MaxPriority     = 5
	DefaultPriority = 3
)

type Project struct {
	ID             int64           `json:"id"`
	ClientID       int64           `json:"clientId"`
	UserID         int64           `json:"userId"`
	Name           string          `json:"name"`
	Description    string          `json:"description,omitempty"`
	StartDate      time.Time       `json:"startDate"`
	EndDate        *time.Time      `json:"endDate,omitempty"`
	Budget         decimal.Decimal `json:"budget"`
	HourlyRate     decimal.Decimal `json:"hourlyRate"`
	EstimatedHours decimal.Decimal `json:"estimatedHours"`
	ActualHours    decimal.Decimal `json:"actualHours"`
	ActualCost     decimal.Decimal `json:"actualCost"`
	Status         ProjectStatus   `json:"status"`
	Priority       int             `json:"priority"`
	CompletedAt    *time.Time      `json:"completedAt,omitempty"`
	CreatedAt      time.Time       `json:"createdAt"`
	UpdatedAt      time.Time       `json:"updatedAt"`
}

// NewProject creates a project in planning
func NewProject(userID, clientID int64, name string, startDate time.Time, now time.Time) *Project {
	return &Project{
		UserID:    userID,
		ClientID:  clientID,
		Name:      strings.TrimSpace(name),
		StartDate: startDate,
		Status:    ProjectStatusPlanning,
		Priority:  DefaultPriority,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Validate returns a *ValidationError if the project is invalid
func (p *Project) Validate() error {
	v := NewValidationError()
	if p.Name == "" {
		v.Add("name", "project name is required")
	}
	if p.ClientID <= 0 {
		v.Add("clientId", "client ID is required")
	}
	if p.StartDate.IsZero() {
		v.Add("startDate", "start date is required")
	}
	if p.EndDate != nil && p.EndDate.Before(p.StartDate) {
		v.Add("endDate", "end date cannot be before the start date")
	}
	if p.Priority < MinPriority || p.Priority > MaxPriority {
		v.Add("priority", "priority must be between 1 and 5")
	}
	for field, d := range map[string]decimal.Decimal{
		"budget":         p.Budget,
		"hourlyRate":     p.HourlyRate,
		"estimatedHours": p.EstimatedHours,
		"actualHours":    p.ActualHours,
		"actualCost":     p.ActualCost,
	} {
		if d.IsNegative() {
			v.Add(field, "cannot be negative")
		}
	}
	if !p.Status.Valid() {
		v.Add("status", "unknown status")
	}
	return v.Err()
}

// CompletionPercentage is actual over estimated hours, clamped to [0,100]
func (p *Project) CompletionPercentage() int {
	return CompletionPercentage(p.ActualHours, p.EstimatedHours)
}

// RemainingBudget is budget minus actual cost
func (p *Project) RemainingBudget() decimal.Decimal {
	return p.Budget.Sub(p.ActualCost)
}

// IsOverdue reports an end date in the past on a project not yet completed
func (p *Project) IsOverdue(now time.Time) bool {
	return p.EndDate != nil && p.EndDate.Before(now) && p.Status != ProjectStatusCompleted
}

// Progress returns the derived progress view
func (p *Project) Progress(now time.Time) Progress {
	return newProgress(string(p.Status), p.EstimatedHours, p.ActualHours, p.EndDate, p.IsOverdue(now), now)
}

// Start moves a planned or paused project into progress
func (p *Project) Start(now time.Time) error {
	if p.Status != ProjectStatusPlanning && p.Status != ProjectStatusOnHold {
		return p.stateErr("start")
	}
	return p.set(ProjectStatusInProgress, now)
}

// Pause puts an in-progress project on hold
func (p *Project) Pause(now time.Time) error {
	if p.Status != ProjectStatusInProgress {
		return p.stateErr("pause")
	}
	return p.set(ProjectStatusOnHold, now)
}

// Complete closes the project, stamping CompletedAt and, if unset, EndDate.
func (p *Project) Complete(now time.Time) error {
	if p.Status.IsClosed() {
		return p.stateErr("complete")
	}
	p.CompletedAt = &now
	if p.EndDate == nil {
		end := now
		p.EndDate = &end
	}
	return p.set(ProjectStatusCompleted, now)
}

func (p *Project) Cancel(now time.Time) error {
	if p.Status.IsClosed() {
		return p.stateErr("cancel")
	}
	return p.set(ProjectStatusCancelled, now)
}

// ExtendDeadline moves the end date; it may not precede the start date.
func (p *Project) ExtendDeadline(end, now time.Time) error {
	if end.Before(p.StartDate) {
		return Invalid("endDate", "new deadline cannot be before the start date")
	}
	p.EndDate = &end
	p.UpdatedAt = now
	return nil
}

func (p *Project) UpdateBudget(budget decimal.Decimal, now time.Time) error {
	if budget.IsNegative() {
		return Invalid("budget", "budget cannot be negative")
	}
	p.Budget = RoundMoney(budget)
	p.UpdatedAt = now
	return nil
}

func (p *Project) UpdateCosts(actualCost decimal.Decimal, now time.Time) error {
	if actualCost.IsNegative() {
		return Invalid("actualCost", "actual cost cannot be negative")
	}
	p.ActualCost = RoundMoney(actualCost)
	p.UpdatedAt = now
	return nil
}

// MoveTrackedMinutes shifts ActualHours as the project's tracked total goes
// from before to after minutes. Each total is rounded once, so many short
// entries add up to exactly their combined duration. Never below zero.
func (p *Project) MoveTrackedMinutes(before, after int64, now time.Time) {
	p.ActualHours = moveHours(p.ActualHours, before, after)
	p.UpdatedAt = now
}

func (p *Project) set(s ProjectStatus, now time.Time) error {
	p.Status = s
	p.UpdatedAt = now
	return nil
}

func (p *Project) stateErr(action string) error {
	return &InvalidStateError{Entity: "project", Status: string(p.Status), Action: action}
}
