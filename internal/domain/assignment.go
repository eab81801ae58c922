package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type AssignmentStatus string

const (
	AssignmentStatusNotStarted AssignmentStatus = "not_started"
	AssignmentStatusInProgress AssignmentStatus = "in_progress"
	AssignmentStatusCompleted  AssignmentStatus = "completed"
	AssignmentStatusOnHold     AssignmentStatus = "on_hold"
	AssignmentStatusCancelled  AssignmentStatus = "cancelled"
)

func (s AssignmentStatus) Valid() bool {
	switch s {
	case AssignmentStatusNotStarted, AssignmentStatusInProgress, AssignmentStatusCompleted,
		AssignmentStatusOnHold, AssignmentStatusCancelled:
		return true
	}
	return false
}

func (s AssignmentStatus) IsClosed() bool {
	return s == AssignmentStatusCompleted || s == AssignmentStatusCancelled
}

type Assignment struct {
	ID             int64            `json:"id"`
	ProjectID      int64            `json:"projectId"`
	UserID         int64            `json:"userId"`
	TaskName       string           `json:"taskName"`
	Description    string           `json:"description,omitempty"`
	StartDate      time.Time        `json:"startDate"`
	DueDate        *time.Time       `json:"dueDate,omitempty"`
	EstimatedHours decimal.Decimal  `json:"estimatedHours"`
	ActualHours    decimal.Decimal  `json:"actualHours"`
	Status         AssignmentStatus `json:"status"`
	Priority       int              `json:"priority"`
	CompletedAt    *time.Time       `json:"completedAt,omitempty"`
	CreatedAt      time.Time        `json:"createdAt"`
	UpdatedAt      time.Time        `json:"updatedAt"`
}

// NewAssignment creates a not-started assignment on a project
func NewAssignment(userID, projectID int64, taskName string, startDate, now time.Time) *Assignment {
	return &Assignment{
		UserID:    userID,
		ProjectID: projectID,
		TaskName:  strings.TrimSpace(taskName),
		StartDate: startDate,
		Status:    AssignmentStatusNotStarted,
		Priority:  DefaultPriority,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func (a *Assignment) Validate() error {
	v := NewValidationError()
	if a.TaskName == "" {
		v.Add("taskName", "task name is required")
	}
	if a.ProjectID <= 0 {
		v.Add("projectId", "project ID is required")
	}
	if a.StartDate.IsZero() {
		v.Add("startDate", "start date is required")
	}
	if a.DueDate != nil && a.DueDate.Before(a.StartDate) {
		v.Add("dueDate", "due date cannot be before the start date")
	}
	if a.Priority < MinPriority || a.Priority > MaxPriority {
		v.Add("priority", "priority must be between 1 and 5")
	}
	if a.EstimatedHours.IsNegative() {
		v.Add("estimatedHours", "cannot be negative")
	}
	if a.ActualHours.IsNegative() {
		v.Add("actualHours", "cannot be negative")
	}
	if !a.Status.Valid() {
		v.Add("status", "unknown status")
	}
	return v.Err()
}

func (a *Assignment) CompletionPercentage() int {
	return CompletionPercentage(a.ActualHours, a.EstimatedHours)
}

func (a *Assignment) IsOverdue(now time.Time) bool {
	return a.DueDate != nil && a.DueDate.Before(now) && a.Status != AssignmentStatusCompleted
}

func (a *Assignment) Progress(now time.Time) Progress {
	return newProgress(string(a.Status), a.EstimatedHours, a.ActualHours, a.DueDate, a.IsOverdue(now), now)
}

func (a *Assignment) Start(now time.Time) error {
	if a.Status != AssignmentStatusNotStarted && a.Status != AssignmentStatusOnHold {
		return a.stateErr("start")
	}
	return a.set(AssignmentStatusInProgress, now)
}

func (a *Assignment) Pause(now time.Time) error {
	if a.Status != AssignmentStatusInProgress {
		return a.stateErr("pause")
	}
	return a.set(AssignmentStatusOnHold, now)
}

func (a *Assignment) Complete(now time.Time) error {
	if a.Status.IsClosed() {
		return a.stateErr("complete")
	}
	a.CompletedAt = &now
	return a.set(AssignmentStatusCompleted, now)
}

func (a *Assignment) Cancel(now time.Time) error {
	if a.Status.IsClosed() {
		return a.stateErr("cancel")
	}
	return a.set(AssignmentStatusCancelled, now)
}

func (a *Assignment) ExtendDeadline(due, now time.Time) error {
	if due.Before(a.StartDate) {
		return Invalid("dueDate", "new deadline cannot be before the start date")
	}
	a.DueDate = &due
	a.UpdatedAt = now
	return nil
}

// UpdateProgress overwrites ActualHours
func (a *Assignment) UpdateProgress(actualHours decimal.Decimal, now time.Time) error {
	if actualHours.IsNegative() {
		return Invalid("actualHours", "actual hours cannot be negative")
	}
	a.ActualHours = RoundMoney(actualHours)
	a.UpdatedAt = now
	return nil
}

func (a *Assignment) MoveTrackedMinutes(before, after int64, now time.Time) {
	a.ActualHours = moveHours(a.ActualHours, before, after)
	a.UpdatedAt = now
}

func (a *Assignment) set(s AssignmentStatus, now time.Time) error {
	a.Status = s
	a.UpdatedAt = now
	return nil
}

func (a *Assignment) stateErr(action string) error {
	return &InvalidStateError{Entity: "assignment", Status: string(a.Status), Action: action}
}
