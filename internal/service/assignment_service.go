package service

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/andy/billable/internal/domain"
	"github.com/andy/billable/internal/repository"
)

// AssignmentInput holds the fields of a new assignment
type AssignmentInput struct {
	ProjectID      int64
	TaskName       string
	Description    string
	StartDate      *time.Time // defaults to today
	DueDate        *time.Time
	EstimatedHours decimal.Decimal
	Priority       int
}

// AssignmentService manages tasks within a project
type AssignmentService interface {
	Create(ctx context.Context, userID int64, in AssignmentInput) (*domain.Assignment, error)
	Get(ctx context.Context, userID, assignmentID int64) (*domain.Assignment, error)
	ListByProject(ctx context.Context, userID, projectID int64) ([]*domain.Assignment, error)

	Start(ctx context.Context, userID, assignmentID int64) (*domain.Assignment, error)
	Pause(ctx context.Context, userID, assignmentID int64) (*domain.Assignment, error)
	Complete(ctx context.Context, userID, assignmentID int64) (*domain.Assignment, error)
	Cancel(ctx context.Context, userID, assignmentID int64) (*domain.Assignment, error)

	ExtendDeadline(ctx context.Context, userID, assignmentID int64, dueDate time.Time) (*domain.Assignment, error)
	// UpdateProgress overwrites the recorded actual hours
	UpdateProgress(ctx context.Context, userID, assignmentID int64, actualHours decimal.Decimal) (*domain.Assignment, error)
	GetProgress(ctx context.Context, userID, assignmentID int64) (*domain.Progress, error)

	Delete(ctx context.Context, userID, assignmentID int64) error
}

type assignmentService struct {
	base
}

// NewAssignmentService creates a new assignment service
func NewAssignmentService(store repository.Store, clock domain.Clock, logger *slog.Logger) AssignmentService {
	return &assignmentService{base: newBase(store, clock, logger)}
}

func (s *assignmentService) Create(ctx context.Context, userID int64, in AssignmentInput) (*domain.Assignment, error) {
	now := s.now()
	start := startOfDay(now)
	if in.StartDate != nil {
		start = *in.StartDate
	}

	a := domain.NewAssignment(userID, in.ProjectID, in.TaskName, start, now)
	a.Description = strings.TrimSpace(in.Description)
	a.DueDate = in.DueDate
	a.EstimatedHours = in.EstimatedHours
	if in.Priority != 0 {
		a.Priority = in.Priority
	}
	if err := a.Validate(); err != nil {
		return nil, err
	}

	err := s.withTx(ctx, "CreateAssignment", func(st repository.Store) error {
		project, err := loadProject(ctx, st, userID, in.ProjectID)
		if err != nil {
			return err
		}
		if project.Status.IsClosed() {
			return &domain.InvalidStateError{Entity: "project", Status: string(project.Status), Action: "add assignments to"}
		}
		return st.Assignments().Create(ctx, a)
	})
	if err != nil {
		return nil, err
	}
	return a, nil
}

func (s *assignmentService) Get(ctx context.Context, userID, assignmentID int64) (*domain.Assignment, error) {
	a, err := loadAssignment(ctx, s.store, userID, assignmentID)
	if err != nil {
		return nil, s.fail(ctx, "GetAssignment", err)
	}
	return a, nil
}

func (s *assignmentService) ListByProject(ctx context.Context, userID, projectID int64) ([]*domain.Assignment, error) {
	if _, err := loadProject(ctx, s.store, userID, projectID); err != nil {
		return nil, s.fail(ctx, "ListAssignments", err)
	}
	list, err := s.store.Assignments().ListByProject(ctx, projectID)
	if err != nil {
		return nil, s.fail(ctx, "ListAssignments", err)
	}
	return list, nil
}

func (s *assignmentService) mutate(ctx context.Context, op string, userID, assignmentID int64, fn func(a *domain.Assignment, now time.Time) error) (*domain.Assignment, error) {
	var a *domain.Assignment
	err := s.withTx(ctx, op, func(st repository.Store) error {
		var err error
		a, err = loadAssignment(ctx, st, userID, assignmentID)
		if err != nil {
			return err
		}
		if err := fn(a, s.now()); err != nil {
			return err
		}
		return st.Assignments().Update(ctx, a)
	})
	if err != nil {
		return nil, err
	}
	return a, nil
}

func (s *assignmentService) Start(ctx context.Context, userID, assignmentID int64) (*domain.Assignment, error) {
	return s.mutate(ctx, "StartAssignment", userID, assignmentID, (*domain.Assignment).Start)
}

func (s *assignmentService) Pause(ctx context.Context, userID, assignmentID int64) (*domain.Assignment, error) {
	return s.mutate(ctx, "PauseAssignment", userID, assignmentID, (*domain.Assignment).Pause)
}

func (s *assignmentService) Complete(ctx context.Context, userID, assignmentID int64) (*domain.Assignment, error) {
	return s.mutate(ctx, "CompleteAssignment", userID, assignmentID, (*domain.Assignment).Complete)
}

func (s *assignmentService) Cancel(ctx context.Context, userID, assignmentID int64) (*domain.Assignment, error) {
	return s.mutate(ctx, "CancelAssignment", userID, assignmentID, (*domain.Assignment).Cancel)
}

func (s *assignmentService) ExtendDeadline(ctx context.Context, userID, assignmentID int64, dueDate time.Time) (*domain.Assignment, error) {
	return s.mutate(ctx, "ExtendAssignmentDeadline", userID, assignmentID, func(a *domain.Assignment, now time.Time) error {
		return a.ExtendDeadline(dueDate, now)
	})
}

func (s *assignmentService) UpdateProgress(ctx context.Context, userID, assignmentID int64, actualHours decimal.Decimal) (*domain.Assignment, error) {
	return s.mutate(ctx, "UpdateAssignmentProgress", userID, assignmentID, func(a *domain.Assignment, now time.Time) error {
		return a.UpdateProgress(actualHours, now)
	})
}

func (s *assignmentService) GetProgress(ctx context.Context, userID, assignmentID int64) (*domain.Progress, error) {
	a, err := loadAssignment(ctx, s.store, userID, assignmentID)
	if err != nil {
		return nil, s.fail(ctx, "GetAssignmentProgress", err)
	}
	progress := a.Progress(s.now())
	return &progress, nil
}

func (s *assignmentService) Delete(ctx context.Context, userID, assignmentID int64) error {
	return s.withTx(ctx, "DeleteAssignment", func(st repository.Store) error {
		a, err := loadAssignment(ctx, st, userID, assignmentID)
		if err != nil {
			return err
		}
		return st.Assignments().Delete(ctx, a.ID)
	})
}
