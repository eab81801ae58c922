package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/andy/billable/internal/domain"
	"github.com/andy/billable/internal/repository"
)

// ProjectInput holds the fields of a new project
type ProjectInput struct {
	ClientID       int64
	Name           string
	Description    string
	StartDate      *time.Time // defaults to today
	EndDate        *time.Time
	Budget         decimal.Decimal
	HourlyRate     decimal.Decimal
	EstimatedHours decimal.Decimal
	Priority       int // 0 means DefaultPriority
}

// ProjectDetails are the editable descriptive fields; nil leaves a field alone
type ProjectDetails struct {
	Name           *string
	Description    *string
	HourlyRate     *decimal.Decimal
	EstimatedHours *decimal.Decimal
	Priority       *int
}

// ProjectQuery filters List
type ProjectQuery struct {
	ClientID *int64
	Status   *domain.ProjectStatus
}

// Profitability compares what a project earned with what it cost
type Profitability struct {
	ProjectID       int64           `json:"projectId"`
	Earnings        decimal.Decimal `json:"earnings"`
	ActualCost      decimal.Decimal `json:"actualCost"`
	Profit          decimal.Decimal `json:"profit"`
	Budget          decimal.Decimal `json:"budget"`
	RemainingBudget decimal.Decimal `json:"remainingBudget"`
	MarginPercent   decimal.Decimal `json:"marginPercent"`
	BillableHours   decimal.Decimal `json:"billableHours"`
}

// ProjectService manages projects and their lifecycle
type ProjectService interface {
	Create(ctx context.Context, userID int64, in ProjectInput) (*domain.Project, error)
	Get(ctx context.Context, userID, projectID int64) (*domain.Project, error)
	List(ctx context.Context, userID int64, q ProjectQuery) ([]*domain.Project, error)
	Update(ctx context.Context, userID, projectID int64, in ProjectDetails) (*domain.Project, error)

	Start(ctx context.Context, userID, projectID int64) (*domain.Project, error)
	Pause(ctx context.Context, userID, projectID int64) (*domain.Project, error)
	Complete(ctx context.Context, userID, projectID int64) (*domain.Project, error)
	Cancel(ctx context.Context, userID, projectID int64) (*domain.Project, error)

	ExtendDeadline(ctx context.Context, userID, projectID int64, endDate time.Time) (*domain.Project, error)
	UpdateBudget(ctx context.Context, userID, projectID int64, budget decimal.Decimal) (*domain.Project, error)
	UpdateCosts(ctx context.Context, userID, projectID int64, actualCost decimal.Decimal) (*domain.Project, error)

	GetProgress(ctx context.Context, userID, projectID int64) (*domain.Progress, error)

	// CalculateProfitability is billable earnings minus actual cost
	CalculateProfitability(ctx context.Context, userID, projectID int64) (*Profitability, error)

	// ListOverdue returns projects past their end date that are not completed
	ListOverdue(ctx context.Context, userID int64) ([]*domain.Project, error)

	// Delete removes a project that has no time entries
	Delete(ctx context.Context, userID, projectID int64) error
}

type projectService struct {
	base
}

// NewProjectService creates a new project service
func NewProjectService(store repository.Store, clock domain.Clock, logger *slog.Logger) ProjectService {
	return &projectService{base: newBase(store, clock, logger)}
}

func (s *projectService) Create(ctx context.Context, userID int64, in ProjectInput) (*domain.Project, error) {
	now := s.now()
	start := startOfDay(now)
	if in.StartDate != nil {
		start = *in.StartDate
	}

	p := domain.NewProject(userID, in.ClientID, in.Name, start, now)
	p.Description = strings.TrimSpace(in.Description)
	p.EndDate = in.EndDate
	p.Budget = domain.RoundMoney(in.Budget)
	p.HourlyRate = domain.RoundMoney(in.HourlyRate)
	p.EstimatedHours = in.EstimatedHours
	if in.Priority != 0 {
		p.Priority = in.Priority
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}

	err := s.withTx(ctx, "CreateProject", func(st repository.Store) error {
		client, err := loadClient(ctx, st, userID, in.ClientID)
		if err != nil {
			return err
		}
		if client.IsArchived {
			return &domain.InvalidStateError{Entity: "client", Status: "archived", Action: "add projects to"}
		}
		return st.Projects().Create(ctx, p)
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "project created", "user_id", userID, "project_id", p.ID, "name", p.Name)
	return p, nil
}

func (s *projectService) Get(ctx context.Context, userID, projectID int64) (*domain.Project, error) {
	p, err := loadProject(ctx, s.store, userID, projectID)
	if err != nil {
		return nil, s.fail(ctx, "GetProject", err)
	}
	return p, nil
}

func (s *projectService) List(ctx context.Context, userID int64, q ProjectQuery) ([]*domain.Project, error) {
	if q.Status != nil && !q.Status.Valid() {
		return nil, domain.Invalid("status", fmt.Sprintf("unknown project status %q", *q.Status))
	}
	projects, err := s.store.Projects().List(ctx, repository.ProjectFilter{
		UserID:   userID,
		ClientID: q.ClientID,
		Status:   q.Status,
	})
	if err != nil {
		return nil, s.fail(ctx, "ListProjects", err)
	}
	return projects, nil
}

// mutate loads a project, applies fn, validates and writes it back
func (s *projectService) mutate(ctx context.Context, op string, userID, projectID int64, fn func(p *domain.Project, now time.Time) error) (*domain.Project, error) {
	var p *domain.Project
	err := s.withTx(ctx, op, func(st repository.Store) error {
		var err error
		p, err = loadProject(ctx, st, userID, projectID)
		if err != nil {
			return err
		}
		if err := fn(p, s.now()); err != nil {
			return err
		}
		if err := p.Validate(); err != nil {
			return err
		}
		return st.Projects().Update(ctx, p)
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (s *projectService) Update(ctx context.Context, userID, projectID int64, in ProjectDetails) (*domain.Project, error) {
	return s.mutate(ctx, "UpdateProject", userID, projectID, func(p *domain.Project, now time.Time) error {
		if in.Name != nil {
			p.Name = strings.TrimSpace(*in.Name)
		}
		if in.Description != nil {
			p.Description = strings.TrimSpace(*in.Description)
		}
		if in.HourlyRate != nil {
			p.HourlyRate = domain.RoundMoney(*in.HourlyRate)
		}
		if in.EstimatedHours != nil {
			p.EstimatedHours = *in.EstimatedHours
		}
		if in.Priority != nil {
			p.Priority = *in.Priority
		}
		p.UpdatedAt = now
		return nil
	})
}

func (s *projectService) transition(ctx context.Context, op string, userID, projectID int64, fn func(p *domain.Project, now time.Time) error) (*domain.Project, error) {
	p, err := s.mutate(ctx, op, userID, projectID, fn)
	if err == nil {
		s.logger.InfoContext(ctx, "project status changed", "user_id", userID, "project_id", projectID, "status", p.Status)
	}
	return p, err
}

func (s *projectService) Start(ctx context.Context, userID, projectID int64) (*domain.Project, error) {
	return s.transition(ctx, "StartProject", userID, projectID, (*domain.Project).Start)
}

func (s *projectService) Pause(ctx context.Context, userID, projectID int64) (*domain.Project, error) {
	return s.transition(ctx, "PauseProject", userID, projectID, (*domain.Project).Pause)
}

func (s *projectService) Complete(ctx context.Context, userID, projectID int64) (*domain.Project, error) {
	return s.transition(ctx, "CompleteProject", userID, projectID, (*domain.Project).Complete)
}

func (s *projectService) Cancel(ctx context.Context, userID, projectID int64) (*domain.Project, error) {
	return s.transition(ctx, "CancelProject", userID, projectID, (*domain.Project).Cancel)
}

func (s *projectService) ExtendDeadline(ctx context.Context, userID, projectID int64, endDate time.Time) (*domain.Project, error) {
	return s.mutate(ctx, "ExtendProjectDeadline", userID, projectID, func(p *domain.Project, now time.Time) error {
		return p.ExtendDeadline(endDate, now)
	})
}

func (s *projectService) UpdateBudget(ctx context.Context, userID, projectID int64, budget decimal.Decimal) (*domain.Project, error) {
	return s.mutate(ctx, "UpdateProjectBudget", userID, projectID, func(p *domain.Project, now time.Time) error {
		return p.UpdateBudget(budget, now)
	})
}

func (s *projectService) UpdateCosts(ctx context.Context, userID, projectID int64, actualCost decimal.Decimal) (*domain.Project, error) {
	return s.mutate(ctx, "UpdateProjectCosts", userID, projectID, func(p *domain.Project, now time.Time) error {
		return p.UpdateCosts(actualCost, now)
	})
}

func (s *projectService) GetProgress(ctx context.Context, userID, projectID int64) (*domain.Progress, error) {
	p, err := loadProject(ctx, s.store, userID, projectID)
	if err != nil {
		return nil, s.fail(ctx, "GetProjectProgress", err)
	}
	progress := p.Progress(s.now())
	return &progress, nil
}

func (s *projectService) CalculateProfitability(ctx context.Context, userID, projectID int64) (*Profitability, error) {
	p, err := loadProject(ctx, s.store, userID, projectID)
	if err != nil {
		return nil, s.fail(ctx, "CalculateProfitability", err)
	}
	entries, err := s.store.Entries().List(ctx, repository.EntryFilter{
		UserID:       userID,
		ProjectID:    &p.ID,
		BillableOnly: true,
	})
	if err != nil {
		return nil, s.fail(ctx, "CalculateProfitability", err)
	}
	sum := summarize(entries)

	profit := sum.Earnings.Sub(p.ActualCost)
	margin := decimal.Zero
	if sum.Earnings.IsPositive() {
		margin = domain.RoundMoney(profit.Div(sum.Earnings).Mul(decimal.NewFromInt(100)))
	}
	return &Profitability{
		ProjectID:       p.ID,
		Earnings:        sum.Earnings,
		ActualCost:      p.ActualCost,
		Profit:          profit,
		Budget:          p.Budget,
		RemainingBudget: p.RemainingBudget(),
		MarginPercent:   margin,
		BillableHours:   sum.BillableHours,
	}, nil
}

func (s *projectService) ListOverdue(ctx context.Context, userID int64) ([]*domain.Project, error) {
	projects, err := s.store.Projects().List(ctx, repository.ProjectFilter{UserID: userID})
	if err != nil {
		return nil, s.fail(ctx, "ListOverdueProjects", err)
	}
	now := s.now()
	overdue := make([]*domain.Project, 0)
	for _, p := range projects {
		if p.IsOverdue(now) && p.Status != domain.ProjectStatusCancelled {
			overdue = append(overdue, p)
		}
	}
	return overdue, nil
}

func (s *projectService) Delete(ctx context.Context, userID, projectID int64) error {
	return s.withTx(ctx, "DeleteProject", func(st repository.Store) error {
		p, err := loadProject(ctx, st, userID, projectID)
		if err != nil {
			return err
		}
		n, err := st.Entries().CountByProject(ctx, p.ID)
		if err != nil {
			return err
		}
		if n > 0 {
			return domain.Conflict(fmt.Sprintf("project has %d time entries", n))
		}
		return st.Projects().Delete(ctx, p.ID)
	})
}
