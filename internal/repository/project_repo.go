package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/andy/billable/internal/domain"
)

// ProjectRepo is a SQLite implementation of ProjectRepository
type ProjectRepo struct {
	q Querier
}

// NewProjectRepo creates a new ProjectRepo
func NewProjectRepo(q Querier) *ProjectRepo {
	return &ProjectRepo{q: q}
}

const projectColumns = `id, client_id, user_id, name, description, start_date, end_date,
	budget, hourly_rate, estimated_hours, actual_hours, actual_cost, status, priority,
	completed_at, created_at, updated_at`

// Create inserts a new project
func (r *ProjectRepo) Create(ctx context.Context, p *domain.Project) error {
	query := `
		INSERT INTO projects (client_id, user_id, name, description, start_date, end_date,
			budget, hourly_rate, estimated_hours, actual_hours, actual_cost, status, priority,
			completed_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := r.q.ExecContext(ctx, query,
		p.ClientID,
		p.UserID,
		p.Name,
		p.Description,
		formatTime(p.StartDate),
		nullTime(p.EndDate),
		p.Budget,
		p.HourlyRate,
		p.EstimatedHours,
		p.ActualHours,
		p.ActualCost,
		string(p.Status),
		p.Priority,
		nullTime(p.CompletedAt),
		formatTime(p.CreatedAt),
		formatTime(p.UpdatedAt),
	)
	if err != nil {
		return wrapWrite(err, "create project")
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get project ID: %w", err)
	}

	p.ID = id
	return nil
}

// GetByID retrieves a project by ID
func (r *ProjectRepo) GetByID(ctx context.Context, id int64) (*domain.Project, error) {
	row := r.q.QueryRowContext(ctx, `SELECT `+projectColumns+` FROM projects WHERE id = ?`, id)
	p, err := scanProject(row)
	if err != nil {
		return nil, notFound(err, "project")
	}
	return p, nil
}

// List retrieves a user's projects with optional filters
func (r *ProjectRepo) List(ctx context.Context, filter ProjectFilter) ([]*domain.Project, error) {
	query := `SELECT ` + projectColumns + ` FROM projects WHERE user_id = ?`
	args := []any{filter.UserID}

	if filter.ClientID != nil {
		query += " AND client_id = ?"
		args = append(args, *filter.ClientID)
	}
	if filter.Status != nil {
		query += " AND status = ?"
		args = append(args, string(*filter.Status))
	}

	query += " ORDER BY priority, name"

	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	defer rows.Close()

	projects := make([]*domain.Project, 0)
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan project: %w", err)
		}
		projects = append(projects, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating projects: %w", err)
	}

	return projects, nil
}

// Update writes every mutable column of a project
func (r *ProjectRepo) Update(ctx context.Context, p *domain.Project) error {
	query := `
		UPDATE projects
		SET name = ?, description = ?, start_date = ?, end_date = ?, budget = ?, hourly_rate = ?,
		    estimated_hours = ?, actual_hours = ?, actual_cost = ?, status = ?, priority = ?,
		    completed_at = ?, updated_at = ?
		WHERE id = ?
	`

	result, err := r.q.ExecContext(ctx, query,
		p.Name,
		p.Description,
		formatTime(p.StartDate),
		nullTime(p.EndDate),
		p.Budget,
		p.HourlyRate,
		p.EstimatedHours,
		p.ActualHours,
		p.ActualCost,
		string(p.Status),
		p.Priority,
		nullTime(p.CompletedAt),
		formatTime(p.UpdatedAt),
		p.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update project: %w", err)
	}
	return checkAffected(result, "project")
}

// Delete removes a project; assignments and entries cascade
func (r *ProjectRepo) Delete(ctx context.Context, id int64) error {
	result, err := r.q.ExecContext(ctx, `DELETE FROM projects WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete project: %w", err)
	}
	return checkAffected(result, "project")
}

func scanProject(row rowScanner) (*domain.Project, error) {
	p := &domain.Project{}
	var description, endDate, completedAt sql.NullString
	var startDate, status, createdAt, updatedAt string

	err := row.Scan(
		&p.ID,
		&p.ClientID,
		&p.UserID,
		&p.Name,
		&description,
		&startDate,
		&endDate,
		&p.Budget,
		&p.HourlyRate,
		&p.EstimatedHours,
		&p.ActualHours,
		&p.ActualCost,
		&status,
		&p.Priority,
		&completedAt,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	p.Description = description.String
	p.Status = domain.ProjectStatus(status)

	if p.StartDate, err = parseTime(startDate); err != nil {
		return nil, fmt.Errorf("failed to parse start_date: %w", err)
	}
	if p.EndDate, err = parseNullTime(endDate); err != nil {
		return nil, fmt.Errorf("failed to parse end_date: %w", err)
	}
	if p.CompletedAt, err = parseNullTime(completedAt); err != nil {
		return nil, fmt.Errorf("failed to parse completed_at: %w", err)
	}
	if p.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, fmt.Errorf("failed to parse created_at: %w", err)
	}
	if p.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, fmt.Errorf("failed to parse updated_at: %w", err)
	}

	return p, nil
}
