package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/andy/billable/internal/domain"
)

// AssignmentRepo is a SQLite implementation of AssignmentRepository
type AssignmentRepo struct {
	q Querier
}

// NewAssignmentRepo creates a new AssignmentRepo
func NewAssignmentRepo(q Querier) *AssignmentRepo {
	return &AssignmentRepo{q: q}
}

const assignmentColumns = `id, project_id, user_id, task_name, description, start_date, due_date,
	estimated_hours, actual_hours, status, priority, completed_at, created_at, updated_at`

func (r *AssignmentRepo) Create(ctx context.Context, a *domain.Assignment) error {
	query := `
		INSERT INTO assignments (project_id, user_id, task_name, description, start_date, due_date,
			estimated_hours, actual_hours, status, priority, completed_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := r.q.ExecContext(ctx, query,
		a.ProjectID,
		a.UserID,
		a.TaskName,
		a.Description,
		formatTime(a.StartDate),
		nullTime(a.DueDate),
		a.EstimatedHours,
		a.ActualHours,
		string(a.Status),
		a.Priority,
		nullTime(a.CompletedAt),
		formatTime(a.CreatedAt),
		formatTime(a.UpdatedAt),
	)
	if err != nil {
		return wrapWrite(err, "create assignment")
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get assignment ID: %w", err)
	}

	a.ID = id
	return nil
}

func (r *AssignmentRepo) GetByID(ctx context.Context, id int64) (*domain.Assignment, error) {
	row := r.q.QueryRowContext(ctx, `SELECT `+assignmentColumns+` FROM assignments WHERE id = ?`, id)
	a, err := scanAssignment(row)
	if err != nil {
		return nil, notFound(err, "assignment")
	}
	return a, nil
}

func (r *AssignmentRepo) ListByProject(ctx context.Context, projectID int64) ([]*domain.Assignment, error) {
	query := `SELECT ` + assignmentColumns + `
		FROM assignments
		WHERE project_id = ?
		ORDER BY priority, start_date
	`

	rows, err := r.q.QueryContext(ctx, query, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to list assignments: %w", err)
	}
	defer rows.Close()

	out := make([]*domain.Assignment, 0)
	for rows.Next() {
		a, err := scanAssignment(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan assignment: %w", err)
		}
		out = append(out, a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating assignments: %w", err)
	}

	return out, nil
}

func (r *AssignmentRepo) Update(ctx context.Context, a *domain.Assignment) error {
	query := `
		UPDATE assignments
		SET task_name = ?, description = ?, start_date = ?, due_date = ?, estimated_hours = ?,
		    actual_hours = ?, status = ?, priority = ?, completed_at = ?, updated_at = ?
		WHERE id = ?
	`

	result, err := r.q.ExecContext(ctx, query,
		a.TaskName,
		a.Description,
		formatTime(a.StartDate),
		nullTime(a.DueDate),
		a.EstimatedHours,
		a.ActualHours,
		string(a.Status),
		a.Priority,
		nullTime(a.CompletedAt),
		formatTime(a.UpdatedAt),
		a.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update assignment: %w", err)
	}
	return checkAffected(result, "assignment")
}

func (r *AssignmentRepo) Delete(ctx context.Context, id int64) error {
	result, err := r.q.ExecContext(ctx, `DELETE FROM assignments WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete assignment: %w", err)
	}
	return checkAffected(result, "assignment")
}

func scanAssignment(row rowScanner) (*domain.Assignment, error) {
	a := &domain.Assignment{}
	var description, dueDate, completedAt sql.NullString
	var startDate, status, createdAt, updatedAt string

	err := row.Scan(
		&a.ID,
		&a.ProjectID,
		&a.UserID,
		&a.TaskName,
		&description,
		&startDate,
		&dueDate,
		&a.EstimatedHours,
		&a.ActualHours,
		&status,
		&a.Priority,
		&completedAt,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	a.Description = description.String
	a.Status = domain.AssignmentStatus(status)

	if a.StartDate, err = parseTime(startDate); err != nil {
		return nil, fmt.Errorf("failed to parse start_date: %w", err)
	}
	if a.DueDate, err = parseNullTime(dueDate); err != nil {
		return nil, fmt.Errorf("failed to parse due_date: %w", err)
	}
	if a.CompletedAt, err = parseNullTime(completedAt); err != nil {
		return nil, fmt.Errorf("failed to parse completed_at: %w", err)
	}
	if a.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, fmt.Errorf("failed to parse created_at: %w", err)
	}
	if a.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, fmt.Errorf("failed to parse updated_at: %w", err)
	}

	return a, nil
}
