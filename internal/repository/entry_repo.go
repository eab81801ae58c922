package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/andy/billable/internal/domain"
)

// EntryRepo is a SQLite implementation of TimeEntryRepository
type EntryRepo struct {
	q Querier
}

// NewEntryRepo creates a new EntryRepo
func NewEntryRepo(q Querier) *EntryRepo {
	return &EntryRepo{q: q}
}

const entryColumns = `id, user_id, project_id, assignment_id, start_time, end_time, duration_minutes,
	is_billable, hourly_rate, withholding_tax_rate, amount, withholding_tax_amount, net_amount,
	description, notes, invoice_id, created_at, updated_at`

// Create inserts a new time entry into the database. A second running entry
// for the same user trips idx_entries_one_active and yields ErrDuplicate.
func (r *EntryRepo) Create(ctx context.Context, entry *domain.TimeEntry) error {
	query := `
		INSERT INTO time_entries (
			user_id, project_id, assignment_id, start_time, end_time, duration_minutes,
			is_billable, hourly_rate, withholding_tax_rate, amount, withholding_tax_amount,
			net_amount, description, notes, invoice_id, created_at, updated_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := r.q.ExecContext(ctx, query,
		entry.UserID,
		entry.ProjectID,
		nullInt(entry.AssignmentID),
		formatTime(entry.StartTime),
		nullTime(entry.EndTime),
		nullInt(entry.DurationMinutes),
		entry.IsBillable,
		entry.HourlyRate,
		entry.WithholdingTaxRate,
		entry.Amount,
		entry.WithholdingTaxAmount,
		entry.NetAmount,
		entry.Description,
		entry.Notes,
		nullInt(entry.InvoiceID),
		formatTime(entry.CreatedAt),
		formatTime(entry.UpdatedAt),
	)
	if err != nil {
		return wrapWrite(err, "create time entry")
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get time entry ID: %w", err)
	}

	entry.ID = id
	return nil
}

// GetByID retrieves a time entry by ID
func (r *EntryRepo) GetByID(ctx context.Context, id int64) (*domain.TimeEntry, error) {
	row := r.q.QueryRowContext(ctx, `SELECT `+entryColumns+` FROM time_entries WHERE id = ?`, id)
	e, err := scanTimeEntry(row)
	if err != nil {
		return nil, notFound(err, "time entry")
	}
	return e, nil
}

// GetActive retrieves the user's running entry
func (r *EntryRepo) GetActive(ctx context.Context, userID int64) (*domain.TimeEntry, error) {
	row := r.q.QueryRowContext(ctx,
		`SELECT `+entryColumns+` FROM time_entries WHERE user_id = ? AND end_time IS NULL`, userID)
	e, err := scanTimeEntry(row)
	if err != nil {
		return nil, notFound(err, "active time entry")
	}
	return e, nil
}

// Update writes every mutable column of an entry
func (r *EntryRepo) Update(ctx context.Context, entry *domain.TimeEntry) error {
	query := `
		UPDATE time_entries
		SET assignment_id = ?, start_time = ?, end_time = ?, duration_minutes = ?, is_billable = ?,
		    hourly_rate = ?, withholding_tax_rate = ?, amount = ?, withholding_tax_amount = ?,
		    net_amount = ?, description = ?, notes = ?, invoice_id = ?, updated_at = ?
		WHERE id = ?
	`

	result, err := r.q.ExecContext(ctx, query,
		nullInt(entry.AssignmentID),
		formatTime(entry.StartTime),
		nullTime(entry.EndTime),
		nullInt(entry.DurationMinutes),
		entry.IsBillable,
		entry.HourlyRate,
		entry.WithholdingTaxRate,
		entry.Amount,
		entry.WithholdingTaxAmount,
		entry.NetAmount,
		entry.Description,
		entry.Notes,
		nullInt(entry.InvoiceID),
		formatTime(entry.UpdatedAt),
		entry.ID,
	)
	if err != nil {
		return wrapWrite(err, "update time entry")
	}
	return checkAffected(result, "time entry")
}

// Delete removes an entry and its history
func (r *EntryRepo) Delete(ctx context.Context, id int64) error {
	result, err := r.q.ExecContext(ctx, `DELETE FROM time_entries WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete time entry: %w", err)
	}
	return checkAffected(result, "time entry")
}

// List retrieves time entries with optional filters, newest first
func (r *EntryRepo) List(ctx context.Context, filter EntryFilter) ([]*domain.TimeEntry, error) {
	query := `SELECT ` + entryColumns + ` FROM time_entries WHERE user_id = ?`
	args := []any{filter.UserID}

	if filter.ProjectID != nil {
		query += " AND project_id = ?"
		args = append(args, *filter.ProjectID)
	}
	if filter.AssignmentID != nil {
		query += " AND assignment_id = ?"
		args = append(args, *filter.AssignmentID)
	}
	if filter.From != nil {
		query += " AND start_time >= ?"
		args = append(args, formatTime(*filter.From))
	}
	if filter.To != nil {
		query += " AND start_time < ?"
		args = append(args, formatTime(*filter.To))
	}
	if filter.BillableOnly {
		query += " AND is_billable = 1"
	}
	if filter.UnbilledOnly {
		query += " AND invoice_id IS NULL"
	}
	if !filter.IncludeRunning {
		query += " AND end_time IS NOT NULL"
	}

	query += " ORDER BY start_time DESC, id DESC"

	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list time entries: %w", err)
	}
	defer rows.Close()

	entries := make([]*domain.TimeEntry, 0)
	for rows.Next() {
		e, err := scanTimeEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan time entry: %w", err)
		}
		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating time entries: %w", err)
	}

	return entries, nil
}

// CountByProject counts entries recorded against a project
func (r *EntryRepo) CountByProject(ctx context.Context, projectID int64) (int, error) {
	var n int
	err := r.q.QueryRowContext(ctx, `SELECT COUNT(*) FROM time_entries WHERE project_id = ?`, projectID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count time entries: %w", err)
	}
	return n, nil
}

// LockForInvoice attaches entries to an invoice. Every entry must be
// stopped and not already locked.
func (r *EntryRepo) LockForInvoice(ctx context.Context, entryIDs []int64, invoiceID int64, at time.Time) error {
	query := `
		UPDATE time_entries
		SET invoice_id = ?, updated_at = ?
		WHERE id = ? AND invoice_id IS NULL AND end_time IS NOT NULL
	`

	updateTime := formatTime(at)
	for _, entryID := range entryIDs {
		result, err := r.q.ExecContext(ctx, query, invoiceID, updateTime, entryID)
		if err != nil {
			return fmt.Errorf("failed to lock entry %d: %w", entryID, err)
		}
		if err := checkAffected(result, fmt.Sprintf("unlocked time entry %d", entryID)); err != nil {
			return err
		}
	}

	return nil
}

// AddHistory records a field change
func (r *EntryRepo) AddHistory(ctx context.Context, h *domain.EntryHistory) error {
	query := `
		INSERT INTO entry_history (entry_id, field_name, old_value, new_value, changed_at)
		VALUES (?, ?, ?, ?, ?)
	`
	result, err := r.q.ExecContext(ctx, query, h.EntryID, h.FieldName, h.OldValue, h.NewValue, formatTime(h.ChangedAt))
	if err != nil {
		return fmt.Errorf("failed to create audit record: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get audit record ID: %w", err)
	}
	h.ID = id
	return nil
}

// GetHistory retrieves the audit trail for a time entry
func (r *EntryRepo) GetHistory(ctx context.Context, entryID int64) ([]*domain.EntryHistory, error) {
	query := `
		SELECT id, entry_id, field_name, old_value, new_value, changed_at
		FROM entry_history
		WHERE entry_id = ?
		ORDER BY changed_at DESC, id DESC
	`

	rows, err := r.q.QueryContext(ctx, query, entryID)
	if err != nil {
		return nil, fmt.Errorf("failed to get entry history: %w", err)
	}
	defer rows.Close()

	history := make([]*domain.EntryHistory, 0)
	for rows.Next() {
		h := &domain.EntryHistory{}
		var oldValue, newValue sql.NullString
		var changedAt string

		if err := rows.Scan(&h.ID, &h.EntryID, &h.FieldName, &oldValue, &newValue, &changedAt); err != nil {
			return nil, fmt.Errorf("failed to scan history: %w", err)
		}
		h.OldValue = oldValue.String
		h.NewValue = newValue.String

		if h.ChangedAt, err = parseTime(changedAt); err != nil {
			return nil, fmt.Errorf("failed to parse changed_at: %w", err)
		}

		history = append(history, h)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating history: %w", err)
	}

	return history, nil
}

// scanTimeEntry is a helper to parse time entry rows
func scanTimeEntry(row rowScanner) (*domain.TimeEntry, error) {
	e := &domain.TimeEntry{}
	var assignmentID, durationMinutes, invoiceID sql.NullInt64
	var endTime, description, notes sql.NullString
	var startTime, createdAt, updatedAt string

	err := row.Scan(
		&e.ID,
		&e.UserID,
		&e.ProjectID,
		&assignmentID,
		&startTime,
		&endTime,
		&durationMinutes,
		&e.IsBillable,
		&e.HourlyRate,
		&e.WithholdingTaxRate,
		&e.Amount,
		&e.WithholdingTaxAmount,
		&e.NetAmount,
		&description,
		&notes,
		&invoiceID,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	e.AssignmentID = intPtr(assignmentID)
	e.DurationMinutes = intPtr(durationMinutes)
	e.InvoiceID = intPtr(invoiceID)
	e.Description = description.String
	e.Notes = notes.String

	if e.StartTime, err = parseTime(startTime); err != nil {
		return nil, fmt.Errorf("failed to parse start_time: %w", err)
	}
	if e.EndTime, err = parseNullTime(endTime); err != nil {
		return nil, fmt.Errorf("failed to parse end_time: %w", err)
	}
	if e.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, fmt.Errorf("failed to parse created_at: %w", err)
	}
	if e.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, fmt.Errorf("failed to parse updated_at: %w", err)
	}

	return e, nil
}
