package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/andy/billable/internal/domain"
)

// InvoiceRepo is a SQLite implementation of InvoiceRepository
type InvoiceRepo struct {
	q Querier
}

// NewInvoiceRepo creates a new InvoiceRepo
func NewInvoiceRepo(q Querier) *InvoiceRepo {
	return &InvoiceRepo{q: q}
}

const invoiceColumns = `id, user_id, client_id, project_id, invoice_number, invoice_date, due_date,
	subtotal, tax_rate, tax_amount, discount_rate, discount_amount, total_amount, paid_amount,
	outstanding_amount, status, paid_at, currency, notes, created_at, updated_at`

const itemColumns = `id, invoice_id, time_entry_id, description, quantity, unit_price, total_price, unit, notes`

// Create inserts a new invoice and its items
func (r *InvoiceRepo) Create(ctx context.Context, inv *domain.Invoice) error {
	query := `
		INSERT INTO invoices (
			user_id, client_id, project_id, invoice_number, invoice_date, due_date,
			subtotal, tax_rate, tax_amount, discount_rate, discount_amount, total_amount,
			paid_amount, outstanding_amount, status, paid_at, currency, notes, created_at, updated_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := r.q.ExecContext(ctx, query,
		inv.UserID,
		inv.ClientID,
		nullInt(inv.ProjectID),
		inv.InvoiceNumber,
		formatTime(inv.InvoiceDate),
		formatTime(inv.DueDate),
		inv.Subtotal,
		inv.TaxRate,
		inv.TaxAmount,
		inv.DiscountRate,
		inv.DiscountAmount,
		inv.TotalAmount,
		inv.PaidAmount,
		inv.OutstandingAmount,
		string(inv.Status),
		nullTime(inv.PaidAt),
		inv.Currency,
		inv.Notes,
		formatTime(inv.CreatedAt),
		formatTime(inv.UpdatedAt),
	)
	if err != nil {
		return wrapWrite(err, "create invoice")
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get invoice ID: %w", err)
	}
	inv.ID = id

	for _, item := range inv.Items {
		item.InvoiceID = id
		if err := r.AddItem(ctx, item); err != nil {
			return err
		}
	}

	return nil
}

// GetByID retrieves an invoice with its items
func (r *InvoiceRepo) GetByID(ctx context.Context, id int64) (*domain.Invoice, error) {
	row := r.q.QueryRowContext(ctx, `SELECT `+invoiceColumns+` FROM invoices WHERE id = ?`, id)
	return r.get(ctx, row)
}

// GetByNumber retrieves an invoice by invoice number
func (r *InvoiceRepo) GetByNumber(ctx context.Context, number string) (*domain.Invoice, error) {
	row := r.q.QueryRowContext(ctx, `SELECT `+invoiceColumns+` FROM invoices WHERE invoice_number = ?`, number)
	return r.get(ctx, row)
}

func (r *InvoiceRepo) get(ctx context.Context, row *sql.Row) (*domain.Invoice, error) {
	inv, err := scanInvoice(row)
	if err != nil {
		return nil, notFound(err, "invoice")
	}
	if inv.Items, err = r.items(ctx, inv.ID); err != nil {
		return nil, err
	}
	return inv, nil
}

// List retrieves a user's invoices, newest first
func (r *InvoiceRepo) List(ctx context.Context, filter InvoiceFilter) ([]*domain.Invoice, error) {
	query := `SELECT ` + invoiceColumns + ` FROM invoices WHERE user_id = ?`
	args := []any{filter.UserID}

	if filter.ClientID != nil {
		query += " AND client_id = ?"
		args = append(args, *filter.ClientID)
	}
	if len(filter.Statuses) > 0 {
		query += " AND status IN (" + placeholders(len(filter.Statuses)) + ")"
		for _, s := range filter.Statuses {
			args = append(args, string(s))
		}
	}
	if filter.From != nil {
		query += " AND invoice_date >= ?"
		args = append(args, formatTime(*filter.From))
	}
	if filter.To != nil {
		query += " AND invoice_date < ?"
		args = append(args, formatTime(*filter.To))
	}

	query += " ORDER BY invoice_date DESC, id DESC"

	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list invoices: %w", err)
	}

	invoices := make([]*domain.Invoice, 0)
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan invoice: %w", err)
		}
		invoices = append(invoices, inv)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("error iterating invoices: %w", err)
	}
	// Release the cursor before the item queries; a transaction has a
	// single connection.
	rows.Close()

	for _, inv := range invoices {
		if inv.Items, err = r.items(ctx, inv.ID); err != nil {
			return nil, err
		}
	}

	return invoices, nil
}

// Update updates the invoice header
func (r *InvoiceRepo) Update(ctx context.Context, inv *domain.Invoice) error {
	query := `
		UPDATE invoices
		SET project_id = ?, invoice_date = ?, due_date = ?, subtotal = ?, tax_rate = ?,
		    tax_amount = ?, discount_rate = ?, discount_amount = ?, total_amount = ?,
		    paid_amount = ?, outstanding_amount = ?, status = ?, paid_at = ?, currency = ?,
		    notes = ?, updated_at = ?
		WHERE id = ?
	`

	result, err := r.q.ExecContext(ctx, query,
		nullInt(inv.ProjectID),
		formatTime(inv.InvoiceDate),
		formatTime(inv.DueDate),
		inv.Subtotal,
		inv.TaxRate,
		inv.TaxAmount,
		inv.DiscountRate,
		inv.DiscountAmount,
		inv.TotalAmount,
		inv.PaidAmount,
		inv.OutstandingAmount,
		string(inv.Status),
		nullTime(inv.PaidAt),
		inv.Currency,
		inv.Notes,
		formatTime(inv.UpdatedAt),
		inv.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update invoice: %w", err)
	}
	return checkAffected(result, "invoice")
}

// Delete removes an invoice; items cascade and locked entries are released
func (r *InvoiceRepo) Delete(ctx context.Context, id int64) error {
	result, err := r.q.ExecContext(ctx, `DELETE FROM invoices WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete invoice: %w", err)
	}
	return checkAffected(result, "invoice")
}

// AddItem inserts a line item for item.InvoiceID
func (r *InvoiceRepo) AddItem(ctx context.Context, item *domain.InvoiceItem) error {
	query := `
		INSERT INTO invoice_items (invoice_id, time_entry_id, description, quantity, unit_price,
			total_price, unit, notes)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := r.q.ExecContext(ctx, query,
		item.InvoiceID,
		nullInt(item.TimeEntryID),
		item.Description,
		item.Quantity,
		item.UnitPrice,
		item.TotalPrice,
		item.Unit,
		item.Notes,
	)
	if err != nil {
		return fmt.Errorf("failed to add invoice item: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get invoice item ID: %w", err)
	}

	item.ID = id
	return nil
}

// UpdateItem rewrites a line item
func (r *InvoiceRepo) UpdateItem(ctx context.Context, item *domain.InvoiceItem) error {
	query := `
		UPDATE invoice_items
		SET description = ?, quantity = ?, unit_price = ?, total_price = ?, unit = ?, notes = ?
		WHERE id = ? AND invoice_id = ?
	`

	result, err := r.q.ExecContext(ctx, query,
		item.Description,
		item.Quantity,
		item.UnitPrice,
		item.TotalPrice,
		item.Unit,
		item.Notes,
		item.ID,
		item.InvoiceID,
	)
	if err != nil {
		return fmt.Errorf("failed to update invoice item: %w", err)
	}
	return checkAffected(result, "invoice item")
}

// DeleteItem removes a specific line item from an invoice
func (r *InvoiceRepo) DeleteItem(ctx context.Context, invoiceID, itemID int64) error {
	result, err := r.q.ExecContext(ctx, `DELETE FROM invoice_items WHERE id = ? AND invoice_id = ?`, itemID, invoiceID)
	if err != nil {
		return fmt.Errorf("failed to delete invoice item: %w", err)
	}
	return checkAffected(result, "invoice item")
}

// NextSequence bumps the yearly counter. Inside an IMMEDIATE transaction the
// upsert and the read see the same row, so concurrent callers never share a value.
func (r *InvoiceRepo) NextSequence(ctx context.Context, year int) (int64, error) {
	upsert := `
		INSERT INTO invoice_sequences (year, last_value) VALUES (?, 1)
		ON CONFLICT(year) DO UPDATE SET last_value = last_value + 1
	`
	if _, err := r.q.ExecContext(ctx, upsert, year); err != nil {
		return 0, fmt.Errorf("failed to bump invoice sequence: %w", err)
	}

	var seq int64
	if err := r.q.QueryRowContext(ctx, `SELECT last_value FROM invoice_sequences WHERE year = ?`, year).Scan(&seq); err != nil {
		return 0, fmt.Errorf("failed to read invoice sequence: %w", err)
	}
	return seq, nil
}

// PeekSequence returns the next value without consuming it
func (r *InvoiceRepo) PeekSequence(ctx context.Context, year int) (int64, error) {
	var last int64
	err := r.q.QueryRowContext(ctx, `SELECT last_value FROM invoice_sequences WHERE year = ?`, year).Scan(&last)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("failed to read invoice sequence: %w", err)
	}
	return last + 1, nil
}

func (r *InvoiceRepo) items(ctx context.Context, invoiceID int64) ([]*domain.InvoiceItem, error) {
	rows, err := r.q.QueryContext(ctx, `SELECT `+itemColumns+` FROM invoice_items WHERE invoice_id = ? ORDER BY id`, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("failed to get invoice items: %w", err)
	}
	defer rows.Close()

	items := make([]*domain.InvoiceItem, 0)
	for rows.Next() {
		item := &domain.InvoiceItem{}
		var timeEntryID sql.NullInt64
		var unit, notes sql.NullString

		err := rows.Scan(
			&item.ID,
			&item.InvoiceID,
			&timeEntryID,
			&item.Description,
			&item.Quantity,
			&item.UnitPrice,
			&item.TotalPrice,
			&unit,
			&notes,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan invoice item: %w", err)
		}
		item.TimeEntryID = intPtr(timeEntryID)
		item.Unit = unit.String
		item.Notes = notes.String

		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating invoice items: %w", err)
	}

	return items, nil
}

// scanInvoice is a helper to parse invoice rows
func scanInvoice(row rowScanner) (*domain.Invoice, error) {
	inv := &domain.Invoice{}
	var projectID sql.NullInt64
	var paidAt, notes sql.NullString
	var invoiceDate, dueDate, status, createdAt, updatedAt string

	err := row.Scan(
		&inv.ID,
		&inv.UserID,
		&inv.ClientID,
		&projectID,
		&inv.InvoiceNumber,
		&invoiceDate,
		&dueDate,
		&inv.Subtotal,
		&inv.TaxRate,
		&inv.TaxAmount,
		&inv.DiscountRate,
		&inv.DiscountAmount,
		&inv.TotalAmount,
		&inv.PaidAmount,
		&inv.OutstandingAmount,
		&status,
		&paidAt,
		&inv.Currency,
		&notes,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	inv.ProjectID = intPtr(projectID)
	inv.Status = domain.InvoiceStatus(status)
	inv.Notes = notes.String

	if inv.InvoiceDate, err = parseTime(invoiceDate); err != nil {
		return nil, fmt.Errorf("failed to parse invoice_date: %w", err)
	}
	if inv.DueDate, err = parseTime(dueDate); err != nil {
		return nil, fmt.Errorf("failed to parse due_date: %w", err)
	}
	if inv.PaidAt, err = parseNullTime(paidAt); err != nil {
		return nil, fmt.Errorf("failed to parse paid_at: %w", err)
	}
	if inv.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, fmt.Errorf("failed to parse created_at: %w", err)
	}
	if inv.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, fmt.Errorf("failed to parse updated_at: %w", err)
	}

	return inv, nil
}
