package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/andy/billable/internal/domain"
)

// ClientRepo is a SQLite implementation of ClientRepository
type ClientRepo struct {
	q Querier
}

// NewClientRepo creates a new ClientRepo
func NewClientRepo(q Querier) *ClientRepo {
	return &ClientRepo{q: q}
}

const clientColumns = `id, user_id, name, email, phone, company, address, tax_number,
	hourly_rate, notes, is_archived, created_at, updated_at`

// Create inserts a new client into the database
func (r *ClientRepo) Create(ctx context.Context, client *domain.Client) error {
	query := `
		INSERT INTO clients (user_id, name, email, phone, company, address, tax_number,
			hourly_rate, notes, is_archived, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := r.q.ExecContext(ctx, query,
		client.UserID,
		client.Name,
		client.Email,
		client.Phone,
		client.Company,
		client.Address,
		client.TaxNumber,
		client.HourlyRate,
		client.Notes,
		client.IsArchived,
		formatTime(client.CreatedAt),
		formatTime(client.UpdatedAt),
	)
	if err != nil {
		return wrapWrite(err, "create client")
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get client ID: %w", err)
	}

	client.ID = id
	return nil
}

// GetByID retrieves a client by ID
func (r *ClientRepo) GetByID(ctx context.Context, id int64) (*domain.Client, error) {
	row := r.q.QueryRowContext(ctx, `SELECT `+clientColumns+` FROM clients WHERE id = ?`, id)
	c, err := scanClient(row)
	if err != nil {
		return nil, notFound(err, "client")
	}
	return c, nil
}

// List retrieves a user's clients, optionally including archived ones
func (r *ClientRepo) List(ctx context.Context, userID int64, includeArchived bool) ([]*domain.Client, error) {
	query := `SELECT ` + clientColumns + `
		FROM clients
		WHERE user_id = ? AND (is_archived = 0 OR ? = 1)
		ORDER BY name
	`

	rows, err := r.q.QueryContext(ctx, query, userID, includeArchived)
	if err != nil {
		return nil, fmt.Errorf("failed to list clients: %w", err)
	}
	defer rows.Close()

	clients := make([]*domain.Client, 0)
	for rows.Next() {
		c, err := scanClient(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan client: %w", err)
		}
		clients = append(clients, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating clients: %w", err)
	}

	return clients, nil
}

// Update updates an existing client
func (r *ClientRepo) Update(ctx context.Context, client *domain.Client) error {
	query := `
		UPDATE clients
		SET name = ?, email = ?, phone = ?, company = ?, address = ?, tax_number = ?,
		    hourly_rate = ?, notes = ?, is_archived = ?, updated_at = ?
		WHERE id = ?
	`

	result, err := r.q.ExecContext(ctx, query,
		client.Name,
		client.Email,
		client.Phone,
		client.Company,
		client.Address,
		client.TaxNumber,
		client.HourlyRate,
		client.Notes,
		client.IsArchived,
		formatTime(client.UpdatedAt),
		client.ID,
	)
	if err != nil {
		return wrapWrite(err, "update client")
	}
	return checkAffected(result, "client")
}

// Delete removes a client. Foreign keys reject it while projects or invoices exist.
func (r *ClientRepo) Delete(ctx context.Context, id int64) error {
	result, err := r.q.ExecContext(ctx, `DELETE FROM clients WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete client: %w", err)
	}
	return checkAffected(result, "client")
}

// CountDependents counts projects and invoices that block deletion
func (r *ClientRepo) CountDependents(ctx context.Context, id int64) (int, int, error) {
	var projects, invoices int
	query := `
		SELECT
			(SELECT COUNT(*) FROM projects WHERE client_id = ?),
			(SELECT COUNT(*) FROM invoices WHERE client_id = ?)
	`
	if err := r.q.QueryRowContext(ctx, query, id, id).Scan(&projects, &invoices); err != nil {
		return 0, 0, fmt.Errorf("failed to count client dependents: %w", err)
	}
	return projects, invoices, nil
}

func scanClient(row rowScanner) (*domain.Client, error) {
	c := &domain.Client{}
	var email, phone, company, address, taxNumber, notes sql.NullString
	var createdAt, updatedAt string

	err := row.Scan(
		&c.ID,
		&c.UserID,
		&c.Name,
		&email,
		&phone,
		&company,
		&address,
		&taxNumber,
		&c.HourlyRate,
		&notes,
		&c.IsArchived,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	c.Email = email.String
	c.Phone = phone.String
	c.Company = company.String
	c.Address = address.String
	c.TaxNumber = taxNumber.String
	c.Notes = notes.String

	if c.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, fmt.Errorf("failed to parse created_at: %w", err)
	}
	if c.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, fmt.Errorf("failed to parse updated_at: %w", err)
	}

	return c, nil
}
