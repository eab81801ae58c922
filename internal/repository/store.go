package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/andy/billable/internal/db"
)

// SQLStore is the SQLite implementation of Store
type SQLStore struct {
	db *db.DB
	q  Querier
	tx *sql.Tx
}

// NewSQLStore creates a Store over an open database
func NewSQLStore(database *db.DB) *SQLStore {
	return &SQLStore{db: database, q: database}
}

func (s *SQLStore) Users() UserRepository             { return NewUserRepo(s.q) }
func (s *SQLStore) Clients() ClientRepository         { return NewClientRepo(s.q) }
func (s *SQLStore) Projects() ProjectRepository       { return NewProjectRepo(s.q) }
func (s *SQLStore) Assignments() AssignmentRepository { return NewAssignmentRepo(s.q) }
func (s *SQLStore) Entries() TimeEntryRepository      { return NewEntryRepo(s.q) }
func (s *SQLStore) Invoices() InvoiceRepository       { return NewInvoiceRepo(s.q) }

// WithTx begins an IMMEDIATE transaction (see db.Open), so the write lock is
// held from the first statement and concurrent writers are serialised.
func (s *SQLStore) WithTx(ctx context.Context, fn func(Store) error) error {
	if s.tx != nil {
		return fn(s)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(&SQLStore{db: s.db, q: tx, tx: tx}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
