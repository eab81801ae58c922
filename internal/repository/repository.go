package repository

import (
	"context"
	"errors"
	"time"

	"github.com/andy/billable/internal/domain"
)

var (
	// ErrNotFound is returned (wrapped) when a row does not exist
	ErrNotFound = errors.New("not found")
	// ErrDuplicate is returned (wrapped) when a unique constraint rejects a write
	ErrDuplicate = errors.New("duplicate")
)

// Store hands out repositories bound to one connection or transaction.
type Store interface {
	Users() UserRepository
	Clients() ClientRepository
	Projects() ProjectRepository
	Assignments() AssignmentRepository
	Entries() TimeEntryRepository
	Invoices() InvoiceRepository

	// WithTx runs fn inside a transaction. Returning an error rolls every
	// write back. Calls made on an already transactional Store join it.
	WithTx(ctx context.Context, fn func(Store) error) error
}

// UserRepository manages user persistence
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id int64) (*domain.User, error)
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
}

// ClientRepository manages client persistence
type ClientRepository interface {
	Create(ctx context.Context, client *domain.Client) error
	GetByID(ctx context.Context, id int64) (*domain.Client, error)
	List(ctx context.Context, userID int64, includeArchived bool) ([]*domain.Client, error)
	Update(ctx context.Context, client *domain.Client) error
	Delete(ctx context.Context, id int64) error
	// CountDependents returns how many projects and invoices reference the client
	CountDependents(ctx context.Context, id int64) (projects, invoices int, err error)
}

// ProjectFilter narrows ProjectRepository.List
type ProjectFilter struct {
	UserID   int64
	ClientID *int64
	Status   *domain.ProjectStatus
}

// ProjectRepository manages project persistence
type ProjectRepository interface {
	Create(ctx context.Context, project *domain.Project) error
	GetByID(ctx context.Context, id int64) (*domain.Project, error)
	List(ctx context.Context, filter ProjectFilter) ([]*domain.Project, error)
	Update(ctx context.Context, project *domain.Project) error
	Delete(ctx context.Context, id int64) error
}

// AssignmentRepository manages assignment persistence
type AssignmentRepository interface {
	Create(ctx context.Context, assignment *domain.Assignment) error
	GetByID(ctx context.Context, id int64) (*domain.Assignment, error)
	ListByProject(ctx context.Context, projectID int64) ([]*domain.Assignment, error)
	Update(ctx context.Context, assignment *domain.Assignment) error
	Delete(ctx context.Context, id int64) error
}

// EntryFilter narrows TimeEntryRepository.List. From/To bound start_time
// (inclusive from, exclusive to).
type EntryFilter struct {
	UserID         int64
	ProjectID      *int64
	AssignmentID   *int64
	From           *time.Time
	To             *time.Time
	BillableOnly   bool
	UnbilledOnly   bool
	IncludeRunning bool
}

// TimeEntryRepository manages time entry persistence with audit trail
type TimeEntryRepository interface {
	// Create fails with ErrDuplicate when the user already has a running entry
	Create(ctx context.Context, entry *domain.TimeEntry) error
	GetByID(ctx context.Context, id int64) (*domain.TimeEntry, error)
	GetActive(ctx context.Context, userID int64) (*domain.TimeEntry, error)
	Update(ctx context.Context, entry *domain.TimeEntry) error
	Delete(ctx context.Context, id int64) error
	List(ctx context.Context, filter EntryFilter) ([]*domain.TimeEntry, error)
	CountByProject(ctx context.Context, projectID int64) (int, error)
	LockForInvoice(ctx context.Context, entryIDs []int64, invoiceID int64, at time.Time) error
	AddHistory(ctx context.Context, h *domain.EntryHistory) error
	GetHistory(ctx context.Context, entryID int64) ([]*domain.EntryHistory, error)
}

// InvoiceFilter narrows InvoiceRepository.List. From/To bound invoice_date.
type InvoiceFilter struct {
	UserID   int64
	ClientID *int64
	Statuses []domain.InvoiceStatus
	From     *time.Time
	To       *time.Time
}

// InvoiceRepository manages invoice persistence. Invoices are always loaded
// with their items.
type InvoiceRepository interface {
	// Create inserts the header and every item in invoice.Items
	Create(ctx context.Context, invoice *domain.Invoice) error
	GetByID(ctx context.Context, id int64) (*domain.Invoice, error)
	GetByNumber(ctx context.Context, number string) (*domain.Invoice, error)
	List(ctx context.Context, filter InvoiceFilter) ([]*domain.Invoice, error)
	// Update writes the header fields only
	Update(ctx context.Context, invoice *domain.Invoice) error
	Delete(ctx context.Context, id int64) error
	AddItem(ctx context.Context, item *domain.InvoiceItem) error
	UpdateItem(ctx context.Context, item *domain.InvoiceItem) error
	DeleteItem(ctx context.Context, invoiceID, itemID int64) error
	// NextSequence atomically bumps and returns the counter for year
	NextSequence(ctx context.Context, year int) (int64, error)
	// PeekSequence returns the value NextSequence would hand out, without
	// consuming it
	PeekSequence(ctx context.Context, year int) (int64, error)
}
