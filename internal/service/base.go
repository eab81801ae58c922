package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/andy/billable/internal/domain"
	"github.com/andy/billable/internal/repository"
)

// base is embedded by every service. It owns the store, clock and logger
// and turns infrastructure failures into opaque InternalErrors.
type base struct {
	store  repository.Store
	clock  domain.Clock
	logger *slog.Logger
}

func newBase(store repository.Store, clock domain.Clock, logger *slog.Logger) base {
	if clock == nil {
		clock = domain.SystemClock{}
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return base{store: store, clock: clock, logger: logger}
}

func (b *base) now() time.Time {
	return b.clock.Now()
}

// withTx runs fn in one transaction; any error rolls it back
func (b *base) withTx(ctx context.Context, op string, fn func(repository.Store) error) error {
	return b.fail(ctx, op, b.store.WithTx(ctx, fn))
}

// fail passes business errors through untouched. Anything else is logged
// with its cause and replaced by an InternalError.
func (b *base) fail(ctx context.Context, op string, err error) error {
	if err == nil || domain.IsBusiness(err) {
		return err
	}
	var internal *domain.InternalError
	if errors.As(err, &internal) {
		return err
	}
	b.logger.ErrorContext(ctx, "operation failed", "op", op, "error", err)
	return domain.Internal(op, err)
}

func isNotFound(err error) bool {
	return errors.Is(err, repository.ErrNotFound)
}

// The load helpers fetch an aggregate and hide rows owned by other users
// behind NotFound.

func loadClient(ctx context.Context, st repository.Store, userID, id int64) (*domain.Client, error) {
	c, err := st.Clients().GetByID(ctx, id)
	if isNotFound(err) || (err == nil && c.UserID != userID) {
		return nil, domain.NotFound("client", id)
	}
	return c, err
}

func loadProject(ctx context.Context, st repository.Store, userID, id int64) (*domain.Project, error) {
	p, err := st.Projects().GetByID(ctx, id)
	if isNotFound(err) || (err == nil && p.UserID != userID) {
		return nil, domain.NotFound("project", id)
	}
	return p, err
}

func loadAssignment(ctx context.Context, st repository.Store, userID, id int64) (*domain.Assignment, error) {
	a, err := st.Assignments().GetByID(ctx, id)
	if isNotFound(err) || (err == nil && a.UserID != userID) {
		return nil, domain.NotFound("assignment", id)
	}
	return a, err
}

func loadEntry(ctx context.Context, st repository.Store, userID, id int64) (*domain.TimeEntry, error) {
	e, err := st.Entries().GetByID(ctx, id)
	if isNotFound(err) || (err == nil && e.UserID != userID) {
		return nil, domain.NotFound("time entry", id)
	}
	return e, err
}

func loadInvoice(ctx context.Context, st repository.Store, userID, id int64) (*domain.Invoice, error) {
	inv, err := st.Invoices().GetByID(ctx, id)
	if isNotFound(err) || (err == nil && inv.UserID != userID) {
		return nil, domain.NotFound("invoice", id)
	}
	return inv, err
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// startOfWeek returns the Monday on or before t
func startOfWeek(t time.Time) time.Time {
	d := startOfDay(t)
	for d.Weekday() != time.Monday {
		d = d.AddDate(0, 0, -1)
	}
	return d
}
