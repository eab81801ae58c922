package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/andy/billable/internal/domain"
	"github.com/andy/billable/internal/repository"
)

// ClientInput holds client fields. On Update, nil pointers leave a field alone.
type ClientInput struct {
	Name       *string
	Email      *string
	Phone      *string
	Company    *string
	Address    *string
	TaxNumber  *string
	HourlyRate *decimal.Decimal
	Notes      *string
}

func (in ClientInput) apply(c *domain.Client) {
	set := func(dst *string, src *string) {
		if src != nil {
			*dst = strings.TrimSpace(*src)
		}
	}
	set(&c.Name, in.Name)
	set(&c.Email, in.Email)
	set(&c.Phone, in.Phone)
	set(&c.Company, in.Company)
	set(&c.Address, in.Address)
	set(&c.TaxNumber, in.TaxNumber)
	set(&c.Notes, in.Notes)
	if in.HourlyRate != nil {
		c.HourlyRate = domain.RoundMoney(*in.HourlyRate)
	}
}

// ClientService manages clients
type ClientService interface {
	Create(ctx context.Context, userID int64, in ClientInput) (*domain.Client, error)
	Get(ctx context.Context, userID, clientID int64) (*domain.Client, error)
	List(ctx context.Context, userID int64, includeArchived bool) ([]*domain.Client, error)
	Update(ctx context.Context, userID, clientID int64, in ClientInput) (*domain.Client, error)
	Archive(ctx context.Context, userID, clientID int64) (*domain.Client, error)
	Unarchive(ctx context.Context, userID, clientID int64) (*domain.Client, error)
	// Delete removes a client with no projects or invoices
	Delete(ctx context.Context, userID, clientID int64) error
}

type clientService struct {
	base
}

// NewClientService creates a new client service
func NewClientService(store repository.Store, clock domain.Clock, logger *slog.Logger) ClientService {
	return &clientService{base: newBase(store, clock, logger)}
}

func duplicateName(name string) error {
	return domain.Conflict(fmt.Sprintf("a client named %q already exists", name))
}

func (s *clientService) Create(ctx context.Context, userID int64, in ClientInput) (*domain.Client, error) {
	c := domain.NewClient(userID, "", decimal.Zero, s.now())
	in.apply(c)
	if err := c.Validate(); err != nil {
		return nil, err
	}

	err := s.withTx(ctx, "CreateClient", func(st repository.Store) error {
		err := st.Clients().Create(ctx, c)
		if errors.Is(err, repository.ErrDuplicate) {
			return duplicateName(c.Name)
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (s *clientService) Get(ctx context.Context, userID, clientID int64) (*domain.Client, error) {
	c, err := loadClient(ctx, s.store, userID, clientID)
	if err != nil {
		return nil, s.fail(ctx, "GetClient", err)
	}
	return c, nil
}

func (s *clientService) List(ctx context.Context, userID int64, includeArchived bool) ([]*domain.Client, error) {
	clients, err := s.store.Clients().List(ctx, userID, includeArchived)
	if err != nil {
		return nil, s.fail(ctx, "ListClients", err)
	}
	return clients, nil
}

func (s *clientService) mutate(ctx context.Context, op string, userID, clientID int64, fn func(c *domain.Client) error) (*domain.Client, error) {
	var c *domain.Client
	err := s.withTx(ctx, op, func(st repository.Store) error {
		var err error
		c, err = loadClient(ctx, st, userID, clientID)
		if err != nil {
			return err
		}
		if err := fn(c); err != nil {
			return err
		}
		c.UpdatedAt = s.now()
		err = st.Clients().Update(ctx, c)
		if errors.Is(err, repository.ErrDuplicate) {
			return duplicateName(c.Name)
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (s *clientService) Update(ctx context.Context, userID, clientID int64, in ClientInput) (*domain.Client, error) {
	return s.mutate(ctx, "UpdateClient", userID, clientID, func(c *domain.Client) error {
		in.apply(c)
		return c.Validate()
	})
}

func (s *clientService) Archive(ctx context.Context, userID, clientID int64) (*domain.Client, error) {
	return s.mutate(ctx, "ArchiveClient", userID, clientID, func(c *domain.Client) error {
		c.IsArchived = true
		return nil
	})
}

func (s *clientService) Unarchive(ctx context.Context, userID, clientID int64) (*domain.Client, error) {
	return s.mutate(ctx, "UnarchiveClient", userID, clientID, func(c *domain.Client) error {
		c.IsArchived = false
		return nil
	})
}

func (s *clientService) Delete(ctx context.Context, userID, clientID int64) error {
	return s.withTx(ctx, "DeleteClient", func(st repository.Store) error {
		c, err := loadClient(ctx, st, userID, clientID)
		if err != nil {
			return err
		}
		projects, invoices, err := st.Clients().CountDependents(ctx, c.ID)
		if err != nil {
			return err
		}
		if projects > 0 || invoices > 0 {
			return domain.Conflict(fmt.Sprintf("client has %d projects and %d invoices", projects, invoices))
		}
		return st.Clients().Delete(ctx, c.ID)
	})
}
