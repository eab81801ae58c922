package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/andy/billable/internal/domain"
	"github.com/andy/billable/internal/repository"
)

var ErrInvoicePaid = domain.Conflict("a paid invoice cannot be deleted")

// InvoiceOptions are the defaults applied to new invoices
type InvoiceOptions struct {
	NumberPrefix string
	DueDays      int
	TaxRate      decimal.Decimal // percent
	Currency     string
}

// DefaultInvoiceOptions numbers invoices INV-YYYY-NNNN, due in 30 days
func DefaultInvoiceOptions() InvoiceOptions {
	return InvoiceOptions{
		NumberPrefix: "INV",
		DueDays:      30,
		TaxRate:      decimal.Zero,
		Currency:     "EUR",
	}
}

// ItemInput describes one line item
type ItemInput struct {
	TimeEntryID *int64
	Description string
	Quantity    decimal.Decimal
	UnitPrice   decimal.Decimal
	Unit        string
	Notes       string
}

func (in ItemInput) item() *domain.InvoiceItem {
	it := domain.NewInvoiceItem(in.Description, in.Quantity, in.UnitPrice, in.Unit)
	it.TimeEntryID = in.TimeEntryID
	it.Notes = in.Notes
	return it
}

// CreateInvoiceInput holds the fields of a new invoice. Nil dates and rates
// fall back to InvoiceOptions.
type CreateInvoiceInput struct {
	ClientID    int64
	ProjectID   *int64
	InvoiceDate *time.Time
	DueDate     *time.Time
	TaxRate     *decimal.Decimal
	Currency    string
	Notes       string
	Items       []ItemInput
}

// FromEntriesInput bills stopped time entries, one item per entry
type FromEntriesInput struct {
	ClientID  int64
	ProjectID *int64
	EntryIDs  []int64
	TaxRate   *decimal.Decimal
	DueDate   *time.Time
	Notes     string
}

// InvoiceQuery filters ListInvoices
type InvoiceQuery struct {
	ClientID    *int64
	Status      *domain.InvoiceStatus
	OverdueOnly bool
}

// InvoiceView is an invoice as presented to callers, with the derived
// overdue flag resolved against the clock.
type InvoiceView struct {
	*domain.Invoice
	IsOverdue     bool                 `json:"isOverdue"`
	DisplayStatus domain.InvoiceStatus `json:"displayStatus"`
}

// InvoiceService manages invoice lifecycle, items and entry locking
type InvoiceService interface {
	// CreateInvoice creates a draft with a freshly generated number
	CreateInvoice(ctx context.Context, userID int64, in CreateInvoiceInput) (*InvoiceView, error)

	// CreateInvoiceFromTimeEntries bills stopped entries and locks them
	CreateInvoiceFromTimeEntries(ctx context.Context, userID int64, in FromEntriesInput) (*InvoiceView, error)

	GetInvoice(ctx context.Context, userID, invoiceID int64) (*InvoiceView, error)
	ListInvoices(ctx context.Context, userID int64, q InvoiceQuery) ([]*InvoiceView, error)

	AddItem(ctx context.Context, userID, invoiceID int64, in ItemInput) (*InvoiceView, error)
	UpdateItem(ctx context.Context, userID, invoiceID, itemID int64, in ItemInput) (*InvoiceView, error)
	// RemoveItem deletes the item and releases its time entry, if any
	RemoveItem(ctx context.Context, userID, invoiceID, itemID int64) (*InvoiceView, error)

	ApplyDiscount(ctx context.Context, userID, invoiceID int64, amount decimal.Decimal) (*InvoiceView, error)
	SendInvoice(ctx context.Context, userID, invoiceID int64) (*InvoiceView, error)
	// MarkAsPaid settles the invoice in full; a nil paidAt means now
	MarkAsPaid(ctx context.Context, userID, invoiceID int64, paidAt *time.Time) (*InvoiceView, error)
	RecordPayment(ctx context.Context, userID, invoiceID int64, amount decimal.Decimal, paidAt *time.Time) (*InvoiceView, error)
	// CancelInvoice voids the invoice and releases its time entries
	CancelInvoice(ctx context.Context, userID, invoiceID int64) (*InvoiceView, error)
	UpdatePaymentTerms(ctx context.Context, userID, invoiceID int64, dueDate time.Time) (*InvoiceView, error)
	DeleteInvoice(ctx context.Context, userID, invoiceID int64) error

	// CalculateInvoiceTotal computes the breakdown from the stored items
	CalculateInvoiceTotal(ctx context.Context, userID, invoiceID int64) (*domain.InvoiceTotals, error)

	// GenerateInvoiceNumber consumes the next number of the current year
	GenerateInvoiceNumber(ctx context.Context) (string, error)
	// PeekInvoiceNumber returns the next number without consuming it
	PeekInvoiceNumber(ctx context.Context) (string, error)

	// GetTotalOutstandingAmount sums what is still owed on sent invoices
	GetTotalOutstandingAmount(ctx context.Context, userID int64) (decimal.Decimal, error)
	// GetTotalPaidAmount sums paid invoices whose paidAt falls in [from, to)
	GetTotalPaidAmount(ctx context.Context, userID int64, from, to *time.Time) (decimal.Decimal, error)
}

type invoiceService struct {
	base
	opts InvoiceOptions
}

// NewInvoiceService creates a new invoice service
func NewInvoiceService(
	store repository.Store,
	clock domain.Clock,
	logger *slog.Logger,
	opts InvoiceOptions,
) InvoiceService {
	if opts.NumberPrefix == "" {
		opts.NumberPrefix = "INV"
	}
	if opts.DueDays <= 0 {
		opts.DueDays = 30
	}
	return &invoiceService{
		base: newBase(store, clock, logger),
		opts: opts,
	}
}

func (s *invoiceService) view(inv *domain.Invoice) *InvoiceView {
	now := s.now()
	return &InvoiceView{
		Invoice:       inv,
		IsOverdue:     inv.IsOverdue(now),
		DisplayStatus: inv.DisplayStatus(now),
	}
}

// nextNumber bumps the per-year counter inside st's transaction
func (s *invoiceService) nextNumber(ctx context.Context, st repository.Store) (string, error) {
	year := s.now().Year()
	seq, err := st.Invoices().NextSequence(ctx, year)
	if err != nil {
		return "", err
	}
	return domain.FormatInvoiceNumber(s.opts.NumberPrefix, year, seq), nil
}

// newDraft fills defaults and checks the client and optional project
func (s *invoiceService) newDraft(ctx context.Context, st repository.Store, userID, clientID int64, projectID *int64, invoiceDate, dueDate *time.Time, taxRate *decimal.Decimal, currency string) (*domain.Invoice, error) {
	if _, err := loadClient(ctx, st, userID, clientID); err != nil {
		return nil, err
	}
	if projectID != nil {
		project, err := loadProject(ctx, st, userID, *projectID)
		if err != nil {
			return nil, err
		}
		if project.ClientID != clientID {
			return nil, domain.Invalid("projectId", "project does not belong to the client")
		}
	}

	now := s.now()
	date := startOfDay(now)
	if invoiceDate != nil {
		date = *invoiceDate
	}
	due := date.AddDate(0, 0, s.opts.DueDays)
	if dueDate != nil {
		due = *dueDate
	}
	rate := s.opts.TaxRate
	if taxRate != nil {
		rate = *taxRate
	}
	if currency == "" {
		currency = s.opts.Currency
	}

	number, err := s.nextNumber(ctx, st)
	if err != nil {
		return nil, err
	}
	inv := domain.NewInvoice(userID, clientID, number, date, due, rate, currency, now)
	inv.ProjectID = projectID
	if err := inv.Validate(); err != nil {
		return nil, err
	}
	return inv, nil
}

func (s *invoiceService) CreateInvoice(ctx context.Context, userID int64, in CreateInvoiceInput) (*InvoiceView, error) {
	if in.ClientID <= 0 {
		return nil, domain.Invalid("clientId", "client ID is required")
	}

	var inv *domain.Invoice
	err := s.withTx(ctx, "CreateInvoice", func(st repository.Store) error {
		var err error
		inv, err = s.newDraft(ctx, st, userID, in.ClientID, in.ProjectID, in.InvoiceDate, in.DueDate, in.TaxRate, in.Currency)
		if err != nil {
			return err
		}
		inv.Notes = in.Notes

		v := domain.NewValidationError()
		var entryIDs []int64
		seen := make(map[int64]bool)
		for i, itemIn := range in.Items {
			item := itemIn.item()
			if err := item.Validate(); err != nil {
				v.Add(fmt.Sprintf("items[%d]", i), err.Error())
				continue
			}
			if id := item.TimeEntryID; id != nil {
				if seen[*id] {
					return domain.Invalid(fmt.Sprintf("items[%d]", i), fmt.Sprintf("time entry %d is listed twice", *id))
				}
				seen[*id] = true
				if _, err := s.billableEntry(ctx, st, userID, *id, in.ClientID, in.ProjectID); err != nil {
					return err
				}
				entryIDs = append(entryIDs, *id)
			}
			inv.Items = append(inv.Items, item)
		}
		if err := v.Err(); err != nil {
			return err
		}
		if err := inv.CalculateTotals(); err != nil {
			return err
		}
		if err := st.Invoices().Create(ctx, inv); err != nil {
			return err
		}
		if len(entryIDs) == 0 {
			return nil
		}
		return st.Entries().LockForInvoice(ctx, entryIDs, inv.ID, s.now())
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "invoice created", "user_id", userID, "invoice", inv.InvoiceNumber, "total", inv.TotalAmount.StringFixed(domain.MoneyPlaces))
	return s.view(inv), nil
}

func (s *invoiceService) CreateInvoiceFromTimeEntries(ctx context.Context, userID int64, in FromEntriesInput) (*InvoiceView, error) {
	v := domain.NewValidationError()
	if in.ClientID <= 0 {
		v.Add("clientId", "client ID is required")
	}
	if len(in.EntryIDs) == 0 {
		v.Add("entryIds", "at least one time entry is required")
	}
	if err := v.Err(); err != nil {
		return nil, err
	}

	var inv *domain.Invoice
	err := s.withTx(ctx, "CreateInvoiceFromTimeEntries", func(st repository.Store) error {
		var err error
		inv, err = s.newDraft(ctx, st, userID, in.ClientID, in.ProjectID, nil, in.DueDate, in.TaxRate, "")
		if err != nil {
			return err
		}
		inv.Notes = in.Notes

		seen := make(map[int64]bool, len(in.EntryIDs))
		for _, id := range in.EntryIDs {
			if seen[id] {
				return domain.Invalid("entryIds", fmt.Sprintf("time entry %d is listed twice", id))
			}
			seen[id] = true

			entry, err := s.billableEntry(ctx, st, userID, id, in.ClientID, in.ProjectID)
			if err != nil {
				return err
			}
			item := domain.NewInvoiceItem(entryDescription(entry), decimal.NewFromInt(1), entry.Amount, "entry")
			item.TimeEntryID = &entry.ID
			inv.Items = append(inv.Items, item)
		}
		if err := inv.CalculateTotals(); err != nil {
			return err
		}
		if err := st.Invoices().Create(ctx, inv); err != nil {
			return err
		}
		return st.Entries().LockForInvoice(ctx, in.EntryIDs, inv.ID, s.now())
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "invoice created from time entries",
		"user_id", userID,
		"invoice", inv.InvoiceNumber,
		"entries", len(in.EntryIDs),
		"total", inv.TotalAmount.StringFixed(domain.MoneyPlaces),
	)
	return s.view(inv), nil
}

// billableEntry loads an entry and checks it can go on an invoice for the
// client (and project, when given).
func (s *invoiceService) billableEntry(ctx context.Context, st repository.Store, userID, entryID, clientID int64, projectID *int64) (*domain.TimeEntry, error) {
	entry, err := loadEntry(ctx, st, userID, entryID)
	if err != nil {
		return nil, err
	}
	field := "entryIds"
	switch {
	case entry.IsRunning():
		return nil, domain.Invalid(field, fmt.Sprintf("time entry %d is still running", entryID))
	case !entry.IsBillable:
		return nil, domain.Invalid(field, fmt.Sprintf("time entry %d is not billable", entryID))
	case entry.IsLocked():
		return nil, domain.Conflict(fmt.Sprintf("time entry %d is already invoiced", entryID))
	case !entry.Amount.IsPositive():
		return nil, domain.Invalid(field, fmt.Sprintf("time entry %d has no billable amount", entryID))
	case projectID != nil && entry.ProjectID != *projectID:
		return nil, domain.Invalid(field, fmt.Sprintf("time entry %d belongs to another project", entryID))
	}

	project, err := st.Projects().GetByID(ctx, entry.ProjectID)
	if err != nil {
		return nil, err
	}
	if project.ClientID != clientID {
		return nil, domain.Invalid(field, fmt.Sprintf("time entry %d belongs to another client", entryID))
	}
	return entry, nil
}

func entryDescription(e *domain.TimeEntry) string {
	desc := e.Description
	if desc == "" {
		desc = "Time entry"
	}
	return fmt.Sprintf("%s (%s, %s h)", desc, e.StartTime.Format("2006-01-02"), e.Hours().StringFixed(2))
}

func (s *invoiceService) GetInvoice(ctx context.Context, userID, invoiceID int64) (*InvoiceView, error) {
	inv, err := loadInvoice(ctx, s.store, userID, invoiceID)
	if err != nil {
		return nil, s.fail(ctx, "GetInvoice", err)
	}
	return s.view(inv), nil
}

func (s *invoiceService) ListInvoices(ctx context.Context, userID int64, q InvoiceQuery) ([]*InvoiceView, error) {
	filter := repository.InvoiceFilter{UserID: userID, ClientID: q.ClientID}
	status := q.Status
	if status != nil && *status == domain.InvoiceStatusOverdue {
		// Overdue is not stored; it is a sent invoice past its due date
		sent := domain.InvoiceStatusSent
		status = &sent
		q.OverdueOnly = true
	}
	if status != nil {
		filter.Statuses = []domain.InvoiceStatus{*status}
	}

	invoices, err := s.store.Invoices().List(ctx, filter)
	if err != nil {
		return nil, s.fail(ctx, "ListInvoices", err)
	}

	views := make([]*InvoiceView, 0, len(invoices))
	for _, inv := range invoices {
		vw := s.view(inv)
		if q.OverdueOnly && !vw.IsOverdue {
			continue
		}
		views = append(views, vw)
	}
	return views, nil
}

// mutate loads an invoice, applies fn and writes the header back, all in
// one transaction.
func (s *invoiceService) mutate(ctx context.Context, op string, userID, invoiceID int64, fn func(st repository.Store, inv *domain.Invoice, now time.Time) error) (*InvoiceView, error) {
	var inv *domain.Invoice
	err := s.withTx(ctx, op, func(st repository.Store) error {
		var err error
		inv, err = loadInvoice(ctx, st, userID, invoiceID)
		if err != nil {
			return err
		}
		if err := fn(st, inv, s.now()); err != nil {
			return err
		}
		return st.Invoices().Update(ctx, inv)
	})
	if err != nil {
		return nil, err
	}
	return s.view(inv), nil
}

// AddItem appends a line item. An item backed by a time entry locks that
// entry to the invoice, so no entry is billed twice.
func (s *invoiceService) AddItem(ctx context.Context, userID, invoiceID int64, in ItemInput) (*InvoiceView, error) {
	return s.mutate(ctx, "AddItem", userID, invoiceID, func(st repository.Store, inv *domain.Invoice, now time.Time) error {
		item := in.item()
		if item.TimeEntryID != nil {
			if _, err := s.billableEntry(ctx, st, userID, *item.TimeEntryID, inv.ClientID, inv.ProjectID); err != nil {
				return err
			}
		}
		if err := inv.AddItem(item, now); err != nil {
			return err
		}
		if err := st.Invoices().AddItem(ctx, item); err != nil {
			return err
		}
		if item.TimeEntryID == nil {
			return nil
		}
		return st.Entries().LockForInvoice(ctx, []int64{*item.TimeEntryID}, inv.ID, now)
	})
}

// UpdateItem replaces a line item. A nil TimeEntryID keeps the current
// entry; a different one releases the old entry and locks the new one.
func (s *invoiceService) UpdateItem(ctx context.Context, userID, invoiceID, itemID int64, in ItemInput) (*InvoiceView, error) {
	return s.mutate(ctx, "UpdateItem", userID, invoiceID, func(st repository.Store, inv *domain.Invoice, now time.Time) error {
		var cur *domain.InvoiceItem
		for _, it := range inv.Items {
			if it.ID == itemID {
				cur = it
			}
		}

		item := in.item()
		item.ID = itemID
		item.InvoiceID = inv.ID
		var prev *int64
		if cur != nil {
			prev = cur.TimeEntryID
		}
		if item.TimeEntryID == nil {
			item.TimeEntryID = prev
		}
		swapped := item.TimeEntryID != nil && (prev == nil || *prev != *item.TimeEntryID)
		if swapped {
			if _, err := s.billableEntry(ctx, st, userID, *item.TimeEntryID, inv.ClientID, inv.ProjectID); err != nil {
				return err
			}
		}

		if err := inv.ReplaceItem(item, now); err != nil {
			return err
		}
		if err := st.Invoices().UpdateItem(ctx, item); err != nil {
			return err
		}
		if !swapped {
			return nil
		}
		if err := s.releaseEntries(ctx, st, inv.ID, []*domain.InvoiceItem{cur}, now); err != nil {
			return err
		}
		return st.Entries().LockForInvoice(ctx, []int64{*item.TimeEntryID}, inv.ID, now)
	})
}

func (s *invoiceService) RemoveItem(ctx context.Context, userID, invoiceID, itemID int64) (*InvoiceView, error) {
	return s.mutate(ctx, "RemoveItem", userID, invoiceID, func(st repository.Store, inv *domain.Invoice, now time.Time) error {
		removed, err := inv.RemoveItem(itemID, now)
		if err != nil {
			return err
		}
		if err := st.Invoices().DeleteItem(ctx, inv.ID, itemID); err != nil {
			return err
		}
		return s.releaseEntries(ctx, st, inv.ID, []*domain.InvoiceItem{removed}, now)
	})
}

// releaseEntries unlocks the time entries behind items that were locked to
// invoiceID.
func (s *invoiceService) releaseEntries(ctx context.Context, st repository.Store, invoiceID int64, items []*domain.InvoiceItem, now time.Time) error {
	for _, item := range items {
		if item.TimeEntryID == nil {
			continue
		}
		entry, err := st.Entries().GetByID(ctx, *item.TimeEntryID)
		if isNotFound(err) {
			continue
		}
		if err != nil {
			return err
		}
		if entry.InvoiceID == nil || *entry.InvoiceID != invoiceID {
			continue
		}
		entry.InvoiceID = nil
		entry.UpdatedAt = now
		if err := st.Entries().Update(ctx, entry); err != nil {
			return err
		}
	}
	return nil
}

func (s *invoiceService) ApplyDiscount(ctx context.Context, userID, invoiceID int64, amount decimal.Decimal) (*InvoiceView, error) {
	return s.mutate(ctx, "ApplyDiscount", userID, invoiceID, func(_ repository.Store, inv *domain.Invoice, now time.Time) error {
		return inv.ApplyDiscount(amount, now)
	})
}

func (s *invoiceService) SendInvoice(ctx context.Context, userID, invoiceID int64) (*InvoiceView, error) {
	vw, err := s.mutate(ctx, "SendInvoice", userID, invoiceID, func(_ repository.Store, inv *domain.Invoice, now time.Time) error {
		return inv.Send(now)
	})
	if err == nil {
		s.logger.InfoContext(ctx, "invoice sent", "user_id", userID, "invoice", vw.InvoiceNumber)
	}
	return vw, err
}

func (s *invoiceService) MarkAsPaid(ctx context.Context, userID, invoiceID int64, paidAt *time.Time) (*InvoiceView, error) {
	vw, err := s.mutate(ctx, "MarkAsPaid", userID, invoiceID, func(_ repository.Store, inv *domain.Invoice, now time.Time) error {
		at := now
		if paidAt != nil {
			at = *paidAt
		}
		return inv.MarkPaid(at, now)
	})
	if err == nil {
		s.logger.InfoContext(ctx, "invoice paid", "user_id", userID, "invoice", vw.InvoiceNumber)
	}
	return vw, err
}

func (s *invoiceService) RecordPayment(ctx context.Context, userID, invoiceID int64, amount decimal.Decimal, paidAt *time.Time) (*InvoiceView, error) {
	return s.mutate(ctx, "RecordPayment", userID, invoiceID, func(_ repository.Store, inv *domain.Invoice, now time.Time) error {
		at := now
		if paidAt != nil {
			at = *paidAt
		}
		return inv.RecordPayment(amount, at, now)
	})
}

func (s *invoiceService) CancelInvoice(ctx context.Context, userID, invoiceID int64) (*InvoiceView, error) {
	vw, err := s.mutate(ctx, "CancelInvoice", userID, invoiceID, func(st repository.Store, inv *domain.Invoice, now time.Time) error {
		if err := inv.Cancel(now); err != nil {
			return err
		}
		return s.releaseEntries(ctx, st, inv.ID, inv.Items, now)
	})
	if err == nil {
		s.logger.InfoContext(ctx, "invoice cancelled", "user_id", userID, "invoice", vw.InvoiceNumber)
	}
	return vw, err
}

func (s *invoiceService) UpdatePaymentTerms(ctx context.Context, userID, invoiceID int64, dueDate time.Time) (*InvoiceView, error) {
	return s.mutate(ctx, "UpdatePaymentTerms", userID, invoiceID, func(_ repository.Store, inv *domain.Invoice, now time.Time) error {
		return inv.UpdateDueDate(dueDate, now)
	})
}

func (s *invoiceService) DeleteInvoice(ctx context.Context, userID, invoiceID int64) error {
	return s.withTx(ctx, "DeleteInvoice", func(st repository.Store) error {
		inv, err := loadInvoice(ctx, st, userID, invoiceID)
		if err != nil {
			return err
		}
		if inv.Status == domain.InvoiceStatusPaid {
			return ErrInvoicePaid
		}
		if err := s.releaseEntries(ctx, st, inv.ID, inv.Items, s.now()); err != nil {
			return err
		}
		return st.Invoices().Delete(ctx, inv.ID)
	})
}

func (s *invoiceService) CalculateInvoiceTotal(ctx context.Context, userID, invoiceID int64) (*domain.InvoiceTotals, error) {
	inv, err := loadInvoice(ctx, s.store, userID, invoiceID)
	if err != nil {
		return nil, s.fail(ctx, "CalculateInvoiceTotal", err)
	}
	totals := inv.Totals()
	return &totals, nil
}

func (s *invoiceService) GenerateInvoiceNumber(ctx context.Context) (string, error) {
	var number string
	err := s.withTx(ctx, "GenerateInvoiceNumber", func(st repository.Store) error {
		var err error
		number, err = s.nextNumber(ctx, st)
		return err
	})
	return number, err
}

func (s *invoiceService) PeekInvoiceNumber(ctx context.Context) (string, error) {
	year := s.now().Year()
	seq, err := s.store.Invoices().PeekSequence(ctx, year)
	if err != nil {
		return "", s.fail(ctx, "PeekInvoiceNumber", err)
	}
	return domain.FormatInvoiceNumber(s.opts.NumberPrefix, year, seq), nil
}

func (s *invoiceService) GetTotalOutstandingAmount(ctx context.Context, userID int64) (decimal.Decimal, error) {
	invoices, err := s.store.Invoices().List(ctx, repository.InvoiceFilter{
		UserID:   userID,
		Statuses: []domain.InvoiceStatus{domain.InvoiceStatusSent},
	})
	if err != nil {
		return decimal.Zero, s.fail(ctx, "GetTotalOutstandingAmount", err)
	}
	total := decimal.Zero
	for _, inv := range invoices {
		total = total.Add(inv.OutstandingAmount)
	}
	return total, nil
}

func (s *invoiceService) GetTotalPaidAmount(ctx context.Context, userID int64, from, to *time.Time) (decimal.Decimal, error) {
	invoices, err := s.store.Invoices().List(ctx, repository.InvoiceFilter{
		UserID:   userID,
		Statuses: []domain.InvoiceStatus{domain.InvoiceStatusPaid},
	})
	if err != nil {
		return decimal.Zero, s.fail(ctx, "GetTotalPaidAmount", err)
	}
	total := decimal.Zero
	for _, inv := range invoices {
		if inv.PaidAt == nil {
			continue
		}
		if from != nil && inv.PaidAt.Before(*from) {
			continue
		}
		if to != nil && !inv.PaidAt.Before(*to) {
			continue
		}
		total = total.Add(inv.PaidAmount)
	}
	return total, nil
}
