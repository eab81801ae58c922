package service

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/andy/billable/internal/domain"
)

func item(desc, qty, price string) ItemInput {
	return ItemInput{Description: desc, Quantity: dec(qty), UnitPrice: dec(price)}
}

func TestTrackInvoicePayScenario(t *testing.T) {
	f := newFixture(t)
	c := f.client(t, f.userID, "Acme", "50")
	p := f.project(t, f.userID, c.ID, "0", "10")

	entry := f.track(t, p.ID, 60)
	if !entry.Amount.Equal(dec("50.00")) {
		t.Fatalf("expected amount 50.00, got %s", entry.Amount)
	}

	taxRate := dec("20")
	inv, err := f.invoices.CreateInvoice(ctx(), f.userID, CreateInvoiceInput{
		ClientID: c.ID,
		TaxRate:  &taxRate,
		Items: []ItemInput{{
			TimeEntryID: &entry.ID,
			Description: "Development",
			Quantity:    dec("1"),
			UnitPrice:   entry.Amount,
		}},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if inv.InvoiceNumber != "INV-2026-0001" {
		t.Fatalf("expected INV-2026-0001, got %s", inv.InvoiceNumber)
	}
	if !inv.Subtotal.Equal(dec("50.00")) || !inv.TaxAmount.Equal(dec("10.00")) || !inv.TotalAmount.Equal(dec("60.00")) {
		t.Fatalf("expected 50/10/60, got %s/%s/%s", inv.Subtotal, inv.TaxAmount, inv.TotalAmount)
	}
	if inv.Status != domain.InvoiceStatusDraft || !inv.OutstandingAmount.Equal(dec("60")) {
		t.Fatalf("expected draft with 60 outstanding, got %s with %s", inv.Status, inv.OutstandingAmount)
	}

	paid, err := f.invoices.MarkAsPaid(ctx(), f.userID, inv.ID, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if paid.Status != domain.InvoiceStatusPaid || !paid.OutstandingAmount.IsZero() {
		t.Fatalf("expected paid with nothing outstanding, got %s with %s", paid.Status, paid.OutstandingAmount)
	}
	if paid.PaidAt == nil || !paid.PaidAt.Equal(f.clock.Now()) {
		t.Fatalf("expected paidAt to default to now, got %v", paid.PaidAt)
	}

	progress, err := f.projects.GetProgress(ctx(), f.userID, p.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if progress.CompletionPercentage != 10 {
		t.Fatalf("expected 10%%, got %d", progress.CompletionPercentage)
	}

	if _, err := f.invoices.MarkAsPaid(ctx(), f.userID, inv.ID, nil); err == nil {
		t.Fatalf("expected error paying twice")
	}
	if _, err := f.invoices.CancelInvoice(ctx(), f.userID, inv.ID); err == nil {
		t.Fatalf("expected error cancelling a paid invoice")
	}
	if err := f.invoices.DeleteInvoice(ctx(), f.userID, inv.ID); !errors.Is(err, ErrInvoicePaid) {
		t.Fatalf("expected ErrInvoicePaid, got %v", err)
	}
}

func TestConcurrentInvoiceNumbersAreSequential(t *testing.T) {
	for _, b := range backends {
		t.Run(b.name, func(t *testing.T) {
			f := b.open(t)

			const n = 25
			var (
				wg      sync.WaitGroup
				mu      sync.Mutex
				numbers []string
			)
			for i := 0; i < n; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					number, err := f.invoices.GenerateInvoiceNumber(ctx())
					if err != nil {
						t.Errorf("unexpected error: %v", err)
						return
					}
					mu.Lock()
					numbers = append(numbers, number)
					mu.Unlock()
				}()
			}
			wg.Wait()

			sort.Strings(numbers)
			if len(numbers) != n {
				t.Fatalf("expected %d numbers, got %d", n, len(numbers))
			}
			for i, number := range numbers {
				want := fmt.Sprintf("INV-2026-%04d", i+1)
				if number != want {
					t.Fatalf("expected %s at position %d, got %s", want, i, number)
				}
			}
		})
	}
}

func TestInvoiceNumberResetsPerYear(t *testing.T) {
	f := newFixture(t)

	if _, err := f.invoices.GenerateInvoiceNumber(ctx()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	peek, err := f.invoices.PeekInvoiceNumber(ctx())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if peek != "INV-2026-0002" {
		t.Fatalf("expected INV-2026-0002, got %s", peek)
	}

	f.clock.Set(time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC))
	number, err := f.invoices.GenerateInvoiceNumber(ctx())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if number != "INV-2027-0001" {
		t.Fatalf("expected INV-2027-0001, got %s", number)
	}
}

func TestCreateFromEntriesRollsBackOnFailure(t *testing.T) {
	f := newFixture(t)
	c := f.client(t, f.userID, "Acme", "50")
	p := f.project(t, f.userID, c.ID, "0", "0")
	entry := f.track(t, p.ID, 60)

	f.store.FailOn("entries.LockForInvoice", errors.New("database is locked"))
	_, err := f.invoices.CreateInvoiceFromTimeEntries(ctx(), f.userID, FromEntriesInput{
		ClientID: c.ID,
		EntryIDs: []int64{entry.ID},
	})
	var internal *domain.InternalError
	if !errors.As(err, &internal) {
		t.Fatalf("expected internal error, got %v", err)
	}

	list, err := f.invoices.ListInvoices(ctx(), f.userID, InvoiceQuery{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(list) != 0 {
		t.Fatalf("expected no invoices after rollback, got %d", len(list))
	}
	peek, _ := f.invoices.PeekInvoiceNumber(ctx())
	if peek != "INV-2026-0001" {
		t.Fatalf("expected the number not to be consumed, got %s", peek)
	}
	got, _ := f.tracking.GetTimeEntry(ctx(), f.userID, entry.ID)
	if got.IsLocked() {
		t.Fatalf("expected entry to stay unlocked")
	}

	f.store.FailOn("entries.LockForInvoice", nil)
	inv, err := f.invoices.CreateInvoiceFromTimeEntries(ctx(), f.userID, FromEntriesInput{
		ClientID: c.ID,
		EntryIDs: []int64{entry.ID},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if inv.InvoiceNumber != "INV-2026-0001" {
		t.Fatalf("expected INV-2026-0001, got %s", inv.InvoiceNumber)
	}
	if len(inv.Items) != 1 || !inv.Items[0].UnitPrice.Equal(dec("50")) || inv.Items[0].Unit != "entry" {
		t.Fatalf("expected one entry item of 50, got %+v", inv.Items)
	}
}

func TestCreateFromEntriesChecks(t *testing.T) {
	f := newFixture(t)
	c := f.client(t, f.userID, "Acme", "50")
	other := f.client(t, f.userID, "Globex", "50")
	p := f.project(t, f.userID, c.ID, "0", "0")
	entry := f.track(t, p.ID, 60)

	var verr *domain.ValidationError
	_, err := f.invoices.CreateInvoiceFromTimeEntries(ctx(), f.userID, FromEntriesInput{ClientID: other.ID, EntryIDs: []int64{entry.ID}})
	if !errors.As(err, &verr) {
		t.Fatalf("expected validation error for another client's entry, got %v", err)
	}

	if _, err := f.tracking.StartTimeTracking(ctx(), f.userID, p.ID, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	running, _ := f.tracking.GetActiveTimeEntry(ctx(), f.userID)
	_, err = f.invoices.CreateInvoiceFromTimeEntries(ctx(), f.userID, FromEntriesInput{ClientID: c.ID, EntryIDs: []int64{running.ID}})
	if !errors.As(err, &verr) {
		t.Fatalf("expected validation error for running entry, got %v", err)
	}

	if _, err := f.invoices.CreateInvoiceFromTimeEntries(ctx(), f.userID, FromEntriesInput{ClientID: c.ID, EntryIDs: []int64{entry.ID}}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	_, err = f.invoices.CreateInvoiceFromTimeEntries(ctx(), f.userID, FromEntriesInput{ClientID: c.ID, EntryIDs: []int64{entry.ID}})
	var conflict *domain.ConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("expected conflict for an invoiced entry, got %v", err)
	}
}

func TestManualItemsCannotBillAnInvoicedEntry(t *testing.T) {
	f := newFixture(t)
	c := f.client(t, f.userID, "Acme", "50")
	p := f.project(t, f.userID, c.ID, "0", "0")
	billed := f.track(t, p.ID, 60)
	spare := f.track(t, p.ID, 30)
	later := f.track(t, p.ID, 45)

	locked, err := f.invoices.CreateInvoiceFromTimeEntries(ctx(), f.userID, FromEntriesInput{ClientID: c.ID, EntryIDs: []int64{billed.ID}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	entryItem := func(entryID int64) ItemInput {
		in := item("Development", "1", "50")
		in.TimeEntryID = &entryID
		return in
	}

	var conflict *domain.ConflictError
	_, err = f.invoices.CreateInvoice(ctx(), f.userID, CreateInvoiceInput{ClientID: c.ID, Items: []ItemInput{entryItem(billed.ID)}})
	if !errors.As(err, &conflict) {
		t.Fatalf("expected conflict creating an invoice for an invoiced entry, got %v", err)
	}

	var verr *domain.ValidationError
	_, err = f.invoices.CreateInvoice(ctx(), f.userID, CreateInvoiceInput{ClientID: c.ID, Items: []ItemInput{entryItem(spare.ID), entryItem(spare.ID)}})
	if !errors.As(err, &verr) {
		t.Fatalf("expected validation error for an entry listed twice, got %v", err)
	}

	draft, err := f.invoices.CreateInvoice(ctx(), f.userID, CreateInvoiceInput{ClientID: c.ID, Items: []ItemInput{item("Setup", "1", "100")}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := f.invoices.AddItem(ctx(), f.userID, draft.ID, entryItem(billed.ID)); !errors.As(err, &conflict) {
		t.Fatalf("expected conflict adding an invoiced entry, got %v", err)
	}

	withSpare, err := f.invoices.AddItem(ctx(), f.userID, draft.ID, entryItem(spare.ID))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, _ := f.tracking.GetTimeEntry(ctx(), f.userID, spare.ID)
	if got.InvoiceID == nil || *got.InvoiceID != draft.ID {
		t.Fatalf("expected entry %d locked to invoice %d, got %v", spare.ID, draft.ID, got.InvoiceID)
	}
	if _, err := f.invoices.AddItem(ctx(), f.userID, locked.ID, entryItem(spare.ID)); !errors.As(err, &conflict) {
		t.Fatalf("expected conflict adding an entry locked to another invoice, got %v", err)
	}

	spareItem := withSpare.Items[len(withSpare.Items)-1].ID
	if _, err := f.invoices.UpdateItem(ctx(), f.userID, draft.ID, spareItem, entryItem(billed.ID)); !errors.As(err, &conflict) {
		t.Fatalf("expected conflict swapping to an invoiced entry, got %v", err)
	}
	if _, err := f.invoices.UpdateItem(ctx(), f.userID, draft.ID, spareItem, entryItem(later.ID)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, _ = f.tracking.GetTimeEntry(ctx(), f.userID, spare.ID)
	if got.IsLocked() {
		t.Fatalf("expected replaced entry %d to be released", spare.ID)
	}
	got, _ = f.tracking.GetTimeEntry(ctx(), f.userID, later.ID)
	if got.InvoiceID == nil || *got.InvoiceID != draft.ID {
		t.Fatalf("expected entry %d locked to invoice %d, got %v", later.ID, draft.ID, got.InvoiceID)
	}
	got, _ = f.tracking.GetTimeEntry(ctx(), f.userID, billed.ID)
	if got.InvoiceID == nil || *got.InvoiceID != locked.ID {
		t.Fatalf("expected entry %d to stay on invoice %d, got %v", billed.ID, locked.ID, got.InvoiceID)
	}
}

func TestCancelReleasesEntries(t *testing.T) {
	f := newFixture(t)
	c := f.client(t, f.userID, "Acme", "50")
	p := f.project(t, f.userID, c.ID, "0", "0")
	entry := f.track(t, p.ID, 60)

	inv, err := f.invoices.CreateInvoiceFromTimeEntries(ctx(), f.userID, FromEntriesInput{ClientID: c.ID, EntryIDs: []int64{entry.ID}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := f.invoices.SendInvoice(ctx(), f.userID, inv.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	cancelled, err := f.invoices.CancelInvoice(ctx(), f.userID, inv.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cancelled.Status != domain.InvoiceStatusCancelled {
		t.Fatalf("expected cancelled, got %s", cancelled.Status)
	}

	got, _ := f.tracking.GetTimeEntry(ctx(), f.userID, entry.ID)
	if got.IsLocked() {
		t.Fatalf("expected entry to be released")
	}
	if _, err := f.invoices.CancelInvoice(ctx(), f.userID, inv.ID); err == nil {
		t.Fatalf("expected error cancelling twice")
	}
}

func TestItemMutationsRespectDiscount(t *testing.T) {
	f := newFixture(t)
	c := f.client(t, f.userID, "Acme", "50")

	inv, err := f.invoices.CreateInvoice(ctx(), f.userID, CreateInvoiceInput{
		ClientID: c.ID,
		Items:    []ItemInput{item("Design", "1", "100"), item("Hosting", "1", "50")},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := f.invoices.ApplyDiscount(ctx(), f.userID, inv.ID, dec("120")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	hosting := inv.Items[1].ID
	_, err = f.invoices.RemoveItem(ctx(), f.userID, inv.ID, hosting)
	var verr *domain.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected validation error, got %v", err)
	}

	got, err := f.invoices.GetInvoice(ctx(), f.userID, inv.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got.Items) != 2 || !got.TotalAmount.Equal(dec("30")) {
		t.Fatalf("expected invoice unchanged with total 30, got %d items and %s", len(got.Items), got.TotalAmount)
	}
	if !got.DiscountRate.Equal(dec("80")) {
		t.Fatalf("expected discount rate 80, got %s", got.DiscountRate)
	}

	updated, err := f.invoices.UpdateItem(ctx(), f.userID, inv.ID, hosting, item("Hosting", "2", "50"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !updated.Subtotal.Equal(dec("200")) || !updated.TotalAmount.Equal(dec("80")) {
		t.Fatalf("expected subtotal 200 and total 80, got %s and %s", updated.Subtotal, updated.TotalAmount)
	}

	totals, err := f.invoices.CalculateInvoiceTotal(ctx(), f.userID, inv.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !totals.TotalAmount.Equal(dec("80")) {
		t.Fatalf("expected computed total 80, got %s", totals.TotalAmount)
	}
}

func TestDiscountAboveSubtotalFails(t *testing.T) {
	f := newFixture(t)
	c := f.client(t, f.userID, "Acme", "50")
	inv, err := f.invoices.CreateInvoice(ctx(), f.userID, CreateInvoiceInput{
		ClientID: c.ID,
		Items:    []ItemInput{item("Design", "1", "100")},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, err = f.invoices.ApplyDiscount(ctx(), f.userID, inv.ID, dec("100.01"))
	var verr *domain.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestSentInvoiceIsFrozen(t *testing.T) {
	f := newFixture(t)
	c := f.client(t, f.userID, "Acme", "50")
	inv, err := f.invoices.CreateInvoice(ctx(), f.userID, CreateInvoiceInput{ClientID: c.ID})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, err = f.invoices.SendInvoice(ctx(), f.userID, inv.ID)
	var verr *domain.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected validation error sending an empty invoice, got %v", err)
	}

	if _, err := f.invoices.AddItem(ctx(), f.userID, inv.ID, item("Design", "2", "40")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := f.invoices.SendInvoice(ctx(), f.userID, inv.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, err = f.invoices.AddItem(ctx(), f.userID, inv.ID, item("Extra", "1", "10"))
	var serr *domain.InvalidStateError
	if !errors.As(err, &serr) {
		t.Fatalf("expected invalid state error, got %v", err)
	}
}

func TestPartialPaymentsAndOverdue(t *testing.T) {
	f := newFixture(t)
	c := f.client(t, f.userID, "Acme", "50")
	inv, err := f.invoices.CreateInvoice(ctx(), f.userID, CreateInvoiceInput{
		ClientID: c.ID,
		Items:    []ItemInput{item("Design", "1", "100")},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := f.invoices.SendInvoice(ctx(), f.userID, inv.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	f.clock.Advance(31 * 24 * time.Hour)
	overdue, err := f.invoices.ListInvoices(ctx(), f.userID, InvoiceQuery{OverdueOnly: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(overdue) != 1 || overdue[0].DisplayStatus != domain.InvoiceStatusOverdue {
		t.Fatalf("expected one overdue invoice, got %d", len(overdue))
	}
	if overdue[0].Status != domain.InvoiceStatusSent {
		t.Fatalf("expected stored status to stay sent, got %s", overdue[0].Status)
	}

	partial, err := f.invoices.RecordPayment(ctx(), f.userID, inv.ID, dec("40"), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !partial.OutstandingAmount.Equal(dec("60")) || partial.Status != domain.InvoiceStatusSent {
		t.Fatalf("expected 60 outstanding on a sent invoice, got %s (%s)", partial.OutstandingAmount, partial.Status)
	}

	outstanding, err := f.invoices.GetTotalOutstandingAmount(ctx(), f.userID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !outstanding.Equal(dec("60")) {
		t.Fatalf("expected 60 outstanding, got %s", outstanding)
	}

	if _, err := f.invoices.RecordPayment(ctx(), f.userID, inv.ID, dec("60.01"), nil); err == nil {
		t.Fatalf("expected error overpaying")
	}
	paid, err := f.invoices.RecordPayment(ctx(), f.userID, inv.ID, dec("60"), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if paid.Status != domain.InvoiceStatusPaid || paid.IsOverdue {
		t.Fatalf("expected paid and not overdue, got %s", paid.DisplayStatus)
	}

	from := t0
	to := f.clock.Now().Add(time.Second)
	total, err := f.invoices.GetTotalPaidAmount(ctx(), f.userID, &from, &to)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !total.Equal(dec("100")) {
		t.Fatalf("expected 100 paid, got %s", total)
	}
	total, _ = f.invoices.GetTotalPaidAmount(ctx(), f.userID, &to, nil)
	if !total.IsZero() {
		t.Fatalf("expected nothing paid after %s, got %s", to, total)
	}
}

func TestUpdatePaymentTerms(t *testing.T) {
	f := newFixture(t)
	c := f.client(t, f.userID, "Acme", "50")
	inv, err := f.invoices.CreateInvoice(ctx(), f.userID, CreateInvoiceInput{ClientID: c.ID})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !inv.DueDate.Equal(inv.InvoiceDate.AddDate(0, 0, 30)) {
		t.Fatalf("expected 30 day terms, got %s", inv.DueDate)
	}

	_, err = f.invoices.UpdatePaymentTerms(ctx(), f.userID, inv.ID, inv.InvoiceDate.AddDate(0, 0, -1))
	var verr *domain.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected validation error, got %v", err)
	}
	due := inv.InvoiceDate.AddDate(0, 0, 14)
	updated, err := f.invoices.UpdatePaymentTerms(ctx(), f.userID, inv.ID, due)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !updated.DueDate.Equal(due) {
		t.Fatalf("expected due %s, got %s", due, updated.DueDate)
	}
}

func TestDeleteDraftReleasesEntries(t *testing.T) {
	f := newFixture(t)
	c := f.client(t, f.userID, "Acme", "50")
	p := f.project(t, f.userID, c.ID, "0", "0")
	entry := f.track(t, p.ID, 60)

	inv, err := f.invoices.CreateInvoiceFromTimeEntries(ctx(), f.userID, FromEntriesInput{ClientID: c.ID, EntryIDs: []int64{entry.ID}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := f.invoices.DeleteInvoice(ctx(), f.userID, inv.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := f.invoices.GetInvoice(ctx(), f.userID, inv.ID); err == nil {
		t.Fatalf("expected invoice to be gone")
	}
	got, _ := f.tracking.GetTimeEntry(ctx(), f.userID, entry.ID)
	if got.IsLocked() {
		t.Fatalf("expected entry to be released")
	}
}
