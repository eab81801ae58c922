package domain

import (
	"errors"
	"testing"
	"time"
)

var invNow = time.Date(2026, 5, 10, 12, 0, 0, 0, time.UTC)

func newDraft(t *testing.T, taxRate string, items ...*InvoiceItem) *Invoice {
	t.Helper()
	inv := NewInvoice(1, 1, "INV-2026-0001", invNow, invNow.AddDate(0, 0, 30), dec(taxRate), "USD", invNow)
	for n, it := range items {
		it.ID = int64(n + 1)
		if err := inv.AddItem(it, invNow); err != nil {
			t.Fatalf("unexpected error adding item: %v", err)
		}
	}
	return inv
}

func assertTotalInvariant(t *testing.T, inv *Invoice) {
	t.Helper()
	want := inv.Subtotal.Add(inv.TaxAmount).Sub(inv.DiscountAmount)
	if !inv.TotalAmount.Equal(want) {
		t.Fatalf("expected total %s, got %s", want, inv.TotalAmount)
	}
	if !inv.OutstandingAmount.Equal(inv.TotalAmount.Sub(inv.PaidAmount)) {
		t.Fatalf("expected outstanding %s, got %s", inv.TotalAmount.Sub(inv.PaidAmount), inv.OutstandingAmount)
	}
}

func TestInvoiceTotals_WithTax(t *testing.T) {
	inv := newDraft(t, "20", NewInvoiceItem("Consulting", dec("1"), dec("50"), "entry"))

	if !inv.Subtotal.Equal(dec("50.00")) {
		t.Fatalf("expected subtotal 50.00, got %s", inv.Subtotal)
	}
	if !inv.TaxAmount.Equal(dec("10.00")) {
		t.Fatalf("expected tax 10.00, got %s", inv.TaxAmount)
	}
	if !inv.TotalAmount.Equal(dec("60.00")) {
		t.Fatalf("expected total 60.00, got %s", inv.TotalAmount)
	}
	assertTotalInvariant(t, inv)
}

func TestInvoiceApplyDiscount(t *testing.T) {
	inv := newDraft(t, "10",
		NewInvoiceItem("Design", dec("2"), dec("100"), "h"),
		NewInvoiceItem("Hosting", dec("1"), dec("50"), "month"),
	)

	if err := inv.ApplyDiscount(dec("25"), invNow); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !inv.TotalAmount.Equal(dec("250.00")) {
		t.Fatalf("expected total 250.00, got %s", inv.TotalAmount)
	}
	if !inv.DiscountRate.Equal(dec("10.00")) {
		t.Fatalf("expected discount rate 10.00, got %s", inv.DiscountRate)
	}
	assertTotalInvariant(t, inv)

	var v *ValidationError
	if err := inv.ApplyDiscount(dec("250.01"), invNow); !errors.As(err, &v) {
		t.Fatalf("expected validation error for discount > subtotal, got %v", err)
	}
	if err := inv.ApplyDiscount(dec("-1"), invNow); !errors.As(err, &v) {
		t.Fatalf("expected validation error for negative discount, got %v", err)
	}
	if !inv.DiscountAmount.Equal(dec("25")) {
		t.Fatalf("expected failed discount to leave 25 in place, got %s", inv.DiscountAmount)
	}
}

func TestInvoiceRemoveItem_BelowDiscountFails(t *testing.T) {
	inv := newDraft(t, "0",
		NewInvoiceItem("A", dec("1"), dec("100"), ""),
		NewInvoiceItem("B", dec("1"), dec("10"), ""),
	)
	if err := inv.ApplyDiscount(dec("50"), invNow); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var v *ValidationError
	if _, err := inv.RemoveItem(1, invNow); !errors.As(err, &v) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if len(inv.Items) != 2 {
		t.Fatalf("expected items untouched, got %d", len(inv.Items))
	}
	assertTotalInvariant(t, inv)

	if _, err := inv.RemoveItem(2, invNow); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !inv.TotalAmount.Equal(dec("50.00")) {
		t.Fatalf("expected total 50.00, got %s", inv.TotalAmount)
	}
}

func TestInvoiceItemValidate_TotalMismatch(t *testing.T) {
	it := NewInvoiceItem("Work", dec("3"), dec("10"), "h")
	it.TotalPrice = dec("31")
	var v *ValidationError
	if err := it.Validate(); !errors.As(err, &v) || v.Fields["totalPrice"] == "" {
		t.Fatalf("expected totalPrice validation error, got %v", err)
	}
}

func TestInvoiceStatusGuards(t *testing.T) {
	inv := newDraft(t, "0", NewInvoiceItem("Work", dec("1"), dec("10"), ""))
	var s *InvalidStateError

	if err := inv.MarkPaid(invNow, invNow); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !inv.OutstandingAmount.IsZero() || inv.Status != InvoiceStatusPaid || inv.PaidAt == nil {
		t.Fatalf("expected fully paid invoice, got %+v", inv)
	}
	if err := inv.MarkPaid(invNow, invNow); !errors.As(err, &s) {
		t.Fatalf("expected invalid state paying twice, got %v", err)
	}
	if err := inv.Cancel(invNow); !errors.As(err, &s) {
		t.Fatalf("expected invalid state cancelling paid invoice, got %v", err)
	}

	other := newDraft(t, "0", NewInvoiceItem("Work", dec("1"), dec("10"), ""))
	if err := other.Cancel(invNow); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := other.MarkPaid(invNow, invNow); !errors.As(err, &s) {
		t.Fatalf("expected invalid state paying cancelled invoice, got %v", err)
	}
	if err := other.Cancel(invNow); !errors.As(err, &s) {
		t.Fatalf("expected invalid state cancelling twice, got %v", err)
	}
	if err := other.Send(invNow); !errors.As(err, &s) {
		t.Fatalf("expected invalid state sending cancelled invoice, got %v", err)
	}
}

func TestInvoiceRecordPayment(t *testing.T) {
	inv := newDraft(t, "0", NewInvoiceItem("Work", dec("1"), dec("100"), ""))
	if err := inv.Send(invNow); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := inv.RecordPayment(dec("40"), invNow, invNow); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if inv.Status != InvoiceStatusSent || !inv.OutstandingAmount.Equal(dec("60")) {
		t.Fatalf("expected sent with 60 outstanding, got %s %s", inv.Status, inv.OutstandingAmount)
	}
	var v *ValidationError
	if err := inv.RecordPayment(dec("60.01"), invNow, invNow); !errors.As(err, &v) {
		t.Fatalf("expected validation error overpaying, got %v", err)
	}
	if err := inv.RecordPayment(dec("60"), invNow, invNow); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if inv.Status != InvoiceStatusPaid || inv.PaidAt == nil {
		t.Fatalf("expected paid invoice, got %s", inv.Status)
	}
	assertTotalInvariant(t, inv)
}

func TestInvoiceOverdueIsDerived(t *testing.T) {
	inv := newDraft(t, "0", NewInvoiceItem("Work", dec("1"), dec("10"), ""))
	later := inv.DueDate.Add(24 * time.Hour)

	if inv.IsOverdue(later) {
		t.Fatalf("drafts are never overdue")
	}
	if err := inv.Send(invNow); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if inv.IsOverdue(invNow) {
		t.Fatalf("expected not overdue before due date")
	}
	if got := inv.DisplayStatus(later); got != InvoiceStatusOverdue {
		t.Fatalf("expected overdue, got %s", got)
	}
	if inv.Status != InvoiceStatusSent {
		t.Fatalf("expected stored status to stay sent, got %s", inv.Status)
	}
}

func TestFormatInvoiceNumber(t *testing.T) {
	if got := FormatInvoiceNumber("INV", 2026, 7); got != "INV-2026-0007" {
		t.Fatalf("expected INV-2026-0007, got %s", got)
	}
	if got := FormatInvoiceNumber("INV", 2026, 12345); got != "INV-2026-12345" {
		t.Fatalf("expected INV-2026-12345, got %s", got)
	}
}
