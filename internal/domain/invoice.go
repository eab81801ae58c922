package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type InvoiceStatus string

const (
	InvoiceStatusDraft     InvoiceStatus = "draft"
	InvoiceStatusSent      InvoiceStatus = "sent"
	InvoiceStatusPaid      InvoiceStatus = "paid"
	InvoiceStatusOverdue   InvoiceStatus = "overdue" // derived, never stored
	InvoiceStatusCancelled InvoiceStatus = "cancelled"
)

// Valid reports whether s is a status that can be stored.
func (s InvoiceStatus) Valid() bool {
	switch s {
	case InvoiceStatusDraft, InvoiceStatusSent, InvoiceStatusPaid, InvoiceStatusCancelled:
		return true
	}
	return false
}

// FormatInvoiceNumber renders prefix-YYYY-NNNN.
func FormatInvoiceNumber(prefix string, year int, seq int64) string {
	return fmt.Sprintf("%s-%d-%04d", prefix, year, seq)
}

type Invoice struct {
	ID                int64           `json:"id"`
	UserID            int64           `json:"userId"`
	ClientID          int64           `json:"clientId"`
	ProjectID         *int64          `json:"projectId,omitempty"`
	InvoiceNumber     string          `json:"invoiceNumber"`
	InvoiceDate       time.Time       `json:"invoiceDate"`
	DueDate           time.Time       `json:"dueDate"`
	Subtotal          decimal.Decimal `json:"subtotal"`
	TaxRate           decimal.Decimal `json:"taxRate"` // percent
	TaxAmount         decimal.Decimal `json:"taxAmount"`
	DiscountRate      decimal.Decimal `json:"discountRate"` // percent of subtotal
	DiscountAmount    decimal.Decimal `json:"discountAmount"`
	TotalAmount       decimal.Decimal `json:"totalAmount"`
	PaidAmount        decimal.Decimal `json:"paidAmount"`
	OutstandingAmount decimal.Decimal `json:"outstandingAmount"`
	Status            InvoiceStatus   `json:"status"`
	PaidAt            *time.Time      `json:"paidAt,omitempty"`
	Currency          string          `json:"currency"`
	Notes             string          `json:"notes,omitempty"`
	CreatedAt         time.Time       `json:"createdAt"`
	UpdatedAt         time.Time       `json:"updatedAt"`

	// Related data (populated by repository)
	Items []*InvoiceItem `json:"items"`
}

type InvoiceItem struct {
	ID          int64           `json:"id"`
	InvoiceID   int64           `json:"invoiceId"`
	TimeEntryID *int64          `json:"timeEntryId,omitempty"`
	Description string          `json:"description"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unitPrice"`
	TotalPrice  decimal.Decimal `json:"totalPrice"`
	Unit        string          `json:"unit,omitempty"`
	Notes       string          `json:"notes,omitempty"`
}

// InvoiceTotals is the computed money breakdown of an invoice.
type InvoiceTotals struct {
	Subtotal          decimal.Decimal `json:"subtotal"`
	TaxAmount         decimal.Decimal `json:"taxAmount"`
	DiscountAmount    decimal.Decimal `json:"discountAmount"`
	TotalAmount       decimal.Decimal `json:"totalAmount"`
	PaidAmount        decimal.Decimal `json:"paidAmount"`
	OutstandingAmount decimal.Decimal `json:"outstandingAmount"`
}

// NewInvoice creates a new draft invoice with no items
func NewInvoice(userID, clientID int64, number string, invoiceDate, dueDate time.Time, taxRate decimal.Decimal, currency string, now time.Time) *Invoice {
	return &Invoice{
		UserID:        userID,
		ClientID:      clientID,
		InvoiceNumber: number,
		InvoiceDate:   invoiceDate,
		DueDate:       dueDate,
		TaxRate:       taxRate,
		Status:        InvoiceStatusDraft,
		Currency:      currency,
		CreatedAt:     now,
		UpdatedAt:     now,
		Items:         make([]*InvoiceItem, 0),
	}
}

// NewInvoiceItem builds an item with TotalPrice = quantity * unitPrice
func NewInvoiceItem(description string, quantity, unitPrice decimal.Decimal, unit string) *InvoiceItem {
	return &InvoiceItem{
		Description: strings.TrimSpace(description),
		Quantity:    quantity,
		UnitPrice:   unitPrice,
		TotalPrice:  RoundMoney(quantity.Mul(unitPrice)),
		Unit:        unit,
	}
}

// Validate checks the item, including that TotalPrice matches its factors.
func (it *InvoiceItem) Validate() error {
	v := NewValidationError()
	if it.Description == "" {
		v.Add("description", "description is required")
	}
	if !it.Quantity.IsPositive() {
		v.Add("quantity", "quantity must be greater than zero")
	}
	if !it.UnitPrice.IsPositive() {
		v.Add("unitPrice", "unit price must be greater than zero")
	}
	if v.HasErrors() {
		return v
	}
	if !it.TotalPrice.Equal(RoundMoney(it.Quantity.Mul(it.UnitPrice))) {
		v.Add("totalPrice", "total price must equal quantity times unit price")
	}
	return v.Err()
}

// CanEdit returns true if the invoice can be modified
func (i *Invoice) CanEdit() bool {
	return i.Status == InvoiceStatusDraft
}

// IsOverdue reports a sent invoice whose due date has passed
func (i *Invoice) IsOverdue(now time.Time) bool {
	return i.Status == InvoiceStatusSent && i.DueDate.Before(now)
}

// DisplayStatus is the stored status with Overdue derived on top of it.
func (i *Invoice) DisplayStatus(now time.Time) InvoiceStatus {
	if i.IsOverdue(now) {
		return InvoiceStatusOverdue
	}
	return i.Status
}

// ItemsSubtotal is Σ(quantity * unitPrice) over the items
func (i *Invoice) ItemsSubtotal() decimal.Decimal {
	sum := decimal.Zero
	for _, item := range i.Items {
		sum = sum.Add(item.Quantity.Mul(item.UnitPrice))
	}
	return RoundMoney(sum)
}

// Totals computes the breakdown from items without touching stored fields.
func (i *Invoice) Totals() InvoiceTotals {
	subtotal := i.ItemsSubtotal()
	tax := PercentOf(subtotal, i.TaxRate)
	total := subtotal.Add(tax).Sub(i.DiscountAmount)
	return InvoiceTotals{
		Subtotal:          subtotal,
		TaxAmount:         tax,
		DiscountAmount:    i.DiscountAmount,
		TotalAmount:       total,
		PaidAmount:        i.PaidAmount,
		OutstandingAmount: total.Sub(i.PaidAmount),
	}
}

// CalculateTotals recomputes and stores subtotal, tax, discount rate, total
// and outstanding from the items. It fails when the discount would exceed
// the new subtotal.
func (i *Invoice) CalculateTotals() error {
	t := i.Totals()
	if i.DiscountAmount.GreaterThan(t.Subtotal) {
		return Invalid("discountAmount", "discount cannot exceed subtotal")
	}
	i.Subtotal = t.Subtotal
	i.TaxAmount = t.TaxAmount
	i.TotalAmount = t.TotalAmount
	i.OutstandingAmount = t.OutstandingAmount
	i.DiscountRate = decimal.Zero
	if t.Subtotal.IsPositive() {
		i.DiscountRate = RoundMoney(i.DiscountAmount.Div(t.Subtotal).Mul(hundred))
	}
	return nil
}

// AddItem appends item to a draft invoice and recomputes totals.
func (i *Invoice) AddItem(item *InvoiceItem, now time.Time) error {
	if !i.CanEdit() {
		return i.stateErr("add items to")
	}
	if err := item.Validate(); err != nil {
		return err
	}
	item.InvoiceID = i.ID
	i.Items = append(i.Items, item)
	if err := i.CalculateTotals(); err != nil {
		i.Items = i.Items[:len(i.Items)-1]
		return err
	}
	i.UpdatedAt = now
	return nil
}

// ReplaceItem swaps the item with the same ID and recomputes totals.
func (i *Invoice) ReplaceItem(item *InvoiceItem, now time.Time) error {
	if !i.CanEdit() {
		return i.stateErr("edit items of")
	}
	if err := item.Validate(); err != nil {
		return err
	}
	idx := i.itemIndex(item.ID)
	if idx < 0 {
		return NotFound("invoice item", item.ID)
	}
	prev := i.Items[idx]
	i.Items[idx] = item
	if err := i.CalculateTotals(); err != nil {
		i.Items[idx] = prev
		return err
	}
	i.UpdatedAt = now
	return nil
}

// RemoveItem drops the item with itemID and recomputes totals.
func (i *Invoice) RemoveItem(itemID int64, now time.Time) (*InvoiceItem, error) {
	if !i.CanEdit() {
		return nil, i.stateErr("remove items from")
	}
	idx := i.itemIndex(itemID)
	if idx < 0 {
		return nil, NotFound("invoice item", itemID)
	}
	removed := i.Items[idx]
	prev := i.Items
	i.Items = append(append(make([]*InvoiceItem, 0, len(prev)-1), prev[:idx]...), prev[idx+1:]...)
	if err := i.CalculateTotals(); err != nil {
		i.Items = prev
		return nil, err
	}
	i.UpdatedAt = now
	return removed, nil
}

func (i *Invoice) itemIndex(id int64) int {
	for idx, item := range i.Items {
		if item.ID == id {
			return idx
		}
	}
	return -1
}

// ApplyDiscount sets a fixed discount and recomputes the totals.
func (i *Invoice) ApplyDiscount(amount decimal.Decimal, now time.Time) error {
	if i.Status == InvoiceStatusCancelled {
		return i.stateErr("discount")
	}
	if i.Status == InvoiceStatusPaid {
		return Invalid("status", "cannot discount a paid invoice")
	}
	if amount.IsNegative() {
		return Invalid("discountAmount", "discount cannot be negative")
	}
	if amount.GreaterThan(i.ItemsSubtotal()) {
		return Invalid("discountAmount", "discount cannot exceed subtotal")
	}
	i.DiscountAmount = RoundMoney(amount)
	if err := i.CalculateTotals(); err != nil {
		return err
	}
	if i.OutstandingAmount.IsNegative() {
		return Invalid("discountAmount", "discount would make the invoice total less than the amount already paid")
	}
	i.UpdatedAt = now
	return nil
}

// Send issues a draft invoice
func (i *Invoice) Send(now time.Time) error {
	if i.Status != InvoiceStatusDraft {
		return i.stateErr("send")
	}
	if len(i.Items) == 0 {
		return Invalid("items", "cannot send an invoice with no items")
	}
	i.Status = InvoiceStatusSent
	i.UpdatedAt = now
	return nil
}

// MarkPaid settles the whole outstanding amount.
func (i *Invoice) MarkPaid(paidAt, now time.Time) error {
	if i.Status == InvoiceStatusPaid || i.Status == InvoiceStatusCancelled {
		return i.stateErr("mark as paid")
	}
	i.PaidAmount = i.TotalAmount
	i.OutstandingAmount = decimal.Zero
	i.Status = InvoiceStatusPaid
	i.PaidAt = &paidAt
	i.UpdatedAt = now
	return nil
}

// RecordPayment books a partial payment; settling the balance marks the
// invoice paid.
func (i *Invoice) RecordPayment(amount decimal.Decimal, paidAt, now time.Time) error {
	if i.Status != InvoiceStatusSent {
		return i.stateErr("record a payment on")
	}
	amount = RoundMoney(amount)
	if !amount.IsPositive() {
		return Invalid("amount", "payment amount must be greater than zero")
	}
	if amount.GreaterThan(i.OutstandingAmount) {
		return Invalid("amount", "payment amount exceeds the outstanding amount")
	}
	i.PaidAmount = i.PaidAmount.Add(amount)
	i.OutstandingAmount = i.TotalAmount.Sub(i.PaidAmount)
	if i.OutstandingAmount.IsZero() {
		i.Status = InvoiceStatusPaid
		i.PaidAt = &paidAt
	}
	i.UpdatedAt = now
	return nil
}

// Cancel voids a draft or sent invoice
func (i *Invoice) Cancel(now time.Time) error {
	if i.Status == InvoiceStatusPaid || i.Status == InvoiceStatusCancelled {
		return i.stateErr("cancel")
	}
	i.Status = InvoiceStatusCancelled
	i.UpdatedAt = now
	return nil
}

// UpdateDueDate changes the payment terms of an open invoice
func (i *Invoice) UpdateDueDate(due, now time.Time) error {
	if i.Status == InvoiceStatusPaid || i.Status == InvoiceStatusCancelled {
		return i.stateErr("change payment terms of")
	}
	if due.Before(i.InvoiceDate) {
		return Invalid("dueDate", "due date cannot be before the invoice date")
	}
	i.DueDate = due
	i.UpdatedAt = now
	return nil
}

// Validate returns a *ValidationError if the invoice header is invalid
func (i *Invoice) Validate() error {
	v := NewValidationError()
	if i.InvoiceNumber == "" {
		v.Add("invoiceNumber", "invoice number is required")
	}
	if i.UserID <= 0 {
		v.Add("userId", "user ID is required")
	}
	if i.ClientID <= 0 {
		v.Add("clientId", "client ID is required")
	}
	if i.InvoiceDate.IsZero() {
		v.Add("invoiceDate", "invoice date is required")
	}
	if i.DueDate.Before(i.InvoiceDate) {
		v.Add("dueDate", "due date cannot be before the invoice date")
	}
	if i.TaxRate.IsNegative() || i.TaxRate.GreaterThan(hundred) {
		v.Add("taxRate", "tax rate must be between 0 and 100")
	}
	if i.DiscountAmount.IsNegative() {
		v.Add("discountAmount", "discount cannot be negative")
	}
	return v.Err()
}

func (i *Invoice) stateErr(action string) error {
	return &InvalidStateError{Entity: "invoice", Status: string(i.Status), Action: action}
}
