package api

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/andy/billable/internal/domain"
	"github.com/andy/billable/internal/service"
)

type itemRequest struct {
	TimeEntryID *int64          `json:"timeEntryId"`
	Description string          `json:"description"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unitPrice"`
	Unit        string          `json:"unit"`
	Notes       string          `json:"notes"`
}

func (r itemRequest) input() service.ItemInput {
	return service.ItemInput{
		TimeEntryID: r.TimeEntryID,
		Description: r.Description,
		Quantity:    r.Quantity,
		UnitPrice:   r.UnitPrice,
		Unit:        r.Unit,
		Notes:       r.Notes,
	}
}

type createInvoiceRequest struct {
	ClientID    int64            `json:"clientId" binding:"required"`
	ProjectID   *int64           `json:"projectId"`
	InvoiceDate *time.Time       `json:"invoiceDate"`
	DueDate     *time.Time       `json:"dueDate"`
	TaxRate     *decimal.Decimal `json:"taxRate"`
	Currency    string           `json:"currency"`
	Notes       string           `json:"notes"`
	Items       []itemRequest    `json:"items"`
}

type fromEntriesRequest struct {
	ClientID  int64            `json:"clientId" binding:"required"`
	ProjectID *int64           `json:"projectId"`
	EntryIDs  []int64          `json:"entryIds" binding:"required"`
	TaxRate   *decimal.Decimal `json:"taxRate"`
	DueDate   *time.Time       `json:"dueDate"`
	Notes     string           `json:"notes"`
}

type paymentRequest struct {
	Amount decimal.Decimal `json:"amount"`
	PaidAt *time.Time      `json:"paidAt"`
}

type payRequest struct {
	PaidAt *time.Time `json:"paidAt"`
}

func (s *Server) listInvoices(c *gin.Context) {
	clientID, valid := queryID(c, "clientId")
	if !valid {
		return
	}
	q := service.InvoiceQuery{ClientID: clientID, OverdueOnly: queryBool(c, "overdue")}
	if raw := c.Query("status"); raw != "" {
		status := domain.InvoiceStatus(raw)
		if !status.Valid() && status != domain.InvoiceStatusOverdue {
			s.respondError(c, domain.Invalid("status", "unknown invoice status"))
			return
		}
		q.Status = &status
	}
	invoices, err := s.svc.Invoices.ListInvoices(c.Request.Context(), userID(c), q)
	if err != nil {
		s.respondError(c, err)
		return
	}
	ok(c, invoices)
}

func (s *Server) createInvoice(c *gin.Context) {
	var req createInvoiceRequest
	if !bind(c, &req) {
		return
	}
	items := make([]service.ItemInput, 0, len(req.Items))
	for _, it := range req.Items {
		items = append(items, it.input())
	}
	inv, err := s.svc.Invoices.CreateInvoice(c.Request.Context(), userID(c), service.CreateInvoiceInput{
		ClientID:    req.ClientID,
		ProjectID:   req.ProjectID,
		InvoiceDate: req.InvoiceDate,
		DueDate:     req.DueDate,
		TaxRate:     req.TaxRate,
		Currency:    req.Currency,
		Notes:       req.Notes,
		Items:       items,
	})
	if err != nil {
		s.respondError(c, err)
		return
	}
	created(c, inv)
}

func (s *Server) createInvoiceFromEntries(c *gin.Context) {
	var req fromEntriesRequest
	if !bind(c, &req) {
		return
	}
	inv, err := s.svc.Invoices.CreateInvoiceFromTimeEntries(c.Request.Context(), userID(c), service.FromEntriesInput{
		ClientID:  req.ClientID,
		ProjectID: req.ProjectID,
		EntryIDs:  req.EntryIDs,
		TaxRate:   req.TaxRate,
		DueDate:   req.DueDate,
		Notes:     req.Notes,
	})
	if err != nil {
		s.respondError(c, err)
		return
	}
	created(c, inv)
}

func (s *Server) generateInvoiceNumber(c *gin.Context) {
	number, err := s.svc.Invoices.GenerateInvoiceNumber(c.Request.Context())
	if err != nil {
		s.respondError(c, err)
		return
	}
	created(c, gin.H{"invoiceNumber": number})
}

func (s *Server) outstandingAmount(c *gin.Context) {
	total, err := s.svc.Invoices.GetTotalOutstandingAmount(c.Request.Context(), userID(c))
	if err != nil {
		s.respondError(c, err)
		return
	}
	ok(c, gin.H{"total": total})
}

func (s *Server) paidAmount(c *gin.Context) {
	from, valid := queryTime(c, "from")
	if !valid {
		return
	}
	to, valid := queryTime(c, "to")
	if !valid {
		return
	}
	total, err := s.svc.Invoices.GetTotalPaidAmount(c.Request.Context(), userID(c), from, to)
	if err != nil {
		s.respondError(c, err)
		return
	}
	ok(c, gin.H{"total": total})
}

func (s *Server) getInvoice(c *gin.Context) {
	id, valid := idParam(c, "id")
	if !valid {
		return
	}
	inv, err := s.svc.Invoices.GetInvoice(c.Request.Context(), userID(c), id)
	if err != nil {
		s.respondError(c, err)
		return
	}
	ok(c, inv)
}

func (s *Server) deleteInvoice(c *gin.Context) {
	id, valid := idParam(c, "id")
	if !valid {
		return
	}
	if err := s.svc.Invoices.DeleteInvoice(c.Request.Context(), userID(c), id); err != nil {
		s.respondError(c, err)
		return
	}
	ok(c, nil)
}

func (s *Server) invoiceTotal(c *gin.Context) {
	id, valid := idParam(c, "id")
	if !valid {
		return
	}
	totals, err := s.svc.Invoices.CalculateInvoiceTotal(c.Request.Context(), userID(c), id)
	if err != nil {
		s.respondError(c, err)
		return
	}
	ok(c, totals)
}

func (s *Server) addInvoiceItem(c *gin.Context) {
	id, valid := idParam(c, "id")
	if !valid {
		return
	}
	var req itemRequest
	if !bind(c, &req) {
		return
	}
	inv, err := s.svc.Invoices.AddItem(c.Request.Context(), userID(c), id, req.input())
	if err != nil {
		s.respondError(c, err)
		return
	}
	created(c, inv)
}

func (s *Server) updateInvoiceItem(c *gin.Context) {
	id, valid := idParam(c, "id")
	if !valid {
		return
	}
	itemID, valid := idParam(c, "itemId")
	if !valid {
		return
	}
	var req itemRequest
	if !bind(c, &req) {
		return
	}
	inv, err := s.svc.Invoices.UpdateItem(c.Request.Context(), userID(c), id, itemID, req.input())
	if err != nil {
		s.respondError(c, err)
		return
	}
	ok(c, inv)
}

func (s *Server) removeInvoiceItem(c *gin.Context) {
	id, valid := idParam(c, "id")
	if !valid {
		return
	}
	itemID, valid := idParam(c, "itemId")
	if !valid {
		return
	}
	inv, err := s.svc.Invoices.RemoveItem(c.Request.Context(), userID(c), id, itemID)
	if err != nil {
		s.respondError(c, err)
		return
	}
	ok(c, inv)
}

func (s *Server) applyDiscount(c *gin.Context) {
	id, valid := idParam(c, "id")
	if !valid {
		return
	}
	var req amountRequest
	if !bind(c, &req) {
		return
	}
	inv, err := s.svc.Invoices.ApplyDiscount(c.Request.Context(), userID(c), id, req.Amount)
	if err != nil {
		s.respondError(c, err)
		return
	}
	ok(c, inv)
}

func (s *Server) sendInvoice(c *gin.Context) {
	id, valid := idParam(c, "id")
	if !valid {
		return
	}
	inv, err := s.svc.Invoices.SendInvoice(c.Request.Context(), userID(c), id)
	if err != nil {
		s.respondError(c, err)
		return
	}
	ok(c, inv)
}

func (s *Server) payInvoice(c *gin.Context) {
	id, valid := idParam(c, "id")
	if !valid {
		return
	}
	var req payRequest
	// the body is optional
	if c.Request.ContentLength > 0 && !bind(c, &req) {
		return
	}
	inv, err := s.svc.Invoices.MarkAsPaid(c.Request.Context(), userID(c), id, req.PaidAt)
	if err != nil {
		s.respondError(c, err)
		return
	}
	ok(c, inv)
}

func (s *Server) recordPayment(c *gin.Context) {
	id, valid := idParam(c, "id")
	if !valid {
		return
	}
	var req paymentRequest
	if !bind(c, &req) {
		return
	}
	inv, err := s.svc.Invoices.RecordPayment(c.Request.Context(), userID(c), id, req.Amount, req.PaidAt)
	if err != nil {
		s.respondError(c, err)
		return
	}
	ok(c, inv)
}

func (s *Server) cancelInvoice(c *gin.Context) {
	id, valid := idParam(c, "id")
	if !valid {
		return
	}
	inv, err := s.svc.Invoices.CancelInvoice(c.Request.Context(), userID(c), id)
	if err != nil {
		s.respondError(c, err)
		return
	}
	ok(c, inv)
}

func (s *Server) updateDueDate(c *gin.Context) {
	id, valid := idParam(c, "id")
	if !valid {
		return
	}
	var req deadlineRequest
	if !bind(c, &req) {
		return
	}
	inv, err := s.svc.Invoices.UpdatePaymentTerms(c.Request.Context(), userID(c), id, req.Date)
	if err != nil {
		s.respondError(c, err)
		return
	}
	ok(c, inv)
}

func (s *Server) dashboard(c *gin.Context) {
	d, err := s.svc.Reports.Dashboard(c.Request.Context(), userID(c))
	if err != nil {
		s.respondError(c, err)
		return
	}
	ok(c, d)
}
