package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/andy/billable/internal/domain"
	"github.com/andy/billable/internal/repository"
)

// WeekSummary provides weekly time tracking analytics
type WeekSummary struct {
	WeekStart     time.Time                        `json:"weekStart"`
	TotalHours    decimal.Decimal                  `json:"totalHours"`
	BillableHours decimal.Decimal                  `json:"billableHours"`
	TotalValue    decimal.Decimal                  `json:"totalValue"`
	ByProject     map[int64]decimal.Decimal        `json:"byProject"` // hours by project ID
	ByDay         map[time.Weekday]decimal.Decimal `json:"byDay"`
}

// ClientSummary provides client-specific time and revenue analytics
type ClientSummary struct {
	ClientID      int64               `json:"clientId"`
	TotalHours    decimal.Decimal     `json:"totalHours"`
	BillableHours decimal.Decimal     `json:"billableHours"`
	TotalValue    decimal.Decimal     `json:"totalValue"`
	UnbilledValue decimal.Decimal     `json:"unbilledValue"`
	Entries       []*domain.TimeEntry `json:"entries"`
}

// DailySummary provides daily time tracking analytics
type DailySummary struct {
	Date          time.Time           `json:"date"`
	TotalHours    decimal.Decimal     `json:"totalHours"`
	BillableHours decimal.Decimal     `json:"billableHours"`
	TotalValue    decimal.Decimal     `json:"totalValue"`
	Entries       []*domain.TimeEntry `json:"entries"`
}

// ActiveTimer is the running entry with its live figures
type ActiveTimer struct {
	Entry   *domain.TimeEntry `json:"entry"`
	Elapsed time.Duration     `json:"elapsed"`
	Accrued decimal.Decimal   `json:"accrued"`
}

// Dashboard is the one-screen overview used by the TUI and the API
type Dashboard struct {
	Today           *DailySummary                  `json:"today"`
	Week            *WeekSummary                   `json:"week"`
	Outstanding     decimal.Decimal                `json:"outstanding"`
	Unbilled        decimal.Decimal                `json:"unbilled"`
	OverdueInvoices int                            `json:"overdueInvoices"`
	Active          *ActiveTimer                   `json:"active,omitempty"`
	RevenueByMonth  map[time.Month]decimal.Decimal `json:"revenueByMonth"`
	RecentEntries   []*domain.TimeEntry            `json:"recentEntries"`
}

const recentEntryLimit = 10

// ReportService provides aggregations and analytics
type ReportService interface {
	// Time tracking summaries
	GetWeekSummary(ctx context.Context, userID int64, weekStart time.Time) (*WeekSummary, error)
	GetClientSummary(ctx context.Context, userID, clientID int64, start, end time.Time) (*ClientSummary, error)
	GetDailySummary(ctx context.Context, userID int64, date time.Time) (*DailySummary, error)

	// Financial summaries
	GetOutstandingTotal(ctx context.Context, userID int64) (decimal.Decimal, error) // Unpaid invoices
	GetUnbilledTotal(ctx context.Context, userID int64) (decimal.Decimal, error)    // Time not yet invoiced
	GetRevenueByMonth(ctx context.Context, userID int64, year int) (map[time.Month]decimal.Decimal, error)

	Dashboard(ctx context.Context, userID int64) (*Dashboard, error)
}

type reportService struct {
	base
}

// NewReportService creates a new report service
func NewReportService(store repository.Store, clock domain.Clock, logger *slog.Logger) ReportService {
	return &reportService{base: newBase(store, clock, logger)}
}

func (s *reportService) entries(ctx context.Context, filter repository.EntryFilter) ([]*domain.TimeEntry, error) {
	entries, err := s.store.Entries().List(ctx, filter)
	if err != nil {
		return nil, s.fail(ctx, "ListEntries", err)
	}
	return entries, nil
}

func (s *reportService) GetWeekSummary(ctx context.Context, userID int64, weekStart time.Time) (*WeekSummary, error) {
	weekStart = startOfWeek(weekStart)
	weekEnd := weekStart.AddDate(0, 0, 7)

	entries, err := s.entries(ctx, repository.EntryFilter{UserID: userID, From: &weekStart, To: &weekEnd})
	if err != nil {
		return nil, err
	}

	summary := &WeekSummary{
		WeekStart:  weekStart,
		TotalValue: decimal.Zero,
		ByProject:  make(map[int64]decimal.Decimal),
		ByDay:      make(map[time.Weekday]decimal.Decimal),
	}

	var total, billable int64
	for _, entry := range entries {
		minutes := entry.Minutes()
		total += minutes
		if entry.IsBillable {
			billable += minutes
			summary.TotalValue = summary.TotalValue.Add(entry.Amount)
		}

		hours := entry.Hours()
		summary.ByProject[entry.ProjectID] = summary.ByProject[entry.ProjectID].Add(hours)
		weekday := entry.StartTime.Weekday()
		summary.ByDay[weekday] = summary.ByDay[weekday].Add(hours)
	}
	summary.TotalHours = domain.HoursFromMinutes(total)
	summary.BillableHours = domain.HoursFromMinutes(billable)

	return summary, nil
}

func (s *reportService) GetClientSummary(ctx context.Context, userID, clientID int64, start, end time.Time) (*ClientSummary, error) {
	if _, err := loadClient(ctx, s.store, userID, clientID); err != nil {
		return nil, s.fail(ctx, "GetClientSummary", err)
	}
	projects, err := s.store.Projects().List(ctx, repository.ProjectFilter{UserID: userID, ClientID: &clientID})
	if err != nil {
		return nil, s.fail(ctx, "GetClientSummary", err)
	}

	summary := &ClientSummary{
		ClientID:      clientID,
		TotalValue:    decimal.Zero,
		UnbilledValue: decimal.Zero,
		Entries:       make([]*domain.TimeEntry, 0),
	}

	var total, billable int64
	for _, p := range projects {
		entries, err := s.entries(ctx, repository.EntryFilter{UserID: userID, ProjectID: &p.ID, From: &start, To: &end})
		if err != nil {
			return nil, err
		}
		for _, entry := range entries {
			summary.Entries = append(summary.Entries, entry)
			total += entry.Minutes()
			if !entry.IsBillable {
				continue
			}
			billable += entry.Minutes()
			summary.TotalValue = summary.TotalValue.Add(entry.Amount)
			// Track unbilled value
			if entry.InvoiceID == nil {
				summary.UnbilledValue = summary.UnbilledValue.Add(entry.Amount)
			}
		}
	}
	summary.TotalHours = domain.HoursFromMinutes(total)
	summary.BillableHours = domain.HoursFromMinutes(billable)

	return summary, nil
}

func (s *reportService) GetDailySummary(ctx context.Context, userID int64, date time.Time) (*DailySummary, error) {
	day := startOfDay(date)
	next := day.AddDate(0, 0, 1)

	entries, err := s.entries(ctx, repository.EntryFilter{UserID: userID, From: &day, To: &next})
	if err != nil {
		return nil, err
	}

	sum := summarize(entries)
	return &DailySummary{
		Date:          day,
		TotalHours:    sum.TotalHours,
		BillableHours: sum.BillableHours,
		TotalValue:    sum.Earnings,
		Entries:       entries,
	}, nil
}

func (s *reportService) GetOutstandingTotal(ctx context.Context, userID int64) (decimal.Decimal, error) {
	invoices, err := s.store.Invoices().List(ctx, repository.InvoiceFilter{
		UserID:   userID,
		Statuses: []domain.InvoiceStatus{domain.InvoiceStatusSent},
	})
	if err != nil {
		return decimal.Zero, s.fail(ctx, "GetOutstandingTotal", err)
	}

	total := decimal.Zero
	for _, invoice := range invoices {
		total = total.Add(invoice.OutstandingAmount)
	}
	return total, nil
}

func (s *reportService) GetUnbilledTotal(ctx context.Context, userID int64) (decimal.Decimal, error) {
	entries, err := s.entries(ctx, repository.EntryFilter{UserID: userID, BillableOnly: true, UnbilledOnly: true})
	if err != nil {
		return decimal.Zero, err
	}

	total := decimal.Zero
	for _, entry := range entries {
		total = total.Add(entry.Amount)
	}
	return total, nil
}

func (s *reportService) GetRevenueByMonth(ctx context.Context, userID int64, year int) (map[time.Month]decimal.Decimal, error) {
	invoices, err := s.store.Invoices().List(ctx, repository.InvoiceFilter{
		UserID:   userID,
		Statuses: []domain.InvoiceStatus{domain.InvoiceStatusPaid},
	})
	if err != nil {
		return nil, s.fail(ctx, "GetRevenueByMonth", err)
	}

	revenue := make(map[time.Month]decimal.Decimal, 12)
	for m := time.January; m <= time.December; m++ {
		revenue[m] = decimal.Zero
	}

	for _, invoice := range invoices {
		// Use paid date if available, otherwise use updated date
		paymentDate := invoice.UpdatedAt
		if invoice.PaidAt != nil {
			paymentDate = *invoice.PaidAt
		}
		if paymentDate.Year() == year {
			revenue[paymentDate.Month()] = revenue[paymentDate.Month()].Add(invoice.PaidAmount)
		}
	}

	return revenue, nil
}

func (s *reportService) Dashboard(ctx context.Context, userID int64) (*Dashboard, error) {
	now := s.now()
	d := &Dashboard{}

	var err error
	if d.Today, err = s.GetDailySummary(ctx, userID, now); err != nil {
		return nil, err
	}
	if d.Week, err = s.GetWeekSummary(ctx, userID, now); err != nil {
		return nil, err
	}
	if d.Unbilled, err = s.GetUnbilledTotal(ctx, userID); err != nil {
		return nil, err
	}
	if d.RevenueByMonth, err = s.GetRevenueByMonth(ctx, userID, now.Year()); err != nil {
		return nil, err
	}

	sent, err := s.store.Invoices().List(ctx, repository.InvoiceFilter{
		UserID:   userID,
		Statuses: []domain.InvoiceStatus{domain.InvoiceStatusSent},
	})
	if err != nil {
		return nil, s.fail(ctx, "Dashboard", err)
	}
	d.Outstanding = decimal.Zero
	for _, inv := range sent {
		d.Outstanding = d.Outstanding.Add(inv.OutstandingAmount)
		if inv.IsOverdue(now) {
			d.OverdueInvoices++
		}
	}

	active, err := s.store.Entries().GetActive(ctx, userID)
	switch {
	case err == nil:
		d.Active = &ActiveTimer{
			Entry:   active,
			Elapsed: active.Duration(now),
			Accrued: active.AccruedAmount(now),
		}
	case !isNotFound(err):
		return nil, s.fail(ctx, "Dashboard", err)
	}

	recent, err := s.entries(ctx, repository.EntryFilter{UserID: userID})
	if err != nil {
		return nil, err
	}
	if len(recent) > recentEntryLimit {
		recent = recent[:recentEntryLimit]
	}
	d.RecentEntries = recent

	return d, nil
}
