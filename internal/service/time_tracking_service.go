package service

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/andy/billable/internal/domain"
	"github.com/andy/billable/internal/repository"
)

var (
	ErrTimerAlreadyRunning = domain.Conflict("a timer is already running")
	ErrNoActiveTimer       = domain.NotFound("active time entry", 0)
	ErrEntryLocked         = domain.Conflict("time entry is locked by an invoice")
)

// LogEntryInput describes a completed block of work recorded after the fact
type LogEntryInput struct {
	ProjectID    int64
	AssignmentID *int64
	Start        time.Time
	End          time.Time
	IsBillable   *bool
	Description  string
	Notes        string
}

// EntryDetails holds the editable fields of an entry; nil leaves a field alone
type EntryDetails struct {
	Description *string
	Notes       *string
	IsBillable  *bool
}

// EntryQuery filters ListEntries
type EntryQuery struct {
	ProjectID    *int64
	AssignmentID *int64
	From         *time.Time
	To           *time.Time
	BillableOnly bool
	UnbilledOnly bool
}

// TimeSummary aggregates stopped entries
type TimeSummary struct {
	EntryCount    int             `json:"entryCount"`
	TotalMinutes  int64           `json:"totalMinutes"`
	TotalHours    decimal.Decimal `json:"totalHours"`
	BillableHours decimal.Decimal `json:"billableHours"`
	Earnings      decimal.Decimal `json:"earnings"` // gross of billable entries
	Withholding   decimal.Decimal `json:"withholding"`
	NetEarnings   decimal.Decimal `json:"netEarnings"`
}

// TimeTrackingService runs the timer and records time entries
type TimeTrackingService interface {
	// StartTimeTracking opens a running entry; only one per user may exist
	StartTimeTracking(ctx context.Context, userID, projectID int64, assignmentID *int64) (*domain.TimeEntry, error)

	// StopTimeTracking closes the running entry and computes its amounts
	StopTimeTracking(ctx context.Context, userID int64) (*domain.TimeEntry, error)

	// GetActiveTimeEntry returns the running entry or ErrNoActiveTimer
	GetActiveTimeEntry(ctx context.Context, userID int64) (*domain.TimeEntry, error)

	// DiscardActive drops the running entry without recording it
	DiscardActive(ctx context.Context, userID int64) error

	LogTimeEntry(ctx context.Context, userID int64, in LogEntryInput) (*domain.TimeEntry, error)
	UpdateTimeEntryDetails(ctx context.Context, userID, entryID int64, in EntryDetails) (*domain.TimeEntry, error)
	DeleteTimeEntry(ctx context.Context, userID, entryID int64) error
	GetTimeEntry(ctx context.Context, userID, entryID int64) (*domain.TimeEntry, error)
	GetHistory(ctx context.Context, userID, entryID int64) ([]*domain.EntryHistory, error)
	ListEntries(ctx context.Context, userID int64, q EntryQuery) ([]*domain.TimeEntry, error)

	// GetSummary sums stopped entries matching q
	GetSummary(ctx context.Context, userID int64, q EntryQuery) (*TimeSummary, error)
}

type timeTrackingService struct {
	base
	withholdingRate decimal.Decimal
}

// NewTimeTrackingService creates a new time tracking service. withholdingRate
// is a fraction (0.20 = 20%) applied to new entries.
func NewTimeTrackingService(
	store repository.Store,
	clock domain.Clock,
	logger *slog.Logger,
	withholdingRate decimal.Decimal,
) TimeTrackingService {
	return &timeTrackingService{
		base:            newBase(store, clock, logger),
		withholdingRate: withholdingRate,
	}
}

func (s *timeTrackingService) StartTimeTracking(ctx context.Context, userID, projectID int64, assignmentID *int64) (*domain.TimeEntry, error) {
	if projectID <= 0 {
		return nil, domain.Invalid("projectId", "project ID is required")
	}

	var entry *domain.TimeEntry
	err := s.withTx(ctx, "StartTimeTracking", func(st repository.Store) error {
		project, rate, err := s.resolveTarget(ctx, st, userID, projectID, assignmentID)
		if err != nil {
			return err
		}

		if _, err := st.Entries().GetActive(ctx, userID); err == nil {
			return ErrTimerAlreadyRunning
		} else if !isNotFound(err) {
			return err
		}

		entry = domain.NewTimeEntry(userID, project.ID, assignmentID, rate, s.withholdingRate, s.now())
		if err := entry.Validate(); err != nil {
			return err
		}
		if err := st.Entries().Create(ctx, entry); err != nil {
			// the partial unique index caught a concurrent start
			if errors.Is(err, repository.ErrDuplicate) {
				return ErrTimerAlreadyRunning
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "timer started", "user_id", userID, "project_id", projectID, "entry_id", entry.ID)
	return entry, nil
}

// resolveTarget checks the project (and assignment) and picks the rate: the
// project's when set, otherwise the client's default.
func (s *timeTrackingService) resolveTarget(ctx context.Context, st repository.Store, userID, projectID int64, assignmentID *int64) (*domain.Project, decimal.Decimal, error) {
	project, err := loadProject(ctx, st, userID, projectID)
	if err != nil {
		return nil, decimal.Zero, err
	}
	if project.Status.IsClosed() {
		return nil, decimal.Zero, &domain.InvalidStateError{Entity: "project", Status: string(project.Status), Action: "track time on"}
	}

	if assignmentID != nil {
		a, err := loadAssignment(ctx, st, userID, *assignmentID)
		if err != nil {
			return nil, decimal.Zero, err
		}
		if a.ProjectID != project.ID {
			return nil, decimal.Zero, domain.Invalid("assignmentId", "assignment does not belong to the project")
		}
	}

	rate := project.HourlyRate
	if !rate.IsPositive() {
		client, err := loadClient(ctx, st, userID, project.ClientID)
		if err != nil {
			return nil, decimal.Zero, err
		}
		rate = client.HourlyRate
	}
	return project, rate, nil
}

func (s *timeTrackingService) StopTimeTracking(ctx context.Context, userID int64) (*domain.TimeEntry, error) {
	var entry *domain.TimeEntry
	err := s.withTx(ctx, "StopTimeTracking", func(st repository.Store) error {
		var err error
		entry, err = st.Entries().GetActive(ctx, userID)
		if isNotFound(err) {
			return ErrNoActiveTimer
		}
		if err != nil {
			return err
		}

		now := s.now()
		entry.Stop(now)
		if err := st.Entries().Update(ctx, entry); err != nil {
			return err
		}
		return s.addHours(ctx, st, entry, entry.Minutes(), now)
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "timer stopped",
		"user_id", userID,
		"entry_id", entry.ID,
		"minutes", entry.Minutes(),
		"amount", entry.Amount.StringFixed(domain.MoneyPlaces),
	)
	return entry, nil
}

// addHours moves the project's and assignment's actual hours by minutes. It
// runs after the entry change is written, so the tracked totals read here
// already include it; hours follow the rounded totals rather than summing
// per-entry roundings.
func (s *timeTrackingService) addHours(ctx context.Context, st repository.Store, entry *domain.TimeEntry, minutes int64, now time.Time) error {
	if minutes == 0 {
		return nil
	}

	project, err := st.Projects().GetByID(ctx, entry.ProjectID)
	if err != nil {
		return err
	}
	after, err := trackedMinutes(ctx, st, repository.EntryFilter{UserID: entry.UserID, ProjectID: &project.ID})
	if err != nil {
		return err
	}
	project.MoveTrackedMinutes(after-minutes, after, now)
	if err := st.Projects().Update(ctx, project); err != nil {
		return err
	}

	if entry.AssignmentID == nil {
		return nil
	}
	a, err := st.Assignments().GetByID(ctx, *entry.AssignmentID)
	if isNotFound(err) {
		return nil
	}
	if err != nil {
		return err
	}
	after, err = trackedMinutes(ctx, st, repository.EntryFilter{UserID: entry.UserID, AssignmentID: &a.ID})
	if err != nil {
		return err
	}
	a.MoveTrackedMinutes(after-minutes, after, now)
	return st.Assignments().Update(ctx, a)
}

// trackedMinutes sums the durations of the stopped entries matching f.
func trackedMinutes(ctx context.Context, st repository.Store, f repository.EntryFilter) (int64, error) {
	entries, err := st.Entries().List(ctx, f)
	if err != nil {
		return 0, err
	}
	var total int64
	for _, e := range entries {
		total += e.Minutes()
	}
	return total, nil
}

func (s *timeTrackingService) GetActiveTimeEntry(ctx context.Context, userID int64) (*domain.TimeEntry, error) {
	entry, err := s.store.Entries().GetActive(ctx, userID)
	if isNotFound(err) {
		return nil, ErrNoActiveTimer
	}
	if err != nil {
		return nil, s.fail(ctx, "GetActiveTimeEntry", err)
	}
	return entry, nil
}

func (s *timeTrackingService) DiscardActive(ctx context.Context, userID int64) error {
	return s.withTx(ctx, "DiscardActive", func(st repository.Store) error {
		entry, err := st.Entries().GetActive(ctx, userID)
		if isNotFound(err) {
			return ErrNoActiveTimer
		}
		if err != nil {
			return err
		}
		return st.Entries().Delete(ctx, entry.ID)
	})
}

func (s *timeTrackingService) LogTimeEntry(ctx context.Context, userID int64, in LogEntryInput) (*domain.TimeEntry, error) {
	v := domain.NewValidationError()
	if in.ProjectID <= 0 {
		v.Add("projectId", "project ID is required")
	}
	if in.Start.IsZero() {
		v.Add("start", "start time is required")
	}
	if !in.End.After(in.Start) {
		v.Add("end", "end time must be after start time")
	}
	if err := v.Err(); err != nil {
		return nil, err
	}

	var entry *domain.TimeEntry
	err := s.withTx(ctx, "LogTimeEntry", func(st repository.Store) error {
		project, rate, err := s.resolveTarget(ctx, st, userID, in.ProjectID, in.AssignmentID)
		if err != nil {
			return err
		}

		now := s.now()
		entry = domain.NewTimeEntry(userID, project.ID, in.AssignmentID, rate, s.withholdingRate, in.Start)
		entry.Description = in.Description
		entry.Notes = in.Notes
		if in.IsBillable != nil {
			entry.IsBillable = *in.IsBillable
		}
		entry.Stop(in.End)
		entry.CreatedAt = now
		entry.UpdatedAt = now

		if err := entry.Validate(); err != nil {
			return err
		}
		if err := st.Entries().Create(ctx, entry); err != nil {
			return err
		}
		return s.addHours(ctx, st, entry, entry.Minutes(), now)
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// UpdateTimeEntryDetails edits description, notes and the billable flag.
// Flipping the flag on a stopped entry recomputes withholding and net.
func (s *timeTrackingService) UpdateTimeEntryDetails(ctx context.Context, userID, entryID int64, in EntryDetails) (*domain.TimeEntry, error) {
	var entry *domain.TimeEntry
	err := s.withTx(ctx, "UpdateTimeEntryDetails", func(st repository.Store) error {
		var err error
		entry, err = loadEntry(ctx, st, userID, entryID)
		if err != nil {
			return err
		}
		if entry.IsLocked() {
			return ErrEntryLocked
		}

		now := s.now()
		changes := make([]*domain.EntryHistory, 0, 3)
		if in.Description != nil && *in.Description != entry.Description {
			changes = append(changes, domain.NewEntryHistory(entry.ID, "description", entry.Description, *in.Description, now))
			entry.Description = *in.Description
		}
		if in.Notes != nil && *in.Notes != entry.Notes {
			changes = append(changes, domain.NewEntryHistory(entry.ID, "notes", entry.Notes, *in.Notes, now))
			entry.Notes = *in.Notes
		}
		if in.IsBillable != nil && *in.IsBillable != entry.IsBillable {
			changes = append(changes, domain.NewEntryHistory(entry.ID, "is_billable",
				strconv.FormatBool(entry.IsBillable), strconv.FormatBool(*in.IsBillable), now))
			entry.IsBillable = *in.IsBillable
			if !entry.IsRunning() {
				entry.CalculateAmounts()
			}
		}
		if len(changes) == 0 {
			return nil
		}

		entry.UpdatedAt = now
		if err := st.Entries().Update(ctx, entry); err != nil {
			return err
		}
		for _, h := range changes {
			if err := st.Entries().AddHistory(ctx, h); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

func (s *timeTrackingService) DeleteTimeEntry(ctx context.Context, userID, entryID int64) error {
	return s.withTx(ctx, "DeleteTimeEntry", func(st repository.Store) error {
		entry, err := loadEntry(ctx, st, userID, entryID)
		if err != nil {
			return err
		}
		if entry.IsLocked() {
			return ErrEntryLocked
		}
		if err := st.Entries().Delete(ctx, entry.ID); err != nil {
			return err
		}
		return s.addHours(ctx, st, entry, -entry.Minutes(), s.now())
	})
}

func (s *timeTrackingService) GetTimeEntry(ctx context.Context, userID, entryID int64) (*domain.TimeEntry, error) {
	entry, err := loadEntry(ctx, s.store, userID, entryID)
	if err != nil {
		return nil, s.fail(ctx, "GetTimeEntry", err)
	}
	return entry, nil
}

func (s *timeTrackingService) GetHistory(ctx context.Context, userID, entryID int64) ([]*domain.EntryHistory, error) {
	if _, err := loadEntry(ctx, s.store, userID, entryID); err != nil {
		return nil, s.fail(ctx, "GetHistory", err)
	}
	history, err := s.store.Entries().GetHistory(ctx, entryID)
	if err != nil {
		return nil, s.fail(ctx, "GetHistory", err)
	}
	return history, nil
}

func (s *timeTrackingService) ListEntries(ctx context.Context, userID int64, q EntryQuery) ([]*domain.TimeEntry, error) {
	entries, err := s.store.Entries().List(ctx, q.filter(userID, true))
	if err != nil {
		return nil, s.fail(ctx, "ListEntries", err)
	}
	return entries, nil
}

func (s *timeTrackingService) GetSummary(ctx context.Context, userID int64, q EntryQuery) (*TimeSummary, error) {
	if q.ProjectID != nil {
		if _, err := loadProject(ctx, s.store, userID, *q.ProjectID); err != nil {
			return nil, s.fail(ctx, "GetSummary", err)
		}
	}
	entries, err := s.store.Entries().List(ctx, q.filter(userID, false))
	if err != nil {
		return nil, s.fail(ctx, "GetSummary", err)
	}
	return summarize(entries), nil
}

func (q EntryQuery) filter(userID int64, includeRunning bool) repository.EntryFilter {
	return repository.EntryFilter{
		UserID:         userID,
		ProjectID:      q.ProjectID,
		AssignmentID:   q.AssignmentID,
		From:           q.From,
		To:             q.To,
		BillableOnly:   q.BillableOnly,
		UnbilledOnly:   q.UnbilledOnly,
		IncludeRunning: includeRunning,
	}
}

// summarize sums stopped entries. Hours are derived from the minute total so
// per-entry rounding does not accumulate.
func summarize(entries []*domain.TimeEntry) *TimeSummary {
	sum := &TimeSummary{
		Earnings:    decimal.Zero,
		Withholding: decimal.Zero,
		NetEarnings: decimal.Zero,
	}
	var billableMinutes int64
	for _, e := range entries {
		if e.IsRunning() {
			continue
		}
		sum.EntryCount++
		sum.TotalMinutes += e.Minutes()
		if e.IsBillable {
			billableMinutes += e.Minutes()
			sum.Earnings = sum.Earnings.Add(e.Amount)
			sum.Withholding = sum.Withholding.Add(e.WithholdingTaxAmount)
			sum.NetEarnings = sum.NetEarnings.Add(e.NetAmount)
		}
	}
	sum.TotalHours = domain.HoursFromMinutes(sum.TotalMinutes)
	sum.BillableHours = domain.HoursFromMinutes(billableMinutes)
	return sum
}
