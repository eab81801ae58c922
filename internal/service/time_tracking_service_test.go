package service

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/andy/billable/internal/domain"
)

func TestStartStopComputesAmounts(t *testing.T) {
	f := newFixture(t)
	c := f.client(t, f.userID, "Acme", "50")
	p := f.project(t, f.userID, c.ID, "0", "10")

	entry, err := f.tracking.StartTimeTracking(ctx(), f.userID, p.ID, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !entry.IsRunning() {
		t.Fatalf("expected running entry")
	}
	if !entry.HourlyRate.Equal(dec("50")) {
		t.Fatalf("expected client rate 50, got %s", entry.HourlyRate)
	}

	f.clock.Advance(60 * time.Minute)
	stopped, err := f.tracking.StopTimeTracking(ctx(), f.userID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stopped.Minutes() != 60 {
		t.Fatalf("expected 60 minutes, got %d", stopped.Minutes())
	}
	if !stopped.Amount.Equal(dec("50.00")) {
		t.Fatalf("expected amount 50.00, got %s", stopped.Amount)
	}
	if !stopped.WithholdingTaxAmount.Equal(dec("10.00")) {
		t.Fatalf("expected withholding 10.00, got %s", stopped.WithholdingTaxAmount)
	}
	if !stopped.NetAmount.Equal(dec("40.00")) {
		t.Fatalf("expected net 40.00, got %s", stopped.NetAmount)
	}

	project, _ := f.projects.Get(ctx(), f.userID, p.ID)
	if !project.ActualHours.Equal(dec("1")) {
		t.Fatalf("expected project actual hours 1, got %s", project.ActualHours)
	}
}

func TestStartPrefersProjectRate(t *testing.T) {
	f := newFixture(t)
	c := f.client(t, f.userID, "Acme", "50")
	p := f.project(t, f.userID, c.ID, "80", "0")

	entry, err := f.tracking.StartTimeTracking(ctx(), f.userID, p.ID, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !entry.HourlyRate.Equal(dec("80")) {
		t.Fatalf("expected project rate 80, got %s", entry.HourlyRate)
	}
}

func TestStartTwiceFails(t *testing.T) {
	f := newFixture(t)
	c := f.client(t, f.userID, "Acme", "50")
	p := f.project(t, f.userID, c.ID, "0", "0")

	if _, err := f.tracking.StartTimeTracking(ctx(), f.userID, p.ID, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	_, err := f.tracking.StartTimeTracking(ctx(), f.userID, p.ID, nil)
	if !errors.Is(err, ErrTimerAlreadyRunning) {
		t.Fatalf("expected ErrTimerAlreadyRunning, got %v", err)
	}
}

func TestConcurrentStartsLeaveOneActiveEntry(t *testing.T) {
	for _, b := range backends {
		t.Run(b.name, func(t *testing.T) {
			f := b.open(t)
			c := f.client(t, f.userID, "Acme", "50")
			p := f.project(t, f.userID, c.ID, "0", "0")

			const n = 20
			var (
				wg       sync.WaitGroup
				mu       sync.Mutex
				ok       int
				rejected int
			)
			for i := 0; i < n; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					_, err := f.tracking.StartTimeTracking(ctx(), f.userID, p.ID, nil)
					mu.Lock()
					defer mu.Unlock()
					switch {
					case err == nil:
						ok++
					case errors.Is(err, ErrTimerAlreadyRunning):
						rejected++
					default:
						t.Errorf("unexpected error: %v", err)
					}
				}()
			}
			wg.Wait()

			if ok != 1 || rejected != n-1 {
				t.Fatalf("expected 1 start and %d rejections, got %d and %d", n-1, ok, rejected)
			}
			entries, err := f.tracking.ListEntries(ctx(), f.userID, EntryQuery{})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(entries) != 1 {
				t.Fatalf("expected 1 entry, got %d", len(entries))
			}
		})
	}
}

func TestStopWithoutTimer(t *testing.T) {
	f := newFixture(t)
	_, err := f.tracking.StopTimeTracking(ctx(), f.userID)
	if !errors.Is(err, ErrNoActiveTimer) {
		t.Fatalf("expected ErrNoActiveTimer, got %v", err)
	}
	_, err = f.tracking.GetActiveTimeEntry(ctx(), f.userID)
	if !errors.Is(err, ErrNoActiveTimer) {
		t.Fatalf("expected ErrNoActiveTimer, got %v", err)
	}
}

func TestStartRejectsClosedProjectAndForeignAssignment(t *testing.T) {
	f := newFixture(t)
	c := f.client(t, f.userID, "Acme", "50")
	p := f.project(t, f.userID, c.ID, "0", "0")
	other := f.project(t, f.userID, c.ID, "0", "0")

	a, err := f.assignments.Create(ctx(), f.userID, AssignmentInput{ProjectID: other.ID, TaskName: "Design"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	_, err = f.tracking.StartTimeTracking(ctx(), f.userID, p.ID, &a.ID)
	var verr *domain.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected validation error, got %v", err)
	}

	if _, err := f.projects.Cancel(ctx(), f.userID, p.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	_, err = f.tracking.StartTimeTracking(ctx(), f.userID, p.ID, nil)
	var serr *domain.InvalidStateError
	if !errors.As(err, &serr) {
		t.Fatalf("expected invalid state error, got %v", err)
	}
}

func TestOtherUsersProjectIsNotFound(t *testing.T) {
	f := newFixture(t)
	bob := f.user(t, "bob")
	c := f.client(t, bob, "Acme", "50")
	p := f.project(t, bob, c.ID, "0", "0")

	_, err := f.tracking.StartTimeTracking(ctx(), f.userID, p.ID, nil)
	var nf *domain.NotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestStopAdvancesAssignmentHours(t *testing.T) {
	f := newFixture(t)
	c := f.client(t, f.userID, "Acme", "50")
	p := f.project(t, f.userID, c.ID, "0", "0")
	a, err := f.assignments.Create(ctx(), f.userID, AssignmentInput{ProjectID: p.ID, TaskName: "Design", EstimatedHours: dec("4")})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := f.tracking.StartTimeTracking(ctx(), f.userID, p.ID, &a.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	f.clock.Advance(90 * time.Minute)
	if _, err := f.tracking.StopTimeTracking(ctx(), f.userID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	progress, err := f.assignments.GetProgress(ctx(), f.userID, a.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !progress.ActualHours.Equal(dec("1.5")) {
		t.Fatalf("expected 1.5 hours, got %s", progress.ActualHours)
	}
	if progress.CompletionPercentage != 38 {
		t.Fatalf("expected 38%%, got %d", progress.CompletionPercentage)
	}
}

func TestLogTimeEntry(t *testing.T) {
	f := newFixture(t)
	c := f.client(t, f.userID, "Acme", "60")
	p := f.project(t, f.userID, c.ID, "0", "0")

	start := t0.Add(-3 * time.Hour)
	entry, err := f.tracking.LogTimeEntry(ctx(), f.userID, LogEntryInput{
		ProjectID:   p.ID,
		Start:       start,
		End:         start.Add(45 * time.Minute),
		Description: "call",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !entry.Amount.Equal(dec("45.00")) {
		t.Fatalf("expected 45.00, got %s", entry.Amount)
	}

	_, err = f.tracking.LogTimeEntry(ctx(), f.userID, LogEntryInput{ProjectID: p.ID, Start: start, End: start})
	var verr *domain.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if _, ok := verr.Fields["end"]; !ok {
		t.Fatalf("expected error on end, got %v", verr.Fields)
	}
}

func TestUpdateDetailsRecordsHistoryAndRecalculates(t *testing.T) {
	f := newFixture(t)
	c := f.client(t, f.userID, "Acme", "50")
	p := f.project(t, f.userID, c.ID, "0", "0")
	entry := f.track(t, p.ID, 60)

	desc := "design review"
	billable := false
	updated, err := f.tracking.UpdateTimeEntryDetails(ctx(), f.userID, entry.ID, EntryDetails{
		Description: &desc,
		IsBillable:  &billable,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated.Description != desc {
		t.Fatalf("expected description %q, got %q", desc, updated.Description)
	}
	if !updated.WithholdingTaxAmount.IsZero() {
		t.Fatalf("expected no withholding on non-billable entry, got %s", updated.WithholdingTaxAmount)
	}
	if !updated.NetAmount.Equal(updated.Amount) {
		t.Fatalf("expected net to equal gross, got %s and %s", updated.NetAmount, updated.Amount)
	}

	history, err := f.tracking.GetHistory(ctx(), f.userID, entry.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("expected 2 history records, got %d", len(history))
	}
}

func TestLockedEntryCannotChange(t *testing.T) {
	f := newFixture(t)
	c := f.client(t, f.userID, "Acme", "50")
	p := f.project(t, f.userID, c.ID, "0", "0")
	entry := f.track(t, p.ID, 60)

	if _, err := f.invoices.CreateInvoiceFromTimeEntries(ctx(), f.userID, FromEntriesInput{
		ClientID: c.ID,
		EntryIDs: []int64{entry.ID},
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	desc := "late edit"
	_, err := f.tracking.UpdateTimeEntryDetails(ctx(), f.userID, entry.ID, EntryDetails{Description: &desc})
	if !errors.Is(err, ErrEntryLocked) {
		t.Fatalf("expected ErrEntryLocked, got %v", err)
	}
	if err := f.tracking.DeleteTimeEntry(ctx(), f.userID, entry.ID); !errors.Is(err, ErrEntryLocked) {
		t.Fatalf("expected ErrEntryLocked, got %v", err)
	}
}

func TestDeleteEntrySubtractsHours(t *testing.T) {
	f := newFixture(t)
	c := f.client(t, f.userID, "Acme", "50")
	p := f.project(t, f.userID, c.ID, "0", "0")
	entry := f.track(t, p.ID, 30)

	if err := f.tracking.DeleteTimeEntry(ctx(), f.userID, entry.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	project, _ := f.projects.Get(ctx(), f.userID, p.ID)
	if !project.ActualHours.IsZero() {
		t.Fatalf("expected 0 hours, got %s", project.ActualHours)
	}
}

func TestShortEntriesAddUpWithoutDrift(t *testing.T) {
	f := newFixture(t)
	c := f.client(t, f.userID, "Acme", "50")
	p := f.project(t, f.userID, c.ID, "0", "1")
	a, err := f.assignments.Create(ctx(), f.userID, AssignmentInput{ProjectID: p.ID, TaskName: "Support", EstimatedHours: dec("1")})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var entries []*domain.TimeEntry
	for i := 0; i < 60; i++ {
		if _, err := f.tracking.StartTimeTracking(ctx(), f.userID, p.ID, &a.ID); err != nil {
			t.Fatalf("failed to start timer: %v", err)
		}
		f.clock.Advance(time.Minute)
		entry, err := f.tracking.StopTimeTracking(ctx(), f.userID)
		if err != nil {
			t.Fatalf("failed to stop timer: %v", err)
		}
		entries = append(entries, entry)
	}

	project, _ := f.projects.Get(ctx(), f.userID, p.ID)
	if !project.ActualHours.Equal(dec("1")) {
		t.Fatalf("expected project actual hours 1, got %s", project.ActualHours)
	}
	progress, err := f.assignments.GetProgress(ctx(), f.userID, a.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !progress.ActualHours.Equal(dec("1")) || progress.CompletionPercentage != 100 {
		t.Fatalf("expected 1 hour at 100%%, got %s at %d%%", progress.ActualHours, progress.CompletionPercentage)
	}

	for _, e := range entries[:30] {
		if err := f.tracking.DeleteTimeEntry(ctx(), f.userID, e.ID); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	project, _ = f.projects.Get(ctx(), f.userID, p.ID)
	if !project.ActualHours.Equal(dec("0.5")) {
		t.Fatalf("expected project actual hours 0.5, got %s", project.ActualHours)
	}
	assignment, _ := f.assignments.Get(ctx(), f.userID, a.ID)
	if !assignment.ActualHours.Equal(dec("0.5")) {
		t.Fatalf("expected assignment actual hours 0.5, got %s", assignment.ActualHours)
	}
}

func TestDiscardActive(t *testing.T) {
	f := newFixture(t)
	c := f.client(t, f.userID, "Acme", "50")
	p := f.project(t, f.userID, c.ID, "0", "0")

	if _, err := f.tracking.StartTimeTracking(ctx(), f.userID, p.ID, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := f.tracking.DiscardActive(ctx(), f.userID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := f.tracking.GetActiveTimeEntry(ctx(), f.userID); !errors.Is(err, ErrNoActiveTimer) {
		t.Fatalf("expected ErrNoActiveTimer, got %v", err)
	}
}

func TestGetSummary(t *testing.T) {
	f := newFixture(t)
	c := f.client(t, f.userID, "Acme", "50")
	p := f.project(t, f.userID, c.ID, "0", "0")
	f.track(t, p.ID, 60)
	e2 := f.track(t, p.ID, 30)

	billable := false
	if _, err := f.tracking.UpdateTimeEntryDetails(ctx(), f.userID, e2.ID, EntryDetails{IsBillable: &billable}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	sum, err := f.tracking.GetSummary(ctx(), f.userID, EntryQuery{ProjectID: &p.ID})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sum.EntryCount != 2 || sum.TotalMinutes != 90 {
		t.Fatalf("expected 2 entries and 90 minutes, got %d and %d", sum.EntryCount, sum.TotalMinutes)
	}
	if !sum.TotalHours.Equal(dec("1.5")) || !sum.BillableHours.Equal(dec("1")) {
		t.Fatalf("expected 1.5 total and 1 billable hours, got %s and %s", sum.TotalHours, sum.BillableHours)
	}
	if !sum.Earnings.Equal(dec("50")) || !sum.NetEarnings.Equal(dec("40")) {
		t.Fatalf("expected earnings 50 and net 40, got %s and %s", sum.Earnings, sum.NetEarnings)
	}

	from := t0.Add(2 * time.Hour)
	sum, err = f.tracking.GetSummary(ctx(), f.userID, EntryQuery{From: &from})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sum.EntryCount != 0 {
		t.Fatalf("expected no entries after %s, got %d", from, sum.EntryCount)
	}
}

func TestInfrastructureErrorsAreOpaque(t *testing.T) {
	f := newFixture(t)
	c := f.client(t, f.userID, "Acme", "50")
	p := f.project(t, f.userID, c.ID, "0", "0")

	cause := errors.New("disk I/O error at /var/lib/billable.db")
	f.store.FailOn("entries.Create", cause)

	_, err := f.tracking.StartTimeTracking(ctx(), f.userID, p.ID, nil)
	var internal *domain.InternalError
	if !errors.As(err, &internal) {
		t.Fatalf("expected internal error, got %v", err)
	}
	if err.Error() != "internal error" {
		t.Fatalf("expected opaque message, got %q", err.Error())
	}
	if !errors.Is(err, cause) {
		t.Fatalf("expected cause to be kept for logging")
	}
}
