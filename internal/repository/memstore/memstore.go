// Package memstore is an in-memory repository.Store. It enforces the same
// uniqueness, cascade and rollback rules as the SQLite schema and is used by
// service and API tests.
package memstore

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/andy/billable/internal/domain"
	"github.com/andy/billable/internal/repository"
)

// Store implements repository.Store. A transaction holds the store-wide
// mutex until it finishes and restores a snapshot on error.
type Store struct {
	mu    *sync.Mutex
	st    *state
	inTx  bool
	fault *faults
}

type state struct {
	nextID      map[string]int64
	users       map[int64]*domain.User
	clients     map[int64]*domain.Client
	projects    map[int64]*domain.Project
	assignments map[int64]*domain.Assignment
	entries     map[int64]*domain.TimeEntry
	history     map[int64]*domain.EntryHistory
	invoices    map[int64]*domain.Invoice
	items       map[int64]*domain.InvoiceItem
	sequences   map[int]int64
}

type faults struct {
	mu sync.Mutex
	on map[string]error
}

// New returns an empty Store
func New() *Store {
	return &Store{
		mu:    &sync.Mutex{},
		st:    newState(),
		fault: &faults{on: make(map[string]error)},
	}
}

func newState() *state {
	return &state{
		nextID:      make(map[string]int64),
		users:       make(map[int64]*domain.User),
		clients:     make(map[int64]*domain.Client),
		projects:    make(map[int64]*domain.Project),
		assignments: make(map[int64]*domain.Assignment),
		entries:     make(map[int64]*domain.TimeEntry),
		history:     make(map[int64]*domain.EntryHistory),
		invoices:    make(map[int64]*domain.Invoice),
		items:       make(map[int64]*domain.InvoiceItem),
		sequences:   make(map[int]int64),
	}
}

func (s *state) clone() *state {
	c := newState()
	for k, v := range s.nextID {
		c.nextID[k] = v
	}
	for k, v := range s.users {
		u := *v
		c.users[k] = &u
	}
	for k, v := range s.clients {
		x := *v
		c.clients[k] = &x
	}
	for k, v := range s.projects {
		x := *v
		c.projects[k] = &x
	}
	for k, v := range s.assignments {
		x := *v
		c.assignments[k] = &x
	}
	for k, v := range s.entries {
		x := *v
		c.entries[k] = &x
	}
	for k, v := range s.history {
		x := *v
		c.history[k] = &x
	}
	for k, v := range s.invoices {
		x := *v
		c.invoices[k] = &x
	}
	for k, v := range s.items {
		x := *v
		c.items[k] = &x
	}
	for k, v := range s.sequences {
		c.sequences[k] = v
	}
	return c
}

func (s *state) id(table string) int64 {
	s.nextID[table]++
	return s.nextID[table]
}

// FailOn makes the named operation (e.g. "entries.LockForInvoice") return err
// until cleared with a nil err.
func (s *Store) FailOn(op string, err error) {
	s.fault.mu.Lock()
	defer s.fault.mu.Unlock()
	if err == nil {
		delete(s.fault.on, op)
		return
	}
	s.fault.on[op] = err
}

func (s *Store) check(op string) error {
	s.fault.mu.Lock()
	defer s.fault.mu.Unlock()
	if err, ok := s.fault.on[op]; ok {
		return fmt.Errorf("failed to %s: %w", op, err)
	}
	return nil
}

// lock takes the store mutex unless the caller is already inside a transaction
func (s *Store) lock() func() {
	if s.inTx {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

func (s *Store) Users() repository.UserRepository             { return userRepo{s} }
func (s *Store) Clients() repository.ClientRepository         { return clientRepo{s} }
func (s *Store) Projects() repository.ProjectRepository       { return projectRepo{s} }
func (s *Store) Assignments() repository.AssignmentRepository { return assignmentRepo{s} }
func (s *Store) Entries() repository.TimeEntryRepository      { return entryRepo{s} }
func (s *Store) Invoices() repository.InvoiceRepository       { return invoiceRepo{s} }

func (s *Store) WithTx(ctx context.Context, fn func(repository.Store) error) error {
	if s.inTx {
		return fn(s)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.st.clone()
	tx := &Store{mu: s.mu, st: s.st, inTx: true, fault: s.fault}
	if err := fn(tx); err != nil {
		*s.st = *snapshot
		return err
	}
	return nil
}

func notFound(what string, id int64) error {
	return fmt.Errorf("%s %d: %w", what, id, repository.ErrNotFound)
}

func duplicate(what string) error {
	return fmt.Errorf("%s: %w", what, repository.ErrDuplicate)
}

// users

type userRepo struct{ s *Store }

func (r userRepo) Create(ctx context.Context, u *domain.User) error {
	defer r.s.lock()()
	if err := r.s.check("users.Create"); err != nil {
		return err
	}
	for _, x := range r.s.st.users {
		if x.Username == u.Username {
			return duplicate("create user")
		}
	}
	u.ID = r.s.st.id("users")
	c := *u
	r.s.st.users[u.ID] = &c
	return nil
}

func (r userRepo) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	defer r.s.lock()()
	u, ok := r.s.st.users[id]
	if !ok {
		return nil, notFound("user", id)
	}
	c := *u
	return &c, nil
}

func (r userRepo) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	defer r.s.lock()()
	for _, u := range r.s.st.users {
		if u.Username == username {
			c := *u
			return &c, nil
		}
	}
	return nil, fmt.Errorf("user %q: %w", username, repository.ErrNotFound)
}

// clients

type clientRepo struct{ s *Store }

func (r clientRepo) Create(ctx context.Context, c *domain.Client) error {
	defer r.s.lock()()
	if err := r.s.check("clients.Create"); err != nil {
		return err
	}
	if r.nameTaken(c.UserID, c.Name, 0) {
		return duplicate("create client")
	}
	c.ID = r.s.st.id("clients")
	x := *c
	r.s.st.clients[c.ID] = &x
	return nil
}

func (r clientRepo) nameTaken(userID int64, name string, except int64) bool {
	for _, x := range r.s.st.clients {
		if x.UserID == userID && x.Name == name && x.ID != except {
			return true
		}
	}
	return false
}

func (r clientRepo) GetByID(ctx context.Context, id int64) (*domain.Client, error) {
	defer r.s.lock()()
	c, ok := r.s.st.clients[id]
	if !ok {
		return nil, notFound("client", id)
	}
	x := *c
	return &x, nil
}

func (r clientRepo) List(ctx context.Context, userID int64, includeArchived bool) ([]*domain.Client, error) {
	defer r.s.lock()()
	out := make([]*domain.Client, 0)
	for _, c := range r.s.st.clients {
		if c.UserID != userID || (c.IsArchived && !includeArchived) {
			continue
		}
		x := *c
		out = append(out, &x)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r clientRepo) Update(ctx context.Context, c *domain.Client) error {
	defer r.s.lock()()
	if err := r.s.check("clients.Update"); err != nil {
		return err
	}
	if _, ok := r.s.st.clients[c.ID]; !ok {
		return notFound("client", c.ID)
	}
	if r.nameTaken(c.UserID, c.Name, c.ID) {
		return duplicate("update client")
	}
	x := *c
	r.s.st.clients[c.ID] = &x
	return nil
}

func (r clientRepo) Delete(ctx context.Context, id int64) error {
	defer r.s.lock()()
	if _, ok := r.s.st.clients[id]; !ok {
		return notFound("client", id)
	}
	p, i := r.count(id)
	if p > 0 || i > 0 {
		return fmt.Errorf("failed to delete client: FOREIGN KEY constraint failed")
	}
	delete(r.s.st.clients, id)
	return nil
}

func (r clientRepo) CountDependents(ctx context.Context, id int64) (int, int, error) {
	defer r.s.lock()()
	p, i := r.count(id)
	return p, i, nil
}

func (r clientRepo) count(id int64) (projects, invoices int) {
	for _, p := range r.s.st.projects {
		if p.ClientID == id {
			projects++
		}
	}
	for _, inv := range r.s.st.invoices {
		if inv.ClientID == id {
			invoices++
		}
	}
	return projects, invoices
}

// projects

type projectRepo struct{ s *Store }

func (r projectRepo) Create(ctx context.Context, p *domain.Project) error {
	defer r.s.lock()()
	if err := r.s.check("projects.Create"); err != nil {
		return err
	}
	if _, ok := r.s.st.clients[p.ClientID]; !ok {
		return fmt.Errorf("failed to create project: FOREIGN KEY constraint failed")
	}
	p.ID = r.s.st.id("projects")
	x := *p
	r.s.st.projects[p.ID] = &x
	return nil
}

func (r projectRepo) GetByID(ctx context.Context, id int64) (*domain.Project, error) {
	defer r.s.lock()()
	p, ok := r.s.st.projects[id]
	if !ok {
		return nil, notFound("project", id)
	}
	x := *p
	return &x, nil
}

func (r projectRepo) List(ctx context.Context, f repository.ProjectFilter) ([]*domain.Project, error) {
	defer r.s.lock()()
	out := make([]*domain.Project, 0)
	for _, p := range r.s.st.projects {
		if p.UserID != f.UserID {
			continue
		}
		if f.ClientID != nil && p.ClientID != *f.ClientID {
			continue
		}
		if f.Status != nil && p.Status != *f.Status {
			continue
		}
		x := *p
		out = append(out, &x)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Priority != out[j].Priority {
			return out[i].Priority < out[j].Priority
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

func (r projectRepo) Update(ctx context.Context, p *domain.Project) error {
	defer r.s.lock()()
	if err := r.s.check("projects.Update"); err != nil {
		return err
	}
	if _, ok := r.s.st.projects[p.ID]; !ok {
		return notFound("project", p.ID)
	}
	x := *p
	r.s.st.projects[p.ID] = &x
	return nil
}

func (r projectRepo) Delete(ctx context.Context, id int64) error {
	defer r.s.lock()()
	if _, ok := r.s.st.projects[id]; !ok {
		return notFound("project", id)
	}
	st := r.s.st
	delete(st.projects, id)
	for aid, a := range st.assignments {
		if a.ProjectID == id {
			delete(st.assignments, aid)
		}
	}
	for eid, e := range st.entries {
		if e.ProjectID == id {
			deleteEntry(st, eid)
		}
	}
	for _, inv := range st.invoices {
		if inv.ProjectID != nil && *inv.ProjectID == id {
			inv.ProjectID = nil
		}
	}
	return nil
}

// assignments

type assignmentRepo struct{ s *Store }

func (r assignmentRepo) Create(ctx context.Context, a *domain.Assignment) error {
	defer r.s.lock()()
	if err := r.s.check("assignments.Create"); err != nil {
		return err
	}
	if _, ok := r.s.st.projects[a.ProjectID]; !ok {
		return fmt.Errorf("failed to create assignment: FOREIGN KEY constraint failed")
	}
	a.ID = r.s.st.id("assignments")
	x := *a
	r.s.st.assignments[a.ID] = &x
	return nil
}

func (r assignmentRepo) GetByID(ctx context.Context, id int64) (*domain.Assignment, error) {
	defer r.s.lock()()
	a, ok := r.s.st.assignments[id]
	if !ok {
		return nil, notFound("assignment", id)
	}
	x := *a
	return &x, nil
}

func (r assignmentRepo) ListByProject(ctx context.Context, projectID int64) ([]*domain.Assignment, error) {
	defer r.s.lock()()
	out := make([]*domain.Assignment, 0)
	for _, a := range r.s.st.assignments {
		if a.ProjectID == projectID {
			x := *a
			out = append(out, &x)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Priority != out[j].Priority {
			return out[i].Priority < out[j].Priority
		}
		return out[i].StartDate.Before(out[j].StartDate)
	})
	return out, nil
}

func (r assignmentRepo) Update(ctx context.Context, a *domain.Assignment) error {
	defer r.s.lock()()
	if err := r.s.check("assignments.Update"); err != nil {
		return err
	}
	if _, ok := r.s.st.assignments[a.ID]; !ok {
		return notFound("assignment", a.ID)
	}
	x := *a
	r.s.st.assignments[a.ID] = &x
	return nil
}

func (r assignmentRepo) Delete(ctx context.Context, id int64) error {
	defer r.s.lock()()
	if _, ok := r.s.st.assignments[id]; !ok {
		return notFound("assignment", id)
	}
	delete(r.s.st.assignments, id)
	for _, e := range r.s.st.entries {
		if e.AssignmentID != nil && *e.AssignmentID == id {
			e.AssignmentID = nil
		}
	}
	return nil
}

// time entries

type entryRepo struct{ s *Store }

func (r entryRepo) Create(ctx context.Context, e *domain.TimeEntry) error {
	defer r.s.lock()()
	if err := r.s.check("entries.Create"); err != nil {
		return err
	}
	if e.EndTime == nil && r.active(e.UserID) != nil {
		return duplicate("create time entry")
	}
	e.ID = r.s.st.id("entries")
	x := *e
	r.s.st.entries[e.ID] = &x
	return nil
}

func (r entryRepo) active(userID int64) *domain.TimeEntry {
	for _, e := range r.s.st.entries {
		if e.UserID == userID && e.EndTime == nil {
			return e
		}
	}
	return nil
}

func (r entryRepo) GetByID(ctx context.Context, id int64) (*domain.TimeEntry, error) {
	defer r.s.lock()()
	e, ok := r.s.st.entries[id]
	if !ok {
		return nil, notFound("time entry", id)
	}
	x := *e
	return &x, nil
}

func (r entryRepo) GetActive(ctx context.Context, userID int64) (*domain.TimeEntry, error) {
	defer r.s.lock()()
	if err := r.s.check("entries.GetActive"); err != nil {
		return nil, err
	}
	e := r.active(userID)
	if e == nil {
		return nil, fmt.Errorf("active time entry: %w", repository.ErrNotFound)
	}
	x := *e
	return &x, nil
}

func (r entryRepo) Update(ctx context.Context, e *domain.TimeEntry) error {
	defer r.s.lock()()
	if err := r.s.check("entries.Update"); err != nil {
		return err
	}
	if _, ok := r.s.st.entries[e.ID]; !ok {
		return notFound("time entry", e.ID)
	}
	if e.EndTime == nil {
		if a := r.active(e.UserID); a != nil && a.ID != e.ID {
			return duplicate("update time entry")
		}
	}
	x := *e
	r.s.st.entries[e.ID] = &x
	return nil
}

func (r entryRepo) Delete(ctx context.Context, id int64) error {
	defer r.s.lock()()
	if err := r.s.check("entries.Delete"); err != nil {
		return err
	}
	if _, ok := r.s.st.entries[id]; !ok {
		return notFound("time entry", id)
	}
	deleteEntry(r.s.st, id)
	return nil
}

func deleteEntry(st *state, id int64) {
	delete(st.entries, id)
	for hid, h := range st.history {
		if h.EntryID == id {
			delete(st.history, hid)
		}
	}
	for _, it := range st.items {
		if it.TimeEntryID != nil && *it.TimeEntryID == id {
			it.TimeEntryID = nil
		}
	}
}

func (r entryRepo) List(ctx context.Context, f repository.EntryFilter) ([]*domain.TimeEntry, error) {
	defer r.s.lock()()
	out := make([]*domain.TimeEntry, 0)
	for _, e := range r.s.st.entries {
		if !matchEntry(e, f) {
			continue
		}
		x := *e
		out = append(out, &x)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].StartTime.Equal(out[j].StartTime) {
			return out[i].StartTime.After(out[j].StartTime)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func matchEntry(e *domain.TimeEntry, f repository.EntryFilter) bool {
	switch {
	case e.UserID != f.UserID:
		return false
	case f.ProjectID != nil && e.ProjectID != *f.ProjectID:
		return false
	case f.AssignmentID != nil && (e.AssignmentID == nil || *e.AssignmentID != *f.AssignmentID):
		return false
	case f.From != nil && e.StartTime.Before(*f.From):
		return false
	case f.To != nil && !e.StartTime.Before(*f.To):
		return false
	case f.BillableOnly && !e.IsBillable:
		return false
	case f.UnbilledOnly && e.InvoiceID != nil:
		return false
	case !f.IncludeRunning && e.EndTime == nil:
		return false
	}
	return true
}

func (r entryRepo) CountByProject(ctx context.Context, projectID int64) (int, error) {
	defer r.s.lock()()
	n := 0
	for _, e := range r.s.st.entries {
		if e.ProjectID == projectID {
			n++
		}
	}
	return n, nil
}

func (r entryRepo) LockForInvoice(ctx context.Context, entryIDs []int64, invoiceID int64, at time.Time) error {
	defer r.s.lock()()
	if err := r.s.check("entries.LockForInvoice"); err != nil {
		return err
	}
	for _, id := range entryIDs {
		e, ok := r.s.st.entries[id]
		if !ok || e.InvoiceID != nil || e.EndTime == nil {
			return fmt.Errorf("unlocked time entry %d: %w", id, repository.ErrNotFound)
		}
		inv := invoiceID
		e.InvoiceID = &inv
		e.UpdatedAt = at
	}
	return nil
}

func (r entryRepo) AddHistory(ctx context.Context, h *domain.EntryHistory) error {
	defer r.s.lock()()
	if err := r.s.check("entries.AddHistory"); err != nil {
		return err
	}
	h.ID = r.s.st.id("history")
	x := *h
	r.s.st.history[h.ID] = &x
	return nil
}

func (r entryRepo) GetHistory(ctx context.Context, entryID int64) ([]*domain.EntryHistory, error) {
	defer r.s.lock()()
	out := make([]*domain.EntryHistory, 0)
	for _, h := range r.s.st.history {
		if h.EntryID == entryID {
			x := *h
			out = append(out, &x)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

// invoices

type invoiceRepo struct{ s *Store }

func (r invoiceRepo) Create(ctx context.Context, inv *domain.Invoice) error {
	defer r.s.lock()()
	if err := r.s.check("invoices.Create"); err != nil {
		return err
	}
	for _, x := range r.s.st.invoices {
		if x.InvoiceNumber == inv.InvoiceNumber {
			return duplicate("create invoice")
		}
	}
	inv.ID = r.s.st.id("invoices")
	r.s.st.invoices[inv.ID] = header(inv)
	for _, it := range inv.Items {
		it.InvoiceID = inv.ID
		r.addItem(it)
	}
	return nil
}

func header(inv *domain.Invoice) *domain.Invoice {
	x := *inv
	x.Items = nil
	return &x
}

func (r invoiceRepo) load(inv *domain.Invoice) *domain.Invoice {
	x := *inv
	x.Items = make([]*domain.InvoiceItem, 0)
	for _, it := range r.s.st.items {
		if it.InvoiceID == inv.ID {
			c := *it
			x.Items = append(x.Items, &c)
		}
	}
	sort.Slice(x.Items, func(i, j int) bool { return x.Items[i].ID < x.Items[j].ID })
	return &x
}

func (r invoiceRepo) GetByID(ctx context.Context, id int64) (*domain.Invoice, error) {
	defer r.s.lock()()
	inv, ok := r.s.st.invoices[id]
	if !ok {
		return nil, notFound("invoice", id)
	}
	return r.load(inv), nil
}

func (r invoiceRepo) GetByNumber(ctx context.Context, number string) (*domain.Invoice, error) {
	defer r.s.lock()()
	for _, inv := range r.s.st.invoices {
		if inv.InvoiceNumber == number {
			return r.load(inv), nil
		}
	}
	return nil, fmt.Errorf("invoice %q: %w", number, repository.ErrNotFound)
}

func (r invoiceRepo) List(ctx context.Context, f repository.InvoiceFilter) ([]*domain.Invoice, error) {
	defer r.s.lock()()
	out := make([]*domain.Invoice, 0)
	for _, inv := range r.s.st.invoices {
		if inv.UserID != f.UserID {
			continue
		}
		if f.ClientID != nil && inv.ClientID != *f.ClientID {
			continue
		}
		if len(f.Statuses) > 0 && !hasStatus(f.Statuses, inv.Status) {
			continue
		}
		if f.From != nil && inv.InvoiceDate.Before(*f.From) {
			continue
		}
		if f.To != nil && !inv.InvoiceDate.Before(*f.To) {
			continue
		}
		out = append(out, r.load(inv))
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].InvoiceDate.Equal(out[j].InvoiceDate) {
			return out[i].InvoiceDate.After(out[j].InvoiceDate)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func hasStatus(list []domain.InvoiceStatus, s domain.InvoiceStatus) bool {
	for _, x := range list {
		if x == s {
			return true
		}
	}
	return false
}

func (r invoiceRepo) Update(ctx context.Context, inv *domain.Invoice) error {
	defer r.s.lock()()
	if err := r.s.check("invoices.Update"); err != nil {
		return err
	}
	if _, ok := r.s.st.invoices[inv.ID]; !ok {
		return notFound("invoice", inv.ID)
	}
	r.s.st.invoices[inv.ID] = header(inv)
	return nil
}

func (r invoiceRepo) Delete(ctx context.Context, id int64) error {
	defer r.s.lock()()
	if err := r.s.check("invoices.Delete"); err != nil {
		return err
	}
	st := r.s.st
	if _, ok := st.invoices[id]; !ok {
		return notFound("invoice", id)
	}
	delete(st.invoices, id)
	for iid, it := range st.items {
		if it.InvoiceID == id {
			delete(st.items, iid)
		}
	}
	for _, e := range st.entries {
		if e.InvoiceID != nil && *e.InvoiceID == id {
			e.InvoiceID = nil
		}
	}
	return nil
}

func (r invoiceRepo) AddItem(ctx context.Context, it *domain.InvoiceItem) error {
	defer r.s.lock()()
	if err := r.s.check("invoices.AddItem"); err != nil {
		return err
	}
	if _, ok := r.s.st.invoices[it.InvoiceID]; !ok {
		return notFound("invoice", it.InvoiceID)
	}
	r.addItem(it)
	return nil
}

func (r invoiceRepo) addItem(it *domain.InvoiceItem) {
	it.ID = r.s.st.id("items")
	x := *it
	r.s.st.items[it.ID] = &x
}

func (r invoiceRepo) UpdateItem(ctx context.Context, it *domain.InvoiceItem) error {
	defer r.s.lock()()
	if err := r.s.check("invoices.UpdateItem"); err != nil {
		return err
	}
	cur, ok := r.s.st.items[it.ID]
	if !ok || cur.InvoiceID != it.InvoiceID {
		return notFound("invoice item", it.ID)
	}
	x := *it
	r.s.st.items[it.ID] = &x
	return nil
}

func (r invoiceRepo) DeleteItem(ctx context.Context, invoiceID, itemID int64) error {
	defer r.s.lock()()
	if err := r.s.check("invoices.DeleteItem"); err != nil {
		return err
	}
	cur, ok := r.s.st.items[itemID]
	if !ok || cur.InvoiceID != invoiceID {
		return notFound("invoice item", itemID)
	}
	delete(r.s.st.items, itemID)
	return nil
}

func (r invoiceRepo) NextSequence(ctx context.Context, year int) (int64, error) {
	defer r.s.lock()()
	if err := r.s.check("invoices.NextSequence"); err != nil {
		return 0, err
	}
	r.s.st.sequences[year]++
	return r.s.st.sequences[year], nil
}

func (r invoiceRepo) PeekSequence(ctx context.Context, year int) (int64, error) {
	defer r.s.lock()()
	return r.s.st.sequences[year] + 1, nil
}
