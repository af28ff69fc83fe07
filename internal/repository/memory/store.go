// Package memory is an in-process implementation of the repository
// interfaces. It mirrors the postgres semantics that services rely on:
// optimistic versioning, unique keys and transactional rollback.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/internal/repository"
	apperrors "github.com/jwalitptl/clinic-api/pkg/errors"
)

type linkKey struct {
	appointmentID uuid.UUID
	providerID    uuid.UUID
}

type state struct {
	appointments map[uuid.UUID]model.Appointment
	links        map[linkKey]model.AppointmentProvider
	events       []model.Event
	vitals       map[uuid.UUID]model.Vital
	notes        map[uuid.UUID]model.SoapNote
	patients     map[uuid.UUID]model.Patient
	providers    map[uuid.UUID]model.Provider
	tokens       map[uuid.UUID]model.CalendarToken
	outbox       []model.OutboxEvent
	deadLetters  []model.OutboxEvent
}

func (s *state) clone() *state {
	c := &state{
		appointments: make(map[uuid.UUID]model.Appointment, len(s.appointments)),
		links:        make(map[linkKey]model.AppointmentProvider, len(s.links)),
		events:       append([]model.Event(nil), s.events...),
		vitals:       make(map[uuid.UUID]model.Vital, len(s.vitals)),
		notes:        make(map[uuid.UUID]model.SoapNote, len(s.notes)),
		patients:     s.patients,
		providers:    s.providers,
		tokens:       make(map[uuid.UUID]model.CalendarToken, len(s.tokens)),
		outbox:       append([]model.OutboxEvent(nil), s.outbox...),
		deadLetters:  append([]model.OutboxEvent(nil), s.deadLetters...),
	}
	for k, v := range s.appointments {
		c.appointments[k] = v
	}
	for k, v := range s.links {
		c.links[k] = v
	}
	for k, v := range s.vitals {
		c.vitals[k] = v
	}
	for k, v := range s.notes {
		c.notes[k] = v
	}
	for k, v := range s.tokens {
		c.tokens[k] = v
	}
	return c
}

type txKey struct{}

// Store holds every table in memory.
type Store struct {
	mu   sync.Mutex
	txMu sync.Mutex
	data *state
	now  func() time.Time
}

func NewStore() *Store {
	return &Store{
		data: &state{
			appointments: map[uuid.UUID]model.Appointment{},
			links:        map[linkKey]model.AppointmentProvider{},
			vitals:       map[uuid.UUID]model.Vital{},
			notes:        map[uuid.UUID]model.SoapNote{},
			patients:     map[uuid.UUID]model.Patient{},
			providers:    map[uuid.UUID]model.Provider{},
			tokens:       map[uuid.UUID]model.CalendarToken{},
		},
		now: func() time.Time { return time.Now().UTC() },
	}
}

// SetClock overrides the time source used for timestamps.
func (s *Store) SetClock(now func() time.Time) {
	s.now = now
}

// WithinTx serializes transactions and restores the previous state when fn fails.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx.Value(txKey{}) != nil {
		return fn(ctx)
	}

	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.Lock()
	snapshot := s.data.clone()
	s.mu.Unlock()

	if err := fn(context.WithValue(ctx, txKey{}, true)); err != nil {
		s.mu.Lock()
		s.data = snapshot
		s.mu.Unlock()
		return err
	}
	return nil
}

// lockWrite guards a write. Writes outside a transaction also wait for any
// running transaction so its rollback cannot discard them.
func (s *Store) lockWrite(ctx context.Context) func() {
	if ctx.Value(txKey{}) != nil {
		s.mu.Lock()
		return s.mu.Unlock
	}
	s.txMu.Lock()
	s.mu.Lock()
	return func() {
		s.mu.Unlock()
		s.txMu.Unlock()
	}
}

func (s *Store) Appointments() repository.AppointmentRepository { return appointmentRepo{s} }

func (s *Store) Events() repository.EventRepository { return eventRepo{s} }

func (s *Store) Vitals() repository.VitalRepository { return vitalRepo{s} }

func (s *Store) SoapNotes() repository.SoapNoteRepository { return soapNoteRepo{s} }

func (s *Store) Patients() repository.PatientRepository { return patientRepo{s} }

func (s *Store) Providers() repository.ProviderRepository { return providerRepo{s} }

func (s *Store) CalendarTokens() repository.CalendarTokenRepository { return tokenRepo{s} }

func (s *Store) Outbox() repository.OutboxRepository { return outboxRepo{s} }

// AddPatient seeds a patient row.
func (s *Store) AddPatient(p model.Patient) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.patients[p.ID] = p
}

// AddProvider seeds a provider row.
func (s *Store) AddProvider(p model.Provider) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.providers[p.ID] = p
}

// PutAppointment stores a as is, bypassing versioning.
func (s *Store) PutAppointment(a model.Appointment) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a.Version == 0 {
		a.Version = 1
	}
	s.data.appointments[a.ID] = a
}

// AllEvents returns a copy of the audit trail.
func (s *Store) AllEvents() []model.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.Event(nil), s.data.events...)
}

// AllOutbox returns a copy of the outbox table.
func (s *Store) AllOutbox() []model.OutboxEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.OutboxEvent(nil), s.data.outbox...)
}

// DeadLetters returns a copy of the dead letter table.
func (s *Store) DeadLetters() []model.OutboxEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.OutboxEvent(nil), s.data.deadLetters...)
}

// ProviderLinks returns how many assignment rows exist for an appointment.
func (s *Store) ProviderLinks(appointmentID uuid.UUID) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for k := range s.data.links {
		if k.appointmentID == appointmentID {
			n++
		}
	}
	return n
}

type appointmentRepo struct{ s *Store }

func (r appointmentRepo) Create(ctx context.Context, a *model.Appointment) error {
	defer r.s.lockWrite(ctx)()
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	if _, ok := r.s.data.appointments[a.ID]; ok {
		return apperrors.Conflict("appointment already exists", nil)
	}
	now := r.s.now()
	a.CreatedAt, a.UpdatedAt, a.Version = now, now, 1
	stored := *a
	stored.ProviderIDs = nil
	r.s.data.appointments[a.ID] = stored
	return nil
}

func (r appointmentRepo) Get(ctx context.Context, id uuid.UUID) (*model.Appointment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	a, ok := r.s.data.appointments[id]
	if !ok {
		return nil, apperrors.NotFound("appointment", nil)
	}
	return &a, nil
}

func (r appointmentRepo) Update(ctx context.Context, a *model.Appointment) error {
	defer r.s.lockWrite(ctx)()
	current, ok := r.s.data.appointments[a.ID]
	if !ok || current.Version != a.Version {
		return apperrors.Conflict("appointment was modified by another request, reload and retry", nil)
	}
	a.Version++
	a.UpdatedAt = r.s.now()
	stored := *a
	stored.ProviderIDs = nil
	r.s.data.appointments[a.ID] = stored
	return nil
}

func (r appointmentRepo) Delete(ctx context.Context, id uuid.UUID, version int) error {
	defer r.s.lockWrite(ctx)()
	current, ok := r.s.data.appointments[id]
	if !ok || current.Version != version {
		return apperrors.Conflict("appointment was modified by another request, reload and retry", nil)
	}
	delete(r.s.data.appointments, id)
	for k := range r.s.data.links {
		if k.appointmentID == id {
			delete(r.s.data.links, k)
		}
	}
	return nil
}

func (r appointmentRepo) List(ctx context.Context, f model.AppointmentFilter) ([]*model.Appointment, int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var matched []*model.Appointment
	for _, a := range r.s.data.appointments {
		if f.PatientID != nil && a.PatientID != *f.PatientID {
			continue
		}
		if f.ProviderID != nil {
			if _, ok := r.s.data.links[linkKey{a.ID, *f.ProviderID}]; !ok {
				continue
			}
		}
		if f.Status != "" && a.Status != f.Status {
			continue
		}
		if f.From != nil && a.Schedule.Date.Before(*f.From) {
			continue
		}
		if f.To != nil && !a.Schedule.Date.Before(*f.To) {
			continue
		}
		if q := strings.ToLower(strings.TrimSpace(f.Search)); q != "" {
			p := r.s.data.patients[a.PatientID]
			hay := strings.ToLower(p.FirstName + " " + p.LastName + " " + p.Email)
			if !strings.Contains(hay, q) {
				continue
			}
		}
		a := a
		matched = append(matched, &a)
	}
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].Schedule.Date.After(matched[j].Schedule.Date)
	})

	total := len(matched)
	page := f.Pagination.Normalize()
	start := page.Offset()
	if start > total {
		start = total
	}
	end := start + page.Limit
	if end > total {
		end = total
	}
	return append([]*model.Appointment{}, matched[start:end]...), total, nil
}

func (r appointmentRepo) AddProvider(ctx context.Context, link *model.AppointmentProvider) error {
	defer r.s.lockWrite(ctx)()
	key := linkKey{link.AppointmentID, link.ProviderID}
	if _, ok := r.s.data.links[key]; ok {
		return apperrors.Validationf("provider already assigned")
	}
	if link.AssignedAt.IsZero() {
		link.AssignedAt = r.s.now()
	}
	r.s.data.links[key] = *link
	return nil
}

func (r appointmentRepo) HasProvider(ctx context.Context, appointmentID, providerID uuid.UUID) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	_, ok := r.s.data.links[linkKey{appointmentID, providerID}]
	return ok, nil
}

func (r appointmentRepo) ListProviderIDs(ctx context.Context, appointmentID uuid.UUID) ([]uuid.UUID, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var links []model.AppointmentProvider
	for k, v := range r.s.data.links {
		if k.appointmentID == appointmentID {
			links = append(links, v)
		}
	}
	sort.Slice(links, func(i, j int) bool { return links[i].AssignedAt.Before(links[j].AssignedAt) })
	ids := []uuid.UUID{}
	for _, l := range links {
		ids = append(ids, l.ProviderID)
	}
	return ids, nil
}

func (r appointmentRepo) ListScheduledBetween(ctx context.Context, from, to time.Time) ([]*model.AppointmentSummary, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []*model.AppointmentSummary{}
	for _, a := range r.s.data.appointments {
		if a.Schedule.Date.Before(from) || !a.Schedule.Date.Before(to) {
			continue
		}
		p := r.s.data.patients[a.PatientID]
		out = append(out, &model.AppointmentSummary{
			Appointment:      a,
			PatientFirstName: p.FirstName,
			PatientLastName:  p.LastName,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Schedule.Date.Before(out[j].Schedule.Date) })
	return out, nil
}

func (r appointmentRepo) ListUpcomingForPatient(ctx context.Context, patientID uuid.UUID, from time.Time) ([]*model.Appointment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []*model.Appointment{}
	for _, a := range r.s.data.appointments {
		if a.PatientID != patientID || a.Schedule.Date.Before(from) || a.Status.Terminal() {
			continue
		}
		a := a
		out = append(out, &a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Schedule.Date.Before(out[j].Schedule.Date) })
	return out, nil
}

func (r appointmentRepo) CountActivePatientsSince(ctx context.Context, since time.Time) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	seen := map[uuid.UUID]struct{}{}
	for _, a := range r.s.data.appointments {
		if !a.UpdatedAt.Before(since) {
			seen[a.PatientID] = struct{}{}
		}
	}
	return len(seen), nil
}

type eventRepo struct{ s *Store }

func (r eventRepo) Create(ctx context.Context, e *model.Event) error {
	defer r.s.lockWrite(ctx)()
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = r.s.now()
	}
	r.s.data.events = append(r.s.data.events, *e)
	return nil
}

func (r eventRepo) ListByAppointment(ctx context.Context, appointmentID uuid.UUID) ([]*model.Event, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []*model.Event{}
	for _, e := range r.s.data.events {
		if e.AppointmentID == appointmentID {
			e := e
			out = append(out, &e)
		}
	}
	return out, nil
}

func (r eventRepo) CountAppointmentsWithStatus(ctx context.Context, status model.AppointmentStatus) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	seen := map[uuid.UUID]struct{}{}
	for _, e := range r.s.data.events {
		if e.Type != model.EventAppointmentStatusChanged || e.Status == nil || *e.Status != status {
			continue
		}
		if _, ok := r.s.data.appointments[e.AppointmentID]; ok {
			seen[e.AppointmentID] = struct{}{}
		}
	}
	return len(seen), nil
}

type vitalRepo struct{ s *Store }

func (r vitalRepo) Create(ctx context.Context, v *model.Vital) error {
	defer r.s.lockWrite(ctx)()
	for _, existing := range r.s.data.vitals {
		if existing.AppointmentID == v.AppointmentID {
			return apperrors.Conflict("vitals already recorded for appointment", nil)
		}
	}
	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}
	now := r.s.now()
	v.CreatedAt, v.UpdatedAt = now, now
	r.s.data.vitals[v.ID] = *v
	return nil
}

func (r vitalRepo) Update(ctx context.Context, v *model.Vital) error {
	defer r.s.lockWrite(ctx)()
	if _, ok := r.s.data.vitals[v.ID]; !ok {
		return apperrors.NotFound("vital", nil)
	}
	v.UpdatedAt = r.s.now()
	r.s.data.vitals[v.ID] = *v
	return nil
}

func (r vitalRepo) Get(ctx context.Context, id uuid.UUID) (*model.Vital, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	v, ok := r.s.data.vitals[id]
	if !ok {
		return nil, apperrors.NotFound("vital", nil)
	}
	return &v, nil
}

func (r vitalRepo) GetByAppointment(ctx context.Context, appointmentID uuid.UUID) (*model.Vital, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, v := range r.s.data.vitals {
		if v.AppointmentID == appointmentID {
			return &v, nil
		}
	}
	return nil, apperrors.NotFound("vital", nil)
}

func (r vitalRepo) LatestForPatient(ctx context.Context, patientID uuid.UUID) (*model.Vital, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var latest *model.Vital
	for _, v := range r.s.data.vitals {
		a, ok := r.s.data.appointments[v.AppointmentID]
		if !ok || a.PatientID != patientID {
			continue
		}
		if latest == nil || v.CreatedAt.After(latest.CreatedAt) {
			v := v
			latest = &v
		}
	}
	if latest == nil {
		return nil, apperrors.NotFound("vital", nil)
	}
	return latest, nil
}

type soapNoteRepo struct{ s *Store }

func (r soapNoteRepo) Create(ctx context.Context, n *model.SoapNote) error {
	defer r.s.lockWrite(ctx)()
	for _, existing := range r.s.data.notes {
		if existing.AppointmentID == n.AppointmentID && existing.CreatedByID == n.CreatedByID {
			return apperrors.Conflict("soap note already recorded for appointment", nil)
		}
	}
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	now := r.s.now()
	n.CreatedAt, n.UpdatedAt = now, now
	r.s.data.notes[n.ID] = *n
	return nil
}

func (r soapNoteRepo) Update(ctx context.Context, n *model.SoapNote) error {
	defer r.s.lockWrite(ctx)()
	if _, ok := r.s.data.notes[n.ID]; !ok {
		return apperrors.NotFound("soap note", nil)
	}
	n.UpdatedAt = r.s.now()
	r.s.data.notes[n.ID] = *n
	return nil
}

func (r soapNoteRepo) Get(ctx context.Context, id uuid.UUID) (*model.SoapNote, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	n, ok := r.s.data.notes[id]
	if !ok {
		return nil, apperrors.NotFound("soap note", nil)
	}
	return &n, nil
}

func (r soapNoteRepo) GetByAppointmentAndAuthor(ctx context.Context, appointmentID, authorID uuid.UUID) (*model.SoapNote, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, n := range r.s.data.notes {
		if n.AppointmentID == appointmentID && n.CreatedByID == authorID {
			return &n, nil
		}
	}
	return nil, apperrors.NotFound("soap note", nil)
}

func (r soapNoteRepo) ListByAppointment(ctx context.Context, appointmentID uuid.UUID) ([]*model.SoapNote, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []*model.SoapNote{}
	for _, n := range r.s.data.notes {
		if n.AppointmentID == appointmentID {
			n := n
			out = append(out, &n)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r soapNoteRepo) LatestForPatient(ctx context.Context, patientID uuid.UUID) (*model.SoapNote, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var latest *model.SoapNote
	for _, n := range r.s.data.notes {
		a, ok := r.s.data.appointments[n.AppointmentID]
		if !ok || a.PatientID != patientID {
			continue
		}
		if latest == nil || n.CreatedAt.After(latest.CreatedAt) {
			n := n
			latest = &n
		}
	}
	if latest == nil {
		return nil, apperrors.NotFound("soap note", nil)
	}
	return latest, nil
}

type patientRepo struct{ s *Store }

func (r patientRepo) Get(ctx context.Context, id uuid.UUID) (*model.Patient, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.data.patients[id]
	if !ok {
		return nil, apperrors.NotFound("patient", nil)
	}
	return &p, nil
}

type providerRepo struct{ s *Store }

func (r providerRepo) Get(ctx context.Context, id uuid.UUID) (*model.Provider, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.data.providers[id]
	if !ok {
		return nil, apperrors.NotFound("provider", nil)
	}
	return &p, nil
}

type tokenRepo struct{ s *Store }

func (r tokenRepo) GetByPatient(ctx context.Context, patientID uuid.UUID) (*model.CalendarToken, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t, ok := r.s.data.tokens[patientID]
	if !ok {
		return nil, apperrors.NotFound("calendar token", nil)
	}
	return &t, nil
}

func (r tokenRepo) Upsert(ctx context.Context, t *model.CalendarToken) error {
	defer r.s.lockWrite(ctx)()
	if existing, ok := r.s.data.tokens[t.PatientID]; ok && t.RefreshToken == "" {
		t.RefreshToken = existing.RefreshToken
	}
	t.UpdatedAt = r.s.now()
	r.s.data.tokens[t.PatientID] = *t
	return nil
}

type outboxRepo struct{ s *Store }

func (r outboxRepo) Create(ctx context.Context, e *model.OutboxEvent) error {
	defer r.s.lockWrite(ctx)()
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	now := r.s.now()
	e.CreatedAt, e.UpdatedAt = now, now
	e.Status = model.OutboxStatusPending
	r.s.data.outbox = append(r.s.data.outbox, *e)
	return nil
}

func (r outboxRepo) ClaimPending(ctx context.Context, limit int, lease time.Duration) ([]*model.OutboxEvent, error) {
	defer r.s.lockWrite(ctx)()
	now := r.s.now()
	out := []*model.OutboxEvent{}
	for i := range r.s.data.outbox {
		if len(out) >= limit {
			break
		}
		e := &r.s.data.outbox[i]
		due := (e.Status == model.OutboxStatusPending || e.Status == model.OutboxStatusRetry) &&
			(e.RetryAt == nil || !e.RetryAt.After(now))
		expired := e.Status == model.OutboxStatusProcessing && e.LockedUntil != nil && e.LockedUntil.Before(now)
		if !due && !expired {
			continue
		}
		until := now.Add(lease)
		e.Status = model.OutboxStatusProcessing
		e.LockedUntil = &until
		e.UpdatedAt = now
		claimed := *e
		out = append(out, &claimed)
	}
	return out, nil
}

func (r outboxRepo) find(id uuid.UUID) *model.OutboxEvent {
	for i := range r.s.data.outbox {
		if r.s.data.outbox[i].ID == id {
			return &r.s.data.outbox[i]
		}
	}
	return nil
}

func (r outboxRepo) MarkProcessed(ctx context.Context, id uuid.UUID) error {
	defer r.s.lockWrite(ctx)()
	e := r.find(id)
	if e == nil {
		return apperrors.NotFound("outbox event", nil)
	}
	now := r.s.now()
	e.Status = model.OutboxStatusProcessed
	e.ErrorMessage = nil
	e.LockedUntil = nil
	e.ProcessedAt = &now
	return nil
}

func (r outboxRepo) MarkRetry(ctx context.Context, id uuid.UUID, errorMessage string, retryAt time.Time) error {
	defer r.s.lockWrite(ctx)()
	e := r.find(id)
	if e == nil {
		return apperrors.NotFound("outbox event", nil)
	}
	e.Status = model.OutboxStatusRetry
	e.ErrorMessage = &errorMessage
	e.RetryAt = &retryAt
	e.RetryCount++
	e.LockedUntil = nil
	return nil
}

func (r outboxRepo) MoveToDeadLetter(ctx context.Context, event *model.OutboxEvent, errorMessage string) error {
	defer r.s.lockWrite(ctx)()
	e := r.find(event.ID)
	if e == nil {
		return apperrors.NotFound("outbox event", nil)
	}
	e.Status = model.OutboxStatusDead
	e.ErrorMessage = &errorMessage
	e.LockedUntil = nil
	r.s.data.deadLetters = append(r.s.data.deadLetters, *e)
	return nil
}

func (r outboxRepo) CountPending(ctx context.Context) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for _, e := range r.s.data.outbox {
		switch e.Status {
		case model.OutboxStatusPending, model.OutboxStatusRetry, model.OutboxStatusProcessing:
			n++
		}
	}
	return n, nil
}

func (r outboxRepo) DeleteProcessedBefore(ctx context.Context, before time.Time) (int64, error) {
	defer r.s.lockWrite(ctx)()
	kept := r.s.data.outbox[:0]
	var n int64
	for _, e := range r.s.data.outbox {
		if e.Status == model.OutboxStatusProcessed && e.ProcessedAt != nil && e.ProcessedAt.Before(before) {
			n++
			continue
		}
		kept = append(kept, e)
	}
	r.s.data.outbox = kept
	return n, nil
}
