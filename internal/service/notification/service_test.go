package notification

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/jwalitptl/clinic-api/internal/calendar"
	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/internal/repository/memory"
)

type sentMail struct {
	to, subject, body string
}

type fakeMailer struct {
	sent []sentMail
	err  error
}

func (m *fakeMailer) Send(ctx context.Context, to, subject, body string) error {
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, sentMail{to, subject, body})
	return nil
}

type fakeCalendar struct {
	events []calendar.Event
	tokens []*oauth2.Token
	issue  *oauth2.Token
	err    error
}

func (c *fakeCalendar) CreateEvent(ctx context.Context, token *oauth2.Token, event calendar.Event) (string, *oauth2.Token, error) {
	if c.err != nil {
		return "", nil, c.err
	}
	c.events = append(c.events, event)
	c.tokens = append(c.tokens, token)
	if c.issue != nil {
		return "evt", c.issue, nil
	}
	return "evt", token, nil
}

type fixture struct {
	store    *memory.Store
	mailer   *fakeMailer
	calendar *fakeCalendar
	svc      *Service
	patient  model.Patient
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		store:    memory.NewStore(),
		mailer:   &fakeMailer{},
		calendar: &fakeCalendar{},
		patient:  model.Patient{Base: model.Base{ID: uuid.New()}, FirstName: "Jane", LastName: "Doe", Email: "jane@example.com"},
	}
	f.store.AddPatient(f.patient)
	f.svc = NewService(f.store.Patients(), f.store.CalendarTokens(), f.mailer, f.calendar,
		Config{AppName: "Medivue", OriginURL: "https://app.example.com"}, nil)
	return f
}

func (f *fixture) event(t *testing.T, eventType string) *model.OutboxEvent {
	t.Helper()
	payload, err := json.Marshal(model.AppointmentScheduledPayload{
		AppointmentID: uuid.New(),
		PatientID:     f.patient.ID,
		ScheduledAt:   time.Date(2026, 11, 20, 14, 30, 0, 0, time.UTC),
		Time:          "14:30",
		Purposes:      model.Purposes{model.PurposeDentalCare, model.PurposeFamilyPlanning},
	})
	require.NoError(t, err)
	return &model.OutboxEvent{ID: uuid.New(), EventType: eventType, Payload: payload}
}

func isPermanent(err error) bool {
	var perm *backoff.PermanentError
	return errors.As(err, &perm)
}

func TestHandleEmail(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.svc.Handle(context.Background(), f.event(t, model.OutboxAppointmentScheduledEmail)))
	require.Len(t, f.mailer.sent, 1)
	assert.Equal(t, "jane@example.com", f.mailer.sent[0].to)
	assert.Equal(t, "Medivue: appointment scheduled", f.mailer.sent[0].subject)
	assert.Contains(t, f.mailer.sent[0].body, "Jane Doe")
	assert.Contains(t, f.mailer.sent[0].body, "dental care, family planning")
}

func TestHandleEmailFailureIsRetryable(t *testing.T) {
	f := newFixture(t)
	f.mailer.err = errors.New("smtp down")

	err := f.svc.Handle(context.Background(), f.event(t, model.OutboxAppointmentScheduledEmail))
	require.Error(t, err)
	assert.False(t, isPermanent(err))
}

func TestHandleCalendar(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.store.CalendarTokens().Upsert(ctx, &model.CalendarToken{
		PatientID:    f.patient.ID,
		AccessToken:  "access",
		RefreshToken: "refresh",
		TokenType:    "Bearer",
		Expiry:       time.Now().Add(time.Hour),
	}))

	require.NoError(t, f.svc.Handle(ctx, f.event(t, model.OutboxAppointmentScheduledCalendar)))
	require.Len(t, f.calendar.events, 1)

	evt := f.calendar.events[0]
	assert.Equal(t, "Medivue Medical Appointment Schedule", evt.Summary)
	assert.Equal(t, "Appointment is scheduled for dental care, family planning. \nVisit https://app.example.com/appointments for more details.", evt.Description)
	assert.Equal(t, 30*time.Minute, evt.End.Sub(evt.Start))
	assert.Equal(t, "refresh", f.calendar.tokens[0].RefreshToken)
}

func TestHandleCalendarStoresRefreshedToken(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.store.CalendarTokens().Upsert(ctx, &model.CalendarToken{
		PatientID:    f.patient.ID,
		AccessToken:  "old",
		RefreshToken: "refresh",
		Expiry:       time.Now().Add(-time.Minute),
	}))
	f.calendar.issue = &oauth2.Token{AccessToken: "new", TokenType: "Bearer", Expiry: time.Now().Add(time.Hour)}

	require.NoError(t, f.svc.Handle(ctx, f.event(t, model.OutboxAppointmentScheduledCalendar)))

	stored, err := f.store.CalendarTokens().GetByPatient(ctx, f.patient.ID)
	require.NoError(t, err)
	assert.Equal(t, "new", stored.AccessToken)
	assert.Equal(t, "refresh", stored.RefreshToken)
}

func TestHandleCalendarWithoutToken(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.svc.Handle(context.Background(), f.event(t, model.OutboxAppointmentScheduledCalendar)))
	assert.Empty(t, f.calendar.events)
}

func TestHandlePermanentFailures(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	err := f.svc.Handle(ctx, &model.OutboxEvent{EventType: "appointment.deleted", Payload: []byte(`{}`)})
	assert.True(t, isPermanent(err))

	err = f.svc.Handle(ctx, &model.OutboxEvent{EventType: model.OutboxAppointmentScheduledEmail, Payload: []byte(`{`)})
	assert.True(t, isPermanent(err))

	evt := f.event(t, model.OutboxAppointmentScheduledEmail)
	evt.Payload = []byte(`{"patient_id":"` + uuid.NewString() + `"}`)
	err = f.svc.Handle(ctx, evt)
	assert.True(t, isPermanent(err))
}
