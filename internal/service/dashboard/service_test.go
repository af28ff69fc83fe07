package dashboard

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/internal/repository/memory"
	apperrors "github.com/jwalitptl/clinic-api/pkg/errors"
)

func TestNoShowRate(t *testing.T) {
	assert.Equal(t, 0.0, NoShowRate(0, 0))
	assert.Equal(t, 0.0, NoShowRate(5, 0))
	assert.Equal(t, 50.0, NoShowRate(1, 2))
	assert.Equal(t, 33.33, NoShowRate(1, 3))
	assert.Equal(t, 66.67, NoShowRate(2, 3))
}

func TestDayBounds(t *testing.T) {
	loc := time.FixedZone("EAT", 3*60*60)
	start, end := DayBounds(time.Date(2026, 10, 14, 22, 30, 0, 0, time.UTC), loc)

	assert.Equal(t, time.Date(2026, 10, 15, 0, 0, 0, 0, loc), start)
	assert.Equal(t, time.Date(2026, 10, 16, 0, 0, 0, 0, loc), end)
}

func newService(store *memory.Store, now time.Time) *Service {
	svc := NewService(store.Appointments(), store.Events(), store.Vitals(), store.SoapNotes(), Config{CacheTTL: time.Minute})
	svc.now = func() time.Time { return now }
	return svc
}

func TestProviderDashboard(t *testing.T) {
	now := time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)
	store := memory.NewStore()
	store.SetClock(func() time.Time { return now })
	ctx := context.Background()

	p := model.Patient{Base: model.Base{ID: uuid.New()}, FirstName: "Amina", LastName: "Okafor"}
	store.AddPatient(p)

	put := func(at time.Time) uuid.UUID {
		id := uuid.New()
		store.PutAppointment(model.Appointment{
			Base:      model.Base{ID: id, UpdatedAt: now},
			PatientID: p.ID,
			Schedule:  model.Schedule{Date: at},
			Status:    model.AppointmentStatusScheduled,
		})
		return id
	}
	first := put(time.Date(2026, 10, 15, 0, 0, 0, 0, time.UTC))
	put(time.Date(2026, 10, 15, 16, 0, 0, 0, time.UTC))
	put(time.Date(2026, 10, 16, 0, 0, 0, 0, time.UTC))
	put(time.Date(2026, 10, 14, 23, 59, 0, 0, time.UTC))

	status := func(id uuid.UUID, s model.AppointmentStatus) {
		require.NoError(t, store.Events().Create(ctx, &model.Event{Type: model.EventAppointmentStatusChanged, AppointmentID: id, Status: &s}))
	}
	lastWeek := time.Date(2026, 10, 8, 9, 0, 0, 0, time.UTC)
	status(first, model.AppointmentStatusCheckedIn)
	status(first, model.AppointmentStatusCheckedIn)
	status(put(lastWeek), model.AppointmentStatusCheckedIn)
	status(put(lastWeek), model.AppointmentStatusCheckedIn)
	status(put(lastWeek), model.AppointmentStatusNoShow)
	// events of a deleted appointment do not count
	status(uuid.New(), model.AppointmentStatusNoShow)

	svc := newService(store, now)
	provider := model.Actor{ID: uuid.New(), Type: model.ActorTypeProvider, Role: model.ProviderRoleDoctor}
	d, err := svc.Provider(ctx, provider)
	require.NoError(t, err)

	require.Len(t, d.TodayAppointments, 2)
	assert.Equal(t, first, d.TodayAppointments[0].ID)
	assert.Equal(t, "Amina", d.TodayAppointments[0].PatientFirstName)
	assert.Equal(t, 1, d.TotalActivePatientsInLastMonth)
	assert.Equal(t, 33.33, d.NoShowRate)
	assert.Equal(t, 0.0, d.WaitTimeRate)

	_, err = svc.Provider(ctx, model.Actor{ID: uuid.New(), Type: model.ActorTypePatient})
	assert.Equal(t, apperrors.ErrForbidden, apperrors.CodeOf(err))
}

func TestProviderDashboardWithoutCheckIns(t *testing.T) {
	store := memory.NewStore()
	svc := newService(store, time.Now())

	d, err := svc.Provider(context.Background(), model.Actor{ID: uuid.New(), Type: model.ActorTypeProvider, Role: model.ProviderRoleAdmin})
	require.NoError(t, err)
	assert.Equal(t, 0.0, d.NoShowRate)
	assert.Empty(t, d.TodayAppointments)
}

func TestPatientDashboard(t *testing.T) {
	now := time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)
	store := memory.NewStore()
	ctx := context.Background()
	patient := model.Actor{ID: uuid.New(), Type: model.ActorTypePatient}

	svc := newService(store, now)
	empty, err := svc.Patient(ctx, model.Actor{ID: uuid.New(), Type: model.ActorTypePatient})
	require.NoError(t, err)
	assert.Nil(t, empty.NextAppointment)
	assert.Nil(t, empty.LastVital)
	assert.Nil(t, empty.LastSoapNote)

	past := uuid.New()
	store.PutAppointment(model.Appointment{Base: model.Base{ID: past}, PatientID: patient.ID, Schedule: model.Schedule{Date: now.Add(-48 * time.Hour)}, Status: model.AppointmentStatusCompleted})
	soon := uuid.New()
	store.PutAppointment(model.Appointment{Base: model.Base{ID: soon}, PatientID: patient.ID, Schedule: model.Schedule{Date: now.Add(24 * time.Hour)}, Status: model.AppointmentStatusScheduled})
	later := uuid.New()
	store.PutAppointment(model.Appointment{Base: model.Base{ID: later}, PatientID: patient.ID, Schedule: model.Schedule{Date: now.Add(72 * time.Hour)}, Status: model.AppointmentStatusSubmitted})
	require.NoError(t, store.Vitals().Create(ctx, &model.Vital{AppointmentID: past, Temperature: "37.0"}))

	d, err := svc.Patient(ctx, patient)
	require.NoError(t, err)
	require.NotNil(t, d.NextAppointment)
	assert.Equal(t, soon, d.NextAppointment.ID)
	assert.Len(t, d.UpcomingAppointments, 2)
	require.NotNil(t, d.LastVital)
	assert.Equal(t, "37.0", d.LastVital.Temperature)
	assert.Nil(t, d.LastSoapNote)

	store.PutAppointment(model.Appointment{Base: model.Base{ID: uuid.New()}, PatientID: patient.ID, Schedule: model.Schedule{Date: now.Add(time.Hour)}, Status: model.AppointmentStatusScheduled})
	cached, err := svc.Patient(ctx, patient)
	require.NoError(t, err)
	assert.Same(t, d, cached)
}

func TestProviderDashboardWithoutCacheIsLive(t *testing.T) {
	store := memory.NewStore()
	ctx := context.Background()
	svc := NewService(store.Appointments(), store.Events(), store.Vitals(), store.SoapNotes(), Config{})
	provider := model.Actor{ID: uuid.New(), Type: model.ActorTypeProvider, Role: model.ProviderRoleAdmin}

	before, err := svc.Provider(ctx, provider)
	require.NoError(t, err)
	assert.Equal(t, 0.0, before.NoShowRate)

	id := uuid.New()
	store.PutAppointment(model.Appointment{
		Base:      model.Base{ID: id},
		PatientID: uuid.New(),
		Schedule:  model.Schedule{Date: time.Now().Add(-time.Hour)},
		Status:    model.AppointmentStatusNoShow,
	})
	for _, st := range []model.AppointmentStatus{model.AppointmentStatusCheckedIn, model.AppointmentStatusNoShow} {
		st := st
		require.NoError(t, store.Events().Create(ctx, &model.Event{Type: model.EventAppointmentStatusChanged, AppointmentID: id, Status: &st}))
	}

	after, err := svc.Provider(ctx, provider)
	require.NoError(t, err)
	assert.Equal(t, 100.0, after.NoShowRate)
}

func TestCachedDashboardIsACopy(t *testing.T) {
	store := memory.NewStore()
	ctx := context.Background()
	svc := newService(store, time.Now())
	provider := model.Actor{ID: uuid.New(), Type: model.ActorTypeProvider, Role: model.ProviderRoleAdmin}

	first, err := svc.Provider(ctx, provider)
	require.NoError(t, err)
	first.NoShowRate = 42

	second, err := svc.Provider(ctx, provider)
	require.NoError(t, err)
	assert.Equal(t, 0.0, second.NoShowRate)
	assert.NotSame(t, first, second)
}
