package dashboard

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/internal/repository"
	apperrors "github.com/jwalitptl/clinic-api/pkg/errors"
)

const activePatientWindow = 30 * 24 * time.Hour

type Config struct {
	// Location decides where "today" starts and ends.
	Location *time.Location
	// CacheTTL of zero or less disables caching.
	CacheTTL        time.Duration
	CleanupInterval time.Duration
}

type Service struct {
	appointments repository.AppointmentRepository
	events       repository.EventRepository
	vitals       repository.VitalRepository
	notes        repository.SoapNoteRepository
	cache        *cache.Cache
	loc          *time.Location
	now          func() time.Time
}

func NewService(
	appointments repository.AppointmentRepository,
	events repository.EventRepository,
	vitals repository.VitalRepository,
	notes repository.SoapNoteRepository,
	cfg Config,
) *Service {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = 10 * time.Minute
	}
	s := &Service{
		appointments: appointments,
		events:       events,
		vitals:       vitals,
		notes:        notes,
		loc:          cfg.Location,
		now:          time.Now,
	}
	// go-cache reads a zero default expiration as "never expire".
	if cfg.CacheTTL > 0 {
		s.cache = cache.New(cfg.CacheTTL, cfg.CleanupInterval)
	}
	return s
}

func (s *Service) cached(key string) (interface{}, bool) {
	if s.cache == nil {
		return nil, false
	}
	return s.cache.Get(key)
}

func (s *Service) store(key string, v interface{}) {
	if s.cache != nil {
		s.cache.SetDefault(key, v)
	}
}

// NoShowRate returns the share of checked-in appointments that were marked
// no-show, as a percentage with two decimals. No check-ins yields 0.
func NoShowRate(noShow, checkedIn int) float64 {
	if checkedIn == 0 {
		return 0
	}
	rate := float64(noShow) / float64(checkedIn) * 100
	return math.Round(rate*100) / 100
}

// DayBounds returns the [start, end) interval of the calendar day containing t in loc.
func DayBounds(t time.Time, loc *time.Location) (time.Time, time.Time) {
	local := t.In(loc)
	start := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	return start, start.AddDate(0, 0, 1)
}

// Get returns the dashboard for the actor's kind of account.
func (s *Service) Get(ctx context.Context, actor model.Actor) (interface{}, error) {
	if actor.IsProvider() {
		return s.Provider(ctx, actor)
	}
	if actor.IsPatient() {
		return s.Patient(ctx, actor)
	}
	return nil, apperrors.Forbidden("unknown account type")
}

func (s *Service) Provider(ctx context.Context, actor model.Actor) (*model.ProviderDashboard, error) {
	if !actor.IsProvider() {
		return nil, apperrors.Forbidden("provider dashboard is for providers only")
	}
	if cached, ok := s.cached("provider"); ok {
		d := *cached.(*model.ProviderDashboard)
		d.TodayAppointments = append(d.TodayAppointments[:0:0], d.TodayAppointments...)
		return &d, nil
	}

	now := s.now()
	start, end := DayBounds(now, s.loc)
	today, err := s.appointments.ListScheduledBetween(ctx, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to list today's appointments: %w", err)
	}
	active, err := s.appointments.CountActivePatientsSince(ctx, now.Add(-activePatientWindow))
	if err != nil {
		return nil, fmt.Errorf("failed to count active patients: %w", err)
	}
	noShow, err := s.events.CountAppointmentsWithStatus(ctx, model.AppointmentStatusNoShow)
	if err != nil {
		return nil, fmt.Errorf("failed to count no-shows: %w", err)
	}
	checkedIn, err := s.events.CountAppointmentsWithStatus(ctx, model.AppointmentStatusCheckedIn)
	if err != nil {
		return nil, fmt.Errorf("failed to count check-ins: %w", err)
	}

	d := &model.ProviderDashboard{
		TodayAppointments:              today,
		TotalActivePatientsInLastMonth: active,
		NoShowRate:                     NoShowRate(noShow, checkedIn),
	}
	cp := *d
	s.store("provider", &cp)
	return d, nil
}

func (s *Service) Patient(ctx context.Context, actor model.Actor) (*model.PatientDashboard, error) {
	if !actor.IsPatient() {
		return nil, apperrors.Forbidden("patient dashboard is for patients only")
	}
	key := "patient:" + actor.ID.String()
	if cached, ok := s.cached(key); ok {
		d := *cached.(*model.PatientDashboard)
		d.UpcomingAppointments = append(d.UpcomingAppointments[:0:0], d.UpcomingAppointments...)
		return &d, nil
	}

	upcoming, err := s.appointments.ListUpcomingForPatient(ctx, actor.ID, s.now())
	if err != nil {
		return nil, fmt.Errorf("failed to list upcoming appointments: %w", err)
	}
	d := &model.PatientDashboard{UpcomingAppointments: upcoming}
	if len(upcoming) > 0 {
		d.NextAppointment = upcoming[0]
	}

	vital, err := s.vitals.LatestForPatient(ctx, actor.ID)
	switch {
	case err == nil:
		d.LastVital = vital
	case !apperrors.IsNotFound(err):
		return nil, fmt.Errorf("failed to load latest vital: %w", err)
	}
	note, err := s.notes.LatestForPatient(ctx, actor.ID)
	switch {
	case err == nil:
		d.LastSoapNote = note
	case !apperrors.IsNotFound(err):
		return nil, fmt.Errorf("failed to load latest soap note: %w", err)
	}

	cp := *d
	s.store(key, &cp)
	return d, nil
}
