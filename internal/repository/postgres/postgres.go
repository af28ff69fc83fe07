package postgres

import (
	"errors"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/jwalitptl/clinic-api/internal/repository"
	"github.com/jwalitptl/clinic-api/pkg/security"
)

const uniqueViolation = "23505"

type appointmentRepository struct {
	BaseRepository
}

type eventRepository struct {
	BaseRepository
}

type vitalRepository struct {
	BaseRepository
}

type soapNoteRepository struct {
	BaseRepository
}

type patientRepository struct {
	BaseRepository
}

type providerRepository struct {
	BaseRepository
}

type calendarTokenRepository struct {
	BaseRepository
	enc security.Encryptor
}

type outboxRepository struct {
	BaseRepository
}

func NewAppointmentRepository(db *sqlx.DB) repository.AppointmentRepository {
	return &appointmentRepository{NewBaseRepository(db)}
}

func NewEventRepository(db *sqlx.DB) repository.EventRepository {
	return &eventRepository{NewBaseRepository(db)}
}

func NewVitalRepository(db *sqlx.DB) repository.VitalRepository {
	return &vitalRepository{NewBaseRepository(db)}
}

func NewSoapNoteRepository(db *sqlx.DB) repository.SoapNoteRepository {
	return &soapNoteRepository{NewBaseRepository(db)}
}

func NewPatientRepository(db *sqlx.DB) repository.PatientRepository {
	return &patientRepository{NewBaseRepository(db)}
}

func NewProviderRepository(db *sqlx.DB) repository.ProviderRepository {
	return &providerRepository{NewBaseRepository(db)}
}

// NewCalendarTokenRepository stores OAuth tokens sealed with enc. A nil enc
// stores them as given.
func NewCalendarTokenRepository(db *sqlx.DB, enc security.Encryptor) repository.CalendarTokenRepository {
	return &calendarTokenRepository{BaseRepository: NewBaseRepository(db), enc: enc}
}

func NewOutboxRepository(db *sqlx.DB) repository.OutboxRepository {
	return &outboxRepository{NewBaseRepository(db)}
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}
