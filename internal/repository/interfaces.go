package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/clinic-api/internal/model"
)

// All repository interfaces in one file
type (
	// Transactor runs fn in a single database transaction. Repository calls
	// made with the ctx handed to fn join that transaction.
	Transactor interface {
		WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
	}

	AppointmentRepository interface {
		Create(ctx context.Context, appointment *model.Appointment) error
		Get(ctx context.Context, id uuid.UUID) (*model.Appointment, error)
		// Update writes appointment if its version still matches the stored
		// row and bumps the version. A stale version is a conflict.
		Update(ctx context.Context, appointment *model.Appointment) error
		Delete(ctx context.Context, id uuid.UUID, version int) error
		List(ctx context.Context, filter model.AppointmentFilter) ([]*model.Appointment, int, error)

		AddProvider(ctx context.Context, link *model.AppointmentProvider) error
		HasProvider(ctx context.Context, appointmentID, providerID uuid.UUID) (bool, error)
		ListProviderIDs(ctx context.Context, appointmentID uuid.UUID) ([]uuid.UUID, error)

		ListScheduledBetween(ctx context.Context, from, to time.Time) ([]*model.AppointmentSummary, error)
		ListUpcomingForPatient(ctx context.Context, patientID uuid.UUID, from time.Time) ([]*model.Appointment, error)
		CountActivePatientsSince(ctx context.Context, since time.Time) (int, error)
	}

	EventRepository interface {
		Create(ctx context.Context, event *model.Event) error
		ListByAppointment(ctx context.Context, appointmentID uuid.UUID) ([]*model.Event, error)
		// CountAppointmentsWithStatus counts appointments that have ever
		// been moved into status.
		CountAppointmentsWithStatus(ctx context.Context, status model.AppointmentStatus) (int, error)
	}

	VitalRepository interface {
		Create(ctx context.Context, vital *model.Vital) error
		Update(ctx context.Context, vital *model.Vital) error
		Get(ctx context.Context, id uuid.UUID) (*model.Vital, error)
		GetByAppointment(ctx context.Context, appointmentID uuid.UUID) (*model.Vital, error)
		LatestForPatient(ctx context.Context, patientID uuid.UUID) (*model.Vital, error)
	}

	SoapNoteRepository interface {
		Create(ctx context.Context, note *model.SoapNote) error
		Update(ctx context.Context, note *model.SoapNote) error
		Get(ctx context.Context, id uuid.UUID) (*model.SoapNote, error)
		GetByAppointmentAndAuthor(ctx context.Context, appointmentID, authorID uuid.UUID) (*model.SoapNote, error)
		ListByAppointment(ctx context.Context, appointmentID uuid.UUID) ([]*model.SoapNote, error)
		LatestForPatient(ctx context.Context, patientID uuid.UUID) (*model.SoapNote, error)
	}

	PatientRepository interface {
		Get(ctx context.Context, id uuid.UUID) (*model.Patient, error)
	}

	ProviderRepository interface {
		Get(ctx context.Context, id uuid.UUID) (*model.Provider, error)
	}

	CalendarTokenRepository interface {
		GetByPatient(ctx context.Context, patientID uuid.UUID) (*model.CalendarToken, error)
		Upsert(ctx context.Context, token *model.CalendarToken) error
	}

	OutboxRepository interface {
		Create(ctx context.Context, event *model.OutboxEvent) error
		// ClaimPending leases up to limit due events to the caller. A lease
		// that expires without a status change makes the event claimable again.
		ClaimPending(ctx context.Context, limit int, lease time.Duration) ([]*model.OutboxEvent, error)
		MarkProcessed(ctx context.Context, id uuid.UUID) error
		MarkRetry(ctx context.Context, id uuid.UUID, errorMessage string, retryAt time.Time) error
		MoveToDeadLetter(ctx context.Context, event *model.OutboxEvent, errorMessage string) error
		CountPending(ctx context.Context) (int64, error)
		DeleteProcessedBefore(ctx context.Context, before time.Time) (int64, error)
	}
)
