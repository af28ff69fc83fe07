package vital

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/internal/repository"
	"github.com/jwalitptl/clinic-api/internal/service/event"
	apperrors "github.com/jwalitptl/clinic-api/pkg/errors"
	"github.com/jwalitptl/clinic-api/pkg/logger"
)

type Service struct {
	tx           repository.Transactor
	appointments repository.AppointmentRepository
	vitals       repository.VitalRepository
	events       event.Recorder
	logger       *logger.Logger
}

func NewService(tx repository.Transactor, appointments repository.AppointmentRepository, vitals repository.VitalRepository, events event.Recorder, log *logger.Logger) *Service {
	if log == nil {
		log = logger.Nop()
	}
	return &Service{
		tx:           tx,
		appointments: appointments,
		vitals:       vitals,
		events:       events,
		logger:       log,
	}
}

// Record stores the measurements for an appointment, replacing any earlier
// reading. The returned flag is true when a new record was created.
func (s *Service) Record(ctx context.Context, actor model.Actor, req model.VitalRequest) (*model.Vital, bool, error) {
	if !actor.IsProvider() {
		return nil, false, apperrors.Forbidden("only providers can record vitals")
	}

	var (
		vital   *model.Vital
		created bool
	)
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		appt, err := s.appointments.Get(ctx, req.AppointmentID)
		if err != nil {
			return err
		}
		if appt.Status == model.AppointmentStatusCancelled {
			return apperrors.Validationf("appointment already cancelled")
		}

		vital, err = s.vitals.GetByAppointment(ctx, req.AppointmentID)
		switch {
		case apperrors.IsNotFound(err):
			vital = &model.Vital{
				Base:          model.Base{ID: uuid.New()},
				AppointmentID: req.AppointmentID,
				CreatedByID:   actor.ID,
			}
			req.VitalMeasurements.Apply(vital)
			if err := s.vitals.Create(ctx, vital); err != nil {
				return err
			}
			created = true
		case err != nil:
			return err
		default:
			req.VitalMeasurements.Apply(vital)
			if err := s.vitals.Update(ctx, vital); err != nil {
				return err
			}
		}

		eventType := model.EventVitalsUpdated
		if created {
			eventType = model.EventVitalsRecorded
		}
		return s.events.Record(ctx, &model.Event{
			Type:          eventType,
			AppointmentID: req.AppointmentID,
			VitalID:       &vital.ID,
			CreatedByID:   actor.ID,
		})
	})
	if err != nil {
		return nil, false, fmt.Errorf("failed to record vitals: %w", err)
	}

	s.logger.Info("vitals recorded", "appointment_id", req.AppointmentID, "vital_id", vital.ID, "created", created)
	return vital, created, nil
}

// GetByAppointment returns the vitals of an appointment to front-desk staff,
// to providers assigned to it and to the patient who owns it.
func (s *Service) GetByAppointment(ctx context.Context, actor model.Actor, appointmentID uuid.UUID) (*model.Vital, error) {
	appt, err := s.appointments.Get(ctx, appointmentID)
	if err != nil {
		return nil, err
	}

	switch {
	case actor.IsPatient():
		if appt.PatientID != actor.ID {
			return nil, apperrors.NotFound("appointment", nil)
		}
	case !actor.IsPrivileged():
		assigned, err := s.appointments.HasProvider(ctx, appointmentID, actor.ID)
		if err != nil {
			return nil, err
		}
		if !assigned {
			return nil, apperrors.Forbidden("you are not assigned to this appointment")
		}
	}
	return s.vitals.GetByAppointment(ctx, appointmentID)
}

func (s *Service) Get(ctx context.Context, actor model.Actor, id uuid.UUID) (*model.Vital, error) {
	if !actor.HasRole(model.ProviderRoleAdmin, model.ProviderRoleReceptionist, model.ProviderRoleNurse) {
		return nil, apperrors.Forbidden("you are not allowed to view vitals")
	}
	return s.vitals.Get(ctx, id)
}
