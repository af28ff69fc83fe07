package appointment

import (
	"context"
	"fmt"
	"strings"
	"time"

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
	patients     repository.PatientRepository
	providers    repository.ProviderRepository
	events       event.Recorder
	logger       *logger.Logger
}

func NewService(
	tx repository.Transactor,
	appointments repository.AppointmentRepository,
	patients repository.PatientRepository,
	providers repository.ProviderRepository,
	events event.Recorder,
	log *logger.Logger,
) *Service {
	if log == nil {
		log = logger.Nop()
	}
	return &Service{
		tx:           tx,
		appointments: appointments,
		patients:     patients,
		providers:    providers,
		events:       events,
		logger:       log,
	}
}

// validateRequest checks the booking details and returns the instant the
// schedule resolves to.
func validateRequest(req *model.AppointmentRequest) (time.Time, error) {
	if len(req.Purposes) == 0 {
		return time.Time{}, apperrors.Validationf("at least one purpose is required")
	}
	for _, p := range req.Purposes {
		if !p.Valid() {
			return time.Time{}, apperrors.Validationf("invalid purpose %q", p)
		}
	}
	if model.Purposes(req.Purposes).Contains(model.PurposeOthers) {
		if req.OtherPurpose == nil || strings.TrimSpace(*req.OtherPurpose) == "" {
			return time.Time{}, apperrors.Validationf("other_purpose is required when purposes include OTHERS")
		}
	} else {
		req.OtherPurpose = nil
	}
	return resolveSchedule(req.Schedule)
}

func resolveSchedule(req model.ScheduleRequest) (time.Time, error) {
	if req.Date.IsZero() {
		return time.Time{}, apperrors.Validationf("schedule date is required")
	}
	at, err := req.Resolve()
	if err != nil {
		return time.Time{}, apperrors.Validationf("invalid time")
	}
	return at, nil
}

func applyRequest(a *model.Appointment, req *model.AppointmentRequest, at time.Time) {
	a.Schedule.Date = at
	a.Schedule.Time = req.Schedule.Time
	a.Purposes = model.Purposes(req.Purposes)
	a.OtherPurpose = req.OtherPurpose
	a.HasInsurance = req.HasInsurance
}

func scheduledPayload(a *model.Appointment, providerID *uuid.UUID) model.AppointmentScheduledPayload {
	return model.AppointmentScheduledPayload{
		AppointmentID: a.ID,
		PatientID:     a.PatientID,
		ProviderID:    providerID,
		ScheduledAt:   a.Schedule.Date,
		Time:          a.Schedule.Time,
		Purposes:      a.Purposes,
	}
}

// notifyScheduled queues the scheduling email and, when requested, the
// calendar entry. It must run inside the transaction that scheduled a.
func (s *Service) notifyScheduled(ctx context.Context, a *model.Appointment, providerID *uuid.UUID, calendar bool) error {
	payload := scheduledPayload(a, providerID)
	if err := s.events.Emit(ctx, model.OutboxAppointmentScheduledEmail, payload); err != nil {
		return err
	}
	if calendar {
		return s.events.Emit(ctx, model.OutboxAppointmentScheduledCalendar, payload)
	}
	return nil
}

func (s *Service) CreateForPatient(ctx context.Context, actor model.Actor, req model.AppointmentRequest) (*model.Appointment, error) {
	if !actor.IsPatient() {
		return nil, apperrors.Forbidden("only patients can request appointments")
	}
	at, err := validateRequest(&req)
	if err != nil {
		return nil, err
	}

	appt := &model.Appointment{
		Base:      model.Base{ID: uuid.New()},
		PatientID: actor.ID,
		Status:    model.AppointmentStatusSubmitted,
	}
	applyRequest(appt, &req, at)

	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.appointments.Create(ctx, appt); err != nil {
			return err
		}
		return s.events.StatusChanged(ctx, appt.ID, appt.Status, actor.ID)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create appointment: %w", err)
	}

	s.logger.Info("appointment submitted", "appointment_id", appt.ID, "patient_id", appt.PatientID)
	return appt, nil
}

func (s *Service) CreateForProvider(ctx context.Context, actor model.Actor, req model.ProviderAppointmentRequest) (*model.Appointment, error) {
	if !actor.IsPrivileged() {
		return nil, apperrors.Forbidden("only admin or receptionist can book appointments for patients")
	}
	at, err := validateRequest(&req.AppointmentRequest)
	if err != nil {
		return nil, err
	}
	if _, err := s.patients.Get(ctx, req.PatientID); err != nil {
		return nil, err
	}

	appt := &model.Appointment{
		Base:      model.Base{ID: uuid.New()},
		PatientID: req.PatientID,
		Status:    model.AppointmentStatusScheduled,
	}
	applyRequest(appt, &req.AppointmentRequest, at)

	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.appointments.Create(ctx, appt); err != nil {
			return err
		}
		if err := s.events.StatusChanged(ctx, appt.ID, appt.Status, actor.ID); err != nil {
			return err
		}
		return s.notifyScheduled(ctx, appt, nil, false)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create appointment: %w", err)
	}

	s.logger.Info("appointment scheduled", "appointment_id", appt.ID, "patient_id", appt.PatientID, "actor_id", actor.ID)
	return appt, nil
}

// load fetches an appointment the actor is allowed to see. Patients get a not
// found error for appointments that belong to someone else.
func (s *Service) load(ctx context.Context, actor model.Actor, id uuid.UUID) (*model.Appointment, error) {
	appt, err := s.appointments.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if actor.IsPatient() && appt.PatientID != actor.ID {
		return nil, apperrors.NotFound("appointment", nil)
	}
	return appt, nil
}

func (s *Service) Get(ctx context.Context, actor model.Actor, id uuid.UUID) (*model.Appointment, error) {
	appt, err := s.load(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	providerIDs, err := s.appointments.ListProviderIDs(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to list providers: %w", err)
	}
	appt.ProviderIDs = providerIDs
	return appt, nil
}

func (s *Service) List(ctx context.Context, actor model.Actor, filter model.AppointmentFilter) ([]*model.Appointment, int, error) {
	if actor.IsPatient() {
		id := actor.ID
		filter.PatientID = &id
	}
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, 0, apperrors.Validationf("invalid status %q", filter.Status)
	}
	filter.Pagination = filter.Pagination.Normalize()
	return s.appointments.List(ctx, filter)
}

func (s *Service) UpdateByPatient(ctx context.Context, actor model.Actor, id uuid.UUID, req model.AppointmentRequest) (*model.Appointment, error) {
	if !actor.IsPatient() {
		return nil, apperrors.Forbidden("only patients can update their requests")
	}
	appt, err := s.load(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if err := CanPatientUpdate(appt.Status); err != nil {
		return nil, err
	}
	at, err := validateRequest(&req)
	if err != nil {
		return nil, err
	}

	applyRequest(appt, &req, at)
	if err := s.appointments.Update(ctx, appt); err != nil {
		return nil, err
	}
	return appt, nil
}

func (s *Service) UpdateByProvider(ctx context.Context, actor model.Actor, id uuid.UUID, req model.AppointmentRequest) (*model.Appointment, error) {
	if !actor.IsPrivileged() {
		return nil, apperrors.Forbidden("only admin or receptionist can edit appointments")
	}
	appt, err := s.load(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if err := CanEdit(appt.Status); err != nil {
		return nil, err
	}
	at, err := validateRequest(&req)
	if err != nil {
		return nil, err
	}

	applyRequest(appt, &req, at)
	if err := s.appointments.Update(ctx, appt); err != nil {
		return nil, err
	}
	return appt, nil
}

// UpdateStatus moves an appointment through the status table. Reaching
// SCHEDULED queues the patient email and calendar entry.
func (s *Service) UpdateStatus(ctx context.Context, actor model.Actor, id uuid.UUID, next model.AppointmentStatus) (*model.Appointment, error) {
	var appt *model.Appointment
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		if appt, err = s.load(ctx, actor, id); err != nil {
			return err
		}
		if err := CanTransition(actor, appt.Status, next); err != nil {
			return err
		}

		appt.Status = next
		if err := s.appointments.Update(ctx, appt); err != nil {
			return err
		}
		if err := s.events.StatusChanged(ctx, appt.ID, next, actor.ID); err != nil {
			return err
		}
		if next == model.AppointmentStatusScheduled {
			return s.notifyScheduled(ctx, appt, nil, true)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("appointment status changed", "appointment_id", id, "status", next, "actor_id", actor.ID)
	return appt, nil
}

// Reschedule books a new slot for an appointment the clinic already
// scheduled. Every reschedule bumps the change count.
func (s *Service) Reschedule(ctx context.Context, actor model.Actor, id uuid.UUID, req model.RescheduleRequest) (*model.Appointment, error) {
	if !actor.IsPatient() {
		return nil, apperrors.Forbidden("only patients can reschedule appointments")
	}
	at, err := resolveSchedule(req.Schedule)
	if err != nil {
		return nil, err
	}

	var appt *model.Appointment
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		if appt, err = s.load(ctx, actor, id); err != nil {
			return err
		}
		if err := CanReschedule(appt.Status); err != nil {
			return err
		}

		appt.Schedule.Date = at
		appt.Schedule.Time = req.Schedule.Time
		appt.Schedule.ChangeCount++
		appt.Status = model.AppointmentStatusRescheduled
		if err := s.appointments.Update(ctx, appt); err != nil {
			return err
		}
		return s.events.StatusChanged(ctx, appt.ID, appt.Status, actor.ID)
	})
	if err != nil {
		return nil, err
	}
	return appt, nil
}

func (s *Service) Cancel(ctx context.Context, actor model.Actor, id uuid.UUID) (*model.Appointment, error) {
	var appt *model.Appointment
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		if appt, err = s.load(ctx, actor, id); err != nil {
			return err
		}
		if err := CanCancel(actor, appt.Status); err != nil {
			return err
		}

		appt.Status = model.AppointmentStatusCancelled
		if err := s.appointments.Update(ctx, appt); err != nil {
			return err
		}
		return s.events.StatusChanged(ctx, appt.ID, appt.Status, actor.ID)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("appointment cancelled", "appointment_id", id, "actor_id", actor.ID)
	return appt, nil
}

// AssignProvider links a provider to an appointment. The first assignment of
// a submitted appointment schedules it. Assigning the same provider twice is
// rejected and leaves the appointment untouched.
func (s *Service) AssignProvider(ctx context.Context, actor model.Actor, id, providerID uuid.UUID) (*model.Appointment, error) {
	if !actor.IsPrivileged() {
		return nil, apperrors.Forbidden("only admin or receptionist can assign providers")
	}
	if _, err := s.providers.Get(ctx, providerID); err != nil {
		return nil, err
	}

	var appt *model.Appointment
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		if appt, err = s.load(ctx, actor, id); err != nil {
			return err
		}
		if err := CanAssign(appt.Status); err != nil {
			return err
		}

		assigned, err := s.appointments.HasProvider(ctx, id, providerID)
		if err != nil {
			return err
		}
		if assigned {
			return apperrors.Validationf("provider already assigned")
		}
		if err := s.appointments.AddProvider(ctx, &model.AppointmentProvider{
			AppointmentID: id,
			ProviderID:    providerID,
		}); err != nil {
			return err
		}
		if err := s.events.Record(ctx, &model.Event{
			Type:          model.EventProviderAssigned,
			AppointmentID: id,
			ProviderID:    &providerID,
			CreatedByID:   actor.ID,
		}); err != nil {
			return err
		}

		transitioned := false
		if appt.Status == model.AppointmentStatusSubmitted {
			appt.Status = model.AppointmentStatusScheduled
			if err := s.appointments.Update(ctx, appt); err != nil {
				return err
			}
			if err := s.events.StatusChanged(ctx, id, appt.Status, actor.ID); err != nil {
				return err
			}
			transitioned = true
		}
		return s.notifyScheduled(ctx, appt, &providerID, transitioned)
	})
	if err != nil {
		return nil, err
	}

	if appt.ProviderIDs, err = s.appointments.ListProviderIDs(ctx, id); err != nil {
		return nil, fmt.Errorf("failed to list providers: %w", err)
	}
	s.logger.Info("provider assigned", "appointment_id", id, "provider_id", providerID, "status", appt.Status)
	return appt, nil
}

// CreateFollowUp books a scheduled follow-up for the parent's patient and
// links it from the parent. A parent holds at most one follow-up.
func (s *Service) CreateFollowUp(ctx context.Context, actor model.Actor, parentID uuid.UUID, req model.AppointmentRequest) (*model.Appointment, error) {
	if !actor.IsPrivileged() {
		return nil, apperrors.Forbidden("only admin or receptionist can create follow-ups")
	}
	at, err := validateRequest(&req)
	if err != nil {
		return nil, err
	}

	var child *model.Appointment
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		parent, err := s.load(ctx, actor, parentID)
		if err != nil {
			return err
		}
		if err := CanFollowUp(parent.Status); err != nil {
			return err
		}
		if parent.FollowUpAppointmentID != nil {
			return apperrors.Validationf("appointment already has a follow-up")
		}

		child = &model.Appointment{
			Base:      model.Base{ID: uuid.New()},
			PatientID: parent.PatientID,
			Status:    model.AppointmentStatusScheduled,
		}
		applyRequest(child, &req, at)
		if err := s.appointments.Create(ctx, child); err != nil {
			return err
		}
		if err := s.events.StatusChanged(ctx, child.ID, child.Status, actor.ID); err != nil {
			return err
		}

		parent.IsFollowUpRequired = true
		parent.FollowUpAppointmentID = &child.ID
		if err := s.appointments.Update(ctx, parent); err != nil {
			return err
		}
		return s.notifyScheduled(ctx, child, nil, false)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("follow-up scheduled", "appointment_id", child.ID, "parent_id", parentID)
	return child, nil
}

func (s *Service) Delete(ctx context.Context, actor model.Actor, id uuid.UUID) error {
	if !actor.IsPrivileged() {
		return apperrors.Forbidden("only admin or receptionist can delete appointments")
	}
	appt, err := s.load(ctx, actor, id)
	if err != nil {
		return err
	}
	if err := CanDelete(appt.Status); err != nil {
		return err
	}
	if err := s.appointments.Delete(ctx, id, appt.Version); err != nil {
		return err
	}

	s.logger.Info("appointment deleted", "appointment_id", id, "actor_id", actor.ID)
	return nil
}
