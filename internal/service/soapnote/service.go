package soapnote

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
	notes        repository.SoapNoteRepository
	events       event.Recorder
	logger       *logger.Logger
}

func NewService(tx repository.Transactor, appointments repository.AppointmentRepository, notes repository.SoapNoteRepository, events event.Recorder, log *logger.Logger) *Service {
	if log == nil {
		log = logger.Nop()
	}
	return &Service{
		tx:           tx,
		appointments: appointments,
		notes:        notes,
		events:       events,
		logger:       log,
	}
}

func apply(note *model.SoapNote, req *model.SoapNoteRequest) {
	note.Subjective = req.Subjective
	note.Objective = req.Objective
	note.Assessment = req.Assessment
	note.Plan = req.Plan
}

// Record writes the caller's note for an appointment. Each provider keeps one
// note per appointment; recording again replaces its sections.
func (s *Service) Record(ctx context.Context, actor model.Actor, req model.SoapNoteRequest) (*model.SoapNote, bool, error) {
	if !actor.IsProvider() {
		return nil, false, apperrors.Forbidden("only providers can record soap notes")
	}
	for _, p := range req.Subjective.PurposesOfAppointment {
		if !p.Valid() {
			return nil, false, apperrors.Validationf("invalid purpose %q", p)
		}
	}
	if req.Plan.HasReferral && req.Plan.ReferredProviderName == "" {
		return nil, false, apperrors.Validationf("referred_provider_name is required when has_referral is set")
	}

	var (
		note    *model.SoapNote
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

		note, err = s.notes.GetByAppointmentAndAuthor(ctx, req.AppointmentID, actor.ID)
		switch {
		case apperrors.IsNotFound(err):
			note = &model.SoapNote{
				Base:          model.Base{ID: uuid.New()},
				AppointmentID: req.AppointmentID,
				CreatedByID:   actor.ID,
			}
			apply(note, &req)
			if err := s.notes.Create(ctx, note); err != nil {
				return err
			}
			created = true
		case err != nil:
			return err
		default:
			apply(note, &req)
			if err := s.notes.Update(ctx, note); err != nil {
				return err
			}
		}

		eventType := model.EventSoapNoteUpdated
		if created {
			eventType = model.EventSoapNoteRecorded
		}
		return s.events.Record(ctx, &model.Event{
			Type:          eventType,
			AppointmentID: req.AppointmentID,
			SoapNoteID:    &note.ID,
			CreatedByID:   actor.ID,
		})
	})
	if err != nil {
		return nil, false, fmt.Errorf("failed to record soap note: %w", err)
	}

	s.logger.Info("soap note recorded", "appointment_id", req.AppointmentID, "soap_note_id", note.ID, "created", created)
	return note, created, nil
}

func (s *Service) ListByAppointment(ctx context.Context, actor model.Actor, appointmentID uuid.UUID) ([]*model.SoapNote, error) {
	if !actor.IsPrivileged() {
		return nil, apperrors.Forbidden("only admin or receptionist can list soap notes")
	}
	if _, err := s.appointments.Get(ctx, appointmentID); err != nil {
		return nil, err
	}
	return s.notes.ListByAppointment(ctx, appointmentID)
}

// Get returns a note to its author only.
func (s *Service) Get(ctx context.Context, actor model.Actor, id uuid.UUID) (*model.SoapNote, error) {
	note, err := s.notes.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if note.CreatedByID != actor.ID {
		return nil, apperrors.NotFound("soap note", nil)
	}
	return note, nil
}
