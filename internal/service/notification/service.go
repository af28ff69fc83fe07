package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/oauth2"

	"github.com/jwalitptl/clinic-api/internal/calendar"
	"github.com/jwalitptl/clinic-api/internal/email"
	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/internal/repository"
	apperrors "github.com/jwalitptl/clinic-api/pkg/errors"
	"github.com/jwalitptl/clinic-api/pkg/logger"
)

const defaultEventDuration = 30 * time.Minute

type Config struct {
	AppName   string
	OriginURL string
	// EventDuration is the length of the calendar entry created for a visit.
	EventDuration time.Duration
}

// Service turns outbox events into patient notifications. It satisfies the
// outbox processor's Handler interface.
type Service struct {
	patients repository.PatientRepository
	tokens   repository.CalendarTokenRepository
	mailer   email.Sender
	calendar calendar.Client
	config   Config
	logger   *logger.Logger
}

// NewService builds the dispatcher. A nil calendar client disables calendar sync.
func NewService(
	patients repository.PatientRepository,
	tokens repository.CalendarTokenRepository,
	mailer email.Sender,
	cal calendar.Client,
	config Config,
	log *logger.Logger,
) *Service {
	if config.EventDuration <= 0 {
		config.EventDuration = defaultEventDuration
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Service{
		patients: patients,
		tokens:   tokens,
		mailer:   mailer,
		calendar: cal,
		config:   config,
		logger:   log,
	}
}

// Handle delivers one outbox event. Errors wrapped with backoff.Permanent
// will not succeed on retry.
func (s *Service) Handle(ctx context.Context, evt *model.OutboxEvent) error {
	switch evt.EventType {
	case model.OutboxAppointmentScheduledEmail:
		payload, err := decode(evt)
		if err != nil {
			return err
		}
		return s.sendScheduledEmail(ctx, payload)
	case model.OutboxAppointmentScheduledCalendar:
		payload, err := decode(evt)
		if err != nil {
			return err
		}
		return s.createCalendarEvent(ctx, payload)
	default:
		return backoff.Permanent(fmt.Errorf("unknown event type %q", evt.EventType))
	}
}

func decode(evt *model.OutboxEvent) (*model.AppointmentScheduledPayload, error) {
	var payload model.AppointmentScheduledPayload
	if err := json.Unmarshal(evt.Payload, &payload); err != nil {
		return nil, backoff.Permanent(fmt.Errorf("failed to decode %s payload: %w", evt.EventType, err))
	}
	return &payload, nil
}

func (s *Service) sendScheduledEmail(ctx context.Context, payload *model.AppointmentScheduledPayload) error {
	p, err := s.patients.Get(ctx, payload.PatientID)
	if apperrors.IsNotFound(err) {
		return backoff.Permanent(fmt.Errorf("patient %s not found", payload.PatientID))
	}
	if err != nil {
		return err
	}

	subject, body, err := email.RenderAppointmentScheduled(email.AppointmentScheduledData{
		AppName:     s.config.AppName,
		OriginURL:   s.config.OriginURL,
		PatientName: p.FullName(),
		ScheduledAt: payload.ScheduledAt,
		Time:        payload.Time,
		Purposes:    payload.Purposes.Labels(),
	})
	if err != nil {
		return backoff.Permanent(err)
	}
	if err := s.mailer.Send(ctx, p.Email, subject, body); err != nil {
		return err
	}

	s.logger.Info("appointment email sent", "appointment_id", payload.AppointmentID)
	return nil
}

func (s *Service) createCalendarEvent(ctx context.Context, payload *model.AppointmentScheduledPayload) error {
	if s.calendar == nil {
		s.logger.Debug("calendar sync disabled", "appointment_id", payload.AppointmentID)
		return nil
	}

	stored, err := s.tokens.GetByPatient(ctx, payload.PatientID)
	if apperrors.IsNotFound(err) {
		s.logger.Info("patient has no calendar token, skipping", "appointment_id", payload.AppointmentID)
		return nil
	}
	if err != nil {
		return err
	}

	token := &oauth2.Token{
		AccessToken:  stored.AccessToken,
		RefreshToken: stored.RefreshToken,
		TokenType:    stored.TokenType,
		Expiry:       stored.Expiry,
	}
	id, used, err := s.calendar.CreateEvent(ctx, token, s.calendarEvent(payload))
	if err != nil {
		return err
	}

	if used != nil && used.AccessToken != stored.AccessToken {
		refreshed := &model.CalendarToken{
			PatientID:    stored.PatientID,
			AccessToken:  used.AccessToken,
			RefreshToken: used.RefreshToken,
			TokenType:    used.TokenType,
			Expiry:       used.Expiry,
		}
		if err := s.tokens.Upsert(ctx, refreshed); err != nil {
			s.logger.Error(err, "failed to store refreshed calendar token", "patient_id", stored.PatientID)
		}
	}

	s.logger.Info("calendar event created", "appointment_id", payload.AppointmentID, "calendar_event_id", id)
	return nil
}

func (s *Service) calendarEvent(payload *model.AppointmentScheduledPayload) calendar.Event {
	return calendar.Event{
		Summary: fmt.Sprintf("%s Medical Appointment Schedule", s.config.AppName),
		Description: fmt.Sprintf("Appointment is scheduled for %s. \nVisit %s/appointments for more details.",
			strings.Join(payload.Purposes.Labels(), ", "), strings.TrimRight(s.config.OriginURL, "/")),
		Start: payload.ScheduledAt,
		End:   payload.ScheduledAt.Add(s.config.EventDuration),
	}
}
