package event

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/internal/repository"
)

// Recorder writes audit events and queues outbound side effects. Callers
// run it inside the same transaction as the change being recorded.
type Recorder interface {
	Record(ctx context.Context, event *model.Event) error
	StatusChanged(ctx context.Context, appointmentID uuid.UUID, status model.AppointmentStatus, actorID uuid.UUID) error
	Emit(ctx context.Context, eventType string, payload interface{}) error
}

type EventService struct {
	events repository.EventRepository
	outbox repository.OutboxRepository
	now    func() time.Time
}

func NewEventService(events repository.EventRepository, outbox repository.OutboxRepository) *EventService {
	return &EventService{
		events: events,
		outbox: outbox,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (s *EventService) Record(ctx context.Context, event *model.Event) error {
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = s.now()
	}
	if err := s.events.Create(ctx, event); err != nil {
		return fmt.Errorf("failed to record %s event: %w", event.Type, err)
	}
	return nil
}

func (s *EventService) StatusChanged(ctx context.Context, appointmentID uuid.UUID, status model.AppointmentStatus, actorID uuid.UUID) error {
	return s.Record(ctx, &model.Event{
		Type:          model.EventAppointmentStatusChanged,
		AppointmentID: appointmentID,
		Status:        &status,
		CreatedByID:   actorID,
	})
}

// Emit stores payload as a pending outbox row. The outbox worker delivers it
// after the surrounding transaction commits.
func (s *EventService) Emit(ctx context.Context, eventType string, payload interface{}) error {
	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	now := s.now()
	event := &model.OutboxEvent{
		ID:        uuid.New(),
		EventType: eventType,
		Payload:   payloadJSON,
		Status:    model.OutboxStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.outbox.Create(ctx, event); err != nil {
		return fmt.Errorf("failed to create outbox event: %w", err)
	}
	return nil
}
