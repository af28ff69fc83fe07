package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/clinic-api/internal/model"
)

func (r *eventRepository) Create(ctx context.Context, event *model.Event) error {
	query := `
		INSERT INTO events (
			id, type, appointment_id, status, provider_id,
			vital_id, soap_note_id, created_by_id, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}

	_, err := r.conn(ctx).ExecContext(ctx, query,
		event.ID,
		event.Type,
		event.AppointmentID,
		event.Status,
		event.ProviderID,
		event.VitalID,
		event.SoapNoteID,
		event.CreatedByID,
		event.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create event: %w", err)
	}
	return nil
}

func (r *eventRepository) ListByAppointment(ctx context.Context, appointmentID uuid.UUID) ([]*model.Event, error) {
	query := `
		SELECT id, type, appointment_id, status, provider_id,
			vital_id, soap_note_id, created_by_id, created_at
		FROM events
		WHERE appointment_id = $1
		ORDER BY created_at
	`
	events := []*model.Event{}
	if err := r.conn(ctx).SelectContext(ctx, &events, query, appointmentID); err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	return events, nil
}

// CountAppointmentsWithStatus counts live appointments that ever held status.
// Events of deleted appointments are ignored.
func (r *eventRepository) CountAppointmentsWithStatus(ctx context.Context, status model.AppointmentStatus) (int, error) {
	query := `
		SELECT COUNT(DISTINCT e.appointment_id)
		FROM events e
		JOIN appointments a ON a.id = e.appointment_id
		WHERE e.type = $1 AND e.status = $2
	`
	var count int
	if err := r.conn(ctx).GetContext(ctx, &count, query, model.EventAppointmentStatusChanged, status); err != nil {
		return 0, fmt.Errorf("failed to count appointments with status %s: %w", status, err)
	}
	return count, nil
}
