package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/clinic-api/internal/model"
	apperrors "github.com/jwalitptl/clinic-api/pkg/errors"
)

const appointmentColumns = `
	a.id, a.patient_id, a.scheduled_at, a.schedule_time, a.change_count,
	a.purposes, a.other_purpose, a.status, a.has_insurance,
	a.is_follow_up_required, a.follow_up_appointment_id, a.version,
	a.created_at, a.updated_at`

func (r *appointmentRepository) Create(ctx context.Context, appointment *model.Appointment) error {
	query := `
		INSERT INTO appointments (
			id, patient_id, scheduled_at, schedule_time, change_count,
			purposes, other_purpose, status, has_insurance,
			is_follow_up_required, follow_up_appointment_id, version,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`
	if appointment.ID == uuid.Nil {
		appointment.ID = uuid.New()
	}
	now := time.Now().UTC()
	appointment.CreatedAt = now
	appointment.UpdatedAt = now
	appointment.Version = 1

	_, err := r.conn(ctx).ExecContext(ctx, query,
		appointment.ID,
		appointment.PatientID,
		appointment.Schedule.Date,
		appointment.Schedule.Time,
		appointment.Schedule.ChangeCount,
		appointment.Purposes,
		appointment.OtherPurpose,
		appointment.Status,
		appointment.HasInsurance,
		appointment.IsFollowUpRequired,
		appointment.FollowUpAppointmentID,
		appointment.Version,
		appointment.CreatedAt,
		appointment.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create appointment: %w", err)
	}
	return nil
}

func (r *appointmentRepository) Get(ctx context.Context, id uuid.UUID) (*model.Appointment, error) {
	query := `SELECT ` + appointmentColumns + ` FROM appointments a WHERE a.id = $1`

	var appointment model.Appointment
	if err := r.conn(ctx).GetContext(ctx, &appointment, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NotFound("appointment", err)
		}
		return nil, fmt.Errorf("failed to get appointment: %w", err)
	}
	return &appointment, nil
}

func (r *appointmentRepository) Update(ctx context.Context, appointment *model.Appointment) error {
	query := `
		UPDATE appointments
		SET scheduled_at = $1,
			schedule_time = $2,
			change_count = $3,
			purposes = $4,
			other_purpose = $5,
			status = $6,
			has_insurance = $7,
			is_follow_up_required = $8,
			follow_up_appointment_id = $9,
			version = version + 1,
			updated_at = $10
		WHERE id = $11 AND version = $12
	`
	now := time.Now().UTC()

	result, err := r.conn(ctx).ExecContext(ctx, query,
		appointment.Schedule.Date,
		appointment.Schedule.Time,
		appointment.Schedule.ChangeCount,
		appointment.Purposes,
		appointment.OtherPurpose,
		appointment.Status,
		appointment.HasInsurance,
		appointment.IsFollowUpRequired,
		appointment.FollowUpAppointmentID,
		now,
		appointment.ID,
		appointment.Version,
	)
	if err != nil {
		return fmt.Errorf("failed to update appointment: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return apperrors.Conflict("appointment was modified by another request, reload and retry", nil)
	}

	appointment.Version++
	appointment.UpdatedAt = now
	return nil
}

func (r *appointmentRepository) Delete(ctx context.Context, id uuid.UUID, version int) error {
	query := `DELETE FROM appointments WHERE id = $1 AND version = $2`

	result, err := r.conn(ctx).ExecContext(ctx, query, id, version)
	if err != nil {
		return fmt.Errorf("failed to delete appointment: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return apperrors.Conflict("appointment was modified by another request, reload and retry", nil)
	}
	return nil
}

func (r *appointmentRepository) List(ctx context.Context, filter model.AppointmentFilter) ([]*model.Appointment, int, error) {
	var (
		conditions []string
		args       []interface{}
	)
	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter.PatientID != nil {
		conditions = append(conditions, "a.patient_id = "+arg(*filter.PatientID))
	}
	if filter.ProviderID != nil {
		conditions = append(conditions, `EXISTS (
			SELECT 1 FROM appointment_providers ap
			WHERE ap.appointment_id = a.id AND ap.provider_id = `+arg(*filter.ProviderID)+`)`)
	}
	if filter.Status != "" {
		conditions = append(conditions, "a.status = "+arg(filter.Status))
	}
	if filter.From != nil {
		conditions = append(conditions, "a.scheduled_at >= "+arg(*filter.From))
	}
	if filter.To != nil {
		conditions = append(conditions, "a.scheduled_at < "+arg(*filter.To))
	}
	if s := strings.TrimSpace(filter.Search); s != "" {
		p := arg("%" + s + "%")
		conditions = append(conditions, fmt.Sprintf(
			"(p.first_name ILIKE %s OR p.last_name ILIKE %s OR p.email ILIKE %s)", p, p, p))
	}

	where := ""
	if len(conditions) > 0 {
		where = "WHERE " + strings.Join(conditions, " AND ")
	}
	from := `FROM appointments a JOIN patients p ON p.id = a.patient_id ` + where

	var total int
	if err := r.conn(ctx).GetContext(ctx, &total, `SELECT COUNT(*) `+from, args...); err != nil {
		return nil, 0, fmt.Errorf("failed to count appointments: %w", err)
	}

	page := filter.Pagination.Normalize()
	query := `SELECT ` + appointmentColumns + ` ` + from +
		` ORDER BY a.scheduled_at DESC LIMIT ` + arg(page.Limit) + ` OFFSET ` + arg(page.Offset())

	appointments := []*model.Appointment{}
	if err := r.conn(ctx).SelectContext(ctx, &appointments, query, args...); err != nil {
		return nil, 0, fmt.Errorf("failed to list appointments: %w", err)
	}
	return appointments, total, nil
}

func (r *appointmentRepository) AddProvider(ctx context.Context, link *model.AppointmentProvider) error {
	query := `
		INSERT INTO appointment_providers (appointment_id, provider_id, assigned_at)
		VALUES ($1, $2, $3)
	`
	if link.AssignedAt.IsZero() {
		link.AssignedAt = time.Now().UTC()
	}

	_, err := r.conn(ctx).ExecContext(ctx, query, link.AppointmentID, link.ProviderID, link.AssignedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.BadRequest("provider already assigned", err)
		}
		return fmt.Errorf("failed to assign provider: %w", err)
	}
	return nil
}

func (r *appointmentRepository) HasProvider(ctx context.Context, appointmentID, providerID uuid.UUID) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM appointment_providers
			WHERE appointment_id = $1 AND provider_id = $2
		)
	`
	var exists bool
	if err := r.conn(ctx).GetContext(ctx, &exists, query, appointmentID, providerID); err != nil {
		return false, fmt.Errorf("failed to check provider assignment: %w", err)
	}
	return exists, nil
}

func (r *appointmentRepository) ListProviderIDs(ctx context.Context, appointmentID uuid.UUID) ([]uuid.UUID, error) {
	query := `
		SELECT provider_id FROM appointment_providers
		WHERE appointment_id = $1
		ORDER BY assigned_at
	`
	ids := []uuid.UUID{}
	if err := r.conn(ctx).SelectContext(ctx, &ids, query, appointmentID); err != nil {
		return nil, fmt.Errorf("failed to list assigned providers: %w", err)
	}
	return ids, nil
}

func (r *appointmentRepository) ListScheduledBetween(ctx context.Context, from, to time.Time) ([]*model.AppointmentSummary, error) {
	query := `
		SELECT ` + appointmentColumns + `,
			p.first_name AS patient_first_name,
			p.last_name AS patient_last_name
		FROM appointments a
		JOIN patients p ON p.id = a.patient_id
		WHERE a.scheduled_at >= $1 AND a.scheduled_at < $2
		ORDER BY a.scheduled_at
	`
	summaries := []*model.AppointmentSummary{}
	if err := r.conn(ctx).SelectContext(ctx, &summaries, query, from, to); err != nil {
		return nil, fmt.Errorf("failed to list appointments for window: %w", err)
	}
	return summaries, nil
}

func (r *appointmentRepository) ListUpcomingForPatient(ctx context.Context, patientID uuid.UUID, from time.Time) ([]*model.Appointment, error) {
	query := `
		SELECT ` + appointmentColumns + `
		FROM appointments a
		WHERE a.patient_id = $1
		AND a.scheduled_at >= $2
		AND a.status NOT IN ('CANCELLED', 'COMPLETED')
		ORDER BY a.scheduled_at
	`
	appointments := []*model.Appointment{}
	if err := r.conn(ctx).SelectContext(ctx, &appointments, query, patientID, from); err != nil {
		return nil, fmt.Errorf("failed to list upcoming appointments: %w", err)
	}
	return appointments, nil
}

func (r *appointmentRepository) CountActivePatientsSince(ctx context.Context, since time.Time) (int, error) {
	query := `SELECT COUNT(DISTINCT patient_id) FROM appointments WHERE updated_at >= $1`

	var count int
	if err := r.conn(ctx).GetContext(ctx, &count, query, since); err != nil {
		return 0, fmt.Errorf("failed to count active patients: %w", err)
	}
	return count, nil
}
