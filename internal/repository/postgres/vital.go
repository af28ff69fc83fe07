package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/clinic-api/internal/model"
	apperrors "github.com/jwalitptl/clinic-api/pkg/errors"
)

const vitalColumns = `
	v.id, v.appointment_id, v.created_by_id, v.temperature, v.blood_pressure,
	v.heart_rate, v.respiratory_rate, v.oxygen_saturation, v.weight, v.height,
	v.bmi, v.others, v.created_at, v.updated_at`

func (r *vitalRepository) Create(ctx context.Context, vital *model.Vital) error {
	query := `
		INSERT INTO vitals (
			id, appointment_id, created_by_id, temperature, blood_pressure,
			heart_rate, respiratory_rate, oxygen_saturation, weight, height,
			bmi, others, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`
	if vital.ID == uuid.Nil {
		vital.ID = uuid.New()
	}
	now := time.Now().UTC()
	vital.CreatedAt = now
	vital.UpdatedAt = now

	_, err := r.conn(ctx).ExecContext(ctx, query,
		vital.ID, vital.AppointmentID, vital.CreatedByID, vital.Temperature, vital.BloodPressure,
		vital.HeartRate, vital.RespiratoryRate, vital.OxygenSaturation, vital.Weight, vital.Height,
		vital.BMI, vital.Others, vital.CreatedAt, vital.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.Conflict("vitals already recorded for appointment", err)
		}
		return fmt.Errorf("failed to create vital: %w", err)
	}
	return nil
}

func (r *vitalRepository) Update(ctx context.Context, vital *model.Vital) error {
	query := `
		UPDATE vitals
		SET temperature = $1, blood_pressure = $2, heart_rate = $3,
			respiratory_rate = $4, oxygen_saturation = $5, weight = $6,
			height = $7, bmi = $8, others = $9, updated_at = $10
		WHERE id = $11
	`
	vital.UpdatedAt = time.Now().UTC()

	result, err := r.conn(ctx).ExecContext(ctx, query,
		vital.Temperature, vital.BloodPressure, vital.HeartRate,
		vital.RespiratoryRate, vital.OxygenSaturation, vital.Weight,
		vital.Height, vital.BMI, vital.Others, vital.UpdatedAt,
		vital.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update vital: %w", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return apperrors.NotFound("vital", nil)
	}
	return nil
}

func (r *vitalRepository) Get(ctx context.Context, id uuid.UUID) (*model.Vital, error) {
	return r.getOne(ctx, `SELECT `+vitalColumns+` FROM vitals v WHERE v.id = $1`, id)
}

func (r *vitalRepository) GetByAppointment(ctx context.Context, appointmentID uuid.UUID) (*model.Vital, error) {
	return r.getOne(ctx, `SELECT `+vitalColumns+` FROM vitals v WHERE v.appointment_id = $1`, appointmentID)
}

func (r *vitalRepository) LatestForPatient(ctx context.Context, patientID uuid.UUID) (*model.Vital, error) {
	query := `
		SELECT ` + vitalColumns + `
		FROM vitals v
		JOIN appointments a ON a.id = v.appointment_id
		WHERE a.patient_id = $1
		ORDER BY v.created_at DESC
		LIMIT 1
	`
	return r.getOne(ctx, query, patientID)
}

func (r *vitalRepository) getOne(ctx context.Context, query string, args ...interface{}) (*model.Vital, error) {
	var vital model.Vital
	if err := r.conn(ctx).GetContext(ctx, &vital, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NotFound("vital", err)
		}
		return nil, fmt.Errorf("failed to get vital: %w", err)
	}
	return &vital, nil
}
