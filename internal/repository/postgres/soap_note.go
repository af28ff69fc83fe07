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

const soapNoteColumns = `
	n.id, n.appointment_id, n.created_by_id, n.subjective, n.objective,
	n.assessment, n.plan, n.created_at, n.updated_at`

func (r *soapNoteRepository) Create(ctx context.Context, note *model.SoapNote) error {
	query := `
		INSERT INTO soap_notes (
			id, appointment_id, created_by_id, subjective, objective,
			assessment, plan, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	if note.ID == uuid.Nil {
		note.ID = uuid.New()
	}
	now := time.Now().UTC()
	note.CreatedAt = now
	note.UpdatedAt = now

	_, err := r.conn(ctx).ExecContext(ctx, query,
		note.ID, note.AppointmentID, note.CreatedByID, note.Subjective, note.Objective,
		note.Assessment, note.Plan, note.CreatedAt, note.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.Conflict("soap note already recorded for appointment", err)
		}
		return fmt.Errorf("failed to create soap note: %w", err)
	}
	return nil
}

func (r *soapNoteRepository) Update(ctx context.Context, note *model.SoapNote) error {
	query := `
		UPDATE soap_notes
		SET subjective = $1, objective = $2, assessment = $3, plan = $4, updated_at = $5
		WHERE id = $6
	`
	note.UpdatedAt = time.Now().UTC()

	result, err := r.conn(ctx).ExecContext(ctx, query,
		note.Subjective, note.Objective, note.Assessment, note.Plan, note.UpdatedAt, note.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update soap note: %w", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return apperrors.NotFound("soap note", nil)
	}
	return nil
}

func (r *soapNoteRepository) Get(ctx context.Context, id uuid.UUID) (*model.SoapNote, error) {
	return r.getOne(ctx, `SELECT `+soapNoteColumns+` FROM soap_notes n WHERE n.id = $1`, id)
}

func (r *soapNoteRepository) GetByAppointmentAndAuthor(ctx context.Context, appointmentID, authorID uuid.UUID) (*model.SoapNote, error) {
	query := `SELECT ` + soapNoteColumns + ` FROM soap_notes n WHERE n.appointment_id = $1 AND n.created_by_id = $2`
	return r.getOne(ctx, query, appointmentID, authorID)
}

func (r *soapNoteRepository) ListByAppointment(ctx context.Context, appointmentID uuid.UUID) ([]*model.SoapNote, error) {
	query := `
		SELECT ` + soapNoteColumns + `
		FROM soap_notes n
		WHERE n.appointment_id = $1
		ORDER BY n.created_at
	`
	notes := []*model.SoapNote{}
	if err := r.conn(ctx).SelectContext(ctx, &notes, query, appointmentID); err != nil {
		return nil, fmt.Errorf("failed to list soap notes: %w", err)
	}
	return notes, nil
}

func (r *soapNoteRepository) LatestForPatient(ctx context.Context, patientID uuid.UUID) (*model.SoapNote, error) {
	query := `
		SELECT ` + soapNoteColumns + `
		FROM soap_notes n
		JOIN appointments a ON a.id = n.appointment_id
		WHERE a.patient_id = $1
		ORDER BY n.created_at DESC
		LIMIT 1
	`
	return r.getOne(ctx, query, patientID)
}

func (r *soapNoteRepository) getOne(ctx context.Context, query string, args ...interface{}) (*model.SoapNote, error) {
	var note model.SoapNote
	if err := r.conn(ctx).GetContext(ctx, &note, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NotFound("soap note", err)
		}
		return nil, fmt.Errorf("failed to get soap note: %w", err)
	}
	return &note, nil
}
