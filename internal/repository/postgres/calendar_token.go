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
	"github.com/jwalitptl/clinic-api/pkg/security"
)

func (r *calendarTokenRepository) GetByPatient(ctx context.Context, patientID uuid.UUID) (*model.CalendarToken, error) {
	query := `
		SELECT patient_id, access_token, refresh_token, token_type, expiry, updated_at
		FROM calendar_tokens
		WHERE patient_id = $1
	`
	var token model.CalendarToken
	if err := r.conn(ctx).GetContext(ctx, &token, query, patientID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NotFound("calendar token", err)
		}
		return nil, fmt.Errorf("failed to get calendar token: %w", err)
	}
	if r.enc != nil {
		access, err := security.DecryptString(r.enc, token.AccessToken)
		if err != nil {
			return nil, fmt.Errorf("failed to decrypt calendar token: %w", err)
		}
		refresh, err := security.DecryptString(r.enc, token.RefreshToken)
		if err != nil {
			return nil, fmt.Errorf("failed to decrypt calendar token: %w", err)
		}
		token.AccessToken, token.RefreshToken = access, refresh
	}
	return &token, nil
}

func (r *calendarTokenRepository) Upsert(ctx context.Context, token *model.CalendarToken) error {
	query := `
		INSERT INTO calendar_tokens (patient_id, access_token, refresh_token, token_type, expiry, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (patient_id) DO UPDATE
		SET access_token = EXCLUDED.access_token,
			refresh_token = CASE WHEN EXCLUDED.refresh_token = '' THEN calendar_tokens.refresh_token ELSE EXCLUDED.refresh_token END,
			token_type = EXCLUDED.token_type,
			expiry = EXCLUDED.expiry,
			updated_at = EXCLUDED.updated_at
	`
	token.UpdatedAt = time.Now().UTC()

	access, refresh := token.AccessToken, token.RefreshToken
	if r.enc != nil {
		var err error
		if access, err = security.EncryptString(r.enc, access); err != nil {
			return fmt.Errorf("failed to encrypt calendar token: %w", err)
		}
		// an empty refresh token stays empty so the stored one is kept
		if refresh, err = security.EncryptString(r.enc, refresh); err != nil {
			return fmt.Errorf("failed to encrypt calendar token: %w", err)
		}
	}

	_, err := r.conn(ctx).ExecContext(ctx, query,
		token.PatientID, access, refresh, token.TokenType, token.Expiry, token.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to store calendar token: %w", err)
	}
	return nil
}
