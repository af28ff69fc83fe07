package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type OutboxStatus string

const (
	OutboxStatusPending    OutboxStatus = "pending"
	OutboxStatusProcessing OutboxStatus = "processing"
	OutboxStatusRetry      OutboxStatus = "retry"
	OutboxStatusProcessed  OutboxStatus = "processed"
	OutboxStatusDead       OutboxStatus = "dead"
)

const (
	OutboxAppointmentScheduledEmail    = "appointment.scheduled.email"
	OutboxAppointmentScheduledCalendar = "appointment.scheduled.calendar"
)

type OutboxEvent struct {
	ID           uuid.UUID       `db:"id" json:"id"`
	EventType    string          `db:"event_type" json:"event_type"`
	Payload      json.RawMessage `db:"payload" json:"payload"`
	Status       OutboxStatus    `db:"status" json:"status"`
	ErrorMessage *string         `db:"error_message" json:"error_message,omitempty"`
	CreatedAt    time.Time       `db:"created_at" json:"created_at"`
	ProcessedAt  *time.Time      `db:"processed_at" json:"processed_at,omitempty"`
	UpdatedAt    time.Time       `db:"updated_at" json:"updated_at"`
	RetryCount   int             `db:"retry_count" json:"retry_count"`
	RetryAt      *time.Time      `db:"retry_at" json:"retry_at,omitempty"`
	LockedUntil  *time.Time      `db:"locked_until" json:"-"`
}

// AppointmentScheduledPayload is carried by the appointment.scheduled.* outbox events.
type AppointmentScheduledPayload struct {
	AppointmentID uuid.UUID  `json:"appointment_id"`
	PatientID     uuid.UUID  `json:"patient_id"`
	ProviderID    *uuid.UUID `json:"provider_id,omitempty"`
	ScheduledAt   time.Time  `json:"scheduled_at"`
	Time          string     `json:"time"`
	Purposes      Purposes   `json:"purposes"`
}

type CalendarToken struct {
	PatientID    uuid.UUID `db:"patient_id" json:"patient_id"`
	AccessToken  string    `db:"access_token" json:"-"`
	RefreshToken string    `db:"refresh_token" json:"-"`
	TokenType    string    `db:"token_type" json:"token_type"`
	Expiry       time.Time `db:"expiry" json:"expiry"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}
