package model

import (
	"time"

	"github.com/google/uuid"
)

type EventType string

const (
	EventAppointmentStatusChanged EventType = "APPOINTMENT_STATUS_CHANGED"
	EventProviderAssigned         EventType = "PROVIDER_ASSIGNED"
	EventVitalsRecorded           EventType = "VITALS_RECORDED"
	EventVitalsUpdated            EventType = "VITALS_UPDATED"
	EventSoapNoteRecorded         EventType = "SOAP_NOTE_RECORDED"
	EventSoapNoteUpdated          EventType = "SOAP_NOTE_UPDATED"
)

// Event is an append-only audit record of a state changing action on an
// appointment.
type Event struct {
	ID            uuid.UUID          `db:"id" json:"id"`
	Type          EventType          `db:"type" json:"type"`
	AppointmentID uuid.UUID          `db:"appointment_id" json:"appointment_id"`
	Status        *AppointmentStatus `db:"status" json:"status,omitempty"`
	ProviderID    *uuid.UUID         `db:"provider_id" json:"provider_id,omitempty"`
	VitalID       *uuid.UUID         `db:"vital_id" json:"vital_id,omitempty"`
	SoapNoteID    *uuid.UUID         `db:"soap_note_id" json:"soap_note_id,omitempty"`
	CreatedByID   uuid.UUID          `db:"created_by_id" json:"created_by_id"`
	CreatedAt     time.Time          `db:"created_at" json:"created_at"`
}
