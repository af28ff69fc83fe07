package event

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/internal/repository/memory"
)

func TestStatusChanged(t *testing.T) {
	store := memory.NewStore()
	svc := NewEventService(store.Events(), store.Outbox())

	apptID, actorID := uuid.New(), uuid.New()
	require.NoError(t, svc.StatusChanged(context.Background(), apptID, model.AppointmentStatusScheduled, actorID))

	events := store.AllEvents()
	require.Len(t, events, 1)
	assert.Equal(t, model.EventAppointmentStatusChanged, events[0].Type)
	assert.Equal(t, apptID, events[0].AppointmentID)
	assert.Equal(t, actorID, events[0].CreatedByID)
	require.NotNil(t, events[0].Status)
	assert.Equal(t, model.AppointmentStatusScheduled, *events[0].Status)
	assert.False(t, events[0].CreatedAt.IsZero())
}

func TestEmit(t *testing.T) {
	store := memory.NewStore()
	svc := NewEventService(store.Events(), store.Outbox())

	payload := model.AppointmentScheduledPayload{
		AppointmentID: uuid.New(),
		PatientID:     uuid.New(),
		Time:          "09:30",
		Purposes:      model.Purposes{model.PurposeDentalCare},
	}
	require.NoError(t, svc.Emit(context.Background(), model.OutboxAppointmentScheduledEmail, payload))

	rows := store.AllOutbox()
	require.Len(t, rows, 1)
	assert.Equal(t, model.OutboxAppointmentScheduledEmail, rows[0].EventType)
	assert.Equal(t, model.OutboxStatusPending, rows[0].Status)

	var decoded model.AppointmentScheduledPayload
	require.NoError(t, json.Unmarshal(rows[0].Payload, &decoded))
	assert.Equal(t, payload.AppointmentID, decoded.AppointmentID)
	assert.Equal(t, payload.Purposes, decoded.Purposes)
}

func TestEmitRejectsUnencodablePayload(t *testing.T) {
	store := memory.NewStore()
	svc := NewEventService(store.Events(), store.Outbox())

	err := svc.Emit(context.Background(), "bad", make(chan int))
	assert.Error(t, err)
	assert.Empty(t, store.AllOutbox())
}
