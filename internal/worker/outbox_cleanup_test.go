package worker

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/internal/repository/memory"
	"github.com/jwalitptl/clinic-api/pkg/logger"
	"github.com/jwalitptl/clinic-api/pkg/metrics"
)

func TestCleanupRemovesOldProcessedEvents(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	repo := store.Outbox()

	clock := time.Date(2026, 10, 1, 8, 0, 0, 0, time.UTC)
	store.SetClock(func() time.Time { return clock })

	create := func() *model.OutboxEvent {
		evt := &model.OutboxEvent{EventType: model.OutboxAppointmentScheduledEmail, Payload: json.RawMessage(`{}`)}
		require.NoError(t, repo.Create(ctx, evt))
		return evt
	}
	old := create()
	require.NoError(t, repo.MarkProcessed(ctx, old.ID))
	dead := create()
	require.NoError(t, repo.MoveToDeadLetter(ctx, dead, "bad payload"))

	clock = time.Date(2026, 10, 14, 8, 0, 0, 0, time.UTC)
	recent := create()
	require.NoError(t, repo.MarkProcessed(ctx, recent.ID))
	pending := create()

	m := metrics.NewMetrics("test", "cleanup", prometheus.NewRegistry())
	w := NewOutboxCleanupWorker(repo, 7*24*time.Hour, time.Hour, logger.Nop(), m)
	w.now = func() time.Time { return time.Date(2026, 10, 15, 8, 0, 0, 0, time.UTC) }

	n, err := w.Cleanup(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.OutboxEventsPurged))

	var remaining []string
	for _, e := range store.AllOutbox() {
		remaining = append(remaining, e.ID.String())
	}
	assert.ElementsMatch(t, []string{dead.ID.String(), recent.ID.String(), pending.ID.String()}, remaining)
}
