package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/internal/repository"
	"github.com/jwalitptl/clinic-api/pkg/logger"
	"github.com/jwalitptl/clinic-api/pkg/messaging"
	"github.com/jwalitptl/clinic-api/pkg/metrics"
)

const maxRescheduleDelay = time.Hour

// Handler delivers a single outbox event. Returning an error wrapped with
// backoff.Permanent sends the event straight to the dead letter table.
type Handler interface {
	Handle(ctx context.Context, event *model.OutboxEvent) error
}

type HandlerFunc func(ctx context.Context, event *model.OutboxEvent) error

func (f HandlerFunc) Handle(ctx context.Context, event *model.OutboxEvent) error {
	return f(ctx, event)
}

type OutboxProcessorConfig struct {
	BatchSize    int
	PollInterval time.Duration
	// RetryAttempts is how many times an event is tried within one claim.
	RetryAttempts int
	RetryDelay    time.Duration
	// MaxAttempts is how many claims an event gets before it is dead-lettered.
	MaxAttempts   int
	LeaseDuration time.Duration
	// Channel receives every processed event. Empty disables the fan-out.
	Channel string
}

func (c OutboxProcessorConfig) validate() error {
	switch {
	case c.BatchSize <= 0:
		return errors.New("BatchSize must be greater than 0")
	case c.PollInterval <= 0:
		return errors.New("PollInterval must be greater than 0")
	case c.RetryAttempts <= 0:
		return errors.New("RetryAttempts must be greater than 0")
	case c.RetryDelay <= 0:
		return errors.New("RetryDelay must be greater than 0")
	case c.MaxAttempts <= 0:
		return errors.New("MaxAttempts must be greater than 0")
	case c.LeaseDuration <= 0:
		return errors.New("LeaseDuration must be greater than 0")
	}
	return nil
}

type OutboxProcessor struct {
	repo    repository.OutboxRepository
	handler Handler
	broker  messaging.Broker
	config  OutboxProcessorConfig
	logger  *logger.Logger
	metrics *metrics.Metrics
	now     func() time.Time
}

// NewOutboxProcessor wires the processor. broker may be nil.
func NewOutboxProcessor(
	repo repository.OutboxRepository,
	handler Handler,
	broker messaging.Broker,
	config OutboxProcessorConfig,
	logger *logger.Logger,
	metrics *metrics.Metrics,
) (*OutboxProcessor, error) {
	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("invalid outbox processor config: %w", err)
	}
	if handler == nil {
		return nil, errors.New("invalid outbox processor config: handler is required")
	}

	return &OutboxProcessor{
		repo:    repo,
		handler: handler,
		broker:  broker,
		config:  config,
		logger:  logger,
		metrics: metrics,
		now:     time.Now,
	}, nil
}

func (p *OutboxProcessor) Start(ctx context.Context) {
	ticker := time.NewTicker(p.config.PollInterval)
	defer ticker.Stop()

	p.logger.Info("Starting outbox processor")

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("Shutting down outbox processor")
			return
		case <-ticker.C:
			if _, err := p.ProcessBatch(ctx); err != nil {
				p.logger.Error(err, "Failed to process events")
			}
		}
	}
}

// ProcessBatch claims one batch of due events and handles each of them. It
// returns how many events were claimed.
func (p *OutboxProcessor) ProcessBatch(ctx context.Context) (int, error) {
	timer := prometheus.NewTimer(p.metrics.OutboxProcessingLatency)
	defer timer.ObserveDuration()

	events, err := p.repo.ClaimPending(ctx, p.config.BatchSize, p.config.LeaseDuration)
	if err != nil {
		p.metrics.DatabaseOperations.WithLabelValues("claim_pending_events", "error").Inc()
		return 0, fmt.Errorf("failed to claim pending events: %w", err)
	}
	p.metrics.DatabaseOperations.WithLabelValues("claim_pending_events", "success").Inc()

	for _, event := range events {
		if err := p.processEvent(ctx, event); err != nil {
			p.logger.Error(err, "Failed to process event",
				"event_id", event.ID.String(),
				"event_type", event.EventType)
		}
	}

	if pending, err := p.repo.CountPending(ctx); err == nil {
		p.metrics.OutboxQueueSize.Set(float64(pending))
	}
	return len(events), nil
}

func (p *OutboxProcessor) backOff(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.config.RetryDelay
	b.MaxInterval = p.config.RetryDelay * 10
	b.MaxElapsedTime = 0
	return backoff.WithContext(backoff.WithMaxRetries(b, uint64(p.config.RetryAttempts-1)), ctx)
}

func (p *OutboxProcessor) processEvent(ctx context.Context, event *model.OutboxEvent) error {
	permanent := false
	op := func() error {
		err := p.handler.Handle(ctx, event)
		var perm *backoff.PermanentError
		if errors.As(err, &perm) {
			permanent = true
		}
		return err
	}
	notify := func(err error, wait time.Duration) {
		p.metrics.OutboxRetries.WithLabelValues(event.EventType).Inc()
		p.logger.Warn("Retrying outbox event",
			"event_id", event.ID.String(),
			"event_type", event.EventType,
			"wait", wait.String(),
			"error", err.Error())
	}

	err := backoff.RetryNotify(op, p.backOff(ctx), notify)
	if err != nil {
		p.metrics.OutboxEventsFailed.WithLabelValues(event.EventType).Inc()
		return p.fail(ctx, event, err, permanent)
	}

	if err := p.repo.MarkProcessed(ctx, event.ID); err != nil {
		p.metrics.DatabaseOperations.WithLabelValues("mark_processed", "error").Inc()
		return fmt.Errorf("failed to mark event processed: %w", err)
	}
	p.metrics.OutboxEventsProcessed.WithLabelValues(event.EventType).Inc()

	p.publish(ctx, event)
	return nil
}

// fail records a failed delivery. Permanent failures and events out of
// attempts go to the dead letter table, the rest are rescheduled.
func (p *OutboxProcessor) fail(ctx context.Context, event *model.OutboxEvent, cause error, permanent bool) error {
	attempts := event.RetryCount + 1
	if permanent || attempts >= p.config.MaxAttempts {
		if err := p.repo.MoveToDeadLetter(ctx, event, cause.Error()); err != nil {
			p.metrics.DatabaseOperations.WithLabelValues("move_to_dead_letter", "error").Inc()
			return fmt.Errorf("failed to dead-letter event: %w", err)
		}
		p.metrics.OutboxEventsDeadLetter.WithLabelValues(event.EventType).Inc()
		p.logger.Error(cause, "Outbox event moved to dead letter",
			"event_id", event.ID.String(),
			"event_type", event.EventType,
			"attempts", attempts,
			"permanent", permanent)
		return cause
	}

	retryAt := p.now().Add(rescheduleDelay(p.config.RetryDelay, attempts))
	if err := p.repo.MarkRetry(ctx, event.ID, cause.Error(), retryAt); err != nil {
		p.metrics.DatabaseOperations.WithLabelValues("mark_retry", "error").Inc()
		return fmt.Errorf("failed to reschedule event: %w", err)
	}
	return cause
}

// rescheduleDelay doubles base for every failed claim, capped at an hour.
func rescheduleDelay(base time.Duration, attempts int) time.Duration {
	delay := base
	for i := 0; i < attempts && delay < maxRescheduleDelay; i++ {
		delay *= 2
	}
	if delay > maxRescheduleDelay {
		delay = maxRescheduleDelay
	}
	return delay
}

func (p *OutboxProcessor) publish(ctx context.Context, event *model.OutboxEvent) {
	if p.broker == nil || p.config.Channel == "" {
		return
	}
	err := p.broker.Publish(ctx, p.config.Channel, messaging.Message{
		ID:      event.ID.String(),
		Type:    event.EventType,
		Payload: event.Payload,
	})
	if err != nil {
		p.metrics.RedisOperations.WithLabelValues("publish", "error").Inc()
		p.logger.Warn("Failed to fan out outbox event", "event_id", event.ID.String(), "error", err.Error())
		return
	}
	p.metrics.RedisOperations.WithLabelValues("publish", "success").Inc()
}
