package main

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strconv"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/foodhall-backend/pkg/config"
	"github.com/angelmondragon/foodhall-backend/pkg/db/models"
	"github.com/angelmondragon/foodhall-backend/pkg/enums"
	"github.com/angelmondragon/foodhall-backend/pkg/logger"
	"github.com/angelmondragon/foodhall-backend/pkg/metrics"
	"github.com/angelmondragon/foodhall-backend/pkg/outbox/registry"
)

const (
	defaultBatchSize      = 50
	defaultPollInterval   = 500 * time.Millisecond
	defaultPublishTimeout = 15 * time.Second
	defaultMaxAttempts    = 10
	maxBackoff            = 10 * time.Second
	jitterWindow          = 250 * time.Millisecond
)

type dbClient interface {
	Ping(context.Context) error
	WithTx(context.Context, func(tx *gorm.DB) error) error
}

// broker is the message bus the relay writes to. *kafka.Client satisfies it.
type broker interface {
	Ping(context.Context) error
	Publish(ctx context.Context, topic string, key string, value []byte, headers map[string]string) error
}

type outboxRepository interface {
	FetchUnpublishedForPublish(tx *gorm.DB, limit, maxAttempts int) ([]models.OutboxEvent, error)
	MarkPublishedTx(tx *gorm.DB, id uuid.UUID) error
	MarkFailedTx(tx *gorm.DB, id uuid.UUID, err error) error
	MarkTerminalTx(tx *gorm.DB, id uuid.UUID, err error, terminalAttempts int) error
}

type dlqRepository interface {
	InsertTx(tx *gorm.DB, entry models.OutboxDLQ) error
}

type registryResolver interface {
	Resolve(models.OutboxEvent) (*registry.ResolvedEvent, error)
}

type ServiceParams struct {
	Config        *config.Config
	Logger        *logger.Logger
	DB            dbClient
	Broker        broker
	Repository    outboxRepository
	Registry      registryResolver
	DLQRepository dlqRepository
	// Metrics is optional.
	Metrics *metrics.OutboxMetrics
}

// Service relays committed outbox rows to the broker. Rows are claimed in a
// transaction, so several relays can run side by side without double sends.
type Service struct {
	logg         *logger.Logger
	db           dbClient
	repo         outboxRepository
	broker       broker
	registry     registryResolver
	dlq          dlqRepository
	metrics      *metrics.OutboxMetrics
	batchSize    int
	maxAttempts  int
	pollInterval time.Duration
}

func NewService(params ServiceParams) (*Service, error) {
	switch {
	case params.Config == nil:
		return nil, errors.New("config is required")
	case params.Logger == nil:
		return nil, errors.New("logger is required")
	case params.DB == nil:
		return nil, errors.New("database client is required")
	case params.Broker == nil:
		return nil, errors.New("broker is required")
	case params.Repository == nil:
		return nil, errors.New("outbox repository is required")
	case params.Registry == nil:
		return nil, errors.New("event registry is required")
	case params.DLQRepository == nil:
		return nil, errors.New("dlq repository is required")
	}

	cfg := params.Config.Outbox
	svc := &Service{
		logg:         params.Logger,
		db:           params.DB,
		repo:         params.Repository,
		broker:       params.Broker,
		registry:     params.Registry,
		dlq:          params.DLQRepository,
		metrics:      params.Metrics,
		batchSize:    cfg.BatchSize,
		maxAttempts:  cfg.MaxAttempts,
		pollInterval: time.Duration(cfg.PollIntervalMS) * time.Millisecond,
	}
	if svc.batchSize <= 0 {
		svc.batchSize = defaultBatchSize
	}
	if svc.maxAttempts <= 0 {
		svc.maxAttempts = defaultMaxAttempts
	}
	if svc.pollInterval <= 0 {
		svc.pollInterval = defaultPollInterval
	}
	return svc, nil
}

// Run polls until ctx is cancelled. An empty poll sleeps one interval; a
// failing batch backs off exponentially up to maxBackoff.
func (s *Service) Run(ctx context.Context) error {
	for name, ping := range map[string]func(context.Context) error{"database": s.db.Ping, "broker": s.broker.Ping} {
		if err := ping(ctx); err != nil {
			return fmt.Errorf("%s ping: %w", name, err)
		}
	}

	backoff := s.pollInterval
	for {
		if err := ctx.Err(); err != nil {
			s.logg.Info(ctx, "outbox publisher context canceled")
			return err
		}

		processed, err := s.processBatch(ctx)
		switch {
		case err != nil:
			s.logg.Error(ctx, "outbox publisher batch error", err)
			backoff = min(backoff*2, maxBackoff)
		case processed:
			backoff = s.pollInterval
			continue
		default:
			backoff = s.pollInterval
		}

		if err := sleep(ctx, withJitter(backoff)); err != nil {
			return err
		}
	}
}

type publishOutcome int

const (
	outcomePublished publishOutcome = iota
	outcomeRetry
	outcomeDeadLetter
)

func (o publishOutcome) label() string {
	switch o {
	case outcomePublished:
		return metrics.OutboxPublished
	case outcomeRetry:
		return metrics.OutboxRetried
	default:
		return metrics.OutboxDeadLettered
	}
}

// processBatch claims up to batchSize rows and settles each one inside the
// claiming transaction. It reports whether any row was claimed.
func (s *Service) processBatch(ctx context.Context) (bool, error) {
	processed := false
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		events, err := s.repo.FetchUnpublishedForPublish(tx, s.batchSize, s.maxAttempts)
		if err != nil {
			return err
		}
		if len(events) == 0 {
			return nil
		}
		processed = true
		s.metrics.Batch()

		for _, event := range events {
			outcome, publishErr := s.publish(ctx, event)
			if err := s.settle(ctx, tx, event, outcome, publishErr); err != nil {
				return err
			}
			s.metrics.Event(string(event.EventType), outcome.label())
		}
		return nil
	})
	return processed, err
}

// publish sends one event and classifies the result.
func (s *Service) publish(ctx context.Context, event models.OutboxEvent) (publishOutcome, error) {
	resolved, err := s.registry.Resolve(event)
	if err != nil {
		return outcomeDeadLetter, asNonRetryable(err)
	}
	topic := resolved.Descriptor.Topic
	if topic == "" {
		return outcomeDeadLetter, registry.NewNonRetryableError(fmt.Errorf("no topic configured for %s", event.EventType))
	}

	publishCtx, cancel := context.WithTimeout(ctx, defaultPublishTimeout)
	defer cancel()
	started := time.Now()
	err = s.broker.Publish(publishCtx, topic, aggregateKey(event), event.Payload, messageHeaders(event, resolved.Envelope.EventID))
	s.metrics.ObservePublish(topic, time.Since(started))

	var nonRetry registry.NonRetryableError
	switch {
	case err == nil:
		return outcomePublished, nil
	case errors.As(err, &nonRetry):
		return outcomeDeadLetter, err
	case event.AttemptCount+1 >= s.maxAttempts:
		return outcomeDeadLetter, fmt.Errorf("max publish attempts reached: %w", err)
	default:
		return outcomeRetry, err
	}
}

func (s *Service) settle(ctx context.Context, tx *gorm.DB, event models.OutboxEvent, outcome publishOutcome, publishErr error) error {
	logCtx := s.logg.WithFields(ctx, map[string]any{
		"outbox_id":      event.ID.String(),
		"event_type":     event.EventType,
		"aggregate_type": event.AggregateType,
		"aggregate_id":   event.AggregateID,
		"attempt_count":  event.AttemptCount + 1,
		"outcome":        outcome.label(),
	})

	switch outcome {
	case outcomePublished:
		if err := s.repo.MarkPublishedTx(tx, event.ID); err != nil {
			return fmt.Errorf("mark published %s: %w", event.ID, err)
		}
		s.logg.Debug(logCtx, "outbox event published")
		return nil

	case outcomeRetry:
		s.logg.Warn(s.logg.WithField(logCtx, "error", publishErr.Error()), "outbox publish failed")
		if err := s.repo.MarkFailedTx(tx, event.ID, publishErr); err != nil {
			return fmt.Errorf("mark failure %s: %w", event.ID, err)
		}
		return nil
	}

	reason := enums.OutboxDLQReasonMaxAttempts
	var nonRetry registry.NonRetryableError
	if errors.As(publishErr, &nonRetry) {
		reason = enums.OutboxDLQReasonNonRetryable
	}
	logCtx = s.logg.WithFields(logCtx, map[string]any{"error_reason": reason, "error": publishErr.Error()})
	s.logg.Warn(logCtx, "outbox event will not be retried")

	msg := publishErr.Error()
	entry := models.OutboxDLQ{
		EventID:       event.ID,
		EventType:     event.EventType,
		AggregateType: event.AggregateType,
		AggregateID:   event.AggregateID,
		Payload:       event.Payload,
		ErrorReason:   reason,
		ErrorMessage:  &msg,
		AttemptCount:  event.AttemptCount,
		FailedAt:      time.Now().UTC(),
	}
	if err := s.dlq.InsertTx(tx, entry); err != nil {
		return fmt.Errorf("insert dlq %s: %w", event.ID, err)
	}
	if err := s.repo.MarkTerminalTx(tx, event.ID, publishErr, s.maxAttempts); err != nil {
		return fmt.Errorf("mark terminal %s: %w", event.ID, err)
	}
	return nil
}

// asNonRetryable treats every resolve failure as permanent; the row will not
// decode differently on the next poll.
func asNonRetryable(err error) error {
	var nonRetry registry.NonRetryableError
	if errors.As(err, &nonRetry) {
		return err
	}
	return registry.NewNonRetryableError(err)
}

// aggregateKey keys messages by aggregate so every event of one order lands
// on the same partition in emission order.
func aggregateKey(event models.OutboxEvent) string {
	return string(event.AggregateType) + ":" + strconv.FormatInt(event.AggregateID, 10)
}

func messageHeaders(event models.OutboxEvent, envelopeID string) map[string]string {
	return map[string]string{
		"event_id":       envelopeID,
		"event_type":     string(event.EventType),
		"aggregate_type": string(event.AggregateType),
		"aggregate_id":   strconv.FormatInt(event.AggregateID, 10),
		"created_at":     event.CreatedAt.Format(time.RFC3339Nano),
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func withJitter(d time.Duration) time.Duration {
	return d + rand.N(jitterWindow)
}
