package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/foodhall-backend/pkg/db/models"
	"github.com/angelmondragon/foodhall-backend/pkg/enums"
	"github.com/angelmondragon/foodhall-backend/pkg/logger"
)

const envelopeVersion = 1

// DomainEvent is what services hand to Emit. AggregateType may be left empty;
// it is derived from EventType.
type DomainEvent struct {
	EventType     enums.OutboxEventType
	AggregateType enums.OutboxAggregateType
	AggregateID   int64
	Actor         *ActorRef
	Data          any
	OccurredAt    time.Time
}

// Emitter queues domain events inside the caller's transaction.
type Emitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event DomainEvent) error
}

type Service struct {
	repo   *Repository
	logg   *logger.Logger
	source string
}

func NewService(repo *Repository, logg *logger.Logger) *Service {
	return &Service{repo: repo, logg: logg}
}

// WithSource stamps the emitting binary on every envelope.
func (s *Service) WithSource(source string) *Service {
	clone := *s
	clone.source = source
	return &clone
}

// Emit writes the event row through tx, so it commits or rolls back with the
// state change that caused it.
func (s *Service) Emit(ctx context.Context, tx *gorm.DB, event DomainEvent) error {
	if tx == nil {
		return errors.New("transaction required")
	}
	if err := normalize(&event); err != nil {
		return err
	}

	data, err := json.Marshal(event.Data)
	if err != nil {
		return fmt.Errorf("encode %s data: %w", event.EventType, err)
	}
	envelope := PayloadEnvelope{
		Version:     envelopeVersion,
		EventID:     uuid.NewString(),
		Type:        event.EventType,
		AggregateID: event.AggregateID,
		Source:      s.source,
		OccurredAt:  event.OccurredAt,
		Actor:       event.Actor,
		Data:        data,
	}
	body, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("encode %s envelope: %w", event.EventType, err)
	}

	if err := s.repo.Insert(tx, models.OutboxEvent{
		ID:            uuid.New(),
		EventType:     event.EventType,
		AggregateType: event.AggregateType,
		AggregateID:   event.AggregateID,
		Payload:       body,
	}); err != nil {
		return err
	}

	if s.logg != nil {
		s.logg.Debug(s.logg.WithFields(ctx, map[string]any{
			"event_id":     envelope.EventID,
			"event_type":   event.EventType,
			"aggregate_id": event.AggregateID,
		}), "outbox event queued")
	}
	return nil
}

func normalize(event *DomainEvent) error {
	aggregate := event.EventType.Aggregate()
	if aggregate == "" {
		return fmt.Errorf("unknown event type %q", event.EventType)
	}
	if event.AggregateType == "" {
		event.AggregateType = aggregate
	}
	if event.AggregateType != aggregate {
		return fmt.Errorf("event %s belongs to %s, not %s", event.EventType, aggregate, event.AggregateType)
	}
	if event.AggregateID <= 0 {
		return fmt.Errorf("event %s needs a positive aggregate id", event.EventType)
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now()
	}
	event.OccurredAt = event.OccurredAt.UTC()
	return nil
}

// NopEmitter drops events. Used by the in-memory backend, which has no outbox table.
type NopEmitter struct{}

func (NopEmitter) Emit(context.Context, *gorm.DB, DomainEvent) error {
	return nil
}
