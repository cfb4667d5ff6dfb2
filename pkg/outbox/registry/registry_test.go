package registry

import (
	"encoding/json"
	"errors"
	"sort"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/foodhall-backend/pkg/config"
	"github.com/angelmondragon/foodhall-backend/pkg/db/models"
	"github.com/angelmondragon/foodhall-backend/pkg/enums"
	"github.com/angelmondragon/foodhall-backend/pkg/outbox"
	"github.com/angelmondragon/foodhall-backend/pkg/outbox/payloads"
)

func TestEventRegistryResolveSuccess(t *testing.T) {
	reg := newTestEventRegistry(t)

	payloadBytes := mustMarshal(t, payloads.OrderCreatedEvent{
		OrderID:     42,
		OrderNumber: "FH-20260105-abcd1234",
		Total:       "249.99",
	})

	event := models.OutboxEvent{
		ID:            uuid.New(),
		EventType:     enums.EventOrderCreated,
		AggregateType: enums.AggregateOrder,
		AggregateID:   42,
		Payload:       mustEnvelope(t, payloadBytes),
	}

	resolved, err := reg.Resolve(event)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resolved.Descriptor.Topic != "orders-topic" {
		t.Fatalf("unexpected topic %q", resolved.Descriptor.Topic)
	}
	payload, ok := resolved.Payload.(*payloads.OrderCreatedEvent)
	if !ok {
		t.Fatalf("unexpected payload type %T", resolved.Payload)
	}
	if payload.OrderID != 42 || payload.Total != "249.99" {
		t.Fatalf("payload mismatch %+v", payload)
	}
	if resolved.Envelope.EventID == "" {
		t.Fatalf("envelope missing event id")
	}
}

func TestEventRegistryRoutesWalletEvents(t *testing.T) {
	reg := newTestEventRegistry(t)

	event := models.OutboxEvent{
		EventType:     enums.EventWalletTransactionRecorded,
		AggregateType: enums.AggregateWalletTransaction,
		AggregateID:   7,
		Payload: mustEnvelope(t, mustMarshal(t, payloads.WalletTransactionRecordedEvent{
			TransactionID: 7,
			Type:          enums.WalletTxDeposit,
			Amount:        "300.00",
		})),
	}
	resolved, err := reg.Resolve(event)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resolved.Descriptor.Topic != "wallet-topic" {
		t.Fatalf("unexpected topic %q", resolved.Descriptor.Topic)
	}

	topics := reg.Topics()
	sort.Strings(topics)
	if len(topics) != 2 || topics[0] != "orders-topic" || topics[1] != "wallet-topic" {
		t.Fatalf("unexpected topics %v", topics)
	}
}

func TestEventRegistryResolveUnknownEvent(t *testing.T) {
	reg := newTestEventRegistry(t)

	event := models.OutboxEvent{
		EventType:     enums.OutboxEventType("coupon_redeemed"),
		AggregateType: enums.AggregateOrder,
		AggregateID:   1,
		Payload:       mustEnvelope(t, []byte(`{"reason":"none"}`)),
	}

	_, err := reg.Resolve(event)
	assertNonRetryable(t, err)
}

func TestEventRegistryResolveAggregateMismatch(t *testing.T) {
	reg := newTestEventRegistry(t)

	event := models.OutboxEvent{
		EventType:     enums.EventOrderCreated,
		AggregateType: enums.AggregateWalletTransaction,
		AggregateID:   1,
		Payload:       mustEnvelope(t, []byte(`{"order_id":1}`)),
	}

	_, err := reg.Resolve(event)
	assertNonRetryable(t, err)
}

func TestEventRegistryResolveMissingAggregateID(t *testing.T) {
	reg := newTestEventRegistry(t)

	event := models.OutboxEvent{
		EventType:     enums.EventOrderCreated,
		AggregateType: enums.AggregateOrder,
		Payload:       mustEnvelope(t, []byte(`{"order_id":1}`)),
	}

	_, err := reg.Resolve(event)
	assertNonRetryable(t, err)
}

func TestEventRegistryResolveEmptyPayload(t *testing.T) {
	reg := newTestEventRegistry(t)

	event := models.OutboxEvent{
		EventType:     enums.EventOrderStatusChanged,
		AggregateType: enums.AggregateOrder,
		AggregateID:   3,
		Payload:       mustEnvelope(t, []byte(`null`)),
	}

	_, err := reg.Resolve(event)
	assertNonRetryable(t, err)
}

func TestNewEventRegistryRequiresTopics(t *testing.T) {
	if _, err := NewEventRegistry(config.KafkaConfig{OrdersTopic: "orders"}); err == nil {
		t.Fatal("expected missing wallet topic to fail")
	}
	if _, err := NewEventRegistry(config.KafkaConfig{WalletTopic: "wallet"}); err == nil {
		t.Fatal("expected missing orders topic to fail")
	}
}

func assertNonRetryable(t *testing.T, err error) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected error")
	}
	var nonRetry NonRetryableError
	if !errors.As(err, &nonRetry) {
		t.Fatalf("expected non-retryable error, got %T", err)
	}
}

func newTestEventRegistry(t *testing.T) *EventRegistry {
	t.Helper()
	reg, err := NewEventRegistry(config.KafkaConfig{
		OrdersTopic: "orders-topic",
		WalletTopic: "wallet-topic",
	})
	if err != nil {
		t.Fatalf("build registry: %v", err)
	}
	return reg
}

func mustMarshal(t *testing.T, v interface{}) []byte {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	return data
}

func mustEnvelope(t *testing.T, data []byte) json.RawMessage {
	t.Helper()
	env := outbox.PayloadEnvelope{
		Version:    1,
		EventID:    uuid.NewString(),
		OccurredAt: time.Now(),
		Data:       data,
	}
	return mustMarshal(t, env)
}
