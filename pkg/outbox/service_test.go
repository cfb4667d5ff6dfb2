package outbox_test

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/foodhall-backend/pkg/db/dbtest"
	"github.com/angelmondragon/foodhall-backend/pkg/db/models"
	"github.com/angelmondragon/foodhall-backend/pkg/enums"
	"github.com/angelmondragon/foodhall-backend/pkg/logger"
	"github.com/angelmondragon/foodhall-backend/pkg/outbox"
	"github.com/angelmondragon/foodhall-backend/pkg/outbox/payloads"
)

func TestEmitWritesEnvelopeRow(t *testing.T) {
	conn := dbtest.Open(t)
	svc := outbox.NewService(outbox.NewRepository(conn), logger.Nop()).WithSource("api")

	err := conn.Transaction(func(tx *gorm.DB) error {
		return svc.Emit(context.Background(), tx, outbox.DomainEvent{
			EventType:     enums.EventOrderCourierAssigned,
			AggregateType: enums.AggregateOrder,
			AggregateID:   11,
			Actor:         &outbox.ActorRef{UserID: 5, Role: enums.RoleSeller},
			Data:          payloads.OrderCourierAssignedEvent{OrderID: 11, SellerID: 2, CourierID: 9},
		})
	})
	require.NoError(t, err)

	var rows []models.OutboxEvent
	require.NoError(t, conn.Find(&rows).Error)
	require.Len(t, rows, 1)
	assert.Equal(t, int64(11), rows[0].AggregateID)
	assert.Nil(t, rows[0].PublishedAt)

	var env outbox.PayloadEnvelope
	require.NoError(t, json.Unmarshal(rows[0].Payload, &env))
	assert.Equal(t, 1, env.Version)
	assert.NotEmpty(t, env.EventID)
	assert.Equal(t, enums.EventOrderCourierAssigned, env.Type)
	assert.Equal(t, int64(11), env.AggregateID)
	assert.Equal(t, "api", env.Source)
	require.NotNil(t, env.Actor)
	assert.Equal(t, enums.RoleSeller, env.Actor.Role)

	var data payloads.OrderCourierAssignedEvent
	require.NoError(t, json.Unmarshal(env.Data, &data))
	assert.Equal(t, int64(9), data.CourierID)
}

func TestEmitRequiresTransaction(t *testing.T) {
	svc := outbox.NewService(outbox.NewRepository(nil), nil)
	err := svc.Emit(context.Background(), nil, outbox.DomainEvent{})
	require.Error(t, err)
}

func TestEmitValidatesEventShape(t *testing.T) {
	conn := dbtest.Open(t)
	svc := outbox.NewService(outbox.NewRepository(conn), nil)

	cases := []outbox.DomainEvent{
		{EventType: "menu_changed", AggregateID: 1},
		{EventType: enums.EventOrderCreated, AggregateType: enums.AggregateWalletTransaction, AggregateID: 1},
		{EventType: enums.EventOrderCreated},
	}
	for _, event := range cases {
		err := conn.Transaction(func(tx *gorm.DB) error {
			return svc.Emit(context.Background(), tx, event)
		})
		require.Error(t, err, "event %+v", event)
	}

	require.NoError(t, conn.Transaction(func(tx *gorm.DB) error {
		return svc.Emit(context.Background(), tx, outbox.DomainEvent{
			EventType:   enums.EventWalletTransactionRecorded,
			AggregateID: 3,
			Data:        payloads.WalletTransactionRecordedEvent{},
		})
	}))
	var row models.OutboxEvent
	require.NoError(t, conn.Take(&row).Error)
	assert.Equal(t, enums.AggregateWalletTransaction, row.AggregateType)
}

func TestEmitRollsBackWithTransaction(t *testing.T) {
	conn := dbtest.Open(t)
	svc := outbox.NewService(outbox.NewRepository(conn), nil)

	boom := errors.New("boom")
	err := conn.Transaction(func(tx *gorm.DB) error {
		if err := svc.Emit(context.Background(), tx, outbox.DomainEvent{
			EventType:     enums.EventOrderCreated,
			AggregateType: enums.AggregateOrder,
			AggregateID:   1,
			Data:          payloads.OrderCreatedEvent{OrderID: 1},
		}); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	var count int64
	require.NoError(t, conn.Model(&models.OutboxEvent{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestRepositoryPublishLifecycle(t *testing.T) {
	conn := dbtest.Open(t)
	repo := outbox.NewRepository(conn)
	svc := outbox.NewService(repo, nil)

	require.NoError(t, conn.Transaction(func(tx *gorm.DB) error {
		for i := int64(1); i <= 3; i++ {
			if err := svc.Emit(context.Background(), tx, outbox.DomainEvent{
				EventType:     enums.EventOrderCreated,
				AggregateType: enums.AggregateOrder,
				AggregateID:   i,
				Data:          payloads.OrderCreatedEvent{OrderID: i},
			}); err != nil {
				return err
			}
		}
		return nil
	}))

	var fetched []models.OutboxEvent
	require.NoError(t, conn.Transaction(func(tx *gorm.DB) error {
		var err error
		fetched, err = repo.FetchUnpublishedForPublish(tx, 10, 3)
		return err
	}))
	require.Len(t, fetched, 3)

	require.NoError(t, conn.Transaction(func(tx *gorm.DB) error {
		if err := repo.MarkPublishedTx(tx, fetched[0].ID); err != nil {
			return err
		}
		if err := repo.MarkFailedTx(tx, fetched[1].ID, errors.New("broker down")); err != nil {
			return err
		}
		return repo.MarkTerminalTx(tx, fetched[2].ID, errors.New("bad payload"), 3)
	}))

	var pending []models.OutboxEvent
	require.NoError(t, conn.Transaction(func(tx *gorm.DB) error {
		var err error
		pending, err = repo.FetchUnpublishedForPublish(tx, 10, 3)
		return err
	}))
	require.Len(t, pending, 1)
	assert.Equal(t, fetched[1].ID, pending[0].ID)
	assert.Equal(t, 1, pending[0].AttemptCount)
	require.NotNil(t, pending[0].LastError)
	assert.Equal(t, "broker down", *pending[0].LastError)
}

func TestRepositoryDeletePublishedBefore(t *testing.T) {
	conn := dbtest.Open(t)
	repo := outbox.NewRepository(conn)
	old := time.Now().UTC().Add(-48 * time.Hour)
	published := old.Add(time.Minute)

	rows := []models.OutboxEvent{
		{ID: uuid.New(), EventType: enums.EventOrderCreated, AggregateType: enums.AggregateOrder, AggregateID: 1, Payload: []byte(`{}`), CreatedAt: old, PublishedAt: &published},
		{ID: uuid.New(), EventType: enums.EventOrderCreated, AggregateType: enums.AggregateOrder, AggregateID: 2, Payload: []byte(`{}`), CreatedAt: old, AttemptCount: 5},
		{ID: uuid.New(), EventType: enums.EventOrderCreated, AggregateType: enums.AggregateOrder, AggregateID: 3, Payload: []byte(`{}`), CreatedAt: old, AttemptCount: 1},
		{ID: uuid.New(), EventType: enums.EventOrderCreated, AggregateType: enums.AggregateOrder, AggregateID: 4, Payload: []byte(`{}`), CreatedAt: time.Now().UTC(), PublishedAt: &published},
	}
	require.NoError(t, conn.Create(&rows).Error)

	deleted, err := repo.DeletePublishedBefore(context.Background(), nil, time.Now().UTC().Add(-24*time.Hour), 5)
	require.NoError(t, err)
	assert.Equal(t, int64(2), deleted)

	var remaining []models.OutboxEvent
	require.NoError(t, conn.Order("aggregate_id ASC").Find(&remaining).Error)
	require.Len(t, remaining, 2)
	assert.Equal(t, int64(3), remaining[0].AggregateID)
	assert.Equal(t, int64(4), remaining[1].AggregateID)
}

func TestDLQRepositoryInsertFindAndPrune(t *testing.T) {
	conn := dbtest.Open(t)
	dlq := outbox.NewDLQRepository(conn)
	ctx := context.Background()

	msg := strings.Repeat("x", 1023) + "é"
	entry := models.OutboxDLQ{
		EventID:       uuid.New(),
		EventType:     enums.EventOrderCreated,
		AggregateType: enums.AggregateOrder,
		AggregateID:   4,
		Payload:       json.RawMessage(`{"version":1}`),
		ErrorReason:   enums.OutboxDLQReasonNonRetryable,
		ErrorMessage:  &msg,
	}
	require.NoError(t, conn.Transaction(func(tx *gorm.DB) error {
		return dlq.InsertTx(tx, entry)
	}))

	found, err := dlq.FindByEventID(ctx, entry.EventID)
	require.NoError(t, err)
	require.NotNil(t, found.ErrorMessage)
	assert.Equal(t, strings.Repeat("x", 1023), *found.ErrorMessage)
	assert.False(t, found.FailedAt.IsZero())

	_, err = dlq.FindByEventID(ctx, uuid.New())
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	deleted, err := dlq.DeleteFailedBefore(ctx, nil, found.FailedAt.Add(-time.Hour))
	require.NoError(t, err)
	assert.Zero(t, deleted)

	deleted, err = dlq.DeleteFailedBefore(ctx, nil, found.FailedAt.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)
}
