package cron

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/multierr"

	"github.com/angelmondragon/foodhall-backend/internal/orders"
	"github.com/angelmondragon/foodhall-backend/pkg/db/models"
	"github.com/angelmondragon/foodhall-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/foodhall-backend/pkg/errors"
	"github.com/angelmondragon/foodhall-backend/pkg/logger"
)

const (
	defaultPendingOrderTTL = 30 * time.Minute
	orderExpiryBatchSize   = 100
)

// systemActor cancels on behalf of the platform. Admin rights let it cancel
// any pending order, and wallet orders are refunded by the cancellation.
var systemActor = orders.Actor{Role: enums.RoleAdmin}

type OrderExpiryJobParams struct {
	Logger    *logger.Logger
	Pending   pendingOrderReader
	Canceller orderCanceller
	TTL       time.Duration
	BatchSize int
}

type pendingOrderReader interface {
	ListPendingBefore(ctx context.Context, cutoff time.Time, limit int) ([]models.Order, error)
}

type orderCanceller interface {
	Cancel(ctx context.Context, actor orders.Actor, orderID int64) (*models.Order, error)
}

// NewOrderExpiryJob cancels orders no seller confirmed within the TTL.
func NewOrderExpiryJob(params OrderExpiryJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Pending == nil {
		return nil, fmt.Errorf("pending orders reader required")
	}
	if params.Canceller == nil {
		return nil, fmt.Errorf("order canceller required")
	}
	ttl := params.TTL
	if ttl <= 0 {
		ttl = defaultPendingOrderTTL
	}
	batch := params.BatchSize
	if batch <= 0 {
		batch = orderExpiryBatchSize
	}
	return &orderExpiryJob{
		logg:      params.Logger,
		pending:   params.Pending,
		canceller: params.Canceller,
		ttl:       ttl,
		batch:     batch,
		now:       time.Now,
	}, nil
}

type orderExpiryJob struct {
	logg      *logger.Logger
	pending   pendingOrderReader
	canceller orderCanceller
	ttl       time.Duration
	batch     int
	now       func() time.Time
}

func (j *orderExpiryJob) Name() string { return "order-expiry" }

// Run cancels one batch per cycle. An order that moved on between the read
// and the cancel is skipped.
func (j *orderExpiryJob) Run(ctx context.Context) (int64, error) {
	cutoff := j.now().UTC().Add(-j.ttl)
	stale, err := j.pending.ListPendingBefore(ctx, cutoff, j.batch)
	if err != nil {
		return 0, fmt.Errorf("query stale pending orders: %w", err)
	}

	var (
		cancelled int64
		skipped   int
		errs      error
	)
	for _, order := range stale {
		if ctx.Err() != nil {
			errs = multierr.Append(errs, ctx.Err())
			break
		}
		_, err := j.canceller.Cancel(ctx, systemActor, order.ID)
		switch {
		case err == nil:
			cancelled++
		case pkgerrors.IsCode(err, pkgerrors.CodeIllegalTransition):
			skipped++
		default:
			errs = multierr.Append(errs, fmt.Errorf("cancel order %d: %w", order.ID, err))
		}
	}

	logCtx := j.logg.WithFields(ctx, map[string]any{
		"cutoff":    cutoff,
		"found":     len(stale),
		"cancelled": cancelled,
		"skipped":   skipped,
	})
	j.logg.Info(logCtx, "stale pending orders expired")
	return cancelled, errs
}
