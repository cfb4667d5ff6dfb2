package cron

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/angelmondragon/foodhall-backend/pkg/db"
	"github.com/angelmondragon/foodhall-backend/pkg/logger"
)

const (
	outboxRetentionDays = 30
	outboxMinAttempts   = 10
)

type OutboxRetentionJobParams struct {
	Logger     *logger.Logger
	DB         db.TxRunner
	Repository outboxRetentionRepo
	// DeadLetters is optional; when set, dead-lettered events past the same
	// window are pruned in the same transaction.
	DeadLetters deadLetterPruner
	// Retention is in days.
	Retention   int
	MinAttempts int
}

type outboxRetentionRepo interface {
	DeletePublishedBefore(ctx context.Context, tx *gorm.DB, cutoff time.Time, minAttemptCount int) (int64, error)
}

type deadLetterPruner interface {
	DeleteFailedBefore(ctx context.Context, tx *gorm.DB, cutoff time.Time) (int64, error)
}

// NewOutboxRetentionJob prunes outbox rows that are published or exhausted
// and older than the retention window.
func NewOutboxRetentionJob(params OutboxRetentionJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("db runner required")
	}
	if params.Repository == nil {
		return nil, fmt.Errorf("outbox repository required")
	}
	retention := params.Retention
	if retention <= 0 {
		retention = outboxRetentionDays
	}
	minAttempts := params.MinAttempts
	if minAttempts <= 0 {
		minAttempts = outboxMinAttempts
	}
	return &outboxRetentionJob{
		logg:        params.Logger,
		db:          params.DB,
		repo:        params.Repository,
		deadLetters: params.DeadLetters,
		retention:   retention,
		minAttempts: minAttempts,
		now:         time.Now,
	}, nil
}

type outboxRetentionJob struct {
	logg        *logger.Logger
	db          db.TxRunner
	repo        outboxRetentionRepo
	deadLetters deadLetterPruner
	retention   int
	minAttempts int
	now         func() time.Time
}

func (j *outboxRetentionJob) Name() string { return "outbox-retention" }

func (j *outboxRetentionJob) Run(ctx context.Context) (int64, error) {
	cutoff := j.now().UTC().AddDate(0, 0, -j.retention)
	var deleted, deadLettered int64
	err := j.db.WithTx(ctx, func(tx *gorm.DB) error {
		rows, err := j.repo.DeletePublishedBefore(ctx, tx, cutoff, j.minAttempts)
		if err != nil {
			return err
		}
		deleted = rows
		if j.deadLetters == nil {
			return nil
		}
		deadLettered, err = j.deadLetters.DeleteFailedBefore(ctx, tx, cutoff)
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("outbox retention: %w", err)
	}
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"cutoff":         cutoff,
		"retention_days": j.retention,
		"min_attempts":   j.minAttempts,
		"rows_deleted":   deleted,
		"dlq_deleted":    deadLettered,
	})
	j.logg.Info(logCtx, "outbox retention cleanup complete")
	return deleted + deadLettered, nil
}
