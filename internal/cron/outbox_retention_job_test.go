package cron

import (
	"context"
	"errors"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/angelmondragon/foodhall-backend/pkg/db"
	"github.com/angelmondragon/foodhall-backend/pkg/logger"
)

func TestOutboxRetentionJobDeletesOldRows(t *testing.T) {
	now := time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC)
	repo := &fakeOutboxRetentionRepo{deleted: 7}
	job := newOutboxRetentionJob(t, repo, 0)
	job.now = func() time.Time { return now }

	deleted, err := job.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if deleted != 7 {
		t.Fatalf("expected 7 deleted rows, got %d", deleted)
	}
	expectedCutoff := time.Date(2026, 1, 11, 0, 0, 0, 0, time.UTC)
	if !repo.lastCutoff.Equal(expectedCutoff) {
		t.Fatalf("expected cutoff %s, got %s", expectedCutoff, repo.lastCutoff)
	}
	if repo.minAttempts != outboxMinAttempts {
		t.Fatalf("expected min attempts %d, got %d", outboxMinAttempts, repo.minAttempts)
	}
	if repo.called != 1 {
		t.Fatalf("expected repo called once, got %d", repo.called)
	}
}

func TestOutboxRetentionJobHonoursConfiguredWindow(t *testing.T) {
	now := time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC)
	repo := &fakeOutboxRetentionRepo{}
	job := newOutboxRetentionJob(t, repo, 7)
	job.now = func() time.Time { return now }

	if _, err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if want := now.AddDate(0, 0, -7); !repo.lastCutoff.Equal(want) {
		t.Fatalf("expected cutoff %s, got %s", want, repo.lastCutoff)
	}
}

func TestOutboxRetentionJobPrunesDeadLetters(t *testing.T) {
	now := time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC)
	repo := &fakeOutboxRetentionRepo{deleted: 2}
	dead := &fakeDeadLetterPruner{deleted: 3}
	job := newOutboxRetentionJob(t, repo, 0)
	job.deadLetters = dead
	job.now = func() time.Time { return now }

	deleted, err := job.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if deleted != 5 {
		t.Fatalf("expected 5 rows across outbox and dlq, got %d", deleted)
	}
	if !dead.lastCutoff.Equal(repo.lastCutoff) {
		t.Fatalf("dlq cutoff %s differs from outbox cutoff %s", dead.lastCutoff, repo.lastCutoff)
	}

	dead.err = errors.New("dlq down")
	if _, err := job.Run(context.Background()); err == nil {
		t.Fatal("expected dlq error to surface")
	}
}

func TestOutboxRetentionJobPropagatesError(t *testing.T) {
	repo := &fakeOutboxRetentionRepo{err: errors.New("boom")}
	job := newOutboxRetentionJob(t, repo, 0)

	if _, err := job.Run(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}

func newOutboxRetentionJob(t *testing.T, repo *fakeOutboxRetentionRepo, retention int) *outboxRetentionJob {
	t.Helper()
	jobIface, err := NewOutboxRetentionJob(OutboxRetentionJobParams{
		Logger:     logger.Nop(),
		DB:         db.NoTx{},
		Repository: repo,
		Retention:  retention,
	})
	if err != nil {
		t.Fatalf("NewOutboxRetentionJob: %v", err)
	}
	job, ok := jobIface.(*outboxRetentionJob)
	if !ok {
		t.Fatalf("expected outboxRetentionJob, got %T", jobIface)
	}
	return job
}

type fakeOutboxRetentionRepo struct {
	lastCutoff  time.Time
	minAttempts int
	called      int
	deleted     int64
	err         error
}

func (f *fakeOutboxRetentionRepo) DeletePublishedBefore(_ context.Context, _ *gorm.DB, cutoff time.Time, minAttemptCount int) (int64, error) {
	f.called++
	f.lastCutoff = cutoff
	f.minAttempts = minAttemptCount
	if f.err != nil {
		return 0, f.err
	}
	return f.deleted, nil
}

type fakeDeadLetterPruner struct {
	lastCutoff time.Time
	deleted    int64
	err        error
}

func (f *fakeDeadLetterPruner) DeleteFailedBefore(_ context.Context, _ *gorm.DB, cutoff time.Time) (int64, error) {
	f.lastCutoff = cutoff
	if f.err != nil {
		return 0, f.err
	}
	return f.deleted, nil
}
