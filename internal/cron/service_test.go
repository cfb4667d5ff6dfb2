package cron

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/foodhall-backend/pkg/logger"
	"github.com/angelmondragon/foodhall-backend/pkg/metrics"
)

type fakeLock struct {
	held     bool
	released int
}

func (f *fakeLock) Acquire(context.Context) (bool, error) {
	if f.held {
		return false, nil
	}
	f.held = true
	return true, nil
}

func (f *fakeLock) Release(context.Context) error {
	f.held = false
	f.released++
	return nil
}

type testJob struct {
	name     string
	affected int64
	err      error
	runs     int
}

func (t *testJob) Name() string { return t.name }

func (t *testJob) Run(context.Context) (int64, error) {
	t.runs++
	return t.affected, t.err
}

func newTestService(t *testing.T, lock Lock, jobMetrics *metrics.JobMetrics, jobs ...Job) *Service {
	t.Helper()
	registry := NewRegistry()
	for _, job := range jobs {
		require.NoError(t, registry.Register(job))
	}
	svc, err := NewService(ServiceParams{
		Logger:   logger.Nop(),
		Registry: registry,
		Lock:     lock,
		Metrics:  jobMetrics,
	})
	require.NoError(t, err)
	return svc
}

func TestRunOnceRunsAllJobsEvenOnFailure(t *testing.T) {
	reg := prometheus.NewRegistry()
	success := &testJob{name: "order-expiry", affected: 2}
	failure := &testJob{name: "outbox-retention", err: errors.New("boom")}
	lock := &fakeLock{}
	svc := newTestService(t, lock, metrics.NewJobMetrics(reg), success, failure)

	ran, err := svc.RunOnce(context.Background())
	require.NoError(t, err)
	assert.True(t, ran)
	assert.Equal(t, 1, success.runs)
	assert.Equal(t, 1, failure.runs)
	assert.Equal(t, 1, lock.released)
	assert.False(t, lock.held)

	families, err := reg.Gather()
	require.NoError(t, err)
	names := map[string]bool{}
	for _, family := range families {
		names[family.GetName()] = true
	}
	assert.True(t, names["maintenance_job_runs_total"])
	assert.True(t, names["maintenance_job_affected_total"])
}

func TestRunOnceSkipsWhenLockHeld(t *testing.T) {
	job := &testJob{name: "order-expiry"}
	svc := newTestService(t, &fakeLock{held: true}, nil, job)

	ran, err := svc.RunOnce(context.Background())
	require.NoError(t, err)
	assert.False(t, ran)
	assert.Zero(t, job.runs)
}

func TestRunStopsOnCancel(t *testing.T) {
	job := &testJob{name: "order-expiry"}
	svc := newTestService(t, &LocalLock{}, nil, job)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := svc.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, job.runs, "a canceled context must not start jobs")
}

func TestNewServiceValidates(t *testing.T) {
	_, err := NewService(ServiceParams{Lock: &fakeLock{}})
	assert.Error(t, err)
	_, err = NewService(ServiceParams{Logger: logger.Nop()})
	assert.Error(t, err)
}
