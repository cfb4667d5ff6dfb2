package cron

import (
	"context"
	"fmt"
)

// Job is one maintenance task. Run reports how many rows it changed.
type Job interface {
	Name() string
	Run(ctx context.Context) (int64, error)
}

// Registry keeps jobs in registration order.
type Registry struct {
	jobs  []Job
	names map[string]struct{}
}

func NewRegistry() *Registry {
	return &Registry{names: make(map[string]struct{})}
}

// Register adds job, rejecting nil jobs and duplicate names.
func (r *Registry) Register(job Job) error {
	if job == nil {
		return fmt.Errorf("job required")
	}
	name := job.Name()
	if _, exists := r.names[name]; exists {
		return fmt.Errorf("job %q already registered", name)
	}
	r.names[name] = struct{}{}
	r.jobs = append(r.jobs, job)
	return nil
}

func (r *Registry) Jobs() []Job {
	jobs := make([]Job, len(r.jobs))
	copy(jobs, r.jobs)
	return jobs
}
