// Package scheduler wraps gocron to trigger the export job as a named
// one-shot task at process start. Job persistence and retry policy belong to
// the scheduler layer, not the pipeline; the runner only exposes the task
// name and its entry point.
package scheduler

import (
	"fmt"

	"github.com/go-co-op/gocron/v2"
	"go.uber.org/zap"

	"github.com/synthstream/exportd/internal/infrastructure/logging"
)

// ExportTaskName is the name the pipeline job is registered under.
const ExportTaskName = "dataset-export"

// Scheduler owns the gocron scheduler and its lifecycle.
type Scheduler struct {
	inner  gocron.Scheduler
	logger *logging.Logger
}

// New creates a scheduler.
func New(logger *logging.Logger) (*Scheduler, error) {
	inner, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("create scheduler: %w", err)
	}
	return &Scheduler{inner: inner, logger: logger}, nil
}

// RunNow registers task under name as a one-time job that starts
// immediately once the scheduler starts. Task errors surface here as the
// job failure; the task itself never retries.
func (s *Scheduler) RunNow(name string, task func() error) error {
	_, err := s.inner.NewJob(
		gocron.OneTimeJob(gocron.OneTimeJobStartImmediately()),
		gocron.NewTask(func() {
			s.logger.Info("Job triggered", zap.String("job", name))
			if err := task(); err != nil {
				s.logger.Error("Job failed", zap.String("job", name), zap.Error(err))
				return
			}
			s.logger.Info("Job finished", zap.String("job", name))
		}),
		gocron.WithName(name),
	)
	if err != nil {
		return fmt.Errorf("register job %s: %w", name, err)
	}
	return nil
}

// Start begins executing registered jobs.
func (s *Scheduler) Start() {
	s.inner.Start()
}

// Shutdown stops the scheduler and waits for running jobs to release.
func (s *Scheduler) Shutdown() error {
	return s.inner.Shutdown()
}
