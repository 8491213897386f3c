package schedule

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// Job is the operation a Scheduler triggers. It must capture its own
// failures: nothing a job returns or panics with reaches the cron runner.
type Job func(ctx context.Context)

// Scheduler runs a single job on a cron spec. Overlapping runs are skipped
// rather than queued, which suits an idempotent batch job.
type Scheduler struct {
	cron    *cron.Cron
	job     Job
	timeout time.Duration
}

// New builds a scheduler for the given standard 5-field cron spec. timeout
// bounds each run; zero means unbounded.
func New(spec string, timeout time.Duration, job Job) (*Scheduler, error) {
	s := &Scheduler{
		cron: cron.New(cron.WithChain(
			cron.SkipIfStillRunning(cron.DefaultLogger),
		)),
		job:     job,
		timeout: timeout,
	}

	if _, err := s.cron.AddFunc(spec, s.run); err != nil {
		return nil, fmt.Errorf("invalid cron spec %q: %w", spec, err)
	}

	return s, nil
}

func (s *Scheduler) run() {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("scheduled job panicked", "panic", r)
		}
	}()

	ctx := context.Background()

	if s.timeout > 0 {
		var cancel context.CancelFunc

		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	s.job(ctx)
}

func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop halts scheduling and waits for an in-flight run to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}
