package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"PaperTicker/internal/config"
)

// Scheduler paces the refresh loop. It never starts goroutines: Wait blocks
// the caller until the next activation.
type Scheduler struct {
	Schedule cron.Schedule
	Now      func() time.Time
	spec     string
}

// NewScheduler parses spec ("@every 50s", or a cron expression with optional seconds).
func NewScheduler(spec string) (*Scheduler, error) {
	sched, err := cron.NewParser(config.ScheduleOptions).Parse(spec)
	if err != nil {
		return nil, fmt.Errorf("parse refresh interval %q: %w", spec, err)
	}
	return &Scheduler{Schedule: sched, Now: time.Now, spec: spec}, nil
}

// String returns the schedule expression.
func (s *Scheduler) String() string { return s.spec }

// Next returns the next activation after now.
func (s *Scheduler) Next() time.Time {
	return s.Schedule.Next(s.Now())
}

// Wait blocks until the next activation or until ctx is done.
func (s *Scheduler) Wait(ctx context.Context) error {
	d := time.Until(s.Next())
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
