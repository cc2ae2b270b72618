package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"IntakeRobot/internal/ports"
)

// CronScheduler triggers intake runs on a cron expression. The first run
// fires immediately so a fresh deploy drains the backlog without waiting
// for the next tick.
type CronScheduler struct {
	spec     string
	location *time.Location
	cron     *cron.Cron
}

var _ ports.Scheduler = (*CronScheduler)(nil)

// NewCronScheduler builds a scheduler from a standard 5-field expression.
func NewCronScheduler(spec string, location *time.Location) *CronScheduler {
	if location == nil {
		location = time.UTC
	}
	return &CronScheduler{spec: spec, location: location}
}

// Start runs the job once, then registers it with the cron driver.
func (c *CronScheduler) Start(ctx context.Context, job func(time.Time)) error {
	if job == nil {
		return nil
	}
	if c.cron != nil {
		return nil
	}

	c.cron = cron.New(cron.WithLocation(c.location))
	if _, err := c.cron.AddFunc(c.spec, func() { job(time.Now().In(c.location)) }); err != nil {
		c.cron = nil
		return fmt.Errorf("register cron %q: %w", c.spec, err)
	}

	job(time.Now().In(c.location))
	c.cron.Start()
	return nil
}

// Stop halts the cron driver and waits for a running job to finish.
func (c *CronScheduler) Stop(ctx context.Context) error {
	if c.cron == nil {
		return nil
	}
	stopCtx := c.cron.Stop()
	select {
	case <-stopCtx.Done():
	case <-ctx.Done():
	}
	c.cron = nil
	return nil
}
