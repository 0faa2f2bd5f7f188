package crontab

import (
	"context"
	"fmt"
	"time"

	"github.com/adhocore/gronx"
	"github.com/mileusna/crontab"
	"github.com/rs/zerolog"
)

// JobTimeout bounds a single scheduled run.
const JobTimeout = 30 * time.Minute

// Job is one scheduled task.
type Job struct {
	Name string
	Spec string
	Run  func(ctx context.Context) error
}

type Crontab struct {
	ctab *crontab.Crontab
	jobs []Job
	log  zerolog.Logger
}

func NewCrontab(log zerolog.Logger, jobs ...Job) *Crontab {
	return &Crontab{
		ctab: crontab.New(),
		jobs: jobs,
		log:  log.With().Str("component", "crontab").Logger(),
	}
}

// Run registers every job with a non-empty spec and blocks until ctx is
// done.
func (c *Crontab) Run(ctx context.Context) error {
	for _, job := range c.jobs {
		if job.Spec == "" {
			c.log.Warn().Str("job", job.Name).Msg("job disabled")
			continue
		}
		job := job
		if err := c.ctab.AddJob(job.Spec, func() { c.execute(ctx, job) }); err != nil {
			return fmt.Errorf("schedule %s (%s): %w", job.Name, job.Spec, err)
		}
		event := c.log.Info().Str("job", job.Name).Str("spec", job.Spec)
		if next, err := NextRun(job.Spec, time.Now()); err == nil {
			event = event.Time("next_run", next)
		}
		event.Msg("job scheduled")
	}

	<-ctx.Done()
	c.ctab.Shutdown()
	return nil
}

func (c *Crontab) execute(parent context.Context, job Job) {
	if parent.Err() != nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(parent), JobTimeout)
	defer cancel()

	start := time.Now()
	if err := job.Run(ctx); err != nil {
		c.log.Error().Err(err).Str("job", job.Name).Msg("scheduled job failed")
		return
	}
	c.log.Info().Str("job", job.Name).Dur("took", time.Since(start)).Msg("scheduled job finished")
}

// NextRun returns the first time after now that spec fires.
func NextRun(spec string, now time.Time) (time.Time, error) {
	return gronx.NextTickAfter(spec, now, false)
}
