// Package scheduler runs named jobs on cron schedules.
//
// Each job runs in its own supervised loop, so a job never overlaps with
// itself and a slow job does not delay the others. A firing that is noticed
// later than the misfire grace period is skipped, not run late.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/marmos91/botkit/internal/logger"
	"github.com/marmos91/botkit/internal/telemetry"
	"github.com/marmos91/botkit/pkg/supervisor"
	"github.com/robfig/cron/v3"
	"go.opentelemetry.io/otel/attribute"
)

// DefaultMisfireGrace is how late a firing may start before it is skipped.
const DefaultMisfireGrace = 60 * time.Second

// ErrDuplicateJob is returned when a job name is registered twice.
var ErrDuplicateJob = errors.New("scheduler: duplicate job name")

// JobFunc is the body of a job. It should return promptly when ctx is done.
type JobFunc func(ctx context.Context) error

// Metrics observes job executions. A nil Metrics disables collection.
type Metrics interface {
	ObserveJob(job string, duration time.Duration, err error)
	RecordMisfire(job string)
	SetNextRun(job string, at time.Time)
}

type job struct {
	name     string
	spec     string
	schedule cron.Schedule
	fn       JobFunc
}

// Scheduler holds the registered jobs.
type Scheduler struct {
	jobs     []*job
	names    map[string]bool
	location *time.Location
	grace    time.Duration
	metrics  Metrics
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithLocation sets the time zone schedules are evaluated in. Default: UTC.
func WithLocation(loc *time.Location) Option {
	return func(s *Scheduler) { s.location = loc }
}

// WithMisfireGrace sets the misfire grace period.
func WithMisfireGrace(d time.Duration) Option {
	return func(s *Scheduler) { s.grace = d }
}

// WithMetrics sets the metrics sink.
func WithMetrics(m Metrics) Option {
	return func(s *Scheduler) { s.metrics = m }
}

// New creates an empty scheduler.
func New(opts ...Option) *Scheduler {
	s := &Scheduler{
		names:    make(map[string]bool),
		location: time.UTC,
		grace:    DefaultMisfireGrace,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Add registers a job on a standard five-field cron spec or a descriptor
// such as "@hourly" or "@every 5m". Specs are evaluated in the scheduler's
// location unless they carry a CRON_TZ= prefix.
func (s *Scheduler) Add(name, spec string, fn JobFunc) error {
	schedule, err := cron.ParseStandard(spec)
	if err != nil {
		return fmt.Errorf("job %s: invalid schedule %q: %w", name, spec, err)
	}
	return s.add(name, spec, schedule, fn)
}

// AddSchedule registers a job on an arbitrary schedule.
func (s *Scheduler) AddSchedule(name string, schedule cron.Schedule, fn JobFunc) error {
	return s.add(name, fmt.Sprintf("%T", schedule), schedule, fn)
}

func (s *Scheduler) add(name, spec string, schedule cron.Schedule, fn JobFunc) error {
	if s.names[name] {
		return fmt.Errorf("%w: %s", ErrDuplicateJob, name)
	}
	s.names[name] = true
	s.jobs = append(s.jobs, &job{name: name, spec: spec, schedule: schedule, fn: fn})
	return nil
}

// Jobs returns the registered job names in registration order.
func (s *Scheduler) Jobs() []string {
	names := make([]string, len(s.jobs))
	for i, j := range s.jobs {
		names[i] = j.name
	}
	return names
}

// Start spawns one supervised loop per job into g. Cancelling the group
// stops the loops; a running job observes the cancellation through its ctx.
func (s *Scheduler) Start(ctx context.Context, g *supervisor.Group) {
	for _, j := range s.jobs {
		logger.Info("Job scheduled", logger.KeyJob, j.name, "schedule", j.spec)
		g.Spawn(ctx, "scheduler/"+j.name, func(ctx context.Context) error {
			return s.loop(ctx, j)
		})
	}
}

func (s *Scheduler) loop(ctx context.Context, j *job) error {
	ctx = logger.WithJob(ctx, j.name)

	next := j.schedule.Next(time.Now().In(s.location))
	for {
		if next.IsZero() {
			logger.WarnCtx(ctx, "Job has no future firings")
			<-ctx.Done()
			return ctx.Err()
		}
		if s.metrics != nil {
			s.metrics.SetNextRun(j.name, next)
		}

		if !sleepUntil(ctx, next) {
			return ctx.Err()
		}

		fired := time.Now().In(s.location)
		lateness := fired.Sub(next)
		if lateness > s.grace {
			logger.WarnCtx(ctx, "Job run missed, skipping",
				logger.KeyScheduled, next, logger.KeyLateness, lateness.String())
			if s.metrics != nil {
				s.metrics.RecordMisfire(j.name)
			}
			next = j.schedule.Next(fired)
			continue
		}

		s.execute(ctx, j, next, lateness)

		// Firings that fell inside a long run are coalesced.
		next = j.schedule.Next(time.Now().In(s.location))
	}
}

func (s *Scheduler) execute(ctx context.Context, j *job, scheduled time.Time, lateness time.Duration) {
	ctx, span := telemetry.StartJobSpan(ctx, j.name,
		attribute.Int64(telemetry.AttrLateness, lateness.Milliseconds()))

	logger.InfoCtx(ctx, "Job started", logger.KeyScheduled, scheduled)
	start := time.Now()

	err := invoke(ctx, j.fn)
	duration := time.Since(start)
	telemetry.Finish(span, err)

	if s.metrics != nil {
		s.metrics.ObserveJob(j.name, duration, err)
	}

	switch {
	case err == nil:
		logger.InfoCtx(ctx, "Job completed", logger.DurationMs(duration))
	case ctx.Err() != nil:
		logger.InfoCtx(ctx, "Job interrupted", logger.DurationMs(duration), logger.Err(err))
	default:
		logger.ErrorCtx(ctx, "Job failed", logger.DurationMs(duration), logger.Err(err))
	}
}

func invoke(ctx context.Context, fn JobFunc) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v\n%s", r, debug.Stack())
		}
	}()
	return fn(ctx)
}

func sleepUntil(ctx context.Context, t time.Time) bool {
	d := time.Until(t)
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
