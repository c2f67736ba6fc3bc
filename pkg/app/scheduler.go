package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/marmos91/botkit/internal/logger"
	"github.com/marmos91/botkit/pkg/bot"
	"github.com/marmos91/botkit/pkg/dispatch"
	"github.com/marmos91/botkit/pkg/lifecycle"
	"github.com/marmos91/botkit/pkg/metrics/prometheus"
	"github.com/marmos91/botkit/pkg/objectstore"
	"github.com/marmos91/botkit/pkg/scheduler"
	"github.com/marmos91/botkit/pkg/store"
	"github.com/marmos91/botkit/pkg/supervisor"
)

// ModuleScheduler is the name of the scheduler module.
const ModuleScheduler = "scheduler"

// SchedulerDeps are the collaborators of the scheduled jobs. Remote and
// Uploader are optional; their jobs are skipped when nil.
type SchedulerDeps struct {
	Store    store.Store
	Sender   bot.Sender
	Remote   scheduler.ItemPusher
	Uploader objectstore.Uploader

	Policy   dispatch.Policy
	Reminder dispatch.ReminderConfig
}

// SchedulerModule runs the periodic jobs, one supervised loop per job.
type SchedulerModule struct {
	lifecycle.Base
	cfg  scheduler.Config
	deps SchedulerDeps

	scheduler *scheduler.Scheduler
	reminder  *dispatch.Reminder
	group     supervisor.Group
}

// NewSchedulerModule creates the scheduler module.
func NewSchedulerModule(cfg scheduler.Config, deps SchedulerDeps) *SchedulerModule {
	return &SchedulerModule{Base: lifecycle.Base{ModuleName: ModuleScheduler}, cfg: cfg, deps: deps}
}

// Configure builds the dispatcher and registers the enabled jobs.
func (m *SchedulerModule) Configure(ctx context.Context) error {
	if m.deps.Store == nil || m.deps.Sender == nil {
		return errors.New("scheduler: store and sender are required")
	}

	m.cfg.ApplyDefaults()
	loc, err := m.cfg.Location()
	if err != nil {
		return fmt.Errorf("scheduler timezone: %w", err)
	}

	d, err := dispatch.New(m.deps.Sender, m.deps.Store, m.deps.Policy,
		dispatch.WithMetrics(prometheus.NewDispatchMetrics()))
	if err != nil {
		return err
	}
	m.reminder = dispatch.NewReminder(m.deps.Store, d, m.deps.Reminder)

	s := scheduler.New(
		scheduler.WithLocation(loc),
		scheduler.WithMisfireGrace(m.cfg.MisfireGrace),
		scheduler.WithMetrics(prometheus.NewSchedulerMetrics()),
	)

	type entry struct {
		name string
		job  scheduler.JobConfig
		fn   scheduler.JobFunc
		skip string
	}
	entries := []entry{
		{name: scheduler.JobRemindUsers, job: m.cfg.RemindUsers, fn: scheduler.RemindUsers(m.reminder)},
		{name: scheduler.JobSyncItems, job: m.cfg.SyncItems},
		{name: scheduler.JobExportSnapshot, job: m.cfg.ExportSnapshot},
	}
	if m.deps.Remote != nil {
		entries[1].fn = scheduler.SyncItems(m.deps.Store, m.deps.Remote)
	} else {
		entries[1].skip = "external API not configured"
	}
	if m.deps.Uploader != nil {
		entries[2].fn = scheduler.ExportSnapshot(m.deps.Store, m.deps.Uploader)
	} else {
		entries[2].skip = "object storage not configured"
	}

	for _, e := range entries {
		switch {
		case e.job.Disabled:
			logger.InfoCtx(ctx, "Job disabled", logger.KeyJob, e.name)
		case e.skip != "":
			logger.InfoCtx(ctx, "Job skipped", logger.KeyJob, e.name, logger.KeyReason, e.skip)
		default:
			if err := s.Add(e.name, e.job.Schedule, e.fn); err != nil {
				return err
			}
		}
	}

	m.scheduler = s
	return nil
}

// Start spawns the job loops.
func (m *SchedulerModule) Start(ctx context.Context) error {
	if m.scheduler == nil {
		return errNotConfigured
	}
	m.scheduler.Start(ctx, &m.group)
	return nil
}

// Shutdown cancels every job loop and waits for running jobs to observe
// the cancellation.
func (m *SchedulerModule) Shutdown(context.Context) error {
	return m.group.CancelAll()
}

// Jobs returns the registered job names.
func (m *SchedulerModule) Jobs() []string {
	if m.scheduler == nil {
		return nil
	}
	return m.scheduler.Jobs()
}

// Reminder returns the reminder the remind-users job runs.
func (m *SchedulerModule) Reminder() *dispatch.Reminder {
	return m.reminder
}
