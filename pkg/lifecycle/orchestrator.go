package lifecycle

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/marmos91/botkit/internal/logger"
	"github.com/marmos91/botkit/internal/telemetry"
)

// registration is one entry of the module registry.
type registration struct {
	module Module
	index  int
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithSignals overrides the signals mapped to the termination event.
// Passing no signals disables signal handling.
func WithSignals(sigs ...os.Signal) Option {
	return func(o *Orchestrator) {
		o.signals = sigs
		o.handleSignals = len(sigs) > 0
	}
}

// WithEvent makes the orchestrator use ev as its termination event.
func WithEvent(ev *Event) Option {
	return func(o *Orchestrator) {
		o.event = ev
	}
}

// Orchestrator owns an ordered set of modules and drives their lifecycle.
type Orchestrator struct {
	mu      sync.Mutex
	state   State
	modules []registration
	running bool

	// held by Run while modules are being started
	starting sync.WaitGroup

	event         *Event
	signals       []os.Signal
	handleSignals bool
	stopped       chan struct{}
}

// New creates an Orchestrator in the Unconfigured state.
func New(opts ...Option) *Orchestrator {
	o := &Orchestrator{
		state:         StateUnconfigured,
		event:         NewEvent(),
		signals:       TerminationSignals,
		handleSignals: true,
		stopped:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// State returns the current lifecycle state.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Modules returns the names of the registered modules in registration order.
func (o *Orchestrator) Modules() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	names := make([]string, len(o.modules))
	for i, r := range o.modules {
		names[i] = r.module.Name()
	}
	return names
}

// Event returns the termination event.
func (o *Orchestrator) Event() *Event {
	return o.event
}

// Done returns a channel closed once every module has been shut down.
func (o *Orchestrator) Done() <-chan struct{} {
	return o.stopped
}

// setState must be called with o.mu held.
func (o *Orchestrator) setState(s State) {
	if o.state == s {
		return
	}
	logger.Debug("Lifecycle state changed", "from", o.state.String(), logger.KeyState, s.String())
	o.state = s
}

// Register configures m and appends it to the registry. If Configure fails,
// every module registered so far is shut down in reverse order and the
// configure error is returned; the orchestrator is then Stopped.
func (o *Orchestrator) Register(ctx context.Context, m Module) error {
	name := m.Name()

	o.mu.Lock()
	switch o.state {
	case StateUnconfigured:
		o.setState(StateConfiguring)
	case StateConfiguring:
	default:
		state := o.state
		o.mu.Unlock()
		return fmt.Errorf("%w: cannot register module %s while %s", ErrInvalidState, name, state)
	}
	o.mu.Unlock()

	ctx = logger.WithModule(ctx, name)
	ctx, span := telemetry.StartModuleSpan(ctx, telemetry.SpanModuleConfigure, name, telemetry.Phase(string(PhaseConfigure)))
	start := time.Now()
	err := call(func() error { return m.Configure(ctx) })
	telemetry.Finish(span, err)

	if err != nil {
		logger.ErrorCtx(ctx, "Module configuration failed", logger.KeyError, err)
		merr := &ModuleError{Module: name, Phase: PhaseConfigure, Err: err}
		o.Terminate("configuration failed", merr)
		o.Shutdown(context.WithoutCancel(ctx))
		return merr
	}

	o.mu.Lock()
	if o.state.Terminal() {
		// shutdown raced with Configure: the module missed the teardown pass
		o.mu.Unlock()
		o.shutdownModule(context.WithoutCancel(ctx), m)
		return fmt.Errorf("%w: module %s configured after shutdown began", ErrInvalidState, name)
	}
	o.modules = append(o.modules, registration{module: m, index: len(o.modules)})
	o.mu.Unlock()

	logger.InfoCtx(ctx, "Module configured", logger.DurationMs(time.Since(start)))
	return nil
}

// Setup builds a module with factory, configures it and registers it,
// returning the module so that later registrations can use what it produces.
// A factory error is handled like a configure error.
func Setup[M Module](ctx context.Context, o *Orchestrator, factory func() (M, error)) (M, error) {
	var zero M
	m, err := factory()
	if err != nil {
		logger.ErrorCtx(ctx, "Module construction failed", logger.KeyError, err)
		o.Terminate("construction failed", err)
		o.Shutdown(context.WithoutCancel(ctx))
		return zero, fmt.Errorf("construct module: %w", err)
	}
	if err := o.Register(ctx, m); err != nil {
		return zero, err
	}
	return m, nil
}

// Terminate sets the termination event. err is nil for a requested stop and
// non-nil when a subsystem failure caused it. Only the first call counts.
func (o *Orchestrator) Terminate(reason string, err error) {
	if o.event.Set(reason, err) {
		if err != nil {
			logger.Error("Termination requested", logger.KeyReason, reason, logger.KeyError, err)
		} else {
			logger.Info("Termination requested", logger.KeyReason, reason)
		}
	}
}

// Run starts every module in registration order, then blocks until the
// termination event fires or ctx is cancelled, and finally shuts every module
// down in reverse order.
//
// Modules receive a context that is not cancelled with ctx: their background
// work is stopped by their own Shutdown, in teardown order.
//
// Run returns nil for a signal, an explicit Terminate(reason, nil) or ctx
// cancellation. It returns an error when a module fails to start or when a
// subsystem failure caused termination.
func (o *Orchestrator) Run(ctx context.Context) error {
	o.mu.Lock()
	if o.running || o.state.Terminal() {
		state := o.state
		o.mu.Unlock()
		return fmt.Errorf("%w: cannot run while %s", ErrInvalidState, state)
	}
	o.running = true
	o.starting.Add(1)
	o.setState(StateRunning)
	modules := append([]registration(nil), o.modules...)
	o.mu.Unlock()

	if o.handleSignals {
		stop := NotifySignals(o.event, o.signals...)
		defer stop()
	}

	moduleCtx := context.WithoutCancel(ctx)
	err := o.startAll(moduleCtx, modules)
	o.starting.Done()
	if err != nil {
		o.Terminate("start failed", err)
		o.Shutdown(moduleCtx)
		<-o.stopped
		return err
	}

	logger.Info("All modules started", "modules", len(modules))

	select {
	case <-o.event.Done():
	case <-ctx.Done():
		o.Terminate("context cancelled", nil)
	}

	reason, cause := o.event.Reason()
	logger.Info("Stopping", logger.KeyReason, reason)
	o.Shutdown(moduleCtx)
	<-o.stopped

	if cause != nil {
		return fmt.Errorf("%s: %w", reason, cause)
	}
	return nil
}

func (o *Orchestrator) startAll(ctx context.Context, modules []registration) error {
	ctx, span := telemetry.StartSpan(ctx, telemetry.SpanLifecycleStart)
	defer span.End()

	for _, r := range modules {
		if o.event.IsSet() {
			logger.WarnCtx(ctx, "Termination requested during start, skipping remaining modules")
			return nil
		}

		name := r.module.Name()
		mctx := logger.WithModule(ctx, name)
		mctx, mspan := telemetry.StartModuleSpan(mctx, telemetry.SpanModuleStart, name, telemetry.Phase(string(PhaseStart)))
		err := call(func() error { return r.module.Start(mctx) })
		telemetry.Finish(mspan, err)

		if err != nil {
			logger.ErrorCtx(mctx, "Module failed to start", logger.KeyError, err)
			return &ModuleError{Module: name, Phase: PhaseStart, Err: err}
		}
		logger.InfoCtx(mctx, "Module started")
	}
	return nil
}

// Shutdown shuts every registered module down in reverse registration order.
// It is idempotent: only the first call does work, later or concurrent calls
// return immediately (use Done to wait for completion). A failing or
// panicking module is logged and does not stop the remaining modules.
//
// A Start in progress is allowed to return first, and no further module is
// started, so a module is never started after its shutdown. Shutdown must
// therefore not be called synchronously from a module's Start.
//
// No deadline is imposed per module; a module that never returns from
// Shutdown blocks the teardown unless ctx carries a deadline the module honors.
func (o *Orchestrator) Shutdown(ctx context.Context) {
	o.mu.Lock()
	if o.state.Terminal() {
		o.mu.Unlock()
		return
	}
	o.setState(StateShuttingDown)
	modules := append([]registration(nil), o.modules...)
	o.mu.Unlock()

	o.event.Set("shutdown requested", nil)
	o.starting.Wait()

	ctx, span := telemetry.StartSpan(ctx, telemetry.SpanLifecycleShutdown)
	start := time.Now()
	logger.Info("Shutting down modules", "modules", len(modules))

	for i := len(modules) - 1; i >= 0; i-- {
		o.shutdownModule(ctx, modules[i].module)
	}

	span.End()
	o.mu.Lock()
	o.setState(StateStopped)
	o.mu.Unlock()
	close(o.stopped)

	logger.Info("Shutdown complete", logger.DurationMs(time.Since(start)))
}

func (o *Orchestrator) shutdownModule(ctx context.Context, m Module) {
	name := m.Name()
	ctx = logger.WithModule(ctx, name)
	ctx, span := telemetry.StartModuleSpan(ctx, telemetry.SpanModuleShutdown, name, telemetry.Phase(string(PhaseShutdown)))
	start := time.Now()

	err := call(func() error { return m.Shutdown(ctx) })
	telemetry.Finish(span, err)

	if err != nil {
		logger.ErrorCtx(ctx, "Module shutdown failed", logger.KeyError, err)
		return
	}
	logger.InfoCtx(ctx, "Module stopped", logger.DurationMs(time.Since(start)))
}
