package lifecycle

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/botkit/pkg/supervisor"
)

// recorder collects lifecycle calls across modules in order.
type recorder struct {
	mu    sync.Mutex
	calls []string
}

func (r *recorder) add(call string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, call)
}

func (r *recorder) get() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.calls...)
}

func (r *recorder) count(call string) int {
	n := 0
	for _, c := range r.get() {
		if c == call {
			n++
		}
	}
	return n
}

type fakeModule struct {
	name         string
	rec          *recorder
	configureErr error
	startErr     error
	shutdownErr  error
	panicOn      Phase
	shutdowns    atomic.Int32
}

func (m *fakeModule) Name() string { return m.name }

func (m *fakeModule) Configure(context.Context) error {
	m.rec.add(m.name + ".configure")
	if m.panicOn == PhaseConfigure {
		panic("configure exploded")
	}
	return m.configureErr
}

func (m *fakeModule) Start(context.Context) error {
	m.rec.add(m.name + ".start")
	return m.startErr
}

func (m *fakeModule) Shutdown(context.Context) error {
	if m.shutdowns.Add(1) > 1 {
		return nil
	}
	m.rec.add(m.name + ".shutdown")
	if m.panicOn == PhaseShutdown {
		panic("shutdown exploded")
	}
	return m.shutdownErr
}

func newTestOrchestrator() *Orchestrator {
	return New(WithSignals())
}

func registerAll(t *testing.T, o *Orchestrator, mods ...Module) {
	t.Helper()
	for _, m := range mods {
		require.NoError(t, o.Register(context.Background(), m))
	}
}

func TestShutdownRunsInReverseOrder(t *testing.T) {
	rec := &recorder{}
	o := newTestOrchestrator()
	registerAll(t, o,
		&fakeModule{name: "database", rec: rec},
		&fakeModule{name: "bot", rec: rec},
		&fakeModule{name: "api", rec: rec},
		&fakeModule{name: "server", rec: rec},
	)
	assert.Equal(t, []string{"database", "bot", "api", "server"}, o.Modules())
	assert.Equal(t, StateConfiguring, o.State())

	o.Shutdown(context.Background())

	assert.Equal(t, []string{
		"database.configure", "bot.configure", "api.configure", "server.configure",
		"server.shutdown", "api.shutdown", "bot.shutdown", "database.shutdown",
	}, rec.get())
	assert.Equal(t, StateStopped, o.State())
	select {
	case <-o.Done():
	default:
		t.Fatal("Done not closed after shutdown")
	}
}

func TestShutdownIsIdempotent(t *testing.T) {
	rec := &recorder{}
	mods := []*fakeModule{
		{name: "database", rec: rec},
		{name: "bot", rec: rec},
		{name: "server", rec: rec},
	}
	o := newTestOrchestrator()
	for _, m := range mods {
		require.NoError(t, o.Register(context.Background(), m))
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			o.Shutdown(context.Background())
		}()
	}
	wg.Wait()
	<-o.Done()
	o.Shutdown(context.Background())

	for _, m := range mods {
		assert.EqualValues(t, 1, m.shutdowns.Load(), m.name)
	}
	assert.Equal(t, []string{"server.shutdown", "bot.shutdown", "database.shutdown"}, rec.get()[3:])
}

func TestConfigureFailureShutsDownPriorModules(t *testing.T) {
	rec := &recorder{}
	o := newTestOrchestrator()
	configErr := errors.New("listen address missing")

	require.NoError(t, o.Register(context.Background(), &fakeModule{name: "database", rec: rec}))
	require.NoError(t, o.Register(context.Background(), &fakeModule{name: "bot", rec: rec}))
	server := &fakeModule{name: "server", rec: rec, configureErr: configErr}
	err := o.Register(context.Background(), server)

	require.Error(t, err)
	assert.ErrorIs(t, err, configErr)
	var merr *ModuleError
	require.ErrorAs(t, err, &merr)
	assert.Equal(t, "server", merr.Module)
	assert.Equal(t, PhaseConfigure, merr.Phase)

	assert.Equal(t, []string{
		"database.configure", "bot.configure", "server.configure",
		"bot.shutdown", "database.shutdown",
	}, rec.get())
	assert.Zero(t, server.shutdowns.Load())
	assert.Equal(t, StateStopped, o.State())

	_, cause := o.Event().Reason()
	assert.ErrorIs(t, cause, configErr)
}

func TestConfigurePanicIsFatal(t *testing.T) {
	rec := &recorder{}
	o := newTestOrchestrator()
	registerAll(t, o, &fakeModule{name: "database", rec: rec})

	err := o.Register(context.Background(), &fakeModule{name: "bot", rec: rec, panicOn: PhaseConfigure})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "configure exploded")
	assert.Equal(t, 1, rec.count("database.shutdown"))
}

func TestRegisterAfterShutdownFails(t *testing.T) {
	o := newTestOrchestrator()
	o.Shutdown(context.Background())

	err := o.Register(context.Background(), &fakeModule{name: "late", rec: &recorder{}})
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestSetupReturnsConfiguredModule(t *testing.T) {
	rec := &recorder{}
	o := newTestOrchestrator()

	db, err := Setup(context.Background(), o, func() (*fakeModule, error) {
		return &fakeModule{name: "database", rec: rec}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, "database", db.Name())

	_, err = Setup(context.Background(), o, func() (*fakeModule, error) {
		// consumes the resource produced by the previous module
		return &fakeModule{name: "bot-using-" + db.Name(), rec: rec}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"database", "bot-using-database"}, o.Modules())
}

func TestSetupFactoryFailure(t *testing.T) {
	rec := &recorder{}
	o := newTestOrchestrator()
	registerAll(t, o, &fakeModule{name: "database", rec: rec})

	boom := errors.New("bad token")
	m, err := Setup(context.Background(), o, func() (*fakeModule, error) { return nil, boom })

	assert.Nil(t, m)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, []string{"database.configure", "database.shutdown"}, rec.get())
}

func TestShutdownFailureDoesNotStopTeardown(t *testing.T) {
	rec := &recorder{}
	o := newTestOrchestrator()
	registerAll(t, o,
		&fakeModule{name: "database", rec: rec},
		&fakeModule{name: "bot", rec: rec, shutdownErr: errors.New("close session")},
		&fakeModule{name: "api", rec: rec, panicOn: PhaseShutdown},
		&fakeModule{name: "server", rec: rec},
	)

	o.Shutdown(context.Background())

	assert.Equal(t, []string{"server.shutdown", "api.shutdown", "bot.shutdown", "database.shutdown"}, rec.get()[4:])
	assert.Equal(t, StateStopped, o.State())
}

func TestRunStartsInOrderAndStopsOnTerminate(t *testing.T) {
	rec := &recorder{}
	o := newTestOrchestrator()
	registerAll(t, o,
		&fakeModule{name: "database", rec: rec},
		&fakeModule{name: "bot", rec: rec},
	)

	errc := make(chan error, 1)
	go func() { errc <- o.Run(context.Background()) }()

	require.Eventually(t, func() bool { return rec.count("bot.start") == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, StateRunning, o.State())

	o.Terminate("operator request", nil)

	select {
	case err := <-errc:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return")
	}
	assert.Equal(t, []string{
		"database.configure", "bot.configure",
		"database.start", "bot.start",
		"bot.shutdown", "database.shutdown",
	}, rec.get())
}

func TestRunReturnsFailureCause(t *testing.T) {
	o := newTestOrchestrator()
	registerAll(t, o, &fakeModule{name: "server", rec: &recorder{}})

	errc := make(chan error, 1)
	go func() { errc <- o.Run(context.Background()) }()
	require.Eventually(t, func() bool { return o.State() == StateRunning }, time.Second, 5*time.Millisecond)

	crash := errors.New("accept: too many open files")
	o.Terminate("server failed", crash)
	o.Terminate("second reason is ignored", nil)

	err := <-errc
	require.Error(t, err)
	assert.ErrorIs(t, err, crash)
	assert.Contains(t, err.Error(), "server failed")
}

func TestRunStopsOnContextCancel(t *testing.T) {
	rec := &recorder{}
	o := newTestOrchestrator()
	registerAll(t, o, &fakeModule{name: "database", rec: rec})

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- o.Run(ctx) }()
	require.Eventually(t, func() bool { return rec.count("database.start") == 1 }, time.Second, 5*time.Millisecond)

	cancel()
	assert.NoError(t, <-errc)
	assert.Equal(t, 1, rec.count("database.shutdown"))
}

func TestStartFailureShutsEverythingDown(t *testing.T) {
	rec := &recorder{}
	o := newTestOrchestrator()
	startErr := errors.New("bind: permission denied")
	registerAll(t, o,
		&fakeModule{name: "database", rec: rec},
		&fakeModule{name: "server", rec: rec, startErr: startErr},
		&fakeModule{name: "scheduler", rec: rec},
	)

	err := o.Run(context.Background())

	assert.ErrorIs(t, err, startErr)
	assert.Equal(t, 0, rec.count("scheduler.start"))
	assert.Equal(t, []string{"scheduler.shutdown", "server.shutdown", "database.shutdown"}, rec.get()[5:])
}

// slowStartModule blocks in Start until released.
type slowStartModule struct {
	fakeModule
	entered chan struct{}
	release chan struct{}
}

func (m *slowStartModule) Start(ctx context.Context) error {
	close(m.entered)
	<-m.release
	return m.fakeModule.Start(ctx)
}

func TestShutdownWaitsForStartInProgress(t *testing.T) {
	rec := &recorder{}
	o := newTestOrchestrator()
	slow := &slowStartModule{
		fakeModule: fakeModule{name: "bot", rec: rec},
		entered:    make(chan struct{}),
		release:    make(chan struct{}),
	}
	registerAll(t, o, &fakeModule{name: "database", rec: rec}, slow, &fakeModule{name: "server", rec: rec})

	errc := make(chan error, 1)
	go func() { errc <- o.Run(context.Background()) }()
	<-slow.entered

	shutdownDone := make(chan struct{})
	go func() {
		o.Shutdown(context.Background())
		close(shutdownDone)
	}()
	require.Eventually(t, func() bool { return o.State() == StateShuttingDown }, time.Second, 5*time.Millisecond)

	select {
	case <-shutdownDone:
		t.Fatal("shutdown finished while a module was still starting")
	case <-time.After(50 * time.Millisecond):
	}
	assert.Zero(t, rec.count("bot.shutdown"))

	close(slow.release)
	<-shutdownDone
	require.NoError(t, <-errc)

	assert.Zero(t, rec.count("server.start"), "no module starts once shutdown began")
	assert.Equal(t, []string{
		"database.configure", "bot.configure", "server.configure",
		"database.start", "bot.start",
		"server.shutdown", "bot.shutdown", "database.shutdown",
	}, rec.get())
}

func TestRunTwiceFails(t *testing.T) {
	o := newTestOrchestrator()
	errc := make(chan error, 1)
	go func() { errc <- o.Run(context.Background()) }()
	require.Eventually(t, func() bool { return o.State() == StateRunning }, time.Second, 5*time.Millisecond)

	assert.ErrorIs(t, o.Run(context.Background()), ErrInvalidState)

	o.Terminate("done", nil)
	assert.NoError(t, <-errc)
}

// loopModule owns one supervised loop, like the bot poller or the HTTP server.
type loopModule struct {
	name     string
	rec      *recorder
	term     Terminator
	task     *supervisor.Task
	unwound  atomic.Bool
	loopDone chan struct{}
}

func (m *loopModule) Name() string { return m.name }
func (m *loopModule) Configure(context.Context) error { return nil }

func (m *loopModule) Start(ctx context.Context) error {
	running := make(chan struct{})
	m.task = supervisor.Spawn(ctx, m.name, func(ctx context.Context) error {
		close(running)
		<-ctx.Done()
		time.Sleep(20 * time.Millisecond) // close connections
		m.unwound.Store(true)
		m.rec.add(m.name + ".unwound")
		return ctx.Err()
	}, supervisor.WithOnExit(ExitHook(m.term, m.name)))
	<-running
	m.rec.add(m.name + ".start")
	return nil
}

func (m *loopModule) Shutdown(context.Context) error {
	if m.task == nil {
		return nil
	}
	err := m.task.Cancel()
	m.rec.add(m.name + ".shutdown")
	return err
}

func TestTerminationCancelsSupervisedTasksInReverseOrder(t *testing.T) {
	rec := &recorder{}
	ev := NewEvent()
	o := New(WithSignals(), WithEvent(ev))
	bot := &loopModule{name: "bot", rec: rec, term: o}
	server := &loopModule{name: "server", rec: rec, term: o}
	registerAll(t, o, bot, server)

	errc := make(chan error, 1)
	go func() { errc <- o.Run(context.Background()) }()
	require.Eventually(t, func() bool { return rec.count("server.start") == 1 }, time.Second, 5*time.Millisecond)

	// the same event the signal handler sets
	ev.Set("signal terminated", nil)

	require.NoError(t, <-errc)
	assert.True(t, bot.unwound.Load())
	assert.True(t, server.unwound.Load())
	assert.True(t, bot.task.IsDone())
	assert.True(t, server.task.IsDone())
	assert.Equal(t, []string{
		"bot.start", "server.start",
		"server.unwound", "server.shutdown",
		"bot.unwound", "bot.shutdown",
	}, rec.get())
}

func TestCrashedTaskTriggersShutdown(t *testing.T) {
	o := newTestOrchestrator()
	crash := errors.New("poll: unauthorized")
	registerAll(t, o, &crashingModule{Base: Base{ModuleName: "bot"}, term: o, err: crash})

	err := o.Run(context.Background())

	assert.ErrorIs(t, err, crash)
	assert.Equal(t, StateStopped, o.State())
}

type crashingModule struct {
	Base
	term Terminator
	err  error
	task *supervisor.Task
}

func (m *crashingModule) Start(ctx context.Context) error {
	m.task = supervisor.Spawn(ctx, m.Name(), func(context.Context) error {
		return m.err
	}, supervisor.WithOnExit(ExitHook(m.term, m.Name())))
	return nil
}

func (m *crashingModule) Shutdown(context.Context) error {
	if m.task != nil {
		_ = m.task.Cancel()
	}
	return nil
}

func TestEventIsSetOnce(t *testing.T) {
	ev := NewEvent()
	reason, err := ev.Reason()
	assert.Empty(t, reason)
	assert.NoError(t, err)

	assert.True(t, ev.Set("signal interrupt", nil))
	assert.False(t, ev.Set("signal terminated", errors.New("ignored")))

	reason, err = ev.Reason()
	assert.Equal(t, "signal interrupt", reason)
	assert.NoError(t, err)
	assert.True(t, ev.IsSet())
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "shutting_down", StateShuttingDown.String())
	assert.True(t, StateStopped.Terminal())
	assert.False(t, StateRunning.Terminal())
	assert.Equal(t, "unknown", State(42).String())
}
