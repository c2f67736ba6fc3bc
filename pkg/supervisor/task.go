package supervisor

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/marmos91/botkit/internal/logger"
)

// Func is the operation run by a Task. It must return once ctx is done.
type Func func(ctx context.Context) error

// Option configures a Task.
type Option func(*Task)

// WithOnExit registers fn to be called when the operation returns without
// having been cancelled, either by Cancel or by the parent context. The hook
// receives the operation's outcome (possibly nil) and runs on the task's
// goroutine before Done is closed.
func WithOnExit(fn func(err error)) Option {
	return func(t *Task) {
		t.onExit = fn
	}
}

// Task is a handle on a supervised operation.
type Task struct {
	name   string
	cancel context.CancelFunc
	done   chan struct{}
	onExit func(err error)

	mu              sync.Mutex
	finished        bool
	cancelRequested bool
	err             error
	startedAt       time.Time
	stoppedAt       time.Time
}

// Spawn starts fn on its own goroutine and returns immediately.
// The operation's context is derived from ctx.
func Spawn(ctx context.Context, name string, fn Func, opts ...Option) *Task {
	taskCtx, cancel := context.WithCancel(ctx)
	t := &Task{
		name:      name,
		cancel:    cancel,
		done:      make(chan struct{}),
		startedAt: time.Now(),
	}
	for _, opt := range opts {
		opt(t)
	}

	go t.run(taskCtx, fn)
	return t
}

func (t *Task) run(ctx context.Context, fn Func) {
	defer close(t.done)
	defer t.cancel()

	logger.Debug("Task started", logger.KeyTask, t.name)

	err := invoke(ctx, fn)
	interrupted := ctx.Err() != nil
	if interrupted && isContextErr(err) {
		err = nil
	}

	t.mu.Lock()
	t.finished = true
	t.err = err
	t.stoppedAt = time.Now()
	t.mu.Unlock()

	if err != nil {
		logger.Warn("Task exited with error", logger.KeyTask, t.name, logger.KeyError, err)
	} else {
		logger.Debug("Task exited", logger.KeyTask, t.name, logger.DurationMs(t.stoppedAt.Sub(t.startedAt)))
	}

	if t.onExit != nil && !interrupted {
		t.onExit(err)
	}
}

// invoke runs fn, converting a panic into an error.
func invoke(ctx context.Context, fn Func) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v\n%s", r, debug.Stack())
		}
	}()
	return fn(ctx)
}

func isContextErr(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

// Name returns the name the task was spawned with.
func (t *Task) Name() string {
	return t.name
}

// Cancel requests cancellation and blocks until the operation has returned.
// It returns the task's outcome. Calling Cancel on a finished task is cheap
// and returns the outcome it finished with.
func (t *Task) Cancel() error {
	t.mu.Lock()
	if !t.finished {
		t.cancelRequested = true
	}
	t.mu.Unlock()

	t.cancel()
	<-t.done
	return t.Err()
}

// Wait blocks until the task finishes or ctx is done. It does not cancel the task.
func (t *Task) Wait(ctx context.Context) error {
	select {
	case <-t.done:
		return t.Err()
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Done returns a channel closed once the operation has returned.
func (t *Task) Done() <-chan struct{} {
	return t.done
}

// IsDone reports whether the operation has returned.
func (t *Task) IsDone() bool {
	select {
	case <-t.done:
		return true
	default:
		return false
	}
}

// Err returns the task's outcome, or nil while it is still running.
func (t *Task) Err() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.err
}

// Cancelled reports whether Cancel was called before the operation finished.
func (t *Task) Cancelled() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.cancelRequested
}
