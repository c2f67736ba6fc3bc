package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
)

// Module is one subsystem managed by the Orchestrator.
//
// Configure performs one-time setup and is called once. Start begins
// background work and must return without waiting for that work to finish.
// Shutdown releases everything the module owns; it must be safe to call when
// Start never ran and must be a no-op on repeated calls.
type Module interface {
	Name() string
	Configure(ctx context.Context) error
	Start(ctx context.Context) error
	Shutdown(ctx context.Context) error
}

// Phase identifies a lifecycle step of a module.
type Phase string

const (
	PhaseConfigure Phase = "configure"
	PhaseStart     Phase = "start"
	PhaseShutdown  Phase = "shutdown"
)

var (
	// ErrInvalidState is returned when an operation is not allowed in the
	// orchestrator's current state.
	ErrInvalidState = errors.New("invalid lifecycle state")

	// ErrUnexpectedExit is the termination cause when a supervised task
	// returns without error while it was expected to run until cancelled.
	ErrUnexpectedExit = errors.New("exited unexpectedly")
)

// ModuleError reports the failure of one module in one phase.
type ModuleError struct {
	Module string
	Phase  Phase
	Err    error
}

func (e *ModuleError) Error() string {
	return fmt.Sprintf("module %s: %s: %v", e.Module, e.Phase, e.Err)
}

func (e *ModuleError) Unwrap() error {
	return e.Err
}

// call runs fn, converting a panic into an error.
func call(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v\n%s", r, debug.Stack())
		}
	}()
	return fn()
}

// Terminator requests process termination. It is the capability handed to
// modules so that a failing subsystem can bring the process down.
type Terminator interface {
	Terminate(reason string, err error)
}

// ExitHook returns a function suitable for supervisor.WithOnExit that
// terminates the process when the named loop stops on its own.
func ExitHook(t Terminator, name string) func(error) {
	return func(err error) {
		if err == nil {
			t.Terminate(name+" stopped", ErrUnexpectedExit)
			return
		}
		t.Terminate(name+" failed", err)
	}
}

// Base implements Name and no-op Start/Shutdown for modules that have no
// background work. Embedders override what they need.
type Base struct {
	ModuleName string
}

func (b Base) Name() string { return b.ModuleName }
func (Base) Configure(context.Context) error { return nil }
func (Base) Start(context.Context) error { return nil }
func (Base) Shutdown(context.Context) error { return nil }
