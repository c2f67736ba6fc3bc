package supervisor

import (
	"context"
	"errors"
	"sync"
)

// Group tracks a set of tasks owned by one component.
type Group struct {
	mu    sync.Mutex
	tasks []*Task
}

// Spawn starts a task and adds it to the group.
func (g *Group) Spawn(ctx context.Context, name string, fn Func, opts ...Option) *Task {
	t := Spawn(ctx, name, fn, opts...)
	g.mu.Lock()
	g.tasks = append(g.tasks, t)
	g.mu.Unlock()
	return t
}

// Len returns the number of tasks in the group.
func (g *Group) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.tasks)
}

// CancelAll requests cancellation of every task at once, waits for all of
// them to return, and empties the group. Outcomes are joined.
func (g *Group) CancelAll() error {
	g.mu.Lock()
	tasks := g.tasks
	g.tasks = nil
	g.mu.Unlock()

	for _, t := range tasks {
		t.mu.Lock()
		if !t.finished {
			t.cancelRequested = true
		}
		t.mu.Unlock()
		t.cancel()
	}

	var errs []error
	for _, t := range tasks {
		<-t.done
		if err := t.Err(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
