package supervisor

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// loop blocks until cancelled, then performs a slow cleanup.
func loop(cleanedUp *atomic.Bool, cleanup time.Duration) Func {
	return func(ctx context.Context) error {
		<-ctx.Done()
		time.Sleep(cleanup)
		cleanedUp.Store(true)
		return ctx.Err()
	}
}

func TestSpawnReturnsImmediately(t *testing.T) {
	started := make(chan struct{})
	task := Spawn(context.Background(), "poll", func(ctx context.Context) error {
		close(started)
		<-ctx.Done()
		return ctx.Err()
	})

	select {
	case <-started:
	case <-time.After(time.Second):
		t.Fatal("operation did not start")
	}
	assert.False(t, task.IsDone())
	assert.Equal(t, "poll", task.Name())

	require.NoError(t, task.Cancel())
	assert.True(t, task.IsDone())
}

func TestCancelWaitsForUnwind(t *testing.T) {
	var cleanedUp atomic.Bool
	task := Spawn(context.Background(), "serve", loop(&cleanedUp, 50*time.Millisecond))

	err := task.Cancel()

	require.NoError(t, err, "cancellation is a normal return")
	assert.True(t, cleanedUp.Load(), "Cancel must not return before cleanup ran")
	assert.True(t, task.Cancelled())
}

func TestCancelPreservesPriorOutcome(t *testing.T) {
	boom := errors.New("listen: address already in use")
	task := Spawn(context.Background(), "serve", func(context.Context) error {
		return boom
	})
	<-task.Done()

	assert.ErrorIs(t, task.Cancel(), boom)
	assert.ErrorIs(t, task.Cancel(), boom, "second cancel is a cheap no-op")
	assert.False(t, task.Cancelled())
}

func TestCancelSurfacesCleanupFailure(t *testing.T) {
	closeErr := errors.New("close session")
	task := Spawn(context.Background(), "poll", func(ctx context.Context) error {
		<-ctx.Done()
		return closeErr
	})

	assert.ErrorIs(t, task.Cancel(), closeErr)
}

func TestConcurrentCancel(t *testing.T) {
	var cleanedUp atomic.Bool
	task := Spawn(context.Background(), "poll", loop(&cleanedUp, 20*time.Millisecond))

	errs := make(chan error, 5)
	for i := 0; i < 5; i++ {
		go func() { errs <- task.Cancel() }()
	}
	for i := 0; i < 5; i++ {
		assert.NoError(t, <-errs)
	}
	assert.True(t, cleanedUp.Load())
}

func TestPanicBecomesError(t *testing.T) {
	task := Spawn(context.Background(), "bad", func(context.Context) error {
		panic("nil map")
	})
	<-task.Done()

	require.Error(t, task.Err())
	assert.Contains(t, task.Err().Error(), "panic: nil map")
}

func TestParentCancellationIsNormalExit(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var exited atomic.Bool
	task := Spawn(ctx, "poll", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}, WithOnExit(func(error) { exited.Store(true) }))

	cancel()
	<-task.Done()

	assert.NoError(t, task.Err())
	assert.False(t, exited.Load(), "exit hook is for unexpected exits only")
}

func TestOnExitCalledForUnexpectedExit(t *testing.T) {
	boom := errors.New("connection reset")
	got := make(chan error, 1)
	task := Spawn(context.Background(), "poll", func(context.Context) error {
		return boom
	}, WithOnExit(func(err error) { got <- err }))

	select {
	case err := <-got:
		assert.ErrorIs(t, err, boom)
	case <-time.After(time.Second):
		t.Fatal("exit hook not called")
	}
	<-task.Done()
}

func TestOnExitNotCalledAfterCancel(t *testing.T) {
	var called atomic.Bool
	task := Spawn(context.Background(), "poll", func(ctx context.Context) error {
		<-ctx.Done()
		return nil
	}, WithOnExit(func(error) { called.Store(true) }))

	require.NoError(t, task.Cancel())
	assert.False(t, called.Load())
}

func TestWait(t *testing.T) {
	release := make(chan struct{})
	task := Spawn(context.Background(), "job", func(context.Context) error {
		<-release
		return nil
	})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, task.Wait(ctx), context.DeadlineExceeded)
	assert.False(t, task.IsDone())

	close(release)
	assert.NoError(t, task.Wait(context.Background()))
}

func TestGroupCancelAll(t *testing.T) {
	var g Group
	var a, b atomic.Bool
	g.Spawn(context.Background(), "a", loop(&a, 10*time.Millisecond))
	g.Spawn(context.Background(), "b", loop(&b, 10*time.Millisecond))
	failing := errors.New("failed early")
	c := g.Spawn(context.Background(), "c", func(context.Context) error { return failing })
	<-c.Done()
	require.Equal(t, 3, g.Len())

	err := g.CancelAll()

	assert.ErrorIs(t, err, failing)
	assert.True(t, a.Load())
	assert.True(t, b.Load())
	assert.Equal(t, 0, g.Len())
	assert.NoError(t, g.CancelAll())
}
