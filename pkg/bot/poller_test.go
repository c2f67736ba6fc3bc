package bot

import (
	"context"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type collectingHandler struct {
	mu  sync.Mutex
	ids []int64
}

func (h *collectingHandler) HandleUpdate(_ context.Context, u *Update) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.ids = append(h.ids, u.UpdateID)
	return nil
}

func (h *collectingHandler) seen() []int64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]int64(nil), h.ids...)
}

func TestPollerAdvancesOffset(t *testing.T) {
	api := newFakeAPI(t)
	var polls atomic.Int32
	api.on("getUpdates", func(body map[string]any) (int, any) {
		switch polls.Add(1) {
		case 1:
			return ok([]map[string]any{{"update_id": 5}, {"update_id": 6}})
		case 2:
			return ok([]map[string]any{{"update_id": 7}})
		default:
			time.Sleep(10 * time.Millisecond)
			return ok([]map[string]any{})
		}
	})

	h := &collectingHandler{}
	p := NewPoller(api.client(t), h)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Run(ctx) }()

	require.Eventually(t, func() bool { return len(h.seen()) == 3 }, 2*time.Second, 10*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("poller did not stop")
	}

	assert.Equal(t, []int64{5, 6, 7}, h.seen())
	calls := api.callsTo("getUpdates")
	require.GreaterOrEqual(t, len(calls), 3)
	_, hasOffset := calls[0].Body["offset"]
	assert.False(t, hasOffset, "first poll starts without offset")
	assert.EqualValues(t, 7, calls[1].Body["offset"])
	assert.EqualValues(t, 8, calls[2].Body["offset"])
}

func TestPollerStopsOnUnauthorized(t *testing.T) {
	api := newFakeAPI(t)
	api.on("getUpdates", func(map[string]any) (int, any) { return fail(http.StatusUnauthorized, "Unauthorized") })

	err := NewPoller(api.client(t), &collectingHandler{}).Run(context.Background())
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestPollerBacksOffOnServerErrors(t *testing.T) {
	api := newFakeAPI(t)
	var polls atomic.Int32
	api.on("getUpdates", func(map[string]any) (int, any) {
		if polls.Add(1) <= 2 {
			return fail(http.StatusBadGateway, "Bad Gateway")
		}
		return ok([]map[string]any{{"update_id": 1}})
	})

	h := &collectingHandler{}
	p := NewPoller(api.client(t), h)
	p.minBackoff = 5 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = p.Run(ctx) }()

	require.Eventually(t, func() bool { return len(h.seen()) >= 1 }, 2*time.Second, 5*time.Millisecond)
	assert.GreaterOrEqual(t, polls.Load(), int32(3))
}

func TestPollerCancelDuringBackoff(t *testing.T) {
	api := newFakeAPI(t)
	api.on("getUpdates", func(map[string]any) (int, any) { return fail(http.StatusBadGateway, "Bad Gateway") })

	p := NewPoller(api.client(t), &collectingHandler{})
	p.minBackoff = time.Hour

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Run(ctx) }()

	require.Eventually(t, func() bool { return len(api.callsTo("getUpdates")) == 1 }, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("poller ignored cancellation during backoff")
	}
}
