package bot

import (
	"context"
	"errors"
	"time"

	"github.com/marmos91/botkit/internal/logger"
)

// UpdateHandler processes one update.
type UpdateHandler interface {
	HandleUpdate(ctx context.Context, u *Update) error
}

// Poller drives getUpdates in a loop and feeds every update to a handler.
type Poller struct {
	client  *Client
	handler UpdateHandler
	limit   int

	// backoff bounds for transport failures
	minBackoff time.Duration
	maxBackoff time.Duration
}

// NewPoller creates a poller. Updates are handled sequentially, in order.
func NewPoller(client *Client, handler UpdateHandler) *Poller {
	return &Poller{
		client:     client,
		handler:    handler,
		limit:      100,
		minBackoff: time.Second,
		maxBackoff: 30 * time.Second,
	}
}

// Run polls until ctx is cancelled or the token is rejected. A cancelled ctx
// is a clean exit and returns ctx.Err(); ErrUnauthorized is returned as is.
func (p *Poller) Run(ctx context.Context) error {
	var offset int64
	backoff := p.minBackoff

	logger.InfoCtx(ctx, "Bot polling started", "poll_timeout", p.client.config.PollTimeout)
	defer logger.InfoCtx(ctx, "Bot polling stopped")

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		updates, err := p.client.GetUpdates(ctx, offset, p.limit)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}

			var retry *RetryAfterError
			switch {
			case errors.Is(err, ErrUnauthorized):
				return err
			case errors.As(err, &retry):
				logger.WarnCtx(ctx, "Bot polling rate limited", "retry_after", retry.RetryAfter)
				if !sleep(ctx, retry.RetryAfter) {
					return ctx.Err()
				}
			default:
				logger.WarnCtx(ctx, "Bot polling failed", logger.Err(err), logger.KeyBackoff, backoff)
				if !sleep(ctx, backoff) {
					return ctx.Err()
				}
				backoff = min(backoff*2, p.maxBackoff)
			}
			continue
		}
		backoff = p.minBackoff

		for i := range updates {
			u := &updates[i]
			offset = u.UpdateID + 1
			if err := p.handler.HandleUpdate(ctx, u); err != nil {
				logger.ErrorCtx(ctx, "Update handling failed", logger.KeyUpdateID, u.UpdateID, logger.Err(err))
			}
		}
	}
}

// sleep waits for d or ctx; it reports whether the full duration elapsed.
func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
