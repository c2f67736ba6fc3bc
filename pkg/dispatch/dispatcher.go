package dispatch

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/time/rate"

	"github.com/marmos91/botkit/internal/logger"
	"github.com/marmos91/botkit/internal/telemetry"
	"github.com/marmos91/botkit/pkg/bot"
)

// StateUpdater applies the bulk recipient updates at the end of a run.
type StateUpdater interface {
	MarkReminded(ctx context.Context, ids []int64) (int64, error)
	MarkInactive(ctx context.Context, ids []int64) (int64, error)
}

// Metrics records dispatcher activity. A nil Metrics disables collection.
type Metrics interface {
	RecordOutcome(result string)
	RecordAttempt(class string)
	ObserveRun(duration time.Duration)
}

// Dispatcher sends one message to many recipients. A Dispatcher owns its
// limiter: concurrent runs on the same Dispatcher share the rate ceiling.
type Dispatcher struct {
	sender  bot.Sender
	updater StateUpdater
	policy  Policy
	limiter *rate.Limiter
	metrics Metrics
	jitter  func(lo, hi time.Duration) time.Duration
}

// Option customises a Dispatcher.
type Option func(*Dispatcher)

// WithMetrics enables metrics collection.
func WithMetrics(m Metrics) Option {
	return func(d *Dispatcher) { d.metrics = m }
}

// New creates a dispatcher. updater may be nil to skip the bulk update.
func New(sender bot.Sender, updater StateUpdater, policy Policy, opts ...Option) (*Dispatcher, error) {
	policy.ApplyDefaults()
	if err := policy.Validate(); err != nil {
		return nil, err
	}

	d := &Dispatcher{
		sender:  sender,
		updater: updater,
		policy:  policy,
		limiter: rate.NewLimiter(rate.Limit(policy.Rate), 1),
		jitter:  uniformJitter,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// Policy returns the effective policy.
func (d *Dispatcher) Policy() Policy {
	return d.policy
}

// Run delivers text to every recipient in order, then applies the bulk
// updates. The report is always returned. The error joins the cause of an
// aborted run with any bulk update failure.
//
// Cancelling ctx stops the run at the next suspension point. The attempt in
// flight is abandoned and its recipient is left untouched; outcomes collected
// so far are still persisted under a detached deadline. A rejected bot token
// aborts the run the same way.
func (d *Dispatcher) Run(ctx context.Context, recipients []int64, text string) (*Report, error) {
	report := &Report{
		RunID:    uuid.NewString(),
		Outcomes: make([]Outcome, 0, len(recipients)),
	}
	start := time.Now()

	ctx = logger.WithRunID(ctx, report.RunID)
	ctx, span := telemetry.StartSpan(ctx, telemetry.SpanDispatchRun)
	telemetry.SetAttributes(ctx, telemetry.RunID(report.RunID), telemetry.Recipients(len(recipients)))

	logger.InfoCtx(ctx, "Dispatch started", logger.KeyRecipients, len(recipients), "rate", d.policy.Rate)

	var cause error
	for _, id := range recipients {
		if ctx.Err() != nil {
			cause = context.Cause(ctx)
			break
		}
		out, err := d.deliver(ctx, id, text)
		if err != nil {
			cause = err
			break
		}
		report.Outcomes = append(report.Outcomes, out)
		if d.metrics != nil {
			d.metrics.RecordOutcome(out.Result.String())
		}
	}

	delivered, failed := partition(report.Outcomes)
	report.Delivered, report.Failed = len(delivered), len(failed)

	var errs []error
	if cause != nil {
		report.Aborted = true
		errs = append(errs, fmt.Errorf("dispatch aborted after %d of %d recipients: %w",
			len(report.Outcomes), len(recipients), cause))
	}
	errs = append(errs, d.persist(ctx, report, delivered, failed)...)

	report.Duration = time.Since(start)
	if d.metrics != nil {
		d.metrics.ObserveRun(report.Duration)
	}

	err := errors.Join(errs...)
	telemetry.SetAttributes(ctx,
		attribute.Int(telemetry.AttrDelivered, report.Delivered),
		attribute.Int(telemetry.AttrFailed, report.Failed),
		attribute.Bool(telemetry.AttrAborted, report.Aborted))
	telemetry.Finish(span, err)

	logger.InfoCtx(ctx, "Dispatch finished",
		logger.KeyDelivered, report.Delivered,
		logger.KeyFailed, report.Failed,
		"aborted", report.Aborted,
		logger.DurationMs(report.Duration))

	return report, err
}

// deliver runs the attempt loop for one recipient. A non-nil error aborts
// the run; the outcome is then meaningless.
func (d *Dispatcher) deliver(ctx context.Context, id int64, text string) (Outcome, error) {
	out := Outcome{RecipientID: id}

	for attempt := 1; ; attempt++ {
		if err := d.limiter.Wait(ctx); err != nil {
			return out, abortCause(ctx, err)
		}

		out.Attempts = attempt
		err := d.sender.Send(ctx, id, text)
		class := Classify(err)
		if class == ClassFatal {
			switch {
			case ctx.Err() != nil:
				return out, context.Cause(ctx)
			case errors.Is(err, bot.ErrUnauthorized):
				logger.ErrorCtx(ctx, "Bot token rejected, aborting dispatch", logger.Recipient(id), logger.Err(err))
				if d.metrics != nil {
					d.metrics.RecordAttempt(class.String())
				}
				return out, err
			}
			// a request deadline of its own, not the run's
			class = ClassTransient
		}
		if d.metrics != nil {
			d.metrics.RecordAttempt(class.String())
		}
		out.Err = err

		switch class {
		case ClassOK:
			out.Result = Delivered
			return out, nil

		case ClassPermanent:
			logger.DebugCtx(ctx, "Recipient unreachable", logger.Recipient(id), logger.Err(err))
			out.Result = PermanentlyFailed
			return out, nil

		case ClassTransient:
			if attempt >= d.policy.MaxAttempts {
				logger.WarnCtx(ctx, "Giving up on recipient after retries",
					logger.Recipient(id), logger.KeyAttempt, attempt, logger.Err(err))
				out.Result = GaveUpAfterRetries
				return out, nil
			}
			wait := d.jitter(d.policy.MinBackoff, d.policy.MaxBackoff)
			var retry *bot.RetryAfterError
			if errors.As(err, &retry) && retry.RetryAfter > wait {
				wait = retry.RetryAfter
			}
			logger.WarnCtx(ctx, "Transient delivery failure, retrying",
				logger.Recipient(id), logger.KeyAttempt, attempt, logger.KeyBackoff, wait, logger.Err(err))
			if !sleep(ctx, wait) {
				return out, context.Cause(ctx)
			}

		default:
			logger.ErrorCtx(ctx, "Unexpected delivery failure",
				logger.Recipient(id), logger.KeyAttempt, attempt, logger.Err(err))
			out.Result = GaveUpAfterRetries
			return out, nil
		}
	}
}

// abortCause prefers the run context's cause over the limiter's own error.
func abortCause(ctx context.Context, err error) error {
	if cause := context.Cause(ctx); cause != nil {
		return cause
	}
	return err
}

// persist applies both bulk updates. They are independent: a failure of
// one does not skip the other.
func (d *Dispatcher) persist(ctx context.Context, report *Report, delivered, failed []int64) []error {
	if d.updater == nil || (len(delivered) == 0 && len(failed) == 0) {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.policy.UpdateTimeout)
	defer cancel()

	var errs []error
	if len(delivered) > 0 {
		n, err := d.updater.MarkReminded(ctx, delivered)
		if err != nil {
			logger.ErrorCtx(ctx, "Failed to flag reminded recipients", "count", len(delivered), logger.Err(err))
			errs = append(errs, fmt.Errorf("mark reminded: %w", err))
		}
		report.Reminded = n
	}
	if len(failed) > 0 {
		n, err := d.updater.MarkInactive(ctx, failed)
		if err != nil {
			logger.ErrorCtx(ctx, "Failed to deactivate unreachable recipients", "count", len(failed), logger.Err(err))
			errs = append(errs, fmt.Errorf("mark inactive: %w", err))
		}
		report.Deactivated = n
	}
	return errs
}

func uniformJitter(lo, hi time.Duration) time.Duration {
	if hi <= lo {
		return lo
	}
	return lo + rand.N(hi-lo+1)
}

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
