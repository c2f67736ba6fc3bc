package dispatch

import (
	"context"
	"errors"
	"net"
	"time"

	"github.com/marmos91/botkit/pkg/bot"
)

// Result is the final state of one recipient in a run.
type Result int

const (
	Delivered Result = iota
	PermanentlyFailed
	GaveUpAfterRetries
)

func (r Result) String() string {
	switch r {
	case Delivered:
		return "delivered"
	case PermanentlyFailed:
		return "permanently_failed"
	case GaveUpAfterRetries:
		return "gave_up"
	default:
		return "unknown"
	}
}

// Class is the classification of a single delivery attempt.
type Class int

const (
	ClassOK Class = iota
	ClassPermanent
	ClassTransient
	ClassFatal
	ClassUnexpected
)

func (c Class) String() string {
	switch c {
	case ClassOK:
		return "ok"
	case ClassPermanent:
		return "permanent"
	case ClassTransient:
		return "transient"
	case ClassFatal:
		return "fatal"
	default:
		return "unexpected"
	}
}

// Classify maps a send error to a Class.
func Classify(err error) Class {
	if err == nil {
		return ClassOK
	}

	var (
		retry  *bot.RetryAfterError
		netErr *bot.NetworkError
		ne     net.Error
	)
	switch {
	case bot.IsPermanent(err):
		return ClassPermanent
	case errors.Is(err, bot.ErrUnauthorized),
		errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return ClassFatal
	case errors.As(err, &retry), errors.As(err, &netErr), errors.As(err, &ne), errors.Is(err, bot.ErrServer):
		return ClassTransient
	default:
		return ClassUnexpected
	}
}

// Outcome is the per-recipient result of a run.
type Outcome struct {
	RecipientID int64
	Result      Result
	Attempts    int
	Err         error // last error, nil when delivered
}

// Report summarises a run.
type Report struct {
	RunID    string
	Outcomes []Outcome

	Delivered int
	Failed    int

	// rows changed by the bulk updates
	Reminded    int64
	Deactivated int64

	Duration time.Duration

	// Aborted is set when the run context ended, or the channel rejected the
	// bot itself, before every recipient was processed. Outcomes then covers
	// only the processed prefix.
	Aborted bool
}

// partition splits outcomes into delivered and failed recipient ids.
func partition(outcomes []Outcome) (delivered, failed []int64) {
	for _, o := range outcomes {
		if o.Result == Delivered {
			delivered = append(delivered, o.RecipientID)
		} else {
			failed = append(failed, o.RecipientID)
		}
	}
	return delivered, failed
}
