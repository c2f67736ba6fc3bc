package lifecycle

import "sync"

// Event is a set-once termination event. The first Set wins; later calls are
// ignored and the recorded reason never changes.
type Event struct {
	once   sync.Once
	ch     chan struct{}
	reason string
	err    error
}

// NewEvent returns an unset Event.
func NewEvent() *Event {
	return &Event{ch: make(chan struct{})}
}

// Set fires the event. It reports whether this call was the one that set it.
// err is non-nil when termination is caused by a failure.
func (e *Event) Set(reason string, err error) bool {
	set := false
	e.once.Do(func() {
		e.reason = reason
		e.err = err
		close(e.ch)
		set = true
	})
	return set
}

// Done returns a channel closed when the event is set.
func (e *Event) Done() <-chan struct{} {
	return e.ch
}

// IsSet reports whether the event has fired.
func (e *Event) IsSet() bool {
	select {
	case <-e.ch:
		return true
	default:
		return false
	}
}

// Reason returns the reason and failure recorded by the first Set. Both are
// zero until the event fires.
func (e *Event) Reason() (string, error) {
	if !e.IsSet() {
		return "", nil
	}
	return e.reason, e.err
}
