package lifecycle

// State is the orchestrator's lifecycle state. Transitions only move forward:
// Unconfigured → Configuring → Running → ShuttingDown → Stopped, and
// ShuttingDown can be entered from any earlier state, once.
type State int32

const (
	StateUnconfigured State = iota
	StateConfiguring
	StateRunning
	StateShuttingDown
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateUnconfigured:
		return "unconfigured"
	case StateConfiguring:
		return "configuring"
	case StateRunning:
		return "running"
	case StateShuttingDown:
		return "shutting_down"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Terminal reports whether the state is ShuttingDown or Stopped.
func (s State) Terminal() bool {
	return s >= StateShuttingDown
}
