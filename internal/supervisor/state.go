package supervisor

// State is the supervisor's view of the game server.
type State int32

const (
	StateStopped State = iota
	StateStarting
	StateRunning
	StateCrashed
	StateRestarting
	// StateShuttingDown is terminal.
	StateShuttingDown
)

func (s State) String() string {
	switch s {
	case StateStopped:
		return "stopped"
	case StateStarting:
		return "starting"
	case StateRunning:
		return "running"
	case StateCrashed:
		return "crashed"
	case StateRestarting:
		return "restarting"
	case StateShuttingDown:
		return "shutting_down"
	default:
		return "unknown"
	}
}

var allStates = []State{StateStopped, StateStarting, StateRunning, StateCrashed, StateRestarting, StateShuttingDown}
