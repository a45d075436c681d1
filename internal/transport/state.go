package transport

// State is the connection state.
type State int

const (
	Disconnected State = iota
	Connecting
	Open
	Closing
)

func (s State) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Open:
		return "open"
	case Closing:
		return "closing"
	}
	return "unknown"
}

var stateTransitions = map[State][]State{
	Disconnected: {Connecting},
	Connecting:   {Open, Disconnected},
	Open:         {Closing, Disconnected},
	Closing:      {Disconnected},
}

func canMove(from, to State) bool {
	for _, s := range stateTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}
