package session

import "errors"

// Mode is the playback state of a session.
type Mode int

const (
	Idle Mode = iota
	Playing
	Paused
	Completed
)

func (m Mode) String() string {
	switch m {
	case Idle:
		return "idle"
	case Playing:
		return "playing"
	case Paused:
		return "paused"
	case Completed:
		return "completed"
	}
	return "unknown"
}

var (
	ErrInvalidTransition = errors.New("invalid session transition")
	ErrNoSteps           = errors.New("session has no steps")
)

// transitions lists the modes reachable from each mode.
var transitions = map[Mode][]Mode{
	Idle:      {Playing},
	Playing:   {Paused, Completed, Idle},
	Paused:    {Playing, Idle},
	Completed: {Playing, Idle},
}

func canTransition(from, to Mode) bool {
	if from == to {
		return true
	}
	for _, m := range transitions[from] {
		if m == to {
			return true
		}
	}
	return false
}
