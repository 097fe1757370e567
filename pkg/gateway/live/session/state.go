package session

import "fmt"

// State tracks a voice session's lifecycle. Transitions only move
// forward; a session that has started draining never becomes active
// again.
type State int

const (
	StateConnecting State = iota
	StateHandshaking
	StateActive
	StateDraining
	StateEnded
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateHandshaking:
		return "handshaking"
	case StateActive:
		return "active"
	case StateDraining:
		return "draining"
	case StateEnded:
		return "ended"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

var allowedTransitions = map[State][]State{
	StateConnecting:  {StateHandshaking, StateEnded},
	StateHandshaking: {StateActive, StateEnded},
	StateActive:      {StateDraining},
	StateDraining:    {StateEnded},
}

func canTransition(from, to State) bool {
	for _, next := range allowedTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}
