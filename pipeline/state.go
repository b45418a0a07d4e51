package pipeline

import "fmt"

// State is a deployment's position in the connect, transfer, execute and
// cleanup sequence. There are no transitions back to an earlier state.
type State int

const (
	StateIdle State = iota
	StateConnecting
	StateTransferring
	StateExecuting
	StateCleaningUp
	StateDone
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StateConnecting:
		return "Connecting"
	case StateTransferring:
		return "Transferring"
	case StateExecuting:
		return "Executing"
	case StateCleaningUp:
		return "CleaningUp"
	case StateDone:
		return "Done"
	case StateFailed:
		return "Failed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Idle fails on pre-flight validation. Executing always moves on to
// CleaningUp, which fails only when execution could not be dispatched.
var transitions = map[State][]State{
	StateIdle:         {StateConnecting, StateFailed},
	StateConnecting:   {StateTransferring, StateFailed},
	StateTransferring: {StateExecuting, StateFailed},
	StateExecuting:    {StateCleaningUp},
	StateCleaningUp:   {StateDone, StateFailed},
}

// CanTransition reports whether to directly follows s.
func (s State) CanTransition(to State) bool {
	for _, next := range transitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

// Terminal reports whether s is Done or Failed.
func (s State) Terminal() bool {
	return s == StateDone || s == StateFailed
}
