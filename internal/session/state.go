package session

import "fmt"

// State is the lifecycle state of an interview session
type State int

const (
	StateLoading        State = iota // Gathering application data, resume context, questions
	StateCountdown                   // Pre-interview countdown running
	StateAwaitingAnswer              // Question asked, candidate answering
	StateEvaluating                  // Answer submitted, scoring in flight
	StateCompleted                   // Interview finished, verdict delivered
	StateAborted                     // Fatal setup or session error
	StateCancelled                   // Candidate ended the interview early
)

// String returns a human-readable state name
func (s State) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateCountdown:
		return "countdown"
	case StateAwaitingAnswer:
		return "awaiting_answer"
	case StateEvaluating:
		return "evaluating"
	case StateCompleted:
		return "completed"
	case StateAborted:
		return "aborted"
	case StateCancelled:
		return "cancelled"
	default:
		return fmt.Sprintf("unknown(%d)", int(s))
	}
}

// Terminal reports whether the state admits no further transitions
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateAborted || s == StateCancelled
}

// transitions is the set of legal state changes. Anything not listed is
// rejected by transition().
var transitions = map[State][]State{
	StateLoading:        {StateCountdown, StateAborted, StateCancelled},
	StateCountdown:      {StateAwaitingAnswer, StateAborted, StateCancelled},
	StateAwaitingAnswer: {StateEvaluating, StateAborted, StateCancelled},
	StateEvaluating:     {StateAwaitingAnswer, StateCompleted, StateAborted, StateCancelled},
}

// CanTransition reports whether moving from one state to another is legal
func CanTransition(from, to State) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}
