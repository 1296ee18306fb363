package drain

import "fmt"

// State is the lifecycle state of one item during a drain.
//
//	pending -> transferring -> transfer_failed
//	                        -> transferred -> deleted
//	                                       -> delete_failed
//	pending -> skipped
//
// No state is re-entered. Only terminal states are reported in results.
type State string

const (
	StatePending        State = "pending"
	StateTransferring   State = "transferring"
	StateTransferFailed State = "transfer_failed"
	StateTransferred    State = "transferred"
	StateDeleted        State = "deleted"
	StateDeleteFailed   State = "delete_failed"
	StateSkipped        State = "skipped"
)

var transitions = map[State][]State{
	StatePending:      {StateTransferring, StateSkipped},
	StateTransferring: {StateTransferFailed, StateTransferred},
	StateTransferred:  {StateDeleted, StateDeleteFailed},
}

// Terminal reports whether no further transition is possible from s.
func (s State) Terminal() bool {
	switch s {
	case StateTransferFailed, StateDeleted, StateDeleteFailed, StateSkipped:
		return true
	}
	return false
}

// CanTransition reports whether next may directly follow s.
func (s State) CanTransition(next State) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

func (s State) String() string {
	return string(s)
}

// advance moves r to next. An illegal transition is a programming error.
func (r *ItemResult) advance(next State) {
	if !r.State.CanTransition(next) {
		panic(fmt.Sprintf("drain: illegal item state transition %s -> %s", r.State, next))
	}
	r.State = next
}
