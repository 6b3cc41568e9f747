package ledger

// Status is the lifecycle state of a filing event.
//
//	pending ──► sent ──► processed
//	   │          │
//	   └──────────┴────► error
type Status string

// Lifecycle states.
const (
	StatusPending   Status = "pending"
	StatusSent      Status = "sent"
	StatusProcessed Status = "processed"
	StatusError     Status = "error"
)

// Statuses lists every state in lifecycle order.
var Statuses = []Status{StatusPending, StatusSent, StatusProcessed, StatusError}

// Valid reports whether s is a known state.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusSent, StatusProcessed, StatusError:
		return true
	}
	return false
}

// Terminal reports whether no further transition is possible from s.
func (s Status) Terminal() bool {
	return s == StatusProcessed || s == StatusError
}

// Rank orders states along the lifecycle. Terminal states share a rank.
func (s Status) Rank() int {
	switch s {
	case StatusSent:
		return 1
	case StatusProcessed, StatusError:
		return 2
	default:
		return 0
	}
}

// CanTransition reports whether from → to is an edge of the lifecycle.
// Staying in the same state is not a transition.
func CanTransition(from, to Status) bool {
	switch from {
	case StatusPending:
		return to == StatusSent || to == StatusError
	case StatusSent:
		return to == StatusProcessed || to == StatusError
	default:
		return false
	}
}
