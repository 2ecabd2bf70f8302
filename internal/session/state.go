package session

import (
	"fmt"

	"docwise-client/internal/gateway"
)

// State is the authentication state of the process.
type State int

const (
	// StateUnresolved is the initial state and is never re-entered.
	StateUnresolved State = iota
	StateUnauthenticated
	StateAuthenticated
)

func (s State) String() string {
	switch s {
	case StateUnresolved:
		return "unresolved"
	case StateUnauthenticated:
		return "unauthenticated"
	case StateAuthenticated:
		return "authenticated"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Event drives State changes.
type Event int

const (
	EventProbeSucceeded Event = iota
	EventProbeFailed
	EventLoggedIn
	EventLoggedOut
)

func (e Event) String() string {
	switch e {
	case EventProbeSucceeded:
		return "probe_succeeded"
	case EventProbeFailed:
		return "probe_failed"
	case EventLoggedIn:
		return "logged_in"
	case EventLoggedOut:
		return "logged_out"
	default:
		return fmt.Sprintf("event(%d)", int(e))
	}
}

// transition is the only place state changes are decided.
func transition(from State, ev Event) (State, error) {
	switch from {
	case StateUnresolved:
		switch ev {
		case EventProbeSucceeded, EventLoggedIn:
			return StateAuthenticated, nil
		case EventProbeFailed, EventLoggedOut:
			return StateUnauthenticated, nil
		}
	case StateUnauthenticated:
		if ev == EventLoggedIn {
			return StateAuthenticated, nil
		}
	case StateAuthenticated:
		if ev == EventLoggedOut {
			return StateUnauthenticated, nil
		}
	}
	return from, fmt.Errorf("%w: %s on %s", ErrInvalidTransition, ev, from)
}

// Snapshot is what the view layer renders. User is nil unless Authenticated.
type Snapshot struct {
	State State
	User  *gateway.User
}

// Authenticated reports whether s carries a signed-in user.
func (s Snapshot) Authenticated() bool {
	return s.State == StateAuthenticated && s.User != nil
}
