package analysis

import (
	"fmt"
	"strings"
)

// State is the submission workflow state.
type State int

const (
	StateIdle State = iota
	StateConfiguring
	StateSubmitting
	StateSucceeded
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConfiguring:
		return "configuring"
	case StateSubmitting:
		return "submitting"
	case StateSucceeded:
		return "succeeded"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Event drives State changes.
type Event int

const (
	// EventConfigure is any edit of the pending request.
	EventConfigure Event = iota
	EventSubmit
	EventSucceeded
	EventFailed
	EventClose
)

func (e Event) String() string {
	switch e {
	case EventConfigure:
		return "configure"
	case EventSubmit:
		return "submit"
	case EventSucceeded:
		return "succeeded"
	case EventFailed:
		return "failed"
	case EventClose:
		return "close"
	default:
		return fmt.Sprintf("event(%d)", int(e))
	}
}

// transition is the only place state changes are decided. Edits made while
// submitting only affect the next request, so they leave Submitting alone.
func transition(from State, ev Event) (State, error) {
	if ev == EventClose {
		return StateIdle, nil
	}
	switch from {
	case StateIdle, StateSucceeded, StateFailed:
		if ev == EventConfigure {
			return StateConfiguring, nil
		}
	case StateConfiguring:
		switch ev {
		case EventConfigure:
			return StateConfiguring, nil
		case EventSubmit:
			return StateSubmitting, nil
		}
	case StateSubmitting:
		switch ev {
		case EventConfigure:
			return StateSubmitting, nil
		case EventSucceeded:
			return StateSucceeded, nil
		case EventFailed:
			return StateFailed, nil
		}
	}
	return from, fmt.Errorf("%w: %s on %s", ErrInvalidTransition, ev, from)
}

// Mode selects the analysis source.
type Mode int

const (
	ModeUpload Mode = iota
	ModeText
)

func (m Mode) String() string {
	switch m {
	case ModeUpload:
		return "upload"
	case ModeText:
		return "text"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// ParseMode accepts "upload" (or "file"/"pdf") and "text".
func ParseMode(raw string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "upload", "file", "pdf":
		return ModeUpload, nil
	case "text":
		return ModeText, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownMode, raw)
	}
}
