package runner

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/meltforce/fitrun/internal/catalog"
	"github.com/meltforce/fitrun/internal/session"
)

// CommandKind names a control applied to a live session.
type CommandKind string

const (
	CommandStart      CommandKind = "start"
	CommandPause      CommandKind = "pause"
	CommandResume     CommandKind = "resume"
	CommandSkipRest   CommandKind = "skip_rest"
	CommandExtendRest CommandKind = "extend_rest"
	CommandQuit       CommandKind = "quit"
)

// ParseCommand validates a command name.
func ParseCommand(s string) (CommandKind, error) {
	switch k := CommandKind(s); k {
	case CommandStart, CommandPause, CommandResume, CommandSkipRest, CommandExtendRest, CommandQuit:
		return k, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownCommand, s)
}

// Command is a control request. Seconds is used by extend_rest; zero means the
// configured default.
type Command struct {
	Kind    CommandKind `json:"kind"`
	Seconds int         `json:"seconds,omitempty"`
}

// EventType classifies session events.
type EventType string

const (
	EventTick         EventType = "tick"
	EventPhase        EventType = "phase"
	EventCompleted    EventType = "completed"
	EventRecorded     EventType = "recorded"
	EventRecordFailed EventType = "record_failed"
	EventQuit         EventType = "quit"
)

// Event is pushed to subscribers of a live session.
type Event struct {
	Type      EventType     `json:"type"`
	SessionID uuid.UUID     `json:"session_id"`
	State     session.State `json:"state"`
	Error     string        `json:"error,omitempty"`
}

// RecordStatus tracks delivery of a completion to the recorder.
type RecordStatus string

const (
	RecordNone     RecordStatus = ""
	RecordPending  RecordStatus = "pending"
	RecordDone     RecordStatus = "recorded"
	RecordFailed   RecordStatus = "failed"
	RecordDisabled RecordStatus = "disabled"
)

// Status is the rendering snapshot of a live session.
type Status struct {
	ID           uuid.UUID         `json:"id"`
	UserID       int               `json:"user_id"`
	PlanID       string            `json:"plan_id"`
	PlanName     string            `json:"plan_name"`
	StartedAt    time.Time         `json:"started_at"`
	State        session.State     `json:"state"`
	Exercise     catalog.Exercise  `json:"exercise"`
	NextExercise *catalog.Exercise `json:"next_exercise,omitempty"`
	Record       RecordStatus      `json:"record,omitempty"`
	RecordError  string            `json:"record_error,omitempty"`
}
