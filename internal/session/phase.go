package session

import "fmt"

// Phase is the top-level mode of a workout session.
type Phase int

const (
	PhaseNotStarted Phase = iota
	PhaseCountingDown
	PhaseActive
	PhaseResting
	PhaseCompleted
	// PhaseQuit is the discarded state entered by Quit. Nothing is recorded.
	PhaseQuit
)

var phaseNames = map[Phase]string{
	PhaseNotStarted:   "not_started",
	PhaseCountingDown: "counting_down",
	PhaseActive:       "active",
	PhaseResting:      "resting",
	PhaseCompleted:    "completed",
	PhaseQuit:         "quit",
}

func (p Phase) String() string {
	if name, ok := phaseNames[p]; ok {
		return name
	}
	return fmt.Sprintf("phase(%d)", int(p))
}

// Terminal reports whether no further transitions are possible.
func (p Phase) Terminal() bool {
	return p == PhaseCompleted || p == PhaseQuit
}

// Running reports whether ticks advance the session clock in this phase.
func (p Phase) Running() bool {
	return p == PhaseActive || p == PhaseResting
}

// MarshalText encodes the phase by name so JSON clients never see the integer.
func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText parses a phase name produced by MarshalText.
func (p *Phase) UnmarshalText(text []byte) error {
	for phase, name := range phaseNames {
		if name == string(text) {
			*p = phase
			return nil
		}
	}
	return fmt.Errorf("unknown phase %q", text)
}
