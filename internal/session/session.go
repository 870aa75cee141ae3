// Package session implements the workout session timer.
//
// A Session walks a workout plan's exercises in order, alternating between an
// active phase for each exercise and a rest phase between exercises, and
// reports a Completion exactly once when the last exercise finishes. It is a
// pure state machine: time only advances when the caller invokes Tick, and a
// Session is not safe for concurrent use. Callers serialize Tick and the
// control methods onto one goroutine.
package session

import (
	"errors"

	"github.com/meltforce/fitrun/internal/catalog"
)

// DefaultLeadIn is the number of ticks in the 3-2-1 countdown before
// exercising starts or resumes.
const DefaultLeadIn = 3

var (
	ErrEmptyPlan       = errors.New("workout plan has no exercises")
	ErrInvalidDuration = errors.New("exercise duration must be positive")
	ErrInvalidRest     = errors.New("rest between exercises must not be negative")
)

// State is the observable state of a session, suitable for rendering.
type State struct {
	Phase         Phase `json:"phase"`
	ExerciseIndex int   `json:"exercise_index"`
	TimeLeft      int   `json:"time_left"`     // seconds left in the current phase
	TotalElapsed  int   `json:"total_elapsed"` // seconds spent active or resting, unpaused
	Paused        bool  `json:"paused"`
	LeadIn        int   `json:"lead_in"` // countdown ticks left while CountingDown
}

// Transition describes a phase change.
type Transition struct {
	From          Phase
	To            Phase
	ExerciseIndex int
}

// ExerciseRecord is the per-exercise outcome reported on completion.
type ExerciseRecord struct {
	ExerciseID string `json:"exercise_id"`
	Sets       *int   `json:"sets,omitempty"`
	Reps       *int   `json:"reps,omitempty"`
	Duration   *int   `json:"duration,omitempty"`
}

// Completion is handed to the completion callback when the session finishes.
type Completion struct {
	TotalElapsed     int              `json:"total_elapsed"`
	CaloriesEstimate int              `json:"calories_estimate"`
	Exercises        []ExerciseRecord `json:"exercises"`
}

// Options configures a Session. The zero value uses no lead-in and no callbacks;
// use DefaultOptions for the standard 3-count lead-in.
type Options struct {
	LeadIn       int
	OnTransition func(Transition)
	OnComplete   func(Completion)
}

// DefaultOptions returns Options with the standard lead-in.
func DefaultOptions() Options {
	return Options{LeadIn: DefaultLeadIn}
}

// Session is the timer state machine for one run of a workout plan.
type Session struct {
	plan  catalog.WorkoutPlan
	opts  Options
	state State

	// leadInFrom is the phase the running lead-in started from; the session
	// returns to it if the lead-in is cancelled by Pause.
	leadInFrom Phase
	completed  bool
}

// New creates a session for plan. It refuses plans a session cannot run.
func New(plan catalog.WorkoutPlan, opts Options) (*Session, error) {
	if len(plan.Exercises) == 0 {
		return nil, ErrEmptyPlan
	}
	for _, e := range plan.Exercises {
		if e.Duration <= 0 {
			return nil, ErrInvalidDuration
		}
	}
	if plan.RestBetweenExercises < 0 {
		return nil, ErrInvalidRest
	}
	if opts.LeadIn < 0 {
		opts.LeadIn = 0
	}

	return &Session{
		plan: plan,
		opts: opts,
		state: State{
			Phase:    PhaseNotStarted,
			TimeLeft: plan.Exercises[0].Duration,
			Paused:   true,
		},
	}, nil
}

// State returns a copy of the current state.
func (s *Session) State() State {
	return s.state
}

// Plan returns the plan the session runs.
func (s *Session) Plan() catalog.WorkoutPlan {
	return s.plan
}

// Exercise returns the current exercise. While resting it is the exercise just
// finished; NextExercise returns the one coming up.
func (s *Session) Exercise() catalog.Exercise {
	return s.plan.Exercises[s.state.ExerciseIndex]
}

// NextExercise returns the exercise after the current one, if any.
func (s *Session) NextExercise() (catalog.Exercise, bool) {
	next := s.state.ExerciseIndex + 1
	if next >= len(s.plan.Exercises) {
		return catalog.Exercise{}, false
	}
	return s.plan.Exercises[next], true
}

// Start begins the session with the lead-in countdown. On a paused session
// that has already started it behaves like Resume.
func (s *Session) Start() bool {
	switch {
	case s.state.Phase == PhaseNotStarted:
		s.beginLeadIn()
		return true
	case s.state.Phase.Running() && s.state.Paused:
		s.beginLeadIn()
		return true
	}
	return false
}

// Resume restarts a paused session through the lead-in countdown.
func (s *Session) Resume() bool {
	if !s.state.Phase.Running() || !s.state.Paused {
		return false
	}
	s.beginLeadIn()
	return true
}

// Pause stops the clock. TimeLeft is left untouched. Pausing during the
// lead-in cancels it.
func (s *Session) Pause() bool {
	switch {
	case s.state.Phase == PhaseCountingDown:
		s.state.LeadIn = 0
		s.state.Paused = true
		s.setPhase(s.leadInFrom)
		return true
	case s.state.Phase.Running() && !s.state.Paused:
		s.state.Paused = true
		return true
	}
	return false
}

// Tick advances the session by one second.
func (s *Session) Tick() {
	switch {
	case s.state.Phase == PhaseCountingDown:
		s.state.LeadIn--
		if s.state.LeadIn <= 0 {
			s.finishLeadIn()
		}
		return
	case !s.state.Phase.Running() || s.state.Paused:
		return
	}

	if s.state.TimeLeft > 0 {
		s.state.TimeLeft--
		s.state.TotalElapsed++
	}
	if s.state.TimeLeft == 0 {
		s.advance()
	}
}

// SkipRest ends the current rest immediately and moves on to the next exercise.
func (s *Session) SkipRest() bool {
	if s.state.Phase != PhaseResting {
		return false
	}
	s.state.TimeLeft = 0
	s.advance()
	return true
}

// ExtendRest adds seconds to the current rest.
func (s *Session) ExtendRest(seconds int) bool {
	if s.state.Phase != PhaseResting || seconds <= 0 {
		return false
	}
	s.state.TimeLeft += seconds
	return true
}

// Quit discards the session without reporting a completion.
func (s *Session) Quit() bool {
	if s.state.Phase.Terminal() {
		return false
	}
	s.state.Paused = true
	s.state.LeadIn = 0
	s.setPhase(PhaseQuit)
	return true
}

func (s *Session) beginLeadIn() {
	from := s.state.Phase
	if s.opts.LeadIn == 0 {
		s.leadInFrom = from
		s.finishLeadIn()
		return
	}
	s.leadInFrom = from
	s.state.LeadIn = s.opts.LeadIn
	s.setPhase(PhaseCountingDown)
}

func (s *Session) finishLeadIn() {
	s.state.LeadIn = 0
	s.state.Paused = false
	if s.leadInFrom == PhaseNotStarted {
		s.setPhase(PhaseActive)
		return
	}
	s.setPhase(s.leadInFrom)
}

// advance handles a phase whose time has run out.
func (s *Session) advance() {
	last := len(s.plan.Exercises) - 1

	switch s.state.Phase {
	case PhaseActive:
		if s.state.ExerciseIndex == last {
			s.complete()
			return
		}
		s.state.TimeLeft = s.plan.RestBetweenExercises
		s.setPhase(PhaseResting)
	case PhaseResting:
		s.state.ExerciseIndex++
		s.state.TimeLeft = s.plan.Exercises[s.state.ExerciseIndex].Duration
		s.setPhase(PhaseActive)
	}
}

func (s *Session) complete() {
	s.state.TimeLeft = 0
	s.state.Paused = true
	s.setPhase(PhaseCompleted)

	if s.completed {
		return
	}
	s.completed = true
	if s.opts.OnComplete != nil {
		s.opts.OnComplete(s.completion())
	}
}

func (s *Session) completion() Completion {
	records := make([]ExerciseRecord, 0, len(s.plan.Exercises))
	for _, e := range s.plan.Exercises {
		d := e.Duration
		records = append(records, ExerciseRecord{
			ExerciseID: e.ID,
			Sets:       e.Sets,
			Reps:       e.Reps,
			Duration:   &d,
		})
	}
	return Completion{
		TotalElapsed:     s.state.TotalElapsed,
		CaloriesEstimate: s.plan.Calories,
		Exercises:        records,
	}
}

func (s *Session) setPhase(to Phase) {
	from := s.state.Phase
	if from == to {
		return
	}
	s.state.Phase = to
	if s.opts.OnTransition != nil {
		s.opts.OnTransition(Transition{From: from, To: to, ExerciseIndex: s.state.ExerciseIndex})
	}
}
