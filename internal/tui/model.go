// Package tui runs a workout session in the terminal.
package tui

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"

	"github.com/meltforce/fitrun/internal/catalog"
	"github.com/meltforce/fitrun/internal/models"
	"github.com/meltforce/fitrun/internal/runner"
	"github.com/meltforce/fitrun/internal/session"
	"github.com/meltforce/fitrun/internal/upload"
)

// ExtendRestSeconds is how much one press of the extend key adds to a rest.
const ExtendRestSeconds = 15

const recordTimeout = 30 * time.Second

type tickMsg time.Time

type recordedMsg struct{ err error }

// Options configures a Model.
type Options struct {
	UserID   int
	LeadIn   int
	Recorder runner.Recorder
	Log      *slog.Logger
	// TickInterval defaults to one second.
	TickInterval time.Duration
}

// Model is the bubbletea model for one workout session.
type Model struct {
	sess      *session.Session
	plan      catalog.WorkoutPlan
	id        uuid.UUID
	userID    int
	startedAt time.Time
	now       func() time.Time
	interval  time.Duration

	recorder runner.Recorder
	log      *slog.Logger

	keys keyMap
	help help.Model

	confirmQuit bool
	completion  *session.Completion
	result      *models.CompletedWorkout
	recording   bool
	recordDone  bool
	recordErr   error
	quitting    bool
	width       int
}

// New creates a session model for plan. The session waits for the start key.
func New(plan catalog.WorkoutPlan, opts Options) (*Model, error) {
	if opts.TickInterval <= 0 {
		opts.TickInterval = time.Second
	}
	if opts.Log == nil {
		opts.Log = slog.Default()
	}
	m := &Model{
		plan:     plan,
		id:       uuid.New(),
		userID:   opts.UserID,
		now:      time.Now,
		interval: opts.TickInterval,
		recorder: opts.Recorder,
		log:      opts.Log,
		keys:     defaultKeyMap(),
		help:     help.New(),
	}
	sess, err := session.New(plan, session.Options{
		LeadIn:     opts.LeadIn,
		OnComplete: func(c session.Completion) { m.completion = &c },
	})
	if err != nil {
		return nil, err
	}
	m.sess = sess
	return m, nil
}

// State returns the current session state.
func (m *Model) State() session.State {
	return m.sess.State()
}

// Completed reports whether the workout ran to completion.
func (m *Model) Completed() bool {
	return m.completion != nil
}

// RecordErr is the error of the last delivery attempt. An error wrapping
// upload.ErrQueued means the completion was kept locally.
func (m *Model) RecordErr() error {
	return m.recordErr
}

func (m *Model) Init() tea.Cmd {
	return m.tick()
}

func (m *Model) tick() tea.Cmd {
	return tea.Tick(m.interval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.help.Width = msg.Width
		return m, nil

	case tickMsg:
		if m.sess.State().Phase.Terminal() {
			return m, nil
		}
		m.sess.Tick()
		if m.sess.State().Phase.Terminal() {
			return m, m.afterStep()
		}
		return m, m.tick()

	case recordedMsg:
		m.recording = false
		m.recordDone = true
		m.recordErr = msg.err
		if msg.err != nil {
			m.log.Warn("completion not delivered", "workout_id", m.id, "error", msg.err)
		} else {
			m.log.Info("completion recorded", "workout_id", m.id)
		}
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.Abort) {
		m.sess.Quit()
		m.quitting = true
		return m, tea.Quit
	}

	phase := m.sess.State().Phase
	if phase.Terminal() {
		// Any key leaves once the result is settled.
		if m.recording {
			return m, nil
		}
		m.quitting = true
		return m, tea.Quit
	}

	if m.confirmQuit {
		switch {
		case key.Matches(msg, m.keys.Confirm):
			m.sess.Quit()
			m.log.Info("session quit", "workout_id", m.id, "exercise_index", m.sess.State().ExerciseIndex)
			m.quitting = true
			return m, tea.Quit
		case key.Matches(msg, m.keys.Cancel):
			m.confirmQuit = false
		}
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.Toggle):
		m.toggle()
	case key.Matches(msg, m.keys.Skip):
		m.sess.SkipRest()
	case key.Matches(msg, m.keys.Extend):
		m.sess.ExtendRest(ExtendRestSeconds)
	case key.Matches(msg, m.keys.Quit):
		m.confirmQuit = true
		return m, nil
	}
	return m, m.afterStep()
}

// toggle starts a fresh session, resumes a paused one and pauses a running one.
// Toggling during the lead-in cancels it.
func (m *Model) toggle() {
	st := m.sess.State()
	switch {
	case st.Phase == session.PhaseNotStarted:
		m.sess.Start()
		m.startedAt = m.now()
	case st.Phase == session.PhaseCountingDown:
		m.sess.Pause()
	case st.Paused:
		m.sess.Resume()
	default:
		m.sess.Pause()
	}
}

// afterStep starts delivery once the session has completed.
func (m *Model) afterStep() tea.Cmd {
	if m.completion == nil || m.result != nil {
		return nil
	}
	cw := runner.CompletedWorkout(m.id, m.userID, m.plan, m.startedAt, m.now(), *m.completion)
	m.result = &cw
	if m.recorder == nil {
		m.recordDone = true
		return nil
	}
	m.recording = true
	rec := m.recorder
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), recordTimeout)
		defer cancel()
		return recordedMsg{err: rec.RecordCompletion(ctx, cw)}
	}
}

// recordStatus describes delivery of the completion for the view.
func (m *Model) recordStatus() string {
	switch {
	case m.recording:
		return "Saving workout..."
	case !m.recordDone:
		return ""
	case m.recorder == nil:
		return "Workout not saved (no recorder configured)"
	case m.recordErr == nil:
		return "Workout saved"
	case errors.Is(m.recordErr, upload.ErrQueued):
		return "Server unreachable, workout saved locally for later upload"
	default:
		return "Could not save workout: " + m.recordErr.Error()
	}
}

// Completion returns the recorded form of a completed workout.
func (m *Model) Completion() (models.CompletedWorkout, bool) {
	if m.result == nil {
		return models.CompletedWorkout{}, false
	}
	return *m.result, true
}
