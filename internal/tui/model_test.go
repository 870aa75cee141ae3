package tui

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meltforce/fitrun/internal/catalog"
	"github.com/meltforce/fitrun/internal/models"
	"github.com/meltforce/fitrun/internal/runner"
	"github.com/meltforce/fitrun/internal/session"
	"github.com/meltforce/fitrun/internal/upload"
)

func testPlan() catalog.WorkoutPlan {
	return catalog.WorkoutPlan{
		ID:                   "two_step",
		Name:                 "Two Step",
		RestBetweenExercises: 3,
		Calories:             40,
		Exercises: []catalog.Exercise{
			{ID: "squats", Name: "Squats", Duration: 2, TargetMuscles: []string{"quads"}, Tips: []string{"Knees out"}},
			{ID: "plank", Name: "Plank", Duration: 2},
		},
	}
}

func newTestModel(t *testing.T, rec runner.Recorder) *Model {
	t.Helper()
	m, err := New(testPlan(), Options{
		UserID:   4,
		Recorder: rec,
		Log:      slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	require.NoError(t, err)
	start := time.Date(2026, 5, 1, 7, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return start }
	return m
}

func press(m *Model, k string) tea.Cmd {
	msg := tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
	if k == " " {
		msg = tea.KeyMsg{Type: tea.KeySpace}
	}
	_, cmd := m.Update(msg)
	return cmd
}

func tick(m *Model) tea.Cmd {
	_, cmd := m.Update(tickMsg(time.Now()))
	return cmd
}

func TestRunToCompletionRecords(t *testing.T) {
	var got []models.CompletedWorkout
	rec := runner.RecorderFunc(func(_ context.Context, c models.CompletedWorkout) error {
		got = append(got, c)
		return nil
	})
	m := newTestModel(t, rec)

	press(m, " ")
	assert.Equal(t, session.PhaseActive, m.State().Phase)
	tick(m)
	tick(m)
	assert.Equal(t, session.PhaseResting, m.State().Phase)

	press(m, "s")
	assert.Equal(t, session.PhaseActive, m.State().Phase)
	assert.Equal(t, 1, m.State().ExerciseIndex)

	tick(m)
	cmd := tick(m)
	require.True(t, m.Completed())
	require.NotNil(t, cmd)
	assert.Contains(t, m.View(), "Saving workout")

	m.Update(cmd())
	require.Len(t, got, 1)
	assert.Equal(t, "two_step", got[0].PlanID)
	assert.Equal(t, 4, got[0].UserID)
	assert.Equal(t, 4, got[0].TotalElapsedSec)
	assert.Len(t, got[0].Exercises, 2)

	cw, ok := m.Completion()
	require.True(t, ok)
	assert.Equal(t, got[0].ID, cw.ID)
	assert.NoError(t, m.RecordErr())
	assert.Contains(t, m.View(), "Workout saved")

	// Further ticks neither re-record nor reschedule.
	assert.Nil(t, tick(m))
	assert.Len(t, got, 1)
}

func TestQueuedCompletionStatus(t *testing.T) {
	rec := runner.RecorderFunc(func(context.Context, models.CompletedWorkout) error {
		return fmt.Errorf("%w: connection refused", upload.ErrQueued)
	})
	m := newTestModel(t, rec)

	press(m, " ")
	for i := 0; i < 4 && !m.Completed(); i++ {
		tick(m)
	}
	press(m, "s")
	var cmd tea.Cmd
	for i := 0; i < 4 && !m.Completed(); i++ {
		cmd = tick(m)
	}
	require.True(t, m.Completed())
	m.Update(cmd())

	assert.True(t, errors.Is(m.RecordErr(), upload.ErrQueued))
	assert.Contains(t, m.recordStatus(), "saved locally")
}

func TestNoRecorder(t *testing.T) {
	m := newTestModel(t, nil)
	press(m, " ")
	tick(m)
	tick(m)
	press(m, "s")
	tick(m)
	assert.Nil(t, tick(m))
	assert.True(t, m.Completed())
	assert.Contains(t, m.recordStatus(), "not saved")
}

func TestPauseResume(t *testing.T) {
	m := newTestModel(t, nil)
	press(m, " ")
	tick(m)
	press(m, " ")
	require.True(t, m.State().Paused)

	tick(m)
	tick(m)
	assert.Equal(t, 1, m.State().TimeLeft)
	assert.Contains(t, m.View(), "PAUSED")

	press(m, "p")
	assert.False(t, m.State().Paused)
	tick(m)
	assert.Equal(t, session.PhaseResting, m.State().Phase)
}

func TestExtendRest(t *testing.T) {
	m := newTestModel(t, nil)
	press(m, " ")
	tick(m)
	tick(m)
	require.Equal(t, session.PhaseResting, m.State().Phase)

	press(m, "+")
	assert.Equal(t, 3+ExtendRestSeconds, m.State().TimeLeft)
	assert.Contains(t, m.View(), "Up next: ")
}

func TestQuitNeedsConfirmation(t *testing.T) {
	m := newTestModel(t, nil)
	press(m, " ")

	assert.Nil(t, press(m, "q"))
	assert.Contains(t, m.View(), "Quit workout?")
	press(m, "n")
	assert.Equal(t, session.PhaseActive, m.State().Phase)

	press(m, "q")
	cmd := press(m, "y")
	require.NotNil(t, cmd)
	assert.Equal(t, tea.QuitMsg{}, cmd())
	assert.Equal(t, session.PhaseQuit, m.State().Phase)
	assert.False(t, m.Completed())
	assert.Empty(t, m.View())
}

func TestViewShowsExercise(t *testing.T) {
	m := newTestModel(t, nil)
	press(m, " ")

	v := m.View()
	assert.Contains(t, v, "Two Step")
	assert.Contains(t, v, "exercise 1/2")
	assert.Contains(t, v, "WORK  0:02")
	assert.Contains(t, v, "targets: quads")
	assert.Contains(t, v, "Knees out")
	assert.Contains(t, v, "next: Plank")
}

func TestFormatClock(t *testing.T) {
	assert.Equal(t, "0:00", FormatClock(0))
	assert.Equal(t, "0:09", FormatClock(9))
	assert.Equal(t, "1:05", FormatClock(65))
	assert.Equal(t, "12:00", FormatClock(720))
	assert.Equal(t, "0:00", FormatClock(-3))
}

func TestToggleCancelsLeadIn(t *testing.T) {
	m, err := New(testPlan(), Options{LeadIn: 3, Log: slog.New(slog.NewTextHandler(io.Discard, nil))})
	require.NoError(t, err)

	press(m, " ")
	require.Equal(t, session.PhaseCountingDown, m.State().Phase)
	assert.Contains(t, m.View(), "GET READY  3")

	press(m, " ")
	assert.Equal(t, session.PhaseNotStarted, m.State().Phase)
	assert.True(t, m.State().Paused)
}
