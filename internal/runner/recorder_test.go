package runner

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meltforce/fitrun/internal/models"
	"github.com/meltforce/fitrun/internal/session"
)

func TestMultiRecorderPrimaryErrorWins(t *testing.T) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	primaryErr := errors.New("primary down")
	secondary := &fakeRecorder{}

	mr := NewMultiRecorder(log, RecorderFunc(func(context.Context, models.CompletedWorkout) error {
		return primaryErr
	}), secondary)

	err := mr.RecordCompletion(context.Background(), models.CompletedWorkout{ID: uuid.New()})
	require.ErrorIs(t, err, primaryErr)
	assert.Empty(t, secondary.recorded(), "secondaries are skipped when the primary fails")
}

func TestMultiRecorderSecondaryFailureIgnored(t *testing.T) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	primary := &fakeRecorder{}
	broken := &fakeRecorder{err: errors.New("kafka unavailable")}
	other := &fakeRecorder{}

	mr := NewMultiRecorder(log, primary, broken, other)
	require.NoError(t, mr.RecordCompletion(context.Background(), models.CompletedWorkout{ID: uuid.New()}))

	assert.Len(t, primary.recorded(), 1)
	assert.Len(t, broken.recorded(), 1)
	assert.Len(t, other.recorded(), 1)
}

func TestCompletedWorkoutConversion(t *testing.T) {
	sets, reps, d1, d2 := 3, 12, 30, 45
	id := uuid.New()
	started := time.Date(2024, 3, 10, 8, 0, 0, 0, time.UTC)
	done := started.Add(2 * time.Minute)

	c := CompletedWorkout(id, 4, shortPlan(), started, done, session.Completion{
		TotalElapsed:     95,
		CaloriesEstimate: 120,
		Exercises: []session.ExerciseRecord{
			{ExerciseID: "a", Duration: &d1},
			{ExerciseID: "b", Sets: &sets, Reps: &reps, Duration: &d2},
		},
	})

	assert.Equal(t, id, c.ID)
	assert.Equal(t, "Short", c.PlanName)
	assert.Equal(t, 95, c.TotalElapsedSec)
	assert.Equal(t, 120, c.Calories)
	assert.Equal(t, done, c.CompletedAt)
	require.Len(t, c.Exercises, 2)
	assert.Equal(t, 0, c.Exercises[0].Position)
	assert.Nil(t, c.Exercises[0].Sets)
	assert.Equal(t, &reps, c.Exercises[1].Reps)
}
