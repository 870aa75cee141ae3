package runner

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/meltforce/fitrun/internal/catalog"
	"github.com/meltforce/fitrun/internal/models"
	"github.com/meltforce/fitrun/internal/session"
)

// Recorder persists a completed workout. Implementations must be idempotent on
// the completion ID.
type Recorder interface {
	RecordCompletion(ctx context.Context, c models.CompletedWorkout) error
}

// RecorderFunc adapts a function to Recorder.
type RecorderFunc func(ctx context.Context, c models.CompletedWorkout) error

func (f RecorderFunc) RecordCompletion(ctx context.Context, c models.CompletedWorkout) error {
	return f(ctx, c)
}

// MultiRecorder delivers a completion to a primary recorder and any number of
// secondary ones. Only the primary's error is returned; secondary failures are
// logged.
type MultiRecorder struct {
	primary   Recorder
	secondary []Recorder
	log       *slog.Logger
}

// NewMultiRecorder creates a MultiRecorder.
func NewMultiRecorder(log *slog.Logger, primary Recorder, secondary ...Recorder) *MultiRecorder {
	return &MultiRecorder{primary: primary, secondary: secondary, log: log}
}

func (m *MultiRecorder) RecordCompletion(ctx context.Context, c models.CompletedWorkout) error {
	if err := m.primary.RecordCompletion(ctx, c); err != nil {
		return err
	}
	for _, r := range m.secondary {
		if err := r.RecordCompletion(ctx, c); err != nil {
			m.log.Warn("secondary recorder failed", "recorder", fmt.Sprintf("%T", r), "workout_id", c.ID, "error", err)
		}
	}
	return nil
}

// CompletedWorkout converts a session completion into the stored form.
func CompletedWorkout(id uuid.UUID, userID int, plan catalog.WorkoutPlan, startedAt, completedAt time.Time, c session.Completion) models.CompletedWorkout {
	records := make([]models.ExerciseRecord, 0, len(c.Exercises))
	for i, e := range c.Exercises {
		records = append(records, models.ExerciseRecord{
			Position:    i,
			ExerciseID:  e.ExerciseID,
			Sets:        e.Sets,
			Reps:        e.Reps,
			DurationSec: e.Duration,
		})
	}
	return models.CompletedWorkout{
		ID:              id,
		UserID:          userID,
		PlanID:          plan.ID,
		PlanName:        plan.Name,
		StartedAt:       startedAt,
		CompletedAt:     completedAt,
		TotalElapsedSec: c.TotalElapsed,
		Calories:        c.CaloriesEstimate,
		Exercises:       records,
	}
}
