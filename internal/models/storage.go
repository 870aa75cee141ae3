package models

import (
	"time"

	"github.com/google/uuid"
)

// CompletedWorkout is a finished session, ready for insertion into the
// completed_workouts table. The ID is the live session's ID so that retried
// deliveries of the same completion are deduplicated.
type CompletedWorkout struct {
	ID              uuid.UUID        `json:"id"`
	UserID          int              `json:"user_id"`
	PlanID          string           `json:"plan_id"`
	PlanName        string           `json:"plan_name"`
	StartedAt       time.Time        `json:"started_at"`
	CompletedAt     time.Time        `json:"completed_at"`
	TotalElapsedSec int              `json:"total_elapsed_sec"`
	Calories        int              `json:"calories"`
	Exercises       []ExerciseRecord `json:"exercises"`
}

// ExerciseRecord is a row for the exercise_records table.
type ExerciseRecord struct {
	Position    int    `json:"position"`
	ExerciseID  string `json:"exercise_id"`
	Sets        *int   `json:"sets,omitempty"`
	Reps        *int   `json:"reps,omitempty"`
	DurationSec *int   `json:"duration_sec,omitempty"`
}

// ProgressEntry is a row for the progress_entries table: one measurement
// toward a goal (body weight in kg, a strength score, a stamina score).
type ProgressEntry struct {
	ID         uuid.UUID `json:"id"`
	UserID     int       `json:"user_id"`
	GoalType   string    `json:"goal_type"`
	Value      float64   `json:"value"`
	RecordedAt time.Time `json:"recorded_at"`
	Notes      string    `json:"notes,omitempty"`
}
