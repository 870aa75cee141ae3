package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/meltforce/fitrun/internal/models"
)

// InsertCompletion stores a completed workout and its exercise records in one
// transaction. Returns true if inserted, false if the completion was already
// stored (same ID).
func (db *DB) InsertCompletion(ctx context.Context, c models.CompletedWorkout) (bool, error) {
	inserted := false
	err := pgx.BeginFunc(ctx, db.Pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx,
			`INSERT INTO completed_workouts (id, user_id, plan_id, plan_name, started_at, completed_at, total_elapsed_sec, calories)
			 VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
			 ON CONFLICT DO NOTHING`,
			c.ID, c.UserID, c.PlanID, c.PlanName, c.StartedAt, c.CompletedAt, c.TotalElapsedSec, c.Calories)
		if err != nil {
			return fmt.Errorf("inserting completed workout: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return nil
		}
		inserted = true

		if len(c.Exercises) == 0 {
			return nil
		}
		query, args := exerciseRecordInsert(c.ID, c.Exercises)
		if _, err := tx.Exec(ctx, query, args...); err != nil {
			return fmt.Errorf("inserting exercise records: %w", err)
		}
		return nil
	})
	if err != nil {
		return false, err
	}
	return inserted, nil
}

// RecordCompletion stores a completion, treating an already stored completion
// as success.
func (db *DB) RecordCompletion(ctx context.Context, c models.CompletedWorkout) error {
	_, err := db.InsertCompletion(ctx, c)
	return err
}

func exerciseRecordInsert(workoutID uuid.UUID, records []models.ExerciseRecord) (string, []any) {
	query := `INSERT INTO exercise_records (workout_id, position, exercise_id, sets, reps, duration_sec) VALUES `
	args := make([]any, 0, len(records)*6)
	valueStrings := make([]string, 0, len(records))

	for i, r := range records {
		base := i * 6
		valueStrings = append(valueStrings, fmt.Sprintf(
			"($%d,$%d,$%d,$%d,$%d,$%d)",
			base+1, base+2, base+3, base+4, base+5, base+6,
		))
		args = append(args, workoutID, r.Position, r.ExerciseID, r.Sets, r.Reps, r.DurationSec)
	}

	return query + strings.Join(valueStrings, ",") + " ON CONFLICT DO NOTHING", args
}

// QueryCompletions retrieves completed workouts in a time range, newest first.
// Exercise records are not loaded; use GetCompletion for the detail.
func (db *DB) QueryCompletions(ctx context.Context, start, end time.Time, userID int, planFilter string) ([]models.CompletedWorkout, error) {
	query := `SELECT id, user_id, plan_id, plan_name, started_at, completed_at, total_elapsed_sec, calories
		 FROM completed_workouts
		 WHERE completed_at >= $1 AND completed_at < $2 AND user_id = $3`
	args := []any{start, end, userID}
	if planFilter != "" {
		query += ` AND plan_id = $4`
		args = append(args, planFilter)
	}
	query += ` ORDER BY completed_at DESC`

	rows, err := db.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying completions: %w", err)
	}
	defer rows.Close()

	var result []models.CompletedWorkout
	for rows.Next() {
		var c models.CompletedWorkout
		if err := rows.Scan(&c.ID, &c.UserID, &c.PlanID, &c.PlanName, &c.StartedAt, &c.CompletedAt,
			&c.TotalElapsedSec, &c.Calories); err != nil {
			return nil, fmt.Errorf("scanning completion: %w", err)
		}
		result = append(result, c)
	}
	return result, rows.Err()
}

// GetCompletion retrieves a single completed workout with its exercise records.
func (db *DB) GetCompletion(ctx context.Context, id uuid.UUID, userID int) (*models.CompletedWorkout, error) {
	var c models.CompletedWorkout
	err := db.Pool.QueryRow(ctx,
		`SELECT id, user_id, plan_id, plan_name, started_at, completed_at, total_elapsed_sec, calories
		 FROM completed_workouts
		 WHERE id = $1 AND user_id = $2`,
		id, userID).Scan(&c.ID, &c.UserID, &c.PlanID, &c.PlanName, &c.StartedAt, &c.CompletedAt,
		&c.TotalElapsedSec, &c.Calories)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("completion %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("querying completion: %w", err)
	}

	rows, err := db.Pool.Query(ctx,
		`SELECT position, exercise_id, sets, reps, duration_sec
		 FROM exercise_records
		 WHERE workout_id = $1
		 ORDER BY position ASC`,
		id)
	if err != nil {
		return nil, fmt.Errorf("querying exercise records: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var r models.ExerciseRecord
		if err := rows.Scan(&r.Position, &r.ExerciseID, &r.Sets, &r.Reps, &r.DurationSec); err != nil {
			return nil, fmt.Errorf("scanning exercise record: %w", err)
		}
		c.Exercises = append(c.Exercises, r)
	}
	return &c, rows.Err()
}
