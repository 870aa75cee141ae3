package storage

import (
	"context"
	"fmt"

	"github.com/meltforce/fitrun/internal/models"
)

// InsertProgress stores a progress entry.
func (db *DB) InsertProgress(ctx context.Context, e models.ProgressEntry) error {
	_, err := db.Pool.Exec(ctx,
		`INSERT INTO progress_entries (id, user_id, goal_type, value, recorded_at, notes)
		 VALUES ($1,$2,$3,$4,$5,$6)
		 ON CONFLICT DO NOTHING`,
		e.ID, e.UserID, e.GoalType, e.Value, e.RecordedAt, e.Notes)
	if err != nil {
		return fmt.Errorf("inserting progress entry: %w", err)
	}
	return nil
}

// QueryProgress returns a user's progress entries, newest first. An empty
// goalType returns all goal types.
func (db *DB) QueryProgress(ctx context.Context, userID int, goalType string) ([]models.ProgressEntry, error) {
	query := `SELECT id, user_id, goal_type, value, recorded_at, notes
		 FROM progress_entries
		 WHERE user_id = $1`
	args := []any{userID}
	if goalType != "" {
		query += ` AND goal_type = $2`
		args = append(args, goalType)
	}
	query += ` ORDER BY recorded_at DESC`

	rows, err := db.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying progress entries: %w", err)
	}
	defer rows.Close()

	return scanProgressRows(rows)
}

// LatestProgress returns the most recent entry per goal type.
func (db *DB) LatestProgress(ctx context.Context, userID int) ([]models.ProgressEntry, error) {
	rows, err := db.Pool.Query(ctx,
		`SELECT DISTINCT ON (goal_type) id, user_id, goal_type, value, recorded_at, notes
		 FROM progress_entries
		 WHERE user_id = $1
		 ORDER BY goal_type, recorded_at DESC`,
		userID)
	if err != nil {
		return nil, fmt.Errorf("querying latest progress: %w", err)
	}
	defer rows.Close()

	return scanProgressRows(rows)
}

func scanProgressRows(rows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}) ([]models.ProgressEntry, error) {
	var result []models.ProgressEntry
	for rows.Next() {
		var e models.ProgressEntry
		if err := rows.Scan(&e.ID, &e.UserID, &e.GoalType, &e.Value, &e.RecordedAt, &e.Notes); err != nil {
			return nil, fmt.Errorf("scanning progress entry: %w", err)
		}
		result = append(result, e)
	}
	return result, rows.Err()
}
