package storage

import (
	"context"
	"fmt"
	"time"
)

// DataStats holds aggregate statistics about a user's stored data.
type DataStats struct {
	TotalCompletions   int64      `json:"total_completions"`
	TotalProgress      int64      `json:"total_progress_entries"`
	TotalElapsedSec    int64      `json:"total_elapsed_sec"`
	TotalCalories      int64      `json:"total_calories"`
	EarliestCompletion *time.Time `json:"earliest_completion"`
	LatestCompletion   *time.Time `json:"latest_completion"`
	CompletionsByPlan  []PlanStat `json:"completions_by_plan"`
}

// PlanStat holds summary stats for a single plan.
type PlanStat struct {
	PlanID        string `json:"plan_id"`
	PlanName      string `json:"plan_name"`
	Count         int64  `json:"count"`
	TotalDuration int64  `json:"total_duration_sec"`
}

// GetDataStats returns aggregate statistics for a user's stored data.
func (db *DB) GetDataStats(ctx context.Context, userID int) (*DataStats, error) {
	stats := &DataStats{}

	err := db.Pool.QueryRow(ctx,
		`SELECT COUNT(*), COALESCE(SUM(total_elapsed_sec), 0), COALESCE(SUM(calories), 0),
		        MIN(completed_at), MAX(completed_at)
		 FROM completed_workouts WHERE user_id = $1`, userID,
	).Scan(&stats.TotalCompletions, &stats.TotalElapsedSec, &stats.TotalCalories,
		&stats.EarliestCompletion, &stats.LatestCompletion)
	if err != nil {
		return nil, fmt.Errorf("counting completions: %w", err)
	}

	err = db.Pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM progress_entries WHERE user_id = $1`, userID,
	).Scan(&stats.TotalProgress)
	if err != nil {
		return nil, fmt.Errorf("counting progress entries: %w", err)
	}

	rows, err := db.Pool.Query(ctx,
		`SELECT plan_id, MAX(plan_name), COUNT(*), COALESCE(SUM(total_elapsed_sec), 0)
		 FROM completed_workouts
		 WHERE user_id = $1
		 GROUP BY plan_id
		 ORDER BY COUNT(*) DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("querying completions by plan: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var ps PlanStat
		if err := rows.Scan(&ps.PlanID, &ps.PlanName, &ps.Count, &ps.TotalDuration); err != nil {
			return nil, fmt.Errorf("scanning plan stat: %w", err)
		}
		stats.CompletionsByPlan = append(stats.CompletionsByPlan, ps)
	}
	return stats, rows.Err()
}
