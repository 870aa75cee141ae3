package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/meltforce/fitrun/internal/progress"
)

// GetProgressSummary builds the dashboard summary from all of a user's
// completions and the latest measurement per goal type.
func (db *DB) GetProgressSummary(ctx context.Context, userID int, targets map[string]float64, now time.Time) (*progress.Summary, error) {
	completions, err := db.QueryCompletions(ctx, time.Time{}, now.Add(24*time.Hour), userID, "")
	if err != nil {
		return nil, fmt.Errorf("progress summary: %w", err)
	}
	latest, err := db.LatestProgress(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("progress summary: %w", err)
	}
	s := progress.Summarize(completions, latest, targets, now)
	return &s, nil
}
