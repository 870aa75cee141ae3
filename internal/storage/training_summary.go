package storage

import (
	"context"
	"fmt"
	"time"
)

// PlanPeriodSummary holds aggregated completion stats for one plan within a period.
type PlanPeriodSummary struct {
	PlanID        string  `json:"plan_id"`
	PlanName      string  `json:"plan_name"`
	Count         int     `json:"count"`
	TotalMinutes  float64 `json:"total_minutes"`
	TotalCalories int     `json:"total_calories"`
}

// TrainingSummaryPeriod holds completion stats for one time period.
type TrainingSummaryPeriod struct {
	Period        string              `json:"period"`
	Workouts      int                 `json:"workouts"`
	TotalMinutes  float64             `json:"total_minutes"`
	TotalCalories int                 `json:"total_calories"`
	Plans         []PlanPeriodSummary `json:"plans"`
}

// GetTrainingSummary returns completion counts, minutes and calories per plan per period.
func (db *DB) GetTrainingSummary(ctx context.Context, start, end time.Time, bucket string, userID int) ([]TrainingSummaryPeriod, error) {
	rows, err := db.Pool.Query(ctx,
		`SELECT date_trunc($1, completed_at)::date AS period,
		        plan_id,
		        MAX(plan_name),
		        COUNT(*)::int,
		        COALESCE(SUM(total_elapsed_sec), 0)::float8 / 60,
		        COALESCE(SUM(calories), 0)::int
		 FROM completed_workouts
		 WHERE completed_at >= $2 AND completed_at < $3 AND user_id = $4
		 GROUP BY period, plan_id
		 ORDER BY period DESC, COUNT(*) DESC`,
		truncInterval(bucket), start, end, userID)
	if err != nil {
		return nil, fmt.Errorf("querying training summary: %w", err)
	}
	defer rows.Close()

	periodMap := make(map[string]*TrainingSummaryPeriod)
	var periodOrder []string

	for rows.Next() {
		var periodTime time.Time
		var ps PlanPeriodSummary
		if err := rows.Scan(&periodTime, &ps.PlanID, &ps.PlanName, &ps.Count, &ps.TotalMinutes, &ps.TotalCalories); err != nil {
			return nil, fmt.Errorf("scanning training summary: %w", err)
		}
		key := periodTime.Format("2006-01-02")
		p, ok := periodMap[key]
		if !ok {
			p = &TrainingSummaryPeriod{Period: key}
			periodMap[key] = p
			periodOrder = append(periodOrder, key)
		}
		p.Plans = append(p.Plans, ps)
		p.Workouts += ps.Count
		p.TotalMinutes += ps.TotalMinutes
		p.TotalCalories += ps.TotalCalories
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	result := make([]TrainingSummaryPeriod, 0, len(periodOrder))
	for _, key := range periodOrder {
		result = append(result, *periodMap[key])
	}
	return result, nil
}

// truncInterval converts bucket strings like "1 month" to the interval name
// that date_trunc expects (e.g. "month", "week").
func truncInterval(bucket string) string {
	switch bucket {
	case "1 day":
		return "day"
	case "1 week":
		return "week"
	case "1 month":
		return "month"
	default:
		return "month"
	}
}
