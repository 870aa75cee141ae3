// Package progress derives dashboard figures from stored completions and
// progress entries: the day streak, total minutes, goal percentages and BMI.
package progress

import (
	"errors"
	"math"
	"time"

	"github.com/meltforce/fitrun/internal/models"
)

var ErrInvalidMeasurement = errors.New("height and weight must be positive")

// civilDay maps t to midnight UTC of its calendar date in loc, so that day
// differences are whole numbers regardless of DST.
func civilDay(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Streak counts consecutive training days ending today. times must be sorted
// newest first. Each completion extends the streak while it falls at most one
// calendar day before the previous one, starting from today; several
// completions on one day each count.
func Streak(times []time.Time, today time.Time) int {
	loc := today.Location()
	last := civilDay(today, loc)
	streak := 0
	for _, t := range times {
		day := civilDay(t, loc)
		diff := int(math.Floor(last.Sub(day).Hours() / 24))
		if diff > 1 {
			break
		}
		streak++
		last = day
	}
	return streak
}

// TotalMinutes sums whole minutes per completed workout.
func TotalMinutes(completions []models.CompletedWorkout) int {
	total := 0
	for _, c := range completions {
		total += c.TotalElapsedSec / 60
	}
	return total
}

// GoalPercent is value as a rounded percentage of target, capped at 100.
func GoalPercent(value, target float64) int {
	if target <= 0 {
		return 0
	}
	pct := int(math.Round(value / target * 100))
	if pct > 100 {
		return 100
	}
	if pct < 0 {
		return 0
	}
	return pct
}

// BMI returns weight / height² with height given in centimetres.
func BMI(weightKg, heightCm float64) (float64, error) {
	if weightKg <= 0 || heightCm <= 0 {
		return 0, ErrInvalidMeasurement
	}
	m := heightCm / 100
	return weightKg / (m * m), nil
}

// BMICategory buckets a BMI value.
func BMICategory(bmi float64) string {
	switch {
	case bmi < 18.5:
		return "underweight"
	case bmi < 25:
		return "normal"
	case bmi < 30:
		return "overweight"
	default:
		return "obese"
	}
}

// GoalProgress is the latest measurement for one goal type.
type GoalProgress struct {
	Value      float64   `json:"value"`
	RecordedAt time.Time `json:"recorded_at"`
	Target     *float64  `json:"target,omitempty"`
	Percent    *int      `json:"percent,omitempty"`
}

// Summary is the dashboard view of a user's training.
type Summary struct {
	CompletedWorkouts int                       `json:"completed_workouts"`
	TotalMinutes      int                       `json:"total_minutes"`
	TotalCalories     int                       `json:"total_calories"`
	Streak            int                       `json:"streak"`
	Recent            []models.CompletedWorkout `json:"recent"`
	Latest            map[string]GoalProgress   `json:"latest"`
}

// recentCount is how many completions the dashboard lists.
const recentCount = 3

// Summarize builds the dashboard summary. completions must be sorted newest
// first. targets maps goal type to the user's target value; goal types without
// a target carry no percentage.
func Summarize(completions []models.CompletedWorkout, latest []models.ProgressEntry, targets map[string]float64, now time.Time) Summary {
	s := Summary{
		CompletedWorkouts: len(completions),
		TotalMinutes:      TotalMinutes(completions),
		Latest:            make(map[string]GoalProgress, len(latest)),
	}

	times := make([]time.Time, 0, len(completions))
	for _, c := range completions {
		s.TotalCalories += c.Calories
		times = append(times, c.CompletedAt)
	}
	s.Streak = Streak(times, now)

	s.Recent = completions
	if len(s.Recent) > recentCount {
		s.Recent = s.Recent[:recentCount]
	}

	for _, e := range latest {
		gp := GoalProgress{Value: e.Value, RecordedAt: e.RecordedAt}
		if target, ok := targets[e.GoalType]; ok && target > 0 {
			pct := GoalPercent(e.Value, target)
			gp.Target = &target
			gp.Percent = &pct
		}
		s.Latest[e.GoalType] = gp
	}
	return s
}
