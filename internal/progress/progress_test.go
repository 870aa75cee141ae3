package progress

import (
	"math"
	"testing"
	"time"

	"github.com/meltforce/fitrun/internal/models"
)

func day(y int, m time.Month, d, hour int) time.Time {
	return time.Date(y, m, d, hour, 0, 0, 0, time.UTC)
}

// TestStreak covers consecutive days, gaps, same-day workouts and a streak
// that ended yesterday.
func TestStreak(t *testing.T) {
	today := day(2024, 3, 10, 18)

	tests := []struct {
		name  string
		times []time.Time
		want  int
	}{
		{"none", nil, 0},
		{"today only", []time.Time{day(2024, 3, 10, 7)}, 1},
		{"three consecutive", []time.Time{day(2024, 3, 10, 7), day(2024, 3, 9, 20), day(2024, 3, 8, 6)}, 3},
		{"gap breaks", []time.Time{day(2024, 3, 10, 7), day(2024, 3, 7, 7)}, 1},
		{"yesterday still counts", []time.Time{day(2024, 3, 9, 7), day(2024, 3, 8, 7)}, 2},
		{"two days ago does not", []time.Time{day(2024, 3, 8, 7)}, 0},
		{"same day counts twice", []time.Time{day(2024, 3, 10, 19), day(2024, 3, 10, 7), day(2024, 3, 9, 7)}, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Streak(tt.times, today); got != tt.want {
				t.Errorf("Streak = %d, want %d", got, tt.want)
			}
		})
	}
}

// TestStreakUsesTodayLocation verifies calendar days are taken in the
// location of today, not UTC.
func TestStreakUsesTodayLocation(t *testing.T) {
	loc := time.FixedZone("UTC+10", 10*3600)
	today := time.Date(2024, 3, 10, 8, 0, 0, 0, loc)
	// 2024-03-09 23:00 UTC is 2024-03-10 09:00 in UTC+10: same day as today.
	// 2024-03-08 15:00 UTC is 2024-03-09 01:00 in UTC+10: yesterday.
	times := []time.Time{day(2024, 3, 9, 23), day(2024, 3, 8, 15)}
	if got := Streak(times, today); got != 2 {
		t.Errorf("Streak = %d, want 2", got)
	}
}

func TestGoalPercent(t *testing.T) {
	tests := []struct {
		value, target float64
		want          int
	}{
		{50, 100, 50},
		{33.4, 100, 33},
		{2, 3, 67},
		{150, 100, 100},
		{10, 0, 0},
		{10, -5, 0},
	}
	for _, tt := range tests {
		if got := GoalPercent(tt.value, tt.target); got != tt.want {
			t.Errorf("GoalPercent(%v, %v) = %d, want %d", tt.value, tt.target, got, tt.want)
		}
	}
}

func TestBMI(t *testing.T) {
	bmi, err := BMI(70, 175)
	if err != nil {
		t.Fatalf("BMI error: %v", err)
	}
	if math.Abs(bmi-22.857) > 0.01 {
		t.Errorf("BMI = %.3f, want 22.857", bmi)
	}
	if cat := BMICategory(bmi); cat != "normal" {
		t.Errorf("category = %q, want normal", cat)
	}

	if _, err := BMI(70, 0); err == nil {
		t.Error("expected error for zero height")
	}
}

func TestBMICategory(t *testing.T) {
	tests := []struct {
		bmi  float64
		want string
	}{
		{17, "underweight"},
		{18.5, "normal"},
		{24.9, "normal"},
		{25, "overweight"},
		{29.9, "overweight"},
		{30, "obese"},
	}
	for _, tt := range tests {
		if got := BMICategory(tt.bmi); got != tt.want {
			t.Errorf("BMICategory(%v) = %q, want %q", tt.bmi, got, tt.want)
		}
	}
}

// TestSummarize checks totals, streak, recent truncation and goal percentages.
func TestSummarize(t *testing.T) {
	now := day(2024, 3, 10, 20)
	completions := []models.CompletedWorkout{
		{PlanID: "a", CompletedAt: day(2024, 3, 10, 8), TotalElapsedSec: 95, Calories: 100},
		{PlanID: "b", CompletedAt: day(2024, 3, 9, 8), TotalElapsedSec: 600, Calories: 200},
		{PlanID: "c", CompletedAt: day(2024, 3, 8, 8), TotalElapsedSec: 59, Calories: 50},
		{PlanID: "d", CompletedAt: day(2024, 3, 1, 8), TotalElapsedSec: 120, Calories: 10},
	}
	latest := []models.ProgressEntry{
		{GoalType: "weight", Value: 72, RecordedAt: day(2024, 3, 9, 7)},
		{GoalType: "stamina", Value: 30, RecordedAt: day(2024, 3, 9, 7)},
	}

	s := Summarize(completions, latest, map[string]float64{"stamina": 40}, now)

	if s.CompletedWorkouts != 4 {
		t.Errorf("CompletedWorkouts = %d, want 4", s.CompletedWorkouts)
	}
	// 1 + 10 + 0 + 2
	if s.TotalMinutes != 13 {
		t.Errorf("TotalMinutes = %d, want 13", s.TotalMinutes)
	}
	if s.TotalCalories != 360 {
		t.Errorf("TotalCalories = %d, want 360", s.TotalCalories)
	}
	if s.Streak != 3 {
		t.Errorf("Streak = %d, want 3", s.Streak)
	}
	if len(s.Recent) != 3 || s.Recent[0].PlanID != "a" {
		t.Errorf("Recent = %+v, want first three", s.Recent)
	}

	stamina := s.Latest["stamina"]
	if stamina.Percent == nil || *stamina.Percent != 75 {
		t.Errorf("stamina percent = %v, want 75", stamina.Percent)
	}
	if w := s.Latest["weight"]; w.Percent != nil || w.Value != 72 {
		t.Errorf("weight = %+v, want value 72 without percent", w)
	}
}
