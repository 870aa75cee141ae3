package mcp

import (
	"context"
	"errors"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/meltforce/fitrun/internal/catalog"
	"github.com/meltforce/fitrun/internal/progress"
)

// defaultTimeRange returns start/end, defaulting end to now and start to
// fallbackDays before end.
func defaultTimeRange(startStr, endStr string, fallbackDays int) (time.Time, time.Time, error) {
	var start, end time.Time
	var err error

	if endStr != "" {
		end, err = parseFlexTime(endStr)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
	} else {
		end = time.Now()
	}

	if startStr != "" {
		start, err = parseFlexTime(startStr)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
	} else {
		start = end.AddDate(0, 0, -fallbackDays)
	}

	return start, end, nil
}

func parseFlexTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, s)
	if err == nil {
		return t, nil
	}
	t, err = time.Parse("2006-01-02", s)
	if err == nil {
		return t, nil
	}
	return time.Time{}, err
}

// --- Tool definitions ---

var toolListPlans = mcp.NewTool("list_plans",
	mcp.WithDescription("List workout plans from the catalog. Each plan has an ordered list of timed exercises and a uniform rest between them."),
	mcp.WithString("category", mcp.Description("Filter by category"), mcp.Enum("abs", "arm", "chest", "endurance", "fat_burning", "flexibility", "full_body", "leg")),
	mcp.WithString("difficulty", mcp.Description("Filter by difficulty"), mcp.Enum("beginner", "intermediate", "advanced")),
	mcp.WithString("goal_type", mcp.Description("Filter by the fitness goal the plan supports"), mcp.Enum("weight", "strength", "stamina")),
)

var toolGetPlan = mcp.NewTool("get_plan",
	mcp.WithDescription("Get one workout plan with exercise details, tips and the estimated duration of an uninterrupted run."),
	mcp.WithString("id", mcp.Required(), mcp.Description("Plan ID (e.g. weight_beginner_hiit)")),
)

var toolGetCompletions = mcp.NewTool("get_completions",
	mcp.WithDescription("Query completed workouts with optional plan filter. Returns elapsed time, calories and timing for each full run."),
	mcp.WithString("start", mcp.Description("Start date (ISO 8601 or YYYY-MM-DD). Defaults to 30 days ago.")),
	mcp.WithString("end", mcp.Description("End date. Defaults to now.")),
	mcp.WithString("plan", mcp.Description("Filter by plan ID")),
)

var toolGetProgressSummary = mcp.NewTool("get_progress_summary",
	mcp.WithDescription("Dashboard summary: completed workouts, total minutes, calories, current daily streak, the three most recent workouts and the latest measurement per goal. Targets turn measurements into a 0-100 percentage."),
	mcp.WithNumber("weight_target", mcp.Description("Target for the weight goal")),
	mcp.WithNumber("strength_target", mcp.Description("Target for the strength goal")),
	mcp.WithNumber("stamina_target", mcp.Description("Target for the stamina goal")),
)

var toolGetTrainingSummary = mcp.NewTool("get_training_summary",
	mcp.WithDescription("Weekly/monthly aggregated workout volume. Returns completion counts, minutes and calories per plan per period."),
	mcp.WithString("start", mcp.Description("Start date. Defaults to 6 months ago.")),
	mcp.WithString("end", mcp.Description("End date. Defaults to now.")),
	mcp.WithString("bucket", mcp.Description("Aggregation period. Defaults to '1 month'."), mcp.Enum("1 day", "1 week", "1 month")),
)

var toolGetProgressEntries = mcp.NewTool("get_progress_entries",
	mcp.WithDescription("List recorded progress measurements, newest first."),
	mcp.WithString("goal_type", mcp.Description("Filter by goal type"), mcp.Enum("weight", "strength", "stamina")),
)

var toolCalculateBMI = mcp.NewTool("calculate_bmi",
	mcp.WithDescription("Compute body mass index and its category (underweight, normal, overweight, obese)."),
	mcp.WithNumber("weight_kg", mcp.Required(), mcp.Description("Body weight in kilograms")),
	mcp.WithNumber("height_cm", mcp.Required(), mcp.Description("Height in centimetres")),
)

// --- Tool handlers ---

func toolJSON(v any) (*mcp.CallToolResult, error) {
	result, err := mcp.NewToolResultJSON(v)
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}

func (h *handlers) listPlans(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	f := catalog.Filter{
		Category:   catalog.Category(req.GetString("category", "")),
		Difficulty: catalog.Difficulty(req.GetString("difficulty", "")),
		GoalType:   catalog.GoalType(req.GetString("goal_type", "")),
	}
	plans, err := h.ds.ListPlans(ctx, f)
	if err != nil {
		h.log.Error("mcp list_plans", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}
	return toolJSON(plans)
}

// planDetail adds the derived run length to a plan.
type planDetail struct {
	catalog.WorkoutPlan
	EstimatedSeconds int `json:"estimated_seconds"`
}

func (h *handlers) getPlan(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError("id parameter is required"), nil
	}
	plan, err := h.ds.GetPlan(ctx, id)
	if errors.Is(err, catalog.ErrPlanNotFound) {
		return mcp.NewToolResultError("plan not found: " + id), nil
	}
	if err != nil {
		h.log.Error("mcp get_plan", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}
	return toolJSON(planDetail{WorkoutPlan: plan, EstimatedSeconds: plan.EstimatedSeconds()})
}

func (h *handlers) getCompletions(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	start, end, err := defaultTimeRange(req.GetString("start", ""), req.GetString("end", ""), 30)
	if err != nil {
		return mcp.NewToolResultError("invalid date format: " + err.Error()), nil
	}

	uid := UserIDFromContext(ctx)
	completions, err := h.ds.QueryCompletions(ctx, start, end, uid, req.GetString("plan", ""))
	if err != nil {
		h.log.Error("mcp get_completions", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}
	return toolJSON(completions)
}

func (h *handlers) getProgressSummary(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	targets := make(map[string]float64)
	for _, g := range []catalog.GoalType{catalog.GoalWeight, catalog.GoalStrength, catalog.GoalStamina} {
		if v := req.GetFloat(string(g)+"_target", 0); v > 0 {
			targets[string(g)] = v
		}
	}

	uid := UserIDFromContext(ctx)
	summary, err := h.ds.GetProgressSummary(ctx, uid, targets, time.Now())
	if err != nil {
		h.log.Error("mcp get_progress_summary", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}
	return toolJSON(summary)
}

func (h *handlers) getTrainingSummary(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	start, end, err := defaultTimeRange(req.GetString("start", ""), req.GetString("end", ""), 182)
	if err != nil {
		return mcp.NewToolResultError("invalid date format: " + err.Error()), nil
	}

	bucket := req.GetString("bucket", "1 month")
	uid := UserIDFromContext(ctx)
	periods, err := h.ds.GetTrainingSummary(ctx, start, end, bucket, uid)
	if err != nil {
		h.log.Error("mcp get_training_summary", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}
	return toolJSON(periods)
}

func (h *handlers) getProgressEntries(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	goal := req.GetString("goal_type", "")
	if goal != "" && !catalog.ValidGoalType(catalog.GoalType(goal)) {
		return mcp.NewToolResultError("goal_type must be weight, strength or stamina"), nil
	}

	uid := UserIDFromContext(ctx)
	entries, err := h.ds.QueryProgress(ctx, uid, goal)
	if err != nil {
		h.log.Error("mcp get_progress_entries", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}
	return toolJSON(entries)
}

func (h *handlers) calculateBMI(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	weight, err := req.RequireFloat("weight_kg")
	if err != nil {
		return mcp.NewToolResultError("weight_kg parameter is required"), nil
	}
	height, err := req.RequireFloat("height_cm")
	if err != nil {
		return mcp.NewToolResultError("height_cm parameter is required"), nil
	}

	bmi, err := progress.BMI(weight, height)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return toolJSON(map[string]any{
		"bmi":      bmi,
		"category": progress.BMICategory(bmi),
	})
}
