package mcp

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/meltforce/fitrun/internal/catalog"
	"github.com/meltforce/fitrun/internal/models"
	"github.com/meltforce/fitrun/internal/progress"
	"github.com/meltforce/fitrun/internal/storage"
)

// TestUserIDFromContextDefault verifies the default user ID (1) when no value
// is set in the context.
func TestUserIDFromContextDefault(t *testing.T) {
	ctx := context.Background()
	if id := UserIDFromContext(ctx); id != 1 {
		t.Errorf("UserIDFromContext(empty) = %d, want 1", id)
	}
}

// TestUserIDFromContextSet verifies the user ID is extracted from context
// after being set by WithUserID.
func TestUserIDFromContextSet(t *testing.T) {
	ctx := WithUserID(context.Background(), 42)
	if id := UserIDFromContext(ctx); id != 42 {
		t.Errorf("UserIDFromContext = %d, want 42", id)
	}
}

// TestDefaultTimeRange verifies time range defaults and parsing.
func TestDefaultTimeRange(t *testing.T) {
	// Both empty → defaults to the fallback window
	start, end, err := defaultTimeRange("", "", 7)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	diff := end.Sub(start)
	if diff.Hours() < 167 || diff.Hours() > 169 { // ~168 hours = 7 days
		t.Errorf("default range = %.0f hours, want ~168", diff.Hours())
	}

	// Explicit dates
	start, end, err = defaultTimeRange("2024-01-01", "2024-01-31", 7)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if start.Year() != 2024 || start.Month() != 1 || start.Day() != 1 {
		t.Errorf("start = %v, want 2024-01-01", start)
	}
	if end.Year() != 2024 || end.Month() != 1 || end.Day() != 31 {
		t.Errorf("end = %v, want 2024-01-31", end)
	}

	// RFC3339
	start, _, err = defaultTimeRange("2024-06-15T10:30:00Z", "", 7)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if start.Hour() != 10 || start.Minute() != 30 {
		t.Errorf("start = %v, want 10:30", start)
	}

	// Invalid
	_, _, err = defaultTimeRange("not-a-date", "", 7)
	if err == nil {
		t.Error("expected error for invalid date")
	}
}

type fakeSource struct {
	cat        *catalog.Catalog
	gotUserID  int
	gotTargets map[string]float64
}

func (f *fakeSource) ListPlans(_ context.Context, flt catalog.Filter) ([]catalog.WorkoutPlan, error) {
	return f.cat.List(flt), nil
}

func (f *fakeSource) GetPlan(_ context.Context, id string) (catalog.WorkoutPlan, error) {
	return f.cat.Get(id)
}

func (f *fakeSource) QueryCompletions(_ context.Context, _, _ time.Time, userID int, _ string) ([]models.CompletedWorkout, error) {
	f.gotUserID = userID
	return []models.CompletedWorkout{{PlanID: "weight_beginner_hiit", TotalElapsedSec: 600}}, nil
}

func (f *fakeSource) GetTrainingSummary(context.Context, time.Time, time.Time, string, int) ([]storage.TrainingSummaryPeriod, error) {
	return nil, nil
}

func (f *fakeSource) QueryProgress(context.Context, int, string) ([]models.ProgressEntry, error) {
	return nil, nil
}

func (f *fakeSource) GetProgressSummary(_ context.Context, userID int, targets map[string]float64, _ time.Time) (*progress.Summary, error) {
	f.gotUserID = userID
	f.gotTargets = targets
	return &progress.Summary{CompletedWorkouts: 5}, nil
}

func newTestHandlers(t *testing.T) (*handlers, *fakeSource) {
	t.Helper()
	cat, err := catalog.Default()
	if err != nil {
		t.Fatal(err)
	}
	src := &fakeSource{cat: cat}
	return &handlers{ds: src, log: slog.New(slog.NewTextHandler(io.Discard, nil))}, src
}

func callTool(name string, args map[string]any) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	req.Params.Name = name
	req.Params.Arguments = args
	return req
}

func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	if len(res.Content) == 0 {
		t.Fatal("empty tool result")
	}
	tc, ok := res.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("content type = %T, want TextContent", res.Content[0])
	}
	return tc.Text
}

// TestGetPlanTool verifies the plan detail carries the estimated run length and
// unknown plans produce a tool error.
func TestGetPlanTool(t *testing.T) {
	h, _ := newTestHandlers(t)

	res, err := h.getPlan(context.Background(), callTool("get_plan", map[string]any{"id": "weight_beginner_hiit"}))
	if err != nil {
		t.Fatal(err)
	}
	if res.IsError {
		t.Fatalf("unexpected tool error: %s", resultText(t, res))
	}
	var detail planDetail
	if err := json.Unmarshal([]byte(resultText(t, res)), &detail); err != nil {
		t.Fatal(err)
	}
	if detail.EstimatedSeconds != detail.WorkoutPlan.EstimatedSeconds() || detail.EstimatedSeconds == 0 {
		t.Errorf("estimated_seconds = %d", detail.EstimatedSeconds)
	}

	res, _ = h.getPlan(context.Background(), callTool("get_plan", map[string]any{"id": "nope"}))
	if !res.IsError || !strings.Contains(resultText(t, res), "not found") {
		t.Errorf("unknown plan result = %+v", res)
	}

	res, _ = h.getPlan(context.Background(), callTool("get_plan", nil))
	if !res.IsError {
		t.Error("missing id should be a tool error")
	}
}

// TestProgressSummaryToolTargets verifies only positive targets are forwarded
// and the caller's user ID is used.
func TestProgressSummaryToolTargets(t *testing.T) {
	h, src := newTestHandlers(t)
	ctx := WithUserID(context.Background(), 7)

	res, err := h.getProgressSummary(ctx, callTool("get_progress_summary", map[string]any{
		"weight_target":  70.0,
		"stamina_target": 0.0,
	}))
	if err != nil || res.IsError {
		t.Fatalf("get_progress_summary: %v %+v", err, res)
	}
	if src.gotUserID != 7 {
		t.Errorf("user ID = %d, want 7", src.gotUserID)
	}
	if len(src.gotTargets) != 1 || src.gotTargets["weight"] != 70 {
		t.Errorf("targets = %v, want only weight=70", src.gotTargets)
	}
}

// TestCalculateBMITool verifies the BMI tool result and input checks.
func TestCalculateBMITool(t *testing.T) {
	h, _ := newTestHandlers(t)

	res, err := h.calculateBMI(context.Background(), callTool("calculate_bmi", map[string]any{"weight_kg": 95.0, "height_cm": 180.0}))
	if err != nil || res.IsError {
		t.Fatalf("calculate_bmi: %v %+v", err, res)
	}
	var out struct {
		BMI      float64 `json:"bmi"`
		Category string  `json:"category"`
	}
	if err := json.Unmarshal([]byte(resultText(t, res)), &out); err != nil {
		t.Fatal(err)
	}
	if out.Category != "overweight" {
		t.Errorf("category = %q, want overweight (bmi %.1f)", out.Category, out.BMI)
	}

	res, _ = h.calculateBMI(context.Background(), callTool("calculate_bmi", map[string]any{"weight_kg": 95.0, "height_cm": 0.0}))
	if !res.IsError {
		t.Error("zero height should be a tool error")
	}
}

// TestProgressEntriesToolRejectsUnknownGoal verifies goal type validation.
func TestProgressEntriesToolRejectsUnknownGoal(t *testing.T) {
	h, _ := newTestHandlers(t)
	res, _ := h.getProgressEntries(context.Background(), callTool("get_progress_entries", map[string]any{"goal_type": "speed"}))
	if !res.IsError {
		t.Error("unknown goal type should be a tool error")
	}
}

// TestRecentCompletionsResource verifies the resource is JSON scoped to the caller.
func TestRecentCompletionsResource(t *testing.T) {
	h, src := newTestHandlers(t)
	var req mcp.ReadResourceRequest
	req.Params.URI = "fitrun://recent_completions"

	contents, err := h.recentCompletions(WithUserID(context.Background(), 3), req)
	if err != nil {
		t.Fatal(err)
	}
	if src.gotUserID != 3 {
		t.Errorf("user ID = %d, want 3", src.gotUserID)
	}
	text, ok := contents[0].(mcp.TextResourceContents)
	if !ok || text.MIMEType != "application/json" || !strings.Contains(text.Text, "weight_beginner_hiit") {
		t.Errorf("contents = %+v", contents)
	}
}
