package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/meltforce/fitrun/internal/catalog"
	"github.com/meltforce/fitrun/internal/models"
	"github.com/meltforce/fitrun/internal/progress"
	"github.com/meltforce/fitrun/internal/storage"
)

// HTTPClient implements DataSource by calling the fitrun REST API.
// Used for remote MCP mode where the binary runs locally (stdio) but
// data lives on the remote server (accessed over Tailscale).
type HTTPClient struct {
	baseURL    string
	httpClient *http.Client
}

// Compile-time check: HTTPClient satisfies DataSource.
var _ DataSource = (*HTTPClient)(nil)

var errNotFound = errors.New("not found")

// NewHTTPClient creates an HTTPClient targeting the given base URL.
func NewHTTPClient(baseURL string) *HTTPClient {
	return &HTTPClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *HTTPClient) get(ctx context.Context, path string, params url.Values, v any) error {
	u := c.baseURL + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("httpclient: create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("httpclient: %s: %w", path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("httpclient: read body: %w", err)
	}

	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("httpclient: %s: %w", path, errNotFound)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("httpclient: %s returned %d: %s", path, resp.StatusCode, body)
	}

	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("httpclient: decode %s: %w", path, err)
	}
	return nil
}

func timeParams(start, end time.Time) url.Values {
	v := url.Values{}
	v.Set("start", start.Format(time.RFC3339))
	v.Set("end", end.Format(time.RFC3339))
	return v
}

func (c *HTTPClient) ListPlans(ctx context.Context, f catalog.Filter) ([]catalog.WorkoutPlan, error) {
	params := url.Values{}
	if f.Category != "" {
		params.Set("category", string(f.Category))
	}
	if f.Difficulty != "" {
		params.Set("difficulty", string(f.Difficulty))
	}
	if f.GoalType != "" {
		params.Set("goal_type", string(f.GoalType))
	}

	var plans []catalog.WorkoutPlan
	if err := c.get(ctx, "/api/v1/plans", params, &plans); err != nil {
		return nil, err
	}
	return plans, nil
}

func (c *HTTPClient) GetPlan(ctx context.Context, id string) (catalog.WorkoutPlan, error) {
	var plan catalog.WorkoutPlan
	err := c.get(ctx, "/api/v1/plans/"+url.PathEscape(id), nil, &plan)
	if errors.Is(err, errNotFound) {
		return catalog.WorkoutPlan{}, fmt.Errorf("%w: %s", catalog.ErrPlanNotFound, id)
	}
	return plan, err
}

func (c *HTTPClient) QueryCompletions(ctx context.Context, start, end time.Time, _ int, planFilter string) ([]models.CompletedWorkout, error) {
	params := timeParams(start, end)
	if planFilter != "" {
		params.Set("plan", planFilter)
	}

	var completions []models.CompletedWorkout
	if err := c.get(ctx, "/api/v1/completions", params, &completions); err != nil {
		return nil, err
	}
	return completions, nil
}

func (c *HTTPClient) GetTrainingSummary(ctx context.Context, start, end time.Time, bucket string, _ int) ([]storage.TrainingSummaryPeriod, error) {
	params := timeParams(start, end)
	params.Set("bucket", bucket)

	var periods []storage.TrainingSummaryPeriod
	if err := c.get(ctx, "/api/v1/training/summary", params, &periods); err != nil {
		return nil, err
	}
	return periods, nil
}

func (c *HTTPClient) QueryProgress(ctx context.Context, _ int, goalType string) ([]models.ProgressEntry, error) {
	params := url.Values{}
	if goalType != "" {
		params.Set("goal_type", goalType)
	}

	var entries []models.ProgressEntry
	if err := c.get(ctx, "/api/v1/progress", params, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// GetProgressSummary lets the server compute the summary against its own clock.
func (c *HTTPClient) GetProgressSummary(ctx context.Context, _ int, targets map[string]float64, _ time.Time) (*progress.Summary, error) {
	params := url.Values{}
	for goal, target := range targets {
		params.Set(goal, strconv.FormatFloat(target, 'f', -1, 64))
	}

	var summary progress.Summary
	if err := c.get(ctx, "/api/v1/progress/summary", params, &summary); err != nil {
		return nil, err
	}
	return &summary, nil
}
