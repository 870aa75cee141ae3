// Package upload delivers completed workouts from a client to a fitrun server,
// buffering them locally when the server cannot be reached.
package upload

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/meltforce/fitrun/internal/catalog"
	"github.com/meltforce/fitrun/internal/models"
)

const maxAttempts = 3

// ErrRejected reports that the server refused a completion with a client
// error. Resending the same request cannot succeed, so it is neither retried
// nor queued.
var ErrRejected = errors.New("completion rejected by server")

// Client sends data to the fitrun server over HTTP.
type Client struct {
	serverURL  string
	apiKey     string
	httpClient *http.Client
	backoff    time.Duration
}

// NewClient creates a new HTTP client for the fitrun server. apiKey is sent as
// X-API-Key on ingest requests and may be empty when the server has none.
func NewClient(serverURL, apiKey string) *Client {
	return &Client{
		serverURL: serverURL,
		apiKey:    apiKey,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		backoff: time.Second,
	}
}

// FetchPlans retrieves the server's workout catalog.
func (c *Client) FetchPlans(ctx context.Context) ([]catalog.WorkoutPlan, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.serverURL+"/api/v1/plans", nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching plans: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("plans request failed (status %d): %s", resp.StatusCode, body)
	}

	var plans []catalog.WorkoutPlan
	if err := json.NewDecoder(resp.Body).Decode(&plans); err != nil {
		return nil, fmt.Errorf("decoding plans: %w", err)
	}
	return plans, nil
}

// RecordCompletion POSTs a completed workout to the server's completions
// endpoint. Retries up to 3 times with exponential backoff on network errors,
// 429 and 5xx responses. Other 4xx responses fail at once with ErrRejected.
func (c *Client) RecordCompletion(ctx context.Context, cw models.CompletedWorkout) error {
	data, err := json.Marshal(cw)
	if err != nil {
		return fmt.Errorf("marshaling completion: %w", err)
	}

	var lastErr error
	for attempt := range maxAttempts {
		if attempt > 0 {
			select {
			case <-time.After(c.backoff << uint(attempt-1)):
			case <-ctx.Done():
				return fmt.Errorf("recording completion: %w", ctx.Err())
			}
		}

		lastErr = c.postCompletion(ctx, data)
		if lastErr == nil || errors.Is(lastErr, ErrRejected) {
			return lastErr
		}
	}

	return fmt.Errorf("after %d attempts: %w", maxAttempts, lastErr)
}

func (c *Client) postCompletion(ctx context.Context, data []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.serverURL+"/api/v1/completions", bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusCreated:
		return nil
	case resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests:
		return fmt.Errorf("%w (status %d): %s", ErrRejected, resp.StatusCode, body)
	}
	return fmt.Errorf("completion upload failed (status %d): %s", resp.StatusCode, body)
}
