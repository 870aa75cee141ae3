package mcp

import (
	"context"
	"time"

	"github.com/meltforce/fitrun/internal/catalog"
	"github.com/meltforce/fitrun/internal/models"
	"github.com/meltforce/fitrun/internal/progress"
	"github.com/meltforce/fitrun/internal/storage"
)

// DataSource abstracts the data layer for MCP tools. Both Local (database plus
// catalog) and HTTPClient (remote via REST API) satisfy this interface.
type DataSource interface {
	ListPlans(ctx context.Context, f catalog.Filter) ([]catalog.WorkoutPlan, error)
	GetPlan(ctx context.Context, id string) (catalog.WorkoutPlan, error)
	QueryCompletions(ctx context.Context, start, end time.Time, userID int, planFilter string) ([]models.CompletedWorkout, error)
	GetTrainingSummary(ctx context.Context, start, end time.Time, bucket string, userID int) ([]storage.TrainingSummaryPeriod, error)
	QueryProgress(ctx context.Context, userID int, goalType string) ([]models.ProgressEntry, error)
	GetProgressSummary(ctx context.Context, userID int, targets map[string]float64, now time.Time) (*progress.Summary, error)
}

// Local serves MCP from the server's own database and catalog.
type Local struct {
	*storage.DB
	Catalog *catalog.Catalog
}

// Compile-time check: Local satisfies DataSource.
var _ DataSource = Local{}

func (l Local) ListPlans(_ context.Context, f catalog.Filter) ([]catalog.WorkoutPlan, error) {
	return l.Catalog.List(f), nil
}

func (l Local) GetPlan(_ context.Context, id string) (catalog.WorkoutPlan, error) {
	return l.Catalog.Get(id)
}
