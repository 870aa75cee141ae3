package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"tailscale.com/client/local"

	"github.com/meltforce/fitrun/internal/catalog"
	fitmcp "github.com/meltforce/fitrun/internal/mcp"
	"github.com/meltforce/fitrun/internal/metrics"
	"github.com/meltforce/fitrun/internal/models"
	"github.com/meltforce/fitrun/internal/progress"
	"github.com/meltforce/fitrun/internal/runner"
	"github.com/meltforce/fitrun/internal/storage"
)

// Store is the persistence the handlers need. *storage.DB satisfies it.
type Store interface {
	InsertCompletion(ctx context.Context, c models.CompletedWorkout) (bool, error)
	QueryCompletions(ctx context.Context, start, end time.Time, userID int, planFilter string) ([]models.CompletedWorkout, error)
	GetCompletion(ctx context.Context, id uuid.UUID, userID int) (*models.CompletedWorkout, error)
	InsertProgress(ctx context.Context, e models.ProgressEntry) error
	QueryProgress(ctx context.Context, userID int, goalType string) ([]models.ProgressEntry, error)
	GetProgressSummary(ctx context.Context, userID int, targets map[string]float64, now time.Time) (*progress.Summary, error)
	GetTrainingSummary(ctx context.Context, start, end time.Time, bucket string, userID int) ([]storage.TrainingSummaryPeriod, error)
	GetDataStats(ctx context.Context, userID int) (*storage.DataStats, error)
	GetOrCreateUser(ctx context.Context, login, displayName string) (int, error)
}

var _ Store = (*storage.DB)(nil)

// Server holds dependencies for HTTP handlers.
type Server struct {
	store    Store
	catalog  *catalog.Catalog
	sessions *runner.Manager
	metrics  *metrics.Manager
	events   runner.Recorder
	ts       *local.Client
	log      *slog.Logger
	apiKey   string
	router   chi.Router
}

// New creates a new Server with all routes configured.
func New(store Store, cat *catalog.Catalog, sessions *runner.Manager, m *metrics.Manager, apiKey string, log *slog.Logger) *Server {
	s := &Server{
		store:    store,
		catalog:  cat,
		sessions: sessions,
		metrics:  m,
		log:      log,
		apiKey:   apiKey,
		router:   chi.NewRouter(),
	}
	s.routes()
	return s
}

// SetTailscale enables identity lookup through the tailnet. Without it every
// request runs as the local dev user.
func (s *Server) SetTailscale(lc *local.Client) {
	s.ts = lc
}

// SetCompletionEvents forwards every newly ingested completion to rec, such as
// the Kafka publisher. Redelivered completions are not forwarded again.
func (s *Server) SetCompletionEvents(rec runner.Recorder) {
	s.events = rec
}

// MountMetrics serves the Prometheus registry at /metrics.
func (s *Server) MountMetrics(g prometheus.Gatherer) {
	s.router.Handle("/metrics", promhttp.HandlerFor(g, promhttp.HandlerOpts{}))
}

// MountMCP serves ms over streamable HTTP at /mcp. Tool calls run as the
// identity resolved for the HTTP request.
func (s *Server) MountMCP(ms *mcpserver.MCPServer) {
	h := mcpserver.NewStreamableHTTPServer(ms,
		mcpserver.WithHTTPContextFunc(func(ctx context.Context, r *http.Request) context.Context {
			return fitmcp.WithUserID(ctx, userIDFromContext(r))
		}),
	)
	s.router.Handle("/mcp", h)
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	s.router.Use(RequestLogging(s.log))
	if s.metrics != nil {
		s.router.Use(RequestMetrics(s.metrics))
	}
	s.router.Use(CORS)
	s.router.Use(s.identity)

	s.router.Route("/api/v1", func(r chi.Router) {
		r.Get("/me", s.handleMe)

		r.Get("/plans", s.handleListPlans)
		r.Get("/plans/{id}", s.handleGetPlan)

		r.Get("/sessions", s.handleListSessions)
		r.Post("/sessions", s.handleStartSession)
		r.Get("/sessions/{id}", s.handleGetSession)
		r.Get("/sessions/{id}/events", s.handleSessionEvents)
		r.Post("/sessions/{id}/{command}", s.handleSessionCommand)

		// Completion ingest from remote session clients (API key required)
		r.With(APIKeyAuth(s.apiKey)).Post("/completions", s.handleRecordCompletion)
		r.Get("/completions", s.handleQueryCompletions)
		r.Get("/completions/{id}", s.handleGetCompletion)

		r.Post("/progress", s.handleRecordProgress)
		r.Get("/progress", s.handleQueryProgress)
		r.Get("/progress/summary", s.handleProgressSummary)

		r.Get("/training/summary", s.handleTrainingSummary)
		r.Get("/stats", s.handleStats)
		r.Get("/bmi", s.handleBMI)
	})
}
