package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/meltforce/fitrun/internal/catalog"
	"github.com/meltforce/fitrun/internal/models"
	"github.com/meltforce/fitrun/internal/progress"
	"github.com/meltforce/fitrun/internal/storage"
)

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, userInfoFromContext(r))
}

func (s *Server) handleListPlans(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := catalog.Filter{
		Category:   catalog.Category(q.Get("category")),
		Difficulty: catalog.Difficulty(q.Get("difficulty")),
		GoalType:   catalog.GoalType(q.Get("goal_type")),
	}
	writeJSON(w, http.StatusOK, s.catalog.List(f))
}

func (s *Server) handleGetPlan(w http.ResponseWriter, r *http.Request) {
	plan, err := s.catalog.Get(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "plan not found"})
		return
	}
	writeJSON(w, http.StatusOK, plan)
}

func (s *Server) handleRecordCompletion(w http.ResponseWriter, r *http.Request) {
	var c models.CompletedWorkout
	if err := json.NewDecoder(r.Body).Decode(&c); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON: " + err.Error()})
		return
	}
	if c.ID == uuid.Nil || c.PlanID == "" || c.CompletedAt.IsZero() {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "id, plan_id and completed_at are required"})
		return
	}
	if c.UserID == 0 {
		c.UserID = userIDFromContext(r)
	}

	inserted, err := s.store.InsertCompletion(r.Context(), c)
	if err != nil {
		s.log.Error("record completion", "workout_id", c.ID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	if inserted && s.events != nil {
		// The completion is stored; a failed publish must not make the
		// client redeliver it.
		if err := s.events.RecordCompletion(r.Context(), c); err != nil {
			s.log.Warn("publish completion", "workout_id", c.ID, "error", err)
		}
	}
	writeJSON(w, http.StatusCreated, map[string]string{"id": c.ID.String()})
}

func (s *Server) handleQueryCompletions(w http.ResponseWriter, r *http.Request) {
	start, end, err := parseTimeRange(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	completions, err := s.store.QueryCompletions(r.Context(), start, end, userIDFromContext(r), r.URL.Query().Get("plan"))
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	if completions == nil {
		completions = []models.CompletedWorkout{}
	}
	writeJSON(w, http.StatusOK, completions)
}

func (s *Server) handleGetCompletion(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid completion ID"})
		return
	}

	c, err := s.store.GetCompletion(r.Context(), id, userIDFromContext(r))
	if errors.Is(err, storage.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "completion not found"})
		return
	}
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, c)
}

type progressRequest struct {
	GoalType   string     `json:"goal_type"`
	Value      float64    `json:"value"`
	RecordedAt *time.Time `json:"recorded_at"`
	Notes      string     `json:"notes"`
}

func (s *Server) handleRecordProgress(w http.ResponseWriter, r *http.Request) {
	var req progressRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON: " + err.Error()})
		return
	}
	if !catalog.ValidGoalType(catalog.GoalType(req.GoalType)) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "goal_type must be weight, strength or stamina"})
		return
	}
	if req.Value <= 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "value must be positive"})
		return
	}

	e := models.ProgressEntry{
		ID:         uuid.New(),
		UserID:     userIDFromContext(r),
		GoalType:   req.GoalType,
		Value:      req.Value,
		RecordedAt: time.Now().UTC(),
		Notes:      req.Notes,
	}
	if req.RecordedAt != nil {
		e.RecordedAt = *req.RecordedAt
	}

	if err := s.store.InsertProgress(r.Context(), e); err != nil {
		s.log.Error("record progress", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusCreated, e)
}

func (s *Server) handleQueryProgress(w http.ResponseWriter, r *http.Request) {
	goal := r.URL.Query().Get("goal_type")
	if goal != "" && !catalog.ValidGoalType(catalog.GoalType(goal)) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unknown goal_type"})
		return
	}

	entries, err := s.store.QueryProgress(r.Context(), userIDFromContext(r), goal)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	if entries == nil {
		entries = []models.ProgressEntry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

// handleProgressSummary takes optional goal targets as query parameters:
// ?weight=70&strength=100&stamina=30
func (s *Server) handleProgressSummary(w http.ResponseWriter, r *http.Request) {
	targets := make(map[string]float64)
	for _, g := range []catalog.GoalType{catalog.GoalWeight, catalog.GoalStrength, catalog.GoalStamina} {
		v := r.URL.Query().Get(string(g))
		if v == "" {
			continue
		}
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid target for " + string(g)})
			return
		}
		targets[string(g)] = f
	}

	summary, err := s.store.GetProgressSummary(r.Context(), userIDFromContext(r), targets, time.Now())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (s *Server) handleTrainingSummary(w http.ResponseWriter, r *http.Request) {
	start, end, err := parseTimeRange(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	bucket := "1 month"
	switch r.URL.Query().Get("bucket") {
	case "1 day", "daily":
		bucket = "1 day"
	case "1 week", "weekly":
		bucket = "1 week"
	}

	periods, err := s.store.GetTrainingSummary(r.Context(), start, end, bucket, userIDFromContext(r))
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	if periods == nil {
		periods = []storage.TrainingSummaryPeriod{}
	}
	writeJSON(w, http.StatusOK, periods)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.store.GetDataStats(r.Context(), userIDFromContext(r))
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// BMIResult is the response of GET /api/v1/bmi.
type BMIResult struct {
	BMI      float64 `json:"bmi"`
	Category string  `json:"category"`
}

func (s *Server) handleBMI(w http.ResponseWriter, r *http.Request) {
	weight, werr := strconv.ParseFloat(r.URL.Query().Get("weight"), 64)
	height, herr := strconv.ParseFloat(r.URL.Query().Get("height"), 64)
	if werr != nil || herr != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "weight (kg) and height (cm) parameters required"})
		return
	}
	bmi, err := progress.BMI(weight, height)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, BMIResult{BMI: bmi, Category: progress.BMICategory(bmi)})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func parseTimeRange(r *http.Request) (start, end time.Time, err error) {
	startStr := r.URL.Query().Get("start")
	endStr := r.URL.Query().Get("end")

	if startStr == "" {
		// Default: last 30 days
		end = time.Now()
		start = end.AddDate(0, 0, -30)
		return
	}

	start, err = time.Parse(time.RFC3339, startStr)
	if err != nil {
		start, err = time.Parse("2006-01-02", startStr)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
	}

	if endStr == "" {
		end = time.Now()
	} else {
		end, err = time.Parse(time.RFC3339, endStr)
		if err != nil {
			end, err = time.Parse("2006-01-02", endStr)
			if err != nil {
				return time.Time{}, time.Time{}, err
			}
			// End of day for date-only
			end = end.Add(24 * time.Hour)
		}
	}
	return
}
