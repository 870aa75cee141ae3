package upload

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/meltforce/fitrun/internal/models"
)

func testCompletion() models.CompletedWorkout {
	return models.CompletedWorkout{
		ID:              uuid.New(),
		UserID:          1,
		PlanID:          "quick_start",
		PlanName:        "Quick Start",
		StartedAt:       time.Date(2024, 3, 10, 8, 0, 0, 0, time.UTC),
		CompletedAt:     time.Date(2024, 3, 10, 8, 2, 0, 0, time.UTC),
		TotalElapsedSec: 95,
		Calories:        120,
		Exercises:       []models.ExerciseRecord{{Position: 0, ExerciseID: "jumping_jacks"}},
	}
}

// TestRecordCompletionRetries verifies transient failures are retried and the
// API key header is sent.
func TestRecordCompletionRetries(t *testing.T) {
	var calls atomic.Int32
	var got models.CompletedWorkout
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/completions" || r.Method != http.MethodPost {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if r.Header.Get("X-API-Key") != "secret" {
			t.Errorf("X-API-Key = %q, want secret", r.Header.Get("X-API-Key"))
		}
		if calls.Add(1) < 3 {
			http.Error(w, "unavailable", http.StatusServiceUnavailable)
			return
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decoding body: %v", err)
		}
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "secret")
	c.backoff = time.Millisecond

	want := testCompletion()
	if err := c.RecordCompletion(context.Background(), want); err != nil {
		t.Fatalf("RecordCompletion: %v", err)
	}
	if calls.Load() != 3 {
		t.Errorf("calls = %d, want 3", calls.Load())
	}
	if got.ID != want.ID || got.TotalElapsedSec != 95 {
		t.Errorf("server got %+v", got)
	}
}

func TestRecordCompletionGivesUp(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "")
	c.backoff = time.Millisecond

	err := c.RecordCompletion(context.Background(), testCompletion())
	if err == nil {
		t.Fatal("expected error")
	}
	if calls.Load() != maxAttempts {
		t.Errorf("calls = %d, want %d", calls.Load(), maxAttempts)
	}
}

// TestRecordCompletionRejected verifies client errors other than 429 fail on
// the first attempt with ErrRejected while 429 is retried like a 5xx.
func TestRecordCompletionRejected(t *testing.T) {
	tests := []struct {
		status    int
		wantCalls int32
		rejected  bool
	}{
		{http.StatusBadRequest, 1, true},
		{http.StatusUnauthorized, 1, true},
		{http.StatusForbidden, 1, true},
		{http.StatusTooManyRequests, maxAttempts, false},
	}
	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			var calls atomic.Int32
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				calls.Add(1)
				http.Error(w, "no", tt.status)
			}))
			defer srv.Close()

			c := NewClient(srv.URL, "")
			c.backoff = time.Millisecond

			err := c.RecordCompletion(context.Background(), testCompletion())
			if err == nil {
				t.Fatal("expected error")
			}
			if got := errors.Is(err, ErrRejected); got != tt.rejected {
				t.Errorf("errors.Is(err, ErrRejected) = %v, want %v (%v)", got, tt.rejected, err)
			}
			if calls.Load() != tt.wantCalls {
				t.Errorf("calls = %d, want %d", calls.Load(), tt.wantCalls)
			}
		})
	}
}

func TestFetchPlans(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/plans" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte(`[{"id":"quick_start","name":"Quick Start","rest_between_exercises":10,"exercises":[{"id":"a","name":"A","duration":30}]}]`))
	}))
	defer srv.Close()

	plans, err := NewClient(srv.URL, "").FetchPlans(context.Background())
	if err != nil {
		t.Fatalf("FetchPlans: %v", err)
	}
	if len(plans) != 1 || plans[0].ID != "quick_start" || plans[0].Exercises[0].Duration != 30 {
		t.Errorf("plans = %+v", plans)
	}
}

type scriptedRecorder struct {
	err   error
	calls int
}

func (s *scriptedRecorder) RecordCompletion(context.Context, models.CompletedWorkout) error {
	s.calls++
	return s.err
}

func TestOutboxFlush(t *testing.T) {
	o, err := OpenOutbox(t.TempDir())
	if err != nil {
		t.Fatalf("OpenOutbox: %v", err)
	}
	defer o.Close()

	a, b := testCompletion(), testCompletion()
	for _, c := range []models.CompletedWorkout{a, b, a} {
		if err := o.Enqueue(c, errors.New("offline")); err != nil {
			t.Fatalf("Enqueue: %v", err)
		}
	}
	if n, _ := o.Len(); n != 2 {
		t.Fatalf("Len = %d, want 2 (duplicates collapse)", n)
	}

	pending, err := o.Pending()
	if err != nil {
		t.Fatalf("Pending: %v", err)
	}
	if len(pending) != 2 || pending[0].Exercises[0].ExerciseID != "jumping_jacks" {
		t.Errorf("pending = %+v", pending)
	}

	failing := &scriptedRecorder{err: errors.New("still offline")}
	sent, err := o.Flush(context.Background(), failing)
	if err == nil || sent != 0 {
		t.Errorf("Flush(failing) = %d, %v; want 0 and an error", sent, err)
	}
	if n, _ := o.Len(); n != 2 {
		t.Errorf("Len after failed flush = %d, want 2", n)
	}

	ok := &scriptedRecorder{}
	sent, err = o.Flush(context.Background(), ok)
	if err != nil || sent != 2 {
		t.Errorf("Flush(ok) = %d, %v; want 2, nil", sent, err)
	}
	if n, _ := o.Len(); n != 0 {
		t.Errorf("Len after flush = %d, want 0", n)
	}
}

func TestBufferedQueuesOnFailure(t *testing.T) {
	o, err := OpenOutbox(t.TempDir())
	if err != nil {
		t.Fatalf("OpenOutbox: %v", err)
	}
	defer o.Close()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	if err := NewBuffered(&scriptedRecorder{}, o, log).RecordCompletion(context.Background(), testCompletion()); err != nil {
		t.Fatalf("delivered completion returned %v", err)
	}
	if n, _ := o.Len(); n != 0 {
		t.Errorf("Len = %d, want 0", n)
	}

	err = NewBuffered(&scriptedRecorder{err: errors.New("offline")}, o, log).RecordCompletion(context.Background(), testCompletion())
	if !errors.Is(err, ErrQueued) {
		t.Errorf("error = %v, want ErrQueued", err)
	}
	if n, _ := o.Len(); n != 1 {
		t.Errorf("Len = %d, want 1", n)
	}
}

// TestBufferedDoesNotQueueRejected verifies a completion the server refuses is
// reported to the caller instead of being queued for endless redelivery.
func TestBufferedDoesNotQueueRejected(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "invalid api key", http.StatusForbidden)
	}))
	defer srv.Close()

	o, err := OpenOutbox(t.TempDir())
	if err != nil {
		t.Fatalf("OpenOutbox: %v", err)
	}
	defer o.Close()

	c := NewClient(srv.URL, "wrong")
	c.backoff = time.Millisecond
	err = NewBuffered(c, o, slog.New(slog.NewTextHandler(io.Discard, nil))).RecordCompletion(context.Background(), testCompletion())
	if !errors.Is(err, ErrRejected) {
		t.Errorf("error = %v, want ErrRejected", err)
	}
	if errors.Is(err, ErrQueued) {
		t.Errorf("error = %v, must not wrap ErrQueued", err)
	}
	if n, _ := o.Len(); n != 0 {
		t.Errorf("Len = %d, want 0", n)
	}
	if calls.Load() != 1 {
		t.Errorf("calls = %d, want 1", calls.Load())
	}
}

// TestOutboxRecordCompletion verifies the outbox used as a recorder keeps the
// completion and reports it as queued.
func TestOutboxRecordCompletion(t *testing.T) {
	o, err := OpenOutbox(t.TempDir())
	if err != nil {
		t.Fatalf("OpenOutbox: %v", err)
	}
	defer o.Close()

	err = o.RecordCompletion(context.Background(), testCompletion())
	if !errors.Is(err, ErrQueued) {
		t.Errorf("error = %v, want ErrQueued", err)
	}
	if n, _ := o.Len(); n != 1 {
		t.Errorf("Len = %d, want 1", n)
	}
}
