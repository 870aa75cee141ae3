package upload

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/meltforce/fitrun/internal/models"

	_ "modernc.org/sqlite"
)

// ErrQueued reports that a completion could not be delivered and was kept in
// the outbox for a later Flush.
var ErrQueued = errors.New("completion queued for retry")

// Recorder is anything that can take delivery of a completed workout.
type Recorder interface {
	RecordCompletion(ctx context.Context, c models.CompletedWorkout) error
}

// Outbox stores completions that could not be delivered so they survive
// restarts of the client.
type Outbox struct {
	db *sql.DB
}

// OpenOutbox opens (or creates) the SQLite outbox database at dir/outbox.db.
func OpenOutbox(dir string) (*Outbox, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating outbox dir %s: %w", dir, err)
	}

	dbPath := filepath.Join(dir, "outbox.db")
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening outbox db: %w", err)
	}

	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS pending_completions (
		id         TEXT PRIMARY KEY,
		payload    TEXT NOT NULL,
		attempts   INTEGER NOT NULL DEFAULT 0,
		last_error TEXT NOT NULL DEFAULT '',
		queued_at  TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	)`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating outbox table: %w", err)
	}

	return &Outbox{db: db}, nil
}

// Enqueue stores a completion. Enqueuing the same completion twice keeps one copy.
func (o *Outbox) Enqueue(c models.CompletedWorkout, cause error) error {
	payload, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling completion: %w", err)
	}
	msg := ""
	if cause != nil {
		msg = cause.Error()
	}
	_, err = o.db.Exec(
		`INSERT INTO pending_completions (id, payload, last_error) VALUES (?, ?, ?)
		 ON CONFLICT (id) DO UPDATE SET last_error = excluded.last_error`,
		c.ID.String(), string(payload), msg,
	)
	if err != nil {
		return fmt.Errorf("enqueuing completion: %w", err)
	}
	return nil
}

// Pending returns the queued completions, oldest first.
func (o *Outbox) Pending() ([]models.CompletedWorkout, error) {
	rows, err := o.db.Query(`SELECT payload FROM pending_completions ORDER BY queued_at, id`)
	if err != nil {
		return nil, fmt.Errorf("querying outbox: %w", err)
	}
	defer rows.Close()

	var result []models.CompletedWorkout
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scanning outbox row: %w", err)
		}
		var c models.CompletedWorkout
		if err := json.Unmarshal([]byte(payload), &c); err != nil {
			return nil, fmt.Errorf("decoding queued completion: %w", err)
		}
		result = append(result, c)
	}
	return result, rows.Err()
}

// Len returns the number of queued completions.
func (o *Outbox) Len() (int, error) {
	var n int
	if err := o.db.QueryRow(`SELECT COUNT(*) FROM pending_completions`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting outbox: %w", err)
	}
	return n, nil
}

// Flush redelivers queued completions through rec. Delivered completions are
// removed; failed ones stay queued with their attempt count bumped. Returns the
// number delivered and the joined delivery errors.
func (o *Outbox) Flush(ctx context.Context, rec Recorder) (int, error) {
	pending, err := o.Pending()
	if err != nil {
		return 0, err
	}

	sent := 0
	var errs []error
	for _, c := range pending {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		if err := rec.RecordCompletion(ctx, c); err != nil {
			errs = append(errs, fmt.Errorf("completion %s: %w", c.ID, err))
			if _, uerr := o.db.Exec(
				`UPDATE pending_completions SET attempts = attempts + 1, last_error = ? WHERE id = ?`,
				err.Error(), c.ID.String(),
			); uerr != nil {
				errs = append(errs, fmt.Errorf("updating outbox: %w", uerr))
			}
			continue
		}
		if _, err := o.db.Exec(`DELETE FROM pending_completions WHERE id = ?`, c.ID.String()); err != nil {
			errs = append(errs, fmt.Errorf("removing delivered completion: %w", err))
			continue
		}
		sent++
	}
	return sent, errors.Join(errs...)
}

// RecordCompletion queues c without attempting delivery, for clients with no
// server configured. It always returns an error wrapping ErrQueued on success.
func (o *Outbox) RecordCompletion(_ context.Context, c models.CompletedWorkout) error {
	if err := o.Enqueue(c, nil); err != nil {
		return err
	}
	return fmt.Errorf("%w: no server configured", ErrQueued)
}

// Close closes the outbox database.
func (o *Outbox) Close() error {
	return o.db.Close()
}

// Buffered delivers completions through a recorder and queues them in an
// outbox when delivery fails.
type Buffered struct {
	next   Recorder
	outbox *Outbox
	log    *slog.Logger
}

// NewBuffered creates a Buffered recorder.
func NewBuffered(next Recorder, outbox *Outbox, log *slog.Logger) *Buffered {
	return &Buffered{next: next, outbox: outbox, log: log}
}

// RecordCompletion returns nil on delivery, an error wrapping ErrQueued when
// the completion was kept for later, or the enqueue error if even that failed.
// A completion the server rejected is returned as is and not queued.
func (b *Buffered) RecordCompletion(ctx context.Context, c models.CompletedWorkout) error {
	err := b.next.RecordCompletion(ctx, c)
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrRejected) {
		b.log.Error("completion rejected by server", "workout_id", c.ID, "error", err)
		return err
	}
	b.log.Warn("delivery failed, queuing completion", "workout_id", c.ID, "error", err)
	if qerr := b.outbox.Enqueue(c, err); qerr != nil {
		return errors.Join(err, qerr)
	}
	return fmt.Errorf("%w: %v", ErrQueued, err)
}
