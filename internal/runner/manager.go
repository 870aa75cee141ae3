// Package runner drives live workout sessions in real time. Each session gets
// its own goroutine that owns the session state machine; ticks and control
// commands are serialized onto it.
package runner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/meltforce/fitrun/internal/catalog"
	"github.com/meltforce/fitrun/internal/metrics"
	"github.com/meltforce/fitrun/internal/session"
)

var (
	ErrSessionNotFound   = errors.New("session not found")
	ErrSessionFinished   = errors.New("session finished")
	ErrInvalidTransition = errors.New("command not valid in current state")
	ErrUnknownCommand    = errors.New("unknown command")
)

// Config controls session timing and housekeeping.
type Config struct {
	TickInterval      time.Duration
	LeadIn            int
	ExtendRestSeconds int
	RecordTimeout     time.Duration
	Retention         time.Duration
	CleanupInterval   time.Duration
	SubscriberBuffer  int
}

// DefaultConfig returns production settings: one tick per second.
func DefaultConfig() Config {
	return Config{
		TickInterval:      time.Second,
		LeadIn:            session.DefaultLeadIn,
		ExtendRestSeconds: 15,
		RecordTimeout:     30 * time.Second,
		Retention:         time.Hour,
		CleanupInterval:   5 * time.Minute,
		SubscriberBuffer:  16,
	}
}

// StartRequest describes a session to create.
type StartRequest struct {
	UserID int
	Plan   catalog.WorkoutPlan
	// AutoStart begins the lead-in immediately instead of waiting for a start command.
	AutoStart bool
}

// Manager owns all live sessions.
type Manager struct {
	cfg      Config
	recorder Recorder
	metrics  *metrics.Manager
	log      *slog.Logger

	now       func() time.Time
	newTicker func(time.Duration) (<-chan time.Time, func())

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu       sync.Mutex
	sessions map[uuid.UUID]*live
	closed   bool
}

// NewManager creates a Manager and starts its cleanup loop. A nil recorder
// disables recording.
func NewManager(cfg Config, recorder Recorder, m *metrics.Manager, log *slog.Logger) *Manager {
	def := DefaultConfig()
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = def.TickInterval
	}
	if cfg.LeadIn < 0 {
		cfg.LeadIn = 0
	}
	if cfg.ExtendRestSeconds <= 0 {
		cfg.ExtendRestSeconds = def.ExtendRestSeconds
	}
	if cfg.RecordTimeout <= 0 {
		cfg.RecordTimeout = def.RecordTimeout
	}
	if cfg.Retention <= 0 {
		cfg.Retention = def.Retention
	}
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = def.CleanupInterval
	}
	if cfg.SubscriberBuffer <= 0 {
		cfg.SubscriberBuffer = def.SubscriberBuffer
	}

	ctx, cancel := context.WithCancel(context.Background())
	mgr := &Manager{
		cfg:       cfg,
		recorder:  recorder,
		metrics:   m,
		log:       log,
		now:       time.Now,
		newTicker: realTicker,
		ctx:       ctx,
		cancel:    cancel,
		sessions:  make(map[uuid.UUID]*live),
	}

	tick, stop := mgr.newTicker(cfg.CleanupInterval)
	mgr.wg.Add(1)
	go mgr.cleanupLoop(tick, stop)

	return mgr
}

func realTicker(d time.Duration) (<-chan time.Time, func()) {
	t := time.NewTicker(d)
	return t.C, t.Stop
}

// Start creates a live session and returns its initial status.
func (m *Manager) Start(req StartRequest) (Status, error) {
	id := uuid.New()
	l := newLive(m, id, req)

	sess, err := session.New(req.Plan, session.Options{
		LeadIn:       m.cfg.LeadIn,
		OnTransition: l.onTransition,
		OnComplete:   l.onComplete,
	})
	if err != nil {
		return Status{}, fmt.Errorf("creating session: %w", err)
	}
	l.sess = sess
	if req.AutoStart {
		sess.Start()
	}
	l.status = l.buildStatus()

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return Status{}, errors.New("manager closed")
	}
	m.sessions[id] = l
	m.wg.Add(1)
	m.mu.Unlock()

	m.metrics.CounterSessionsStarted.Inc()
	m.metrics.GaugeActiveSessions.Inc()
	m.log.Info("session started", "session_id", id, "plan", req.Plan.ID, "user_id", req.UserID)

	go l.run(m.ctx)

	return l.status, nil
}

func (m *Manager) get(id uuid.UUID) (*live, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return l, nil
}

// CheckOwner returns ErrSessionNotFound unless the session exists and belongs
// to userID, so other users cannot tell foreign sessions from missing ones.
func (m *Manager) CheckOwner(id uuid.UUID, userID int) error {
	l, err := m.get(id)
	if err != nil {
		return err
	}
	if l.userID != userID {
		return ErrSessionNotFound
	}
	return nil
}

// Control applies a command to a live session and returns the resulting state.
func (m *Manager) Control(ctx context.Context, id uuid.UUID, cmd Command) (session.State, error) {
	if _, err := ParseCommand(string(cmd.Kind)); err != nil {
		return session.State{}, err
	}
	l, err := m.get(id)
	if err != nil {
		return session.State{}, err
	}
	r, err := l.do(ctx, request{cmd: cmd})
	if err != nil {
		return session.State{}, err
	}
	return r.status.State, r.err
}

// Snapshot returns the current status of a session, live or finished.
func (m *Manager) Snapshot(ctx context.Context, id uuid.UUID) (Status, error) {
	l, err := m.get(id)
	if err != nil {
		return Status{}, err
	}
	r, err := l.do(ctx, request{snapshot: true})
	if errors.Is(err, ErrSessionFinished) {
		return l.finalStatus(), nil
	}
	if err != nil {
		return Status{}, err
	}
	return r.status, nil
}

// Subscribe returns a channel of events for a live session and a function to
// stop the subscription. The channel is closed when the session ends.
// Subscribers that fall behind miss events.
func (m *Manager) Subscribe(id uuid.UUID) (<-chan Event, func(), error) {
	l, err := m.get(id)
	if err != nil {
		return nil, nil, err
	}
	return l.subscribe(m.cfg.SubscriberBuffer)
}

// List returns the status of every session belonging to userID.
func (m *Manager) List(userID int) []Status {
	m.mu.Lock()
	lives := make([]*live, 0, len(m.sessions))
	for _, l := range m.sessions {
		if l.userID == userID {
			lives = append(lives, l)
		}
	}
	m.mu.Unlock()

	result := make([]Status, 0, len(lives))
	for _, l := range lives {
		result = append(result, l.lastStatus())
	}
	return result
}

func (m *Manager) cleanupLoop(tick <-chan time.Time, stop func()) {
	defer m.wg.Done()
	defer stop()

	for {
		select {
		case <-tick:
			m.cleanup(m.now())
		case <-m.ctx.Done():
			return
		}
	}
}

// cleanup drops sessions that finished longer than the retention period ago.
func (m *Manager) cleanup(now time.Time) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	cutoff := now.Add(-m.cfg.Retention)
	removed := 0
	for id, l := range m.sessions {
		if at, ok := l.finishedAt(); ok && at.Before(cutoff) {
			delete(m.sessions, id)
			removed++
		}
	}
	if removed > 0 {
		m.log.Debug("removed finished sessions", "count", removed)
	}
	return removed
}

// Close stops all sessions and waits for their goroutines to exit.
// Completions being recorded are given until the record timeout.
func (m *Manager) Close() {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()

	m.cancel()
	m.wg.Wait()
}
