package runner

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/meltforce/fitrun/internal/catalog"
	"github.com/meltforce/fitrun/internal/session"
)

type request struct {
	cmd      Command
	snapshot bool
	reply    chan reply
}

type reply struct {
	status Status
	err    error
}

// live is one running session. Fields above mu are owned by the run goroutine.
type live struct {
	m         *Manager
	id        uuid.UUID
	userID    int
	plan      catalog.WorkoutPlan
	startedAt time.Time
	sess      *session.Session

	requests chan request
	done     chan struct{}

	pending    []session.Transition
	completion *session.Completion
	record     RecordStatus
	recordErr  string

	mu         sync.Mutex
	status     Status
	finished   time.Time
	subs       map[int]chan Event
	nextSub    int
	subsClosed bool
}

func newLive(m *Manager, id uuid.UUID, req StartRequest) *live {
	return &live{
		m:         m,
		id:        id,
		userID:    req.UserID,
		plan:      req.Plan,
		startedAt: m.now(),
		requests:  make(chan request),
		done:      make(chan struct{}),
		subs:      make(map[int]chan Event),
	}
}

func (l *live) onTransition(t session.Transition) {
	l.pending = append(l.pending, t)
}

func (l *live) onComplete(c session.Completion) {
	l.completion = &c
}

func (l *live) run(ctx context.Context) {
	defer l.m.wg.Done()
	defer l.finish()

	// Transitions from an automatic start happened before anyone could subscribe.
	l.pending = nil

	tick, stop := l.m.newTicker(l.m.cfg.TickInterval)
	defer stop()

	var recordDone chan error
	for {
		select {
		case <-tick:
			prev := l.sess.State()
			l.sess.Tick()
			l.afterStep(prev)
		case req := <-l.requests:
			req.reply <- l.handle(req)
		case err := <-recordDone:
			l.recorded(err)
			return
		case <-ctx.Done():
			if recordDone != nil {
				l.recorded(<-recordDone)
			}
			return
		}

		if l.completion != nil && recordDone == nil {
			stop()
			tick = nil
			recordDone = l.startRecording(ctx)
			if recordDone == nil {
				return
			}
		}
		if l.sess.State().Phase == session.PhaseQuit {
			return
		}
	}
}

func (l *live) handle(req request) reply {
	if req.snapshot {
		return reply{status: l.lastStatus()}
	}

	prev := l.sess.State()
	ok, err := l.apply(req.cmd)
	l.afterStep(prev)
	if err == nil && !ok {
		err = ErrInvalidTransition
	}
	return reply{status: l.lastStatus(), err: err}
}

func (l *live) apply(cmd Command) (bool, error) {
	switch cmd.Kind {
	case CommandStart:
		return l.sess.Start(), nil
	case CommandPause:
		return l.sess.Pause(), nil
	case CommandResume:
		return l.sess.Resume(), nil
	case CommandSkipRest:
		return l.sess.SkipRest(), nil
	case CommandExtendRest:
		secs := cmd.Seconds
		if secs == 0 {
			secs = l.m.cfg.ExtendRestSeconds
		}
		return l.sess.ExtendRest(secs), nil
	case CommandQuit:
		return l.sess.Quit(), nil
	}
	return false, ErrUnknownCommand
}

// afterStep refreshes the snapshot and notifies subscribers of what changed.
func (l *live) afterStep(prev session.State) {
	st := l.sess.State()
	l.setStatus(l.buildStatus())

	if len(l.pending) == 0 {
		if st != prev {
			l.publish(Event{Type: EventTick, State: st})
		}
		return
	}

	for _, t := range l.pending {
		typ := EventPhase
		switch t.To {
		case session.PhaseCompleted:
			typ = EventCompleted
			l.m.metrics.CounterSessionsCompleted.Inc()
			l.m.metrics.HistSessionElapsed.Observe(float64(st.TotalElapsed))
			l.m.log.Info("session completed", "session_id", l.id, "elapsed_sec", st.TotalElapsed)
		case session.PhaseQuit:
			typ = EventQuit
			l.m.metrics.CounterSessionsQuit.Inc()
			l.m.log.Info("session quit", "session_id", l.id, "exercise_index", st.ExerciseIndex)
		}
		l.publish(Event{Type: typ, State: st})
	}
	l.pending = l.pending[:0]
}

// startRecording hands the completion to the recorder on its own goroutine so
// the session keeps answering snapshots meanwhile. Returns nil when recording
// is disabled.
func (l *live) startRecording(ctx context.Context) chan error {
	if l.m.recorder == nil {
		l.record = RecordDisabled
		l.setStatus(l.buildStatus())
		return nil
	}

	l.record = RecordPending
	l.setStatus(l.buildStatus())

	c := CompletedWorkout(l.id, l.userID, l.plan, l.startedAt, l.m.now(), *l.completion)
	done := make(chan error, 1)

	l.m.wg.Add(1)
	go func() {
		defer l.m.wg.Done()

		rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), l.m.cfg.RecordTimeout)
		defer cancel()

		begin := time.Now()
		err := l.m.recorder.RecordCompletion(rctx, c)
		l.m.metrics.HistRecordDuration.Observe(time.Since(begin).Seconds())
		done <- err
	}()
	return done
}

func (l *live) recorded(err error) {
	st := l.sess.State()
	if err != nil {
		l.record = RecordFailed
		l.recordErr = err.Error()
		l.setStatus(l.buildStatus())
		l.m.metrics.CounterRecordFailures.WithLabelValues("primary").Inc()
		l.m.log.Error("recording completion", "session_id", l.id, "error", err)
		l.publish(Event{Type: EventRecordFailed, State: st, Error: err.Error()})
		return
	}
	l.record = RecordDone
	l.setStatus(l.buildStatus())
	l.m.log.Info("completion recorded", "session_id", l.id)
	l.publish(Event{Type: EventRecorded, State: st})
}

func (l *live) buildStatus() Status {
	s := Status{
		ID:          l.id,
		UserID:      l.userID,
		PlanID:      l.plan.ID,
		PlanName:    l.plan.Name,
		StartedAt:   l.startedAt,
		State:       l.sess.State(),
		Exercise:    l.sess.Exercise(),
		Record:      l.record,
		RecordError: l.recordErr,
	}
	if next, ok := l.sess.NextExercise(); ok {
		s.NextExercise = &next
	}
	return s
}

func (l *live) setStatus(s Status) {
	l.mu.Lock()
	l.status = s
	l.mu.Unlock()
}

func (l *live) lastStatus() Status {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.status
}

func (l *live) finalStatus() Status {
	return l.lastStatus()
}

func (l *live) finishedAt() (time.Time, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.finished, !l.finished.IsZero()
}

// do sends a request to the run goroutine and waits for the reply.
func (l *live) do(ctx context.Context, req request) (reply, error) {
	req.reply = make(chan reply, 1)
	select {
	case l.requests <- req:
	case <-l.done:
		return reply{}, ErrSessionFinished
	case <-ctx.Done():
		return reply{}, ctx.Err()
	}
	select {
	case r := <-req.reply:
		return r, nil
	case <-ctx.Done():
		return reply{}, ctx.Err()
	}
}

func (l *live) subscribe(buffer int) (<-chan Event, func(), error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.subsClosed {
		return nil, nil, ErrSessionFinished
	}
	id := l.nextSub
	l.nextSub++
	ch := make(chan Event, buffer)
	l.subs[id] = ch

	unsubscribe := func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		if c, ok := l.subs[id]; ok {
			delete(l.subs, id)
			close(c)
		}
	}
	return ch, unsubscribe, nil
}

func (l *live) publish(evt Event) {
	evt.SessionID = l.id

	l.mu.Lock()
	defer l.mu.Unlock()
	for _, ch := range l.subs {
		select {
		case ch <- evt:
		default:
			l.m.metrics.CounterEventsDropped.Inc()
		}
	}
}

func (l *live) finish() {
	l.mu.Lock()
	l.finished = l.m.now()
	for id, ch := range l.subs {
		close(ch)
		delete(l.subs, id)
	}
	l.subsClosed = true
	l.mu.Unlock()

	close(l.done)
	l.m.metrics.GaugeActiveSessions.Dec()
}
