// Package metrics holds the Prometheus collectors shared by the runner and the
// HTTP server.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Manager struct {
	// counters
	CounterRequests          *prometheus.CounterVec
	CounterSessionsStarted   prometheus.Counter
	CounterSessionsCompleted prometheus.Counter
	CounterSessionsQuit      prometheus.Counter
	CounterRecordFailures    *prometheus.CounterVec
	CounterEventsDropped     prometheus.Counter

	// gauges
	GaugeActiveSessions prometheus.Gauge

	// histograms
	HistRequestDuration prometheus.Histogram
	HistSessionElapsed  prometheus.Histogram
	HistRecordDuration  prometheus.Histogram
}

func NewTestManager() *Manager {
	return NewManager("fitrun", "test", prometheus.NewRegistry())
}

func NewTestManagerAndRegistry() (*Manager, *prometheus.Registry) {
	reg := prometheus.NewRegistry()
	return NewManager("fitrun", "test", reg), reg
}

func NewManager(namespace, subsystem string, reg prometheus.Registerer) *Manager {
	factory := promauto.With(reg)

	counterRequests := factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "requests_total",
		Help:      "The total number of incoming HTTP requests",
	}, []string{"method", "status"})
	counterSessionsStarted := factory.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "sessions_started_total",
		Help:      "The total number of workout sessions created",
	})
	counterSessionsCompleted := factory.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "sessions_completed_total",
		Help:      "The total number of workout sessions that ran to completion",
	})
	counterSessionsQuit := factory.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "sessions_quit_total",
		Help:      "The total number of workout sessions discarded by quit",
	})
	counterRecordFailures := factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "record_failures_total",
		Help:      "The total number of failed completion deliveries",
	}, []string{"recorder"})
	counterEventsDropped := factory.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "events_dropped_total",
		Help:      "Session events dropped because a subscriber was not reading",
	})

	gaugeActiveSessions := factory.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "active_sessions",
		Help:      "Current number of live workout sessions",
	})

	histReqDuration := factory.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Buckets:   []float64{0.0001, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 10},
		Name:      "request_duration_seconds",
		Help:      "Total duration of HTTP requests in seconds",
	})
	histSessionElapsed := factory.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Buckets:   []float64{60, 300, 600, 900, 1200, 1800, 2700, 3600},
		Name:      "session_elapsed_seconds",
		Help:      "Elapsed workout time of completed sessions",
	})
	histRecordDuration := factory.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Buckets:   []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30},
		Name:      "record_duration_seconds",
		Help:      "Time taken to deliver a completion to the recorder",
	})

	return &Manager{
		CounterRequests:          counterRequests,
		CounterSessionsStarted:   counterSessionsStarted,
		CounterSessionsCompleted: counterSessionsCompleted,
		CounterSessionsQuit:      counterSessionsQuit,
		CounterRecordFailures:    counterRecordFailures,
		CounterEventsDropped:     counterEventsDropped,
		GaugeActiveSessions:      gaugeActiveSessions,
		HistRequestDuration:      histReqDuration,
		HistSessionElapsed:       histSessionElapsed,
		HistRecordDuration:       histRecordDuration,
	}
}
