package observability

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Session metrics
	activeSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "interview_gateway_active_sessions",
		Help: "Number of active interview sessions",
	})

	totalSessions = promauto.NewCounter(prometheus.CounterOpts{
		Name: "interview_gateway_sessions_total",
		Help: "Total number of interview sessions started",
	})

	sessionDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "interview_gateway_session_duration_seconds",
		Help:    "Duration of interview sessions in seconds",
		Buckets: []float64{30, 60, 120, 300, 600, 1200, 1800, 3600},
	})

	sessionOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "interview_gateway_session_outcomes_total",
		Help: "Terminal session outcomes",
	}, []string{"outcome"}) // completed, cancelled, aborted

	questionsAsked = promauto.NewCounter(prometheus.CounterOpts{
		Name: "interview_gateway_questions_asked_total",
		Help: "Total number of interview questions asked",
	})

	// Agent metrics
	agentRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "interview_gateway_agent_requests_total",
		Help: "Total number of AI agent requests",
	}, []string{"operation", "status"})

	agentLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "interview_gateway_agent_latency_seconds",
		Help:    "AI agent request latency in seconds",
		Buckets: []float64{0.1, 0.25, 0.5, 1.0, 2.0, 5.0, 10.0, 30.0},
	}, []string{"operation"})

	// Backend metrics
	backendRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "interview_gateway_backend_requests_total",
		Help: "Total number of recruiting backend requests",
	}, []string{"operation", "status"})

	// Error metrics
	errorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "interview_gateway_errors_total",
		Help: "Total number of errors",
	}, []string{"type", "component"})

	// Circuit breaker metrics
	circuitBreakerState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "interview_gateway_circuit_breaker_state",
		Help: "Circuit breaker state (0=closed, 1=open, 2=half-open)",
	}, []string{"service"})

	circuitBreakerFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "interview_gateway_circuit_breaker_failures_total",
		Help: "Total circuit breaker failures",
	}, []string{"service"})
)

// SessionMetrics tracks metrics for a single interview session
type SessionMetrics struct {
	sessionID string
	startTime time.Time
	mu        sync.Mutex
	ended     bool
}

// NewSessionMetrics creates a new metrics tracker for a session
func NewSessionMetrics(sessionID string) *SessionMetrics {
	return &SessionMetrics{
		sessionID: sessionID,
		startTime: time.Now(),
	}
}

// RecordSessionStart records the start of a session
func (m *SessionMetrics) RecordSessionStart() {
	activeSessions.Inc()
	totalSessions.Inc()
}

// RecordSessionEnd records the end of a session with its terminal outcome.
// Safe to call more than once; only the first call is recorded.
func (m *SessionMetrics) RecordSessionEnd(outcome string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ended {
		return
	}
	m.ended = true

	activeSessions.Dec()
	sessionDuration.Observe(time.Since(m.startTime).Seconds())
	sessionOutcomes.WithLabelValues(outcome).Inc()
}

// RecordQuestion records a question being asked
func (m *SessionMetrics) RecordQuestion() {
	questionsAsked.Inc()
}

// RecordError records an error
func (m *SessionMetrics) RecordError(errorType, component string) {
	errorsTotal.WithLabelValues(errorType, component).Inc()
}

// RecordAgentRequest records an AI agent request with its latency
func RecordAgentRequest(operation string, err error, elapsed time.Duration) {
	status := "success"
	if err != nil {
		status = "error"
	}
	agentRequests.WithLabelValues(operation, status).Inc()
	agentLatency.WithLabelValues(operation).Observe(elapsed.Seconds())
}

// RecordBackendRequest records a recruiting backend request
func RecordBackendRequest(operation string, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	backendRequests.WithLabelValues(operation, status).Inc()
}

// RecordError records an error outside of any session
func RecordError(errorType, component string) {
	errorsTotal.WithLabelValues(errorType, component).Inc()
}

// UpdateCircuitBreakerState updates circuit breaker state metric
func UpdateCircuitBreakerState(service string, state int) {
	circuitBreakerState.WithLabelValues(service).Set(float64(state))
}

// IncrementCircuitBreakerFailures increments circuit breaker failure counter
func IncrementCircuitBreakerFailures(service string) {
	circuitBreakerFailures.WithLabelValues(service).Inc()
}
