// Package promround counts and times backend requests and tool executions with Prometheus.
package promround

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/skosovsky/toolround"
)

// Outcome label values.
const (
	OutcomeSuccess = "success"
	OutcomeError   = "error"
)

// Metrics holds the collectors registered by New.
type Metrics struct {
	backendRequests *prometheus.CounterVec
	backendDuration prometheus.Histogram
	toolExecutions  *prometheus.CounterVec
}

// New registers the collectors on reg. It panics if they are already registered there.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		backendRequests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "toolround_backend_requests_total",
			Help: "Total number of backend generate requests",
		}, []string{"outcome"}),
		backendDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "toolround_backend_request_duration_seconds",
			Help:    "Backend generate latency in seconds",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		}),
		toolExecutions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "toolround_tool_executions_total",
			Help: "Total number of tool executions",
		}, []string{"tool", "outcome"}),
	}
}

// WrapBackend returns next instrumented with m.
func (m *Metrics) WrapBackend(next toolround.Backend) toolround.Backend {
	return toolround.BackendFunc(func(ctx context.Context, req *toolround.BackendRequest) (*toolround.BackendResponse, error) {
		start := time.Now()
		resp, err := next.Generate(ctx, req)
		m.backendDuration.Observe(time.Since(start).Seconds())
		m.backendRequests.WithLabelValues(outcome(err)).Inc()
		return resp, err
	})
}

// WrapExecutor returns next instrumented with m.
func (m *Metrics) WrapExecutor(next toolround.ToolExecutor) toolround.ToolExecutor {
	return toolround.ToolExecutorFunc(func(ctx context.Context, name string, args map[string]any) (any, error) {
		out, err := next.Execute(ctx, name, args)
		m.toolExecutions.WithLabelValues(name, outcome(err)).Inc()
		return out, err
	})
}

func outcome(err error) string {
	if err != nil {
		return OutcomeError
	}
	return OutcomeSuccess
}
