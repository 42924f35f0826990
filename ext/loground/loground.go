// Package loground logs backend requests and tool executions with zerolog.
//
// Successful events are written at debug level and failures at error level,
// each carrying the exchange id so both backend calls and the tool calls of
// one Orchestrator.Run can be correlated.
package loground

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/skosovsky/toolround"
)

// Backend logs every Generate call of the wrapped backend.
type Backend struct {
	next   toolround.Backend
	logger zerolog.Logger
}

// WrapBackend returns next decorated with logging to logger.
func WrapBackend(next toolround.Backend, logger zerolog.Logger) *Backend {
	return &Backend{next: next, logger: logger}
}

// Generate calls the wrapped backend and logs the outcome.
func (b *Backend) Generate(ctx context.Context, req *toolround.BackendRequest) (*toolround.BackendResponse, error) {
	start := time.Now()
	resp, err := b.next.Generate(ctx, req)
	ev := b.logger.Debug()
	if err != nil {
		ev = b.logger.Error().Err(err)
	}
	ev = withExchange(ctx, ev).Dur("duration", time.Since(start))
	if req != nil {
		ev = ev.Str("model", req.Model).Int("turns", len(req.Turns)).Int("tools", len(req.Tools))
	}
	if resp != nil {
		ev = ev.Str("stop_reason", string(resp.StopReason)).Int("tool_calls", len(resp.ToolCalls()))
	}
	ev.Msg("backend generate")
	return resp, err
}

// Executor logs every Execute call of the wrapped executor.
type Executor struct {
	next   toolround.ToolExecutor
	logger zerolog.Logger
}

// WrapExecutor returns next decorated with logging to logger.
func WrapExecutor(next toolround.ToolExecutor, logger zerolog.Logger) *Executor {
	return &Executor{next: next, logger: logger}
}

// Execute runs the tool and logs the outcome. Arguments and results are not logged.
func (e *Executor) Execute(ctx context.Context, name string, args map[string]any) (any, error) {
	start := time.Now()
	out, err := e.next.Execute(ctx, name, args)
	ev := e.logger.Debug()
	if err != nil {
		ev = e.logger.Error().Err(err)
	}
	withExchange(ctx, ev).
		Str("tool", name).
		Int("args", len(args)).
		Dur("duration", time.Since(start)).
		Msg("tool execute")
	return out, err
}

func withExchange(ctx context.Context, ev *zerolog.Event) *zerolog.Event {
	if id, ok := toolround.ExchangeIDFromContext(ctx); ok {
		return ev.Str("exchange_id", id)
	}
	return ev
}

var (
	_ toolround.Backend      = (*Backend)(nil)
	_ toolround.ToolExecutor = (*Executor)(nil)
)
