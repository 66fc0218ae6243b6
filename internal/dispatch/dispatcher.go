package dispatch

import (
	"context"
	"log/slog"

	"github.com/repograph/gateway/internal/errors"
	"github.com/repograph/gateway/internal/tracing"
)

// Dispatcher owns the tool registry and runs every invocation through
// argument validation, session resolution, tracing, and uniform error
// mapping. Each invocation is an independent task; cancellation of ctx
// aborts in-flight store and LLM calls.
type Dispatcher struct {
	tools    map[string]Tool
	sessions SessionStore
	tracer   tracing.Tracer
	logger   *slog.Logger
}

// NewDispatcher creates a dispatcher around a session store. A nil
// tracer disables spans.
func NewDispatcher(sessions SessionStore, tracer tracing.Tracer) *Dispatcher {
	if tracer == nil {
		tracer = tracing.NewNoop()
	}
	return &Dispatcher{
		tools:    make(map[string]Tool),
		sessions: sessions,
		tracer:   tracer,
		logger:   slog.Default().With("component", "dispatcher"),
	}
}

// Register adds a tool under its schema name.
func (d *Dispatcher) Register(t Tool) {
	d.tools[t.Schema().Name] = t
}

// Schemas lists every registered tool's contract, sorted by name.
func (d *Dispatcher) Schemas() []ToolSchema {
	names := sortedToolNames(d.tools, false)
	out := make([]ToolSchema, 0, len(names))
	for _, name := range names {
		out = append(out, d.tools[name].Schema())
	}
	return out
}

// Sessions exposes the session façade to the RPC layer.
func (d *Dispatcher) Sessions() SessionStore {
	return d.sessions
}

// Dispatch runs one tool call for a session. Every failure comes back
// as a *errors.Error whose Kind the RPC layer maps onto the wire.
func (d *Dispatcher) Dispatch(ctx context.Context, sessionID, toolName string, args map[string]any) (string, error) {
	tool, ok := d.tools[toolName]
	if !ok {
		return "", errors.UserInputErrorf("Unknown tool %q; available tools: %v",
			toolName, sortedToolNames(d.tools, false))
	}
	if err := ValidateArgs(tool.Schema(), args); err != nil {
		return "", err
	}

	sess, _ := d.sessions.Get(sessionID)

	spanCtx, span := d.tracer.StartSpan(ctx, "tool."+toolName)
	span.SetAttribute("session", sessionID)

	result, err := tool.Execute(spanCtx, sess, args)
	span.End(err)
	if err != nil {
		return "", d.mapError(toolName, err)
	}
	return result, nil
}

// mapError shapes a failure for the caller: timeouts and open circuits
// point at the deterministic tools, unexpected errors are logged in
// full and surfaced only by correlation id.
func (d *Dispatcher) mapError(toolName string, err error) error {
	deterministic := sortedToolNames(d.tools, true)
	switch errors.KindOf(err) {
	case errors.KindTimeout:
		return errors.TimeoutError(err,
			"The query timed out. Try a narrower question."+describeTools(deterministic))
	case errors.KindCircuitOpen:
		return errors.CircuitOpenError(
			"The service is recovering from repeated failures." + describeTools(deterministic))
	case errors.KindUserInput, errors.KindUnavailable, errors.KindRateLimited:
		return err
	default:
		wrapped, id := errors.CorrelatedInternal(err)
		d.logger.Error("tool call failed",
			"tool", toolName,
			"correlation_id", id,
			"error", wrapped.DetailedString())
		return errors.InternalErrorf("Internal error (reference %s)", id).WithKind(errors.KindInternal)
	}
}
