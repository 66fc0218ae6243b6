// Package tracing is the optional span emitter wrapped around tool
// dispatch and LLM calls. The default tracer is a no-op; a concrete
// exporter plugs in behind the same interface.
package tracing

import (
	"context"
	"log/slog"
	"time"
)

// Tracer opens spans. Implementations must be safe for concurrent use.
type Tracer interface {
	StartSpan(ctx context.Context, name string) (context.Context, Span)
}

// Span is one timed operation. End is idempotent.
type Span interface {
	SetAttribute(key string, value any)
	RecordTokens(count int)
	End(err error)
}

// NewNoop returns a tracer whose spans record nothing.
func NewNoop() Tracer { return noopTracer{} }

type noopTracer struct{}

func (noopTracer) StartSpan(ctx context.Context, name string) (context.Context, Span) {
	return ctx, noopSpan{}
}

type noopSpan struct{}

func (noopSpan) SetAttribute(string, any) {}
func (noopSpan) RecordTokens(int)         {}
func (noopSpan) End(error)                {}

// NewLogging returns a tracer that writes span timings to the logger,
// useful when no external collector is configured but span visibility
// is still wanted.
func NewLogging() Tracer {
	return &loggingTracer{logger: slog.Default().With("component", "tracing")}
}

type loggingTracer struct {
	logger *slog.Logger
}

func (t *loggingTracer) StartSpan(ctx context.Context, name string) (context.Context, Span) {
	return ctx, &loggingSpan{tracer: t, name: name, start: time.Now(), attrs: map[string]any{}}
}

type loggingSpan struct {
	tracer *loggingTracer
	name   string
	start  time.Time
	attrs  map[string]any
	tokens int
	ended  bool
}

func (s *loggingSpan) SetAttribute(key string, value any) { s.attrs[key] = value }
func (s *loggingSpan) RecordTokens(count int)             { s.tokens += count }

func (s *loggingSpan) End(err error) {
	if s.ended {
		return
	}
	s.ended = true
	args := []any{"span", s.name, "elapsed", time.Since(s.start)}
	if s.tokens > 0 {
		args = append(args, "tokens", s.tokens)
	}
	for k, v := range s.attrs {
		args = append(args, k, v)
	}
	if err != nil {
		args = append(args, "error", err)
		s.tracer.logger.Warn("span failed", args...)
		return
	}
	s.tracer.logger.Debug("span complete", args...)
}
