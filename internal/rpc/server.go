// Package rpc is the streaming tool surface: a long-lived SSE channel
// per client, a JSON message endpoint for tool invocations, and a
// liveness probe. Rate limiting and error shaping happen here, at the
// edge.
package rpc

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"sync"

	"github.com/google/uuid"

	"github.com/repograph/gateway/internal/dispatch"
	"github.com/repograph/gateway/internal/errors"
	"github.com/repograph/gateway/internal/guard"
)

// Request is one tool invocation sent to POST /messages.
type Request struct {
	ID        any            `json:"id"`
	Tool      string         `json:"tool"`
	Arguments map[string]any `json:"arguments"`
}

// Response is the JSON shape pushed back over the channel (or returned
// directly for sessionless calls).
type Response struct {
	ID         any    `json:"id,omitempty"`
	Result     string `json:"result,omitempty"`
	Error      string `json:"error,omitempty"`
	RetryAfter int    `json:"retry_after,omitempty"`
}

// Server wires the dispatcher to HTTP.
type Server struct {
	dispatcher *dispatch.Dispatcher
	limiter    *guard.RateLimiter
	shared     *guard.RedisRateLimiter
	logger     *slog.Logger

	mu       sync.Mutex
	channels map[string]*channel
}

// channel is one open SSE stream. Events are serialized through a
// buffered queue so responses leave in completion order; cancel aborts
// every in-flight call when the stream closes.
type channel struct {
	id     string
	events chan []byte
	ctx    context.Context
	cancel context.CancelFunc
}

// NewServer creates the RPC server. shared may be nil; when set, the
// Redis-backed limiter is consulted so replicas share one budget.
func NewServer(dispatcher *dispatch.Dispatcher, limiter *guard.RateLimiter, shared *guard.RedisRateLimiter) *Server {
	return &Server{
		dispatcher: dispatcher,
		limiter:    limiter,
		shared:     shared,
		logger:     slog.Default().With("component", "rpc"),
		channels:   make(map[string]*channel),
	}
}

// Handler returns the route mux.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /sse", s.handleSSE)
	mux.HandleFunc("POST /messages", s.handleMessages)
	mux.HandleFunc("GET /health", s.handleHealth)
	return mux
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

// handleSSE opens a channel: allocates the session, streams an initial
// endpoint event carrying the session id, then relays tool responses
// until the client goes away.
func (s *Server) handleSSE(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	sessionID := uuid.NewString()
	if _, err := s.dispatcher.Sessions().Open(sessionID); err != nil {
		s.writeError(w, http.StatusInternalServerError, "failed to open session", 0)
		return
	}

	ctx, cancel := context.WithCancel(r.Context())
	ch := &channel{
		id:     sessionID,
		events: make(chan []byte, 32),
		ctx:    ctx,
		cancel: cancel,
	}
	s.mu.Lock()
	s.channels[sessionID] = ch
	s.mu.Unlock()

	defer func() {
		cancel()
		s.mu.Lock()
		delete(s.channels, sessionID)
		s.mu.Unlock()
		_ = s.dispatcher.Sessions().Close(sessionID)
		s.logger.Debug("channel closed", "session", sessionID)
	}()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Session-Id", sessionID)

	fmt.Fprintf(w, "event: endpoint\ndata: {\"session_id\":%q,\"messages\":\"/messages\"}\n\n", sessionID)
	flusher.Flush()
	s.logger.Debug("channel opened", "session", sessionID)

	for {
		select {
		case <-ctx.Done():
			return
		case payload := <-ch.events:
			fmt.Fprintf(w, "event: message\ndata: %s\n\n", payload)
			flusher.Flush()
		}
	}
}

// handleMessages accepts one tool invocation. With an attached channel
// the call runs as its own task and the response streams back over SSE;
// without one, the response is written directly.
func (s *Server) handleMessages(w http.ResponseWriter, r *http.Request) {
	clientID := guard.ClientID(r)
	decision := s.checkRateLimit(r.Context(), clientID)
	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(decision.Limit))
	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(decision.Remaining))
	if !decision.Allowed {
		retry := int(decision.RetryAfter.Seconds())
		if retry < 1 {
			retry = 1
		}
		w.Header().Set("Retry-After", strconv.Itoa(retry))
		s.writeError(w, http.StatusTooManyRequests, "Rate limit exceeded", retry)
		return
	}

	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "Malformed request body", 0)
		return
	}
	if req.Tool == "" {
		s.writeError(w, http.StatusBadRequest, "Missing tool name", 0)
		return
	}

	sessionID := r.Header.Get("X-Session-Id")
	if sessionID == "" {
		sessionID = r.URL.Query().Get("session_id")
	}

	s.mu.Lock()
	ch := s.channels[sessionID]
	s.mu.Unlock()

	if ch == nil {
		// Sessionless invocation: dispatch inline and answer directly.
		resp, kind := s.run(r.Context(), sessionID, &req)
		s.writeJSON(w, statusFor(resp, kind), resp)
		return
	}

	// Channel-bound: the call is its own task under the channel's
	// context, so closing the stream cancels it.
	go func() {
		resp, _ := s.run(ch.ctx, sessionID, &req)
		payload, err := json.Marshal(resp)
		if err != nil {
			return
		}
		select {
		case ch.events <- payload:
		case <-ch.ctx.Done():
		}
	}()

	w.WriteHeader(http.StatusAccepted)
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "accepted"})
}

// run executes the tool and folds the outcome into the wire shape.
func (s *Server) run(ctx context.Context, sessionID string, req *Request) (Response, errors.Kind) {
	result, err := s.dispatcher.Dispatch(ctx, sessionID, req.Tool, req.Arguments)
	if err != nil {
		return Response{ID: req.ID, Error: err.Error()}, errors.KindOf(err)
	}
	return Response{ID: req.ID, Result: result}, ""
}

func (s *Server) checkRateLimit(ctx context.Context, clientID string) guard.Decision {
	if s.shared != nil {
		if d, err := s.shared.Check(ctx, clientID); err == nil {
			return d
		}
		// Shared backend unreachable: fall back to the local bucket
		// rather than failing open entirely.
	}
	return s.limiter.Check(clientID)
}

func statusFor(resp Response, kind errors.Kind) int {
	if resp.Error == "" {
		return http.StatusOK
	}
	switch kind {
	case errors.KindUserInput:
		return http.StatusBadRequest
	case errors.KindTimeout:
		return http.StatusGatewayTimeout
	case errors.KindUnavailable, errors.KindCircuitOpen:
		return http.StatusServiceUnavailable
	case errors.KindRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string, retryAfter int) {
	s.writeJSON(w, status, Response{Error: message, RetryAfter: retryAfter})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, resp Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}
