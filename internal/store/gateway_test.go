package store

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/repograph/gateway/internal/errors"
	"github.com/repograph/gateway/internal/guard"
)

func TestNewGatewayDefaults(t *testing.T) {
	g := NewGateway(Config{URI: "bolt://localhost:7687", User: "neo4j"}, nil)

	assert.Equal(t, "neo4j", g.cfg.Database)
	assert.Equal(t, 50, g.cfg.MaxPoolSize)
	assert.Equal(t, 10*time.Second, g.cfg.ConnectTimeout)
	assert.Equal(t, 30*time.Second, g.cfg.QueryTimeout)
	assert.NotNil(t, g.OwnerFunc)
}

func TestExecuteRequiresConnectionConfig(t *testing.T) {
	g := NewGateway(Config{}, nil)

	_, err := g.ExecuteRead(context.Background(), "MATCH (n) RETURN n LIMIT 1", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not configured")
	assert.True(t, errors.IsFatal(err))
}

func TestMapErrorClassifiesCircuitOpen(t *testing.T) {
	g := NewGateway(Config{URI: "bolt://x", User: "u"}, nil)

	err := g.mapError(&guard.ErrCircuitOpen{Breaker: "neo4j_query"}, time.Millisecond)
	assert.Equal(t, errors.KindCircuitOpen, errors.KindOf(err))
}

func TestMapErrorClassifiesDeadline(t *testing.T) {
	g := NewGateway(Config{URI: "bolt://x", User: "u", QueryTimeout: time.Second}, nil)

	err := g.mapError(context.DeadlineExceeded, 10*time.Millisecond)
	assert.Equal(t, errors.KindTimeout, errors.KindOf(err))
	assert.Contains(t, err.Error(), "deadline")

	// An error arriving after the full budget elapsed is also a timeout,
	// whatever shape the driver gave it.
	err = g.mapError(stderrors.New("socket closed"), 2*time.Second)
	assert.Equal(t, errors.KindTimeout, errors.KindOf(err))
}

func TestMapErrorFallsBackToDatabase(t *testing.T) {
	g := NewGateway(Config{URI: "bolt://x", User: "u", QueryTimeout: time.Minute}, nil)

	err := g.mapError(stderrors.New("syntax error"), 5*time.Millisecond)
	assert.Equal(t, errors.KindUnavailable, errors.KindOf(err),
		"database-typed errors surface as unavailable on the wire")
	assert.Contains(t, err.Error(), "store query failed")
}

func TestPluckStrings(t *testing.T) {
	rows := []map[string]any{
		{"label": "Task"},
		{"label": "Role"},
		{"label": 42},
		{"other": "ignored"},
	}
	assert.Equal(t, []string{"Task", "Role"}, pluckStrings(rows, "label"))
	assert.Empty(t, pluckStrings(nil, "label"))
}

func TestCloseWithoutPoolIsNoop(t *testing.T) {
	g := NewGateway(Config{URI: "bolt://x", User: "u"}, nil)
	assert.NoError(t, g.Close(context.Background()))
}
