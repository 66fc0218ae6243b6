// Package store fronts the Neo4j property-graph store: a lazily created
// connection pool, per-query deadlines, circuit-breaker wrapping, and the
// label/relationship-type introspection the query translator needs.
package store

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/repograph/gateway/internal/errors"
	"github.com/repograph/gateway/internal/guard"
)

// Store is the read/write surface the builder, translator, and tools
// depend on.
type Store interface {
	ExecuteRead(ctx context.Context, query string, params map[string]any) ([]map[string]any, error)
	ExecuteWrite(ctx context.Context, query string, params map[string]any) ([]map[string]any, error)
	ListNodeLabels(ctx context.Context) ([]string, error)
	ListRelationshipTypes(ctx context.Context) ([]string, error)
	VerifyConnectivity(ctx context.Context) error
	Close(ctx context.Context) error
}

// Config carries the connection settings for the gateway.
type Config struct {
	URI            string
	User           string
	Password       string
	Database       string
	MaxPoolSize    int
	ConnectTimeout time.Duration
	QueryTimeout   time.Duration
}

// Gateway wraps the Neo4j driver. The pool is created on first use and
// is keyed to an owner token: when the token reported by OwnerFunc
// changes (for example a builder handing off to a dispatcher running on
// a different scheduler), the pool is torn down and rebuilt rather than
// shared across owners.
type Gateway struct {
	cfg     Config
	breaker *guard.CircuitBreaker
	logger  *slog.Logger

	// OwnerFunc identifies the execution context that owns the pool.
	// The default constant owner means one process-wide pool.
	OwnerFunc func() string

	mu     sync.Mutex
	driver neo4j.DriverWithContext
	owner  string
}

// NewGateway builds a gateway; no connection is attempted until the
// first query.
func NewGateway(cfg Config, breaker *guard.CircuitBreaker) *Gateway {
	if cfg.Database == "" {
		cfg.Database = "neo4j"
	}
	if cfg.MaxPoolSize <= 0 {
		cfg.MaxPoolSize = 50
	}
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = 10 * time.Second
	}
	if cfg.QueryTimeout <= 0 {
		cfg.QueryTimeout = 30 * time.Second
	}
	return &Gateway{
		cfg:       cfg,
		breaker:   breaker,
		logger:    slog.Default().With("component", "store"),
		OwnerFunc: func() string { return "process" },
	}
}

// acquire returns the pool for the current owner, building or rebuilding
// it as needed.
func (g *Gateway) acquire(ctx context.Context) (neo4j.DriverWithContext, error) {
	owner := g.OwnerFunc()

	g.mu.Lock()
	defer g.mu.Unlock()

	if g.driver != nil && g.owner == owner {
		return g.driver, nil
	}
	if g.driver != nil {
		g.logger.Info("pool owner changed, rebuilding connection pool",
			"previous", g.owner, "current", owner)
		_ = g.driver.Close(ctx)
		g.driver = nil
	}

	if g.cfg.URI == "" || g.cfg.User == "" {
		return nil, errors.New(errors.ErrorTypeConfig, errors.SeverityCritical,
			"store connection not configured: uri and user are required")
	}

	driver, err := neo4j.NewDriverWithContext(g.cfg.URI,
		neo4j.BasicAuth(g.cfg.User, g.cfg.Password, ""),
		func(config *neo4j.Config) {
			config.MaxConnectionPoolSize = g.cfg.MaxPoolSize
			config.ConnectionAcquisitionTimeout = 60 * time.Second
			config.MaxConnectionLifetime = time.Hour
			config.SocketConnectTimeout = g.cfg.ConnectTimeout
			config.SocketKeepalive = true
		})
	if err != nil {
		return nil, errors.UnavailableError(err, "failed to create store driver")
	}

	g.driver = driver
	g.owner = owner
	g.logger.Info("store pool created",
		"uri", g.cfg.URI,
		"database", g.cfg.Database,
		"max_pool_size", g.cfg.MaxPoolSize,
		"owner", owner)
	return driver, nil
}

// ExecuteRead runs a read-routed query with the configured deadline.
func (g *Gateway) ExecuteRead(ctx context.Context, query string, params map[string]any) ([]map[string]any, error) {
	return g.execute(ctx, query, params, true)
}

// ExecuteWrite runs a write query with the configured deadline.
func (g *Gateway) ExecuteWrite(ctx context.Context, query string, params map[string]any) ([]map[string]any, error) {
	return g.execute(ctx, query, params, false)
}

func (g *Gateway) execute(ctx context.Context, query string, params map[string]any, read bool) ([]map[string]any, error) {
	driver, err := g.acquire(ctx)
	if err != nil {
		return nil, err
	}

	queryCtx, cancel := guard.WithDeadline(ctx, g.cfg.QueryTimeout)
	defer cancel()

	var rows []map[string]any
	run := func() error {
		opts := []neo4j.ExecuteQueryConfigurationOption{
			neo4j.ExecuteQueryWithDatabase(g.cfg.Database),
		}
		if read {
			opts = append(opts, neo4j.ExecuteQueryWithReadersRouting())
		}
		result, err := neo4j.ExecuteQuery(queryCtx, driver, query, params,
			neo4j.EagerResultTransformer, opts...)
		if err != nil {
			return err
		}
		rows = make([]map[string]any, 0, len(result.Records))
		for _, record := range result.Records {
			rows = append(rows, record.AsMap())
		}
		return nil
	}

	start := time.Now()
	if g.breaker != nil {
		err = g.breaker.Execute(run)
	} else {
		err = run()
	}
	elapsed := time.Since(start)

	if err != nil {
		return nil, g.mapError(err, elapsed)
	}

	monitorDeadline(g.logger, "query", elapsed, g.cfg.QueryTimeout)
	g.logger.Debug("query executed", "rows", len(rows), "elapsed", elapsed, "read", read)
	return rows, nil
}

// mapError classifies a driver failure into the gateway's error kinds.
func (g *Gateway) mapError(err error, elapsed time.Duration) error {
	var open *guard.ErrCircuitOpen
	if errors.As(err, &open) {
		return errors.CircuitOpenError(
			"graph store circuit breaker is open; retry after the recovery window")
	}
	if guard.IsDeadline(err) || elapsed >= g.cfg.QueryTimeout {
		return errors.TimeoutError(err, fmt.Sprintf(
			"store query exceeded the %s deadline", g.cfg.QueryTimeout))
	}
	if neo4j.IsConnectivityError(err) {
		return errors.UnavailableError(err, "graph store is unreachable")
	}
	return errors.Wrap(err, errors.ErrorTypeDatabase, errors.SeverityHigh, "store query failed")
}

// ListNodeLabels returns the node labels that actually exist in the
// store, for the translator's live schema snapshot.
func (g *Gateway) ListNodeLabels(ctx context.Context) ([]string, error) {
	rows, err := g.ExecuteRead(ctx, "CALL db.labels() YIELD label RETURN label", nil)
	if err != nil {
		return nil, err
	}
	return pluckStrings(rows, "label"), nil
}

// ListRelationshipTypes returns the relationship types present in the
// store.
func (g *Gateway) ListRelationshipTypes(ctx context.Context) ([]string, error) {
	rows, err := g.ExecuteRead(ctx, "CALL db.relationshipTypes() YIELD relationshipType RETURN relationshipType", nil)
	if err != nil {
		return nil, err
	}
	return pluckStrings(rows, "relationshipType"), nil
}

// VerifyConnectivity checks the store is reachable, used by the health
// probe and the indexer's fail-fast startup.
func (g *Gateway) VerifyConnectivity(ctx context.Context) error {
	driver, err := g.acquire(ctx)
	if err != nil {
		return err
	}
	if err := driver.VerifyConnectivity(ctx); err != nil {
		return errors.UnavailableError(err, "graph store connectivity check failed")
	}
	return nil
}

// Close tears down the pool.
func (g *Gateway) Close(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.driver == nil {
		return nil
	}
	err := g.driver.Close(ctx)
	g.driver = nil
	g.owner = ""
	if err != nil {
		return fmt.Errorf("closing store driver: %w", err)
	}
	g.logger.Info("store pool closed")
	return nil
}

func pluckStrings(rows []map[string]any, key string) []string {
	out := make([]string, 0, len(rows))
	for _, row := range rows {
		if v, ok := row[key].(string); ok {
			out = append(out, v)
		}
	}
	return out
}
