// Package workerpool is the bounded goroutine pool shared by every
// extractor: a fixed number of workers pull file paths off a channel,
// each work item gets its own context.WithTimeout, and an
// errgroup.Group coordinates shutdown and cancellation.
package workerpool

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"
)

// Config controls pool width and the per-item timeout.
type Config struct {
	Workers     int
	ItemTimeout time.Duration
}

// DefaultConfig is four workers with a generous per-file timeout.
func DefaultConfig() Config {
	return Config{Workers: 4, ItemTimeout: 30 * time.Second}
}

// Pool runs a work function over a stream of paths with bounded
// parallelism. Work never returns a hard error to the pool: a per-file
// parse failure is recorded by the caller's work function, not
// propagated. The pool itself only fails on context cancellation.
type Pool struct {
	cfg Config
}

// New creates a pool; a non-positive Workers falls back to the default.
func New(cfg Config) *Pool {
	if cfg.Workers <= 0 {
		cfg.Workers = DefaultConfig().Workers
	}
	if cfg.ItemTimeout <= 0 {
		cfg.ItemTimeout = DefaultConfig().ItemTimeout
	}
	return &Pool{cfg: cfg}
}

// Run drains paths across p.cfg.Workers goroutines, invoking work for
// each path with a context scoped to p.cfg.ItemTimeout. work is
// responsible for recording its own per-item errors; it should not
// return an error unless the whole run should stop (e.g. the caller
// wants fail-fast semantics for a specific extractor — none of the
// bundled extractors do).
func (p *Pool) Run(ctx context.Context, paths <-chan string, work func(ctx context.Context, path string)) error {
	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < p.cfg.Workers; i++ {
		g.Go(func() error {
			for {
				select {
				case <-gctx.Done():
					return gctx.Err()
				case path, ok := <-paths:
					if !ok {
						return nil
					}
					itemCtx, cancel := context.WithTimeout(gctx, p.cfg.ItemTimeout)
					work(itemCtx, path)
					cancel()
				}
			}
		})
	}
	return g.Wait()
}
