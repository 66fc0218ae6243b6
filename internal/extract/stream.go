package extract

import (
	"context"

	"github.com/repograph/gateway/internal/extract/workerpool"
	"github.com/repograph/gateway/internal/model"
)

// FileOutput collects what one file's extraction produced. Extractors
// compute both halves per file; the entity and edge iterators each keep
// their own half.
type FileOutput struct {
	Entities []model.Entity
	Edges    []model.Edge
	Errs     []error
}

// FileFunc extracts one file, identified by its repo-relative path.
type FileFunc func(ctx context.Context, relPath string) FileOutput

// StreamEntities fans file work across the pool and emits the entity
// half of each file's output. The channels close when the walk drains.
func StreamEntities(ctx context.Context, root string, accept func(string) bool, cfg workerpool.Config, fn FileFunc) (<-chan model.Entity, <-chan error) {
	entities := make(chan model.Entity, 128)
	errs := make(chan error, 128)
	go func() {
		defer close(entities)
		defer close(errs)
		paths := Walk(ctx, root, accept)
		pool := workerpool.New(cfg)
		_ = pool.Run(ctx, paths, func(workCtx context.Context, rel string) {
			out := fn(workCtx, rel)
			for _, err := range out.Errs {
				select {
				case errs <- err:
				default: // error channel full: the error is dropped
				}
			}
			for _, e := range out.Entities {
				select {
				case entities <- e:
				case <-ctx.Done():
					return
				}
			}
		})
	}()
	return entities, errs
}

// StreamEdges is StreamEntities for the edge half.
func StreamEdges(ctx context.Context, root string, accept func(string) bool, cfg workerpool.Config, fn FileFunc) (<-chan model.Edge, <-chan error) {
	edges := make(chan model.Edge, 128)
	errs := make(chan error, 128)
	go func() {
		defer close(edges)
		defer close(errs)
		paths := Walk(ctx, root, accept)
		pool := workerpool.New(cfg)
		_ = pool.Run(ctx, paths, func(workCtx context.Context, rel string) {
			out := fn(workCtx, rel)
			for _, err := range out.Errs {
				select {
				case errs <- err:
				default:
				}
			}
			for _, e := range out.Edges {
				select {
				case edges <- e:
				case <-ctx.Done():
					return
				}
			}
		})
	}()
	return edges, errs
}
