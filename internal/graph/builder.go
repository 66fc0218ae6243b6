// Package graph turns the extractor's entity and edge stream into
// batched, idempotent merge-upserts against the store. Identity is the
// composite merge key per kind, so re-running an extraction produces no
// net change.
package graph

import (
	"context"
	"log/slog"
	"sync"

	"github.com/repograph/gateway/internal/model"
	"github.com/repograph/gateway/internal/schema"
	"github.com/repograph/gateway/internal/store"
)

// Stats counts what a builder has pushed into the store so far.
type Stats struct {
	EntitiesUpserted int
	EdgesUpserted    int
	EntitiesDropped  int
	EdgesDropped     int
	BatchesFailed    int
}

// Builder buffers entities and edges and flushes them in batches. Adds
// are cheap and thread-safe (the extractor pool calls them from many
// workers); flushes are serialized so only one runs at a time.
type Builder struct {
	store     store.Store
	registry  *schema.Registry
	profile   string
	batchSize int
	batching  BatchConfig
	logger    *slog.Logger

	mu       sync.Mutex
	entities []model.Entity
	edges    []model.Edge
	stats    Stats

	flushMu sync.Mutex
}

// NewBuilder creates a builder for one profile. batchSize is the buffer
// threshold that triggers an automatic flush; 0 means the default 100.
func NewBuilder(st store.Store, registry *schema.Registry, profile string, batchSize int) *Builder {
	if batchSize <= 0 {
		batchSize = 100
	}
	return &Builder{
		store:     st,
		registry:  registry,
		profile:   profile,
		batchSize: batchSize,
		batching:  DefaultBatchConfig(),
		logger:    slog.Default().With("component", "builder", "profile", profile),
	}
}

// InitializeSchema ensures the profile's indexes and constraints exist.
// The generated DDL is idempotent, so calling this on every run is safe.
func (b *Builder) InitializeSchema(ctx context.Context) error {
	p, ok := b.registry.Profile(b.profile)
	if !ok {
		return errUnknownProfile(b.profile)
	}
	for _, stmt := range p.DDL() {
		if _, err := b.store.ExecuteWrite(ctx, stmt, nil); err != nil {
			return err
		}
	}
	b.logger.Info("schema initialized", "statements", len(p.DDL()))
	return nil
}

// AddEntity buffers one entity, flushing when the buffer fills. An
// entity whose kind the profile does not declare is dropped with a
// warning rather than failing the run.
func (b *Builder) AddEntity(ctx context.Context, e model.Entity) error {
	if err := b.registry.ValidateEntity(b.profile, e); err != nil {
		b.mu.Lock()
		b.stats.EntitiesDropped++
		b.mu.Unlock()
		b.logger.Warn("dropping entity", "kind", e.Kind, "reason", err)
		return nil
	}

	b.mu.Lock()
	b.entities = append(b.entities, e)
	full := len(b.entities)+len(b.edges) >= b.batchSize
	b.mu.Unlock()

	if full {
		return b.Flush(ctx)
	}
	return nil
}

// AddEdge buffers one edge, flushing when the buffer fills.
func (b *Builder) AddEdge(ctx context.Context, e model.Edge) error {
	if err := b.registry.ValidateEdge(b.profile, e); err != nil {
		b.mu.Lock()
		b.stats.EdgesDropped++
		b.mu.Unlock()
		b.logger.Warn("dropping edge", "kind", e.Kind, "reason", err)
		return nil
	}

	b.mu.Lock()
	b.edges = append(b.edges, e)
	full := len(b.entities)+len(b.edges) >= b.batchSize
	b.mu.Unlock()

	if full {
		return b.Flush(ctx)
	}
	return nil
}

// Flush drains the buffers: entities first (so edge endpoints exist),
// then edges. A failing batch is logged and skipped; the flush
// continues with the remaining batches. Flushing an empty builder is a
// no-op, and flushes are serialized per builder.
func (b *Builder) Flush(ctx context.Context) error {
	b.flushMu.Lock()
	defer b.flushMu.Unlock()

	b.mu.Lock()
	entities := b.entities
	edges := b.edges
	b.entities = nil
	b.edges = nil
	b.mu.Unlock()

	if len(entities) == 0 && len(edges) == 0 {
		return nil
	}

	b.flushEntities(ctx, entities)
	b.flushEdges(ctx, edges)
	return ctx.Err()
}

// flushEntities groups by kind, drops records with incomplete merge
// keys, dedups within the batch, and sends one UNWIND upsert per chunk.
func (b *Builder) flushEntities(ctx context.Context, entities []model.Entity) {
	byKind := make(map[string][]model.Entity)
	for _, e := range entities {
		if _, ok := model.MergeKey(e); !ok {
			b.bumpDroppedEntity()
			b.logger.Warn("dropping entity with incomplete merge key",
				"kind", e.Kind, "properties", e.Properties)
			continue
		}
		byKind[e.Kind] = append(byKind[e.Kind], e)
	}

	for kind, group := range byKind {
		group = dedupeEntities(group)
		query, ok := entityUpsertQuery(kind)
		if !ok {
			b.bumpDroppedEntityN(len(group))
			b.logger.Warn("no merge key registered for kind", "kind", kind)
			continue
		}
		for _, chunk := range chunkEntities(group, b.batching.SizeForKind(kind)) {
			rows := make([]map[string]any, len(chunk))
			for i, e := range chunk {
				rows[i] = entityRow(e)
			}
			if _, err := b.store.ExecuteWrite(ctx, query, map[string]any{"rows": rows}); err != nil {
				b.bumpFailedBatch()
				b.logger.Error("entity batch failed, skipping",
					"kind", kind, "size", len(chunk), "error", err)
				continue
			}
			b.bumpUpsertedEntities(len(chunk))
		}
	}
}

// flushEdges groups compatible edges and sends one UNWIND upsert per
// chunk. Edges whose endpoints carry neither path nor name are dropped.
func (b *Builder) flushEdges(ctx context.Context, edges []model.Edge) {
	grouped := make(map[edgeShape][]model.Edge)
	for _, e := range edges {
		shape, ok := shapeOf(e)
		if !ok {
			b.bumpDroppedEdge()
			b.logger.Warn("dropping edge with unidentifiable endpoint",
				"kind", e.Kind, "from", e.From.Kind, "to", e.To.Kind)
			continue
		}
		grouped[shape] = append(grouped[shape], e)
	}

	for shape, group := range grouped {
		group = dedupeEdges(group)
		query := edgeUpsertQuery(shape)
		for _, chunk := range chunkEdges(group, b.batching.EdgeBatchSize) {
			rows := make([]map[string]any, len(chunk))
			for i, e := range chunk {
				rows[i] = edgeRow(e, shape)
			}
			if _, err := b.store.ExecuteWrite(ctx, query, map[string]any{"rows": rows}); err != nil {
				b.bumpFailedBatch()
				b.logger.Error("edge batch failed, skipping",
					"kind", shape.Kind, "size", len(chunk), "error", err)
				continue
			}
			b.bumpUpsertedEdges(len(chunk))
		}
	}
}

// ClearRepository deletes every node scoped to the repository, detaching
// edges. Role nodes are global and survive.
func (b *Builder) ClearRepository(ctx context.Context, repositoryID string) error {
	_, err := b.store.ExecuteWrite(ctx,
		"MATCH (n) WHERE n.repository = $repository AND NOT n:Role DETACH DELETE n",
		map[string]any{"repository": repositoryID})
	if err != nil {
		return err
	}
	b.logger.Info("repository cleared", "repository", repositoryID)
	return nil
}

// ClearAll wipes the store, Role nodes included.
func (b *Builder) ClearAll(ctx context.Context) error {
	_, err := b.store.ExecuteWrite(ctx, "MATCH (n) DETACH DELETE n", nil)
	if err != nil {
		return err
	}
	b.logger.Info("store wiped")
	return nil
}

// Stats returns a snapshot of the builder's counters.
func (b *Builder) Stats() Stats {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.stats
}

func (b *Builder) bumpDroppedEntity()       { b.mu.Lock(); b.stats.EntitiesDropped++; b.mu.Unlock() }
func (b *Builder) bumpDroppedEntityN(n int) { b.mu.Lock(); b.stats.EntitiesDropped += n; b.mu.Unlock() }
func (b *Builder) bumpDroppedEdge()         { b.mu.Lock(); b.stats.EdgesDropped++; b.mu.Unlock() }
func (b *Builder) bumpFailedBatch()         { b.mu.Lock(); b.stats.BatchesFailed++; b.mu.Unlock() }
func (b *Builder) bumpUpsertedEntities(n int) {
	b.mu.Lock()
	b.stats.EntitiesUpserted += n
	b.mu.Unlock()
}
func (b *Builder) bumpUpsertedEdges(n int) {
	b.mu.Lock()
	b.stats.EdgesUpserted += n
	b.mu.Unlock()
}

func dedupeEntities(entities []model.Entity) []model.Entity {
	seen := make(map[string]int, len(entities))
	out := entities[:0]
	for _, e := range entities {
		key, _ := model.MergeKey(e)
		if idx, ok := seen[key]; ok {
			// Later emission wins per property, matching the store's
			// merge semantics within a single batch.
			for k, v := range e.Properties {
				if v != nil {
					out[idx].Properties[k] = v
				}
			}
			continue
		}
		seen[key] = len(out)
		out = append(out, e)
	}
	return out
}

func dedupeEdges(edges []model.Edge) []model.Edge {
	type triple struct{ from, kind, to string }
	seen := make(map[triple]int, len(edges))
	out := edges[:0]
	for _, e := range edges {
		fk, _ := endpointValue(e.From)
		tk, _ := endpointValue(e.To)
		key := triple{e.From.Kind + "\x1f" + fk, e.Kind, e.To.Kind + "\x1f" + tk}
		if idx, ok := seen[key]; ok {
			for k, v := range e.Properties {
				if v != nil {
					if out[idx].Properties == nil {
						out[idx].Properties = make(map[string]any)
					}
					out[idx].Properties[k] = v
				}
			}
			continue
		}
		seen[key] = len(out)
		out = append(out, e)
	}
	return out
}

func chunkEntities(items []model.Entity, size int) [][]model.Entity {
	if size <= 0 {
		size = 500
	}
	var chunks [][]model.Entity
	for len(items) > size {
		chunks = append(chunks, items[:size])
		items = items[size:]
	}
	if len(items) > 0 {
		chunks = append(chunks, items)
	}
	return chunks
}

func chunkEdges(items []model.Edge, size int) [][]model.Edge {
	if size <= 0 {
		size = 1000
	}
	var chunks [][]model.Edge
	for len(items) > size {
		chunks = append(chunks, items[:size])
		items = items[size:]
	}
	if len(items) > 0 {
		chunks = append(chunks, items)
	}
	return chunks
}
