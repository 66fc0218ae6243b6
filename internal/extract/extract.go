// Package extract defines the extractor plugin surface: a walk over one
// repository that yields typed entity and edge streams tagged with the
// repository id. One implementation per schema profile, registered in a
// lookup table at startup.
package extract

import (
	"context"
	"fmt"
	"sort"

	"github.com/repograph/gateway/internal/model"
)

// Extractor walks a repository root and emits the graph records for one
// schema profile. Both methods are finite: the channels close when the
// walk completes or ctx is cancelled. Parse failures flow out of the
// error channel and reduce the stream; they never abort the run.
type Extractor interface {
	Profile() string
	ExtractEntities(ctx context.Context, root, repositoryID string) (<-chan model.Entity, <-chan error)
	ExtractEdges(ctx context.Context, root, repositoryID string) (<-chan model.Edge, <-chan error)
}

// Registry is the string-keyed extractor lookup table.
type Registry struct {
	extractors map[string]Extractor
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{extractors: make(map[string]Extractor)}
}

// Register adds an extractor under its profile name, replacing any
// previous registration.
func (r *Registry) Register(e Extractor) {
	r.extractors[e.Profile()] = e
}

// Get returns the extractor for a profile.
func (r *Registry) Get(profile string) (Extractor, error) {
	e, ok := r.extractors[profile]
	if !ok {
		return nil, fmt.Errorf("extract: no extractor registered for profile %q", profile)
	}
	return e, nil
}

// Profiles lists the registered profile names, sorted.
func (r *Registry) Profiles() []string {
	names := make([]string, 0, len(r.extractors))
	for name := range r.extractors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
