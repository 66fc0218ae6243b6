// Package ingestion orchestrates one indexing run: detect the repo
// type, pick the matching extractor, stream its entities and edges into
// the graph builder, and flush.
package ingestion

import (
	"context"
	"log/slog"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/repograph/gateway/internal/detect"
	"github.com/repograph/gateway/internal/errors"
	"github.com/repograph/gateway/internal/extract"
	"github.com/repograph/gateway/internal/graph"
	"github.com/repograph/gateway/internal/guard"
)

// Options tunes one pipeline run.
type Options struct {
	// Profile forces a schema profile, bypassing detection.
	Profile string
	// ClearFirst wipes the repository's previous nodes before indexing.
	ClearFirst bool
}

// Report summarizes a completed run.
type Report struct {
	RepositoryID string
	Profile      string
	Confidence   float64
	Indicators   []string
	ParseErrors  int
	Stats        graph.Stats
	Elapsed      time.Duration
}

// Pipeline wires the detector, extractor registry, and builder factory
// together.
type Pipeline struct {
	extractors *extract.Registry
	newBuilder func(profile string) *graph.Builder
	logger     *slog.Logger
}

// NewPipeline creates a pipeline. newBuilder is invoked once per run
// with the resolved profile.
func NewPipeline(extractors *extract.Registry, newBuilder func(profile string) *graph.Builder) *Pipeline {
	return &Pipeline{
		extractors: extractors,
		newBuilder: newBuilder,
		logger:     slog.Default().With("component", "ingestion"),
	}
}

// Run indexes one repository rooted at root under repositoryID.
func (p *Pipeline) Run(ctx context.Context, root, repositoryID string, opts Options) (*Report, error) {
	start := time.Now()

	if err := guard.ValidateRepositoryID(repositoryID); err != nil {
		return nil, err
	}
	info, err := os.Stat(root)
	if err != nil || !info.IsDir() {
		return nil, errors.UserInputErrorf("%q is not a readable directory", root)
	}

	report := &Report{RepositoryID: repositoryID}
	if opts.Profile != "" {
		report.Profile = opts.Profile
		report.Confidence = 1.0
	} else {
		detection := detect.Detect(root)
		report.Profile = detection.Profile
		report.Confidence = detection.Confidence
		report.Indicators = detection.Indicators
	}
	p.logger.Info("starting indexing run",
		"repository", repositoryID,
		"root", root,
		"profile", report.Profile,
		"confidence", report.Confidence)

	extractor, err := p.extractors.Get(report.Profile)
	if err != nil {
		return nil, errors.UserInputErrorf("%v", err)
	}

	builder := p.newBuilder(report.Profile)
	if err := builder.InitializeSchema(ctx); err != nil {
		return nil, err
	}
	if opts.ClearFirst {
		if err := builder.ClearRepository(ctx, repositoryID); err != nil {
			return nil, err
		}
	}

	// Entities land before edges so every endpoint the edge pass
	// matches already exists.
	if err := p.drainEntities(ctx, extractor, builder, root, repositoryID, report); err != nil {
		return nil, err
	}
	if err := builder.Flush(ctx); err != nil {
		return nil, err
	}
	if err := p.drainEdges(ctx, extractor, builder, root, repositoryID, report); err != nil {
		return nil, err
	}
	if err := builder.Flush(ctx); err != nil {
		return nil, err
	}

	report.Stats = builder.Stats()
	report.Elapsed = time.Since(start)
	p.logger.Info("indexing run complete",
		"repository", repositoryID,
		"entities", report.Stats.EntitiesUpserted,
		"edges", report.Stats.EdgesUpserted,
		"parse_errors", report.ParseErrors,
		"elapsed", report.Elapsed)
	return report, nil
}

func (p *Pipeline) drainEntities(ctx context.Context, extractor extract.Extractor, builder *graph.Builder, root, repositoryID string, report *Report) error {
	entities, errs := extractor.ExtractEntities(ctx, root, repositoryID)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		for e := range entities {
			if err := builder.AddEntity(gctx, e); err != nil {
				return err
			}
		}
		return nil
	})
	g.Go(func() error {
		for err := range errs {
			report.ParseErrors++
			p.logger.Warn("parse error", "error", err)
		}
		return nil
	})
	return g.Wait()
}

func (p *Pipeline) drainEdges(ctx context.Context, extractor extract.Extractor, builder *graph.Builder, root, repositoryID string, report *Report) error {
	edges, errs := extractor.ExtractEdges(ctx, root, repositoryID)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		for e := range edges {
			if err := builder.AddEdge(gctx, e); err != nil {
				return err
			}
		}
		return nil
	})
	g.Go(func() error {
		for err := range errs {
			report.ParseErrors++
			p.logger.Warn("parse error", "error", err)
		}
		return nil
	})
	return g.Wait()
}
