// Package generic is the fallback extractor: file and directory
// enumeration with content hashes and containment edges, for
// repositories no richer profile claims.
package generic

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/repograph/gateway/internal/extract"
	"github.com/repograph/gateway/internal/extract/workerpool"
	"github.com/repograph/gateway/internal/model"
)

// Extractor emits File and Directory nodes and CONTAINS edges.
type Extractor struct {
	pool workerpool.Config
}

// New creates the generic extractor with the given pool width.
func New(pool workerpool.Config) *Extractor {
	return &Extractor{pool: pool}
}

// Profile names the schema profile this extractor feeds.
func (e *Extractor) Profile() string { return "generic" }

// languageByExtension tags files with a coarse language label.
var languageByExtension = map[string]string{
	".go":   "go",
	".py":   "python",
	".js":   "javascript",
	".ts":   "typescript",
	".rb":   "ruby",
	".java": "java",
	".c":    "c",
	".h":    "c",
	".cpp":  "cpp",
	".rs":   "rust",
	".sh":   "shell",
	".yml":  "yaml",
	".yaml": "yaml",
	".json": "json",
	".toml": "toml",
	".ini":  "ini",
	".md":   "markdown",
	".sql":  "sql",
	".j2":   "jinja",
	".html": "html",
	".css":  "css",
}

// ExtractEntities yields one Directory node per surviving directory and
// one File node per file, each with a sha-256 content hash.
func (e *Extractor) ExtractEntities(ctx context.Context, root, repositoryID string) (<-chan model.Entity, <-chan error) {
	entities := make(chan model.Entity, 128)
	errs := make(chan error, 16)

	fileEntities, fileErrs := extract.StreamEntities(ctx, root, nil, e.pool, func(_ context.Context, rel string) extract.FileOutput {
		return e.fileEntity(root, rel, repositoryID)
	})

	go func() {
		defer close(entities)
		defer close(errs)
		for dir := range extract.WalkDirs(ctx, root) {
			select {
			case entities <- model.Entity{Kind: "Directory", Properties: map[string]any{
				"repository": repositoryID,
				"path":       dir,
			}}:
			case <-ctx.Done():
				return
			}
		}
		for ent := range fileEntities {
			select {
			case entities <- ent:
			case <-ctx.Done():
				return
			}
		}
		for err := range fileErrs {
			select {
			case errs <- err:
			default:
			}
		}
	}()
	return entities, errs
}

func (e *Extractor) fileEntity(root, rel, repositoryID string) extract.FileOutput {
	props := map[string]any{
		"repository": repositoryID,
		"path":       rel,
	}
	if lang, ok := languageByExtension[strings.ToLower(filepath.Ext(rel))]; ok {
		props["language"] = lang
	}
	data, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(rel)))
	if err != nil {
		return extract.FileOutput{
			Entities: []model.Entity{{Kind: "File", Properties: props}},
			Errs:     []error{fmt.Errorf("generic: read %s: %w", rel, err)},
		}
	}
	sum := sha256.Sum256(data)
	props["content_hash"] = hex.EncodeToString(sum[:])
	return extract.FileOutput{Entities: []model.Entity{{Kind: "File", Properties: props}}}
}

// ExtractEdges yields CONTAINS edges parent directory → child.
func (e *Extractor) ExtractEdges(ctx context.Context, root, repositoryID string) (<-chan model.Edge, <-chan error) {
	edges := make(chan model.Edge, 128)
	errs := make(chan error, 1)
	go func() {
		defer close(edges)
		defer close(errs)

		emit := func(edge model.Edge) bool {
			select {
			case edges <- edge:
				return true
			case <-ctx.Done():
				return false
			}
		}

		for dir := range extract.WalkDirs(ctx, root) {
			if parent := parentDir(dir); parent != "" {
				if !emit(containsEdge(repositoryID, parent, "Directory", dir)) {
					return
				}
			}
		}
		for file := range extract.Walk(ctx, root, nil) {
			if parent := parentDir(file); parent != "" {
				if !emit(containsEdge(repositoryID, parent, "File", file)) {
					return
				}
			}
		}
	}()
	return edges, errs
}

func parentDir(rel string) string {
	parent := filepath.ToSlash(filepath.Dir(rel))
	if parent == "." || parent == "/" {
		return ""
	}
	return parent
}

func containsEdge(repositoryID, parent, childKind, child string) model.Edge {
	return model.Edge{
		Kind: "CONTAINS",
		From: model.Ref{Kind: "Directory", Properties: map[string]any{
			"repository": repositoryID, "path": parent,
		}},
		To: model.Ref{Kind: childKind, Properties: map[string]any{
			"repository": repositoryID, "path": child,
		}},
	}
}
