// Package python extracts the module/class/function graph from Python
// source trees using the tree-sitter grammar.
package python

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"strings"

	"github.com/repograph/gateway/internal/extract"
	"github.com/repograph/gateway/internal/extract/workerpool"
	"github.com/repograph/gateway/internal/model"
	"github.com/repograph/gateway/internal/treesitter"
)

// Extractor walks .py files and emits Module, Class, Function, and
// Import entities plus the definition and import edges between them.
type Extractor struct {
	pool workerpool.Config
}

// New creates the python extractor with the given pool width.
func New(pool workerpool.Config) *Extractor {
	return &Extractor{pool: pool}
}

// Profile names the schema profile this extractor feeds.
func (e *Extractor) Profile() string { return "python" }

func acceptPython(rel string) bool {
	switch strings.ToLower(filepath.Ext(rel)) {
	case ".py", ".pyi", ".pyw":
		return true
	}
	return false
}

// ExtractEntities yields the per-file entity stream.
func (e *Extractor) ExtractEntities(ctx context.Context, root, repositoryID string) (<-chan model.Entity, <-chan error) {
	return extract.StreamEntities(ctx, root, acceptPython, e.pool, func(_ context.Context, rel string) extract.FileOutput {
		return extractFile(root, rel, repositoryID)
	})
}

// ExtractEdges yields the per-file edge stream.
func (e *Extractor) ExtractEdges(ctx context.Context, root, repositoryID string) (<-chan model.Edge, <-chan error) {
	return extract.StreamEdges(ctx, root, acceptPython, e.pool, func(_ context.Context, rel string) extract.FileOutput {
		return extractFile(root, rel, repositoryID)
	})
}

// moduleName derives the dotted module path from a repo-relative file
// path: pkg/sub/mod.py → pkg.sub.mod, pkg/__init__.py → pkg.
func moduleName(rel string) string {
	trimmed := strings.TrimSuffix(rel, filepath.Ext(rel))
	trimmed = strings.TrimSuffix(trimmed, "/__init__")
	return strings.ReplaceAll(trimmed, "/", ".")
}

func extractFile(root, rel, repositoryID string) extract.FileOutput {
	var out extract.FileOutput

	fileProps := map[string]any{
		"repository": repositoryID,
		"path":       rel,
		"language":   "python",
	}
	if data, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(rel))); err == nil {
		sum := sha256.Sum256(data)
		fileProps["content_hash"] = hex.EncodeToString(sum[:])
	}
	out.Entities = append(out.Entities, model.Entity{Kind: "File", Properties: fileProps})

	parser, err := treesitter.NewParser()
	if err != nil {
		out.Errs = append(out.Errs, err)
		return out
	}
	defer parser.Close()

	result := parser.ParseFile(filepath.Join(root, filepath.FromSlash(rel)))
	if result.Err != nil {
		// A file that fails to parse still contributes its File node.
		out.Errs = append(out.Errs, result.Err)
		return out
	}

	modRef := model.Ref{Kind: "Module", Properties: map[string]any{
		"repository": repositoryID, "path": rel,
	}}
	out.Entities = append(out.Entities, model.Entity{Kind: "Module", Properties: map[string]any{
		"repository": repositoryID,
		"path":       rel,
		"name":       moduleName(rel),
	}})
	out.Edges = append(out.Edges, model.Edge{
		Kind: "IN_FILE",
		From: modRef,
		To:   model.Ref{Kind: "File", Properties: map[string]any{"repository": repositoryID, "path": rel}},
	})

	for _, ent := range result.Entities {
		switch ent.Type {
		case "class":
			out.Entities = append(out.Entities, classEntity(ent, rel, repositoryID))
			out.Edges = append(out.Edges, model.Edge{
				Kind: "DEFINES_CLASS",
				From: modRef,
				To: model.Ref{Kind: "Class", Properties: map[string]any{
					"repository": repositoryID, "name": ent.Name,
				}},
			})
			for _, base := range ent.Bases {
				out.Edges = append(out.Edges, model.Edge{
					Kind: "INHERITS",
					From: model.Ref{Kind: "Class", Properties: map[string]any{
						"repository": repositoryID, "name": ent.Name,
					}},
					To: model.Ref{Kind: "Class", Properties: map[string]any{
						"repository": repositoryID, "name": base,
					}},
				})
			}
			for _, dec := range ent.Decorators {
				out.Edges = append(out.Edges, model.Edge{
					Kind: "DECORATED_BY",
					From: model.Ref{Kind: "Class", Properties: map[string]any{
						"repository": repositoryID, "name": ent.Name,
					}},
					To: model.Ref{Kind: "Function", Properties: map[string]any{
						"repository": repositoryID, "name": decoratorName(dec),
					}},
				})
			}
		case "function":
			out.Entities = append(out.Entities, functionEntity(ent, rel, repositoryID))
			if ent.ClassName != "" {
				out.Edges = append(out.Edges, model.Edge{
					Kind: "HAS_METHOD",
					From: model.Ref{Kind: "Class", Properties: map[string]any{
						"repository": repositoryID, "name": ent.ClassName,
					}},
					To: model.Ref{Kind: "Function", Properties: map[string]any{
						"repository": repositoryID, "name": functionName(ent),
					}},
				})
			} else {
				out.Edges = append(out.Edges, model.Edge{
					Kind: "DEFINES_FUNCTION",
					From: modRef,
					To: model.Ref{Kind: "Function", Properties: map[string]any{
						"repository": repositoryID, "name": functionName(ent),
					}},
				})
			}
			for _, dec := range ent.Decorators {
				out.Edges = append(out.Edges, model.Edge{
					Kind: "DECORATED_BY",
					From: model.Ref{Kind: "Function", Properties: map[string]any{
						"repository": repositoryID, "name": functionName(ent),
					}},
					To: model.Ref{Kind: "Function", Properties: map[string]any{
						"repository": repositoryID, "name": decoratorName(dec),
					}},
				})
			}
		case "import", "from_import":
			imp := model.Entity{Kind: "Import", Properties: map[string]any{
				"repository": repositoryID,
				"module":     ent.Module,
				"alias":      importAlias(ent),
				"name":       ent.Module,
			}}
			out.Entities = append(out.Entities, imp)
			kind := "IMPORTS"
			if ent.Type == "from_import" {
				kind = "FROM_IMPORTS"
			}
			out.Edges = append(out.Edges, model.Edge{
				Kind: kind,
				From: modRef,
				To: model.Ref{Kind: "Import", Properties: map[string]any{
					"repository": repositoryID, "name": ent.Module,
				}},
				Properties: map[string]any{"imported": ent.Name},
			})
		}
	}
	return out
}

func classEntity(ent treesitter.PyEntity, rel, repositoryID string) model.Entity {
	props := map[string]any{
		"repository":  repositoryID,
		"module_path": rel,
		"name":        ent.Name,
		"is_abstract": ent.IsAbstract(),
		"start_line":  ent.StartLine,
		"end_line":    ent.EndLine,
	}
	if len(ent.Bases) > 0 {
		props["bases"] = ent.Bases
	}
	if len(ent.Decorators) > 0 {
		props["decorators"] = ent.Decorators
	}
	if ent.Docstring != "" {
		props["docstring"] = ent.Docstring
	}
	return model.Entity{Kind: "Class", Properties: props}
}

// functionName qualifies methods with their class, keeping the
// (repository, name) merge key collision-free across classes.
func functionName(ent treesitter.PyEntity) string {
	if ent.ClassName != "" {
		return ent.ClassName + "." + ent.Name
	}
	return ent.Name
}

func functionEntity(ent treesitter.PyEntity, rel, repositoryID string) model.Entity {
	props := map[string]any{
		"repository":  repositoryID,
		"name":        functionName(ent),
		"module_path": rel,
		"is_async":    ent.IsAsync,
		"start_line":  ent.StartLine,
		"end_line":    ent.EndLine,
	}
	if len(ent.Decorators) > 0 {
		props["decorators"] = ent.Decorators
	}
	if ent.Docstring != "" {
		props["docstring"] = ent.Docstring
	}
	return model.Entity{Kind: "Function", Properties: props}
}

// importAlias resolves the name the import binds in the module's
// namespace, which keeps the Import merge key total: "import x as y"
// binds y, "import a.b" binds a, "from m import c" binds c.
func importAlias(ent treesitter.PyEntity) string {
	if ent.Alias != "" {
		return ent.Alias
	}
	if ent.Type == "from_import" && ent.Name != "" {
		return ent.Name
	}
	if i := strings.IndexByte(ent.Module, '.'); i > 0 {
		return ent.Module[:i]
	}
	return ent.Module
}

// decoratorName strips call arguments: @lru_cache(maxsize=1) decorates
// with lru_cache.
func decoratorName(dec string) string {
	if i := strings.IndexByte(dec, '('); i > 0 {
		return dec[:i]
	}
	return dec
}
