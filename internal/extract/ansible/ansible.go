// Package ansible extracts the full automation graph from an Ansible
// repository: playbooks, plays, tasks, handlers, roles, variables,
// Jinja templates, inventories (static and script), and Vagrantfiles.
package ansible

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
)

// Extractor implements the ansible schema profile.
type Extractor struct {
	pool workerpool.Config
}

// New creates the ansible extractor with the given pool width.
func New(pool workerpool.Config) *Extractor {
	return &Extractor{pool: pool}
}

// Profile names the schema profile this extractor feeds.
func (e *Extractor) Profile() string { return "ansible" }

// fileClass is the coarse role a file plays in an Ansible tree.
type fileClass int

const (
	classOther fileClass = iota
	classYAML
	classVars
	classTaskFile
	classHandlerFile
	classRoleMeta
	classGalaxy
	classTemplate
	classPythonScript
	classVagrantfile
	classInventoryINI
)

// classify maps a repo-relative path to its file class. YAML files are
// further classified at parse time (a top-level list with hosts is a
// playbook, a top-level map is a vars file).
func classify(rel string) fileClass {
	base := filepath.Base(rel)
	ext := strings.ToLower(filepath.Ext(rel))
	dir := filepath.ToSlash(filepath.Dir(rel))
	segments := strings.Split(dir, "/")

	switch {
	case base == "Vagrantfile":
		return classVagrantfile
	case ext == ".j2" || ext == ".jinja2":
		return classTemplate
	case ext == ".py":
		return classPythonScript
	case ext == ".ini" || base == "hosts" || base == "inventory":
		return classInventoryINI
	case ext != ".yml" && ext != ".yaml":
		return classOther
	}

	switch {
	case base == "requirements.yml" || base == "requirements.yaml":
		return classGalaxy
	case hasSegment(segments, "group_vars"), hasSegment(segments, "host_vars"),
		hasSegment(segments, "vars"), hasSegment(segments, "defaults"):
		return classVars
	case hasSegment(segments, "meta") && strings.HasPrefix(base, "main."):
		return classRoleMeta
	case hasSegment(segments, "handlers"):
		return classHandlerFile
	case hasSegment(segments, "tasks"):
		return classTaskFile
	default:
		return classYAML
	}
}

func hasSegment(segments []string, want string) bool {
	for _, s := range segments {
		if s == want {
			return true
		}
	}
	return false
}

func acceptAnsible(rel string) bool {
	return classify(rel) != classOther || isTextual(rel)
}

// isTextual keeps plain config/docs in the graph as bare File nodes so
// containment questions still resolve.
func isTextual(rel string) bool {
	switch strings.ToLower(filepath.Ext(rel)) {
	case ".cfg", ".conf", ".md", ".txt", ".sh", ".json", ".toml":
		return true
	}
	return filepath.Base(rel) == "ansible.cfg"
}

// ExtractEntities yields the per-file entity stream.
func (e *Extractor) ExtractEntities(ctx context.Context, root, repositoryID string) (<-chan model.Entity, <-chan error) {
	return extract.StreamEntities(ctx, root, acceptAnsible, e.pool, func(_ context.Context, rel string) extract.FileOutput {
		return extractFile(root, rel, repositoryID)
	})
}

// ExtractEdges yields the per-file edge stream.
func (e *Extractor) ExtractEdges(ctx context.Context, root, repositoryID string) (<-chan model.Edge, <-chan error) {
	return extract.StreamEdges(ctx, root, acceptAnsible, e.pool, func(_ context.Context, rel string) extract.FileOutput {
		return extractFile(root, rel, repositoryID)
	})
}

// extractFile parses one file according to its class. Every file
// contributes at least its File node, even when parsing fails.
func extractFile(root, rel, repositoryID string) extract.FileOutput {
	b := newEmitter(root, rel, repositoryID)
	b.emitFileNode()

	switch classify(rel) {
	case classYAML:
		b.extractTopLevelYAML()
	case classVars:
		b.extractVarsFile()
	case classTaskFile:
		b.extractTaskFile()
	case classHandlerFile:
		b.extractHandlerFile()
	case classRoleMeta:
		b.extractRoleMeta()
	case classGalaxy:
		b.extractGalaxyRequirements()
	case classTemplate:
		b.extractTemplate()
	case classPythonScript:
		b.extractPythonScript()
	case classVagrantfile:
		b.extractVagrantfile()
	case classInventoryINI:
		b.extractStaticInventory()
	}
	return b.out
}

// emitter accumulates one file's output with shared helpers.
type emitter struct {
	root       string
	rel        string
	repository string
	out        extract.FileOutput
}

func newEmitter(root, rel, repositoryID string) *emitter {
	return &emitter{root: root, rel: rel, repository: repositoryID}
}

func (b *emitter) abs() string {
	return filepath.Join(b.root, filepath.FromSlash(b.rel))
}

func (b *emitter) entity(kind string, props map[string]any) {
	b.out.Entities = append(b.out.Entities, model.Entity{Kind: kind, Properties: props})
}

func (b *emitter) edge(kind string, from, to model.Ref, props map[string]any) {
	b.out.Edges = append(b.out.Edges, model.Edge{Kind: kind, From: from, To: to, Properties: props})
}

func (b *emitter) err(err error) {
	b.out.Errs = append(b.out.Errs, err)
}

// ref builds a repo-scoped endpoint reference.
func (b *emitter) ref(kind string, props map[string]any) model.Ref {
	props["repository"] = b.repository
	return model.Ref{Kind: kind, Properties: props}
}

func (b *emitter) fileRef() model.Ref {
	return b.ref("File", map[string]any{"path": b.rel})
}

// emitFileNode records the file itself with a content hash for change
// detection.
func (b *emitter) emitFileNode() {
	props := map[string]any{
		"repository": b.repository,
		"path":       b.rel,
		"language":   languageOf(b.rel),
	}
	if data, err := os.ReadFile(b.abs()); err == nil {
		sum := sha256.Sum256(data)
		props["content_hash"] = hex.EncodeToString(sum[:])
	}
	b.entity("File", props)
}

func languageOf(rel string) string {
	if filepath.Base(rel) == "Vagrantfile" {
		return "ruby"
	}
	switch strings.ToLower(filepath.Ext(rel)) {
	case ".yml", ".yaml":
		return "yaml"
	case ".j2", ".jinja2":
		return "jinja"
	case ".py":
		return "python"
	case ".ini":
		return "ini"
	case ".sh":
		return "shell"
	default:
		return "text"
	}
}
