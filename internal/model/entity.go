// Package model defines the labeled-property-graph primitives shared by
// the schema registry, parsers, extractors, and graph builder: nodes with
// one primary kind label, edges with one kind label, and the composite
// merge-key rules that make re-indexing the same repository idempotent.
package model

import "fmt"

// Entity is a candidate node: one kind label plus its properties. Every
// entity except Role carries a "repository" property.
type Entity struct {
	Kind       string
	Properties map[string]any
}

// Ref identifies the entity an edge endpoint points at, by the subset of
// properties needed to resolve its merge key (repository+path, or bare
// name for the global Role kind).
type Ref struct {
	Kind       string
	Properties map[string]any
}

// Edge is a candidate relationship: one kind label, a From/To endpoint
// reference, and optional properties.
type Edge struct {
	Kind       string
	From       Ref
	To         Ref
	Properties map[string]any
}

// MergeKeyFields returns the ordered property names that compose the
// identity of a node kind, per the composite merge-key table.
// Role is the one kind scoped globally (name only, no repository).
func MergeKeyFields(kind string) ([]string, bool) {
	fields, ok := nodeMergeKeys[kind]
	return fields, ok
}

var nodeMergeKeys = map[string][]string{
	"File":      {"repository", "path"},
	"Playbook":  {"repository", "path"},
	"Template":  {"repository", "path"},
	"Inventory": {"repository", "path"},
	"VarsFile":  {"repository", "path"},
	"Directory": {"repository", "path"},
	"Module":    {"repository", "path"},
	"Play":      {"repository", "playbook_path", "name", "order"},
	"Task":      {"repository", "file_path", "name", "order"},
	"Handler":   {"repository", "file_path", "name"},
	"Variable":  {"repository", "name", "scope", "file_path"},
	"Class":     {"repository", "module_path", "name"},
	"Function":  {"repository", "name"},
	"Import":    {"repository", "module", "alias"},
	"Role":      {"name"},
}

// IsGlobal reports whether a node kind is deduplicated process-wide
// rather than scoped to one repository. Only Role is global, so it
// survives a repository clear.
func IsGlobal(kind string) bool {
	return kind == "Role"
}

// MergeKey computes the opaque identity string used to MERGE a node: the
// kind followed by its key field values in MergeKeyFields order, joined
// with a separator unlikely to appear in any field value. Missing fields
// are reported via the second return so callers can drop the entity with
// a warning instead of merging on a partial key.
func MergeKey(e Entity) (string, bool) {
	fields, ok := MergeKeyFields(e.Kind)
	if !ok {
		return "", false
	}
	parts := make([]string, 0, len(fields)+1)
	parts = append(parts, e.Kind)
	for _, f := range fields {
		v, ok := e.Properties[f]
		if !ok || v == nil || v == "" {
			return "", false
		}
		parts = append(parts, fmt.Sprintf("%v", v))
	}
	key := parts[0]
	for _, p := range parts[1:] {
		key += "\x1f" + p
	}
	return key, true
}

// RefKey computes the same identity string for an edge endpoint
// reference, used by the Builder to resolve From/To during edge flush.
func RefKey(r Ref) (string, bool) {
	return MergeKey(Entity{Kind: r.Kind, Properties: r.Properties})
}
