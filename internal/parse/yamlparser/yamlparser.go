// Package yamlparser implements the real (non-fallback) parser for
// Ansible's YAML surfaces: playbooks, vars files, galaxy requirements,
// and INI-less inventories, using gopkg.in/yaml.v3 exactly as the rest
// of the ambient stack does for config and schema documents.
package yamlparser

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/repograph/gateway/internal/parse"
)

// Parse reads path and decodes it as YAML into a generic node tree. A
// decode failure is returned as a Result with Success=false, never as a
// Go error, so the extractor can fall back to a bare File entity.
func Parse(path string) parse.Result {
	data, err := os.ReadFile(path)
	if err != nil {
		return parse.Failure(fmt.Errorf("yamlparser: read %s: %w", path, err))
	}

	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		return parse.Failure(fmt.Errorf("yamlparser: decode %s: %w", path, err))
	}

	var root any
	if err := node.Decode(&root); err != nil {
		return parse.Failure(fmt.Errorf("yamlparser: decode %s: %w", path, err))
	}

	return parse.Ok(root, map[string]any{
		"path":    path,
		"is_list": isSequence(root),
	})
}

func isSequence(root any) bool {
	_, ok := root.([]any)
	return ok
}

// AsMapSlice normalizes a parsed root to a slice of maps, which is the
// shape playbooks, task lists, and handler lists always take (a top-level
// YAML sequence of mappings). A document that isn't a list is wrapped in
// a single-element slice so callers don't special-case vars files.
func AsMapSlice(root any) []map[string]any {
	switch v := root.(type) {
	case []any:
		out := make([]map[string]any, 0, len(v))
		for _, item := range v {
			if m, ok := item.(map[string]any); ok {
				out = append(out, m)
			}
		}
		return out
	case map[string]any:
		return []map[string]any{v}
	default:
		return nil
	}
}
