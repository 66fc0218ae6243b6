// Package dispatch is the tool surface agents call through the RPC
// channel: a registry of schema-described tools, per-session repository
// context, and the guard wrapping around every invocation.
package dispatch

import (
	"context"
	"fmt"
	"sort"

	"github.com/repograph/gateway/internal/errors"
)

// ParamSpec describes one tool argument.
type ParamSpec struct {
	Type        string `json:"type"`
	Description string `json:"description"`
	Required    bool   `json:"required"`
}

// ToolSchema is the declared contract of one tool: a name, a
// description, and an input object schema. Output is always formatted
// text.
type ToolSchema struct {
	Name        string               `json:"name"`
	Description string               `json:"description"`
	Params      map[string]ParamSpec `json:"params"`
}

// Tool is one named capability.
type Tool interface {
	Schema() ToolSchema
	Execute(ctx context.Context, sess *Session, args map[string]any) (string, error)
}

// ValidateArgs checks an argument map against the schema: required
// params present, declared types respected, no unknown keys.
func ValidateArgs(schema ToolSchema, args map[string]any) error {
	for name, spec := range schema.Params {
		v, ok := args[name]
		if !ok || v == nil {
			if spec.Required {
				return errors.UserInputErrorf("Missing required argument %q", name)
			}
			continue
		}
		switch spec.Type {
		case "string":
			if _, ok := v.(string); !ok {
				return errors.UserInputErrorf("Argument %q must be a string", name)
			}
		case "boolean":
			if _, ok := v.(bool); !ok {
				return errors.UserInputErrorf("Argument %q must be a boolean", name)
			}
		}
	}
	for name := range args {
		if _, ok := schema.Params[name]; !ok {
			return errors.UserInputErrorf("Unknown argument %q", name)
		}
	}
	return nil
}

// stringArg fetches an optional string argument.
func stringArg(args map[string]any, name string) string {
	s, _ := args[name].(string)
	return s
}

// boolArg fetches an optional boolean argument.
func boolArg(args map[string]any, name string) bool {
	b, _ := args[name].(bool)
	return b
}

// requireRepository resolves the active repository for a repo-scoped
// tool: the explicit argument wins, then the session context.
func requireRepository(sess *Session, explicit string) (string, error) {
	if explicit != "" {
		return explicit, nil
	}
	if sess != nil && sess.RepositoryID != "" {
		return sess.RepositoryID, nil
	}
	return "", errors.UserInputError(
		"No repository context is set; call set_repository_context first or pass repository_id")
}

// sortedToolNames renders a registry's names for fallback advice.
func sortedToolNames(tools map[string]Tool, deterministicOnly bool) []string {
	names := make([]string, 0, len(tools))
	for name, tool := range tools {
		if deterministicOnly {
			if _, ok := tool.(deterministicTool); !ok {
				continue
			}
		}
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// deterministicTool marks tools whose query is a fixed template needing
// no LLM translation; they stay available when the generation circuit
// is open.
type deterministicTool interface {
	Deterministic()
}

func describeTools(names []string) string {
	if len(names) == 0 {
		return ""
	}
	return fmt.Sprintf(" Deterministic tools remain available: %v.", names)
}
