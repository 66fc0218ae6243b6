package graph

import (
	"fmt"
	"strings"

	"github.com/repograph/gateway/internal/model"
)

// Kind labels, relationship types, and merge-key field names all come
// from this module's own tables, never from user input, so they may be
// rendered into query text. Every value is bound as a parameter.

func errUnknownProfile(name string) error {
	return fmt.Errorf("graph: unknown profile %q", name)
}

// entityUpsertQuery renders the batched merge-upsert for one kind:
// match-or-create on the composite key, then overlay properties.
func entityUpsertQuery(kind string) (string, bool) {
	fields, ok := model.MergeKeyFields(kind)
	if !ok {
		return "", false
	}
	preds := make([]string, len(fields))
	for i, f := range fields {
		preds[i] = fmt.Sprintf("%s: row.key.%s", f, f)
	}
	return fmt.Sprintf(
		"UNWIND $rows AS row MERGE (n:%s {%s}) SET n += row.props",
		kind, strings.Join(preds, ", ")), true
}

// entityRow splits an entity into its merge-key map and the non-null
// property overlay. Null incoming values never overwrite (a SET += with
// a null would erase the stored property).
func entityRow(e model.Entity) map[string]any {
	fields, _ := model.MergeKeyFields(e.Kind)
	key := make(map[string]any, len(fields))
	for _, f := range fields {
		key[f] = e.Properties[f]
	}
	props := make(map[string]any, len(e.Properties))
	for k, v := range e.Properties {
		if v != nil {
			props[k] = v
		}
	}
	return map[string]any{"key": key, "props": props}
}

// edgeShape is the grouping key for batched edge upserts: edges with
// the same relationship kind, endpoint kinds, and endpoint identity
// fields share one UNWIND query.
type edgeShape struct {
	Kind      string
	FromKind  string
	ToKind    string
	FromField string // "path" or "name"
	ToField   string
}

// shapeOf classifies an edge, reporting false when an endpoint carries
// neither a path nor a name, or a repo-scoped endpoint has no
// repository.
func shapeOf(e model.Edge) (edgeShape, bool) {
	fromField, ok := endpointField(e.From)
	if !ok {
		return edgeShape{}, false
	}
	toField, ok := endpointField(e.To)
	if !ok {
		return edgeShape{}, false
	}
	return edgeShape{
		Kind:      e.Kind,
		FromKind:  e.From.Kind,
		ToKind:    e.To.Kind,
		FromField: fromField,
		ToField:   toField,
	}, true
}

func endpointField(r model.Ref) (string, bool) {
	field := ""
	if v, ok := r.Properties["path"]; ok && v != nil && v != "" {
		field = "path"
	} else if v, ok := r.Properties["name"]; ok && v != nil && v != "" {
		field = "name"
	} else {
		return "", false
	}
	if !model.IsGlobal(r.Kind) {
		if v, ok := r.Properties["repository"]; !ok || v == nil || v == "" {
			return "", false
		}
	}
	return field, true
}

// endpointValue returns the identity value an endpoint matches on.
func endpointValue(r model.Ref) (string, bool) {
	field, ok := endpointField(r)
	if !ok {
		return "", false
	}
	return fmt.Sprintf("%v", r.Properties[field]), true
}

// edgeUpsertQuery renders the batched edge upsert for one shape. Global
// endpoints (Role) match on name alone; everything else also matches
// repository.
func edgeUpsertQuery(s edgeShape) string {
	from := fmt.Sprintf("(a:%s {%s: row.src%s})", s.FromKind, s.FromField, repoPredicate(s.FromKind, "src"))
	to := fmt.Sprintf("(b:%s {%s: row.dst%s})", s.ToKind, s.ToField, repoPredicate(s.ToKind, "dst"))
	return fmt.Sprintf(
		"UNWIND $rows AS row MATCH %s MATCH %s MERGE (a)-[r:%s]->(b) SET r += row.props",
		from, to, s.Kind)
}

func repoPredicate(kind, side string) string {
	if model.IsGlobal(kind) {
		return ""
	}
	return fmt.Sprintf(", repository: row.%s_repository", side)
}

// edgeRow binds one edge's endpoint values and property overlay.
func edgeRow(e model.Edge, s edgeShape) map[string]any {
	row := map[string]any{
		"src": e.From.Properties[s.FromField],
		"dst": e.To.Properties[s.ToField],
	}
	if !model.IsGlobal(e.From.Kind) {
		row["src_repository"] = e.From.Properties["repository"]
	}
	if !model.IsGlobal(e.To.Kind) {
		row["dst_repository"] = e.To.Properties["repository"]
	}
	props := make(map[string]any, len(e.Properties))
	for k, v := range e.Properties {
		if v != nil {
			props[k] = v
		}
	}
	row["props"] = props
	return row
}
