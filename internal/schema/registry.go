package schema

import (
	"embed"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/repograph/gateway/internal/model"
)

//go:embed profiles/*.yaml
var embeddedProfiles embed.FS

// globalKinds are node kinds that exist outside any one profile's
// repository scope. Role is deduplicated process-wide.
var globalKinds = map[string]bool{"Role": true}

// Registry loads and serves the declarative schema profiles.
type Registry struct {
	profiles map[string]*Profile
}

// NewRegistry loads the three bundled profiles from the embedded
// filesystem, so the binary carries its schema vocabulary with it.
func NewRegistry() (*Registry, error) {
	r := &Registry{profiles: make(map[string]*Profile)}
	entries, err := embeddedProfiles.ReadDir("profiles")
	if err != nil {
		return nil, fmt.Errorf("schema: reading embedded profiles: %w", err)
	}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".yaml") {
			continue
		}
		name := strings.TrimSuffix(entry.Name(), ".yaml")
		data, err := embeddedProfiles.ReadFile("profiles/" + entry.Name())
		if err != nil {
			return nil, fmt.Errorf("schema: reading profile %s: %w", name, err)
		}
		var p Profile
		if err := yaml.Unmarshal(data, &p); err != nil {
			return nil, fmt.Errorf("schema: parsing profile %s: %w", name, err)
		}
		p.Name = name
		r.profiles[name] = &p
	}
	return r, nil
}

// Profile returns the named profile, or false if it is not registered.
func (r *Registry) Profile(name string) (*Profile, bool) {
	p, ok := r.profiles[name]
	return p, ok
}

// Names returns every registered profile name.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.profiles))
	for name := range r.profiles {
		names = append(names, name)
	}
	return names
}

// GlobalKinds returns the node kinds that are never repository-scoped.
func (r *Registry) GlobalKinds() map[string]bool {
	return globalKinds
}

// ValidateEntity checks a candidate entity against a profile: the kind
// must be declared (or be a global kind), and every required property
// must be present and non-null.
func (r *Registry) ValidateEntity(profileName string, e model.Entity) error {
	p, ok := r.profiles[profileName]
	if !ok {
		return fmt.Errorf("schema: unknown profile %q", profileName)
	}
	var decl *NodeKind
	for i := range p.Nodes {
		if p.Nodes[i].Name == e.Kind {
			decl = &p.Nodes[i]
			break
		}
	}
	if decl == nil {
		if globalKinds[e.Kind] {
			return nil
		}
		return fmt.Errorf("schema: node kind %q not declared in profile %q", e.Kind, profileName)
	}
	for _, prop := range decl.Properties {
		if !prop.Required {
			continue
		}
		v, ok := e.Properties[prop.Name]
		if !ok || v == nil || v == "" {
			return fmt.Errorf("schema: %s is missing required property %q", e.Kind, prop.Name)
		}
	}
	return nil
}

// ValidateEdge checks a candidate edge's kind and endpoint kinds against
// a profile's declared relationship vocabulary, honoring "*" wildcards
// on either endpoint.
func (r *Registry) ValidateEdge(profileName string, e model.Edge) error {
	p, ok := r.profiles[profileName]
	if !ok {
		return fmt.Errorf("schema: unknown profile %q", profileName)
	}
	for _, rel := range p.Relationships {
		if rel.Name != e.Kind {
			continue
		}
		if !rel.From.Matches(e.From.Kind) {
			continue
		}
		if !rel.To.Matches(e.To.Kind) {
			continue
		}
		return nil
	}
	return fmt.Errorf("schema: relationship %q (%s -> %s) not declared in profile %q", e.Kind, e.From.Kind, e.To.Kind, profileName)
}

// NodeLabels returns every node kind declared by a profile plus the
// registry's global kinds, for schema-initialization DDL generation.
func (r *Registry) NodeLabels(profileName string) ([]string, error) {
	p, ok := r.profiles[profileName]
	if !ok {
		return nil, fmt.Errorf("schema: unknown profile %q", profileName)
	}
	labels := make([]string, 0, len(p.Nodes)+len(globalKinds))
	for _, n := range p.Nodes {
		labels = append(labels, n.Name)
	}
	for k := range globalKinds {
		labels = append(labels, k)
	}
	return labels, nil
}

// RelationshipTypes returns every relationship kind declared by a
// profile.
func (r *Registry) RelationshipTypes(profileName string) ([]string, error) {
	p, ok := r.profiles[profileName]
	if !ok {
		return nil, fmt.Errorf("schema: unknown profile %q", profileName)
	}
	types := make([]string, 0, len(p.Relationships))
	for _, rel := range p.Relationships {
		types = append(types, rel.Name)
	}
	return types, nil
}

// DDL renders the CREATE INDEX / CREATE CONSTRAINT statements a profile
// declares, in the IF NOT EXISTS form so schema initialization stays
// idempotent across re-runs.
func (p *Profile) DDL() []string {
	stmts := make([]string, 0, len(p.Indexes)+len(p.Constraints))
	for _, idx := range p.Indexes {
		props := idx.Composite
		if len(props) == 0 {
			props = []string{idx.Property}
		}
		rendered := make([]string, len(props))
		for i, prop := range props {
			rendered[i] = "n." + prop
		}
		stmts = append(stmts, fmt.Sprintf(
			"CREATE INDEX %s IF NOT EXISTS FOR (n:%s) ON (%s)",
			idx.Name, idx.Label, strings.Join(rendered, ", ")))
	}
	for _, c := range p.Constraints {
		props := make([]string, len(c.Properties))
		for i, prop := range c.Properties {
			props[i] = "n." + prop
		}
		stmts = append(stmts, fmt.Sprintf(
			"CREATE CONSTRAINT %s IF NOT EXISTS FOR (n:%s) REQUIRE (%s) IS UNIQUE",
			c.Name, c.Label, strings.Join(props, ", ")))
	}
	return stmts
}
