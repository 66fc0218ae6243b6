package schema

import "gopkg.in/yaml.v3"

// Profile is a named, declarative schema document describing the node
// and relationship vocabulary one repository type is allowed to
// produce: a description, a set of node kinds with typed properties, a
// set of relationship kinds with endpoint constraints, and the
// index/constraint DDL the store needs.
type Profile struct {
	Name          string             `yaml:"-"`
	Description   string             `yaml:"description"`
	Nodes         []NodeKind         `yaml:"nodes"`
	Relationships []RelationshipKind `yaml:"relationships"`
	Indexes       []IndexSpec        `yaml:"indexes"`
	Constraints   []ConstraintSpec   `yaml:"constraints"`
}

// NodeKind declares one node label and its property contract.
type NodeKind struct {
	Name       string         `yaml:"name"`
	Properties []PropertySpec `yaml:"properties"`
}

// RelationshipKind declares one edge label and the node kinds it may
// connect. "*" in From/To matches any kind name; Matches does not check
// that the kind is declared in the profile.
type RelationshipKind struct {
	Name       string         `yaml:"name"`
	From       KindList       `yaml:"from"`
	To         KindList       `yaml:"to"`
	Properties []PropertySpec `yaml:"properties"`
}

// KindList accepts either a scalar kind name or a sequence of them in
// the profile YAML.
type KindList []string

// UnmarshalYAML implements yaml.Unmarshaler for the scalar-or-list
// endpoint shorthand.
func (k *KindList) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		var single string
		if err := value.Decode(&single); err != nil {
			return err
		}
		*k = KindList{single}
		return nil
	default:
		var many []string
		if err := value.Decode(&many); err != nil {
			return err
		}
		*k = KindList(many)
		return nil
	}
}

// Matches reports whether kind is permitted by this endpoint set.
func (k KindList) Matches(kind string) bool {
	for _, declared := range k {
		if declared == "*" || declared == kind {
			return true
		}
	}
	return false
}

// PropertySpec declares one property's name, type, and whether a
// candidate entity/edge must carry it to validate.
type PropertySpec struct {
	Name     string `yaml:"name"`
	Type     string `yaml:"type"`
	Required bool   `yaml:"required"`
}

// IndexSpec names an index the registry should ensure exists in the
// store.
type IndexSpec struct {
	Label     string   `yaml:"label"`
	Property  string   `yaml:"property"`
	Name      string   `yaml:"name"`
	Composite []string `yaml:"composite,omitempty"`
}

// ConstraintSpec names a uniqueness constraint the registry should
// ensure exists, usually over a node kind's merge-key properties.
type ConstraintSpec struct {
	Label      string   `yaml:"label"`
	Properties []string `yaml:"properties"`
	Name       string   `yaml:"name"`
}
