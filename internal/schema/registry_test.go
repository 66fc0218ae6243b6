package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/repograph/gateway/internal/model"
)

func TestRegistryLoadsBundledProfiles(t *testing.T) {
	r, err := NewRegistry()
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"ansible", "python", "generic"}, r.Names())

	p, ok := r.Profile("ansible")
	require.True(t, ok)
	assert.NotEmpty(t, p.Nodes)
	assert.NotEmpty(t, p.Relationships)
}

func TestValidateEntityRequiredProperties(t *testing.T) {
	r, err := NewRegistry()
	require.NoError(t, err)

	ok := model.Entity{Kind: "Task", Properties: map[string]any{
		"repository": "infra", "file_path": "tasks/main.yml", "name": "copy", "order": 0,
	}}
	assert.NoError(t, r.ValidateEntity("ansible", ok))

	missing := model.Entity{Kind: "Task", Properties: map[string]any{
		"repository": "infra", "file_path": "tasks/main.yml",
	}}
	assert.Error(t, r.ValidateEntity("ansible", missing))

	unknown := model.Entity{Kind: "Widget", Properties: map[string]any{"repository": "infra"}}
	assert.Error(t, r.ValidateEntity("ansible", unknown))
}

func TestRoleIsGlobalAcrossProfiles(t *testing.T) {
	r, err := NewRegistry()
	require.NoError(t, err)

	role := model.Entity{Kind: "Role", Properties: map[string]any{"name": "common"}}
	assert.NoError(t, r.ValidateEntity("ansible", role))
	assert.NoError(t, r.ValidateEntity("generic", role), "global kinds validate in any profile")
}

func TestValidateEdgeEndpointSets(t *testing.T) {
	r, err := NewRegistry()
	require.NoError(t, err)

	usesRole := model.Edge{
		Kind: "USES_ROLE",
		From: model.Ref{Kind: "Play"},
		To:   model.Ref{Kind: "Role"},
	}
	assert.NoError(t, r.ValidateEdge("ansible", usesRole))

	reversed := model.Edge{
		Kind: "USES_ROLE",
		From: model.Ref{Kind: "Role"},
		To:   model.Ref{Kind: "Play"},
	}
	assert.Error(t, r.ValidateEdge("ansible", reversed))

	wildcard := model.Edge{
		Kind: "IN_FILE",
		From: model.Ref{Kind: "Template"},
		To:   model.Ref{Kind: "File"},
	}
	assert.NoError(t, r.ValidateEdge("ansible", wildcard))
}

func TestProfileDDLIsIdempotent(t *testing.T) {
	r, err := NewRegistry()
	require.NoError(t, err)
	p, _ := r.Profile("ansible")

	stmts := p.DDL()
	require.NotEmpty(t, stmts)
	for _, s := range stmts {
		assert.Contains(t, s, "IF NOT EXISTS")
	}
}
