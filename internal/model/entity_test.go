package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMergeKeyComposite(t *testing.T) {
	e := Entity{Kind: "Task", Properties: map[string]any{
		"repository": "infra",
		"file_path":  "tasks/main.yml",
		"name":       "copy config",
		"order":      2,
		"module":     "copy",
	}}
	key, ok := MergeKey(e)
	require.True(t, ok)
	assert.Equal(t, "Task\x1finfra\x1ftasks/main.yml\x1fcopy config\x1f2", key)
}

func TestMergeKeyRejectsMissingComponent(t *testing.T) {
	e := Entity{Kind: "Task", Properties: map[string]any{
		"repository": "infra",
		"file_path":  "tasks/main.yml",
		"name":       "no order",
	}}
	_, ok := MergeKey(e)
	assert.False(t, ok)
}

func TestMergeKeyRejectsEmptyString(t *testing.T) {
	e := Entity{Kind: "File", Properties: map[string]any{
		"repository": "infra",
		"path":       "",
	}}
	_, ok := MergeKey(e)
	assert.False(t, ok)
}

func TestMergeKeyUnknownKind(t *testing.T) {
	_, ok := MergeKey(Entity{Kind: "Widget", Properties: map[string]any{"name": "x"}})
	assert.False(t, ok)
}

func TestRoleIsGlobalAndKeyedByName(t *testing.T) {
	assert.True(t, IsGlobal("Role"))
	assert.False(t, IsGlobal("Task"))

	fields, ok := MergeKeyFields("Role")
	require.True(t, ok)
	assert.Equal(t, []string{"name"}, fields)
}

func TestIdenticalRecordsShareKey(t *testing.T) {
	props := map[string]any{"repository": "infra", "path": "site.yml"}
	a, ok := MergeKey(Entity{Kind: "Playbook", Properties: props})
	require.True(t, ok)
	b, _ := MergeKey(Entity{Kind: "Playbook", Properties: map[string]any{
		"repository": "infra", "path": "site.yml", "name": "site",
	}})
	assert.Equal(t, a, b, "non-key properties never change identity")
}
