package yamlparser

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestParsePlaybook(t *testing.T) {
	path := writeFile(t, "site.yml", `
- name: Configure webservers
  hosts: webservers
  tasks:
    - name: Install nginx
      apt: {name: nginx}
`)
	result := Parse(path)
	require.True(t, result.Success)
	assert.Equal(t, true, result.Metadata["is_list"])

	plays := AsMapSlice(result.Root)
	require.Len(t, plays, 1)
	assert.Equal(t, "Configure webservers", plays[0]["name"])
	assert.Equal(t, "webservers", plays[0]["hosts"])
}

func TestParseVarsFile(t *testing.T) {
	path := writeFile(t, "common.yml", "http_port: 8080\nserver_name: web\n")
	result := Parse(path)
	require.True(t, result.Success)
	assert.Equal(t, false, result.Metadata["is_list"])

	docs := AsMapSlice(result.Root)
	require.Len(t, docs, 1, "a mapping document wraps into a one-element slice")
	assert.Equal(t, 8080, docs[0]["http_port"])
}

func TestParseInvalidYAML(t *testing.T) {
	path := writeFile(t, "broken.yml", "key: [unclosed\n  nested: {\n")
	result := Parse(path)
	assert.False(t, result.Success)
	assert.NotEmpty(t, result.Errors)
	assert.Nil(t, result.Root)
}

func TestParseMissingFile(t *testing.T) {
	result := Parse(filepath.Join(t.TempDir(), "missing.yml"))
	assert.False(t, result.Success)
	assert.NotEmpty(t, result.Errors)
}

func TestAsMapSliceSkipsNonMappings(t *testing.T) {
	assert.Nil(t, AsMapSlice("scalar"))
	assert.Empty(t, AsMapSlice([]any{"just", "strings"}))
}
