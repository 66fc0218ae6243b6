package jinjaparser

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const template = `{% extends "base.conf.j2" %}
{% block server %}
server_name {{ server_name }};
listen {{ http_port | default(80) }};
{% include "ssl.conf.j2" %}
{% macro upstream(name) %}{{ name }}{% endmacro %}
{% endblock %}
`

func TestParseTemplate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "site.conf.j2")
	require.NoError(t, os.WriteFile(path, []byte(template), 0o644))

	result := Parse(path)
	require.True(t, result.Success)

	tpl, ok := result.Root.(Template)
	require.True(t, ok)

	assert.Contains(t, tpl.Variables, "server_name")
	assert.Contains(t, tpl.Variables, "http_port")
	assert.Equal(t, []string{"ssl.conf.j2"}, tpl.Includes)
	assert.Equal(t, "base.conf.j2", tpl.Extends)
	assert.Equal(t, []string{"upstream"}, tpl.Macros)
	assert.Equal(t, []string{"server"}, tpl.Blocks)
}

func TestParseMissingFile(t *testing.T) {
	result := Parse(filepath.Join(t.TempDir(), "absent.j2"))
	assert.False(t, result.Success)
	assert.NotEmpty(t, result.Errors)
}
