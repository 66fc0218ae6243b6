package dispatch

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatRowsEmpty(t *testing.T) {
	assert.Equal(t, "No results.", formatRows(nil))
	assert.Equal(t, "No results.", formatRows([]map[string]any{}))
}

func TestFormatRowsSortsKeysAndNumbers(t *testing.T) {
	out := formatRows([]map[string]any{
		{"task": "Install nginx", "file": "tasks/main.yml", "order": int64(0)},
		{"task": "Start nginx", "file": "tasks/main.yml", "order": int64(1)},
	})
	assert.Contains(t, out, "2 result(s):")
	assert.Contains(t, out, "1. file=tasks/main.yml order=0 task=Install nginx")
	assert.Contains(t, out, "2. file=tasks/main.yml order=1 task=Start nginx")
}

func TestFormatValueShapes(t *testing.T) {
	assert.Equal(t, "-", formatValue(nil))
	assert.Equal(t, "plain", formatValue("plain"))
	assert.Equal(t, "[a, b]", formatValue([]any{"a", "b"}))
	assert.Equal(t, "[x, -]", formatValue([]any{"x", nil}))
	assert.Equal(t, "42", formatValue(int64(42)))
}
