package pyparser

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeScript(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "script.py")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestParseInventoryScript(t *testing.T) {
	path := writeScript(t, `#!/usr/bin/env python
import json
import sys
from collections import defaultdict

class InventoryBuilder:
    pass

def build_groups():
    return defaultdict(list)

def main():
    if '--list' in sys.argv:
        print(json.dumps({}))
`)
	result := Parse(path)
	require.True(t, result.Success)

	script, ok := result.Root.(Script)
	require.True(t, ok)
	assert.Equal(t, []string{"build_groups", "main"}, script.Functions)
	assert.Equal(t, []string{"InventoryBuilder"}, script.Classes)
	assert.Equal(t, []string{"json", "sys", "collections"}, script.Imports)
	assert.True(t, script.IsInventory)
	assert.Equal(t, true, result.Metadata["is_inventory"])
}

func TestParseListArgvHeuristic(t *testing.T) {
	// No named entrypoint, just bare argv handling.
	path := writeScript(t, `import sys
if sys.argv[1] == '--list':
    print('{}')
`)
	result := Parse(path)
	require.True(t, result.Success)
	script := result.Root.(Script)
	assert.True(t, script.IsInventory)
}

func TestParsePlainScriptIsNotInventory(t *testing.T) {
	path := writeScript(t, `def helper():
    return 1
`)
	result := Parse(path)
	require.True(t, result.Success)
	script := result.Root.(Script)
	assert.False(t, script.IsInventory)
	assert.Equal(t, []string{"helper"}, script.Functions)
}

func TestParseMissingFile(t *testing.T) {
	result := Parse(filepath.Join(t.TempDir(), "missing.py"))
	assert.False(t, result.Success)
	assert.NotEmpty(t, result.Errors)
}
