package treesitter

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = `"""Module docstring."""
import os
import numpy as np
from collections import OrderedDict, defaultdict

from abc import ABC


class BaseHandler(ABC):
    """Handles things."""

    def handle(self, item):
        return item


@dataclass
class Config(BaseHandler):
    pass


def main():
    """Entry point."""
    return 0


async def poll():
    pass
`

func parseSample(t *testing.T) []PyEntity {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sample.py")
	require.NoError(t, os.WriteFile(path, []byte(sample), 0o644))

	p, err := NewParser()
	require.NoError(t, err)
	defer p.Close()

	result := p.ParseFile(path)
	require.NoError(t, result.Err)
	return result.Entities
}

func byName(entities []PyEntity, typ, name string) *PyEntity {
	for i := range entities {
		if entities[i].Type == typ && entities[i].Name == name {
			return &entities[i]
		}
	}
	return nil
}

func TestParseClasses(t *testing.T) {
	entities := parseSample(t)

	base := byName(entities, "class", "BaseHandler")
	require.NotNil(t, base)
	assert.Equal(t, []string{"ABC"}, base.Bases)
	assert.True(t, base.IsAbstract())
	assert.Equal(t, "Handles things.", base.Docstring)

	config := byName(entities, "class", "Config")
	require.NotNil(t, config)
	assert.Equal(t, []string{"BaseHandler"}, config.Bases)
	assert.Contains(t, config.Decorators, "dataclass")
	assert.False(t, config.IsAbstract())
}

func TestParseFunctionsAndMethods(t *testing.T) {
	entities := parseSample(t)

	handle := byName(entities, "function", "handle")
	require.NotNil(t, handle)
	assert.Equal(t, "BaseHandler", handle.ClassName)

	main := byName(entities, "function", "main")
	require.NotNil(t, main)
	assert.Empty(t, main.ClassName)
	assert.Equal(t, "Entry point.", main.Docstring)

	poll := byName(entities, "function", "poll")
	require.NotNil(t, poll)
	assert.True(t, poll.IsAsync)
}

func TestParseImports(t *testing.T) {
	entities := parseSample(t)

	osImp := byName(entities, "import", "os")
	require.NotNil(t, osImp)
	assert.Empty(t, osImp.Alias)

	np := byName(entities, "import", "numpy")
	require.NotNil(t, np)
	assert.Equal(t, "np", np.Alias)

	od := byName(entities, "from_import", "OrderedDict")
	require.NotNil(t, od)
	assert.Equal(t, "collections", od.Module)
}

func TestParseMissingFileCarriesError(t *testing.T) {
	p, err := NewParser()
	require.NoError(t, err)
	defer p.Close()

	result := p.ParseFile(filepath.Join(t.TempDir(), "absent.py"))
	assert.Error(t, result.Err)
	assert.Empty(t, result.Entities)
}
