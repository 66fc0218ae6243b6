package generic

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/repograph/gateway/internal/extract/workerpool"
	"github.com/repograph/gateway/internal/model"
)

func fixture(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "src", "util"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(root, ".git"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "README.md"), []byte("# demo\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "src", "main.go"), []byte("package main\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "src", "util", "x.py"), []byte("x = 1\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, ".git", "config"), []byte("ignored"), 0o644))
	return root
}

func TestGenericEntities(t *testing.T) {
	root := fixture(t)
	e := New(workerpool.DefaultConfig())

	var files, dirs []model.Entity
	ents, errs := e.ExtractEntities(context.Background(), root, "demo")
	for ent := range ents {
		switch ent.Kind {
		case "File":
			files = append(files, ent)
		case "Directory":
			dirs = append(dirs, ent)
		}
	}
	for err := range errs {
		t.Logf("error: %v", err)
	}

	assert.Len(t, files, 3, ".git contents are never indexed")
	assert.Len(t, dirs, 2)

	for _, f := range files {
		assert.Equal(t, "demo", f.Properties["repository"])
		assert.NotEmpty(t, f.Properties["content_hash"], "every file carries a sha-256 hash")
	}

	var gofile *model.Entity
	for i := range files {
		if files[i].Properties["path"] == "src/main.go" {
			gofile = &files[i]
		}
	}
	require.NotNil(t, gofile)
	assert.Equal(t, "go", gofile.Properties["language"])
}

func TestGenericContainsEdges(t *testing.T) {
	root := fixture(t)
	e := New(workerpool.DefaultConfig())

	var edges []model.Edge
	eds, _ := e.ExtractEdges(context.Background(), root, "demo")
	for edge := range eds {
		edges = append(edges, edge)
	}

	found := false
	for _, edge := range edges {
		if edge.Kind == "CONTAINS" &&
			edge.From.Properties["path"] == "src" &&
			edge.To.Properties["path"] == "src/util" {
			found = true
		}
	}
	assert.True(t, found, "parent directory contains its child directory")
}

func TestGenericHashStableAcrossRuns(t *testing.T) {
	root := fixture(t)
	e := New(workerpool.DefaultConfig())

	hash := func() map[string]any {
		out := map[string]any{}
		ents, _ := e.ExtractEntities(context.Background(), root, "demo")
		for ent := range ents {
			if ent.Kind == "File" {
				out[ent.Properties["path"].(string)] = ent.Properties["content_hash"]
			}
		}
		return out
	}
	assert.Equal(t, hash(), hash())
}
