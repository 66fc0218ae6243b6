package guard

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeRejectsTraversal(t *testing.T) {
	s := &PathSanitizer{}
	_, err := s.Sanitize("../../etc/passwd")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "traversal")
}

func TestSanitizeRejectsNullByte(t *testing.T) {
	s := &PathSanitizer{}
	_, err := s.Sanitize("file\x00.yml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Null byte")
}

func TestSanitizeRejectsEmpty(t *testing.T) {
	s := &PathSanitizer{}
	_, err := s.Sanitize("")
	require.Error(t, err)
}

func TestSanitizeResolvesUnderBase(t *testing.T) {
	s := &PathSanitizer{BaseDir: "/srv/a"}
	got, err := s.Sanitize("roles/common/tasks/main.yml")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("/srv/a", "roles/common/tasks/main.yml"), got)
}

func TestSanitizeAbsoluteOnlyWithinBase(t *testing.T) {
	s := &PathSanitizer{BaseDir: "/srv/a", AllowAbsolute: true}

	got, err := s.Sanitize("/srv/a/playbooks/site.yml")
	require.NoError(t, err)
	assert.Equal(t, "/srv/a/playbooks/site.yml", got)

	_, err = s.Sanitize("/etc/passwd")
	require.Error(t, err)
}

func TestSanitizeAbsoluteDisallowedByDefault(t *testing.T) {
	s := &PathSanitizer{BaseDir: "/srv/a"}
	_, err := s.Sanitize("/srv/a/playbooks/site.yml")
	require.Error(t, err)
}

func TestNormalizeToRelative(t *testing.T) {
	tests := []struct {
		name string
		path string
		root string
		want string
	}{
		{"absolute under root", "/srv/repo/tasks/main.yml", "/srv/repo", "tasks/main.yml"},
		{"already relative", "tasks/main.yml", "/srv/repo", "tasks/main.yml"},
		{"outside root stays absolute", "/opt/other/x.yml", "/srv/repo", "/opt/other/x.yml"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeToRelative(tt.path, tt.root))
		})
	}
}
