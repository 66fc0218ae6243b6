// Package guard holds the cross-cutting protections every tool call and
// store query passes through: path sanitization, row caps, per-client
// rate limiting, circuit breakers, and deadline helpers.
package guard

import (
	"path/filepath"
	"strings"

	"github.com/repograph/gateway/internal/errors"
)

// PathSanitizer normalizes and vets user-supplied file paths before they
// reach a graph query. With a BaseDir set, relative paths are resolved
// under it and the result must stay inside it; absolute inputs are only
// accepted when AllowAbsolute is set and they already live under BaseDir.
type PathSanitizer struct {
	BaseDir       string
	AllowAbsolute bool
}

// Sanitize validates path and returns its normalized form.
func (s *PathSanitizer) Sanitize(path string) (string, error) {
	if path == "" {
		return "", errors.UserInputError("Path is empty")
	}
	if strings.ContainsRune(path, '\x00') {
		return "", errors.UserInputError("Null byte in path")
	}
	for _, part := range strings.Split(filepath.ToSlash(path), "/") {
		if part == ".." {
			return "", errors.UserInputError("Path traversal detected")
		}
	}

	if s.BaseDir == "" {
		return filepath.Clean(path), nil
	}

	base := filepath.Clean(s.BaseDir)
	var resolved string
	if filepath.IsAbs(path) {
		if !s.AllowAbsolute {
			return "", errors.UserInputError("Absolute paths are not permitted")
		}
		resolved = filepath.Clean(path)
	} else {
		resolved = filepath.Join(base, path)
	}

	rel, err := filepath.Rel(base, resolved)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", errors.UserInputError("Path escapes the allowed directory")
	}
	return resolved, nil
}

// NormalizeToRelative converts an absolute path into a repo-relative one
// when it lives under root, leaving already-relative paths cleaned. The
// graph stores repo-relative paths. The tool handlers do not call it;
// their path arguments pass through Sanitize only.
func NormalizeToRelative(path, root string) string {
	if !filepath.IsAbs(path) {
		return filepath.Clean(path)
	}
	rel, err := filepath.Rel(filepath.Clean(root), filepath.Clean(path))
	if err != nil || strings.HasPrefix(rel, "..") {
		return filepath.Clean(path)
	}
	return rel
}
