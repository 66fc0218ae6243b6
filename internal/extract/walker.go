package extract

import (
	"context"
	"io/fs"
	"path/filepath"
	"strings"
)

// skipDirs are directories no extractor ever descends into: VCS
// internals, dependency trees, caches, and build output.
var skipDirs = map[string]bool{
	".git":          true,
	".hg":           true,
	".svn":          true,
	"node_modules":  true,
	"vendor":        true,
	"__pycache__":   true,
	".venv":         true,
	"venv":          true,
	"env":           true,
	".tox":          true,
	".pytest_cache": true,
	".mypy_cache":   true,
	"dist":          true,
	"build":         true,
	"out":           true,
	"target":        true,
	".cache":        true,
	".idea":         true,
	".vscode":       true,
}

// binaryExtensions are file types that never carry extractable source.
var binaryExtensions = map[string]bool{
	".png": true, ".jpg": true, ".jpeg": true, ".gif": true, ".ico": true,
	".pdf": true, ".zip": true, ".gz": true, ".tar": true, ".bz2": true,
	".xz": true, ".7z": true, ".jar": true, ".war": true, ".class": true,
	".so": true, ".dylib": true, ".dll": true, ".exe": true, ".bin": true,
	".o": true, ".a": true, ".pyc": true, ".pyo": true, ".whl": true,
	".woff": true, ".woff2": true, ".ttf": true, ".eot": true,
	".mp3": true, ".mp4": true, ".avi": true, ".mov": true, ".webm": true,
	".db": true, ".sqlite": true, ".sqlite3": true,
}

// ShouldSkipDir reports whether a directory is excluded from every
// walk. Hidden directories are skipped wholesale.
func ShouldSkipDir(name string) bool {
	if skipDirs[name] {
		return true
	}
	return strings.HasPrefix(name, ".") && name != "." && name != ".."
}

// IsBinaryPath reports whether a file's extension marks it binary.
func IsBinaryPath(path string) bool {
	return binaryExtensions[strings.ToLower(filepath.Ext(path))]
}

// Walk streams the relative paths of every acceptable file under root.
// accept further narrows the walk per extractor (nil accepts all
// non-binary files). The channel closes when the walk finishes; a
// cancelled context stops it early.
func Walk(ctx context.Context, root string, accept func(relPath string) bool) <-chan string {
	out := make(chan string, 64)
	go func() {
		defer close(out)
		_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return nil // unreadable entries reduce the stream
			}
			if ctx.Err() != nil {
				return filepath.SkipAll
			}
			if d.IsDir() {
				if path != root && ShouldSkipDir(d.Name()) {
					return filepath.SkipDir
				}
				return nil
			}
			if IsBinaryPath(path) {
				return nil
			}
			rel, err := filepath.Rel(root, path)
			if err != nil {
				return nil
			}
			rel = filepath.ToSlash(rel)
			if accept != nil && !accept(rel) {
				return nil
			}
			select {
			case out <- rel:
			case <-ctx.Done():
				return filepath.SkipAll
			}
			return nil
		})
	}()
	return out
}

// WalkDirs streams the relative paths of every directory under root
// that survives the skip rules, root itself excluded. Used by the
// generic extractor's containment edges.
func WalkDirs(ctx context.Context, root string) <-chan string {
	out := make(chan string, 64)
	go func() {
		defer close(out)
		_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return nil
			}
			if ctx.Err() != nil {
				return filepath.SkipAll
			}
			if !d.IsDir() {
				return nil
			}
			if path != root && ShouldSkipDir(d.Name()) {
				return filepath.SkipDir
			}
			if path == root {
				return nil
			}
			rel, err := filepath.Rel(root, path)
			if err != nil {
				return nil
			}
			select {
			case out <- filepath.ToSlash(rel):
			case <-ctx.Done():
				return filepath.SkipAll
			}
			return nil
		})
	}()
	return out
}
