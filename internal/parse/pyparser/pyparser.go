// Package pyparser is the regex/line-based documented inferior fallback
// used by the ansible extractor to look inside dynamic inventory scripts
// (a handful of functions and imports, never a full program), reserving
// the real tree-sitter grammar in internal/extract/python for the python
// profile's primary source-code walk.
package pyparser

import (
	"bufio"
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/repograph/gateway/internal/parse"
)

var (
	defRe          = regexp.MustCompile(`^\s*def\s+([a-zA-Z_][a-zA-Z0-9_]*)\s*\(`)
	classRe        = regexp.MustCompile(`^\s*class\s+([a-zA-Z_][a-zA-Z0-9_]*)`)
	importRe       = regexp.MustCompile(`^\s*import\s+([a-zA-Z0-9_.]+)`)
	fromImportRe   = regexp.MustCompile(`^\s*from\s+([a-zA-Z0-9_.]+)\s+import`)
	inventoryDefRe = regexp.MustCompile(`def\s+(ansible_inventory|main)\s*\(`)
)

// Script is the line-scanned root a pyparser.Parse result carries.
type Script struct {
	Functions   []string
	Classes     []string
	Imports     []string
	IsInventory bool
}

// Parse reads path line by line, recognizing def/class/import
// statements at any indentation (methods included) and flagging scripts that look like Ansible dynamic
// inventory sources (an ansible_inventory()/main() entrypoint that
// conventionally prints a JSON payload).
func Parse(path string) parse.Result {
	f, err := os.Open(path)
	if err != nil {
		return parse.Failure(fmt.Errorf("pyparser: open %s: %w", path, err))
	}
	defer f.Close()

	s := Script{}
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if m := defRe.FindStringSubmatch(line); m != nil {
			s.Functions = append(s.Functions, m[1])
		}
		if m := classRe.FindStringSubmatch(line); m != nil {
			s.Classes = append(s.Classes, m[1])
		}
		if m := importRe.FindStringSubmatch(line); m != nil {
			s.Imports = append(s.Imports, m[1])
		}
		if m := fromImportRe.FindStringSubmatch(line); m != nil {
			s.Imports = append(s.Imports, m[1])
		}
		if inventoryDefRe.MatchString(line) {
			s.IsInventory = true
		}
	}
	if err := scanner.Err(); err != nil {
		return parse.Failure(fmt.Errorf("pyparser: scan %s: %w", path, err))
	}

	// Heuristic fallback: many inventory scripts only implement
	// --list/--host argv handling without a named entrypoint function.
	if !s.IsInventory {
		if data, err := os.ReadFile(path); err == nil && strings.Contains(string(data), "--list") {
			s.IsInventory = true
		}
	}

	return parse.Ok(s, map[string]any{
		"path":         path,
		"is_inventory": s.IsInventory,
	})
}
