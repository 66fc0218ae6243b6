// Package jinjaparser parses Jinja templates with regular expressions,
// a deliberately lightweight fallback in the absence of a Go Jinja2
// grammar. Good enough to recover variable references, includes,
// macros, and blocks; it does not build a real expression tree.
package jinjaparser

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/repograph/gateway/internal/parse"
)

var (
	variableRe = regexp.MustCompile(`\{\{\s*([a-zA-Z_][a-zA-Z0-9_.\[\]'"]*)\s*(?:\|[^}]*)?\}\}`)
	includeRe  = regexp.MustCompile(`\{%-?\s*include\s+['"]([^'"]+)['"]`)
	extendsRe  = regexp.MustCompile(`\{%-?\s*extends\s+['"]([^'"]+)['"]`)
	macroRe    = regexp.MustCompile(`\{%-?\s*macro\s+([a-zA-Z_][a-zA-Z0-9_]*)`)
	blockRe    = regexp.MustCompile(`\{%-?\s*block\s+([a-zA-Z_][a-zA-Z0-9_]*)`)
)

// Template is the regex-derived root a jinjaparser.Parse result carries.
type Template struct {
	Variables []string
	Includes  []string
	Extends   string
	Macros    []string
	Blocks    []string
}

// Parse reads path and extracts variable references, includes, an
// extends target, macro definitions, and block names.
func Parse(path string) parse.Result {
	data, err := os.ReadFile(path)
	if err != nil {
		return parse.Failure(fmt.Errorf("jinjaparser: read %s: %w", path, err))
	}
	text := string(data)

	t := Template{
		Variables: uniqueMatches(variableRe, text, 1),
		Includes:  uniqueMatches(includeRe, text, 1),
		Macros:    uniqueMatches(macroRe, text, 1),
		Blocks:    uniqueMatches(blockRe, text, 1),
	}
	if m := extendsRe.FindStringSubmatch(text); m != nil {
		t.Extends = m[1]
	}

	return parse.Ok(t, map[string]any{
		"path":           path,
		"variable_count": len(t.Variables),
	})
}

func uniqueMatches(re *regexp.Regexp, text string, group int) []string {
	seen := map[string]bool{}
	var out []string
	for _, m := range re.FindAllStringSubmatch(text, -1) {
		v := strings.TrimSpace(m[group])
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}
