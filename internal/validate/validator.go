// Package validate is the last gate before a translated query reaches
// the store: it rejects mutations, DDL, procedure calls, and any label
// or relationship type that does not exist in the live schema snapshot.
package validate

import (
	"fmt"
	"regexp"
	"strings"
)

// Result reports the verdict with human-readable errors and non-fatal
// warnings.
type Result struct {
	Valid    bool
	Errors   []string
	Warnings []string
}

// forbidden pairs a detection pattern with the message shown to the
// caller. Order matters: the most specific patterns report first.
var forbidden = []struct {
	re      *regexp.Regexp
	message string
}{
	{regexp.MustCompile(`(?i)\bDETACH\s+DELETE\b`), "Forbidden: DETACH DELETE operations are not allowed"},
	{regexp.MustCompile(`(?i)\bDELETE\b`), "Forbidden: DELETE operations are not allowed"},
	{regexp.MustCompile(`(?i)\bCREATE\s+(?:INDEX|CONSTRAINT)\b`), "Forbidden: schema DDL is not allowed"},
	{regexp.MustCompile(`(?i)\bDROP\b`), "Forbidden: DROP operations are not allowed"},
	{regexp.MustCompile(`(?i)\bCREATE\b`), "Forbidden: CREATE operations are not allowed"},
	{regexp.MustCompile(`(?i)\bMERGE\b`), "Forbidden: MERGE operations are not allowed"},
	{regexp.MustCompile(`(?i)\bSET\b`), "Forbidden: SET operations are not allowed"},
	{regexp.MustCompile(`(?i)\bREMOVE\b`), "Forbidden: REMOVE operations are not allowed"},
	{regexp.MustCompile(`(?i)\bFOREACH\b`), "Forbidden: FOREACH operations are not allowed"},
	{regexp.MustCompile(`(?i)\bLOAD\s+CSV\b`), "Forbidden: LOAD CSV is not allowed"},
	{regexp.MustCompile(`(?i)\bCALL\s+(?:db|dbms|apoc)\.`), "Forbidden: administrative and extension procedures are not allowed"},
	{regexp.MustCompile(`(?i)\bCALL\s*\{`), "Forbidden: CALL subqueries are not allowed"},
	{regexp.MustCompile(`(?i)\bCALL\b`), "Forbidden: procedure calls are not allowed"},
}

var (
	labelRe        = regexp.MustCompile(`\(\s*\w*\s*:\s*` + "`?" + `([A-Za-z_][A-Za-z0-9_]*)` + "`?")
	relTypeRe      = regexp.MustCompile(`\[\s*\w*\s*:\s*` + "`?" + `([A-Za-z_][A-Za-z0-9_|!]*)` + "`?")
	unboundedVarRe = regexp.MustCompile(`\[\s*\w*\s*:?[A-Za-z_|0-9]*\s*\*\s*(?:\.\.)?\s*\]`)
	openEndVarRe   = regexp.MustCompile(`\*\s*\d*\s*\.\.\s*[\]\s]`)
	limitRe        = regexp.MustCompile(`(?i)\bLIMIT\s+\d+`)
	starReturnRe   = regexp.MustCompile(`(?i)\bRETURN\s+\*`)
)

// Validator checks queries against the snapshot vocabulary.
type Validator struct {
	nodeLabels map[string]bool
	relTypes   map[string]bool
}

// NewValidator builds a validator from the live schema snapshot.
func NewValidator(nodeLabels, relationshipTypes []string) *Validator {
	v := &Validator{
		nodeLabels: make(map[string]bool, len(nodeLabels)),
		relTypes:   make(map[string]bool, len(relationshipTypes)),
	}
	for _, l := range nodeLabels {
		v.nodeLabels[l] = true
	}
	for _, r := range relationshipTypes {
		v.relTypes[r] = true
	}
	return v
}

// Validate applies the forbidden-operation rules and the declared
// vocabulary check, then collects warnings. Invalid queries never reach
// the gateway.
func (v *Validator) Validate(query string) Result {
	res := Result{Valid: true}
	trimmed := strings.TrimSpace(query)
	if trimmed == "" {
		return Result{Valid: false, Errors: []string{"Query is empty"}}
	}

	for _, f := range forbidden {
		if f.re.MatchString(trimmed) {
			res.Valid = false
			res.Errors = append(res.Errors, f.message)
			break
		}
	}

	if unknown := v.unknownLabels(trimmed); len(unknown) > 0 {
		res.Valid = false
		res.Errors = append(res.Errors, fmt.Sprintf(
			"Unknown node labels: %s", strings.Join(unknown, ", ")))
	}
	if unknown := v.unknownRelTypes(trimmed); len(unknown) > 0 {
		res.Valid = false
		res.Errors = append(res.Errors, fmt.Sprintf(
			"Unknown relationship types: %s", strings.Join(unknown, ", ")))
	}

	if unboundedVarRe.MatchString(trimmed) || openEndVarRe.MatchString(trimmed) {
		res.Warnings = append(res.Warnings, "Unbounded variable-length traversal may be slow")
	}
	if !limitRe.MatchString(trimmed) {
		res.Warnings = append(res.Warnings, "Query carries no LIMIT; the default row cap will be applied")
	}
	if starReturnRe.MatchString(trimmed) && !limitRe.MatchString(trimmed) {
		res.Warnings = append(res.Warnings, "RETURN * without a LIMIT can produce very large results")
	}

	return res
}

func (v *Validator) unknownLabels(query string) []string {
	var unknown []string
	seen := map[string]bool{}
	for _, m := range labelRe.FindAllStringSubmatch(query, -1) {
		label := m[1]
		if v.nodeLabels[label] || seen[label] {
			continue
		}
		seen[label] = true
		unknown = append(unknown, label)
	}
	return unknown
}

func (v *Validator) unknownRelTypes(query string) []string {
	var unknown []string
	seen := map[string]bool{}
	for _, m := range relTypeRe.FindAllStringSubmatch(query, -1) {
		// Alternations like INCLUDES|IMPORTS validate each branch.
		for _, part := range strings.Split(m[1], "|") {
			part = strings.TrimPrefix(strings.TrimSpace(part), "!")
			if part == "" || v.relTypes[part] || seen[part] {
				continue
			}
			seen[part] = true
			unknown = append(unknown, part)
		}
	}
	return unknown
}
