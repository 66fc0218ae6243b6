package guard

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// RowCap appends or rewrites the LIMIT clause of a read query so every
// query reaching the store gateway is bounded. A query with no LIMIT
// gets Default appended; one above Ceiling is rewritten down to it.
type RowCap struct {
	Default int
	Ceiling int
}

// NewRowCap builds a RowCap with the standard bounds, substituting the
// defaults for non-positive values.
func NewRowCap(def, ceiling int) *RowCap {
	if def <= 0 {
		def = 100
	}
	if ceiling <= 0 {
		ceiling = 1000
	}
	return &RowCap{Default: def, Ceiling: ceiling}
}

var limitRe = regexp.MustCompile(`(?i)\bLIMIT\s+(\d+)`)

// Enforce returns the query with a bounded LIMIT. Trailing semicolons
// and whitespace are stripped before appending.
func (rc *RowCap) Enforce(query string) string {
	trimmed := strings.TrimRight(strings.TrimSpace(query), "; \t\n\r")
	if trimmed == "" {
		return trimmed
	}

	if m := limitRe.FindStringSubmatch(trimmed); m != nil {
		n, err := strconv.Atoi(m[1])
		if err == nil && n > rc.Ceiling {
			return limitRe.ReplaceAllString(trimmed, fmt.Sprintf("LIMIT %d", rc.Ceiling))
		}
		return trimmed
	}

	return fmt.Sprintf("%s LIMIT %d", trimmed, rc.Default)
}

// HasLimit reports whether the query already carries a LIMIT clause.
func HasLimit(query string) bool {
	return limitRe.MatchString(query)
}
