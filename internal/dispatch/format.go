package dispatch

import (
	"fmt"
	"sort"
	"strings"
)

// formatRows renders query results as readable text: one block per
// row, keys sorted for stable output.
func formatRows(rows []map[string]any) string {
	if len(rows) == 0 {
		return "No results."
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "%d result(s):\n", len(rows))
	for i, row := range rows {
		keys := make([]string, 0, len(row))
		for k := range row {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		fmt.Fprintf(&sb, "%d.", i+1)
		for _, k := range keys {
			fmt.Fprintf(&sb, " %s=%s", k, formatValue(row[k]))
		}
		sb.WriteByte('\n')
	}
	return strings.TrimRight(sb.String(), "\n")
}

func formatValue(v any) string {
	switch t := v.(type) {
	case nil:
		return "-"
	case string:
		return t
	case []any:
		parts := make([]string, len(t))
		for i, item := range t {
			parts[i] = formatValue(item)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	default:
		return fmt.Sprintf("%v", t)
	}
}
