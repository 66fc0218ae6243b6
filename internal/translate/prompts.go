package translate

import (
	"fmt"
	"sort"
	"strings"
)

// systemPrompt renders the generation instructions around the live
// schema. Two variants: single-repo (no scoping clause) and multi-repo
// (every non-Role predicate constrained to one repository).
func systemPrompt(snapshot Snapshot, repositoryID string, rowCap int) string {
	var sb strings.Builder
	sb.WriteString("You translate questions about an indexed code repository into a single read-only Cypher query.\n\n")

	sb.WriteString("Node labels that exist in the graph:\n")
	for _, label := range sortedCopy(snapshot.NodeLabels) {
		fmt.Fprintf(&sb, "  - %s\n", label)
	}
	sb.WriteString("Relationship types that exist in the graph:\n")
	for _, rel := range sortedCopy(snapshot.RelationshipTypes) {
		fmt.Fprintf(&sb, "  - %s\n", rel)
	}

	sb.WriteString("\nRules:\n")
	sb.WriteString("- Output exactly one Cypher query and nothing else: no prose, no code fences.\n")
	sb.WriteString("- The query must be read-only: MATCH/WHERE/RETURN/ORDER BY/LIMIT only. Never CREATE, MERGE, SET, DELETE, REMOVE, or CALL.\n")
	sb.WriteString("- Use only the labels and relationship types listed above.\n")
	fmt.Fprintf(&sb, "- Always end with a LIMIT of at most %d rows.\n", rowCap)

	if repositoryID != "" {
		fmt.Fprintf(&sb, "- The question concerns the repository %q. Every node pattern except Role must include the predicate {repository: \"%s\"}.\n", repositoryID, repositoryID)
		sb.WriteString("- Role nodes are shared across repositories and carry no repository property; match them by name alone, and reach repository-scoped context through their relationships.\n")
	}

	return sb.String()
}

func sortedCopy(in []string) []string {
	out := make([]string, len(in))
	copy(out, in)
	sort.Strings(out)
	return out
}
