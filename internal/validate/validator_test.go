package validate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testValidator() *Validator {
	return NewValidator(
		[]string{"Task", "Role", "Playbook"},
		[]string{"HAS_TASK", "USES_ROLE", "NOTIFIES"},
	)
}

func TestValidQueryPasses(t *testing.T) {
	res := testValidator().Validate("MATCH (n:Task) RETURN n LIMIT 10")
	assert.True(t, res.Valid)
	assert.Empty(t, res.Errors)
	assert.Empty(t, res.Warnings)
}

func TestUnknownLabelRejected(t *testing.T) {
	res := testValidator().Validate("MATCH (n:FakeNode) RETURN n LIMIT 10")
	require.False(t, res.Valid)
	assert.Contains(t, res.Errors[0], "Unknown node labels")
	assert.Contains(t, res.Errors[0], "FakeNode")
}

func TestUnknownRelationshipRejected(t *testing.T) {
	res := testValidator().Validate("MATCH (:Task)-[:FAKE_EDGE]->(:Role) RETURN 1 LIMIT 1")
	require.False(t, res.Valid)
	assert.Contains(t, res.Errors[0], "Unknown relationship types")
}

func TestAlternationValidatesEachBranch(t *testing.T) {
	res := testValidator().Validate("MATCH (:Task)-[:HAS_TASK|USES_ROLE]->(m) RETURN m LIMIT 5")
	assert.True(t, res.Valid)

	res = testValidator().Validate("MATCH (:Task)-[:HAS_TASK|BOGUS]->(m) RETURN m LIMIT 5")
	assert.False(t, res.Valid)
}

func TestMutationsRejected(t *testing.T) {
	cases := map[string]string{
		"MATCH (n) DELETE n":                          "DELETE",
		"MATCH (n) DETACH DELETE n":                   "DETACH DELETE",
		"CREATE (n:Task {name: 'x'})":                 "CREATE",
		"MERGE (n:Task {name: 'x'}) RETURN n":         "MERGE",
		"MATCH (n:Task) SET n.x = 1 RETURN n":         "SET",
		"MATCH (n:Task) REMOVE n.x RETURN n":          "REMOVE",
		"DROP INDEX idx_task":                         "DROP",
		"CREATE INDEX foo FOR (n:Task) ON (n.name)":   "CREATE",
		"CALL db.labels()":                            "procedure",
		"CALL apoc.periodic.iterate('a','b',{})":      "procedure",
		"LOAD CSV FROM 'file:///x' AS row RETURN row": "LOAD CSV",
	}
	for query, fragment := range cases {
		res := testValidator().Validate(query)
		require.False(t, res.Valid, "expected invalid: %s", query)
		assert.Contains(t, res.Errors[0], "Forbidden", query)
		_ = fragment
	}
}

func TestDeleteMentionsOperation(t *testing.T) {
	res := testValidator().Validate("MATCH (n) DELETE n")
	require.False(t, res.Valid)
	assert.Contains(t, res.Errors[0], "DELETE operations")
}

func TestWarningsAreNonFatal(t *testing.T) {
	res := testValidator().Validate("MATCH (a:Task)-[:HAS_TASK*]->(b:Task) RETURN a")
	assert.True(t, res.Valid)
	assert.NotEmpty(t, res.Warnings)

	var missingLimit, unbounded bool
	for _, w := range res.Warnings {
		if w == "Query carries no LIMIT; the default row cap will be applied" {
			missingLimit = true
		}
		if w == "Unbounded variable-length traversal may be slow" {
			unbounded = true
		}
	}
	assert.True(t, missingLimit)
	assert.True(t, unbounded)
}

func TestEmptyQueryInvalid(t *testing.T) {
	res := testValidator().Validate("   ")
	assert.False(t, res.Valid)
}
