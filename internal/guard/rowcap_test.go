package guard

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRowCapAppendsDefault(t *testing.T) {
	rc := NewRowCap(100, 1000)
	got := rc.Enforce("MATCH (n:Task) RETURN n")
	assert.Equal(t, "MATCH (n:Task) RETURN n LIMIT 100", got)
}

func TestRowCapRewritesAboveCeiling(t *testing.T) {
	rc := NewRowCap(100, 1000)
	got := rc.Enforce("MATCH (n:Task) RETURN n LIMIT 5000")
	assert.Equal(t, "MATCH (n:Task) RETURN n LIMIT 1000", got)
}

func TestRowCapKeepsReasonableLimit(t *testing.T) {
	rc := NewRowCap(100, 1000)
	got := rc.Enforce("MATCH (n:Task) RETURN n LIMIT 10")
	assert.Equal(t, "MATCH (n:Task) RETURN n LIMIT 10", got)
}

func TestRowCapStripsTrailingSemicolon(t *testing.T) {
	rc := NewRowCap(100, 1000)
	got := rc.Enforce("MATCH (n:Task) RETURN n;")
	assert.Equal(t, "MATCH (n:Task) RETURN n LIMIT 100", got)
}

func TestRowCapLowercaseLimit(t *testing.T) {
	rc := NewRowCap(100, 1000)
	got := rc.Enforce("MATCH (n:Task) RETURN n limit 2000")
	assert.Equal(t, "MATCH (n:Task) RETURN n LIMIT 1000", got)
}

func TestRowCapEmptyQuery(t *testing.T) {
	rc := NewRowCap(100, 1000)
	assert.Equal(t, "", rc.Enforce("  ;  "))
}
