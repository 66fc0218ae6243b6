package guard

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/repograph/gateway/internal/errors"
)

func TestValidateRepositoryID(t *testing.T) {
	valid := []string{"infra", "my-repo", "team_2024", "A1"}
	for _, id := range valid {
		assert.NoError(t, ValidateRepositoryID(id), id)
	}

	invalid := []string{
		"",
		`in"fra`,
		"repo with spaces",
		"repo/slash",
		"repo'quote",
		"répo",
	}
	for _, id := range invalid {
		err := ValidateRepositoryID(id)
		assert.Error(t, err, id)
		assert.Equal(t, errors.KindUserInput, errors.KindOf(err), id)
	}
}
