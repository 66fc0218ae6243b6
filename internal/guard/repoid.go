package guard

import (
	"regexp"

	"github.com/repograph/gateway/internal/errors"
)

var repoIDRe = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// ValidateRepositoryID vets an id before it is accepted into session
// context or written onto nodes. Restricting the charset keeps ids safe
// to embed in prompt text and log lines without quoting concerns.
func ValidateRepositoryID(id string) error {
	if id == "" {
		return errors.UserInputError("Repository id is empty")
	}
	if !repoIDRe.MatchString(id) {
		return errors.UserInputErrorf("Repository id %q is invalid: only letters, digits, '_' and '-' are allowed", id)
	}
	return nil
}
