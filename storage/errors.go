package storage

import (
	"errors"
	"strings"
)

// Storage error constants. Absence of a row on plain lookups is reported
// with a nil result, not an error; these sentinels cover the paths where
// the caller asked for something that must exist.
var (
	// ErrAccountTypeNotFound is returned when an account type must be
	// resolved to its persistent id but is unknown to the store.
	ErrAccountTypeNotFound = errors.New("account type not found")

	// ErrNoRecipients is returned when a relationship add names no
	// recipient accounts.
	ErrNoRecipients = errors.New("no recipient accounts")

	// ErrNotAccountArtifact is returned when an artifact passed as an
	// account instance marker has a different artifact type.
	ErrNotAccountArtifact = errors.New("artifact is not an account instance marker")
)

// isUniqueConstraintErr reports whether err is a SQLite UNIQUE constraint
// violation. The driver exposes no typed error for this, so match the
// message.
func isUniqueConstraintErr(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
