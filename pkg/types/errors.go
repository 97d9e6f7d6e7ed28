package types

import "errors"

// Errors
var (
	// ErrConfiguration means required credentials or settings are missing. Fatal at startup.
	ErrConfiguration = errors.New("configuration error")

	// ErrSearchExhausted means every worker of a single-match search stopped without a match.
	ErrSearchExhausted = errors.New("search exhausted without a match")

	// ErrPersistenceBatch is reported when a batch insert fails; recovered by individual inserts.
	ErrPersistenceBatch = errors.New("batch insert failed")

	// ErrPersistenceIndividual is reported when a single fallback insert fails.
	ErrPersistenceIndividual = errors.New("individual insert failed")

	// ErrLocalBackup means the local durability write failed. Fatal to the session.
	ErrLocalBackup = errors.New("local backup failed")
)
