// Package store persists the ban record collection. Stores are dumb: they
// read and replace the whole collection and never look at expiry times.
package store

import (
	"fmt"

	"unity-upload-backend/internal/models"
)

type Store interface {
	// Load returns the persisted records in their stored order. A store that
	// exists but cannot be parsed yields a *CorruptStoreError.
	Load() ([]models.BanRecord, error)
	// Save atomically replaces the persisted collection.
	Save(records []models.BanRecord) error
}

type CorruptStoreError struct {
	Source string
	Err    error
}

func (e *CorruptStoreError) Error() string {
	return fmt.Sprintf("corrupt ban store %s: %v", e.Source, e.Err)
}

func (e *CorruptStoreError) Unwrap() error {
	return e.Err
}
