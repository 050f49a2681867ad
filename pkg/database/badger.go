package database

import (
	"fmt"
	"os"

	"github.com/dgraph-io/badger/v4"
)

// NewBadgerDB opens (or creates) the embedded message database at path.
func NewBadgerDB(path string) (*badger.DB, error) {
	if err := os.MkdirAll(path, 0o755); err != nil {
		return nil, fmt.Errorf("create badger dir %s: %w", path, err)
	}

	opts := badger.DefaultOptions(path).WithLoggingLevel(badger.WARNING)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger at %s: %w", path, err)
	}
	return db, nil
}
