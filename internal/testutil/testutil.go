// Package testutil provides shared test helpers: a temporary cache
// store and an in-memory fake of the remote entity API.
package testutil

import (
	"path/filepath"
	"testing"

	"github.com/voss/atelier/internal/kvstore"
)

// TestStore creates a temporary SQLite key-value store that is
// automatically cleaned up.
func TestStore(t *testing.T) *kvstore.DB {
	t.Helper()
	db, err := kvstore.Open(filepath.Join(t.TempDir(), "atelier-test.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}
