package store

import (
	"path/filepath"
	"testing"

	"github.com/rotki/localdb/internal/schema"
)

// createTestStore creates a new store in a temporary directory.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path, schema.MustLoad())
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestMappings returns the missing_mappings collection of a fresh store.
func createTestMappings(t *testing.T) *Collection[schema.MissingMapping] {
	t.Helper()
	c, err := MissingMappings(createTestStore(t))
	if err != nil {
		t.Fatalf("MissingMappings() failed: %v", err)
	}
	return c
}
