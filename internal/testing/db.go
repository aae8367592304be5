// Package testing provides fixtures and helpers shared by the package tests.
package testing

import (
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/aristath/renewals/internal/database"
	_ "modernc.org/sqlite"
)

// NewTestDB creates a file-backed SQLite database under t.TempDir().
// The connection is closed when the test finishes.
func NewTestDB(t *testing.T, name string) *database.DB {
	t.Helper()

	db, err := database.New(database.Config{
		Path: filepath.Join(t.TempDir(), name+".db"),
		Name: name,
	})
	if err != nil {
		t.Fatalf("Failed to create test database %s: %v", name, err)
	}
	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Logf("Warning: Failed to close test database %s: %v", name, err)
		}
	})
	return db
}

// NewMemoryDB opens an in-memory SQLite database pinned to a single connection,
// so every statement sees the same database.
func NewMemoryDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("Failed to open in-memory database: %v", err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })
	return db
}
