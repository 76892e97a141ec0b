// Package testutil provides shared test helpers for databases and users.
package testutil

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/starford/journal/internal/models"
	"github.com/starford/journal/internal/persistence/sqlite"
)

// TestDB creates a temporary, migrated SQLite database that is automatically
// cleaned up.
func TestDB(t *testing.T) *sqlite.DB {
	t.Helper()
	dbFile, err := os.CreateTemp("", "journal-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	db, err := sqlite.Open(context.Background(), dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// TestUser creates a password-less account in db.
func TestUser(t *testing.T, db *sqlite.DB, email string) models.User {
	t.Helper()
	u, err := db.CreateUser(context.Background(), email, "")
	if err != nil {
		t.Fatal(err)
	}
	return u
}

// TestDir creates a temporary directory populated with files, keyed by
// slash-separated relative path.
func TestDir(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for rel, content := range files {
		p := filepath.Join(dir, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}
