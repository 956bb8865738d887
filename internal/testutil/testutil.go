// Package testutil provides shared test helpers for setting up scene
// directories and catalogs.
package testutil

import (
	"log/slog"
	"os"
	"testing"

	"github.com/starford/forcegraph/internal/catalog"
	"github.com/starford/forcegraph/internal/storage"
)

// TestDB creates a temporary SQLite catalog that is automatically cleaned up.
func TestDB(t *testing.T) *catalog.DB {
	t.Helper()
	dbFile, err := os.CreateTemp("", "forcegraph-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	db, err := catalog.Open(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// TestScenes creates a temporary scenes directory with a storage.Provider.
func TestScenes(t *testing.T) (string, storage.Provider) {
	t.Helper()
	dir := t.TempDir()
	store, err := storage.NewFS(dir)
	if err != nil {
		t.Fatal(err)
	}
	return dir, store
}

// QuietLogger returns a JSON logger that only reports errors.
func QuietLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}
