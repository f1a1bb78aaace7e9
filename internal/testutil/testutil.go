// Package testutil provides shared test helpers for setting up template
// libraries and databases.
package testutil

import (
	"io"
	"log/slog"
	"os"
	"testing"

	"github.com/starford/minuta/internal/importer"
	"github.com/starford/minuta/internal/storage"
	"github.com/starford/minuta/internal/store"
)

// TestDB creates a temporary SQLite database that is automatically cleaned up.
func TestDB(t *testing.T) *store.DB {
	t.Helper()
	dbFile, err := os.CreateTemp("", "minuta-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	db, err := store.Open(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// TestLibrary creates a temporary template library directory.
func TestLibrary(t *testing.T) (string, *storage.FS) {
	t.Helper()
	dir := t.TempDir()
	lib, err := storage.NewFS(dir, storage.WithFilter(importer.Supported))
	if err != nil {
		t.Fatal(err)
	}
	return dir, lib
}

// TestUploads creates a temporary directory for uploaded source documents.
func TestUploads(t *testing.T) *storage.FS {
	t.Helper()
	fs, err := storage.NewFS(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	return fs
}

// Logger returns a logger that discards everything.
func Logger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}
