package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/starford/minuta/internal/apperr"
	"github.com/starford/minuta/internal/importer"
	"github.com/starford/minuta/internal/models"
	"github.com/starford/minuta/internal/storage"
	"github.com/starford/minuta/internal/variable"
)

// Change kinds reported by ImportFile, Sync and Watch.
const (
	KindCreated = "created"
	KindUpdated = "updated"
	KindDeleted = "deleted"
)

// EventCallback is called after a library-driven store change.
type EventCallback func(kind, id, path string)

// CategoryForPath returns the category named by the first directory of a
// library path, or diversos when it names none.
func CategoryForPath(path string) models.Category {
	first, _, found := strings.Cut(path, "/")
	if !found {
		return models.CategoryDiversos
	}
	c, err := models.ParseCategory(first)
	if err != nil {
		return models.CategoryDiversos
	}
	return c
}

// ImportFile converts a library file and upserts it as a template. A file
// already stored under the same checksum is left alone and reported with an
// empty kind. Known files keep their id, creation time and variable values;
// their variables are reconciled against the new content.
func ImportFile(ctx context.Context, db TemplateStore, path string, data []byte) (string, *models.Template, error) {
	sum := storage.Checksum(data)

	prev, err := db.BySourcePath(ctx, path)
	if err != nil && !errors.Is(err, apperr.ErrNotFound) {
		return "", nil, err
	}
	if prev != nil {
		known, err := db.LibraryChecksums(ctx)
		if err != nil {
			return "", nil, err
		}
		if known[path] == sum {
			return "", prev, nil
		}
	}

	imp, err := importer.Import(path, data)
	if err != nil {
		return "", nil, err
	}
	category := imp.Category
	if category == "" {
		category = CategoryForPath(path)
	}

	now := time.Now().UTC()
	t := models.Template{
		Name:       imp.Name,
		Category:   category,
		Content:    imp.Content,
		SourcePath: path,
		Checksum:   storage.Checksum([]byte(imp.Content)),
		UpdatedAt:  now,
	}
	kind := KindCreated
	if prev != nil {
		kind = KindUpdated
		t.ID = prev.ID
		t.CreatedAt = prev.CreatedAt
		t.Variables = variable.Rescan(prev.Variables, imp.Content)
	} else {
		t.ID = variable.NewID()
		t.CreatedAt = now
		t.Variables = variable.Detect(imp.Content, nil)
	}
	if err := db.Upsert(ctx, t, sum); err != nil {
		return "", nil, fmt.Errorf("import %s: %w", path, err)
	}
	return kind, &t, nil
}

// Sync walks the library and brings the store up to date:
//   - new/changed files are imported
//   - templates whose file vanished are deleted
//
// Per-file failures are logged and skipped.
func Sync(ctx context.Context, db TemplateStore, lib storage.Provider, logger *slog.Logger, cb EventCallback) error {
	metas, err := lib.List("")
	if err != nil {
		return err
	}
	checksums, err := db.LibraryChecksums(ctx)
	if err != nil {
		return err
	}

	disk := make(map[string]struct{}, len(metas))
	for _, m := range metas {
		disk[m.Path] = struct{}{}
		if checksums[m.Path] == m.Checksum {
			continue
		}
		data, err := lib.Read(m.Path)
		if err != nil {
			logger.Warn("sync: read failed", slog.String("path", m.Path), slog.String("error", err.Error()))
			continue
		}
		kind, t, err := ImportFile(ctx, db, m.Path, data)
		if err != nil {
			logger.Warn("sync: import failed", slog.String("path", m.Path), slog.String("error", err.Error()))
			continue
		}
		if kind == "" {
			continue
		}
		logger.Debug("sync: imported", slog.String("path", m.Path), slog.String("op", kind))
		if cb != nil {
			cb(kind, t.ID, m.Path)
		}
	}

	for p := range checksums {
		if _, ok := disk[p]; ok {
			continue
		}
		id, err := db.DeleteBySourcePath(ctx, p)
		if err != nil {
			logger.Warn("sync: delete failed", slog.String("path", p), slog.String("error", err.Error()))
			continue
		}
		logger.Debug("sync: removed stale", slog.String("path", p))
		if cb != nil && id != "" {
			cb(KindDeleted, id, p)
		}
	}
	return nil
}
