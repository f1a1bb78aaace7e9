package store

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/starford/minuta/internal/importer"
	"github.com/starford/minuta/internal/storage"
)

const reconcileDelay = 200 * time.Millisecond

// templateFile reports whether a base name is an importable library file.
func templateFile(name string) bool {
	return !strings.HasPrefix(name, ".") && importer.Supported(name)
}

// Watch starts an fsnotify watcher on the library root and processes file
// change events until ctx is cancelled. It calls cb (if non-nil) after each
// store mutation.
//
// New directories are added to the watch list as they appear. Rename events
// trigger a debounced reconciliation pass that removes templates whose files
// no longer exist.
func Watch(ctx context.Context, db TemplateStore, lib storage.Provider, root string, logger *slog.Logger, cb EventCallback) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := addDirsRecursive(w, root); err != nil {
		return err
	}

	logger.Info("watcher: started", slog.String("root", root))

	var reconcileTimer *time.Timer
	var reconcileCh <-chan time.Time

	scheduleReconcile := func() {
		if reconcileTimer == nil {
			reconcileTimer = time.NewTimer(reconcileDelay)
			reconcileCh = reconcileTimer.C
		} else {
			reconcileTimer.Reset(reconcileDelay)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if reconcileTimer != nil {
				reconcileTimer.Stop()
			}
			logger.Info("watcher: stopped")
			return nil

		case <-reconcileCh:
			if err := Sync(ctx, db, lib, logger, cb); err != nil {
				logger.Warn("reconcile: sync failed", slog.String("error", err.Error()))
			}

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			absPath := ev.Name

			if ev.Op&fsnotify.Create != 0 {
				if info, statErr := os.Stat(absPath); statErr == nil && info.IsDir() {
					if addErr := addDirsRecursive(w, absPath); addErr != nil {
						logger.Warn("watcher: add new dir failed",
							slog.String("path", absPath),
							slog.String("error", addErr.Error()))
					} else {
						logger.Debug("watcher: watching new dir", slog.String("path", absPath))
					}
					importNewDir(ctx, db, lib, root, absPath, logger, cb)
					continue
				}
			}

			if !templateFile(filepath.Base(absPath)) {
				continue
			}
			rel, relErr := filepath.Rel(root, absPath)
			if relErr != nil {
				continue
			}
			rel = filepath.ToSlash(rel)

			switch {
			case ev.Op&(fsnotify.Create|fsnotify.Write) != 0:
				importOne(ctx, db, lib, rel, logger, cb)

			case ev.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
				// Rename fires on the old path only; the new path arrives as
				// a Create if it stays inside a watched directory.
				id, delErr := db.DeleteBySourcePath(ctx, rel)
				if delErr != nil {
					logger.Warn("watcher: delete failed", slog.String("path", rel), slog.String("error", delErr.Error()))
					continue
				}
				if id != "" {
					logger.Debug("watcher: deleted", slog.String("path", rel))
					if cb != nil {
						cb(KindDeleted, id, rel)
					}
				}
				if ev.Op&fsnotify.Rename != 0 {
					scheduleReconcile()
				}
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

func importOne(ctx context.Context, db TemplateStore, lib storage.Provider, rel string, logger *slog.Logger, cb EventCallback) {
	data, err := lib.Read(rel)
	if err != nil {
		logger.Warn("watcher: read failed", slog.String("path", rel), slog.String("error", err.Error()))
		return
	}
	kind, t, err := ImportFile(ctx, db, rel, data)
	if err != nil {
		logger.Warn("watcher: import failed", slog.String("path", rel), slog.String("error", err.Error()))
		return
	}
	if kind == "" {
		return
	}
	logger.Debug("watcher: imported", slog.String("path", rel), slog.String("op", kind))
	if cb != nil {
		cb(kind, t.ID, rel)
	}
}

// importNewDir imports any template files found in a newly created directory.
func importNewDir(ctx context.Context, db TemplateStore, lib storage.Provider, root, dirPath string, logger *slog.Logger, cb EventCallback) {
	_ = filepath.WalkDir(dirPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() || !templateFile(d.Name()) {
			return nil
		}
		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			return nil
		}
		importOne(ctx, db, lib, filepath.ToSlash(rel), logger, cb)
		return nil
	})
}

// addDirsRecursive adds root and all its non-hidden subdirectories to the watcher.
func addDirsRecursive(w *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		return w.Add(path)
	})
}
