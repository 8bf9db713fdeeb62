// Package watch drives the mover from file-system events: notes created
// or modified in the vault are run through the pipeline as they change.
package watch

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"

	"github.com/starford/raido/internal/mover"
)

// Run starts an fsnotify watcher on the vault root and processes note
// change events until ctx is cancelled.
//
// New directories created at runtime are automatically added to the
// watch list, and any notes already inside them are processed (a move
// of a whole folder into the vault arrives as one Create event for the
// directory). Remove and rename events only evict the engine's
// checksum cache; the note's new location, if any, produces its own
// Create event.
func Run(ctx context.Context, engine *mover.Engine, vaultRoot string, logger *slog.Logger) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := addDirsRecursive(w, vaultRoot); err != nil {
		return err
	}

	logger.Info("watcher: started", slog.String("root", vaultRoot))

	for {
		select {
		case <-ctx.Done():
			logger.Info("watcher: stopped")
			return nil

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
					processDir(ctx, engine, vaultRoot, absPath)
					continue
				}
			}

			if !isNote(absPath) {
				continue
			}

			rel, relErr := filepath.Rel(vaultRoot, absPath)
			if relErr != nil {
				continue
			}
			rel = filepath.ToSlash(rel)

			switch {
			case ev.Op&(fsnotify.Create|fsnotify.Write) != 0:
				out := engine.ProcessPath(ctx, rel)
				logger.Debug("watcher: processed",
					slog.String("path", rel),
					slog.String("outcome", out.Kind.String()))

			case ev.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
				// The file left this path; forget its checksum so a
				// later recreation is processed fresh.
				engine.Forget(rel)
				logger.Debug("watcher: forgot", slog.String("path", rel))
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

// isNote filters watcher events down to Markdown notes, ignoring the
// atomic-write temp files the storage layer creates.
func isNote(absPath string) bool {
	base := filepath.Base(absPath)
	if strings.HasPrefix(base, ".") {
		return false
	}
	return strings.HasSuffix(base, ".md")
}

// processDir runs every note in a newly appeared directory through the
// pipeline.
func processDir(ctx context.Context, engine *mover.Engine, vaultRoot, dirPath string) {
	_ = filepath.WalkDir(dirPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() || !isNote(path) {
			return nil
		}
		rel, relErr := filepath.Rel(vaultRoot, path)
		if relErr != nil {
			return nil
		}
		engine.ProcessPath(ctx, filepath.ToSlash(rel))
		return nil
	})
}

// addDirsRecursive adds root and all its non-hidden subdirectories to
// the watcher.
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
