package catalog

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/starford/forcegraph/internal/checksum"
	"github.com/starford/forcegraph/internal/graph"
	"github.com/starford/forcegraph/internal/storage"
)

// Event kinds passed to EventCallback.
const (
	EventCreated = "created"
	EventUpdated = "updated"
	EventDeleted = "deleted"
)

// reconcileDelay debounces the reconciliation pass that follows renames.
const reconcileDelay = 200 * time.Millisecond

// EventCallback is called after a watcher-driven catalog change. path is
// slash separated and relative to the scenes root.
type EventCallback func(kind string, path string)

// Watcher keeps the catalog in step with the scenes directory.
type Watcher struct {
	db       SceneIndex
	store    storage.Provider
	root     string
	defaults graph.Config
	logger   *slog.Logger
	cb       EventCallback
}

// NewWatcher returns a watcher for root. cb may be nil.
func NewWatcher(db SceneIndex, store storage.Provider, root string, defaults graph.Config, logger *slog.Logger, cb EventCallback) *Watcher {
	return &Watcher{db: db, store: store, root: root, defaults: defaults, logger: logger, cb: cb}
}

// Run processes file change events until ctx is cancelled.
//
// New directories created at runtime are added to the watch list. Rename
// events trigger a debounced reconciliation that drops catalog rows whose
// files are gone and picks up files that are not yet catalogued.
func (wt *Watcher) Run(ctx context.Context) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := addDirsRecursive(w, wt.root); err != nil {
		return err
	}

	wt.logger.Info("watcher: started", slog.String("root", wt.root))

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
			wt.logger.Info("watcher: stopped")
			return nil

		case <-reconcileCh:
			wt.reconcile()

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if ev.Op&fsnotify.Create != 0 {
				if info, statErr := os.Stat(ev.Name); statErr == nil && info.IsDir() {
					if hiddenDir(info.Name()) {
						continue
					}
					if addErr := addDirsRecursive(w, ev.Name); addErr != nil {
						wt.logger.Warn("watcher: add new dir failed",
							slog.String("path", ev.Name),
							slog.String("error", addErr.Error()))
					} else {
						wt.logger.Debug("watcher: watching new dir", slog.String("path", ev.Name))
					}
					wt.indexNewDir(ev.Name)
					continue
				}
			}
			if !storage.IsSceneFile(ev.Name) {
				continue
			}
			rel, relErr := filepath.Rel(wt.root, ev.Name)
			if relErr != nil {
				continue
			}
			rel = filepath.ToSlash(rel)

			switch {
			case ev.Op&(fsnotify.Create|fsnotify.Write) != 0:
				kind := EventUpdated
				if ev.Op&fsnotify.Create != 0 {
					kind = EventCreated
				}
				wt.index(rel, kind)

			case ev.Op&fsnotify.Remove != 0:
				wt.remove(rel)

			case ev.Op&fsnotify.Rename != 0:
				// Rename arrives on the old path only; the new path shows up
				// as a Create when it stays inside a watched directory.
				wt.remove(rel)
				scheduleReconcile()
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			wt.logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

func (wt *Watcher) index(rel, kind string) bool {
	data, err := wt.store.Read(rel)
	if err != nil {
		wt.logger.Warn("watcher: read failed", slog.String("path", rel), slog.String("error", err.Error()))
		return false
	}
	if cs, err := wt.db.GetChecksum(rel); err == nil && cs == checksum.Sum(data) {
		return false
	}
	if err := IndexFile(wt.db, rel, data, wt.defaults); err != nil {
		wt.logger.Warn("watcher: catalog failed", slog.String("path", rel), slog.String("error", err.Error()))
		return false
	}
	wt.logger.Debug("watcher: catalogued", slog.String("path", rel), slog.String("op", kind))
	wt.notify(kind, rel)
	return true
}

func (wt *Watcher) remove(rel string) {
	if err := wt.db.Delete(rel); err != nil {
		wt.logger.Warn("watcher: delete failed", slog.String("path", rel), slog.String("error", err.Error()))
		return
	}
	wt.logger.Debug("watcher: deleted", slog.String("path", rel))
	wt.notify(EventDeleted, rel)
}

func (wt *Watcher) notify(kind, rel string) {
	if wt.cb != nil {
		wt.cb(kind, rel)
	}
}

// reconcile diffs the catalog against the directory using batch lookups.
func (wt *Watcher) reconcile() {
	checksums, err := wt.db.AllChecksums()
	if err != nil {
		wt.logger.Warn("reconcile: all checksums failed", slog.String("error", err.Error()))
		return
	}
	metas, err := wt.store.List("")
	if err != nil {
		wt.logger.Warn("reconcile: list failed", slog.String("error", err.Error()))
		return
	}

	disk := make(map[string]string, len(metas))
	for _, m := range metas {
		disk[m.Path] = m.Checksum
	}
	for p := range checksums {
		if _, ok := disk[p]; !ok {
			wt.remove(p)
		}
	}
	for p, cs := range disk {
		if checksums[p] == cs {
			continue
		}
		wt.index(p, EventCreated)
	}
}

// indexNewDir catalogues the scene files already present in a new directory.
func (wt *Watcher) indexNewDir(dir string) {
	_ = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if path != dir && hiddenDir(d.Name()) {
				return filepath.SkipDir
			}
			return nil
		}
		if !storage.IsSceneFile(path) {
			return nil
		}
		rel, relErr := filepath.Rel(wt.root, path)
		if relErr != nil {
			return nil
		}
		wt.index(filepath.ToSlash(rel), EventCreated)
		return nil
	})
}

// addDirsRecursive adds root and all its subdirectories to the watcher.
func addDirsRecursive(w *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && hiddenDir(d.Name()) {
			return filepath.SkipDir
		}
		return w.Add(path)
	})
}

// hiddenDir reports whether a directory is skipped, like .git.
func hiddenDir(name string) bool {
	return strings.HasPrefix(name, ".")
}
