package catalog

import (
	"log/slog"

	"github.com/starford/forcegraph/internal/checksum"
	"github.com/starford/forcegraph/internal/graph"
	"github.com/starford/forcegraph/internal/ingest"
	"github.com/starford/forcegraph/internal/storage"
)

// Sync walks the scenes directory and brings the catalog up to date:
//   - new/changed files are loaded and upserted
//   - files removed from disk are deleted from the catalog
//
// Files that fail to load are logged and skipped.
func Sync(db SceneIndex, store storage.Provider, defaults graph.Config, logger *slog.Logger) error {
	metas, err := store.List("")
	if err != nil {
		return err
	}

	checksums, err := db.AllChecksums()
	if err != nil {
		return err
	}

	disk := make(map[string]struct{}, len(metas))
	for _, m := range metas {
		disk[m.Path] = struct{}{}

		if checksums[m.Path] == m.Checksum {
			continue
		}

		data, err := store.Read(m.Path)
		if err != nil {
			logger.Warn("sync: read failed", slog.String("path", m.Path), slog.String("error", err.Error()))
			continue
		}
		if err := IndexFile(db, m.Path, data, defaults); err != nil {
			logger.Warn("sync: catalog failed", slog.String("path", m.Path), slog.String("error", err.Error()))
		} else {
			logger.Debug("sync: catalogued", slog.String("path", m.Path))
		}
	}

	for p := range checksums {
		if _, ok := disk[p]; !ok {
			if err := db.Delete(p); err != nil {
				logger.Warn("sync: delete failed", slog.String("path", p), slog.String("error", err.Error()))
			} else {
				logger.Debug("sync: removed stale", slog.String("path", p))
			}
		}
	}

	return nil
}

// IndexFile loads data as a scene and upserts its definition.
func IndexFile(db SceneIndex, path string, data []byte, defaults graph.Config) error {
	s, err := ingest.LoadFile(path, data, defaults)
	if err != nil {
		return err
	}
	return db.Upsert(SceneRow{
		Path:      path,
		ID:        s.ID,
		Name:      s.Name,
		Checksum:  checksum.Sum(data),
		NodeCount: len(s.Graph.Nodes()),
		LinkCount: len(s.Graph.Links()),
	})
}
