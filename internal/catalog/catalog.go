package catalog

// SceneIndex defines the catalog operations used by the sync pass, the
// watcher and the scene service. They depend on this interface rather
// than *DB.
type SceneIndex interface {
	Upsert(r SceneRow) error
	Delete(path string) error
	GetChecksum(path string) (string, error)
	Get(id string) (*SceneRow, error)
	List() ([]SceneRow, error)
	AllChecksums() (map[string]string, error)
	Close() error
}

var _ SceneIndex = (*DB)(nil)
