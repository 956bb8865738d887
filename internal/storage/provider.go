// Package storage defines the scene directory abstraction.
package storage

import (
	"path/filepath"
	"strings"

	"github.com/starford/forcegraph/internal/models"
)

// Provider is the interface for scene file operations.
type Provider interface {
	// List returns metadata for every scene file under dir (relative to the scenes root).
	List(dir string) ([]models.SceneMetadata, error)
	// Read returns the raw bytes of the file at path (relative to the scenes root).
	Read(path string) ([]byte, error)
	// Write atomically writes content to path (relative to the scenes root).
	Write(path string, content []byte) error
	// Delete removes the file at path (relative to the scenes root).
	Delete(path string) error
}

// IsSceneFile reports whether name has a scene file extension.
func IsSceneFile(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".yaml", ".yml", ".json":
		return !strings.HasPrefix(filepath.Base(name), ".")
	}
	return false
}
