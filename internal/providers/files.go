package providers

import (
	"os"
	"path/filepath"
)

// OSFileReader reads files from disk, anchoring relative paths at Base.
type OSFileReader struct {
	Base string
}

func (r OSFileReader) resolve(path string) string {
	if filepath.IsAbs(path) || r.Base == "" {
		return path
	}
	return filepath.Join(r.Base, path)
}

// Read implements registry.FileReader.
func (r OSFileReader) Read(path string) ([]byte, error) {
	return os.ReadFile(r.resolve(path))
}

// Exists implements registry.FileReader.
func (r OSFileReader) Exists(path string) bool {
	_, err := os.Stat(r.resolve(path))
	return err == nil
}
