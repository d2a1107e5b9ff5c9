package tracksource

import (
	"context"
	"os"
	"path/filepath"

	"github.com/samirrijal/racemap/internal/core/domain"
)

// FileSource reads track files below a root directory.
type FileSource struct {
	root string
}

// NewFileSource creates a FileSource rooted at dir.
func NewFileSource(dir string) *FileSource {
	return &FileSource{root: dir}
}

// Fetch reads the file at path relative to the root. Paths cannot escape
// the root.
func (s *FileSource) Fetch(ctx context.Context, path string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", &domain.IOError{Path: path, Err: err}
	}
	full := filepath.Join(s.root, filepath.Clean("/"+path))
	data, err := os.ReadFile(full)
	if err != nil {
		return "", &domain.IOError{Path: path, Err: err}
	}
	return string(data), nil
}
