package artifacts

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"

	"ai-bom-service/internal/core/domain"
)

// FileSource reads local files. When root is set, locations must resolve
// inside it.
type FileSource struct {
	root string
}

func NewFileSource(root string) (*FileSource, error) {
	if root == "" {
		return &FileSource{}, nil
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	return &FileSource{root: abs}, nil
}

func (s *FileSource) Open(ctx context.Context, location string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path, err := s.resolve(location)
	if err != nil {
		return nil, &domain.IOError{Location: location, Err: err}
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, &domain.IOError{Location: location, Err: err}
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, &domain.IOError{Location: location, Err: err}
	}
	if info.IsDir() {
		f.Close()
		return nil, &domain.IOError{Location: location, Err: errors.New("is a directory")}
	}
	return f, nil
}

func (s *FileSource) resolve(location string) (string, error) {
	path := strings.TrimPrefix(location, "file://")
	if s.root == "" {
		return filepath.Abs(path)
	}
	if !filepath.IsAbs(path) {
		path = filepath.Join(s.root, path)
	}
	path = filepath.Clean(path)
	rel, err := filepath.Rel(s.root, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", errors.New("path escapes artifact root")
	}
	return path, nil
}
