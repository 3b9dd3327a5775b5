package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

const (
	originalSubdir  = "original"
	processedSubdir = "processed"
)

// FileStore owns the uploads directory tree. Originals land in
// uploads/original, the worker writes normalized copies to
// uploads/processed.
type FileStore struct {
	baseDir string
}

func NewFileStore(baseDir string) (*FileStore, error) {
	for _, sub := range []string{originalSubdir, processedSubdir} {
		if err := os.MkdirAll(filepath.Join(baseDir, sub), 0o755); err != nil {
			return nil, fmt.Errorf("create upload dir: %w", err)
		}
	}
	return &FileStore{baseDir: baseDir}, nil
}

// SaveOriginal writes the upload under a generated unique name and
// returns the stored path. The original extension is kept for readability
// only; content was already validated by magic bytes.
func (fs *FileStore) SaveOriginal(src io.Reader, originalFilename string) (string, error) {
	ext := strings.ToLower(filepath.Ext(filepath.Base(originalFilename)))
	name := uuid.New().String() + ext
	path := filepath.Join(fs.baseDir, originalSubdir, name)

	dst, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create upload file: %w", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("write upload file: %w", err)
	}

	return path, nil
}

// Remove deletes a stored upload, used when task creation fails after
// the file already landed on disk.
func (fs *FileStore) Remove(path string) error {
	return os.Remove(path)
}
