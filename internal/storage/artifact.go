// Package storage keeps uploaded source files on local disk between
// submission and ingestion.
package storage

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// ArtifactStore abstracts where uploaded files live until the pipeline
// has consumed them.
type ArtifactStore interface {
	Save(filename string, r io.Reader) (string, int64, error)
	ReadLines(location string) ([]string, error)
	Delete(location string)
}

type localStore struct {
	dir string
}

// NewLocalStore creates the upload directory if needed and returns a
// disk-backed store.
func NewLocalStore(dir string) (ArtifactStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload directory: %w", err)
	}
	return &localStore{dir: dir}, nil
}

// Save writes the uploaded bytes under a fresh uuid-based name, keeping
// only the original extension, and returns the location plus byte size.
func (s *localStore) Save(filename string, r io.Reader) (string, int64, error) {
	location := filepath.Join(s.dir, uuid.NewString()+filepath.Ext(filename))

	f, err := os.Create(location)
	if err != nil {
		return "", 0, fmt.Errorf("failed to create artifact: %w", err)
	}

	size, err := io.Copy(f, r)
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(location)
		return "", 0, fmt.Errorf("failed to write artifact: %w", err)
	}

	return location, size, nil
}

func (s *localStore) ReadLines(location string) ([]string, error) {
	f, err := os.Open(location)
	if err != nil {
		return nil, fmt.Errorf("failed to open artifact: %w", err)
	}
	defer f.Close()

	lines := []string{}
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read artifact: %w", err)
	}

	return lines, nil
}

// Delete removes the artifact best-effort. Callers never need to react
// to a failed cleanup.
func (s *localStore) Delete(location string) {
	_ = os.Remove(location)
}
