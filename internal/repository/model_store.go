package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/yourusername/skycast/internal/models"
)

const metadataFile = "metadata.json"

// FileModelStore implements ModelStore on the local filesystem. Each artifact
// is a JSON blob in its own file under the base directory; writes go through
// a temp file and rename so readers never see a partial artifact.
type FileModelStore struct {
	dir string
}

// NewFileModelStore creates a model store rooted at dir, creating it if needed
func NewFileModelStore(dir string) (*FileModelStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create model directory: %w", err)
	}
	return &FileModelStore{dir: dir}, nil
}

// SaveArtifact writes a blob under the given key
func (s *FileModelStore) SaveArtifact(_ context.Context, key string, blob []byte) error {
	return s.writeFile(artifactFileName(key), blob)
}

// LoadArtifact reads the blob stored under the given key
func (s *FileModelStore) LoadArtifact(_ context.Context, key string) ([]byte, error) {
	blob, err := os.ReadFile(filepath.Join(s.dir, artifactFileName(key)))
	if os.IsNotExist(err) {
		return nil, models.ErrModelNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read model artifact %q: %w", key, err)
	}
	return blob, nil
}

// SaveMetadata writes the snapshot metadata
func (s *FileModelStore) SaveMetadata(_ context.Context, meta *ModelMetadata) error {
	blob, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal model metadata: %w", err)
	}
	return s.writeFile(metadataFile, blob)
}

// LoadMetadata reads the snapshot metadata
func (s *FileModelStore) LoadMetadata(_ context.Context) (*ModelMetadata, error) {
	blob, err := os.ReadFile(filepath.Join(s.dir, metadataFile))
	if os.IsNotExist(err) {
		return nil, models.ErrModelNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read model metadata: %w", err)
	}

	meta := &ModelMetadata{}
	if err := json.Unmarshal(blob, meta); err != nil {
		return nil, fmt.Errorf("failed to unmarshal model metadata: %w", err)
	}
	return meta, nil
}

func (s *FileModelStore) writeFile(name string, blob []byte) error {
	path := filepath.Join(s.dir, name)
	tmp := path + ".tmp"

	if err := os.WriteFile(tmp, blob, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", name, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to replace %s: %w", name, err)
	}
	return nil
}

func artifactFileName(key string) string {
	// Keys like "temperature/linear" become path-safe file names.
	safe := strings.ReplaceAll(key, string(os.PathSeparator), "_")
	safe = strings.ReplaceAll(safe, "/", "_")
	return safe + ".json"
}
