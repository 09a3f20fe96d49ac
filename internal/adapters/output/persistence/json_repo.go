package persistence

import (
	"bytes"
	"context"
	"encoding/json"
	"homehub/internal/domain/model"
	"os"
	"path/filepath"
	"sync"
)

type JSONCatalogRepository struct {
	filepath string
	mu       sync.RWMutex
}

func NewJSONCatalogRepository(filepath string) *JSONCatalogRepository {
	return &JSONCatalogRepository{filepath: filepath}
}

// Get returns an empty catalog when the file does not exist yet.
func (r *JSONCatalogRepository) Get(ctx context.Context) (*model.CatalogFile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	data, err := os.ReadFile(r.filepath)
	if err != nil {
		if os.IsNotExist(err) {
			return &model.CatalogFile{}, nil
		}
		return nil, err
	}

	// Early catalogs were a bare array of devices.
	if trimmed := bytes.TrimSpace(data); len(trimmed) > 0 && trimmed[0] == '[' {
		return r.migrate(trimmed)
	}

	var file model.CatalogFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, err
	}
	return &file, nil
}

func (r *JSONCatalogRepository) migrate(data []byte) (*model.CatalogFile, error) {
	var devices []model.DeviceSpec
	if err := json.Unmarshal(data, &devices); err != nil {
		return nil, err
	}
	return &model.CatalogFile{Devices: devices}, nil
}

func (r *JSONCatalogRepository) Save(ctx context.Context, catalog *model.CatalogFile) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	data, err := json.MarshalIndent(catalog, "", "  ")
	if err != nil {
		return err
	}
	if dir := filepath.Dir(r.filepath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return os.WriteFile(r.filepath, data, 0644)
}
