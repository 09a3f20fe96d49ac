package service

import (
	"context"
	"fmt"
	"homehub/internal/domain/model"
	"homehub/internal/ports"
)

type CatalogService struct {
	repo ports.CatalogRepository
}

func NewCatalogService(repo ports.CatalogRepository) *CatalogService {
	return &CatalogService{repo: repo}
}

// Load reads the stored catalog. An empty store is seeded with the default
// devices so the file can be edited afterwards.
func (s *CatalogService) Load(ctx context.Context) (*model.Catalog, error) {
	file, err := s.repo.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}
	if len(file.Devices) == 0 {
		file = &model.CatalogFile{Devices: model.DefaultDevices()}
		if err := s.repo.Save(ctx, file); err != nil {
			return nil, fmt.Errorf("seed catalog: %w", err)
		}
	}
	return model.NewCatalog(file.Devices)
}

// Save validates before writing so a bad catalog never reaches disk.
func (s *CatalogService) Save(ctx context.Context, file *model.CatalogFile) error {
	if _, err := model.NewCatalog(file.Devices); err != nil {
		return fmt.Errorf("%w: %v", ports.ErrMalformedMessage, err)
	}
	return s.repo.Save(ctx, file)
}
