package ports

import (
	"context"
	"homehub/internal/domain/model"
)

type CatalogRepository interface {
	Get(ctx context.Context) (*model.CatalogFile, error)
	Save(ctx context.Context, catalog *model.CatalogFile) error
}

// CatalogPort stores an edited device catalog. Changes apply on restart.
type CatalogPort interface {
	Save(ctx context.Context, catalog *model.CatalogFile) error
}
