package services

import (
	"context"

	"github.com/skillforge/skillforge-backend/internal/catalog"
	"github.com/skillforge/skillforge-backend/internal/platform/logger"
)

// CatalogService fronts the catalog read model.
type CatalogService struct {
	catalog *catalog.Catalog
	log     *logger.Logger
}

func NewCatalogService(c *catalog.Catalog, baseLog *logger.Logger) *CatalogService {
	return &CatalogService{
		catalog: c,
		log:     baseLog.With("service", "CatalogService"),
	}
}

func (s *CatalogService) Search(ctx context.Context, q catalog.Query) (*catalog.Page, error) {
	return s.catalog.Search(ctx, q)
}
