package productRepo

import (
	"context"

	"marketplace/models"
)

// ProductRepository is the catalog as seen by the order pipeline.
type ProductRepository interface {
	// GetByIDs resolves ids in one query. Unknown ids are absent from the result.
	GetByIDs(ctx context.Context, ids []string) (map[string]models.Product, error)
	// Create inserts a catalog entry.
	Create(ctx context.Context, product *models.Product) error
}
