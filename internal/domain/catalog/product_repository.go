package catalog

import (
	"context"

	"github.com/google/uuid"

	"github.com/distrib/backend/internal/domain/shared"
)

// ProductRepository persists products
type ProductRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Product, error)
	// FindByIDForUpdate locks the row for the rest of the transaction
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*Product, error)
	// FindByIDs returns the products that exist; unknown ids are skipped
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]Product, error)
	// FindAll understands Search (name contains)
	FindAll(ctx context.Context, filter shared.Filter) ([]Product, error)
	Count(ctx context.Context, filter shared.Filter) (int64, error)
	ExistsByName(ctx context.Context, name string) (bool, error)
	Save(ctx context.Context, product *Product) error
	Delete(ctx context.Context, id uuid.UUID) error
}
