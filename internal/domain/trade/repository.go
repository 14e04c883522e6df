package trade

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/distrib/backend/internal/domain/shared"
)

// OrderRepository persists orders with their items
type OrderRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Order, error)
	// FindByIDForUpdate locks the order row for the rest of the transaction
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*Order, error)
	// FindAll understands the filter keys "distributor_id", "status",
	// "created_from" and "created_before"
	FindAll(ctx context.Context, filter shared.Filter) ([]Order, error)
	Count(ctx context.Context, filter shared.Filter) (int64, error)
	// FindByDistributor lists a distributor's orders with a status in
	// statuses (all when empty) created in [from, before). Zero times leave
	// that bound open. Items are always loaded.
	FindByDistributor(ctx context.Context, distributorID uuid.UUID, statuses []shared.ApprovalStatus, from, before time.Time) ([]Order, error)
	Save(ctx context.Context, order *Order) error
	Delete(ctx context.Context, id uuid.UUID) error
}
