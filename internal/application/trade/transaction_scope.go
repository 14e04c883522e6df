package trade

import (
	"context"

	"github.com/distrib/backend/internal/domain/catalog"
	"github.com/distrib/backend/internal/domain/trade"
)

// TransactionScope runs order decisions atomically with the stock they move
type TransactionScope interface {
	// Execute commits when fn returns nil and rolls back otherwise
	Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error
}

// TransactionalRepositories share one database transaction
type TransactionalRepositories interface {
	OrderRepo() trade.OrderRepository
	ProductRepo() catalog.ProductRepository
}

// NoOpTransactionScope calls fn directly on the given repositories
type NoOpTransactionScope struct {
	orderRepo   trade.OrderRepository
	productRepo catalog.ProductRepository
}

func NewNoOpTransactionScope(orderRepo trade.OrderRepository, productRepo catalog.ProductRepository) *NoOpTransactionScope {
	return &NoOpTransactionScope{orderRepo: orderRepo, productRepo: productRepo}
}

func (s *NoOpTransactionScope) Execute(_ context.Context, fn func(repos TransactionalRepositories) error) error {
	return fn(s)
}

func (s *NoOpTransactionScope) OrderRepo() trade.OrderRepository {
	return s.orderRepo
}

func (s *NoOpTransactionScope) ProductRepo() catalog.ProductRepository {
	return s.productRepo
}
