// Package trade orchestrates distributor orders and the warehouse stock
// they draw on.
package trade

import (
	"bytes"
	"context"
	"errors"
	"slices"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/distrib/backend/internal/domain/catalog"
	"github.com/distrib/backend/internal/domain/identity"
	"github.com/distrib/backend/internal/domain/shared"
	"github.com/distrib/backend/internal/domain/trade"
	"github.com/distrib/backend/internal/infrastructure/logger"
	"github.com/distrib/backend/internal/infrastructure/telemetry"
)

// OrderService handles the order lifecycle
type OrderService struct {
	orderRepo      trade.OrderRepository
	productRepo    catalog.ProductRepository
	txScope        TransactionScope
	eventPublisher shared.EventPublisher
	metrics        *telemetry.ReconciliationMetrics
	now            func() time.Time
}

func NewOrderService(orderRepo trade.OrderRepository, productRepo catalog.ProductRepository, txScope TransactionScope) *OrderService {
	return &OrderService{
		orderRepo:   orderRepo,
		productRepo: productRepo,
		txScope:     txScope,
		now:         time.Now,
	}
}

// SetEventPublisher sets the publisher for order and stock events
func (s *OrderService) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// SetMetrics enables decision counters
func (s *OrderService) SetMetrics(metrics *telemetry.ReconciliationMetrics) {
	s.metrics = metrics
}

// SetClock overrides the time source used to stamp new orders
func (s *OrderService) SetClock(now func() time.Time) {
	s.now = now
}

// Create places a PENDING order priced from the current catalog
func (s *OrderService) Create(ctx context.Context, actor identity.Actor, req CreateOrderRequest) (*OrderResponse, error) {
	distributorID, err := orderingDistributor(actor, req.DistributorID)
	if err != nil {
		return nil, err
	}

	ids := make([]uuid.UUID, 0, len(req.Items))
	for _, item := range req.Items {
		ids = append(ids, item.ProductID)
	}
	products, err := s.productRepo.FindByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[uuid.UUID]*catalog.Product, len(products))
	for i := range products {
		byID[products[i].ID] = &products[i]
	}

	inputs := make([]trade.ItemInput, 0, len(req.Items))
	for _, item := range req.Items {
		product, ok := byID[item.ProductID]
		if !ok {
			return nil, shared.NewDomainError(shared.ErrNotFound.Code, "Product "+item.ProductID.String()+" does not exist")
		}
		inputs = append(inputs, trade.ItemInput{
			ProductID:   product.ID,
			ProductName: product.Name,
			UnitPrice:   product.Price(),
			Quantity:    item.Quantity,
		})
	}

	order, err := trade.NewOrder(distributorID, s.now(), inputs, req.Notes)
	if err != nil {
		return nil, err
	}
	if err := s.orderRepo.Save(ctx, order); err != nil {
		return nil, err
	}
	s.publish(ctx, order)

	logger.FromContext(ctx).Info("order created",
		zap.String("order_id", order.ID.String()),
		zap.String("order_number", order.OrderNumber),
		zap.String("distributor_id", distributorID.String()),
	)
	resp := ToOrderResponse(order)
	return &resp, nil
}

func orderingDistributor(actor identity.Actor, requested *uuid.UUID) (uuid.UUID, error) {
	if actor.IsAdmin() {
		if requested == nil || *requested == uuid.Nil {
			return uuid.Nil, shared.NewDomainError(shared.ErrInvalidInput.Code, "distributor_id is required when ordering as administrator")
		}
		return *requested, nil
	}
	if requested != nil && *requested != uuid.Nil && *requested != actor.UserID {
		return uuid.Nil, shared.ErrForbidden
	}
	return actor.DistributorID(), nil
}

// Approve deducts the ordered units from the warehouse and approves the
// order in one transaction. Either both happen or neither does.
func (s *OrderService) Approve(ctx context.Context, actor identity.Actor, id uuid.UUID) (*OrderResponse, error) {
	if !actor.IsAdmin() {
		return nil, shared.ErrForbidden
	}
	ctx, span := telemetry.StartServiceSpan(ctx, "order", "approve", telemetry.AttrOrderID.String(id.String()))
	defer span.End()

	var order *trade.Order
	var touched []*catalog.Product
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		order, err = repos.OrderRepo().FindByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if err := order.Approve(actor.UserID); err != nil {
			return err
		}

		for _, productID := range lockOrder(order.ProductIDs()) {
			product, err := repos.ProductRepo().FindByIDForUpdate(ctx, productID)
			if err != nil {
				if errors.Is(err, shared.ErrNotFound) {
					return shared.NewDomainError(shared.ErrInvalidState.Code, "Ordered product no longer exists")
				}
				return err
			}
			if err := product.DeductStock(order.QuantityOf(productID)); err != nil {
				return err
			}
			if err := repos.ProductRepo().Save(ctx, product); err != nil {
				return err
			}
			touched = append(touched, product)
		}
		return repos.OrderRepo().Save(ctx, order)
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	for _, product := range touched {
		s.publish(ctx, product)
	}
	s.publish(ctx, order)
	if s.metrics != nil {
		s.metrics.RecordOrderDecision(ctx, string(shared.StatusApproved))
	}

	logger.FromContext(ctx).Info("order approved",
		zap.String("order_id", order.ID.String()),
		zap.String("approved_by", actor.UserID.String()),
	)
	resp := ToOrderResponse(order)
	return &resp, nil
}

// lockOrder sorts product ids so concurrent approvals lock rows in the same
// order.
func lockOrder(ids []uuid.UUID) []uuid.UUID {
	sorted := slices.Clone(ids)
	slices.SortFunc(sorted, func(a, b uuid.UUID) int { return bytes.Compare(a[:], b[:]) })
	return slices.Compact(sorted)
}

// Reject closes a PENDING order without touching stock
func (s *OrderService) Reject(ctx context.Context, actor identity.Actor, id uuid.UUID, req RejectOrderRequest) (*OrderResponse, error) {
	if !actor.IsAdmin() {
		return nil, shared.ErrForbidden
	}
	order, err := s.orderRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := order.Reject(actor.UserID, req.Reason); err != nil {
		return nil, err
	}
	if err := s.orderRepo.Save(ctx, order); err != nil {
		return nil, err
	}
	s.publish(ctx, order)
	if s.metrics != nil {
		s.metrics.RecordOrderDecision(ctx, string(shared.StatusRejected))
	}

	resp := ToOrderResponse(order)
	return &resp, nil
}

// MarkReceived records the physical handoff
func (s *OrderService) MarkReceived(ctx context.Context, actor identity.Actor, id uuid.UUID) (*OrderResponse, error) {
	order, err := s.orderRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.CanView(order.DistributorID) {
		return nil, shared.ErrForbidden
	}
	if err := order.MarkReceived(); err != nil {
		return nil, err
	}
	if err := s.orderRepo.Save(ctx, order); err != nil {
		return nil, err
	}
	s.publish(ctx, order)

	resp := ToOrderResponse(order)
	return &resp, nil
}

// Delete removes an order. Units of an APPROVED order go back to the
// warehouse in the same transaction; products that no longer exist are
// skipped.
func (s *OrderService) Delete(ctx context.Context, actor identity.Actor, id uuid.UUID) error {
	var order *trade.Order
	var touched []*catalog.Product
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		order, err = repos.OrderRepo().FindByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if err := order.CheckDeletableBy(actor); err != nil {
			return err
		}

		if order.HoldsStock() {
			for _, productID := range lockOrder(order.ProductIDs()) {
				product, err := repos.ProductRepo().FindByIDForUpdate(ctx, productID)
				if errors.Is(err, shared.ErrNotFound) {
					continue
				}
				if err != nil {
					return err
				}
				if err := product.RestoreStock(order.QuantityOf(productID)); err != nil {
					return err
				}
				if err := repos.ProductRepo().Save(ctx, product); err != nil {
					return err
				}
				touched = append(touched, product)
			}
		}
		return repos.OrderRepo().Delete(ctx, order.ID)
	})
	if err != nil {
		return err
	}

	order.MarkDeleted(order.HoldsStock())
	for _, product := range touched {
		s.publish(ctx, product)
	}
	s.publish(ctx, order)

	logger.FromContext(ctx).Info("order deleted",
		zap.String("order_id", order.ID.String()),
		zap.Bool("stock_restored", order.HoldsStock()),
	)
	return nil
}

// GetByID returns an order visible to actor
func (s *OrderService) GetByID(ctx context.Context, actor identity.Actor, id uuid.UUID) (*OrderResponse, error) {
	order, err := s.orderRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.CanView(order.DistributorID) {
		return nil, shared.ErrForbidden
	}
	resp := ToOrderResponse(order)
	return &resp, nil
}

// List returns a page of orders, newest first. Distributors only see their own.
func (s *OrderService) List(ctx context.Context, actor identity.Actor, filter OrderListFilter) ([]OrderResponse, int64, error) {
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 20
	}
	domainFilter := shared.Filter{
		Page:     filter.Page,
		PageSize: filter.PageSize,
		OrderBy:  "created_at",
		OrderDir: "desc",
		Filters:  make(map[string]any),
	}
	if !actor.IsAdmin() {
		domainFilter.Filters["distributor_id"] = actor.DistributorID()
	} else if filter.DistributorID != nil {
		domainFilter.Filters["distributor_id"] = *filter.DistributorID
	}
	if filter.Status != "" {
		domainFilter.Filters["status"] = shared.ApprovalStatus(filter.Status)
	}
	if filter.CreatedFrom != nil {
		domainFilter.Filters["created_from"] = *filter.CreatedFrom
	}
	if filter.CreatedBefore != nil {
		domainFilter.Filters["created_before"] = *filter.CreatedBefore
	}

	orders, err := s.orderRepo.FindAll(ctx, domainFilter)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.orderRepo.Count(ctx, domainFilter)
	if err != nil {
		return nil, 0, err
	}

	out := make([]OrderResponse, 0, len(orders))
	for i := range orders {
		out = append(out, ToOrderResponse(&orders[i]))
	}
	return out, total, nil
}

func (s *OrderService) publish(ctx context.Context, aggregate shared.AggregateRoot) {
	events := aggregate.GetDomainEvents()
	aggregate.ClearDomainEvents()
	if s.eventPublisher == nil || len(events) == 0 {
		return
	}
	if err := s.eventPublisher.Publish(ctx, events...); err != nil {
		logger.FromContext(ctx).Warn("failed to publish order events", zap.Error(err))
	}
}
