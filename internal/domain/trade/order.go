// Package trade covers the purchase orders through which distributors
// receive stock from the warehouse.
package trade

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/distrib/backend/internal/domain/identity"
	"github.com/distrib/backend/internal/domain/reconciliation"
	"github.com/distrib/backend/internal/domain/shared"
	"github.com/distrib/backend/internal/domain/shared/valueobject"
)

// OrderItem is an immutable snapshot of a product at the moment of ordering
type OrderItem struct {
	ID          uuid.UUID
	OrderID     uuid.UUID
	ProductID   uuid.UUID
	ProductName string
	UnitPrice   decimal.Decimal
	Quantity    int64
	Amount      decimal.Decimal
}

// ItemInput describes one requested line, priced from the catalog
type ItemInput struct {
	ProductID   uuid.UUID
	ProductName string
	UnitPrice   valueobject.Money
	Quantity    int64
}

// Order is a distributor's request for stock
type Order struct {
	shared.BaseAggregateRoot
	OrderNumber     string
	DistributorID   uuid.UUID
	Items           []OrderItem
	TotalAmount     decimal.Decimal
	Status          shared.ApprovalStatus
	Received        bool
	ReceivedAt      *time.Time
	DecidedBy       *uuid.UUID
	DecidedAt       *time.Time
	RejectionReason string
	Notes           string
}

// NewOrder creates a PENDING order placed at orderedAt. Each product may
// appear once.
func NewOrder(distributorID uuid.UUID, orderedAt time.Time, items []ItemInput, notes string) (*Order, error) {
	if distributorID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_DISTRIBUTOR", "Distributor cannot be empty")
	}
	if len(items) == 0 {
		return nil, shared.NewDomainError("EMPTY_ORDER", "Order must have at least one item")
	}

	order := &Order{
		BaseAggregateRoot: shared.NewBaseAggregateRootAt(shared.NewBaseEntityAt(orderedAt)),
		DistributorID:     distributorID,
		Status:            shared.StatusPending,
		TotalAmount:       decimal.Zero,
		Notes:             strings.TrimSpace(notes),
	}
	order.OrderNumber = formatOrderNumber(orderedAt, order.ID)

	seen := make(map[uuid.UUID]struct{}, len(items))
	for _, in := range items {
		if in.ProductID == uuid.Nil {
			return nil, shared.NewDomainError("INVALID_PRODUCT", "Product cannot be empty")
		}
		if _, dup := seen[in.ProductID]; dup {
			return nil, shared.NewDomainError("DUPLICATE_PRODUCT", fmt.Sprintf("Product %s appears more than once", in.ProductName))
		}
		seen[in.ProductID] = struct{}{}
		if in.Quantity <= 0 {
			return nil, shared.NewDomainError("INVALID_QUANTITY", "Quantity must be positive")
		}

		amount := in.UnitPrice.Times(in.Quantity).Amount()
		order.Items = append(order.Items, OrderItem{
			ID:          uuid.New(),
			OrderID:     order.ID,
			ProductID:   in.ProductID,
			ProductName: in.ProductName,
			UnitPrice:   in.UnitPrice.Amount(),
			Quantity:    in.Quantity,
			Amount:      amount,
		})
		order.TotalAmount = order.TotalAmount.Add(amount)
	}

	order.AddDomainEvent(NewOrderCreatedEvent(order))
	return order, nil
}

// formatOrderNumber renders ORD-YYYYMMDD-XXXXXX
func formatOrderNumber(at time.Time, id uuid.UUID) string {
	return fmt.Sprintf("ORD-%s-%s", at.Format("20060102"), strings.ToUpper(id.String()[:6]))
}

// Approve records the administrator's approval. Stock is deducted by the
// caller in the same transaction.
func (o *Order) Approve(adminID uuid.UUID) error {
	if err := o.decide(shared.StatusApproved, adminID); err != nil {
		return err
	}
	o.AddDomainEvent(NewOrderApprovedEvent(o))
	return nil
}

// Reject records the administrator's rejection
func (o *Order) Reject(adminID uuid.UUID, reason string) error {
	if err := o.decide(shared.StatusRejected, adminID); err != nil {
		return err
	}
	o.RejectionReason = strings.TrimSpace(reason)
	o.AddDomainEvent(NewOrderRejectedEvent(o))
	return nil
}

func (o *Order) decide(target shared.ApprovalStatus, adminID uuid.UUID) error {
	if !o.Status.CanTransitionTo(target) {
		return shared.NewDomainError(shared.ErrInvalidState.Code,
			fmt.Sprintf("Cannot move order from %s to %s", o.Status, target))
	}
	now := time.Now()
	o.Status = target
	o.DecidedBy = &adminID
	o.DecidedAt = &now
	o.IncrementVersion()
	return nil
}

// MarkReceived flags the physical handoff. It is independent of the approval
// status and does not affect reconciliation.
func (o *Order) MarkReceived() error {
	if o.Status == shared.StatusRejected {
		return shared.NewDomainError(shared.ErrInvalidState.Code, "A rejected order cannot be received")
	}
	if o.Received {
		return nil
	}
	now := time.Now()
	o.Received = true
	o.ReceivedAt = &now
	o.IncrementVersion()
	o.AddDomainEvent(NewOrderReceivedEvent(o))
	return nil
}

// CheckDeletableBy enforces who may delete the order: administrators always,
// the owning distributor only while PENDING.
func (o *Order) CheckDeletableBy(actor identity.Actor) error {
	if actor.IsAdmin() {
		return nil
	}
	if !actor.Owns(o.DistributorID) {
		return shared.ErrForbidden
	}
	if o.Status != shared.StatusPending {
		return shared.NewDomainError(shared.ErrInvalidState.Code, "Only pending orders can be deleted")
	}
	return nil
}

// MarkDeleted raises the deletion event. StockRestored tells listeners
// whether the warehouse got units back.
func (o *Order) MarkDeleted(stockRestored bool) {
	o.AddDomainEvent(NewOrderDeletedEvent(o, stockRestored))
}

// HoldsStock reports whether the order's units left the warehouse
func (o *Order) HoldsStock() bool {
	return o.Status == shared.StatusApproved
}

// QuantityOf returns the ordered units of productID
func (o *Order) QuantityOf(productID uuid.UUID) int64 {
	var total int64
	for _, item := range o.Items {
		if item.ProductID == productID {
			total += item.Quantity
		}
	}
	return total
}

// ProductIDs returns the distinct products on the order in line order
func (o *Order) ProductIDs() []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(o.Items))
	for _, item := range o.Items {
		ids = append(ids, item.ProductID)
	}
	return ids
}

// LedgerEntry projects the order for reconciliation
func (o *Order) LedgerEntry() reconciliation.OrderEntry {
	lines := make([]reconciliation.OrderLine, 0, len(o.Items))
	for _, item := range o.Items {
		lines = append(lines, reconciliation.OrderLine{ProductID: item.ProductID, Quantity: item.Quantity})
	}
	return reconciliation.OrderEntry{
		OrderID:       o.ID,
		DistributorID: o.DistributorID,
		Status:        o.Status,
		CreatedAt:     o.CreatedAt,
		Lines:         lines,
	}
}
