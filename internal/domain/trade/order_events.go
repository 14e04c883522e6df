package trade

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/distrib/backend/internal/domain/shared"
)

const AggregateTypeOrder = "Order"

const (
	EventTypeOrderCreated  = "OrderCreated"
	EventTypeOrderApproved = "OrderApproved"
	EventTypeOrderRejected = "OrderRejected"
	EventTypeOrderReceived = "OrderReceived"
	EventTypeOrderDeleted  = "OrderDeleted"
)

// OrderLineSnapshot is the event form of an order line
type OrderLineSnapshot struct {
	ProductID uuid.UUID `json:"product_id"`
	Quantity  int64     `json:"quantity"`
}

func snapshotLines(o *Order) []OrderLineSnapshot {
	lines := make([]OrderLineSnapshot, 0, len(o.Items))
	for _, item := range o.Items {
		lines = append(lines, OrderLineSnapshot{ProductID: item.ProductID, Quantity: item.Quantity})
	}
	return lines
}

type OrderCreatedEvent struct {
	shared.BaseDomainEvent
	OrderNumber   string              `json:"order_number"`
	DistributorID uuid.UUID           `json:"distributor_id"`
	TotalAmount   decimal.Decimal     `json:"total_amount"`
	Lines         []OrderLineSnapshot `json:"lines"`
}

func NewOrderCreatedEvent(o *Order) *OrderCreatedEvent {
	return &OrderCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeOrderCreated, AggregateTypeOrder, o.ID),
		OrderNumber:     o.OrderNumber,
		DistributorID:   o.DistributorID,
		TotalAmount:     o.TotalAmount,
		Lines:           snapshotLines(o),
	}
}

type OrderApprovedEvent struct {
	shared.BaseDomainEvent
	DistributorID uuid.UUID           `json:"distributor_id"`
	ApprovedBy    uuid.UUID           `json:"approved_by"`
	Lines         []OrderLineSnapshot `json:"lines"`
}

func NewOrderApprovedEvent(o *Order) *OrderApprovedEvent {
	return &OrderApprovedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeOrderApproved, AggregateTypeOrder, o.ID),
		DistributorID:   o.DistributorID,
		ApprovedBy:      *o.DecidedBy,
		Lines:           snapshotLines(o),
	}
}

type OrderRejectedEvent struct {
	shared.BaseDomainEvent
	DistributorID uuid.UUID `json:"distributor_id"`
	RejectedBy    uuid.UUID `json:"rejected_by"`
	Reason        string    `json:"reason,omitempty"`
}

func NewOrderRejectedEvent(o *Order) *OrderRejectedEvent {
	return &OrderRejectedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeOrderRejected, AggregateTypeOrder, o.ID),
		DistributorID:   o.DistributorID,
		RejectedBy:      *o.DecidedBy,
		Reason:          o.RejectionReason,
	}
}

type OrderReceivedEvent struct {
	shared.BaseDomainEvent
	DistributorID uuid.UUID `json:"distributor_id"`
}

func NewOrderReceivedEvent(o *Order) *OrderReceivedEvent {
	return &OrderReceivedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeOrderReceived, AggregateTypeOrder, o.ID),
		DistributorID:   o.DistributorID,
	}
}

type OrderDeletedEvent struct {
	shared.BaseDomainEvent
	DistributorID uuid.UUID             `json:"distributor_id"`
	Status        shared.ApprovalStatus `json:"status"`
	StockRestored bool                  `json:"stock_restored"`
	Lines         []OrderLineSnapshot   `json:"lines"`
}

func NewOrderDeletedEvent(o *Order, stockRestored bool) *OrderDeletedEvent {
	return &OrderDeletedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeOrderDeleted, AggregateTypeOrder, o.ID),
		DistributorID:   o.DistributorID,
		Status:          o.Status,
		StockRestored:   stockRestored,
		Lines:           snapshotLines(o),
	}
}
