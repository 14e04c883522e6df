package trade

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/distrib/backend/internal/domain/trade"
)

// OrderItemInput requests units of one product
type OrderItemInput struct {
	ProductID uuid.UUID `json:"product_id" binding:"required"`
	Quantity  int64     `json:"quantity" binding:"required,gt=0"`
}

// CreateOrderRequest places an order. DistributorID is only honoured for
// administrators ordering on a distributor's behalf.
type CreateOrderRequest struct {
	DistributorID *uuid.UUID       `json:"distributor_id"`
	Items         []OrderItemInput `json:"items" binding:"required,min=1,dive"`
	Notes         string           `json:"notes" binding:"max=2000"`
}

// RejectOrderRequest carries the administrator's reason
type RejectOrderRequest struct {
	Reason string `json:"reason" binding:"max=1000"`
}

// OrderListFilter lists orders. Nil fields leave that condition out.
type OrderListFilter struct {
	DistributorID *uuid.UUID
	Status        string
	CreatedFrom   *time.Time
	CreatedBefore *time.Time
	Page          int
	PageSize      int
}

type OrderItemResponse struct {
	ID          uuid.UUID       `json:"id"`
	ProductID   uuid.UUID       `json:"product_id"`
	ProductName string          `json:"product_name"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Quantity    int64           `json:"quantity"`
	Amount      decimal.Decimal `json:"amount"`
}

// OrderResponse is the API view of an order
type OrderResponse struct {
	ID              uuid.UUID           `json:"id"`
	OrderNumber     string              `json:"order_number"`
	DistributorID   uuid.UUID           `json:"distributor_id"`
	Status          string              `json:"status"`
	Received        bool                `json:"received"`
	ReceivedAt      *time.Time          `json:"received_at,omitempty"`
	TotalAmount     decimal.Decimal     `json:"total_amount"`
	Items           []OrderItemResponse `json:"items"`
	DecidedBy       *uuid.UUID          `json:"decided_by,omitempty"`
	DecidedAt       *time.Time          `json:"decided_at,omitempty"`
	RejectionReason string              `json:"rejection_reason,omitempty"`
	Notes           string              `json:"notes,omitempty"`
	Version         int                 `json:"version"`
	CreatedAt       time.Time           `json:"created_at"`
	UpdatedAt       time.Time           `json:"updated_at"`
}

func ToOrderResponse(o *trade.Order) OrderResponse {
	items := make([]OrderItemResponse, 0, len(o.Items))
	for _, item := range o.Items {
		items = append(items, OrderItemResponse{
			ID:          item.ID,
			ProductID:   item.ProductID,
			ProductName: item.ProductName,
			UnitPrice:   item.UnitPrice,
			Quantity:    item.Quantity,
			Amount:      item.Amount,
		})
	}
	return OrderResponse{
		ID:              o.ID,
		OrderNumber:     o.OrderNumber,
		DistributorID:   o.DistributorID,
		Status:          string(o.Status),
		Received:        o.Received,
		ReceivedAt:      o.ReceivedAt,
		TotalAmount:     o.TotalAmount,
		Items:           items,
		DecidedBy:       o.DecidedBy,
		DecidedAt:       o.DecidedAt,
		RejectionReason: o.RejectionReason,
		Notes:           o.Notes,
		Version:         o.Version,
		CreatedAt:       o.CreatedAt,
		UpdatedAt:       o.UpdatedAt,
	}
}
