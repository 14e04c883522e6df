package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/distrib/backend/internal/domain/shared"
	"github.com/distrib/backend/internal/domain/trade"
)

// OrderModel is the persistence model for trade.Order
type OrderModel struct {
	AggregateModel
	OrderNumber     string                `gorm:"type:varchar(40);not null;uniqueIndex"`
	DistributorID   uuid.UUID             `gorm:"type:uuid;not null;index:idx_orders_distributor_created,priority:1"`
	TotalAmount     decimal.Decimal       `gorm:"type:decimal(18,4);not null;default:0"`
	Status          shared.ApprovalStatus `gorm:"type:varchar(20);not null;index"`
	Received        bool                  `gorm:"not null;default:false"`
	ReceivedAt      *time.Time
	DecidedBy       *uuid.UUID `gorm:"type:uuid"`
	DecidedAt       *time.Time
	RejectionReason string           `gorm:"type:text"`
	Notes           string           `gorm:"type:text"`
	Items           []OrderItemModel `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
}

func (OrderModel) TableName() string {
	return "orders"
}

// OrderItemModel is one line of an order
type OrderItemModel struct {
	ID          uuid.UUID       `gorm:"type:uuid;primaryKey"`
	OrderID     uuid.UUID       `gorm:"type:uuid;not null;index"`
	ProductID   uuid.UUID       `gorm:"type:uuid;not null;index"`
	ProductName string          `gorm:"type:varchar(200);not null"`
	UnitPrice   decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	Quantity    int64           `gorm:"not null"`
	Amount      decimal.Decimal `gorm:"type:decimal(18,4);not null"`
}

func (OrderItemModel) TableName() string {
	return "order_items"
}

// ToDomain converts the row and its loaded items to a domain Order
func (m *OrderModel) ToDomain() *trade.Order {
	o := &trade.Order{
		BaseAggregateRoot: m.toDomain(),
		OrderNumber:       m.OrderNumber,
		DistributorID:     m.DistributorID,
		TotalAmount:       m.TotalAmount,
		Status:            m.Status,
		Received:          m.Received,
		ReceivedAt:        utcPtr(m.ReceivedAt),
		DecidedBy:         m.DecidedBy,
		DecidedAt:         utcPtr(m.DecidedAt),
		RejectionReason:   m.RejectionReason,
		Notes:             m.Notes,
		Items:             make([]trade.OrderItem, 0, len(m.Items)),
	}
	for _, item := range m.Items {
		o.Items = append(o.Items, trade.OrderItem{
			ID:          item.ID,
			OrderID:     item.OrderID,
			ProductID:   item.ProductID,
			ProductName: item.ProductName,
			UnitPrice:   item.UnitPrice,
			Quantity:    item.Quantity,
			Amount:      item.Amount,
		})
	}
	return o
}

// OrderModelFromDomain creates a row with its items from a domain Order
func OrderModelFromDomain(o *trade.Order) *OrderModel {
	m := &OrderModel{
		OrderNumber:     o.OrderNumber,
		DistributorID:   o.DistributorID,
		TotalAmount:     o.TotalAmount,
		Status:          o.Status,
		Received:        o.Received,
		ReceivedAt:      utcPtr(o.ReceivedAt),
		DecidedBy:       o.DecidedBy,
		DecidedAt:       utcPtr(o.DecidedAt),
		RejectionReason: o.RejectionReason,
		Notes:           o.Notes,
		Items:           make([]OrderItemModel, 0, len(o.Items)),
	}
	m.fromDomain(o.BaseAggregateRoot)
	for _, item := range o.Items {
		m.Items = append(m.Items, OrderItemModel{
			ID:          item.ID,
			OrderID:     o.ID,
			ProductID:   item.ProductID,
			ProductName: item.ProductName,
			UnitPrice:   item.UnitPrice,
			Quantity:    item.Quantity,
			Amount:      item.Amount,
		})
	}
	return m
}
