// Package catalog holds the products distributors order and report on.
package catalog

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/distrib/backend/internal/domain/shared"
	"github.com/distrib/backend/internal/domain/shared/valueobject"
)

// Product is a sellable item with a warehouse stock counter. The counter is
// only consulted when an administrator approves an order.
type Product struct {
	shared.BaseAggregateRoot
	Name        string
	Description string
	UnitPrice   decimal.Decimal
	Stock       int64
}

// NewProduct creates a product with an opening stock
func NewProduct(name, description string, price valueobject.Money, stock int64) (*Product, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, shared.NewDomainError("INVALID_NAME", "Product name cannot be empty")
	}
	if len(name) > 200 {
		return nil, shared.NewDomainError("INVALID_NAME", "Product name cannot exceed 200 characters")
	}
	if stock < 0 {
		return nil, shared.NewDomainError("INVALID_QUANTITY", "Opening stock cannot be negative")
	}

	p := &Product{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Name:              name,
		Description:       strings.TrimSpace(description),
		UnitPrice:         price.Amount(),
		Stock:             stock,
	}
	p.AddDomainEvent(NewProductCreatedEvent(p))
	return p, nil
}

// Price returns the current catalog price
func (p *Product) Price() valueobject.Money {
	m, _ := valueobject.NewMoney(p.UnitPrice)
	return m
}

// Rename changes name and description
func (p *Product) Rename(name, description string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return shared.NewDomainError("INVALID_NAME", "Product name cannot be empty")
	}
	p.Name = name
	p.Description = strings.TrimSpace(description)
	p.IncrementVersion()
	return nil
}

// UpdatePrice changes the catalog price. Existing order lines keep the price
// they were created with.
func (p *Product) UpdatePrice(price valueobject.Money) {
	if price.Amount().Equal(p.UnitPrice) {
		return
	}
	old := p.UnitPrice
	p.UnitPrice = price.Amount()
	p.IncrementVersion()
	p.AddDomainEvent(NewProductPriceChangedEvent(p, old))
}

// DeductStock takes quantity units out of the warehouse
func (p *Product) DeductStock(quantity int64) error {
	if quantity <= 0 {
		return shared.NewDomainError("INVALID_QUANTITY", "Quantity must be positive")
	}
	if p.Stock < quantity {
		return shared.NewDomainError(shared.ErrInsufficientStock.Code,
			fmt.Sprintf("Insufficient stock for %s: %d available, %d requested", p.Name, p.Stock, quantity))
	}
	p.Stock -= quantity
	p.IncrementVersion()
	p.AddDomainEvent(NewProductStockChangedEvent(p, -quantity))
	return nil
}

// RestoreStock puts quantity units back, e.g. when an approved order is deleted
func (p *Product) RestoreStock(quantity int64) error {
	if quantity <= 0 {
		return shared.NewDomainError("INVALID_QUANTITY", "Quantity must be positive")
	}
	p.Stock += quantity
	p.IncrementVersion()
	p.AddDomainEvent(NewProductStockChangedEvent(p, quantity))
	return nil
}
