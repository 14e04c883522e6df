package models

import (
	"github.com/shopspring/decimal"

	"github.com/distrib/backend/internal/domain/catalog"
)

// ProductModel is the persistence model for catalog.Product
type ProductModel struct {
	AggregateModel
	Name        string          `gorm:"type:varchar(200);not null;uniqueIndex"`
	Description string          `gorm:"type:text"`
	UnitPrice   decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	Stock       int64           `gorm:"not null;default:0"`
}

func (ProductModel) TableName() string {
	return "products"
}

// ToDomain converts the row to a domain Product
func (m *ProductModel) ToDomain() *catalog.Product {
	return &catalog.Product{
		BaseAggregateRoot: m.toDomain(),
		Name:              m.Name,
		Description:       m.Description,
		UnitPrice:         m.UnitPrice,
		Stock:             m.Stock,
	}
}

// FromDomain fills the row from a domain Product
func (m *ProductModel) FromDomain(p *catalog.Product) {
	m.fromDomain(p.BaseAggregateRoot)
	m.Name = p.Name
	m.Description = p.Description
	m.UnitPrice = p.UnitPrice
	m.Stock = p.Stock
}

// ProductModelFromDomain creates a row from a domain Product
func ProductModelFromDomain(p *catalog.Product) *ProductModel {
	m := &ProductModel{}
	m.FromDomain(p)
	return m
}
