package catalog

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/distrib/backend/internal/domain/catalog"
	"github.com/distrib/backend/internal/domain/shared/valueobject"
)

// CreateProductRequest creates a catalog product
type CreateProductRequest struct {
	Name        string            `json:"name" binding:"required,min=1,max=200"`
	Description string            `json:"description" binding:"max=2000"`
	UnitPrice   valueobject.Money `json:"unit_price"`
	Stock       int64             `json:"stock" binding:"gte=0"`
}

// UpdateProductRequest changes any of name, description and price
type UpdateProductRequest struct {
	Name        *string            `json:"name" binding:"omitempty,min=1,max=200"`
	Description *string            `json:"description" binding:"omitempty,max=2000"`
	UnitPrice   *valueobject.Money `json:"unit_price"`
}

// RestockRequest adds units to the warehouse
type RestockRequest struct {
	Quantity int64 `json:"quantity" binding:"required,gt=0"`
}

// ProductListFilter lists products
type ProductListFilter struct {
	Search   string `form:"search"`
	Page     int    `form:"page" binding:"omitempty,min=1"`
	PageSize int    `form:"page_size" binding:"omitempty,min=1,max=100"`
}

// ProductResponse is the API view of a product
type ProductResponse struct {
	ID          uuid.UUID       `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Stock       int64           `json:"stock"`
	Version     int             `json:"version"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

func ToProductResponse(p *catalog.Product) ProductResponse {
	return ProductResponse{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		UnitPrice:   p.UnitPrice,
		Stock:       p.Stock,
		Version:     p.Version,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}
