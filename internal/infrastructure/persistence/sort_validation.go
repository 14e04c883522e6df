package persistence

import (
	"strings"

	"gorm.io/gorm"

	"github.com/distrib/backend/internal/domain/shared"
)

// ValidateSortOrder normalizes the direction to ASC or DESC, DESC by default
func ValidateSortOrder(orderDir string) string {
	if strings.EqualFold(strings.TrimSpace(orderDir), "asc") {
		return "ASC"
	}
	return "DESC"
}

// ValidateSortField returns sortField when whitelisted, defaultField otherwise
func ValidateSortField(sortField string, allowed map[string]bool, defaultField string) string {
	if trimmed := strings.TrimSpace(sortField); allowed[trimmed] {
		return trimmed
	}
	return defaultField
}

var (
	ProductSortFields = map[string]bool{
		"created_at": true,
		"updated_at": true,
		"name":       true,
		"unit_price": true,
		"stock":      true,
	}
	OrderSortFields = map[string]bool{
		"created_at":   true,
		"updated_at":   true,
		"order_number": true,
		"total_amount": true,
		"status":       true,
	}
	ReportSortFields = map[string]bool{
		"created_at":    true,
		"updated_at":    true,
		"cycle_anchor":  true,
		"total_revenue": true,
		"status":        true,
	}
	UserSortFields = map[string]bool{
		"created_at":   true,
		"username":     true,
		"display_name": true,
		"role":         true,
	}
)

// applyPaging orders and pages a query. A non-positive PageSize returns
// every row.
func applyPaging(query *gorm.DB, filter shared.Filter, allowed map[string]bool, defaultField string) *gorm.DB {
	field := ValidateSortField(filter.OrderBy, allowed, defaultField)
	query = query.Order(field + " " + ValidateSortOrder(filter.OrderDir))
	if field != "id" {
		query = query.Order("id ASC")
	}
	if filter.PageSize > 0 {
		query = query.Offset(filter.Offset()).Limit(filter.PageSize)
	}
	return query
}
