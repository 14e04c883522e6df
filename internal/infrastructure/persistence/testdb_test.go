package persistence

import (
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/distrib/backend/internal/domain/catalog"
	"github.com/distrib/backend/internal/domain/reconciliation"
	"github.com/distrib/backend/internal/domain/reporting"
	"github.com/distrib/backend/internal/domain/shared/valueobject"
	"github.com/distrib/backend/internal/domain/trade"
	"github.com/distrib/backend/internal/infrastructure/persistence/models"
)

// setupTestDB opens a private in-memory SQLite database with the schema
// migrated. One connection keeps every query on the same database.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:  logger.Default.LogMode(logger.Silent),
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(models.All()...))
	return db
}

func mustProduct(t *testing.T, name string, price string, stock int64) *catalog.Product {
	t.Helper()
	money, err := valueobject.NewMoneyFromString(price)
	require.NoError(t, err)
	p, err := catalog.NewProduct(name, "", money, stock)
	require.NoError(t, err)
	return p
}

func mustOrder(t *testing.T, distributorID uuid.UUID, at time.Time, product *catalog.Product, qty int64) *trade.Order {
	t.Helper()
	o, err := trade.NewOrder(distributorID, at, []trade.ItemInput{{
		ProductID:   product.ID,
		ProductName: product.Name,
		UnitPrice:   product.Price(),
		Quantity:    qty,
	}}, "")
	require.NoError(t, err)
	return o
}

func mustReport(t *testing.T, distributorID uuid.UUID, anchor time.Time, product *catalog.Product, sold, damaged, remaining int64) *reporting.WeeklyReport {
	t.Helper()
	body := reconciliation.Result{
		Lines: []reconciliation.Line{{
			ProductID:   product.ID,
			ProductName: product.Name,
			Received:    sold + damaged + remaining,
			Sold:        sold,
			Damaged:     damaged,
			Remaining:   remaining,
			UnitPrice:   product.UnitPrice,
			Revenue:     product.UnitPrice.Mul(decimal.NewFromInt(sold)),
		}},
		TotalRevenue: product.UnitPrice.Mul(decimal.NewFromInt(sold)),
		TotalSold:    sold,
		TotalDamaged: damaged,
	}
	r, err := reporting.NewWeeklyReport(distributorID, anchor, body, "")
	require.NoError(t, err)
	return r
}

func utc(y int, m time.Month, d, h int) time.Time {
	return time.Date(y, m, d, h, 0, 0, 0, time.UTC)
}
