package persistence

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/distrib/backend/internal/domain/shared"
	"github.com/distrib/backend/internal/domain/trade"
	"github.com/distrib/backend/internal/infrastructure/persistence/models"
)

// GormOrderRepository implements trade.OrderRepository using GORM
type GormOrderRepository struct {
	db *gorm.DB
}

// NewGormOrderRepository creates a new GormOrderRepository
func NewGormOrderRepository(db *gorm.DB) *GormOrderRepository {
	return &GormOrderRepository{db: db}
}

func (r *GormOrderRepository) FindByID(ctx context.Context, id uuid.UUID) (*trade.Order, error) {
	return r.findOne(r.db.WithContext(ctx), id)
}

func (r *GormOrderRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*trade.Order, error) {
	return r.findOne(r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}), id)
}

func (r *GormOrderRepository) findOne(query *gorm.DB, id uuid.UUID) (*trade.Order, error) {
	var model models.OrderModel
	if err := query.Preload("Items", orderItemsByName).First(&model, "id = ?", id).Error; err != nil {
		return nil, translateError(err)
	}
	return model.ToDomain(), nil
}

func (r *GormOrderRepository) FindAll(ctx context.Context, filter shared.Filter) ([]trade.Order, error) {
	var rows []models.OrderModel
	query := applyPaging(r.filtered(ctx, filter), filter, OrderSortFields, "created_at")
	if err := query.Preload("Items", orderItemsByName).Find(&rows).Error; err != nil {
		return nil, err
	}
	return ordersToDomain(rows), nil
}

func (r *GormOrderRepository) Count(ctx context.Context, filter shared.Filter) (int64, error) {
	var count int64
	if err := r.filtered(ctx, filter).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *GormOrderRepository) filtered(ctx context.Context, filter shared.Filter) *gorm.DB {
	query := r.db.WithContext(ctx).Model(&models.OrderModel{})
	if v, ok := filter.Filters["distributor_id"].(uuid.UUID); ok {
		query = query.Where("distributor_id = ?", v)
	}
	if v, ok := filter.Filters["status"].(shared.ApprovalStatus); ok && v != "" {
		query = query.Where("status = ?", v)
	}
	if v, ok := filter.Filters["created_from"].(time.Time); ok {
		query = query.Where("created_at >= ?", v.UTC())
	}
	if v, ok := filter.Filters["created_before"].(time.Time); ok {
		query = query.Where("created_at < ?", v.UTC())
	}
	return query
}

// FindByDistributor is the order ledger read: one distributor, a status set
// and a half-open creation window.
func (r *GormOrderRepository) FindByDistributor(ctx context.Context, distributorID uuid.UUID, statuses []shared.ApprovalStatus, from, before time.Time) ([]trade.Order, error) {
	query := r.db.WithContext(ctx).Where("distributor_id = ?", distributorID)
	if len(statuses) > 0 {
		query = query.Where("status IN ?", statuses)
	}
	if !from.IsZero() {
		query = query.Where("created_at >= ?", from.UTC())
	}
	if !before.IsZero() {
		query = query.Where("created_at < ?", before.UTC())
	}

	var rows []models.OrderModel
	if err := query.Order("created_at ASC").Order("id ASC").Preload("Items").Find(&rows).Error; err != nil {
		return nil, err
	}
	return ordersToDomain(rows), nil
}

// Save upserts the order row. Items are written once and never change.
func (r *GormOrderRepository) Save(ctx context.Context, order *trade.Order) error {
	model := models.OrderModelFromDomain(order)
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Save(model).Error; err != nil {
			return translateError(err)
		}
		if len(model.Items) == 0 {
			return nil
		}
		return tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&model.Items).Error
	})
}

func (r *GormOrderRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("order_id = ?", id).Delete(&models.OrderItemModel{}).Error; err != nil {
			return err
		}
		result := tx.Delete(&models.OrderModel{}, "id = ?", id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return shared.ErrNotFound
		}
		return nil
	})
}

func orderItemsByName(db *gorm.DB) *gorm.DB {
	return db.Order("product_name ASC")
}

func ordersToDomain(rows []models.OrderModel) []trade.Order {
	out := make([]trade.Order, 0, len(rows))
	for i := range rows {
		out = append(out, *rows[i].ToDomain())
	}
	return out
}

var _ trade.OrderRepository = (*GormOrderRepository)(nil)
