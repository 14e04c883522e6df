package persistence

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/distrib/backend/internal/domain/reporting"
	"github.com/distrib/backend/internal/domain/shared"
	"github.com/distrib/backend/internal/infrastructure/persistence/models"
)

// GormWeeklyReportRepository implements reporting.WeeklyReportRepository using GORM
type GormWeeklyReportRepository struct {
	db *gorm.DB
}

// NewGormWeeklyReportRepository creates a new GormWeeklyReportRepository
func NewGormWeeklyReportRepository(db *gorm.DB) *GormWeeklyReportRepository {
	return &GormWeeklyReportRepository{db: db}
}

func (r *GormWeeklyReportRepository) FindByID(ctx context.Context, id uuid.UUID) (*reporting.WeeklyReport, error) {
	var model models.WeeklyReportModel
	if err := r.db.WithContext(ctx).Preload("Details", detailsByName).First(&model, "id = ?", id).Error; err != nil {
		return nil, translateError(err)
	}
	return model.ToDomain(), nil
}

func (r *GormWeeklyReportRepository) FindAll(ctx context.Context, filter shared.Filter) ([]reporting.WeeklyReport, error) {
	var rows []models.WeeklyReportModel
	query := applyPaging(r.filtered(ctx, filter), filter, ReportSortFields, "cycle_anchor")
	if err := query.Preload("Details", detailsByName).Find(&rows).Error; err != nil {
		return nil, err
	}
	return reportsToDomain(rows), nil
}

func (r *GormWeeklyReportRepository) Count(ctx context.Context, filter shared.Filter) (int64, error) {
	var count int64
	if err := r.filtered(ctx, filter).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *GormWeeklyReportRepository) filtered(ctx context.Context, filter shared.Filter) *gorm.DB {
	query := r.db.WithContext(ctx).Model(&models.WeeklyReportModel{})
	if v, ok := filter.Filters["distributor_id"].(uuid.UUID); ok {
		query = query.Where("distributor_id = ?", v)
	}
	if v, ok := filter.Filters["status"].(shared.ApprovalStatus); ok && v != "" {
		query = query.Where("status = ?", v)
	}
	if v, ok := filter.Filters["cycle_anchor"].(time.Time); ok {
		query = query.Where("cycle_anchor = ?", v.UTC())
	}
	return query
}

// byQuery applies the report ledger conditions
func (r *GormWeeklyReportRepository) byQuery(ctx context.Context, q reporting.ReportQuery) *gorm.DB {
	query := r.db.WithContext(ctx).Model(&models.WeeklyReportModel{}).Where("distributor_id = ?", q.DistributorID)
	if len(q.Statuses) > 0 {
		query = query.Where("status IN ?", q.Statuses)
	}
	if q.AnchorOn != nil {
		query = query.Where("cycle_anchor = ?", q.AnchorOn.UTC())
	}
	if q.AnchorBefore != nil {
		query = query.Where("cycle_anchor < ?", q.AnchorBefore.UTC())
	}
	return query
}

func (r *GormWeeklyReportRepository) FindByDistributor(ctx context.Context, q reporting.ReportQuery) ([]reporting.WeeklyReport, error) {
	var rows []models.WeeklyReportModel
	if err := r.byQuery(ctx, q).
		Order("cycle_anchor ASC").Order("created_at ASC").Order("id ASC").
		Preload("Details").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return reportsToDomain(rows), nil
}

func (r *GormWeeklyReportRepository) LatestAnchor(ctx context.Context, q reporting.ReportQuery) (*time.Time, error) {
	var rows []models.WeeklyReportModel
	if err := r.byQuery(ctx, q).Select("cycle_anchor").Order("cycle_anchor DESC").Limit(1).Find(&rows).Error; err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	anchor := rows[0].CycleAnchor.UTC()
	return &anchor, nil
}

// Save upserts the report row and replaces its details
func (r *GormWeeklyReportRepository) Save(ctx context.Context, report *reporting.WeeklyReport) error {
	model := models.WeeklyReportModelFromDomain(report)
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Save(model).Error; err != nil {
			return translateError(err)
		}
		if err := tx.Where("report_id = ?", model.ID).Delete(&models.ReportDetailModel{}).Error; err != nil {
			return err
		}
		if len(model.Details) == 0 {
			return nil
		}
		return tx.Create(&model.Details).Error
	})
}

func (r *GormWeeklyReportRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("report_id = ?", id).Delete(&models.ReportDetailModel{}).Error; err != nil {
			return err
		}
		result := tx.Delete(&models.WeeklyReportModel{}, "id = ?", id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return shared.ErrNotFound
		}
		return nil
	})
}

func detailsByName(db *gorm.DB) *gorm.DB {
	return db.Order("product_name ASC").Order("product_id ASC")
}

func reportsToDomain(rows []models.WeeklyReportModel) []reporting.WeeklyReport {
	out := make([]reporting.WeeklyReport, 0, len(rows))
	for i := range rows {
		out = append(out, *rows[i].ToDomain())
	}
	return out
}

var _ reporting.WeeklyReportRepository = (*GormWeeklyReportRepository)(nil)
