package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/distrib/backend/internal/domain/reporting"
	"github.com/distrib/backend/internal/domain/shared"
)

// WeeklyReportModel is the persistence model for reporting.WeeklyReport
type WeeklyReportModel struct {
	AggregateModel
	DistributorID   uuid.UUID             `gorm:"type:uuid;not null;index:idx_reports_distributor_anchor,priority:1"`
	CycleAnchor     time.Time             `gorm:"not null;index:idx_reports_distributor_anchor,priority:2"`
	Notes           string                `gorm:"type:text"`
	Status          shared.ApprovalStatus `gorm:"type:varchar(20);not null;index"`
	TotalRevenue    decimal.Decimal       `gorm:"type:decimal(18,4);not null;default:0"`
	TotalSold       int64                 `gorm:"not null;default:0"`
	TotalDamaged    int64                 `gorm:"not null;default:0"`
	DecidedBy       *uuid.UUID            `gorm:"type:uuid"`
	DecidedAt       *time.Time
	RejectionReason string              `gorm:"type:text"`
	Details         []ReportDetailModel `gorm:"foreignKey:ReportID;constraint:OnDelete:CASCADE"`
}

func (WeeklyReportModel) TableName() string {
	return "weekly_reports"
}

// ReportDetailModel is one product row of a report
type ReportDetailModel struct {
	ID               uuid.UUID       `gorm:"type:uuid;primaryKey"`
	ReportID         uuid.UUID       `gorm:"type:uuid;not null;index"`
	ProductID        uuid.UUID       `gorm:"type:uuid;not null;index"`
	ProductName      string          `gorm:"type:varchar(200);not null"`
	QuantityReceived int64           `gorm:"not null"`
	QuantitySold     int64           `gorm:"not null"`
	QuantityDamaged  int64           `gorm:"not null"`
	RemainingStock   int64           `gorm:"not null"`
	UnitPrice        decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	Revenue          decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	CarryOver        int64           `gorm:"not null;default:0"`
	NewStock         int64           `gorm:"not null;default:0"`
	AlreadyReported  int64           `gorm:"not null;default:0"`
}

func (ReportDetailModel) TableName() string {
	return "weekly_report_details"
}

// ToDomain converts the row and its loaded details to a domain report
func (m *WeeklyReportModel) ToDomain() *reporting.WeeklyReport {
	r := &reporting.WeeklyReport{
		BaseAggregateRoot: m.toDomain(),
		DistributorID:     m.DistributorID,
		CycleAnchor:       m.CycleAnchor.UTC(),
		Notes:             m.Notes,
		Status:            m.Status,
		TotalRevenue:      m.TotalRevenue,
		TotalSold:         m.TotalSold,
		TotalDamaged:      m.TotalDamaged,
		DecidedBy:         m.DecidedBy,
		DecidedAt:         utcPtr(m.DecidedAt),
		RejectionReason:   m.RejectionReason,
		Details:           make([]reporting.ReportDetail, 0, len(m.Details)),
	}
	for _, d := range m.Details {
		r.Details = append(r.Details, reporting.ReportDetail{
			ID:               d.ID,
			ReportID:         d.ReportID,
			ProductID:        d.ProductID,
			ProductName:      d.ProductName,
			QuantityReceived: d.QuantityReceived,
			QuantitySold:     d.QuantitySold,
			QuantityDamaged:  d.QuantityDamaged,
			RemainingStock:   d.RemainingStock,
			UnitPrice:        d.UnitPrice,
			Revenue:          d.Revenue,
			CarryOver:        d.CarryOver,
			NewStock:         d.NewStock,
			AlreadyReported:  d.AlreadyReported,
		})
	}
	return r
}

// WeeklyReportModelFromDomain creates a row with its details from a domain report
func WeeklyReportModelFromDomain(r *reporting.WeeklyReport) *WeeklyReportModel {
	m := &WeeklyReportModel{
		DistributorID:   r.DistributorID,
		CycleAnchor:     r.CycleAnchor.UTC(),
		Notes:           r.Notes,
		Status:          r.Status,
		TotalRevenue:    r.TotalRevenue,
		TotalSold:       r.TotalSold,
		TotalDamaged:    r.TotalDamaged,
		DecidedBy:       r.DecidedBy,
		DecidedAt:       utcPtr(r.DecidedAt),
		RejectionReason: r.RejectionReason,
		Details:         make([]ReportDetailModel, 0, len(r.Details)),
	}
	m.fromDomain(r.BaseAggregateRoot)
	for _, d := range r.Details {
		m.Details = append(m.Details, ReportDetailModel{
			ID:               d.ID,
			ReportID:         r.ID,
			ProductID:        d.ProductID,
			ProductName:      d.ProductName,
			QuantityReceived: d.QuantityReceived,
			QuantitySold:     d.QuantitySold,
			QuantityDamaged:  d.QuantityDamaged,
			RemainingStock:   d.RemainingStock,
			UnitPrice:        d.UnitPrice,
			Revenue:          d.Revenue,
			CarryOver:        d.CarryOver,
			NewStock:         d.NewStock,
			AlreadyReported:  d.AlreadyReported,
		})
	}
	return m
}

// All lists every model for AutoMigrate in tests
func All() []any {
	return []any{
		&UserModel{},
		&ProductModel{},
		&OrderModel{},
		&OrderItemModel{},
		&WeeklyReportModel{},
		&ReportDetailModel{},
	}
}
