package reporting

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/distrib/backend/internal/domain/reconciliation"
	"github.com/distrib/backend/internal/domain/reporting"
)

// ReportLineInput is what a distributor claims for one product. Negative
// quantities are read as zero.
type ReportLineInput struct {
	ProductID       uuid.UUID `json:"product_id" binding:"required"`
	QuantitySold    int64     `json:"quantity_sold"`
	QuantityDamaged int64     `json:"quantity_damaged"`
}

// SubmitReportRequest files a report. CycleAnchor may be any instant of the
// cycle week and defaults to the current cycle.
type SubmitReportRequest struct {
	CycleAnchor *time.Time
	Lines       []ReportLineInput
	Notes       string
}

// ReviseReportRequest replaces the lines of a PENDING report
type ReviseReportRequest struct {
	Lines []ReportLineInput `json:"lines" binding:"required,min=1,dive"`
	Notes string            `json:"notes" binding:"max=2000"`
}

type RejectReportRequest struct {
	Reason string `json:"reason" binding:"max=1000"`
}

// AvailabilityQuery asks for the availability sheet of one cycle.
// DistributorID is required for administrators and ignored for distributors.
type AvailabilityQuery struct {
	DistributorID     *uuid.UUID
	Cycle             *time.Time
	ExcludingReportID *uuid.UUID
}

// ReportListFilter lists reports. Nil fields leave that condition out.
type ReportListFilter struct {
	DistributorID *uuid.UUID
	Status        string
	CycleAnchor   *time.Time
	Page          int
	PageSize      int
}

// CycleResponse describes one reporting cycle
type CycleResponse struct {
	Anchor         time.Time `json:"anchor"`
	IntakeStart    time.Time `json:"intake_start"`
	IntakeEnd      time.Time `json:"intake_end"`
	ReportingStart time.Time `json:"reporting_start"`
	ReportingEnd   time.Time `json:"reporting_end"`
	ReportingOpen  bool      `json:"reporting_open"`
}

func toCycleResponse(c reconciliation.Cycle, at time.Time) CycleResponse {
	return CycleResponse{
		Anchor:         c.Anchor,
		IntakeStart:    c.Intake.Start,
		IntakeEnd:      c.Intake.End,
		ReportingStart: c.Reporting.Start,
		ReportingEnd:   c.Reporting.End,
		ReportingOpen:  c.Reporting.Contains(at),
	}
}

// AvailabilityLine is one product of the availability sheet
type AvailabilityLine struct {
	reconciliation.Availability
	ProductName string          `json:"product_name"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
}

// AvailabilitySheet is what the UI shows before a distributor files
type AvailabilitySheet struct {
	DistributorID uuid.UUID          `json:"distributor_id"`
	Cycle         CycleResponse      `json:"cycle"`
	Lines         []AvailabilityLine `json:"lines"`
}

type ReportDetailResponse struct {
	ProductID        uuid.UUID       `json:"product_id"`
	ProductName      string          `json:"product_name"`
	QuantityReceived int64           `json:"quantity_received"`
	QuantitySold     int64           `json:"quantity_sold"`
	QuantityDamaged  int64           `json:"quantity_damaged"`
	RemainingStock   int64           `json:"remaining_stock"`
	UnitPrice        decimal.Decimal `json:"unit_price"`
	Revenue          decimal.Decimal `json:"revenue"`
	CarryOver        int64           `json:"carry_over"`
	NewStock         int64           `json:"new_stock"`
	AlreadyReported  int64           `json:"already_reported"`
}

// ReportResponse is the API view of a weekly report. AdjustedLines is only
// set on the response to a submit or revise.
type ReportResponse struct {
	ID              uuid.UUID              `json:"id"`
	DistributorID   uuid.UUID              `json:"distributor_id"`
	CycleAnchor     time.Time              `json:"cycle_anchor"`
	Status          string                 `json:"status"`
	Details         []ReportDetailResponse `json:"details"`
	Notes           string                 `json:"notes,omitempty"`
	TotalRevenue    decimal.Decimal        `json:"total_revenue"`
	TotalSold       int64                  `json:"total_sold"`
	TotalDamaged    int64                  `json:"total_damaged"`
	AdjustedLines   int                    `json:"adjusted_lines,omitempty"`
	DecidedBy       *uuid.UUID             `json:"decided_by,omitempty"`
	DecidedAt       *time.Time             `json:"decided_at,omitempty"`
	RejectionReason string                 `json:"rejection_reason,omitempty"`
	Version         int                    `json:"version"`
	CreatedAt       time.Time              `json:"created_at"`
	UpdatedAt       time.Time              `json:"updated_at"`
}

func ToReportResponse(r *reporting.WeeklyReport) ReportResponse {
	details := make([]ReportDetailResponse, 0, len(r.Details))
	for _, d := range r.Details {
		details = append(details, ReportDetailResponse{
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
	return ReportResponse{
		ID:              r.ID,
		DistributorID:   r.DistributorID,
		CycleAnchor:     r.CycleAnchor,
		Status:          string(r.Status),
		Details:         details,
		Notes:           r.Notes,
		TotalRevenue:    r.TotalRevenue,
		TotalSold:       r.TotalSold,
		TotalDamaged:    r.TotalDamaged,
		DecidedBy:       r.DecidedBy,
		DecidedAt:       r.DecidedAt,
		RejectionReason: r.RejectionReason,
		Version:         r.Version,
		CreatedAt:       r.CreatedAt,
		UpdatedAt:       r.UpdatedAt,
	}
}
