package reporting

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/distrib/backend/internal/domain/shared"
)

const AggregateTypeWeeklyReport = "WeeklyReport"

const (
	EventTypeReportSubmitted = "ReportSubmitted"
	EventTypeReportRevised   = "ReportRevised"
	EventTypeReportApproved  = "ReportApproved"
	EventTypeReportRejected  = "ReportRejected"
	EventTypeReportDeleted   = "ReportDeleted"
)

// ReportEvent is the payload shared by all report events
type ReportEvent struct {
	shared.BaseDomainEvent
	DistributorID uuid.UUID             `json:"distributor_id"`
	CycleAnchor   time.Time             `json:"cycle_anchor"`
	Status        shared.ApprovalStatus `json:"status"`
	TotalSold     int64                 `json:"total_sold"`
	TotalDamaged  int64                 `json:"total_damaged"`
	TotalRevenue  decimal.Decimal       `json:"total_revenue"`
}

func newReportEvent(eventType string, r *WeeklyReport) ReportEvent {
	return ReportEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(eventType, AggregateTypeWeeklyReport, r.ID),
		DistributorID:   r.DistributorID,
		CycleAnchor:     r.CycleAnchor,
		Status:          r.Status,
		TotalSold:       r.TotalSold,
		TotalDamaged:    r.TotalDamaged,
		TotalRevenue:    r.TotalRevenue,
	}
}

type ReportSubmittedEvent struct{ ReportEvent }

func NewReportSubmittedEvent(r *WeeklyReport) *ReportSubmittedEvent {
	return &ReportSubmittedEvent{newReportEvent(EventTypeReportSubmitted, r)}
}

type ReportRevisedEvent struct{ ReportEvent }

func NewReportRevisedEvent(r *WeeklyReport) *ReportRevisedEvent {
	return &ReportRevisedEvent{newReportEvent(EventTypeReportRevised, r)}
}

type ReportApprovedEvent struct {
	ReportEvent
	ApprovedBy uuid.UUID `json:"approved_by"`
}

func NewReportApprovedEvent(r *WeeklyReport) *ReportApprovedEvent {
	return &ReportApprovedEvent{ReportEvent: newReportEvent(EventTypeReportApproved, r), ApprovedBy: *r.DecidedBy}
}

type ReportRejectedEvent struct {
	ReportEvent
	RejectedBy uuid.UUID `json:"rejected_by"`
	Reason     string    `json:"reason,omitempty"`
}

func NewReportRejectedEvent(r *WeeklyReport) *ReportRejectedEvent {
	return &ReportRejectedEvent{
		ReportEvent: newReportEvent(EventTypeReportRejected, r),
		RejectedBy:  *r.DecidedBy,
		Reason:      r.RejectionReason,
	}
}

type ReportDeletedEvent struct{ ReportEvent }

func NewReportDeletedEvent(r *WeeklyReport) *ReportDeletedEvent {
	return &ReportDeletedEvent{newReportEvent(EventTypeReportDeleted, r)}
}
