// Package reporting holds the weekly reports distributors file against a
// cycle: what they sold, what was damaged and what is left.
package reporting

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/distrib/backend/internal/domain/identity"
	"github.com/distrib/backend/internal/domain/reconciliation"
	"github.com/distrib/backend/internal/domain/shared"
)

// ReportDetail is one product row of a report. QuantityReceived is the
// availability the row was clamped against; CarryOver, NewStock and
// AlreadyReported record how that availability was derived at filing time.
type ReportDetail struct {
	ID               uuid.UUID
	ReportID         uuid.UUID
	ProductID        uuid.UUID
	ProductName      string
	QuantityReceived int64
	QuantitySold     int64
	QuantityDamaged  int64
	RemainingStock   int64
	UnitPrice        decimal.Decimal
	Revenue          decimal.Decimal
	CarryOver        int64
	NewStock         int64
	AlreadyReported  int64
}

// WeeklyReport is filed by a distributor for one cycle. CycleAnchor is the
// only link between the report and its cycle.
type WeeklyReport struct {
	shared.BaseAggregateRoot
	DistributorID   uuid.UUID
	CycleAnchor     time.Time
	Details         []ReportDetail
	Notes           string
	Status          shared.ApprovalStatus
	TotalRevenue    decimal.Decimal
	TotalSold       int64
	TotalDamaged    int64
	DecidedBy       *uuid.UUID
	DecidedAt       *time.Time
	RejectionReason string
}

// NewWeeklyReport files a PENDING report from a finalized body
func NewWeeklyReport(distributorID uuid.UUID, cycleAnchor time.Time, body reconciliation.Result, notes string) (*WeeklyReport, error) {
	if distributorID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_DISTRIBUTOR", "Distributor cannot be empty")
	}
	if err := validateAnchor(cycleAnchor); err != nil {
		return nil, err
	}
	if len(body.Lines) == 0 {
		return nil, shared.NewDomainError("EMPTY_REPORT", "Report must cover at least one product")
	}

	report := &WeeklyReport{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		DistributorID:     distributorID,
		CycleAnchor:       cycleAnchor,
		Status:            shared.StatusPending,
		Notes:             strings.TrimSpace(notes),
	}
	report.apply(body)
	report.AddDomainEvent(NewReportSubmittedEvent(report))
	return report, nil
}

func validateAnchor(anchor time.Time) error {
	h, m, s := anchor.Clock()
	if anchor.Weekday() != time.Monday || h != 0 || m != 0 || s != 0 || anchor.Nanosecond() != 0 {
		return shared.NewDomainError("INVALID_CYCLE", fmt.Sprintf("Cycle anchor %s is not a Monday at midnight", anchor.Format(time.RFC3339)))
	}
	return nil
}

// apply replaces the details and totals with a finalized body
func (r *WeeklyReport) apply(body reconciliation.Result) {
	details := make([]ReportDetail, 0, len(body.Lines))
	for _, line := range body.Lines {
		details = append(details, ReportDetail{
			ID:               uuid.New(),
			ReportID:         r.ID,
			ProductID:        line.ProductID,
			ProductName:      line.ProductName,
			QuantityReceived: line.Received,
			QuantitySold:     line.Sold,
			QuantityDamaged:  line.Damaged,
			RemainingStock:   line.Remaining,
			UnitPrice:        line.UnitPrice,
			Revenue:          line.Revenue,
			CarryOver:        line.CarryOver,
			NewStock:         line.NewStock,
			AlreadyReported:  line.AlreadyReported,
		})
	}
	r.Details = details
	r.TotalRevenue = body.TotalRevenue
	r.TotalSold = body.TotalSold
	r.TotalDamaged = body.TotalDamaged
}

// CheckEditableBy allows only the owning distributor while PENDING
func (r *WeeklyReport) CheckEditableBy(actor identity.Actor) error {
	if !actor.Owns(r.DistributorID) {
		return shared.NewDomainError(shared.ErrForbidden.Code, "Only the distributor who filed the report can edit it")
	}
	if r.Status != shared.StatusPending {
		return shared.NewDomainError(shared.ErrInvalidState.Code, "Only pending reports can be edited")
	}
	return nil
}

// CheckDeletableBy allows administrators, or the owner while PENDING
func (r *WeeklyReport) CheckDeletableBy(actor identity.Actor) error {
	if actor.IsAdmin() {
		return nil
	}
	return r.CheckEditableBy(actor)
}

// Revise replaces the body of a PENDING report
func (r *WeeklyReport) Revise(body reconciliation.Result, notes string) error {
	if r.Status != shared.StatusPending {
		return shared.NewDomainError(shared.ErrInvalidState.Code, "Only pending reports can be edited")
	}
	if len(body.Lines) == 0 {
		return shared.NewDomainError("EMPTY_REPORT", "Report must cover at least one product")
	}
	r.apply(body)
	r.Notes = strings.TrimSpace(notes)
	r.IncrementVersion()
	r.AddDomainEvent(NewReportRevisedEvent(r))
	return nil
}

// Approve records the administrator's approval. The remaining stock of an
// approved report becomes the carry-over of later cycles.
func (r *WeeklyReport) Approve(adminID uuid.UUID) error {
	if err := r.decide(shared.StatusApproved, adminID); err != nil {
		return err
	}
	r.AddDomainEvent(NewReportApprovedEvent(r))
	return nil
}

// Reject records the administrator's rejection. Rejected reports stop
// counting against the cycle's availability.
func (r *WeeklyReport) Reject(adminID uuid.UUID, reason string) error {
	if err := r.decide(shared.StatusRejected, adminID); err != nil {
		return err
	}
	r.RejectionReason = strings.TrimSpace(reason)
	r.AddDomainEvent(NewReportRejectedEvent(r))
	return nil
}

func (r *WeeklyReport) decide(target shared.ApprovalStatus, adminID uuid.UUID) error {
	if !r.Status.CanTransitionTo(target) {
		return shared.NewDomainError(shared.ErrInvalidState.Code,
			fmt.Sprintf("Cannot move report from %s to %s", r.Status, target))
	}
	now := time.Now()
	r.Status = target
	r.DecidedBy = &adminID
	r.DecidedAt = &now
	r.IncrementVersion()
	return nil
}

// MarkDeleted raises the deletion event
func (r *WeeklyReport) MarkDeleted() {
	r.AddDomainEvent(NewReportDeletedEvent(r))
}

// LedgerEntry projects the report for reconciliation
func (r *WeeklyReport) LedgerEntry() reconciliation.ReportEntry {
	lines := make([]reconciliation.ReportLine, 0, len(r.Details))
	for _, d := range r.Details {
		lines = append(lines, reconciliation.ReportLine{
			ProductID: d.ProductID,
			Sold:      d.QuantitySold,
			Damaged:   d.QuantityDamaged,
			Remaining: d.RemainingStock,
		})
	}
	return reconciliation.ReportEntry{
		ReportID:      r.ID,
		DistributorID: r.DistributorID,
		CycleAnchor:   r.CycleAnchor,
		Status:        r.Status,
		CreatedAt:     r.CreatedAt,
		Lines:         lines,
	}
}
