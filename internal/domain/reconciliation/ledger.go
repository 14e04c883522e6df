package reconciliation

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/distrib/backend/internal/domain/shared"
)

// OrderLine is the part of an order line the ledger cares about
type OrderLine struct {
	ProductID uuid.UUID
	Quantity  int64
}

// OrderEntry is an order as seen by the reconciliation fold
type OrderEntry struct {
	OrderID       uuid.UUID
	DistributorID uuid.UUID
	Status        shared.ApprovalStatus
	CreatedAt     time.Time
	Lines         []OrderLine
}

// ReportLine is one product row of a filed report
type ReportLine struct {
	ProductID uuid.UUID
	Sold      int64
	Damaged   int64
	Remaining int64
}

// ReportEntry is a weekly report as seen by the reconciliation fold
type ReportEntry struct {
	ReportID      uuid.UUID
	DistributorID uuid.UUID
	CycleAnchor   time.Time
	Status        shared.ApprovalStatus
	CreatedAt     time.Time
	Lines         []ReportLine
}

// OrderQuery selects orders of one distributor. Zero times leave that bound open.
type OrderQuery struct {
	DistributorID uuid.UUID
	Statuses      []shared.ApprovalStatus
	CreatedFrom   time.Time
	CreatedBefore time.Time
}

// ReportQuery selects reports of one distributor by status and anchor
type ReportQuery struct {
	DistributorID uuid.UUID
	Statuses      []shared.ApprovalStatus
	AnchorOn      *time.Time
	AnchorBefore  *time.Time
	// LatestAnchorOnly narrows the result to the reports sharing the greatest
	// anchor that matches the other conditions.
	LatestAnchorOnly bool
}

// OrderSource lists orders for the fold
type OrderSource interface {
	ListOrderEntries(ctx context.Context, q OrderQuery) ([]OrderEntry, error)
}

// ReportSource lists reports for the fold
type ReportSource interface {
	ListReportEntries(ctx context.Context, q ReportQuery) ([]ReportEntry, error)
}
