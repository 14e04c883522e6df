package reporting

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/distrib/backend/internal/domain/shared"
)

// ReportQuery selects one distributor's reports. Nil anchors leave that
// condition out; empty Statuses means any status.
type ReportQuery struct {
	DistributorID uuid.UUID
	Statuses      []shared.ApprovalStatus
	AnchorOn      *time.Time
	AnchorBefore  *time.Time
}

// WeeklyReportRepository persists reports with their details
type WeeklyReportRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*WeeklyReport, error)
	// FindAll understands the filter keys "distributor_id", "status" and
	// "cycle_anchor"
	FindAll(ctx context.Context, filter shared.Filter) ([]WeeklyReport, error)
	Count(ctx context.Context, filter shared.Filter) (int64, error)
	// FindByDistributor lists reports with details loaded
	FindByDistributor(ctx context.Context, q ReportQuery) ([]WeeklyReport, error)
	// LatestAnchor returns the greatest anchor matching q, nil when none
	LatestAnchor(ctx context.Context, q ReportQuery) (*time.Time, error)
	Save(ctx context.Context, report *WeeklyReport) error
	Delete(ctx context.Context, id uuid.UUID) error
}
