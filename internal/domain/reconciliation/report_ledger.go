package reconciliation

import (
	"bytes"
	"time"

	"github.com/google/uuid"

	"github.com/distrib/backend/internal/domain/shared"
)

// ReportLedger is a materialized slice of report history
type ReportLedger []ReportEntry

// CarryOverFor returns the remaining stock of productID recorded on the
// distributor's latest APPROVED report with an anchor strictly before
// cycleAnchor. Zero when there is no such report or it does not list the
// product. Several approved reports on the same earlier anchor are ordered by
// creation time, then id, and the last one wins.
func (l ReportLedger) CarryOverFor(distributorID, productID uuid.UUID, cycleAnchor time.Time) int64 {
	prior, ok := l.latestApprovedBefore(distributorID, cycleAnchor)
	if !ok {
		return 0
	}
	for _, line := range prior.Lines {
		if line.ProductID == productID {
			return max(line.Remaining, 0)
		}
	}
	return 0
}

// AlreadyReportedFor sums sold+damaged for productID across the distributor's
// non-rejected reports on exactly cycleAnchor, skipping excludingReportID.
func (l ReportLedger) AlreadyReportedFor(distributorID, productID uuid.UUID, cycleAnchor time.Time, excludingReportID uuid.UUID) int64 {
	var total int64
	for _, report := range l {
		if report.DistributorID != distributorID || report.Status == shared.StatusRejected {
			continue
		}
		if excludingReportID != uuid.Nil && report.ReportID == excludingReportID {
			continue
		}
		if !report.CycleAnchor.Equal(cycleAnchor) {
			continue
		}
		for _, line := range report.Lines {
			if line.ProductID == productID {
				total += max(line.Sold, 0) + max(line.Damaged, 0)
			}
		}
	}
	return total
}

func (l ReportLedger) latestApprovedBefore(distributorID uuid.UUID, cycleAnchor time.Time) (ReportEntry, bool) {
	var (
		best  ReportEntry
		found bool
	)
	for _, report := range l {
		if report.DistributorID != distributorID || report.Status != shared.StatusApproved {
			continue
		}
		if !report.CycleAnchor.Before(cycleAnchor) {
			continue
		}
		if !found || laterReport(report, best) {
			best, found = report, true
		}
	}
	return best, found
}

// laterReport orders reports by anchor, then creation time, then id
func laterReport(a, b ReportEntry) bool {
	if !a.CycleAnchor.Equal(b.CycleAnchor) {
		return a.CycleAnchor.After(b.CycleAnchor)
	}
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.After(b.CreatedAt)
	}
	return bytes.Compare(a.ReportID[:], b.ReportID[:]) > 0
}
