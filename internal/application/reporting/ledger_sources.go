package reporting

import (
	"context"

	"github.com/distrib/backend/internal/domain/reconciliation"
	"github.com/distrib/backend/internal/domain/reporting"
	"github.com/distrib/backend/internal/domain/trade"
)

// OrderLedgerSource feeds the reconciliation engine from the order repository
type OrderLedgerSource struct {
	orders trade.OrderRepository
}

func NewOrderLedgerSource(orders trade.OrderRepository) *OrderLedgerSource {
	return &OrderLedgerSource{orders: orders}
}

func (s *OrderLedgerSource) ListOrderEntries(ctx context.Context, q reconciliation.OrderQuery) ([]reconciliation.OrderEntry, error) {
	orders, err := s.orders.FindByDistributor(ctx, q.DistributorID, q.Statuses, q.CreatedFrom, q.CreatedBefore)
	if err != nil {
		return nil, err
	}
	entries := make([]reconciliation.OrderEntry, 0, len(orders))
	for i := range orders {
		entries = append(entries, orders[i].LedgerEntry())
	}
	return entries, nil
}

// ReportLedgerSource feeds the reconciliation engine from the report repository
type ReportLedgerSource struct {
	reports reporting.WeeklyReportRepository
}

func NewReportLedgerSource(reports reporting.WeeklyReportRepository) *ReportLedgerSource {
	return &ReportLedgerSource{reports: reports}
}

// ListReportEntries resolves LatestAnchorOnly in two steps: find the greatest
// matching anchor, then load the reports filed on it.
func (s *ReportLedgerSource) ListReportEntries(ctx context.Context, q reconciliation.ReportQuery) ([]reconciliation.ReportEntry, error) {
	rq := reporting.ReportQuery{
		DistributorID: q.DistributorID,
		Statuses:      q.Statuses,
		AnchorOn:      q.AnchorOn,
		AnchorBefore:  q.AnchorBefore,
	}
	if q.LatestAnchorOnly {
		latest, err := s.reports.LatestAnchor(ctx, rq)
		if err != nil {
			return nil, err
		}
		if latest == nil {
			return nil, nil
		}
		rq.AnchorOn = latest
		rq.AnchorBefore = nil
	}

	reports, err := s.reports.FindByDistributor(ctx, rq)
	if err != nil {
		return nil, err
	}
	entries := make([]reconciliation.ReportEntry, 0, len(reports))
	for i := range reports {
		entries = append(entries, reports[i].LedgerEntry())
	}
	return entries, nil
}

var (
	_ reconciliation.OrderSource  = (*OrderLedgerSource)(nil)
	_ reconciliation.ReportSource = (*ReportLedgerSource)(nil)
)
