package reconciliation

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/distrib/backend/internal/domain/shared"
)

// Availability is the stock a distributor may still report for one product in
// one cycle, with the three terms it was derived from.
type Availability struct {
	ProductID       uuid.UUID `json:"product_id"`
	CarryOver       int64     `json:"carry_over"`
	Received        int64     `json:"received"`
	AlreadyReported int64     `json:"already_reported"`
	Available       int64     `json:"available"`
}

// Compute folds the two ledgers into an Availability.
// available = max(0, carryOver + received - alreadyReported)
func Compute(orders OrderLedger, reports ReportLedger, cycle Cycle, distributorID, productID, excludingReportID uuid.UUID) Availability {
	a := Availability{
		ProductID:       productID,
		CarryOver:       reports.CarryOverFor(distributorID, productID, cycle.Anchor),
		Received:        orders.ReceivedInCycle(distributorID, productID, cycle.Intake),
		AlreadyReported: reports.AlreadyReportedFor(distributorID, productID, cycle.Anchor, excludingReportID),
	}
	a.Available = max(a.CarryOver+a.Received-a.AlreadyReported, 0)
	return a
}

// Engine loads ledgers from the configured sources and folds them. Results
// are computed on every call and never cached.
type Engine struct {
	calc    *Calculator
	orders  OrderSource
	reports ReportSource
}

// NewEngine creates an engine
func NewEngine(calc *Calculator, orders OrderSource, reports ReportSource) *Engine {
	return &Engine{calc: calc, orders: orders, reports: reports}
}

// Calculator returns the cycle calculator the engine windows with
func (e *Engine) Calculator() *Calculator {
	return e.calc
}

// Availability computes the availability of a single product. cycleAnchor may
// be any instant in the cycle week; it is normalized first.
func (e *Engine) Availability(ctx context.Context, distributorID, productID uuid.UUID, cycleAnchor time.Time, excludingReportID uuid.UUID) (Availability, error) {
	result, err := e.AvailabilityFor(ctx, distributorID, []uuid.UUID{productID}, cycleAnchor, excludingReportID)
	if err != nil {
		return Availability{}, err
	}
	return result[productID], nil
}

// AvailabilityFor computes availability for every product in productIDs from
// one read of each ledger.
func (e *Engine) AvailabilityFor(ctx context.Context, distributorID uuid.UUID, productIDs []uuid.UUID, cycleAnchor time.Time, excludingReportID uuid.UUID) (map[uuid.UUID]Availability, error) {
	cycle := e.calc.CycleAt(cycleAnchor)

	orders, reports, err := e.load(ctx, distributorID, cycle)
	if err != nil {
		return nil, err
	}

	out := make(map[uuid.UUID]Availability, len(productIDs))
	for _, productID := range productIDs {
		out[productID] = Compute(orders, reports, cycle, distributorID, productID, excludingReportID)
	}
	return out, nil
}

func (e *Engine) load(ctx context.Context, distributorID uuid.UUID, cycle Cycle) (OrderLedger, ReportLedger, error) {
	orders, err := e.orders.ListOrderEntries(ctx, OrderQuery{
		DistributorID: distributorID,
		Statuses:      []shared.ApprovalStatus{shared.StatusApproved},
		CreatedFrom:   cycle.Intake.Start,
		CreatedBefore: cycle.Intake.End,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("load order ledger: %w", err)
	}

	anchor := cycle.Anchor
	prior, err := e.reports.ListReportEntries(ctx, ReportQuery{
		DistributorID:    distributorID,
		Statuses:         []shared.ApprovalStatus{shared.StatusApproved},
		AnchorBefore:     &anchor,
		LatestAnchorOnly: true,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("load prior reports: %w", err)
	}

	current, err := e.reports.ListReportEntries(ctx, ReportQuery{
		DistributorID: distributorID,
		Statuses:      []shared.ApprovalStatus{shared.StatusPending, shared.StatusApproved},
		AnchorOn:      &anchor,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("load current reports: %w", err)
	}

	reports := make(ReportLedger, 0, len(prior)+len(current))
	reports = append(reports, prior...)
	reports = append(reports, current...)
	return OrderLedger(orders), reports, nil
}
