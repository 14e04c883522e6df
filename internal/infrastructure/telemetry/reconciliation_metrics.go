package telemetry

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/metric"
)

// ReconciliationMetrics records order decisions, report filings and the
// cost of availability computation.
type ReconciliationMetrics struct {
	orderDecisions    *Counter
	reportsFiled      *Counter
	reportDecisions   *Counter
	unitsReported     *Counter
	revenueCents      *Counter
	adjustedLines     *Counter
	availabilityTime  *Histogram
	cycleLockWaitTime *Histogram
	domainEvents      *Counter
}

// ErrMeterNil is returned when no meter is supplied
var ErrMeterNil = &MetricsError{Op: "NewReconciliationMetrics", Err: "meter cannot be nil"}

// MetricsError is a metrics setup failure
type MetricsError struct {
	Op  string
	Err string
}

func (e *MetricsError) Error() string {
	return e.Op + ": " + e.Err
}

// NewReconciliationMetrics registers the instruments on meter
func NewReconciliationMetrics(meter metric.Meter) (*ReconciliationMetrics, error) {
	if meter == nil {
		return nil, ErrMeterNil
	}
	m := &ReconciliationMetrics{}
	var err error
	if m.orderDecisions, err = NewCounter(meter, "distrib_order_decisions_total", "Orders approved or rejected", "{orders}"); err != nil {
		return nil, err
	}
	if m.reportsFiled, err = NewCounter(meter, "distrib_reports_filed_total", "Weekly reports submitted or revised", "{reports}"); err != nil {
		return nil, err
	}
	if m.reportDecisions, err = NewCounter(meter, "distrib_report_decisions_total", "Weekly reports approved or rejected", "{reports}"); err != nil {
		return nil, err
	}
	if m.unitsReported, err = NewCounter(meter, "distrib_units_reported_total", "Units reported sold or damaged", "{units}"); err != nil {
		return nil, err
	}
	if m.revenueCents, err = NewCounter(meter, "distrib_reported_revenue_cents_total", "Revenue on filed reports", "{cents}"); err != nil {
		return nil, err
	}
	if m.adjustedLines, err = NewCounter(meter, "distrib_report_lines_adjusted_total", "Report lines clamped to availability", "{lines}"); err != nil {
		return nil, err
	}
	if m.availabilityTime, err = NewHistogram(meter, "distrib_availability_duration_seconds", "Time to compute availability", "s",
		0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1); err != nil {
		return nil, err
	}
	if m.cycleLockWaitTime, err = NewHistogram(meter, "distrib_cycle_lock_wait_seconds", "Time spent waiting for the cycle lock", "s",
		0.001, 0.01, 0.05, 0.1, 0.5, 1, 5); err != nil {
		return nil, err
	}
	if m.domainEvents, err = NewCounter(meter, "distrib_domain_events_total", "Domain events delivered to handlers", "{events}"); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *ReconciliationMetrics) RecordOrderDecision(ctx context.Context, decision string) {
	m.orderDecisions.Inc(ctx, AttrDecision.String(decision))
}

func (m *ReconciliationMetrics) RecordReportDecision(ctx context.Context, decision string) {
	m.reportDecisions.Inc(ctx, AttrDecision.String(decision))
}

// RecordReportFiled counts a submission or revision with its totals
func (m *ReconciliationMetrics) RecordReportFiled(ctx context.Context, kind string, sold, damaged int64, revenue decimal.Decimal, adjusted int) {
	m.reportsFiled.Inc(ctx, AttrKind.String(kind))
	m.unitsReported.Add(ctx, sold, AttrKind.String("sold"))
	m.unitsReported.Add(ctx, damaged, AttrKind.String("damaged"))
	m.revenueCents.Add(ctx, revenue.Shift(2).IntPart())
	if adjusted > 0 {
		m.adjustedLines.Add(ctx, int64(adjusted))
	}
}

func (m *ReconciliationMetrics) RecordAvailabilityDuration(ctx context.Context, d time.Duration) {
	m.availabilityTime.RecordDuration(ctx, d)
}

func (m *ReconciliationMetrics) RecordCycleLockWait(ctx context.Context, d time.Duration) {
	m.cycleLockWaitTime.RecordDuration(ctx, d)
}

// RecordDomainEvent counts a delivered event by type and aggregate
func (m *ReconciliationMetrics) RecordDomainEvent(ctx context.Context, eventType, aggregateType string) {
	m.domainEvents.Inc(ctx, AttrEventType.String(eventType), AttrKind.String(aggregateType))
}
