// Package event holds the application's domain event handlers.
package event

import (
	"context"

	"go.uber.org/zap"

	"github.com/distrib/backend/internal/domain/reporting"
	"github.com/distrib/backend/internal/domain/shared"
	"github.com/distrib/backend/internal/domain/trade"
	"github.com/distrib/backend/internal/infrastructure/telemetry"
)

// ActivityHandler logs order and report lifecycle events and counts them
type ActivityHandler struct {
	logger  *zap.Logger
	metrics *telemetry.ReconciliationMetrics
}

// NewActivityHandler creates the handler. metrics may be nil.
func NewActivityHandler(logger *zap.Logger, metrics *telemetry.ReconciliationMetrics) *ActivityHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ActivityHandler{logger: logger, metrics: metrics}
}

// EventTypes returns the event types this handler is interested in
func (h *ActivityHandler) EventTypes() []string {
	return []string{
		trade.EventTypeOrderCreated,
		trade.EventTypeOrderApproved,
		trade.EventTypeOrderRejected,
		trade.EventTypeOrderReceived,
		trade.EventTypeOrderDeleted,
		reporting.EventTypeReportSubmitted,
		reporting.EventTypeReportRevised,
		reporting.EventTypeReportApproved,
		reporting.EventTypeReportRejected,
		reporting.EventTypeReportDeleted,
	}
}

// Handle logs the event with the fields that matter for auditing
func (h *ActivityHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	fields := []zap.Field{
		zap.String("event_type", event.EventType()),
		zap.String("event_id", event.EventID().String()),
		zap.String("aggregate_id", event.AggregateID().String()),
	}

	switch e := event.(type) {
	case *trade.OrderCreatedEvent:
		fields = append(fields,
			zap.String("order_number", e.OrderNumber),
			zap.String("distributor_id", e.DistributorID.String()),
			zap.String("total_amount", e.TotalAmount.String()),
		)
	case *trade.OrderApprovedEvent:
		fields = append(fields,
			zap.String("distributor_id", e.DistributorID.String()),
			zap.String("approved_by", e.ApprovedBy.String()),
			zap.Int("lines", len(e.Lines)),
		)
	case *trade.OrderRejectedEvent:
		fields = append(fields,
			zap.String("distributor_id", e.DistributorID.String()),
			zap.String("reason", e.Reason),
		)
	case *trade.OrderReceivedEvent:
		fields = append(fields, zap.String("distributor_id", e.DistributorID.String()))
	case *trade.OrderDeletedEvent:
		fields = append(fields,
			zap.String("distributor_id", e.DistributorID.String()),
			zap.String("status", string(e.Status)),
			zap.Bool("stock_restored", e.StockRestored),
		)
	case *reporting.ReportSubmittedEvent:
		fields = append(fields, reportFields(e.ReportEvent)...)
	case *reporting.ReportRevisedEvent:
		fields = append(fields, reportFields(e.ReportEvent)...)
	case *reporting.ReportApprovedEvent:
		fields = append(fields, reportFields(e.ReportEvent)...)
		fields = append(fields, zap.String("approved_by", e.ApprovedBy.String()))
	case *reporting.ReportRejectedEvent:
		fields = append(fields, reportFields(e.ReportEvent)...)
		fields = append(fields, zap.String("reason", e.Reason))
	case *reporting.ReportDeletedEvent:
		fields = append(fields, reportFields(e.ReportEvent)...)
	default:
		h.logger.Debug("Ignoring unexpected event", fields...)
		return nil
	}

	h.logger.Info("Domain event", fields...)
	if h.metrics != nil {
		h.metrics.RecordDomainEvent(ctx, event.EventType(), event.AggregateType())
	}
	return nil
}

func reportFields(e reporting.ReportEvent) []zap.Field {
	return []zap.Field{
		zap.String("distributor_id", e.DistributorID.String()),
		zap.Time("cycle_anchor", e.CycleAnchor),
		zap.String("status", string(e.Status)),
		zap.Int64("total_sold", e.TotalSold),
		zap.Int64("total_damaged", e.TotalDamaged),
		zap.String("total_revenue", e.TotalRevenue.String()),
	}
}
