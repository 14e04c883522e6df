// Package reporting files weekly reports against the reconciliation engine
// and manages their approval.
package reporting

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/distrib/backend/internal/domain/catalog"
	"github.com/distrib/backend/internal/domain/identity"
	"github.com/distrib/backend/internal/domain/reconciliation"
	"github.com/distrib/backend/internal/domain/reporting"
	"github.com/distrib/backend/internal/domain/shared"
	"github.com/distrib/backend/internal/infrastructure/logger"
	"github.com/distrib/backend/internal/infrastructure/telemetry"
)

// ReportExporter renders a report as a downloadable document
type ReportExporter interface {
	Export(report *reporting.WeeklyReport) ([]byte, error)
	ContentType() string
	Extension() string
}

// ReportService files and decides weekly reports
type ReportService struct {
	reportRepo     reporting.WeeklyReportRepository
	productRepo    catalog.ProductRepository
	engine         *reconciliation.Engine
	locker         CycleLocker
	exporter       ReportExporter
	eventPublisher shared.EventPublisher
	metrics        *telemetry.ReconciliationMetrics
	now            func() time.Time
}

func NewReportService(
	reportRepo reporting.WeeklyReportRepository,
	productRepo catalog.ProductRepository,
	engine *reconciliation.Engine,
	locker CycleLocker,
) *ReportService {
	if locker == nil {
		locker = NoopCycleLocker{}
	}
	return &ReportService{
		reportRepo:  reportRepo,
		productRepo: productRepo,
		engine:      engine,
		locker:      locker,
		now:         time.Now,
	}
}

// SetEventPublisher sets the publisher for report events
func (s *ReportService) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// SetMetrics enables report metrics
func (s *ReportService) SetMetrics(metrics *telemetry.ReconciliationMetrics) {
	s.metrics = metrics
}

// SetExporter enables Export
func (s *ReportService) SetExporter(exporter ReportExporter) {
	s.exporter = exporter
}

// SetClock overrides the time source used to pick the current cycle
func (s *ReportService) SetClock(now func() time.Time) {
	s.now = now
}

// CurrentCycle returns the cycle containing reference, or now when nil
func (s *ReportService) CurrentCycle(reference *time.Time) CycleResponse {
	at := s.now()
	if reference != nil {
		at = *reference
	}
	return toCycleResponse(s.engine.Calculator().CycleFor(at), s.now())
}

// Availability returns the availability of every catalog product for one
// distributor and cycle.
func (s *ReportService) Availability(ctx context.Context, actor identity.Actor, q AvailabilityQuery) (*AvailabilitySheet, error) {
	distributorID, err := s.targetDistributor(actor, q.DistributorID)
	if err != nil {
		return nil, err
	}
	reference := s.now()
	if q.Cycle != nil {
		reference = *q.Cycle
	}
	cycle := s.engine.Calculator().CycleFor(reference)
	excluding := uuid.Nil
	if q.ExcludingReportID != nil {
		excluding = *q.ExcludingReportID
	}

	ctx, span := telemetry.StartServiceSpan(ctx, "report", "availability",
		telemetry.AttrDistributorID.String(distributorID.String()),
		telemetry.AttrCycleAnchor.String(cycle.Anchor.Format(time.DateOnly)),
	)
	defer span.End()

	products, err := s.productRepo.FindAll(ctx, shared.Filter{OrderBy: "name", OrderDir: "asc"})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	ids := make([]uuid.UUID, 0, len(products))
	for _, p := range products {
		ids = append(ids, p.ID)
	}

	started := time.Now()
	availability, err := s.engine.AvailabilityFor(ctx, distributorID, ids, cycle.Anchor, excluding)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	if s.metrics != nil {
		s.metrics.RecordAvailabilityDuration(ctx, time.Since(started))
	}

	sheet := &AvailabilitySheet{
		DistributorID: distributorID,
		Cycle:         toCycleResponse(cycle, s.now()),
		Lines:         make([]AvailabilityLine, 0, len(products)),
	}
	for _, p := range products {
		sheet.Lines = append(sheet.Lines, AvailabilityLine{
			Availability: availability[p.ID],
			ProductName:  p.Name,
			UnitPrice:    p.UnitPrice,
		})
	}
	return sheet, nil
}

func (s *ReportService) targetDistributor(actor identity.Actor, requested *uuid.UUID) (uuid.UUID, error) {
	if !actor.IsAdmin() {
		return actor.DistributorID(), nil
	}
	if requested == nil || *requested == uuid.Nil {
		return uuid.Nil, shared.NewDomainError(shared.ErrInvalidInput.Code, "distributor_id is required for administrators")
	}
	return *requested, nil
}

// Submit files a new PENDING report. Claims are clamped against the cycle's
// availability, so the stored quantities may be lower than requested.
func (s *ReportService) Submit(ctx context.Context, actor identity.Actor, req SubmitReportRequest) (*ReportResponse, error) {
	if actor.Role != identity.RoleDistributor {
		return nil, shared.NewDomainError(shared.ErrForbidden.Code, "Only distributors file reports")
	}
	distributorID := actor.DistributorID()
	reference := s.now()
	if req.CycleAnchor != nil {
		reference = *req.CycleAnchor
	}
	anchor := s.engine.Calculator().AnchorFor(reference)

	claims, err := claimsFrom(req.Lines)
	if err != nil {
		return nil, err
	}

	ctx, span := telemetry.StartServiceSpan(ctx, "report", "submit",
		telemetry.AttrDistributorID.String(distributorID.String()),
		telemetry.AttrCycleAnchor.String(anchor.Format(time.DateOnly)),
	)
	defer span.End()

	unlock, err := s.lock(ctx, distributorID, anchor)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	defer unlock()

	body, err := s.finalize(ctx, distributorID, anchor, uuid.Nil, claims)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	report, err := reporting.NewWeeklyReport(distributorID, anchor, body, req.Notes)
	if err != nil {
		return nil, err
	}
	if err := s.reportRepo.Save(ctx, report); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	s.publish(ctx, report)
	if s.metrics != nil {
		s.metrics.RecordReportFiled(ctx, "submit", body.TotalSold, body.TotalDamaged, body.TotalRevenue, body.AdjustedLines())
	}

	logger.FromContext(ctx).Info("report submitted",
		zap.String("report_id", report.ID.String()),
		zap.String("distributor_id", distributorID.String()),
		zap.Time("cycle_anchor", anchor),
		zap.Int("adjusted_lines", body.AdjustedLines()),
	)
	resp := ToReportResponse(report)
	resp.AdjustedLines = body.AdjustedLines()
	return &resp, nil
}

// Revise recomputes a PENDING report from new claims. The report's own
// previous lines do not count against its availability.
func (s *ReportService) Revise(ctx context.Context, actor identity.Actor, id uuid.UUID, req ReviseReportRequest) (*ReportResponse, error) {
	claims, err := claimsFrom(req.Lines)
	if err != nil {
		return nil, err
	}
	report, err := s.reportRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := report.CheckEditableBy(actor); err != nil {
		return nil, err
	}

	ctx, span := telemetry.StartServiceSpan(ctx, "report", "revise",
		telemetry.AttrReportID.String(id.String()),
		telemetry.AttrCycleAnchor.String(report.CycleAnchor.Format(time.DateOnly)),
	)
	defer span.End()

	unlock, err := s.lock(ctx, report.DistributorID, report.CycleAnchor)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	defer unlock()

	// reload under the lock, a decision may have landed meanwhile
	if report, err = s.reportRepo.FindByID(ctx, id); err != nil {
		return nil, err
	}
	if err := report.CheckEditableBy(actor); err != nil {
		return nil, err
	}

	body, err := s.finalize(ctx, report.DistributorID, report.CycleAnchor, report.ID, claims)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	if err := report.Revise(body, req.Notes); err != nil {
		return nil, err
	}
	if err := s.reportRepo.Save(ctx, report); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	s.publish(ctx, report)
	if s.metrics != nil {
		s.metrics.RecordReportFiled(ctx, "revise", body.TotalSold, body.TotalDamaged, body.TotalRevenue, body.AdjustedLines())
	}

	resp := ToReportResponse(report)
	resp.AdjustedLines = body.AdjustedLines()
	return &resp, nil
}

func claimsFrom(lines []ReportLineInput) (map[uuid.UUID]reconciliation.Quantities, error) {
	if len(lines) == 0 {
		return nil, shared.NewDomainError("EMPTY_REPORT", "Report must cover at least one product")
	}
	claims := make(map[uuid.UUID]reconciliation.Quantities, len(lines))
	for _, line := range lines {
		if line.ProductID == uuid.Nil {
			return nil, shared.NewDomainError("INVALID_PRODUCT", "Product cannot be empty")
		}
		if _, dup := claims[line.ProductID]; dup {
			return nil, shared.NewDomainError("DUPLICATE_PRODUCT", fmt.Sprintf("Product %s appears more than once", line.ProductID))
		}
		claims[line.ProductID] = reconciliation.Quantities{Sold: line.QuantitySold, Damaged: line.QuantityDamaged}
	}
	return claims, nil
}

// finalize computes availability for the claimed products and clamps the
// claims against it. Products no longer in the catalog get none.
func (s *ReportService) finalize(ctx context.Context, distributorID uuid.UUID, anchor time.Time, excluding uuid.UUID, claims map[uuid.UUID]reconciliation.Quantities) (reconciliation.Result, error) {
	ids := make([]uuid.UUID, 0, len(claims))
	for id := range claims {
		ids = append(ids, id)
	}

	products, err := s.productRepo.FindByIDs(ctx, ids)
	if err != nil {
		return reconciliation.Result{}, err
	}
	info := make(map[uuid.UUID]reconciliation.ProductInfo, len(products))
	known := make([]uuid.UUID, 0, len(products))
	for _, p := range products {
		if _, wanted := claims[p.ID]; !wanted {
			continue
		}
		info[p.ID] = reconciliation.ProductInfo{ID: p.ID, Name: p.Name, UnitPrice: p.UnitPrice}
		known = append(known, p.ID)
	}

	started := time.Now()
	availability, err := s.engine.AvailabilityFor(ctx, distributorID, known, anchor, excluding)
	if err != nil {
		return reconciliation.Result{}, err
	}
	if s.metrics != nil {
		s.metrics.RecordAvailabilityDuration(ctx, time.Since(started))
	}
	return reconciliation.Finalize(claims, availability, info), nil
}

func (s *ReportService) lock(ctx context.Context, distributorID uuid.UUID, anchor time.Time) (func(), error) {
	started := time.Now()
	unlock, err := s.locker.Lock(ctx, distributorID, anchor)
	if s.metrics != nil {
		s.metrics.RecordCycleLockWait(ctx, time.Since(started))
	}
	if err != nil {
		logger.FromContext(ctx).Warn("cycle lock not acquired",
			zap.String("distributor_id", distributorID.String()),
			zap.Time("cycle_anchor", anchor),
			zap.Error(err),
		)
		return nil, err
	}
	return unlock, nil
}

// Approve accepts a PENDING report; its remaining stock becomes the
// carry-over of later cycles.
func (s *ReportService) Approve(ctx context.Context, actor identity.Actor, id uuid.UUID) (*ReportResponse, error) {
	return s.decide(ctx, actor, id, shared.StatusApproved, func(r *reporting.WeeklyReport) error {
		return r.Approve(actor.UserID)
	})
}

// Reject closes a PENDING report; it stops counting against availability
func (s *ReportService) Reject(ctx context.Context, actor identity.Actor, id uuid.UUID, req RejectReportRequest) (*ReportResponse, error) {
	return s.decide(ctx, actor, id, shared.StatusRejected, func(r *reporting.WeeklyReport) error {
		return r.Reject(actor.UserID, req.Reason)
	})
}

func (s *ReportService) decide(ctx context.Context, actor identity.Actor, id uuid.UUID, decision shared.ApprovalStatus, apply func(*reporting.WeeklyReport) error) (*ReportResponse, error) {
	if !actor.IsAdmin() {
		return nil, shared.ErrForbidden
	}
	ctx, span := telemetry.StartServiceSpan(ctx, "report", "decide",
		telemetry.AttrReportID.String(id.String()),
		telemetry.AttrDecision.String(string(decision)),
	)
	defer span.End()

	report, err := s.reportRepo.FindByID(ctx, id)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	if err := apply(report); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	if err := s.reportRepo.Save(ctx, report); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	s.publish(ctx, report)
	if s.metrics != nil {
		s.metrics.RecordReportDecision(ctx, string(decision))
	}

	logger.FromContext(ctx).Info("report decided",
		zap.String("report_id", report.ID.String()),
		zap.String("decision", string(decision)),
		zap.String("decided_by", actor.UserID.String()),
	)
	resp := ToReportResponse(report)
	return &resp, nil
}

// Delete removes a report. Administrators may delete any report, the owner
// only while it is PENDING.
func (s *ReportService) Delete(ctx context.Context, actor identity.Actor, id uuid.UUID) error {
	report, err := s.reportRepo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if err := report.CheckDeletableBy(actor); err != nil {
		return err
	}
	if err := s.reportRepo.Delete(ctx, id); err != nil {
		return err
	}
	report.MarkDeleted()
	s.publish(ctx, report)
	return nil
}

// GetByID returns a report visible to actor
func (s *ReportService) GetByID(ctx context.Context, actor identity.Actor, id uuid.UUID) (*ReportResponse, error) {
	report, err := s.visibleReport(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	resp := ToReportResponse(report)
	return &resp, nil
}

func (s *ReportService) visibleReport(ctx context.Context, actor identity.Actor, id uuid.UUID) (*reporting.WeeklyReport, error) {
	report, err := s.reportRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.CanView(report.DistributorID) {
		return nil, shared.ErrForbidden
	}
	return report, nil
}

// List returns a page of reports, latest cycle first. Distributors only see
// their own.
func (s *ReportService) List(ctx context.Context, actor identity.Actor, filter ReportListFilter) ([]ReportResponse, int64, error) {
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 20
	}
	domainFilter := shared.Filter{
		Page:     filter.Page,
		PageSize: filter.PageSize,
		OrderBy:  "cycle_anchor",
		OrderDir: "desc",
		Filters:  make(map[string]any),
	}
	if !actor.IsAdmin() {
		domainFilter.Filters["distributor_id"] = actor.DistributorID()
	} else if filter.DistributorID != nil {
		domainFilter.Filters["distributor_id"] = *filter.DistributorID
	}
	if filter.Status != "" {
		domainFilter.Filters["status"] = shared.ApprovalStatus(filter.Status)
	}
	if filter.CycleAnchor != nil {
		domainFilter.Filters["cycle_anchor"] = s.engine.Calculator().AnchorFor(*filter.CycleAnchor)
	}

	reports, err := s.reportRepo.FindAll(ctx, domainFilter)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.reportRepo.Count(ctx, domainFilter)
	if err != nil {
		return nil, 0, err
	}

	out := make([]ReportResponse, 0, len(reports))
	for i := range reports {
		out = append(out, ToReportResponse(&reports[i]))
	}
	return out, total, nil
}

// Export renders a report with the configured exporter and suggests a file
// name for it.
func (s *ReportService) Export(ctx context.Context, actor identity.Actor, id uuid.UUID) (data []byte, filename, contentType string, err error) {
	if s.exporter == nil {
		return nil, "", "", shared.NewDomainError(shared.ErrInvalidState.Code, "Report export is not configured")
	}
	report, err := s.visibleReport(ctx, actor, id)
	if err != nil {
		return nil, "", "", err
	}
	data, err = s.exporter.Export(report)
	if err != nil {
		return nil, "", "", fmt.Errorf("export report %s: %w", id, err)
	}
	filename = fmt.Sprintf("report-%s-%s.%s", report.CycleAnchor.Format("20060102"), report.ID.String()[:8], s.exporter.Extension())
	return data, filename, s.exporter.ContentType(), nil
}

func (s *ReportService) publish(ctx context.Context, report *reporting.WeeklyReport) {
	events := report.GetDomainEvents()
	report.ClearDomainEvents()
	if s.eventPublisher == nil || len(events) == 0 {
		return
	}
	if err := s.eventPublisher.Publish(ctx, events...); err != nil {
		logger.FromContext(ctx).Warn("failed to publish report events", zap.Error(err))
	}
}
