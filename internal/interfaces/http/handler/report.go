package handler

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	appreporting "github.com/distrib/backend/internal/application/reporting"
	"github.com/distrib/backend/internal/interfaces/http/dto"
)

// ReportHandler serves weekly reports and the availability they are
// reconciled against
type ReportHandler struct {
	BaseHandler
	reportService *appreporting.ReportService
	location      *time.Location
}

// NewReportHandler creates a new report handler. Plain dates in queries are
// read in loc, the zone cycles are computed in.
func NewReportHandler(reportService *appreporting.ReportService, loc *time.Location) *ReportHandler {
	if loc == nil {
		loc = time.UTC
	}
	return &ReportHandler{reportService: reportService, location: loc}
}

// ListReportsQuery filters GET /reports. cycle_anchor must name the Monday
// that starts the cycle.
type ListReportsQuery struct {
	dto.Pagination
	DistributorID string     `form:"distributor_id" binding:"omitempty,uuid"`
	Status        string     `form:"status" binding:"omitempty,oneof=PENDING APPROVED REJECTED"`
	CycleAnchor   *time.Time `form:"cycle_anchor" time_format:"2006-01-02" time_utc:"1" binding:"omitempty,monday"`
}

// SubmitReportBody is the body of POST /reports. cycle_anchor is a plain
// date of any day in the cycle week, read in the business time zone.
type SubmitReportBody struct {
	CycleAnchor string                         `json:"cycle_anchor" binding:"omitempty,datetime=2006-01-02"`
	Lines       []appreporting.ReportLineInput `json:"lines" binding:"required,min=1,dive"`
	Notes       string                         `json:"notes" binding:"max=2000"`
}

// AvailabilityQuery is the query of GET /reports/availability
type AvailabilityQuery struct {
	DistributorID     string `form:"distributor_id" binding:"omitempty,uuid"`
	Cycle             string `form:"cycle"`
	ExcludingReportID string `form:"excluding_report_id" binding:"omitempty,uuid"`
}

// CurrentCycle handles GET /reports/cycle. ?at= picks the cycle containing
// another day.
func (h *ReportHandler) CurrentCycle(c *gin.Context) {
	at, err := optionalDate(c.Query("at"), h.location)
	if err != nil {
		h.ValidationError(c, []dto.ValidationDetail{{Field: "at", Message: "Invalid date"}})
		return
	}
	h.Success(c, h.reportService.CurrentCycle(at))
}

// Availability handles GET /reports/availability
func (h *ReportHandler) Availability(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	var q AvailabilityQuery
	if !h.bindQuery(c, &q) {
		return
	}

	query := appreporting.AvailabilityQuery{}
	query.DistributorID, _ = optionalUUID(q.DistributorID)
	query.ExcludingReportID, _ = optionalUUID(q.ExcludingReportID)
	cycle, err := optionalDate(q.Cycle, h.location)
	if err != nil {
		h.ValidationError(c, []dto.ValidationDetail{{Field: "cycle", Message: "Invalid date"}})
		return
	}
	query.Cycle = cycle

	sheet, err := h.reportService.Availability(c.Request.Context(), actor, query)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, sheet)
}

// Submit handles POST /reports
func (h *ReportHandler) Submit(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	var body SubmitReportBody
	if !h.bindJSON(c, &body) {
		return
	}
	req := appreporting.SubmitReportRequest{Lines: body.Lines, Notes: body.Notes}
	if body.CycleAnchor != "" {
		anchor, err := time.ParseInLocation(time.DateOnly, body.CycleAnchor, h.location)
		if err != nil {
			h.ValidationError(c, []dto.ValidationDetail{{Field: "cycle_anchor", Message: "Invalid date"}})
			return
		}
		req.CycleAnchor = &anchor
	}

	report, err := h.reportService.Submit(c.Request.Context(), actor, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, report)
}

// Revise handles PUT /reports/:id
func (h *ReportHandler) Revise(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	var req appreporting.ReviseReportRequest
	if !h.bindJSON(c, &req) {
		return
	}

	report, err := h.reportService.Revise(c.Request.Context(), actor, id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, report)
}

// GetByID handles GET /reports/:id
func (h *ReportHandler) GetByID(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c)
	if !ok {
		return
	}

	report, err := h.reportService.GetByID(c.Request.Context(), actor, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, report)
}

// List handles GET /reports
func (h *ReportHandler) List(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	var q ListReportsQuery
	if !h.bindQuery(c, &q) {
		return
	}
	page := q.Normalize()

	filter := appreporting.ReportListFilter{Status: q.Status, Page: page.Page, PageSize: page.PageSize}
	filter.DistributorID, _ = optionalUUID(q.DistributorID)
	if q.CycleAnchor != nil {
		y, m, d := q.CycleAnchor.Date()
		anchor := time.Date(y, m, d, 0, 0, 0, 0, h.location)
		filter.CycleAnchor = &anchor
	}

	reports, total, err := h.reportService.List(c.Request.Context(), actor, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, reports, total, page.Page, page.PageSize)
}

// Approve handles POST /reports/:id/approve
func (h *ReportHandler) Approve(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c)
	if !ok {
		return
	}

	report, err := h.reportService.Approve(c.Request.Context(), actor, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, report)
}

// Reject handles POST /reports/:id/reject. The body is optional.
func (h *ReportHandler) Reject(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	var req appreporting.RejectReportRequest
	if c.Request.ContentLength != 0 && !h.bindJSON(c, &req) {
		return
	}

	report, err := h.reportService.Reject(c.Request.Context(), actor, id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, report)
}

// Delete handles DELETE /reports/:id
func (h *ReportHandler) Delete(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c)
	if !ok {
		return
	}

	if err := h.reportService.Delete(c.Request.Context(), actor, id); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

// Export handles GET /reports/:id/export and streams the workbook
func (h *ReportHandler) Export(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c)
	if !ok {
		return
	}

	data, filename, contentType, err := h.reportService.Export(c.Request.Context(), actor, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, contentType, data)
}
