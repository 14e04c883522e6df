package handler

import (
	"time"

	"github.com/gin-gonic/gin"

	apptrade "github.com/distrib/backend/internal/application/trade"
	"github.com/distrib/backend/internal/interfaces/http/dto"
)

// OrderHandler serves distributor orders
type OrderHandler struct {
	BaseHandler
	orderService *apptrade.OrderService
	location     *time.Location
}

// NewOrderHandler creates a new order handler. Plain dates in list filters
// are read in loc.
func NewOrderHandler(orderService *apptrade.OrderService, loc *time.Location) *OrderHandler {
	if loc == nil {
		loc = time.UTC
	}
	return &OrderHandler{orderService: orderService, location: loc}
}

// ListOrdersQuery filters GET /orders
type ListOrdersQuery struct {
	dto.Pagination
	DistributorID string `form:"distributor_id" binding:"omitempty,uuid"`
	Status        string `form:"status" binding:"omitempty,oneof=PENDING APPROVED REJECTED"`
	CreatedFrom   string `form:"created_from"`
	CreatedBefore string `form:"created_before"`
}

// Create handles POST /orders
func (h *OrderHandler) Create(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	var req apptrade.CreateOrderRequest
	if !h.bindJSON(c, &req) {
		return
	}

	order, err := h.orderService.Create(c.Request.Context(), actor, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, order)
}

// GetByID handles GET /orders/:id
func (h *OrderHandler) GetByID(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c)
	if !ok {
		return
	}

	order, err := h.orderService.GetByID(c.Request.Context(), actor, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, order)
}

// List handles GET /orders. Distributors only ever see their own.
func (h *OrderHandler) List(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	var q ListOrdersQuery
	if !h.bindQuery(c, &q) {
		return
	}
	filter, details := h.orderFilter(q)
	if len(details) > 0 {
		h.ValidationError(c, details)
		return
	}

	orders, total, err := h.orderService.List(c.Request.Context(), actor, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, orders, total, filter.Page, filter.PageSize)
}

func (h *OrderHandler) orderFilter(q ListOrdersQuery) (apptrade.OrderListFilter, []dto.ValidationDetail) {
	page := q.Normalize()
	filter := apptrade.OrderListFilter{Status: q.Status, Page: page.Page, PageSize: page.PageSize}

	var details []dto.ValidationDetail
	var err error
	if filter.DistributorID, err = optionalUUID(q.DistributorID); err != nil {
		details = append(details, dto.ValidationDetail{Field: "distributor_id", Message: "Invalid UUID format"})
	}
	if filter.CreatedFrom, err = optionalDate(q.CreatedFrom, h.location); err != nil {
		details = append(details, dto.ValidationDetail{Field: "created_from", Message: "Invalid date"})
	}
	if filter.CreatedBefore, err = optionalDate(q.CreatedBefore, h.location); err != nil {
		details = append(details, dto.ValidationDetail{Field: "created_before", Message: "Invalid date"})
	}
	return filter, details
}

// Approve handles POST /orders/:id/approve
func (h *OrderHandler) Approve(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c)
	if !ok {
		return
	}

	order, err := h.orderService.Approve(c.Request.Context(), actor, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, order)
}

// Reject handles POST /orders/:id/reject. The body is optional.
func (h *OrderHandler) Reject(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	var req apptrade.RejectOrderRequest
	if c.Request.ContentLength != 0 && !h.bindJSON(c, &req) {
		return
	}

	order, err := h.orderService.Reject(c.Request.Context(), actor, id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, order)
}

// MarkReceived handles POST /orders/:id/receive
func (h *OrderHandler) MarkReceived(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c)
	if !ok {
		return
	}

	order, err := h.orderService.MarkReceived(c.Request.Context(), actor, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, order)
}

// Delete handles DELETE /orders/:id
func (h *OrderHandler) Delete(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c)
	if !ok {
		return
	}

	if err := h.orderService.Delete(c.Request.Context(), actor, id); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}
