package handler

import (
	"github.com/gin-gonic/gin"

	apporder "github.com/storefront/backend/internal/application/order"
	"github.com/storefront/backend/internal/interfaces/http/middleware"
)

// OrderHandler exposes order lifecycle endpoints
type OrderHandler struct {
	BaseHandler
	service *apporder.OrderService
}

// NewOrderHandler creates a new order handler
func NewOrderHandler(service *apporder.OrderService) *OrderHandler {
	return &OrderHandler{service: service}
}

// List returns the caller's orders, or all orders for admins
// GET /api/v1/orders
func (h *OrderHandler) List(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	var filter apporder.OrderListFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	var (
		orders []apporder.OrderListItemResponse
		total  int64
	)
	if isAdmin(c) {
		orders, total, err = h.service.List(c.Request.Context(), filter)
	} else {
		orders, total, err = h.service.ListByUser(c.Request.Context(), userID, filter)
	}
	if err != nil {
		h.HandleError(c, err)
		return
	}

	page, pageSize := filter.Page, filter.PageSize
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	h.SuccessWithMeta(c, orders, total, page, pageSize)
}

// Get returns a single order
// GET /api/v1/orders/:id
func (h *OrderHandler) Get(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}
	orderID, ok := parseIDParam(c, "id")
	if !ok {
		h.BadRequest(c, "Invalid order ID")
		return
	}

	resp, err := h.service.GetByID(c.Request.Context(), userID, isAdmin(c), orderID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// Cancel cancels an order before shipment and releases its stock
// POST /api/v1/orders/:id/cancel
func (h *OrderHandler) Cancel(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}
	orderID, ok := parseIDParam(c, "id")
	if !ok {
		h.BadRequest(c, "Invalid order ID")
		return
	}

	var req apporder.CancelOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	resp, err := h.service.Cancel(c.Request.Context(), userID, isAdmin(c), orderID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// RequestReturn opens a return request on a delivered order
// POST /api/v1/orders/:id/return
func (h *OrderHandler) RequestReturn(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}
	orderID, ok := parseIDParam(c, "id")
	if !ok {
		h.BadRequest(c, "Invalid order ID")
		return
	}

	var req apporder.RequestReturnRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	resp, err := h.service.RequestReturn(c.Request.Context(), userID, orderID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// ConfirmPayment marks a manually settled order as paid (admin)
// POST /api/v1/admin/orders/:id/confirm-payment
func (h *OrderHandler) ConfirmPayment(c *gin.Context) {
	orderID, ok := parseIDParam(c, "id")
	if !ok {
		h.BadRequest(c, "Invalid order ID")
		return
	}

	var req struct {
		PaymentRef string `json:"payment_ref"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	resp, err := h.service.ConfirmPayment(c.Request.Context(), orderID, req.PaymentRef)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// Ship books a carrier pickup and marks the order shipped (admin)
// POST /api/v1/admin/orders/:id/ship
func (h *OrderHandler) Ship(c *gin.Context) {
	orderID, ok := parseIDParam(c, "id")
	if !ok {
		h.BadRequest(c, "Invalid order ID")
		return
	}

	var req apporder.ShipOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	resp, err := h.service.Ship(c.Request.Context(), orderID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// Deliver marks a shipped order as delivered (admin)
// POST /api/v1/admin/orders/:id/deliver
func (h *OrderHandler) Deliver(c *gin.Context) {
	orderID, ok := parseIDParam(c, "id")
	if !ok {
		h.BadRequest(c, "Invalid order ID")
		return
	}

	resp, err := h.service.Deliver(c.Request.Context(), orderID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// StartReturnProcessing picks up a pending return request (admin)
// POST /api/v1/admin/orders/:id/return/process
func (h *OrderHandler) StartReturnProcessing(c *gin.Context) {
	orderID, ok := parseIDParam(c, "id")
	if !ok {
		h.BadRequest(c, "Invalid order ID")
		return
	}

	resp, err := h.service.StartReturnProcessing(c.Request.Context(), orderID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// CompleteReturn finishes a return with a refund and restock (admin)
// POST /api/v1/admin/orders/:id/return/complete
func (h *OrderHandler) CompleteReturn(c *gin.Context) {
	orderID, ok := parseIDParam(c, "id")
	if !ok {
		h.BadRequest(c, "Invalid order ID")
		return
	}

	var req apporder.CompleteReturnRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	resp, err := h.service.CompleteReturn(c.Request.Context(), orderID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// RejectReturn declines a return request (admin)
// POST /api/v1/admin/orders/:id/return/reject
func (h *OrderHandler) RejectReturn(c *gin.Context) {
	orderID, ok := parseIDParam(c, "id")
	if !ok {
		h.BadRequest(c, "Invalid order ID")
		return
	}

	var req apporder.RejectReturnRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	resp, err := h.service.RejectReturn(c.Request.Context(), orderID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// CheckServiceability answers whether delivery reaches a pincode
// GET /api/v1/shipping/serviceability/:pincode
func (h *OrderHandler) CheckServiceability(c *gin.Context) {
	resp, err := h.service.CheckServiceability(c.Request.Context(), c.Param("pincode"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}
