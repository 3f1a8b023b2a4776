package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	appinvoice "github.com/storefront/backend/internal/application/invoice"
	"github.com/storefront/backend/internal/interfaces/http/middleware"
)

// InvoiceHandler exposes invoice endpoints
type InvoiceHandler struct {
	BaseHandler
	service *appinvoice.InvoiceService
}

// NewInvoiceHandler creates a new invoice handler
func NewInvoiceHandler(service *appinvoice.InvoiceService) *InvoiceHandler {
	return &InvoiceHandler{service: service}
}

// Generate issues the invoice for an order (admin). Idempotent: repeated
// calls return the invoice issued first.
// POST /api/v1/admin/orders/:id/invoice
func (h *InvoiceHandler) Generate(c *gin.Context) {
	orderID, ok := parseIDParam(c, "id")
	if !ok {
		h.BadRequest(c, "Invalid order ID")
		return
	}

	resp, err := h.service.Generate(c.Request.Context(), orderID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, resp)
}

// GenerateForOrder issues the invoice for the order named in the body
// (admin). Same idempotency as Generate.
// POST /api/v1/admin/invoices/generate
func (h *InvoiceHandler) GenerateForOrder(c *gin.Context) {
	var req struct {
		OrderID uuid.UUID `json:"order_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	resp, err := h.service.Generate(c.Request.Context(), req.OrderID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, resp)
}

// Get returns an invoice by its ID (admin)
// GET /api/v1/admin/invoices/:id
func (h *InvoiceHandler) Get(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}
	invoiceID, ok := parseIDParam(c, "id")
	if !ok {
		h.BadRequest(c, "Invalid invoice ID")
		return
	}

	resp, err := h.service.GetByID(c.Request.Context(), userID, isAdmin(c), invoiceID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// GetByOrder returns the invoice issued for an order
// GET /api/v1/orders/:id/invoice
func (h *InvoiceHandler) GetByOrder(c *gin.Context) {
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

	resp, err := h.service.GetByOrderID(c.Request.Context(), userID, isAdmin(c), orderID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// List returns invoices (admin)
// GET /api/v1/admin/invoices
func (h *InvoiceHandler) List(c *gin.Context) {
	var filter appinvoice.InvoiceListFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	resp, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}
