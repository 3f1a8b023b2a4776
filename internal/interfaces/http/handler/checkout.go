package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/storefront/backend/internal/application/checkout"
	"github.com/storefront/backend/internal/interfaces/http/middleware"
)

// CheckoutHandler exposes payment creation and settlement endpoints
type CheckoutHandler struct {
	BaseHandler
	service *checkout.CheckoutService
}

// NewCheckoutHandler creates a new checkout handler
func NewCheckoutHandler(service *checkout.CheckoutService) *CheckoutHandler {
	return &CheckoutHandler{service: service}
}

// CreatePaymentOrder creates a gateway payment intent for the cart
// POST /api/v1/payment/create-order
func (h *CheckoutHandler) CreatePaymentOrder(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	var req checkout.CreatePaymentOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	resp, err := h.service.CreatePaymentOrder(c.Request.Context(), userID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// VerifyPayment verifies the gateway proof and settles the order
// POST /api/v1/payment/verify
func (h *CheckoutHandler) VerifyPayment(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	var req checkout.VerifyPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	resp, err := h.service.VerifyAndSettle(c.Request.Context(), userID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, resp)
}

// SettleManual settles an order paid outside the gateway (COD, direct UPI)
// POST /api/v1/payment/manual
func (h *CheckoutHandler) SettleManual(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	var req checkout.ManualOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	resp, err := h.service.SettleManual(c.Request.Context(), userID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, resp)
}
