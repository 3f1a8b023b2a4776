package handler

import (
	"github.com/gin-gonic/gin"

	appcoupon "github.com/storefront/backend/internal/application/coupon"
	"github.com/storefront/backend/internal/interfaces/http/middleware"
)

// CouponHandler exposes coupon validation and admin management endpoints
type CouponHandler struct {
	BaseHandler
	service *appcoupon.CouponService
}

// NewCouponHandler creates a new coupon handler
func NewCouponHandler(service *appcoupon.CouponService) *CouponHandler {
	return &CouponHandler{service: service}
}

// Validate checks whether the caller can apply a coupon code
// POST /api/v1/coupons/validate
func (h *CouponHandler) Validate(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	var req struct {
		Code string `json:"code" binding:"required,min=1,max=64"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	resp, err := h.service.Validate(c.Request.Context(), userID, req.Code)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// Apply claims a coupon for the caller
// POST /api/v1/coupons/apply
func (h *CouponHandler) Apply(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	var req struct {
		Code string `json:"code" binding:"required,min=1,max=64"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	resp, err := h.service.Claim(c.Request.Context(), userID, req.Code)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// Create adds a new coupon (admin)
// POST /api/v1/admin/coupons
func (h *CouponHandler) Create(c *gin.Context) {
	var req appcoupon.CreateCouponRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	resp, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, resp)
}

// List returns coupons (admin)
// GET /api/v1/admin/coupons
func (h *CouponHandler) List(c *gin.Context) {
	var filter appcoupon.CouponListFilter
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

// Deactivate retires a coupon (admin)
// POST /api/v1/admin/coupons/:id/deactivate
func (h *CouponHandler) Deactivate(c *gin.Context) {
	couponID, ok := parseIDParam(c, "id")
	if !ok {
		h.BadRequest(c, "Invalid coupon ID")
		return
	}

	resp, err := h.service.Deactivate(c.Request.Context(), couponID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}
