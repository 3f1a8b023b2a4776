package coupon

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/storefront/backend/internal/domain/coupon"
)

// CreateCouponRequest creates a new coupon (admin)
type CreateCouponRequest struct {
	Code            string          `json:"code" binding:"required,min=1,max=64"`
	DiscountPercent decimal.Decimal `json:"discount_percent" binding:"required"`
	ExpiresAt       time.Time       `json:"expires_at" binding:"required"`
}

// CouponListFilter is the query filter for admin coupon listings
type CouponListFilter struct {
	Page     int    `form:"page"`
	PageSize int    `form:"page_size"`
	Active   *bool  `form:"active"`
	OrderBy  string `form:"order_by"`
	OrderDir string `form:"order_dir" binding:"omitempty,oneof=asc desc"`
}

// CouponResponse is the admin representation of a coupon
type CouponResponse struct {
	ID              uuid.UUID       `json:"id"`
	Code            string          `json:"code"`
	DiscountPercent decimal.Decimal `json:"discount_percent"`
	ExpiresAt       time.Time       `json:"expires_at"`
	Active          bool            `json:"active"`
	CreatedAt       time.Time       `json:"created_at"`
}

// ValidationResponse answers a shopper's pre-checkout coupon check
type ValidationResponse struct {
	Code            string          `json:"code"`
	DiscountPercent decimal.Decimal `json:"discount_percent"`
	ExpiresAt       time.Time       `json:"expires_at"`
}

// ToCouponResponse maps a coupon aggregate to its admin response
func ToCouponResponse(c *coupon.Coupon) *CouponResponse {
	return &CouponResponse{
		ID:              c.ID,
		Code:            c.Code,
		DiscountPercent: c.DiscountPercent,
		ExpiresAt:       c.ExpiresAt,
		Active:          c.Active,
		CreatedAt:       c.CreatedAt,
	}
}

// ToCouponResponses maps a slice of coupons
func ToCouponResponses(coupons []coupon.Coupon) []CouponResponse {
	responses := make([]CouponResponse, len(coupons))
	for i := range coupons {
		responses[i] = *ToCouponResponse(&coupons[i])
	}
	return responses
}
