package coupon

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/storefront/backend/internal/domain/coupon"
	"github.com/storefront/backend/internal/domain/shared"
)

// CouponService manages discount coupons and shopper validation
type CouponService struct {
	coupons coupon.Repository
	logger  *zap.Logger
}

// NewCouponService creates a new coupon service
func NewCouponService(coupons coupon.Repository, logger *zap.Logger) *CouponService {
	return &CouponService{
		coupons: coupons,
		logger:  logger,
	}
}

// Validate checks whether the user can apply the coupon right now.
// The answer is advisory: the binding claim happens inside settlement,
// so a coupon that validates here can still be rejected at checkout.
func (s *CouponService) Validate(ctx context.Context, userID uuid.UUID, code string) (*ValidationResponse, error) {
	c, err := s.coupons.FindByCode(ctx, coupon.NormalizeCode(code))
	if err != nil {
		return nil, err
	}
	if err := c.CheckUsable(time.Now()); err != nil {
		return nil, err
	}

	used, err := s.coupons.HasUsed(ctx, c.ID, userID)
	if err != nil {
		return nil, err
	}
	if used {
		return nil, shared.ErrCouponAlreadyUsed
	}

	return &ValidationResponse{
		Code:            c.Code,
		DiscountPercent: c.DiscountPercent,
		ExpiresAt:       c.ExpiresAt,
	}, nil
}

// Claim records the coupon as used by the user without an order, for flows
// where the client locks in the discount ahead of settlement. Expiry is
// re-checked at claim time: a coupon that validated moments ago can still
// expire before it is claimed.
func (s *CouponService) Claim(ctx context.Context, userID uuid.UUID, code string) (*ValidationResponse, error) {
	c, err := s.coupons.FindByCode(ctx, coupon.NormalizeCode(code))
	if err != nil {
		return nil, err
	}
	if err := c.CheckUsable(time.Now()); err != nil {
		return nil, err
	}

	if err := s.coupons.Claim(ctx, c.ID, userID); err != nil {
		return nil, err
	}

	s.logger.Info("Coupon claimed",
		zap.String("code", c.Code),
		zap.String("user_id", userID.String()),
	)

	return &ValidationResponse{
		Code:            c.Code,
		DiscountPercent: c.DiscountPercent,
		ExpiresAt:       c.ExpiresAt,
	}, nil
}

// Create adds a new coupon (admin)
func (s *CouponService) Create(ctx context.Context, req CreateCouponRequest) (*CouponResponse, error) {
	c, err := coupon.NewCoupon(req.Code, req.DiscountPercent, req.ExpiresAt)
	if err != nil {
		return nil, err
	}
	if existing, err := s.coupons.FindByCode(ctx, c.Code); err == nil && existing != nil {
		return nil, shared.NewDomainError("VALIDATION_ERROR", "Coupon code already exists")
	}
	if err := s.coupons.Save(ctx, c); err != nil {
		return nil, err
	}

	s.logger.Info("coupon created",
		zap.String("code", c.Code),
		zap.String("discount_percent", c.DiscountPercent.String()))
	return ToCouponResponse(c), nil
}

// List returns coupons for the admin listing
func (s *CouponService) List(ctx context.Context, filter CouponListFilter) ([]CouponResponse, error) {
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 20
	}
	if filter.OrderBy == "" {
		filter.OrderBy = "created_at"
	}
	if filter.OrderDir == "" {
		filter.OrderDir = "desc"
	}

	domainFilter := shared.Filter{
		Page:     filter.Page,
		PageSize: filter.PageSize,
		OrderBy:  filter.OrderBy,
		OrderDir: filter.OrderDir,
		Filters:  make(map[string]interface{}),
	}
	if filter.Active != nil {
		domainFilter.Filters["active"] = *filter.Active
	}

	coupons, err := s.coupons.FindAll(ctx, domainFilter)
	if err != nil {
		return nil, err
	}
	return ToCouponResponses(coupons), nil
}

// Deactivate retires a coupon so it can no longer be applied (admin)
func (s *CouponService) Deactivate(ctx context.Context, couponID uuid.UUID) (*CouponResponse, error) {
	c, err := s.coupons.FindByID(ctx, couponID)
	if err != nil {
		return nil, err
	}
	c.Deactivate()
	if err := s.coupons.Save(ctx, c); err != nil {
		return nil, err
	}

	s.logger.Info("coupon deactivated", zap.String("code", c.Code))
	return ToCouponResponse(c), nil
}
