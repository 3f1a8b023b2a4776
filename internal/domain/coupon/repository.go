package coupon

import (
	"context"

	"github.com/google/uuid"
	"github.com/storefront/backend/internal/domain/shared"
)

// Repository defines the interface for coupon persistence
type Repository interface {
	// FindByID finds a coupon by ID
	FindByID(ctx context.Context, id uuid.UUID) (*Coupon, error)

	// FindByCode finds an active coupon by its normalized code
	FindByCode(ctx context.Context, code string) (*Coupon, error)

	// FindAll finds coupons with filtering (admin listing)
	FindAll(ctx context.Context, filter shared.Filter) ([]Coupon, error)

	// HasUsed reports whether the user has already claimed the coupon
	HasUsed(ctx context.Context, couponID, userID uuid.UUID) (bool, error)

	// Claim atomically records the user's usage of the coupon.
	// Returns ErrCouponAlreadyUsed if a usage row already exists; the
	// insert and the uniqueness check are a single atomic operation.
	Claim(ctx context.Context, couponID, userID uuid.UUID) error

	// Save creates or updates a coupon
	Save(ctx context.Context, c *Coupon) error
}
