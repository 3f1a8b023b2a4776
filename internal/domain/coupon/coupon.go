package coupon

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/storefront/backend/internal/domain/shared"
)

// Coupon is a percentage discount claimable at most once per user.
// Codes are stored normalized: trimmed and uppercased.
type Coupon struct {
	shared.BaseAggregateRoot
	Code            string          `gorm:"type:varchar(64);not null;uniqueIndex"`
	DiscountPercent decimal.Decimal `gorm:"type:decimal(5,2);not null"`
	ExpiresAt       time.Time       `gorm:"not null"`
	Active          bool            `gorm:"not null;default:true"`
}

// TableName returns the database table name
func (Coupon) TableName() string {
	return "coupons"
}

// Usage records one user's claim of a coupon. The unique constraint on
// (coupon_id, user_id) is what enforces claim-once semantics.
type Usage struct {
	CouponID uuid.UUID `gorm:"type:uuid;primaryKey"`
	UserID   uuid.UUID `gorm:"type:uuid;primaryKey"`
	UsedAt   time.Time `gorm:"not null"`
}

// TableName returns the database table name
func (Usage) TableName() string {
	return "coupon_usages"
}

// NormalizeCode trims and uppercases a coupon code for lookup and storage
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// NewCoupon creates a validated coupon
func NewCoupon(code string, discountPercent decimal.Decimal, expiresAt time.Time) (*Coupon, error) {
	normalized := NormalizeCode(code)
	if normalized == "" {
		return nil, shared.NewDomainError("VALIDATION_ERROR", "Coupon code is required")
	}
	one := decimal.NewFromInt(1)
	hundred := decimal.NewFromInt(100)
	if discountPercent.LessThan(one) || discountPercent.GreaterThan(hundred) {
		return nil, shared.NewDomainError("VALIDATION_ERROR", "Discount percentage must be between 1 and 100")
	}
	if expiresAt.IsZero() {
		return nil, shared.NewDomainError("VALIDATION_ERROR", "Expiry timestamp is required")
	}

	return &Coupon{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Code:              normalized,
		DiscountPercent:   discountPercent,
		ExpiresAt:         expiresAt,
		Active:            true,
	}, nil
}

// IsExpired reports whether the coupon is past its expiry at the given time
func (c *Coupon) IsExpired(now time.Time) bool {
	return now.After(c.ExpiresAt)
}

// CheckUsable verifies the coupon can be used at the given time.
// Expiry is evaluated at call time; a coupon that validated as usable can
// still come back expired on a later claim.
func (c *Coupon) CheckUsable(now time.Time) error {
	if !c.Active {
		return shared.ErrNotFound
	}
	if c.IsExpired(now) {
		return shared.ErrCouponExpired
	}
	return nil
}

// Deactivate retires the coupon
func (c *Coupon) Deactivate() {
	c.Active = false
	c.UpdatedAt = time.Now()
}
