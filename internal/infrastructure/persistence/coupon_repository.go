package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/storefront/backend/internal/domain/coupon"
	"github.com/storefront/backend/internal/domain/shared"
)

// GormCouponRepository implements coupon.Repository using GORM
type GormCouponRepository struct {
	db *gorm.DB
}

// NewGormCouponRepository creates a new GormCouponRepository
func NewGormCouponRepository(db *gorm.DB) *GormCouponRepository {
	return &GormCouponRepository{db: db}
}

// WithTx returns a repository bound to the given transaction
func (r *GormCouponRepository) WithTx(tx *gorm.DB) *GormCouponRepository {
	return &GormCouponRepository{db: tx}
}

// FindByID finds a coupon by ID
func (r *GormCouponRepository) FindByID(ctx context.Context, id uuid.UUID) (*coupon.Coupon, error) {
	var c coupon.Coupon
	if err := r.db.WithContext(ctx).First(&c, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}

// FindByCode finds an active coupon by its normalized code
func (r *GormCouponRepository) FindByCode(ctx context.Context, code string) (*coupon.Coupon, error) {
	var c coupon.Coupon
	if err := r.db.WithContext(ctx).
		Where("code = ? AND active = ?", coupon.NormalizeCode(code), true).
		First(&c).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}

// FindAll finds coupons with filtering
func (r *GormCouponRepository) FindAll(ctx context.Context, filter shared.Filter) ([]coupon.Coupon, error) {
	var coupons []coupon.Coupon
	orderBy := ValidateSortField(filter.OrderBy, CouponSortFields, "created_at")
	orderDir := ValidateSortOrder(filter.OrderDir)

	query := r.db.WithContext(ctx).Model(&coupon.Coupon{}).
		Order(fmt.Sprintf("%s %s", orderBy, orderDir))
	if active, ok := filter.Filters["active"]; ok {
		query = query.Where("active = ?", active)
	}
	if filter.Page > 0 && filter.PageSize > 0 {
		query = query.Offset((filter.Page - 1) * filter.PageSize).Limit(filter.PageSize)
	}
	if err := query.Find(&coupons).Error; err != nil {
		return nil, err
	}
	return coupons, nil
}

// HasUsed reports whether the user has already claimed the coupon
func (r *GormCouponRepository) HasUsed(ctx context.Context, couponID, userID uuid.UUID) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&coupon.Usage{}).
		Where("coupon_id = ? AND user_id = ?", couponID, userID).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// Claim atomically records the user's usage of the coupon. The insert and
// the claim-once check collapse into one statement: ON CONFLICT DO NOTHING
// with RowsAffected == 0 meaning the user already holds a usage row.
func (r *GormCouponRepository) Claim(ctx context.Context, couponID, userID uuid.UUID) error {
	usage := coupon.Usage{
		CouponID: couponID,
		UserID:   userID,
		UsedAt:   time.Now(),
	}
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "coupon_id"}, {Name: "user_id"}},
			DoNothing: true,
		}).
		Create(&usage)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrCouponAlreadyUsed
	}
	return nil
}

// Save creates or updates a coupon
func (r *GormCouponRepository) Save(ctx context.Context, c *coupon.Coupon) error {
	return r.db.WithContext(ctx).Save(c).Error
}

// Ensure GormCouponRepository implements coupon.Repository
var _ coupon.Repository = (*GormCouponRepository)(nil)
