package coupon_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	appcoupon "github.com/storefront/backend/internal/application/coupon"
	"github.com/storefront/backend/internal/domain/coupon"
	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/infrastructure/persistence"
)

type couponFixture struct {
	svc     *appcoupon.CouponService
	coupons *persistence.GormCouponRepository
}

func setupCouponService(t *testing.T) *couponFixture {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&coupon.Coupon{}, &coupon.Usage{}))

	coupons := persistence.NewGormCouponRepository(db)
	return &couponFixture{
		svc:     appcoupon.NewCouponService(coupons, zap.NewNop()),
		coupons: coupons,
	}
}

func seedCoupon(t *testing.T, f *couponFixture, code string, percent int64, expiresAt time.Time) *coupon.Coupon {
	t.Helper()
	c, err := coupon.NewCoupon(code, decimal.NewFromInt(percent), expiresAt)
	require.NoError(t, err)
	require.NoError(t, f.coupons.Save(context.Background(), c))
	return c
}

func TestCouponService_Validate(t *testing.T) {
	ctx := context.Background()

	t.Run("usable coupon returns its discount", func(t *testing.T) {
		f := setupCouponService(t)
		seedCoupon(t, f, "DIWALI20", 20, time.Now().Add(48*time.Hour))

		resp, err := f.svc.Validate(ctx, uuid.New(), "  diwali20 ")
		require.NoError(t, err)
		assert.Equal(t, "DIWALI20", resp.Code)
		assert.Equal(t, "20", resp.DiscountPercent.String())
	})

	t.Run("expired coupon is reported as expired, not missing", func(t *testing.T) {
		f := setupCouponService(t)
		seedCoupon(t, f, "OLD10", 10, time.Now().Add(-time.Hour))

		_, err := f.svc.Validate(ctx, uuid.New(), "OLD10")
		assert.ErrorIs(t, err, shared.ErrCouponExpired)
	})

	t.Run("claimed coupon cannot be validated again by the same user", func(t *testing.T) {
		f := setupCouponService(t)
		c := seedCoupon(t, f, "ONCE15", 15, time.Now().Add(48*time.Hour))
		userID := uuid.New()
		require.NoError(t, f.coupons.Claim(ctx, c.ID, userID))

		_, err := f.svc.Validate(ctx, userID, "ONCE15")
		assert.ErrorIs(t, err, shared.ErrCouponAlreadyUsed)

		// A different user can still use it.
		resp, err := f.svc.Validate(ctx, uuid.New(), "ONCE15")
		require.NoError(t, err)
		assert.Equal(t, "ONCE15", resp.Code)
	})

	t.Run("unknown code is not found", func(t *testing.T) {
		f := setupCouponService(t)
		_, err := f.svc.Validate(ctx, uuid.New(), "NOPE")
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})
}

func TestCouponService_Create(t *testing.T) {
	ctx := context.Background()

	t.Run("stores the normalized code", func(t *testing.T) {
		f := setupCouponService(t)
		resp, err := f.svc.Create(ctx, appcoupon.CreateCouponRequest{
			Code:            " summer25 ",
			DiscountPercent: decimal.NewFromInt(25),
			ExpiresAt:       time.Now().Add(30 * 24 * time.Hour),
		})
		require.NoError(t, err)
		assert.Equal(t, "SUMMER25", resp.Code)
		assert.True(t, resp.Active)
	})

	t.Run("duplicate code is rejected", func(t *testing.T) {
		f := setupCouponService(t)
		seedCoupon(t, f, "DUP10", 10, time.Now().Add(time.Hour))

		_, err := f.svc.Create(ctx, appcoupon.CreateCouponRequest{
			Code:            "dup10",
			DiscountPercent: decimal.NewFromInt(10),
			ExpiresAt:       time.Now().Add(time.Hour),
		})
		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "VALIDATION_ERROR", domainErr.Code)
	})

	t.Run("discount outside 1..100 is rejected", func(t *testing.T) {
		f := setupCouponService(t)
		for _, percent := range []int64{0, 101} {
			_, err := f.svc.Create(ctx, appcoupon.CreateCouponRequest{
				Code:            "BAD",
				DiscountPercent: decimal.NewFromInt(percent),
				ExpiresAt:       time.Now().Add(time.Hour),
			})
			require.Error(t, err, "percent %d", percent)
		}
	})
}

func TestCouponService_Deactivate(t *testing.T) {
	ctx := context.Background()
	f := setupCouponService(t)
	c := seedCoupon(t, f, "BYE30", 30, time.Now().Add(48*time.Hour))

	resp, err := f.svc.Deactivate(ctx, c.ID)
	require.NoError(t, err)
	assert.False(t, resp.Active)

	// Shoppers no longer see the code.
	_, err = f.svc.Validate(ctx, uuid.New(), "BYE30")
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestCouponService_List(t *testing.T) {
	ctx := context.Background()
	f := setupCouponService(t)
	seedCoupon(t, f, "A10", 10, time.Now().Add(time.Hour))
	seedCoupon(t, f, "B20", 20, time.Now().Add(time.Hour))
	retired := seedCoupon(t, f, "C30", 30, time.Now().Add(time.Hour))
	_, err := f.svc.Deactivate(ctx, retired.ID)
	require.NoError(t, err)

	t.Run("lists everything by default", func(t *testing.T) {
		resp, err := f.svc.List(ctx, appcoupon.CouponListFilter{})
		require.NoError(t, err)
		assert.Len(t, resp, 3)
	})

	t.Run("filters on active", func(t *testing.T) {
		active := true
		resp, err := f.svc.List(ctx, appcoupon.CouponListFilter{Active: &active})
		require.NoError(t, err)
		assert.Len(t, resp, 2)
	})
}

func TestCouponService_Claim(t *testing.T) {
	ctx := context.Background()

	t.Run("claim records the usage and blocks a second claim", func(t *testing.T) {
		f := setupCouponService(t)
		seedCoupon(t, f, "LOCK25", 25, time.Now().Add(48*time.Hour))
		userID := uuid.New()

		resp, err := f.svc.Claim(ctx, userID, "lock25")
		require.NoError(t, err)
		assert.Equal(t, "LOCK25", resp.Code)
		assert.Equal(t, "25", resp.DiscountPercent.String())

		_, err = f.svc.Claim(ctx, userID, "LOCK25")
		assert.ErrorIs(t, err, shared.ErrCouponAlreadyUsed)
	})

	t.Run("different users claim independently", func(t *testing.T) {
		f := setupCouponService(t)
		seedCoupon(t, f, "SHARED5", 5, time.Now().Add(48*time.Hour))

		_, err := f.svc.Claim(ctx, uuid.New(), "SHARED5")
		require.NoError(t, err)
		_, err = f.svc.Claim(ctx, uuid.New(), "SHARED5")
		require.NoError(t, err)
	})

	t.Run("expired coupon cannot be claimed", func(t *testing.T) {
		f := setupCouponService(t)
		seedCoupon(t, f, "GONE10", 10, time.Now().Add(-time.Minute))

		_, err := f.svc.Claim(ctx, uuid.New(), "GONE10")
		assert.ErrorIs(t, err, shared.ErrCouponExpired)
	})

	t.Run("unknown code", func(t *testing.T) {
		f := setupCouponService(t)
		_, err := f.svc.Claim(ctx, uuid.New(), "NOPE")
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})
}
