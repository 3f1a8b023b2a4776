package coupon

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/storefront/backend/internal/domain/shared"
)

func TestNormalizeCode(t *testing.T) {
	assert.Equal(t, "SAVE20", NormalizeCode("  save20 "))
	assert.Equal(t, "FESTIVE50", NormalizeCode("Festive50"))
	assert.Equal(t, "", NormalizeCode("   "))
}

func TestNewCoupon(t *testing.T) {
	expiry := time.Now().Add(24 * time.Hour)

	t.Run("creates coupon with normalized code", func(t *testing.T) {
		c, err := NewCoupon(" save20 ", decimal.NewFromInt(20), expiry)
		require.NoError(t, err)
		assert.Equal(t, "SAVE20", c.Code)
		assert.True(t, c.Active)
	})

	t.Run("rejects empty code", func(t *testing.T) {
		_, err := NewCoupon("  ", decimal.NewFromInt(20), expiry)
		assert.Error(t, err)
	})

	t.Run("rejects discount out of range", func(t *testing.T) {
		_, err := NewCoupon("SAVE0", decimal.Zero, expiry)
		assert.Error(t, err)

		_, err = NewCoupon("SAVE101", decimal.NewFromInt(101), expiry)
		assert.Error(t, err)
	})

	t.Run("accepts boundary discounts", func(t *testing.T) {
		_, err := NewCoupon("SAVE1", decimal.NewFromInt(1), expiry)
		assert.NoError(t, err)

		_, err = NewCoupon("SAVE100", decimal.NewFromInt(100), expiry)
		assert.NoError(t, err)
	})
}

func TestCouponCheckUsable(t *testing.T) {
	now := time.Now()

	t.Run("usable before expiry", func(t *testing.T) {
		c, err := NewCoupon("SAVE20", decimal.NewFromInt(20), now.Add(time.Hour))
		require.NoError(t, err)
		assert.NoError(t, c.CheckUsable(now))
	})

	t.Run("expired at claim time", func(t *testing.T) {
		c, err := NewCoupon("SAVE20", decimal.NewFromInt(20), now.Add(time.Minute))
		require.NoError(t, err)

		// validated fine now, expired by the time it is claimed
		assert.NoError(t, c.CheckUsable(now))
		assert.ErrorIs(t, c.CheckUsable(now.Add(2*time.Minute)), shared.ErrCouponExpired)
	})

	t.Run("inactive reads as not found", func(t *testing.T) {
		c, err := NewCoupon("SAVE20", decimal.NewFromInt(20), now.Add(time.Hour))
		require.NoError(t, err)
		c.Deactivate()
		assert.ErrorIs(t, c.CheckUsable(now), shared.ErrNotFound)
	})
}
