package valueobject

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMoney(t *testing.T) {
	t.Run("creates money with valid amount and currency", func(t *testing.T) {
		m, err := NewMoney(decimal.NewFromFloat(100.50), INR)
		require.NoError(t, err)
		assert.Equal(t, INR, m.Currency())
		assert.True(t, m.Amount().Equal(decimal.NewFromFloat(100.50)))
	})

	t.Run("returns error for empty currency", func(t *testing.T) {
		_, err := NewMoney(decimal.NewFromFloat(100), "")
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "currency cannot be empty")
	})
}

func TestNewMoneyFromString(t *testing.T) {
	t.Run("valid string", func(t *testing.T) {
		m, err := NewMoneyFromString("123.45", INR)
		require.NoError(t, err)
		assert.True(t, m.Amount().Equal(decimal.NewFromFloat(123.45)))
	})

	t.Run("invalid string", func(t *testing.T) {
		_, err := NewMoneyFromString("not-a-number", INR)
		assert.Error(t, err)
	})
}

func TestNewMoneyINR(t *testing.T) {
	m := NewMoneyINR(decimal.NewFromFloat(50.00))
	assert.Equal(t, INR, m.Currency())
	assert.True(t, m.Amount().Equal(decimal.NewFromFloat(50.00)))
}

func TestZeroINR(t *testing.T) {
	m := ZeroINR()
	assert.True(t, m.IsZero())
	assert.Equal(t, INR, m.Currency())
}

func TestMoneySignChecks(t *testing.T) {
	positive := NewMoneyINRFromFloat(100)
	negative := NewMoneyINRFromFloat(-100)
	zero := ZeroINR()

	assert.True(t, positive.IsPositive())
	assert.False(t, positive.IsNegative())
	assert.True(t, negative.IsNegative())
	assert.False(t, negative.IsPositive())
	assert.True(t, zero.IsZero())
}

func TestMoneyAdd(t *testing.T) {
	t.Run("adds same currency", func(t *testing.T) {
		m1 := NewMoneyINRFromFloat(100.50)
		m2 := NewMoneyINRFromFloat(50.25)
		result, err := m1.Add(m2)
		require.NoError(t, err)
		assert.True(t, result.Amount().Equal(decimal.NewFromFloat(150.75)))
	})

	t.Run("fails for different currencies", func(t *testing.T) {
		m1, _ := NewMoneyFromFloat(100, INR)
		m2, _ := NewMoneyFromFloat(50, USD)
		_, err := m1.Add(m2)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "different currencies")
	})
}

func TestMoneySubtract(t *testing.T) {
	m1 := NewMoneyINRFromFloat(100)
	m2 := NewMoneyINRFromFloat(30)
	result, err := m1.Subtract(m2)
	require.NoError(t, err)
	assert.Equal(t, 70.0, result.Float64())
}

func TestMoneyMultiplyByInt(t *testing.T) {
	m := NewMoneyINRFromFloat(25.5)
	result := m.MultiplyByInt(4)
	assert.True(t, result.Amount().Equal(decimal.NewFromFloat(102)))
}

func TestMoneyComparisons(t *testing.T) {
	small := NewMoneyINRFromFloat(10)
	big := NewMoneyINRFromFloat(20)

	lt, err := small.LessThan(big)
	require.NoError(t, err)
	assert.True(t, lt)

	gte, err := big.GreaterThanOrEqual(small)
	require.NoError(t, err)
	assert.True(t, gte)

	usd, _ := NewMoneyFromFloat(10, USD)
	_, err = small.LessThan(usd)
	assert.Error(t, err)
}

func TestMoneyEquals(t *testing.T) {
	m1 := NewMoneyINRFromFloat(99.99)
	m2, _ := NewMoneyFromString("99.99", INR)
	assert.True(t, m1.Equals(m2))

	usd, _ := NewMoneyFromFloat(99.99, USD)
	assert.False(t, m1.Equals(usd))
}

func TestMoneyCalculatePercentage(t *testing.T) {
	m := NewMoneyINRFromFloat(200)
	result := m.CalculatePercentage(decimal.NewFromInt(15))
	assert.True(t, result.Amount().Equal(decimal.NewFromInt(30)))
}

func TestMoneyApplyDiscount(t *testing.T) {
	t.Run("applies partial discount", func(t *testing.T) {
		m := NewMoneyINRFromFloat(100)
		result := m.ApplyDiscount(decimal.NewFromInt(25))
		assert.True(t, result.Amount().Equal(decimal.NewFromInt(75)))
	})

	t.Run("full discount yields zero", func(t *testing.T) {
		m := NewMoneyINRFromFloat(499)
		result := m.ApplyDiscount(decimal.NewFromInt(100))
		assert.True(t, result.IsZero())
	})
}

func TestMoneyJSONRoundTrip(t *testing.T) {
	m := NewMoneyINRFromFloat(1234.56)
	data, err := json.Marshal(m)
	require.NoError(t, err)

	var decoded Money
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.True(t, m.Equals(decoded))
}

func TestMoneyScan(t *testing.T) {
	t.Run("scans string value", func(t *testing.T) {
		var m Money
		require.NoError(t, m.Scan("42.50"))
		assert.True(t, m.Amount().Equal(decimal.NewFromFloat(42.50)))
		assert.Equal(t, DefaultCurrency, m.Currency())
	})

	t.Run("scans nil as zero", func(t *testing.T) {
		var m Money
		require.NoError(t, m.Scan(nil))
		assert.True(t, m.IsZero())
	})
}
