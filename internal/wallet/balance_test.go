package wallet

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

func TestHasSufficientBalance(t *testing.T) {
	assert.True(t, HasSufficientBalance(dec(10), dec(5)))
	assert.False(t, HasSufficientBalance(dec(5), dec(10)))
	// Exact match is sufficient.
	assert.True(t, HasSufficientBalance(dec(10), dec(10)))
	assert.True(t, HasSufficientBalance(decimal.Zero, decimal.Zero))
}

func TestFormatBalance(t *testing.T) {
	assert.Equal(t, "0.00 AED", FormatBalance(decimal.Zero))
	assert.Equal(t, "8.00 AED", FormatBalance(dec(8)))
	assert.Equal(t, "12.50 AED", FormatBalance(decimal.NewFromFloat(12.5)))
}

func TestFormatBalanceRoundTrip(t *testing.T) {
	for _, v := range []float64{0, 0.01, 3.33, 19.99, 1000} {
		d := decimal.NewFromFloat(v)
		formatted := FormatBalance(d)

		numeric := strings.Split(formatted, " ")[0]
		parsed, err := decimal.NewFromString(numeric)
		require.NoError(t, err)

		assert.Equal(t, formatted, FormatBalance(parsed))
	}
}

func TestClassifyStatus(t *testing.T) {
	tests := []struct {
		balance  int64
		expected string
	}{
		{0, "low"},
		{3, "low"},
		{4, "low"},
		{5, "medium"}, // first medium value
		{15, "medium"},
		{19, "medium"},
		{20, "high"}, // first high value
		{25, "high"},
	}

	for _, tt := range tests {
		status := ClassifyStatus(dec(tt.balance))
		assert.Equal(t, tt.expected, status.Status, "balance %d", tt.balance)
		assert.NotEmpty(t, status.Color)
		assert.NotEmpty(t, status.Message)
	}
}

func TestUsageCount(t *testing.T) {
	assert.Equal(t, 5, UsageCount(dec(10), dec(2)))
	assert.Equal(t, 0, UsageCount(dec(2), dec(3)))
	assert.Equal(t, 1, UsageCount(dec(8), dec(8)))
	assert.Equal(t, 0, UsageCount(dec(10), decimal.Zero))
	assert.Equal(t, 0, UsageCount(dec(-5), dec(2)))
}

func TestRecommendTopUp(t *testing.T) {
	unitPrice := dec(8)

	t.Run("Below one use picks smallest package covering three uses", func(t *testing.T) {
		p := RecommendTopUp(dec(5), unitPrice)
		require.NotNil(t, p)
		// Three uses cost 24; wallet_25 is the smallest that covers it.
		assert.Equal(t, "wallet_25", p.ID)
	})

	t.Run("Falls back to first package when none covers three uses", func(t *testing.T) {
		huge := dec(200)
		p := RecommendTopUp(dec(100), huge)
		require.NotNil(t, p)
		assert.Equal(t, "wallet_10", p.ID)
	})

	t.Run("Below two uses picks popular package", func(t *testing.T) {
		p := RecommendTopUp(dec(12), unitPrice)
		require.NotNil(t, p)
		assert.True(t, p.Popular)
	})

	t.Run("Comfortable balance gets no recommendation", func(t *testing.T) {
		assert.Nil(t, RecommendTopUp(dec(50), unitPrice))
	})

	t.Run("Non-positive unit price gets no recommendation", func(t *testing.T) {
		assert.Nil(t, RecommendTopUp(dec(1), decimal.Zero))
	})
}

func TestValidateBalance(t *testing.T) {
	assert.False(t, ValidateBalance(dec(-1)).IsValid)
	assert.False(t, ValidateBalance(dec(1001)).IsValid)
	assert.True(t, ValidateBalance(dec(500)).IsValid)
	assert.True(t, ValidateBalance(decimal.Zero).IsValid)
	assert.True(t, ValidateBalance(dec(1000)).IsValid)
}

func TestDebitToZeroScenario(t *testing.T) {
	// A user with 8 AED uses an 8 AED agent: the pre-check passes, the debit
	// drives the balance to zero, and a second pre-check fails.
	balance := dec(8)
	price := dec(8)

	require.True(t, HasSufficientBalance(balance, price))

	balance = balance.Sub(price)
	assert.True(t, balance.IsZero())
	assert.False(t, HasSufficientBalance(balance, price))
}
