package catalog

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetPrice(t *testing.T) {
	t.Run("Known slug", func(t *testing.T) {
		e, ok := GetPrice("data-analyzer")
		require.True(t, ok)
		assert.Equal(t, "data-analyzer", e.Slug)
		assert.True(t, e.Price.Equal(decimal.NewFromInt(8)))
	})

	t.Run("Unknown slug", func(t *testing.T) {
		e, ok := GetPrice("bogus")
		assert.False(t, ok)
		assert.Nil(t, e)
	})

	t.Run("All entries have positive price and currency suffix", func(t *testing.T) {
		for _, e := range ListAll() {
			assert.True(t, e.Price.IsPositive(), e.Slug)
			assert.True(t, strings.HasSuffix(e.PriceDisplay, Currency), e.Slug)
		}
	})
}

func TestListAllSortedAscending(t *testing.T) {
	all := ListAll()
	require.NotEmpty(t, all)

	for i := 1; i < len(all); i++ {
		assert.True(t, all[i].Price.GreaterThanOrEqual(all[i-1].Price),
			"%s should not come before %s", all[i].Slug, all[i-1].Slug)
	}
}

func TestListByCategory(t *testing.T) {
	t.Run("Known category sorted ascending", func(t *testing.T) {
		data := ListByCategory("data")
		require.Len(t, data, 2)
		assert.Equal(t, "weather-reporter", data[0].Slug)
		assert.Equal(t, "data-analyzer", data[1].Slug)
	})

	t.Run("Unknown category is empty not nil", func(t *testing.T) {
		out := ListByCategory("nope")
		assert.NotNil(t, out)
		assert.Empty(t, out)
	})
}

func TestSumPrices(t *testing.T) {
	weather, _ := GetPrice("weather-reporter")
	analyzer, _ := GetPrice("data-analyzer")
	expected := weather.Price.Add(analyzer.Price)

	sum := SumPrices([]string{"weather-reporter", "bogus", "data-analyzer"})
	assert.True(t, sum.Equal(expected), "got %s want %s", sum, expected)

	assert.True(t, SumPrices(nil).IsZero())
}

func TestFormatPrice(t *testing.T) {
	assert.Equal(t, "8.00 AED", FormatPrice(decimal.NewFromInt(8), "AED"))
	assert.Equal(t, "3.50 AED", FormatPrice(decimal.NewFromFloat(3.5), "AED"))
}

func TestTierize(t *testing.T) {
	tiers := Tierize()

	for _, e := range tiers.Low {
		assert.True(t, e.Price.LessThanOrEqual(decimal.NewFromInt(3)), e.Slug)
	}
	for _, e := range tiers.Medium {
		assert.True(t, e.Price.GreaterThan(decimal.NewFromInt(3)), e.Slug)
		assert.True(t, e.Price.LessThanOrEqual(decimal.NewFromInt(6)), e.Slug)
	}
	for _, e := range tiers.High {
		assert.True(t, e.Price.GreaterThan(decimal.NewFromInt(6)), e.Slug)
	}

	total := len(tiers.Low) + len(tiers.Medium) + len(tiers.High)
	assert.Equal(t, len(ListAll()), total)
}

func TestCheapestPrice(t *testing.T) {
	assert.True(t, CheapestPrice().Equal(decimal.NewFromInt(3)))
}
