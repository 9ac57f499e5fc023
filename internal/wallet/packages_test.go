package wallet

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetPackage(t *testing.T) {
	p, ok := GetPackage("wallet_50")
	require.True(t, ok)
	assert.Equal(t, "wallet_50", p.ID)
	assert.True(t, p.Popular)

	_, ok = GetPackage("invalid")
	assert.False(t, ok)
}

func TestTotalAmount(t *testing.T) {
	assert.True(t, TotalAmount("wallet_100").Equal(decimal.NewFromInt(110)))
	assert.True(t, TotalAmount("wallet_10").Equal(decimal.NewFromInt(10)))
	assert.True(t, TotalAmount("invalid").IsZero())
}

func TestPackageCatalogInvariants(t *testing.T) {
	popular := 0
	withBonus := 0
	for _, p := range ListPackages() {
		if p.Popular {
			popular++
		}
		if p.Bonus.IsPositive() {
			withBonus++
		}
		assert.True(t, p.Amount.IsPositive(), p.ID)
	}

	assert.Equal(t, 1, popular, "exactly one package is popular")
	assert.LessOrEqual(t, withBonus, 1, "at most one package carries a bonus")
}

func TestPopularPackage(t *testing.T) {
	p := PopularPackage()
	require.NotNil(t, p)
	assert.Equal(t, "wallet_50", p.ID)
}
