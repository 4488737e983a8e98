package outcome

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bx-rounds/internal/fairness"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestHardRiskCentreBinKnownSeed(t *testing.T) {
	got, err := ResolvePath(fairness.Seed("scenario-a-seed"), "abc", 0, RiskHard, 8)
	require.NoError(t, err)

	assert.Equal(t, []int{1, 0, 0, 0, 1, 1, 1, 0}, got.Path)
	assert.Equal(t, 4, got.Bin)
	assert.True(t, got.Multiplier.Equal(dec("5.6")), "multiplier %s", got.Multiplier)

	payout := Payout(dec("1.0"), got.Multiplier)
	assert.True(t, payout.Equal(dec("5.6")))
	assert.Equal(t, Win, Classify(dec("1.0"), payout))
}

func TestResolvePathDeterministic(t *testing.T) {
	src := fairness.Seed("fixed-server-seed")

	for nonce := uint64(0); nonce < 50; nonce++ {
		a, err := ResolvePath(src, "client", nonce, RiskMedium, 8)
		require.NoError(t, err)
		b, err := ResolvePath(src, "client", nonce, RiskMedium, 8)
		require.NoError(t, err)

		assert.Equal(t, a.Path, b.Path)
		assert.Equal(t, a.Bin, b.Bin)
		assert.True(t, a.Multiplier.Equal(b.Multiplier))

		sum := 0
		for _, s := range a.Path {
			sum += s
		}
		assert.Equal(t, sum, a.Bin)
	}
}

func TestPayoutTableShape(t *testing.T) {
	for _, risk := range []Risk{RiskEasy, RiskMedium, RiskHard} {
		row, err := Multipliers(risk, 8)
		require.NoError(t, err)
		require.Len(t, row, 9)

		lo, hi := row[0], row[0]
		for _, m := range row {
			lo = decimal.Min(lo, m)
			hi = decimal.Max(hi, m)
		}

		assert.True(t, row[0].Equal(lo), "%s: left edge must be the minimum", risk)
		assert.True(t, row[8].Equal(lo), "%s: right edge must be the minimum", risk)
		assert.True(t, row[4].Equal(hi), "%s: centre must be the maximum", risk)
	}
}

func TestMultipliersRejectsUnknown(t *testing.T) {
	_, err := Multipliers("insane", 8)
	require.ErrorIs(t, err, ErrUnknownRisk)

	_, err = Multipliers(RiskEasy, 12)
	require.ErrorIs(t, err, ErrUnknownRows)

	_, err = ParseRisk("EASY")
	require.ErrorIs(t, err, ErrUnknownRisk)

	r, err := ParseRisk("hard")
	require.NoError(t, err)
	assert.Equal(t, RiskHard, r)
}

func TestClassificationLaw(t *testing.T) {
	tests := []struct {
		amount, mult string
		payout       string
		want         Result
	}{
		{"1.00", "5.6", "5.6", Win},
		{"2.00", "0.5", "1", Loss},
		{"3.00", "0", "0", Loss},
		{"4.00", "1", "4", Push},
		{"0.33", "0.3", "0.1", Loss},
		{"1.25", "1.8", "2.25", Win},
	}

	for _, tt := range tests {
		payout := Payout(dec(tt.amount), dec(tt.mult))
		assert.True(t, payout.Equal(dec(tt.payout)), "%s x %s = %s", tt.amount, tt.mult, payout)
		assert.Equal(t, tt.want, Classify(dec(tt.amount), payout))
	}
}
