package money

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitConservesTotal(t *testing.T) {
	cases := []struct {
		total string
		n     int
		share string
		rem   string
	}{
		{"300", 3, "100", "0"},
		{"100", 3, "33.33", "0.01"},
		{"1000.01", 7, "142.85", "0.06"},
		{"0.05", 10, "0", "0.05"},
	}

	for _, tc := range cases {
		total := decimal.RequireFromString(tc.total)
		share, rem, err := Split(total, tc.n)
		require.NoError(t, err)
		assert.True(t, share.Equal(decimal.RequireFromString(tc.share)), "share %s for %s/%d", share, tc.total, tc.n)
		assert.True(t, rem.Equal(decimal.RequireFromString(tc.rem)), "remainder %s for %s/%d", rem, tc.total, tc.n)
		assert.True(t, share.Mul(decimal.NewFromInt(int64(tc.n))).Add(rem).Equal(total))
	}
}

func TestSplitRejectsZeroParts(t *testing.T) {
	_, _, err := Split(decimal.NewFromInt(10), 0)
	assert.ErrorIs(t, err, ErrInvalidParts)
}

func TestBalanced(t *testing.T) {
	d := decimal.RequireFromString
	assert.True(t, Balanced(d("20"), d("150"), d("100"), d("70")))
	assert.True(t, Balanced(d("20"), d("150"), d("100"), d("70.01")))
	assert.False(t, Balanced(d("20"), d("150"), d("100"), d("70.02")))
	assert.True(t, Drift(d("0"), d("10"), d("30"), d("-20")).IsZero())
}
