package money

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestFeeAndAmountThreePeriods(t *testing.T) {
	plan, err := FeeAndAmount(dec("299.00"), 3, dec("1.5"))
	require.NoError(t, err)

	assert.True(t, plan.Amount.Avg.Equal(dec("99.66")), "avg amount %s", plan.Amount.Avg)
	assert.True(t, plan.Amount.Last.Equal(dec("99.68")), "last amount %s", plan.Amount.Last)
	assert.True(t, plan.Fee.Total.Equal(dec("4.49")), "total fee %s", plan.Fee.Total)
	assert.True(t, plan.Fee.Avg.Equal(dec("1.49")), "avg fee %s", plan.Fee.Avg)
	assert.True(t, plan.Fee.Last.Equal(dec("1.51")), "last fee %s", plan.Fee.Last)

	assert.True(t, plan.PeriodTotal(1).Equal(dec("101.15")))
	assert.True(t, plan.PeriodTotal(3).Equal(dec("101.19")))
}

func TestSplitSumInvariant(t *testing.T) {
	totals := []string{"0.01", "0.99", "1.00", "100.00", "299.00", "1000.01", "99999.99", "7.77"}
	rates := []string{"0", "0.5", "1.5", "3.33", "12"}
	for _, total := range totals {
		for count := 1; count <= 24; count++ {
			for _, rate := range rates {
				plan, err := FeeAndAmount(dec(total), count, dec(rate))
				require.NoError(t, err)

				sumAmount := decimal.Zero
				sumFee := decimal.Zero
				for seq := 1; seq <= count; seq++ {
					sumAmount = sumAmount.Add(plan.Amount.At(seq, count))
					sumFee = sumFee.Add(plan.Fee.At(seq, count))
				}
				if !sumAmount.Equal(dec(total)) {
					t.Fatalf("amount sum mismatch total=%s count=%d got=%s", total, count, sumAmount)
				}
				wantFee := CeilPercent(dec(total), dec(rate))
				if !sumFee.Equal(wantFee) {
					t.Fatalf("fee sum mismatch total=%s count=%d rate=%s got=%s want=%s", total, count, rate, sumFee, wantFee)
				}
				if plan.Amount.Avg.GreaterThan(plan.Amount.Last) {
					t.Fatalf("floor share must not exceed last share: %+v", plan.Amount)
				}
			}
		}
	}
}

func TestSplitRejectsInvalidCount(t *testing.T) {
	_, err := Split(dec("10"), 0)
	assert.ErrorIs(t, err, ErrInvalidPeriodCount)

	_, err = Split(dec("-1"), 2)
	assert.ErrorIs(t, err, ErrNegativeAmount)
}

func TestCeilPercentRoundsUp(t *testing.T) {
	assert.True(t, CeilPercent(dec("299.00"), dec("1.5")).Equal(dec("4.49")))
	assert.True(t, CeilPercent(dec("100.00"), dec("0.001")).Equal(dec("0.01")))
	assert.True(t, CeilPercent(dec("100.00"), dec("0")).Equal(decimal.Zero))
}

func TestCappedFine(t *testing.T) {
	principal := dec("101.15")
	assert.True(t, CappedFine(principal, dec("0.05"), 0).IsZero())
	assert.True(t, CappedFine(principal, dec("0.05"), 1).Equal(dec("0.06")))
	assert.True(t, CappedFine(principal, dec("0.05"), 10).Equal(dec("0.51")))

	for _, days := range []int{100, 1999, 2000, 2001, 100000} {
		fine := CappedFine(principal, dec("0.05"), days)
		if fine.GreaterThan(principal) {
			t.Fatalf("fine %s exceeds principal %s at %d days", fine, principal, days)
		}
	}
	assert.True(t, CappedFine(principal, dec("0.05"), 100000).Equal(principal))
}
