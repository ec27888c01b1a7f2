// Package money 提供分期拆分与费率计算的定点小数工具。
package money

import (
	"errors"

	"github.com/shopspring/decimal"
)

// Scale 金额精度（分）
const Scale = 2

var (
	// ErrInvalidPeriodCount 期数非法
	ErrInvalidPeriodCount = errors.New("period count must be positive")
	// ErrNegativeAmount 金额为负
	ErrNegativeAmount = errors.New("amount must not be negative")
)

var hundred = decimal.NewFromInt(100)

// Share 一次拆分的结果：前 N-1 期取 Avg，最后一期取 Last
type Share struct {
	Total decimal.Decimal `json:"total"`
	Avg   decimal.Decimal `json:"avg"`
	Last  decimal.Decimal `json:"last"`
}

// At 返回第 sequence 期（从 1 开始）的金额
func (s Share) At(sequence, count int) decimal.Decimal {
	if sequence >= count {
		return s.Last
	}
	return s.Avg
}

// Split 按期数拆分金额，平均值向下取整到分，余数归最后一期
func Split(total decimal.Decimal, count int) (Share, error) {
	if count <= 0 {
		return Share{}, ErrInvalidPeriodCount
	}
	if total.IsNegative() {
		return Share{}, ErrNegativeAmount
	}
	total = total.Round(Scale)
	avg := total.Div(decimal.NewFromInt(int64(count))).RoundFloor(Scale)
	last := total.Sub(avg.Mul(decimal.NewFromInt(int64(count - 1))))
	return Share{Total: total, Avg: avg, Last: last}, nil
}

// CeilPercent 计算 amount * rate / 100，向上取整到分
func CeilPercent(amount, rate decimal.Decimal) decimal.Decimal {
	return amount.Mul(rate).Div(hundred).RoundCeil(Scale)
}

// Plan 分期本金与手续费拆分结果
type Plan struct {
	Count  int   `json:"count"`
	Amount Share `json:"amount"`
	Fee    Share `json:"fee"`
}

// FeeAndAmount 计算订单金额在给定期数与费率下的本金、手续费拆分
func FeeAndAmount(total decimal.Decimal, count int, feeRate decimal.Decimal) (Plan, error) {
	amount, err := Split(total, count)
	if err != nil {
		return Plan{}, err
	}
	if feeRate.IsNegative() {
		return Plan{}, ErrNegativeAmount
	}
	fee, err := Split(CeilPercent(amount.Total, feeRate), count)
	if err != nil {
		return Plan{}, err
	}
	return Plan{Count: count, Amount: amount, Fee: fee}, nil
}

// PeriodTotal 第 sequence 期应还本金+手续费
func (p Plan) PeriodTotal(sequence int) decimal.Decimal {
	return p.Amount.At(sequence, p.Count).Add(p.Fee.At(sequence, p.Count))
}

// CappedFine 计算逾期罚金：ceil(principal * rate * days / 100)，且不超过 principal
func CappedFine(principal, dailyRate decimal.Decimal, overdueDays int) decimal.Decimal {
	if overdueDays <= 0 || principal.Sign() <= 0 {
		return decimal.Zero
	}
	fine := principal.Mul(dailyRate).Mul(decimal.NewFromInt(int64(overdueDays))).Div(hundred).RoundCeil(Scale)
	if fine.GreaterThan(principal) {
		return principal.Round(Scale)
	}
	return fine
}
