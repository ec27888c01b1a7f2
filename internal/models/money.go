package models

import (
	"bytes"
	"database/sql/driver"
	"fmt"

	"github.com/mall-next/internal/money"

	"github.com/shopspring/decimal"
)

// Money 以分为精度的金额，JSON 里总是输出两位小数的字符串
type Money struct {
	decimal.Decimal
}

func NewMoneyFromDecimal(amount decimal.Decimal) Money {
	return Money{Decimal: amount.Round(money.Scale)}
}

// MustMoney 解析常量金额，格式错误直接 panic
func MustMoney(amount string) Money {
	return NewMoneyFromDecimal(decimal.RequireFromString(amount))
}

func ZeroMoney() Money {
	return Money{Decimal: decimal.Zero}
}

func (m Money) String() string {
	return m.Decimal.StringFixed(money.Scale)
}

func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(`"` + m.String() + `"`), nil
}

// UnmarshalJSON 同时接受 "12.30" 与 12.3 两种写法
func (m *Money) UnmarshalJSON(b []byte) error {
	raw := bytes.Trim(bytes.TrimSpace(b), `"`)
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	d, err := decimal.NewFromString(string(raw))
	if err != nil {
		return fmt.Errorf("invalid money %q: %w", raw, err)
	}
	*m = NewMoneyFromDecimal(d)
	return nil
}

func (m Money) Value() (driver.Value, error) {
	return m.String(), nil
}

func (m *Money) Scan(value interface{}) error {
	var d decimal.Decimal
	if err := d.Scan(value); err != nil {
		return err
	}
	*m = NewMoneyFromDecimal(d)
	return nil
}
