package config

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

func TestInstallmentFeeRateLookup(t *testing.T) {
	cfg := InstallmentConfig{FeeRates: map[string]string{"3": "1.5", "6": " 2 ", "9": "bad", "12": "-1"}}

	rate, ok := cfg.FeeRate(3)
	if !ok || !rate.Equal(decimal.RequireFromString("1.5")) {
		t.Fatalf("fee rate for 3 want 1.5 got %s ok=%v", rate, ok)
	}
	if rate, ok := cfg.FeeRate(6); !ok || !rate.Equal(decimal.NewFromInt(2)) {
		t.Fatalf("fee rate for 6 want 2 got %s ok=%v", rate, ok)
	}
	for _, count := range []int{1, 9, 12} {
		if _, ok := cfg.FeeRate(count); ok {
			t.Fatalf("count %d should not be selectable", count)
		}
	}
	counts := cfg.Counts()
	if len(counts) != 4 || counts[0] != 3 || counts[3] != 12 {
		t.Fatalf("counts should be sorted, got %v", counts)
	}
}

func TestInstallmentRequiredDecimals(t *testing.T) {
	cfg := InstallmentConfig{}
	if _, err := cfg.FineRateDecimal(); err == nil {
		t.Fatalf("missing fine rate should be an error")
	}
	cfg.MinAmount = "300"
	minAmount, err := cfg.MinAmountDecimal()
	if err != nil || !minAmount.Equal(decimal.NewFromInt(300)) {
		t.Fatalf("min amount want 300 got %s err=%v", minAmount, err)
	}
	if cfg.DueInterval() != 30 {
		t.Fatalf("default due interval want 30 got %d", cfg.DueInterval())
	}
}

func TestDefaultsUnmarshal(t *testing.T) {
	v := viper.New()
	setDefaults(v)
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		t.Fatalf("unmarshal defaults failed: %v", err)
	}
	if cfg.Order.TTL().Minutes() != 30 || cfg.Order.SeckillTTL().Minutes() != 10 {
		t.Fatalf("unexpected order ttl defaults: %+v", cfg.Order)
	}
	if _, ok := cfg.Installment.FeeRate(3); !ok {
		t.Fatalf("default fee rates should include 3 periods: %+v", cfg.Installment.FeeRates)
	}
	if cfg.Payment.Timeout().Seconds() != 10 {
		t.Fatalf("payment timeout want 10s got %s", cfg.Payment.Timeout())
	}
}
