package alipay

import (
	"errors"
	"testing"

	"github.com/mall-next/internal/constants"

	"github.com/shopspring/decimal"
)

func TestValidateConfig(t *testing.T) {
	cfg := Config{
		AppID:      "2021000000000000",
		PrivateKey: "private",
		PublicKey:  "public",
		NotifyURL:  "https://example.com/payment/alipay/notify",
		ReturnURL:  "https://example.com/installments/alipay/return",
	}
	if err := ValidateConfig(cfg); err != nil {
		t.Fatalf("validate config failed: %v", err)
	}

	cfg.NotifyURL = ""
	if err := ValidateConfig(cfg); !errors.Is(err, ErrConfigInvalid) {
		t.Fatalf("expected ErrConfigInvalid, got: %v", err)
	}

	cfg.NotifyURL = "https://example.com/notify"
	cfg.ReturnURL = "not a url"
	if err := ValidateConfig(cfg); !errors.Is(err, ErrConfigInvalid) {
		t.Fatalf("expected invalid return_url error, got: %v", err)
	}
}

func TestNewRejectsMissingKeys(t *testing.T) {
	if _, err := New(Config{AppID: "2021000000000000", NotifyURL: "https://example.com/notify"}); !errors.Is(err, ErrConfigInvalid) {
		t.Fatalf("expected ErrConfigInvalid, got: %v", err)
	}
}

func TestToTradeStatus(t *testing.T) {
	cases := map[string]string{
		"TRADE_SUCCESS":  constants.TradeStatusSuccess,
		"TRADE_FINISHED": constants.TradeStatusFinished,
		"WAIT_BUYER_PAY": constants.TradeStatusPending,
		"TRADE_CLOSED":   constants.TradeStatusClosed,
		"UNKNOWN":        constants.TradeStatusFailed,
	}
	for raw, want := range cases {
		if got := ToTradeStatus(raw); got != want {
			t.Fatalf("status %s: want %s got %s", raw, want, got)
		}
	}
}

func TestFormatAmount(t *testing.T) {
	if got := FormatAmount(decimal.RequireFromString("99.666")); got != "99.67" {
		t.Fatalf("unexpected amount: %s", got)
	}
	if got := FormatAmount(decimal.NewFromInt(100)); got != "100.00" {
		t.Fatalf("unexpected amount: %s", got)
	}
}
