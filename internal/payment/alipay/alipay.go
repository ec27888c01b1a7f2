package alipay

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/mall-next/internal/constants"
	"github.com/mall-next/internal/payment"

	"github.com/shopspring/decimal"
	"github.com/smartwalle/alipay/v3"
)

var (
	ErrConfigInvalid    = errors.New("alipay config invalid")
	ErrRequestFailed    = errors.New("alipay request failed")
	ErrResponseInvalid  = errors.New("alipay response invalid")
	ErrSignatureInvalid = errors.New("alipay signature invalid")
)

// 电脑网站支付产品码
const pagePayProductCode = "FAST_INSTANT_TRADE_PAY"

// Config 支付宝配置
type Config struct {
	AppID      string
	PrivateKey string
	PublicKey  string
	Production bool
	NotifyURL  string
	ReturnURL  string
}

// Gateway 基于 smartwalle/alipay 的支付宝网关
type Gateway struct {
	client *alipay.Client
	cfg    Config
}

var _ payment.Gateway = (*Gateway)(nil)

// ValidateConfig 校验配置完整性
func ValidateConfig(cfg Config) error {
	if strings.TrimSpace(cfg.AppID) == "" {
		return fmt.Errorf("%w: app_id is required", ErrConfigInvalid)
	}
	if strings.TrimSpace(cfg.PrivateKey) == "" {
		return fmt.Errorf("%w: private_key is required", ErrConfigInvalid)
	}
	if strings.TrimSpace(cfg.PublicKey) == "" {
		return fmt.Errorf("%w: public_key is required", ErrConfigInvalid)
	}
	if strings.TrimSpace(cfg.NotifyURL) == "" {
		return fmt.Errorf("%w: notify_url is required", ErrConfigInvalid)
	}
	if _, err := url.ParseRequestURI(strings.TrimSpace(cfg.NotifyURL)); err != nil {
		return fmt.Errorf("%w: notify_url is invalid", ErrConfigInvalid)
	}
	if strings.TrimSpace(cfg.ReturnURL) != "" {
		if _, err := url.ParseRequestURI(strings.TrimSpace(cfg.ReturnURL)); err != nil {
			return fmt.Errorf("%w: return_url is invalid", ErrConfigInvalid)
		}
	}
	return nil
}

// New 创建支付宝网关
func New(cfg Config) (*Gateway, error) {
	if err := ValidateConfig(cfg); err != nil {
		return nil, err
	}
	client, err := alipay.New(strings.TrimSpace(cfg.AppID), normalizeKey(cfg.PrivateKey), cfg.Production)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfigInvalid, err)
	}
	if err := client.LoadAliPayPublicKey(normalizeKey(cfg.PublicKey)); err != nil {
		return nil, fmt.Errorf("%w: load public key failed: %v", ErrConfigInvalid, err)
	}
	return &Gateway{client: client, cfg: cfg}, nil
}

// Charge 电脑网站支付，返回跳转地址
func (g *Gateway) Charge(ctx context.Context, req payment.ChargeRequest) (*payment.ChargeResult, error) {
	if strings.TrimSpace(req.OutTradeNo) == "" || req.Amount.Sign() <= 0 {
		return nil, fmt.Errorf("%w: order input is invalid", ErrConfigInvalid)
	}
	p := alipay.TradePagePay{}
	p.NotifyURL = pickFirstNonEmpty(req.NotifyURL, g.cfg.NotifyURL)
	p.ReturnURL = pickFirstNonEmpty(req.ReturnURL, g.cfg.ReturnURL)
	p.Subject = buildSubject(req.Subject, req.OutTradeNo)
	p.OutTradeNo = req.OutTradeNo
	p.TotalAmount = FormatAmount(req.Amount)
	p.ProductCode = pagePayProductCode

	payURL, err := g.client.TradePagePay(p)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRequestFailed, err)
	}
	if payURL == nil {
		return nil, fmt.Errorf("%w: empty pay url", ErrResponseInvalid)
	}
	return &payment.ChargeResult{PayURL: payURL.String()}, nil
}

// Refund 同步退款，sub_code 非空即为失败
func (g *Gateway) Refund(ctx context.Context, req payment.RefundRequest) (*payment.RefundResult, error) {
	if strings.TrimSpace(req.OutTradeNo) == "" || req.Amount.Sign() <= 0 {
		return nil, fmt.Errorf("%w: refund input is invalid", ErrConfigInvalid)
	}
	p := alipay.TradeRefund{}
	p.OutTradeNo = req.OutTradeNo
	p.RefundAmount = FormatAmount(req.Amount)
	p.OutRequestNo = req.RefundNo
	p.RefundReason = req.Reason

	rsp, err := g.client.TradeRefund(p)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRequestFailed, err)
	}
	if rsp == nil {
		return nil, fmt.Errorf("%w: empty refund response", ErrResponseInvalid)
	}
	if code := strings.TrimSpace(rsp.SubCode); code != "" {
		return &payment.RefundResult{FailureCode: code}, nil
	}
	if rsp.IsFailure() {
		return &payment.RefundResult{FailureCode: string(rsp.Code)}, nil
	}
	return &payment.RefundResult{}, nil
}

// VerifyCallback 验签异步通知
func (g *Gateway) VerifyCallback(ctx context.Context, r *http.Request) (*payment.CallbackResult, error) {
	if r == nil {
		return nil, fmt.Errorf("%w: empty request", ErrResponseInvalid)
	}
	if err := r.ParseForm(); err != nil {
		return nil, fmt.Errorf("%w: parse form failed", ErrResponseInvalid)
	}
	noti, err := g.client.DecodeNotification(r.Form)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSignatureInvalid, err)
	}
	amount, err := decimal.NewFromString(strings.TrimSpace(noti.TotalAmount))
	if err != nil {
		return nil, fmt.Errorf("%w: total_amount is invalid", ErrResponseInvalid)
	}
	return &payment.CallbackResult{
		TradeStatus: ToTradeStatus(string(noti.TradeStatus)),
		OrderRef:    strings.TrimSpace(noti.OutTradeNo),
		AmountPaid:  amount.Round(2),
		TradeNo:     strings.TrimSpace(noti.TradeNo),
	}, nil
}

// VerifyReturn 校验同步跳转参数签名
func (g *Gateway) VerifyReturn(values url.Values) error {
	if err := g.client.VerifySign(values); err != nil {
		return fmt.Errorf("%w: %v", ErrSignatureInvalid, err)
	}
	return nil
}

// ToTradeStatus 将支付宝交易状态映射到系统交易状态
func ToTradeStatus(status string) string {
	switch strings.ToUpper(strings.TrimSpace(status)) {
	case string(alipay.TradeStatusSuccess):
		return constants.TradeStatusSuccess
	case string(alipay.TradeStatusFinished):
		return constants.TradeStatusFinished
	case string(alipay.TradeStatusWaitBuyerPay):
		return constants.TradeStatusPending
	case string(alipay.TradeStatusClosed):
		return constants.TradeStatusClosed
	default:
		return constants.TradeStatusFailed
	}
}

// FormatAmount 金额格式化为 2 位小数
func FormatAmount(amount decimal.Decimal) string {
	return amount.Round(2).StringFixed(2)
}

func buildSubject(subject, orderNo string) string {
	subject = strings.TrimSpace(subject)
	if subject != "" {
		return subject
	}
	return "订单 " + strings.TrimSpace(orderNo)
}

func pickFirstNonEmpty(values ...string) string {
	for _, val := range values {
		if trimmed := strings.TrimSpace(val); trimmed != "" {
			return trimmed
		}
	}
	return ""
}

func normalizeKey(raw string) string {
	return strings.TrimSpace(strings.ReplaceAll(raw, "\\n", "\n"))
}
