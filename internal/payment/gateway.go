// Package payment 定义支付网关能力（下单、退款、回调验签）与按支付方式的注册表。
package payment

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"

	"github.com/shopspring/decimal"
)

// ErrGatewayUnavailable 支付方式未配置或未启用
var ErrGatewayUnavailable = errors.New("payment gateway unavailable")

// ChargeRequest 发起支付请求
type ChargeRequest struct {
	OutTradeNo string
	Amount     decimal.Decimal
	Subject    string
	NotifyURL  string
	ReturnURL  string
	ClientIP   string
}

// ChargeResult 发起支付返回
type ChargeResult struct {
	PayURL string
	QRCode string
}

// RefundRequest 退款请求
type RefundRequest struct {
	OutTradeNo  string
	RefundNo    string
	Amount      decimal.Decimal
	TotalAmount decimal.Decimal
	Reason      string
	NotifyURL   string
}

// RefundResult 退款返回，FailureCode 非空表示网关拒绝
type RefundResult struct {
	FailureCode string
	Pending     bool
}

// Failed 网关是否明确拒绝退款
func (r *RefundResult) Failed() bool {
	return r != nil && strings.TrimSpace(r.FailureCode) != ""
}

// CallbackResult 支付回调验签后的交易信息
type CallbackResult struct {
	TradeStatus string
	OrderRef    string
	AmountPaid  decimal.Decimal
	TradeNo     string
}

// RefundCallbackResult 退款回调验签后的结果
type RefundCallbackResult struct {
	OrderRef    string
	RefundNo    string
	Succeeded   bool
	FailureCode string
}

// Gateway 支付网关
type Gateway interface {
	Charge(ctx context.Context, req ChargeRequest) (*ChargeResult, error)
	Refund(ctx context.Context, req RefundRequest) (*RefundResult, error)
	VerifyCallback(ctx context.Context, r *http.Request) (*CallbackResult, error)
}

// RefundNotifier 支持异步退款通知的网关
type RefundNotifier interface {
	VerifyRefundCallback(ctx context.Context, r *http.Request) (*RefundCallbackResult, error)
}

// Registry 按支付方式索引网关
type Registry struct {
	mu       sync.RWMutex
	gateways map[string]Gateway
}

// NewRegistry 创建网关注册表
func NewRegistry() *Registry {
	return &Registry{gateways: make(map[string]Gateway)}
}

// Register 注册网关，gateway 为 nil 时忽略
func (r *Registry) Register(method string, gateway Gateway) {
	if r == nil || gateway == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.gateways[strings.ToLower(strings.TrimSpace(method))] = gateway
}

// Get 获取支付方式对应的网关
func (r *Registry) Get(method string) (Gateway, error) {
	if r == nil {
		return nil, ErrGatewayUnavailable
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	gateway, ok := r.gateways[strings.ToLower(strings.TrimSpace(method))]
	if !ok {
		return nil, ErrGatewayUnavailable
	}
	return gateway, nil
}

// AmountToFen 金额转分，超过分精度时报错
func AmountToFen(amount decimal.Decimal) (int64, bool) {
	if amount.Sign() <= 0 {
		return 0, false
	}
	fen := amount.Mul(decimal.NewFromInt(100))
	if !fen.Equal(fen.Truncate(0)) {
		return 0, false
	}
	return fen.IntPart(), true
}

// FenToAmount 分转金额
func FenToAmount(fen int64) decimal.Decimal {
	return decimal.NewFromInt(fen).Div(decimal.NewFromInt(100)).Round(2)
}
