package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mall-next/internal/constants"
	"github.com/mall-next/internal/logger"
	"github.com/mall-next/internal/payment"
	"github.com/mall-next/internal/repository"

	"go.uber.org/zap"
)

// PaymentService 支付服务：发起支付、处理网关回调
type PaymentService struct {
	orderRepo    repository.OrderRepository
	orders       *OrderService
	installments *InstallmentService
	gateways     GatewayResolver
	timeout      time.Duration
}

// NewPaymentService 创建支付服务
func NewPaymentService(orderRepo repository.OrderRepository, orders *OrderService, installments *InstallmentService, gateways GatewayResolver, timeout time.Duration) *PaymentService {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &PaymentService{
		orderRepo:    orderRepo,
		orders:       orders,
		installments: installments,
		gateways:     gateways,
		timeout:      timeout,
	}
}

type returnVerifier interface {
	VerifyReturn(values url.Values) error
}

func paymentLogger(kv ...interface{}) *zap.SugaredLogger {
	return logger.Component("payment", kv...)
}

// PayOrderInput 发起订单支付输入
type PayOrderInput struct {
	UserID   uint
	OrderID  uint
	Method   string
	ClientIP string
}

// PayOrder 以网关方式支付整单
func (s *PaymentService) PayOrder(ctx context.Context, input PayOrderInput) (*payment.ChargeResult, error) {
	method := strings.ToLower(strings.TrimSpace(input.Method))
	if method != constants.PaymentMethodAlipay && method != constants.PaymentMethodWechat {
		return nil, ErrPaymentMethodInvalid
	}
	order, err := s.orderRepo.GetByIDAndUser(input.OrderID, input.UserID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}
	if order.IsPaid() {
		return nil, ErrOrderAlreadyPaid
	}
	if order.Closed {
		return nil, ErrOrderClosed
	}
	gateway, err := resolveGateway(s.gateways, method)
	if err != nil {
		return nil, err
	}

	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	result, err := gateway.Charge(callCtx, payment.ChargeRequest{
		OutTradeNo: order.OrderNo,
		Amount:     order.TotalAmount.Decimal,
		Subject:    "支付订单：" + order.OrderNo,
		ClientIP:   input.ClientIP,
	})
	if err != nil {
		paymentLogger("order_id", order.ID, "payment_method", method).Errorw("order_charge_failed", "error", err)
		return nil, fmt.Errorf("%w: %v", ErrPaymentGatewayUnavailable, err)
	}
	return result, nil
}

// HandleCallback 处理整单支付异步通知；非成功状态直接忽略
func (s *PaymentService) HandleCallback(ctx context.Context, method string, r *http.Request) error {
	gateway, err := resolveGateway(s.gateways, method)
	if err != nil {
		return err
	}
	result, err := gateway.VerifyCallback(ctx, r)
	if err != nil {
		paymentLogger("payment_method", method).Warnw("payment_callback_verify_failed", "error", err)
		return fmt.Errorf("%w: %v", ErrPaymentCallbackInvalid, err)
	}
	log := paymentLogger("payment_method", method, "order_ref", result.OrderRef, "trade_no", result.TradeNo)
	if !isTradeSucceeded(result.TradeStatus) {
		log.Debugw("payment_callback_ignored", "trade_status", result.TradeStatus)
		return nil
	}
	order, err := s.orderRepo.GetByOrderNo(result.OrderRef)
	if err != nil {
		return err
	}
	if order == nil {
		log.Warnw("payment_callback_order_missing")
		return ErrOrderNotFound
	}
	_, err = s.orders.MarkPaid(ctx, order, method, result.TradeNo, result.AmountPaid)
	return err
}

// HandleRefundCallback 处理异步退款通知（微信）；分期子项以 "分期号_期序号" 区分
func (s *PaymentService) HandleRefundCallback(ctx context.Context, method string, r *http.Request) error {
	gateway, err := resolveGateway(s.gateways, method)
	if err != nil {
		return err
	}
	notifier, ok := gateway.(payment.RefundNotifier)
	if !ok {
		return ErrPaymentMethodInvalid
	}
	result, err := notifier.VerifyRefundCallback(ctx, r)
	if err != nil {
		paymentLogger("payment_method", method).Warnw("refund_callback_verify_failed", "error", err)
		return fmt.Errorf("%w: %v", ErrPaymentCallbackInvalid, err)
	}
	if strings.Contains(result.OrderRef, "_") {
		if s.installments == nil {
			return ErrInstallmentNotFound
		}
		return s.installments.ApplyItemRefundNotify(ctx, result)
	}
	return s.orders.ApplyRefundNotify(ctx, result)
}

// VerifyReturn 校验同步跳转参数（支付宝 return_url）
func (s *PaymentService) VerifyReturn(method string, values url.Values) error {
	gateway, err := resolveGateway(s.gateways, method)
	if err != nil {
		return err
	}
	verifier, ok := gateway.(returnVerifier)
	if !ok {
		return ErrPaymentMethodInvalid
	}
	if err := verifier.VerifyReturn(values); err != nil {
		return fmt.Errorf("%w: %v", ErrPaymentCallbackInvalid, err)
	}
	return nil
}

func isTradeSucceeded(status string) bool {
	return status == constants.TradeStatusSuccess || status == constants.TradeStatusFinished
}

// IsCallbackClientError 回调错误是否由请求本身引起（验签失败、订单不存在等）
func IsCallbackClientError(err error) bool {
	return errors.Is(err, ErrPaymentCallbackInvalid) ||
		errors.Is(err, ErrOrderNotFound) ||
		errors.Is(err, ErrPaymentAmountMismatch) ||
		errors.Is(err, ErrOrderClosed)
}
