package service

import (
	"context"
	"strings"

	"github.com/mall-next/internal/constants"
	"github.com/mall-next/internal/logger"
	"github.com/mall-next/internal/models"
	"github.com/mall-next/internal/payment"
)

const (
	refundCodeGatewayUnavailable = "GATEWAY_UNAVAILABLE"
	refundCodeGatewayError       = "GATEWAY_ERROR"
)

// ApplyRefund 用户申请退款：仅已支付、非众筹且未申请过退款的订单
func (s *OrderService) ApplyRefund(ctx context.Context, userID, orderID uint, reason string) (*models.Order, error) {
	order, err := s.orderRepo.GetByIDAndUser(orderID, userID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}
	if !order.IsPaid() {
		return nil, ErrOrderNotPaid
	}
	if order.Type == constants.OrderTypeCrowdfunding {
		return nil, ErrRefundNotAllowed
	}
	if order.RefundStatus != constants.RefundStatusPending {
		return nil, ErrRefundStatusInvalid
	}
	extra := order.Extra.Clone()
	extra["refund_reason"] = strings.TrimSpace(reason)
	ok, err := s.orderRepo.TransitionRefund(order.ID, []string{constants.RefundStatusPending}, map[string]interface{}{
		"refund_status": constants.RefundStatusApplied,
		"extra":         extra,
	})
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrRefundStatusInvalid
	}
	logger.Infow("order_refund_applied",
		"order_id", order.ID,
		"order_no", order.OrderNo,
		"user_id", userID,
	)
	return s.reload(order), nil
}

// HandleRefund 运营处理退款申请：同意则进入退款中并调用网关，拒绝则恢复为未退款
func (s *OrderService) HandleRefund(ctx context.Context, orderID uint, agree bool, reason string) (*models.Order, error) {
	order, err := s.orderRepo.GetByID(orderID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}
	if order.RefundStatus != constants.RefundStatusApplied {
		return nil, ErrRefundStatusInvalid
	}
	if agree {
		if err := s.startRefund(ctx, order, []string{constants.RefundStatusApplied}, ""); err != nil {
			return nil, err
		}
		return s.reload(order), nil
	}

	extra := order.Extra.Clone()
	extra["refund_disagree_reason"] = strings.TrimSpace(reason)
	ok, err := s.orderRepo.TransitionRefund(order.ID, []string{constants.RefundStatusApplied}, map[string]interface{}{
		"refund_status": constants.RefundStatusPending,
		"extra":         extra,
	})
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrRefundStatusInvalid
	}
	logger.Infow("order_refund_rejected",
		"order_id", order.ID,
		"order_no", order.OrderNo,
	)
	return s.reload(order), nil
}

// RefundOrder 系统发起的全额退款（众筹失败），可重复执行
func (s *OrderService) RefundOrder(ctx context.Context, orderID uint, reason string) error {
	order, err := s.orderRepo.GetByID(orderID)
	if err != nil {
		return err
	}
	if order == nil {
		logger.Warnw("order_refund_target_missing", "order_id", orderID)
		return nil
	}
	if !order.IsPaid() || order.RefundStatus == constants.RefundStatusSuccess {
		logger.Debugw("order_refund_skipped",
			"order_id", order.ID,
			"paid", order.IsPaid(),
			"refund_status", order.RefundStatus,
		)
		return nil
	}
	if order.RefundStatus == constants.RefundStatusFailed {
		logger.Warnw("order_refund_previously_failed",
			"order_id", order.ID,
			"refund_failed_code", order.Extra.String("refund_failed_code"),
		)
		return nil
	}
	return s.startRefund(ctx, order, []string{
		constants.RefundStatusPending,
		constants.RefundStatusApplied,
		constants.RefundStatusProcessing,
	}, reason)
}

// startRefund 将订单置为退款中并按支付方式发起退款
func (s *OrderService) startRefund(ctx context.Context, order *models.Order, from []string, reason string) error {
	if order.PaymentMethod == constants.PaymentMethodInstallment {
		if s.installments == nil {
			return ErrInstallmentNotFound
		}
		return s.installments.Refund(ctx, order, from)
	}

	refundNo := order.RefundNoValue()
	if refundNo == "" {
		var err error
		refundNo, err = generateRefundNo(s.orderRepo.ExistsRefundNo)
		if err != nil {
			return err
		}
	}
	updates := map[string]interface{}{
		"refund_status": constants.RefundStatusProcessing,
		"refund_no":     refundNo,
	}
	if reason = strings.TrimSpace(reason); reason != "" {
		extra := order.Extra.Clone()
		extra["refund_reason"] = reason
		updates["extra"] = extra
		order.Extra = extra
	}
	ok, err := s.orderRepo.TransitionRefund(order.ID, from, updates)
	if err != nil {
		return err
	}
	if !ok {
		return ErrRefundStatusInvalid
	}
	order.RefundStatus = constants.RefundStatusProcessing
	order.RefundNo = &refundNo
	s.refundViaGateway(ctx, order)
	return nil
}

// refundViaGateway 调用支付网关全额退款；失败写入失败码，不重试
func (s *OrderService) refundViaGateway(ctx context.Context, order *models.Order) {
	gateway, err := resolveGateway(s.gateways, order.PaymentMethod)
	if err != nil {
		logger.Errorw("order_refund_gateway_unavailable",
			"order_id", order.ID,
			"payment_method", order.PaymentMethod,
			"error", err,
		)
		s.finishRefund(ctx, order, false, refundCodeGatewayUnavailable)
		return
	}

	callCtx, cancel := context.WithTimeout(ctx, s.gatewayTimeout)
	defer cancel()
	result, err := gateway.Refund(callCtx, payment.RefundRequest{
		OutTradeNo:  order.OrderNo,
		RefundNo:    order.RefundNoValue(),
		Amount:      order.TotalAmount.Decimal,
		TotalAmount: order.TotalAmount.Decimal,
		Reason:      order.Extra.String("refund_reason"),
	})
	if err != nil {
		logger.Errorw("order_refund_gateway_failed",
			"order_id", order.ID,
			"order_no", order.OrderNo,
			"payment_method", order.PaymentMethod,
			"error", err,
		)
		s.finishRefund(ctx, order, false, refundCodeGatewayError)
		return
	}
	switch {
	case result.Failed():
		s.finishRefund(ctx, order, false, result.FailureCode)
	case result.Pending:
		logger.Infow("order_refund_pending_notify",
			"order_id", order.ID,
			"refund_no", order.RefundNoValue(),
		)
	default:
		s.finishRefund(ctx, order, true, "")
	}
}

// ApplyRefundNotify 处理网关异步退款结果
func (s *OrderService) ApplyRefundNotify(ctx context.Context, result *payment.RefundCallbackResult) error {
	if result == nil {
		return ErrPaymentCallbackInvalid
	}
	order, err := s.refundNoticeTarget(result)
	if err != nil {
		return err
	}
	if order == nil {
		return ErrOrderNotFound
	}
	if result.RefundNo != "" && order.RefundNoValue() != result.RefundNo {
		logger.Warnw("order_refund_notify_no_mismatch",
			"order_id", order.ID,
			"refund_no", order.RefundNoValue(),
			"notify_refund_no", result.RefundNo,
		)
		return ErrPaymentCallbackInvalid
	}
	if order.RefundStatus != constants.RefundStatusProcessing {
		return nil
	}
	s.finishRefund(ctx, order, result.Succeeded, result.FailureCode)
	return nil
}

// refundNoticeTarget 优先按商户订单号定位，通知只带退款单号时按退款单号定位
func (s *OrderService) refundNoticeTarget(result *payment.RefundCallbackResult) (*models.Order, error) {
	if strings.TrimSpace(result.OrderRef) != "" {
		return s.orderRepo.GetByOrderNo(result.OrderRef)
	}
	return s.orderRepo.GetByRefundNo(result.RefundNo)
}

// finishRefund 写入退款最终状态并通知用户
func (s *OrderService) finishRefund(ctx context.Context, order *models.Order, succeeded bool, failureCode string) {
	updates := map[string]interface{}{"refund_status": constants.RefundStatusSuccess}
	kind := constants.NotifyOrderRefunded
	if !succeeded {
		extra := order.Extra.Clone()
		extra["refund_failed_code"] = failureCode
		updates = map[string]interface{}{
			"refund_status": constants.RefundStatusFailed,
			"extra":         extra,
		}
		kind = constants.NotifyOrderRefundFailed
	}
	ok, err := s.orderRepo.TransitionRefund(order.ID, []string{constants.RefundStatusProcessing}, updates)
	if err != nil {
		logger.Errorw("order_refund_finish_failed",
			"order_id", order.ID,
			"succeeded", succeeded,
			"error", err,
		)
		return
	}
	if !ok {
		return
	}
	logger.Infow("order_refund_finished",
		"order_id", order.ID,
		"order_no", order.OrderNo,
		"succeeded", succeeded,
		"refund_failed_code", failureCode,
	)
	if s.notifier != nil {
		s.notifier.Notify(ctx, order.UserID, kind, map[string]interface{}{
			"order_id":     order.ID,
			"order_no":     order.OrderNo,
			"refund_no":    order.RefundNoValue(),
			"total_amount": order.TotalAmount.String(),
			"failed_code":  failureCode,
		})
	}
}
