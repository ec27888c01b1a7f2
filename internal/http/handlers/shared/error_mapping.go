package shared

import (
	"errors"

	"github.com/mall-next/internal/http/response"
	"github.com/mall-next/internal/service"

	"github.com/gin-gonic/gin"
)

// MappedError 业务错误到接口错误响应的映射规则。
type MappedError struct {
	Target error
	Code   int
	Key    string
}

// ServiceErrorRules 请求类业务错误统一映射为 400/404，其余按内部错误处理。
var ServiceErrorRules = []MappedError{
	{Target: service.ErrInvalidOrderItem, Code: response.CodeBadRequest, Key: "error.bad_request"},
	{Target: service.ErrAddressNotFound, Code: response.CodeBadRequest, Key: "error.address_not_found"},
	{Target: service.ErrProductNotFound, Code: response.CodeNotFound, Key: "error.product_not_found"},
	{Target: service.ErrProductUnavailable, Code: response.CodeBadRequest, Key: "error.product_unavailable"},
	{Target: service.ErrProductTypeInvalid, Code: response.CodeBadRequest, Key: "error.product_type_invalid"},
	{Target: service.ErrSKUNotFound, Code: response.CodeBadRequest, Key: "error.sku_not_found"},
	{Target: service.ErrInsufficientStock, Code: response.CodeBadRequest, Key: "error.stock_insufficient"},
	{Target: service.ErrCrowdfundingEnded, Code: response.CodeBadRequest, Key: "error.crowdfunding_ended"},
	{Target: service.ErrSeckillNotStarted, Code: response.CodeBadRequest, Key: "error.seckill_not_started"},
	{Target: service.ErrSeckillEnded, Code: response.CodeBadRequest, Key: "error.seckill_ended"},
	{Target: service.ErrSeckillPurchased, Code: response.CodeBadRequest, Key: "error.seckill_purchased"},
	{Target: service.ErrCouponInvalid, Code: response.CodeBadRequest, Key: "error.coupon_invalid"},
	{Target: service.ErrCouponExhausted, Code: response.CodeBadRequest, Key: "error.coupon_exhausted"},
	{Target: service.ErrOrderNotFound, Code: response.CodeNotFound, Key: "error.order_not_found"},
	{Target: service.ErrOrderClosed, Code: response.CodeBadRequest, Key: "error.order_closed"},
	{Target: service.ErrOrderAlreadyPaid, Code: response.CodeBadRequest, Key: "error.order_paid"},
	{Target: service.ErrOrderNotPaid, Code: response.CodeBadRequest, Key: "error.order_not_paid"},
	{Target: service.ErrRefundNotAllowed, Code: response.CodeBadRequest, Key: "error.refund_not_allowed"},
	{Target: service.ErrRefundStatusInvalid, Code: response.CodeBadRequest, Key: "error.refund_status_invalid"},
	{Target: service.ErrShipStatusInvalid, Code: response.CodeBadRequest, Key: "error.ship_status_invalid"},
	{Target: service.ErrInstallmentNotFound, Code: response.CodeNotFound, Key: "error.installment_not_found"},
	{Target: service.ErrInstallmentCountInvalid, Code: response.CodeBadRequest, Key: "error.installment_count_invalid"},
	{Target: service.ErrInstallmentItemNotFound, Code: response.CodeNotFound, Key: "error.installment_item_missing"},
	{Target: service.ErrInstallmentItemNotNext, Code: response.CodeBadRequest, Key: "error.installment_item_not_next"},
	{Target: service.ErrInstallmentNotRefundable, Code: response.CodeBadRequest, Key: "error.refund_status_invalid"},
	{Target: service.ErrDuplicatePayment, Code: response.CodeBadRequest, Key: "error.installment_item_paid"},
	{Target: service.ErrPaymentMethodInvalid, Code: response.CodeBadRequest, Key: "error.payment_method_invalid"},
	{Target: service.ErrPaymentAmountMismatch, Code: response.CodeBadRequest, Key: "error.payment_amount_mismatch"},
	{Target: service.ErrPaymentCallbackInvalid, Code: response.CodeBadRequest, Key: "error.payment_callback_invalid"},
	{Target: service.ErrPaymentGatewayUnavailable, Code: response.CodeInternal, Key: "error.payment_unavailable"},
}

// RespondMappedError 按规则返回错误；未命中规则时以 fallbackKey 作为内部错误返回并记录原始错误。
func RespondMappedError(c *gin.Context, err error, rules []MappedError, fallbackKey string) {
	for _, rule := range rules {
		if errors.Is(err, rule.Target) {
			if rule.Code == response.CodeInternal {
				RespondError(c, rule.Code, rule.Key, err)
				return
			}
			RespondError(c, rule.Code, rule.Key, nil)
			return
		}
	}
	RespondError(c, response.CodeInternal, fallbackKey, err)
}

// RespondServiceError 使用统一业务错误规则响应。
func RespondServiceError(c *gin.Context, err error) {
	RespondMappedError(c, err, ServiceErrorRules, "error.internal")
}
