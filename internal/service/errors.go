package service

import "errors"

// 请求类错误：由 handler 映射为 400 与对应文案
var (
	ErrInvalidOrderItem           = errors.New("invalid order item")
	ErrAddressNotFound            = errors.New("address not found")
	ErrProductNotFound            = errors.New("product not found")
	ErrProductUnavailable         = errors.New("product not on sale")
	ErrProductTypeInvalid         = errors.New("product type mismatch")
	ErrSKUNotFound                = errors.New("sku not found")
	ErrInsufficientStock          = errors.New("insufficient stock")
	ErrCrowdfundingEnded          = errors.New("crowdfunding ended")
	ErrSeckillNotStarted          = errors.New("seckill not started")
	ErrSeckillEnded               = errors.New("seckill ended")
	ErrSeckillPurchased           = errors.New("seckill already purchased")
	ErrCouponInvalid              = errors.New("coupon invalid")
	ErrCouponExhausted            = errors.New("coupon exhausted")
	ErrOrderNotFound              = errors.New("order not found")
	ErrOrderClosed                = errors.New("order closed")
	ErrOrderAlreadyPaid           = errors.New("order already paid")
	ErrOrderNotPaid               = errors.New("order not paid")
	ErrRefundNotAllowed           = errors.New("refund not allowed")
	ErrRefundStatusInvalid        = errors.New("refund status invalid")
	ErrShipStatusInvalid          = errors.New("ship status invalid")
	ErrInstallmentNotFound        = errors.New("installment not found")
	ErrInstallmentCountInvalid    = errors.New("installment count invalid")
	ErrInstallmentAmountTooLow    = errors.New("installment amount below minimum")
	ErrInstallmentItemNotFound    = errors.New("installment item not found")
	ErrInstallmentItemNotNext     = errors.New("installment item is not the next unpaid one")
	ErrInstallmentNotRefundable   = errors.New("installment has nothing to refund")
	ErrDuplicatePayment           = errors.New("duplicate payment")
	ErrPaymentMethodInvalid       = errors.New("payment method invalid")
	ErrPaymentAmountMismatch      = errors.New("payment amount mismatch")
	ErrPaymentCallbackInvalid     = errors.New("payment callback invalid")
	ErrPaymentGatewayUnavailable  = errors.New("payment gateway unavailable")
	ErrSerialExhausted            = errors.New("serial number generation exhausted")
	ErrInstallmentConfigMissing   = errors.New("installment config missing")
	ErrUnknownRefundPaymentMethod = errors.New("unknown refund payment method")
)
