package constants

// 商品类型常量
const (
	ProductTypeNormal       = "normal"
	ProductTypeCrowdfunding = "crowdfunding"
	ProductTypeSeckill      = "seckill"
)

// 订单类型常量（与商品类型一一对应）
const (
	OrderTypeNormal       = ProductTypeNormal
	OrderTypeCrowdfunding = ProductTypeCrowdfunding
	OrderTypeSeckill      = ProductTypeSeckill
)

// 订单退款状态常量
const (
	RefundStatusPending    = "pending"
	RefundStatusApplied    = "applied"
	RefundStatusProcessing = "processing"
	RefundStatusSuccess    = "success"
	RefundStatusFailed     = "failed"
)

// 物流状态常量
const (
	ShipStatusPending   = "pending"
	ShipStatusDelivered = "delivered"
	ShipStatusReceived  = "received"
)

// 支付方式常量
const (
	PaymentMethodAlipay      = "alipay"
	PaymentMethodWechat      = "wechat"
	PaymentMethodInstallment = "installment"
)

// 众筹状态常量
const (
	CrowdfundingStatusFunding = "funding"
	CrowdfundingStatusSuccess = "success"
	CrowdfundingStatusFail    = "fail"
)

// 分期状态常量
const (
	InstallmentStatusPending  = "pending"
	InstallmentStatusRepaying = "repaying"
	InstallmentStatusFinished = "finished"
)

// 分期子项退款状态常量
const (
	InstallmentRefundPending    = "pending"
	InstallmentRefundProcessing = "processing"
	InstallmentRefundSuccess    = "success"
	InstallmentRefundFailed     = "failed"
)

// 优惠券类型常量
const (
	CouponTypeFixed   = "fixed"
	CouponTypePercent = "percent"
)

// 网关交易状态常量
const (
	TradeStatusSuccess  = "success"
	TradeStatusFinished = "finished"
	TradeStatusPending  = "pending"
	TradeStatusClosed   = "closed"
	TradeStatusFailed   = "failed"
)

// 通知类型常量
const (
	NotifyCrowdfundingSuccess = "crowdfunding_success"
	NotifyCrowdfundingFail    = "crowdfunding_fail"
	NotifyInstallmentPaid     = "installment_paid"
	NotifyOrderRefunded       = "order_refunded"
	NotifyOrderRefundFailed   = "order_refund_failed"
)

// 用户与运营账号状态
const (
	UserStatusActive   = "active"
	UserStatusDisabled = "disabled"
)

// 分期还款间隔（天）
const InstallmentDueIntervalDays = 30

// 序列号生成最大重试次数
const SerialMaxAttempts = 10

// 队列与任务
const (
	QueueDefault  = "default"
	QueueCritical = "critical"

	TaskOrderTimeoutCancel    = "order:timeout_cancel"
	TaskOrderRefund           = "order:refund"
	TaskInstallmentRefund     = "installment:refund"
	TaskCrowdfundingRecompute = "crowdfunding:recompute"
	TaskNotificationDispatch  = "notification:dispatch"
	TaskSearchProductSync     = "search:product_sync"

	SchedulerLockFinalize        = "lock:crowdfunding_finalize"
	SchedulerLockFineAccrual     = "lock:installment_fine"
	SchedulerLockRefundReconcile = "lock:installment_refund_check"
	SchedulerLockExpireSweep     = "lock:order_expire_sweep"
)
