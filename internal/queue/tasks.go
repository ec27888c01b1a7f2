// Package queue 定义异步任务类型与载荷，并封装 asynq 投递端。
package queue

import (
	"encoding/json"

	"github.com/mall-next/internal/constants"

	"github.com/hibiken/asynq"
)

const (
	TaskOrderTimeoutCancel    = constants.TaskOrderTimeoutCancel
	TaskOrderRefund           = constants.TaskOrderRefund // 众筹失败整单退款
	TaskInstallmentRefund     = constants.TaskInstallmentRefund
	TaskCrowdfundingRecompute = constants.TaskCrowdfundingRecompute
	TaskNotificationDispatch  = constants.TaskNotificationDispatch
	TaskSearchProductSync     = constants.TaskSearchProductSync
)

type OrderTimeoutCancelPayload struct {
	OrderID uint `json:"order_id"`
}

type OrderRefundPayload struct {
	OrderID uint   `json:"order_id"`
	Reason  string `json:"reason"`
}

// InstallmentRefundPayload 分期订单按期退款，逐期调用分期网关
type InstallmentRefundPayload struct {
	InstallmentID uint `json:"installment_id"`
}

type CrowdfundingRecomputePayload struct {
	ProductID uint `json:"product_id"`
}

// NotificationPayload 通知触发记录；Kind 取值见 constants 中的 Notify 常量
type NotificationPayload struct {
	UserID uint                   `json:"user_id"`
	Kind   string                 `json:"kind"`
	Data   map[string]interface{} `json:"data"`
}

type ProductSyncPayload struct {
	ProductID uint `json:"product_id"`
}

// NewTask 把载荷编码为 JSON 任务
func NewTask(taskType string, payload interface{}) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(taskType, body), nil
}
