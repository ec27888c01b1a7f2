package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mall-next/internal/logger"
	"github.com/mall-next/internal/provider"
	"github.com/mall-next/internal/queue"

	"github.com/hibiken/asynq"
)

// Consumer 异步任务消费者
type Consumer struct {
	*provider.Container
}

// NewConsumer 创建消费者
func NewConsumer(c *provider.Container) *Consumer {
	return &Consumer{
		Container: c,
	}
}

// Register 注册消费者
func (c *Consumer) Register(mux *asynq.ServeMux) {
	if c == nil || mux == nil {
		logger.Debugw("worker_register_skip_nil", "consumer_nil", c == nil, "mux_nil", mux == nil)
		return
	}
	mux.HandleFunc(queue.TaskOrderTimeoutCancel, c.observe(queue.TaskOrderTimeoutCancel, c.handleOrderTimeoutCancel))
	mux.HandleFunc(queue.TaskOrderRefund, c.observe(queue.TaskOrderRefund, c.handleOrderRefund))
	mux.HandleFunc(queue.TaskInstallmentRefund, c.observe(queue.TaskInstallmentRefund, c.handleInstallmentRefund))
	mux.HandleFunc(queue.TaskCrowdfundingRecompute, c.observe(queue.TaskCrowdfundingRecompute, c.handleCrowdfundingRecompute))
	mux.HandleFunc(queue.TaskNotificationDispatch, c.observe(queue.TaskNotificationDispatch, c.handleNotificationDispatch))
	mux.HandleFunc(queue.TaskSearchProductSync, c.observe(queue.TaskSearchProductSync, c.handleProductSync))
}

// observe 记录任务耗时与结果
func (c *Consumer) observe(name string, handler asynq.HandlerFunc) asynq.HandlerFunc {
	return func(ctx context.Context, task *asynq.Task) error {
		startedAt := time.Now()
		err := handler(ctx, task)
		if c.Container != nil {
			c.Metrics.ObserveTask(name, err, time.Since(startedAt))
		}
		return err
	}
}

// decodePayload 载荷无法解析时重试也不会成功，直接归档
func decodePayload(task *asynq.Task, out interface{}) error {
	if err := json.Unmarshal(task.Payload(), out); err != nil {
		logger.Warnw("worker_payload_unmarshal_failed", "task_type", task.Type(), "error", err)
		return fmt.Errorf("decode %s payload: %v: %w", task.Type(), err, asynq.SkipRetry)
	}
	return nil
}

func (c *Consumer) handleOrderTimeoutCancel(ctx context.Context, task *asynq.Task) error {
	if c == nil || task == nil || c.Container == nil || c.OrderService == nil {
		return nil
	}
	var payload queue.OrderTimeoutCancelPayload
	if err := decodePayload(task, &payload); err != nil {
		return err
	}
	if payload.OrderID == 0 {
		logger.Debugw("worker_order_timeout_cancel_skip_invalid_payload", "order_id", payload.OrderID)
		return nil
	}
	if err := c.OrderService.CancelExpiredOrder(ctx, payload.OrderID); err != nil {
		logger.Warnw("worker_order_timeout_cancel_failed", "order_id", payload.OrderID, "error", err)
		return err
	}
	return nil
}

func (c *Consumer) handleOrderRefund(ctx context.Context, task *asynq.Task) error {
	if c == nil || task == nil || c.Container == nil || c.OrderService == nil {
		return nil
	}
	var payload queue.OrderRefundPayload
	if err := decodePayload(task, &payload); err != nil {
		return err
	}
	if payload.OrderID == 0 {
		logger.Debugw("worker_order_refund_skip_invalid_payload", "order_id", payload.OrderID)
		return nil
	}
	// 网关失败已落为退款失败状态，不再重试
	if err := c.OrderService.RefundOrder(ctx, payload.OrderID, payload.Reason); err != nil {
		logger.Warnw("worker_order_refund_failed", "order_id", payload.OrderID, "error", err)
	}
	return nil
}

func (c *Consumer) handleInstallmentRefund(ctx context.Context, task *asynq.Task) error {
	if c == nil || task == nil || c.Container == nil || c.InstallmentService == nil {
		return nil
	}
	var payload queue.InstallmentRefundPayload
	if err := decodePayload(task, &payload); err != nil {
		return err
	}
	if payload.InstallmentID == 0 {
		logger.Debugw("worker_installment_refund_skip_invalid_payload", "installment_id", payload.InstallmentID)
		return nil
	}
	if err := c.InstallmentService.RefundItems(ctx, payload.InstallmentID); err != nil {
		logger.Warnw("worker_installment_refund_failed", "installment_id", payload.InstallmentID, "error", err)
	}
	return nil
}

func (c *Consumer) handleCrowdfundingRecompute(ctx context.Context, task *asynq.Task) error {
	if c == nil || task == nil || c.Container == nil || c.CrowdfundingService == nil {
		return nil
	}
	var payload queue.CrowdfundingRecomputePayload
	if err := decodePayload(task, &payload); err != nil {
		return err
	}
	if payload.ProductID == 0 {
		return nil
	}
	if err := c.CrowdfundingService.RecomputeProgress(ctx, payload.ProductID); err != nil {
		logger.Warnw("worker_crowdfunding_recompute_failed", "product_id", payload.ProductID, "error", err)
		return err
	}
	return nil
}

func (c *Consumer) handleNotificationDispatch(ctx context.Context, task *asynq.Task) error {
	if c == nil || task == nil || c.Container == nil || c.NotificationService == nil {
		return nil
	}
	var payload queue.NotificationPayload
	if err := decodePayload(task, &payload); err != nil {
		return err
	}
	if payload.UserID == 0 || payload.Kind == "" {
		logger.Debugw("worker_notification_skip_invalid_payload", "user_id", payload.UserID, "kind", payload.Kind)
		return nil
	}
	return c.NotificationService.Dispatch(ctx, payload)
}

func (c *Consumer) handleProductSync(ctx context.Context, task *asynq.Task) error {
	if c == nil || task == nil || c.Container == nil || c.SearchService == nil {
		return nil
	}
	var payload queue.ProductSyncPayload
	if err := decodePayload(task, &payload); err != nil {
		return err
	}
	if payload.ProductID == 0 {
		return nil
	}
	if err := c.SearchService.Export(ctx, payload.ProductID); err != nil {
		logger.Warnw("worker_product_sync_failed", "product_id", payload.ProductID, "error", err)
		return err
	}
	return nil
}
