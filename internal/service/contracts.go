package service

import (
	"context"
	"fmt"
	"time"

	"github.com/mall-next/internal/payment"
	"github.com/mall-next/internal/queue"
)

// TaskDispatcher 异步任务投递，由 queue.Client 实现
type TaskDispatcher interface {
	Enabled() bool
	EnqueueOrderTimeoutCancel(payload queue.OrderTimeoutCancelPayload, delay time.Duration) error
	EnqueueOrderRefund(payload queue.OrderRefundPayload) error
	EnqueueInstallmentRefund(payload queue.InstallmentRefundPayload) error
	EnqueueCrowdfundingRecompute(payload queue.CrowdfundingRecomputePayload) error
	EnqueueNotification(payload queue.NotificationPayload) error
	EnqueueProductSync(payload queue.ProductSyncPayload) error
}

// InventoryCache 秒杀库存的快速通道，由 cache.SeckillStockCache 实现
type InventoryCache interface {
	Load(ctx context.Context, skuID uint, stock int, ttl time.Duration) error
	Forget(ctx context.Context, skuID uint) error
	Get(ctx context.Context, skuID uint) (int64, bool, error)
	Decr(ctx context.Context, skuID uint, amount int) (int64, error)
	Incr(ctx context.Context, skuID uint, amount int) (bool, error)
}

// Notifier 用户通知触发器，调用方不关心投递结果
type Notifier interface {
	Notify(ctx context.Context, userID uint, kind string, payload map[string]interface{})
}

// SearchSyncer 商品搜索索引同步触发器
type SearchSyncer interface {
	SyncProduct(ctx context.Context, productID uint)
}

// GatewayResolver 按支付方式获取网关，由 payment.Registry 实现
type GatewayResolver interface {
	Get(method string) (payment.Gateway, error)
}

func dispatcherEnabled(tasks TaskDispatcher) bool {
	return tasks != nil && tasks.Enabled()
}

func resolveGateway(gateways GatewayResolver, method string) (payment.Gateway, error) {
	if gateways == nil {
		return nil, ErrPaymentGatewayUnavailable
	}
	gateway, err := gateways.Get(method)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrPaymentGatewayUnavailable, method, err)
	}
	return gateway, nil
}
