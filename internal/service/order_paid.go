package service

import (
	"context"

	"github.com/mall-next/internal/constants"
	"github.com/mall-next/internal/logger"
	"github.com/mall-next/internal/models"
	"github.com/mall-next/internal/queue"
	"github.com/mall-next/internal/repository"
)

// ProgressRecomputer 众筹进度重算，由 CrowdfundingService 实现
type ProgressRecomputer interface {
	RecomputeProgress(ctx context.Context, productID uint) error
}

// PaidEffects 订单支付成功后的后续处理：累计销量、重算众筹进度、同步搜索索引。
// 调用方保证每个订单只在支付状态首次写入成功后调用一次。
type PaidEffects struct {
	productRepo repository.ProductRepository
	progress    ProgressRecomputer
	tasks       TaskDispatcher
	search      SearchSyncer
}

// NewPaidEffects 创建支付后处理器
func NewPaidEffects(productRepo repository.ProductRepository, progress ProgressRecomputer, tasks TaskDispatcher, search SearchSyncer) *PaidEffects {
	return &PaidEffects{
		productRepo: productRepo,
		progress:    progress,
		tasks:       tasks,
		search:      search,
	}
}

// Apply 执行支付后处理，失败仅记录日志
func (e *PaidEffects) Apply(ctx context.Context, order *models.Order) {
	if e == nil || order == nil {
		return
	}
	sold := make(map[uint]int)
	for _, item := range order.Items {
		sold[item.ProductID] += item.Amount
	}
	for productID, amount := range sold {
		if e.productRepo != nil {
			if err := e.productRepo.IncrementSoldCount(productID, amount); err != nil {
				logger.Warnw("order_paid_increment_sold_count_failed",
					"order_id", order.ID,
					"product_id", productID,
					"error", err,
				)
			}
		}
		if order.Type == constants.OrderTypeCrowdfunding {
			e.recompute(ctx, order.ID, productID)
		}
		if e.search != nil {
			e.search.SyncProduct(ctx, productID)
		}
	}
}

func (e *PaidEffects) recompute(ctx context.Context, orderID, productID uint) {
	if dispatcherEnabled(e.tasks) {
		err := e.tasks.EnqueueCrowdfundingRecompute(queue.CrowdfundingRecomputePayload{ProductID: productID})
		if err == nil {
			return
		}
		logger.Warnw("order_paid_enqueue_recompute_failed",
			"order_id", orderID,
			"product_id", productID,
			"error", err,
		)
	}
	if e.progress == nil {
		return
	}
	if err := e.progress.RecomputeProgress(ctx, productID); err != nil {
		logger.Errorw("order_paid_recompute_inline_failed",
			"order_id", orderID,
			"product_id", productID,
			"error", err,
		)
	}
}
