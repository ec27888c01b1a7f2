package service

import (
	"context"
	"time"

	"github.com/mall-next/internal/constants"
	"github.com/mall-next/internal/logger"
	"github.com/mall-next/internal/models"
	"github.com/mall-next/internal/queue"
	"github.com/mall-next/internal/repository"

	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

const (
	crowdfundingFinalizeBatch   = 100
	crowdfundingFanoutLimit     = 8
	crowdfundingFailRefundNotes = "众筹失败"
)

// OrderRefunder 系统发起的订单退款，由 OrderService 实现
type OrderRefunder interface {
	RefundOrder(ctx context.Context, orderID uint, reason string) error
}

// CrowdfundingService 众筹进度聚合与到期结算
type CrowdfundingService struct {
	crowdfundingRepo repository.CrowdfundingRepository
	orderRepo        repository.OrderRepository
	tasks            TaskDispatcher
	notifier         Notifier
	refunder         OrderRefunder
	now              func() time.Time
}

var _ ProgressRecomputer = (*CrowdfundingService)(nil)

// NewCrowdfundingService 创建众筹服务
func NewCrowdfundingService(crowdfundingRepo repository.CrowdfundingRepository, orderRepo repository.OrderRepository, tasks TaskDispatcher, notifier Notifier, now func() time.Time) *CrowdfundingService {
	if now == nil {
		now = time.Now
	}
	return &CrowdfundingService{
		crowdfundingRepo: crowdfundingRepo,
		orderRepo:        orderRepo,
		tasks:            tasks,
		notifier:         notifier,
		now:              now,
	}
}

// SetRefunder 注入退款执行者（与订单服务互相依赖，构建后注入）
func (s *CrowdfundingService) SetRefunder(refunder OrderRefunder) {
	s.refunder = refunder
}

// RecomputeProgress 在锁定活动行的事务内按已支付订单全量重算进度
func (s *CrowdfundingService) RecomputeProgress(ctx context.Context, productID uint) error {
	return models.DB.Transaction(func(tx *gorm.DB) error {
		repo := s.crowdfundingRepo.WithTx(tx)
		campaign, err := repo.LockByProductID(productID)
		if err != nil {
			return err
		}
		if campaign == nil {
			logger.Debugw("crowdfunding_recompute_skipped", "product_id", productID)
			return nil
		}
		progress, err := repo.AggregatePaid(productID)
		if err != nil {
			return err
		}
		if err := repo.UpdateProgress(campaign.ID, progress); err != nil {
			return err
		}
		logger.Debugw("crowdfunding_progress_recomputed",
			"product_id", productID,
			"total_amount", progress.TotalAmount.StringFixed(2),
			"user_count", progress.UserCount,
		)
		return nil
	})
}

// FinalizeDue 结算已到截止时间的众筹活动，返回处理数
func (s *CrowdfundingService) FinalizeDue(ctx context.Context) (int, error) {
	campaigns, err := s.crowdfundingRepo.ListDue(s.now(), crowdfundingFinalizeBatch)
	if err != nil {
		return 0, err
	}
	for _, campaign := range campaigns {
		if err := s.finalize(ctx, campaign); err != nil {
			logger.Errorw("crowdfunding_finalize_failed",
				"campaign_id", campaign.ID,
				"product_id", campaign.ProductID,
				"error", err,
			)
		}
	}
	return len(campaigns), nil
}

func (s *CrowdfundingService) finalize(ctx context.Context, campaign models.CrowdfundingProduct) error {
	if err := s.RecomputeProgress(ctx, campaign.ProductID); err != nil {
		return err
	}
	current, err := s.crowdfundingRepo.GetByProductID(campaign.ProductID)
	if err != nil {
		return err
	}
	if current == nil {
		return nil
	}
	status := constants.CrowdfundingStatusFail
	if current.TotalAmount.Decimal.GreaterThanOrEqual(current.TargetAmount.Decimal) {
		status = constants.CrowdfundingStatusSuccess
	}
	orders, err := s.orderRepo.ListPaidByProduct(current.ProductID, constants.OrderTypeCrowdfunding)
	if err != nil {
		return err
	}
	// 退款先于状态切换投递：切换失败时活动仍为众筹中，下一轮会重新投递
	if status == constants.CrowdfundingStatusFail {
		s.fanout(orders, func(order *models.Order) {
			s.dispatchRefund(ctx, order)
		})
	}
	ok, err := s.crowdfundingRepo.FinishIfFunding(current.ID, status)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}
	current.Status = status
	logger.Infow("crowdfunding_finished",
		"campaign_id", current.ID,
		"product_id", current.ProductID,
		"status", status,
		"total_amount", current.TotalAmount.String(),
		"target_amount", current.TargetAmount.String(),
		"order_count", len(orders),
	)
	s.fanout(orders, func(order *models.Order) {
		s.notifyFinished(ctx, current, order)
	})
	return nil
}

// fanout 以有限并发处理每个订单
func (s *CrowdfundingService) fanout(orders []models.Order, fn func(order *models.Order)) {
	var g errgroup.Group
	g.SetLimit(crowdfundingFanoutLimit)
	for i := range orders {
		order := &orders[i]
		g.Go(func() error {
			fn(order)
			return nil
		})
	}
	_ = g.Wait()
}

func (s *CrowdfundingService) notifyFinished(ctx context.Context, campaign *models.CrowdfundingProduct, order *models.Order) {
	if s.notifier == nil {
		return
	}
	kind := constants.NotifyCrowdfundingSuccess
	if campaign.Status == constants.CrowdfundingStatusFail {
		kind = constants.NotifyCrowdfundingFail
	}
	s.notifier.Notify(ctx, order.UserID, kind, map[string]interface{}{
		"product_id":    campaign.ProductID,
		"order_id":      order.ID,
		"order_no":      order.OrderNo,
		"status":        campaign.Status,
		"status_text":   campaign.StatusText(),
		"total_amount":  campaign.TotalAmount.String(),
		"target_amount": campaign.TargetAmount.String(),
	})
}

// dispatchRefund 每个已支付订单一个独立退款任务；队列不可用时同步退款
func (s *CrowdfundingService) dispatchRefund(ctx context.Context, order *models.Order) {
	if dispatcherEnabled(s.tasks) {
		err := s.tasks.EnqueueOrderRefund(queue.OrderRefundPayload{OrderID: order.ID, Reason: crowdfundingFailRefundNotes})
		if err == nil {
			return
		}
		logger.Warnw("crowdfunding_enqueue_refund_failed",
			"order_id", order.ID,
			"error", err,
		)
	}
	if s.refunder == nil {
		logger.Errorw("crowdfunding_refund_unavailable", "order_id", order.ID)
		return
	}
	if err := s.refunder.RefundOrder(ctx, order.ID, crowdfundingFailRefundNotes); err != nil {
		logger.Warnw("crowdfunding_refund_inline_failed",
			"order_id", order.ID,
			"error", err,
		)
	}
}
