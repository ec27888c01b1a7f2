package service

import (
	"context"

	"github.com/mall-next/internal/logger"
	"github.com/mall-next/internal/queue"
	"github.com/mall-next/internal/search"
)

// ProductPublisher 商品文档发布，由 search.Publisher 实现
type ProductPublisher interface {
	Publish(ctx context.Context, record search.ProductRecord) error
}

// SearchService 商品搜索导出
type SearchService struct {
	products  *ProductService
	publisher ProductPublisher
	tasks     TaskDispatcher
}

var _ SearchSyncer = (*SearchService)(nil)

// NewSearchService 创建搜索导出服务；publisher 为空时导出为空操作
func NewSearchService(products *ProductService, publisher ProductPublisher, tasks TaskDispatcher) *SearchService {
	return &SearchService{products: products, publisher: publisher, tasks: tasks}
}

// SyncProduct 触发商品导出：优先异步任务，队列不可用时同步导出。失败只记录日志。
func (s *SearchService) SyncProduct(ctx context.Context, productID uint) {
	if s == nil || s.publisher == nil || productID == 0 {
		return
	}
	if dispatcherEnabled(s.tasks) {
		err := s.tasks.EnqueueProductSync(queue.ProductSyncPayload{ProductID: productID})
		if err == nil {
			return
		}
		logger.Warnw("search_enqueue_product_sync_failed",
			"product_id", productID,
			"error", err,
		)
	}
	if err := s.Export(ctx, productID); err != nil {
		logger.Warnw("search_export_inline_failed",
			"product_id", productID,
			"error", err,
		)
	}
}

// Export 构建并发布商品文档
func (s *SearchService) Export(ctx context.Context, productID uint) error {
	if s.publisher == nil {
		logger.Debugw("search_export_skipped", "product_id", productID)
		return nil
	}
	record, err := s.products.BuildExportRecord(productID)
	if err != nil {
		return err
	}
	if err := s.publisher.Publish(ctx, *record); err != nil {
		return err
	}
	logger.Debugw("search_product_exported",
		"product_id", productID,
		"sold_count", record.SoldCount,
	)
	return nil
}
