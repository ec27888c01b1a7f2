package service

import (
	"context"
	"time"

	"github.com/mall-next/internal/constants"
	"github.com/mall-next/internal/logger"
	"github.com/mall-next/internal/repository"
)

const seckillWarmUpPageSize = 200

// SeckillService 秒杀库存镜像维护
type SeckillService struct {
	productRepo repository.ProductRepository
	stock       InventoryCache
	search      SearchSyncer
	now         func() time.Time
}

// NewSeckillService 创建秒杀服务
func NewSeckillService(productRepo repository.ProductRepository, stock InventoryCache, search SearchSyncer, now func() time.Time) *SeckillService {
	if now == nil {
		now = time.Now
	}
	return &SeckillService{productRepo: productRepo, stock: stock, search: search, now: now}
}

// CacheStock 将秒杀商品各 SKU 的库存写入缓存，过期时间对齐秒杀结束时间；
// 已下架或已结束的商品清理缓存。
func (s *SeckillService) CacheStock(ctx context.Context, productID uint) error {
	product, err := s.productRepo.GetDetailByID(productID)
	if err != nil {
		return err
	}
	if product == nil {
		return ErrProductNotFound
	}
	if product.Type != constants.ProductTypeSeckill || product.Seckill == nil {
		return ErrProductTypeInvalid
	}
	if s.stock == nil {
		logger.Debugw("seckill_cache_disabled", "product_id", productID)
		return nil
	}

	now := s.now()
	ttl := product.Seckill.EndAt.Sub(now)
	for _, sku := range product.SKUs {
		var err error
		if !product.OnSale || ttl <= 0 {
			err = s.stock.Forget(ctx, sku.ID)
		} else {
			err = s.stock.Load(ctx, sku.ID, sku.Stock, ttl)
		}
		if err != nil {
			return err
		}
	}
	logger.Infow("seckill_stock_cached",
		"product_id", productID,
		"sku_count", len(product.SKUs),
		"on_sale", product.OnSale,
		"ttl_seconds", int64(ttl.Seconds()),
	)
	if s.search != nil {
		s.search.SyncProduct(ctx, productID)
	}
	return nil
}

// StockSnapshot 秒杀 SKU 的数据库库存与缓存镜像对照
type StockSnapshot struct {
	SKUID       uint  `json:"sku_id"`
	Stock       int   `json:"stock"`
	CachedStock int64 `json:"cached_stock"`
	Cached      bool  `json:"cached"`
}

// Snapshot 读取秒杀商品各 SKU 当前的缓存库存
func (s *SeckillService) Snapshot(ctx context.Context, productID uint) ([]StockSnapshot, error) {
	product, err := s.productRepo.GetDetailByID(productID)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, ErrProductNotFound
	}
	snapshots := make([]StockSnapshot, 0, len(product.SKUs))
	for _, sku := range product.SKUs {
		snapshot := StockSnapshot{SKUID: sku.ID, Stock: sku.Stock}
		if s.stock != nil {
			snapshot.CachedStock, snapshot.Cached, err = s.stock.Get(ctx, sku.ID)
			if err != nil {
				return nil, err
			}
		}
		snapshots = append(snapshots, snapshot)
	}
	return snapshots, nil
}

// WarmUp 启动时预热所有上架秒杀商品，单个失败不影响其余商品
func (s *SeckillService) WarmUp(ctx context.Context) (int, error) {
	if s.stock == nil {
		return 0, nil
	}
	warmed := 0
	for page := 1; ; page++ {
		products, _, err := s.productRepo.List(repository.ProductListFilter{
			Page:       page,
			PageSize:   seckillWarmUpPageSize,
			Type:       constants.ProductTypeSeckill,
			OnlyOnSale: true,
		})
		if err != nil {
			return warmed, err
		}
		for _, product := range products {
			if err := s.CacheStock(ctx, product.ID); err != nil {
				logger.Warnw("seckill_warm_up_failed",
					"product_id", product.ID,
					"error", err,
				)
				continue
			}
			warmed++
		}
		if len(products) < seckillWarmUpPageSize {
			return warmed, nil
		}
	}
}
