package admin

import (
	"github.com/mall-next/internal/http/response"

	"github.com/gin-gonic/gin"
)

// CacheSeckillStock 商品保存后刷新秒杀库存缓存
func (h *Handler) CacheSeckillStock(c *gin.Context) {
	productID, ok := parseUintParam(c, "id")
	if !ok {
		return
	}
	if err := h.SeckillService.CacheStock(c.Request.Context(), productID); err != nil {
		respondServiceError(c, err)
		return
	}
	skus, err := h.SeckillService.Snapshot(c.Request.Context(), productID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.Success(c, gin.H{"product_id": productID, "skus": skus})
}

// SyncProductSearch 手动触发商品搜索导出
func (h *Handler) SyncProductSearch(c *gin.Context) {
	productID, ok := parseUintParam(c, "id")
	if !ok {
		return
	}
	if err := h.SearchService.Export(c.Request.Context(), productID); err != nil {
		respondServiceError(c, err)
		return
	}
	response.Success(c, gin.H{"product_id": productID})
}
