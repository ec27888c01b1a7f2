package public

import (
	"strings"

	handlershared "github.com/mall-next/internal/http/handlers/shared"
	"github.com/mall-next/internal/http/response"

	"github.com/gin-gonic/gin"
)

// ListProducts 商品列表（仅上架）
func (h *Handler) ListProducts(c *gin.Context) {
	page, pageSize := handlershared.ParsePagination(c)
	products, total, err := h.ProductService.ListPublic(
		strings.TrimSpace(c.Query("type")),
		strings.TrimSpace(c.Query("keyword")),
		page,
		pageSize,
	)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.SuccessWithPage(c, products, response.NewPagination(page, pageSize, total))
}

// GetProduct 商品详情，众筹附带进度，秒杀附带倒计时
func (h *Handler) GetProduct(c *gin.Context) {
	productID, ok := parseUintParam(c, "id")
	if !ok {
		return
	}
	detail, err := h.ProductService.GetDetail(productID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.Success(c, detail)
}

// ExportProduct 商品搜索导出记录
func (h *Handler) ExportProduct(c *gin.Context) {
	productID, ok := parseUintParam(c, "id")
	if !ok {
		return
	}
	record, err := h.ProductService.BuildExportRecord(productID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.Success(c, record)
}
