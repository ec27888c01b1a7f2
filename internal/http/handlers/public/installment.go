package public

import (
	"errors"
	"strings"

	handlershared "github.com/mall-next/internal/http/handlers/shared"
	"github.com/mall-next/internal/http/response"
	"github.com/mall-next/internal/i18n"
	"github.com/mall-next/internal/repository"
	"github.com/mall-next/internal/service"

	"github.com/gin-gonic/gin"
)

// InstallmentRequest 分期试算/创建请求
type InstallmentRequest struct {
	OrderID uint `json:"order_id" binding:"required"`
	Count   int  `json:"count" binding:"required"`
}

// respondInstallmentError 门槛错误需要带上配置的最低金额
func (h *Handler) respondInstallmentError(c *gin.Context, err error) {
	if errors.Is(err, service.ErrInstallmentAmountTooLow) {
		locale := i18n.ResolveLocale(c)
		response.Error(c, response.CodeBadRequest, i18n.Sprintf(locale, "error.installment_min_amount", h.InstallmentService.MinAmount()))
		return
	}
	respondServiceError(c, err)
}

// ListInstallments 我的分期列表
func (h *Handler) ListInstallments(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}
	page, pageSize := handlershared.ParsePagination(c)
	installments, total, err := h.InstallmentService.List(repository.InstallmentListFilter{
		Page:     page,
		PageSize: pageSize,
		UserID:   uid,
		Status:   strings.TrimSpace(c.Query("status")),
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.SuccessWithPage(c, installments, response.NewPagination(page, pageSize, total))
}

// GetInstallment 分期详情
func (h *Handler) GetInstallment(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}
	installmentID, ok := parseUintParam(c, "id")
	if !ok {
		return
	}
	installment, err := h.InstallmentService.Get(uid, installmentID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.Success(c, installment)
}

// PreviewInstallmentFee 分期费用试算
func (h *Handler) PreviewInstallmentFee(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}
	var req InstallmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	plan, err := h.InstallmentService.PreviewOrderFee(uid, req.OrderID, req.Count)
	if err != nil {
		h.respondInstallmentError(c, err)
		return
	}
	response.Success(c, plan)
}

// CreateInstallment 为订单创建分期计划
func (h *Handler) CreateInstallment(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}
	var req InstallmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	installment, err := h.InstallmentService.Create(c.Request.Context(), uid, req.OrderID, req.Count)
	if err != nil {
		h.respondInstallmentError(c, err)
		return
	}
	response.Success(c, installment)
}

// PayInstallmentItem 支付宝偿还某一期
func (h *Handler) PayInstallmentItem(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}
	installmentID, ok := parseUintParam(c, "id")
	if !ok {
		return
	}
	itemID, ok := parseUintParam(c, "item_id")
	if !ok {
		return
	}
	result, err := h.InstallmentService.ChargeItem(c.Request.Context(), service.ChargeItemInput{
		UserID:        uid,
		InstallmentID: installmentID,
		ItemID:        itemID,
		ClientIP:      c.ClientIP(),
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.Success(c, gin.H{
		"pay_url": result.PayURL,
		"qr_code": result.QRCode,
	})
}
