package public

import (
	"strings"

	handlershared "github.com/mall-next/internal/http/handlers/shared"
	"github.com/mall-next/internal/http/response"
	"github.com/mall-next/internal/repository"
	"github.com/mall-next/internal/service"

	"github.com/gin-gonic/gin"
)

// OrderItemRequest 订单项请求
type OrderItemRequest struct {
	SKUID  uint `json:"sku_id" binding:"required"`
	Amount int  `json:"amount" binding:"required,min=1"`
}

// CreateOrderRequest 创建普通订单请求
type CreateOrderRequest struct {
	AddressID  uint               `json:"address_id" binding:"required"`
	Remark     string             `json:"remark"`
	CouponCode string             `json:"coupon_code"`
	Items      []OrderItemRequest `json:"items" binding:"required,min=1,dive"`
}

// CreateCrowdfundingOrderRequest 创建众筹订单请求
type CreateCrowdfundingOrderRequest struct {
	AddressID uint `json:"address_id" binding:"required"`
	SKUID     uint `json:"sku_id" binding:"required"`
	Amount    int  `json:"amount" binding:"required,min=1"`
}

// CreateSeckillOrderRequest 创建秒杀订单请求
type CreateSeckillOrderRequest struct {
	AddressID uint `json:"address_id" binding:"required"`
	SKUID     uint `json:"sku_id" binding:"required"`
}

// ApplyRefundRequest 申请退款请求
type ApplyRefundRequest struct {
	Reason string `json:"reason" binding:"required"`
}

// ReviewRequest 订单评价请求
type ReviewRequest struct {
	Reviews []ReviewItemRequest `json:"reviews" binding:"required,min=1,dive"`
}

// ReviewItemRequest 单个商品评价
type ReviewItemRequest struct {
	OrderItemID uint   `json:"order_item_id" binding:"required"`
	Rating      int    `json:"rating" binding:"required,min=1,max=5"`
	Review      string `json:"review"`
}

// CreateOrder 创建普通订单
func (h *Handler) CreateOrder(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}
	var req CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	items := make([]service.CreateOrderItem, 0, len(req.Items))
	for _, item := range req.Items {
		items = append(items, service.CreateOrderItem{SKUID: item.SKUID, Amount: item.Amount})
	}
	order, err := h.OrderService.CreateOrder(c.Request.Context(), service.CreateOrderInput{
		UserID:     uid,
		AddressID:  req.AddressID,
		Remark:     strings.TrimSpace(req.Remark),
		CouponCode: strings.TrimSpace(req.CouponCode),
		Items:      items,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.Success(c, order)
}

// CreateCrowdfundingOrder 创建众筹订单
func (h *Handler) CreateCrowdfundingOrder(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}
	var req CreateCrowdfundingOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	order, err := h.OrderService.CreateCrowdfundingOrder(c.Request.Context(), service.CreateCrowdfundingOrderInput{
		UserID:    uid,
		AddressID: req.AddressID,
		SKUID:     req.SKUID,
		Amount:    req.Amount,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.Success(c, order)
}

// CreateSeckillOrder 创建秒杀订单
func (h *Handler) CreateSeckillOrder(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}
	var req CreateSeckillOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	order, err := h.OrderService.CreateSeckillOrder(c.Request.Context(), service.CreateSeckillOrderInput{
		UserID:    uid,
		AddressID: req.AddressID,
		SKUID:     req.SKUID,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.Success(c, order)
}

// ListOrders 获取订单列表
func (h *Handler) ListOrders(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}
	page, pageSize := handlershared.ParsePagination(c)
	orders, total, err := h.OrderService.ListUserOrders(repository.OrderListFilter{
		Page:         page,
		PageSize:     pageSize,
		UserID:       uid,
		Type:         strings.TrimSpace(c.Query("type")),
		RefundStatus: strings.TrimSpace(c.Query("refund_status")),
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.SuccessWithPage(c, orders, response.NewPagination(page, pageSize, total))
}

// GetOrder 获取订单详情
func (h *Handler) GetOrder(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}
	orderID, ok := parseUintParam(c, "id")
	if !ok {
		return
	}
	order, err := h.OrderService.GetUserOrder(uid, orderID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.Success(c, order)
}

// ReceiveOrder 确认收货
func (h *Handler) ReceiveOrder(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}
	orderID, ok := parseUintParam(c, "id")
	if !ok {
		return
	}
	order, err := h.OrderService.Receive(c.Request.Context(), uid, orderID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.Success(c, order)
}

// ReviewOrder 评价订单
func (h *Handler) ReviewOrder(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}
	orderID, ok := parseUintParam(c, "id")
	if !ok {
		return
	}
	var req ReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	reviews := make([]service.ReviewItem, 0, len(req.Reviews))
	for _, item := range req.Reviews {
		reviews = append(reviews, service.ReviewItem{
			OrderItemID: item.OrderItemID,
			Rating:      item.Rating,
			Review:      strings.TrimSpace(item.Review),
		})
	}
	order, err := h.OrderService.Review(c.Request.Context(), uid, orderID, reviews)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.Success(c, order)
}

// ApplyRefund 申请退款
func (h *Handler) ApplyRefund(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}
	orderID, ok := parseUintParam(c, "id")
	if !ok {
		return
	}
	var req ApplyRefundRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	order, err := h.OrderService.ApplyRefund(c.Request.Context(), uid, orderID, strings.TrimSpace(req.Reason))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.Success(c, order)
}

// PayOrder 通过网关支付整单
func (h *Handler) PayOrder(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}
	orderID, ok := parseUintParam(c, "id")
	if !ok {
		return
	}
	result, err := h.PaymentService.PayOrder(c.Request.Context(), service.PayOrderInput{
		UserID:   uid,
		OrderID:  orderID,
		Method:   c.Param("method"),
		ClientIP: c.ClientIP(),
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
