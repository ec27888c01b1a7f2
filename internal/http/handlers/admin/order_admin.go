package admin

import (
	"strings"

	"github.com/mall-next/internal/http/response"
	"github.com/mall-next/internal/service"

	"github.com/gin-gonic/gin"
)

// HandleRefundRequest 处理退款申请请求
type HandleRefundRequest struct {
	Agree  *bool  `json:"agree" binding:"required"`
	Reason string `json:"reason"`
}

// ShipOrderRequest 发货请求
type ShipOrderRequest struct {
	ExpressCompany string `json:"express_company" binding:"required"`
	ExpressNo      string `json:"express_no" binding:"required"`
}

// HandleRefund 同意或拒绝退款申请
func (h *Handler) HandleRefund(c *gin.Context) {
	operatorID, ok := getOperatorID(c)
	if !ok {
		return
	}
	orderID, ok := parseUintParam(c, "id")
	if !ok {
		return
	}
	var req HandleRefundRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	order, err := h.OrderService.HandleRefund(c.Request.Context(), orderID, *req.Agree, strings.TrimSpace(req.Reason))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	requestLog(c).Infow("admin_order_refund_handled",
		"operator_id", operatorID,
		"order_id", orderID,
		"agree", *req.Agree,
	)
	response.Success(c, order)
}

// ShipOrder 发货
func (h *Handler) ShipOrder(c *gin.Context) {
	operatorID, ok := getOperatorID(c)
	if !ok {
		return
	}
	orderID, ok := parseUintParam(c, "id")
	if !ok {
		return
	}
	var req ShipOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	order, err := h.OrderService.Ship(c.Request.Context(), orderID, service.ShipOrderInput{
		ExpressCompany: req.ExpressCompany,
		ExpressNo:      req.ExpressNo,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}
	requestLog(c).Infow("admin_order_shipped",
		"operator_id", operatorID,
		"order_id", orderID,
	)
	response.Success(c, order)
}
