package public

import (
	"net/http"

	"github.com/mall-next/internal/constants"
	"github.com/mall-next/internal/http/response"
	"github.com/mall-next/internal/service"

	"github.com/gin-gonic/gin"
)

const (
	alipayCallbackSuccess = "success"
	alipayCallbackFail    = "fail"
	wechatCallbackFail    = "处理失败"
)

// AlipayNotify 支付宝整单支付异步通知
func (h *Handler) AlipayNotify(c *gin.Context) {
	err := h.PaymentService.HandleCallback(c.Request.Context(), constants.PaymentMethodAlipay, c.Request)
	respondAlipayCallback(c, "alipay_notify", err)
}

// InstallmentAlipayNotify 支付宝分期还款异步通知
func (h *Handler) InstallmentAlipayNotify(c *gin.Context) {
	err := h.InstallmentService.HandleAlipayNotify(c.Request.Context(), c.Request)
	respondAlipayCallback(c, "installment_alipay_notify", err)
}

// AlipayReturn 支付宝同步跳转，仅校验签名
func (h *Handler) AlipayReturn(c *gin.Context) {
	if err := h.PaymentService.VerifyReturn(constants.PaymentMethodAlipay, c.Request.URL.Query()); err != nil {
		respondServiceError(c, err)
		return
	}
	response.SuccessWithMsg(c, "success", gin.H{
		"out_trade_no": c.Query("out_trade_no"),
		"trade_no":     c.Query("trade_no"),
	})
}

// WechatNotify 微信支付异步通知
func (h *Handler) WechatNotify(c *gin.Context) {
	err := h.PaymentService.HandleCallback(c.Request.Context(), constants.PaymentMethodWechat, c.Request)
	respondWechatCallback(c, "wechat_notify", err)
}

// WechatRefundNotify 微信退款异步通知
func (h *Handler) WechatRefundNotify(c *gin.Context) {
	err := h.PaymentService.HandleRefundCallback(c.Request.Context(), constants.PaymentMethodWechat, c.Request)
	respondWechatCallback(c, "wechat_refund_notify", err)
}

func respondAlipayCallback(c *gin.Context, event string, err error) {
	if err != nil {
		requestLog(c).Warnw(event+"_failed",
			"client_ip", c.ClientIP(),
			"client_error", service.IsCallbackClientError(err),
			"error", err,
		)
		c.String(http.StatusOK, alipayCallbackFail)
		return
	}
	c.String(http.StatusOK, alipayCallbackSuccess)
}

// respondWechatCallback 微信要求失败时返回非 2xx 以触发重试
func respondWechatCallback(c *gin.Context, event string, err error) {
	if err == nil {
		c.JSON(http.StatusOK, gin.H{"code": "SUCCESS", "message": "成功"})
		return
	}
	requestLog(c).Warnw(event+"_failed",
		"client_ip", c.ClientIP(),
		"error", err,
	)
	status := http.StatusInternalServerError
	if service.IsCallbackClientError(err) {
		status = http.StatusBadRequest
	}
	c.JSON(status, gin.H{"code": "FAIL", "message": wechatCallbackFail})
}
