// Package public 买家与公开接口：商品浏览、下单、支付、分期以及支付回调。
package public

import (
	handlershared "github.com/mall-next/internal/http/handlers/shared"
	"github.com/mall-next/internal/provider"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Handler 买家侧处理器
type Handler struct {
	*provider.Container
}

func New(c *provider.Container) *Handler {
	return &Handler{Container: c}
}

// getUserID 取鉴权中间件写入的买家 ID，缺失时已写入 401
func getUserID(c *gin.Context) (uint, bool) {
	return handlershared.ContextUint(c, "user_id")
}

func parseUintParam(c *gin.Context, name string) (uint, bool) {
	return handlershared.ParseIDParam(c, name)
}

func requestLog(c *gin.Context) *zap.SugaredLogger {
	return handlershared.RequestLog(c)
}

func respondError(c *gin.Context, code int, key string, err error) {
	handlershared.RespondError(c, code, key, err)
}

func respondServiceError(c *gin.Context, err error) {
	handlershared.RespondServiceError(c, err)
}
