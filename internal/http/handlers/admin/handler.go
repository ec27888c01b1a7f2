// Package admin 运营端接口：订单发货与退款审核、商品缓存维护。
package admin

import (
	handlershared "github.com/mall-next/internal/http/handlers/shared"
	"github.com/mall-next/internal/provider"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Handler 运营端处理器，路由前已经过操作员鉴权与 RBAC
type Handler struct {
	*provider.Container
}

func New(c *provider.Container) *Handler {
	return &Handler{Container: c}
}

func getOperatorID(c *gin.Context) (uint, bool) {
	return handlershared.ContextUint(c, "operator_id")
}

func parseUintParam(c *gin.Context, name string) (uint, bool) {
	return handlershared.ParseIDParam(c, name)
}

func requestLog(c *gin.Context) *zap.SugaredLogger {
	return handlershared.RequestLog(c).With("operator_id", c.GetUint("operator_id"))
}

func respondError(c *gin.Context, code int, key string, err error) {
	handlershared.RespondError(c, code, key, err)
}

func respondServiceError(c *gin.Context, err error) {
	handlershared.RespondServiceError(c, err)
}
