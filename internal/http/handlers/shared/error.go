package shared

import (
	"github.com/mall-next/internal/http/response"
	"github.com/mall-next/internal/i18n"
	"github.com/mall-next/internal/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RequestLog 携带 request_id 与路由的日志实例
func RequestLog(c *gin.Context) *zap.SugaredLogger {
	if c == nil {
		return logger.S()
	}
	kv := []interface{}{"route", c.FullPath()}
	if id := c.GetString("request_id"); id != "" {
		kv = append(kv, "request_id", id)
	}
	return logger.SW(kv...)
}

// RespondError 返回本地化错误；有原始错误时 4xx 记 warn，其余记 error
func RespondError(c *gin.Context, code int, key string, err error) {
	appErr := response.WrapError(code, i18n.T(i18n.ResolveLocale(c), key), err)
	if err != nil {
		log := RequestLog(c)
		if appErr.IsClientError() {
			log.Warnw("handler_rejected", "code", appErr.Code, "key", key, "error", err)
		} else {
			log.Errorw("handler_error", "code", appErr.Code, "key", key, "error", err)
		}
	}
	response.Error(c, appErr.Code, appErr.Message)
}
