package shared

import (
	"github.com/mall-next/internal/http/response"

	"github.com/gin-gonic/gin"
)

// ContextUint 读取鉴权中间件写入的身份 ID；缺失视为未登录
func ContextUint(c *gin.Context, key string) (uint, bool) {
	value, exists := c.Get(key)
	if !exists {
		RespondError(c, response.CodeUnauthorized, "error.unauthorized", nil)
		return 0, false
	}
	switch v := value.(type) {
	case uint:
		if v > 0 {
			return v, true
		}
	case uint64:
		if v > 0 {
			return uint(v), true
		}
	}
	RespondError(c, response.CodeUnauthorized, "error.unauthorized", nil)
	return 0, false
}
