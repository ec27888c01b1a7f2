package router

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mall-next/internal/http/response"
	"github.com/mall-next/internal/i18n"
	"github.com/mall-next/internal/logger"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// 固定窗口计数：首次命中时设置窗口过期，返回 {计数, 剩余毫秒}
var windowCountScript = redis.NewScript(`
local n = redis.call("INCR", KEYS[1])
if n == 1 then
	redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return {n, redis.call("PTTL", KEYS[1])}
`)

// windowLimiter 基于 Redis 的固定窗口限流器，多实例共享计数
type windowLimiter struct {
	client *redis.Client
	prefix string
	window time.Duration
	limit  int64
}

func newWindowLimiter(client *redis.Client, prefix string, window time.Duration, limit int) *windowLimiter {
	return &windowLimiter{client: client, prefix: prefix, window: window, limit: int64(limit)}
}

// allow 返回是否放行以及被拒绝时的建议等待时长
func (l *windowLimiter) allow(ctx context.Context, subject string) (bool, time.Duration, error) {
	key := l.prefix + ":" + subject
	values, err := windowCountScript.Run(ctx, l.client, []string{key}, l.window.Milliseconds()).Int64Slice()
	if err != nil {
		return false, 0, err
	}
	if len(values) != 2 {
		return false, 0, errors.New("unexpected limiter reply")
	}
	if values[0] <= l.limit {
		return true, 0, nil
	}
	wait := time.Duration(values[1]) * time.Millisecond
	if wait <= 0 {
		wait = l.window
	}
	return false, wait, nil
}

// OrderCreateLimit 按用户限制下单频率；Redis 不可用时放行并记录告警
func OrderCreateLimit(client *redis.Client, prefix string, window time.Duration, limit int) gin.HandlerFunc {
	if client == nil || window <= 0 || limit <= 0 {
		return func(c *gin.Context) { c.Next() }
	}
	limiter := newWindowLimiter(client, prefix, window, limit)
	return func(c *gin.Context) {
		subject := limitSubject(c)
		ok, wait, err := limiter.allow(c.Request.Context(), subject)
		if err != nil {
			logger.Component("rate_limit").Warnw("order_rate_limit_unavailable", "subject", subject, "error", err)
			c.Next()
			return
		}
		if !ok {
			seconds := int((wait + time.Second - 1) / time.Second)
			response.TooManyRequests(c, i18n.Sprintf(i18n.ResolveLocale(c), "error.rate_limited", seconds))
			c.Abort()
			return
		}
		c.Next()
	}
}

// limitSubject 已登录用户按用户 ID 计数，否则按客户端 IP
func limitSubject(c *gin.Context) string {
	if uid := c.GetUint("user_id"); uid > 0 {
		return fmt.Sprintf("user:%d", uid)
	}
	return "ip:" + c.ClientIP()
}
