package router

import (
	"math/rand"
	"sync"
	"time"

	"github.com/mall-next/internal/config"
	"github.com/mall-next/internal/http/response"
	"github.com/mall-next/internal/i18n"
	"github.com/mall-next/internal/metrics"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

const seckillLimiterIdleTTL = 10 * time.Minute

// ipLimiters 按客户端 IP 维护令牌桶，空闲过久的桶会被回收
type ipLimiters struct {
	mu       sync.Mutex
	limit    rate.Limit
	burst    int
	limiters map[string]*ipLimiterEntry
	lastGC   time.Time
}

type ipLimiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func newIPLimiters(qps float64, burst int) *ipLimiters {
	if burst <= 0 {
		burst = 1
	}
	return &ipLimiters{
		limit:    rate.Limit(qps),
		burst:    burst,
		limiters: make(map[string]*ipLimiterEntry),
	}
}

func (l *ipLimiters) allow(ip string, now time.Time) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if now.Sub(l.lastGC) > seckillLimiterIdleTTL {
		for key, entry := range l.limiters {
			if now.Sub(entry.lastSeen) > seckillLimiterIdleTTL {
				delete(l.limiters, key)
			}
		}
		l.lastGC = now
	}
	entry, ok := l.limiters[ip]
	if !ok {
		entry = &ipLimiterEntry{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.limiters[ip] = entry
	}
	entry.lastSeen = now
	return entry.limiter.AllowN(now, 1)
}

// SeckillGateMiddleware 秒杀入口削峰：先按比例随机丢弃，再按 IP 令牌桶限流
func SeckillGateMiddleware(cfg config.SeckillConfig, collector *metrics.Collector) gin.HandlerFunc {
	return seckillGate(cfg, collector, rand.New(rand.NewSource(time.Now().UnixNano())).Intn)
}

func seckillGate(cfg config.SeckillConfig, collector *metrics.Collector, intn func(int) int) gin.HandlerFunc {
	var limiters *ipLimiters
	if cfg.RateLimitQPS > 0 {
		limiters = newIPLimiters(cfg.RateLimitQPS, cfg.RateLimitBurst)
	}
	var mu sync.Mutex
	return func(c *gin.Context) {
		if cfg.DropPercent > 0 {
			mu.Lock()
			roll := intn(100)
			mu.Unlock()
			if roll < cfg.DropPercent {
				collector.SeckillRejected(metrics.SeckillRejectDropped)
				response.Error(c, response.CodeTooManyRequests, i18n.T(i18n.ResolveLocale(c), "error.seckill_busy"))
				c.Abort()
				return
			}
		}
		if limiters != nil && !limiters.allow(c.ClientIP(), time.Now()) {
			collector.SeckillRejected(metrics.SeckillRejectRateLimit)
			response.Error(c, response.CodeTooManyRequests, i18n.T(i18n.ResolveLocale(c), "error.too_many_requests"))
			c.Abort()
			return
		}
		c.Next()
	}
}
