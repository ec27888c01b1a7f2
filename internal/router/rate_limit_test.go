package router

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLimitSubject(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodPost, "/orders", nil)
	c.Request.RemoteAddr = "1.2.3.4:5678"

	assert.Equal(t, "ip:1.2.3.4", limitSubject(c))
	c.Set("user_id", uint(42))
	assert.Equal(t, "user:42", limitSubject(c))
}

func TestWindowLimiterRetryAfter(t *testing.T) {
	server := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	limiter := newWindowLimiter(client, "test:rate", time.Minute, 1)
	ok, _, err := limiter.allow(context.Background(), "user:1")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, wait, err := limiter.allow(context.Background(), "user:1")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Greater(t, wait, time.Duration(0))
	assert.LessOrEqual(t, wait, time.Minute)

	// 不同主体各自计数
	ok, _, err = limiter.allow(context.Background(), "user:2")
	require.NoError(t, err)
	assert.True(t, ok)

	server.FastForward(time.Minute + time.Second)
	ok, _, err = limiter.allow(context.Background(), "user:1")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestOrderCreateLimitBlocksAfterLimit(t *testing.T) {
	gin.SetMode(gin.TestMode)
	server := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	r := gin.New()
	r.POST("/orders", OrderCreateLimit(client, "test:rate", time.Minute, 2), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status_code": 0})
	})

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/orders", nil)
		req.RemoteAddr = "9.9.9.9:1000"
		r.ServeHTTP(w, req)
		var resp struct {
			StatusCode int `json:"status_code"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		codes = append(codes, resp.StatusCode)
	}
	assert.Equal(t, []int{0, 0, 429}, codes)
	assert.Greater(t, server.TTL("test:rate:ip:9.9.9.9"), time.Duration(0))
}

func TestOrderCreateLimitFailsOpen(t *testing.T) {
	gin.SetMode(gin.TestMode)
	server := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	server.Close()

	r := gin.New()
	r.POST("/orders", OrderCreateLimit(client, "test:rate", time.Minute, 1), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status_code": 0})
	})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/orders", nil))
	assert.Contains(t, w.Body.String(), `"status_code":0`)

	// 未配置 Redis 时直接放行
	r2 := gin.New()
	r2.POST("/orders", OrderCreateLimit(nil, "x", time.Minute, 1), func(c *gin.Context) { c.Status(http.StatusNoContent) })
	w = httptest.NewRecorder()
	r2.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/orders", nil))
	assert.Equal(t, http.StatusNoContent, w.Code)
}
