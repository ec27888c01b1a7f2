package router

import (
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/mall-next/internal/authz"
	"github.com/mall-next/internal/cache"
	"github.com/mall-next/internal/config"
	adminhandlers "github.com/mall-next/internal/http/handlers/admin"
	publichandlers "github.com/mall-next/internal/http/handlers/public"
	"github.com/mall-next/internal/http/response"
	"github.com/mall-next/internal/logger"
	"github.com/mall-next/internal/models"
	"github.com/mall-next/internal/provider"

	"github.com/gin-gonic/gin"
)

// SetupRouter 初始化路由
func SetupRouter(cfg *config.Config, c *provider.Container) *gin.Engine {
	log := logger.L
	if log == nil {
		log = logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	}
	r := gin.New()

	// 初始化 Handler（按前台/后台分组）
	publicHandler := publichandlers.New(c)
	adminHandler := adminhandlers.New(c)
	// 下单频率：每用户 60 秒内最多 30 次
	createLimit := OrderCreateLimit(cache.Client(), cache.Prefix()+":rate:order_create", time.Minute, 30)

	// 中间件
	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())
	r.Use(LoggerMiddleware(log))
	r.Use(CORSMiddleware(cfg.CORS))
	if c.Metrics != nil {
		r.Use(c.Metrics.GinMiddleware())
	}

	// API 路由组
	apiV1 := r.Group("/api/v1")
	{
		// 公开接口
		public := apiV1.Group("")
		{
			public.GET("/products", publicHandler.ListProducts)
			public.GET("/products/:id", publicHandler.GetProduct)
			public.GET("/products/:id/export", publicHandler.ExportProduct)
			public.POST("/payment/alipay/notify", publicHandler.AlipayNotify)
			public.GET("/payment/alipay/return", publicHandler.AlipayReturn)
			public.POST("/payment/wechat/notify", publicHandler.WechatNotify)
			public.POST("/payment/wechat/refund_notify", publicHandler.WechatRefundNotify)
			public.POST("/installments/alipay/notify", publicHandler.InstallmentAlipayNotify)
		}

		// 用户接口（需鉴权）
		user := apiV1.Group("")
		user.Use(UserJWTAuthMiddleware(cfg.UserJWT.SecretKey, c.UserRepo))
		{
			user.POST("/orders", createLimit, publicHandler.CreateOrder)
			user.POST("/crowdfunding_orders", createLimit, publicHandler.CreateCrowdfundingOrder)
			user.POST("/seckill_orders", SeckillGateMiddleware(cfg.Seckill, c.Metrics), publicHandler.CreateSeckillOrder)
			user.GET("/orders", publicHandler.ListOrders)
			user.GET("/orders/:id", publicHandler.GetOrder)
			user.POST("/orders/:id/received", publicHandler.ReceiveOrder)
			user.POST("/orders/:id/review", publicHandler.ReviewOrder)
			user.POST("/orders/:id/apply_refund", publicHandler.ApplyRefund)
			user.POST("/orders/:id/pay/:method", publicHandler.PayOrder)
			user.GET("/installments", publicHandler.ListInstallments)
			user.GET("/installments/:id", publicHandler.GetInstallment)
			user.POST("/installments/fee", publicHandler.PreviewInstallmentFee)
			user.POST("/installments", publicHandler.CreateInstallment)
			user.POST("/installments/:id/items/:item_id/alipay", publicHandler.PayInstallmentItem)
		}

		// 运营接口
		admin := apiV1.Group("/admin")
		admin.Use(OperatorJWTAuthMiddleware(cfg.JWT.SecretKey, c.UserRepo), OperatorRBACMiddleware(c.AuthzService))
		{
			admin.POST("/orders/:id/refund", adminHandler.HandleRefund)
			admin.POST("/orders/:id/ship", adminHandler.ShipOrder)
			admin.POST("/products/:id/seckill_cache", adminHandler.CacheSeckillStock)
			admin.POST("/products/:id/search_sync", adminHandler.SyncProductSearch)
			admin.GET("/authz/permissions", func(ctx *gin.Context) {
				response.Success(ctx, buildPermissionCatalog(r))
			})
		}
	}

	// 健康检查
	r.GET("/healthz", func(ctx *gin.Context) {
		status := gin.H{"status": "ok", "redis": cache.Enabled()}
		if err := pingDatabase(ctx); err != nil {
			status["status"] = "degraded"
			ctx.JSON(http.StatusServiceUnavailable, status)
			return
		}
		ctx.JSON(http.StatusOK, status)
	})
	if c.Metrics != nil {
		path := strings.TrimSpace(cfg.Metrics.Path)
		if path == "" {
			path = "/metrics"
		}
		r.GET(path, gin.WrapH(c.Metrics.Handler()))
	}

	return r
}

func pingDatabase(ctx *gin.Context) error {
	if models.DB == nil {
		return fmt.Errorf("database not initialized")
	}
	sqlDB, err := models.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx.Request.Context())
}

type permissionCatalogItem struct {
	Module     string `json:"module"`
	Method     string `json:"method"`
	Object     string `json:"object"`
	Permission string `json:"permission"`
}

func buildPermissionCatalog(engine *gin.Engine) []permissionCatalogItem {
	if engine == nil {
		return []permissionCatalogItem{}
	}

	routes := engine.Routes()
	seen := make(map[string]struct{}, len(routes))
	items := make([]permissionCatalogItem, 0, len(routes))

	for _, item := range routes {
		method := strings.ToUpper(strings.TrimSpace(item.Method))
		if method == "" || method == "OPTIONS" || method == "HEAD" {
			continue
		}
		if !strings.HasPrefix(item.Path, "/api/v1/admin/") {
			continue
		}
		object := authz.NormalizeObject(item.Path)
		permission := method + ":" + object
		if _, exists := seen[permission]; exists {
			continue
		}
		seen[permission] = struct{}{}
		items = append(items, permissionCatalogItem{
			Module:     derivePermissionModule(object),
			Method:     method,
			Object:     object,
			Permission: permission,
		})
	}

	sort.Slice(items, func(i, j int) bool {
		if items[i].Module == items[j].Module {
			if items[i].Object == items[j].Object {
				return items[i].Method < items[j].Method
			}
			return items[i].Object < items[j].Object
		}
		return items[i].Module < items[j].Module
	})

	return items
}

func derivePermissionModule(object string) string {
	normalized := strings.TrimPrefix(strings.TrimSpace(object), "/")
	if normalized == "" {
		return "system"
	}
	segments := strings.Split(normalized, "/")
	if len(segments) <= 1 {
		return segments[0]
	}
	if segments[0] != "admin" {
		return segments[0]
	}
	if segments[1] == "authz" {
		return "authz"
	}
	return segments[1]
}
