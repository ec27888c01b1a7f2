package provider

import (
	"github.com/mall-next/internal/authz"
	"github.com/mall-next/internal/cache"
	"github.com/mall-next/internal/config"
	"github.com/mall-next/internal/constants"
	"github.com/mall-next/internal/logger"
	"github.com/mall-next/internal/metrics"
	"github.com/mall-next/internal/models"
	"github.com/mall-next/internal/payment"
	"github.com/mall-next/internal/payment/alipay"
	"github.com/mall-next/internal/payment/wechatpay"
	"github.com/mall-next/internal/queue"
	"github.com/mall-next/internal/repository"
	"github.com/mall-next/internal/search"
	"github.com/mall-next/internal/service"
)

// Container 依赖注入容器
type Container struct {
	Config       *config.Config
	QueueClient  *queue.Client
	Metrics      *metrics.Collector
	Gateways     *payment.Registry
	Publisher    *search.Publisher
	SeckillStock *cache.SeckillStockCache

	// Repositories
	UserRepo         repository.UserRepository
	OrderRepo        repository.OrderRepository
	ProductRepo      repository.ProductRepository
	ProductSKURepo   repository.ProductSKURepository
	CouponRepo       repository.CouponRepository
	CrowdfundingRepo repository.CrowdfundingRepository
	InstallmentRepo  repository.InstallmentRepository
	NotificationRepo repository.NotificationRepository

	// Services
	AuthzService        *authz.Service
	ProductService      *service.ProductService
	SearchService       *service.SearchService
	SeckillService      *service.SeckillService
	CouponService       *service.CouponService
	NotificationService *service.NotificationService
	CrowdfundingService *service.CrowdfundingService
	InstallmentService  *service.InstallmentService
	OrderService        *service.OrderService
	PaymentService      *service.PaymentService
}

// NewContainer 初始化容器
func NewContainer(cfg *config.Config) *Container {
	// 初始化缓存
	if err := cache.InitRedis(&cfg.Redis); err != nil {
		logger.Warnw("provider_init_redis_failed", "error", err)
	}

	// 初始化队列客户端
	var queueClient *queue.Client
	if cfg.Queue.Enabled {
		qc, err := queue.NewClient(&cfg.Queue)
		if err != nil {
			logger.Errorw("provider_init_queue_client_failed", "error", err)
		} else {
			queueClient = qc
		}
	}

	c := &Container{
		Config:       cfg,
		QueueClient:  queueClient,
		Gateways:     buildGateways(&cfg.Payment),
		Publisher:    search.NewPublisher(&cfg.Search),
		SeckillStock: cache.NewSeckillStockCache(cache.Client(), cache.Prefix()),
	}
	if cfg.Metrics.Enabled {
		c.Metrics = metrics.New()
	}

	// 1. 初始化 Repositories
	c.initRepositories()

	// 2. 初始化 Services
	c.initServices()

	return c
}

func (c *Container) initRepositories() {
	db := models.DB
	c.UserRepo = repository.NewUserRepository(db)
	c.OrderRepo = repository.NewOrderRepository(db)
	c.ProductRepo = repository.NewProductRepository(db)
	c.ProductSKURepo = repository.NewProductSKURepository(db)
	c.CouponRepo = repository.NewCouponRepository(db)
	c.CrowdfundingRepo = repository.NewCrowdfundingRepository(db)
	c.InstallmentRepo = repository.NewInstallmentRepository(db)
	c.NotificationRepo = repository.NewNotificationRepository(db)
}

func (c *Container) initServices() {
	authzService, err := authz.NewService(models.DB)
	if err != nil {
		logger.Errorw("provider_init_authz_failed", "error", err)
		panic(err)
	}
	c.AuthzService = authzService
	if err := c.AuthzService.BootstrapBuiltinRoles(); err != nil {
		logger.Errorw("provider_bootstrap_builtin_roles_failed", "error", err)
		panic(err)
	}

	// 接口字段只在实现非空时赋值，避免带类型的 nil
	var tasks service.TaskDispatcher
	if c.QueueClient != nil {
		tasks = c.QueueClient
	}
	var stock service.InventoryCache
	if c.SeckillStock != nil {
		stock = c.SeckillStock
	}
	var publisher service.ProductPublisher
	if c.Publisher != nil {
		publisher = c.Publisher
	}

	timeout := c.Config.Payment.Timeout()
	c.ProductService = service.NewProductService(c.ProductRepo, nil)
	c.SearchService = service.NewSearchService(c.ProductService, publisher, tasks)
	c.SeckillService = service.NewSeckillService(c.ProductRepo, stock, c.SearchService, nil)
	c.CouponService = service.NewCouponService(c.CouponRepo)
	c.NotificationService = service.NewNotificationService(c.NotificationRepo, tasks)

	// 众筹、支付后处理、分期与订单互相引用：先建众筹，订单建好后回填退款执行者
	c.CrowdfundingService = service.NewCrowdfundingService(c.CrowdfundingRepo, c.OrderRepo, tasks, c.NotificationService, nil)
	effects := service.NewPaidEffects(c.ProductRepo, c.CrowdfundingService, tasks, c.SearchService)
	c.InstallmentService = service.NewInstallmentService(service.InstallmentServiceDeps{
		InstallmentRepo: c.InstallmentRepo,
		OrderRepo:       c.OrderRepo,
		Gateways:        c.Gateways,
		Tasks:           tasks,
		Notifier:        c.NotificationService,
		Effects:         effects,
		Config:          c.Config.Installment,
		GatewayTimeout:  timeout,
		NotifyURL:       c.Config.Payment.Alipay.InstallmentNotifyURL,
		ReturnURL:       c.Config.Payment.Alipay.ReturnURL,
	})
	c.OrderService = service.NewOrderService(service.OrderServiceDeps{
		OrderRepo:      c.OrderRepo,
		ProductSKURepo: c.ProductSKURepo,
		CouponRepo:     c.CouponRepo,
		Coupons:        c.CouponService,
		UserRepo:       c.UserRepo,
		Stock:          stock,
		Tasks:          tasks,
		Notifier:       c.NotificationService,
		Gateways:       c.Gateways,
		Installments:   c.InstallmentService,
		Effects:        effects,
		Config:         c.Config.Order,
		GatewayTimeout: timeout,
	})
	c.CrowdfundingService.SetRefunder(c.OrderService)
	c.PaymentService = service.NewPaymentService(c.OrderRepo, c.OrderService, c.InstallmentService, c.Gateways, timeout)
}

// buildGateways 按配置注册支付网关；配置无效时记录日志并跳过该网关
func buildGateways(cfg *config.PaymentConfig) *payment.Registry {
	registry := payment.NewRegistry()
	if cfg.Alipay.Enabled {
		gateway, err := alipay.New(alipay.Config{
			AppID:      cfg.Alipay.AppID,
			PrivateKey: cfg.Alipay.PrivateKey,
			PublicKey:  cfg.Alipay.PublicKey,
			Production: cfg.Alipay.Production,
			NotifyURL:  cfg.Alipay.NotifyURL,
			ReturnURL:  cfg.Alipay.ReturnURL,
		})
		if err != nil {
			logger.Errorw("provider_init_alipay_failed", "error", err)
		} else {
			registry.Register(constants.PaymentMethodAlipay, gateway)
		}
	}
	if cfg.Wechat.Enabled {
		gateway, err := wechatpay.New(wechatpay.Config{
			AppID:              cfg.Wechat.AppID,
			MerchantID:         cfg.Wechat.MchID,
			MerchantSerialNo:   cfg.Wechat.SerialNo,
			MerchantPrivateKey: cfg.Wechat.PrivateKey,
			APIV3Key:           cfg.Wechat.APIV3Key,
			NotifyURL:          cfg.Wechat.NotifyURL,
			RefundNotifyURL:    cfg.Wechat.RefundNotifyURL,
		})
		if err != nil {
			logger.Errorw("provider_init_wechatpay_failed", "error", err)
		} else {
			registry.Register(constants.PaymentMethodWechat, gateway)
		}
	}
	return registry
}

// Close 释放外部连接
func (c *Container) Close() {
	if c == nil {
		return
	}
	if c.QueueClient != nil {
		if err := c.QueueClient.Close(); err != nil {
			logger.Warnw("provider_close_queue_client_failed", "error", err)
		}
	}
	if c.Publisher != nil {
		if err := c.Publisher.Close(); err != nil {
			logger.Warnw("provider_close_search_publisher_failed", "error", err)
		}
	}
	if err := cache.Close(); err != nil {
		logger.Warnw("provider_close_redis_failed", "error", err)
	}
}
