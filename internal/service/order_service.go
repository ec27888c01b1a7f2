package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mall-next/internal/cache"
	"github.com/mall-next/internal/config"
	"github.com/mall-next/internal/constants"
	"github.com/mall-next/internal/logger"
	"github.com/mall-next/internal/models"
	"github.com/mall-next/internal/queue"
	"github.com/mall-next/internal/repository"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// OrderServiceDeps 订单服务依赖
type OrderServiceDeps struct {
	OrderRepo      repository.OrderRepository
	ProductSKURepo repository.ProductSKURepository
	CouponRepo     repository.CouponRepository
	Coupons        *CouponService
	UserRepo       repository.UserRepository
	Stock          InventoryCache
	Tasks          TaskDispatcher
	Notifier       Notifier
	Gateways       GatewayResolver
	Installments   *InstallmentService
	Effects        *PaidEffects
	Config         config.OrderConfig
	GatewayTimeout time.Duration
	Now            func() time.Time
}

// OrderService 订单服务
type OrderService struct {
	orderRepo      repository.OrderRepository
	productSKURepo repository.ProductSKURepository
	couponRepo     repository.CouponRepository
	coupons        *CouponService
	userRepo       repository.UserRepository
	stock          InventoryCache
	tasks          TaskDispatcher
	notifier       Notifier
	gateways       GatewayResolver
	installments   *InstallmentService
	effects        *PaidEffects
	cfg            config.OrderConfig
	gatewayTimeout time.Duration
	now            func() time.Time
}

// NewOrderService 创建订单服务
func NewOrderService(deps OrderServiceDeps) *OrderService {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	coupons := deps.Coupons
	if coupons == nil {
		coupons = NewCouponService(deps.CouponRepo)
	}
	timeout := deps.GatewayTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &OrderService{
		orderRepo:      deps.OrderRepo,
		productSKURepo: deps.ProductSKURepo,
		couponRepo:     deps.CouponRepo,
		coupons:        coupons,
		userRepo:       deps.UserRepo,
		stock:          deps.Stock,
		tasks:          deps.Tasks,
		notifier:       deps.Notifier,
		gateways:       deps.Gateways,
		installments:   deps.Installments,
		effects:        deps.Effects,
		cfg:            deps.Config,
		gatewayTimeout: timeout,
		now:            now,
	}
}

// CreateOrderInput 普通订单下单输入
type CreateOrderInput struct {
	UserID     uint
	AddressID  uint
	Remark     string
	CouponCode string
	Items      []CreateOrderItem
}

// CreateOrderItem 下单项
type CreateOrderItem struct {
	SKUID  uint
	Amount int
}

// CreateCrowdfundingOrderInput 众筹订单下单输入
type CreateCrowdfundingOrderInput struct {
	UserID    uint
	AddressID uint
	SKUID     uint
	Amount    int
}

// CreateSeckillOrderInput 秒杀订单下单输入，固定购买 1 件
type CreateSeckillOrderInput struct {
	UserID    uint
	AddressID uint
	SKUID     uint
}

// orderDraft 待落库的订单与库存扣减计划；seckillProductID 非零时在同一事务内占用用户秒杀名额
type orderDraft struct {
	order            *models.Order
	items            []models.OrderItem
	coupon           *models.Coupon
	address          *models.UserAddress
	ttl              time.Duration
	seckillProductID uint
}

// CreateOrder 创建普通订单：合并同 SKU 下单项、扣减库存、使用优惠券
func (s *OrderService) CreateOrder(ctx context.Context, input CreateOrderInput) (*models.Order, error) {
	if input.UserID == 0 || len(input.Items) == 0 {
		return nil, ErrInvalidOrderItem
	}
	now := s.now()
	address, err := s.loadAddress(input.UserID, input.AddressID)
	if err != nil {
		return nil, err
	}

	var coupon *models.Coupon
	if code := strings.TrimSpace(input.CouponCode); code != "" {
		// 先校验状态与有效期，门槛在算出总额后再校验
		coupon, err = s.coupons.Resolve(code, nil, now)
		if err != nil {
			return nil, err
		}
	}

	for _, req := range input.Items {
		if req.SKUID == 0 || req.Amount <= 0 {
			return nil, ErrInvalidOrderItem
		}
	}
	merged := mergeOrderItems(input.Items)
	items := make([]models.OrderItem, 0, len(merged))
	total := decimal.Zero
	for _, req := range merged {
		sku, err := s.loadSKU(req.SKUID, constants.ProductTypeNormal)
		if err != nil {
			return nil, err
		}
		if sku.Stock < req.Amount {
			return nil, ErrInsufficientStock
		}
		items = append(items, buildOrderItem(sku, req.Amount))
		total = total.Add(sku.Price.Decimal.Mul(decimal.NewFromInt(int64(req.Amount))))
	}

	if coupon != nil {
		total, err = s.coupons.Apply(coupon, total, now)
		if err != nil {
			return nil, err
		}
	}

	ttl := s.cfg.TTL()
	order, err := s.newOrder(input.UserID, constants.OrderTypeNormal, address, total, input.Remark, now, ttl)
	if err != nil {
		return nil, err
	}
	if coupon != nil {
		order.CouponID = &coupon.ID
	}
	draft := &orderDraft{order: order, items: items, coupon: coupon, address: address, ttl: ttl}
	if err := s.persist(draft, now); err != nil {
		return nil, err
	}
	s.scheduleExpiry(order, ttl)
	return s.reload(order), nil
}

// CreateCrowdfundingOrder 创建众筹订单，超时时间不晚于众筹截止时间
func (s *OrderService) CreateCrowdfundingOrder(ctx context.Context, input CreateCrowdfundingOrderInput) (*models.Order, error) {
	if input.UserID == 0 || input.SKUID == 0 || input.Amount <= 0 {
		return nil, ErrInvalidOrderItem
	}
	now := s.now()
	sku, err := s.loadSKU(input.SKUID, constants.ProductTypeCrowdfunding)
	if err != nil {
		return nil, err
	}
	campaign := sku.Product.Crowdfunding
	if campaign.Status != constants.CrowdfundingStatusFunding || !now.Before(campaign.EndAt) {
		return nil, ErrCrowdfundingEnded
	}
	if sku.Stock < input.Amount {
		return nil, ErrInsufficientStock
	}
	address, err := s.loadAddress(input.UserID, input.AddressID)
	if err != nil {
		return nil, err
	}

	ttl := s.cfg.TTL()
	if remaining := campaign.EndAt.Sub(now); remaining < ttl {
		ttl = remaining
	}
	item := buildOrderItem(sku, input.Amount)
	total := item.Price.Decimal.Mul(decimal.NewFromInt(int64(input.Amount)))
	order, err := s.newOrder(input.UserID, constants.OrderTypeCrowdfunding, address, total, "", now, ttl)
	if err != nil {
		return nil, err
	}
	draft := &orderDraft{order: order, items: []models.OrderItem{item}, address: address, ttl: ttl}
	if err := s.persist(draft, now); err != nil {
		return nil, err
	}
	s.scheduleExpiry(order, ttl)
	return s.reload(order), nil
}

// CreateSeckillOrder 创建秒杀订单：先扣 Redis 库存镜像，落库失败时回补
func (s *OrderService) CreateSeckillOrder(ctx context.Context, input CreateSeckillOrderInput) (*models.Order, error) {
	if input.UserID == 0 || input.SKUID == 0 {
		return nil, ErrInvalidOrderItem
	}
	now := s.now()
	sku, err := s.loadSKU(input.SKUID, constants.ProductTypeSeckill)
	if err != nil {
		return nil, err
	}
	if err := checkSeckillWindow(sku.Product.Seckill, now); err != nil {
		return nil, err
	}
	purchased, err := s.orderRepo.HasOpenOrderForProduct(input.UserID, sku.ProductID)
	if err != nil {
		return nil, err
	}
	if purchased {
		return nil, ErrSeckillPurchased
	}
	address, err := s.loadAddress(input.UserID, input.AddressID)
	if err != nil {
		return nil, err
	}

	reserved := false
	if s.stock != nil {
		if _, err := s.stock.Decr(ctx, sku.ID, 1); err != nil {
			if errors.Is(err, cache.ErrSeckillStockInsufficient) {
				return nil, ErrInsufficientStock
			}
			return nil, fmt.Errorf("seckill stock cache decr: %w", err)
		}
		reserved = true
	}

	ttl := s.cfg.SeckillTTL()
	item := buildOrderItem(sku, 1)
	order, err := s.newOrder(input.UserID, constants.OrderTypeSeckill, address, item.Price.Decimal, "", now, ttl)
	if err == nil {
		err = s.persist(&orderDraft{
			order:            order,
			items:            []models.OrderItem{item},
			address:          address,
			ttl:              ttl,
			seckillProductID: sku.ProductID,
		}, now)
	}
	if err != nil {
		if reserved {
			s.restoreSeckillCache(ctx, 0, sku.ID, 1)
		}
		return nil, err
	}
	s.scheduleExpiry(order, ttl)
	return s.reload(order), nil
}

// checkSeckillWindow 校验秒杀时间窗
func checkSeckillWindow(window *models.SeckillProduct, now time.Time) error {
	if window == nil {
		return ErrProductTypeInvalid
	}
	if window.IsBeforeStart(now) {
		return ErrSeckillNotStarted
	}
	if window.IsAfterEnd(now) {
		return ErrSeckillEnded
	}
	return nil
}

// CancelExpiredOrder 关闭超时未支付订单并回补库存；已支付或已关闭时为空操作
func (s *OrderService) CancelExpiredOrder(ctx context.Context, orderID uint) error {
	order, err := s.orderRepo.GetByID(orderID)
	if err != nil {
		return err
	}
	if order == nil || order.IsPaid() || order.Closed {
		return nil
	}

	closed := false
	err = models.DB.Transaction(func(tx *gorm.DB) error {
		orderRepo := s.orderRepo.WithTx(tx)
		ok, err := orderRepo.CloseIfUnpaid(order.ID)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		closed = true
		if order.Type == constants.OrderTypeSeckill {
			if err := orderRepo.ReleaseSeckill(order.ID); err != nil {
				return err
			}
		}
		skuRepo := s.productSKURepo.WithTx(tx)
		for _, item := range order.Items {
			if err := skuRepo.IncreaseStock(item.ProductSKUID, item.Amount); err != nil {
				return err
			}
		}
		if order.CouponID != nil {
			if err := s.couponRepo.WithTx(tx).DecrementUsed(*order.CouponID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		logger.Errorw("order_expire_restore_stock_failed",
			"order_id", order.ID,
			"order_no", order.OrderNo,
			"error", err,
		)
		return err
	}
	if !closed {
		logger.Debugw("order_expire_skipped",
			"order_id", order.ID,
			"order_no", order.OrderNo,
		)
		return nil
	}
	if order.Type == constants.OrderTypeSeckill {
		for _, item := range order.Items {
			s.restoreSeckillCache(ctx, order.ID, item.ProductSKUID, item.Amount)
		}
	}
	logger.Infow("order_expired_closed",
		"order_id", order.ID,
		"order_no", order.OrderNo,
		"order_type", order.Type,
	)
	return nil
}

// SweepExpiredOrders 兜底扫描已过期未关闭的订单，返回关闭尝试数
func (s *OrderService) SweepExpiredOrders(ctx context.Context, limit int) (int, error) {
	orders, err := s.orderRepo.ListExpiredUnpaid(s.now(), limit)
	if err != nil {
		return 0, err
	}
	for _, order := range orders {
		if err := s.CancelExpiredOrder(ctx, order.ID); err != nil {
			logger.Warnw("order_expire_sweep_failed",
				"order_id", order.ID,
				"error", err,
			)
		}
	}
	return len(orders), nil
}

// MarkPaid 网关支付成功后标记订单已支付；重复通知为空操作
func (s *OrderService) MarkPaid(ctx context.Context, order *models.Order, method, tradeNo string, amount decimal.Decimal) (*models.Order, error) {
	if order == nil {
		return nil, ErrOrderNotFound
	}
	if order.IsPaid() {
		logger.Debugw("order_payment_duplicate",
			"order_id", order.ID,
			"order_no", order.OrderNo,
			"trade_no", tradeNo,
		)
		return order, nil
	}
	if order.Closed {
		logger.Warnw("payment_on_closed_order",
			"order_id", order.ID,
			"order_no", order.OrderNo,
			"payment_method", method,
			"trade_no", tradeNo,
		)
		return nil, ErrOrderClosed
	}
	if !amount.IsZero() && !amount.Round(2).Equal(order.TotalAmount.Decimal.Round(2)) {
		logger.Warnw("order_payment_amount_mismatch",
			"order_id", order.ID,
			"order_no", order.OrderNo,
			"expected", order.TotalAmount.String(),
			"paid", amount.StringFixed(2),
		)
		return nil, ErrPaymentAmountMismatch
	}

	ok, err := s.orderRepo.MarkPaid(order.ID, method, tradeNo, s.now())
	if err != nil {
		return nil, err
	}
	current, err := s.orderRepo.GetByID(order.ID)
	if err != nil {
		return nil, err
	}
	if current == nil {
		return nil, ErrOrderNotFound
	}
	if !ok {
		// 条件更新未命中：并发回调已写入，或超时关闭抢先
		if current.Closed && !current.IsPaid() {
			logger.Warnw("payment_on_closed_order",
				"order_id", order.ID,
				"order_no", order.OrderNo,
				"payment_method", method,
				"trade_no", tradeNo,
			)
			return nil, ErrOrderClosed
		}
		return current, nil
	}
	logger.Infow("order_paid",
		"order_id", current.ID,
		"order_no", current.OrderNo,
		"payment_method", method,
		"trade_no", tradeNo,
	)
	s.effects.Apply(ctx, current)
	return current, nil
}

func (s *OrderService) loadAddress(userID, addressID uint) (*models.UserAddress, error) {
	if addressID == 0 {
		return nil, ErrAddressNotFound
	}
	address, err := s.userRepo.GetAddressByIDAndUser(addressID, userID)
	if err != nil {
		return nil, err
	}
	if address == nil {
		return nil, ErrAddressNotFound
	}
	return address, nil
}

// loadSKU 获取 SKU 并校验商品上架状态与类型
func (s *OrderService) loadSKU(skuID uint, productType string) (*models.ProductSKU, error) {
	sku, err := s.productSKURepo.GetByID(skuID)
	if err != nil {
		return nil, err
	}
	if sku == nil || sku.Product == nil {
		return nil, ErrSKUNotFound
	}
	if !sku.Product.OnSale {
		return nil, ErrProductUnavailable
	}
	if sku.Product.Type != productType || !sku.Product.ExtensionValid() {
		return nil, ErrProductTypeInvalid
	}
	return sku, nil
}

func (s *OrderService) newOrder(userID uint, orderType string, address *models.UserAddress, total decimal.Decimal, remark string, now time.Time, ttl time.Duration) (*models.Order, error) {
	orderNo, err := generateUniqueSerial(now, s.orderRepo.ExistsOrderNo)
	if err != nil {
		return nil, err
	}
	expiresAt := now.Add(ttl)
	return &models.Order{
		OrderNo:      orderNo,
		UserID:       userID,
		Type:         orderType,
		Address:      address.Snapshot(),
		TotalAmount:  models.NewMoneyFromDecimal(total),
		Remark:       strings.TrimSpace(remark),
		RefundStatus: constants.RefundStatusPending,
		ShipStatus:   constants.ShipStatusPending,
		Extra:        models.JSON{},
		ExpiresAt:    &expiresAt,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// persist 单事务写入订单、订单项，扣减库存并占用优惠券
func (s *OrderService) persist(draft *orderDraft, now time.Time) error {
	return models.DB.Transaction(func(tx *gorm.DB) error {
		orderRepo := s.orderRepo.WithTx(tx)
		if err := orderRepo.Create(draft.order, draft.items); err != nil {
			return err
		}
		if draft.seckillProductID != 0 {
			ok, err := orderRepo.ClaimSeckill(draft.seckillProductID, draft.order.UserID, draft.order.ID)
			if err != nil {
				return err
			}
			if !ok {
				return ErrSeckillPurchased
			}
		}
		skuRepo := s.productSKURepo.WithTx(tx)
		for _, item := range draft.items {
			if err := skuRepo.DecreaseStock(item.ProductSKUID, item.Amount); err != nil {
				if errors.Is(err, repository.ErrStockNotEnough) {
					return ErrInsufficientStock
				}
				return err
			}
		}
		if draft.coupon != nil {
			ok, err := s.couponRepo.WithTx(tx).IncrementUsed(draft.coupon.ID)
			if err != nil {
				return err
			}
			if !ok {
				return ErrCouponExhausted
			}
		}
		if draft.address != nil {
			if err := s.userRepo.WithTx(tx).TouchAddress(draft.address.ID, now); err != nil {
				return err
			}
		}
		return nil
	})
}

// scheduleExpiry 投递超时关闭任务；队列不可用时由兜底扫描关闭
func (s *OrderService) scheduleExpiry(order *models.Order, ttl time.Duration) {
	if !dispatcherEnabled(s.tasks) {
		return
	}
	if err := s.tasks.EnqueueOrderTimeoutCancel(queue.OrderTimeoutCancelPayload{OrderID: order.ID}, ttl); err != nil {
		logger.Warnw("order_enqueue_timeout_cancel_failed",
			"order_id", order.ID,
			"order_no", order.OrderNo,
			"error", err,
		)
	}
}

func (s *OrderService) restoreSeckillCache(ctx context.Context, orderID, skuID uint, amount int) {
	if s.stock == nil {
		return
	}
	restored, err := s.stock.Incr(ctx, skuID, amount)
	if err != nil {
		logger.Errorw("seckill_cache_restore_failed",
			"order_id", orderID,
			"sku_id", skuID,
			"error", err,
		)
		return
	}
	if !restored {
		logger.Debugw("seckill_cache_restore_skipped",
			"order_id", orderID,
			"sku_id", skuID,
		)
	}
}

func (s *OrderService) reload(order *models.Order) *models.Order {
	full, err := s.orderRepo.GetByID(order.ID)
	if err == nil && full != nil {
		return full
	}
	return order
}

func buildOrderItem(sku *models.ProductSKU, amount int) models.OrderItem {
	return models.OrderItem{
		ProductID:    sku.ProductID,
		ProductSKUID: sku.ID,
		Amount:       amount,
		Price:        sku.Price,
	}
}

// mergeOrderItems 合并同一 SKU 的下单项，保持首次出现的顺序
func mergeOrderItems(items []CreateOrderItem) []CreateOrderItem {
	index := make(map[uint]int, len(items))
	merged := make([]CreateOrderItem, 0, len(items))
	for _, item := range items {
		if pos, ok := index[item.SKUID]; ok {
			merged[pos].Amount += item.Amount
			continue
		}
		index[item.SKUID] = len(merged)
		merged = append(merged, item)
	}
	return merged
}
