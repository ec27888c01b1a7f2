package service

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/mall-next/internal/config"
	"github.com/mall-next/internal/constants"
	"github.com/mall-next/internal/models"
	"github.com/mall-next/internal/payment"
	"github.com/mall-next/internal/queue"
	"github.com/mall-next/internal/repository"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"gorm.io/gorm"
)

var fixedNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.Local)

func openServiceTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:service_%s_%d?mode=memory&cache=shared", name, time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("get sql db failed: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	if err := db.AutoMigrate(
		&models.User{},
		&models.UserAddress{},
		&models.Category{},
		&models.Product{},
		&models.ProductSKU{},
		&models.ProductProperty{},
		&models.CrowdfundingProduct{},
		&models.SeckillProduct{},
		&models.Coupon{},
		&models.Order{},
		&models.OrderItem{},
		&models.SeckillParticipation{},
		&models.Installment{},
		&models.InstallmentItem{},
		&models.NotificationRecord{},
	); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}
	previous := models.DB
	models.DB = db
	t.Cleanup(func() {
		models.DB = previous
		_ = sqlDB.Close()
	})
	return db
}

// testEnv 服务层测试装配
type testEnv struct {
	db           *gorm.DB
	orderRepo    *repository.GormOrderRepository
	skuRepo      *repository.GormProductSKURepository
	productRepo  *repository.GormProductRepository
	couponRepo   *repository.GormCouponRepository
	userRepo     *repository.GormUserRepository
	campaignRepo *repository.GormCrowdfundingRepository
	instRepo     *repository.GormInstallmentRepository
	gateways     *payment.Registry
	tasks        *recordingDispatcher
	notifier     *recordingNotifier
	now          time.Time
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db := openServiceTestDB(t)
	return &testEnv{
		db:           db,
		orderRepo:    repository.NewOrderRepository(db),
		skuRepo:      repository.NewProductSKURepository(db),
		productRepo:  repository.NewProductRepository(db),
		couponRepo:   repository.NewCouponRepository(db),
		userRepo:     repository.NewUserRepository(db),
		campaignRepo: repository.NewCrowdfundingRepository(db),
		instRepo:     repository.NewInstallmentRepository(db),
		gateways:     payment.NewRegistry(),
		tasks:        &recordingDispatcher{},
		notifier:     &recordingNotifier{},
		now:          fixedNow,
	}
}

func (e *testEnv) clock() time.Time { return e.now }

func (e *testEnv) installmentConfig() config.InstallmentConfig {
	return config.InstallmentConfig{
		FeeRates:        map[string]string{"3": "1.5", "6": "2", "12": "2.5"},
		FineRate:        "0.05",
		MinAmount:       "100",
		DueIntervalDays: 30,
	}
}

func (e *testEnv) crowdfundingService() *CrowdfundingService {
	return NewCrowdfundingService(e.campaignRepo, e.orderRepo, e.tasks, e.notifier, e.clock)
}

func (e *testEnv) installmentService(effects *PaidEffects) *InstallmentService {
	return NewInstallmentService(InstallmentServiceDeps{
		InstallmentRepo: e.instRepo,
		OrderRepo:       e.orderRepo,
		Gateways:        e.gateways,
		Tasks:           e.tasks,
		Notifier:        e.notifier,
		Effects:         effects,
		Config:          e.installmentConfig(),
		Now:             e.clock,
	})
}

func (e *testEnv) orderService(stock InventoryCache) *OrderService {
	crowdfunding := e.crowdfundingService()
	effects := NewPaidEffects(e.productRepo, crowdfunding, e.tasks, nil)
	installments := e.installmentService(effects)
	orders := NewOrderService(OrderServiceDeps{
		OrderRepo:      e.orderRepo,
		ProductSKURepo: e.skuRepo,
		CouponRepo:     e.couponRepo,
		UserRepo:       e.userRepo,
		Stock:          stock,
		Tasks:          e.tasks,
		Notifier:       e.notifier,
		Gateways:       e.gateways,
		Installments:   installments,
		Effects:        effects,
		Config:         config.OrderConfig{TTLMinutes: 30, SeckillTTLMinutes: 10},
		Now:            e.clock,
	})
	crowdfunding.SetRefunder(orders)
	return orders
}

func (e *testEnv) seedAddress(t *testing.T, userID uint) *models.UserAddress {
	t.Helper()
	user := models.User{ID: userID, Email: fmt.Sprintf("user%d@example.com", userID)}
	if err := e.db.FirstOrCreate(&user, models.User{ID: userID}).Error; err != nil {
		t.Fatalf("seed user failed: %v", err)
	}
	address := &models.UserAddress{
		UserID:       userID,
		Province:     "浙江省",
		City:         "杭州市",
		District:     "西湖区",
		Address:      "文三路 1 号",
		ContactName:  "张三",
		ContactPhone: "13800000000",
	}
	if err := e.db.Create(address).Error; err != nil {
		t.Fatalf("seed address failed: %v", err)
	}
	return address
}

func (e *testEnv) seedProduct(t *testing.T, productType, price string, stock int) (*models.Product, *models.ProductSKU) {
	t.Helper()
	product := &models.Product{
		Type:   productType,
		Title:  "商品-" + productType,
		OnSale: true,
		Price:  models.MustMoney(price),
	}
	if err := e.db.Create(product).Error; err != nil {
		t.Fatalf("seed product failed: %v", err)
	}
	sku := &models.ProductSKU{
		ProductID: product.ID,
		Title:     "默认规格",
		Price:     models.MustMoney(price),
		Stock:     stock,
	}
	if err := e.db.Create(sku).Error; err != nil {
		t.Fatalf("seed sku failed: %v", err)
	}
	return product, sku
}

func (e *testEnv) seedCampaign(t *testing.T, productID uint, target string, endAt time.Time) *models.CrowdfundingProduct {
	t.Helper()
	campaign := &models.CrowdfundingProduct{
		ProductID:    productID,
		TargetAmount: models.MustMoney(target),
		TotalAmount:  models.MustMoney("0"),
		EndAt:        endAt,
		Status:       constants.CrowdfundingStatusFunding,
	}
	if err := e.db.Create(campaign).Error; err != nil {
		t.Fatalf("seed campaign failed: %v", err)
	}
	return campaign
}

func (e *testEnv) seedSeckillWindow(t *testing.T, productID uint, startAt, endAt time.Time) {
	t.Helper()
	window := &models.SeckillProduct{ProductID: productID, StartAt: startAt, EndAt: endAt}
	if err := e.db.Create(window).Error; err != nil {
		t.Fatalf("seed seckill window failed: %v", err)
	}
}

// seedPaidOrder 直接写入一个已支付订单
func (e *testEnv) seedPaidOrder(t *testing.T, userID uint, orderType string, sku *models.ProductSKU, amount int, method string) *models.Order {
	t.Helper()
	paidAt := e.now.Add(-time.Hour)
	total := sku.Price.Decimal.Mul(decimal.NewFromInt(int64(amount)))
	order := &models.Order{
		OrderNo:       fmt.Sprintf("T%d%d", time.Now().UnixNano(), userID),
		UserID:        userID,
		Type:          orderType,
		Address:       models.JSON{},
		TotalAmount:   models.NewMoneyFromDecimal(total),
		PaidAt:        &paidAt,
		PaymentMethod: method,
		PaymentNo:     fmt.Sprintf("TRADE-%d", userID),
		RefundStatus:  constants.RefundStatusPending,
		ShipStatus:    constants.ShipStatusPending,
		Extra:         models.JSON{},
	}
	items := []models.OrderItem{{
		ProductID:    sku.ProductID,
		ProductSKUID: sku.ID,
		Amount:       amount,
		Price:        sku.Price,
	}}
	if err := e.orderRepo.Create(order, items); err != nil {
		t.Fatalf("seed paid order failed: %v", err)
	}
	return order
}

func (e *testEnv) reloadOrder(t *testing.T, id uint) *models.Order {
	t.Helper()
	order, err := e.orderRepo.GetByID(id)
	if err != nil || order == nil {
		t.Fatalf("reload order failed: %v", err)
	}
	return order
}

func (e *testEnv) reloadSKU(t *testing.T, id uint) *models.ProductSKU {
	t.Helper()
	var sku models.ProductSKU
	if err := e.db.First(&sku, id).Error; err != nil {
		t.Fatalf("reload sku failed: %v", err)
	}
	return &sku
}

// mockGateway testify 支付网关替身
type mockGateway struct {
	mock.Mock
}

func (m *mockGateway) Charge(ctx context.Context, req payment.ChargeRequest) (*payment.ChargeResult, error) {
	args := m.Called(ctx, req)
	result, _ := args.Get(0).(*payment.ChargeResult)
	return result, args.Error(1)
}

func (m *mockGateway) Refund(ctx context.Context, req payment.RefundRequest) (*payment.RefundResult, error) {
	args := m.Called(ctx, req)
	result, _ := args.Get(0).(*payment.RefundResult)
	return result, args.Error(1)
}

func (m *mockGateway) VerifyCallback(ctx context.Context, r *http.Request) (*payment.CallbackResult, error) {
	args := m.Called(ctx, r)
	result, _ := args.Get(0).(*payment.CallbackResult)
	return result, args.Error(1)
}

type notifyCall struct {
	UserID  uint
	Kind    string
	Payload map[string]interface{}
}

type recordingNotifier struct {
	mu    sync.Mutex
	calls []notifyCall
}

func (n *recordingNotifier) Notify(_ context.Context, userID uint, kind string, payload map[string]interface{}) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls = append(n.calls, notifyCall{UserID: userID, Kind: kind, Payload: payload})
}

func (n *recordingNotifier) count(kind string) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	total := 0
	for _, call := range n.calls {
		if call.Kind == kind {
			total++
		}
	}
	return total
}

// recordingDispatcher 记录投递的任务；enabled=false 时服务走同步分支
type recordingDispatcher struct {
	mu           sync.Mutex
	enabled      bool
	timeouts     []queue.OrderTimeoutCancelPayload
	refunds      []queue.OrderRefundPayload
	instRefunds  []queue.InstallmentRefundPayload
	recomputes   []queue.CrowdfundingRecomputePayload
	notices      []queue.NotificationPayload
	productSyncs []queue.ProductSyncPayload
}

func (d *recordingDispatcher) Enabled() bool { return d.enabled }

func (d *recordingDispatcher) EnqueueOrderTimeoutCancel(payload queue.OrderTimeoutCancelPayload, _ time.Duration) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.timeouts = append(d.timeouts, payload)
	return nil
}

func (d *recordingDispatcher) EnqueueOrderRefund(payload queue.OrderRefundPayload) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.refunds = append(d.refunds, payload)
	return nil
}

func (d *recordingDispatcher) EnqueueInstallmentRefund(payload queue.InstallmentRefundPayload) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.instRefunds = append(d.instRefunds, payload)
	return nil
}

func (d *recordingDispatcher) EnqueueCrowdfundingRecompute(payload queue.CrowdfundingRecomputePayload) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.recomputes = append(d.recomputes, payload)
	return nil
}

func (d *recordingDispatcher) EnqueueNotification(payload queue.NotificationPayload) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.notices = append(d.notices, payload)
	return nil
}

func (d *recordingDispatcher) EnqueueProductSync(payload queue.ProductSyncPayload) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.productSyncs = append(d.productSyncs, payload)
	return nil
}
