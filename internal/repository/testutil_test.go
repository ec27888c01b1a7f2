package repository

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/mall-next/internal/constants"
	"github.com/mall-next/internal/models"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

func openRepositoryTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
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
	t.Cleanup(func() {
		_ = sqlDB.Close()
	})
	return db
}

func seedProductWithSKU(t *testing.T, db *gorm.DB, productType string, price string, stock int) (*models.Product, *models.ProductSKU) {
	t.Helper()
	product := &models.Product{
		Type:   productType,
		Title:  "测试商品",
		OnSale: true,
		Price:  models.NewMoneyFromDecimal(decimal.RequireFromString(price)),
	}
	if err := db.Create(product).Error; err != nil {
		t.Fatalf("create product failed: %v", err)
	}
	sku := &models.ProductSKU{
		ProductID: product.ID,
		Title:     "默认规格",
		Price:     models.NewMoneyFromDecimal(decimal.RequireFromString(price)),
		Stock:     stock,
	}
	if err := db.Create(sku).Error; err != nil {
		t.Fatalf("create sku failed: %v", err)
	}
	return product, sku
}

func seedOrder(t *testing.T, db *gorm.DB, userID uint, orderType string, sku *models.ProductSKU, amount int, paid bool) *models.Order {
	t.Helper()
	price := sku.Price.Decimal
	order := &models.Order{
		OrderNo:      fmt.Sprintf("T%d%d", time.Now().UnixNano(), userID),
		UserID:       userID,
		Type:         orderType,
		TotalAmount:  models.NewMoneyFromDecimal(price.Mul(decimal.NewFromInt(int64(amount)))),
		RefundStatus: constants.RefundStatusPending,
		ShipStatus:   constants.ShipStatusPending,
	}
	if paid {
		now := time.Now()
		order.PaidAt = &now
		order.PaymentMethod = constants.PaymentMethodAlipay
	}
	items := []models.OrderItem{{
		ProductID:    sku.ProductID,
		ProductSKUID: sku.ID,
		Amount:       amount,
		Price:        sku.Price,
	}}
	if err := NewOrderRepository(db).Create(order, items); err != nil {
		t.Fatalf("create order failed: %v", err)
	}
	return order
}
