package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/mall-next/internal/authz"
	"github.com/mall-next/internal/config"
	"github.com/mall-next/internal/constants"
	"github.com/mall-next/internal/logger"
	"github.com/mall-next/internal/models"
	"github.com/mall-next/internal/service"

	"gorm.io/gorm"
)

type seedSKU struct {
	title string
	price string
	stock int
}

type seedProduct struct {
	title       string
	productType string
	category    string
	skus        []seedSKU
	// 众筹目标金额，仅众筹商品使用
	target string
}

func main() {
	// 连接数据库
	cfg := config.Load()
	logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	stdLog := logger.StdLogger()
	if err := models.InitDB(cfg.Database, cfg.Server.Mode != "release"); err != nil {
		stdLog.Fatalf("Failed to connect database: %v", err)
	}

	// 自动迁移
	if err := models.AutoMigrate(); err != nil {
		stdLog.Fatalf("Failed to migrate database: %v", err)
	}

	// 类目：两级，叶子类目挂商品
	categoryIDs := map[string]uint{}
	root, err := ensureCategory("数码", nil)
	if err != nil {
		stdLog.Fatalf("Failed to create category: %v", err)
	}
	for _, name := range []string{"耳机", "配件"} {
		child, err := ensureCategory(name, root)
		if err != nil {
			stdLog.Fatalf("Failed to create category %s: %v", name, err)
		}
		categoryIDs[name] = child.ID
	}

	now := time.Now()
	products := []seedProduct{
		{
			title:       "无线蓝牙耳机",
			productType: constants.ProductTypeNormal,
			category:    "耳机",
			skus: []seedSKU{
				{title: "黑色", price: "299.00", stock: 100},
				{title: "白色", price: "319.00", stock: 80},
			},
		},
		{
			title:       "便携充电宝",
			productType: constants.ProductTypeNormal,
			category:    "配件",
			skus:        []seedSKU{{title: "10000mAh", price: "99.00", stock: 200}},
		},
		{
			title:       "降噪耳机众筹版",
			productType: constants.ProductTypeCrowdfunding,
			category:    "耳机",
			skus:        []seedSKU{{title: "早鸟档", price: "599.00", stock: 500}},
			target:      "50000.00",
		},
		{
			title:       "限时秒杀数据线",
			productType: constants.ProductTypeSeckill,
			category:    "配件",
			skus:        []seedSKU{{title: "1 米", price: "9.90", stock: 50}},
		},
	}
	for _, item := range products {
		product, created, err := ensureProduct(item, categoryIDs[item.category], now)
		if err != nil {
			stdLog.Printf("Failed to create product %s: %v", item.title, err)
			continue
		}
		if created {
			stdLog.Printf("Created product: %s (id=%d)", product.Title, product.ID)
		} else {
			stdLog.Printf("Product already exists: %s", product.Title)
		}
	}

	// 优惠券
	coupon := models.Coupon{
		Name:      "满 200 减 20",
		Code:      "WELCOME20",
		Type:      constants.CouponTypeFixed,
		Value:     models.MustMoney("20.00"),
		MinAmount: models.MustMoney("200.00"),
		Total:     1000,
		Enabled:   true,
	}
	if err := models.DB.Where("code = ?", coupon.Code).FirstOrCreate(&coupon).Error; err != nil {
		stdLog.Printf("Failed to create coupon: %v", err)
	}

	// 演示用户与收货地址
	user := models.User{Email: "demo@example.com", Name: "演示用户", Status: constants.UserStatusActive}
	if err := models.DB.Where("email = ?", user.Email).FirstOrCreate(&user).Error; err != nil {
		stdLog.Fatalf("Failed to create user: %v", err)
	}
	address := models.UserAddress{
		UserID:       user.ID,
		Province:     "浙江省",
		City:         "杭州市",
		District:     "西湖区",
		Address:      "文三路 100 号",
		Zip:          "310000",
		ContactName:  "演示用户",
		ContactPhone: "13800000000",
	}
	if err := models.DB.Where("user_id = ?", user.ID).FirstOrCreate(&address).Error; err != nil {
		stdLog.Printf("Failed to create address: %v", err)
	}

	// 后台操作员：一个超级管理员，一个履约角色
	authzService, err := authz.NewService(models.DB)
	if err != nil {
		stdLog.Fatalf("Failed to init authz: %v", err)
	}
	if err := authzService.BootstrapBuiltinRoles(); err != nil {
		stdLog.Fatalf("Failed to bootstrap roles: %v", err)
	}
	operators := []models.Operator{
		{Username: "admin", IsSuper: true},
		{Username: "warehouse"},
	}
	for i := range operators {
		if err := models.DB.Where("username = ?", operators[i].Username).FirstOrCreate(&operators[i]).Error; err != nil {
			stdLog.Fatalf("Failed to create operator %s: %v", operators[i].Username, err)
		}
	}
	if err := authzService.SetOperatorRoles(operators[1].ID, []string{"fulfillment"}); err != nil {
		stdLog.Printf("Failed to assign operator role: %v", err)
	}

	// 开发环境令牌（生产环境令牌由外部认证服务签发）
	if cfg.Server.Mode != "release" {
		auth := service.NewAuthService(cfg.JWT, cfg.UserJWT)
		if token, expiresAt, err := auth.GenerateUserJWT(&user); err == nil {
			fmt.Printf("user token (expires %s):\n%s\n", expiresAt.Format(time.RFC3339), token)
		}
		for i := range operators {
			if token, expiresAt, err := auth.GenerateOperatorJWT(&operators[i]); err == nil {
				fmt.Printf("operator %s token (expires %s):\n%s\n", operators[i].Username, expiresAt.Format(time.RFC3339), token)
			}
		}
	}

	stdLog.Printf("Seed data created successfully!")
}

func ensureCategory(name string, parent *models.Category) (*models.Category, error) {
	var existing models.Category
	query := models.DB.Where("name = ?", name)
	if parent == nil {
		query = query.Where("parent_id IS NULL")
	} else {
		query = query.Where("parent_id = ?", parent.ID)
	}
	err := query.First(&existing).Error
	if err == nil {
		return &existing, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	category := models.Category{Name: name, Path: "-"}
	if parent != nil {
		category.ParentID = &parent.ID
		category.Level = parent.Level + 1
		category.Path = fmt.Sprintf("%s%d-", parent.Path, parent.ID)
		if !parent.IsDir {
			if err := models.DB.Model(parent).Update("is_dir", true).Error; err != nil {
				return nil, err
			}
			parent.IsDir = true
		}
	}
	if err := models.DB.Create(&category).Error; err != nil {
		return nil, err
	}
	return &category, nil
}

func ensureProduct(item seedProduct, categoryID uint, now time.Time) (*models.Product, bool, error) {
	var existing models.Product
	err := models.DB.Where("title = ?", item.title).First(&existing).Error
	if err == nil {
		return &existing, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, err
	}

	product := models.Product{
		Type:   item.productType,
		Title:  item.title,
		OnSale: true,
	}
	if categoryID != 0 {
		product.CategoryID = &categoryID
	}
	err = models.DB.Transaction(func(tx *gorm.DB) error {
		lowest := models.MustMoney(item.skus[0].price)
		for _, sku := range item.skus {
			price := models.MustMoney(sku.price)
			if price.Decimal.LessThan(lowest.Decimal) {
				lowest = price
			}
		}
		product.Price = lowest
		if err := tx.Create(&product).Error; err != nil {
			return err
		}
		for _, sku := range item.skus {
			row := models.ProductSKU{
				ProductID: product.ID,
				Title:     sku.title,
				Price:     models.MustMoney(sku.price),
				Stock:     sku.stock,
			}
			if err := tx.Create(&row).Error; err != nil {
				return err
			}
		}
		switch item.productType {
		case constants.ProductTypeCrowdfunding:
			return tx.Create(&models.CrowdfundingProduct{
				ProductID:    product.ID,
				TargetAmount: models.MustMoney(item.target),
				TotalAmount:  models.ZeroMoney(),
				EndAt:        now.Add(30 * 24 * time.Hour),
				Status:       constants.CrowdfundingStatusFunding,
			}).Error
		case constants.ProductTypeSeckill:
			return tx.Create(&models.SeckillProduct{
				ProductID: product.ID,
				StartAt:   now.Add(time.Hour),
				EndAt:     now.Add(2 * time.Hour),
			}).Error
		}
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return &product, true, nil
}
