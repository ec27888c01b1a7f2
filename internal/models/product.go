package models

import (
	"time"

	"github.com/mall-next/internal/constants"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Product 商品表
type Product struct {
	ID          uint           `gorm:"primarykey" json:"id"`                                         // 主键
	Type        string         `gorm:"type:varchar(20);not null;default:'normal';index" json:"type"` // 商品类型
	CategoryID  *uint          `gorm:"index" json:"category_id"`                                     // 类目ID
	Title       string         `gorm:"type:varchar(255);not null" json:"title"`                      // 标题
	LongTitle   string         `gorm:"type:varchar(255)" json:"long_title"`                          // 长标题
	Description string         `gorm:"type:text" json:"description"`                                 // 描述
	Image       string         `gorm:"type:varchar(500)" json:"image"`                               // 主图
	OnSale      bool           `gorm:"not null;default:true;index" json:"on_sale"`                   // 是否上架
	Rating      float64        `gorm:"not null;default:5" json:"rating"`                             // 评分
	SoldCount   int            `gorm:"not null;default:0" json:"sold_count"`                         // 销量
	ReviewCount int            `gorm:"not null;default:0" json:"review_count"`                       // 评价数
	Price       Money          `gorm:"type:decimal(20,2);not null;default:0" json:"price"`           // 最低 SKU 价格
	CreatedAt   time.Time      `gorm:"index" json:"created_at"`                                      // 创建时间
	UpdatedAt   time.Time      `json:"updated_at"`                                                   // 更新时间
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`                                               // 软删除时间

	// 关联
	Category     *Category            `gorm:"foreignKey:CategoryID" json:"category,omitempty"`
	SKUs         []ProductSKU         `gorm:"foreignKey:ProductID" json:"skus,omitempty"`
	Properties   []ProductProperty    `gorm:"foreignKey:ProductID" json:"properties,omitempty"`
	Crowdfunding *CrowdfundingProduct `gorm:"foreignKey:ProductID" json:"crowdfunding,omitempty"`
	Seckill      *SeckillProduct      `gorm:"foreignKey:ProductID" json:"seckill,omitempty"`
}

// TableName 指定表名
func (Product) TableName() string {
	return "products"
}

// ExtensionValid 校验商品类型与扩展记录是否一致
func (p Product) ExtensionValid() bool {
	switch p.Type {
	case constants.ProductTypeNormal:
		return p.Crowdfunding == nil && p.Seckill == nil
	case constants.ProductTypeCrowdfunding:
		return p.Crowdfunding != nil && p.Seckill == nil
	case constants.ProductTypeSeckill:
		return p.Seckill != nil && p.Crowdfunding == nil
	default:
		return false
	}
}

// ProductSKU 商品 SKU 表
type ProductSKU struct {
	ID          uint           `gorm:"primarykey" json:"id"`                               // 主键
	ProductID   uint           `gorm:"not null;index" json:"product_id"`                   // 商品ID
	Title       string         `gorm:"type:varchar(255);not null" json:"title"`            // 名称
	Description string         `gorm:"type:varchar(500)" json:"description"`               // 描述
	Price       Money          `gorm:"type:decimal(20,2);not null;default:0" json:"price"` // 价格
	Stock       int            `gorm:"not null;default:0" json:"stock"`                    // 库存（非负，仅允许条件更新）
	CreatedAt   time.Time      `gorm:"index" json:"created_at"`                            // 创建时间
	UpdatedAt   time.Time      `json:"updated_at"`                                         // 更新时间
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`                                     // 软删除时间

	Product *Product `gorm:"foreignKey:ProductID" json:"product,omitempty"` // 关联商品
}

// TableName 指定表名
func (ProductSKU) TableName() string {
	return "product_skus"
}

// ProductProperty 商品属性
type ProductProperty struct {
	ID        uint   `gorm:"primarykey" json:"id"`
	ProductID uint   `gorm:"not null;index" json:"product_id"`
	Name      string `gorm:"type:varchar(64);not null" json:"name"`
	Value     string `gorm:"type:varchar(255);not null" json:"value"`
}

// TableName 指定表名
func (ProductProperty) TableName() string {
	return "product_properties"
}

// CrowdfundingProduct 众筹活动
type CrowdfundingProduct struct {
	ID           uint      `gorm:"primarykey" json:"id"`                                            // 主键
	ProductID    uint      `gorm:"uniqueIndex;not null" json:"product_id"`                          // 商品ID
	TargetAmount Money     `gorm:"type:decimal(20,2);not null" json:"target_amount"`                // 目标金额
	TotalAmount  Money     `gorm:"type:decimal(20,2);not null;default:0" json:"total_amount"`       // 已筹金额（由已支付订单重算）
	UserCount    int       `gorm:"not null;default:0" json:"user_count"`                            // 参与人数（由已支付订单重算）
	EndAt        time.Time `gorm:"index;not null" json:"end_at"`                                    // 截止时间
	Status       string    `gorm:"type:varchar(20);not null;default:'funding';index" json:"status"` // 状态
	CreatedAt    time.Time `json:"created_at"`                                                      // 创建时间
	UpdatedAt    time.Time `json:"updated_at"`                                                      // 更新时间
}

// TableName 指定表名
func (CrowdfundingProduct) TableName() string {
	return "crowdfunding_products"
}

var hundred = decimal.NewFromInt(100)

// Percent 筹款进度百分比，超募时可超过 100
func (c CrowdfundingProduct) Percent() decimal.Decimal {
	target := c.TargetAmount.Decimal
	if target.LessThan(decimal.NewFromInt(1)) {
		target = decimal.NewFromInt(1)
	}
	return c.TotalAmount.Decimal.Mul(hundred).Div(target).Round(2)
}

// DisplayPercent 进度条展示用百分比，上限 100
func (c CrowdfundingProduct) DisplayPercent() decimal.Decimal {
	return decimal.Min(c.Percent(), hundred)
}

// StatusText 状态展示文案
func (c CrowdfundingProduct) StatusText() string {
	switch c.Status {
	case constants.CrowdfundingStatusFunding:
		return "众筹中"
	case constants.CrowdfundingStatusSuccess:
		return "众筹成功"
	case constants.CrowdfundingStatusFail:
		return "众筹失败"
	default:
		return c.Status
	}
}

// SeckillProduct 秒杀时间窗
type SeckillProduct struct {
	ID        uint      `gorm:"primarykey" json:"id"`                   // 主键
	ProductID uint      `gorm:"uniqueIndex;not null" json:"product_id"` // 商品ID
	StartAt   time.Time `gorm:"not null" json:"start_at"`               // 开始时间
	EndAt     time.Time `gorm:"not null" json:"end_at"`                 // 结束时间
	CreatedAt time.Time `json:"created_at"`                             // 创建时间
	UpdatedAt time.Time `json:"updated_at"`                             // 更新时间
}

// TableName 指定表名
func (SeckillProduct) TableName() string {
	return "seckill_products"
}

// IsBeforeStart 秒杀是否尚未开始
func (s SeckillProduct) IsBeforeStart(now time.Time) bool {
	return now.Before(s.StartAt)
}

// IsAfterEnd 秒杀是否已结束
func (s SeckillProduct) IsAfterEnd(now time.Time) bool {
	return !now.Before(s.EndAt)
}

// RemainingSeconds 距离结束的剩余秒数
func (s SeckillProduct) RemainingSeconds(now time.Time) int64 {
	if s.IsAfterEnd(now) {
		return 0
	}
	return int64(s.EndAt.Sub(now).Seconds())
}
