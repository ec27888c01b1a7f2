package models

import (
	"time"

	"github.com/mall-next/internal/constants"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Coupon 优惠券
type Coupon struct {
	ID        uint           `gorm:"primarykey" json:"id"`                                    // 主键
	Name      string         `gorm:"type:varchar(128);not null" json:"name"`                  // 名称
	Code      string         `gorm:"uniqueIndex;not null" json:"code"`                        // 优惠码
	Type      string         `gorm:"not null" json:"type"`                                    // 类型（fixed/percent）
	Value     Money          `gorm:"type:decimal(20,2);not null" json:"value"`                // 数值（固定金额或折扣百分比）
	MinAmount Money          `gorm:"type:decimal(20,2);not null;default:0" json:"min_amount"` // 使用门槛
	Total     int            `gorm:"not null;default:0" json:"total"`                         // 发放总量
	Used      int            `gorm:"not null;default:0" json:"used"`                          // 已使用数量
	NotBefore *time.Time     `json:"not_before"`                                              // 生效时间
	NotAfter  *time.Time     `json:"not_after"`                                               // 失效时间
	Enabled   bool           `gorm:"not null;default:true" json:"enabled"`                    // 是否启用
	CreatedAt time.Time      `gorm:"index" json:"created_at"`                                 // 创建时间
	UpdatedAt time.Time      `gorm:"index" json:"updated_at"`                                 // 更新时间
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`                                          // 软删除时间
}

// TableName 指定表名
func (Coupon) TableName() string {
	return "coupons"
}

// AdjustedPrice 计算使用优惠券后的金额，最低 0.01
func (c Coupon) AdjustedPrice(total decimal.Decimal) decimal.Decimal {
	var adjusted decimal.Decimal
	if c.Type == constants.CouponTypeFixed {
		adjusted = total.Sub(c.Value.Decimal)
	} else {
		adjusted = total.Mul(hundred.Sub(c.Value.Decimal)).Div(hundred).Round(2)
	}
	floor := decimal.New(1, -2)
	if adjusted.LessThan(floor) {
		return floor
	}
	return adjusted
}
