package models

import (
	"time"

	"github.com/mall-next/internal/constants"
	"gorm.io/gorm"
)

// Order 订单表
type Order struct {
	ID            uint           `gorm:"primarykey" json:"id"`                                                   // 主键
	OrderNo       string         `gorm:"uniqueIndex;not null" json:"order_no"`                                   // 订单号
	UserID        uint           `gorm:"index;not null" json:"user_id"`                                          // 用户ID
	Type          string         `gorm:"type:varchar(20);not null;default:'normal';index" json:"type"`           // 订单类型
	Address       JSON           `gorm:"type:json" json:"address"`                                               // 收货地址快照
	TotalAmount   Money          `gorm:"type:decimal(20,2);not null" json:"total_amount"`                        // 订单总额
	Remark        string         `gorm:"type:text" json:"remark"`                                                // 备注
	PaidAt        *time.Time     `gorm:"index" json:"paid_at"`                                                   // 支付时间
	Closed        bool           `gorm:"not null;default:false;index" json:"closed"`                             // 是否已关闭
	PaymentMethod string         `gorm:"type:varchar(20)" json:"payment_method"`                                 // 支付方式
	PaymentNo     string         `gorm:"type:varchar(128)" json:"payment_no"`                                    // 支付流水号
	RefundStatus  string         `gorm:"type:varchar(20);not null;default:'pending';index" json:"refund_status"` // 退款状态
	RefundNo      *string        `gorm:"uniqueIndex" json:"refund_no"`                                           // 退款单号
	ShipStatus    string         `gorm:"type:varchar(20);not null;default:'pending'" json:"ship_status"`         // 物流状态
	ShipData      JSON           `gorm:"type:json" json:"ship_data"`                                             // 物流信息
	Extra         JSON           `gorm:"type:json" json:"extra"`                                                 // 扩展信息（退款理由、失败码等）
	Reviewed      bool           `gorm:"not null;default:false" json:"reviewed"`                                 // 是否已评价
	CouponID      *uint          `gorm:"index" json:"coupon_id"`                                                 // 优惠券ID
	ExpiresAt     *time.Time     `gorm:"index" json:"expires_at"`                                                // 超时关闭时间
	CreatedAt     time.Time      `gorm:"index" json:"created_at"`                                                // 创建时间
	UpdatedAt     time.Time      `gorm:"index" json:"updated_at"`                                                // 更新时间
	DeletedAt     gorm.DeletedAt `gorm:"index" json:"-"`                                                         // 软删除时间

	Items       []OrderItem  `gorm:"foreignKey:OrderID" json:"items,omitempty"`       // 订单项
	Installment *Installment `gorm:"foreignKey:OrderID" json:"installment,omitempty"` // 分期计划
	Coupon      *Coupon      `gorm:"foreignKey:CouponID" json:"coupon,omitempty"`     // 优惠券
}

// TableName 指定表名
func (Order) TableName() string {
	return "orders"
}

// IsPaid 是否已支付
func (o Order) IsPaid() bool {
	return o.PaidAt != nil
}

// RefundNoValue 退款单号（未生成时为空）
func (o Order) RefundNoValue() string {
	if o.RefundNo == nil {
		return ""
	}
	return *o.RefundNo
}

// IsRefundable 用户是否可以申请退款
func (o Order) IsRefundable() bool {
	return o.IsPaid() &&
		o.Type != constants.OrderTypeCrowdfunding &&
		o.RefundStatus == constants.RefundStatusPending
}

// OrderItem 订单项
type OrderItem struct {
	ID           uint       `gorm:"primarykey" json:"id"`                                       // 主键
	OrderID      uint       `gorm:"index;not null" json:"order_id"`                             // 订单ID
	ProductID    uint       `gorm:"index;not null" json:"product_id"`                           // 商品ID
	ProductSKUID uint       `gorm:"column:product_sku_id;index;not null" json:"product_sku_id"` // SKU ID
	Amount       int        `gorm:"not null" json:"amount"`                                     // 购买数量
	Price        Money      `gorm:"type:decimal(20,2);not null" json:"price"`                   // 下单时单价
	Rating       *int       `json:"rating"`                                                     // 评分
	Review       string     `gorm:"type:text" json:"review"`                                    // 评价内容
	ReviewedAt   *time.Time `json:"reviewed_at"`                                                // 评价时间
	CreatedAt    time.Time  `gorm:"index" json:"created_at"`                                    // 创建时间
	UpdatedAt    time.Time  `json:"updated_at"`                                                 // 更新时间

	Product    *Product    `gorm:"foreignKey:ProductID" json:"product,omitempty"`
	ProductSKU *ProductSKU `gorm:"foreignKey:ProductSKUID" json:"product_sku,omitempty"`
}

// TableName 指定表名
func (OrderItem) TableName() string {
	return "order_items"
}

// SeckillParticipation 秒杀参与记录，(product_id, user_id) 唯一，订单超时关闭时删除
type SeckillParticipation struct {
	ID        uint      `gorm:"primarykey" json:"id"`                                                          // 主键
	ProductID uint      `gorm:"not null;uniqueIndex:idx_seckill_participation_product_user" json:"product_id"` // 秒杀商品ID
	UserID    uint      `gorm:"not null;uniqueIndex:idx_seckill_participation_product_user" json:"user_id"`    // 用户ID
	OrderID   uint      `gorm:"index;not null" json:"order_id"`                                                // 占位订单ID
	CreatedAt time.Time `json:"created_at"`                                                                    // 创建时间
}

// TableName 指定表名
func (SeckillParticipation) TableName() string {
	return "seckill_participations"
}
