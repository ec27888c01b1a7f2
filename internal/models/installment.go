package models

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Installment 分期计划
type Installment struct {
	ID         uint            `gorm:"primarykey" json:"id"`                                            // 主键
	No         string          `gorm:"uniqueIndex;not null" json:"no"`                                  // 分期流水号
	UserID     uint            `gorm:"index;not null" json:"user_id"`                                   // 用户ID
	OrderID    uint            `gorm:"uniqueIndex;not null" json:"order_id"`                            // 订单ID
	BaseAmount Money           `gorm:"type:decimal(20,2);not null" json:"base_amount"`                  // 本金（下单时订单总额快照）
	Count      int             `gorm:"not null" json:"count"`                                           // 期数
	FeeRate    decimal.Decimal `gorm:"type:decimal(10,4);not null" json:"fee_rate"`                     // 手续费率（百分比）
	FineRate   decimal.Decimal `gorm:"type:decimal(10,4);not null" json:"fine_rate"`                    // 日逾期费率（百分比）
	Status     string          `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"` // 状态
	CreatedAt  time.Time       `gorm:"index" json:"created_at"`                                         // 创建时间
	UpdatedAt  time.Time       `json:"updated_at"`                                                      // 更新时间

	Order *Order            `gorm:"foreignKey:OrderID" json:"order,omitempty"`
	Items []InstallmentItem `gorm:"foreignKey:InstallmentID;constraint:OnDelete:CASCADE" json:"items,omitempty"`
}

// TableName 指定表名
func (Installment) TableName() string {
	return "installments"
}

// InstallmentItem 分期还款计划中的一期
type InstallmentItem struct {
	ID               uint       `gorm:"primarykey" json:"id"`                                                   // 主键
	InstallmentID    uint       `gorm:"not null;uniqueIndex:idx_installment_seq" json:"installment_id"`         // 分期ID
	Sequence         int        `gorm:"not null;uniqueIndex:idx_installment_seq" json:"sequence"`               // 期序号（从 1 开始）
	BaseAmount       Money      `gorm:"type:decimal(20,2);not null" json:"base_amount"`                         // 本金
	Fee              Money      `gorm:"type:decimal(20,2);not null" json:"fee"`                                 // 手续费
	Fine             *Money     `gorm:"type:decimal(20,2)" json:"fine"`                                         // 逾期费
	DueDate          time.Time  `gorm:"index;not null" json:"due_date"`                                         // 到期日
	PaidAt           *time.Time `json:"paid_at"`                                                                // 支付时间
	PaymentMethod    string     `gorm:"type:varchar(20)" json:"payment_method"`                                 // 支付方式
	PaymentNo        string     `gorm:"type:varchar(128)" json:"payment_no"`                                    // 支付流水号
	RefundStatus     string     `gorm:"type:varchar(20);not null;default:'pending';index" json:"refund_status"` // 退款状态
	RefundFailedCode string     `gorm:"type:varchar(64)" json:"refund_failed_code"`                             // 退款失败码
	CreatedAt        time.Time  `json:"created_at"`                                                             // 创建时间
	UpdatedAt        time.Time  `json:"updated_at"`                                                             // 更新时间
}

// TableName 指定表名
func (InstallmentItem) TableName() string {
	return "installment_items"
}

// FineAmount 逾期费（未计算时为 0）
func (i InstallmentItem) FineAmount() decimal.Decimal {
	if i.Fine == nil {
		return decimal.Zero
	}
	return i.Fine.Decimal
}

// Principal 本金与手续费之和，逾期费以此为基数
func (i InstallmentItem) Principal() decimal.Decimal {
	return i.BaseAmount.Decimal.Add(i.Fee.Decimal)
}

// TotalAmount 当期应还总额：本金 + 手续费 + 逾期费
func (i InstallmentItem) TotalAmount() decimal.Decimal {
	return i.Principal().Add(i.FineAmount())
}

// IsPaid 是否已还款
func (i InstallmentItem) IsPaid() bool {
	return i.PaidAt != nil
}

// IsOverdue 是否已逾期
func (i InstallmentItem) IsOverdue(now time.Time) bool {
	return !i.IsPaid() && now.After(i.DueDate)
}

// ItemNo 发往支付网关的商户订单号
func (i InstallmentItem) ItemNo(installmentNo string) string {
	return fmt.Sprintf("%s_%d", installmentNo, i.Sequence)
}

// RefundNo 发往支付网关的退款单号
func (i InstallmentItem) RefundNo(orderRefundNo string) string {
	return fmt.Sprintf("%s_%d", orderRefundNo, i.Sequence)
}
