package models

import (
	"time"

	"gorm.io/gorm"
)

// User 用户表（仅保留下单与通知所需字段，注册登录由外部系统负责）
type User struct {
	ID              uint           `gorm:"primarykey" json:"id"`              // 主键
	Email           string         `gorm:"uniqueIndex;not null" json:"email"` // 邮箱
	Name            string         `gorm:"default:''" json:"name"`            // 昵称
	Status          string         `gorm:"default:'active'" json:"status"`    // 账号状态
	EmailVerifiedAt *time.Time     `json:"email_verified_at"`                 // 邮箱验证时间
	TokenVersion    uint64         `gorm:"not null;default:0" json:"-"`       // 令牌版本（递增即吊销旧令牌）
	CreatedAt       time.Time      `gorm:"index" json:"created_at"`           // 创建时间
	UpdatedAt       time.Time      `gorm:"index" json:"updated_at"`           // 更新时间
	DeletedAt       gorm.DeletedAt `gorm:"index" json:"-"`                    // 软删除时间
}

// TableName 指定表名
func (User) TableName() string {
	return "users"
}

// UserAddress 用户收货地址
type UserAddress struct {
	ID           uint       `gorm:"primarykey" json:"id"`
	UserID       uint       `gorm:"index;not null" json:"user_id"`
	Province     string     `gorm:"type:varchar(64)" json:"province"`
	City         string     `gorm:"type:varchar(64)" json:"city"`
	District     string     `gorm:"type:varchar(64)" json:"district"`
	Address      string     `gorm:"type:varchar(255)" json:"address"`
	Zip          string     `gorm:"type:varchar(16)" json:"zip"`
	ContactName  string     `gorm:"type:varchar(64)" json:"contact_name"`
	ContactPhone string     `gorm:"type:varchar(32)" json:"contact_phone"`
	LastUsedAt   *time.Time `json:"last_used_at"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// TableName 指定表名
func (UserAddress) TableName() string {
	return "user_addresses"
}

// FullAddress 拼接完整地址
func (a UserAddress) FullAddress() string {
	return a.Province + a.City + a.District + a.Address
}

// Snapshot 生成写入订单的地址快照
func (a UserAddress) Snapshot() JSON {
	return JSON{
		"address":       a.FullAddress(),
		"zip":           a.Zip,
		"contact_name":  a.ContactName,
		"contact_phone": a.ContactPhone,
	}
}

// Operator 运营账号（仅用于鉴权主体）
type Operator struct {
	ID           uint      `gorm:"primarykey" json:"id"`
	Username     string    `gorm:"uniqueIndex;not null" json:"username"`
	IsSuper      bool      `gorm:"not null;default:false" json:"is_super"`
	TokenVersion uint64    `gorm:"not null;default:0" json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// TableName 指定表名
func (Operator) TableName() string {
	return "operators"
}
