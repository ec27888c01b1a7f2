package models

import "time"

// NotificationRecord 通知触发记录（投递由外部系统负责）
type NotificationRecord struct {
	ID        uint      `gorm:"primarykey" json:"id"`                        // 主键
	UserID    uint      `gorm:"index;not null" json:"user_id"`               // 用户ID
	Kind      string    `gorm:"type:varchar(64);not null;index" json:"kind"` // 通知类型
	Payload   JSON      `gorm:"type:json" json:"payload"`                    // 通知内容
	CreatedAt time.Time `gorm:"index" json:"created_at"`                     // 创建时间
}

// TableName 指定表名
func (NotificationRecord) TableName() string {
	return "notification_records"
}
