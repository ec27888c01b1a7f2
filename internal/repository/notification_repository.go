package repository

import (
	"github.com/mall-next/internal/models"

	"gorm.io/gorm"
)

// NotificationRepository 通知记录数据访问接口
type NotificationRepository interface {
	Create(record *models.NotificationRecord) error
	ListByUser(userID uint, page, pageSize int) ([]models.NotificationRecord, int64, error)
}

// GormNotificationRepository GORM 实现
type GormNotificationRepository struct {
	db *gorm.DB
}

// NewNotificationRepository 创建通知记录仓库
func NewNotificationRepository(db *gorm.DB) *GormNotificationRepository {
	return &GormNotificationRepository{db: db}
}

// Create 写入通知记录
func (r *GormNotificationRepository) Create(record *models.NotificationRecord) error {
	return r.db.Create(record).Error
}

// ListByUser 用户通知记录
func (r *GormNotificationRepository) ListByUser(userID uint, page, pageSize int) ([]models.NotificationRecord, int64, error) {
	query := r.db.Model(&models.NotificationRecord{}).Where("user_id = ?", userID)
	return listPage[models.NotificationRecord](query, page, pageSize, nil)
}
