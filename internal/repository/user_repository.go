package repository

import (
	"errors"
	"time"

	"github.com/mall-next/internal/models"

	"gorm.io/gorm"
)

// UserRepository 用户数据访问接口
type UserRepository interface {
	GetByID(id uint) (*models.User, error)
	GetAddressByIDAndUser(id, userID uint) (*models.UserAddress, error)
	TouchAddress(id uint, at time.Time) error
	GetOperatorByID(id uint) (*models.Operator, error)
	WithTx(tx *gorm.DB) *GormUserRepository
}

// GormUserRepository GORM 实现
type GormUserRepository struct {
	db *gorm.DB
}

// NewUserRepository 创建用户仓库
func NewUserRepository(db *gorm.DB) *GormUserRepository {
	return &GormUserRepository{db: db}
}

// WithTx 绑定事务
func (r *GormUserRepository) WithTx(tx *gorm.DB) *GormUserRepository {
	if tx == nil {
		return r
	}
	return &GormUserRepository{db: tx}
}

// GetByID 根据 ID 获取用户
func (r *GormUserRepository) GetByID(id uint) (*models.User, error) {
	var user models.User
	if err := r.db.First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}

// GetAddressByIDAndUser 获取用户的收货地址
func (r *GormUserRepository) GetAddressByIDAndUser(id, userID uint) (*models.UserAddress, error) {
	var address models.UserAddress
	if err := r.db.Where("id = ? AND user_id = ?", id, userID).First(&address).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &address, nil
}

// TouchAddress 更新地址最近使用时间
func (r *GormUserRepository) TouchAddress(id uint, at time.Time) error {
	return r.db.Model(&models.UserAddress{}).Where("id = ?", id).Update("last_used_at", at).Error
}

// GetOperatorByID 根据 ID 获取运营账号
func (r *GormUserRepository) GetOperatorByID(id uint) (*models.Operator, error) {
	var operator models.Operator
	if err := r.db.First(&operator, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &operator, nil
}
