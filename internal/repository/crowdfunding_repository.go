package repository

import (
	"errors"
	"time"

	"github.com/mall-next/internal/constants"
	"github.com/mall-next/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// CrowdfundingProgress 众筹聚合结果
type CrowdfundingProgress struct {
	TotalAmount decimal.Decimal
	UserCount   int64
}

// CrowdfundingRepository 众筹活动数据访问接口
type CrowdfundingRepository interface {
	GetByProductID(productID uint) (*models.CrowdfundingProduct, error)
	LockByProductID(productID uint) (*models.CrowdfundingProduct, error)
	AggregatePaid(productID uint) (CrowdfundingProgress, error)
	UpdateProgress(id uint, progress CrowdfundingProgress) error
	ListDue(now time.Time, limit int) ([]models.CrowdfundingProduct, error)
	FinishIfFunding(id uint, status string) (bool, error)
	WithTx(tx *gorm.DB) *GormCrowdfundingRepository
}

// GormCrowdfundingRepository GORM 实现
type GormCrowdfundingRepository struct {
	db *gorm.DB
}

// NewCrowdfundingRepository 创建众筹仓库
func NewCrowdfundingRepository(db *gorm.DB) *GormCrowdfundingRepository {
	return &GormCrowdfundingRepository{db: db}
}

// WithTx 绑定事务
func (r *GormCrowdfundingRepository) WithTx(tx *gorm.DB) *GormCrowdfundingRepository {
	if tx == nil {
		return r
	}
	return &GormCrowdfundingRepository{db: tx}
}

// GetByProductID 根据商品获取众筹活动
func (r *GormCrowdfundingRepository) GetByProductID(productID uint) (*models.CrowdfundingProduct, error) {
	var campaign models.CrowdfundingProduct
	if err := r.db.Where("product_id = ?", productID).First(&campaign).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &campaign, nil
}

// LockByProductID 在事务内锁定众筹活动行
func (r *GormCrowdfundingRepository) LockByProductID(productID uint) (*models.CrowdfundingProduct, error) {
	var campaign models.CrowdfundingProduct
	if err := lockForUpdate(r.db).Where("product_id = ?", productID).First(&campaign).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &campaign, nil
}

// AggregatePaid 根据已支付的众筹订单重算筹款总额与参与人数
func (r *GormCrowdfundingRepository) AggregatePaid(productID uint) (CrowdfundingProgress, error) {
	var row struct {
		Total decimal.NullDecimal
		Users int64
	}
	err := r.db.Table("order_items").
		Select("SUM(order_items.amount * order_items.price) AS total, COUNT(DISTINCT orders.user_id) AS users").
		Joins("JOIN orders ON orders.id = order_items.order_id").
		Where("order_items.product_id = ?", productID).
		Where("orders.type = ? AND orders.paid_at IS NOT NULL AND orders.deleted_at IS NULL", constants.OrderTypeCrowdfunding).
		Scan(&row).Error
	if err != nil {
		return CrowdfundingProgress{}, err
	}
	total := decimal.Zero
	if row.Total.Valid {
		total = row.Total.Decimal.Round(2)
	}
	return CrowdfundingProgress{TotalAmount: total, UserCount: row.Users}, nil
}

// UpdateProgress 写入重算后的聚合值
func (r *GormCrowdfundingRepository) UpdateProgress(id uint, progress CrowdfundingProgress) error {
	return r.db.Model(&models.CrowdfundingProduct{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"total_amount": models.NewMoneyFromDecimal(progress.TotalAmount),
			"user_count":   progress.UserCount,
		}).Error
}

// ListDue 获取已到截止时间但仍在众筹中的活动
func (r *GormCrowdfundingRepository) ListDue(now time.Time, limit int) ([]models.CrowdfundingProduct, error) {
	query := r.db.Where("status = ? AND end_at <= ?", constants.CrowdfundingStatusFunding, now).Order("end_at ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	var campaigns []models.CrowdfundingProduct
	if err := query.Find(&campaigns).Error; err != nil {
		return nil, err
	}
	return campaigns, nil
}

// FinishIfFunding 仅当活动仍为 funding 时写入最终状态，返回是否命中
func (r *GormCrowdfundingRepository) FinishIfFunding(id uint, status string) (bool, error) {
	result := r.db.Model(&models.CrowdfundingProduct{}).
		Where("id = ? AND status = ?", id, constants.CrowdfundingStatusFunding).
		Update("status", status)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}
