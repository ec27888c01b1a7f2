package repository

import (
	"errors"

	"github.com/mall-next/internal/models"

	"gorm.io/gorm"
)

// ErrStockNotEnough 条件扣减未命中（库存不足或 SKU 不存在）
var ErrStockNotEnough = errors.New("sku stock not enough")

// ErrInvalidStockAmount 库存变更数量非法
var ErrInvalidStockAmount = errors.New("stock amount must be positive")

// ProductSKURepository 商品 SKU 数据访问接口
type ProductSKURepository interface {
	GetByID(id uint) (*models.ProductSKU, error)
	ListByIDs(ids []uint) ([]models.ProductSKU, error)
	DecreaseStock(skuID uint, amount int) error
	IncreaseStock(skuID uint, amount int) error
	WithTx(tx *gorm.DB) *GormProductSKURepository
}

// GormProductSKURepository GORM 实现
type GormProductSKURepository struct {
	db *gorm.DB
}

// NewProductSKURepository 创建 SKU 仓库
func NewProductSKURepository(db *gorm.DB) *GormProductSKURepository {
	return &GormProductSKURepository{db: db}
}

// WithTx 绑定事务
func (r *GormProductSKURepository) WithTx(tx *gorm.DB) *GormProductSKURepository {
	if tx == nil {
		return r
	}
	return &GormProductSKURepository{db: tx}
}

// GetByID 根据 ID 获取 SKU（含所属商品及扩展）
func (r *GormProductSKURepository) GetByID(id uint) (*models.ProductSKU, error) {
	if id == 0 {
		return nil, nil
	}
	var item models.ProductSKU
	err := r.db.Preload("Product").Preload("Product.Crowdfunding").Preload("Product.Seckill").First(&item, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &item, nil
}

// ListByIDs 批量获取 SKU（含所属商品）
func (r *GormProductSKURepository) ListByIDs(ids []uint) ([]models.ProductSKU, error) {
	if len(ids) == 0 {
		return []models.ProductSKU{}, nil
	}
	var items []models.ProductSKU
	if err := r.db.Preload("Product").Where("id IN ?", ids).Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// DecreaseStock 条件扣减库存：stock >= amount 时才扣减，未命中返回 ErrStockNotEnough
func (r *GormProductSKURepository) DecreaseStock(skuID uint, amount int) error {
	if skuID == 0 || amount <= 0 {
		return ErrInvalidStockAmount
	}
	result := r.db.Model(&models.ProductSKU{}).
		Where("id = ? AND stock >= ?", skuID, amount).
		UpdateColumn("stock", gorm.Expr("stock - ?", amount))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrStockNotEnough
	}
	return nil
}

// IncreaseStock 回补库存（订单关闭或下单失败的补偿动作）
func (r *GormProductSKURepository) IncreaseStock(skuID uint, amount int) error {
	if skuID == 0 || amount <= 0 {
		return ErrInvalidStockAmount
	}
	return r.db.Model(&models.ProductSKU{}).
		Where("id = ?", skuID).
		UpdateColumn("stock", gorm.Expr("stock + ?", amount)).Error
}
