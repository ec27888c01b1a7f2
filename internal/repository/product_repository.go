package repository

import (
	"errors"
	"strings"

	"github.com/mall-next/internal/models"

	"gorm.io/gorm"
)

// ProductRepository 商品数据访问接口
type ProductRepository interface {
	GetByID(id uint) (*models.Product, error)
	GetDetailByID(id uint) (*models.Product, error)
	List(filter ProductListFilter) ([]models.Product, int64, error)
	ListCategoriesByIDs(ids []uint) ([]models.Category, error)
	Create(product *models.Product) error
	IncrementSoldCount(productID uint, delta int) error
	WithTx(tx *gorm.DB) *GormProductRepository
}

// GormProductRepository GORM 实现
type GormProductRepository struct {
	db *gorm.DB
}

// NewProductRepository 创建商品仓库
func NewProductRepository(db *gorm.DB) *GormProductRepository {
	return &GormProductRepository{db: db}
}

// WithTx 绑定事务
func (r *GormProductRepository) WithTx(tx *gorm.DB) *GormProductRepository {
	if tx == nil {
		return r
	}
	return &GormProductRepository{db: tx}
}

func (r *GormProductRepository) withExtensions(query *gorm.DB) *gorm.DB {
	return query.Preload("Crowdfunding").Preload("Seckill")
}

// GetByID 根据 ID 获取商品（含众筹/秒杀扩展）
func (r *GormProductRepository) GetByID(id uint) (*models.Product, error) {
	if id == 0 {
		return nil, nil
	}
	var product models.Product
	if err := r.withExtensions(r.db).First(&product, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &product, nil
}

// GetDetailByID 获取商品详情（含 SKU、属性、类目）
func (r *GormProductRepository) GetDetailByID(id uint) (*models.Product, error) {
	if id == 0 {
		return nil, nil
	}
	var product models.Product
	query := r.withExtensions(r.db).
		Preload("SKUs", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		Preload("Properties").
		Preload("Category")
	if err := query.First(&product, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &product, nil
}

// List 商品列表
func (r *GormProductRepository) List(filter ProductListFilter) ([]models.Product, int64, error) {
	query := r.db.Model(&models.Product{})
	if filter.Type != "" {
		query = query.Where("type = ?", filter.Type)
	}
	if filter.OnlyOnSale {
		query = query.Where("on_sale = ?", true)
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		condition, argCount := buildLikeCondition(r.db, []string{"title", "long_title", "description"})
		query = query.Where(condition, repeatLikeArgs("%"+search+"%", argCount)...)
	}

	return listPage[models.Product](query, filter.Page, filter.PageSize, r.withExtensions)
}

// ListCategoriesByIDs 批量获取类目
func (r *GormProductRepository) ListCategoriesByIDs(ids []uint) ([]models.Category, error) {
	if len(ids) == 0 {
		return []models.Category{}, nil
	}
	var categories []models.Category
	if err := r.db.Where("id IN ?", ids).Order("level ASC").Find(&categories).Error; err != nil {
		return nil, err
	}
	return categories, nil
}

// Create 创建商品（连同 SKU、属性与扩展）
func (r *GormProductRepository) Create(product *models.Product) error {
	if product == nil {
		return errors.New("product is nil")
	}
	return r.db.Create(product).Error
}

// IncrementSoldCount 累加销量
func (r *GormProductRepository) IncrementSoldCount(productID uint, delta int) error {
	if productID == 0 || delta == 0 {
		return nil
	}
	return r.db.Model(&models.Product{}).
		Where("id = ?", productID).
		UpdateColumn("sold_count", gorm.Expr("sold_count + ?", delta)).Error
}
