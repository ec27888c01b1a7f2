package repository

import (
	"errors"
	"strings"
	"time"

	"github.com/mall-next/internal/constants"
	"github.com/mall-next/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// OrderRepository 订单数据访问接口
type OrderRepository interface {
	Create(order *models.Order, items []models.OrderItem) error
	GetByID(id uint) (*models.Order, error)
	GetByIDAndUser(id uint, userID uint) (*models.Order, error)
	GetByOrderNo(orderNo string) (*models.Order, error)
	GetByRefundNo(refundNo string) (*models.Order, error)
	ExistsOrderNo(orderNo string) (bool, error)
	ExistsRefundNo(refundNo string) (bool, error)
	ListByUser(filter OrderListFilter) ([]models.Order, int64, error)
	MarkPaid(id uint, method, paymentNo string, paidAt time.Time) (bool, error)
	CloseIfUnpaid(id uint) (bool, error)
	TransitionRefund(id uint, from []string, updates map[string]interface{}) (bool, error)
	TransitionShip(id uint, from string, updates map[string]interface{}) (bool, error)
	Update(id uint, updates map[string]interface{}) error
	HasOpenOrderForProduct(userID, productID uint) (bool, error)
	ListPaidByProduct(productID uint, orderType string) ([]models.Order, error)
	ListExpiredUnpaid(now time.Time, limit int) ([]models.Order, error)
	ClaimSeckill(productID, userID, orderID uint) (bool, error)
	ReleaseSeckill(orderID uint) error
	MarkReviewed(id uint) (bool, error)
	ReviewItem(orderID, itemID uint, rating int, review string, at time.Time) error
	WithTx(tx *gorm.DB) *GormOrderRepository
}

// GormOrderRepository GORM 实现
type GormOrderRepository struct {
	db *gorm.DB
}

// NewOrderRepository 创建订单仓库
func NewOrderRepository(db *gorm.DB) *GormOrderRepository {
	return &GormOrderRepository{db: db}
}

// WithTx 绑定事务
func (r *GormOrderRepository) WithTx(tx *gorm.DB) *GormOrderRepository {
	if tx == nil {
		return r
	}
	return &GormOrderRepository{db: tx}
}

func (r *GormOrderRepository) withItems(query *gorm.DB) *gorm.DB {
	return query.Preload("Items").Preload("Items.Product").Preload("Items.ProductSKU")
}

func (r *GormOrderRepository) first(query *gorm.DB) (*models.Order, error) {
	var order models.Order
	if err := query.First(&order).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &order, nil
}

// Create 创建订单与订单项
func (r *GormOrderRepository) Create(order *models.Order, items []models.OrderItem) error {
	if err := r.db.Omit("Items", "Installment", "Coupon").Create(order).Error; err != nil {
		return err
	}
	for i := range items {
		items[i].OrderID = order.ID
	}
	if len(items) > 0 {
		if err := r.db.Omit("Product", "ProductSKU").Create(&items).Error; err != nil {
			return err
		}
	}
	order.Items = items
	return nil
}

// GetByID 根据 ID 获取订单（含订单项与分期）
func (r *GormOrderRepository) GetByID(id uint) (*models.Order, error) {
	if id == 0 {
		return nil, nil
	}
	return r.first(r.withItems(r.db).Preload("Installment").Where("id = ?", id))
}

// GetByIDAndUser 获取用户订单详情
func (r *GormOrderRepository) GetByIDAndUser(id uint, userID uint) (*models.Order, error) {
	if id == 0 || userID == 0 {
		return nil, nil
	}
	return r.first(r.withItems(r.db).Preload("Installment").Where("id = ? AND user_id = ?", id, userID))
}

// GetByOrderNo 根据订单号获取订单
func (r *GormOrderRepository) GetByOrderNo(orderNo string) (*models.Order, error) {
	orderNo = strings.TrimSpace(orderNo)
	if orderNo == "" {
		return nil, nil
	}
	return r.first(r.withItems(r.db).Where("order_no = ?", orderNo))
}

// GetByRefundNo 根据退款单号获取订单
func (r *GormOrderRepository) GetByRefundNo(refundNo string) (*models.Order, error) {
	refundNo = strings.TrimSpace(refundNo)
	if refundNo == "" {
		return nil, nil
	}
	return r.first(r.withItems(r.db).Where("refund_no = ?", refundNo))
}

// ExistsOrderNo 订单号是否已存在
func (r *GormOrderRepository) ExistsOrderNo(orderNo string) (bool, error) {
	var count int64
	if err := r.db.Unscoped().Model(&models.Order{}).Where("order_no = ?", orderNo).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// ExistsRefundNo 退款单号是否已存在
func (r *GormOrderRepository) ExistsRefundNo(refundNo string) (bool, error) {
	var count int64
	if err := r.db.Unscoped().Model(&models.Order{}).Where("refund_no = ?", refundNo).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// ListByUser 用户订单列表
func (r *GormOrderRepository) ListByUser(filter OrderListFilter) ([]models.Order, int64, error) {
	query := r.db.Model(&models.Order{}).Where("user_id = ?", filter.UserID)
	if filter.Type != "" {
		query = query.Where("type = ?", filter.Type)
	}
	if filter.RefundStatus != "" {
		query = query.Where("refund_status = ?", filter.RefundStatus)
	}
	if filter.OrderNo != "" {
		query = query.Where("order_no = ?", filter.OrderNo)
	}
	if filter.CreatedFrom != nil {
		query = query.Where("created_at >= ?", *filter.CreatedFrom)
	}
	if filter.CreatedTo != nil {
		query = query.Where("created_at <= ?", *filter.CreatedTo)
	}

	return listPage[models.Order](query, filter.Page, filter.PageSize, r.withItems)
}

// MarkPaid 标记订单已支付，仅对未支付且未关闭的订单生效
func (r *GormOrderRepository) MarkPaid(id uint, method, paymentNo string, paidAt time.Time) (bool, error) {
	result := r.db.Model(&models.Order{}).
		Where("id = ? AND paid_at IS NULL AND closed = ?", id, false).
		Updates(map[string]interface{}{
			"paid_at":        paidAt,
			"payment_method": method,
			"payment_no":     paymentNo,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// CloseIfUnpaid 关闭未支付订单，已支付或已关闭时不命中
func (r *GormOrderRepository) CloseIfUnpaid(id uint) (bool, error) {
	result := r.db.Model(&models.Order{}).
		Where("id = ? AND paid_at IS NULL AND closed = ?", id, false).
		Update("closed", true)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// TransitionRefund 条件更新退款状态：仅当当前状态属于 from 时写入
func (r *GormOrderRepository) TransitionRefund(id uint, from []string, updates map[string]interface{}) (bool, error) {
	if len(from) == 0 {
		return false, errors.New("refund transition requires source status")
	}
	result := r.db.Model(&models.Order{}).
		Where("id = ? AND paid_at IS NOT NULL AND refund_status IN ?", id, from).
		Updates(updates)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// TransitionShip 条件更新物流状态：仅已支付、未退款且物流状态为 from 时写入
func (r *GormOrderRepository) TransitionShip(id uint, from string, updates map[string]interface{}) (bool, error) {
	result := r.db.Model(&models.Order{}).
		Where("id = ? AND paid_at IS NOT NULL AND ship_status = ?", id, from).
		Where("refund_status IN ?", []string{constants.RefundStatusPending, constants.RefundStatusFailed}).
		Updates(updates)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// Update 更新订单字段
func (r *GormOrderRepository) Update(id uint, updates map[string]interface{}) error {
	if id == 0 || len(updates) == 0 {
		return nil
	}
	return r.db.Model(&models.Order{}).Where("id = ?", id).Updates(updates).Error
}

// HasOpenOrderForProduct 用户是否已有该商品的有效订单（已支付或未关闭）
func (r *GormOrderRepository) HasOpenOrderForProduct(userID, productID uint) (bool, error) {
	var count int64
	err := r.db.Model(&models.Order{}).
		Where("user_id = ?", userID).
		Where("(paid_at IS NOT NULL OR closed = ?)", false).
		Where("EXISTS (SELECT 1 FROM order_items WHERE order_items.order_id = orders.id AND order_items.product_id = ?)", productID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// ListPaidByProduct 获取包含指定商品的已支付订单
func (r *GormOrderRepository) ListPaidByProduct(productID uint, orderType string) ([]models.Order, error) {
	query := r.db.Model(&models.Order{}).
		Where("paid_at IS NOT NULL").
		Where("EXISTS (SELECT 1 FROM order_items WHERE order_items.order_id = orders.id AND order_items.product_id = ?)", productID)
	if orderType != "" {
		query = query.Where("type = ?", orderType)
	}
	var orders []models.Order
	if err := query.Order("id ASC").Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}

// ListExpiredUnpaid 获取已过期但仍未关闭的订单，用于兜底扫描
func (r *GormOrderRepository) ListExpiredUnpaid(now time.Time, limit int) ([]models.Order, error) {
	query := r.db.Model(&models.Order{}).
		Where("paid_at IS NULL AND closed = ? AND expires_at IS NOT NULL AND expires_at <= ?", false, now).
		Order("expires_at ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	var orders []models.Order
	if err := query.Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}

// ClaimSeckill 占用用户在秒杀商品上的唯一参与名额，已被占用时返回 false
func (r *GormOrderRepository) ClaimSeckill(productID, userID, orderID uint) (bool, error) {
	row := &models.SeckillParticipation{ProductID: productID, UserID: userID, OrderID: orderID}
	result := r.db.Clauses(clause.OnConflict{DoNothing: true}).Create(row)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// ReleaseSeckill 释放订单占用的秒杀名额
func (r *GormOrderRepository) ReleaseSeckill(orderID uint) error {
	return r.db.Where("order_id = ?", orderID).Delete(&models.SeckillParticipation{}).Error
}

// MarkReviewed 标记订单已评价，重复评价不命中
func (r *GormOrderRepository) MarkReviewed(id uint) (bool, error) {
	result := r.db.Model(&models.Order{}).
		Where("id = ? AND reviewed = ?", id, false).
		Update("reviewed", true)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// ReviewItem 写入订单项评分与评价
func (r *GormOrderRepository) ReviewItem(orderID, itemID uint, rating int, review string, at time.Time) error {
	return r.db.Model(&models.OrderItem{}).
		Where("id = ? AND order_id = ?", itemID, orderID).
		Updates(map[string]interface{}{
			"rating":      rating,
			"review":      strings.TrimSpace(review),
			"reviewed_at": at,
		}).Error
}
