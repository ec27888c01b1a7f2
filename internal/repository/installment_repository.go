package repository

import (
	"errors"
	"strings"
	"time"

	"github.com/mall-next/internal/constants"
	"github.com/mall-next/internal/models"

	"gorm.io/gorm"
)

// InstallmentRepository 分期数据访问接口
type InstallmentRepository interface {
	Create(installment *models.Installment) error
	GetByID(id uint) (*models.Installment, error)
	GetByIDAndUser(id, userID uint) (*models.Installment, error)
	GetByNo(no string) (*models.Installment, error)
	GetByOrderID(orderID uint) (*models.Installment, error)
	ExistsNo(no string) (bool, error)
	DeletePendingByOrderID(orderID uint) error
	ListByUser(filter InstallmentListFilter) ([]models.Installment, int64, error)
	UpdateStatus(id uint, status string) error
	MarkItemPaid(itemID uint, method, paymentNo string, paidAt time.Time) (bool, error)
	UpdateItemRefund(itemID uint, status, failedCode string) error
	UpdateItemFine(itemID uint, fine models.Money) error
	ListRepayingWithOverdue(now time.Time) ([]models.Installment, error)
	ListRefundProcessing(limit int) ([]models.Installment, error)
	WithTx(tx *gorm.DB) *GormInstallmentRepository
}

// GormInstallmentRepository GORM 实现
type GormInstallmentRepository struct {
	db *gorm.DB
}

// NewInstallmentRepository 创建分期仓库
func NewInstallmentRepository(db *gorm.DB) *GormInstallmentRepository {
	return &GormInstallmentRepository{db: db}
}

// WithTx 绑定事务
func (r *GormInstallmentRepository) WithTx(tx *gorm.DB) *GormInstallmentRepository {
	if tx == nil {
		return r
	}
	return &GormInstallmentRepository{db: tx}
}

func orderItemsBySequence(db *gorm.DB) *gorm.DB {
	return db.Order("sequence ASC")
}

func (r *GormInstallmentRepository) withItems(query *gorm.DB) *gorm.DB {
	return query.Preload("Items", orderItemsBySequence)
}

func (r *GormInstallmentRepository) first(query *gorm.DB) (*models.Installment, error) {
	var installment models.Installment
	if err := query.First(&installment).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &installment, nil
}

// Create 创建分期与全部还款计划
func (r *GormInstallmentRepository) Create(installment *models.Installment) error {
	if installment == nil {
		return errors.New("installment is nil")
	}
	items := installment.Items
	installment.Items = nil
	if err := r.db.Omit("Order").Create(installment).Error; err != nil {
		return err
	}
	for i := range items {
		items[i].InstallmentID = installment.ID
	}
	if len(items) > 0 {
		if err := r.db.Create(&items).Error; err != nil {
			return err
		}
	}
	installment.Items = items
	return nil
}

// GetByID 根据 ID 获取分期（含还款计划与订单）
func (r *GormInstallmentRepository) GetByID(id uint) (*models.Installment, error) {
	if id == 0 {
		return nil, nil
	}
	return r.first(r.withItems(r.db).Preload("Order").Where("id = ?", id))
}

// GetByIDAndUser 获取用户的分期详情
func (r *GormInstallmentRepository) GetByIDAndUser(id, userID uint) (*models.Installment, error) {
	if id == 0 || userID == 0 {
		return nil, nil
	}
	return r.first(r.withItems(r.db).Preload("Order").Where("id = ? AND user_id = ?", id, userID))
}

// GetByNo 根据流水号获取分期
func (r *GormInstallmentRepository) GetByNo(no string) (*models.Installment, error) {
	no = strings.TrimSpace(no)
	if no == "" {
		return nil, nil
	}
	return r.first(r.withItems(r.db).Preload("Order").Where("no = ?", no))
}

// GetByOrderID 根据订单获取分期
func (r *GormInstallmentRepository) GetByOrderID(orderID uint) (*models.Installment, error) {
	if orderID == 0 {
		return nil, nil
	}
	return r.first(r.withItems(r.db).Where("order_id = ?", orderID))
}

// ExistsNo 流水号是否已存在
func (r *GormInstallmentRepository) ExistsNo(no string) (bool, error) {
	var count int64
	if err := r.db.Model(&models.Installment{}).Where("no = ?", no).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// DeletePendingByOrderID 删除订单下尚未开始还款的分期及其还款计划
func (r *GormInstallmentRepository) DeletePendingByOrderID(orderID uint) error {
	var ids []uint
	if err := r.db.Model(&models.Installment{}).
		Where("order_id = ? AND status = ?", orderID, constants.InstallmentStatusPending).
		Pluck("id", &ids).Error; err != nil {
		return err
	}
	if len(ids) == 0 {
		return nil
	}
	if err := r.db.Where("installment_id IN ?", ids).Delete(&models.InstallmentItem{}).Error; err != nil {
		return err
	}
	return r.db.Where("id IN ?", ids).Delete(&models.Installment{}).Error
}

// ListByUser 用户分期列表
func (r *GormInstallmentRepository) ListByUser(filter InstallmentListFilter) ([]models.Installment, int64, error) {
	query := r.db.Model(&models.Installment{}).Where("user_id = ?", filter.UserID)
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	return listPage[models.Installment](query, filter.Page, filter.PageSize, nil)
}

// UpdateStatus 更新分期状态
func (r *GormInstallmentRepository) UpdateStatus(id uint, status string) error {
	return r.db.Model(&models.Installment{}).Where("id = ?", id).Update("status", status).Error
}

// MarkItemPaid 标记某一期已还款，仅对未还款的期数生效
func (r *GormInstallmentRepository) MarkItemPaid(itemID uint, method, paymentNo string, paidAt time.Time) (bool, error) {
	result := r.db.Model(&models.InstallmentItem{}).
		Where("id = ? AND paid_at IS NULL", itemID).
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

// UpdateItemRefund 更新某一期的退款状态
func (r *GormInstallmentRepository) UpdateItemRefund(itemID uint, status, failedCode string) error {
	return r.db.Model(&models.InstallmentItem{}).
		Where("id = ?", itemID).
		Updates(map[string]interface{}{
			"refund_status":      status,
			"refund_failed_code": failedCode,
		}).Error
}

// UpdateItemFine 写入重算后的逾期费
func (r *GormInstallmentRepository) UpdateItemFine(itemID uint, fine models.Money) error {
	return r.db.Model(&models.InstallmentItem{}).
		Where("id = ? AND paid_at IS NULL", itemID).
		Update("fine", fine).Error
}

// ListRepayingWithOverdue 获取存在逾期未还期数的还款中分期（订单未关闭且未退款）
func (r *GormInstallmentRepository) ListRepayingWithOverdue(now time.Time) ([]models.Installment, error) {
	var installments []models.Installment
	err := r.withItems(r.db).
		Joins("JOIN orders ON orders.id = installments.order_id").
		Where("installments.status = ?", constants.InstallmentStatusRepaying).
		Where("orders.closed = ? AND orders.refund_status <> ?", false, constants.RefundStatusSuccess).
		Where("EXISTS (SELECT 1 FROM installment_items WHERE installment_items.installment_id = installments.id AND installment_items.paid_at IS NULL AND installment_items.due_date < ?)", now).
		Order("installments.id ASC").
		Find(&installments).Error
	if err != nil {
		return nil, err
	}
	return installments, nil
}

// ListRefundProcessing 获取所属订单处于退款中的分期
func (r *GormInstallmentRepository) ListRefundProcessing(limit int) ([]models.Installment, error) {
	query := r.withItems(r.db).Preload("Order").
		Joins("JOIN orders ON orders.id = installments.order_id").
		Where("orders.refund_status = ?", constants.RefundStatusProcessing).
		Order("installments.id ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	var installments []models.Installment
	if err := query.Find(&installments).Error; err != nil {
		return nil, err
	}
	return installments, nil
}
