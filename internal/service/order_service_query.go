package service

import (
	"context"
	"strings"

	"github.com/mall-next/internal/constants"
	"github.com/mall-next/internal/logger"
	"github.com/mall-next/internal/models"
	"github.com/mall-next/internal/repository"

	"gorm.io/gorm"
)

// ListUserOrders 用户订单列表
func (s *OrderService) ListUserOrders(filter repository.OrderListFilter) ([]models.Order, int64, error) {
	if filter.UserID == 0 {
		return nil, 0, ErrOrderNotFound
	}
	return s.orderRepo.ListByUser(filter)
}

// GetUserOrder 用户订单详情
func (s *OrderService) GetUserOrder(userID, orderID uint) (*models.Order, error) {
	order, err := s.orderRepo.GetByIDAndUser(orderID, userID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}
	return order, nil
}

// GetOrder 运营查看订单
func (s *OrderService) GetOrder(orderID uint) (*models.Order, error) {
	order, err := s.orderRepo.GetByID(orderID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}
	return order, nil
}

// ShipOrderInput 发货输入
type ShipOrderInput struct {
	ExpressCompany string
	ExpressNo      string
}

// Ship 运营发货：已支付、未发货且未进入退款流程
func (s *OrderService) Ship(ctx context.Context, orderID uint, input ShipOrderInput) (*models.Order, error) {
	order, err := s.GetOrder(orderID)
	if err != nil {
		return nil, err
	}
	if !order.IsPaid() {
		return nil, ErrOrderNotPaid
	}
	company := strings.TrimSpace(input.ExpressCompany)
	no := strings.TrimSpace(input.ExpressNo)
	if company == "" || no == "" {
		return nil, ErrShipStatusInvalid
	}
	ok, err := s.orderRepo.TransitionShip(order.ID, constants.ShipStatusPending, map[string]interface{}{
		"ship_status": constants.ShipStatusDelivered,
		"ship_data": models.JSON{
			"express_company": company,
			"express_no":      no,
		},
	})
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrShipStatusInvalid
	}
	logger.Infow("order_shipped",
		"order_id", order.ID,
		"order_no", order.OrderNo,
		"express_company", company,
	)
	return s.reload(order), nil
}

// Receive 用户确认收货
func (s *OrderService) Receive(ctx context.Context, userID, orderID uint) (*models.Order, error) {
	order, err := s.GetUserOrder(userID, orderID)
	if err != nil {
		return nil, err
	}
	if order.ShipStatus != constants.ShipStatusDelivered {
		return nil, ErrShipStatusInvalid
	}
	ok, err := s.orderRepo.TransitionShip(order.ID, constants.ShipStatusDelivered, map[string]interface{}{
		"ship_status": constants.ShipStatusReceived,
	})
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrShipStatusInvalid
	}
	return s.reload(order), nil
}

// ReviewItem 单个订单项评价
type ReviewItem struct {
	OrderItemID uint
	Rating      int
	Review      string
}

// Review 用户评价订单：仅已支付且未评价过，写入后订单标记为已评价
func (s *OrderService) Review(ctx context.Context, userID, orderID uint, reviews []ReviewItem) (*models.Order, error) {
	order, err := s.GetUserOrder(userID, orderID)
	if err != nil {
		return nil, err
	}
	if !order.IsPaid() {
		return nil, ErrOrderNotPaid
	}
	if order.Reviewed || len(reviews) == 0 {
		return nil, ErrInvalidOrderItem
	}
	owned := make(map[uint]bool, len(order.Items))
	for _, item := range order.Items {
		owned[item.ID] = true
	}
	for _, review := range reviews {
		if !owned[review.OrderItemID] || review.Rating < 1 || review.Rating > 5 {
			return nil, ErrInvalidOrderItem
		}
	}

	now := s.now()
	err = models.DB.Transaction(func(tx *gorm.DB) error {
		repo := s.orderRepo.WithTx(tx)
		ok, err := repo.MarkReviewed(order.ID)
		if err != nil {
			return err
		}
		if !ok {
			return ErrInvalidOrderItem
		}
		for _, review := range reviews {
			if err := repo.ReviewItem(order.ID, review.OrderItemID, review.Rating, review.Review, now); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.reload(order), nil
}
