package service

import (
	"strings"
	"time"

	"github.com/mall-next/internal/constants"
	"github.com/mall-next/internal/models"
	"github.com/mall-next/internal/repository"

	"github.com/shopspring/decimal"
)

// CouponService 优惠券服务
type CouponService struct {
	couponRepo repository.CouponRepository
}

// NewCouponService 创建优惠券服务
func NewCouponService(couponRepo repository.CouponRepository) *CouponService {
	return &CouponService{couponRepo: couponRepo}
}

// Resolve 按优惠码查询可用优惠券；subtotal 为空时跳过门槛校验
func (s *CouponService) Resolve(code string, subtotal *decimal.Decimal, now time.Time) (*models.Coupon, error) {
	trimmed := strings.TrimSpace(code)
	if trimmed == "" {
		return nil, ErrCouponInvalid
	}
	coupon, err := s.couponRepo.GetByCode(trimmed)
	if err != nil {
		return nil, err
	}
	if err := checkCouponUsable(coupon, subtotal, now); err != nil {
		return nil, err
	}
	return coupon, nil
}

// Apply 按订单总额校验使用门槛并返回优惠后金额
func (s *CouponService) Apply(coupon *models.Coupon, total decimal.Decimal, now time.Time) (decimal.Decimal, error) {
	if err := checkCouponUsable(coupon, &total, now); err != nil {
		return total, err
	}
	return coupon.AdjustedPrice(total), nil
}

// checkCouponUsable 校验优惠券状态、有效期、剩余数量与使用门槛
func checkCouponUsable(coupon *models.Coupon, subtotal *decimal.Decimal, now time.Time) error {
	if coupon == nil || !coupon.Enabled {
		return ErrCouponInvalid
	}
	if coupon.NotBefore != nil && now.Before(*coupon.NotBefore) {
		return ErrCouponInvalid
	}
	if coupon.NotAfter != nil && now.After(*coupon.NotAfter) {
		return ErrCouponInvalid
	}
	if coupon.Total-coupon.Used <= 0 {
		return ErrCouponExhausted
	}
	switch coupon.Type {
	case constants.CouponTypeFixed, constants.CouponTypePercent:
	default:
		return ErrCouponInvalid
	}
	if coupon.Value.Decimal.Sign() <= 0 {
		return ErrCouponInvalid
	}
	if subtotal != nil && subtotal.LessThan(coupon.MinAmount.Decimal) {
		return ErrCouponInvalid
	}
	return nil
}
