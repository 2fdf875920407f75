package service

import (
	"strings"
	"time"

	"github.com/dujiao-next/mall/internal/constants"
	"github.com/dujiao-next/mall/internal/models"
	"github.com/dujiao-next/mall/internal/repository"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var minPayable = decimal.RequireFromString("0.01")

// CouponValidator 优惠码规则校验与用量维护
type CouponValidator struct {
	couponRepo repository.CouponRepository
	orderRepo  repository.OrderRepository
	now        func() time.Time
}

// NewCouponValidator 创建优惠码校验器
func NewCouponValidator(couponRepo repository.CouponRepository, orderRepo repository.OrderRepository) *CouponValidator {
	return &CouponValidator{
		couponRepo: couponRepo,
		orderRepo:  orderRepo,
		now:        time.Now,
	}
}

// Find 根据优惠码查找，不存在返回 ErrCouponNotFound
func (v *CouponValidator) Find(code string) (*models.CouponCode, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, nil
	}
	coupon, err := v.couponRepo.GetByCode(code)
	if err != nil {
		return nil, err
	}
	if coupon == nil {
		return nil, ErrCouponNotFound
	}
	return coupon, nil
}

// CheckAvailable 校验优惠码是否可用；subtotal 为空时只校验与金额无关的规则
func (v *CouponValidator) CheckAvailable(tx *gorm.DB, coupon *models.CouponCode, userID uint, subtotal *models.Money) error {
	if coupon == nil {
		return ErrCouponNotFound
	}
	if !coupon.Enabled {
		return ErrCouponDisabled
	}
	if coupon.Total-coupon.Used <= 0 {
		return ErrCouponSoldOut
	}
	now := v.now()
	if coupon.NotBefore != nil && now.Before(*coupon.NotBefore) {
		return ErrCouponNotStarted
	}
	if coupon.NotAfter != nil && now.After(*coupon.NotAfter) {
		return ErrCouponExpired
	}
	if subtotal != nil && subtotal.Decimal.LessThan(coupon.MinAmount.Decimal) {
		return ErrCouponMinAmount
	}
	count, err := v.orderRepo.WithTx(tx).CountActiveByCoupon(coupon.ID, userID)
	if err != nil {
		return err
	}
	if count > 0 {
		return ErrCouponUsed
	}
	return nil
}

// AdjustedPrice 计算优惠后金额，固定金额优惠最低支付 0.01
func (v *CouponValidator) AdjustedPrice(coupon *models.CouponCode, total models.Money) models.Money {
	if coupon == nil {
		return total
	}
	if coupon.Type == constants.CouponTypeFixed {
		return models.NewMoneyFromDecimal(decimal.Max(minPayable, total.Decimal.Sub(coupon.Value.Decimal)))
	}
	ratio := decimal.NewFromInt(100).Sub(coupon.Value.Decimal).Div(decimal.NewFromInt(100))
	return models.NewMoneyFromDecimal(total.Decimal.Mul(ratio))
}

// ChangeUsed 条件调整用量；增加时抢不到名额返回 ErrCouponExhausted
func (v *CouponValidator) ChangeUsed(tx *gorm.DB, couponID uint, increase bool) error {
	repo := v.couponRepo.WithTx(tx)
	if !increase {
		_, err := repo.DecrementUsed(couponID)
		return err
	}
	affected, err := repo.IncrementUsed(couponID)
	if err != nil {
		return err
	}
	if affected <= 0 {
		return ErrCouponExhausted
	}
	return nil
}
