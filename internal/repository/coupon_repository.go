package repository

import (
	"errors"
	"strings"

	"github.com/dujiao-next/mall/internal/models"

	"gorm.io/gorm"
)

// CouponRepository 优惠码数据访问接口
type CouponRepository interface {
	GetByCode(code string) (*models.CouponCode, error)
	GetByID(id uint) (*models.CouponCode, error)
	IncrementUsed(id uint) (int64, error)
	DecrementUsed(id uint) (int64, error)
	WithTx(tx *gorm.DB) *GormCouponRepository
}

// GormCouponRepository GORM 实现
type GormCouponRepository struct {
	db *gorm.DB
}

// NewCouponRepository 创建优惠码仓库
func NewCouponRepository(db *gorm.DB) *GormCouponRepository {
	return &GormCouponRepository{db: db}
}

// WithTx 绑定事务
func (r *GormCouponRepository) WithTx(tx *gorm.DB) *GormCouponRepository {
	if tx == nil {
		return r
	}
	return &GormCouponRepository{db: tx}
}

// GetByCode 根据优惠码获取
func (r *GormCouponRepository) GetByCode(code string) (*models.CouponCode, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, nil
	}
	var coupon models.CouponCode
	if err := r.db.Where("code = ?", code).First(&coupon).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &coupon, nil
}

// GetByID 根据 ID 获取
func (r *GormCouponRepository) GetByID(id uint) (*models.CouponCode, error) {
	var coupon models.CouponCode
	if err := r.db.First(&coupon, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &coupon, nil
}

// IncrementUsed 条件增加使用次数（used < total），抢不到时影响行数为 0
func (r *GormCouponRepository) IncrementUsed(id uint) (int64, error) {
	result := r.db.Model(&models.CouponCode{}).
		Where("id = ? AND used < total", id).
		Update("used", gorm.Expr("used + ?", 1))
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

// DecrementUsed 回退使用次数
func (r *GormCouponRepository) DecrementUsed(id uint) (int64, error) {
	result := r.db.Model(&models.CouponCode{}).
		Where("id = ? AND used > 0", id).
		Update("used", gorm.Expr("used - ?", 1))
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}
