package repository

import (
	"errors"
	"time"

	"github.com/dujiao-next/mall/internal/models"

	"gorm.io/gorm"
)

// CartRepository 购物车与收货地址数据访问接口
type CartRepository interface {
	ListByUser(userID uint) ([]models.CartItem, error)
	RemoveSKUs(userID uint, skuIDs []uint) error
	GetAddress(id, userID uint) (*models.UserAddress, error)
	TouchAddress(id uint, at time.Time) error
	WithTx(tx *gorm.DB) *GormCartRepository
}

// GormCartRepository GORM 实现
type GormCartRepository struct {
	db *gorm.DB
}

// NewCartRepository 创建购物车仓库
func NewCartRepository(db *gorm.DB) *GormCartRepository {
	return &GormCartRepository{db: db}
}

// WithTx 绑定事务
func (r *GormCartRepository) WithTx(tx *gorm.DB) *GormCartRepository {
	if tx == nil {
		return r
	}
	return &GormCartRepository{db: tx}
}

// ListByUser 获取用户购物车
func (r *GormCartRepository) ListByUser(userID uint) ([]models.CartItem, error) {
	var items []models.CartItem
	if err := r.db.Where("user_id = ?", userID).Order("id asc").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// RemoveSKUs 移除用户购物车中的指定 SKU
func (r *GormCartRepository) RemoveSKUs(userID uint, skuIDs []uint) error {
	if userID == 0 || len(skuIDs) == 0 {
		return nil
	}
	return r.db.Where("user_id = ? AND sku_id IN ?", userID, skuIDs).Delete(&models.CartItem{}).Error
}

// GetAddress 获取用户的收货地址
func (r *GormCartRepository) GetAddress(id, userID uint) (*models.UserAddress, error) {
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
func (r *GormCartRepository) TouchAddress(id uint, at time.Time) error {
	return r.db.Model(&models.UserAddress{}).Where("id = ?", id).Update("last_used_at", at).Error
}
