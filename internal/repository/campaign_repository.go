package repository

import (
	"errors"
	"time"

	"github.com/dujiao-next/mall/internal/constants"
	"github.com/dujiao-next/mall/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CampaignRepository 众筹/秒杀活动数据访问接口
type CampaignRepository interface {
	GetCrowdfundingByProduct(productID uint) (*models.CrowdfundingCampaign, error)
	GetCrowdfundingForUpdate(id uint) (*models.CrowdfundingCampaign, error)
	AddCrowdfundingProgress(id uint, amount models.Money) error
	UpdateCrowdfunding(id uint, updates map[string]interface{}) error
	ListDueCrowdfundingIDs(now time.Time, limit int) ([]uint, error)
	GetSeckillByProduct(productID uint) (*models.SeckillWindow, error)
	WithTx(tx *gorm.DB) *GormCampaignRepository
}

// GormCampaignRepository GORM 实现
type GormCampaignRepository struct {
	db *gorm.DB
}

// NewCampaignRepository 创建活动仓库
func NewCampaignRepository(db *gorm.DB) *GormCampaignRepository {
	return &GormCampaignRepository{db: db}
}

// WithTx 绑定事务
func (r *GormCampaignRepository) WithTx(tx *gorm.DB) *GormCampaignRepository {
	if tx == nil {
		return r
	}
	return &GormCampaignRepository{db: tx}
}

// GetCrowdfundingByProduct 获取商品对应的众筹活动
func (r *GormCampaignRepository) GetCrowdfundingByProduct(productID uint) (*models.CrowdfundingCampaign, error) {
	var campaign models.CrowdfundingCampaign
	if err := r.db.Where("product_id = ?", productID).First(&campaign).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &campaign, nil
}

// GetCrowdfundingForUpdate 加行锁获取众筹活动
func (r *GormCampaignRepository) GetCrowdfundingForUpdate(id uint) (*models.CrowdfundingCampaign, error) {
	var campaign models.CrowdfundingCampaign
	if err := r.db.Clauses(clause.Locking{Strength: "UPDATE"}).First(&campaign, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &campaign, nil
}

// AddCrowdfundingProgress 累加众筹金额与参与人数
func (r *GormCampaignRepository) AddCrowdfundingProgress(id uint, amount models.Money) error {
	return r.db.Model(&models.CrowdfundingCampaign{}).Where("id = ?", id).Updates(map[string]interface{}{
		"total_amount": gorm.Expr("total_amount + ?", amount.Decimal),
		"user_count":   gorm.Expr("user_count + ?", 1),
	}).Error
}

// UpdateCrowdfunding 更新众筹活动
func (r *GormCampaignRepository) UpdateCrowdfunding(id uint, updates map[string]interface{}) error {
	if id == 0 || len(updates) == 0 {
		return nil
	}
	return r.db.Model(&models.CrowdfundingCampaign{}).Where("id = ?", id).Updates(updates).Error
}

// ListDueCrowdfundingIDs 列出已到结束时间但仍在众筹中的活动
func (r *GormCampaignRepository) ListDueCrowdfundingIDs(now time.Time, limit int) ([]uint, error) {
	if limit <= 0 {
		limit = 100
	}
	var ids []uint
	err := r.db.Model(&models.CrowdfundingCampaign{}).
		Where("status = ? AND end_at <= ?", constants.CrowdfundingStatusFunding, now).
		Order("id asc").
		Limit(limit).
		Pluck("id", &ids).Error
	return ids, err
}

// GetSeckillByProduct 获取商品对应的秒杀窗口
func (r *GormCampaignRepository) GetSeckillByProduct(productID uint) (*models.SeckillWindow, error) {
	var window models.SeckillWindow
	if err := r.db.Where("product_id = ?", productID).First(&window).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &window, nil
}
