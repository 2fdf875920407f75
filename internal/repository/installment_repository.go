package repository

import (
	"errors"
	"strings"

	"github.com/dujiao-next/mall/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// InstallmentRepository 分期数据访问接口
type InstallmentRepository interface {
	Create(installment *models.Installment, items []models.InstallmentItem) error
	GetByNo(no string) (*models.Installment, error)
	GetByNoForUpdate(no string) (*models.Installment, error)
	GetByOrderID(orderID uint) (*models.Installment, error)
	GetByOrderIDForUpdate(orderID uint) (*models.Installment, error)
	ExistsNo(no string) (bool, error)
	GetItemForUpdate(installmentID uint, sequence int) (*models.InstallmentItem, error)
	ListItems(installmentID uint) ([]models.InstallmentItem, error)
	NextUnpaidItem(installmentID uint) (*models.InstallmentItem, error)
	Updates(id uint, updates map[string]interface{}) error
	UpdateItem(id uint, updates map[string]interface{}) error
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

// Create 创建分期与还款计划
func (r *GormInstallmentRepository) Create(installment *models.Installment, items []models.InstallmentItem) error {
	if err := r.db.Create(installment).Error; err != nil {
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

func (r *GormInstallmentRepository) first(query *gorm.DB) (*models.Installment, error) {
	var installment models.Installment
	if err := query.Preload("Items", func(db *gorm.DB) *gorm.DB {
		return db.Order("sequence asc")
	}).First(&installment).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &installment, nil
}

// GetByNo 根据流水号获取分期
func (r *GormInstallmentRepository) GetByNo(no string) (*models.Installment, error) {
	no = strings.TrimSpace(no)
	if no == "" {
		return nil, nil
	}
	return r.first(r.db.Preload("Order").Where("no = ?", no))
}

// GetByNoForUpdate 加行锁按流水号获取分期
func (r *GormInstallmentRepository) GetByNoForUpdate(no string) (*models.Installment, error) {
	no = strings.TrimSpace(no)
	if no == "" {
		return nil, nil
	}
	return r.first(r.db.Clauses(clause.Locking{Strength: "UPDATE"}).Where("no = ?", no))
}

// GetByOrderID 获取订单对应的分期
func (r *GormInstallmentRepository) GetByOrderID(orderID uint) (*models.Installment, error) {
	return r.first(r.db.Where("order_id = ?", orderID))
}

// GetByOrderIDForUpdate 加行锁获取订单对应的分期
func (r *GormInstallmentRepository) GetByOrderIDForUpdate(orderID uint) (*models.Installment, error) {
	return r.first(r.db.Clauses(clause.Locking{Strength: "UPDATE"}).Where("order_id = ?", orderID))
}

// ExistsNo 分期流水号是否已占用
func (r *GormInstallmentRepository) ExistsNo(no string) (bool, error) {
	var count int64
	if err := r.db.Model(&models.Installment{}).Where("no = ?", no).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// GetItemForUpdate 加行锁获取指定期序号的还款项
func (r *GormInstallmentRepository) GetItemForUpdate(installmentID uint, sequence int) (*models.InstallmentItem, error) {
	var item models.InstallmentItem
	if err := r.db.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("installment_id = ? AND sequence = ?", installmentID, sequence).
		First(&item).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &item, nil
}

// ListItems 获取全部还款项（按期序号升序）
func (r *GormInstallmentRepository) ListItems(installmentID uint) ([]models.InstallmentItem, error) {
	var items []models.InstallmentItem
	if err := r.db.Where("installment_id = ?", installmentID).Order("sequence asc").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// NextUnpaidItem 获取下一期未还款项
func (r *GormInstallmentRepository) NextUnpaidItem(installmentID uint) (*models.InstallmentItem, error) {
	var item models.InstallmentItem
	if err := r.db.Where("installment_id = ? AND paid_at IS NULL", installmentID).
		Order("sequence asc").
		First(&item).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &item, nil
}

// Updates 更新分期字段
func (r *GormInstallmentRepository) Updates(id uint, updates map[string]interface{}) error {
	if id == 0 || len(updates) == 0 {
		return nil
	}
	return r.db.Model(&models.Installment{}).Where("id = ?", id).Updates(updates).Error
}

// UpdateItem 更新还款项字段
func (r *GormInstallmentRepository) UpdateItem(id uint, updates map[string]interface{}) error {
	if id == 0 || len(updates) == 0 {
		return nil
	}
	return r.db.Model(&models.InstallmentItem{}).Where("id = ?", id).Updates(updates).Error
}
