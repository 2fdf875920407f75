package repository

import (
	"errors"

	"github.com/dujiao-next/mall/internal/models"

	"gorm.io/gorm"
)

// ProductSKURepository 商品 SKU 数据访问接口
type ProductSKURepository interface {
	GetByID(id uint) (*models.ProductSKU, error)
	ListByProduct(productID uint) ([]models.ProductSKU, error)
	GetProduct(id uint) (*models.Product, error)
	DecreaseStock(skuID uint, amount int) (int64, error)
	IncreaseStock(skuID uint, amount int) (int64, error)
	WithTx(tx *gorm.DB) *GormProductSKURepository
}

// GormProductSKURepository GORM 实现
type GormProductSKURepository struct {
	db *gorm.DB
}

// NewProductSKURepository 创建 SKU 仓库
func NewProductSKURepository(db *gorm.DB) *GormProductSKURepository {
	return &GormProductSKURepository{db: db}
}

// WithTx 绑定事务
func (r *GormProductSKURepository) WithTx(tx *gorm.DB) *GormProductSKURepository {
	if tx == nil {
		return r
	}
	return &GormProductSKURepository{db: tx}
}

// GetByID 根据 ID 获取 SKU（附带商品）
func (r *GormProductSKURepository) GetByID(id uint) (*models.ProductSKU, error) {
	var sku models.ProductSKU
	if err := r.db.Preload("Product").First(&sku, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &sku, nil
}

// ListByProduct 根据商品获取 SKU 列表
func (r *GormProductSKURepository) ListByProduct(productID uint) ([]models.ProductSKU, error) {
	if productID == 0 {
		return nil, errors.New("invalid product id")
	}
	var skus []models.ProductSKU
	if err := r.db.Where("product_id = ?", productID).Order("id asc").Find(&skus).Error; err != nil {
		return nil, err
	}
	return skus, nil
}

// GetProduct 获取商品
func (r *GormProductSKURepository) GetProduct(id uint) (*models.Product, error) {
	var product models.Product
	if err := r.db.First(&product, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &product, nil
}

// DecreaseStock 条件扣减库存，库存不足时影响行数为 0
func (r *GormProductSKURepository) DecreaseStock(skuID uint, amount int) (int64, error) {
	if skuID == 0 || amount <= 0 {
		return 0, errors.New("invalid stock decrease params")
	}
	result := r.db.Model(&models.ProductSKU{}).
		Where("id = ? AND stock >= ?", skuID, amount).
		Update("stock", gorm.Expr("stock - ?", amount))
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

// IncreaseStock 回补库存
func (r *GormProductSKURepository) IncreaseStock(skuID uint, amount int) (int64, error) {
	if skuID == 0 || amount <= 0 {
		return 0, errors.New("invalid stock increase params")
	}
	result := r.db.Model(&models.ProductSKU{}).
		Where("id = ?", skuID).
		Update("stock", gorm.Expr("stock + ?", amount))
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}
