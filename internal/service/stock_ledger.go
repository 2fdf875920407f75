package service

import (
	"fmt"

	"github.com/dujiao-next/mall/internal/repository"

	"gorm.io/gorm"
)

// StockLedger 库存台账，扣减与回补都必须在调用方事务内执行
type StockLedger struct {
	skuRepo repository.ProductSKURepository
}

// NewStockLedger 创建库存台账
func NewStockLedger(skuRepo repository.ProductSKURepository) *StockLedger {
	return &StockLedger{skuRepo: skuRepo}
}

// Decrease 条件扣减库存，库存不足返回 ErrInsufficientStock
func (l *StockLedger) Decrease(tx *gorm.DB, skuID uint, amount int) error {
	if amount <= 0 {
		return ErrOrderItemInvalid
	}
	affected, err := l.skuRepo.WithTx(tx).DecreaseStock(skuID, amount)
	if err != nil {
		return err
	}
	if affected <= 0 {
		return fmt.Errorf("%w: sku %d", ErrInsufficientStock, skuID)
	}
	return nil
}

// Increase 回补库存
func (l *StockLedger) Increase(tx *gorm.DB, skuID uint, amount int) error {
	if amount <= 0 {
		return nil
	}
	_, err := l.skuRepo.WithTx(tx).IncreaseStock(skuID, amount)
	return err
}
