package service

import (
	"context"
	"time"

	"github.com/dujiao-next/mall/internal/constants"
	"github.com/dujiao-next/mall/internal/logger"
	"github.com/dujiao-next/mall/internal/queue"
	"github.com/dujiao-next/mall/internal/repository"

	"gorm.io/gorm"
)

// DelayedCloser 未支付订单到期关闭
type DelayedCloser struct {
	db              *gorm.DB
	orderRepo       repository.OrderRepository
	installmentRepo repository.InstallmentRepository
	stock           *StockLedger
	coupons         *CouponValidator
	jobs            JobQueue
}

// NewDelayedCloser 创建延迟关闭服务
func NewDelayedCloser(db *gorm.DB, orderRepo repository.OrderRepository, installmentRepo repository.InstallmentRepository, stock *StockLedger, coupons *CouponValidator, jobs JobQueue) *DelayedCloser {
	return &DelayedCloser{
		db:              db,
		orderRepo:       orderRepo,
		installmentRepo: installmentRepo,
		stock:           stock,
		coupons:         coupons,
		jobs:            jobs,
	}
}

// Schedule 投递延迟关闭任务，同一订单重复投递会被合并
func (c *DelayedCloser) Schedule(orderNo string, delay time.Duration) error {
	if c.jobs == nil {
		return nil
	}
	return c.jobs.EnqueueOrderClose(queue.OrderClosePayload{OrderNo: orderNo}, delay)
}

// Close 到期时关闭订单；已支付或已关闭时不做任何变更，返回是否实际关闭
func (c *DelayedCloser) Close(ctx context.Context, orderNo string) (bool, error) {
	closed := false
	err := c.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		orderRepo := c.orderRepo.WithTx(tx)
		order, err := orderRepo.GetByOrderNoForUpdate(orderNo)
		if err != nil {
			return err
		}
		if order == nil {
			return ErrOrderNotFound
		}
		if order.IsPaid() {
			logger.Infow("order_close_skip_paid", "order_no", orderNo)
			return nil
		}
		if order.IsClosed() {
			logger.Infow("order_close_skip_closed", "order_no", orderNo)
			return nil
		}
		if !isTransitionAllowed(order.Status, constants.OrderStatusClosed) {
			return ErrOrderStatusInvalid
		}
		now := time.Now()
		if err := orderRepo.Updates(order.ID, map[string]interface{}{
			"status":     constants.OrderStatusClosed,
			"closed_at":  now,
			"updated_at": now,
		}); err != nil {
			return err
		}

		restore := order.Type != constants.OrderTypeCrowdfunding
		if restore {
			installment, err := c.installmentRepo.WithTx(tx).GetByOrderID(order.ID)
			if err != nil {
				return err
			}
			restore = installment == nil
		}
		if restore {
			for _, item := range order.Items {
				if err := c.stock.Increase(tx, item.SKUID, item.Amount); err != nil {
					return err
				}
			}
		}
		if order.CouponID != nil {
			if err := c.coupons.ChangeUsed(tx, *order.CouponID, false); err != nil {
				return err
			}
		}
		closed = true
		return nil
	})
	if err != nil {
		return false, err
	}
	if closed {
		logger.Infow("order_closed", "order_no", orderNo)
	}
	return closed, nil
}
