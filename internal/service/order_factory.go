package service

import (
	"context"
	"time"

	"github.com/dujiao-next/mall/internal/constants"
	"github.com/dujiao-next/mall/internal/logger"
	"github.com/dujiao-next/mall/internal/models"
	"github.com/dujiao-next/mall/internal/repository"

	"gorm.io/gorm"
)

const orderNoPrefix = "M"

// OrderFactory 下单：订单头、订单项、库存与优惠码在同一事务内完成
type OrderFactory struct {
	db           *gorm.DB
	orderRepo    repository.OrderRepository
	skuRepo      repository.ProductSKURepository
	cartRepo     repository.CartRepository
	campaignRepo repository.CampaignRepository
	stock        *StockLedger
	coupons      *CouponValidator
	closer       *DelayedCloser
	ttl          time.Duration
	now          func() time.Time
}

// NewOrderFactory 创建下单服务
func NewOrderFactory(db *gorm.DB, orderRepo repository.OrderRepository, skuRepo repository.ProductSKURepository, cartRepo repository.CartRepository, campaignRepo repository.CampaignRepository, stock *StockLedger, coupons *CouponValidator, closer *DelayedCloser, ttl time.Duration) *OrderFactory {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &OrderFactory{
		db:           db,
		orderRepo:    orderRepo,
		skuRepo:      skuRepo,
		cartRepo:     cartRepo,
		campaignRepo: campaignRepo,
		stock:        stock,
		coupons:      coupons,
		closer:       closer,
		ttl:          ttl,
		now:          time.Now,
	}
}

// CreateOrderItem 下单项
type CreateOrderItem struct {
	SKUID  uint `json:"sku_id"`
	Amount int  `json:"amount"`
}

// CreateOrderInput 普通订单下单输入
type CreateOrderInput struct {
	UserID     uint
	AddressID  uint
	Remark     string
	Items      []CreateOrderItem
	CouponCode string
}

// CreateCampaignOrderInput 众筹/秒杀下单输入
type CreateCampaignOrderInput struct {
	UserID    uint
	AddressID uint
	SKUID     uint
	Amount    int
}

// CreateOrder 创建普通订单
func (f *OrderFactory) CreateOrder(ctx context.Context, input CreateOrderInput) (*models.Order, error) {
	if input.UserID == 0 || len(input.Items) == 0 {
		return nil, ErrOrderItemInvalid
	}
	for _, item := range input.Items {
		if item.SKUID == 0 || item.Amount <= 0 {
			return nil, ErrOrderItemInvalid
		}
	}

	coupon, err := f.coupons.Find(input.CouponCode)
	if err != nil {
		return nil, err
	}
	if coupon != nil {
		if err := f.coupons.CheckAvailable(nil, coupon, input.UserID, nil); err != nil {
			return nil, err
		}
	}

	var order *models.Order
	err = f.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		created, err := f.createHeader(tx, input.UserID, input.AddressID, input.Remark, constants.OrderTypeNormal)
		if err != nil {
			return err
		}
		orderRepo := f.orderRepo.WithTx(tx)
		skuRepo := f.skuRepo.WithTx(tx)

		total := models.Money{}
		skuIDs := make([]uint, 0, len(input.Items))
		for _, data := range input.Items {
			sku, err := skuRepo.GetByID(data.SKUID)
			if err != nil {
				return err
			}
			if !isSKUPurchasable(sku, constants.ProductTypeNormal) {
				return ErrProductUnavailable
			}
			item, err := f.addItem(tx, created, sku, data.Amount)
			if err != nil {
				return err
			}
			total = total.Add(item.Subtotal())
			skuIDs = append(skuIDs, sku.ID)
		}

		updates := map[string]interface{}{}
		if coupon != nil {
			if err := f.coupons.CheckAvailable(tx, coupon, input.UserID, &total); err != nil {
				return err
			}
			total = f.coupons.AdjustedPrice(coupon, total)
			couponID := coupon.ID
			created.CouponID = &couponID
			updates["coupon_id"] = couponID
			if err := f.coupons.ChangeUsed(tx, coupon.ID, true); err != nil {
				return err
			}
		}

		created.TotalAmount = total
		updates["total_amount"] = total
		if err := orderRepo.Updates(created.ID, updates); err != nil {
			return err
		}
		if err := f.cartRepo.WithTx(tx).RemoveSKUs(input.UserID, skuIDs); err != nil {
			return err
		}
		order = created
		return nil
	})
	if err != nil {
		return nil, err
	}

	f.scheduleClose(order, f.ttl)
	return order, nil
}

// CreateCrowdfundingOrder 创建众筹订单，关闭时间不晚于众筹结束
func (f *OrderFactory) CreateCrowdfundingOrder(ctx context.Context, input CreateCampaignOrderInput) (*models.Order, error) {
	if input.UserID == 0 || input.SKUID == 0 || input.Amount <= 0 {
		return nil, ErrOrderItemInvalid
	}
	sku, err := f.skuRepo.GetByID(input.SKUID)
	if err != nil {
		return nil, err
	}
	if !isSKUPurchasable(sku, constants.ProductTypeCrowdfunding) {
		return nil, ErrProductUnavailable
	}
	campaign, err := f.campaignRepo.GetCrowdfundingByProduct(sku.ProductID)
	if err != nil {
		return nil, err
	}
	if campaign == nil {
		return nil, ErrCampaignNotFound
	}
	now := f.now()
	if campaign.Status != constants.CrowdfundingStatusFunding || !now.Before(campaign.EndAt) {
		return nil, ErrCrowdfundingEnded
	}

	order, err := f.createSingleItemOrder(ctx, input, sku, constants.OrderTypeCrowdfunding)
	if err != nil {
		return nil, err
	}

	ttl := f.ttl
	if remaining := campaign.EndAt.Sub(now); remaining < ttl {
		ttl = remaining
	}
	f.scheduleClose(order, ttl)
	return order, nil
}

// CreateSeckillOrder 创建秒杀订单，每单限购一件
func (f *OrderFactory) CreateSeckillOrder(ctx context.Context, input CreateCampaignOrderInput) (*models.Order, error) {
	if input.UserID == 0 || input.SKUID == 0 {
		return nil, ErrOrderItemInvalid
	}
	input.Amount = 1
	sku, err := f.skuRepo.GetByID(input.SKUID)
	if err != nil {
		return nil, err
	}
	if !isSKUPurchasable(sku, constants.ProductTypeSeckill) {
		return nil, ErrProductUnavailable
	}
	window, err := f.campaignRepo.GetSeckillByProduct(sku.ProductID)
	if err != nil {
		return nil, err
	}
	if !window.IsOpen(f.now()) {
		return nil, ErrSeckillNotOpen
	}

	order, err := f.createSingleItemOrder(ctx, input, sku, constants.OrderTypeSeckill)
	if err != nil {
		return nil, err
	}
	f.scheduleClose(order, f.ttl)
	return order, nil
}

func (f *OrderFactory) createSingleItemOrder(ctx context.Context, input CreateCampaignOrderInput, sku *models.ProductSKU, orderType string) (*models.Order, error) {
	var order *models.Order
	err := f.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		created, err := f.createHeader(tx, input.UserID, input.AddressID, "", orderType)
		if err != nil {
			return err
		}
		item, err := f.addItem(tx, created, sku, input.Amount)
		if err != nil {
			return err
		}
		created.TotalAmount = item.Subtotal()
		if err := f.orderRepo.WithTx(tx).Updates(created.ID, map[string]interface{}{
			"total_amount": created.TotalAmount,
		}); err != nil {
			return err
		}
		order = created
		return nil
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

// createHeader 快照地址并以 0 金额落库订单头
func (f *OrderFactory) createHeader(tx *gorm.DB, userID, addressID uint, remark, orderType string) (*models.Order, error) {
	cartRepo := f.cartRepo.WithTx(tx)
	address, err := cartRepo.GetAddress(addressID, userID)
	if err != nil {
		return nil, err
	}
	if address == nil {
		return nil, ErrAddressNotFound
	}
	now := f.now()
	if err := cartRepo.TouchAddress(address.ID, now); err != nil {
		return nil, err
	}

	orderRepo := f.orderRepo.WithTx(tx)
	orderNo, err := uniqueNo(func() string { return generateOrderNo(orderNoPrefix) }, orderRepo.ExistsOrderNo)
	if err != nil {
		return nil, err
	}
	order := &models.Order{
		OrderNo:      orderNo,
		UserID:       userID,
		Type:         orderType,
		Status:       constants.OrderStatusPendingPayment,
		Address:      address.Snapshot(),
		Remark:       remark,
		RefundStatus: constants.RefundStatusPending,
		ShipStatus:   constants.ShipStatusPending,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := orderRepo.Create(order); err != nil {
		return nil, err
	}
	return order, nil
}

// addItem 以当前单价创建订单项并扣减库存
func (f *OrderFactory) addItem(tx *gorm.DB, order *models.Order, sku *models.ProductSKU, amount int) (*models.OrderItem, error) {
	item := models.OrderItem{
		OrderID:   order.ID,
		ProductID: sku.ProductID,
		SKUID:     sku.ID,
		Amount:    amount,
		Price:     sku.Price,
	}
	if err := f.orderRepo.WithTx(tx).CreateItem(&item); err != nil {
		return nil, err
	}
	if err := f.stock.Decrease(tx, sku.ID, amount); err != nil {
		return nil, err
	}
	order.Items = append(order.Items, item)
	return &item, nil
}

func (f *OrderFactory) scheduleClose(order *models.Order, ttl time.Duration) {
	if f.closer == nil || order == nil {
		return
	}
	if err := f.closer.Schedule(order.OrderNo, ttl); err != nil {
		logger.Errorw("order_close_schedule_failed",
			"order_no", order.OrderNo,
			"ttl_seconds", int(ttl.Seconds()),
			"error", err,
		)
	}
}

func isSKUPurchasable(sku *models.ProductSKU, productType string) bool {
	return sku != nil && sku.Product != nil && sku.Product.OnSale && sku.Product.Type == productType
}
