package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/dujiao-next/mall/internal/constants"
	"github.com/dujiao-next/mall/internal/models"
)

func TestCreateOrderDeductsStockAndSchedulesClose(t *testing.T) {
	env := setupServiceTest(t)
	address := seedAddress(t, env.db, 1)
	sku := seedSKU(t, env.db, constants.ProductTypeNormal, "10.50", 5)
	if err := env.db.Create(&models.CartItem{UserID: 1, SKUID: sku.ID, Amount: 2}).Error; err != nil {
		t.Fatalf("create cart item failed: %v", err)
	}

	order, err := env.factory.CreateOrder(context.Background(), CreateOrderInput{
		UserID:    1,
		AddressID: address.ID,
		Remark:    "请尽快发货",
		Items:     []CreateOrderItem{{SKUID: sku.ID, Amount: 2}},
	})
	if err != nil {
		t.Fatalf("create order failed: %v", err)
	}
	if order.TotalAmount.String() != "21.00" {
		t.Fatalf("unexpected total: %s", order.TotalAmount.String())
	}
	if order.Status != constants.OrderStatusPendingPayment || order.Type != constants.OrderTypeNormal {
		t.Fatalf("unexpected order state: %s/%s", order.Status, order.Type)
	}
	if stock := stockOf(t, env.db, sku.ID); stock != 3 {
		t.Fatalf("expected stock 3, got %d", stock)
	}

	stored := reloadOrder(t, env, order.OrderNo)
	if len(stored.Items) != 1 || stored.Items[0].Price.String() != "10.50" {
		t.Fatalf("unexpected stored items: %+v", stored.Items)
	}
	if stored.Address.Address != "浙江省杭州市西湖区文三路 1 号" || stored.Address.ContactName != "张三" {
		t.Fatalf("unexpected address snapshot: %+v", stored.Address)
	}

	var cartCount int64
	env.db.Model(&models.CartItem{}).Where("user_id = ?", 1).Count(&cartCount)
	if cartCount != 0 {
		t.Fatalf("expected cart cleared, got %d", cartCount)
	}
	var touched models.UserAddress
	env.db.First(&touched, address.ID)
	if touched.LastUsedAt == nil {
		t.Fatalf("expected address last_used_at to be set")
	}

	if len(env.jobs.closes) != 1 || env.jobs.closes[0].OrderNo != order.OrderNo {
		t.Fatalf("expected close job for %s, got %+v", order.OrderNo, env.jobs.closes)
	}
	if env.jobs.delays[0] != 30*time.Minute {
		t.Fatalf("unexpected close delay: %s", env.jobs.delays[0])
	}
}

func TestCreateOrderRollsBackOnInsufficientStock(t *testing.T) {
	env := setupServiceTest(t)
	address := seedAddress(t, env.db, 1)
	first := seedSKU(t, env.db, constants.ProductTypeNormal, "5.00", 10)
	second := seedSKU(t, env.db, constants.ProductTypeNormal, "8.00", 1)

	_, err := env.factory.CreateOrder(context.Background(), CreateOrderInput{
		UserID:    1,
		AddressID: address.ID,
		Items: []CreateOrderItem{
			{SKUID: first.ID, Amount: 3},
			{SKUID: second.ID, Amount: 2},
		},
	})
	requireErrorIs(t, err, ErrInsufficientStock)

	if stock := stockOf(t, env.db, first.ID); stock != 10 {
		t.Fatalf("expected first sku stock restored to 10, got %d", stock)
	}
	var orders, items int64
	env.db.Model(&models.Order{}).Count(&orders)
	env.db.Model(&models.OrderItem{}).Count(&items)
	if orders != 0 || items != 0 {
		t.Fatalf("expected no persisted order rows, got %d orders %d items", orders, items)
	}
	if len(env.jobs.closes) != 0 {
		t.Fatalf("expected no close job, got %d", len(env.jobs.closes))
	}
}

func TestCreateOrderConcurrentLastUnit(t *testing.T) {
	env := setupServiceTest(t)
	sku := seedSKU(t, env.db, constants.ProductTypeNormal, "99.00", 1)
	const buyers = 6
	addresses := make([]*models.UserAddress, buyers)
	for i := range addresses {
		addresses[i] = seedAddress(t, env.db, uint(i+1))
	}

	var wg sync.WaitGroup
	var mu sync.Mutex
	succeeded, outOfStock := 0, 0
	for i := 0; i < buyers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := env.factory.CreateOrder(context.Background(), CreateOrderInput{
				UserID:    uint(i + 1),
				AddressID: addresses[i].ID,
				Items:     []CreateOrderItem{{SKUID: sku.ID, Amount: 1}},
			})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded++
			case errors.Is(err, ErrInsufficientStock):
				outOfStock++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(i)
	}
	wg.Wait()

	if succeeded != 1 || outOfStock != buyers-1 {
		t.Fatalf("expected 1 success and %d out of stock, got %d/%d", buyers-1, succeeded, outOfStock)
	}
	if stock := stockOf(t, env.db, sku.ID); stock != 0 {
		t.Fatalf("expected stock 0, got %d", stock)
	}
}

func TestCreateOrderAppliesCouponOncePerUser(t *testing.T) {
	env := setupServiceTest(t)
	address := seedAddress(t, env.db, 1)
	sku := seedSKU(t, env.db, constants.ProductTypeNormal, "20.00", 10)
	coupon := seedCoupon(t, env.db, "SAVE5", constants.CouponTypeFixed, "5", "10", 100)

	input := CreateOrderInput{
		UserID:     1,
		AddressID:  address.ID,
		Items:      []CreateOrderItem{{SKUID: sku.ID, Amount: 1}},
		CouponCode: "SAVE5",
	}
	order, err := env.factory.CreateOrder(context.Background(), input)
	if err != nil {
		t.Fatalf("create order failed: %v", err)
	}
	if order.TotalAmount.String() != "15.00" {
		t.Fatalf("unexpected discounted total: %s", order.TotalAmount.String())
	}
	if order.CouponID == nil || *order.CouponID != coupon.ID {
		t.Fatalf("expected coupon bound to order")
	}
	var stored models.CouponCode
	env.db.First(&stored, coupon.ID)
	if stored.Used != 1 {
		t.Fatalf("expected coupon used 1, got %d", stored.Used)
	}

	_, err = env.factory.CreateOrder(context.Background(), input)
	requireErrorIs(t, err, ErrCouponUsed)
	requireErrorIs(t, err, ErrCouponUnavailable)
	if stock := stockOf(t, env.db, sku.ID); stock != 9 {
		t.Fatalf("expected stock 9 after rejected coupon order, got %d", stock)
	}
}

func TestCreateOrderConcurrentLastCoupon(t *testing.T) {
	env := setupServiceTest(t)
	sku := seedSKU(t, env.db, constants.ProductTypeNormal, "20.00", 10)
	coupon := seedCoupon(t, env.db, "ONLYONE", constants.CouponTypeFixed, "5", "0", 1)
	const buyers = 2
	addresses := make([]*models.UserAddress, buyers)
	for i := range addresses {
		addresses[i] = seedAddress(t, env.db, uint(i+1))
	}

	var wg sync.WaitGroup
	var mu sync.Mutex
	succeeded, rejected := 0, 0
	for i := 0; i < buyers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := env.factory.CreateOrder(context.Background(), CreateOrderInput{
				UserID:     uint(i + 1),
				AddressID:  addresses[i].ID,
				Items:      []CreateOrderItem{{SKUID: sku.ID, Amount: 1}},
				CouponCode: "ONLYONE",
			})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded++
			case errors.Is(err, ErrCouponExhausted), errors.Is(err, ErrCouponSoldOut):
				rejected++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(i)
	}
	wg.Wait()

	if succeeded != 1 || rejected != 1 {
		t.Fatalf("expected 1 success and 1 rejection, got %d/%d", succeeded, rejected)
	}
	var orders int64
	env.db.Model(&models.Order{}).Count(&orders)
	if orders != 1 {
		t.Fatalf("expected one persisted order, got %d", orders)
	}
	var stored models.CouponCode
	env.db.First(&stored, coupon.ID)
	if stored.Used != 1 {
		t.Fatalf("expected coupon used 1, got %d", stored.Used)
	}
	if stock := stockOf(t, env.db, sku.ID); stock != 9 {
		t.Fatalf("expected stock 9, got %d", stock)
	}
}

func TestCreateOrderCouponTakenAfterPrecheck(t *testing.T) {
	env := setupServiceTest(t)
	address := seedAddress(t, env.db, 2)
	sku := seedSKU(t, env.db, constants.ProductTypeNormal, "20.00", 10)
	coupon := seedCoupon(t, env.db, "ONLYONE", constants.CouponTypeFixed, "5", "0", 1)

	// 预校验通过后，另一笔订单抢走最后一个名额
	var once sync.Once
	env.coupons.now = func() time.Time {
		once.Do(func() {
			if err := env.db.Model(&models.CouponCode{}).Where("id = ?", coupon.ID).Update("used", 1).Error; err != nil {
				t.Fatalf("take coupon failed: %v", err)
			}
		})
		return time.Now()
	}

	_, err := env.factory.CreateOrder(context.Background(), CreateOrderInput{
		UserID:     2,
		AddressID:  address.ID,
		Items:      []CreateOrderItem{{SKUID: sku.ID, Amount: 1}},
		CouponCode: "ONLYONE",
	})
	requireErrorIs(t, err, ErrCouponExhausted)

	var orders int64
	env.db.Model(&models.Order{}).Where("user_id = ?", 2).Count(&orders)
	if orders != 0 {
		t.Fatalf("rejected order must not persist, got %d", orders)
	}
	if stock := stockOf(t, env.db, sku.ID); stock != 10 {
		t.Fatalf("expected stock untouched at 10, got %d", stock)
	}
	var stored models.CouponCode
	env.db.First(&stored, coupon.ID)
	if stored.Used != 1 {
		t.Fatalf("expected coupon used 1, got %d", stored.Used)
	}
}

func TestCreateOrderCouponMinAmountRollsBack(t *testing.T) {
	env := setupServiceTest(t)
	address := seedAddress(t, env.db, 1)
	sku := seedSKU(t, env.db, constants.ProductTypeNormal, "20.00", 10)
	seedCoupon(t, env.db, "BIG", constants.CouponTypePercent, "10", "50", 100)

	_, err := env.factory.CreateOrder(context.Background(), CreateOrderInput{
		UserID:     1,
		AddressID:  address.ID,
		Items:      []CreateOrderItem{{SKUID: sku.ID, Amount: 2}},
		CouponCode: "BIG",
	})
	requireErrorIs(t, err, ErrCouponMinAmount)
	if stock := stockOf(t, env.db, sku.ID); stock != 10 {
		t.Fatalf("expected stock 10, got %d", stock)
	}
}

func TestCreateOrderRejectsUnknownCouponAndAddress(t *testing.T) {
	env := setupServiceTest(t)
	address := seedAddress(t, env.db, 1)
	sku := seedSKU(t, env.db, constants.ProductTypeNormal, "20.00", 10)

	_, err := env.factory.CreateOrder(context.Background(), CreateOrderInput{
		UserID:     1,
		AddressID:  address.ID,
		Items:      []CreateOrderItem{{SKUID: sku.ID, Amount: 1}},
		CouponCode: "MISSING",
	})
	requireErrorIs(t, err, ErrCouponNotFound)

	_, err = env.factory.CreateOrder(context.Background(), CreateOrderInput{
		UserID:    2,
		AddressID: address.ID,
		Items:     []CreateOrderItem{{SKUID: sku.ID, Amount: 1}},
	})
	requireErrorIs(t, err, ErrAddressNotFound)
	if stock := stockOf(t, env.db, sku.ID); stock != 10 {
		t.Fatalf("expected stock untouched, got %d", stock)
	}
}

func TestCreateOrderRejectsCampaignProducts(t *testing.T) {
	env := setupServiceTest(t)
	address := seedAddress(t, env.db, 1)
	sku := seedSKU(t, env.db, constants.ProductTypeSeckill, "1.00", 10)

	_, err := env.factory.CreateOrder(context.Background(), CreateOrderInput{
		UserID:    1,
		AddressID: address.ID,
		Items:     []CreateOrderItem{{SKUID: sku.ID, Amount: 1}},
	})
	requireErrorIs(t, err, ErrProductUnavailable)
}

func TestCreateCrowdfundingOrderCapsCloseDelay(t *testing.T) {
	env := setupServiceTest(t)
	address := seedAddress(t, env.db, 1)
	sku := seedSKU(t, env.db, constants.ProductTypeCrowdfunding, "50.00", 100)
	campaign := &models.CrowdfundingCampaign{
		ProductID:    sku.ProductID,
		TargetAmount: models.MustMoney("1000"),
		EndAt:        time.Now().Add(10 * time.Minute),
		Status:       constants.CrowdfundingStatusFunding,
	}
	if err := env.db.Create(campaign).Error; err != nil {
		t.Fatalf("create campaign failed: %v", err)
	}

	order, err := env.factory.CreateCrowdfundingOrder(context.Background(), CreateCampaignOrderInput{
		UserID:    1,
		AddressID: address.ID,
		SKUID:     sku.ID,
		Amount:    2,
	})
	if err != nil {
		t.Fatalf("create crowdfunding order failed: %v", err)
	}
	if order.Type != constants.OrderTypeCrowdfunding || order.TotalAmount.String() != "100.00" {
		t.Fatalf("unexpected order: %s %s", order.Type, order.TotalAmount.String())
	}
	if len(env.jobs.delays) != 1 || env.jobs.delays[0] > 10*time.Minute {
		t.Fatalf("expected close delay capped at campaign end, got %+v", env.jobs.delays)
	}

	env.db.Model(&models.CrowdfundingCampaign{}).Where("id = ?", campaign.ID).Update("end_at", time.Now().Add(-time.Minute))
	_, err = env.factory.CreateCrowdfundingOrder(context.Background(), CreateCampaignOrderInput{
		UserID:    1,
		AddressID: address.ID,
		SKUID:     sku.ID,
		Amount:    1,
	})
	requireErrorIs(t, err, ErrCrowdfundingEnded)
}

func TestCreateSeckillOrderLimitsToOneUnit(t *testing.T) {
	env := setupServiceTest(t)
	address := seedAddress(t, env.db, 1)
	sku := seedSKU(t, env.db, constants.ProductTypeSeckill, "9.90", 5)
	window := &models.SeckillWindow{
		ProductID: sku.ProductID,
		StartAt:   time.Now().Add(-time.Minute),
		EndAt:     time.Now().Add(time.Hour),
	}
	if err := env.db.Create(window).Error; err != nil {
		t.Fatalf("create seckill window failed: %v", err)
	}

	order, err := env.factory.CreateSeckillOrder(context.Background(), CreateCampaignOrderInput{
		UserID:    1,
		AddressID: address.ID,
		SKUID:     sku.ID,
		Amount:    3,
	})
	if err != nil {
		t.Fatalf("create seckill order failed: %v", err)
	}
	if order.TotalAmount.String() != "9.90" || len(order.Items) != 1 || order.Items[0].Amount != 1 {
		t.Fatalf("unexpected seckill order: %+v", order)
	}
	if stock := stockOf(t, env.db, sku.ID); stock != 4 {
		t.Fatalf("expected stock 4, got %d", stock)
	}

	env.factory.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	_, err = env.factory.CreateSeckillOrder(context.Background(), CreateCampaignOrderInput{
		UserID:    1,
		AddressID: address.ID,
		SKUID:     sku.ID,
	})
	requireErrorIs(t, err, ErrSeckillNotOpen)
}
