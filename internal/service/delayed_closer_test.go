package service

import (
	"context"
	"testing"

	"github.com/dujiao-next/mall/internal/constants"
	"github.com/dujiao-next/mall/internal/models"
)

func TestDelayedCloserRestoresStockOnce(t *testing.T) {
	env := setupServiceTest(t)
	address := seedAddress(t, env.db, 1)
	sku := seedSKU(t, env.db, constants.ProductTypeNormal, "30.00", 4)
	coupon := seedCoupon(t, env.db, "TENOFF", constants.CouponTypePercent, "10", "0", 10)

	order, err := env.factory.CreateOrder(context.Background(), CreateOrderInput{
		UserID:     1,
		AddressID:  address.ID,
		Items:      []CreateOrderItem{{SKUID: sku.ID, Amount: 2}},
		CouponCode: coupon.Code,
	})
	if err != nil {
		t.Fatalf("create order failed: %v", err)
	}
	if order.TotalAmount.String() != "54.00" {
		t.Fatalf("unexpected total: %s", order.TotalAmount.String())
	}

	closed, err := env.closer.Close(context.Background(), order.OrderNo)
	if err != nil || !closed {
		t.Fatalf("first close failed: closed=%v err=%v", closed, err)
	}
	closed, err = env.closer.Close(context.Background(), order.OrderNo)
	if err != nil || closed {
		t.Fatalf("duplicate close should be a no-op: closed=%v err=%v", closed, err)
	}

	stored := reloadOrder(t, env, order.OrderNo)
	if stored.Status != constants.OrderStatusClosed || stored.ClosedAt == nil {
		t.Fatalf("expected closed order, got %s", stored.Status)
	}
	if stock := stockOf(t, env.db, sku.ID); stock != 4 {
		t.Fatalf("expected stock restored exactly once to 4, got %d", stock)
	}
	var storedCoupon models.CouponCode
	env.db.First(&storedCoupon, coupon.ID)
	if storedCoupon.Used != 0 {
		t.Fatalf("expected coupon usage released, got %d", storedCoupon.Used)
	}
}

func TestDelayedCloserSkipsPaidOrder(t *testing.T) {
	env := setupServiceTest(t)
	order, sku := placeOrder(t, env, 1, "12.00", 1)
	payOrder(t, env, order.OrderNo, constants.PaymentMethodAlipay)

	closed, err := env.closer.Close(context.Background(), order.OrderNo)
	if err != nil || closed {
		t.Fatalf("expected paid order to be skipped: closed=%v err=%v", closed, err)
	}
	stored := reloadOrder(t, env, order.OrderNo)
	if stored.Status != constants.OrderStatusPaid || stored.ClosedAt != nil {
		t.Fatalf("paid order must stay paid, got %s", stored.Status)
	}
	if stock := stockOf(t, env.db, sku.ID); stock != 9 {
		t.Fatalf("expected stock untouched at 9, got %d", stock)
	}
}

func TestDelayedCloserKeepsStockForCrowdfunding(t *testing.T) {
	env := setupServiceTest(t)
	address := seedAddress(t, env.db, 1)
	sku := seedSKU(t, env.db, constants.ProductTypeCrowdfunding, "10.00", 50)
	campaign := &models.CrowdfundingCampaign{
		ProductID:    sku.ProductID,
		TargetAmount: models.MustMoney("100"),
		EndAt:        nowPlusHours(1),
		Status:       constants.CrowdfundingStatusFunding,
	}
	if err := env.db.Create(campaign).Error; err != nil {
		t.Fatalf("create campaign failed: %v", err)
	}
	order, err := env.factory.CreateCrowdfundingOrder(context.Background(), CreateCampaignOrderInput{
		UserID:    1,
		AddressID: address.ID,
		SKUID:     sku.ID,
		Amount:    3,
	})
	if err != nil {
		t.Fatalf("create crowdfunding order failed: %v", err)
	}
	if _, err := env.closer.Close(context.Background(), order.OrderNo); err != nil {
		t.Fatalf("close failed: %v", err)
	}
	if stock := stockOf(t, env.db, sku.ID); stock != 47 {
		t.Fatalf("crowdfunding stock should not be restored, got %d", stock)
	}
}

func TestDelayedCloserMissingOrder(t *testing.T) {
	env := setupServiceTest(t)
	_, err := env.closer.Close(context.Background(), "M404")
	requireErrorIs(t, err, ErrOrderNotFound)
}
