package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/dujiao-next/mall/internal/constants"
	"github.com/dujiao-next/mall/internal/events"
	"github.com/dujiao-next/mall/internal/models"
	"github.com/dujiao-next/mall/internal/payment"
	"github.com/dujiao-next/mall/internal/queue"
	"github.com/dujiao-next/mall/internal/repository"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type fakeJobQueue struct {
	mu      sync.Mutex
	closes  []queue.OrderClosePayload
	delays  []time.Duration
	refunds []uint
	events  []events.Event
}

func (q *fakeJobQueue) EnqueueOrderClose(payload queue.OrderClosePayload, delay time.Duration) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closes = append(q.closes, payload)
	q.delays = append(q.delays, delay)
	return nil
}

func (q *fakeJobQueue) EnqueueCrowdfundingRefund(payload queue.CrowdfundingRefundPayload) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.refunds = append(q.refunds, payload.CampaignID)
	return nil
}

func (q *fakeJobQueue) EnqueueEventPublish(payload queue.EventPublishPayload) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.events = append(q.events, payload.Event)
	return nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, evt events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, evt)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) names() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	names := make([]string, 0, len(p.events))
	for _, evt := range p.events {
		names = append(names, evt.Name)
	}
	return names
}

// fakeGateway 记录调用并按预设结果返回
type fakeGateway struct {
	kind         string
	mu           sync.Mutex
	initiated    []payment.InitiateInput
	refunds      []payment.RefundInput
	refundResult payment.RefundResult
	refundErr    error
	refundErrAt  int // 第 N 次退款调用失败，从 1 开始
	verified     *payment.VerifiedPayment
	verifiedRef  *payment.VerifiedRefund
}

func (g *fakeGateway) Kind() string { return g.kind }

func (g *fakeGateway) Initiate(_ context.Context, input payment.InitiateInput) (*payment.InitiateResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.initiated = append(g.initiated, input)
	return &payment.InitiateResult{TargetType: payment.TargetRedirect, Target: "https://pay.example.com/" + input.Reference}, nil
}

func (g *fakeGateway) VerifyCallback(_ context.Context, _ payment.CallbackRequest) (*payment.VerifiedPayment, error) {
	if g.verified == nil {
		return nil, payment.ErrSignatureInvalid
	}
	return g.verified, nil
}

func (g *fakeGateway) AcknowledgeSuccess() payment.Ack {
	return payment.Ack{StatusCode: 200, ContentType: "text/plain", Body: []byte("success")}
}

func (g *fakeGateway) AcknowledgeFailure() payment.Ack {
	return payment.Ack{StatusCode: 200, ContentType: "text/plain", Body: []byte("fail")}
}

func (g *fakeGateway) InitiateRefund(_ context.Context, input payment.RefundInput) (*payment.RefundResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.refunds = append(g.refunds, input)
	if g.refundErr != nil {
		return nil, g.refundErr
	}
	if g.refundErrAt > 0 && len(g.refunds) == g.refundErrAt {
		return nil, errors.New("connection reset")
	}
	result := g.refundResult
	return &result, nil
}

func (g *fakeGateway) VerifyRefundCallback(_ context.Context, _ payment.CallbackRequest) (*payment.VerifiedRefund, error) {
	if g.verifiedRef == nil {
		return nil, payment.ErrSignatureInvalid
	}
	return g.verifiedRef, nil
}

type testEnv struct {
	db           *gorm.DB
	orderRepo    *repository.GormOrderRepository
	jobs         *fakeJobQueue
	publisher    *recordingPublisher
	alipay       *fakeGateway
	wechat       *fakeGateway
	coupons      *CouponValidator
	closer       *DelayedCloser
	factory      *OrderFactory
	installments *InstallmentScheduler
	reconciler   *PaymentReconciler
	refunds      *RefundService
	crowdfunding *CrowdfundingService
	orders       *OrderService
	payments     *PaymentService
}

func setupServiceTest(t *testing.T) *testEnv {
	t.Helper()
	dsn := fmt.Sprintf("file:service_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("get sql db failed: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	if err := models.AutoMigrate(db); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}

	orderRepo := repository.NewOrderRepository(db)
	skuRepo := repository.NewProductSKURepository(db)
	cartRepo := repository.NewCartRepository(db)
	couponRepo := repository.NewCouponRepository(db)
	campaignRepo := repository.NewCampaignRepository(db)
	installmentRepo := repository.NewInstallmentRepository(db)

	jobs := &fakeJobQueue{}
	publisher := &recordingPublisher{}
	alipay := &fakeGateway{kind: constants.PaymentMethodAlipay, refundResult: payment.RefundResult{Status: constants.RefundStatusSuccess}}
	wechat := &fakeGateway{kind: constants.PaymentMethodWechat, refundResult: payment.RefundResult{Async: true, Status: constants.RefundStatusProcessing}}
	gateways := payment.NewRegistry(alipay, wechat)
	notifyURL := func(path string) string { return "https://mall.example.com/api/v1/" + path }

	dispatcher := NewEventDispatcher(publisher, jobs)
	stock := NewStockLedger(skuRepo)
	coupons := NewCouponValidator(couponRepo, orderRepo)
	closer := NewDelayedCloser(db, orderRepo, installmentRepo, stock, coupons, jobs)
	factory := NewOrderFactory(db, orderRepo, skuRepo, cartRepo, campaignRepo, stock, coupons, closer, 30*time.Minute)
	installments := NewInstallmentScheduler(db, orderRepo, installmentRepo, gateways, InstallmentOptions{
		FeeRates: map[int]decimal.Decimal{
			3:  decimal.RequireFromString("1.5"),
			6:  decimal.NewFromInt(1),
			12: decimal.RequireFromString("0.5"),
		},
		MinAmount: decimal.NewFromInt(100),
		NotifyURL: notifyURL,
	})
	reconciler := NewPaymentReconciler(db, orderRepo, installmentRepo, campaignRepo, installments, gateways, dispatcher, ReconcilerOptions{})
	refunds := NewRefundService(db, orderRepo, installmentRepo, installments, gateways, notifyURL)

	return &testEnv{
		db:           db,
		orderRepo:    orderRepo,
		jobs:         jobs,
		publisher:    publisher,
		alipay:       alipay,
		wechat:       wechat,
		coupons:      coupons,
		closer:       closer,
		factory:      factory,
		installments: installments,
		reconciler:   reconciler,
		refunds:      refunds,
		crowdfunding: NewCrowdfundingService(db, campaignRepo, orderRepo, refunds, jobs),
		orders:       NewOrderService(db, orderRepo, dispatcher),
		payments:     NewPaymentService(orderRepo, installmentRepo, campaignRepo, gateways, notifyURL),
	}
}

func seedAddress(t *testing.T, db *gorm.DB, userID uint) *models.UserAddress {
	t.Helper()
	address := &models.UserAddress{
		UserID:       userID,
		Province:     "浙江省",
		City:         "杭州市",
		District:     "西湖区",
		Address:      "文三路 1 号",
		Zip:          "310000",
		ContactName:  "张三",
		ContactPhone: "13800000000",
	}
	if err := db.Create(address).Error; err != nil {
		t.Fatalf("create address failed: %v", err)
	}
	return address
}

func seedSKU(t *testing.T, db *gorm.DB, productType, price string, stock int) *models.ProductSKU {
	t.Helper()
	product := &models.Product{Type: productType, Title: "测试商品", OnSale: true}
	if err := db.Create(product).Error; err != nil {
		t.Fatalf("create product failed: %v", err)
	}
	sku := &models.ProductSKU{
		ProductID: product.ID,
		Title:     "默认规格",
		Price:     models.MustMoney(price),
		Stock:     stock,
	}
	if err := db.Create(sku).Error; err != nil {
		t.Fatalf("create sku failed: %v", err)
	}
	return sku
}

func seedCoupon(t *testing.T, db *gorm.DB, code, couponType, value, minAmount string, total int) *models.CouponCode {
	t.Helper()
	coupon := &models.CouponCode{
		Name:      code,
		Code:      code,
		Type:      couponType,
		Value:     models.MustMoney(value),
		MinAmount: models.MustMoney(minAmount),
		Total:     total,
		Enabled:   true,
	}
	if err := db.Create(coupon).Error; err != nil {
		t.Fatalf("create coupon failed: %v", err)
	}
	return coupon
}

func stockOf(t *testing.T, db *gorm.DB, skuID uint) int {
	t.Helper()
	var sku models.ProductSKU
	if err := db.First(&sku, skuID).Error; err != nil {
		t.Fatalf("load sku failed: %v", err)
	}
	return sku.Stock
}

func reloadOrder(t *testing.T, env *testEnv, orderNo string) *models.Order {
	t.Helper()
	order, err := env.orderRepo.GetByOrderNo(orderNo)
	if err != nil || order == nil {
		t.Fatalf("load order %s failed: %v", orderNo, err)
	}
	return order
}

// placeOrder 下一笔普通订单
func placeOrder(t *testing.T, env *testEnv, userID uint, price string, amount int) (*models.Order, *models.ProductSKU) {
	t.Helper()
	address := seedAddress(t, env.db, userID)
	sku := seedSKU(t, env.db, constants.ProductTypeNormal, price, 10)
	order, err := env.factory.CreateOrder(context.Background(), CreateOrderInput{
		UserID:    userID,
		AddressID: address.ID,
		Items:     []CreateOrderItem{{SKUID: sku.ID, Amount: amount}},
	})
	if err != nil {
		t.Fatalf("create order failed: %v", err)
	}
	return order, sku
}

func payOrder(t *testing.T, env *testEnv, reference, method string) *ApplyResult {
	t.Helper()
	result, err := env.reconciler.ApplyPayment(context.Background(), PaymentNotice{
		Reference:     reference,
		Method:        method,
		TransactionID: "TX" + reference,
	})
	if err != nil {
		t.Fatalf("apply payment %s failed: %v", reference, err)
	}
	return result
}

func requireErrorIs(t *testing.T, err, target error) {
	t.Helper()
	if !errors.Is(err, target) {
		t.Fatalf("expected error %v, got %v", target, err)
	}
}

func nowPlusHours(hours int) time.Time {
	return time.Now().Add(time.Duration(hours) * time.Hour)
}
