package provider

import (
	"fmt"
	"time"

	"github.com/dujiao-next/mall/internal/cache"
	"github.com/dujiao-next/mall/internal/config"
	"github.com/dujiao-next/mall/internal/events"
	"github.com/dujiao-next/mall/internal/logger"
	"github.com/dujiao-next/mall/internal/payment"
	"github.com/dujiao-next/mall/internal/payment/alipay"
	"github.com/dujiao-next/mall/internal/payment/wechatpay"
	"github.com/dujiao-next/mall/internal/queue"
	"github.com/dujiao-next/mall/internal/repository"
	"github.com/dujiao-next/mall/internal/service"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Container 依赖注入容器
type Container struct {
	Config      *config.Config
	DB          *gorm.DB
	QueueClient *queue.Client
	Publisher   events.Publisher
	Gateways    *payment.Registry

	// Repositories
	OrderRepo       repository.OrderRepository
	InstallmentRepo repository.InstallmentRepository
	CampaignRepo    repository.CampaignRepository
	CouponRepo      repository.CouponRepository
	CartRepo        repository.CartRepository
	SKURepo         repository.ProductSKURepository

	// Services
	EventDispatcher      *service.EventDispatcher
	StockLedger          *service.StockLedger
	CouponValidator      *service.CouponValidator
	DelayedCloser        *service.DelayedCloser
	OrderFactory         *service.OrderFactory
	InstallmentScheduler *service.InstallmentScheduler
	PaymentReconciler    *service.PaymentReconciler
	RefundService        *service.RefundService
	CrowdfundingService  *service.CrowdfundingService
	OrderService         *service.OrderService
	PaymentService       *service.PaymentService
}

// NewContainer 初始化容器
func NewContainer(cfg *config.Config, db *gorm.DB) (*Container, error) {
	if cfg == nil || db == nil {
		return nil, fmt.Errorf("provider: config and db are required")
	}
	// 初始化缓存
	if err := cache.InitRedis(&cfg.Redis); err != nil {
		logger.Warnw("provider_init_redis_failed", "error", err)
	}

	// 初始化队列客户端
	queueClient, err := queue.NewClient(&cfg.Queue)
	if err != nil {
		return nil, fmt.Errorf("init queue client: %w", err)
	}

	publisher, err := events.NewPublisher(cfg.Events)
	if err != nil {
		logger.Errorw("provider_init_event_publisher_failed", "driver", cfg.Events.Driver, "error", err)
		publisher = events.NewLogPublisher()
	}

	gateways, err := buildGateways(cfg.Payment)
	if err != nil {
		return nil, err
	}

	c := &Container{
		Config:      cfg,
		DB:          db,
		QueueClient: queueClient,
		Publisher:   publisher,
		Gateways:    gateways,
	}

	// 1. 初始化 Repositories
	c.initRepositories()

	// 2. 初始化 Services
	if err := c.initServices(); err != nil {
		return nil, err
	}
	return c, nil
}

// Close 释放外部连接
func (c *Container) Close() {
	if c == nil {
		return
	}
	if c.Publisher != nil {
		if err := c.Publisher.Close(); err != nil {
			logger.Warnw("provider_close_publisher_failed", "error", err)
		}
	}
	if c.QueueClient != nil {
		if err := c.QueueClient.Close(); err != nil {
			logger.Warnw("provider_close_queue_client_failed", "error", err)
		}
	}
	if err := cache.Close(); err != nil {
		logger.Warnw("provider_close_redis_failed", "error", err)
	}
}

func (c *Container) initRepositories() {
	db := c.DB
	c.OrderRepo = repository.NewOrderRepository(db)
	c.InstallmentRepo = repository.NewInstallmentRepository(db)
	c.CampaignRepo = repository.NewCampaignRepository(db)
	c.CouponRepo = repository.NewCouponRepository(db)
	c.CartRepo = repository.NewCartRepository(db)
	c.SKURepo = repository.NewProductSKURepository(db)
}

func (c *Container) initServices() error {
	cfg := c.Config
	// 队列关闭时不投递任务，众筹退款改为同步执行
	var jobs service.JobQueue
	if c.QueueClient.Enabled() {
		jobs = c.QueueClient
	} else {
		logger.Warnw("provider_queue_disabled", "effect", "orders are not auto-closed")
	}

	feeRates, err := service.ParseFeeRates(cfg.Order.InstallmentFeeRates)
	if err != nil {
		return fmt.Errorf("order.installment_fee_rates: %w", err)
	}
	var callbacks service.CallbackCache
	if cache.Enabled() {
		callbacks = cache.NewCallbackCache(0)
	}
	notifyURL := service.URLBuilder(cfg.Server.NotifyURL)
	ttl := time.Duration(cfg.Order.TTLSeconds) * time.Second

	c.EventDispatcher = service.NewEventDispatcher(c.Publisher, jobs)
	c.StockLedger = service.NewStockLedger(c.SKURepo)
	c.CouponValidator = service.NewCouponValidator(c.CouponRepo, c.OrderRepo)
	c.DelayedCloser = service.NewDelayedCloser(c.DB, c.OrderRepo, c.InstallmentRepo, c.StockLedger, c.CouponValidator, jobs)
	c.OrderFactory = service.NewOrderFactory(c.DB, c.OrderRepo, c.SKURepo, c.CartRepo, c.CampaignRepo, c.StockLedger, c.CouponValidator, c.DelayedCloser, ttl)
	c.InstallmentScheduler = service.NewInstallmentScheduler(c.DB, c.OrderRepo, c.InstallmentRepo, c.Gateways, service.InstallmentOptions{
		FeeRates:  feeRates,
		MinAmount: decimal.NewFromFloat(cfg.Order.InstallmentMinAmount),
		NotifyURL: notifyURL,
	})
	c.PaymentReconciler = service.NewPaymentReconciler(c.DB, c.OrderRepo, c.InstallmentRepo, c.CampaignRepo, c.InstallmentScheduler, c.Gateways, c.EventDispatcher, service.ReconcilerOptions{
		RefundSuccessStatuses: cfg.Payment.RefundSuccessStatuses,
		Cache:                 callbacks,
	})
	c.RefundService = service.NewRefundService(c.DB, c.OrderRepo, c.InstallmentRepo, c.InstallmentScheduler, c.Gateways, notifyURL)
	c.CrowdfundingService = service.NewCrowdfundingService(c.DB, c.CampaignRepo, c.OrderRepo, c.RefundService, jobs)
	c.OrderService = service.NewOrderService(c.DB, c.OrderRepo, c.EventDispatcher)
	c.PaymentService = service.NewPaymentService(c.OrderRepo, c.InstallmentRepo, c.CampaignRepo, c.Gateways, notifyURL)
	return nil
}

func buildGateways(cfg config.PaymentConfig) (*payment.Registry, error) {
	gateways := make([]payment.Gateway, 0, 2)
	if cfg.Alipay.Enabled {
		gw, err := alipay.New(cfg.Alipay.Config, payment.NewBreaker("alipay", cfg.Breaker))
		if err != nil {
			return nil, fmt.Errorf("payment.alipay: %w", err)
		}
		gateways = append(gateways, gw)
	}
	if cfg.Wechat.Enabled {
		gw, err := wechatpay.New(cfg.Wechat.Config, payment.NewBreaker("wechat", cfg.Breaker))
		if err != nil {
			return nil, fmt.Errorf("payment.wechat: %w", err)
		}
		gateways = append(gateways, gw)
	}
	registry := payment.NewRegistry(gateways...)
	logger.Infow("provider_payment_gateways_ready", "methods", registry.Methods())
	return registry, nil
}
