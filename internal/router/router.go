package router

import (
	"github.com/dujiao-next/mall/internal/cache"
	"github.com/dujiao-next/mall/internal/config"
	"github.com/dujiao-next/mall/internal/constants"
	adminhandlers "github.com/dujiao-next/mall/internal/http/handlers/admin"
	publichandlers "github.com/dujiao-next/mall/internal/http/handlers/public"
	"github.com/dujiao-next/mall/internal/http/response"
	"github.com/dujiao-next/mall/internal/logger"
	"github.com/dujiao-next/mall/internal/provider"

	"github.com/gin-gonic/gin"
)

// SetupRouter 初始化路由
func SetupRouter(cfg *config.Config, c *provider.Container) *gin.Engine {
	r := gin.New()

	publicHandler := publichandlers.New(c)
	adminHandler := adminhandlers.New(c)

	callbackRule := RateLimitRule{
		Prefix:        cache.Key("rate:callback"),
		WindowSeconds: cfg.Server.RateLimit.WindowSeconds,
		MaxRequests:   cfg.Server.RateLimit.MaxRequests,
	}
	var callbackLimit gin.HandlerFunc = func(c *gin.Context) { c.Next() }
	if cfg.Server.RateLimit.Enabled {
		callbackLimit = RateLimitMiddleware(cache.Client(), callbackRule, KeyByIPAndPath)
	}

	// 中间件
	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())
	r.Use(LoggerMiddleware(logger.Z()))
	r.Use(CORSMiddleware(cfg.CORS))

	r.GET("/healthz", func(c *gin.Context) {
		response.Success(c, gin.H{"status": "ok"})
	})

	apiV1 := r.Group("/api/v1")
	{
		// 网关回调（验签代替鉴权）
		callbacks := apiV1.Group("", callbackLimit)
		{
			for _, prefix := range []string{"/payment", "/installments"} {
				callbacks.POST(prefix+"/alipay/notify", publicHandler.PaymentNotify(constants.PaymentMethodAlipay))
				callbacks.POST(prefix+"/wechat/notify", publicHandler.PaymentNotify(constants.PaymentMethodWechat))
				callbacks.POST(prefix+"/wechat/refund_notify", publicHandler.RefundNotify(constants.PaymentMethodWechat))
			}
		}

		user := apiV1.Group("")
		user.Use(JWTAuthMiddleware(cfg.JWT.SecretKey, false))
		{
			user.POST("/orders", publicHandler.CreateOrder)
			user.POST("/crowdfunding_orders", publicHandler.CreateCrowdfundingOrder)
			user.POST("/seckill_orders", publicHandler.CreateSeckillOrder)
			user.GET("/orders", publicHandler.ListOrders)
			user.GET("/orders/:no", publicHandler.GetOrder)
			user.POST("/orders/:no/received", publicHandler.ReceiveOrder)
			user.POST("/orders/:no/review", publicHandler.ReviewOrder)
			user.POST("/orders/:no/apply_refund", publicHandler.ApplyRefund)
			user.POST("/orders/:no/pay/:method", publicHandler.PayOrder)
			user.POST("/orders/:no/installment", publicHandler.CreateInstallment)
			user.GET("/installments/:no", publicHandler.GetInstallment)
			user.POST("/installments/:no/pay/:method", publicHandler.PayInstallment)
		}

		admin := apiV1.Group("/admin")
		admin.Use(JWTAuthMiddleware(cfg.JWT.SecretKey, true))
		{
			admin.GET("/orders", adminHandler.ListOrders)
			admin.GET("/orders/:no", adminHandler.GetOrder)
			admin.POST("/orders/:no/ship", adminHandler.ShipOrder)
			admin.POST("/orders/:no/refund", adminHandler.RefundOrder)
			admin.POST("/crowdfunding/:id/settle", adminHandler.SettleCrowdfunding)
		}
	}

	return r
}
