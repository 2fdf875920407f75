package public

import (
	"context"
	"strings"

	"github.com/dujiao-next/mall/internal/http/handlers/shared"
	"github.com/dujiao-next/mall/internal/http/response"
	"github.com/dujiao-next/mall/internal/models"
	"github.com/dujiao-next/mall/internal/repository"
	"github.com/dujiao-next/mall/internal/service"

	"github.com/gin-gonic/gin"
)

// CreateOrderRequest 创建普通订单请求
type CreateOrderRequest struct {
	AddressID  uint                      `json:"address_id" binding:"required"`
	Remark     string                    `json:"remark"`
	Items      []service.CreateOrderItem `json:"items" binding:"required"`
	CouponCode string                    `json:"coupon_code"`
}

// CampaignOrderRequest 众筹/秒杀下单请求
type CampaignOrderRequest struct {
	AddressID uint `json:"address_id" binding:"required"`
	SKUID     uint `json:"sku_id" binding:"required"`
	Amount    int  `json:"amount" binding:"required"`
}

// ReviewRequest 评价请求
type ReviewRequest struct {
	Reviews []service.ReviewInput `json:"reviews" binding:"required"`
}

// ApplyRefundRequest 申请退款请求
type ApplyRefundRequest struct {
	Reason string `json:"reason" binding:"required"`
}

// CreateOrder 创建普通订单
func (h *Handler) CreateOrder(c *gin.Context) {
	uid, ok := shared.GetUserID(c)
	if !ok {
		return
	}
	var req CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		shared.RespondError(c, response.CodeBadRequest, "请求参数错误", err)
		return
	}
	order, err := h.OrderFactory.CreateOrder(c.Request.Context(), service.CreateOrderInput{
		UserID:     uid,
		AddressID:  req.AddressID,
		Remark:     req.Remark,
		Items:      req.Items,
		CouponCode: strings.TrimSpace(req.CouponCode),
	})
	if err != nil {
		shared.RespondMapped(c, err, orderCreateErrorRules)
		return
	}
	response.Success(c, order)
}

// CreateCrowdfundingOrder 创建众筹订单
func (h *Handler) CreateCrowdfundingOrder(c *gin.Context) {
	h.createCampaignOrder(c, h.OrderFactory.CreateCrowdfundingOrder)
}

// CreateSeckillOrder 创建秒杀订单
func (h *Handler) CreateSeckillOrder(c *gin.Context) {
	h.createCampaignOrder(c, h.OrderFactory.CreateSeckillOrder)
}

func (h *Handler) createCampaignOrder(c *gin.Context, create func(ctx context.Context, input service.CreateCampaignOrderInput) (*models.Order, error)) {
	uid, ok := shared.GetUserID(c)
	if !ok {
		return
	}
	var req CampaignOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		shared.RespondError(c, response.CodeBadRequest, "请求参数错误", err)
		return
	}
	order, err := create(c.Request.Context(), service.CreateCampaignOrderInput{
		UserID:    uid,
		AddressID: req.AddressID,
		SKUID:     req.SKUID,
		Amount:    req.Amount,
	})
	if err != nil {
		shared.RespondMapped(c, err, orderCreateErrorRules)
		return
	}
	response.Success(c, order)
}

// ListOrders 当前用户订单列表
func (h *Handler) ListOrders(c *gin.Context) {
	uid, ok := shared.GetUserID(c)
	if !ok {
		return
	}
	page, pageSize := shared.QueryPagination(c)
	orders, total, err := h.OrderService.ListByUser(repository.OrderListFilter{
		Page:     page,
		PageSize: pageSize,
		UserID:   uid,
		Status:   strings.TrimSpace(c.Query("status")),
		Type:     strings.TrimSpace(c.Query("type")),
	})
	if err != nil {
		shared.RespondMapped(c, err, orderStateErrorRules)
		return
	}
	response.SuccessWithPage(c, orders, response.NewPagination(page, pageSize, total))
}

// GetOrder 订单详情
func (h *Handler) GetOrder(c *gin.Context) {
	uid, ok := shared.GetUserID(c)
	if !ok {
		return
	}
	order, err := h.OrderService.GetByUser(c.Param("no"), uid)
	if err != nil {
		shared.RespondMapped(c, err, orderStateErrorRules)
		return
	}
	response.Success(c, order)
}

// ReceiveOrder 确认收货
func (h *Handler) ReceiveOrder(c *gin.Context) {
	uid, ok := shared.GetUserID(c)
	if !ok {
		return
	}
	order, err := h.OrderService.Received(c.Request.Context(), c.Param("no"), uid)
	if err != nil {
		shared.RespondMapped(c, err, orderStateErrorRules)
		return
	}
	response.Success(c, order)
}

// ReviewOrder 评价订单
func (h *Handler) ReviewOrder(c *gin.Context) {
	uid, ok := shared.GetUserID(c)
	if !ok {
		return
	}
	var req ReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		shared.RespondError(c, response.CodeBadRequest, "请求参数错误", err)
		return
	}
	order, err := h.OrderService.SendReview(c.Request.Context(), c.Param("no"), uid, req.Reviews)
	if err != nil {
		shared.RespondMapped(c, err, orderStateErrorRules)
		return
	}
	response.Success(c, order)
}

// ApplyRefund 申请退款
func (h *Handler) ApplyRefund(c *gin.Context) {
	uid, ok := shared.GetUserID(c)
	if !ok {
		return
	}
	var req ApplyRefundRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		shared.RespondError(c, response.CodeBadRequest, "请求参数错误", err)
		return
	}
	order, err := h.RefundService.ApplyRefund(c.Request.Context(), c.Param("no"), uid, strings.TrimSpace(req.Reason))
	if err != nil {
		shared.RespondMapped(c, err, orderStateErrorRules)
		return
	}
	response.Success(c, order)
}
