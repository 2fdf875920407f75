package admin

import (
	"strconv"
	"strings"

	"github.com/dujiao-next/mall/internal/http/handlers/shared"
	"github.com/dujiao-next/mall/internal/http/response"
	"github.com/dujiao-next/mall/internal/payment"
	"github.com/dujiao-next/mall/internal/repository"
	"github.com/dujiao-next/mall/internal/service"

	"github.com/gin-gonic/gin"
)

var adminOrderErrorRules = []shared.ErrorRule{
	{Target: service.ErrOrderNotFound, Code: response.CodeNotFound, Message: "订单不存在"},
	{Target: service.ErrCampaignNotFound, Code: response.CodeNotFound, Message: "众筹活动不存在"},
	{Target: service.ErrOrderNotPaid, Code: response.CodeBadRequest, Message: "订单未支付"},
	{Target: service.ErrShipStatusInvalid, Code: response.CodeBadRequest, Message: "物流状态不正确"},
	{Target: service.ErrRefundStatusInvalid, Code: response.CodeBadRequest, Message: "退款状态不正确"},
	{Target: service.ErrCrowdfundingNotEnded, Code: response.CodeBadRequest, Message: "众筹尚未结束"},
	{Target: service.ErrInternalInconsistency, Code: response.CodeConflict, Message: "订单数据异常，需人工处理"},
	{Target: payment.ErrGatewayUnavailable, Code: response.CodeUnavailable, Message: "支付通道繁忙，请稍后重试"},
	{Target: service.ErrInvalidRequest, Code: response.CodeBadRequest, Message: "请求参数错误"},
}

// ShipRequest 发货请求
type ShipRequest struct {
	ShipData map[string]interface{} `json:"ship_data" binding:"required"`
}

// RefundRequest 退款请求
type RefundRequest struct {
	Reason string `json:"reason"`
}

// ListOrders 订单列表，keyword 匹配订单号、物流单号与物流公司
func (h *Handler) ListOrders(c *gin.Context) {
	page, pageSize := shared.QueryPagination(c)
	filter := repository.OrderListFilter{
		Page:     page,
		PageSize: pageSize,
		Status:   strings.TrimSpace(c.Query("status")),
		Type:     strings.TrimSpace(c.Query("type")),
		Keyword:  strings.TrimSpace(c.Query("keyword")),
	}
	if raw := strings.TrimSpace(c.Query("user_id")); raw != "" {
		uid, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			shared.RespondError(c, response.CodeBadRequest, "用户ID无效", nil)
			return
		}
		filter.UserID = uint(uid)
	}
	orders, total, err := h.OrderService.ListForAdmin(filter)
	if err != nil {
		shared.RespondMapped(c, err, adminOrderErrorRules)
		return
	}
	response.SuccessWithPage(c, orders, response.NewPagination(page, pageSize, total))
}

// GetOrder 订单详情
func (h *Handler) GetOrder(c *gin.Context) {
	order, err := h.OrderService.GetForAdmin(c.Param("no"))
	if err != nil {
		shared.RespondMapped(c, err, adminOrderErrorRules)
		return
	}
	response.Success(c, order)
}

// ShipOrder 发货
func (h *Handler) ShipOrder(c *gin.Context) {
	var req ShipRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		shared.RespondError(c, response.CodeBadRequest, "请求参数错误", err)
		return
	}
	order, err := h.OrderService.Ship(c.Request.Context(), c.Param("no"), req.ShipData)
	if err != nil {
		shared.RespondMapped(c, err, adminOrderErrorRules)
		return
	}
	response.Success(c, order)
}

// RefundOrder 同意退款并向网关发起退款
func (h *Handler) RefundOrder(c *gin.Context) {
	var req RefundRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			shared.RespondError(c, response.CodeBadRequest, "请求参数错误", err)
			return
		}
	}
	reason := strings.TrimSpace(req.Reason)
	if reason == "" {
		reason = "管理员退款"
	}
	order, err := h.RefundService.RefundOrder(c.Request.Context(), c.Param("no"), reason)
	if err != nil {
		shared.RespondMapped(c, err, adminOrderErrorRules)
		return
	}
	response.Success(c, order)
}

// SettleCrowdfunding 手动结算众筹活动
func (h *Handler) SettleCrowdfunding(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		shared.RespondError(c, response.CodeBadRequest, "活动 ID 不正确", nil)
		return
	}
	status, err := h.CrowdfundingService.Settle(c.Request.Context(), uint(id))
	if err != nil {
		shared.RespondMapped(c, err, adminOrderErrorRules)
		return
	}
	response.Success(c, gin.H{"campaign_id": id, "status": status})
}
