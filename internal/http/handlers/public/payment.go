package public

import (
	"strings"

	"github.com/dujiao-next/mall/internal/http/handlers/shared"
	"github.com/dujiao-next/mall/internal/http/response"
	"github.com/dujiao-next/mall/internal/service"

	"github.com/gin-gonic/gin"
)

// PayRequest 发起支付请求
type PayRequest struct {
	ReturnURL string `json:"return_url"`
}

// CreateInstallmentRequest 创建分期请求
type CreateInstallmentRequest struct {
	Count int `json:"count" binding:"required"`
}

// PayOrder 为订单发起一次性支付
func (h *Handler) PayOrder(c *gin.Context) {
	uid, ok := shared.GetUserID(c)
	if !ok {
		return
	}
	var req PayRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			shared.RespondError(c, response.CodeBadRequest, "请求参数错误", err)
			return
		}
	}
	result, err := h.PaymentService.PayOrder(c.Request.Context(), service.PayOrderInput{
		OrderNo:   c.Param("no"),
		UserID:    uid,
		Method:    c.Param("method"),
		ClientIP:  c.ClientIP(),
		ReturnURL: strings.TrimSpace(req.ReturnURL),
	})
	if err != nil {
		shared.RespondMapped(c, err, orderStateErrorRules, paymentGatewayErrorRules)
		return
	}
	response.Success(c, result)
}

// CreateInstallment 为订单创建分期计划
func (h *Handler) CreateInstallment(c *gin.Context) {
	uid, ok := shared.GetUserID(c)
	if !ok {
		return
	}
	var req CreateInstallmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		shared.RespondError(c, response.CodeBadRequest, "请求参数错误", err)
		return
	}
	installment, err := h.InstallmentScheduler.CreatePlan(c.Request.Context(), c.Param("no"), uid, req.Count)
	if err != nil {
		shared.RespondMapped(c, err, orderStateErrorRules)
		return
	}
	response.Success(c, installment)
}

// GetInstallment 分期详情
func (h *Handler) GetInstallment(c *gin.Context) {
	uid, ok := shared.GetUserID(c)
	if !ok {
		return
	}
	installment, err := h.InstallmentScheduler.Get(c.Param("no"), uid)
	if err != nil {
		shared.RespondMapped(c, err, orderStateErrorRules)
		return
	}
	response.Success(c, installment)
}

// PayInstallment 支付下一期
func (h *Handler) PayInstallment(c *gin.Context) {
	uid, ok := shared.GetUserID(c)
	if !ok {
		return
	}
	var req PayRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			shared.RespondError(c, response.CodeBadRequest, "请求参数错误", err)
			return
		}
	}
	result, err := h.InstallmentScheduler.InitiatePayment(c.Request.Context(), service.InstallmentPayInput{
		No:        c.Param("no"),
		UserID:    uid,
		Method:    c.Param("method"),
		ClientIP:  c.ClientIP(),
		ReturnURL: strings.TrimSpace(req.ReturnURL),
	})
	if err != nil {
		shared.RespondMapped(c, err, orderStateErrorRules, paymentGatewayErrorRules)
		return
	}
	response.Success(c, result)
}
