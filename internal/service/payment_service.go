package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/dujiao-next/mall/internal/constants"
	"github.com/dujiao-next/mall/internal/logger"
	"github.com/dujiao-next/mall/internal/payment"
	"github.com/dujiao-next/mall/internal/repository"
)

// PaymentService 发起订单支付
type PaymentService struct {
	orderRepo       repository.OrderRepository
	installmentRepo repository.InstallmentRepository
	campaignRepo    repository.CampaignRepository
	gateways        *payment.Registry
	notifyURL       URLBuilder
}

// NewPaymentService 创建支付服务
func NewPaymentService(orderRepo repository.OrderRepository, installmentRepo repository.InstallmentRepository, campaignRepo repository.CampaignRepository, gateways *payment.Registry, notifyURL URLBuilder) *PaymentService {
	if notifyURL == nil {
		notifyURL = func(string) string { return "" }
	}
	return &PaymentService{
		orderRepo:       orderRepo,
		installmentRepo: installmentRepo,
		campaignRepo:    campaignRepo,
		gateways:        gateways,
		notifyURL:       notifyURL,
	}
}

// PayOrderInput 订单支付输入
type PayOrderInput struct {
	OrderNo   string
	UserID    uint
	Method    string
	ClientIP  string
	ReturnURL string
}

// PayOrder 为待支付订单生成网关支付参数
func (s *PaymentService) PayOrder(ctx context.Context, input PayOrderInput) (*payment.InitiateResult, error) {
	order, err := s.orderRepo.GetByOrderNoAndUser(input.OrderNo, input.UserID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}
	if order.IsClosed() {
		return nil, ErrOrderClosed
	}
	if order.IsPaid() {
		return nil, ErrOrderAlreadyPaid
	}
	installment, err := s.installmentRepo.GetByOrderID(order.ID)
	if err != nil {
		return nil, err
	}
	if installment != nil {
		return nil, fmt.Errorf("%w: pay through installment %s", ErrInstallmentExists, installment.No)
	}
	if order.Type == constants.OrderTypeCrowdfunding && len(order.Items) > 0 {
		campaign, err := s.campaignRepo.GetCrowdfundingByProduct(order.Items[0].ProductID)
		if err != nil {
			return nil, err
		}
		if campaign == nil || campaign.Status != constants.CrowdfundingStatusFunding {
			return nil, ErrCrowdfundingEnded
		}
	}
	gw, err := s.gateways.Get(input.Method)
	if err != nil {
		if errors.Is(err, payment.ErrGatewayNotFound) {
			return nil, ErrPaymentMethodUnsupported
		}
		return nil, err
	}
	result, err := gw.Initiate(ctx, payment.InitiateInput{
		Reference: order.OrderNo,
		Amount:    order.TotalAmount.String(),
		Subject:   "订单 " + order.OrderNo,
		NotifyURL: s.notifyURL("payment/" + gw.Kind() + "/notify"),
		ReturnURL: input.ReturnURL,
		ClientIP:  input.ClientIP,
	})
	if err != nil {
		logger.Warnw("order_payment_initiate_failed", "order_no", order.OrderNo, "method", gw.Kind(), "error", err)
		return nil, err
	}
	return result, nil
}
