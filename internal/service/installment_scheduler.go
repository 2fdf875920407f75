package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/dujiao-next/mall/internal/constants"
	"github.com/dujiao-next/mall/internal/logger"
	"github.com/dujiao-next/mall/internal/models"
	"github.com/dujiao-next/mall/internal/payment"
	"github.com/dujiao-next/mall/internal/repository"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const installmentNoPrefix = "I"

// URLBuilder 根据相对路径拼接对外回调地址
type URLBuilder func(path string) string

// InstallmentScheduler 分期计划与还款发起
type InstallmentScheduler struct {
	db              *gorm.DB
	orderRepo       repository.OrderRepository
	installmentRepo repository.InstallmentRepository
	gateways        *payment.Registry
	feeRates        map[int]decimal.Decimal
	minAmount       decimal.Decimal
	notifyURL       URLBuilder
}

// InstallmentOptions 分期配置
type InstallmentOptions struct {
	FeeRates  map[int]decimal.Decimal // 期数 -> 手续费率（百分比）
	MinAmount decimal.Decimal
	NotifyURL URLBuilder
}

// NewInstallmentScheduler 创建分期服务
func NewInstallmentScheduler(db *gorm.DB, orderRepo repository.OrderRepository, installmentRepo repository.InstallmentRepository, gateways *payment.Registry, opts InstallmentOptions) *InstallmentScheduler {
	notifyURL := opts.NotifyURL
	if notifyURL == nil {
		notifyURL = func(string) string { return "" }
	}
	return &InstallmentScheduler{
		db:              db,
		orderRepo:       orderRepo,
		installmentRepo: installmentRepo,
		gateways:        gateways,
		feeRates:        opts.FeeRates,
		minAmount:       opts.MinAmount,
		notifyURL:       notifyURL,
	}
}

// ParseFeeRates 将配置中的 "期数: 费率" 转为内部结构
func ParseFeeRates(raw map[string]float64) (map[int]decimal.Decimal, error) {
	rates := make(map[int]decimal.Decimal, len(raw))
	for key, rate := range raw {
		count, err := strconv.Atoi(key)
		if err != nil || count <= 0 {
			return nil, fmt.Errorf("invalid installment count %q", key)
		}
		if rate < 0 {
			return nil, fmt.Errorf("invalid installment fee rate for %d", count)
		}
		rates[count] = decimal.NewFromFloat(rate)
	}
	return rates, nil
}

// CreatePlan 为待支付订单创建分期计划
func (s *InstallmentScheduler) CreatePlan(ctx context.Context, orderNo string, userID uint, count int) (*models.Installment, error) {
	rate, ok := s.feeRates[count]
	if !ok {
		return nil, ErrInstallmentCountInvalid
	}
	var installment *models.Installment
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		orderRepo := s.orderRepo.WithTx(tx)
		installmentRepo := s.installmentRepo.WithTx(tx)

		order, err := orderRepo.GetByOrderNoForUpdate(orderNo)
		if err != nil {
			return err
		}
		if order == nil || order.UserID != userID {
			return ErrOrderNotFound
		}
		if order.IsPaid() {
			return ErrOrderAlreadyPaid
		}
		if order.IsClosed() {
			return ErrOrderClosed
		}
		if order.Type != constants.OrderTypeNormal {
			return ErrInstallmentNotAllowed
		}
		if order.TotalAmount.Decimal.LessThan(s.minAmount) {
			return ErrInstallmentAmountTooLow
		}
		existing, err := installmentRepo.GetByOrderIDForUpdate(order.ID)
		if err != nil {
			return err
		}
		if existing != nil {
			return ErrInstallmentExists
		}

		no, err := uniqueNo(func() string { return generateOrderNo(installmentNoPrefix) }, installmentRepo.ExistsNo)
		if err != nil {
			return err
		}
		installment = &models.Installment{
			No:           no,
			UserID:       userID,
			OrderID:      order.ID,
			TotalAmount:  order.TotalAmount,
			Count:        count,
			FeeRate:      models.NewMoneyFromDecimal(rate),
			Status:       constants.InstallmentStatusPending,
			RefundStatus: constants.RefundStatusPending,
		}
		return installmentRepo.Create(installment, buildInstallmentItems(order.TotalAmount, count, rate, time.Now()))
	})
	if err != nil {
		return nil, err
	}
	logger.Infow("installment_plan_created",
		"installment_no", installment.No,
		"order_no", orderNo,
		"count", count,
	)
	return installment, nil
}

// buildInstallmentItems 本金均分，余数计入最后一期；首期明天到期，之后逐月顺延
func buildInstallmentItems(total models.Money, count int, rate decimal.Decimal, now time.Time) []models.InstallmentItem {
	totalFen := total.Fen()
	baseFen := totalFen / int64(count)
	tomorrow := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location()).AddDate(0, 0, 1)
	items := make([]models.InstallmentItem, 0, count)
	for i := 0; i < count; i++ {
		fen := baseFen
		if i == count-1 {
			fen = totalFen - baseFen*int64(count-1)
		}
		base := models.NewMoneyFromFen(fen)
		fee := models.NewMoneyFromDecimal(base.Decimal.Mul(rate).Div(decimal.NewFromInt(100)))
		items = append(items, models.InstallmentItem{
			Sequence:     i,
			Base:         base,
			Fee:          fee,
			DueDate:      tomorrow.AddDate(0, i, 0),
			RefundStatus: constants.RefundStatusPending,
		})
	}
	return items
}

// Get 获取用户的分期详情
func (s *InstallmentScheduler) Get(no string, userID uint) (*models.Installment, error) {
	installment, err := s.installmentRepo.GetByNo(no)
	if err != nil {
		return nil, err
	}
	if installment == nil || installment.UserID != userID {
		return nil, ErrInstallmentNotFound
	}
	return installment, nil
}

// NextDueItem 下一期未还款项（按期序号升序），已全部还清时返回 nil
func (s *InstallmentScheduler) NextDueItem(installmentID uint) (*models.InstallmentItem, error) {
	return s.installmentRepo.NextUnpaidItem(installmentID)
}

// InstallmentPayInput 分期还款发起输入
type InstallmentPayInput struct {
	No        string
	UserID    uint
	Method    string
	ClientIP  string
	ReturnURL string
}

// InitiatePayment 为下一期发起支付
func (s *InstallmentScheduler) InitiatePayment(ctx context.Context, input InstallmentPayInput) (*payment.InitiateResult, error) {
	installment, err := s.Get(input.No, input.UserID)
	if err != nil {
		return nil, err
	}
	if installment.Order == nil {
		return nil, fmt.Errorf("%w: installment %s has no order", ErrInternalInconsistency, installment.No)
	}
	if installment.Order.IsClosed() {
		return nil, ErrOrderClosed
	}
	if installment.Status == constants.InstallmentStatusFinished {
		return nil, ErrAlreadySettled
	}
	if installment.Order.IsPaid() && installment.Order.PaymentMethod != constants.PaymentMethodInstallment {
		return nil, ErrAlreadySettled
	}
	next, err := s.NextDueItem(installment.ID)
	if err != nil {
		return nil, err
	}
	if next == nil {
		return nil, ErrAlreadySettled
	}
	gw, err := s.gateways.Get(input.Method)
	if err != nil {
		if errors.Is(err, payment.ErrGatewayNotFound) {
			return nil, ErrPaymentMethodUnsupported
		}
		return nil, err
	}
	return gw.Initiate(ctx, payment.InitiateInput{
		Reference: StepReference(installment.No, next.Sequence),
		Amount:    next.Total().String(),
		Subject:   "分期还款 " + installment.No,
		NotifyURL: s.notifyURL("installments/" + gw.Kind() + "/notify"),
		ReturnURL: input.ReturnURL,
		ClientIP:  input.ClientIP,
	})
}

// RefreshRefundStatus 汇总已还款各期的退款状态并同步到分期与订单
func (s *InstallmentScheduler) RefreshRefundStatus(tx *gorm.DB, installment *models.Installment) (string, error) {
	items, err := s.installmentRepo.WithTx(tx).ListItems(installment.ID)
	if err != nil {
		return "", err
	}
	statuses := make([]string, 0, len(items))
	for _, item := range items {
		if item.IsPaid() {
			statuses = append(statuses, item.RefundStatus)
		}
	}
	status := aggregateRefundStatus(statuses)
	now := time.Now()
	if err := s.installmentRepo.WithTx(tx).Updates(installment.ID, map[string]interface{}{
		"refund_status": status,
		"updated_at":    now,
	}); err != nil {
		return "", err
	}
	if err := s.orderRepo.WithTx(tx).Updates(installment.OrderID, map[string]interface{}{
		"refund_status": status,
		"updated_at":    now,
	}); err != nil {
		return "", err
	}
	installment.RefundStatus = status
	return status, nil
}
