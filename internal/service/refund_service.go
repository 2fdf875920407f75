package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dujiao-next/mall/internal/constants"
	"github.com/dujiao-next/mall/internal/logger"
	"github.com/dujiao-next/mall/internal/models"
	"github.com/dujiao-next/mall/internal/payment"
	"github.com/dujiao-next/mall/internal/repository"

	"gorm.io/gorm"
)

// RefundService 退款申请与发起
type RefundService struct {
	db              *gorm.DB
	orderRepo       repository.OrderRepository
	installmentRepo repository.InstallmentRepository
	installments    *InstallmentScheduler
	gateways        *payment.Registry
	notifyURL       URLBuilder
}

// NewRefundService 创建退款服务
func NewRefundService(db *gorm.DB, orderRepo repository.OrderRepository, installmentRepo repository.InstallmentRepository, installments *InstallmentScheduler, gateways *payment.Registry, notifyURL URLBuilder) *RefundService {
	if notifyURL == nil {
		notifyURL = func(string) string { return "" }
	}
	return &RefundService{
		db:              db,
		orderRepo:       orderRepo,
		installmentRepo: installmentRepo,
		installments:    installments,
		gateways:        gateways,
		notifyURL:       notifyURL,
	}
}

// ApplyRefund 用户申请退款
func (s *RefundService) ApplyRefund(ctx context.Context, orderNo string, userID uint, reason string) (*models.Order, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, fmt.Errorf("%w: refund reason is required", ErrInvalidRequest)
	}
	var order *models.Order
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		orderRepo := s.orderRepo.WithTx(tx)
		locked, err := orderRepo.GetByOrderNoForUpdate(orderNo)
		if err != nil {
			return err
		}
		if locked == nil || locked.UserID != userID {
			return ErrOrderNotFound
		}
		if !locked.IsPaid() {
			return ErrOrderNotPaid
		}
		if locked.Type == constants.OrderTypeCrowdfunding {
			return fmt.Errorf("%w: crowdfunding orders are refunded on campaign failure", ErrInvalidRequest)
		}
		if locked.RefundStatus != constants.RefundStatusPending {
			return ErrRefundStatusInvalid
		}
		locked.RefundStatus = constants.RefundStatusApplied
		locked.Extra = withExtra(locked.Extra, "refund_reason", reason)
		order = locked
		return orderRepo.Updates(locked.ID, map[string]interface{}{
			"refund_status": constants.RefundStatusApplied,
			"extra":         locked.Extra,
			"updated_at":    time.Now(),
		})
	})
	if err != nil {
		return nil, err
	}
	logger.Infow("order_refund_applied", "order_no", orderNo, "user_id", userID)
	return order, nil
}

// RefundOrder 向网关发起退款；退款中或已成功时直接返回
func (s *RefundService) RefundOrder(ctx context.Context, orderNo, reason string) (*models.Order, error) {
	order, proceed, err := s.reserveRefund(ctx, orderNo)
	if err != nil || !proceed {
		return order, err
	}

	if order.PaymentMethod == constants.PaymentMethodInstallment {
		err = s.refundInstallment(ctx, order, reason)
	} else {
		err = s.refundDirect(ctx, order, reason)
	}
	if err != nil {
		if errors.Is(err, ErrInternalInconsistency) {
			logger.Errorw("order_refund_needs_operator", "order_no", orderNo, "error", err)
		}
		s.markRequestFailed(ctx, order, err)
		return nil, err
	}
	return s.orderRepo.GetByOrderNo(orderNo)
}

// reserveRefund 加锁分配退款单号并置为退款中，避免重复发起
func (s *RefundService) reserveRefund(ctx context.Context, orderNo string) (*models.Order, bool, error) {
	var order *models.Order
	proceed := false
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		orderRepo := s.orderRepo.WithTx(tx)
		locked, err := orderRepo.GetByOrderNoForUpdate(orderNo)
		if err != nil {
			return err
		}
		if locked == nil {
			return ErrOrderNotFound
		}
		order = locked
		if !locked.IsPaid() {
			return ErrOrderNotPaid
		}
		switch locked.RefundStatus {
		case constants.RefundStatusProcessing, constants.RefundStatusSuccess:
			return nil
		case constants.RefundStatusPending, constants.RefundStatusApplied, constants.RefundStatusFailed:
		default:
			return ErrRefundStatusInvalid
		}
		// 一个订单只有一个退款单号，重试时沿用
		refundNo := locked.RefundNoValue()
		if refundNo == "" {
			refundNo, err = uniqueNo(generateRefundNo, orderRepo.ExistsRefundNo)
			if err != nil {
				return err
			}
		}
		if err := orderRepo.Updates(locked.ID, map[string]interface{}{
			"refund_no":     refundNo,
			"refund_status": constants.RefundStatusProcessing,
			"updated_at":    time.Now(),
		}); err != nil {
			return err
		}
		locked.RefundNo = &refundNo
		locked.RefundStatus = constants.RefundStatusProcessing
		proceed = true
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return order, proceed, nil
}

func (s *RefundService) refundDirect(ctx context.Context, order *models.Order, reason string) error {
	gw, err := s.gatewayFor(order.PaymentMethod, order.OrderNo)
	if err != nil {
		return err
	}
	amount := order.TotalAmount.String()
	result, err := gw.InitiateRefund(ctx, payment.RefundInput{
		Reference:       order.OrderNo,
		TransactionID:   order.PaymentNo,
		RefundReference: order.RefundNoValue(),
		Amount:          amount,
		TotalAmount:     amount,
		Reason:          reason,
		NotifyURL:       s.notifyURL("payment/" + gw.Kind() + "/refund_notify"),
	})
	if err != nil {
		return err
	}
	logger.Infow("order_refund_initiated",
		"order_no", order.OrderNo,
		"refund_no", order.RefundNoValue(),
		"method", order.PaymentMethod,
		"status", result.Status,
	)
	if result.Async {
		return nil
	}
	updates := map[string]interface{}{
		"refund_status": result.Status,
		"updated_at":    time.Now(),
	}
	if result.Status == constants.RefundStatusFailed {
		updates["extra"] = withExtra(order.Extra, "refund_failed_code", result.FailedCode)
	}
	return s.orderRepo.Updates(order.ID, updates)
}

// refundInstallment 逐期退款，退款单号为 refundNo_sequence
func (s *RefundService) refundInstallment(ctx context.Context, order *models.Order, reason string) error {
	installment, err := s.installmentRepo.GetByOrderID(order.ID)
	if err != nil {
		return err
	}
	if installment == nil {
		return fmt.Errorf("%w: installment order %s has no plan", ErrInternalInconsistency, order.OrderNo)
	}
	for _, item := range installment.Items {
		if !item.IsPaid() || item.RefundStatus == constants.RefundStatusSuccess || item.RefundStatus == constants.RefundStatusProcessing {
			continue
		}
		gw, err := s.gatewayFor(item.PaymentMethod, order.OrderNo)
		if err != nil {
			return err
		}
		amount := item.Total().String()
		result, err := gw.InitiateRefund(ctx, payment.RefundInput{
			Reference:       StepReference(installment.No, item.Sequence),
			TransactionID:   item.PaymentNo,
			RefundReference: StepReference(order.RefundNoValue(), item.Sequence),
			Amount:          amount,
			TotalAmount:     amount,
			Reason:          reason,
			NotifyURL:       s.notifyURL("installments/" + gw.Kind() + "/refund_notify"),
		})
		if err != nil {
			return err
		}
		if err := s.installmentRepo.UpdateItem(item.ID, map[string]interface{}{
			"refund_status": result.Status,
			"updated_at":    time.Now(),
		}); err != nil {
			return err
		}
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		locked, err := s.installmentRepo.WithTx(tx).GetByOrderIDForUpdate(order.ID)
		if err != nil {
			return err
		}
		_, err = s.installments.RefreshRefundStatus(tx, locked)
		return err
	})
}

func (s *RefundService) gatewayFor(method, orderNo string) (payment.Gateway, error) {
	gw, err := s.gateways.Get(method)
	if err != nil {
		return nil, fmt.Errorf("%w: unknown payment method %q for order %s", ErrInternalInconsistency, method, orderNo)
	}
	return gw, nil
}

// markRequestFailed 发起阶段出错时记录失败，允许之后重新发起
func (s *RefundService) markRequestFailed(ctx context.Context, order *models.Order, cause error) {
	err := s.orderRepo.Updates(order.ID, map[string]interface{}{
		"refund_status": constants.RefundStatusFailed,
		"extra":         withExtra(order.Extra, "refund_failed_code", "REQUEST_FAILED"),
		"updated_at":    time.Now(),
	})
	if err != nil {
		logger.Errorw("order_refund_mark_failed_error", "order_no", order.OrderNo, "cause", cause, "error", err)
	}
}
