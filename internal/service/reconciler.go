package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dujiao-next/mall/internal/constants"
	"github.com/dujiao-next/mall/internal/events"
	"github.com/dujiao-next/mall/internal/logger"
	"github.com/dujiao-next/mall/internal/models"
	"github.com/dujiao-next/mall/internal/payment"
	"github.com/dujiao-next/mall/internal/repository"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// CallbackCache 已处理回调的短期缓存，命中时跳过数据库
type CallbackCache interface {
	IsApplied(ctx context.Context, key string) bool
	MarkApplied(ctx context.Context, key string)
}

// PaymentNotice 验签后的支付结果
type PaymentNotice struct {
	Reference     string
	Method        string
	TransactionID string
	Amount        string // 可选，非空时与应付金额比对
}

// RefundNotice 验签后的退款结果
type RefundNotice struct {
	Reference string
	Method    string
	Status    string // 网关原始退款状态
}

// ApplyResult 对账结果
type ApplyResult struct {
	AlreadyApplied bool
	Orphaned       bool // 款项到账但订单不可再收款，已记入 extra 待人工处理
	OrderNo        string
	Sequence       *int
}

// PaymentReconciler 将网关回调转换为恰好一次的状态变更
type PaymentReconciler struct {
	db              *gorm.DB
	orderRepo       repository.OrderRepository
	installmentRepo repository.InstallmentRepository
	campaignRepo    repository.CampaignRepository
	installments    *InstallmentScheduler
	gateways        *payment.Registry
	dispatcher      *EventDispatcher
	cache           CallbackCache
	refundSuccess   map[string]bool
}

// ReconcilerOptions 对账配置
type ReconcilerOptions struct {
	RefundSuccessStatuses []string
	Cache                 CallbackCache
}

// NewPaymentReconciler 创建对账服务
func NewPaymentReconciler(db *gorm.DB, orderRepo repository.OrderRepository, installmentRepo repository.InstallmentRepository, campaignRepo repository.CampaignRepository, installments *InstallmentScheduler, gateways *payment.Registry, dispatcher *EventDispatcher, opts ReconcilerOptions) *PaymentReconciler {
	statuses := opts.RefundSuccessStatuses
	if len(statuses) == 0 {
		statuses = []string{"SUCCESS"}
	}
	refundSuccess := make(map[string]bool, len(statuses))
	for _, status := range statuses {
		refundSuccess[strings.ToUpper(strings.TrimSpace(status))] = true
	}
	return &PaymentReconciler{
		db:              db,
		orderRepo:       orderRepo,
		installmentRepo: installmentRepo,
		campaignRepo:    campaignRepo,
		installments:    installments,
		gateways:        gateways,
		dispatcher:      dispatcher,
		cache:           opts.Cache,
		refundSuccess:   refundSuccess,
	}
}

// HandlePaymentCallback 验签、对账并生成网关应答
func (r *PaymentReconciler) HandlePaymentCallback(ctx context.Context, method string, req payment.CallbackRequest) (payment.Ack, error) {
	gw, err := r.gateways.Get(method)
	if err != nil {
		return payment.Ack{}, err
	}
	verified, err := gw.VerifyCallback(ctx, req)
	if err != nil {
		logger.Warnw("reconcile_payment_verify_failed", "method", method, "error", err)
		return gw.AcknowledgeFailure(), err
	}
	if verified.Status != constants.PaymentStatusSuccess {
		logger.Infow("reconcile_payment_not_success",
			"method", method,
			"reference", verified.Reference,
			"status", verified.Status,
		)
		return gw.AcknowledgeSuccess(), nil
	}
	if _, err := r.ApplyPayment(ctx, PaymentNotice{
		Reference:     verified.Reference,
		Method:        gw.Kind(),
		TransactionID: verified.TransactionID,
		Amount:        verified.Amount,
	}); err != nil {
		return gw.AcknowledgeFailure(), err
	}
	return gw.AcknowledgeSuccess(), nil
}

// HandleRefundCallback 验签退款通知并同步退款状态
func (r *PaymentReconciler) HandleRefundCallback(ctx context.Context, method string, req payment.CallbackRequest) (payment.Ack, error) {
	gw, err := r.gateways.Get(method)
	if err != nil {
		return payment.Ack{}, err
	}
	verified, err := gw.VerifyRefundCallback(ctx, req)
	if err != nil {
		logger.Warnw("reconcile_refund_verify_failed", "method", method, "error", err)
		return gw.AcknowledgeFailure(), err
	}
	if _, err := r.ApplyRefund(ctx, RefundNotice{
		Reference: verified.RefundReference,
		Method:    gw.Kind(),
		Status:    verified.Status,
	}); err != nil {
		return gw.AcknowledgeFailure(), err
	}
	return gw.AcknowledgeSuccess(), nil
}

// ApplyPayment 幂等地应用一次支付成功；已支付时返回 AlreadyApplied
func (r *PaymentReconciler) ApplyPayment(ctx context.Context, notice PaymentNotice) (*ApplyResult, error) {
	ref, err := ParseReference(notice.Reference)
	if err != nil {
		logger.Warnw("reconcile_payment_reference_invalid", "reference", notice.Reference, "error", err)
		return nil, err
	}
	if strings.TrimSpace(notice.Method) == "" || strings.TrimSpace(notice.TransactionID) == "" {
		return nil, fmt.Errorf("%w: payment method and transaction id are required", ErrUnresolvedReference)
	}
	cacheKey := "pay:" + ref.String()
	if r.cache != nil && r.cache.IsApplied(ctx, cacheKey) {
		return &ApplyResult{AlreadyApplied: true, OrderNo: ref.No}, nil
	}

	result := &ApplyResult{OrderNo: ref.No}
	var pending []events.Event
	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var applyErr error
		if ref.HasStep {
			seq := ref.Sequence
			result.Sequence = &seq
			pending, applyErr = r.applyInstallmentPayment(tx, ref, notice, result)
		} else {
			pending, applyErr = r.applyOrderPayment(tx, ref, notice, result)
		}
		return applyErr
	})
	if err != nil {
		r.logApplyError(notice, err)
		return nil, err
	}

	if r.cache != nil {
		r.cache.MarkApplied(ctx, cacheKey)
	}
	if result.AlreadyApplied {
		logger.Infow("reconcile_payment_already_applied", "reference", notice.Reference)
		return result, nil
	}
	if result.Orphaned {
		logger.Errorw("reconcile_payment_needs_operator",
			"reference", notice.Reference,
			"method", notice.Method,
			"transaction_id", notice.TransactionID,
		)
		return result, nil
	}
	logger.Infow("reconcile_payment_applied",
		"reference", notice.Reference,
		"method", notice.Method,
		"transaction_id", notice.TransactionID,
	)
	r.dispatcher.Dispatch(ctx, pending...)
	return result, nil
}

func (r *PaymentReconciler) applyOrderPayment(tx *gorm.DB, ref Reference, notice PaymentNotice, result *ApplyResult) ([]events.Event, error) {
	order, err := r.orderRepo.WithTx(tx).GetByOrderNoForUpdate(ref.No)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, fmt.Errorf("%w: order %s", ErrUnresolvedReference, ref.No)
	}
	if order.IsPaid() && order.PaymentMethod != constants.PaymentMethodInstallment {
		result.AlreadyApplied = true
		return nil, nil
	}
	if err := checkNotifiedAmount(notice.Amount, order.TotalAmount); err != nil {
		return nil, err
	}
	if order.IsClosed() || order.IsPaid() {
		return nil, r.recordOrphanPayment(tx, order, ref, notice, result)
	}
	if err := r.markOrderPaid(tx, order, notice.Method, notice.TransactionID); err != nil {
		return nil, err
	}
	return []events.Event{events.OrderPaid(order)}, nil
}

func (r *PaymentReconciler) applyInstallmentPayment(tx *gorm.DB, ref Reference, notice PaymentNotice, result *ApplyResult) ([]events.Event, error) {
	installmentRepo := r.installmentRepo.WithTx(tx)
	installment, err := installmentRepo.GetByNoForUpdate(ref.No)
	if err != nil {
		return nil, err
	}
	if installment == nil {
		return nil, fmt.Errorf("%w: installment %s", ErrUnresolvedReference, ref.No)
	}
	item, err := installmentRepo.GetItemForUpdate(installment.ID, ref.Sequence)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, fmt.Errorf("%w: installment %s has no step %d", ErrUnresolvedReference, ref.No, ref.Sequence)
	}
	if item.IsPaid() {
		result.AlreadyApplied = true
		return nil, nil
	}
	if err := checkNotifiedAmount(notice.Amount, item.Total()); err != nil {
		return nil, err
	}
	order, err := r.orderRepo.WithTx(tx).GetByIDForUpdate(installment.OrderID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, fmt.Errorf("%w: installment %s has no order", ErrInternalInconsistency, installment.No)
	}
	// 已关闭，或已走直接支付
	if order.IsClosed() || (order.IsPaid() && order.PaymentMethod != constants.PaymentMethodInstallment) {
		return nil, r.recordOrphanPayment(tx, order, ref, notice, result)
	}

	now := time.Now()
	if err := installmentRepo.UpdateItem(item.ID, map[string]interface{}{
		"paid_at":        now,
		"payment_method": notice.Method,
		"payment_no":     notice.TransactionID,
		"updated_at":     now,
	}); err != nil {
		return nil, err
	}

	var pending []events.Event
	if item.Sequence == 0 && !order.IsPaid() {
		if err := r.markOrderPaid(tx, order, constants.PaymentMethodInstallment, installment.No); err != nil {
			return nil, err
		}
		pending = append(pending, events.OrderPaid(order))
	}

	target := ""
	unpaid, err := installmentRepo.NextUnpaidItem(installment.ID)
	if err != nil {
		return nil, err
	}
	if unpaid == nil {
		target = constants.InstallmentStatusFinished
	} else if item.Sequence == 0 {
		target = constants.InstallmentStatusRepaying
	}
	if target != "" && isInstallmentForward(installment.Status, target) {
		if err := installmentRepo.Updates(installment.ID, map[string]interface{}{
			"status":     target,
			"updated_at": now,
		}); err != nil {
			return nil, err
		}
		installment.Status = target
	}
	return pending, nil
}

// recordOrphanPayment 记录无法入账的到账流水；同一流水重复通知为幂等空操作
func (r *PaymentReconciler) recordOrphanPayment(tx *gorm.DB, order *models.Order, ref Reference, notice PaymentNotice, result *ApplyResult) error {
	recorded, _ := order.Extra["orphan_payments"].([]interface{})
	for _, entry := range recorded {
		if m, ok := entry.(map[string]interface{}); ok && m["payment_no"] == notice.TransactionID {
			result.AlreadyApplied = true
			return nil
		}
	}
	payments := make([]interface{}, 0, len(recorded)+1)
	payments = append(payments, recorded...)
	payments = append(payments, map[string]interface{}{
		"payment_no": notice.TransactionID,
		"method":     notice.Method,
		"reference":  ref.String(),
	})
	extra := withExtra(order.Extra, "orphan_payments", payments)
	if err := r.orderRepo.WithTx(tx).Updates(order.ID, map[string]interface{}{
		"extra":      extra,
		"updated_at": time.Now(),
	}); err != nil {
		return err
	}
	order.Extra = extra
	result.Orphaned = true
	return nil
}

// markOrderPaid 写入支付三元组并推进状态，众筹订单同步累加进度
func (r *PaymentReconciler) markOrderPaid(tx *gorm.DB, order *models.Order, method, paymentNo string) error {
	if order.IsClosed() {
		return ErrOrderClosed
	}
	if !isTransitionAllowed(order.Status, constants.OrderStatusPaid) {
		return ErrOrderStatusInvalid
	}
	now := time.Now()
	if err := r.orderRepo.WithTx(tx).Updates(order.ID, map[string]interface{}{
		"status":         constants.OrderStatusPaid,
		"paid_at":        now,
		"payment_method": method,
		"payment_no":     paymentNo,
		"updated_at":     now,
	}); err != nil {
		return err
	}
	order.Status = constants.OrderStatusPaid
	order.PaidAt = &now
	order.PaymentMethod = method
	order.PaymentNo = paymentNo

	if order.Type != constants.OrderTypeCrowdfunding || len(order.Items) == 0 {
		return nil
	}
	campaignRepo := r.campaignRepo.WithTx(tx)
	campaign, err := campaignRepo.GetCrowdfundingByProduct(order.Items[0].ProductID)
	if err != nil {
		return err
	}
	if campaign == nil {
		return fmt.Errorf("%w: crowdfunding order %s has no campaign", ErrInternalInconsistency, order.OrderNo)
	}
	return campaignRepo.AddCrowdfundingProgress(campaign.ID, order.TotalAmount)
}

// ApplyRefund 根据退款单号同步退款结果；已有终态时为幂等空操作
func (r *PaymentReconciler) ApplyRefund(ctx context.Context, notice RefundNotice) (*ApplyResult, error) {
	ref, err := ParseReference(notice.Reference)
	if err != nil {
		logger.Warnw("reconcile_refund_reference_invalid", "reference", notice.Reference, "error", err)
		return nil, err
	}
	status := constants.RefundStatusFailed
	if r.refundSuccess[strings.ToUpper(strings.TrimSpace(notice.Status))] {
		status = constants.RefundStatusSuccess
	}

	result := &ApplyResult{}
	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		orderRepo := r.orderRepo.WithTx(tx)
		order, err := orderRepo.GetByRefundNoForUpdate(ref.No)
		if err != nil {
			return err
		}
		if order == nil {
			return fmt.Errorf("%w: refund %s", ErrUnresolvedReference, ref.No)
		}
		result.OrderNo = order.OrderNo
		now := time.Now()

		if !ref.HasStep {
			if isRefundResolved(order.RefundStatus) {
				result.AlreadyApplied = true
				return nil
			}
			updates := map[string]interface{}{
				"refund_status": status,
				"updated_at":    now,
			}
			if status == constants.RefundStatusFailed {
				updates["extra"] = withExtra(order.Extra, "refund_failed_code", strings.TrimSpace(notice.Status))
			}
			return orderRepo.Updates(order.ID, updates)
		}

		seq := ref.Sequence
		result.Sequence = &seq
		installmentRepo := r.installmentRepo.WithTx(tx)
		installment, err := installmentRepo.GetByOrderIDForUpdate(order.ID)
		if err != nil {
			return err
		}
		if installment == nil {
			return fmt.Errorf("%w: order %s has no installment", ErrUnresolvedReference, order.OrderNo)
		}
		item, err := installmentRepo.GetItemForUpdate(installment.ID, ref.Sequence)
		if err != nil {
			return err
		}
		if item == nil {
			return fmt.Errorf("%w: installment %s has no step %d", ErrUnresolvedReference, installment.No, ref.Sequence)
		}
		if isRefundResolved(item.RefundStatus) {
			result.AlreadyApplied = true
			return nil
		}
		if err := installmentRepo.UpdateItem(item.ID, map[string]interface{}{
			"refund_status": status,
			"updated_at":    now,
		}); err != nil {
			return err
		}
		_, err = r.installments.RefreshRefundStatus(tx, installment)
		return err
	})
	if err != nil {
		logger.Warnw("reconcile_refund_failed", "reference", notice.Reference, "error", err)
		return nil, err
	}
	logger.Infow("reconcile_refund_applied",
		"reference", notice.Reference,
		"status", status,
		"already_applied", result.AlreadyApplied,
	)
	return result, nil
}

func (r *PaymentReconciler) logApplyError(notice PaymentNotice, err error) {
	kv := []interface{}{
		"reference", notice.Reference,
		"method", notice.Method,
		"transaction_id", notice.TransactionID,
		"error", err,
	}
	switch {
	case errors.Is(err, ErrInternalInconsistency):
		logger.Errorw("reconcile_payment_needs_operator", kv...)
	case errors.Is(err, ErrUnresolvedReference):
		logger.Warnw("reconcile_payment_unresolved", kv...)
	default:
		logger.Errorw("reconcile_payment_failed", kv...)
	}
}

func checkNotifiedAmount(notified string, expected models.Money) error {
	notified = strings.TrimSpace(notified)
	if notified == "" {
		return nil
	}
	amount, err := decimal.NewFromString(notified)
	if err != nil || !amount.Equal(expected.Decimal) {
		return fmt.Errorf("%w: amount %s does not match %s", ErrUnresolvedReference, notified, expected.String())
	}
	return nil
}

func isRefundResolved(status string) bool {
	return status == constants.RefundStatusSuccess || status == constants.RefundStatusFailed
}

func withExtra(extra models.JSON, key string, value interface{}) models.JSON {
	merged := models.JSON{}
	for k, v := range extra {
		merged[k] = v
	}
	merged[key] = value
	return merged
}
