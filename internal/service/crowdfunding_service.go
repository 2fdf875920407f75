package service

import (
	"context"
	"errors"
	"time"

	"github.com/dujiao-next/mall/internal/constants"
	"github.com/dujiao-next/mall/internal/logger"
	"github.com/dujiao-next/mall/internal/queue"
	"github.com/dujiao-next/mall/internal/repository"

	"gorm.io/gorm"
)

const crowdfundingRefundBatch = 100

// CrowdfundingService 众筹结算与失败退款
type CrowdfundingService struct {
	db           *gorm.DB
	campaignRepo repository.CampaignRepository
	orderRepo    repository.OrderRepository
	refunds      *RefundService
	jobs         JobQueue
	now          func() time.Time
}

// NewCrowdfundingService 创建众筹服务，jobs 为空时失败退款同步执行
func NewCrowdfundingService(db *gorm.DB, campaignRepo repository.CampaignRepository, orderRepo repository.OrderRepository, refunds *RefundService, jobs JobQueue) *CrowdfundingService {
	return &CrowdfundingService{
		db:           db,
		campaignRepo: campaignRepo,
		orderRepo:    orderRepo,
		refunds:      refunds,
		jobs:         jobs,
		now:          time.Now,
	}
}

// Settle 结束后按已筹金额判定成功或失败，重复调用返回已有结果
func (s *CrowdfundingService) Settle(ctx context.Context, campaignID uint) (string, error) {
	var status string
	settled := false
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		campaignRepo := s.campaignRepo.WithTx(tx)
		campaign, err := campaignRepo.GetCrowdfundingForUpdate(campaignID)
		if err != nil {
			return err
		}
		if campaign == nil {
			return ErrCampaignNotFound
		}
		status = campaign.Status
		if campaign.Status != constants.CrowdfundingStatusFunding {
			return nil
		}
		if s.now().Before(campaign.EndAt) {
			return ErrCrowdfundingNotEnded
		}
		status = constants.CrowdfundingStatusFail
		if campaign.TotalAmount.GreaterThanOrEqual(campaign.TargetAmount.Decimal) {
			status = constants.CrowdfundingStatusSuccess
		}
		settled = true
		return campaignRepo.UpdateCrowdfunding(campaign.ID, map[string]interface{}{
			"status":     status,
			"updated_at": time.Now(),
		})
	})
	if err != nil {
		return "", err
	}
	if settled {
		logger.Infow("crowdfunding_settled", "campaign_id", campaignID, "status", status)
	}
	if status != constants.CrowdfundingStatusFail || !settled {
		return status, nil
	}
	if s.jobs == nil {
		return status, s.RefundOrders(ctx, campaignID)
	}
	if err := s.jobs.EnqueueCrowdfundingRefund(queue.CrowdfundingRefundPayload{CampaignID: campaignID}); err != nil {
		logger.Errorw("crowdfunding_refund_enqueue_failed", "campaign_id", campaignID, "error", err)
		return status, err
	}
	return status, nil
}

// SettleDue 结算所有已到期的众筹活动，返回本轮处理数量
func (s *CrowdfundingService) SettleDue(ctx context.Context) (int, error) {
	ids, err := s.campaignRepo.ListDueCrowdfundingIDs(s.now(), crowdfundingRefundBatch)
	if err != nil {
		return 0, err
	}
	settled := 0
	for _, id := range ids {
		if _, err := s.Settle(ctx, id); err != nil {
			logger.Warnw("crowdfunding_settle_due_failed", "campaign_id", id, "error", err)
			continue
		}
		settled++
	}
	return settled, nil
}

// RefundOrders 为失败众筹的所有已支付订单发起退款，单笔失败不阻断后续订单
func (s *CrowdfundingService) RefundOrders(ctx context.Context, campaignID uint) error {
	campaign, err := s.campaignRepo.GetCrowdfundingForUpdate(campaignID)
	if err != nil {
		return err
	}
	if campaign == nil {
		return ErrCampaignNotFound
	}
	if campaign.Status != constants.CrowdfundingStatusFail {
		return ErrCrowdfundingNotFailed
	}

	var firstErr error
	var afterID uint
	refunded, failed := 0, 0
	for {
		orders, err := s.orderRepo.ListPaidCrowdfunding(repository.CrowdfundingOrderFilter{
			ProductID: campaign.ProductID,
			AfterID:   afterID,
			Limit:     crowdfundingRefundBatch,
		})
		if err != nil {
			return err
		}
		for _, order := range orders {
			afterID = order.ID
			if _, err := s.refunds.RefundOrder(ctx, order.OrderNo, "众筹失败"); err != nil {
				failed++
				logger.Warnw("crowdfunding_order_refund_failed", "campaign_id", campaignID, "order_no", order.OrderNo, "error", err)
				if firstErr == nil && !errors.Is(err, ErrInternalInconsistency) {
					firstErr = err
				}
				continue
			}
			refunded++
		}
		if len(orders) < crowdfundingRefundBatch {
			break
		}
	}
	logger.Infow("crowdfunding_refund_done", "campaign_id", campaignID, "refunded", refunded, "failed", failed)
	return firstErr
}
