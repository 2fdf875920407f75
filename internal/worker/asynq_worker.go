package worker

import (
	"context"
	"errors"
	"fmt"

	"github.com/dujiao-next/mall/internal/events"
	"github.com/dujiao-next/mall/internal/logger"
	"github.com/dujiao-next/mall/internal/provider"
	"github.com/dujiao-next/mall/internal/queue"
	"github.com/dujiao-next/mall/internal/service"

	"github.com/hibiken/asynq"
)

type orderCloser interface {
	Close(ctx context.Context, orderNo string) (bool, error)
}

type crowdfundingRefunder interface {
	RefundOrders(ctx context.Context, campaignID uint) error
}

type eventRepublisher interface {
	Republish(ctx context.Context, evt events.Event) error
}

// Consumer 异步任务消费者
type Consumer struct {
	Closer       orderCloser
	Crowdfunding crowdfundingRefunder
	Events       eventRepublisher
}

// NewConsumer 创建消费者
func NewConsumer(c *provider.Container) *Consumer {
	if c == nil {
		return &Consumer{}
	}
	consumer := &Consumer{}
	if c.DelayedCloser != nil {
		consumer.Closer = c.DelayedCloser
	}
	if c.CrowdfundingService != nil {
		consumer.Crowdfunding = c.CrowdfundingService
	}
	if c.EventDispatcher != nil {
		consumer.Events = c.EventDispatcher
	}
	return consumer
}

// Register 注册消费者
func (c *Consumer) Register(mux *asynq.ServeMux) {
	if c == nil || mux == nil {
		logger.Debugw("worker_register_skip_nil", "consumer_nil", c == nil, "mux_nil", mux == nil)
		return
	}
	mux.HandleFunc(queue.TaskOrderClose, c.handleOrderClose)
	mux.HandleFunc(queue.TaskCrowdfundingRefund, c.handleCrowdfundingRefund)
	mux.HandleFunc(queue.TaskEventPublish, c.handleEventPublish)
}

func (c *Consumer) handleOrderClose(ctx context.Context, task *asynq.Task) error {
	if c == nil || task == nil {
		logger.Debugw("worker_order_close_skip_nil", "consumer_nil", c == nil, "task_nil", task == nil)
		return nil
	}
	payload, err := queue.ParseOrderClosePayload(task.Payload())
	if err != nil {
		logger.Warnw("worker_order_close_unmarshal_failed", "error", err)
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}
	if payload.OrderNo == "" {
		logger.Debugw("worker_order_close_skip_invalid_payload")
		return nil
	}
	if c.Closer == nil {
		logger.Warnw("worker_order_close_skip_closer_nil", "order_no", payload.OrderNo)
		return nil
	}
	closed, err := c.Closer.Close(ctx, payload.OrderNo)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrOrderNotFound):
			logger.Debugw("worker_order_close_skip_order_not_found", "order_no", payload.OrderNo)
			return nil
		case errors.Is(err, service.ErrOrderStatusInvalid), errors.Is(err, service.ErrInternalInconsistency):
			logger.Errorw("worker_order_close_needs_operator", "order_no", payload.OrderNo, "error", err)
			return fmt.Errorf("%w: %w", err, asynq.SkipRetry)
		default:
			logger.Warnw("worker_order_close_failed", "order_no", payload.OrderNo, "error", err)
			return err
		}
	}
	if closed {
		logger.Infow("worker_order_closed", "order_no", payload.OrderNo)
	}
	return nil
}

func (c *Consumer) handleCrowdfundingRefund(ctx context.Context, task *asynq.Task) error {
	if c == nil || task == nil {
		logger.Debugw("worker_crowdfunding_refund_skip_nil", "consumer_nil", c == nil, "task_nil", task == nil)
		return nil
	}
	payload, err := queue.ParseCrowdfundingRefundPayload(task.Payload())
	if err != nil {
		logger.Warnw("worker_crowdfunding_refund_unmarshal_failed", "error", err)
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}
	if payload.CampaignID == 0 {
		logger.Debugw("worker_crowdfunding_refund_skip_invalid_payload")
		return nil
	}
	if c.Crowdfunding == nil {
		logger.Warnw("worker_crowdfunding_refund_skip_service_nil", "campaign_id", payload.CampaignID)
		return nil
	}
	if err := c.Crowdfunding.RefundOrders(ctx, payload.CampaignID); err != nil {
		switch {
		case errors.Is(err, service.ErrCampaignNotFound):
			logger.Debugw("worker_crowdfunding_refund_skip_campaign_not_found", "campaign_id", payload.CampaignID)
			return nil
		case errors.Is(err, service.ErrCrowdfundingNotFailed):
			logger.Warnw("worker_crowdfunding_refund_skip_not_failed", "campaign_id", payload.CampaignID)
			return nil
		default:
			logger.Warnw("worker_crowdfunding_refund_failed", "campaign_id", payload.CampaignID, "error", err)
			return err
		}
	}
	return nil
}

func (c *Consumer) handleEventPublish(ctx context.Context, task *asynq.Task) error {
	if c == nil || task == nil {
		logger.Debugw("worker_event_publish_skip_nil", "consumer_nil", c == nil, "task_nil", task == nil)
		return nil
	}
	payload, err := queue.ParseEventPublishPayload(task.Payload())
	if err != nil {
		logger.Warnw("worker_event_publish_unmarshal_failed", "error", err)
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}
	if payload.Event.ID == "" || payload.Event.Name == "" {
		logger.Debugw("worker_event_publish_skip_invalid_payload", "event_id", payload.Event.ID)
		return nil
	}
	if c.Events == nil {
		logger.Warnw("worker_event_publish_skip_dispatcher_nil", "event_id", payload.Event.ID)
		return nil
	}
	if err := c.Events.Republish(ctx, payload.Event); err != nil {
		logger.Warnw("worker_event_publish_failed",
			"event_id", payload.Event.ID,
			"event", payload.Event.Name,
			"order_no", payload.Event.OrderNo,
			"error", err,
		)
		return err
	}
	return nil
}
