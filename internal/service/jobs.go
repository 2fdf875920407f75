package service

import (
	"context"
	"time"

	"github.com/dujiao-next/mall/internal/events"
	"github.com/dujiao-next/mall/internal/logger"
	"github.com/dujiao-next/mall/internal/queue"
)

// JobQueue 异步任务投递，由 queue.Client 实现
type JobQueue interface {
	EnqueueOrderClose(payload queue.OrderClosePayload, delay time.Duration) error
	EnqueueCrowdfundingRefund(payload queue.CrowdfundingRefundPayload) error
	EnqueueEventPublish(payload queue.EventPublishPayload) error
}

// EventDispatcher 事务提交后发布领域事件，失败时转入队列补发
type EventDispatcher struct {
	publisher events.Publisher
	jobs      JobQueue
}

// NewEventDispatcher 创建事件分发器
func NewEventDispatcher(publisher events.Publisher, jobs JobQueue) *EventDispatcher {
	if publisher == nil {
		publisher = events.NewLogPublisher()
	}
	return &EventDispatcher{publisher: publisher, jobs: jobs}
}

// Dispatch 发布事件；发布失败不影响已提交的业务结果
func (d *EventDispatcher) Dispatch(ctx context.Context, evts ...events.Event) {
	if d == nil {
		return
	}
	for _, evt := range evts {
		if err := d.publisher.Publish(ctx, evt); err != nil {
			logger.Warnw("event_publish_failed",
				"event_id", evt.ID,
				"event", evt.Name,
				"order_no", evt.OrderNo,
				"error", err,
			)
			if d.jobs == nil {
				continue
			}
			if qErr := d.jobs.EnqueueEventPublish(queue.EventPublishPayload{Event: evt}); qErr != nil {
				logger.Errorw("event_publish_enqueue_failed",
					"event_id", evt.ID,
					"event", evt.Name,
					"order_no", evt.OrderNo,
					"error", qErr,
				)
			}
		}
	}
}

// Republish 补发任务调用，错误交由队列重试
func (d *EventDispatcher) Republish(ctx context.Context, evt events.Event) error {
	return d.publisher.Publish(ctx, evt)
}
