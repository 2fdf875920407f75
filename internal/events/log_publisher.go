package events

import (
	"context"

	"github.com/dujiao-next/mall/internal/logger"
)

// LogPublisher 仅写日志的发布器（未配置消息中间件时使用）
type LogPublisher struct{}

// NewLogPublisher 创建日志发布器
func NewLogPublisher() *LogPublisher {
	return &LogPublisher{}
}

// Publish 记录事件
func (p *LogPublisher) Publish(_ context.Context, evt Event) error {
	logger.Infow("event_published",
		"event_id", evt.ID,
		"event", evt.Name,
		"order_no", evt.OrderNo,
		"user_id", evt.UserID,
	)
	return nil
}

// Close 无需释放资源
func (p *LogPublisher) Close() error {
	return nil
}
