package queue

import (
	"encoding/json"

	"github.com/dujiao-next/mall/internal/constants"
	"github.com/dujiao-next/mall/internal/events"

	"github.com/hibiken/asynq"
)

const (
	// TaskOrderClose 未支付订单延迟关闭任务
	TaskOrderClose = constants.TaskOrderClose
	// TaskCrowdfundingRefund 众筹失败退款任务
	TaskCrowdfundingRefund = constants.TaskCrowdfundingRefund
	// TaskEventPublish 事件补发任务
	TaskEventPublish = constants.TaskEventPublish
)

// OrderClosePayload 关闭订单任务载荷
type OrderClosePayload struct {
	OrderNo string `json:"order_no"`
}

// CrowdfundingRefundPayload 众筹退款任务载荷
type CrowdfundingRefundPayload struct {
	CampaignID uint `json:"campaign_id"`
}

// EventPublishPayload 事件补发任务载荷
type EventPublishPayload struct {
	Event events.Event `json:"event"`
}

// OrderCloseTaskID 同一订单只保留一个关闭任务
func OrderCloseTaskID(orderNo string) string {
	return TaskOrderClose + ":" + orderNo
}

// NewOrderCloseTask 创建关闭订单任务
func NewOrderCloseTask(payload OrderClosePayload) (*asynq.Task, error) {
	return newJSONTask(TaskOrderClose, payload)
}

// NewCrowdfundingRefundTask 创建众筹退款任务
func NewCrowdfundingRefundTask(payload CrowdfundingRefundPayload) (*asynq.Task, error) {
	return newJSONTask(TaskCrowdfundingRefund, payload)
}

// NewEventPublishTask 创建事件补发任务
func NewEventPublishTask(payload EventPublishPayload) (*asynq.Task, error) {
	return newJSONTask(TaskEventPublish, payload)
}

// ParseOrderClosePayload 解析关闭订单任务载荷
func ParseOrderClosePayload(raw []byte) (OrderClosePayload, error) {
	var payload OrderClosePayload
	err := json.Unmarshal(raw, &payload)
	return payload, err
}

// ParseCrowdfundingRefundPayload 解析众筹退款任务载荷
func ParseCrowdfundingRefundPayload(raw []byte) (CrowdfundingRefundPayload, error) {
	var payload CrowdfundingRefundPayload
	err := json.Unmarshal(raw, &payload)
	return payload, err
}

// ParseEventPublishPayload 解析事件补发任务载荷
func ParseEventPublishPayload(raw []byte) (EventPublishPayload, error) {
	var payload EventPublishPayload
	err := json.Unmarshal(raw, &payload)
	return payload, err
}

func newJSONTask(typename string, payload interface{}) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(typename, body), nil
}
