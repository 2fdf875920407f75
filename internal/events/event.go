package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/dujiao-next/mall/internal/constants"
	"github.com/dujiao-next/mall/internal/models"

	"github.com/google/uuid"
)

// Event 订单领域事件（事务提交后对外发布）
type Event struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	OrderID    uint      `json:"order_id"`
	OrderNo    string    `json:"order_no"`
	UserID     uint      `json:"user_id"`
	OrderType  string    `json:"order_type"`
	Amount     string    `json:"amount"`
	Method     string    `json:"payment_method,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Publisher 事件发布接口
type Publisher interface {
	Publish(ctx context.Context, evt Event) error
	Close() error
}

// NewOrderEvent 基于订单构建事件
func NewOrderEvent(name string, order *models.Order) Event {
	evt := Event{
		ID:         uuid.NewString(),
		Name:       name,
		OccurredAt: time.Now(),
	}
	if order != nil {
		evt.OrderID = order.ID
		evt.OrderNo = order.OrderNo
		evt.UserID = order.UserID
		evt.OrderType = order.Type
		evt.Amount = order.TotalAmount.String()
		evt.Method = order.PaymentMethod
	}
	return evt
}

// OrderPaid 构建订单已支付事件
func OrderPaid(order *models.Order) Event {
	return NewOrderEvent(constants.EventOrderPaid, order)
}

// OrderReviewed 构建订单已评价事件
func OrderReviewed(order *models.Order) Event {
	return NewOrderEvent(constants.EventOrderReviewed, order)
}

// Encode 序列化事件
func (e Event) Encode() ([]byte, error) {
	return json.Marshal(e)
}

// Decode 反序列化事件
func Decode(raw []byte) (Event, error) {
	var evt Event
	err := json.Unmarshal(raw, &evt)
	return evt, err
}
