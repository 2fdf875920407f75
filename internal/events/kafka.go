package events

import (
	"context"
	"errors"

	"github.com/segmentio/kafka-go"
)

// KafkaPublisher 以订单号为 key 写入 Kafka，保证同一订单的事件有序
type KafkaPublisher struct {
	writer *kafka.Writer
}

// NewKafkaPublisher 创建 Kafka 发布器
func NewKafkaPublisher(topic string, brokers ...string) (*KafkaPublisher, error) {
	if topic == "" || len(brokers) == 0 {
		return nil, errors.New("kafka topic and brokers are required")
	}
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		AllowAutoTopicCreation: true,
		RequiredAcks:           kafka.RequireAll,
	}
	return &KafkaPublisher{writer: w}, nil
}

// Publish 发布事件
func (p *KafkaPublisher) Publish(ctx context.Context, evt Event) error {
	body, err := evt.Encode()
	if err != nil {
		return err
	}
	if ctx == nil {
		ctx = context.Background()
	}
	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(evt.OrderNo),
		Value: body,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(evt.Name)},
			{Key: "event_id", Value: []byte(evt.ID)},
		},
	})
}

// Close 关闭 writer
func (p *KafkaPublisher) Close() error {
	if p == nil || p.writer == nil {
		return nil
	}
	return p.writer.Close()
}
