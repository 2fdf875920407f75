package events

import (
	"fmt"
	"strings"
)

// 发布驱动
const (
	DriverLog      = "log"
	DriverRabbitMQ = "rabbitmq"
	DriverKafka    = "kafka"
)

// Config 事件发布配置
type Config struct {
	Driver   string         `mapstructure:"driver"`
	RabbitMQ RabbitMQConfig `mapstructure:"rabbitmq"`
	Kafka    KafkaConfig    `mapstructure:"kafka"`
}

// RabbitMQConfig RabbitMQ 配置
type RabbitMQConfig struct {
	URL      string `mapstructure:"url"`
	Exchange string `mapstructure:"exchange"`
}

// KafkaConfig Kafka 配置
type KafkaConfig struct {
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
}

// NewPublisher 根据配置选择发布器
func NewPublisher(cfg Config) (Publisher, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Driver)) {
	case "", DriverLog:
		return NewLogPublisher(), nil
	case DriverRabbitMQ:
		return NewRabbitMQPublisher(cfg.RabbitMQ.URL, cfg.RabbitMQ.Exchange)
	case DriverKafka:
		return NewKafkaPublisher(cfg.Kafka.Topic, compactBrokers(cfg.Kafka.Brokers)...)
	default:
		return nil, fmt.Errorf("unsupported events driver: %s", cfg.Driver)
	}
}

func compactBrokers(raw []string) []string {
	brokers := make([]string, 0, len(raw))
	for _, item := range raw {
		for _, part := range strings.Split(item, ",") {
			if trimmed := strings.TrimSpace(part); trimmed != "" {
				brokers = append(brokers, trimmed)
			}
		}
	}
	return brokers
}
