package events

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dujiao-next/mall/internal/logger"

	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	reconnectDelay = 3 * time.Second
	publishTimeout = 5 * time.Second
)

// ErrNotConnected 连接不可用
var ErrNotConnected = errors.New("rabbitmq not connected")

// RabbitMQPublisher 通过 topic exchange 发布事件，断线后自动重连
type RabbitMQPublisher struct {
	url      string
	exchange string

	conn    *amqp.Connection
	channel *amqp.Channel

	mu          sync.RWMutex
	isConnected bool
	done        chan struct{}
	closeOnce   sync.Once
}

// NewRabbitMQPublisher 建立连接并声明 exchange
func NewRabbitMQPublisher(url, exchange string) (*RabbitMQPublisher, error) {
	p := &RabbitMQPublisher{
		url:      url,
		exchange: exchange,
		done:     make(chan struct{}),
	}
	if err := p.connect(); err != nil {
		return nil, err
	}
	go p.monitorConnection()
	return p, nil
}

func (p *RabbitMQPublisher) connect() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	conn, err := amqp.Dial(p.url)
	if err != nil {
		return fmt.Errorf("dial rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("open channel: %w", err)
	}
	if err := ch.ExchangeDeclare(p.exchange, "topic", true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return fmt.Errorf("declare exchange %s: %w", p.exchange, err)
	}
	p.conn = conn
	p.channel = ch
	p.isConnected = true
	logger.Infow("rabbitmq_connected", "exchange", p.exchange)
	return nil
}

func (p *RabbitMQPublisher) monitorConnection() {
	for {
		select {
		case <-p.done:
			return
		default:
		}

		p.mu.RLock()
		conn := p.conn
		p.mu.RUnlock()
		if conn == nil {
			time.Sleep(reconnectDelay)
			continue
		}

		notifyClose := conn.NotifyClose(make(chan *amqp.Error, 1))
		select {
		case <-p.done:
			return
		case err := <-notifyClose:
			if err != nil {
				logger.Warnw("rabbitmq_connection_lost", "error", err)
			}
			p.mu.Lock()
			p.isConnected = false
			p.mu.Unlock()
			p.reconnect()
		}
	}
}

func (p *RabbitMQPublisher) reconnect() {
	attempt := 0
	for {
		select {
		case <-p.done:
			return
		default:
		}
		attempt++
		if err := p.connect(); err != nil {
			logger.Warnw("rabbitmq_reconnect_failed", "attempt", attempt, "error", err)
			time.Sleep(reconnectDelay)
			continue
		}
		return
	}
}

// Publish 以事件名作为 routing key 发布持久化消息
func (p *RabbitMQPublisher) Publish(ctx context.Context, evt Event) error {
	p.mu.RLock()
	if !p.isConnected {
		p.mu.RUnlock()
		return ErrNotConnected
	}
	ch := p.channel
	p.mu.RUnlock()

	body, err := evt.Encode()
	if err != nil {
		return err
	}
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	return ch.PublishWithContext(ctx, p.exchange, evt.Name, false, false, amqp.Publishing{
		ContentType:  "application/json",
		MessageId:    evt.ID,
		Timestamp:    evt.OccurredAt,
		Body:         body,
		DeliveryMode: amqp.Persistent,
	})
}

// Close 关闭连接
func (p *RabbitMQPublisher) Close() error {
	p.closeOnce.Do(func() { close(p.done) })

	p.mu.Lock()
	defer p.mu.Unlock()
	var errs []error
	if p.channel != nil {
		errs = append(errs, p.channel.Close())
	}
	if p.conn != nil {
		errs = append(errs, p.conn.Close())
	}
	p.isConnected = false
	return errors.Join(errs...)
}
