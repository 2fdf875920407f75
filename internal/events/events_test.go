package events

import (
	"context"
	"testing"
	"time"

	"github.com/dujiao-next/mall/internal/constants"
	"github.com/dujiao-next/mall/internal/models"

	"github.com/stretchr/testify/require"
)

func TestOrderPaidEventRoundTrip(t *testing.T) {
	paidAt := time.Now()
	order := &models.Order{
		ID:            7,
		OrderNo:       "A100",
		UserID:        3,
		Type:          constants.OrderTypeNormal,
		TotalAmount:   models.MustMoney("99.90"),
		PaymentMethod: constants.PaymentMethodAlipay,
		PaidAt:        &paidAt,
	}
	evt := OrderPaid(order)
	require.Equal(t, constants.EventOrderPaid, evt.Name)
	require.NotEmpty(t, evt.ID)

	raw, err := evt.Encode()
	require.NoError(t, err)
	decoded, err := Decode(raw)
	require.NoError(t, err)
	require.Equal(t, evt.ID, decoded.ID)
	require.Equal(t, "A100", decoded.OrderNo)
	require.Equal(t, "99.90", decoded.Amount)
	require.Equal(t, constants.PaymentMethodAlipay, decoded.Method)
}

func TestOrderReviewedEventIDsAreUnique(t *testing.T) {
	order := &models.Order{OrderNo: "A100"}
	first := OrderReviewed(order)
	second := OrderReviewed(order)
	require.Equal(t, constants.EventOrderReviewed, first.Name)
	require.NotEqual(t, first.ID, second.ID)
}

func TestNewPublisherDrivers(t *testing.T) {
	pub, err := NewPublisher(Config{})
	require.NoError(t, err)
	require.IsType(t, &LogPublisher{}, pub)
	require.NoError(t, pub.Publish(context.Background(), OrderPaid(&models.Order{OrderNo: "A100"})))
	require.NoError(t, pub.Close())

	_, err = NewPublisher(Config{Driver: "nats"})
	require.Error(t, err)

	_, err = NewPublisher(Config{Driver: DriverKafka, Kafka: KafkaConfig{Topic: "mall.order.events"}})
	require.Error(t, err)

	pub, err = NewPublisher(Config{Driver: DriverKafka, Kafka: KafkaConfig{
		Topic:   "mall.order.events",
		Brokers: []string{"127.0.0.1:9092, 127.0.0.1:9093"},
	}})
	require.NoError(t, err)
	require.IsType(t, &KafkaPublisher{}, pub)
	require.NoError(t, pub.Close())
}

func TestCompactBrokers(t *testing.T) {
	require.Equal(t, []string{"a:9092", "b:9092", "c:9092"}, compactBrokers([]string{" a:9092,b:9092", "", "c:9092 "}))
}
