package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestPublisher(t *testing.T) (*Publisher, *mocks.SyncProducer) {
	t.Helper()
	config := DefaultKafkaProducerConfig([]string{"localhost:9092"}, "cineticket-notifications")
	mockProducer := mocks.NewSyncProducer(t, nil)
	t.Cleanup(func() { _ = mockProducer.Close() })
	return NewPublisher(NewKafkaNotificationProducerWith(mockProducer, config)), mockProducer
}

func TestPublisherSendsOrderConfirmed(t *testing.T) {
	publisher, mockProducer := newTestPublisher(t)
	orderID := uuid.New()
	userID := uuid.New()

	mockProducer.ExpectSendMessageWithMessageCheckerFunctionAndSucceed(func(msg *sarama.ProducerMessage) error {
		assert.Equal(t, "cineticket-notifications", msg.Topic)

		key, err := msg.Key.Encode()
		require.NoError(t, err)
		assert.Equal(t, orderID.String(), string(key))

		value, err := msg.Value.Encode()
		require.NoError(t, err)
		var n Notification
		require.NoError(t, json.Unmarshal(value, &n))
		assert.Equal(t, NotificationTypeOrderConfirmed, n.Type)
		assert.Equal(t, "buyer@example.com", n.RecipientEmail)
		assert.Equal(t, float64(180000), n.TemplateData["total_amount"])

		headers := map[string]string{}
		for _, h := range msg.Headers {
			headers[string(h.Key)] = string(h.Value)
		}
		assert.Equal(t, "ORDER_CONFIRMED", headers["notification_type"])
		assert.Equal(t, userID.String(), headers["recipient_id"])
		return nil
	})

	err := publisher.NotifyOrderConfirmed(context.Background(), OrderEvent{
		OrderID:       orderID,
		UserID:        &userID,
		CustomerEmail: "buyer@example.com",
		TotalAmount:   180000,
	})
	require.NoError(t, err)
}

func TestPublisherReturnsBrokerError(t *testing.T) {
	publisher, mockProducer := newTestPublisher(t)
	mockProducer.ExpectSendMessageAndFail(errors.New("broker down"))

	err := publisher.NotifyPaymentFailed(context.Background(), OrderEvent{OrderID: uuid.New(), Reason: "insufficient balance"})
	assert.Error(t, err)
}

func TestNotificationDefaults(t *testing.T) {
	n := NewNotificationBuilder().WithType(NotificationTypeTicketsIssued).WithOrder(uuid.New()).Build()

	assert.Equal(t, NotificationPriorityHigh, n.Priority)
	assert.Equal(t, "Your e-tickets are ready", n.Subject)
	assert.Equal(t, n.OrderID.String(), n.GetPartitionKey())
}
