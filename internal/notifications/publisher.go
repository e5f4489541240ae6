package notifications

import (
	"context"
	"log/slog"

	"cineticket/pkg/logger"

	"github.com/google/uuid"
)

// OrderEvent carries what the mailer needs to render an order notification
type OrderEvent struct {
	OrderID       uuid.UUID
	UserID        *uuid.UUID
	CustomerName  string
	CustomerEmail string
	TotalAmount   int64
	Reason        string
	RequestID     string
	TicketCodes   []string
}

// Notifier is how booking code announces order lifecycle events
type Notifier interface {
	NotifyOrderConfirmed(ctx context.Context, event OrderEvent) error
	NotifyOrderCancelled(ctx context.Context, event OrderEvent) error
	NotifyPaymentFailed(ctx context.Context, event OrderEvent) error
	NotifyTicketsIssued(ctx context.Context, event OrderEvent) error
}

// Publisher turns order events into notifications on a producer
type Publisher struct {
	producer NotificationProducer
	log      *logger.Logger
}

func NewPublisher(producer NotificationProducer) *Publisher {
	return &Publisher{producer: producer, log: logger.GetDefault()}
}

func (p *Publisher) NotifyOrderConfirmed(ctx context.Context, event OrderEvent) error {
	return p.publish(ctx, NotificationTypeOrderConfirmed, event)
}

func (p *Publisher) NotifyOrderCancelled(ctx context.Context, event OrderEvent) error {
	return p.publish(ctx, NotificationTypeOrderCancelled, event)
}

func (p *Publisher) NotifyPaymentFailed(ctx context.Context, event OrderEvent) error {
	return p.publish(ctx, NotificationTypePaymentFailed, event)
}

func (p *Publisher) NotifyTicketsIssued(ctx context.Context, event OrderEvent) error {
	return p.publish(ctx, NotificationTypeTicketsIssued, event)
}

func (p *Publisher) publish(ctx context.Context, notType NotificationType, event OrderEvent) error {
	builder := NewNotificationBuilder().
		WithType(notType).
		WithOrder(event.OrderID).
		WithRecipient(event.UserID, event.CustomerEmail, event.CustomerName).
		WithTemplateData("order_id", event.OrderID.String()).
		WithTemplateData("total_amount", event.TotalAmount)

	if event.Reason != "" {
		builder.WithTemplateData("reason", event.Reason)
	}
	if event.RequestID != "" {
		builder.WithTemplateData("request_id", event.RequestID)
	}
	if len(event.TicketCodes) > 0 {
		builder.WithTemplateData("ticket_codes", event.TicketCodes)
	}

	if err := p.producer.PublishNotification(ctx, builder.Build()); err != nil {
		p.log.WarnContext(ctx, "failed to publish notification",
			slog.String("type", string(notType)),
			slog.String("order_id", event.OrderID.String()),
			slog.Any("error", err),
		)
		return err
	}
	return nil
}

// NoopNotifier drops every event; used when Kafka is disabled
type NoopNotifier struct{}

func (NoopNotifier) NotifyOrderConfirmed(context.Context, OrderEvent) error { return nil }
func (NoopNotifier) NotifyOrderCancelled(context.Context, OrderEvent) error { return nil }
func (NoopNotifier) NotifyPaymentFailed(context.Context, OrderEvent) error  { return nil }
func (NoopNotifier) NotifyTicketsIssued(context.Context, OrderEvent) error  { return nil }
