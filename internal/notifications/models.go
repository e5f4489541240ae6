package notifications

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type NotificationType string

const (
	NotificationTypeOrderConfirmed NotificationType = "ORDER_CONFIRMED"
	NotificationTypeOrderCancelled NotificationType = "ORDER_CANCELLED"
	NotificationTypePaymentFailed  NotificationType = "PAYMENT_FAILED"
	NotificationTypeTicketsIssued  NotificationType = "TICKETS_ISSUED"
)

type NotificationPriority string

const (
	NotificationPriorityLow    NotificationPriority = "LOW"
	NotificationPriorityMedium NotificationPriority = "MEDIUM"
	NotificationPriorityHigh   NotificationPriority = "HIGH"
)

// Notification is the message published for the mailer service. Delivery
// (templates, retries, channels) happens downstream.
type Notification struct {
	ID       uuid.UUID            `json:"id"`
	Type     NotificationType     `json:"type"`
	Priority NotificationPriority `json:"priority"`

	RecipientID    *uuid.UUID `json:"recipient_id,omitempty"`
	RecipientEmail string     `json:"recipient_email,omitempty"`
	RecipientName  string     `json:"recipient_name,omitempty"`

	Subject      string                 `json:"subject"`
	TemplateData map[string]interface{} `json:"template_data"`

	OrderID   uuid.UUID `json:"order_id"`
	CreatedAt time.Time `json:"created_at"`
}

type NotificationBuilder struct {
	notification *Notification
}

func NewNotificationBuilder() *NotificationBuilder {
	return &NotificationBuilder{
		notification: &Notification{
			ID:           uuid.New(),
			CreatedAt:    time.Now(),
			TemplateData: make(map[string]interface{}),
		},
	}
}

func (nb *NotificationBuilder) WithType(notType NotificationType) *NotificationBuilder {
	nb.notification.Type = notType
	nb.notification.Priority = GetDefaultPriority(notType)
	nb.notification.Subject = GenerateSubject(notType)
	return nb
}

func (nb *NotificationBuilder) WithRecipient(userID *uuid.UUID, email, name string) *NotificationBuilder {
	nb.notification.RecipientID = userID
	nb.notification.RecipientEmail = email
	nb.notification.RecipientName = name
	return nb
}

func (nb *NotificationBuilder) WithOrder(orderID uuid.UUID) *NotificationBuilder {
	nb.notification.OrderID = orderID
	return nb
}

func (nb *NotificationBuilder) WithTemplateData(key string, value interface{}) *NotificationBuilder {
	nb.notification.TemplateData[key] = value
	return nb
}

func (nb *NotificationBuilder) Build() *Notification {
	return nb.notification
}

// Helper functions
func GetDefaultPriority(notType NotificationType) NotificationPriority {
	switch notType {
	case NotificationTypeTicketsIssued, NotificationTypePaymentFailed:
		return NotificationPriorityHigh
	case NotificationTypeOrderConfirmed:
		return NotificationPriorityMedium
	default:
		return NotificationPriorityLow
	}
}

// GenerateSubject returns the email subject of a notification type
func GenerateSubject(notType NotificationType) string {
	switch notType {
	case NotificationTypeOrderConfirmed:
		return "Your order is confirmed"
	case NotificationTypeOrderCancelled:
		return "Your order has been cancelled"
	case NotificationTypePaymentFailed:
		return "Payment failed"
	case NotificationTypeTicketsIssued:
		return "Your e-tickets are ready"
	default:
		return "Notification from CineTicket"
	}
}

// GetPartitionKey keeps every message of one order on one partition
func (n *Notification) GetPartitionKey() string {
	return n.OrderID.String()
}

func (n *Notification) ToJSON() ([]byte, error) {
	return json.Marshal(n)
}
