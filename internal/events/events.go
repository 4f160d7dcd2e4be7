// Package events publishes order lifecycle notifications.
package events

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"storefront/internal/domain"
)

type Type string

const (
	OrderPlaced         Type = "order.placed"
	OrderCancelled      Type = "order.cancelled"
	OrderStatusChanged  Type = "order.status_changed"
	OrderPaymentUpdated Type = "order.payment_updated"
)

// OrderEvent is the JSON payload written for every order change.
type OrderEvent struct {
	Type          Type               `json:"type"`
	OrderID       string             `json:"orderId"`
	UserID        string             `json:"userId"`
	Status        domain.OrderStatus `json:"status"`
	IsPaid        bool               `json:"isPaid"`
	PaymentStatus string             `json:"paymentStatus,omitempty"`
	TotalPrice    decimal.Decimal    `json:"totalPrice"`
	Note          string             `json:"note,omitempty"`
	OccurredAt    time.Time          `json:"occurredAt"`
}

// NewOrderEvent describes o after a change of kind t. The note is taken from
// the latest history entry.
func NewOrderEvent(t Type, o domain.Order, at time.Time) OrderEvent {
	e := OrderEvent{
		Type:          t,
		OrderID:       o.ID,
		UserID:        o.UserID,
		Status:        o.Status,
		IsPaid:        o.IsPaid,
		PaymentStatus: o.Payment.Status,
		TotalPrice:    o.TotalPrice,
		OccurredAt:    at,
	}
	if n := len(o.StatusHistory); n > 0 {
		e.Note = o.StatusHistory[n-1].Note
	}
	return e
}

type Publisher interface {
	PublishOrder(ctx context.Context, e OrderEvent) error
	Close() error
}
