package domain

import (
	"fmt"
	"strings"
)

// OrderStatus is a step of the order lifecycle.
type OrderStatus string

const (
	StatusProcessing OrderStatus = "Processing"
	StatusConfirmed  OrderStatus = "Confirmed"
	StatusShipped    OrderStatus = "Shipped"
	StatusDelivered  OrderStatus = "Delivered"
	StatusCancelled  OrderStatus = "Cancelled"
)

// transitions lists every status an order may move to from a given status.
// Delivered and Cancelled are terminal.
var transitions = map[OrderStatus][]OrderStatus{
	StatusProcessing: {StatusConfirmed, StatusShipped, StatusDelivered, StatusCancelled},
	StatusConfirmed:  {StatusShipped, StatusDelivered, StatusCancelled},
	StatusShipped:    {StatusDelivered, StatusCancelled},
	StatusDelivered:  {},
	StatusCancelled:  {},
}

// ParseOrderStatus accepts a status name case-insensitively.
func ParseOrderStatus(s string) (OrderStatus, error) {
	for status := range transitions {
		if strings.EqualFold(string(status), strings.TrimSpace(s)) {
			return status, nil
		}
	}
	return "", fmt.Errorf("unknown order status %q: %w", s, ErrValidation)
}

func (s OrderStatus) Terminal() bool {
	next, ok := transitions[s]
	return ok && len(next) == 0
}

// CanTransitionTo reports whether the transition table allows s -> target.
func (s OrderStatus) CanTransitionTo(target OrderStatus) bool {
	for _, allowed := range transitions[s] {
		if allowed == target {
			return true
		}
	}
	return false
}
