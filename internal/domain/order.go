package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// PaymentSucceeded is the provider status that marks an order paid.
const PaymentSucceeded = "succeeded"

const (
	notePlaced          = "Order placed successfully"
	noteCancelledByUser = "Order cancelled by user"
	noteCancelledAdmin  = "Order cancelled by admin"
)

var (
	taxRate               = decimal.RequireFromString("0.10")
	freeShippingThreshold = decimal.NewFromInt(100)
	reducedShippingFloor  = decimal.NewFromInt(50)
	reducedShippingFee    = decimal.NewFromInt(5)
	standardShippingFee   = decimal.NewFromInt(10)
)

type PaymentMethod string

const (
	PaymentCard       PaymentMethod = "card"
	PaymentUPI        PaymentMethod = "upi"
	PaymentNetbanking PaymentMethod = "netbanking"
	PaymentWallet     PaymentMethod = "wallet"
	PaymentCOD        PaymentMethod = "cod"
)

// ParsePaymentMethod defaults an empty method to card.
func ParsePaymentMethod(s string) (PaymentMethod, error) {
	m := PaymentMethod(strings.ToLower(strings.TrimSpace(s)))
	switch m {
	case "":
		return PaymentCard, nil
	case PaymentCard, PaymentUPI, PaymentNetbanking, PaymentWallet, PaymentCOD:
		return m, nil
	}
	return "", fmt.Errorf("unknown payment method %q: %w", s, ErrValidation)
}

type PaymentInfo struct {
	Method PaymentMethod `json:"method"`
	ID     string        `json:"id,omitempty"`
	Status string        `json:"status,omitempty"`
}

type ShippingAddress struct {
	FullName     string `json:"fullName"`
	PhoneNumber  string `json:"phoneNumber"`
	AddressLine1 string `json:"addressLine1"`
	AddressLine2 string `json:"addressLine2,omitempty"`
	City         string `json:"city"`
	State        string `json:"state"`
	Country      string `json:"country"`
	PostalCode   string `json:"postalCode"`
}

// Validate requires every field except AddressLine2.
func (a ShippingAddress) Validate() error {
	required := []struct {
		name, value string
	}{
		{"fullName", a.FullName},
		{"phoneNumber", a.PhoneNumber},
		{"addressLine1", a.AddressLine1},
		{"city", a.City},
		{"state", a.State},
		{"country", a.Country},
		{"postalCode", a.PostalCode},
	}
	for _, f := range required {
		if strings.TrimSpace(f.value) == "" {
			return fmt.Errorf("shipping address %s required: %w", f.name, ErrValidation)
		}
	}
	return nil
}

// OrderItem is a value copy of a product taken when the order was placed.
type OrderItem struct {
	ProductID string          `json:"product"`
	Name      string          `json:"name"`
	Image     string          `json:"image,omitempty"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
}

type StatusChange struct {
	Status    OrderStatus `json:"status"`
	Timestamp time.Time   `json:"timestamp"`
	Note      string      `json:"note,omitempty"`
}

type Order struct {
	ID              string          `json:"id"`
	UserID          string          `json:"user"`
	Items           []OrderItem     `json:"orderItems"`
	ShippingAddress ShippingAddress `json:"shippingAddress"`
	Payment         PaymentInfo     `json:"paymentInfo"`
	ItemsPrice      decimal.Decimal `json:"itemsPrice"`
	TaxPrice        decimal.Decimal `json:"taxPrice"`
	ShippingPrice   decimal.Decimal `json:"shippingPrice"`
	TotalPrice      decimal.Decimal `json:"totalPrice"`
	Status          OrderStatus     `json:"orderStatus"`
	IsPaid          bool            `json:"isPaid"`
	PaidAt          *time.Time      `json:"paidAt,omitempty"`
	IsDelivered     bool            `json:"isDelivered"`
	DeliveredAt     *time.Time      `json:"deliveredAt,omitempty"`
	Notes           string          `json:"orderNotes,omitempty"`
	TrackingNumber  string          `json:"trackingNumber,omitempty"`
	StatusHistory   []StatusChange  `json:"statusHistory"`
	PlacementToken  string          `json:"-"`
	CreatedAt       time.Time       `json:"createdAt"`
	UpdatedAt       time.Time       `json:"updatedAt"`
}

// Charges is the price breakdown of an order.
type Charges struct {
	Items    decimal.Decimal
	Tax      decimal.Decimal
	Shipping decimal.Decimal
	Total    decimal.Decimal
}

// QuoteCharges applies 10% tax and tiered shipping to an items subtotal.
func QuoteCharges(items decimal.Decimal) Charges {
	tax := items.Mul(taxRate).Round(2)
	shipping := standardShippingFee
	switch {
	case items.GreaterThan(freeShippingThreshold):
		shipping = decimal.Zero
	case items.GreaterThan(reducedShippingFloor):
		shipping = reducedShippingFee
	}
	return Charges{Items: items, Tax: tax, Shipping: shipping, Total: items.Add(tax).Add(shipping)}
}

// ItemsTotal sums price times quantity over items.
func ItemsTotal(items []OrderItem) decimal.Decimal {
	total := decimal.Zero
	for _, it := range items {
		total = total.Add(it.Price.Mul(decimal.NewFromInt(int64(it.Quantity))))
	}
	return total
}

// NewOrder builds a Processing order with its first history entry.
func NewOrder(userID string, items []OrderItem, addr ShippingAddress, method PaymentMethod, charges Charges, now time.Time) (*Order, error) {
	if len(items) == 0 {
		return nil, fmt.Errorf("order must contain at least one item: %w", ErrValidation)
	}
	for _, it := range items {
		if it.Quantity < 1 {
			return nil, fmt.Errorf("quantity for %s must be at least 1: %w", it.ProductID, ErrValidation)
		}
	}
	if err := addr.Validate(); err != nil {
		return nil, err
	}
	if charges.Tax.IsNegative() || charges.Shipping.IsNegative() {
		return nil, fmt.Errorf("charges cannot be negative: %w", ErrValidation)
	}
	return &Order{
		UserID:          userID,
		Items:           items,
		ShippingAddress: addr,
		Payment:         PaymentInfo{Method: method},
		ItemsPrice:      charges.Items,
		TaxPrice:        charges.Tax,
		ShippingPrice:   charges.Shipping,
		TotalPrice:      charges.Total,
		Status:          StatusProcessing,
		StatusHistory:   []StatusChange{{Status: StatusProcessing, Timestamp: now, Note: notePlaced}},
		CreatedAt:       now,
		UpdatedAt:       now,
	}, nil
}

// TransitionTo moves the order along the transition table and appends one
// history entry. An empty note gets a generated one.
func (o *Order) TransitionTo(target OrderStatus, note string, at time.Time) error {
	if !o.Status.CanTransitionTo(target) {
		return fmt.Errorf("order %s cannot move from %s to %s: %w", o.ID, o.Status, target, ErrInvalidState)
	}
	if strings.TrimSpace(note) == "" {
		note = fmt.Sprintf("Order status updated to %s", target)
	}
	o.Status = target
	if target == StatusDelivered {
		o.IsDelivered = true
		o.DeliveredAt = &at
	}
	o.StatusHistory = append(o.StatusHistory, StatusChange{Status: target, Timestamp: at, Note: note})
	o.UpdatedAt = at
	return nil
}

// Cancel is the cancellation transition on behalf of by.
func (o *Order) Cancel(by Identity, at time.Time) error {
	if o.Status.Terminal() {
		return fmt.Errorf("order %s is already %s: %w", o.ID, o.Status, ErrInvalidState)
	}
	note := noteCancelledByUser
	if by.IsAdmin() && by.UserID != o.UserID {
		note = noteCancelledAdmin
	}
	return o.TransitionTo(StatusCancelled, note, at)
}

// RecordPayment stores the provider's confirmation. Only a successful status
// marks the order paid and stamps PaidAt.
func (o *Order) RecordPayment(externalID, status string, at time.Time) {
	o.Payment.ID = externalID
	o.Payment.Status = status
	if status == PaymentSucceeded {
		o.IsPaid = true
		o.PaidAt = &at
	} else {
		o.IsPaid = false
		o.PaidAt = nil
	}
	o.UpdatedAt = at
}

// OrderFilter narrows administrative order listings.
type OrderFilter struct {
	Status OrderStatus
	Page   Page
}
