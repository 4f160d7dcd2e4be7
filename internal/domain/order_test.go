package domain

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validAddress() ShippingAddress {
	return ShippingAddress{
		FullName:     "Jane Doe",
		PhoneNumber:  "555-0100",
		AddressLine1: "1 Main St",
		City:         "Springfield",
		State:        "IL",
		Country:      "US",
		PostalCode:   "62701",
	}
}

func newTestOrder(t *testing.T) *Order {
	t.Helper()
	items := []OrderItem{{ProductID: "p1", Name: "Lamp", Quantity: 2, Price: decimal.NewFromInt(60)}}
	o, err := NewOrder("u1", items, validAddress(), PaymentCard, QuoteCharges(ItemsTotal(items)), time.Now())
	require.NoError(t, err)
	o.ID = "o1"
	return o
}

func TestNewOrder_StartsProcessingWithHistory(t *testing.T) {
	o := newTestOrder(t)

	assert.Equal(t, StatusProcessing, o.Status)
	require.Len(t, o.StatusHistory, 1)
	assert.Equal(t, StatusProcessing, o.StatusHistory[0].Status)
	assert.Equal(t, "Order placed successfully", o.StatusHistory[0].Note)
	assert.True(t, o.ItemsPrice.Equal(decimal.NewFromInt(120)))
	assert.True(t, o.TaxPrice.Equal(decimal.NewFromInt(12)))
	assert.True(t, o.ShippingPrice.IsZero())
	assert.True(t, o.TotalPrice.Equal(decimal.NewFromInt(132)))
}

func TestNewOrder_Validation(t *testing.T) {
	items := []OrderItem{{ProductID: "p1", Quantity: 1, Price: decimal.NewFromInt(1)}}
	charges := QuoteCharges(ItemsTotal(items))

	_, err := NewOrder("u1", nil, validAddress(), PaymentCard, charges, time.Now())
	assert.ErrorIs(t, err, ErrValidation)

	addr := validAddress()
	addr.City = ""
	_, err = NewOrder("u1", items, addr, PaymentCard, charges, time.Now())
	assert.ErrorIs(t, err, ErrValidation)

	_, err = NewOrder("u1", []OrderItem{{ProductID: "p1", Quantity: 0}}, validAddress(), PaymentCard, charges, time.Now())
	assert.ErrorIs(t, err, ErrValidation)
}

func TestShippingAddress_AddressLine2Optional(t *testing.T) {
	addr := validAddress()
	addr.AddressLine2 = ""
	assert.NoError(t, addr.Validate())
}

func TestQuoteCharges_ShippingTiers(t *testing.T) {
	cases := []struct {
		items    string
		shipping string
		tax      string
	}{
		{"30", "10", "3"},
		{"50", "10", "5"},
		{"50.01", "5", "5"},
		{"100", "5", "10"},
		{"100.01", "0", "10"},
		{"19.99", "10", "2"},
	}
	for _, tc := range cases {
		c := QuoteCharges(decimal.RequireFromString(tc.items))
		assert.True(t, c.Shipping.Equal(decimal.RequireFromString(tc.shipping)), "items %s shipping %s", tc.items, c.Shipping)
		assert.True(t, c.Tax.Equal(decimal.RequireFromString(tc.tax)), "items %s tax %s", tc.items, c.Tax)
		assert.True(t, c.Total.Equal(c.Items.Add(c.Tax).Add(c.Shipping)))
	}
}

func TestTransitionTable(t *testing.T) {
	all := []OrderStatus{StatusProcessing, StatusConfirmed, StatusShipped, StatusDelivered, StatusCancelled}
	allowed := map[OrderStatus][]OrderStatus{
		StatusProcessing: {StatusConfirmed, StatusShipped, StatusDelivered, StatusCancelled},
		StatusConfirmed:  {StatusShipped, StatusDelivered, StatusCancelled},
		StatusShipped:    {StatusDelivered, StatusCancelled},
	}
	for _, from := range all {
		for _, to := range all {
			want := false
			for _, a := range allowed[from] {
				if a == to {
					want = true
				}
			}
			assert.Equal(t, want, from.CanTransitionTo(to), "%s -> %s", from, to)
		}
	}
	assert.True(t, StatusDelivered.Terminal())
	assert.True(t, StatusCancelled.Terminal())
	assert.False(t, StatusShipped.Terminal())
}

func TestOrder_TransitionAppendsHistory(t *testing.T) {
	o := newTestOrder(t)
	at := time.Now()

	require.NoError(t, o.TransitionTo(StatusShipped, "", at))
	require.NoError(t, o.TransitionTo(StatusDelivered, "left at door", at))

	require.Len(t, o.StatusHistory, 3)
	assert.Equal(t, "Order status updated to Shipped", o.StatusHistory[1].Note)
	assert.Equal(t, "left at door", o.StatusHistory[2].Note)
	assert.True(t, o.IsDelivered)
	require.NotNil(t, o.DeliveredAt)

	err := o.TransitionTo(StatusShipped, "", at)
	assert.ErrorIs(t, err, ErrInvalidState)
	assert.Len(t, o.StatusHistory, 3)
}

func TestOrder_CancelFromNonTerminal(t *testing.T) {
	for _, from := range []OrderStatus{StatusProcessing, StatusConfirmed, StatusShipped} {
		o := newTestOrder(t)
		o.Status = from
		require.NoError(t, o.Cancel(Identity{UserID: "u1", Role: RoleUser}, time.Now()), from)
		assert.Equal(t, StatusCancelled, o.Status)
		assert.Equal(t, "Order cancelled by user", o.StatusHistory[len(o.StatusHistory)-1].Note)
	}
}

func TestOrder_CancelRejectsTerminal(t *testing.T) {
	for _, from := range []OrderStatus{StatusDelivered, StatusCancelled} {
		o := newTestOrder(t)
		o.Status = from
		assert.ErrorIs(t, o.Cancel(Identity{UserID: "u1"}, time.Now()), ErrInvalidState)
		assert.Len(t, o.StatusHistory, 1)
	}
}

func TestOrder_CancelByAdminNote(t *testing.T) {
	o := newTestOrder(t)
	require.NoError(t, o.Cancel(Identity{UserID: "admin", Role: RoleAdmin}, time.Now()))
	assert.Equal(t, "Order cancelled by admin", o.StatusHistory[1].Note)
}

func TestOrder_RecordPayment(t *testing.T) {
	o := newTestOrder(t)

	o.RecordPayment("pi_1", "requires_payment_method", time.Now())
	assert.False(t, o.IsPaid)
	assert.Nil(t, o.PaidAt)
	assert.Equal(t, "pi_1", o.Payment.ID)

	o.RecordPayment("pi_1", PaymentSucceeded, time.Now())
	assert.True(t, o.IsPaid)
	assert.NotNil(t, o.PaidAt)
	assert.Equal(t, PaymentSucceeded, o.Payment.Status)
}

func TestParseOrderStatus(t *testing.T) {
	s, err := ParseOrderStatus("shipped")
	require.NoError(t, err)
	assert.Equal(t, StatusShipped, s)

	_, err = ParseOrderStatus("lost")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestParsePaymentMethod(t *testing.T) {
	m, err := ParsePaymentMethod("")
	require.NoError(t, err)
	assert.Equal(t, PaymentCard, m)

	m, err = ParsePaymentMethod("COD")
	require.NoError(t, err)
	assert.Equal(t, PaymentCOD, m)

	_, err = ParsePaymentMethod("cheque")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestIdentity_CanAccess(t *testing.T) {
	assert.True(t, Identity{UserID: "u1"}.CanAccess("u1"))
	assert.False(t, Identity{UserID: "u2"}.CanAccess("u1"))
	assert.True(t, Identity{UserID: "a", Role: RoleAdmin}.CanAccess("u1"))
	assert.False(t, Identity{}.CanAccess(""))
}

func TestPage(t *testing.T) {
	p := NewPage(0, 0, 12)
	assert.Equal(t, 1, p.Number)
	assert.Equal(t, 12, p.Limit)
	assert.Equal(t, 0, p.Offset())

	p = NewPage(3, 500, 12)
	assert.Equal(t, MaxPageLimit, p.Limit)
	assert.Equal(t, 200, p.Offset())

	res := NewPage(2, 10, 10).Result(25)
	assert.Equal(t, 3, res.TotalPages)
	assert.Equal(t, 25, res.TotalItems)
}
