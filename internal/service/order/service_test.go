package order

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront/internal/domain"
	"storefront/internal/events"
	orderrepo "storefront/internal/repository/order"
)

// memoryOrders imitates the Postgres repository: Place builds from the
// user's cart, debits stock and empties the cart. Update credits stock back
// when an order enters Cancelled.
type memoryOrders struct {
	orders map[string]domain.Order
	carts  map[string]domain.Cart
	stock  map[string]int
	seq    int
}

func newMemoryOrders(stock map[string]int, carts map[string]domain.Cart) *memoryOrders {
	return &memoryOrders{orders: make(map[string]domain.Order), carts: carts, stock: stock}
}

func (m *memoryOrders) Place(_ context.Context, userID, token string, build orderrepo.BuildFunc) (*domain.Order, bool, error) {
	if token != "" {
		for _, existing := range m.orders {
			if existing.UserID == userID && existing.PlacementToken == token {
				clone := existing
				return &clone, false, nil
			}
		}
	}
	o, err := build(m.carts[userID])
	if err != nil {
		return nil, false, err
	}
	for _, it := range o.Items {
		if m.stock[it.ProductID] < it.Quantity {
			return nil, false, domain.ErrInsufficientStock
		}
	}
	for _, it := range o.Items {
		m.stock[it.ProductID] -= it.Quantity
	}
	m.seq++
	o.ID = fmt.Sprintf("order-%d", m.seq)
	o.UserID = userID
	o.PlacementToken = token
	m.orders[o.ID] = *o
	delete(m.carts, userID)
	return o, true, nil
}

func (m *memoryOrders) GetByID(_ context.Context, id string) (*domain.Order, error) {
	o, ok := m.orders[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &o, nil
}

func (m *memoryOrders) ListByUser(_ context.Context, userID string) ([]domain.Order, error) {
	out := []domain.Order{}
	for _, o := range m.orders {
		if o.UserID == userID {
			out = append(out, o)
		}
	}
	return out, nil
}

func (m *memoryOrders) List(_ context.Context, f domain.OrderFilter) ([]domain.Order, int, error) {
	out := []domain.Order{}
	for _, o := range m.orders {
		if f.Status == "" || o.Status == f.Status {
			out = append(out, o)
		}
	}
	return out, len(out), nil
}

func (m *memoryOrders) Update(_ context.Context, id string, fn orderrepo.MutateFunc) (*domain.Order, error) {
	o, ok := m.orders[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	prev := o.Status
	o.StatusHistory = append([]domain.StatusChange{}, o.StatusHistory...)
	if err := fn(&o); err != nil {
		return nil, err
	}
	if prev != domain.StatusCancelled && o.Status == domain.StatusCancelled {
		for _, it := range o.Items {
			m.stock[it.ProductID] += it.Quantity
		}
	}
	m.orders[id] = o
	return &o, nil
}

type stubProducts map[string]domain.Product

func (s stubProducts) GetByID(_ context.Context, id string) (*domain.Product, error) {
	p, ok := s[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &p, nil
}

type recordingPublisher struct {
	events []events.OrderEvent
	err    error
}

func (p *recordingPublisher) PublishOrder(_ context.Context, e events.OrderEvent) error {
	p.events = append(p.events, e)
	return p.err
}

func (p *recordingPublisher) Close() error { return nil }

var (
	owner    = domain.Identity{UserID: "u1", Role: domain.RoleUser}
	stranger = domain.Identity{UserID: "u2", Role: domain.RoleUser}
	admin    = domain.Identity{UserID: "a1", Role: domain.RoleAdmin}
)

func address() domain.ShippingAddress {
	return domain.ShippingAddress{
		FullName:     "Ada Lovelace",
		PhoneNumber:  "555-0100",
		AddressLine1: "1 Analytical Way",
		City:         "London",
		State:        "LDN",
		Country:      "UK",
		PostalCode:   "N1 9GU",
	}
}

func cartOf(userID string) domain.Cart {
	return domain.Cart{UserID: userID, Items: []domain.CartItem{
		{ID: "l1", ProductID: "mug", Name: "Mug", Quantity: 2, Price: decimal.RequireFromString("7.50")},
	}}
}

type fixture struct {
	svc    *Service
	repo   *memoryOrders
	events *recordingPublisher
}

func newFixture() fixture {
	carts := map[string]domain.Cart{
		"u1": cartOf("u1"),
		"a1": cartOf("a1"),
	}
	repo := newMemoryOrders(map[string]int{"mug": 5, "lamp": 1}, carts)
	products := stubProducts{
		"mug":  {ID: "mug", Name: "Mug", Price: decimal.RequireFromString("8.00"), Stock: 5, IsActive: true},
		"lamp": {ID: "lamp", Name: "Lamp", Price: decimal.RequireFromString("40.00"), Stock: 1, IsActive: true},
		"old":  {ID: "old", Name: "Old", Price: decimal.RequireFromString("1.00"), Stock: 5},
	}
	pub := &recordingPublisher{}
	svc := New(repo, products, pub, nil)
	svc.now = func() time.Time { return time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC) }
	return fixture{svc: svc, repo: repo, events: pub}
}

func (f fixture) place(t *testing.T, items ...ItemInput) *domain.Order {
	t.Helper()
	o, created, err := f.svc.PlaceOrder(context.Background(), owner, PlaceInput{Items: items, ShippingAddress: address()})
	require.NoError(t, err)
	require.True(t, created)
	return o
}

func TestPlaceOrder_FromItemsUsesCatalogPrices(t *testing.T) {
	f := newFixture()

	o := f.place(t, ItemInput{ProductID: "mug", Quantity: 2}, ItemInput{ProductID: "lamp", Quantity: 1})

	assert.Equal(t, domain.StatusProcessing, o.Status)
	assert.Equal(t, domain.PaymentCard, o.Payment.Method)
	assert.True(t, o.ItemsPrice.Equal(decimal.NewFromInt(56)))
	assert.True(t, o.TaxPrice.Equal(decimal.RequireFromString("5.60")))
	assert.True(t, o.ShippingPrice.Equal(decimal.NewFromInt(5)))
	assert.True(t, o.TotalPrice.Equal(decimal.RequireFromString("66.60")))
	require.Len(t, o.StatusHistory, 1)
	assert.Equal(t, "Order placed successfully", o.StatusHistory[0].Note)

	assert.Equal(t, 3, f.repo.stock["mug"])
	assert.Equal(t, 0, f.repo.stock["lamp"])
	require.Len(t, f.events.events, 1)
	assert.Equal(t, events.OrderPlaced, f.events.events[0].Type)
}

func TestPlaceOrder_FromCartUsesSnapshotPrices(t *testing.T) {
	f := newFixture()

	o, _, err := f.svc.PlaceOrder(context.Background(), owner, PlaceInput{
		ShippingAddress: address(),
		PaymentMethod:   "COD",
	})
	require.NoError(t, err)

	require.Len(t, o.Items, 1)
	assert.True(t, o.Items[0].Price.Equal(decimal.RequireFromString("7.50")))
	assert.True(t, o.TaxPrice.Equal(decimal.RequireFromString("1.50")))
	assert.True(t, o.TotalPrice.Equal(decimal.RequireFromString("26.50")))
	assert.Equal(t, domain.PaymentCOD, o.Payment.Method)
	assert.Equal(t, 3, f.repo.stock["mug"])
	assert.NotContains(t, f.repo.carts, "u1")

	_, _, err = f.svc.PlaceOrder(context.Background(), owner, PlaceInput{ShippingAddress: address()})
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestPlaceOrder_ChargeOverrides(t *testing.T) {
	zero := decimal.Zero
	in := PlaceInput{ShippingAddress: address(), TaxPrice: &zero, ShippingPrice: &zero}

	t.Run("shopper gets quoted charges", func(t *testing.T) {
		f := newFixture()
		o, _, err := f.svc.PlaceOrder(context.Background(), owner, in)
		require.NoError(t, err)
		assert.True(t, o.TaxPrice.Equal(decimal.RequireFromString("1.50")))
		assert.True(t, o.ShippingPrice.Equal(decimal.NewFromInt(10)))
		assert.True(t, o.TotalPrice.Equal(decimal.RequireFromString("26.50")))
	})
	t.Run("admin may override", func(t *testing.T) {
		f := newFixture()
		o, _, err := f.svc.PlaceOrder(context.Background(), admin, in)
		require.NoError(t, err)
		assert.True(t, o.TaxPrice.IsZero())
		assert.True(t, o.ShippingPrice.IsZero())
		assert.True(t, o.TotalPrice.Equal(decimal.NewFromInt(15)))
	})
}

func TestPlaceOrder_Rejections(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	cases := []struct {
		name   string
		caller domain.Identity
		in     PlaceInput
		want   error
	}{
		{"empty cart", stranger, PlaceInput{ShippingAddress: address()}, domain.ErrValidation},
		{"missing address", owner, PlaceInput{Items: []ItemInput{{ProductID: "mug", Quantity: 1}}}, domain.ErrValidation},
		{"bad method", owner, PlaceInput{ShippingAddress: address(), PaymentMethod: "barter"}, domain.ErrValidation},
		{"zero quantity", owner, PlaceInput{ShippingAddress: address(), Items: []ItemInput{{ProductID: "mug"}}}, domain.ErrValidation},
		{"unknown product", owner, PlaceInput{ShippingAddress: address(), Items: []ItemInput{{ProductID: "nope", Quantity: 1}}}, domain.ErrNotFound},
		{"inactive product", owner, PlaceInput{ShippingAddress: address(), Items: []ItemInput{{ProductID: "old", Quantity: 1}}}, domain.ErrNotFound},
		{"short stock", owner, PlaceInput{ShippingAddress: address(), Items: []ItemInput{{ProductID: "lamp", Quantity: 2}}}, domain.ErrInsufficientStock},
		{"anonymous", domain.Identity{}, PlaceInput{ShippingAddress: address()}, domain.ErrUnauthorized},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := f.svc.PlaceOrder(ctx, tc.caller, tc.in)
			assert.ErrorIs(t, err, tc.want)
		})
	}
	assert.Equal(t, 5, f.repo.stock["mug"])
	assert.Empty(t, f.events.events)
}

func TestPlaceOrder_ReplayedTokenDoesNotPublish(t *testing.T) {
	f := newFixture()
	in := PlaceInput{
		Items:           []ItemInput{{ProductID: "mug", Quantity: 1}},
		ShippingAddress: address(),
		PlacementToken:  "k1",
	}

	first, created, err := f.svc.PlaceOrder(context.Background(), owner, in)
	require.NoError(t, err)
	require.True(t, created)
	second, created, err := f.svc.PlaceOrder(context.Background(), owner, in)
	require.NoError(t, err)

	assert.False(t, created)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 4, f.repo.stock["mug"])
	assert.Len(t, f.events.events, 1)
}

func TestCancelOrder_RestoresStockOnce(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	o := f.place(t, ItemInput{ProductID: "mug", Quantity: 3})

	_, err := f.svc.CancelOrder(ctx, stranger, o.ID)
	require.ErrorIs(t, err, domain.ErrForbidden)

	cancelled, err := f.svc.CancelOrder(ctx, owner, o.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCancelled, cancelled.Status)
	assert.Equal(t, "Order cancelled by user", cancelled.StatusHistory[1].Note)
	assert.Equal(t, 5, f.repo.stock["mug"])

	_, err = f.svc.CancelOrder(ctx, owner, o.ID)
	require.ErrorIs(t, err, domain.ErrInvalidState)
	assert.Equal(t, 5, f.repo.stock["mug"])

	_, err = f.svc.CancelOrder(ctx, owner, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestCancelOrder_AdminNote(t *testing.T) {
	f := newFixture()
	o := f.place(t, ItemInput{ProductID: "mug", Quantity: 1})

	cancelled, err := f.svc.CancelOrder(context.Background(), admin, o.ID)
	require.NoError(t, err)
	assert.Equal(t, "Order cancelled by admin", cancelled.StatusHistory[1].Note)
}

func TestUpdateStatus(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	o := f.place(t, ItemInput{ProductID: "mug", Quantity: 2})

	_, err := f.svc.UpdateStatus(ctx, owner, o.ID, "Shipped", "")
	require.ErrorIs(t, err, domain.ErrForbidden)
	_, err = f.svc.UpdateStatus(ctx, admin, o.ID, "Lost", "")
	require.ErrorIs(t, err, domain.ErrValidation)

	shipped, err := f.svc.UpdateStatus(ctx, admin, o.ID, "shipped", "")
	require.NoError(t, err)
	assert.Equal(t, "Order status updated to Shipped", shipped.StatusHistory[1].Note)

	_, err = f.svc.UpdateStatus(ctx, admin, o.ID, "Confirmed", "")
	require.ErrorIs(t, err, domain.ErrInvalidState)

	delivered, err := f.svc.UpdateStatus(ctx, admin, o.ID, "Delivered", "left at door")
	require.NoError(t, err)
	assert.True(t, delivered.IsDelivered)
	require.NotNil(t, delivered.DeliveredAt)
	assert.Equal(t, "left at door", delivered.StatusHistory[2].Note)

	_, err = f.svc.UpdateStatus(ctx, admin, o.ID, "Cancelled", "")
	require.ErrorIs(t, err, domain.ErrInvalidState)
	assert.Equal(t, 3, f.repo.stock["mug"])
}

func TestUpdateStatus_CancelRestoresStock(t *testing.T) {
	f := newFixture()
	o := f.place(t, ItemInput{ProductID: "mug", Quantity: 2})

	cancelled, err := f.svc.UpdateStatus(context.Background(), admin, o.ID, "Cancelled", "")
	require.NoError(t, err)
	assert.Equal(t, "Order cancelled by admin", cancelled.StatusHistory[1].Note)
	assert.Equal(t, 5, f.repo.stock["mug"])
	assert.Equal(t, events.OrderCancelled, f.events.events[len(f.events.events)-1].Type)
}

func TestUpdatePaymentStatus(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	o := f.place(t, ItemInput{ProductID: "mug", Quantity: 1})

	_, err := f.svc.UpdatePaymentStatus(ctx, stranger, o.ID, "pi_1", "succeeded")
	require.ErrorIs(t, err, domain.ErrForbidden)

	paid, err := f.svc.UpdatePaymentStatus(ctx, owner, o.ID, "pi_1", "succeeded")
	require.NoError(t, err)
	assert.True(t, paid.IsPaid)
	assert.NotNil(t, paid.PaidAt)

	failed, err := f.svc.UpdatePaymentStatus(ctx, admin, o.ID, "pi_1", "failed")
	require.NoError(t, err)
	assert.False(t, failed.IsPaid)
	assert.Nil(t, failed.PaidAt)
	assert.Equal(t, "failed", failed.Payment.Status)
}

func TestPublishFailureDoesNotFailRequest(t *testing.T) {
	f := newFixture()
	f.events.err = errors.New("broker down")

	o := f.place(t, ItemInput{ProductID: "mug", Quantity: 1})
	assert.NotEmpty(t, o.ID)
}

func TestReads(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	o := f.place(t, ItemInput{ProductID: "mug", Quantity: 1})

	got, err := f.svc.Get(ctx, owner, o.ID)
	require.NoError(t, err)
	assert.Equal(t, o.ID, got.ID)
	_, err = f.svc.Get(ctx, stranger, o.ID)
	assert.ErrorIs(t, err, domain.ErrForbidden)
	_, err = f.svc.Get(ctx, admin, o.ID)
	assert.NoError(t, err)

	mine, err := f.svc.ListMine(ctx, owner)
	require.NoError(t, err)
	assert.Len(t, mine, 1)

	_, _, err = f.svc.ListAll(ctx, owner, "", 1, 10)
	assert.ErrorIs(t, err, domain.ErrForbidden)
	all, page, err := f.svc.ListAll(ctx, admin, "processing", 0, 0)
	require.NoError(t, err)
	assert.Len(t, all, 1)
	assert.Equal(t, DefaultListLimit, page.Limit)
	assert.Equal(t, 1, page.TotalPages)
}
