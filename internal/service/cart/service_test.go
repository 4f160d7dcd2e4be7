package cart

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront/internal/domain"
	cartrepo "storefront/internal/repository/cart"
)

// memoryCarts keeps one cart per user and applies mutations to a copy, so a
// failing mutation leaves the stored cart untouched.
type memoryCarts struct {
	carts map[string]domain.Cart
}

func newMemoryCarts() *memoryCarts {
	return &memoryCarts{carts: make(map[string]domain.Cart)}
}

func (m *memoryCarts) GetOrCreate(_ context.Context, userID string) (*domain.Cart, error) {
	c, ok := m.carts[userID]
	if !ok {
		c = domain.Cart{ID: "cart-" + userID, UserID: userID, Items: []domain.CartItem{}}
		m.carts[userID] = c
	}
	clone := c
	clone.Items = append([]domain.CartItem{}, c.Items...)
	return &clone, nil
}

func (m *memoryCarts) Update(ctx context.Context, userID string, fn cartrepo.MutateFunc) (*domain.Cart, error) {
	c, _ := m.GetOrCreate(ctx, userID)
	if err := fn(c); err != nil {
		return nil, err
	}
	m.carts[userID] = *c
	return c, nil
}

type memoryProducts map[string]domain.Product

func (m memoryProducts) GetByID(_ context.Context, id string) (*domain.Product, error) {
	p, ok := m[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &p, nil
}

var buyer = domain.Identity{UserID: "u1", Role: domain.RoleUser}

func newService() (*Service, memoryProducts) {
	products := memoryProducts{
		"mug":  {ID: "mug", Name: "Mug", Price: decimal.RequireFromString("8.00"), Stock: 3, IsActive: true},
		"lamp": {ID: "lamp", Name: "Lamp", Price: decimal.RequireFromString("40.00"), Stock: 1, IsActive: true},
		"gone": {ID: "gone", Name: "Gone", Price: decimal.RequireFromString("1.00"), Stock: 9},
	}
	return New(newMemoryCarts(), products, nil), products
}

func TestAddItem_MergesAndChecksStagedQuantity(t *testing.T) {
	svc, _ := newService()
	ctx := context.Background()

	_, err := svc.AddItem(ctx, buyer, "mug", 0)
	require.NoError(t, err)
	cart, err := svc.AddItem(ctx, buyer, "mug", 2)
	require.NoError(t, err)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, 3, cart.TotalItems)
	assert.True(t, cart.TotalPrice.Equal(decimal.NewFromInt(24)))

	_, err = svc.AddItem(ctx, buyer, "mug", 1)
	require.ErrorIs(t, err, domain.ErrInsufficientStock)

	stored, err := svc.GetOrCreate(ctx, buyer)
	require.NoError(t, err)
	assert.Equal(t, 3, stored.TotalItems)
}

func TestAddItem_RejectsMissingAndInactiveProducts(t *testing.T) {
	svc, _ := newService()
	ctx := context.Background()

	_, err := svc.AddItem(ctx, buyer, "missing", 1)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = svc.AddItem(ctx, buyer, "gone", 1)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = svc.AddItem(ctx, buyer, "mug", -2)
	assert.ErrorIs(t, err, domain.ErrValidation)
	_, err = svc.AddItem(ctx, domain.Identity{}, "mug", 1)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestUpdateItem_RefreshesSnapshot(t *testing.T) {
	svc, products := newService()
	ctx := context.Background()

	cart, err := svc.AddItem(ctx, buyer, "mug", 1)
	require.NoError(t, err)
	itemID := cart.Items[0].ID

	mug := products["mug"]
	mug.Price = decimal.RequireFromString("9.50")
	products["mug"] = mug

	cart, err = svc.UpdateItem(ctx, buyer, itemID, 2)
	require.NoError(t, err)
	assert.True(t, cart.TotalPrice.Equal(decimal.NewFromInt(19)))

	_, err = svc.UpdateItem(ctx, buyer, itemID, 4)
	assert.ErrorIs(t, err, domain.ErrInsufficientStock)
	_, err = svc.UpdateItem(ctx, buyer, "nope", 1)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = svc.UpdateItem(ctx, buyer, itemID, 0)
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestRemoveAndClear(t *testing.T) {
	svc, _ := newService()
	ctx := context.Background()

	_, err := svc.AddItem(ctx, buyer, "mug", 2)
	require.NoError(t, err)
	cart, err := svc.AddItem(ctx, buyer, "lamp", 1)
	require.NoError(t, err)

	cart, err = svc.RemoveItem(ctx, buyer, cart.Items[0].ID)
	require.NoError(t, err)
	assert.Equal(t, 1, cart.TotalItems)
	cart, err = svc.RemoveItem(ctx, buyer, "absent")
	require.NoError(t, err)
	assert.Equal(t, 1, cart.TotalItems)

	cart, err = svc.Clear(ctx, buyer)
	require.NoError(t, err)
	assert.Empty(t, cart.Items)
	assert.Zero(t, cart.TotalItems)
	assert.True(t, cart.TotalPrice.IsZero())
}
