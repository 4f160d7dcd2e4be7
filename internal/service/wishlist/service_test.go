package wishlist

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"storefront/internal/domain"
)

type memoryWishlist map[string][]string

func (m memoryWishlist) ProductIDs(_ context.Context, userID string) ([]string, error) {
	return append([]string{}, m[userID]...), nil
}

func (m memoryWishlist) Add(_ context.Context, userID, productID string) error {
	for _, id := range m[userID] {
		if id == productID {
			return domain.ErrAlreadyExists
		}
	}
	m[userID] = append([]string{productID}, m[userID]...)
	return nil
}

func (m memoryWishlist) Remove(_ context.Context, userID, productID string) error {
	kept := m[userID][:0]
	for _, id := range m[userID] {
		if id != productID {
			kept = append(kept, id)
		}
	}
	m[userID] = kept
	return nil
}

type stubProducts map[string]domain.Product

func (s stubProducts) GetByID(_ context.Context, id string) (*domain.Product, error) {
	p, ok := s[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &p, nil
}

func (s stubProducts) GetMany(ctx context.Context, ids []string) ([]domain.Product, error) {
	out := []domain.Product{}
	for _, id := range ids {
		if p, ok := s[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func TestWishlist(t *testing.T) {
	products := stubProducts{
		"mug":  {ID: "mug", Name: "Mug", IsActive: true},
		"lamp": {ID: "lamp", Name: "Lamp", IsActive: true},
		"old":  {ID: "old", Name: "Old"},
	}
	svc := New(memoryWishlist{}, products, nil)
	ctx := context.Background()
	caller := domain.Identity{UserID: "u1", Role: domain.RoleUser}

	_, err := svc.Add(ctx, caller, "mug")
	require.NoError(t, err)
	list, err := svc.Add(ctx, caller, "lamp")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "lamp", list[0].ID)

	_, err = svc.Add(ctx, caller, "mug")
	assert.ErrorIs(t, err, domain.ErrAlreadyExists)
	_, err = svc.Add(ctx, caller, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = svc.Add(ctx, caller, "old")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	list, err = svc.Remove(ctx, caller, "mug")
	require.NoError(t, err)
	require.Len(t, list, 1)
	list, err = svc.Remove(ctx, caller, "mug")
	require.NoError(t, err)
	assert.Len(t, list, 1)

	_, err = svc.Get(ctx, domain.Identity{})
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestWishlist_LogsChanges(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	svc := New(memoryWishlist{}, stubProducts{"mug": {ID: "mug", IsActive: true}}, zap.New(core))
	ctx := context.Background()
	caller := domain.Identity{UserID: "u1", Role: domain.RoleUser}

	_, err := svc.Add(ctx, caller, "mug")
	require.NoError(t, err)
	_, err = svc.Remove(ctx, caller, "mug")
	require.NoError(t, err)

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, "wishlist", entries[0].LoggerName)
	assert.Equal(t, "product saved", entries[0].Message)
	assert.Equal(t, "product removed", entries[1].Message)
	assert.Equal(t, "mug", entries[1].ContextMap()["productID"])
}
