package cart

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/Raghu1611/freshmart-sub000/internal/cache"
	"github.com/Raghu1611/freshmart-sub000/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memoryRepository mirrors the persistence contract: merge-by-product-id
// on add, updated_at rewritten on every mutation.
type memoryRepository struct {
	mu    sync.RWMutex
	carts map[string]*domain.Cart
}

func newMemoryRepository() *memoryRepository {
	return &memoryRepository{carts: make(map[string]*domain.Cart)}
}

func (m *memoryRepository) GetCart(_ context.Context, userID string) (*domain.Cart, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	cart, ok := m.carts[userID]
	if !ok {
		return nil, ErrCartNotFound
	}
	copied := *cart
	copied.Items = append([]domain.CartItem(nil), cart.Items...)
	return &copied, nil
}

func (m *memoryRepository) AddItem(_ context.Context, userID string, item domain.CartItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now()
	item.AddedAt = now

	cart, ok := m.carts[userID]
	if !ok {
		m.carts[userID] = &domain.Cart{
			UserID:    userID,
			Items:     []domain.CartItem{item},
			CreatedAt: now,
			UpdatedAt: now,
		}
		return nil
	}

	for i := range cart.Items {
		if cart.Items[i].ProductID == item.ProductID {
			cart.Items[i].Quantity += item.Quantity
			cart.Items[i].AddedAt = now
			cart.UpdatedAt = now
			return nil
		}
	}
	cart.Items = append(cart.Items, item)
	cart.UpdatedAt = now
	return nil
}

func (m *memoryRepository) UpdateItemQuantity(_ context.Context, userID string, productID int64, quantity int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cart, ok := m.carts[userID]
	if !ok {
		return ErrCartNotFound
	}
	for i := range cart.Items {
		if cart.Items[i].ProductID == productID {
			cart.Items[i].Quantity = quantity
			cart.UpdatedAt = time.Now()
			return nil
		}
	}
	return ErrItemNotFound
}

func (m *memoryRepository) RemoveItem(_ context.Context, userID string, productID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cart, ok := m.carts[userID]
	if !ok {
		return ErrCartNotFound
	}
	for i, item := range cart.Items {
		if item.ProductID == productID {
			cart.Items = append(cart.Items[:i], cart.Items[i+1:]...)
			cart.UpdatedAt = time.Now()
			return nil
		}
	}
	return ErrItemNotFound
}

func (m *memoryRepository) DeleteCart(_ context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.carts[userID]; !ok {
		return ErrCartNotFound
	}
	delete(m.carts, userID)
	return nil
}

func (m *memoryRepository) CreateIndexes(context.Context) error { return nil }

// backdate shifts the cart's last write, simulating elapsed days.
func (m *memoryRepository) backdate(userID string, d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if cart, ok := m.carts[userID]; ok {
		cart.UpdatedAt = cart.UpdatedAt.Add(-d)
	}
}

type noopCache struct{}

func (noopCache) Get(context.Context, string) (*domain.Cart, error) { return nil, cache.ErrCacheMiss }
func (noopCache) Set(context.Context, string, *domain.Cart) error   { return nil }
func (noopCache) Delete(context.Context, string) error              { return nil }

func newTestService() (*Service, *memoryRepository) {
	repo := newMemoryRepository()
	return NewService(repo, noopCache{}), repo
}

func TestAddItem_MergesByProductID(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	item := domain.CartItem{ProductID: 1, Name: "milk", Price: 3.5, Quantity: 1}
	require.NoError(t, svc.AddItem(ctx, "u1", item))
	require.NoError(t, svc.AddItem(ctx, "u1", item))

	cart, err := svc.GetCart(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, cart.Items, 1, "same product must merge, not duplicate")
	assert.Equal(t, 2, cart.Items[0].Quantity)
}

func TestAddItem_RejectsZeroQuantity(t *testing.T) {
	svc, _ := newTestService()

	err := svc.AddItem(context.Background(), "u1", domain.CartItem{ProductID: 1, Quantity: 0})
	assert.ErrorIs(t, err, ErrInvalidQuantity)
}

func TestUpdateQuantity_RejectsBelowOne(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	require.NoError(t, svc.AddItem(ctx, "u1", domain.CartItem{ProductID: 1, Quantity: 3}))

	assert.ErrorIs(t, svc.UpdateQuantity(ctx, "u1", 1, 0), ErrInvalidQuantity)
	assert.ErrorIs(t, svc.UpdateQuantity(ctx, "u1", 1, -4), ErrInvalidQuantity)

	cart, err := svc.GetCart(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 3, cart.Items[0].Quantity, "rejected update must leave quantity unchanged")
}

func TestGetCart_RoundTripWithinWindow(t *testing.T) {
	svc, repo := newTestService()
	ctx := context.Background()

	require.NoError(t, svc.AddItem(ctx, "u1", domain.CartItem{ProductID: 7, Name: "eggs", Price: 4, Quantity: 2}))

	// Six elapsed days: still inside the 7-day window.
	repo.backdate("u1", 6*24*time.Hour)

	cart, err := svc.GetCart(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, int64(7), cart.Items[0].ProductID)
	assert.Equal(t, 2, cart.Items[0].Quantity)
}

func TestGetCart_DiscardsAfterSevenDays(t *testing.T) {
	svc, repo := newTestService()
	ctx := context.Background()

	require.NoError(t, svc.AddItem(ctx, "u1", domain.CartItem{ProductID: 7, Quantity: 2, Price: 4}))
	repo.backdate("u1", 8*24*time.Hour)

	cart, err := svc.GetCart(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, cart.Items)

	// The persisted cart is gone, not merely hidden.
	_, err = repo.GetCart(ctx, "u1")
	assert.ErrorIs(t, err, ErrCartNotFound)
}

func TestGetCart_ExpiredCacheHitIsDiscarded(t *testing.T) {
	repo := newMemoryRepository()
	stale := &domain.Cart{
		UserID:    "u1",
		Items:     []domain.CartItem{{ProductID: 1, Quantity: 1, Price: 2}},
		CreatedAt: time.Now().Add(-9 * 24 * time.Hour),
		UpdatedAt: time.Now().Add(-9 * 24 * time.Hour),
	}
	svc := NewService(repo, staticCache{cart: stale})

	cart, err := svc.GetCart(context.Background(), "u1")
	require.NoError(t, err)
	assert.Empty(t, cart.Items)
}

type staticCache struct{ cart *domain.Cart }

func (c staticCache) Get(context.Context, string) (*domain.Cart, error) { return c.cart, nil }
func (staticCache) Set(context.Context, string, *domain.Cart) error     { return nil }
func (staticCache) Delete(context.Context, string) error                { return nil }

func TestGetCart_UnknownUserGetsEmptyCart(t *testing.T) {
	svc, _ := newTestService()

	cart, err := svc.GetCart(context.Background(), "nobody")
	require.NoError(t, err)
	assert.Equal(t, "nobody", cart.UserID)
	assert.Empty(t, cart.Items)
}

func TestRemoveItem(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	require.NoError(t, svc.AddItem(ctx, "u1", domain.CartItem{ProductID: 1, Quantity: 2, Price: 1}))
	require.NoError(t, svc.AddItem(ctx, "u1", domain.CartItem{ProductID: 2, Quantity: 1, Price: 1}))

	require.NoError(t, svc.RemoveItem(ctx, "u1", 1))

	cart, err := svc.GetCart(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, int64(2), cart.Items[0].ProductID)
}

func TestClearCart(t *testing.T) {
	svc, repo := newTestService()
	ctx := context.Background()

	require.NoError(t, svc.AddItem(ctx, "u1", domain.CartItem{ProductID: 1, Quantity: 2, Price: 1}))
	require.NoError(t, svc.ClearCart(ctx, "u1"))

	_, err := repo.GetCart(ctx, "u1")
	assert.ErrorIs(t, err, ErrCartNotFound)

	// Clearing an already-empty cart is not an error.
	assert.NoError(t, svc.ClearCart(ctx, "u1"))
}

func TestTotals(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	require.NoError(t, svc.AddItem(ctx, "u1", domain.CartItem{ProductID: 1, Name: "A", Price: 10, Quantity: 2}))
	require.NoError(t, svc.AddItem(ctx, "u1", domain.CartItem{ProductID: 2, Name: "B", Price: 5, Quantity: 1}))

	pricing, err := svc.Totals(ctx, "u1")
	require.NoError(t, err)
	assert.InDelta(t, 25.0, pricing.Subtotal, 1e-9)
	assert.InDelta(t, 2.5, pricing.Tax, 1e-9)
	assert.InDelta(t, 5.0, pricing.Shipping, 1e-9)
	assert.InDelta(t, 32.5, pricing.Total, 1e-9)

	// Push the subtotal over the free-shipping threshold.
	require.NoError(t, svc.AddItem(ctx, "u1", domain.CartItem{ProductID: 1, Name: "A", Price: 10, Quantity: 3}))

	pricing, err = svc.Totals(ctx, "u1")
	require.NoError(t, err)
	assert.InDelta(t, 55.0, pricing.Subtotal, 1e-9)
	assert.Zero(t, pricing.Shipping)
}
