package cart

import (
	"context"
	"testing"

	"github.com/Raghu1611/freshmart-sub000/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go/modules/mongodb"
)

func setupTestDB(t *testing.T) (Repository, func()) {
	ctx := context.Background()

	// Start MongoDB container
	mongoContainer, err := mongodb.Run(ctx, "mongo:7")
	require.NoError(t, err)

	// Get connection string
	uri, err := mongoContainer.ConnectionString(ctx)
	require.NoError(t, err)

	db, err := ConnectMongoDB(ctx, uri, "testdb")
	require.NoError(t, err)

	repo := NewMongoRepository(db)
	require.NoError(t, repo.CreateIndexes(ctx))

	cleanup := func() {
		if err := mongoContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %s", err)
		}
	}

	return repo, cleanup
}

func TestGetCart_NotFound(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()

	cart, err := repo.GetCart(context.Background(), "nonexistent")

	assert.ErrorIs(t, err, ErrCartNotFound)
	assert.Nil(t, cart)
}

func TestAddItem_NewCart(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	userID := "user123"
	item := domain.CartItem{
		ProductID: 1,
		Name:      "milk",
		Price:     3.5,
		Quantity:  3,
	}
	err := repo.AddItem(ctx, userID, item)
	require.NoError(t, err)

	cart, err := repo.GetCart(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, userID, cart.UserID)
	assert.Len(t, cart.Items, 1)
	assert.Equal(t, int64(1), cart.Items[0].ProductID)
	assert.Equal(t, 3, cart.Items[0].Quantity)
	assert.InDelta(t, 3.5, cart.Items[0].Price, 1e-9)
	assert.False(t, cart.UpdatedAt.IsZero())
}

func TestAddItem_ExistingItem_IncrementsQuantity(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	userID := "user123"

	err := repo.AddItem(ctx, userID, domain.CartItem{ProductID: 1, Quantity: 2, Price: 3.5})
	require.NoError(t, err)

	// Adding the same product merges into one entry.
	err = repo.AddItem(ctx, userID, domain.CartItem{ProductID: 1, Quantity: 5, Price: 3.5})
	require.NoError(t, err)

	cart, err := repo.GetCart(ctx, userID)
	require.NoError(t, err)
	assert.Len(t, cart.Items, 1)
	assert.Equal(t, 7, cart.Items[0].Quantity)
}

func TestUpdateItemQuantity(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	userID := "user123"

	err := repo.AddItem(ctx, userID, domain.CartItem{ProductID: 1, Quantity: 2})
	require.NoError(t, err)

	err = repo.UpdateItemQuantity(ctx, userID, 1, 10)
	require.NoError(t, err)

	cart, err := repo.GetCart(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, 10, cart.Items[0].Quantity)
}

func TestUpdateItemQuantity_MissingItem(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()

	err := repo.UpdateItemQuantity(context.Background(), "user123", 999, 5)
	assert.ErrorIs(t, err, ErrItemNotFound)
}

func TestRepositoryRemoveItem(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	userID := "user123"

	err := repo.AddItem(ctx, userID, domain.CartItem{ProductID: 1, Quantity: 2})
	require.NoError(t, err)
	err = repo.AddItem(ctx, userID, domain.CartItem{ProductID: 2, Quantity: 3})
	require.NoError(t, err)

	err = repo.RemoveItem(ctx, userID, 1)
	require.NoError(t, err)

	cart, err := repo.GetCart(ctx, userID)
	require.NoError(t, err)
	assert.Len(t, cart.Items, 1)
	assert.Equal(t, int64(2), cart.Items[0].ProductID)
}

func TestDeleteCart(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	userID := "user123"

	err := repo.AddItem(ctx, userID, domain.CartItem{ProductID: 1, Quantity: 2})
	require.NoError(t, err)

	err = repo.DeleteCart(ctx, userID)
	require.NoError(t, err)

	_, err = repo.GetCart(ctx, userID)
	assert.ErrorIs(t, err, ErrCartNotFound)

	err = repo.DeleteCart(ctx, userID)
	assert.ErrorIs(t, err, ErrCartNotFound)
}
