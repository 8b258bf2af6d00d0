package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func cartWith(items ...CartItem) *Cart {
	return &Cart{
		UserID:    "1",
		Items:     items,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
}

func TestPriceCart_FlatShippingBelowThreshold(t *testing.T) {
	cart := cartWith(
		CartItem{ProductID: 1, Name: "A", Price: 10, Quantity: 2},
		CartItem{ProductID: 2, Name: "B", Price: 5, Quantity: 1},
	)

	pricing := PriceCart(cart)

	assert.InDelta(t, 25.0, pricing.Subtotal, 1e-9)
	assert.InDelta(t, 2.5, pricing.Tax, 1e-9)
	assert.InDelta(t, 5.0, pricing.Shipping, 1e-9)
	assert.InDelta(t, 32.5, pricing.Total, 1e-9)
}

func TestPriceCart_StillFlatShippingAtHigherSubtotal(t *testing.T) {
	// One more of product A: subtotal 35, still under the threshold.
	cart := cartWith(
		CartItem{ProductID: 1, Name: "A", Price: 10, Quantity: 3},
		CartItem{ProductID: 2, Name: "B", Price: 5, Quantity: 1},
	)

	pricing := PriceCart(cart)

	assert.InDelta(t, 35.0, pricing.Subtotal, 1e-9)
	assert.InDelta(t, 5.0, pricing.Shipping, 1e-9)
	assert.InDelta(t, 43.5, pricing.Total, 1e-9)
}

func TestPriceCart_FreeShippingAboveThreshold(t *testing.T) {
	cart := cartWith(
		CartItem{ProductID: 1, Name: "A", Price: 10, Quantity: 6},
	)

	pricing := PriceCart(cart)

	assert.InDelta(t, 60.0, pricing.Subtotal, 1e-9)
	assert.InDelta(t, 0.0, pricing.Shipping, 1e-9)
	assert.InDelta(t, 66.0, pricing.Total, 1e-9)
}

func TestPriceCart_ExactlyAtThresholdPaysShipping(t *testing.T) {
	cart := cartWith(
		CartItem{ProductID: 1, Name: "A", Price: 25, Quantity: 2},
	)

	pricing := PriceCart(cart)

	assert.InDelta(t, 50.0, pricing.Subtotal, 1e-9)
	assert.InDelta(t, 5.0, pricing.Shipping, 1e-9)
}

func TestPriceCart_EmptyCart(t *testing.T) {
	pricing := PriceCart(cartWith())

	assert.Zero(t, pricing.Subtotal)
	assert.Zero(t, pricing.Shipping)
	assert.Zero(t, pricing.Total)
}

func TestCartExpiry(t *testing.T) {
	now := time.Now()
	cart := cartWith(CartItem{ProductID: 1, Quantity: 1, Price: 2})
	cart.UpdatedAt = now.Add(-8 * 24 * time.Hour)

	assert.True(t, cart.IsExpired(now))

	cart.UpdatedAt = now.Add(-6 * 24 * time.Hour)
	assert.False(t, cart.IsExpired(now))

	// An empty cart never counts as expired.
	empty := cartWith()
	empty.UpdatedAt = now.Add(-30 * 24 * time.Hour)
	assert.False(t, empty.IsExpired(now))
}

func TestSnapshotCart(t *testing.T) {
	now := time.Now()
	cart := cartWith(
		CartItem{ProductID: 1, Name: "milk", Price: 3.5, Quantity: 2},
		CartItem{ProductID: 2, Name: "bread", Price: 2, Quantity: 1},
	)

	snap := SnapshotCart(cart, now)

	assert.Len(t, snap.Items, 2)
	assert.InDelta(t, 7.0, snap.Items[0].Subtotal, 1e-9)
	assert.InDelta(t, 9.0, snap.Subtotal, 1e-9)
	assert.Equal(t, "USD", snap.Currency)
	assert.Equal(t, now, snap.CapturedAt)
}

func TestCheckoutStatusTransitions(t *testing.T) {
	assert.True(t, CanTransitionTo(CheckoutStatusInitiated, CheckoutStatusPaymentPending))
	assert.True(t, CanTransitionTo(CheckoutStatusInitiated, CheckoutStatusCompleted))
	assert.True(t, CanTransitionTo(CheckoutStatusPaymentPending, CheckoutStatusPaymentCompleted))
	assert.True(t, CanTransitionTo(CheckoutStatusPaymentCompleted, CheckoutStatusCompleted))

	assert.False(t, CanTransitionTo(CheckoutStatusCompleted, CheckoutStatusInitiated))
	assert.False(t, CanTransitionTo(CheckoutStatusFailed, CheckoutStatusCompleted))
	assert.False(t, CanTransitionTo(CheckoutStatusPaymentCompleted, CheckoutStatusFailed))
}

func TestOrderStatusAdvance(t *testing.T) {
	assert.True(t, OrderStatusConfirmed.CanAdvanceTo(OrderStatusProcessing))
	assert.True(t, OrderStatusShipped.CanAdvanceTo(OrderStatusDelivered))
	assert.False(t, OrderStatusConfirmed.CanAdvanceTo(OrderStatusShipped))
	assert.False(t, OrderStatusDelivered.CanAdvanceTo(OrderStatusConfirmed))
}
