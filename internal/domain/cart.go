package domain

import "time"

// CartTTL is how long an unmodified cart survives before it is
// discarded on the next load.
const CartTTL = 7 * 24 * time.Hour

type Cart struct {
	ID        string     `bson:"_id,omitempty" json:"id,omitempty"`
	UserID    string     `bson:"user_id" json:"user_id"`
	Items     []CartItem `bson:"items" json:"items"`
	CreatedAt time.Time  `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time  `bson:"updated_at" json:"updated_at"`
}

// CartItem snapshots the product at add time; Price is the price the
// item was added at, not the live catalog price.
type CartItem struct {
	ProductID int64     `bson:"product_id" json:"product_id"`
	Name      string    `bson:"name" json:"name"`
	Price     float64   `bson:"price" json:"price"`
	ImageURL  string    `bson:"image_url" json:"image_url"`
	Quantity  int       `bson:"quantity" json:"quantity"`
	AddedAt   time.Time `bson:"added_at" json:"added_at"`
}

// Subtotal is the sum of price * quantity across items.
func (c *Cart) Subtotal() float64 {
	var total float64
	for _, item := range c.Items {
		total += item.Price * float64(item.Quantity)
	}
	return total
}

// ItemCount is the sum of quantities across items.
func (c *Cart) ItemCount() int {
	var count int
	for _, item := range c.Items {
		count += item.Quantity
	}
	return count
}

// ExpiresAt is the instant the cart becomes stale: last write + CartTTL.
func (c *Cart) ExpiresAt() time.Time {
	return c.UpdatedAt.Add(CartTTL)
}

// IsExpired reports whether the cart's last write is older than CartTTL.
func (c *Cart) IsExpired(now time.Time) bool {
	if len(c.Items) == 0 {
		return false
	}
	return now.After(c.ExpiresAt())
}
