package domain

import (
	"time"

	"github.com/google/uuid"
)

type OrderStatus string

const (
	OrderStatusConfirmed  OrderStatus = "CONFIRMED"
	OrderStatusProcessing OrderStatus = "PROCESSING"
	OrderStatusShipped    OrderStatus = "SHIPPED"
	OrderStatusDelivered  OrderStatus = "DELIVERED"
)

// orderTransitions is the forward-only fulfilment path.
var orderTransitions = map[OrderStatus]OrderStatus{
	OrderStatusConfirmed:  OrderStatusProcessing,
	OrderStatusProcessing: OrderStatusShipped,
	OrderStatusShipped:    OrderStatusDelivered,
}

// CanAdvanceTo reports whether an order may move from s to next.
func (s OrderStatus) CanAdvanceTo(next OrderStatus) bool {
	return orderTransitions[s] == next
}

type OrderItem struct {
	ProductID   int64   `json:"product_id"`
	ProductName string  `json:"product_name"`
	Quantity    int     `json:"quantity"`
	Price       float64 `json:"price"`
}

type Order struct {
	ID            uuid.UUID   `json:"id"`
	CheckoutID    uuid.UUID   `json:"checkout_id"`
	UserID        string      `json:"user_id"`
	TotalAmount   float64     `json:"total_amount"`
	Currency      string      `json:"currency"`
	Status        OrderStatus `json:"status"`
	PaymentMethod string      `json:"payment_method"`
	Address       string      `json:"address"`
	Items         []OrderItem `json:"items"`
	CreatedAt     time.Time   `json:"created_at"`
	UpdatedAt     time.Time   `json:"updated_at"`
}
