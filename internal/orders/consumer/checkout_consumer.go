// Package consumer turns completed-checkout events into orders.
package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"log"

	"github.com/Raghu1611/freshmart-sub000/internal/domain"
	"github.com/Raghu1611/freshmart-sub000/internal/orders"
	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
)

// eventItem mirrors the Kafka payload item shape from the checkout
// outbox. The snapshot publishes prices as "unit_price", which differs
// from domain.OrderItem's "price" json tag.
type eventItem struct {
	ProductID   int64   `json:"product_id"`
	ProductName string  `json:"product_name"`
	Quantity    int     `json:"quantity"`
	Price       float64 `json:"unit_price"`
}

type CheckoutCompletedEvent struct {
	CheckoutID    string      `json:"checkout_id"`
	UserID        string      `json:"user_id"`
	Items         []eventItem `json:"items"`
	TotalAmount   float64     `json:"total_amount"`
	Currency      string      `json:"currency"`
	PaymentMethod string      `json:"payment_method"`
	Address       string      `json:"address"`
}

type Consumer struct {
	repo   orders.OrderRepository
	reader *kafka.Reader
}

func NewConsumer(repo orders.OrderRepository, brokers ...string) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    "checkout-outbox",
		GroupID:  "orders",
		MaxBytes: 10e6, // 10MB
	})
	return &Consumer{repo, reader}
}

func (c *Consumer) Run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		c.processMessage(ctx)
	}
}

func (c *Consumer) Close() {
	if err := c.reader.Close(); err != nil {
		log.Printf("error closing kafka reader: %v", err)
	}
}

func (c *Consumer) processMessage(ctx context.Context) {
	m, err := c.reader.ReadMessage(ctx)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		log.Printf("error reading message: %v", err)
		return
	}

	var event CheckoutCompletedEvent
	if err := json.Unmarshal(m.Value, &event); err != nil {
		log.Printf("error parsing message: %v", err)
		return
	}

	checkoutID, err := uuid.Parse(event.CheckoutID)
	if err != nil {
		log.Printf("invalid checkout_id %q: %v", event.CheckoutID, err)
		return
	}

	currency := event.Currency
	if currency == "" {
		currency = "USD"
	}

	items := make([]domain.OrderItem, len(event.Items))
	for i, item := range event.Items {
		items[i] = domain.OrderItem{
			ProductID:   item.ProductID,
			ProductName: item.ProductName,
			Quantity:    item.Quantity,
			Price:       item.Price,
		}
	}

	order := &domain.Order{
		ID:            uuid.New(),
		CheckoutID:    checkoutID,
		UserID:        event.UserID,
		TotalAmount:   event.TotalAmount,
		Currency:      currency,
		Status:        domain.OrderStatusConfirmed,
		PaymentMethod: event.PaymentMethod,
		Address:       event.Address,
		Items:         items,
	}

	if err := c.repo.CreateOrder(ctx, order); err != nil {
		if errors.Is(err, orders.ErrDuplicateCheckout) {
			log.Printf("order for checkout %s already exists, skipping", event.CheckoutID)
			return
		}
		log.Printf("failed to create order for checkout %s: %v", event.CheckoutID, err)
		return
	}

	log.Printf("order %s created for checkout %s", order.ID, order.CheckoutID)
}
