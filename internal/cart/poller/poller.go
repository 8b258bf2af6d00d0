// Package poller empties carts once their checkout completes.
package poller

import (
	"context"
	"encoding/json"
	"errors"
	"log"

	"github.com/Raghu1611/freshmart-sub000/internal/cache"
	"github.com/Raghu1611/freshmart-sub000/internal/cart"
	"github.com/segmentio/kafka-go"
)

type Poller struct {
	repo   cart.Repository
	cache  cache.CartCache
	reader *kafka.Reader
}

func NewPoller(repo cart.Repository, cartCache cache.CartCache, brokers ...string) *Poller {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    "checkout-outbox",
		GroupID:  "cart-cleaner",
		MaxBytes: 10e6, // 10MB
	})
	return &Poller{repo, cartCache, reader}
}

func (p *Poller) Run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		p.getMessagesAndEmptyCart(ctx)
	}
}

func (p *Poller) Close() {
	if err := p.reader.Close(); err != nil {
		log.Printf("error closing reader: %v", err)
	}
}

func (p *Poller) getMessagesAndEmptyCart(ctx context.Context) {
	m, err := p.reader.ReadMessage(ctx)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		log.Printf("error reading message: %v", err)
		return
	}

	var payload map[string]interface{}
	if errUnMarshal := json.Unmarshal(m.Value, &payload); errUnMarshal != nil {
		log.Printf("error parsing message: %v", errUnMarshal)
		return
	}
	userID, ok := payload["user_id"].(string)
	if !ok {
		log.Println("missing or invalid user_id")
		return
	}

	if errDelete := p.repo.DeleteCart(ctx, userID); errDelete != nil && !errors.Is(errDelete, cart.ErrCartNotFound) {
		log.Printf("failed to delete cart: %v", errDelete)
	}

	if errCacheDelete := p.cache.Delete(ctx, userID); errCacheDelete != nil {
		log.Printf("failed to delete cache: %v", errCacheDelete)
	}
}
