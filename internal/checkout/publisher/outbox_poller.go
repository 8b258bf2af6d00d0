// Package publisher drains the checkout outbox into Kafka.
package publisher

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/Raghu1611/freshmart-sub000/internal/checkout"
	"github.com/Raghu1611/freshmart-sub000/internal/domain"
	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
)

const Topic = "checkout-outbox"

// pollerStore is the slice of the checkout store the poller uses.
type pollerStore interface {
	GetUnprocessedEvents(ctx context.Context, limit int) ([]*checkout.OutboxEvent, error)
	MarkEventAsProcessed(ctx context.Context, eventID uuid.UUID) error
	GetStuckSessions(ctx context.Context) ([]*checkout.CheckoutSession, error)
	CompleteCheckoutSession(ctx context.Context, id uuid.UUID, payload []byte, status domain.CheckoutStatus) error
}

type OutboxPoller struct {
	eventTick    time.Duration
	recoveryTick time.Duration
	repo         pollerStore
	writer       *kafka.Writer
}

func NewOutboxPoller(repo pollerStore, brokers ...string) *OutboxPoller {
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  Topic,
		Balancer:               &kafka.LeastBytes{},
		AllowAutoTopicCreation: true,
	}
	return &OutboxPoller{
		eventTick:    time.Second,
		recoveryTick: time.Second * 5,
		repo:         repo,
		writer:       w,
	}
}

func (p *OutboxPoller) Run(ctx context.Context) {
	eventTicker := time.NewTicker(p.eventTick)
	recoveryTicker := time.NewTicker(p.recoveryTick)
	defer eventTicker.Stop()
	defer recoveryTicker.Stop()
	for {
		select {
		case <-eventTicker.C:
			p.processUnpublishedEvents(ctx)
		case <-recoveryTicker.C:
			p.recoverStuckSessions(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (p *OutboxPoller) Close() {
	if err := p.writer.Close(); err != nil {
		log.Printf("error closing kafka writer: %v", err)
	}
}

func (p *OutboxPoller) processUnpublishedEvents(ctx context.Context) {
	events, err := p.repo.GetUnprocessedEvents(ctx, 100)
	if err != nil {
		log.Printf("failed to fetch events %v", err)
		return
	}

	for _, event := range events {
		if errPublish := p.publishToKafka(ctx, event); errPublish != nil {
			log.Printf("failed to publish event id = %v with error %v", event.ID, errPublish)
			continue
		}

		if errMark := p.repo.MarkEventAsProcessed(ctx, event.ID); errMark != nil {
			log.Printf("failed to mark event as processed id = %v with error %v", event.ID, errMark)
			continue
		}
	}
}

func (p *OutboxPoller) recoverStuckSessions(ctx context.Context) {
	// A stuck session paid successfully but the process died before the
	// completion transaction, so no outbox event exists for it.
	sessions, err := p.repo.GetStuckSessions(ctx)
	if err != nil {
		log.Printf("failed to get stuck sessions: %v", err)
		return
	}
	for _, session := range sessions {
		log.Printf("recovering stuck session: %v", session.ID)

		var snapshot domain.CartSnapshot
		if err := json.Unmarshal(session.CartSnapshot, &snapshot); err != nil {
			log.Printf("failed to unmarshal cart snapshot for session %v: %v", session.ID, err)
			continue
		}

		payload := map[string]interface{}{
			"checkout_id":    session.ID,
			"user_id":        session.UserID,
			"items":          snapshot.Items,
			"subtotal":       snapshot.Subtotal,
			"tax":            snapshot.Tax,
			"shipping":       snapshot.Shipping,
			"total_amount":   snapshot.TotalAmount,
			"currency":       snapshot.Currency,
			"payment_method": session.PaymentMethod,
			"address":        session.Address,
			"completed_at":   session.UpdatedAt,
		}

		payloadJSON, err := json.Marshal(payload)
		if err != nil {
			log.Printf("failed to marshal checkout payload in poller: %v", err)
			continue
		}

		if err := p.repo.CompleteCheckoutSession(ctx, session.ID, payloadJSON, domain.CheckoutStatusCompleted); err != nil {
			log.Printf("failed to complete checkout in poller: %v", err)
			continue
		}

		log.Printf("session recovered: %v", session.ID)
	}
}

func (p *OutboxPoller) publishToKafka(ctx context.Context, event *checkout.OutboxEvent) error {
	msg := kafka.Message{
		Key:   []byte(event.AggregateID), // checkout_id for ordering
		Value: event.Payload,             // already JSON from the database
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.EventType)},
		},
	}
	return p.writer.WriteMessages(ctx, msg)
}
