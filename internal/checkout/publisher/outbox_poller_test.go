package publisher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/Raghu1611/freshmart-sub000/internal/checkout"
	"github.com/Raghu1611/freshmart-sub000/internal/domain"
	"github.com/google/uuid"
	kafkaGo "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go/modules/kafka"
)

type MockStore struct {
	Events       []*checkout.OutboxEvent
	ProcessedIDs []uuid.UUID

	StuckSessions []*checkout.CheckoutSession
	StuckErr      error

	CompleteErr   error
	CompleteCalls int
	CompletedIDs  []uuid.UUID
}

func (m *MockStore) GetUnprocessedEvents(context.Context, int) ([]*checkout.OutboxEvent, error) {
	if len(m.Events) > 0 {
		ev := []*checkout.OutboxEvent{m.Events[0]}
		m.Events = nil
		return ev, nil
	}
	return nil, nil
}

func (m *MockStore) MarkEventAsProcessed(_ context.Context, eventID uuid.UUID) error {
	m.ProcessedIDs = append(m.ProcessedIDs, eventID)
	return nil
}

func (m *MockStore) GetStuckSessions(context.Context) ([]*checkout.CheckoutSession, error) {
	if m.StuckErr != nil {
		return nil, m.StuckErr
	}
	return m.StuckSessions, nil
}

func (m *MockStore) CompleteCheckoutSession(_ context.Context, id uuid.UUID, _ []byte, _ domain.CheckoutStatus) error {
	m.CompleteCalls++
	if m.CompleteErr != nil {
		return m.CompleteErr
	}
	m.CompletedIDs = append(m.CompletedIDs, id)
	return nil
}

func setupKafka(t *testing.T) string {
	ctx := context.Background()

	kafkaContainer, err := kafka.Run(ctx, "confluentinc/confluent-local:7.5.0")
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := kafkaContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate kafka container: %v", err)
		}
	})

	brokers, err := kafkaContainer.Brokers(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, brokers, "broker address should not be empty")

	return brokers[0]
}

func createTopic(t *testing.T, brokerAddr, topic string) {
	conn, err := kafkaGo.Dial("tcp", brokerAddr)
	require.NoError(t, err)
	defer conn.Close()

	controller, err := conn.Controller()
	require.NoError(t, err)

	controllerConn, err := kafkaGo.Dial("tcp", fmt.Sprintf("%s:%d", controller.Host, controller.Port))
	require.NoError(t, err)
	defer controllerConn.Close()

	topicConfigs := []kafkaGo.TopicConfig{{
		Topic:             topic,
		NumPartitions:     1,
		ReplicationFactor: 1,
	}}

	if err := controllerConn.CreateTopics(topicConfigs...); err != nil {
		t.Logf("topic creation error (may already exist): %v", err)
	}
}

func TestOutboxPoller_PublishesEventsToKafka(t *testing.T) {
	brokerAddr := setupKafka(t)
	createTopic(t, brokerAddr, Topic)

	// Give Kafka time to fully initialize the topic
	time.Sleep(5 * time.Second)

	checkoutID := uuid.New()
	eventID := uuid.New()
	mockRepo := &MockStore{
		Events: []*checkout.OutboxEvent{{
			ID:          eventID,
			AggregateID: checkoutID.String(),
			EventType:   checkout.EventTypeCheckoutCompleted,
			Payload:     json.RawMessage(`{"checkout_id":"` + checkoutID.String() + `","user_id":"user-456"}`),
			CreatedAt:   time.Now(),
		}},
	}

	writer := &kafkaGo.Writer{
		Addr:         kafkaGo.TCP(brokerAddr),
		Topic:        Topic,
		Balancer:     &kafkaGo.LeastBytes{},
		WriteTimeout: 10 * time.Second,
		ReadTimeout:  10 * time.Second,
	}
	defer writer.Close()

	poller := &OutboxPoller{
		eventTick:    time.Second,
		recoveryTick: 5 * time.Second,
		repo:         mockRepo,
		writer:       writer,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	go poller.Run(ctx)

	reader := kafkaGo.NewReader(kafkaGo.ReaderConfig{
		Brokers:  []string{brokerAddr},
		Topic:    Topic,
		GroupID:  "test-consumer",
		MinBytes: 1,
		MaxBytes: 10e6,
	})
	defer reader.Close()

	msg, err := reader.ReadMessage(ctx)
	require.NoError(t, err)

	assert.Equal(t, checkoutID.String(), string(msg.Key))

	var payload map[string]interface{}
	require.NoError(t, json.Unmarshal(msg.Value, &payload))
	assert.Equal(t, checkoutID.String(), payload["checkout_id"])
	assert.Equal(t, "user-456", payload["user_id"])

	assert.Equal(t, []uuid.UUID{eventID}, mockRepo.ProcessedIDs)
}

func stuckSession(t *testing.T, items []domain.CartSnapshotItem) *checkout.CheckoutSession {
	t.Helper()
	snapshot := &domain.CartSnapshot{
		Items:      items,
		Currency:   "USD",
		CapturedAt: time.Now(),
	}
	snapshotJSON, err := json.Marshal(snapshot)
	require.NoError(t, err)
	return &checkout.CheckoutSession{
		ID:             uuid.New(),
		IdempotencyKey: "key-" + uuid.NewString(),
		UserID:         "user-1",
		Status:         domain.CheckoutStatusPaymentCompleted,
		PaymentMethod:  domain.PaymentMethodCard,
		CartSnapshot:   snapshotJSON,
		CreatedAt:      time.Now(),
		UpdatedAt:      time.Now(),
	}
}

func TestRecoveringStuckSession(t *testing.T) {
	session := stuckSession(t, []domain.CartSnapshotItem{
		{ProductID: 1, Quantity: 1},
		{ProductID: 2, Quantity: 2},
	})
	mockRepo := &MockStore{StuckSessions: []*checkout.CheckoutSession{session}}

	poller := NewOutboxPoller(mockRepo)
	poller.recoverStuckSessions(context.Background())

	require.Equal(t, []uuid.UUID{session.ID}, mockRepo.CompletedIDs)
}

func TestRecoveringStuckSession_GetStuckSessionsError(t *testing.T) {
	mockRepo := &MockStore{StuckErr: errors.New("database connection error")}

	poller := NewOutboxPoller(mockRepo)
	poller.recoverStuckSessions(context.Background())

	assert.Equal(t, 0, mockRepo.CompleteCalls)
}

func TestRecoveringStuckSession_InvalidCartSnapshot(t *testing.T) {
	session := stuckSession(t, nil)
	session.CartSnapshot = []byte(`{invalid json here!`)
	mockRepo := &MockStore{StuckSessions: []*checkout.CheckoutSession{session}}

	poller := NewOutboxPoller(mockRepo)
	poller.recoverStuckSessions(context.Background())

	assert.Equal(t, 0, mockRepo.CompleteCalls,
		"session with invalid JSON should be skipped, not processed")
}

func TestRecoveringStuckSession_CompleteCheckoutError(t *testing.T) {
	session := stuckSession(t, []domain.CartSnapshotItem{{ProductID: 1, Quantity: 1}})
	mockRepo := &MockStore{
		StuckSessions: []*checkout.CheckoutSession{session},
		CompleteErr:   errors.New("database deadlock"),
	}

	poller := NewOutboxPoller(mockRepo)
	poller.recoverStuckSessions(context.Background())

	assert.Equal(t, 1, mockRepo.CompleteCalls)
}

func TestRecoveringStuckSession_MultipleSessionsWithPartialFailures(t *testing.T) {
	good1 := stuckSession(t, []domain.CartSnapshotItem{{ProductID: 1, Quantity: 1}})
	bad := stuckSession(t, nil)
	bad.CartSnapshot = []byte(`{corrupted`)
	good2 := stuckSession(t, []domain.CartSnapshotItem{{ProductID: 3, Quantity: 2}})

	mockRepo := &MockStore{StuckSessions: []*checkout.CheckoutSession{good1, bad, good2}}

	poller := NewOutboxPoller(mockRepo)
	poller.recoverStuckSessions(context.Background())

	require.Len(t, mockRepo.CompletedIDs, 2, "should complete the two valid sessions")
	assert.Contains(t, mockRepo.CompletedIDs, good1.ID)
	assert.Contains(t, mockRepo.CompletedIDs, good2.ID)
	assert.NotContains(t, mockRepo.CompletedIDs, bad.ID)
}

func TestRecoveringStuckSession_NoSessions(t *testing.T) {
	mockRepo := &MockStore{}

	poller := NewOutboxPoller(mockRepo)
	poller.recoverStuckSessions(context.Background())

	assert.Equal(t, 0, mockRepo.CompleteCalls)
}
