package checkout

import (
	"context"
	"database/sql"

	"github.com/Raghu1611/freshmart-sub000/internal/domain"
	"github.com/Raghu1611/freshmart-sub000/internal/payment"
	"github.com/google/uuid"
)

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: true}
}

// MockStore implements Store for testing.
type MockStore struct {
	Existing *CheckoutSession // returned by the idempotency lookup
	Stored   *CheckoutSession // returned by GetCheckoutSession
	GetErr   error

	CreateErr error
	Created   *CheckoutSession

	StatusUpdates []domain.CheckoutStatus

	PaymentStatus domain.CheckoutStatus
	PaymentID     string

	CompleteErr      error
	CompleteCalls    int
	CompletedID      uuid.UUID
	CompletedPayload []byte
	CompletedStatus  domain.CheckoutStatus

	Events        []*OutboxEvent
	ProcessedIDs  []uuid.UUID
	StuckSessions []*CheckoutSession
	StuckErr      error
}

func (m *MockStore) CreateCheckoutSession(_ context.Context, session *CheckoutSession) error {
	// Capture a snapshot so later mutations by the service don't leak
	// into assertions about the session as it was created.
	created := *session
	m.Created = &created
	return m.CreateErr
}

func (m *MockStore) GetCheckoutSession(_ context.Context, id uuid.UUID) (*CheckoutSession, error) {
	if m.GetErr != nil {
		return nil, m.GetErr
	}
	if m.Stored == nil || m.Stored.ID != id {
		return nil, ErrSessionNotFound
	}
	return m.Stored, nil
}

func (m *MockStore) GetCheckoutSessionByIdempotencyKey(_ context.Context, _ string) (*CheckoutSession, error) {
	if m.GetErr != nil {
		return nil, m.GetErr
	}
	if m.Existing == nil {
		return nil, ErrIdempotencyKeyNotFound
	}
	return m.Existing, nil
}

func (m *MockStore) UpdateCheckoutSessionStatus(_ context.Context, _ uuid.UUID, status domain.CheckoutStatus) error {
	m.StatusUpdates = append(m.StatusUpdates, status)
	return nil
}

func (m *MockStore) SetPayment(_ context.Context, _ uuid.UUID, status domain.CheckoutStatus, paymentID string) error {
	m.PaymentStatus = status
	m.PaymentID = paymentID
	return nil
}

func (m *MockStore) CompleteCheckoutSession(_ context.Context, id uuid.UUID, payload []byte, status domain.CheckoutStatus) error {
	m.CompleteCalls++
	if m.CompleteErr != nil {
		return m.CompleteErr
	}
	m.CompletedID = id
	m.CompletedPayload = payload
	m.CompletedStatus = status
	return nil
}

func (m *MockStore) GetUnprocessedEvents(context.Context, int) ([]*OutboxEvent, error) {
	return m.Events, nil
}

func (m *MockStore) MarkEventAsProcessed(_ context.Context, eventID uuid.UUID) error {
	m.ProcessedIDs = append(m.ProcessedIDs, eventID)
	return nil
}

func (m *MockStore) GetStuckSessions(context.Context) ([]*CheckoutSession, error) {
	if m.StuckErr != nil {
		return nil, m.StuckErr
	}
	return m.StuckSessions, nil
}

// MockCarts implements cartProvider for testing.
type MockCarts struct {
	Cart *domain.Cart
	Err  error
}

func (m *MockCarts) GetCart(context.Context, string) (*domain.Cart, error) {
	return m.Cart, m.Err
}

// MockPayments implements paymentProcessor for testing.
type MockPayments struct {
	CreateResult *payment.Intent
	CreateErr    error
	GetResult    *payment.Intent
	GetErr       error

	CreatedAmount   float64
	CreatedCheckout string
}

func (m *MockPayments) CreateIntent(_ context.Context, amount float64, _, checkoutID string) (*payment.Intent, error) {
	m.CreatedAmount = amount
	m.CreatedCheckout = checkoutID
	return m.CreateResult, m.CreateErr
}

func (m *MockPayments) GetIntent(context.Context, string) (*payment.Intent, error) {
	return m.GetResult, m.GetErr
}
