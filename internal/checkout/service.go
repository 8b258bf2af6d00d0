package checkout

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/Raghu1611/freshmart-sub000/internal/domain"
	"github.com/Raghu1611/freshmart-sub000/internal/payment"
	"github.com/google/uuid"
)

// cartProvider is the slice of the cart service checkout reads from.
type cartProvider interface {
	GetCart(ctx context.Context, userID string) (*domain.Cart, error)
}

// paymentProcessor is the slice of the payment client checkout drives.
type paymentProcessor interface {
	CreateIntent(ctx context.Context, amount float64, currency, checkoutID string) (*payment.Intent, error)
	GetIntent(ctx context.Context, id string) (*payment.Intent, error)
}

type CheckoutRequest struct {
	UserID         string
	IdempotencyKey string
	PaymentMethod  domain.PaymentMethod
	Address        string
}

type CheckoutResponse struct {
	CheckoutID uuid.UUID             `json:"checkout_id"`
	Status     domain.CheckoutStatus `json:"status"`
	// ClientSecret is set only when a card payment still needs to be
	// confirmed by the hosted payment element.
	ClientSecret string `json:"client_secret,omitempty"`
}

type Service struct {
	repo     Store
	carts    cartProvider
	payments paymentProcessor
}

func NewService(repo Store, carts cartProvider, payments paymentProcessor) *Service {
	return &Service{
		repo:     repo,
		carts:    carts,
		payments: payments,
	}
}

// InitiateCheckout freezes the cart into a snapshot and starts a
// checkout session. Replays of the same idempotency key return the
// existing session instead of creating a second one.
func (s *Service) InitiateCheckout(ctx context.Context, request *CheckoutRequest) (*CheckoutResponse, error) {
	existing, err := s.repo.GetCheckoutSessionByIdempotencyKey(ctx, request.IdempotencyKey)
	if err != nil && !errors.Is(err, ErrIdempotencyKeyNotFound) {
		return nil, fmt.Errorf("failed to check idempotency: %w", err)
	}
	if existing != nil {
		log.Printf("duplicate checkout request idempotency_key=%v checkout_id=%v status=%v",
			request.IdempotencyKey, existing.ID, existing.Status)
		return &CheckoutResponse{CheckoutID: existing.ID, Status: existing.Status}, nil
	}

	if request.PaymentMethod != domain.PaymentMethodCOD && request.PaymentMethod != domain.PaymentMethodCard {
		return nil, fmt.Errorf("unsupported payment method %q", request.PaymentMethod)
	}

	cart, err := s.carts.GetCart(ctx, request.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to get cart: %w", err)
	}
	if len(cart.Items) == 0 {
		return nil, ErrEmptyCart
	}

	snapshot := domain.SnapshotCart(cart, time.Now())
	snapshotJSON, err := json.Marshal(snapshot)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal cart snapshot: %w", err)
	}

	session := &CheckoutSession{
		ID:             uuid.New(),
		IdempotencyKey: request.IdempotencyKey,
		UserID:         request.UserID,
		Status:         domain.CheckoutStatusInitiated,
		PaymentMethod:  request.PaymentMethod,
		Address:        request.Address,
		CartSnapshot:   snapshotJSON,
	}

	if err := s.repo.CreateCheckoutSession(ctx, session); err != nil {
		if errors.Is(err, ErrDuplicateIdempotencyKey) {
			// Lost a race with a concurrent replay of the same key.
			raced, rerr := s.repo.GetCheckoutSessionByIdempotencyKey(ctx, request.IdempotencyKey)
			if rerr != nil {
				return nil, fmt.Errorf("failed to load racing checkout session: %w", rerr)
			}
			return &CheckoutResponse{CheckoutID: raced.ID, Status: raced.Status}, nil
		}
		return nil, err
	}

	if request.PaymentMethod == domain.PaymentMethodCOD {
		if err := s.complete(ctx, session, snapshot); err != nil {
			return nil, err
		}
		return &CheckoutResponse{CheckoutID: session.ID, Status: domain.CheckoutStatusCompleted}, nil
	}

	return s.startCardPayment(ctx, session, snapshot)
}

func (s *Service) startCardPayment(ctx context.Context, session *CheckoutSession, snapshot *domain.CartSnapshot) (*CheckoutResponse, error) {
	if !domain.CanTransitionTo(session.Status, domain.CheckoutStatusPaymentPending) {
		return nil, ErrIllegalTransition
	}
	if err := s.repo.UpdateCheckoutSessionStatus(ctx, session.ID, domain.CheckoutStatusPaymentPending); err != nil {
		return nil, err
	}
	session.Status = domain.CheckoutStatusPaymentPending

	intent, err := s.payments.CreateIntent(ctx, snapshot.TotalAmount, "usd", session.ID.String())
	if err != nil {
		if ferr := s.repo.UpdateCheckoutSessionStatus(ctx, session.ID, domain.CheckoutStatusFailed); ferr != nil {
			log.Printf("failed to mark checkout %v failed: %v", session.ID, ferr)
		}
		return nil, fmt.Errorf("failed to create payment intent: %w", err)
	}

	if err := s.repo.SetPayment(ctx, session.ID, domain.CheckoutStatusPaymentPending, intent.ID); err != nil {
		return nil, err
	}

	return &CheckoutResponse{
		CheckoutID:   session.ID,
		Status:       domain.CheckoutStatusPaymentPending,
		ClientSecret: intent.ClientSecret,
	}, nil
}

// ConfirmPayment verifies the intent status with the processor after
// the hosted element reports success. The client's word alone never
// completes a checkout.
func (s *Service) ConfirmPayment(ctx context.Context, checkoutID uuid.UUID) (*CheckoutResponse, error) {
	session, err := s.repo.GetCheckoutSession(ctx, checkoutID)
	if err != nil {
		return nil, err
	}

	if session.Status == domain.CheckoutStatusCompleted {
		return &CheckoutResponse{CheckoutID: session.ID, Status: session.Status}, nil
	}
	if session.Status != domain.CheckoutStatusPaymentPending {
		return nil, ErrIllegalTransition
	}
	if !session.PaymentID.Valid {
		return nil, fmt.Errorf("checkout %v has no payment intent", session.ID)
	}

	intent, err := s.payments.GetIntent(ctx, session.PaymentID.String)
	if err != nil {
		return nil, fmt.Errorf("failed to verify payment intent: %w", err)
	}

	switch intent.Status {
	case payment.StatusSucceeded:
		if err := s.repo.SetPayment(ctx, session.ID, domain.CheckoutStatusPaymentCompleted, intent.ID); err != nil {
			return nil, err
		}
		session.Status = domain.CheckoutStatusPaymentCompleted

		var snapshot domain.CartSnapshot
		if err := json.Unmarshal(session.CartSnapshot, &snapshot); err != nil {
			return nil, fmt.Errorf("failed to unmarshal cart snapshot: %w", err)
		}
		if err := s.complete(ctx, session, &snapshot); err != nil {
			return nil, err
		}
		return &CheckoutResponse{CheckoutID: session.ID, Status: domain.CheckoutStatusCompleted}, nil

	case payment.StatusProcessing:
		return &CheckoutResponse{CheckoutID: session.ID, Status: domain.CheckoutStatusPaymentPending}, nil

	case payment.StatusCanceled:
		if err := s.repo.UpdateCheckoutSessionStatus(ctx, session.ID, domain.CheckoutStatusFailed); err != nil {
			return nil, err
		}
		return nil, ErrPaymentNotCompleted

	default:
		// requires_payment_method: the session stays pending so the
		// shopper can retry with the same intent.
		return nil, ErrPaymentNotCompleted
	}
}

func (s *Service) complete(ctx context.Context, session *CheckoutSession, snapshot *domain.CartSnapshot) error {
	if !domain.CanTransitionTo(session.Status, domain.CheckoutStatusCompleted) {
		return ErrIllegalTransition
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
		"completed_at":   time.Now(),
	}

	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal checkout payload: %w", err)
	}

	if err := s.repo.CompleteCheckoutSession(ctx, session.ID, payloadJSON, domain.CheckoutStatusCompleted); err != nil {
		return err
	}
	session.Status = domain.CheckoutStatusCompleted
	return nil
}
