package checkout

import "errors"

var (
	ErrEmptyCart               = errors.New("cart is empty, nothing to checkout")
	ErrIllegalTransition       = errors.New("illegal transition of checkout status")
	ErrSessionNotFound         = errors.New("checkout session not found")
	ErrEventNotFound           = errors.New("outbox event not found")
	ErrIdempotencyKeyNotFound  = errors.New("idempotency key not found")
	ErrDuplicateIdempotencyKey = errors.New("idempotency key already used")
	ErrPaymentNotCompleted     = errors.New("payment was not completed")
)
