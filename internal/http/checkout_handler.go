package http

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/Raghu1611/freshmart-sub000/internal/checkout"
	"github.com/Raghu1611/freshmart-sub000/internal/domain"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// checkoutService is the slice of the checkout service the handler drives.
type checkoutService interface {
	InitiateCheckout(ctx context.Context, request *checkout.CheckoutRequest) (*checkout.CheckoutResponse, error)
	ConfirmPayment(ctx context.Context, checkoutID uuid.UUID) (*checkout.CheckoutResponse, error)
}

type CheckoutHandler struct {
	svc     checkoutService
	timeout time.Duration
}

func NewCheckoutHandler(svc checkoutService, timeout time.Duration) *CheckoutHandler {
	return &CheckoutHandler{svc: svc, timeout: timeout}
}

type InitiateCheckoutRequestDTO struct {
	PaymentMethod string `json:"payment_method"`
	Address       string `json:"address"`
}

func (h *CheckoutHandler) Initiate(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	user := userFromContext(r.Context())

	idempotencyKey := r.Header.Get("Idempotency-Key")
	if idempotencyKey == "" {
		respondError(w, http.StatusBadRequest, "missing_idempotency_key", "Idempotency-Key header is required")
		return
	}

	var req InitiateCheckoutRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if req.Address == "" {
		respondError(w, http.StatusBadRequest, "invalid_address", "delivery address is required")
		return
	}

	resp, err := h.svc.InitiateCheckout(ctx, &checkout.CheckoutRequest{
		UserID:         user.ID.String(),
		IdempotencyKey: idempotencyKey,
		PaymentMethod:  domain.PaymentMethod(req.PaymentMethod),
		Address:        req.Address,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, resp)
}

func (h *CheckoutHandler) ConfirmPayment(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	idStr := chi.URLParam(r, "id")
	checkoutID, err := uuid.Parse(idStr)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_checkout_id", "checkout id must be a UUID")
		return
	}

	resp, err := h.svc.ConfirmPayment(ctx, checkoutID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, resp)
}
