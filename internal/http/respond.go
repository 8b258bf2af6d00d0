// Package http is the storefront's REST surface.
package http

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/Raghu1611/freshmart-sub000/internal/auth"
	"github.com/Raghu1611/freshmart-sub000/internal/cart"
	"github.com/Raghu1611/freshmart-sub000/internal/catalog"
	"github.com/Raghu1611/freshmart-sub000/internal/checkout"
	"github.com/Raghu1611/freshmart-sub000/internal/orders"
	"github.com/Raghu1611/freshmart-sub000/internal/payment"
)

type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("failed to encode response: %v", err)
	}
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, ErrorResponse{
		Error: message,
		Code:  code,
	})
}

// handleServiceError maps the sentinel errors of the service layer onto
// HTTP status codes.
func handleServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, catalog.ErrProductNotFound),
		errors.Is(err, catalog.ErrCategoryNotFound),
		errors.Is(err, cart.ErrCartNotFound),
		errors.Is(err, cart.ErrItemNotFound),
		errors.Is(err, orders.ErrOrderNotFound),
		errors.Is(err, checkout.ErrSessionNotFound),
		errors.Is(err, auth.ErrUserNotFound):
		respondError(w, http.StatusNotFound, "not_found", err.Error())

	case errors.Is(err, cart.ErrInvalidQuantity),
		errors.Is(err, checkout.ErrEmptyCart),
		errors.Is(err, auth.ErrInvalidOTP):
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())

	case errors.Is(err, auth.ErrInvalidCredentials):
		respondError(w, http.StatusUnauthorized, "invalid_credentials", err.Error())

	case errors.Is(err, auth.ErrNotVerified):
		respondError(w, http.StatusForbidden, "email_not_verified", err.Error())

	case errors.Is(err, auth.ErrEmailTaken),
		errors.Is(err, checkout.ErrIllegalTransition),
		errors.Is(err, orders.ErrIllegalTransition),
		errors.Is(err, checkout.ErrDuplicateIdempotencyKey):
		respondError(w, http.StatusConflict, "conflict", err.Error())

	case errors.Is(err, checkout.ErrPaymentNotCompleted):
		respondError(w, http.StatusPaymentRequired, "payment_not_completed", err.Error())

	case errors.Is(err, payment.ErrUnavailable):
		respondError(w, http.StatusServiceUnavailable, "service_unavailable", err.Error())

	default:
		log.Printf("internal error: %v", err)
		respondError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}
