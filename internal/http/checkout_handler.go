package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/teashop/storefront/internal/cart"
	"github.com/teashop/storefront/internal/checkout"
	"go.uber.org/zap"
)

type CheckoutHandler struct {
	registry *cart.Registry
	service  *checkout.Service
	timeout  time.Duration
	logger   *zap.Logger
}

func NewCheckoutHandler(registry *cart.Registry, service *checkout.Service, timeout time.Duration, logger *zap.Logger) *CheckoutHandler {
	return &CheckoutHandler{
		registry: registry,
		service:  service,
		timeout:  timeout,
		logger:   logger,
	}
}

type CheckoutResponseDTO struct {
	OrderID string `json:"order_id"`
	Status  string `json:"status"`
}

// POST /api/v1/checkout
func (h *CheckoutHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	sessionID := getSessionID(r.Context())
	if sessionID == "" {
		respondError(w, http.StatusUnauthorized, "missing_session", "no session identifier")
		return
	}

	token := bearerToken(r)
	if token == "" {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing bearer credential")
		return
	}

	store := h.registry.ForClient(ctx, sessionID)

	confirmation, err := h.service.Checkout(ctx, store, token)
	if err != nil {
		switch {
		case errors.Is(err, checkout.ErrEmptyCart):
			respondError(w, http.StatusConflict, "empty_cart", "cart is empty, checkout unavailable")
		case errors.Is(err, checkout.ErrMissingAddress):
			respondError(w, http.StatusBadRequest, "missing_address", "shipping address is incomplete")
		default:
			h.logger.Error("checkout failed", zap.String("session_id", sessionID), zap.Error(err))
			respondError(w, http.StatusBadGateway, "order_failed", "order service unavailable")
		}
		return
	}

	respondJSON(w, http.StatusCreated, CheckoutResponseDTO{
		OrderID: confirmation.OrderID,
		Status:  confirmation.Status,
	})
}
