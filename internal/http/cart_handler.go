package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/teashop/storefront/internal/cart"
	"github.com/teashop/storefront/internal/catalog"
	"github.com/teashop/storefront/internal/domain"
	"go.uber.org/zap"
)

// ProductGetter is the slice of the catalog client the cart handler needs.
type ProductGetter interface {
	Get(ctx context.Context, id string) (*domain.Product, error)
}

type CartHandler struct {
	registry *cart.Registry
	catalog  ProductGetter
	timeout  time.Duration
	logger   *zap.Logger
}

func NewCartHandler(registry *cart.Registry, catalog ProductGetter, timeout time.Duration, logger *zap.Logger) *CartHandler {
	return &CartHandler{
		registry: registry,
		catalog:  catalog,
		timeout:  timeout,
		logger:   logger,
	}
}

type AddItemRequestDTO struct {
	ProductID string `json:"product_id"`
	// Quantity is a signed delta: positive adds, negative decrements, 0
	// defaults to 1. Existing callers rely on the combined form.
	Quantity int `json:"quantity"`
}

type SetQuantityRequestDTO struct {
	Quantity int `json:"quantity"`
}

type SetPaymentMethodRequestDTO struct {
	PaymentMethod string `json:"payment_method"`
}

type CartResponseDTO struct {
	domain.CartSnapshot
	CheckoutAvailable bool `json:"checkout_available"`
}

func cartResponse(store *cart.Store) CartResponseDTO {
	snapshot := store.Snapshot()
	return CartResponseDTO{
		CartSnapshot:      snapshot,
		CheckoutAvailable: !snapshot.Empty(),
	}
}

func (h *CartHandler) store(w http.ResponseWriter, r *http.Request) (*cart.Store, bool) {
	sessionID := getSessionID(r.Context())
	if sessionID == "" {
		respondError(w, http.StatusUnauthorized, "missing_session", "no session identifier")
		return nil, false
	}
	return h.registry.ForClient(r.Context(), sessionID), true
}

// mutationFailed maps store errors onto responses. Storage failures are
// non-fatal by design: the in-memory mutation already applied, so the
// request still succeeds and the failure is only logged.
func (h *CartHandler) mutationFailed(w http.ResponseWriter, r *http.Request, err error) bool {
	if err == nil {
		return false
	}

	var storageErr *cart.StorageError
	switch {
	case errors.As(err, &storageErr):
		h.logger.Warn("cart mutation not persisted",
			zap.String("session_id", getSessionID(r.Context())),
			zap.Error(err))
		return false
	case errors.Is(err, cart.ErrInvalidProduct):
		respondError(w, http.StatusBadRequest, "invalid_product", err.Error())
	case errors.Is(err, domain.ErrInvalidPrice):
		respondError(w, http.StatusBadRequest, "invalid_price", err.Error())
	case errors.Is(err, cart.ErrInvalidQuantity):
		respondError(w, http.StatusBadRequest, "invalid_quantity", err.Error())
	default:
		respondError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
	return true
}

func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	store, ok := h.store(w, r)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, cartResponse(store))
}

func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	store, ok := h.store(w, r)
	if !ok {
		return
	}

	var req AddItemRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if req.ProductID == "" {
		respondError(w, http.StatusBadRequest, "invalid_product_id", "product_id is required")
		return
	}
	if req.Quantity == 0 {
		req.Quantity = 1
	}

	// The catalog is the price authority; client-supplied prices never
	// enter the cart.
	product, err := h.catalog.Get(ctx, req.ProductID)
	if err != nil {
		if errors.Is(err, catalog.ErrProductNotFound) {
			respondError(w, http.StatusNotFound, "not_found", "product not found")
			return
		}
		h.logger.Error("catalog lookup failed", zap.String("product_id", req.ProductID), zap.Error(err))
		respondError(w, http.StatusBadGateway, "catalog_unavailable", "product catalog unavailable")
		return
	}

	if h.mutationFailed(w, r, store.AddItem(ctx, *product, req.Quantity)) {
		return
	}
	respondJSON(w, http.StatusCreated, cartResponse(store))
}

func (h *CartHandler) SetQuantity(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	store, ok := h.store(w, r)
	if !ok {
		return
	}

	productID := chi.URLParam(r, "product_id")
	if productID == "" {
		respondError(w, http.StatusBadRequest, "invalid_product_id", "product_id is required")
		return
	}

	var req SetQuantityRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	if h.mutationFailed(w, r, store.SetQuantity(ctx, productID, req.Quantity)) {
		return
	}
	respondJSON(w, http.StatusOK, cartResponse(store))
}

func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	store, ok := h.store(w, r)
	if !ok {
		return
	}

	productID := chi.URLParam(r, "product_id")
	if productID == "" {
		respondError(w, http.StatusBadRequest, "invalid_product_id", "product_id is required")
		return
	}

	if h.mutationFailed(w, r, store.RemoveItem(ctx, productID)) {
		return
	}
	respondJSON(w, http.StatusOK, cartResponse(store))
}

func (h *CartHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	store, ok := h.store(w, r)
	if !ok {
		return
	}

	if h.mutationFailed(w, r, store.Clear(ctx)) {
		return
	}
	respondJSON(w, http.StatusOK, cartResponse(store))
}

func (h *CartHandler) SaveShippingAddress(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	store, ok := h.store(w, r)
	if !ok {
		return
	}

	var addr domain.ShippingAddress
	if err := json.NewDecoder(r.Body).Decode(&addr); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	if h.mutationFailed(w, r, store.SaveShippingAddress(ctx, addr)) {
		return
	}
	respondJSON(w, http.StatusOK, addr)
}

func (h *CartHandler) SavePaymentMethod(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	store, ok := h.store(w, r)
	if !ok {
		return
	}

	var req SetPaymentMethodRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if req.PaymentMethod == "" {
		respondError(w, http.StatusBadRequest, "invalid_payment_method", "payment_method is required")
		return
	}

	if h.mutationFailed(w, r, store.SavePaymentMethod(ctx, domain.PaymentMethod(req.PaymentMethod))) {
		return
	}
	respondJSON(w, http.StatusOK, req)
}
