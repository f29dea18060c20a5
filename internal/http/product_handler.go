package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/teashop/storefront/internal/catalog"
	"github.com/teashop/storefront/internal/domain"
	"go.uber.org/zap"
)

// CatalogClient is the slice of the catalog client the product handler needs.
type CatalogClient interface {
	Get(ctx context.Context, id string) (*domain.Product, error)
	List(ctx context.Context) ([]domain.Product, error)
}

// ProductHandler proxies catalog reads for the storefront UI. Prices reach
// the UI already normalized to numbers by the domain.Price decoder.
type ProductHandler struct {
	catalog CatalogClient
	timeout time.Duration
	logger  *zap.Logger
}

func NewProductHandler(catalog CatalogClient, timeout time.Duration, logger *zap.Logger) *ProductHandler {
	return &ProductHandler{
		catalog: catalog,
		timeout: timeout,
		logger:  logger,
	}
}

func (h *ProductHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	products, err := h.catalog.List(ctx)
	if err != nil {
		h.logger.Error("catalog list failed", zap.Error(err))
		respondError(w, http.StatusBadGateway, "catalog_unavailable", "product catalog unavailable")
		return
	}
	respondJSON(w, http.StatusOK, products)
}

func (h *ProductHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	productID := chi.URLParam(r, "product_id")
	product, err := h.catalog.Get(ctx, productID)
	if err != nil {
		if errors.Is(err, catalog.ErrProductNotFound) {
			respondError(w, http.StatusNotFound, "not_found", "product not found")
			return
		}
		h.logger.Error("catalog get failed", zap.String("product_id", productID), zap.Error(err))
		respondError(w, http.StatusBadGateway, "catalog_unavailable", "product catalog unavailable")
		return
	}
	respondJSON(w, http.StatusOK, product)
}
