package checkout

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/teashop/storefront/internal/cart"
	"go.uber.org/zap"
)

var (
	ErrEmptyCart      = errors.New("cart is empty, nothing to checkout")
	ErrMissingAddress = errors.New("shipping address is incomplete")
)

// OrderPlacer is defined here, by the consumer, so tests can swap the real
// order client out.
type OrderPlacer interface {
	PlaceOrder(ctx context.Context, token string, order OrderRequest) (*OrderConfirmation, error)
}

type Service struct {
	orders OrderPlacer
	logger *zap.Logger
}

func NewService(orders OrderPlacer, logger *zap.Logger) *Service {
	return &Service{
		orders: orders,
		logger: logger,
	}
}

// Checkout snapshots the cart, places the order with the external service
// and clears the cart only after placement reports success. A storage
// failure while clearing is a warning: the order went through and the
// in-memory cart is already empty.
func (s *Service) Checkout(ctx context.Context, store *cart.Store, token string) (*OrderConfirmation, error) {
	snapshot := store.Snapshot()
	if snapshot.Empty() {
		return nil, ErrEmptyCart
	}

	address, ok := store.ShippingAddress()
	if !ok || !address.Complete() {
		return nil, ErrMissingAddress
	}

	confirmation, err := s.orders.PlaceOrder(ctx, token, OrderRequest{
		IdempotencyKey:  uuid.NewString(),
		Cart:            snapshot,
		ShippingAddress: address,
		PaymentMethod:   store.PaymentMethod(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to place order: %w", err)
	}

	if err := store.Clear(ctx); err != nil {
		var storageErr *cart.StorageError
		if errors.As(err, &storageErr) {
			s.logger.Warn("cart clear after order not persisted",
				zap.String("client_id", store.ClientID()),
				zap.String("order_id", confirmation.OrderID),
				zap.Error(err))
		} else {
			return nil, fmt.Errorf("failed to clear cart after order: %w", err)
		}
	}

	s.logger.Info("order placed",
		zap.String("client_id", store.ClientID()),
		zap.String("order_id", confirmation.OrderID))
	return confirmation, nil
}
