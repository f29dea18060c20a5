package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/teashop/storefront/internal/domain"
	"github.com/teashop/storefront/internal/storage"
	"go.uber.org/zap"
)

// Pricing holds the constants the derived totals are computed from. Exposed
// as configuration so they can be tuned without code changes.
type Pricing struct {
	FreeShippingThreshold float64
	FlatShippingFee       float64
	TaxRate               float64
}

func DefaultPricing() Pricing {
	return Pricing{
		FreeShippingThreshold: 100.00,
		FlatShippingFee:       10.00,
		TaxRate:               0.15,
	}
}

type State string

const (
	StateEmpty    State = "EMPTY"
	StateNonEmpty State = "NON_EMPTY"
)

var ErrInvalidQuantity = errors.New("quantity must be positive")

// Store is the single source of truth for one client's active cart. All
// mutations apply in memory first, then write the new snapshot through to
// storage; a persistence failure is returned as *StorageError and does not
// undo the in-memory change.
//
// Mutations and reads are serialized by a mutex to keep the same atomicity
// guarantee the original single-threaded environment gave for free.
type Store struct {
	mu       sync.Mutex
	clientID string
	items    map[string]*domain.LineItem
	address  *domain.ShippingAddress
	payment  domain.PaymentMethod
	storage  storage.Storage
	pricing  Pricing
	logger   *zap.Logger
}

func NewStore(clientID string, st storage.Storage, pricing Pricing, logger *zap.Logger) *Store {
	return &Store{
		clientID: clientID,
		items:    make(map[string]*domain.LineItem),
		payment:  domain.PaymentCashOnDelivery,
		storage:  st,
		pricing:  pricing,
		logger:   logger,
	}
}

type persistedCart struct {
	Items     []domain.LineItem `json:"items"`
	UpdatedAt time.Time         `json:"updated_at"`
}

func (s *Store) cartKey() string    { return fmt.Sprintf("cart:%s", s.clientID) }
func (s *Store) addressKey() string { return fmt.Sprintf("shipping_address:%s", s.clientID) }
func (s *Store) paymentKey() string { return fmt.Sprintf("payment_method:%s", s.clientID) }

// Load restores persisted state. Missing keys mean a fresh cart; a corrupt
// or unreadable snapshot is reported so the caller can decide to start empty.
func (s *Store) Load(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := s.storage.Get(ctx, s.cartKey())
	switch {
	case errors.Is(err, storage.ErrNotFound):
		// first access, cart starts empty
	case err != nil:
		return &StorageError{Op: "load", Err: err}
	default:
		var persisted persistedCart
		if err := json.Unmarshal(data, &persisted); err != nil {
			return &StorageError{Op: "load", Err: fmt.Errorf("unmarshal cart failed: %w", err)}
		}
		for i := range persisted.Items {
			item := persisted.Items[i]
			if item.ProductID == "" || item.Quantity <= 0 {
				continue
			}
			s.items[item.ProductID] = &item
		}
	}

	if data, err := s.storage.Get(ctx, s.addressKey()); err == nil {
		var addr domain.ShippingAddress
		if err := json.Unmarshal(data, &addr); err == nil {
			s.address = &addr
		}
	}
	if data, err := s.storage.Get(ctx, s.paymentKey()); err == nil {
		var method domain.PaymentMethod
		if err := json.Unmarshal(data, &method); err == nil && method != "" {
			s.payment = method
		}
	}
	return nil
}

// AddItem adjusts the line for product by delta. A positive delta adds, a
// negative one decrements; an existing line whose quantity drops to 0 or
// below is removed entirely. This dual-purpose signed form is kept for
// compatibility with existing callers; prefer Increment, Decrement and
// SetQuantity in new code.
func (s *Store) AddItem(ctx context.Context, product domain.Product, delta int) error {
	if product.ID == "" {
		return ErrInvalidProduct
	}
	unit := float64(product.Price)
	if unit < 0 || math.IsNaN(unit) {
		return fmt.Errorf("%w: product %s has unit price %v", domain.ErrInvalidPrice, product.ID, unit)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if delta == 0 {
		return nil
	}

	existing, ok := s.items[product.ID]
	if !ok {
		if delta <= 0 {
			return nil
		}
		s.items[product.ID] = &domain.LineItem{
			ProductID: product.ID,
			Name:      product.Name,
			UnitPrice: unit,
			Quantity:  delta,
			ImageURL:  product.ImageURL,
			Origin:    product.Origin,
			Qualities: product.Qualities,
			AddedAt:   time.Now(),
		}
		return s.persistLocked(ctx)
	}

	quantity := existing.Quantity + delta
	if quantity <= 0 {
		delete(s.items, product.ID)
	} else {
		existing.Quantity = quantity
	}
	return s.persistLocked(ctx)
}

// Increment raises the quantity of product's line by n (creating the line
// when absent). n must be at least 1.
func (s *Store) Increment(ctx context.Context, product domain.Product, n int) error {
	if n < 1 {
		return ErrInvalidQuantity
	}
	return s.AddItem(ctx, product, n)
}

// Decrement lowers the quantity of the line for productID by n, removing the
// line when it drops to 0 or below. No-op when the line is absent.
func (s *Store) Decrement(ctx context.Context, productID string, n int) error {
	if n < 1 {
		return ErrInvalidQuantity
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.items[productID]
	if !ok {
		return nil
	}
	quantity := existing.Quantity - n
	if quantity <= 0 {
		delete(s.items, productID)
	} else {
		existing.Quantity = quantity
	}
	return s.persistLocked(ctx)
}

// SetQuantity sets the absolute quantity for productID. 0 or below removes
// the line; an absent productID is a no-op. Idempotent: repeating the same
// call yields the same state.
func (s *Store) SetQuantity(ctx context.Context, productID string, quantity int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.items[productID]
	if !ok {
		return nil
	}
	if quantity <= 0 {
		delete(s.items, productID)
	} else if existing.Quantity == quantity {
		return nil
	} else {
		existing.Quantity = quantity
	}
	return s.persistLocked(ctx)
}

// RemoveItem deletes the line for productID. No-op, not an error, when the
// line is absent.
func (s *Store) RemoveItem(ctx context.Context, productID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.items[productID]; !ok {
		return nil
	}
	delete(s.items, productID)
	return s.persistLocked(ctx)
}

// Clear empties all line items and removes the persisted cart key. Invoked
// by the checkout flow only after order placement reports success.
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.items = make(map[string]*domain.LineItem)
	if err := s.storage.Delete(ctx, s.cartKey()); err != nil {
		s.logger.Warn("cart storage delete failed",
			zap.String("client_id", s.clientID),
			zap.Error(err))
		return &StorageError{Op: "delete", Err: err}
	}
	return nil
}

// Snapshot returns the current contents with derived totals, recomputed from
// the line items on every call and never stored.
func (s *Store) Snapshot() domain.CartSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	items := s.sortedItemsLocked()

	var count int
	var subtotal float64
	for _, item := range items {
		count += item.Quantity
		subtotal += item.UnitPrice * float64(item.Quantity)
	}

	var shipping float64
	if len(items) > 0 && subtotal <= s.pricing.FreeShippingThreshold {
		shipping = s.pricing.FlatShippingFee
	}
	tax := subtotal * s.pricing.TaxRate

	return domain.CartSnapshot{
		Items:      items,
		ItemCount:  count,
		Subtotal:   domain.Round2(subtotal),
		Shipping:   domain.Round2(shipping),
		Tax:        domain.Round2(tax),
		Total:      domain.Round2(subtotal + shipping + tax),
		Currency:   "USD",
		CapturedAt: time.Now(),
	}
}

func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.items) == 0 {
		return StateEmpty
	}
	return StateNonEmpty
}

// Checkoutable reports whether checkout is available, which is exactly the
// NON_EMPTY state.
func (s *Store) Checkoutable() bool {
	return s.State() == StateNonEmpty
}

func (s *Store) SaveShippingAddress(ctx context.Context, addr domain.ShippingAddress) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.address = &addr
	data, err := json.Marshal(addr)
	if err != nil {
		return fmt.Errorf("marshal shipping address failed: %w", err)
	}
	if err := s.storage.Set(ctx, s.addressKey(), data); err != nil {
		s.logger.Warn("shipping address storage set failed",
			zap.String("client_id", s.clientID),
			zap.Error(err))
		return &StorageError{Op: "set", Err: err}
	}
	return nil
}

func (s *Store) ShippingAddress() (domain.ShippingAddress, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.address == nil {
		return domain.ShippingAddress{}, false
	}
	return *s.address, true
}

func (s *Store) SavePaymentMethod(ctx context.Context, method domain.PaymentMethod) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.payment = method
	data, err := json.Marshal(method)
	if err != nil {
		return fmt.Errorf("marshal payment method failed: %w", err)
	}
	if err := s.storage.Set(ctx, s.paymentKey(), data); err != nil {
		s.logger.Warn("payment method storage set failed",
			zap.String("client_id", s.clientID),
			zap.Error(err))
		return &StorageError{Op: "set", Err: err}
	}
	return nil
}

func (s *Store) PaymentMethod() domain.PaymentMethod {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.payment
}

func (s *Store) ClientID() string {
	return s.clientID
}

// persistLocked writes the current line items through to storage. Callers
// must hold the mutex.
func (s *Store) persistLocked(ctx context.Context) error {
	persisted := persistedCart{
		Items:     s.sortedItemsLocked(),
		UpdatedAt: time.Now(),
	}
	data, err := json.Marshal(persisted)
	if err != nil {
		return &StorageError{Op: "set", Err: fmt.Errorf("marshal cart failed: %w", err)}
	}
	if err := s.storage.Set(ctx, s.cartKey(), data); err != nil {
		s.logger.Warn("cart storage set failed",
			zap.String("client_id", s.clientID),
			zap.Error(err))
		return &StorageError{Op: "set", Err: err}
	}
	return nil
}

func (s *Store) sortedItemsLocked() []domain.LineItem {
	items := make([]domain.LineItem, 0, len(s.items))
	for _, item := range s.items {
		items = append(items, *item)
	}
	sort.Slice(items, func(i, j int) bool {
		if !items[i].AddedAt.Equal(items[j].AddedAt) {
			return items[i].AddedAt.Before(items[j].AddedAt)
		}
		return items[i].ProductID < items[j].ProductID
	})
	return items
}
