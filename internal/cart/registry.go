package cart

import (
	"context"
	"sync"

	"github.com/teashop/storefront/internal/storage"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// Registry hands out one Store per client id, constructing and loading it on
// first access. Concurrent first requests for the same client are collapsed
// with singleflight so the persisted snapshot is read once.
type Registry struct {
	mu      sync.RWMutex
	stores  map[string]*Store
	sfg     singleflight.Group
	storage storage.Storage
	pricing Pricing
	logger  *zap.Logger
}

func NewRegistry(st storage.Storage, pricing Pricing, logger *zap.Logger) *Registry {
	return &Registry{
		stores:  make(map[string]*Store),
		storage: st,
		pricing: pricing,
		logger:  logger,
	}
}

// ForClient returns the store for clientID, loading persisted state on first
// access. A failed load is a warning, not a failure: the client gets an
// empty cart and keeps shopping.
func (r *Registry) ForClient(ctx context.Context, clientID string) *Store {
	r.mu.RLock()
	store, ok := r.stores[clientID]
	r.mu.RUnlock()
	if ok {
		return store
	}

	v, _, _ := r.sfg.Do(clientID, func() (interface{}, error) {
		r.mu.RLock()
		existing, ok := r.stores[clientID]
		r.mu.RUnlock()
		if ok {
			return existing, nil
		}

		s := NewStore(clientID, r.storage, r.pricing, r.logger)
		if err := s.Load(ctx); err != nil {
			r.logger.Warn("cart load failed, starting empty",
				zap.String("client_id", clientID),
				zap.Error(err))
		}

		r.mu.Lock()
		r.stores[clientID] = s
		r.mu.Unlock()
		return s, nil
	})

	return v.(*Store)
}
