package address

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"StoreFront/internal/backend"
)

type Backend interface {
	ListAddresses(ctx context.Context, sessionID, customerID string) ([]backend.Address, error)
	CreateAddress(ctx context.Context, sessionID, customerID string, draft backend.Address) (backend.Address, error)
}

type CacheStore interface {
	Put(ctx context.Context, customerID string, list []Address) error
	Get(ctx context.Context, customerID string) ([]Address, bool, error)
	Delete(ctx context.Context, customerID string) error
}

// Directory loads and creates a customer's saved addresses, keeping a local
// working copy that survives backend outages and restarts.
type Directory struct {
	backend Backend
	cache   CacheStore
	log     *zap.Logger

	mu    sync.Mutex
	lists map[string][]Address
}

func NewDirectory(b Backend, cache CacheStore, log *zap.Logger) *Directory {
	if log == nil {
		log = zap.NewNop()
	}
	return &Directory{
		backend: b,
		cache:   cache,
		log:     log,
		lists:   map[string][]Address{},
	}
}

// List fetches the customer's addresses and maps them to the local shape.
// Unsaved optimistic entries already held locally are retained at the end of
// the list. When the backend is unreachable, the cached copy is served.
func (d *Directory) List(ctx context.Context, sessionID, customerID string) ([]Address, error) {
	serverList, err := d.backend.ListAddresses(ctx, sessionID, customerID)
	if err != nil {
		if cached, ok := d.cached(ctx, customerID); ok {
			d.log.Warn("address list fetch failed, serving cache",
				zap.String("customer_id", customerID), zap.Error(err))
			return cached, nil
		}
		return nil, fmt.Errorf("list addresses: %w", err)
	}

	mapped := make([]Address, 0, len(serverList))
	for _, sa := range serverList {
		mapped = append(mapped, fromServer(sa))
	}

	d.mu.Lock()
	for _, a := range d.lists[customerID] {
		if !a.Saved() {
			mapped = append(mapped, a)
		}
	}
	d.lists[customerID] = mapped
	d.mu.Unlock()

	d.persist(ctx, customerID, mapped)
	return mapped, nil
}

// Create posts a draft and reconciles the confirmation with the optimistic
// entry. The correlation token generated here is echoed by the backend, so
// a confirmation arriving after the UI already shows a placeholder replaces
// that row in place instead of appending a duplicate.
func (d *Directory) Create(ctx context.Context, sessionID, customerID string, draft Address) (Address, error) {
	draft.LocalID = "loc_" + uuid.NewString()
	draft.CorrelationID = uuid.NewString()
	draft.ServerID = ""

	d.mu.Lock()
	d.lists[customerID] = append(d.lists[customerID], draft)
	snapshot := snapshotLocked(d.lists[customerID])
	d.mu.Unlock()
	d.persist(ctx, customerID, snapshot)

	confirmed, err := d.backend.CreateAddress(ctx, sessionID, customerID, toServer(draft))
	if err != nil {
		// The optimistic entry stays, unsaved; checkout refuses it until a
		// later create succeeds.
		return draft, fmt.Errorf("create address: %w", err)
	}

	result := fromServer(confirmed)
	if result.CorrelationID == "" {
		result.CorrelationID = draft.CorrelationID
	}

	d.mu.Lock()
	d.lists[customerID] = reconcile(d.lists[customerID], result)
	snapshot = snapshotLocked(d.lists[customerID])
	d.mu.Unlock()
	d.persist(ctx, customerID, snapshot)

	return result, nil
}

// reconcile replaces the entry matching by correlation token or server ID in
// place; only a confirmation with no prior trace is appended.
func reconcile(list []Address, confirmed Address) []Address {
	for i, a := range list {
		match := (confirmed.CorrelationID != "" && a.CorrelationID == confirmed.CorrelationID) ||
			(confirmed.ServerID != "" && a.ServerID == confirmed.ServerID)
		if match {
			list[i] = confirmed
			return list
		}
	}
	return append(list, confirmed)
}

// Cached returns the local copy without touching the network.
func (d *Directory) Cached(ctx context.Context, customerID string) ([]Address, bool) {
	return d.cached(ctx, customerID)
}

func (d *Directory) cached(ctx context.Context, customerID string) ([]Address, bool) {
	d.mu.Lock()
	if list, ok := d.lists[customerID]; ok {
		out := snapshotLocked(list)
		d.mu.Unlock()
		return out, true
	}
	d.mu.Unlock()

	list, ok, err := d.cache.Get(ctx, customerID)
	if err != nil || !ok {
		return nil, false
	}

	d.mu.Lock()
	d.lists[customerID] = list
	d.mu.Unlock()
	return list, true
}

func (d *Directory) persist(ctx context.Context, customerID string, list []Address) {
	if err := d.cache.Put(ctx, customerID, list); err != nil {
		d.log.Warn("address cache write failed",
			zap.String("customer_id", customerID), zap.Error(err))
	}
}

func snapshotLocked(list []Address) []Address {
	out := make([]Address, len(list))
	copy(out, list)
	return out
}
