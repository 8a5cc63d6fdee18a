// Package favourites mirrors the customer's server-side favourite products
// so independent surfaces can answer "is this favourited?" without a fetch.
package favourites

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"StoreFront/internal/backend"
	"StoreFront/internal/session"
)

var ErrNotAuthenticated = errors.New("favourites require a signed-in session")

type Backend interface {
	ListFavourites(ctx context.Context, sessionID, customerID string) ([]backend.Favourite, error)
	AddFavourite(ctx context.Context, sessionID, customerID, productID string) error
	RemoveFavourite(ctx context.Context, sessionID, customerID, favouriteID string) error
}

// Cache is an explicit, injected object rather than a process global so
// tests can run independent instances. After any mutation it does exactly
// one full refresh instead of patching locally: the server owns dedup and
// validation rules the client does not replicate.
type Cache struct {
	backend Backend
	log     *zap.Logger
	group   singleflight.Group

	mu         sync.RWMutex
	byCustomer map[string]map[string]backend.Favourite
	unsub      func()
}

func New(b Backend, log *zap.Logger) *Cache {
	if log == nil {
		log = zap.NewNop()
	}
	return &Cache{
		backend:    b,
		log:        log,
		byCustomer: map[string]map[string]backend.Favourite{},
	}
}

// Start subscribes to session lifecycle events: logout clears the
// customer's mirror, login and token change trigger a refresh. This is the
// cross-surface analogue of watching credential storage keys.
func (c *Cache) Start(sessions *session.Manager) {
	c.unsub = sessions.Subscribe(func(ev session.Event, s session.Session) {
		switch ev {
		case session.EventLogout:
			c.clear(s.CustomerID)
		case session.EventLogin, session.EventRefresh:
			go func() {
				ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				if err := c.Refresh(ctx, s.ID, s.CustomerID); err != nil {
					c.log.Warn("favourites refresh after session event failed",
						zap.String("customer_id", s.CustomerID), zap.Error(err))
				}
			}()
		}
	})
}

func (c *Cache) Close() {
	if c.unsub != nil {
		c.unsub()
		c.unsub = nil
	}
}

// IsFavourite is a synchronous cache lookup; it never touches the network.
func (c *Cache) IsFavourite(customerID, productID string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.byCustomer[customerID][productID]
	return ok
}

// List returns the mirrored favourites for display.
func (c *Cache) List(customerID string) []backend.Favourite {
	c.mu.RLock()
	defer c.mu.RUnlock()

	m := c.byCustomer[customerID]
	out := make([]backend.Favourite, 0, len(m))
	for _, f := range m {
		out = append(out, f)
	}
	return out
}

// Toggle adds or removes based on current cache state, then refreshes once.
func (c *Cache) Toggle(ctx context.Context, sessionID, customerID, productID string) error {
	if sessionID == "" || customerID == "" {
		return ErrNotAuthenticated
	}

	c.mu.RLock()
	fav, isFav := c.byCustomer[customerID][productID]
	c.mu.RUnlock()

	var err error
	if isFav {
		err = c.backend.RemoveFavourite(ctx, sessionID, customerID, fav.FavouriteID)
	} else {
		err = c.backend.AddFavourite(ctx, sessionID, customerID, productID)
	}
	if err != nil {
		return fmt.Errorf("toggle favourite: %w", err)
	}

	return c.Refresh(ctx, sessionID, customerID)
}

// Refresh rebuilds the mirror wholesale from the server. Concurrent calls
// for one customer coalesce into a single fetch.
func (c *Cache) Refresh(ctx context.Context, sessionID, customerID string) error {
	_, err, _ := c.group.Do(customerID, func() (any, error) {
		list, err := c.backend.ListFavourites(ctx, sessionID, customerID)
		if err != nil {
			return nil, err
		}

		m := make(map[string]backend.Favourite, len(list))
		for _, f := range list {
			m[f.ProductID] = f
		}

		c.mu.Lock()
		c.byCustomer[customerID] = m
		c.mu.Unlock()
		return nil, nil
	})
	return err
}

func (c *Cache) clear(customerID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.byCustomer, customerID)
}
