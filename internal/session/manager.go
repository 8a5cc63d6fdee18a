package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

type Event int

const (
	EventLogin Event = iota
	EventRefresh
	EventLogout
)

// Grant is what the backend hands out on login or refresh.
type Grant struct {
	CustomerID  string
	AccessToken string
	ExpiresIn   time.Duration // zero when the backend sent no expiry metadata
}

// Refresher exchanges an access token for a fresh grant.
type Refresher interface {
	RefreshGrant(ctx context.Context, accessToken string) (Grant, error)
}

// Manager is the single source of truth for session credentials. Concurrent
// refreshes for one session collapse into a single upstream call.
type Manager struct {
	store     Store
	refresher Refresher
	log       *zap.Logger
	group     singleflight.Group

	mu      sync.RWMutex
	subs    map[int]func(Event, Session)
	nextSub int
}

func NewManager(store Store, refresher Refresher, log *zap.Logger) *Manager {
	if log == nil {
		log = zap.NewNop()
	}
	return &Manager{
		store:     store,
		refresher: refresher,
		log:       log,
		subs:      map[int]func(Event, Session){},
	}
}

// Subscribe registers fn for session lifecycle events and returns an
// unsubscribe func. Replaces the browser storage event: favourites and other
// caches react to credential changes through this.
func (m *Manager) Subscribe(fn func(Event, Session)) func() {
	m.mu.Lock()
	id := m.nextSub
	m.nextSub++
	m.subs[id] = fn
	m.mu.Unlock()

	return func() {
		m.mu.Lock()
		delete(m.subs, id)
		m.mu.Unlock()
	}
}

func (m *Manager) notify(ev Event, s Session) {
	m.mu.RLock()
	fns := make([]func(Event, Session), 0, len(m.subs))
	for _, fn := range m.subs {
		fns = append(fns, fn)
	}
	m.mu.RUnlock()

	for _, fn := range fns {
		fn(ev, s)
	}
}

// Login creates a session from a fresh grant.
func (m *Manager) Login(ctx context.Context, g Grant) (Session, error) {
	now := time.Now().UTC()
	s := Session{
		ID:          "sess_" + uuid.NewString(),
		CustomerID:  g.CustomerID,
		AccessToken: g.AccessToken,
		IssuedAt:    now,
	}
	if g.ExpiresIn > 0 {
		s.ExpiresAt = now.Add(g.ExpiresIn)
	}

	if err := m.store.Put(ctx, s); err != nil {
		return Session{}, fmt.Errorf("store session: %w", err)
	}

	m.notify(EventLogin, s)
	return s, nil
}

func (m *Manager) Get(ctx context.Context, id string) (Session, bool, error) {
	return m.store.Get(ctx, id)
}

// Valid reports whether a usable token is held for the session.
func (m *Manager) Valid(ctx context.Context, id string) bool {
	s, ok, err := m.store.Get(ctx, id)
	if err != nil || !ok {
		return false
	}
	return s.Valid(time.Now())
}

// Token returns the current access token, or "" when none is held.
func (m *Manager) Token(ctx context.Context, id string) (string, error) {
	s, ok, err := m.store.Get(ctx, id)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", nil
	}
	return s.AccessToken, nil
}

// Refresh obtains a new access token for the session. Callers hitting a 401
// concurrently share one upstream refresh; losing the refresh clears the
// stored credentials.
func (m *Manager) Refresh(ctx context.Context, id string) (string, error) {
	tok, err, _ := m.group.Do(id, func() (any, error) {
		s, ok, err := m.store.Get(ctx, id)
		if err != nil {
			return "", err
		}
		if !ok || s.AccessToken == "" {
			return "", ErrNotFound
		}

		g, err := m.refresher.RefreshGrant(ctx, s.AccessToken)
		if err != nil {
			m.log.Warn("token refresh failed, clearing session",
				zap.String("session_id", id), zap.Error(err))
			_ = m.store.Delete(ctx, id)
			m.notify(EventLogout, s)
			return "", fmt.Errorf("refresh: %w", err)
		}

		now := time.Now().UTC()
		s.AccessToken = g.AccessToken
		s.IssuedAt = now
		s.ExpiresAt = time.Time{}
		if g.ExpiresIn > 0 {
			s.ExpiresAt = now.Add(g.ExpiresIn)
		}

		if err := m.store.Put(ctx, s); err != nil {
			return "", fmt.Errorf("store refreshed session: %w", err)
		}

		m.notify(EventRefresh, s)
		return s.AccessToken, nil
	})
	if err != nil {
		return "", err
	}
	return tok.(string), nil
}

// Logout drops the session locally and notifies subscribers. The backend
// logout call is the caller's concern.
func (m *Manager) Logout(ctx context.Context, id string) error {
	s, ok, err := m.store.Get(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}
	if err := m.store.Delete(ctx, id); err != nil {
		return err
	}
	m.notify(EventLogout, s)
	return nil
}
