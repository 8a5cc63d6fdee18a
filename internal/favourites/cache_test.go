package favourites_test

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"StoreFront/internal/backend"
	"StoreFront/internal/favourites"
	"StoreFront/internal/session"
)

type fakeBackend struct {
	mu        sync.Mutex
	favs      map[string]backend.Favourite // productID -> favourite
	nextID    int
	listCalls int32
	addCalls  int32
	delCalls  int32
	listDelay time.Duration
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{favs: map[string]backend.Favourite{}}
}

func (f *fakeBackend) ListFavourites(context.Context, string, string) ([]backend.Favourite, error) {
	atomic.AddInt32(&f.listCalls, 1)
	if f.listDelay > 0 {
		time.Sleep(f.listDelay)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]backend.Favourite, 0, len(f.favs))
	for _, fav := range f.favs {
		out = append(out, fav)
	}
	return out, nil
}

func (f *fakeBackend) AddFavourite(_ context.Context, _, _, productID string) error {
	atomic.AddInt32(&f.addCalls, 1)

	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	f.favs[productID] = backend.Favourite{
		FavouriteID: fmt.Sprintf("fav_%d", f.nextID),
		ProductID:   productID,
		AddedAt:     time.Now(),
	}
	return nil
}

func (f *fakeBackend) RemoveFavourite(_ context.Context, _, _, favouriteID string) error {
	atomic.AddInt32(&f.delCalls, 1)

	f.mu.Lock()
	defer f.mu.Unlock()
	for pid, fav := range f.favs {
		if fav.FavouriteID == favouriteID {
			delete(f.favs, pid)
		}
	}
	return nil
}

func TestToggle_AddThenSingleRefresh(t *testing.T) {
	b := newFakeBackend()
	c := favourites.New(b, zap.NewNop())

	require.False(t, c.IsFavourite("cust", "p1"), "lookup before refresh is a plain cache miss")

	require.NoError(t, c.Toggle(context.Background(), "sess", "cust", "p1"))

	require.EqualValues(t, 1, atomic.LoadInt32(&b.addCalls))
	require.EqualValues(t, 1, atomic.LoadInt32(&b.listCalls), "exactly one full refresh after the mutation")
	require.True(t, c.IsFavourite("cust", "p1"))
}

func TestToggle_RemoveWhenCached(t *testing.T) {
	b := newFakeBackend()
	c := favourites.New(b, zap.NewNop())

	require.NoError(t, c.Toggle(context.Background(), "sess", "cust", "p1"))
	require.True(t, c.IsFavourite("cust", "p1"))

	require.NoError(t, c.Toggle(context.Background(), "sess", "cust", "p1"))
	require.EqualValues(t, 1, atomic.LoadInt32(&b.delCalls))
	require.False(t, c.IsFavourite("cust", "p1"))
}

func TestToggle_RequiresSession(t *testing.T) {
	c := favourites.New(newFakeBackend(), zap.NewNop())

	err := c.Toggle(context.Background(), "", "", "p1")
	require.ErrorIs(t, err, favourites.ErrNotAuthenticated)
}

func TestRefresh_CoalescesConcurrentCalls(t *testing.T) {
	b := newFakeBackend()
	b.listDelay = 100 * time.Millisecond
	c := favourites.New(b, zap.NewNop())

	var wg sync.WaitGroup
	for range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			require.NoError(t, c.Refresh(context.Background(), "sess", "cust"))
		}()
	}
	wg.Wait()

	require.EqualValues(t, 1, atomic.LoadInt32(&b.listCalls))
}

func TestSessionEvents_DriveTheCache(t *testing.T) {
	b := newFakeBackend()
	c := favourites.New(b, zap.NewNop())

	mgr := session.NewManager(session.NewMemStore(), nil, zap.NewNop())
	c.Start(mgr)
	defer c.Close()

	require.NoError(t, b.AddFavourite(context.Background(), "", "", "p1"))

	sess, err := mgr.Login(context.Background(), session.Grant{
		CustomerID:  "cust",
		AccessToken: "tok",
	})
	require.NoError(t, err)

	// Login triggers an async refresh.
	require.Eventually(t, func() bool {
		return c.IsFavourite("cust", "p1")
	}, 2*time.Second, 5*time.Millisecond)

	// Logout clears the mirror for that customer.
	require.NoError(t, mgr.Logout(context.Background(), sess.ID))
	require.False(t, c.IsFavourite("cust", "p1"))
}
