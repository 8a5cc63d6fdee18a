// Package serviceability answers whether prepaid delivery reaches a pincode
// and what it costs, asking the backend at most once per pincode.
package serviceability

import (
	"context"
	"errors"
	"regexp"
	"sync"
)

// Indian PIN codes: six digits, first digit 1-9.
var pincodeRe = regexp.MustCompile(`^[1-9][0-9]{5}$`)

var ErrInvalidPincode = errors.New("invalid pincode")

func ValidPincode(p string) bool {
	return pincodeRe.MatchString(p)
}

type Backend interface {
	PincodeServiceability(ctx context.Context, sessionID, pincode string) (bool, error)
	DeliveryCharge(ctx context.Context, sessionID, pincode string) (int64, error)
}

// memo caches one result per key. A resolved entry, error included, is never
// fetched again; a caller arriving while a fetch is in flight joins it
// instead of duplicating the call.
type memo[T any] struct {
	mu sync.Mutex
	m  map[string]*memoEntry[T]
}

type memoEntry[T any] struct {
	done chan struct{}
	val  T
	err  error
}

func newMemo[T any]() *memo[T] {
	return &memo[T]{m: map[string]*memoEntry[T]{}}
}

func (c *memo[T]) get(ctx context.Context, key string, fetch func() (T, error)) (T, error) {
	c.mu.Lock()
	if e, ok := c.m[key]; ok {
		c.mu.Unlock()
		select {
		case <-e.done:
			return e.val, e.err
		case <-ctx.Done():
			var zero T
			return zero, ctx.Err()
		}
	}

	e := &memoEntry[T]{done: make(chan struct{})}
	c.m[key] = e
	c.mu.Unlock()

	e.val, e.err = fetch()
	close(e.done)
	return e.val, e.err
}

// peek returns a successfully resolved value without waiting or fetching.
func (c *memo[T]) peek(key string) (T, bool) {
	var zero T

	c.mu.Lock()
	e, ok := c.m[key]
	c.mu.Unlock()
	if !ok {
		return zero, false
	}

	select {
	case <-e.done:
	default:
		return zero, false
	}
	if e.err != nil {
		return zero, false
	}
	return e.val, true
}

type Lookup struct {
	backend Backend
	svc     *memo[bool]
	charge  *memo[int64]
}

func NewLookup(b Backend) *Lookup {
	return &Lookup{
		backend: b,
		svc:     newMemo[bool](),
		charge:  newMemo[int64](),
	}
}

// Prepaid reports whether prepaid delivery is available for the pincode.
// Invalid pincodes short-circuit before any network call.
func (l *Lookup) Prepaid(ctx context.Context, sessionID, pincode string) (bool, error) {
	if !ValidPincode(pincode) {
		return false, ErrInvalidPincode
	}
	return l.svc.get(ctx, pincode, func() (bool, error) {
		return l.backend.PincodeServiceability(ctx, sessionID, pincode)
	})
}

// Charge returns the delivery charge for the pincode.
func (l *Lookup) Charge(ctx context.Context, sessionID, pincode string) (int64, error) {
	if !ValidPincode(pincode) {
		return 0, ErrInvalidPincode
	}
	return l.charge.get(ctx, pincode, func() (int64, error) {
		return l.backend.DeliveryCharge(ctx, sessionID, pincode)
	})
}

// CachedPrepaid reports a resolved serviceability answer without I/O.
func (l *Lookup) CachedPrepaid(pincode string) (bool, bool) {
	return l.svc.peek(pincode)
}

// CachedCharge reports a resolved delivery charge without I/O.
func (l *Lookup) CachedCharge(pincode string) (int64, bool) {
	return l.charge.peek(pincode)
}
