package cart

import (
	"context"
	"errors"
	"fmt"
	"math"

	"go.uber.org/zap"

	"StoreFront/internal/backend"
)

// Item mirrors one server cart line. The cart itself is authoritative on the
// server; the only thing persisted locally is the display-count mirror.
type Item struct {
	ProductID string `json:"productId"`
	Title     string `json:"title"`
	UnitPrice int64  `json:"unitPrice"`
	Quantity  int    `json:"quantity"`
	ImageRef  string `json:"imageRef,omitempty"`
}

type Snapshot struct {
	Items    []Item `json:"items"`
	Subtotal int64  `json:"subtotal"`
	Count    int    `json:"count"`
}

var (
	ErrBadLine          = errors.New("bad cart line")
	ErrSubtotalOverflow = errors.New("subtotal overflow")
)

type Backend interface {
	GetCart(ctx context.Context, sessionID, customerID string) ([]backend.CartItem, error)
}

type CountStore interface {
	Set(ctx context.Context, customerID string, n int) error
	Get(ctx context.Context, customerID string) (int, bool, error)
}

type Loader struct {
	backend Backend
	counts  CountStore
	log     *zap.Logger
}

func NewLoader(b Backend, counts CountStore, log *zap.Logger) *Loader {
	if log == nil {
		log = zap.NewNop()
	}
	return &Loader{backend: b, counts: counts, log: log}
}

// Load fetches the authoritative cart and derives subtotal and item count.
func (l *Loader) Load(ctx context.Context, sessionID, customerID string) (Snapshot, error) {
	lines, err := l.backend.GetCart(ctx, sessionID, customerID)
	if err != nil {
		return Snapshot{}, fmt.Errorf("load cart: %w", err)
	}

	snap := Snapshot{Items: make([]Item, 0, len(lines))}
	for _, ln := range lines {
		if ln.Quantity <= 0 || ln.UnitPrice < 0 {
			return Snapshot{}, ErrBadLine
		}

		line := ln.UnitPrice * int64(ln.Quantity)
		if line < 0 || snap.Subtotal > math.MaxInt64-line {
			return Snapshot{}, ErrSubtotalOverflow
		}
		snap.Subtotal += line
		snap.Count += ln.Quantity

		snap.Items = append(snap.Items, Item{
			ProductID: ln.ProductID,
			Title:     ln.Title,
			UnitPrice: ln.UnitPrice,
			Quantity:  ln.Quantity,
			ImageRef:  ln.ImageRef,
		})
	}

	if err := l.counts.Set(ctx, customerID, snap.Count); err != nil {
		l.log.Warn("cart count mirror write failed",
			zap.String("customer_id", customerID), zap.Error(err))
	}
	return snap, nil
}

// CachedCount returns the last persisted item count for badge display.
func (l *Loader) CachedCount(ctx context.Context, customerID string) (int, bool) {
	n, ok, err := l.counts.Get(ctx, customerID)
	if err != nil || !ok {
		return 0, false
	}
	return n, true
}
