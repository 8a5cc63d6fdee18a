package checkout

import (
	"context"
	"errors"
	"sync"

	"StoreFront/internal/address"
	"StoreFront/internal/serviceability"
)

// Serviceability is the slice of the lookup the checkout needs.
type Serviceability interface {
	Prepaid(ctx context.Context, sessionID, pincode string) (bool, error)
	Charge(ctx context.Context, sessionID, pincode string) (int64, error)
	CachedPrepaid(pincode string) (bool, bool)
	CachedCharge(pincode string) (int64, bool)
}

// Selection tracks the delivery address chosen per customer and enforces the
// invariant that a non-serviceable address is never left selected: a choice
// that turns out non-serviceable falls back to the first serviceable address
// in the list, or to no selection at all.
type Selection struct {
	svc Serviceability

	mu       sync.Mutex
	selected map[string]address.Address
}

func NewSelection(svc Serviceability) *Selection {
	return &Selection{svc: svc, selected: map[string]address.Address{}}
}

// Select re-validates the chosen address and returns the effective selection
// after any fallback. ok is false when nothing serviceable exists.
func (s *Selection) Select(ctx context.Context, sessionID, customerID string, chosen address.Address, all []address.Address) (address.Address, bool, error) {
	serviceable, err := s.serviceable(ctx, sessionID, chosen)
	if err != nil {
		return address.Address{}, false, err
	}

	effective := chosen
	if !serviceable {
		effective, serviceable, err = s.firstServiceable(ctx, sessionID, all)
		if err != nil {
			return address.Address{}, false, err
		}
	}

	if !serviceable {
		s.Clear(customerID)
		return address.Address{}, false, nil
	}

	// Warm the delivery charge so checkout can total without another wait.
	_, _ = s.svc.Charge(ctx, sessionID, effective.Pincode)

	s.mu.Lock()
	s.selected[customerID] = effective
	s.mu.Unlock()
	return effective, true, nil
}

func (s *Selection) serviceable(ctx context.Context, sessionID string, a address.Address) (bool, error) {
	prepaid, err := s.svc.Prepaid(ctx, sessionID, a.Pincode)
	if errors.Is(err, serviceability.ErrInvalidPincode) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return prepaid, nil
}

func (s *Selection) firstServiceable(ctx context.Context, sessionID string, all []address.Address) (address.Address, bool, error) {
	for _, a := range all {
		ok, err := s.serviceable(ctx, sessionID, a)
		if err != nil {
			return address.Address{}, false, err
		}
		if ok {
			return a, true, nil
		}
	}
	return address.Address{}, false, nil
}

// Selected returns the current effective selection.
func (s *Selection) Selected(customerID string) (address.Address, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.selected[customerID]
	return a, ok
}

func (s *Selection) Clear(customerID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.selected, customerID)
}
