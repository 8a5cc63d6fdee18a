package address

import (
	"context"
	"sync"

	"StoreFront/internal/backend"
)

type GeoBackend interface {
	Countries(ctx context.Context, sessionID string) ([]backend.GeoRef, error)
	States(ctx context.Context, sessionID, countryID string) ([]backend.GeoRef, error)
	Cities(ctx context.Context, sessionID, stateID string) ([]backend.GeoRef, error)
}

// Geo caches the country/state/city reference data used by address entry
// forms. Reference data changes rarely enough that a process-lifetime cache
// is fine.
type Geo struct {
	backend GeoBackend

	mu        sync.Mutex
	countries []backend.GeoRef
	states    map[string][]backend.GeoRef
	cities    map[string][]backend.GeoRef
}

func NewGeo(b GeoBackend) *Geo {
	return &Geo{
		backend: b,
		states:  map[string][]backend.GeoRef{},
		cities:  map[string][]backend.GeoRef{},
	}
}

func (g *Geo) Countries(ctx context.Context, sessionID string) ([]backend.GeoRef, error) {
	g.mu.Lock()
	if g.countries != nil {
		out := g.countries
		g.mu.Unlock()
		return out, nil
	}
	g.mu.Unlock()

	list, err := g.backend.Countries(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	g.mu.Lock()
	g.countries = list
	g.mu.Unlock()
	return list, nil
}

func (g *Geo) States(ctx context.Context, sessionID, countryID string) ([]backend.GeoRef, error) {
	g.mu.Lock()
	if list, ok := g.states[countryID]; ok {
		g.mu.Unlock()
		return list, nil
	}
	g.mu.Unlock()

	list, err := g.backend.States(ctx, sessionID, countryID)
	if err != nil {
		return nil, err
	}

	g.mu.Lock()
	g.states[countryID] = list
	g.mu.Unlock()
	return list, nil
}

func (g *Geo) Cities(ctx context.Context, sessionID, stateID string) ([]backend.GeoRef, error) {
	g.mu.Lock()
	if list, ok := g.cities[stateID]; ok {
		g.mu.Unlock()
		return list, nil
	}
	g.mu.Unlock()

	list, err := g.backend.Cities(ctx, sessionID, stateID)
	if err != nil {
		return nil, err
	}

	g.mu.Lock()
	g.cities[stateID] = list
	g.mu.Unlock()
	return list, nil
}
