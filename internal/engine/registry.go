// internal/engine/registry.go
package engine

import (
	"sort"
	"sync"

	"github.com/lanegames/gamesvc/internal/gameerr"
)

// Constructor builds a fresh Game instance for one game type.
type Constructor func() Game

// Registry maps game type strings to constructors. The type string is read
// from the constructed instance once at registration, so a ruleset cannot be
// registered under the wrong name.
type Registry struct {
	mu    sync.RWMutex
	games map[string]Constructor
}

func NewRegistry() *Registry {
	return &Registry{games: make(map[string]Constructor)}
}

func (r *Registry) Register(ctor Constructor) {
	gameType := ctor().GameType()
	r.mu.Lock()
	defer r.mu.Unlock()
	r.games[gameType] = ctor
}

func (r *Registry) Has(gameType string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.games[gameType]
	return ok
}

func (r *Registry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	types := make([]string, 0, len(r.games))
	for t := range r.games {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// Factory produces Game instances on demand from a Registry.
type Factory struct {
	registry *Registry
}

func NewFactory(registry *Registry) *Factory {
	return &Factory{registry: registry}
}

func (f *Factory) Create(gameType string) (Game, error) {
	f.registry.mu.RLock()
	ctor, ok := f.registry.games[gameType]
	f.registry.mu.RUnlock()
	if !ok {
		return nil, gameerr.Validation("unknown game type: %s", gameType)
	}
	return ctor(), nil
}
