// Package invalidate defines the cache-invalidation boundary. The pipeline
// does not own any read cache; after settlement it calls the sink with the
// enumerated scopes the batch could have changed, and the cache owner decides
// what refetching means.
package invalidate

import (
	"sync"
	"time"
)

// Scope keys one cached read-view.
type Scope string

const (
	ScopeBalances  Scope = "balances"
	ScopePositions Scope = "positions"
	ScopeVotes     Scope = "votes"
	ScopeClaims    Scope = "claims"
	ScopeTVL       Scope = "tvl"
	ScopeIntents   Scope = "intents"
)

// Sink receives invalidation signals. Implementations must be idempotent:
// re-marking already-stale data as stale is a no-op.
type Sink interface {
	Invalidate(scope Scope)
}

// Registry is an in-memory Sink that records staleness per scope. It is safe
// for concurrent use; entries are last-writer-wins, which is acceptable
// because staleness only ever moves data toward a refetch.
type Registry struct {
	mu    sync.Mutex
	stale map[Scope]time.Time
}

var _ Sink = (*Registry)(nil)

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{stale: make(map[Scope]time.Time)}
}

// Invalidate marks the scope stale.
func (r *Registry) Invalidate(scope Scope) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stale[scope] = time.Now()
}

// Stale reports whether the scope is marked stale.
func (r *Registry) Stale(scope Scope) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.stale[scope]
	return ok
}

// Refresh clears the scope after the cache owner has refetched.
func (r *Registry) Refresh(scope Scope) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.stale, scope)
}

// StaleScopes returns all currently stale scopes in unspecified order.
func (r *Registry) StaleScopes() []Scope {
	r.mu.Lock()
	defer r.mu.Unlock()
	scopes := make([]Scope, 0, len(r.stale))
	for scope := range r.stale {
		scopes = append(scopes, scope)
	}
	return scopes
}
