// Package service holds the runtime key custody for the seal layer. The Guard
// owns the published key hierarchy; every cryptographic subsystem reaches key
// material only through it and fails with a sealed error while no hierarchy
// is published.
package service

import (
	"context"
	"sync/atomic"
	"time"

	cryptoDomain "github.com/usphq/usp/internal/crypto/domain"
)

// drainPollInterval is how often Drain re-checks the in-flight counter.
const drainPollInterval = 10 * time.Millisecond

// Guard is the single mutable slot for the key hierarchy. Install publishes
// an unsealed hierarchy atomically; Drain unpublishes it, waits for in-flight
// derivations, and zeroizes. The hierarchy itself is shared-immutable, so
// readers never see partial state.
type Guard struct {
	hierarchy atomic.Pointer[cryptoDomain.KeyHierarchy]
	inflight  atomic.Int64
}

// NewGuard creates an empty (sealed) guard.
func NewGuard() *Guard {
	return &Guard{}
}

type hierarchyCtxKey struct{}

// ContextWithKeys returns a context carrying an unpublished hierarchy.
// Subkey prefers it over the installed one, which lets initialization append
// audit records before the hierarchy is published, the same way
// database.GetTx prefers the transaction carried in the context.
func ContextWithKeys(ctx context.Context, hierarchy *cryptoDomain.KeyHierarchy) context.Context {
	return context.WithValue(ctx, hierarchyCtxKey{}, hierarchy)
}

// Subkey derives the subkey for purpose from the context override or the
// installed hierarchy. Fails with a sealed error when neither is present.
func (g *Guard) Subkey(ctx context.Context, purpose cryptoDomain.Purpose) ([]byte, error) {
	if h, ok := ctx.Value(hierarchyCtxKey{}).(*cryptoDomain.KeyHierarchy); ok && h != nil {
		return h.Subkey(purpose)
	}

	g.inflight.Add(1)
	defer g.inflight.Add(-1)

	h := g.hierarchy.Load()
	if h == nil {
		return nil, cryptoDomain.ErrHierarchyDestroyed
	}
	return h.Subkey(purpose)
}

// Install publishes a reconstructed hierarchy. Any previously installed
// hierarchy is zeroized first.
func (g *Guard) Install(hierarchy *cryptoDomain.KeyHierarchy) {
	if old := g.hierarchy.Swap(hierarchy); old != nil {
		old.Zeroize()
	}
}

// Unsealed reports whether a hierarchy is currently published.
func (g *Guard) Unsealed() bool {
	return g.hierarchy.Load() != nil
}

// Drain unpublishes the hierarchy so new derivations fail sealed, waits up to
// timeout for in-flight derivations to finish, then zeroizes the key
// material. Stragglers past the timeout fail inside the hierarchy's own
// destroyed check. Safe to call while already sealed.
func (g *Guard) Drain(ctx context.Context, timeout time.Duration) {
	h := g.hierarchy.Swap(nil)
	if h == nil {
		return
	}

	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	ticker := time.NewTicker(drainPollInterval)
	defer ticker.Stop()

	for g.inflight.Load() > 0 {
		select {
		case <-ctx.Done():
			h.Zeroize()
			return
		case <-deadline.C:
			h.Zeroize()
			return
		case <-ticker.C:
		}
	}

	h.Zeroize()
}
