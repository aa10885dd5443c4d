// Package registry holds the allow-lists for tokens and venues. Every
// engine operation that touches funds or external calls checks membership
// here first.
package registry

import (
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/michaelpento.lv/arbengine/arberr"
	"github.com/michaelpento.lv/arbengine/types"
)

// Registry is a pair of owner-gated address sets. Authorize and Revoke are
// idempotent; a revoke takes effect for the next operation, in-flight
// operations past their authorization check are unaffected.
type Registry struct {
	mu     sync.RWMutex
	owner  common.Address
	tokens map[common.Address]struct{}
	venues map[common.Address]struct{}
	log    *zap.Logger
}

func New(owner common.Address, log *zap.Logger) *Registry {
	if log == nil {
		log = zap.NewNop()
	}
	return &Registry{
		owner:  owner,
		tokens: make(map[common.Address]struct{}),
		venues: make(map[common.Address]struct{}),
		log:    log,
	}
}

func (r *Registry) set(kind types.Kind) map[common.Address]struct{} {
	if kind == types.KindToken {
		return r.tokens
	}
	return r.venues
}

// Authorize adds id to the allow-list of the given kind. Owner only.
func (r *Registry) Authorize(caller common.Address, kind types.Kind, id common.Address) error {
	if caller != r.owner {
		return fmt.Errorf("%w: %s may not authorize", arberr.ErrUnauthorized, caller.Hex())
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.set(kind)[id] = struct{}{}

	r.log.Info("authorized",
		zap.String("kind", kind.String()),
		zap.String("id", id.Hex()))
	return nil
}

// Revoke removes id from the allow-list of the given kind. Owner only.
func (r *Registry) Revoke(caller common.Address, kind types.Kind, id common.Address) error {
	if caller != r.owner {
		return fmt.Errorf("%w: %s may not revoke", arberr.ErrUnauthorized, caller.Hex())
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.set(kind), id)

	r.log.Info("revoked",
		zap.String("kind", kind.String()),
		zap.String("id", id.Hex()))
	return nil
}

// IsAuthorized reports membership. Callable by anyone.
func (r *Registry) IsAuthorized(kind types.Kind, id common.Address) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.set(kind)[id]
	return ok
}
