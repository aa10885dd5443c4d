package engine

import (
	"fmt"
	"sync/atomic"

	"github.com/michaelpento.lv/arbengine/arberr"
)

// guard is the non-reentrant execution lock around every operation that
// moves funds or performs external calls. Acquisition is a CAS, not a
// mutex, so a re-entered call fails immediately instead of deadlocking.
type guard struct {
	busy atomic.Bool
}

func (g *guard) acquire() error {
	if !g.busy.CompareAndSwap(false, true) {
		return fmt.Errorf("%w: guarded operation in progress", arberr.ErrReentrancy)
	}
	return nil
}

func (g *guard) release() {
	g.busy.Store(false)
}
