// Package venue defines the capability an external automated market maker
// exposes to the engine: a pure price query and a slippage-bounded swap.
package venue

import (
	"context"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/michaelpento.lv/arbengine/arberr"
	"github.com/michaelpento.lv/arbengine/types"
)

// SwapParams are the inputs to a single swap. The venue must atomically
// fail, reverting any partial transfer, if it cannot deliver at least
// MinAmountOut or if Deadline has elapsed.
type SwapParams struct {
	AmountIn     *big.Int
	MinAmountOut *big.Int
	TokenIn      common.Address
	TokenOut     common.Address
	Recipient    common.Address
	Deadline     time.Time
}

// Venue is one external AMM.
//
// Quote is side-effect-free. A Quote with None set (or a zero amount)
// signals no viable price, which is a valid outcome, not an error; a
// non-nil error means the query itself failed (transport, revert).
type Venue interface {
	Quote(ctx context.Context, amountIn *big.Int, tokenIn, tokenOut common.Address) (types.Quote, error)
	Swap(ctx context.Context, caller common.Address, p SwapParams) (*big.Int, error)
	Address() common.Address
	Name() string
}

// Resolver maps a venue address to its implementation.
type Resolver interface {
	Venue(addr common.Address) (Venue, error)
}

// Map is a fixed in-memory Resolver.
type Map struct {
	mu     sync.RWMutex
	venues map[common.Address]Venue
}

func NewMap(venues ...Venue) *Map {
	m := &Map{venues: make(map[common.Address]Venue)}
	for _, v := range venues {
		m.venues[v.Address()] = v
	}
	return m
}

func (m *Map) Add(v Venue) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.venues[v.Address()] = v
}

func (m *Map) Venue(addr common.Address) (Venue, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.venues[addr]
	if !ok {
		return nil, fmt.Errorf("%w: unknown venue %s", arberr.ErrNotAllowed, addr.Hex())
	}
	return v, nil
}
