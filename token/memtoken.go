package token

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/michaelpento.lv/arbengine/arberr"
)

// MemToken is an in-memory fungible token with ERC20-style balance and
// allowance semantics. It backs the pool simulator and the test suite.
type MemToken struct {
	mu         sync.Mutex
	addr       common.Address
	balances   map[common.Address]*big.Int
	allowances map[common.Address]map[common.Address]*big.Int
}

func NewMemToken(addr common.Address) *MemToken {
	return &MemToken{
		addr:       addr,
		balances:   make(map[common.Address]*big.Int),
		allowances: make(map[common.Address]map[common.Address]*big.Int),
	}
}

// Address returns the token's identifier.
func (t *MemToken) Address() common.Address {
	return t.addr
}

// Mint credits amount out of thin air. Test setup only.
func (t *MemToken) Mint(holder common.Address, amount *big.Int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.credit(holder, amount)
}

func (t *MemToken) credit(holder common.Address, amount *big.Int) {
	bal, ok := t.balances[holder]
	if !ok {
		bal = new(big.Int)
		t.balances[holder] = bal
	}
	bal.Add(bal, amount)
}

func (t *MemToken) debit(holder common.Address, amount *big.Int) error {
	bal, ok := t.balances[holder]
	if !ok || bal.Cmp(amount) < 0 {
		return fmt.Errorf("%w: holder %s of token %s",
			arberr.ErrInsufficientBalance, holder.Hex(), t.addr.Hex())
	}
	bal.Sub(bal, amount)
	return nil
}

func validAmount(amount *big.Int) error {
	if amount == nil || amount.Sign() < 0 {
		return fmt.Errorf("%w: token amount", arberr.ErrInvalidAmount)
	}
	return nil
}

func (t *MemToken) BalanceOf(_ context.Context, holder common.Address) (*big.Int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if bal, ok := t.balances[holder]; ok {
		return new(big.Int).Set(bal), nil
	}
	return new(big.Int), nil
}

func (t *MemToken) Transfer(_ context.Context, caller, dst common.Address, amount *big.Int) error {
	if err := validAmount(amount); err != nil {
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.debit(caller, amount); err != nil {
		return err
	}
	t.credit(dst, amount)
	return nil
}

func (t *MemToken) TransferFrom(_ context.Context, spender, src, dst common.Address, amount *big.Int) error {
	if err := validAmount(amount); err != nil {
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	allowed := t.allowances[src][spender]
	if spender != src {
		if allowed == nil || allowed.Cmp(amount) < 0 {
			return fmt.Errorf("%w: allowance of %s for spender %s",
				arberr.ErrInsufficientBalance, src.Hex(), spender.Hex())
		}
	}
	if err := t.debit(src, amount); err != nil {
		return err
	}
	t.credit(dst, amount)
	if spender != src {
		allowed.Sub(allowed, amount)
	}
	return nil
}

func (t *MemToken) Approve(_ context.Context, caller, spender common.Address, amount *big.Int) error {
	if err := validAmount(amount); err != nil {
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.allowances[caller] == nil {
		t.allowances[caller] = make(map[common.Address]*big.Int)
	}
	t.allowances[caller][spender] = new(big.Int).Set(amount)
	return nil
}

// MemResolver resolves tokens from a fixed in-memory set.
type MemResolver struct {
	mu     sync.RWMutex
	tokens map[common.Address]*MemToken
}

func NewMemResolver(tokens ...*MemToken) *MemResolver {
	r := &MemResolver{tokens: make(map[common.Address]*MemToken)}
	for _, t := range tokens {
		r.tokens[t.Address()] = t
	}
	return r
}

func (r *MemResolver) Add(t *MemToken) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tokens[t.Address()] = t
}

func (r *MemResolver) Token(addr common.Address) (Token, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tokens[addr]
	if !ok {
		return nil, fmt.Errorf("%w: unknown token %s", arberr.ErrNotAllowed, addr.Hex())
	}
	return t, nil
}
