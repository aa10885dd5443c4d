// Package ledger tracks the engine's custodied balance per token. It is a
// cached mirror of true custody, refreshed synchronously on every deposit,
// withdrawal and swap, so balance reads during an execution never require
// a live external call.
package ledger

import (
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/michaelpento.lv/arbengine/arberr"
)

// Ledger maps token addresses to non-negative balances in the token's
// smallest unit. Only the owning engine mutates it.
type Ledger struct {
	mu       sync.RWMutex
	balances map[common.Address]*big.Int
}

func New() *Ledger {
	return &Ledger{
		balances: make(map[common.Address]*big.Int),
	}
}

func checkAmount(amount *big.Int) error {
	if amount == nil {
		return fmt.Errorf("%w: nil amount", arberr.ErrArithmetic)
	}
	if amount.Sign() < 0 {
		return fmt.Errorf("%w: negative amount %s", arberr.ErrArithmetic, amount)
	}
	return nil
}

// Credit adds amount to the token balance.
func (l *Ledger) Credit(token common.Address, amount *big.Int) error {
	if err := checkAmount(amount); err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	bal, ok := l.balances[token]
	if !ok {
		bal = new(big.Int)
		l.balances[token] = bal
	}
	bal.Add(bal, amount)
	return nil
}

// Debit removes amount from the token balance. A debit that exceeds the
// current balance fails with ErrInsufficientBalance; the balance never
// goes negative.
func (l *Ledger) Debit(token common.Address, amount *big.Int) error {
	if err := checkAmount(amount); err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	bal, ok := l.balances[token]
	if !ok || bal.Cmp(amount) < 0 {
		have := new(big.Int)
		if ok {
			have.Set(bal)
		}
		return fmt.Errorf("%w: token %s has %s, need %s",
			arberr.ErrInsufficientBalance, token.Hex(), have, amount)
	}
	bal.Sub(bal, amount)
	return nil
}

// BalanceOf returns a copy of the token balance, zero if unknown.
func (l *Ledger) BalanceOf(token common.Address) *big.Int {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if bal, ok := l.balances[token]; ok {
		return new(big.Int).Set(bal)
	}
	return new(big.Int)
}

// Snapshot captures the balances of the given tokens so a failed
// execution can restore them exactly.
type Snapshot map[common.Address]*big.Int

func (l *Ledger) Snapshot(tokens ...common.Address) Snapshot {
	l.mu.RLock()
	defer l.mu.RUnlock()

	snap := make(Snapshot, len(tokens))
	for _, t := range tokens {
		if bal, ok := l.balances[t]; ok {
			snap[t] = new(big.Int).Set(bal)
		} else {
			snap[t] = new(big.Int)
		}
	}
	return snap
}

// Restore resets every token captured in the snapshot to its captured
// balance. Tokens outside the snapshot are untouched.
func (l *Ledger) Restore(snap Snapshot) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for t, bal := range snap {
		l.balances[t] = new(big.Int).Set(bal)
	}
}
