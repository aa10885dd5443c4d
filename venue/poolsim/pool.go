// Package poolsim provides deterministic in-process venues: a
// constant-product pool and a fixed-rate venue. They move real MemToken
// balances and enforce the same floor and deadline semantics a live
// router does, which makes them the execution target for tests and
// dry runs.
package poolsim

import (
	"context"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/michaelpento.lv/arbengine/arberr"
	"github.com/michaelpento.lv/arbengine/token"
	"github.com/michaelpento.lv/arbengine/types"
	"github.com/michaelpento.lv/arbengine/venue"
)

// Pool is a two-token constant-product AMM (x*y=k) with a fee in basis
// points. Reserves are the pool address's own token balances.
type Pool struct {
	mu     sync.Mutex
	addr   common.Address
	name   string
	tokenA *token.MemToken
	tokenB *token.MemToken
	feeBps int64
}

// NewPool creates a pool over the two tokens. Seed liquidity by minting
// to the pool's address.
func NewPool(addr common.Address, name string, tokenA, tokenB *token.MemToken, feeBps int64) *Pool {
	return &Pool{
		addr:   addr,
		name:   name,
		tokenA: tokenA,
		tokenB: tokenB,
		feeBps: feeBps,
	}
}

func (p *Pool) Address() common.Address { return p.addr }
func (p *Pool) Name() string            { return p.name }

func (p *Pool) pair(tokenIn, tokenOut common.Address) (*token.MemToken, *token.MemToken, error) {
	switch {
	case tokenIn == p.tokenA.Address() && tokenOut == p.tokenB.Address():
		return p.tokenA, p.tokenB, nil
	case tokenIn == p.tokenB.Address() && tokenOut == p.tokenA.Address():
		return p.tokenB, p.tokenA, nil
	default:
		return nil, nil, fmt.Errorf("%w: pair %s/%s not on pool %s",
			arberr.ErrNotAllowed, tokenIn.Hex(), tokenOut.Hex(), p.name)
	}
}

// amountOut applies the constant-product formula with the pool fee:
// out = (in * (10000-fee) * reserveOut) / (reserveIn*10000 + in*(10000-fee))
func (p *Pool) amountOut(amountIn, reserveIn, reserveOut *big.Int) *big.Int {
	if reserveIn.Sign() == 0 || reserveOut.Sign() == 0 {
		return new(big.Int)
	}
	inWithFee := new(big.Int).Mul(amountIn, big.NewInt(10000-p.feeBps))
	numerator := new(big.Int).Mul(inWithFee, reserveOut)
	denominator := new(big.Int).Mul(reserveIn, big.NewInt(10000))
	denominator.Add(denominator, inWithFee)
	return numerator.Div(numerator, denominator)
}

func (p *Pool) Quote(ctx context.Context, amountIn *big.Int, tokenIn, tokenOut common.Address) (types.Quote, error) {
	if amountIn == nil || amountIn.Sign() <= 0 {
		return types.NoQuote(), nil
	}
	in, out, err := p.pair(tokenIn, tokenOut)
	if err != nil {
		return types.NoQuote(), err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	reserveIn, err := in.BalanceOf(ctx, p.addr)
	if err != nil {
		return types.NoQuote(), err
	}
	reserveOut, err := out.BalanceOf(ctx, p.addr)
	if err != nil {
		return types.NoQuote(), err
	}

	amt := p.amountOut(amountIn, reserveIn, reserveOut)
	if amt.Sign() == 0 {
		return types.NoQuote(), nil
	}
	return types.Quote{Amount: amt}, nil
}

func (p *Pool) Swap(ctx context.Context, caller common.Address, sp venue.SwapParams) (*big.Int, error) {
	if sp.AmountIn == nil || sp.AmountIn.Sign() <= 0 {
		return nil, fmt.Errorf("%w: swap input", arberr.ErrInvalidAmount)
	}
	if !sp.Deadline.IsZero() && time.Now().After(sp.Deadline) {
		return nil, fmt.Errorf("%w: pool %s", arberr.ErrDeadlineExceeded, p.name)
	}
	in, out, err := p.pair(sp.TokenIn, sp.TokenOut)
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	reserveIn, err := in.BalanceOf(ctx, p.addr)
	if err != nil {
		return nil, err
	}
	reserveOut, err := out.BalanceOf(ctx, p.addr)
	if err != nil {
		return nil, err
	}

	amountOut := p.amountOut(sp.AmountIn, reserveIn, reserveOut)
	if sp.MinAmountOut != nil && amountOut.Cmp(sp.MinAmountOut) < 0 {
		return nil, fmt.Errorf("%w: pool %s would deliver %s, floor %s",
			arberr.ErrSlippageExceeded, p.name, amountOut, sp.MinAmountOut)
	}

	// Pull input first; if the payout fails, return it so no partial
	// transfer is ever observable.
	if err := in.TransferFrom(ctx, p.addr, caller, p.addr, sp.AmountIn); err != nil {
		return nil, fmt.Errorf("pool %s pull: %w", p.name, err)
	}
	if err := out.Transfer(ctx, p.addr, sp.Recipient, amountOut); err != nil {
		if refund := in.Transfer(ctx, p.addr, caller, sp.AmountIn); refund != nil {
			return nil, fmt.Errorf("pool %s payout failed and refund failed: %v: %w", p.name, refund, err)
		}
		return nil, fmt.Errorf("pool %s payout: %w", p.name, err)
	}
	return amountOut, nil
}
