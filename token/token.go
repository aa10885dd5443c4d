// Package token defines the fungible-token capability the engine consumes:
// standard debit/credit with allowance-based pull.
package token

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Token is the fungible-token capability. Implementations must make
// TransferFrom fail when the spender's allowance or the holder's balance
// is insufficient.
type Token interface {
	// BalanceOf returns the holder's balance.
	BalanceOf(ctx context.Context, holder common.Address) (*big.Int, error)

	// Transfer moves amount from the caller's own balance to dst.
	Transfer(ctx context.Context, caller, dst common.Address, amount *big.Int) error

	// TransferFrom moves amount from src to dst using the spender's
	// allowance granted by src.
	TransferFrom(ctx context.Context, spender, src, dst common.Address, amount *big.Int) error

	// Approve grants spender an allowance over the caller's balance.
	Approve(ctx context.Context, caller, spender common.Address, amount *big.Int) error
}

// Resolver maps a token address to its capability.
type Resolver interface {
	Token(addr common.Address) (Token, error)
}
