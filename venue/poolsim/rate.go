package poolsim

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/michaelpento.lv/arbengine/arberr"
	"github.com/michaelpento.lv/arbengine/token"
	"github.com/michaelpento.lv/arbengine/types"
	"github.com/michaelpento.lv/arbengine/venue"
)

// RateVenue swaps at a fixed rate out = in * num / den, with no price
// impact. Deterministic counterpart to Pool for scenario tests; payout
// liquidity is whatever has been minted to the venue address.
type RateVenue struct {
	addr   common.Address
	name   string
	tokens *token.MemResolver
	num    *big.Int
	den    *big.Int
}

func NewRateVenue(addr common.Address, name string, tokens *token.MemResolver, num, den int64) *RateVenue {
	return &RateVenue{
		addr:   addr,
		name:   name,
		tokens: tokens,
		num:    big.NewInt(num),
		den:    big.NewInt(den),
	}
}

func (v *RateVenue) Address() common.Address { return v.addr }
func (v *RateVenue) Name() string            { return v.name }

func (v *RateVenue) out(amountIn *big.Int) *big.Int {
	out := new(big.Int).Mul(amountIn, v.num)
	return out.Div(out, v.den)
}

func (v *RateVenue) Quote(ctx context.Context, amountIn *big.Int, tokenIn, tokenOut common.Address) (types.Quote, error) {
	if amountIn == nil || amountIn.Sign() <= 0 {
		return types.NoQuote(), nil
	}
	outTok, err := v.tokens.Token(tokenOut)
	if err != nil {
		return types.NoQuote(), err
	}
	amt := v.out(amountIn)
	liquidity, err := outTok.BalanceOf(ctx, v.addr)
	if err != nil {
		return types.NoQuote(), err
	}
	if amt.Sign() == 0 || liquidity.Cmp(amt) < 0 {
		return types.NoQuote(), nil
	}
	return types.Quote{Amount: amt}, nil
}

func (v *RateVenue) Swap(ctx context.Context, caller common.Address, sp venue.SwapParams) (*big.Int, error) {
	if sp.AmountIn == nil || sp.AmountIn.Sign() <= 0 {
		return nil, fmt.Errorf("%w: swap input", arberr.ErrInvalidAmount)
	}
	if !sp.Deadline.IsZero() && time.Now().After(sp.Deadline) {
		return nil, fmt.Errorf("%w: venue %s", arberr.ErrDeadlineExceeded, v.name)
	}

	inTok, err := v.tokens.Token(sp.TokenIn)
	if err != nil {
		return nil, err
	}
	outTok, err := v.tokens.Token(sp.TokenOut)
	if err != nil {
		return nil, err
	}

	amountOut := v.out(sp.AmountIn)
	if sp.MinAmountOut != nil && amountOut.Cmp(sp.MinAmountOut) < 0 {
		return nil, fmt.Errorf("%w: venue %s would deliver %s, floor %s",
			arberr.ErrSlippageExceeded, v.name, amountOut, sp.MinAmountOut)
	}

	if err := inTok.TransferFrom(ctx, v.addr, caller, v.addr, sp.AmountIn); err != nil {
		return nil, fmt.Errorf("venue %s pull: %w", v.name, err)
	}
	if err := outTok.Transfer(ctx, v.addr, sp.Recipient, amountOut); err != nil {
		if refund := inTok.Transfer(ctx, v.addr, caller, sp.AmountIn); refund != nil {
			return nil, fmt.Errorf("venue %s payout failed and refund failed: %v: %w", v.name, refund, err)
		}
		return nil, fmt.Errorf("venue %s payout: %w", v.name, err)
	}
	return amountOut, nil
}
