package engine

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/michaelpento.lv/arbengine/arberr"
	"github.com/michaelpento.lv/arbengine/types"
	"github.com/michaelpento.lv/arbengine/venue"
)

// Evaluate chains the two dependent quotes for the request and returns the
// expected round-trip profit, always relative to the original input — the
// capital actually at risk — never to leg 1's output. Read-only; no state
// is mutated and no funds move.
//
// Lack of liquidity on either leg is a valid outcome, not an error: a
// NoQuote, a zero quote or a failing quote query all yield profit 0. Only
// an unauthorized token or venue fails the call, since an unauthorized
// venue's quote is not trustworthy input even for pure evaluation.
func (e *Engine) Evaluate(ctx context.Context, req types.OpportunityRequest) (*big.Int, error) {
	if req.AmountIn == nil || req.AmountIn.Sign() <= 0 {
		return nil, fmt.Errorf("%w: evaluation input", arberr.ErrInvalidAmount)
	}
	if err := e.checkRequestAuthorized(req); err != nil {
		return nil, err
	}

	v1, err := e.venues.Venue(req.Venue1)
	if err != nil {
		return nil, err
	}
	v2, err := e.venues.Venue(req.Venue2)
	if err != nil {
		return nil, err
	}

	leg1Out := e.softQuote(ctx, v1, req.AmountIn, req.TokenA, req.TokenB)
	if leg1Out.Sign() == 0 {
		e.metrics.Evaluations.WithLabelValues("no_quote").Inc()
		return new(big.Int), nil
	}

	leg2In, leg2TokenIn, leg2TokenOut := leg2Direction(req, leg1Out)
	leg2Out := e.softQuote(ctx, v2, leg2In, leg2TokenIn, leg2TokenOut)

	profit := new(big.Int).Sub(leg2Out, req.AmountIn)
	if profit.Sign() < 0 {
		profit.SetInt64(0)
	}
	if profit.Sign() > 0 {
		e.metrics.Evaluations.WithLabelValues("opportunity").Inc()
	} else {
		e.metrics.Evaluations.WithLabelValues("none").Inc()
	}
	return profit, nil
}

// softQuote degrades any quote failure to zero so evaluation stays
// side-effect-free and always callable. Transport failures are still
// distinguishable from genuine zero liquidity in the logs.
func (e *Engine) softQuote(ctx context.Context, v venue.Venue, amountIn *big.Int, tokenIn, tokenOut common.Address) *big.Int {
	if amountIn == nil || amountIn.Sign() <= 0 {
		return new(big.Int)
	}
	q, err := v.Quote(ctx, amountIn, tokenIn, tokenOut)
	if err != nil {
		e.log.Warn("quote query failed, treating as no liquidity",
			zap.String("venue", v.Name()),
			zap.Error(err))
		return new(big.Int)
	}
	if !q.Viable() {
		return new(big.Int)
	}
	return new(big.Int).Set(q.Amount)
}

// leg2Direction selects leg 2's input and pair from the request mode:
// reversed swaps leg 1's output back (tokenB->tokenA), non-reversed
// repeats tokenA->tokenB with the original input on the second venue.
func leg2Direction(req types.OpportunityRequest, leg1Out *big.Int) (*big.Int, common.Address, common.Address) {
	if req.ReverseOnVenue2 {
		return leg1Out, req.TokenB, req.TokenA
	}
	return req.AmountIn, req.TokenA, req.TokenB
}
