package engine

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/michaelpento.lv/arbengine/arberr"
	"github.com/michaelpento.lv/arbengine/types"
	"github.com/michaelpento.lv/arbengine/venue"
)

// Execute performs the two-leg trade. Owner only, reentrancy-locked.
//
// The expected profit from re-chained quotes is a pre-trade gate, not a
// guarantee: realized profit is re-measured from the ledger's before/after
// balance of tokenA and is the figure of record. Slippage floors are
// derived per leg from that leg's own expected output, never from an
// aggregate round-trip bound; the venue enforces the floor atomically.
//
// Any failure restores the ledger to its pre-call state. Either both legs
// complete and the ledger reflects the net result, or the caller observes
// a hard error and no ledger change.
func (e *Engine) Execute(ctx context.Context, caller common.Address, req types.OpportunityRequest) (*types.ExecutionOutcome, error) {
	if caller != e.owner {
		return nil, fmt.Errorf("%w: execute", arberr.ErrUnauthorized)
	}
	if err := e.guard.acquire(); err != nil {
		e.metrics.Errors.WithLabelValues(errKind(err)).Inc()
		return nil, err
	}
	defer e.guard.release()

	start := time.Now()
	e.metrics.ActiveExecutions.Inc()
	defer e.metrics.ActiveExecutions.Dec()

	outcome, err := e.execute(ctx, req)
	e.metrics.ExecutionLatency.Observe(time.Since(start).Seconds())
	if err != nil {
		e.metrics.Executions.WithLabelValues("failure").Inc()
		e.metrics.Errors.WithLabelValues(errKind(err)).Inc()
		return nil, err
	}
	e.metrics.Executions.WithLabelValues("success").Inc()
	if outcome.Profit.IsUint64() {
		e.metrics.RealizedProfit.Add(float64(outcome.Profit.Uint64()))
	}
	return outcome, nil
}

func (e *Engine) execute(ctx context.Context, req types.OpportunityRequest) (*types.ExecutionOutcome, error) {
	// Preconditions, first failure wins, all before any external call.
	if err := e.checkRequestAuthorized(req); err != nil {
		return nil, err
	}
	if req.AmountIn == nil || req.AmountIn.Sign() <= 0 {
		return nil, fmt.Errorf("%w: execution input", arberr.ErrInvalidAmount)
	}
	if bal := e.led.BalanceOf(req.TokenA); bal.Cmp(req.AmountIn) < 0 {
		return nil, fmt.Errorf("%w: have %s of %s, need %s",
			arberr.ErrInsufficientBalance, bal, req.TokenA.Hex(), req.AmountIn)
	}

	v1, err := e.venues.Venue(req.Venue1)
	if err != nil {
		return nil, err
	}
	v2, err := e.venues.Venue(req.Venue2)
	if err != nil {
		return nil, err
	}

	// Re-chain the quotes. Unlike Evaluate, a failing quote query aborts
	// hard here: capital is about to move on the strength of this number.
	exp1, err := e.hardQuote(ctx, v1, req.AmountIn, req.TokenA, req.TokenB)
	if err != nil {
		return nil, err
	}
	leg2In, leg2TokenIn, leg2TokenOut := leg2Direction(req, exp1)
	exp2, err := e.hardQuote(ctx, v2, leg2In, leg2TokenIn, leg2TokenOut)
	if err != nil {
		return nil, err
	}

	minProfit := e.MinProfitThreshold()
	expectedProfit := new(big.Int).Sub(exp2, req.AmountIn)
	if expectedProfit.Cmp(minProfit) < 0 {
		return nil, fmt.Errorf("%w: expected %s, floor %s",
			arberr.ErrBelowProfitThreshold, expectedProfit, minProfit)
	}

	slippageBps := e.MaxSlippageBps()
	deadline := time.Now().Add(e.deadlineWindow)
	snap := e.led.Snapshot(req.TokenA, req.TokenB)
	balanceBefore := e.led.BalanceOf(req.TokenA)

	leg1 := types.LegResult{
		Venue:       req.Venue1,
		TokenIn:     req.TokenA,
		TokenOut:    req.TokenB,
		AmountIn:    new(big.Int).Set(req.AmountIn),
		ExpectedOut: exp1,
		MinOut:      slippageFloor(exp1, slippageBps),
	}
	if err := e.performLeg(ctx, v1, &leg1, deadline); err != nil {
		e.led.Restore(snap)
		return nil, fmt.Errorf("leg 1: %w", err)
	}

	leg2 := types.LegResult{
		Venue:       req.Venue2,
		TokenIn:     leg2TokenIn,
		TokenOut:    leg2TokenOut,
		AmountIn:    leg2ActualInput(req, leg1.ActualOut),
		ExpectedOut: exp2,
		MinOut:      slippageFloor(exp2, slippageBps),
	}
	if err := e.performLeg(ctx, v2, &leg2, deadline); err != nil {
		e.led.Restore(snap)
		return nil, fmt.Errorf("leg 2: %w", err)
	}

	balanceAfter := e.led.BalanceOf(req.TokenA)
	realized := new(big.Int).Sub(balanceAfter, balanceBefore)
	if realized.Sign() <= 0 {
		// A failed arbitrage must not silently succeed as a no-op trade.
		e.led.Restore(snap)
		return nil, fmt.Errorf("%w: balance moved %s", arberr.ErrUnprofitable, realized)
	}

	outcome := &types.ExecutionOutcome{
		Token:     req.TokenA,
		AmountIn:  new(big.Int).Set(req.AmountIn),
		Profit:    realized,
		Leg1:      leg1,
		Leg2:      leg2,
		Timestamp: time.Now(),
	}
	e.log.Info("arbitrage executed",
		zap.String("token", req.TokenA.Hex()),
		zap.String("amount_in", req.AmountIn.String()),
		zap.String("expected_profit", expectedProfit.String()),
		zap.String("realized_profit", realized.String()),
		zap.String("venue1", v1.Name()),
		zap.String("venue2", v2.Name()))
	return outcome, nil
}

// performLeg runs one swap and mirrors its transfers into the ledger. The
// ledger debit is checked before the external call so a leg that custody
// cannot cover never reaches the venue.
func (e *Engine) performLeg(ctx context.Context, v venue.Venue, leg *types.LegResult, deadline time.Time) error {
	if bal := e.led.BalanceOf(leg.TokenIn); bal.Cmp(leg.AmountIn) < 0 {
		return fmt.Errorf("%w: have %s of %s, leg needs %s",
			arberr.ErrInsufficientBalance, bal, leg.TokenIn.Hex(), leg.AmountIn)
	}

	tok, err := e.tokens.Token(leg.TokenIn)
	if err != nil {
		return err
	}
	if err := tok.Approve(ctx, e.self, v.Address(), leg.AmountIn); err != nil {
		return fmt.Errorf("approve %s: %w", v.Name(), err)
	}

	out, err := v.Swap(ctx, e.self, venue.SwapParams{
		AmountIn:     leg.AmountIn,
		MinAmountOut: leg.MinOut,
		TokenIn:      leg.TokenIn,
		TokenOut:     leg.TokenOut,
		Recipient:    e.self,
		Deadline:     deadline,
	})
	if err != nil {
		return fmt.Errorf("swap on %s: %w", v.Name(), err)
	}

	if err := e.led.Debit(leg.TokenIn, leg.AmountIn); err != nil {
		return err
	}
	if err := e.led.Credit(leg.TokenOut, out); err != nil {
		return err
	}
	leg.ActualOut = out
	return nil
}

// slippageFloor computes expected * (10000 - bps) / 10000.
func slippageFloor(expected *big.Int, bps uint64) *big.Int {
	floor := new(big.Int).Mul(expected, big.NewInt(10000-int64(bps)))
	return floor.Div(floor, big.NewInt(10000))
}

// hardQuote resolves one leg's expectation for execution. NoQuote maps to
// zero, which the profit-threshold gate then rejects; a query failure is a
// hard error.
func (e *Engine) hardQuote(ctx context.Context, v venue.Venue, amountIn *big.Int, tokenIn, tokenOut common.Address) (*big.Int, error) {
	if amountIn == nil || amountIn.Sign() <= 0 {
		return new(big.Int), nil
	}
	q, err := v.Quote(ctx, amountIn, tokenIn, tokenOut)
	if err != nil {
		return nil, fmt.Errorf("quote on %s: %w", v.Name(), err)
	}
	if !q.Viable() {
		return new(big.Int), nil
	}
	return new(big.Int).Set(q.Amount), nil
}

// leg2ActualInput is leg 1's realized output when reversed, else the
// original input.
func leg2ActualInput(req types.OpportunityRequest, leg1Out *big.Int) *big.Int {
	if req.ReverseOnVenue2 {
		return new(big.Int).Set(leg1Out)
	}
	return new(big.Int).Set(req.AmountIn)
}
