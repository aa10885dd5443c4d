package types

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// Kind selects which authorization set an identifier belongs to.
type Kind int

const (
	KindToken Kind = iota
	KindVenue
)

func (k Kind) String() string {
	switch k {
	case KindToken:
		return "token"
	case KindVenue:
		return "venue"
	default:
		return "unknown"
	}
}

// Quote is the result of a venue price query. None marks the explicit
// no-viable-price outcome (zero liquidity), which is not an error.
type Quote struct {
	Amount *big.Int
	None   bool
}

// NoQuote is the quote a venue returns when it cannot price the pair.
func NoQuote() Quote {
	return Quote{Amount: new(big.Int), None: true}
}

// Viable reports whether the quote carries a usable positive amount.
func (q Quote) Viable() bool {
	return !q.None && q.Amount != nil && q.Amount.Sign() > 0
}

// OpportunityRequest describes one two-leg arbitrage attempt.
//
// ReverseOnVenue2 selects the leg-2 direction: true swaps tokenB back into
// tokenA with leg 1's output (the classic round trip), false repeats
// tokenA->tokenB on venue 2 with the original input amount.
type OpportunityRequest struct {
	TokenA          common.Address
	TokenB          common.Address
	AmountIn        *big.Int
	Venue1          common.Address
	Venue2          common.Address
	ReverseOnVenue2 bool
}

// LegResult is the typed intermediate of the execution pipeline: one swap,
// with its expectation, its slippage floor and what the venue delivered.
type LegResult struct {
	Venue       common.Address
	TokenIn     common.Address
	TokenOut    common.Address
	AmountIn    *big.Int
	ExpectedOut *big.Int
	MinOut      *big.Int
	ActualOut   *big.Int
}

// ExecutionOutcome records a completed round trip. Profit is realized
// profit measured from ledger balances, not the pre-trade quote. Emitted
// only on success and immutable afterwards.
type ExecutionOutcome struct {
	Token     common.Address
	AmountIn  *big.Int
	Profit    *big.Int
	Leg1      LegResult
	Leg2      LegResult
	Timestamp time.Time
}
