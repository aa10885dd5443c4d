// Package univ2 adapts a deployed UniswapV2-style router to the venue
// capability: getAmountsOut for quotes, swapExactTokensForTokens for
// swaps.
package univ2

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/michaelpento.lv/arbengine/ethtx"
	"github.com/michaelpento.lv/arbengine/token"
	"github.com/michaelpento.lv/arbengine/types"
	"github.com/michaelpento.lv/arbengine/venue"
)

const routerABIJson = `[
	{"name":"getAmountsOut","type":"function","stateMutability":"view","inputs":[{"name":"amountIn","type":"uint256"},{"name":"path","type":"address[]"}],"outputs":[{"name":"amounts","type":"uint256[]"}]},
	{"name":"swapExactTokensForTokens","type":"function","stateMutability":"nonpayable","inputs":[{"name":"amountIn","type":"uint256"},{"name":"amountOutMin","type":"uint256"},{"name":"path","type":"address[]"},{"name":"to","type":"address"},{"name":"deadline","type":"uint256"}],"outputs":[{"name":"amounts","type":"uint256[]"}]}
]`

// Router is one live AMM venue behind a V2-style router contract.
type Router struct {
	addr   common.Address
	name   string
	sender *ethtx.Sender
	tokens token.Resolver
	abi    abi.ABI
	log    *zap.Logger
}

func NewRouter(addr common.Address, name string, sender *ethtx.Sender, tokens token.Resolver, log *zap.Logger) (*Router, error) {
	parsed, err := abi.JSON(strings.NewReader(routerABIJson))
	if err != nil {
		return nil, fmt.Errorf("failed to parse router ABI: %w", err)
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Router{
		addr:   addr,
		name:   name,
		sender: sender,
		tokens: tokens,
		abi:    parsed,
		log:    log,
	}, nil
}

func (r *Router) Address() common.Address { return r.addr }
func (r *Router) Name() string            { return r.name }

// Quote queries getAmountsOut. A revert on the quote path usually means a
// missing pair, which for this venue is the no-liquidity outcome, so it
// maps to NoQuote rather than an error; only packing and transport
// problems surface as errors.
func (r *Router) Quote(ctx context.Context, amountIn *big.Int, tokenIn, tokenOut common.Address) (types.Quote, error) {
	if amountIn == nil || amountIn.Sign() <= 0 {
		return types.NoQuote(), nil
	}
	path := []common.Address{tokenIn, tokenOut}
	data, err := r.abi.Pack("getAmountsOut", amountIn, path)
	if err != nil {
		return types.NoQuote(), fmt.Errorf("failed to pack getAmountsOut: %w", err)
	}
	raw, err := r.sender.Call(ctx, r.addr, data)
	if err != nil {
		if strings.Contains(err.Error(), "execution reverted") {
			return types.NoQuote(), nil
		}
		return types.NoQuote(), fmt.Errorf("getAmountsOut call on %s: %w", r.name, err)
	}
	out, err := r.abi.Unpack("getAmountsOut", raw)
	if err != nil {
		return types.NoQuote(), fmt.Errorf("failed to unpack getAmountsOut: %w", err)
	}
	amounts, ok := out[0].([]*big.Int)
	if !ok || len(amounts) != len(path) {
		return types.NoQuote(), fmt.Errorf("unexpected getAmountsOut shape on %s", r.name)
	}
	last := amounts[len(amounts)-1]
	if last.Sign() == 0 {
		return types.NoQuote(), nil
	}
	return types.Quote{Amount: last}, nil
}

// Swap submits swapExactTokensForTokens. The router enforces the output
// floor and the deadline atomically on chain; the delivered amount is
// measured as the recipient's balance delta because a state-changing
// call's return value is not observable from the receipt.
func (r *Router) Swap(ctx context.Context, caller common.Address, p venue.SwapParams) (*big.Int, error) {
	outTok, err := r.tokens.Token(p.TokenOut)
	if err != nil {
		return nil, err
	}
	balBefore, err := outTok.BalanceOf(ctx, p.Recipient)
	if err != nil {
		return nil, fmt.Errorf("balance before swap on %s: %w", r.name, err)
	}

	path := []common.Address{p.TokenIn, p.TokenOut}
	data, err := r.abi.Pack("swapExactTokensForTokens",
		p.AmountIn, p.MinAmountOut, path, p.Recipient, big.NewInt(p.Deadline.Unix()))
	if err != nil {
		return nil, fmt.Errorf("failed to pack swap: %w", err)
	}

	receipt, err := r.sender.Send(ctx, r.addr, data)
	if err != nil {
		return nil, fmt.Errorf("swap on %s: %w", r.name, err)
	}

	balAfter, err := outTok.BalanceOf(ctx, p.Recipient)
	if err != nil {
		return nil, fmt.Errorf("balance after swap on %s: %w", r.name, err)
	}
	out := new(big.Int).Sub(balAfter, balBefore)
	if out.Sign() <= 0 {
		return nil, fmt.Errorf("swap on %s delivered nothing", r.name)
	}

	r.log.Debug("swap mined",
		zap.String("venue", r.name),
		zap.String("tx", receipt.TxHash.Hex()),
		zap.Uint64("gas_used", receipt.GasUsed),
		zap.String("amount_out", out.String()))
	return out, nil
}
