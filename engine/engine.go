// Package engine implements the arbitrage evaluation-and-execution core:
// two-hop quote chaining, slippage-bounded swap sequencing and profit
// accounting over the custody ledger.
package engine

import (
	"context"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/michaelpento.lv/arbengine/arberr"
	"github.com/michaelpento.lv/arbengine/ledger"
	"github.com/michaelpento.lv/arbengine/registry"
	"github.com/michaelpento.lv/arbengine/token"
	"github.com/michaelpento.lv/arbengine/types"
	"github.com/michaelpento.lv/arbengine/venue"
)

// SlippageBpsCeiling is the hard upper bound for the slippage tolerance
// parameter: 1000 bps = 10%.
const SlippageBpsCeiling = 1000

// DefaultDeadlineWindow is how far in the future each swap deadline is set
// when the config does not override it.
const DefaultDeadlineWindow = 15 * time.Minute

// Config wires an Engine.
type Config struct {
	// Owner is the single authority for privileged operations.
	Owner common.Address
	// Self is the engine's own custody identity, the recipient of every
	// swap and the holder the ledger mirrors.
	Self common.Address

	Venues venue.Resolver
	Tokens token.Resolver

	MinProfitThreshold *big.Int
	MaxSlippageBps     uint64
	DeadlineWindow     time.Duration

	Logger  *zap.Logger
	Metrics *Metrics
}

// Engine owns the ledger, the allow-lists and the trade parameters for its
// lifetime. All guarded operations are serialized by the reentrancy lock.
type Engine struct {
	owner common.Address
	self  common.Address

	reg    *registry.Registry
	led    *ledger.Ledger
	venues venue.Resolver
	tokens token.Resolver

	paramMu        sync.RWMutex
	minProfit      *big.Int
	maxSlippageBps uint64

	deadlineWindow time.Duration

	guard guard

	log     *zap.Logger
	metrics *Metrics
}

func New(cfg Config) (*Engine, error) {
	if cfg.Venues == nil || cfg.Tokens == nil {
		return nil, fmt.Errorf("engine: venue and token resolvers are required")
	}
	if cfg.MaxSlippageBps > SlippageBpsCeiling {
		return nil, fmt.Errorf("%w: max slippage %d bps exceeds ceiling %d",
			arberr.ErrInvalidAmount, cfg.MaxSlippageBps, SlippageBpsCeiling)
	}
	minProfit := cfg.MinProfitThreshold
	if minProfit == nil {
		minProfit = new(big.Int)
	}
	if minProfit.Sign() < 0 {
		return nil, fmt.Errorf("%w: negative profit threshold", arberr.ErrInvalidAmount)
	}
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	metrics := cfg.Metrics
	if metrics == nil {
		metrics = NewMetrics()
	}
	window := cfg.DeadlineWindow
	if window <= 0 {
		window = DefaultDeadlineWindow
	}

	return &Engine{
		owner:          cfg.Owner,
		self:           cfg.Self,
		reg:            registry.New(cfg.Owner, log),
		led:            ledger.New(),
		venues:         cfg.Venues,
		tokens:         cfg.Tokens,
		minProfit:      new(big.Int).Set(minProfit),
		maxSlippageBps: cfg.MaxSlippageBps,
		deadlineWindow: window,
		log:            log,
		metrics:        metrics,
	}, nil
}

// Owner returns the authority address.
func (e *Engine) Owner() common.Address { return e.owner }

// Address returns the engine's custody identity.
func (e *Engine) Address() common.Address { return e.self }

// Authorize adds a token or venue to the allow-list. Owner only.
func (e *Engine) Authorize(caller common.Address, kind types.Kind, id common.Address) error {
	return e.reg.Authorize(caller, kind, id)
}

// Revoke removes a token or venue from the allow-list. Owner only.
func (e *Engine) Revoke(caller common.Address, kind types.Kind, id common.Address) error {
	return e.reg.Revoke(caller, kind, id)
}

// IsAuthorized reports allow-list membership.
func (e *Engine) IsAuthorized(kind types.Kind, id common.Address) bool {
	return e.reg.IsAuthorized(kind, id)
}

// BalanceOf returns the custodied ledger balance of token.
func (e *Engine) BalanceOf(tok common.Address) *big.Int {
	return e.led.BalanceOf(tok)
}

// SetMinProfitThreshold replaces the profit floor. Owner only.
func (e *Engine) SetMinProfitThreshold(caller common.Address, v *big.Int) error {
	if caller != e.owner {
		return fmt.Errorf("%w: set profit threshold", arberr.ErrUnauthorized)
	}
	if v == nil || v.Sign() < 0 {
		return fmt.Errorf("%w: profit threshold", arberr.ErrInvalidAmount)
	}
	e.paramMu.Lock()
	defer e.paramMu.Unlock()
	e.minProfit = new(big.Int).Set(v)
	return nil
}

// SetMaxSlippageBps replaces the slippage tolerance. Owner only; values
// above SlippageBpsCeiling are rejected and the parameter is unchanged.
func (e *Engine) SetMaxSlippageBps(caller common.Address, v uint64) error {
	if caller != e.owner {
		return fmt.Errorf("%w: set slippage", arberr.ErrUnauthorized)
	}
	if v > SlippageBpsCeiling {
		return fmt.Errorf("%w: %d bps exceeds ceiling %d", arberr.ErrInvalidAmount, v, SlippageBpsCeiling)
	}
	e.paramMu.Lock()
	defer e.paramMu.Unlock()
	e.maxSlippageBps = v
	return nil
}

// MinProfitThreshold returns a copy of the current profit floor.
func (e *Engine) MinProfitThreshold() *big.Int {
	e.paramMu.RLock()
	defer e.paramMu.RUnlock()
	return new(big.Int).Set(e.minProfit)
}

// MaxSlippageBps returns the current slippage tolerance.
func (e *Engine) MaxSlippageBps() uint64 {
	e.paramMu.RLock()
	defer e.paramMu.RUnlock()
	return e.maxSlippageBps
}

func (e *Engine) checkRequestAuthorized(req types.OpportunityRequest) error {
	for _, tok := range []common.Address{req.TokenA, req.TokenB} {
		if !e.reg.IsAuthorized(types.KindToken, tok) {
			return fmt.Errorf("%w: token %s", arberr.ErrNotAllowed, tok.Hex())
		}
	}
	for _, v := range []common.Address{req.Venue1, req.Venue2} {
		if !e.reg.IsAuthorized(types.KindVenue, v) {
			return fmt.Errorf("%w: venue %s", arberr.ErrNotAllowed, v.Hex())
		}
	}
	return nil
}

// Deposit pulls amount of token from the caller into custody and credits
// the ledger. Any caller; the token must be authorized and the caller must
// have approved the engine beforehand.
func (e *Engine) Deposit(ctx context.Context, caller, tokAddr common.Address, amount *big.Int) error {
	if !e.reg.IsAuthorized(types.KindToken, tokAddr) {
		return fmt.Errorf("%w: token %s", arberr.ErrNotAllowed, tokAddr.Hex())
	}
	if amount == nil || amount.Sign() <= 0 {
		return fmt.Errorf("%w: deposit amount", arberr.ErrInvalidAmount)
	}
	if err := e.guard.acquire(); err != nil {
		return err
	}
	defer e.guard.release()

	tok, err := e.tokens.Token(tokAddr)
	if err != nil {
		return err
	}
	if err := tok.TransferFrom(ctx, e.self, caller, e.self, amount); err != nil {
		return fmt.Errorf("deposit pull from %s: %w", caller.Hex(), err)
	}
	if err := e.led.Credit(tokAddr, amount); err != nil {
		return err
	}

	e.log.Info("deposit",
		zap.String("token", tokAddr.Hex()),
		zap.String("from", caller.Hex()),
		zap.String("amount", amount.String()))
	return nil
}

// WithdrawProfit debits amount from the ledger and pushes it to the owner.
// Owner only.
func (e *Engine) WithdrawProfit(ctx context.Context, caller, tokAddr common.Address, amount *big.Int) error {
	if caller != e.owner {
		return fmt.Errorf("%w: withdraw", arberr.ErrUnauthorized)
	}
	if amount == nil || amount.Sign() <= 0 {
		return fmt.Errorf("%w: withdraw amount", arberr.ErrInvalidAmount)
	}
	if err := e.guard.acquire(); err != nil {
		return err
	}
	defer e.guard.release()

	return e.pushOut(ctx, tokAddr, amount)
}

// EmergencyWithdraw drains the full ledger balance of token to the owner.
// Owner only. Returns the amount withdrawn.
func (e *Engine) EmergencyWithdraw(ctx context.Context, caller, tokAddr common.Address) (*big.Int, error) {
	if caller != e.owner {
		return nil, fmt.Errorf("%w: emergency withdraw", arberr.ErrUnauthorized)
	}
	if err := e.guard.acquire(); err != nil {
		return nil, err
	}
	defer e.guard.release()

	amount := e.led.BalanceOf(tokAddr)
	if amount.Sign() == 0 {
		return amount, nil
	}
	if err := e.pushOut(ctx, tokAddr, amount); err != nil {
		return nil, err
	}
	e.log.Warn("emergency withdraw",
		zap.String("token", tokAddr.Hex()),
		zap.String("amount", amount.String()))
	return amount, nil
}

// pushOut debits the ledger and transfers out; a failed transfer refunds
// the debit so the mirror never diverges from custody.
func (e *Engine) pushOut(ctx context.Context, tokAddr common.Address, amount *big.Int) error {
	tok, err := e.tokens.Token(tokAddr)
	if err != nil {
		return err
	}
	if err := e.led.Debit(tokAddr, amount); err != nil {
		return err
	}
	if err := tok.Transfer(ctx, e.self, e.owner, amount); err != nil {
		if crederr := e.led.Credit(tokAddr, amount); crederr != nil {
			return fmt.Errorf("push failed and refund failed: %v: %w", crederr, err)
		}
		return fmt.Errorf("push to owner: %w", err)
	}
	return nil
}
