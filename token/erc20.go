package token

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"github.com/michaelpento.lv/arbengine/arberr"
	"github.com/michaelpento.lv/arbengine/ethtx"
)

const erc20ABIJson = `[
	{"name":"balanceOf","type":"function","stateMutability":"view","inputs":[{"name":"owner","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
	{"name":"transfer","type":"function","stateMutability":"nonpayable","inputs":[{"name":"to","type":"address"},{"name":"amount","type":"uint256"}],"outputs":[{"name":"","type":"bool"}]},
	{"name":"transferFrom","type":"function","stateMutability":"nonpayable","inputs":[{"name":"from","type":"address"},{"name":"to","type":"address"},{"name":"amount","type":"uint256"}],"outputs":[{"name":"","type":"bool"}]},
	{"name":"approve","type":"function","stateMutability":"nonpayable","inputs":[{"name":"spender","type":"address"},{"name":"amount","type":"uint256"}],"outputs":[{"name":"","type":"bool"}]}
]`

// ERC20 adapts an on-chain ERC20 contract to the Token capability. All
// state-changing calls are signed by the sender's identity, so the caller
// argument must match it.
type ERC20 struct {
	addr   common.Address
	sender *ethtx.Sender
	abi    abi.ABI
}

func NewERC20(addr common.Address, sender *ethtx.Sender) (*ERC20, error) {
	parsed, err := abi.JSON(strings.NewReader(erc20ABIJson))
	if err != nil {
		return nil, fmt.Errorf("failed to parse ERC20 ABI: %w", err)
	}
	return &ERC20{addr: addr, sender: sender, abi: parsed}, nil
}

func (t *ERC20) Address() common.Address { return t.addr }

func (t *ERC20) checkCaller(caller common.Address) error {
	if caller != t.sender.From() {
		return fmt.Errorf("%w: signer is %s, caller is %s",
			arberr.ErrUnauthorized, t.sender.From().Hex(), caller.Hex())
	}
	return nil
}

func (t *ERC20) BalanceOf(ctx context.Context, holder common.Address) (*big.Int, error) {
	data, err := t.abi.Pack("balanceOf", holder)
	if err != nil {
		return nil, fmt.Errorf("failed to pack balanceOf: %w", err)
	}
	raw, err := t.sender.Call(ctx, t.addr, data)
	if err != nil {
		return nil, fmt.Errorf("balanceOf call: %w", err)
	}
	out, err := t.abi.Unpack("balanceOf", raw)
	if err != nil {
		return nil, fmt.Errorf("failed to unpack balanceOf: %w", err)
	}
	return out[0].(*big.Int), nil
}

func (t *ERC20) Transfer(ctx context.Context, caller, dst common.Address, amount *big.Int) error {
	if err := t.checkCaller(caller); err != nil {
		return err
	}
	data, err := t.abi.Pack("transfer", dst, amount)
	if err != nil {
		return fmt.Errorf("failed to pack transfer: %w", err)
	}
	if _, err := t.sender.Send(ctx, t.addr, data); err != nil {
		return fmt.Errorf("transfer: %w", err)
	}
	return nil
}

func (t *ERC20) TransferFrom(ctx context.Context, spender, src, dst common.Address, amount *big.Int) error {
	if err := t.checkCaller(spender); err != nil {
		return err
	}
	data, err := t.abi.Pack("transferFrom", src, dst, amount)
	if err != nil {
		return fmt.Errorf("failed to pack transferFrom: %w", err)
	}
	if _, err := t.sender.Send(ctx, t.addr, data); err != nil {
		return fmt.Errorf("transferFrom: %w", err)
	}
	return nil
}

func (t *ERC20) Approve(ctx context.Context, caller, spender common.Address, amount *big.Int) error {
	if err := t.checkCaller(caller); err != nil {
		return err
	}
	data, err := t.abi.Pack("approve", spender, amount)
	if err != nil {
		return fmt.Errorf("failed to pack approve: %w", err)
	}
	if _, err := t.sender.Send(ctx, t.addr, data); err != nil {
		return fmt.Errorf("approve: %w", err)
	}
	return nil
}

// ERC20Resolver lazily wraps any address as an ERC20 over one sender.
type ERC20Resolver struct {
	mu     sync.Mutex
	sender *ethtx.Sender
	cache  map[common.Address]*ERC20
}

func NewERC20Resolver(sender *ethtx.Sender) *ERC20Resolver {
	return &ERC20Resolver{
		sender: sender,
		cache:  make(map[common.Address]*ERC20),
	}
}

func (r *ERC20Resolver) Token(addr common.Address) (Token, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if t, ok := r.cache[addr]; ok {
		return t, nil
	}
	t, err := NewERC20(addr, r.sender)
	if err != nil {
		return nil, err
	}
	r.cache[addr] = t
	return t, nil
}
