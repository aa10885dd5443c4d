package poolsim

import (
	"context"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/michaelpento.lv/arbengine/arberr"
	"github.com/michaelpento.lv/arbengine/token"
	"github.com/michaelpento.lv/arbengine/venue"
)

var (
	poolAddr  = common.HexToAddress("0x0000000000000000000000000000000000000e01")
	tokenAddr = common.HexToAddress("0x00000000000000000000000000000000000000aa")
	tokenBddr = common.HexToAddress("0x00000000000000000000000000000000000000bb")
	trader    = common.HexToAddress("0x0000000000000000000000000000000000000123")
)

func newPoolFixture(t *testing.T, reserveA, reserveB int64) (*Pool, *token.MemToken, *token.MemToken) {
	t.Helper()
	ta := token.NewMemToken(tokenAddr)
	tb := token.NewMemToken(tokenBddr)
	ta.Mint(poolAddr, big.NewInt(reserveA))
	tb.Mint(poolAddr, big.NewInt(reserveB))
	return NewPool(poolAddr, "test-pool", ta, tb, 30), ta, tb
}

func TestPoolQuote(t *testing.T) {
	ctx := context.Background()
	p, _, _ := newPoolFixture(t, 1_000_000, 1_000_000)

	q, err := p.Quote(ctx, big.NewInt(10_000), tokenAddr, tokenBddr)
	require.NoError(t, err)
	require.True(t, q.Viable())
	// Constant product with 30 bps fee: out < in for a balanced pool
	assert.True(t, q.Amount.Cmp(big.NewInt(10_000)) < 0)
	assert.True(t, q.Amount.Cmp(big.NewInt(9_800)) > 0)
}

func TestPoolQuoteNoLiquidity(t *testing.T) {
	ctx := context.Background()
	ta := token.NewMemToken(tokenAddr)
	tb := token.NewMemToken(tokenBddr)
	p := NewPool(poolAddr, "dry-pool", ta, tb, 30)

	q, err := p.Quote(ctx, big.NewInt(10_000), tokenAddr, tokenBddr)
	require.NoError(t, err)
	assert.False(t, q.Viable())
}

func TestPoolQuoteUnknownPair(t *testing.T) {
	ctx := context.Background()
	p, _, _ := newPoolFixture(t, 1_000_000, 1_000_000)

	_, err := p.Quote(ctx, big.NewInt(10), tokenAddr, trader)
	assert.ErrorIs(t, err, arberr.ErrNotAllowed)
}

func TestPoolSwapMovesBalances(t *testing.T) {
	ctx := context.Background()
	p, ta, tb := newPoolFixture(t, 1_000_000, 1_000_000)

	amountIn := big.NewInt(10_000)
	ta.Mint(trader, amountIn)
	require.NoError(t, ta.Approve(ctx, trader, poolAddr, amountIn))

	q, err := p.Quote(ctx, amountIn, tokenAddr, tokenBddr)
	require.NoError(t, err)

	out, err := p.Swap(ctx, trader, venue.SwapParams{
		AmountIn:     amountIn,
		MinAmountOut: q.Amount,
		TokenIn:      tokenAddr,
		TokenOut:     tokenBddr,
		Recipient:    trader,
		Deadline:     time.Now().Add(time.Minute),
	})
	require.NoError(t, err)
	assert.Equal(t, q.Amount, out)

	balA, _ := ta.BalanceOf(ctx, trader)
	balB, _ := tb.BalanceOf(ctx, trader)
	assert.Equal(t, int64(0), balA.Int64())
	assert.Equal(t, out, balB)
}

func TestPoolSwapFloorEnforced(t *testing.T) {
	ctx := context.Background()
	p, ta, _ := newPoolFixture(t, 1_000_000, 1_000_000)

	amountIn := big.NewInt(10_000)
	ta.Mint(trader, amountIn)
	require.NoError(t, ta.Approve(ctx, trader, poolAddr, amountIn))

	_, err := p.Swap(ctx, trader, venue.SwapParams{
		AmountIn:     amountIn,
		MinAmountOut: big.NewInt(10_001), // above any possible output
		TokenIn:      tokenAddr,
		TokenOut:     tokenBddr,
		Recipient:    trader,
		Deadline:     time.Now().Add(time.Minute),
	})
	assert.ErrorIs(t, err, arberr.ErrSlippageExceeded)

	// No partial transfer happened
	balA, _ := ta.BalanceOf(ctx, trader)
	assert.Equal(t, amountIn, balA)
}

func TestPoolSwapDeadline(t *testing.T) {
	ctx := context.Background()
	p, ta, _ := newPoolFixture(t, 1_000_000, 1_000_000)

	amountIn := big.NewInt(10_000)
	ta.Mint(trader, amountIn)
	require.NoError(t, ta.Approve(ctx, trader, poolAddr, amountIn))

	_, err := p.Swap(ctx, trader, venue.SwapParams{
		AmountIn:  amountIn,
		TokenIn:   tokenAddr,
		TokenOut:  tokenBddr,
		Recipient: trader,
		Deadline:  time.Now().Add(-time.Second),
	})
	assert.ErrorIs(t, err, arberr.ErrDeadlineExceeded)
}

func TestPoolPriceImpact(t *testing.T) {
	ctx := context.Background()
	p, _, _ := newPoolFixture(t, 1_000_000, 1_000_000)

	small, err := p.Quote(ctx, big.NewInt(1_000), tokenAddr, tokenBddr)
	require.NoError(t, err)
	large, err := p.Quote(ctx, big.NewInt(500_000), tokenAddr, tokenBddr)
	require.NoError(t, err)

	// Per-unit price worsens with size
	smallRate := new(big.Float).Quo(new(big.Float).SetInt(small.Amount), big.NewFloat(1_000))
	largeRate := new(big.Float).Quo(new(big.Float).SetInt(large.Amount), big.NewFloat(500_000))
	assert.Equal(t, -1, largeRate.Cmp(smallRate))
}

func TestRateVenue(t *testing.T) {
	ctx := context.Background()
	ta := token.NewMemToken(tokenAddr)
	tb := token.NewMemToken(tokenBddr)
	tokens := token.NewMemResolver(ta, tb)

	v := NewRateVenue(poolAddr, "fixed", tokens, 2, 1)
	tb.Mint(poolAddr, big.NewInt(1_000_000))

	q, err := v.Quote(ctx, big.NewInt(500), tokenAddr, tokenBddr)
	require.NoError(t, err)
	require.True(t, q.Viable())
	assert.Equal(t, int64(1000), q.Amount.Int64())

	// Quote larger than payout liquidity is not viable
	q, err = v.Quote(ctx, big.NewInt(600_000), tokenAddr, tokenBddr)
	require.NoError(t, err)
	assert.False(t, q.Viable())
}

func TestRateVenueSwap(t *testing.T) {
	ctx := context.Background()
	ta := token.NewMemToken(tokenAddr)
	tb := token.NewMemToken(tokenBddr)
	tokens := token.NewMemResolver(ta, tb)

	v := NewRateVenue(poolAddr, "fixed", tokens, 2, 1)
	tb.Mint(poolAddr, big.NewInt(1_000_000))
	ta.Mint(trader, big.NewInt(500))
	require.NoError(t, ta.Approve(ctx, trader, poolAddr, big.NewInt(500)))

	out, err := v.Swap(ctx, trader, venue.SwapParams{
		AmountIn:     big.NewInt(500),
		MinAmountOut: big.NewInt(1000),
		TokenIn:      tokenAddr,
		TokenOut:     tokenBddr,
		Recipient:    trader,
		Deadline:     time.Now().Add(time.Minute),
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1000), out.Int64())
}
