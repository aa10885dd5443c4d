package engine

import (
	"context"
	"fmt"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/michaelpento.lv/arbengine/arberr"
	"github.com/michaelpento.lv/arbengine/types"
	"github.com/michaelpento.lv/arbengine/venue"
	"github.com/michaelpento.lv/arbengine/venue/poolsim"
)

func TestEvaluateRoundTrip(t *testing.T) {
	f := newFixture(t)

	// 10000 A -> 20000 B on venue1, 20000 B -> 10520 A on venue2
	profit, err := f.eng.Evaluate(context.Background(), f.request(10_000, true))
	require.NoError(t, err)
	assert.Equal(t, int64(520), profit.Int64())
}

func TestEvaluateComparisonMode(t *testing.T) {
	f := newFixture(t)

	// Leg 2 re-quotes the original 10000 A on venue2: 5260 B out, which is
	// measured against the 10000 A at risk, so no profit.
	profit, err := f.eng.Evaluate(context.Background(), f.request(10_000, false))
	require.NoError(t, err)
	assert.Equal(t, int64(0), profit.Int64())
}

func TestEvaluateNeverNegative(t *testing.T) {
	f := newFixture(t)

	// Both legs through the x0.526 venue lose money; clamped to zero
	req := f.request(10_000, true)
	req.Venue1 = venue2Addr

	profit, err := f.eng.Evaluate(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, int64(0), profit.Int64())
}

func TestEvaluateInvalidAmount(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for _, amount := range []*big.Int{nil, big.NewInt(0), big.NewInt(-5)} {
		req := f.request(1, true)
		req.AmountIn = amount
		_, err := f.eng.Evaluate(ctx, req)
		assert.ErrorIs(t, err, arberr.ErrInvalidAmount)
	}
}

func TestEvaluateRequiresAuthorization(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.eng.Revoke(ownerAddr, types.KindToken, tokenBAddr))
	_, err := f.eng.Evaluate(ctx, f.request(10_000, true))
	assert.ErrorIs(t, err, arberr.ErrNotAllowed)

	require.NoError(t, f.eng.Authorize(ownerAddr, types.KindToken, tokenBAddr))
	req := f.request(10_000, true)
	req.Venue2 = common.HexToAddress("0x00000000000000000000000000000000000dead")
	_, err = f.eng.Evaluate(ctx, req)
	assert.ErrorIs(t, err, arberr.ErrNotAllowed)
}

func TestEvaluateNoLiquidity(t *testing.T) {
	f := newFixture(t)

	// A venue with nothing to pay out quotes NoQuote, which evaluates to
	// zero profit rather than an error.
	dry := poolsim.NewRateVenue(
		common.HexToAddress("0x0000000000000000000000000000000000000e03"),
		"dry", f.tokens, 2, 1)
	f.addVenue(t, dry)

	req := f.request(10_000, true)
	req.Venue1 = dry.Address()
	profit, err := f.eng.Evaluate(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, int64(0), profit.Int64())
}

// brokenVenue fails every quote query, simulating a transport outage.
type brokenVenue struct {
	addr common.Address
}

func (v *brokenVenue) Address() common.Address { return v.addr }
func (v *brokenVenue) Name() string            { return "broken" }

func (v *brokenVenue) Quote(context.Context, *big.Int, common.Address, common.Address) (types.Quote, error) {
	return types.NoQuote(), fmt.Errorf("connection refused")
}

func (v *brokenVenue) Swap(context.Context, common.Address, venue.SwapParams) (*big.Int, error) {
	return nil, fmt.Errorf("connection refused")
}

func TestEvaluateDegradesQuoteFailure(t *testing.T) {
	f := newFixture(t)
	broken := &brokenVenue{addr: common.HexToAddress("0x0000000000000000000000000000000000000e04")}
	f.addVenue(t, broken)

	req := f.request(10_000, true)
	req.Venue1 = broken.Address()
	profit, err := f.eng.Evaluate(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, int64(0), profit.Int64())
}

func TestEvaluateMovesNoFunds(t *testing.T) {
	f := newFixture(t)
	f.deposit(t, 10_000)

	_, err := f.eng.Evaluate(context.Background(), f.request(10_000, true))
	require.NoError(t, err)

	assert.Equal(t, int64(10_000), f.eng.BalanceOf(tokenAAddr).Int64())
	bal, err := f.tokenA.BalanceOf(context.Background(), selfAddr)
	require.NoError(t, err)
	assert.Equal(t, int64(10_000), bal.Int64())
}
