package monitor

import (
	"context"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/michaelpento.lv/arbengine/engine"
	"github.com/michaelpento.lv/arbengine/token"
	"github.com/michaelpento.lv/arbengine/types"
	"github.com/michaelpento.lv/arbengine/venue"
	"github.com/michaelpento.lv/arbengine/venue/poolsim"
)

var (
	ownerAddr  = common.HexToAddress("0x0000000000000000000000000000000000000001")
	selfAddr   = common.HexToAddress("0x0000000000000000000000000000000000005e1f")
	tokenAAddr = common.HexToAddress("0x00000000000000000000000000000000000000aa")
	tokenBAddr = common.HexToAddress("0x00000000000000000000000000000000000000bb")
	venue1Addr = common.HexToAddress("0x0000000000000000000000000000000000000e01")
	venue2Addr = common.HexToAddress("0x0000000000000000000000000000000000000e02")
)

// fixture wires an engine over two fixed-rate venues where a 10k round
// trip nets 520.
type fixture struct {
	eng    *engine.Engine
	tokens *token.MemResolver
	tokenA *token.MemToken
	tokenB *token.MemToken
	venues *venue.Map
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	tokenA := token.NewMemToken(tokenAAddr)
	tokenB := token.NewMemToken(tokenBAddr)
	tokens := token.NewMemResolver(tokenA, tokenB)

	v1 := poolsim.NewRateVenue(venue1Addr, "double", tokens, 2, 1)
	tokenB.Mint(venue1Addr, big.NewInt(1_000_000))
	v2 := poolsim.NewRateVenue(venue2Addr, "giveback", tokens, 526, 1000)
	tokenA.Mint(venue2Addr, big.NewInt(1_000_000))
	venues := venue.NewMap(v1, v2)

	eng, err := engine.New(engine.Config{
		Owner:  ownerAddr,
		Self:   selfAddr,
		Venues: venues,
		Tokens: tokens,
		Logger: zaptest.NewLogger(t),
	})
	require.NoError(t, err)

	for _, tok := range []common.Address{tokenAAddr, tokenBAddr} {
		require.NoError(t, eng.Authorize(ownerAddr, types.KindToken, tok))
	}
	for _, v := range []common.Address{venue1Addr, venue2Addr} {
		require.NoError(t, eng.Authorize(ownerAddr, types.KindVenue, v))
	}

	return &fixture{
		eng:    eng,
		tokens: tokens,
		tokenA: tokenA,
		tokenB: tokenB,
		venues: venues,
	}
}

// addVenue registers and authorizes an extra venue.
func (f *fixture) addVenue(t *testing.T, v venue.Venue) {
	t.Helper()
	f.venues.Add(v)
	require.NoError(t, f.eng.Authorize(ownerAddr, types.KindVenue, v.Address()))
}

func pair(amount int64) types.OpportunityRequest {
	return types.OpportunityRequest{
		TokenA:          tokenAAddr,
		TokenB:          tokenBAddr,
		AmountIn:        big.NewInt(amount),
		Venue1:          venue1Addr,
		Venue2:          venue2Addr,
		ReverseOnVenue2: true,
	}
}

func TestScanFindsOpportunity(t *testing.T) {
	f := newFixture(t)
	m, err := New(f.eng, []types.OpportunityRequest{pair(10_000)}, Config{
		Interval: time.Second,
	}, zaptest.NewLogger(t))
	require.NoError(t, err)

	opps := m.ScanOnce(context.Background())
	require.Len(t, opps, 1)
	assert.Equal(t, int64(520), opps[0].Profit.Int64())
	// 520 on 10000 is a 5.2% margin
	assert.GreaterOrEqual(t, opps[0].Confidence, 0.9)
	assert.Equal(t, "low", opps[0].Risk)
}

func TestScanDedupesRepeats(t *testing.T) {
	f := newFixture(t)
	m, err := New(f.eng, []types.OpportunityRequest{pair(10_000)}, Config{
		Interval: time.Second,
	}, zaptest.NewLogger(t))
	require.NoError(t, err)

	ctx := context.Background()
	require.Len(t, m.ScanOnce(ctx), 1)
	// Same pair, same margin bucket: suppressed on the next cycle
	assert.Len(t, m.ScanOnce(ctx), 0)
}

func TestScanHonorsMaxPerCycle(t *testing.T) {
	f := newFixture(t)
	pairs := []types.OpportunityRequest{
		pair(10_000), pair(20_000), pair(30_000), pair(40_000),
	}
	m, err := New(f.eng, pairs, Config{
		Interval:    time.Second,
		MaxPerCycle: 2,
	}, zaptest.NewLogger(t))
	require.NoError(t, err)

	opps := m.ScanOnce(context.Background())
	assert.Len(t, opps, 2)
}

func TestScanFiltersLowConfidence(t *testing.T) {
	f := newFixture(t)

	// x2 then x0.5001 nets 2 on 10000, a 2 bps margin that scores only the
	// 0.5 base plus the 0.1 round-trip bonus.
	thin := poolsim.NewRateVenue(
		common.HexToAddress("0x0000000000000000000000000000000000000e09"),
		"thin", f.tokens, 5001, 10000)
	f.tokenA.Mint(thin.Address(), big.NewInt(1_000_000))
	f.addVenue(t, thin)

	req := pair(10_000)
	req.Venue2 = thin.Address()

	m, err := New(f.eng, []types.OpportunityRequest{req}, Config{
		Interval:      time.Second,
		MinConfidence: 0.99,
	}, zaptest.NewLogger(t))
	require.NoError(t, err)
	assert.Len(t, m.ScanOnce(context.Background()), 0)

	// The same pair clears a floor at its own score
	m, err = New(f.eng, []types.OpportunityRequest{req}, Config{
		Interval:      time.Second,
		MinConfidence: 0.6,
	}, zaptest.NewLogger(t))
	require.NoError(t, err)
	opps := m.ScanOnce(context.Background())
	require.Len(t, opps, 1)
	assert.Equal(t, int64(2), opps[0].Profit.Int64())
	assert.InDelta(t, 0.6, opps[0].Confidence, 1e-9)
	assert.Equal(t, "high", opps[0].Risk)
}

func TestScanSkipsUnprofitablePairs(t *testing.T) {
	f := newFixture(t)
	losing := pair(10_000)
	losing.Venue1, losing.Venue2 = losing.Venue2, losing.Venue1

	m, err := New(f.eng, []types.OpportunityRequest{losing}, Config{
		Interval: time.Second,
	}, zaptest.NewLogger(t))
	require.NoError(t, err)

	assert.Len(t, m.ScanOnce(context.Background()), 0)
}

func TestRunStopsOnCancel(t *testing.T) {
	f := newFixture(t)
	m, err := New(f.eng, []types.OpportunityRequest{pair(10_000)}, Config{
		Interval: 10 * time.Millisecond,
	}, zaptest.NewLogger(t))
	require.NoError(t, err)
	require.NoError(t, m.Register(prometheus.NewRegistry()))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- m.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("monitor did not stop")
	}
}
