package registry

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/michaelpento.lv/arbengine/arberr"
	"github.com/michaelpento.lv/arbengine/types"
)

var (
	owner    = common.HexToAddress("0x0000000000000000000000000000000000000001")
	stranger = common.HexToAddress("0x0000000000000000000000000000000000000002")
	tokenX   = common.HexToAddress("0x00000000000000000000000000000000000000aa")
	venueX   = common.HexToAddress("0x00000000000000000000000000000000000000ff")
)

func TestAuthorizeRevoke(t *testing.T) {
	r := New(owner, zaptest.NewLogger(t))

	assert.False(t, r.IsAuthorized(types.KindToken, tokenX))

	require.NoError(t, r.Authorize(owner, types.KindToken, tokenX))
	assert.True(t, r.IsAuthorized(types.KindToken, tokenX))
	// Token and venue namespaces are separate
	assert.False(t, r.IsAuthorized(types.KindVenue, tokenX))

	require.NoError(t, r.Authorize(owner, types.KindVenue, venueX))
	assert.True(t, r.IsAuthorized(types.KindVenue, venueX))

	require.NoError(t, r.Revoke(owner, types.KindToken, tokenX))
	assert.False(t, r.IsAuthorized(types.KindToken, tokenX))
	assert.True(t, r.IsAuthorized(types.KindVenue, venueX))
}

func TestOnlyOwnerMutates(t *testing.T) {
	r := New(owner, zaptest.NewLogger(t))

	err := r.Authorize(stranger, types.KindToken, tokenX)
	assert.ErrorIs(t, err, arberr.ErrUnauthorized)
	assert.False(t, r.IsAuthorized(types.KindToken, tokenX))

	require.NoError(t, r.Authorize(owner, types.KindToken, tokenX))
	err = r.Revoke(stranger, types.KindToken, tokenX)
	assert.ErrorIs(t, err, arberr.ErrUnauthorized)
	assert.True(t, r.IsAuthorized(types.KindToken, tokenX))
}

func TestIdempotent(t *testing.T) {
	r := New(owner, zaptest.NewLogger(t))

	require.NoError(t, r.Authorize(owner, types.KindToken, tokenX))
	require.NoError(t, r.Authorize(owner, types.KindToken, tokenX))
	assert.True(t, r.IsAuthorized(types.KindToken, tokenX))

	require.NoError(t, r.Revoke(owner, types.KindToken, tokenX))
	require.NoError(t, r.Revoke(owner, types.KindToken, tokenX))
	assert.False(t, r.IsAuthorized(types.KindToken, tokenX))
}
