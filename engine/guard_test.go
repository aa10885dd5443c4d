package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/michaelpento.lv/arbengine/arberr"
)

func TestGuard(t *testing.T) {
	var g guard

	require.NoError(t, g.acquire())
	assert.ErrorIs(t, g.acquire(), arberr.ErrReentrancy)

	g.release()
	assert.NoError(t, g.acquire())
}
