package types

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestQuoteViable(t *testing.T) {
	assert.False(t, NoQuote().Viable())
	assert.False(t, Quote{}.Viable())
	assert.False(t, Quote{Amount: big.NewInt(0)}.Viable())
	assert.False(t, Quote{Amount: big.NewInt(100), None: true}.Viable())
	assert.True(t, Quote{Amount: big.NewInt(100)}.Viable())
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "token", KindToken.String())
	assert.Equal(t, "venue", KindVenue.String())
	assert.Equal(t, "unknown", Kind(99).String())
}
