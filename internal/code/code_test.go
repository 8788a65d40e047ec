package code

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLeftRightOf(t *testing.T) {
	c := New("abcdef")
	assert.Equal(t, "abc", c.LeftOf(3))
	assert.Equal(t, "def", c.RightOf(3))
	assert.Equal(t, "abcdef", c.LeftOf(99), "clamped to the end")
	assert.Equal(t, "abcdef", c.RightOf(-1), "clamped to the start")
}

func TestStartsWithPredicates(t *testing.T) {
	c := New("x 5 (")
	assert.True(t, c.StartsWithKeyword(0))
	assert.True(t, c.StartsWithSkippable(1))
	assert.True(t, c.StartsWithNumber(2))
	assert.True(t, c.StartsWithOperator(4))
	assert.False(t, c.StartsWithOperator(0))
}

func TestBuiltinOperatorGreedyMatch(t *testing.T) {
	tok, ok := matchBuiltinOperator([]rune("??x"), 0)
	assert.True(t, ok)
	assert.Equal(t, "??", tok, "'??' wins over '?'")

	tok, ok = matchBuiltinOperator([]rune("0xff"), 0)
	assert.True(t, ok)
	assert.Equal(t, "0x", tok)
}
