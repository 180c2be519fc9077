package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewUnorderedPair_Symmetry(t *testing.T) {
	assert.Equal(t, NewUnorderedPair(1, 2), NewUnorderedPair(2, 1))
	assert.Equal(t, int64(1), NewUnorderedPair(2, 1).First)
	assert.Equal(t, int64(2), NewUnorderedPair(2, 1).Second)
}

func TestUnorderedPairsOf(t *testing.T) {
	t.Run("three accounts yield three pairs", func(t *testing.T) {
		pairs := UnorderedPairsOf([]int64{10, 20, 30})
		assert.Len(t, pairs, 3)
		assert.Contains(t, pairs, NewUnorderedPair(10, 20))
		assert.Contains(t, pairs, NewUnorderedPair(10, 30))
		assert.Contains(t, pairs, NewUnorderedPair(20, 30))
	})

	t.Run("duplicate ids produce no self pairs", func(t *testing.T) {
		pairs := UnorderedPairsOf([]int64{10, 10, 20})
		assert.Equal(t, []UnorderedPair{NewUnorderedPair(10, 20)}, pairs)
	})

	t.Run("fewer than two accounts yield nothing", func(t *testing.T) {
		assert.Empty(t, UnorderedPairsOf([]int64{10}))
		assert.Empty(t, UnorderedPairsOf(nil))
	})
}
