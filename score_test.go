package lookahead

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScoreContainerShallowerWins(t *testing.T) {
	s := newScoreContainer(3)

	_, ok := s.storedScore(1)
	assert.False(t, ok)

	assert.True(t, s.updateScore(1, 4.0, 2))
	got, ok := s.storedScore(1)
	require.True(t, ok)
	assert.Equal(t, 4.0, got)
	assert.Equal(t, 1, s.nstored)

	// a deeper result never replaces a shallower one
	assert.False(t, s.updateScore(1, 9.0, 3))
	got, _ = s.storedScore(1)
	assert.Equal(t, 4.0, got)

	// same depth refreshes, shallower overwrites
	assert.True(t, s.updateScore(1, 5.0, 2))
	assert.True(t, s.updateScore(1, 6.0, 1))
	got, _ = s.storedScore(1)
	assert.Equal(t, 6.0, got)
	assert.Equal(t, 1, s.nstored)
}

func TestScoreContainerMemoryDepthGate(t *testing.T) {
	s := newScoreContainer(2)

	down := &lpiMemory{basis: &BasisState{}}
	up := &lpiMemory{norms: &Norms{}}
	s.saveMemory(0, true, down, 1)
	s.saveMemory(0, false, up, 1)

	// a mismatched depth yields nothing and leaves the state in place
	d, u := s.takeMemory(0, 0)
	assert.Nil(t, d)
	assert.Nil(t, u)

	d, u = s.takeMemory(0, 1)
	assert.Same(t, down, d)
	assert.Same(t, up, u)

	// the transfer is single-use
	d, u = s.takeMemory(0, 1)
	assert.Nil(t, d)
	assert.Nil(t, u)
}

func TestScoreContainerSaveAtNewDepthDropsOldState(t *testing.T) {
	s := newScoreContainer(1)

	old := &lpiMemory{basis: &BasisState{}}
	s.saveMemory(0, true, old, 2)

	fresh := &lpiMemory{basis: &BasisState{}}
	s.saveMemory(0, false, fresh, 1)
	assert.True(t, old.empty())

	d, u := s.takeMemory(0, 1)
	assert.Nil(t, d)
	assert.Same(t, fresh, u)
}

func TestScoreContainerClear(t *testing.T) {
	s := newScoreContainer(2)
	mem := &lpiMemory{basis: &BasisState{}, norms: &Norms{}}
	s.saveMemory(1, true, mem, 0)

	s.clear()
	assert.True(t, mem.empty())
	d, u := s.takeMemory(1, 0)
	assert.Nil(t, d)
	assert.Nil(t, u)
}
