package meter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"coremeter/internal/domain"
)

func TestGrid_AtReadsStoredSample(t *testing.T) {
	g, err := NewGrid(3)
	require.NoError(t, err)

	require.NoError(t, g.Store(domain.SampleEnd, domain.Snapshot{{}, {}, {0, 0, 0, 77}}))

	v, err := g.At(domain.SampleEnd, domain.StateNice, 2)
	require.NoError(t, err)
	assert.EqualValues(t, 77, v)

	v, err = g.At(domain.SampleBegin, domain.StateNice, 2)
	require.NoError(t, err)
	assert.Zero(t, v)
}

func TestGrid_BoundsChecked(t *testing.T) {
	g, err := NewGrid(2)
	require.NoError(t, err)

	_, err = g.At(domain.SampleIndex(2), domain.StateUser, 0)
	require.ErrorIs(t, err, domain.ErrOutOfRange)

	_, err = g.At(domain.SampleBegin, domain.CPUState(domain.NumStates), 0)
	require.ErrorIs(t, err, domain.ErrOutOfRange)

	_, err = g.At(domain.SampleBegin, domain.StateIdle, 2)
	require.ErrorIs(t, err, domain.ErrOutOfRange)

	_, err = g.At(domain.SampleBegin, domain.StateIdle, -1)
	require.ErrorIs(t, err, domain.ErrOutOfRange)

	_, err = g.Ticks(domain.SampleEnd, 5)
	require.ErrorIs(t, err, domain.ErrOutOfRange)

	_, err = NewGrid(0)
	require.ErrorIs(t, err, domain.ErrOutOfRange)
}

func TestGrid_Store(t *testing.T) {
	g, err := NewGrid(2)
	require.NoError(t, err)
	assert.False(t, g.Filled(domain.SampleBegin))

	snap := domain.Snapshot{{1, 2, 3, 4}, {5, 6, 7, 8}}
	require.NoError(t, g.Store(domain.SampleBegin, snap))
	assert.True(t, g.Filled(domain.SampleBegin))
	assert.False(t, g.Filled(domain.SampleEnd))

	for p, want := range snap {
		got, err := g.Ticks(domain.SampleBegin, p)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	v, err := g.At(domain.SampleBegin, domain.StateIdle, 1)
	require.NoError(t, err)
	assert.EqualValues(t, 7, v)
}

func TestGrid_StoreRejectsShortSnapshot(t *testing.T) {
	g, err := NewGrid(4)
	require.NoError(t, err)

	err = g.Store(domain.SampleEnd, domain.Snapshot{{1, 1, 1, 1}})
	require.ErrorIs(t, err, domain.ErrAccountingUnavailable)
	assert.False(t, g.Filled(domain.SampleEnd))
}
