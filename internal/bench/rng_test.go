package bench

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestStreamDeterministic(t *testing.T) {
	seed := make([]byte, SeedSize)
	a := newStream(seed, streamDiffusion, trialIndex(8, 3)).bits(77)
	b := newStream(seed, streamDiffusion, trialIndex(8, 3)).bits(77)
	require.True(t, a.Equal(b))

	for _, other := range []*stream{
		newStream(seed, streamConfusion, trialIndex(8, 3)),
		newStream(seed, streamDiffusion, trialIndex(8, 4)),
		newStream(seed, streamDiffusion, trialIndex(9, 3)),
	} {
		require.False(t, a.Equal(other.bits(77)))
	}

	require.Panics(t, func() { newStream(seed[:5], streamDiffusion, 0) })
}

func TestStreamIntn(t *testing.T) {
	s := newStream(make([]byte, SeedSize), streamAvalanche, 0)
	hits := make([]int, 5)
	for i := 0; i < 5000; i++ {
		v := s.intn(5)
		require.GreaterOrEqual(t, v, 0)
		require.Less(t, v, 5)
		hits[v]++
	}
	for _, n := range hits {
		require.Greater(t, n, 800)
	}
	require.Equal(t, 0, s.intn(1))
	require.Panics(t, func() { s.intn(0) })
}

func TestRunSeed(t *testing.T) {
	a, err := NewRunSeed()
	require.NoError(t, err)
	b, err := NewRunSeed()
	require.NoError(t, err)
	require.Len(t, a, SeedSize)
	require.NotEqual(t, a, b)
}

func TestStats(t *testing.T) {
	v := []float64{2, 4, 4, 4, 5, 5, 7, 9}
	require.Equal(t, 5.0, mean(v))
	require.InDelta(t, 2.138, stdDev(v), 1e-3)
	lo, hi := minMax(v)
	require.Equal(t, 2.0, lo)
	require.Equal(t, 9.0, hi)

	require.Zero(t, mean(nil))
	require.Zero(t, stdDev([]float64{3}))
	lo, hi = minMax(nil)
	require.Zero(t, lo)
	require.Zero(t, hi)

	require.Equal(t, 1.5, millis(1500*time.Microsecond))

	s := intStats([]int{3, 1, 8})
	require.Equal(t, StatResult{Mean: 4, Min: 1, Max: 8, Trials: 3}, s)
	require.Equal(t, StatResult{}, intStats(nil))
}
