package bench

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jedisct1/go-spn"
	"github.com/jedisct1/go-spn/internal/config"
	"github.com/jedisct1/go-spn/internal/instrument"
	"github.com/jedisct1/go-spn/internal/log"
	"github.com/jedisct1/go-spn/internal/report"
)

const testRNGSeed = "000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f"

func testConfig(t *testing.T, workers int) *config.Bench {
	cfg, err := config.Load([]byte(`
[Bench]
  SeedSizes = [1, 8]
  CorrectnessTrials = 200
  PerformanceTrials = 20
  DiffusionTrials = 30
  ConfusionTrials = 30
  EquivalenceSamples = 300
  EquivalenceSeedSize = 16
  RNGSeed = "` + testRNGSeed + `"
`))
	require.NoError(t, err)
	cfg.Bench.Workers = workers
	return cfg.Bench
}

func newTestHarness(t *testing.T, workers int, m *instrument.Metrics) *Harness {
	backend, err := log.NewWithWriter(io.Discard, "DEBUG")
	require.NoError(t, err)
	h, err := New(testConfig(t, workers), backend, m)
	require.NoError(t, err)
	return h
}

func TestNewRandomSeed(t *testing.T) {
	backend, err := log.NewWithWriter(io.Discard, "ERROR")
	require.NoError(t, err)

	cfg := config.Default().Bench
	a, err := New(cfg, backend, nil)
	require.NoError(t, err)
	b, err := New(cfg, backend, nil)
	require.NoError(t, err)
	require.Len(t, a.Seed(), 2*SeedSize)
	require.NotEqual(t, a.Seed(), b.Seed())

	_, err = New(nil, backend, nil)
	require.Error(t, err)
}

func TestHarnessCorrectness(t *testing.T) {
	h := newTestHarness(t, 4, nil)
	for _, n := range []int{1, 2, 3, 8, 32} {
		res, err := h.Correctness(context.Background(), n, 200)
		require.NoError(t, err)
		require.Equal(t, 200, res.TestsPassed, "seed size %d", n)
		require.Zero(t, res.TestsFailed)
		require.Equal(t, 100.0, res.SuccessRate)
	}
}

func TestHarnessPerformance(t *testing.T) {
	h := newTestHarness(t, 1, nil)
	p, err := h.Performance(context.Background(), 8, 25)
	require.NoError(t, err)
	require.Greater(t, p.EncTimeMs, 0.0)
	require.LessOrEqual(t, p.EncMin, p.EncTimeMs)
	require.GreaterOrEqual(t, p.EncMax, p.EncTimeMs)
	require.InDelta(t, p.GenTimeMs+p.EncTimeMs+p.DecTimeMs, p.TotalTimeMs, 1e-9)
}

func TestDiffusionAndConfusion(t *testing.T) {
	h := newTestHarness(t, 4, nil)

	d, err := h.Diffusion(context.Background(), 8, 50)
	require.NoError(t, err)
	require.Equal(t, 32, d.TotalBits)
	require.Len(t, d.Distribution, 50)
	require.Equal(t, report.IdealDiffusionPercentage, d.IdealPercentage)
	require.InDelta(t, 16.0, d.MeanBitsChanged, 2.5)
	require.LessOrEqual(t, d.MinBits, d.MeanBitsChanged)
	require.GreaterOrEqual(t, d.MaxBits, d.MeanBitsChanged)

	c, err := h.Confusion(context.Background(), 8, 50)
	require.NoError(t, err)
	require.Equal(t, 32, c.TotalBits)
	require.Greater(t, c.Percentage, report.TargetConfusionPercentage)
}

func TestDeterministicAcrossWorkers(t *testing.T) {
	ctx := context.Background()
	h1 := newTestHarness(t, 1, nil)
	h8 := newTestHarness(t, 8, nil)

	d1, err := h1.Diffusion(ctx, 4, 40)
	require.NoError(t, err)
	d8, err := h8.Diffusion(ctx, 4, 40)
	require.NoError(t, err)
	require.Equal(t, d1, d8)

	c1, err := h1.Confusion(ctx, 4, 40)
	require.NoError(t, err)
	c8, err := h8.Confusion(ctx, 4, 40)
	require.NoError(t, err)
	require.Equal(t, c1, c8)

	e1, err := h1.KeyEquivalence(ctx, 8, 100)
	require.NoError(t, err)
	e8, err := h8.KeyEquivalence(ctx, 8, 100)
	require.NoError(t, err)
	require.Equal(t, e1, e8)
}

func TestKeyEquivalence(t *testing.T) {
	h := newTestHarness(t, 4, nil)
	res, err := h.KeyEquivalence(context.Background(), 16, 500)
	require.NoError(t, err)
	require.Equal(t, 16, res.SeedSize)
	require.Equal(t, 500, res.SamplesTested)
	require.Equal(t, 500, res.TotalSeedsGenerated)
	require.Zero(t, res.EquivalentPairs)
	require.Zero(t, res.CollisionRate)
	// Repeated 16 bit seeds are possible, and are not equivalent keys.
	require.LessOrEqual(t, res.UniqueCiphertexts, 500)
	require.Greater(t, res.UniqueCiphertexts, 450)
}

func TestCiphertextSet(t *testing.T) {
	set, err := newCiphertextSet(8)
	require.NoError(t, err)

	a, b := spn.NewBits(4), spn.NewBits(4).Flip(0)
	ct := spn.NewBits(16).Flip(3)

	_, dup := set.add(ct, a)
	require.False(t, dup)
	_, dup = set.add(spn.NewBits(16), b)
	require.False(t, dup)

	prev, dup := set.add(ct, b)
	require.True(t, dup)
	require.True(t, prev.Equal(a))
	require.Equal(t, 2, set.len())

	_, err = newCiphertextSet(0)
	require.NoError(t, err)
}

func TestEquivalentKeysCountsPairs(t *testing.T) {
	h := newTestHarness(t, 2, nil)
	seed := spn.NewBits(8).Flip(5)
	msg := spn.NewBits(32)

	// The same seed twice is not a pair.
	pairs, unique, err := h.equivalentKeys(context.Background(), []spn.Bits{seed, seed, seed.Flip(0)}, msg)
	require.NoError(t, err)
	require.Zero(t, pairs)
	require.Equal(t, 2, unique)
}

func TestCancelled(t *testing.T) {
	h := newTestHarness(t, 2, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := h.Correctness(ctx, 8, 100)
	require.ErrorIs(t, err, context.Canceled)
	_, err = h.Performance(ctx, 8, 100)
	require.ErrorIs(t, err, context.Canceled)
	_, err = h.Diffusion(ctx, 8, 100)
	require.ErrorIs(t, err, context.Canceled)
	_, err = h.Run(ctx)
	require.ErrorIs(t, err, context.Canceled)
}

func TestRun(t *testing.T) {
	m := instrument.New()
	h := newTestHarness(t, 4, m)

	r, err := h.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []int{1, 8}, r.Metadata.SeedSizesTested)
	assert.Equal(t, testRNGSeed, r.Metadata.RNGSeed)
	assert.True(t, r.AllCorrect())
	for _, k := range []string{"seed_1", "seed_8"} {
		require.Contains(t, r.Correctness, k)
		require.Contains(t, r.Performance, k)
		require.Contains(t, r.Diffusion, k)
		require.Contains(t, r.Confusion, k)
	}
	require.Equal(t, 200, r.Correctness["seed_8"].TestsPassed)
	require.Equal(t, 4, r.Diffusion["seed_1"].TotalBits)
	require.NotNil(t, r.KeyEquivalence)
	require.Equal(t, 300, r.KeyEquivalence.SamplesTested)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := rec.Body.String()
	require.Contains(t, body, `spn_operations_total{op="gen"} 40`)
	require.Contains(t, body, `spn_trials_total{test="correctness"} 400`)
	require.NotContains(t, body, "spn_trial_failures_total{")

	// Same seed, same statistics.
	again, err := newTestHarness(t, 2, nil).Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, r.Diffusion, again.Diffusion)
	require.Equal(t, r.Confusion, again.Confusion)
	require.Equal(t, r.KeyEquivalence, again.KeyEquivalence)
}

func TestTestbench(t *testing.T) {
	h := newTestHarness(t, 4, nil)
	seed, err := spn.ParseBits("0101101001")
	require.NoError(t, err)

	res, err := h.RunTestbench(context.Background(), seed, TestbenchParams{
		Runs:      200,
		Trials:    300,
		EquivKeys: 300,
	})
	require.NoError(t, err)
	require.Equal(t, 40, res.KeyBits)
	require.Equal(t, 200, res.Timing.Runs)
	require.Greater(t, res.Timing.EncMicros, 0.0)
	require.Equal(t, 300, res.Equiv.Keys)
	require.Equal(t, res.Equiv.Keys-res.Equiv.Collisions, res.Equiv.UniqueCiphertexts)
	require.Equal(t, 300, res.Diffusion.Trials)
	require.InDelta(t, 18.0, res.Diffusion.Mean, 3.0)
	require.GreaterOrEqual(t, res.Diffusion.Min, 1)
	require.LessOrEqual(t, res.Diffusion.Max, 40)
	require.Greater(t, res.Confusion.Mean, 16.0)

	var buf bytes.Buffer
	require.NoError(t, res.WriteText(&buf))
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Contains(t, lines[1], "0101101001")
	require.Len(t, strings.Split(lines[len(lines)-1], "\t"), 4)

	_, err = h.RunTestbench(context.Background(), spn.Bits{}, TestbenchParams{})
	require.ErrorIs(t, err, spn.ErrInvalidInput)
}

func TestRandomSeed(t *testing.T) {
	h := newTestHarness(t, 1, nil)
	s := h.RandomSeed(10)
	require.Equal(t, 10, s.Len())
	require.True(t, s.Equal(h.RandomSeed(10)))
}
