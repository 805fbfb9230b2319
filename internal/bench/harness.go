// Package bench implements the statistical harness that measures the
// correctness, speed, diffusion, confusion and key equivalence of the
// cipher.
package bench

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"
	"gopkg.in/op/go-logging.v1"

	"github.com/jedisct1/go-spn"
	"github.com/jedisct1/go-spn/internal/config"
	"github.com/jedisct1/go-spn/internal/instrument"
	"github.com/jedisct1/go-spn/internal/log"
	"github.com/jedisct1/go-spn/internal/report"
)

// Test names, used as metric labels.
const (
	TestCorrectness = "correctness"
	TestPerformance = "performance"
	TestDiffusion   = "diffusion"
	TestConfusion   = "confusion"
	TestEquivalence = "key_equivalence"
)

// Harness runs the statistical tests. It is safe to run several tests
// concurrently on one Harness.
type Harness struct {
	cfg     *config.Bench
	log     *logging.Logger
	metrics *instrument.Metrics
	seed    []byte
	workers int
}

// New creates a Harness. The run seed is taken from cfg.RNGSeed, or drawn
// fresh when none is configured. metrics may be nil.
func New(cfg *config.Bench, logBackend *log.Backend, metrics *instrument.Metrics) (*Harness, error) {
	if cfg == nil {
		return nil, errors.New("bench: no configuration")
	}
	seed, err := cfg.Seed()
	if err != nil {
		return nil, err
	}
	if seed == nil {
		if seed, err = NewRunSeed(); err != nil {
			return nil, fmt.Errorf("bench: failed to draw run seed: %v", err)
		}
	}

	h := &Harness{
		cfg:     cfg,
		log:     logBackend.GetLogger("bench"),
		metrics: metrics,
		seed:    seed,
		workers: cfg.Workers,
	}
	if h.workers <= 0 {
		h.workers = runtime.NumCPU()
	}
	return h, nil
}

// Seed returns the hex encoded run seed. Passing it back through
// config.Bench.RNGSeed reproduces the run.
func (h *Harness) Seed() string {
	return hex.EncodeToString(h.seed)
}

// forEach calls fn for 0 <= i < n with at most h.workers calls in flight,
// stopping early on the first error or when ctx is done.
func (h *Harness) forEach(ctx context.Context, n int, fn func(i int) error) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(h.workers)
	for i := 0; i < n; i++ {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			return fn(i)
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}

// Run executes every test for every configured seed size.
func (h *Harness) Run(ctx context.Context) (*report.Report, error) {
	r := report.New(report.Metadata{
		Timestamp:       time.Now().UTC().Format(time.RFC3339),
		GoVersion:       runtime.Version(),
		SeedSizesTested: append([]int(nil), h.cfg.SeedSizes...),
		RNGSeed:         h.Seed(),
		Workers:         h.workers,
	})

	h.log.Noticef("Starting run: seed sizes %v, %d workers", h.cfg.SeedSizes, h.workers)
	for _, n := range h.cfg.SeedSizes {
		k := report.SeedKey(n)
		h.log.Infof("Seed size %d bits (key size %d bits)", n, spn.KeyExpansion*n)

		var err error
		if r.Correctness[k], err = h.Correctness(ctx, n, h.cfg.CorrectnessTrials); err != nil {
			return nil, err
		}
		h.log.Infof("[%d] correctness: %.2f%%", n, r.Correctness[k].SuccessRate)

		if r.Performance[k], err = h.Performance(ctx, n, h.cfg.PerformanceTrials); err != nil {
			return nil, err
		}
		p := r.Performance[k]
		h.log.Infof("[%d] performance: GEN %.4f ms, ENC %.4f ms, DEC %.4f ms", n, p.GenTimeMs, p.EncTimeMs, p.DecTimeMs)

		if r.Diffusion[k], err = h.Diffusion(ctx, n, h.cfg.DiffusionTrials); err != nil {
			return nil, err
		}
		d := r.Diffusion[k]
		h.log.Infof("[%d] diffusion: %.2f / %d bits (%.2f%%)", n, d.MeanBitsChanged, d.TotalBits, d.Percentage)

		if r.Confusion[k], err = h.Confusion(ctx, n, h.cfg.ConfusionTrials); err != nil {
			return nil, err
		}
		c := r.Confusion[k]
		h.log.Infof("[%d] confusion: %.2f / %d bits (%.2f%%)", n, c.MeanBitsChanged, c.TotalBits, c.Percentage)
	}

	h.log.Noticef("Key equivalence: %d seeds of %d bits", h.cfg.EquivalenceSamples, h.cfg.EquivalenceSeedSize)
	eq, err := h.KeyEquivalence(ctx, h.cfg.EquivalenceSeedSize, h.cfg.EquivalenceSamples)
	if err != nil {
		return nil, err
	}
	r.KeyEquivalence = eq
	h.log.Noticef("Key equivalence: %d equivalent pairs (%.4f%%)", eq.EquivalentPairs, eq.CollisionRate)

	if !r.AllCorrect() {
		h.log.Warningf("Round trip failures detected")
	}
	h.log.Noticef("Run complete")
	return r, nil
}

// Correctness checks DEC(K, ENC(K, M)) = M on random seeds and messages.
func (h *Harness) Correctness(ctx context.Context, seedSize, trials int) (*report.Correctness, error) {
	ok := make([]bool, trials)
	err := h.forEach(ctx, trials, func(i int) error {
		rng := newStream(h.seed, streamCorrectness, trialIndex(seedSize, i))
		key, err := spn.GenerateKey(rng.bits(seedSize))
		if err != nil {
			return err
		}
		msg := rng.bits(key.Len())
		ct, err := spn.Encrypt(key, msg)
		if err != nil {
			return err
		}
		pt, err := spn.Decrypt(key, ct)
		if err != nil {
			return err
		}

		ok[i] = pt.Equal(msg)
		h.metrics.Trial(TestCorrectness)
		if !ok[i] {
			h.metrics.TrialFailed(TestCorrectness)
			h.log.Warningf("Round trip failed: seed size %d, trial %d", seedSize, i)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	res := new(report.Correctness)
	for _, v := range ok {
		if v {
			res.TestsPassed++
		} else {
			res.TestsFailed++
		}
	}
	if trials > 0 {
		res.SuccessRate = float64(res.TestsPassed) / float64(trials) * 100
	}
	return res, nil
}

// Performance times GEN, ENC and DEC. Calls are made one at a time so that
// they do not compete for the CPU.
func (h *Harness) Performance(ctx context.Context, seedSize, trials int) (*report.Performance, error) {
	gen := make([]float64, 0, trials)
	enc := make([]float64, 0, trials)
	dec := make([]float64, 0, trials)

	rng := newStream(h.seed, streamPerformance, trialIndex(seedSize, 0))
	for i := 0; i < trials; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		seed := rng.bits(seedSize)
		msg := rng.bits(spn.KeyExpansion * seedSize)

		start := time.Now()
		key, err := spn.GenerateKey(seed)
		elapsed := time.Since(start)
		if err != nil {
			return nil, err
		}
		h.metrics.Observe(instrument.OpGen, elapsed)
		gen = append(gen, millis(elapsed))

		start = time.Now()
		ct, err := spn.Encrypt(key, msg)
		elapsed = time.Since(start)
		if err != nil {
			return nil, err
		}
		h.metrics.Observe(instrument.OpEnc, elapsed)
		enc = append(enc, millis(elapsed))

		start = time.Now()
		_, err = spn.Decrypt(key, ct)
		elapsed = time.Since(start)
		if err != nil {
			return nil, err
		}
		h.metrics.Observe(instrument.OpDec, elapsed)
		dec = append(dec, millis(elapsed))

		h.metrics.Trial(TestPerformance)
	}

	p := &report.Performance{
		GenTimeMs: mean(gen),
		EncTimeMs: mean(enc),
		DecTimeMs: mean(dec),
		GenStd:    stdDev(gen),
		EncStd:    stdDev(enc),
		DecStd:    stdDev(dec),
	}
	p.GenMin, p.GenMax = minMax(gen)
	p.EncMin, p.EncMax = minMax(enc)
	p.DecMin, p.DecMax = minMax(dec)
	p.TotalTimeMs = p.GenTimeMs + p.EncTimeMs + p.DecTimeMs
	return p, nil
}

// Diffusion flips every bit of random messages in turn and measures how
// many ciphertext bits change.
func (h *Harness) Diffusion(ctx context.Context, seedSize, trials int) (*report.Avalanche, error) {
	perTrial := make([]float64, trials)
	err := h.forEach(ctx, trials, func(i int) error {
		rng := newStream(h.seed, streamDiffusion, trialIndex(seedSize, i))
		key, err := spn.GenerateKey(rng.bits(seedSize))
		if err != nil {
			return err
		}
		c, err := spn.NewCipher(key)
		if err != nil {
			return err
		}
		msg := rng.bits(key.Len())
		ct0, err := c.Encrypt(msg)
		if err != nil {
			return err
		}

		var total int
		for pos := 0; pos < msg.Len(); pos++ {
			ct1, err := c.Encrypt(msg.Flip(pos))
			if err != nil {
				return err
			}
			d, err := ct0.HammingDistance(ct1)
			if err != nil {
				return err
			}
			total += d
		}
		perTrial[i] = float64(total) / float64(msg.Len())
		h.metrics.Trial(TestDiffusion)
		return nil
	})
	if err != nil {
		return nil, err
	}

	a := avalanche(perTrial, spn.KeyExpansion*seedSize)
	a.IdealPercentage = report.IdealDiffusionPercentage
	return a, nil
}

// Confusion flips every bit of random seeds in turn and measures how many
// ciphertext bits of a fixed message change.
func (h *Harness) Confusion(ctx context.Context, seedSize, trials int) (*report.Avalanche, error) {
	perTrial := make([]float64, trials)
	err := h.forEach(ctx, trials, func(i int) error {
		rng := newStream(h.seed, streamConfusion, trialIndex(seedSize, i))
		seed := rng.bits(seedSize)
		msg := rng.bits(spn.KeyExpansion * seedSize)

		key, err := spn.GenerateKey(seed)
		if err != nil {
			return err
		}
		ct0, err := spn.Encrypt(key, msg)
		if err != nil {
			return err
		}

		var total int
		for pos := 0; pos < seedSize; pos++ {
			key1, err := spn.GenerateKey(seed.Flip(pos))
			if err != nil {
				return err
			}
			ct1, err := spn.Encrypt(key1, msg)
			if err != nil {
				return err
			}
			d, err := ct0.HammingDistance(ct1)
			if err != nil {
				return err
			}
			total += d
		}
		perTrial[i] = float64(total) / float64(seedSize)
		h.metrics.Trial(TestConfusion)
		return nil
	})
	if err != nil {
		return nil, err
	}

	a := avalanche(perTrial, spn.KeyExpansion*seedSize)
	a.TargetPercentage = report.TargetConfusionPercentage
	return a, nil
}

func avalanche(perTrial []float64, totalBits int) *report.Avalanche {
	a := &report.Avalanche{
		MeanBitsChanged: mean(perTrial),
		StdDev:          stdDev(perTrial),
		Distribution:    perTrial,
		TotalBits:       totalBits,
	}
	a.MinBits, a.MaxBits = minMax(perTrial)
	if totalBits > 0 {
		a.Percentage = a.MeanBitsChanged / float64(totalBits) * 100
	}
	return a
}
