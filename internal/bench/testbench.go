package bench

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/jedisct1/go-spn"
)

// TimingResult is the mean time per ENC and DEC call, in microseconds.
type TimingResult struct {
	EncMicros float64
	DecMicros float64
	Runs      int
}

// EquivResult summarises a fixed message encrypted under many keys.
type EquivResult struct {
	Keys              int
	Collisions        int
	UniqueCiphertexts int
}

// StatResult summarises the number of ciphertext bits changed per trial.
type StatResult struct {
	Mean   float64
	Min    int
	Max    int
	Trials int
}

// TestbenchResult is the quality report for a single seed.
type TestbenchResult struct {
	Seed      spn.Bits
	KeyBits   int
	Timing    TimingResult
	Equiv     EquivResult
	Diffusion StatResult
	Confusion StatResult
}

// TestbenchParams controls RunTestbench.
type TestbenchParams struct {
	Runs      int
	Trials    int
	EquivKeys int
}

// RandomSeed returns a seed of n bits drawn from the run seed.
func (h *Harness) RandomSeed(n int) spn.Bits {
	return newStream(h.seed, streamTestbenchSeed, trialIndex(n, 0)).bits(n)
}

// RunTestbench measures one seed: ENC/DEC timing, equivalent keys among
// random seeds of the same length, and single bit avalanche on the message
// and on the seed.
func (h *Harness) RunTestbench(ctx context.Context, seed spn.Bits, p TestbenchParams) (*TestbenchResult, error) {
	key, err := spn.GenerateKey(seed)
	if err != nil {
		return nil, err
	}
	res := &TestbenchResult{
		Seed:    seed,
		KeyBits: key.Len(),
	}

	h.log.Noticef("Testbench: seed %v, %d bit key", seed, key.Len())
	if res.Timing, err = h.timeTest(ctx, key, p.Runs); err != nil {
		return nil, err
	}
	if res.Equiv, err = h.equivKeysTest(ctx, seed.Len(), p.EquivKeys); err != nil {
		return nil, err
	}
	if res.Diffusion, err = h.messageFlipTest(ctx, key, p.Trials); err != nil {
		return nil, err
	}
	if res.Confusion, err = h.seedFlipTest(ctx, seed, p.Trials); err != nil {
		return nil, err
	}
	return res, nil
}

func (h *Harness) timeTest(ctx context.Context, key spn.Bits, runs int) (TimingResult, error) {
	res := TimingResult{Runs: runs}
	if runs <= 0 {
		return res, nil
	}
	c, err := spn.NewCipher(key)
	if err != nil {
		return res, err
	}

	rng := newStream(h.seed, streamTiming, trialIndex(key.Len(), 0))
	msgs := make([]spn.Bits, runs)
	for i := range msgs {
		msgs[i] = rng.bits(key.Len())
	}
	cts := make([]spn.Bits, runs)

	start := time.Now()
	for i, m := range msgs {
		if cts[i], err = c.Encrypt(m); err != nil {
			return res, err
		}
	}
	encElapsed := time.Since(start)
	if err := ctx.Err(); err != nil {
		return res, err
	}

	start = time.Now()
	for _, ct := range cts {
		if _, err = c.Decrypt(ct); err != nil {
			return res, err
		}
	}
	decElapsed := time.Since(start)

	res.EncMicros = float64(encElapsed) / float64(time.Microsecond) / float64(runs)
	res.DecMicros = float64(decElapsed) / float64(time.Microsecond) / float64(runs)
	return res, nil
}

func (h *Harness) equivKeysTest(ctx context.Context, seedSize, nKeys int) (EquivResult, error) {
	rng := newStream(h.seed, streamEquivKeys, trialIndex(seedSize, 0))
	msg := rng.bits(spn.KeyExpansion * seedSize)
	seeds := make([]spn.Bits, nKeys)
	for i := range seeds {
		seeds[i] = rng.bits(seedSize)
	}

	cts := make([]spn.Bits, nKeys)
	err := h.forEach(ctx, nKeys, func(i int) error {
		key, err := spn.GenerateKey(seeds[i])
		if err != nil {
			return err
		}
		cts[i], err = spn.Encrypt(key, msg)
		return err
	})
	if err != nil {
		return EquivResult{}, err
	}

	// Every ciphertext beyond the first of its kind counts, whatever the seed.
	counts := make(map[string]int, nKeys)
	for _, ct := range cts {
		counts[string(ct.Bytes())]++
	}
	res := EquivResult{Keys: nKeys, UniqueCiphertexts: len(counts)}
	for _, n := range counts {
		res.Collisions += n - 1
	}
	return res, nil
}

func (h *Harness) messageFlipTest(ctx context.Context, key spn.Bits, trials int) (StatResult, error) {
	c, err := spn.NewCipher(key)
	if err != nil {
		return StatResult{}, err
	}
	changes := make([]int, trials)
	err = h.forEach(ctx, trials, func(i int) error {
		rng := newStream(h.seed, streamAvalanche, trialIndex(key.Len(), i))
		m0 := rng.bits(key.Len())
		c0, err := c.Encrypt(m0)
		if err != nil {
			return err
		}
		c1, err := c.Encrypt(m0.Flip(rng.intn(key.Len())))
		if err != nil {
			return err
		}
		changes[i], err = c0.HammingDistance(c1)
		return err
	})
	if err != nil {
		return StatResult{}, err
	}
	return intStats(changes), nil
}

func (h *Harness) seedFlipTest(ctx context.Context, seed spn.Bits, trials int) (StatResult, error) {
	key, err := spn.GenerateKey(seed)
	if err != nil {
		return StatResult{}, err
	}
	msg := newStream(h.seed, streamSeedFlip, trialIndex(seed.Len(), 0)).bits(key.Len())
	c0, err := spn.Encrypt(key, msg)
	if err != nil {
		return StatResult{}, err
	}

	changes := make([]int, trials)
	err = h.forEach(ctx, trials, func(i int) error {
		rng := newStream(h.seed, streamSeedFlip, trialIndex(seed.Len(), i+1))
		key1, err := spn.GenerateKey(seed.Flip(rng.intn(seed.Len())))
		if err != nil {
			return err
		}
		c1, err := spn.Encrypt(key1, msg)
		if err != nil {
			return err
		}
		changes[i], err = c0.HammingDistance(c1)
		return err
	})
	if err != nil {
		return StatResult{}, err
	}
	return intStats(changes), nil
}

func intStats(v []int) StatResult {
	res := StatResult{Trials: len(v)}
	if len(v) == 0 {
		return res
	}
	res.Min, res.Max = v[0], v[0]
	var sum int
	for _, x := range v {
		sum += x
		res.Min = min(res.Min, x)
		res.Max = max(res.Max, x)
	}
	res.Mean = float64(sum) / float64(len(v))
	return res
}

// WriteText writes the testbench report to w. The last line holds the
// tab separated summary: ENC+DEC microseconds, collisions, mean diffusion
// and mean confusion.
func (r *TestbenchResult) WriteText(w io.Writer) error {
	_, err := fmt.Fprintf(w, `=== Parameters ===
Seed..............: %v
|K| (bits)........: %d

1) Time (µs per call)  runs=%d
   ENC: %.3f   DEC: %.3f

2) Equivalent keys (fixed M)
   Keys tested...........: %d
   Unique ciphertexts....: %d
   Collisions observed...: %d

3) Diffusion (flip 1 bit of M)
   Mean/min/max bits in C: %.2f/%d/%d  trials=%d

4) Confusion (flip 1 bit of the seed)
   Mean/min/max bits in C: %.2f/%d/%d  trials=%d

%.3f	%d	%.2f	%.2f
`,
		r.Seed, r.KeyBits,
		r.Timing.Runs, r.Timing.EncMicros, r.Timing.DecMicros,
		r.Equiv.Keys, r.Equiv.UniqueCiphertexts, r.Equiv.Collisions,
		r.Diffusion.Mean, r.Diffusion.Min, r.Diffusion.Max, r.Diffusion.Trials,
		r.Confusion.Mean, r.Confusion.Min, r.Confusion.Max, r.Confusion.Trials,
		r.Timing.EncMicros+r.Timing.DecMicros, r.Equiv.Collisions, r.Diffusion.Mean, r.Confusion.Mean,
	)
	return err
}
