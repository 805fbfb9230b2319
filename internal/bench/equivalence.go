package bench

import (
	"context"
	"fmt"

	"github.com/katzenpost/hpqc/rand"
	"github.com/yawning/bloom"

	"github.com/jedisct1/go-spn"
	"github.com/jedisct1/go-spn/internal/report"
)

const (
	filterFalsePositiveRate = 0.001
	minFilterSize           = 10
)

// ciphertextSet tracks the ciphertexts seen so far and the first seed that
// produced each. The Bloom filter answers the common "never seen" case
// without touching the map.
type ciphertextSet struct {
	filter *bloom.Filter
	seen   map[string]spn.Bits
}

func newCiphertextSet(n int) (*ciphertextSet, error) {
	mLn2 := minFilterSize
	if n > 0 {
		mLn2 = max(bloom.DeriveSize(n, filterFalsePositiveRate), minFilterSize)
	}
	f, err := bloom.New(rand.Reader, mLn2, filterFalsePositiveRate)
	if err != nil {
		return nil, err
	}
	return &ciphertextSet{
		filter: f,
		seen:   make(map[string]spn.Bits, n),
	}, nil
}

// add records ct as produced by seed. It returns the seed that first
// produced ct, if any.
func (s *ciphertextSet) add(ct, seed spn.Bits) (spn.Bits, bool) {
	k := string(ct.Bytes())
	if s.filter.TestAndSet(ct.Bytes()) {
		if prev, ok := s.seen[k]; ok {
			return prev, true
		}
	}
	s.seen[k] = seed
	return spn.Bits{}, false
}

func (s *ciphertextSet) len() int {
	return len(s.seen)
}

// equivalentKeys encrypts msg under the key of every seed and counts the
// seeds whose ciphertext matches the one of an earlier, different seed.
func (h *Harness) equivalentKeys(ctx context.Context, seeds []spn.Bits, msg spn.Bits) (pairs, unique int, err error) {
	cts := make([]spn.Bits, len(seeds))
	err = h.forEach(ctx, len(seeds), func(i int) error {
		key, err := spn.GenerateKey(seeds[i])
		if err != nil {
			return err
		}
		if cts[i], err = spn.Encrypt(key, msg); err != nil {
			return err
		}
		h.metrics.Trial(TestEquivalence)
		return nil
	})
	if err != nil {
		return 0, 0, err
	}

	set, err := newCiphertextSet(len(seeds))
	if err != nil {
		return 0, 0, fmt.Errorf("bench: failed to create filter: %v", err)
	}
	for i, ct := range cts {
		prev, dup := set.add(ct, seeds[i])
		if dup && !prev.Equal(seeds[i]) {
			pairs++
			h.metrics.TrialFailed(TestEquivalence)
			h.log.Warningf("Equivalent keys: seeds %v and %v give the same ciphertext", prev, seeds[i])
		}
	}
	return pairs, set.len(), nil
}

// KeyEquivalence encrypts one random message under the keys of samples
// random seeds and looks for distinct seeds giving the same ciphertext.
func (h *Harness) KeyEquivalence(ctx context.Context, seedSize, samples int) (*report.KeyEquivalence, error) {
	rng := newStream(h.seed, streamEquivalence, trialIndex(seedSize, 0))
	msg := rng.bits(spn.KeyExpansion * seedSize)
	seeds := make([]spn.Bits, samples)
	for i := range seeds {
		seeds[i] = rng.bits(seedSize)
	}

	pairs, unique, err := h.equivalentKeys(ctx, seeds, msg)
	if err != nil {
		return nil, err
	}

	res := &report.KeyEquivalence{
		SeedSize:            seedSize,
		SamplesTested:       samples,
		EquivalentPairs:     pairs,
		TotalSeedsGenerated: samples,
		UniqueCiphertexts:   unique,
	}
	if samples > 0 {
		res.CollisionRate = float64(pairs) / float64(samples) * 100
	}
	return res, nil
}
