package bench

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/katzenpost/hpqc/rand"
	"golang.org/x/crypto/chacha20"

	"github.com/jedisct1/go-spn"
)

// SeedSize is the size of a run seed in bytes.
const SeedSize = chacha20.KeySize

// Stream identifiers, one per kind of test.
const (
	streamCorrectness uint32 = iota + 1
	streamPerformance
	streamDiffusion
	streamConfusion
	streamEquivalence
	streamTiming
	streamEquivKeys
	streamAvalanche
	streamSeedFlip
	streamTestbenchSeed
)

// NewRunSeed draws a fresh run seed from the system entropy source.
func NewRunSeed() ([]byte, error) {
	seed := make([]byte, SeedSize)
	if _, err := io.ReadFull(rand.Reader, seed); err != nil {
		return nil, err
	}
	return seed, nil
}

// stream is a deterministic random source for a single trial. Every
// (run seed, id, trial) triple yields an independent ChaCha20 keystream,
// so trials can run in any order and still give the same inputs.
type stream struct {
	c *chacha20.Cipher
}

func newStream(runSeed []byte, id uint32, trial uint64) *stream {
	var nonce [chacha20.NonceSize]byte
	binary.BigEndian.PutUint32(nonce[0:4], id)
	binary.BigEndian.PutUint64(nonce[4:12], trial)
	c, err := chacha20.NewUnauthenticatedCipher(runSeed, nonce[:])
	if err != nil {
		panic(fmt.Sprintf("bench: invalid run seed: %v", err))
	}
	return &stream{c: c}
}

// trialIndex packs the seed size and the trial number into a nonce value.
func trialIndex(seedSize, trial int) uint64 {
	return uint64(seedSize)<<32 | uint64(uint32(trial))
}

func (s *stream) Read(p []byte) (int, error) {
	clear(p)
	s.c.XORKeyStream(p, p)
	return len(p), nil
}

func (s *stream) bits(n int) spn.Bits {
	b := make([]byte, (n+7)/8)
	s.Read(b)
	v, err := spn.FromBytes(b, n)
	if err != nil {
		panic(err)
	}
	return v
}

// intn returns a uniform integer in [0, n).
func (s *stream) intn(n int) int {
	if n <= 0 {
		panic("bench: invalid argument to intn")
	}
	var b [8]byte
	limit := ^uint64(0) - ^uint64(0)%uint64(n)
	for {
		s.Read(b[:])
		if v := binary.BigEndian.Uint64(b[:]); v < limit {
			return int(v % uint64(n))
		}
	}
}
