package spn

import (
	"encoding/binary"
	"fmt"
	"sync"
)

// pboxLabel is the domain separator for the keystream that orders nibbles.
const pboxLabel = "spn/pbox"

var (
	pboxCache   = make(map[int]*PBox)
	pboxCacheMu sync.RWMutex
)

// PBox is a bijective permutation of bit positions together with its inverse.
// Permute moves bit i to position Perm()[i].
type PBox struct {
	perm []int
	inv  []int
}

// NewPBox builds a P-box from perm, verifying that it is a bijection on
// {0, ..., len(perm)-1}.
func NewPBox(perm []int) (*PBox, error) {
	p := &PBox{
		perm: make([]int, len(perm)),
		inv:  make([]int, len(perm)),
	}
	for i := range p.inv {
		p.inv[i] = -1
	}
	for i, t := range perm {
		if t < 0 || t >= len(perm) || p.inv[t] != -1 {
			return nil, fmt.Errorf("%w: P-box maps %d to %d", ErrConfiguration, i, t)
		}
		p.perm[i] = t
		p.inv[t] = i
	}
	return p, nil
}

// PBoxFor returns the P-box used for blocks of l bits.
// l must be a positive multiple of GroupSize. The result is built once per
// length and shared; it must not be modified.
func PBoxFor(l int) (*PBox, error) {
	if l <= 0 || l%GroupSize != 0 {
		return nil, fmt.Errorf("%w: block length %d is not a positive multiple of %d", ErrInvalidInput, l, GroupSize)
	}

	pboxCacheMu.RLock()
	p, ok := pboxCache[l]
	pboxCacheMu.RUnlock()
	if ok {
		return p, nil
	}

	p, err := NewPBox(generatePermutation(l))
	if err != nil {
		panic("failed to build P-box: " + err.Error())
	}

	pboxCacheMu.Lock()
	if cached, ok := pboxCache[l]; ok {
		p = cached
	} else {
		pboxCache[l] = p
	}
	pboxCacheMu.Unlock()
	return p, nil
}

// generatePermutation derives the fixed permutation for l-bit blocks.
//
// Bits are first transposed across the (l/4)x4 nibble grid so that the four
// outputs of one S-box land in four different nibbles, then the nibble order
// is shuffled with a keystream bound to l.
func generatePermutation(l int) []int {
	groups := l / GroupSize

	var label [len(pboxLabel) + 4]byte
	copy(label[:], pboxLabel)
	binary.BigEndian.PutUint32(label[len(pboxLabel):], uint32(l))
	ks := newKeystream(label[:])

	order := make([]int, groups)
	for i := range order {
		order[i] = i
	}
	// Fisher-Yates shuffle using Lemire's method for unbiased selection
	for i := groups - 1; i > 0; i-- {
		j := lemireRandomIndex(ks.next32, i+1)
		order[i], order[j] = order[j], order[i]
	}

	perm := make([]int, l)
	identity := true
	for i := range perm {
		t := (i%GroupSize)*groups + i/GroupSize
		perm[i] = order[t/GroupSize]*GroupSize + t%GroupSize
		identity = identity && perm[i] == i
	}

	// Only a single-nibble block can come out as the identity.
	if identity && l > 1 {
		for i := range perm {
			perm[i] = (i + 1) % l
		}
	}
	return perm
}

// lemireRandomIndex returns an unbiased random index in [0, max) using Lemire's method
func lemireRandomIndex(rng func() uint32, max int) int {
	n := uint32(max)
	prod := uint64(rng()) * uint64(n)
	if low := uint32(prod); low < n {
		threshold := -n % n
		for low < threshold {
			prod = uint64(rng()) * uint64(n)
			low = uint32(prod)
		}
	}
	return int(prod >> 32)
}

// Len returns the block length the P-box operates on.
func (p *PBox) Len() int {
	return len(p.perm)
}

// Perm returns a copy of the forward permutation.
func (p *PBox) Perm() []int {
	return append([]int(nil), p.perm...)
}

// Inverse returns a copy of the inverse permutation.
func (p *PBox) Inverse() []int {
	return append([]int(nil), p.inv...)
}

// Permute moves bit i of data to position Perm()[i].
func (p *PBox) Permute(data Bits) (Bits, error) {
	return p.apply(data, p.perm)
}

// Unpermute undoes Permute.
func (p *PBox) Unpermute(data Bits) (Bits, error) {
	return p.apply(data, p.inv)
}

func (p *PBox) apply(data Bits, dst []int) (Bits, error) {
	if data.n != len(dst) {
		return Bits{}, fmt.Errorf("%w: %d-bit P-box applied to %d bits", ErrSizeMismatch, len(dst), data.n)
	}
	out := NewBits(data.n)
	for i, t := range dst {
		if data.Bit(i) == 1 {
			out.setBit(t, 1)
		}
	}
	return out, nil
}
