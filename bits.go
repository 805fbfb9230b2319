package spn

import (
	"fmt"
	"math/bits"
	"strings"
)

// Bits is a fixed-length sequence of bits.
//
// Bits are packed most significant bit first, eight per byte. The unused
// trailing bits of the last byte are always zero, so Bytes matches the
// zero-padded serialization used for hashing. A Bits value is never
// modified in place by the methods below; every operation returns a new value.
type Bits struct {
	n int
	b []byte
}

// NewBits returns an all-zero vector of n bits.
func NewBits(n int) Bits {
	if n < 0 {
		panic("spn: negative bit length")
	}
	return Bits{n: n, b: make([]byte, byteLen(n))}
}

// FromInts builds a vector from a sequence of integers, each of which must be 0 or 1.
func FromInts(v []int) (Bits, error) {
	out := NewBits(len(v))
	for i, x := range v {
		switch x {
		case 0:
		case 1:
			out.b[i>>3] |= 0x80 >> (i & 7)
		default:
			return Bits{}, fmt.Errorf("%w: value %d at position %d is not a bit", ErrInvalidInput, x, i)
		}
	}
	return out, nil
}

// ParseBits parses a string of '0' and '1' characters.
// Spaces and underscores are ignored so that long vectors can be grouped.
func ParseBits(s string) (Bits, error) {
	v := make([]int, 0, len(s))
	for i, c := range s {
		switch c {
		case '0':
			v = append(v, 0)
		case '1':
			v = append(v, 1)
		case ' ', '_':
		default:
			return Bits{}, fmt.Errorf("%w: character %q at offset %d is not a bit", ErrInvalidInput, c, i)
		}
	}
	return FromInts(v)
}

// FromBytes takes the first n bits of b, most significant bit first.
func FromBytes(b []byte, n int) (Bits, error) {
	if n < 0 || byteLen(n) > len(b) {
		return Bits{}, fmt.Errorf("%w: cannot take %d bits from %d bytes", ErrInvalidInput, n, len(b))
	}
	out := NewBits(n)
	copy(out.b, b)
	out.clearPadding()
	return out, nil
}

func byteLen(n int) int {
	return (n + 7) / 8
}

func (v *Bits) clearPadding() {
	if r := v.n & 7; r != 0 {
		v.b[len(v.b)-1] &= byte(0xff << (8 - r))
	}
}

// Len returns the number of bits.
func (v Bits) Len() int {
	return v.n
}

// Bit returns the bit at position i (0 or 1).
func (v Bits) Bit(i int) uint8 {
	if i < 0 || i >= v.n {
		panic(fmt.Sprintf("spn: bit index %d out of range [0,%d)", i, v.n))
	}
	return (v.b[i>>3] >> (7 - i&7)) & 1
}

func (v Bits) setBit(i int, x uint8) {
	mask := byte(0x80) >> (i & 7)
	if x&1 == 1 {
		v.b[i>>3] |= mask
	} else {
		v.b[i>>3] &^= mask
	}
}

// Clone returns an independent copy of v.
func (v Bits) Clone() Bits {
	out := Bits{n: v.n, b: make([]byte, len(v.b))}
	copy(out.b, v.b)
	return out
}

// Flip returns a copy of v with bit i inverted.
func (v Bits) Flip(i int) Bits {
	out := v.Clone()
	out.setBit(i, v.Bit(i)^1)
	return out
}

// Equal reports whether v and w have the same length and the same bits.
func (v Bits) Equal(w Bits) bool {
	if v.n != w.n {
		return false
	}
	for i := range v.b {
		if v.b[i] != w.b[i] {
			return false
		}
	}
	return true
}

// Xor returns v XOR w. Both vectors must have the same length.
func (v Bits) Xor(w Bits) (Bits, error) {
	if v.n != w.n {
		return Bits{}, fmt.Errorf("%w: xor of %d and %d bits", ErrSizeMismatch, v.n, w.n)
	}
	out := NewBits(v.n)
	for i := range out.b {
		out.b[i] = v.b[i] ^ w.b[i]
	}
	return out, nil
}

// HammingDistance returns the number of positions at which v and w differ.
func (v Bits) HammingDistance(w Bits) (int, error) {
	if v.n != w.n {
		return 0, fmt.Errorf("%w: distance between %d and %d bits", ErrSizeMismatch, v.n, w.n)
	}
	d := 0
	for i := range v.b {
		d += bits.OnesCount8(v.b[i] ^ w.b[i])
	}
	return d, nil
}

// Slice returns bits [i, j) of v.
func (v Bits) Slice(i, j int) Bits {
	if i < 0 || j < i || j > v.n {
		panic(fmt.Sprintf("spn: slice bounds [%d:%d] out of range for %d bits", i, j, v.n))
	}
	out := NewBits(j - i)
	for k := i; k < j; k++ {
		out.setBit(k-i, v.Bit(k))
	}
	return out
}

// Concat returns v followed by w.
func (v Bits) Concat(w Bits) Bits {
	out := NewBits(v.n + w.n)
	copy(out.b, v.b)
	if v.n&7 == 0 {
		copy(out.b[len(v.b):], w.b)
		return out
	}
	for k := 0; k < w.n; k++ {
		out.setBit(v.n+k, w.Bit(k))
	}
	return out
}

// Bytes returns the packed representation of v, zero-padded to a whole byte.
func (v Bits) Bytes() []byte {
	out := make([]byte, len(v.b))
	copy(out, v.b)
	return out
}

// Ints returns v as a sequence of 0 and 1 integers.
func (v Bits) Ints() []int {
	out := make([]int, v.n)
	for i := range out {
		out[i] = int(v.Bit(i))
	}
	return out
}

// String renders v as a string of '0' and '1' characters.
func (v Bits) String() string {
	var sb strings.Builder
	sb.Grow(v.n)
	for i := 0; i < v.n; i++ {
		sb.WriteByte('0' + v.Bit(i))
	}
	return sb.String()
}
