package spn

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"
)

// Expand stretches input into outBits pseudo-random bits.
//
// The output is SHA-256(input ∥ ctr) for ctr = 0, 1, 2, ..., each counter
// encoded as a 4-byte big-endian integer, concatenated and truncated to
// outBits. The same input always yields the same output.
func Expand(input []byte, outBits int) (Bits, error) {
	if outBits < 0 {
		return Bits{}, fmt.Errorf("%w: negative output length %d", ErrInvalidInput, outBits)
	}
	out := NewBits(outBits)
	ks := newKeystream(input)
	ks.read(out.b)
	out.clearPadding()
	return out, nil
}

// keystream is a reader over the counter-mode hash stream used by Expand.
type keystream struct {
	prefix []byte // input ∥ 4-byte counter slot
	ctr    uint32
	block  [sha256.Size]byte
	pos    int
}

func newKeystream(input []byte) *keystream {
	prefix := make([]byte, len(input)+4)
	copy(prefix, input)
	return &keystream{prefix: prefix, pos: sha256.Size}
}

func (ks *keystream) refill() {
	binary.BigEndian.PutUint32(ks.prefix[len(ks.prefix)-4:], ks.ctr)
	ks.block = sha256.Sum256(ks.prefix)
	ks.ctr++
	ks.pos = 0
}

func (ks *keystream) read(dst []byte) {
	for len(dst) > 0 {
		if ks.pos == len(ks.block) {
			ks.refill()
		}
		n := copy(dst, ks.block[ks.pos:])
		ks.pos += n
		dst = dst[n:]
	}
}

// next32 returns the next 4 bytes of the stream as a big-endian integer.
func (ks *keystream) next32() uint32 {
	var buf [4]byte
	ks.read(buf[:])
	return binary.BigEndian.Uint32(buf[:])
}
