package spn

import "fmt"

// GroupSize is the width, in bits, of the groups the S-box substitutes.
// Block lengths passed to Encrypt and Decrypt must be a multiple of it.
const GroupSize = 4

// sboxTable is row 0 of the DES S1 box, a bijection on 4-bit values.
var sboxTable = [1 << GroupSize]byte{
	0xE, 0x4, 0xD, 0x1, 0x2, 0xF, 0xB, 0x8,
	0x3, 0xA, 0x6, 0xC, 0x5, 0x9, 0x0, 0x7,
}

var defaultSBox = mustSBox(sboxTable)

// SBox is a bijective substitution on 4-bit values together with its inverse.
type SBox struct {
	fwd [1 << GroupSize]byte
	inv [1 << GroupSize]byte
}

// NewSBox builds an S-box from table, verifying that it is a bijection.
func NewSBox(table [1 << GroupSize]byte) (*SBox, error) {
	s := &SBox{fwd: table}
	var seen [1 << GroupSize]bool
	for i, v := range table {
		if int(v) >= len(table) || seen[v] {
			return nil, fmt.Errorf("%w: S-box value %#x at index %d", ErrConfiguration, v, i)
		}
		seen[v] = true
		s.inv[v] = byte(i)
	}
	return s, nil
}

func mustSBox(table [1 << GroupSize]byte) *SBox {
	s, err := NewSBox(table)
	if err != nil {
		panic(err)
	}
	return s
}

// DefaultSBox returns the S-box used by the cipher.
func DefaultSBox() *SBox {
	return defaultSBox
}

// Substitute maps a 4-bit value through the table.
func (s *SBox) Substitute(x byte) byte {
	return s.fwd[x&0xF]
}

// Unsubstitute maps a 4-bit value through the inverse table.
func (s *SBox) Unsubstitute(x byte) byte {
	return s.inv[x&0xF]
}

// substitute applies the table to every 4-bit group of data.
func (s *SBox) substitute(data Bits) (Bits, error) {
	return applyNibbles(data, &s.fwd)
}

// unsubstitute applies the inverse table to every 4-bit group of data.
func (s *SBox) unsubstitute(data Bits) (Bits, error) {
	return applyNibbles(data, &s.inv)
}

// applyNibbles works on the packed bytes directly: a group is either the
// high or the low half of a byte. When the length is 4 mod 8 the low half of
// the last byte is padding and is left at zero.
func applyNibbles(data Bits, table *[1 << GroupSize]byte) (Bits, error) {
	if data.n%GroupSize != 0 {
		return Bits{}, fmt.Errorf("%w: length %d is not a multiple of %d", ErrInvalidInput, data.n, GroupSize)
	}
	out := NewBits(data.n)
	full := data.n / 8
	for i := 0; i < full; i++ {
		b := data.b[i]
		out.b[i] = table[b>>4]<<4 | table[b&0xF]
	}
	if full < len(data.b) {
		out.b[full] = table[data.b[full]>>4] << 4
	}
	return out, nil
}
