package spn

import (
	"encoding/binary"
	"fmt"
)

// DeriveSubkey derives the subkey for the given round.
// It is Expand(key ∥ round, len(key)) with round encoded as a 4-byte
// big-endian integer.
func DeriveSubkey(key Bits, round int) (Bits, error) {
	if round < 0 {
		return Bits{}, fmt.Errorf("%w: negative round index %d", ErrInvalidInput, round)
	}
	input := make([]byte, len(key.b)+4)
	copy(input, key.b)
	binary.BigEndian.PutUint32(input[len(key.b):], uint32(round))
	return Expand(input, key.n)
}

// RoundForward applies one round: the subkey is mixed in with XOR, every
// 4-bit group goes through the S-box and the bits are permuted.
func RoundForward(data, subkey Bits) (Bits, error) {
	pbox, err := roundPBox(data, subkey)
	if err != nil {
		return Bits{}, err
	}
	return roundForward(data, subkey, defaultSBox, pbox)
}

// RoundInverse undoes RoundForward with the same subkey.
func RoundInverse(data, subkey Bits) (Bits, error) {
	pbox, err := roundPBox(data, subkey)
	if err != nil {
		return Bits{}, err
	}
	return roundInverse(data, subkey, defaultSBox, pbox)
}

func roundPBox(data, subkey Bits) (*PBox, error) {
	if data.n != subkey.n {
		return nil, fmt.Errorf("%w: %d-bit data with %d-bit subkey", ErrSizeMismatch, data.n, subkey.n)
	}
	return PBoxFor(data.n)
}

func roundForward(data, subkey Bits, sbox *SBox, pbox *PBox) (Bits, error) {
	mixed, err := data.Xor(subkey)
	if err != nil {
		return Bits{}, err
	}
	substituted, err := sbox.substitute(mixed)
	if err != nil {
		return Bits{}, err
	}
	return pbox.Permute(substituted)
}

// roundInverse undoes the permutation, then the substitution, then the XOR.
func roundInverse(data, subkey Bits, sbox *SBox, pbox *PBox) (Bits, error) {
	unpermuted, err := pbox.Unpermute(data)
	if err != nil {
		return Bits{}, err
	}
	unsubstituted, err := sbox.unsubstitute(unpermuted)
	if err != nil {
		return Bits{}, err
	}
	return unsubstituted.Xor(subkey)
}
