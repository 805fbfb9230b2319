// Package spn provides a small substitution-permutation cipher for teaching.
package spn

import (
	"fmt"
)

const (
	// Rounds is the number of rounds applied by Encrypt and Decrypt.
	Rounds = 4

	// KeyExpansion is the ratio between key length and seed length.
	KeyExpansion = 4
)

// Cipher holds a validated key and its precomputed round subkeys.
// It has no mutable state and is safe for concurrent use.
type Cipher struct {
	key     Bits
	subkeys [Rounds]Bits
	pbox    *PBox
}

// GenerateKey deterministically expands a seed into a key of
// KeyExpansion*seed.Len() bits.
func GenerateKey(seed Bits) (Bits, error) {
	if seed.Len() == 0 {
		return Bits{}, fmt.Errorf("%w: empty seed", ErrInvalidInput)
	}
	return Expand(seed.Bytes(), KeyExpansion*seed.Len())
}

// NewCipher validates key and derives its round subkeys.
// The key length must be a positive multiple of GroupSize, no larger than MaxDataBits.
func NewCipher(key Bits) (*Cipher, error) {
	if key.Len() == 0 {
		return nil, fmt.Errorf("%w: empty key", ErrInvalidInput)
	}
	if key.Len()%GroupSize != 0 {
		return nil, fmt.Errorf("%w: key length %d is not a multiple of %d", ErrInvalidInput, key.Len(), GroupSize)
	}
	if key.Len() > MaxDataBits {
		return nil, ErrDataTooLarge
	}

	pbox, err := PBoxFor(key.Len())
	if err != nil {
		return nil, err
	}

	c := &Cipher{
		key:  key.Clone(),
		pbox: pbox,
	}
	for r := range c.subkeys {
		if c.subkeys[r], err = DeriveSubkey(key, r); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Encrypt encrypts message under key. Both must have the same length,
// a positive multiple of GroupSize.
func Encrypt(key, message Bits) (Bits, error) {
	if err := checkSizes(key, message); err != nil {
		return Bits{}, err
	}
	c, err := NewCipher(key)
	if err != nil {
		return Bits{}, err
	}
	return c.Encrypt(message)
}

// Decrypt decrypts ciphertext under key, undoing Encrypt.
func Decrypt(key, ciphertext Bits) (Bits, error) {
	if err := checkSizes(key, ciphertext); err != nil {
		return Bits{}, err
	}
	c, err := NewCipher(key)
	if err != nil {
		return Bits{}, err
	}
	return c.Decrypt(ciphertext)
}

func checkSizes(key, data Bits) error {
	if key.Len() == 0 {
		return fmt.Errorf("%w: empty key", ErrInvalidInput)
	}
	if key.Len() != data.Len() {
		return fmt.Errorf("%w: key has %d bits, data has %d", ErrSizeMismatch, key.Len(), data.Len())
	}
	return nil
}

// BlockSize returns the block length in bits, which is the key length.
func (c *Cipher) BlockSize() int {
	return c.key.Len()
}

// Subkey returns the subkey for round r.
func (c *Cipher) Subkey(r int) Bits {
	return c.subkeys[r].Clone()
}

// Encrypt applies the rounds 0..Rounds-1 to message.
func (c *Cipher) Encrypt(message Bits) (Bits, error) {
	if c == nil {
		return Bits{}, fmt.Errorf("%w: nil cipher", ErrInvalidInput)
	}
	if err := checkSizes(c.key, message); err != nil {
		return Bits{}, err
	}

	state := message
	for r := 0; r < Rounds; r++ {
		var err error
		if state, err = roundForward(state, c.subkeys[r], defaultSBox, c.pbox); err != nil {
			return Bits{}, err
		}
	}
	return state, nil
}

// Decrypt applies the inverse rounds in reverse order to ciphertext.
func (c *Cipher) Decrypt(ciphertext Bits) (Bits, error) {
	if c == nil {
		return Bits{}, fmt.Errorf("%w: nil cipher", ErrInvalidInput)
	}
	if err := checkSizes(c.key, ciphertext); err != nil {
		return Bits{}, err
	}

	state := ciphertext
	for r := Rounds - 1; r >= 0; r-- {
		var err error
		if state, err = roundInverse(state, c.subkeys[r], defaultSBox, c.pbox); err != nil {
			return Bits{}, err
		}
	}
	return state, nil
}
