// Package spn implements a small, educational substitution-permutation
// network (SPN) cipher over bit vectors of arbitrary length.
//
// The construction is deliberately simple so that its diffusion and
// confusion properties can be observed and measured. It is NOT a secure
// cipher and must not be used to protect real data.
//
// # Operations
//
//   - GenerateKey (GEN): expands a seed of n bits into a key of 4n bits
//   - Encrypt (ENC): encrypts a message as long as the key
//   - Decrypt (DEC): inverts Encrypt
//
// All three are pure functions of their inputs. The same seed always yields
// the same key, and the same key and message always yield the same
// ciphertext.
//
// # Construction
//
// Key expansion and subkey derivation use SHA-256 in counter mode: the input
// is hashed together with a 4-byte big-endian counter starting at 0 and the
// digests are concatenated and truncated. A key K yields one subkey per
// round, Expand(K ∥ r, len(K)).
//
// Each of the 4 rounds computes
//
//	state = P(S(state ⊕ subkey[r]))
//
// where S substitutes every 4-bit group through a fixed bijective S-box and P
// is a fixed bit permutation chosen per block length. Decryption undoes the
// rounds in reverse order:
//
//	state = S⁻¹(P⁻¹(state)) ⊕ subkey[r]
//
// # Basic Usage
//
//	seed, _ := spn.ParseBits("10110101")
//	key, err := spn.GenerateKey(seed) // 32 bits
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	message, _ := spn.ParseBits("10101010101010101010101010101010")
//	ciphertext, err := spn.Encrypt(key, message)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	plaintext, _ := spn.Decrypt(key, ciphertext)
//
// When many blocks are processed under the same key, NewCipher derives the
// subkeys once:
//
//	c, err := spn.NewCipher(key)
//	ciphertext, err := c.Encrypt(message)
//
// # Block Lengths
//
// Messages must be exactly as long as the key, and that length must be a
// multiple of GroupSize (4). Keys produced by GenerateKey always satisfy the
// second requirement. Inputs that do not are rejected with ErrInvalidInput;
// nothing is truncated or padded.
//
// # Thread Safety
//
// The S-box is built at package initialization and P-boxes are built once per
// block length and never modified afterwards. Cipher values are immutable.
// All functions are safe for concurrent use.
package spn
