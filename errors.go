package spn

import "errors"

var (
	// ErrInvalidInput is returned when a bit sequence holds a value outside {0,1},
	// when a sequence that must be non-empty is empty, or when a block length is
	// not a multiple of GroupSize.
	ErrInvalidInput = errors.New("spn: invalid input")

	// ErrSizeMismatch is returned when the key and the message or ciphertext
	// passed to Encrypt or Decrypt have different lengths.
	ErrSizeMismatch = errors.New("spn: key and data sizes differ")

	// ErrConfiguration is returned when an S-box or P-box table is not a bijection.
	// The built-in tables never trigger it.
	ErrConfiguration = errors.New("spn: table is not a bijection")

	// ErrDataTooLarge is returned when the input data exceeds MaxDataBits.
	ErrDataTooLarge = errors.New("spn: input data exceeds maximum supported size")
)

// MaxDataBits is the maximum supported block length, in bits, for
// encryption and decryption.
const MaxDataBits = 1 << 20
