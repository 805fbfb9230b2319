package spn

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSBoxBijective(t *testing.T) {
	s := DefaultSBox()
	seen := make(map[byte]bool)
	for x := byte(0); x < 16; x++ {
		y := s.Substitute(x)
		require.Less(t, y, byte(16))
		require.False(t, seen[y], "value %#x produced twice", y)
		seen[y] = true

		require.Equal(t, x, s.Unsubstitute(y))
		require.Equal(t, x, s.Substitute(s.Unsubstitute(x)))
	}
}

func TestSBoxInverseTable(t *testing.T) {
	// Inverse of the table, as published alongside it.
	want := [16]byte{0xE, 0x3, 0x4, 0x8, 0x1, 0xC, 0xA, 0xF, 0x7, 0xD, 0x9, 0x6, 0xB, 0x2, 0x0, 0x5}
	require.Equal(t, want, DefaultSBox().inv)
}

func TestNewSBoxRejectsNonBijection(t *testing.T) {
	table := sboxTable
	table[3] = table[4]
	_, err := NewSBox(table)
	require.ErrorIs(t, err, ErrConfiguration)

	table = sboxTable
	table[0] = 0x10
	_, err = NewSBox(table)
	require.ErrorIs(t, err, ErrConfiguration)

	require.Panics(t, func() {
		bad := sboxTable
		bad[15] = bad[0]
		mustSBox(bad)
	})
}

func TestSubstituteStream(t *testing.T) {
	s := DefaultSBox()

	// 0x0 -> 0xE, 0xF -> 0x7, 0xA -> 0x6
	out, err := s.substitute(mustParse(t, "0000 1111 1010"))
	require.NoError(t, err)
	require.Equal(t, "111001110110", out.String())
	require.Equal(t, []byte{0xe7, 0x60}, out.Bytes(), "padding must stay zero")

	back, err := s.unsubstitute(out)
	require.NoError(t, err)
	require.Equal(t, "000011111010", back.String())

	_, err = s.substitute(mustParse(t, "101"))
	require.ErrorIs(t, err, ErrInvalidInput)
	_, err = s.unsubstitute(mustParse(t, "101010"))
	require.ErrorIs(t, err, ErrInvalidInput)
}

func TestSubstituteStreamAllValues(t *testing.T) {
	s := DefaultSBox()
	for n := 4; n <= 64; n += 4 {
		data := NewBits(n)
		for i := 0; i < n; i++ {
			if (i*7+n)%3 == 0 {
				data.setBit(i, 1)
			}
		}
		out, err := s.substitute(data)
		require.NoError(t, err)
		back, err := s.unsubstitute(out)
		require.NoError(t, err)
		require.True(t, back.Equal(data), "length %d", n)
	}
}
