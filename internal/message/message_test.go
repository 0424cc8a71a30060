package message

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/textrsa/pkg/textbook"
)

func TestStringRoundTrip(t *testing.T) {
	m := FromString("hello")
	assert.Equal(t, "68656c6c6f", FormatHex(m))
	assert.Equal(t, "hello", ToString(m))
}

func TestFromBytesIsUnsigned(t *testing.T) {
	m := FromBytes([]byte{0xff, 0x00})
	assert.Equal(t, int64(0xff00), m.Int64())
	assert.Equal(t, 1, m.Sign())
}

func TestParseHex(t *testing.T) {
	tests := []struct {
		in      string
		want    int64
		wantErr bool
	}{
		{"ae6", 2790, false},
		{"0xAE6", 2790, false},
		{"  41 ", 65, false},
		{"", 0, true},
		{"0x", 0, true},
		{"xyz", 0, true},
		{"-41", 0, true},
	}

	for _, tt := range tests {
		v, err := ParseHex(tt.in)
		if tt.wantErr {
			assert.ErrorIs(t, err, textbook.ErrInvalidArgument, "input %q", tt.in)
			continue
		}
		require.NoError(t, err, "input %q", tt.in)
		assert.Equal(t, tt.want, v.Int64())
	}
}

func TestFits(t *testing.T) {
	n := big.NewInt(3233)
	assert.True(t, Fits(big.NewInt(0), n))
	assert.True(t, Fits(big.NewInt(3232), n))
	assert.False(t, Fits(big.NewInt(3233), n))
	assert.False(t, Fits(big.NewInt(-1), n))
}
