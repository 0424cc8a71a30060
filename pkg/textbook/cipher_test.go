package textbook

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	vectorPublic  = &PublicKey{E: big.NewInt(17), N: big.NewInt(3233)}
	vectorPrivate = &PrivateKey{D: big.NewInt(2753), N: big.NewInt(3233)}
)

func TestTextbookVector(t *testing.T) {
	p1, p2 := big.NewInt(61), big.NewInt(53)
	n := new(big.Int).Mul(p1, p2)
	phi := new(big.Int).Mul(minusOne(p1), minusOne(p2))
	require.Equal(t, int64(3233), n.Int64())
	require.Equal(t, int64(3120), phi.Int64())

	d, err := ModInverse(big.NewInt(17), phi)
	require.NoError(t, err)
	require.Equal(t, int64(2753), d.Int64())

	c, err := Encrypt(vectorPublic, big.NewInt(65))
	require.NoError(t, err)
	assert.Equal(t, int64(2790), c.Int64())

	m, err := Decrypt(vectorPrivate, big.NewInt(2790))
	require.NoError(t, err)
	assert.Equal(t, int64(65), m.Int64())
}

func TestCipherBoundaries(t *testing.T) {
	c, err := Encrypt(vectorPublic, big.NewInt(0))
	require.NoError(t, err)
	assert.Zero(t, c.Sign())

	m, err := Decrypt(vectorPrivate, big.NewInt(0))
	require.NoError(t, err)
	assert.Zero(t, m.Sign())

	last := big.NewInt(3232)
	c, err = Encrypt(vectorPublic, last)
	require.NoError(t, err)
	m, err = Decrypt(vectorPrivate, c)
	require.NoError(t, err)
	assert.Equal(t, last.Int64(), m.Int64())
}

func TestCipherInvalidArguments(t *testing.T) {
	tests := []struct {
		name string
		pub  *PublicKey
		m    *big.Int
	}{
		{"nil key", nil, big.NewInt(1)},
		{"nil message", vectorPublic, nil},
		{"negative message", vectorPublic, big.NewInt(-1)},
		{"modulus one", &PublicKey{E: big.NewInt(3), N: big.NewInt(1)}, big.NewInt(0)},
		{"zero modulus", &PublicKey{E: big.NewInt(3), N: big.NewInt(0)}, big.NewInt(0)},
		{"negative exponent", &PublicKey{E: big.NewInt(-3), N: big.NewInt(3233)}, big.NewInt(2)},
		{"nil exponent", &PublicKey{N: big.NewInt(3233)}, big.NewInt(2)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Encrypt(tt.pub, tt.m)
			assert.ErrorIs(t, err, ErrInvalidArgument)
		})
	}

	_, err := Decrypt(nil, big.NewInt(1))
	assert.ErrorIs(t, err, ErrInvalidArgument)
	_, err = Decrypt(vectorPrivate, big.NewInt(-7))
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestCipherMessageRange(t *testing.T) {
	tooLarge := big.NewInt(3233 + 65)

	// Unchecked: silently behaves like 65.
	c, err := Encrypt(vectorPublic, tooLarge)
	require.NoError(t, err)
	assert.Equal(t, int64(2790), c.Int64())
	m, err := Decrypt(vectorPrivate, c)
	require.NoError(t, err)
	assert.NotEqual(t, tooLarge.Int64(), m.Int64())

	strict := CipherEngine{CheckRange: true}
	_, err = strict.Encrypt(vectorPublic, tooLarge)
	assert.ErrorIs(t, err, ErrMessageRange)
	_, err = strict.Encrypt(vectorPublic, big.NewInt(3233))
	assert.ErrorIs(t, err, ErrMessageRange)
	_, err = strict.Decrypt(vectorPrivate, big.NewInt(4000))
	assert.ErrorIs(t, err, ErrMessageRange)

	c, err = strict.Encrypt(vectorPublic, big.NewInt(65))
	require.NoError(t, err)
	assert.Equal(t, int64(2790), c.Int64())
}
