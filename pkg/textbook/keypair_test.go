package textbook

import (
	"context"
	"crypto/rand"
	"io"
	"math/big"
	mrand "math/rand"
	"testing"

	log "github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateKeyMaterialInvariants(t *testing.T) {
	gen := NewKeyPairGenerator(rand.Reader)

	for _, bits := range []int{16, 64, 128} {
		km, err := gen.generate(context.Background(), bits)
		require.NoError(t, err, "bits=%d", bits)

		assert.NotZero(t, km.p1.Cmp(km.p2), "primes must differ")
		assert.Equal(t, new(big.Int).Mul(km.p1, km.p2).String(), km.n.String())

		phi := new(big.Int).Mul(minusOne(km.p1), minusOne(km.p2))
		assert.Equal(t, phi.String(), km.phi.String())

		assert.True(t, km.e.Cmp(one) > 0 && km.e.Cmp(km.phi) < 0, "1 < e < phi")
		assert.True(t, isOne(gcd(km.e, km.phi)), "gcd(e, phi) = 1")

		assert.True(t, km.d.Sign() > 0 && km.d.Cmp(km.phi) < 0, "0 < d < phi")
		ed := new(big.Int).Mul(km.e, km.d)
		assert.True(t, isOne(ed.Mod(ed, km.phi)), "e*d mod phi = 1")

		assert.InDelta(t, 2*bits, km.n.BitLen(), 1, "modulus bit length")
	}
}

func TestGenerateKeyPairRoundTrip(t *testing.T) {
	pub, priv, err := NewKeyPairGenerator(rand.Reader).GenerateKeyPair(context.Background(), 128)
	require.NoError(t, err)
	require.Equal(t, pub.N, priv.N)
	assert.InDelta(t, 256, pub.Size(), 1)

	nMinusOne := minusOne(pub.N)
	messages := []*big.Int{big.NewInt(0), big.NewInt(1), big.NewInt(65), nMinusOne}
	for i := 0; i < 8; i++ {
		m, err := rand.Int(rand.Reader, pub.N)
		require.NoError(t, err)
		messages = append(messages, m)
	}

	for _, m := range messages {
		c, err := Encrypt(pub, m)
		require.NoError(t, err)
		assert.True(t, c.Sign() >= 0 && c.Cmp(pub.N) < 0, "ciphertext in [0, n)")

		got, err := Decrypt(priv, c)
		require.NoError(t, err)
		assert.Equal(t, m.String(), got.String())
	}
}

func TestGenerateKeyPairPackageLevel(t *testing.T) {
	pub, priv, err := GenerateKeyPair(64)
	require.NoError(t, err)

	c, err := Encrypt(pub, big.NewInt(42))
	require.NoError(t, err)
	m, err := Decrypt(priv, c)
	require.NoError(t, err)
	assert.Equal(t, int64(42), m.Int64())
}

func TestGenerateKeyPairEqualPrimesExhaustBudget(t *testing.T) {
	// Every 2-bit probable prime is 3, so the second prime always collides.
	gen := NewKeyPairGenerator(rand.Reader, WithKeyAttempts(4))

	_, _, err := gen.GenerateKeyPair(context.Background(), 2)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrKeyGeneration)
	assert.ErrorIs(t, err, errEqualPrimes)
	assert.Contains(t, err.Error(), "4 attempts")
}

func TestGenerateKeyPairPrimeFailure(t *testing.T) {
	gen := NewKeyPairGenerator(constReader(0),
		WithPrimeGenerator(NewPrimeGenerator(WithMaxAttempts(3))),
	)

	_, _, err := gen.GenerateKeyPair(context.Background(), 8)
	assert.ErrorIs(t, err, ErrKeyGeneration)
	assert.ErrorIs(t, err, ErrPrimeGeneration)
}

func TestGenerateKeyPairInvalidBits(t *testing.T) {
	_, _, err := NewKeyPairGenerator(nil).GenerateKeyPair(context.Background(), 1)
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestGenerateKeyPairCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := NewKeyPairGenerator(rand.Reader).GenerateKeyPair(ctx, 256)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestGenerateKeyPairDeterministicSource(t *testing.T) {
	newSource := func() io.Reader { return mrand.New(mrand.NewSource(42)) }

	pub1, priv1, err := NewKeyPairGenerator(newSource()).GenerateKeyPair(context.Background(), 64)
	require.NoError(t, err)
	pub2, priv2, err := NewKeyPairGenerator(newSource()).GenerateKeyPair(context.Background(), 64)
	require.NoError(t, err)

	assert.Equal(t, pub1.N.String(), pub2.N.String())
	assert.Equal(t, pub1.E.String(), pub2.E.String())
	assert.Equal(t, priv1.D.String(), priv2.D.String())
}

func TestGenerateKeyPairLogsWithoutKeyMaterial(t *testing.T) {
	logger, hook := test.NewNullLogger()
	logger.SetLevel(log.DebugLevel)

	gen := NewKeyPairGenerator(rand.Reader, WithLogger(logger))
	pub, priv, err := gen.GenerateKeyPair(context.Background(), 32)
	require.NoError(t, err)

	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, "generated key pair", entry.Message)
	assert.Equal(t, 32, entry.Data["prime_bits"])
	for _, v := range entry.Data {
		assert.NotEqual(t, priv.D.String(), v)
		assert.NotEqual(t, pub.N.String(), v)
	}
}
