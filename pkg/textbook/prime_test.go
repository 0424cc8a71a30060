package textbook

import (
	"context"
	"crypto/rand"
	"errors"
	"math/big"
	mrand "math/rand"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// constReader fills every buffer with the same byte.
type constReader byte

func (c constReader) Read(p []byte) (int, error) {
	for i := range p {
		p[i] = byte(c)
	}
	return len(p), nil
}

type failingReader struct{ err error }

func (f failingReader) Read(p []byte) (int, error) {
	return 0, f.err
}

func TestGenerateProbablePrime(t *testing.T) {
	gen := NewPrimeGenerator()

	for _, bits := range []int{2, 3, 8, 17, 64, 256} {
		p, err := gen.GenerateProbablePrime(context.Background(), rand.Reader, bits)
		require.NoError(t, err, "bits=%d", bits)
		assert.Equal(t, bits, p.BitLen(), "bit length")
		assert.True(t, p.ProbablyPrime(20), "%s is not prime", p)
		if bits > 2 {
			assert.Equal(t, uint(1), p.Bit(0), "prime should be odd")
		}
	}
}

func TestGenerateProbablePrimeInvalidArguments(t *testing.T) {
	gen := NewPrimeGenerator()

	_, err := gen.GenerateProbablePrime(context.Background(), rand.Reader, 1)
	assert.ErrorIs(t, err, ErrInvalidArgument)

	_, err = gen.GenerateProbablePrime(context.Background(), nil, 64)
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestGenerateProbablePrimeExhaustsBudget(t *testing.T) {
	var observed atomic.Int32
	gen := NewPrimeGenerator(
		WithMaxAttempts(5),
		WithObserver(func(bits, attempts int) { observed.Add(1) }),
	)

	// An all-zero source always yields 0b10000001 = 129 = 3 * 43.
	_, err := gen.GenerateProbablePrime(context.Background(), constReader(0), 8)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrPrimeGeneration)
	assert.Contains(t, err.Error(), "5 candidates")
	assert.Zero(t, observed.Load())
}

func TestGenerateProbablePrimeRandomSourceError(t *testing.T) {
	boom := errors.New("entropy pool drained")
	gen := NewPrimeGenerator()

	_, err := gen.GenerateProbablePrime(context.Background(), failingReader{err: boom}, 64)
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, ErrPrimeGeneration)
}

func TestGenerateProbablePrimeCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewPrimeGenerator().GenerateProbablePrime(ctx, rand.Reader, 512)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestGenerateProbablePrimeParallel(t *testing.T) {
	var calls, attempts atomic.Int32
	gen := NewPrimeGenerator(
		WithWorkers(4),
		WithObserver(func(bits, n int) {
			calls.Add(1)
			attempts.Add(int32(n))
		}),
	)

	p, err := gen.GenerateProbablePrime(context.Background(), rand.Reader, 256)
	require.NoError(t, err)
	assert.Equal(t, 256, p.BitLen())
	assert.True(t, p.ProbablyPrime(20))
	assert.Equal(t, int32(1), calls.Load(), "observer runs once per prime")
	assert.GreaterOrEqual(t, attempts.Load(), int32(1))
}

func TestGenerateProbablePrimeParallelExhausts(t *testing.T) {
	gen := NewPrimeGenerator(WithWorkers(3), WithMaxAttempts(6))

	_, err := gen.GenerateProbablePrime(context.Background(), constReader(0), 8)
	assert.ErrorIs(t, err, ErrPrimeGeneration)
}

func TestGenerateProbablePrimeDeterministicSource(t *testing.T) {
	gen := NewPrimeGenerator()

	a, err := gen.GenerateProbablePrime(context.Background(), mrand.New(mrand.NewSource(7)), 128)
	require.NoError(t, err)
	b, err := gen.GenerateProbablePrime(context.Background(), mrand.New(mrand.NewSource(7)), 128)
	require.NoError(t, err)

	assert.Zero(t, a.Cmp(b), "same seed should give the same prime")
}

func TestCandidateFromBytes(t *testing.T) {
	tests := []struct {
		buf  []byte
		bits int
		want int64
	}{
		{[]byte{0x00}, 2, 3},
		{[]byte{0xff}, 2, 3},
		{[]byte{0x00}, 8, 129},
		{[]byte{0xff, 0xfe}, 9, 511},
		{[]byte{0x00, 0x00}, 12, 2049},
	}

	for _, tt := range tests {
		c := candidateFromBytes(append([]byte(nil), tt.buf...), tt.bits)
		assert.Equal(t, big.NewInt(tt.want).String(), c.String(), "bits=%d buf=%x", tt.bits, tt.buf)
		assert.Equal(t, tt.bits, c.BitLen())
	}
}
