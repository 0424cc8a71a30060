package textbook

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"math/big"

	"github.com/sethvargo/go-retry"
	log "github.com/sirupsen/logrus"
)

const defaultKeyAttempts = 16

var (
	errEqualPrimes   = errors.New("primes are equal")
	errNotCoprime    = errors.New("exponent shares a factor with the totient")
	errExponentRange = errors.New("exponent not in (1, phi)")
)

// PublicKey is the pair (e, n). Values are shared, not copied; callers must not
// mutate them.
type PublicKey struct {
	E *big.Int `json:"e"`
	N *big.Int `json:"n"`
}

// Size returns the bit length of the modulus.
func (k *PublicKey) Size() int {
	return k.N.BitLen()
}

// PrivateKey is the pair (d, n).
type PrivateKey struct {
	D *big.Int `json:"d"`
	N *big.Int `json:"n"`
}

func (k *PrivateKey) Size() int {
	return k.N.BitLen()
}

// keyMaterial carries everything produced during generation. Only e, d and n
// leave the package.
type keyMaterial struct {
	p1, p2 *big.Int
	phi    *big.Int
	e, d   *big.Int
	n      *big.Int
}

// KeyPairGenerator derives textbook RSA key pairs from a random source.
type KeyPairGenerator struct {
	primes      *PrimeGenerator
	rng         io.Reader
	maxAttempts int
	log         log.FieldLogger
}

type KeyOption func(*KeyPairGenerator)

func WithPrimeGenerator(primes *PrimeGenerator) KeyOption {
	return func(g *KeyPairGenerator) {
		if primes != nil {
			g.primes = primes
		}
	}
}

// WithKeyAttempts bounds the retries spent on distinct primes and on the exponent.
func WithKeyAttempts(attempts int) KeyOption {
	return func(g *KeyPairGenerator) {
		if attempts > 0 {
			g.maxAttempts = attempts
		}
	}
}

func WithLogger(logger log.FieldLogger) KeyOption {
	return func(g *KeyPairGenerator) {
		if logger != nil {
			g.log = logger
		}
	}
}

// NewKeyPairGenerator returns a generator reading from rng, or crypto/rand when rng is nil.
func NewKeyPairGenerator(rng io.Reader, opts ...KeyOption) *KeyPairGenerator {
	if rng == nil {
		rng = rand.Reader
	}
	g := &KeyPairGenerator{
		primes:      NewPrimeGenerator(),
		rng:         rng,
		maxAttempts: defaultKeyAttempts,
		log:         log.WithField("component", "keygen"),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// GenerateKeyPair generates a key pair whose primes each have bits bits.
func GenerateKeyPair(bits int) (*PublicKey, *PrivateKey, error) {
	return NewKeyPairGenerator(rand.Reader).GenerateKeyPair(context.Background(), bits)
}

// GenerateKeyPair generates a key pair whose primes each have bits bits, so the
// modulus has about 2*bits bits.
func (g *KeyPairGenerator) GenerateKeyPair(ctx context.Context, bits int) (*PublicKey, *PrivateKey, error) {
	km, err := g.generate(ctx, bits)
	if err != nil {
		return nil, nil, err
	}
	return &PublicKey{E: km.e, N: km.n}, &PrivateKey{D: km.d, N: km.n}, nil
}

func (g *KeyPairGenerator) generate(ctx context.Context, bits int) (*keyMaterial, error) {
	if bits < 2 {
		return nil, fmt.Errorf("%w: prime bit length %d, want at least 2", ErrInvalidArgument, bits)
	}

	p1, p2, err := g.distinctPrimes(ctx, bits)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrKeyGeneration, err)
	}

	n := new(big.Int).Mul(p1, p2)
	phi := new(big.Int).Mul(minusOne(p1), minusOne(p2))

	e, err := g.chooseExponent(ctx, phi)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrKeyGeneration, err)
	}

	d, err := ModInverse(e, phi)
	if err != nil {
		// chooseExponent already checked coprimality.
		return nil, fmt.Errorf("%w: invariant violated, coprime exponent not invertible: %w", ErrKeyGeneration, err)
	}

	g.log.WithFields(log.Fields{
		"prime_bits":    bits,
		"modulus_bits":  n.BitLen(),
		"exponent_bits": e.BitLen(),
	}).Debug("generated key pair")

	return &keyMaterial{p1: p1, p2: p2, phi: phi, e: e, d: d, n: n}, nil
}

func (g *KeyPairGenerator) distinctPrimes(ctx context.Context, bits int) (*big.Int, *big.Int, error) {
	p1, err := g.primes.GenerateProbablePrime(ctx, g.rng, bits)
	if err != nil {
		return nil, nil, err
	}

	var p2 *big.Int
	attempts := 0
	err = retry.Do(ctx, bounded(g.maxAttempts), func(ctx context.Context) error {
		attempts++
		p, err := g.primes.GenerateProbablePrime(ctx, g.rng, bits)
		if err != nil {
			return err
		}
		if p.Cmp(p1) == 0 {
			g.log.WithField("attempt", attempts).Debug("second prime equals first, regenerating")
			return retry.RetryableError(errEqualPrimes)
		}
		p2 = p
		return nil
	})
	if err != nil {
		if errors.Is(err, errEqualPrimes) {
			return nil, nil, fmt.Errorf("%w after %d attempts", err, attempts)
		}
		return nil, nil, err
	}
	return p1, p2, nil
}

// chooseExponent picks a probable prime e with 1 < e < phi and gcd(e, phi) = 1.
// Its bit length is one less than phi's, so e < phi holds by construction; the
// range is still checked.
func (g *KeyPairGenerator) chooseExponent(ctx context.Context, phi *big.Int) (*big.Int, error) {
	bits := phi.BitLen() - 1
	if bits < 2 {
		return nil, fmt.Errorf("totient too small for an exponent (%d bits)", phi.BitLen())
	}

	var e *big.Int
	attempts := 0
	err := retry.Do(ctx, bounded(g.maxAttempts), func(ctx context.Context) error {
		attempts++
		candidate, err := g.primes.GenerateProbablePrime(ctx, g.rng, bits)
		if err != nil {
			return err
		}
		if candidate.Cmp(one) <= 0 || candidate.Cmp(phi) >= 0 {
			return retry.RetryableError(errExponentRange)
		}
		if !isOne(gcd(candidate, phi)) {
			g.log.WithField("attempt", attempts).Debug("exponent not coprime with totient, regenerating")
			return retry.RetryableError(errNotCoprime)
		}
		e = candidate
		return nil
	})
	if err != nil {
		if errors.Is(err, errNotCoprime) || errors.Is(err, errExponentRange) {
			return nil, fmt.Errorf("%w after %d attempts", err, attempts)
		}
		return nil, err
	}
	return e, nil
}
