package benchmark

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"

	"github.com/user/textrsa/pkg/textbook"
)

const (
	OperationPrime     = "prime"
	OperationKeygen    = "keygen"
	OperationRoundTrip = "roundtrip"
)

var ErrRoundTripMismatch = errors.New("decrypted message differs from plaintext")

// Sample is the output of one iteration. Keys are nil for operations that do not
// produce a key pair.
type Sample struct {
	Bits    int
	Public  *textbook.PublicKey
	Private *textbook.PrivateKey
}

type Operation interface {
	Name() string
	// MinKeySize is the smallest prime bit length the operation can succeed with.
	MinKeySize() int
	Run(ctx context.Context, bits int) (Sample, error)
}

type PrimeOperation struct {
	primes *textbook.PrimeGenerator
}

func (o *PrimeOperation) Name() string {
	return "Prime"
}

func (o *PrimeOperation) MinKeySize() int {
	return 2
}

func (o *PrimeOperation) Run(ctx context.Context, bits int) (Sample, error) {
	_, err := o.primes.GenerateProbablePrime(ctx, rand.Reader, bits)
	return Sample{Bits: bits}, err
}

type KeygenOperation struct {
	keys *textbook.KeyPairGenerator
}

func (o *KeygenOperation) Name() string {
	return "Keygen"
}

// MinKeySize is 3: every 2-bit prime is 3, so two distinct ones never exist.
func (o *KeygenOperation) MinKeySize() int {
	return 3
}

func (o *KeygenOperation) Run(ctx context.Context, bits int) (Sample, error) {
	pub, priv, err := o.keys.GenerateKeyPair(ctx, bits)
	if err != nil {
		return Sample{Bits: bits}, err
	}
	return Sample{Bits: bits, Public: pub, Private: priv}, nil
}

// RoundTripOperation generates a key pair and checks that a random message below
// n survives encryption and decryption.
type RoundTripOperation struct {
	keys   *textbook.KeyPairGenerator
	engine textbook.CipherEngine
}

func (o *RoundTripOperation) Name() string {
	return "RoundTrip"
}

func (o *RoundTripOperation) MinKeySize() int {
	return 3
}

func (o *RoundTripOperation) Run(ctx context.Context, bits int) (Sample, error) {
	sample := Sample{Bits: bits}
	pub, priv, err := o.keys.GenerateKeyPair(ctx, bits)
	if err != nil {
		return sample, err
	}
	sample.Public, sample.Private = pub, priv

	m, err := rand.Int(rand.Reader, pub.N)
	if err != nil {
		return sample, fmt.Errorf("drawing message: %w", err)
	}
	c, err := o.engine.Encrypt(pub, m)
	if err != nil {
		return sample, err
	}
	got, err := o.engine.Decrypt(priv, c)
	if err != nil {
		return sample, err
	}
	if got.Cmp(m) != 0 {
		return sample, ErrRoundTripMismatch
	}
	return sample, nil
}

func newPrimeGenerator(config Config, observe func(bits, attempts int)) *textbook.PrimeGenerator {
	opts := []textbook.PrimeOption{
		textbook.WithWorkers(config.Workers),
	}
	if config.Rounds > 0 {
		opts = append(opts, textbook.WithRounds(config.Rounds))
	}
	if observe != nil {
		opts = append(opts, textbook.WithObserver(observe))
	}
	return textbook.NewPrimeGenerator(opts...)
}

func getOperation(name string, config Config, observe func(bits, attempts int)) (Operation, error) {
	primes := newPrimeGenerator(config, observe)
	keys := textbook.NewKeyPairGenerator(rand.Reader, textbook.WithPrimeGenerator(primes))

	switch name {
	case OperationPrime:
		return &PrimeOperation{primes: primes}, nil
	case OperationKeygen:
		return &KeygenOperation{keys: keys}, nil
	case OperationRoundTrip:
		return &RoundTripOperation{keys: keys, engine: textbook.CipherEngine{CheckRange: true}}, nil
	default:
		return nil, fmt.Errorf("unknown operation: %s", name)
	}
}

func isValidKeySize(op Operation, size int) bool {
	return size >= op.MinKeySize()
}
