package textbook

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/big"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sethvargo/go-retry"
)

const (
	// DefaultRounds of Miller-Rabin bound the false-positive rate by 4^-50 = 2^-100.
	DefaultRounds = 50

	// attemptsPerBit sizes the default candidate budget. The expected number of odd
	// candidates before a prime is about 0.35 * bits, so this is far beyond it.
	attemptsPerBit = 100
	minAttempts    = 1000
)

var errComposite = errors.New("candidate is composite")

// PrimeGenerator searches for probable primes of an exact bit length.
type PrimeGenerator struct {
	rounds      int
	maxAttempts int
	workers     int
	observe     func(bits, attempts int)
}

type PrimeOption func(*PrimeGenerator)

// WithRounds sets the number of Miller-Rabin rounds per candidate.
func WithRounds(rounds int) PrimeOption {
	return func(g *PrimeGenerator) {
		if rounds >= 0 {
			g.rounds = rounds
		}
	}
}

// WithMaxAttempts caps the number of candidates tested per prime. Zero keeps the
// bit-length scaled default.
func WithMaxAttempts(attempts int) PrimeOption {
	return func(g *PrimeGenerator) {
		if attempts >= 0 {
			g.maxAttempts = attempts
		}
	}
}

// WithWorkers tests candidates on several goroutines; the first prime found wins.
func WithWorkers(workers int) PrimeOption {
	return func(g *PrimeGenerator) {
		if workers < 1 {
			workers = 1
		}
		g.workers = workers
	}
}

// WithObserver registers a callback receiving the bit length and the number of
// candidates tested for every prime found.
func WithObserver(fn func(bits, attempts int)) PrimeOption {
	return func(g *PrimeGenerator) {
		g.observe = fn
	}
}

func NewPrimeGenerator(opts ...PrimeOption) *PrimeGenerator {
	g := &PrimeGenerator{
		rounds:  DefaultRounds,
		workers: 1,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func (g *PrimeGenerator) budget(bits int) int {
	if g.maxAttempts > 0 {
		return g.maxAttempts
	}
	if n := attemptsPerBit * bits; n > minAttempts {
		return n
	}
	return minAttempts
}

// GenerateProbablePrime returns an odd probable prime with exactly bits bits, drawing
// candidates from rng. Cancellation of ctx is observed between candidates.
func (g *PrimeGenerator) GenerateProbablePrime(ctx context.Context, rng io.Reader, bits int) (*big.Int, error) {
	if bits < 2 {
		return nil, fmt.Errorf("%w: prime bit length %d, want at least 2", ErrInvalidArgument, bits)
	}
	if rng == nil {
		return nil, fmt.Errorf("%w: nil random source", ErrInvalidArgument)
	}

	var attempts atomic.Int64
	budget := g.budget(bits)

	var prime *big.Int
	var err error
	if g.workers <= 1 {
		prime, err = g.search(ctx, rng, bits, budget, &attempts)
	} else {
		prime, err = g.searchParallel(ctx, rng, bits, budget, &attempts)
	}

	switch {
	case err == nil:
		if g.observe != nil {
			g.observe(bits, int(attempts.Load()))
		}
		return prime, nil
	case errors.Is(err, errComposite):
		return nil, fmt.Errorf("%w: no %d-bit probable prime in %d candidates", ErrPrimeGeneration, bits, attempts.Load())
	default:
		return nil, fmt.Errorf("prime search: %w", err)
	}
}

func (g *PrimeGenerator) search(ctx context.Context, rng io.Reader, bits, budget int, attempts *atomic.Int64) (*big.Int, error) {
	buf := make([]byte, (bits+7)/8)

	var prime *big.Int
	err := retry.Do(ctx, bounded(budget), func(ctx context.Context) error {
		attempts.Add(1)
		if _, err := io.ReadFull(rng, buf); err != nil {
			return fmt.Errorf("reading random source: %w", err)
		}

		candidate := candidateFromBytes(buf, bits)
		if !candidate.ProbablyPrime(g.rounds) {
			return retry.RetryableError(errComposite)
		}
		prime = candidate
		return nil
	})
	if err != nil {
		return nil, err
	}
	return prime, nil
}

// searchParallel splits the budget across workers sharing one locked random source.
func (g *PrimeGenerator) searchParallel(ctx context.Context, rng io.Reader, bits, budget int, attempts *atomic.Int64) (*big.Int, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	type outcome struct {
		prime *big.Int
		err   error
	}

	shared := &lockedReader{reader: rng}
	share := (budget + g.workers - 1) / g.workers
	results := make(chan outcome, g.workers)

	for i := 0; i < g.workers; i++ {
		go func() {
			p, err := g.search(ctx, shared, bits, share, attempts)
			results <- outcome{prime: p, err: err}
		}()
	}

	var exhausted error
	for i := 0; i < g.workers; i++ {
		out := <-results
		if out.err == nil {
			return out.prime, nil
		}
		if !errors.Is(out.err, errComposite) {
			return nil, out.err
		}
		exhausted = out.err
	}
	return nil, exhausted
}

// bounded allows exactly attempts calls with no delay between them.
func bounded(attempts int) retry.Backoff {
	if attempts < 1 {
		attempts = 1
	}
	immediate := retry.BackoffFunc(func() (time.Duration, bool) {
		return 0, false
	})
	return retry.WithMaxRetries(uint64(attempts-1), immediate)
}

type lockedReader struct {
	mu     sync.Mutex
	reader io.Reader
}

func (l *lockedReader) Read(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.reader.Read(p)
}
