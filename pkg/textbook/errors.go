package textbook

import "errors"

var (
	// ErrPrimeGeneration is returned when no probable prime was found within the attempt budget.
	ErrPrimeGeneration = errors.New("prime generation failed")

	// ErrKeyGeneration is returned when distinct primes or a coprime exponent could not be selected.
	ErrKeyGeneration = errors.New("key generation failed")

	// ErrNotInvertible is returned when gcd(a, m) != 1.
	ErrNotInvertible = errors.New("value is not invertible")

	// ErrInvalidArgument is returned for nil or negative operands and degenerate moduli.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrMessageRange is returned by a range-checking CipherEngine when the operand is not below n.
	ErrMessageRange = errors.New("value out of range for modulus")
)
