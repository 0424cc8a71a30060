package textbook

import (
	"fmt"
	"math/big"
)

// ExtendedGCD runs the extended Euclidean algorithm on non-negative a and b and
// returns g = gcd(a, b) together with Bezout coefficients satisfying a*s + b*t = g.
func ExtendedGCD(a, b *big.Int) (g, s, t *big.Int) {
	prevR, r := new(big.Int).Set(a), new(big.Int).Set(b)
	prevS, s := big.NewInt(1), big.NewInt(0)
	prevT, t := big.NewInt(0), big.NewInt(1)

	q := new(big.Int)
	for r.Sign() != 0 {
		q.Quo(prevR, r)
		prevR, r = r, bezoutStep(prevR, r, q)
		prevS, s = s, bezoutStep(prevS, s, q)
		prevT, t = t, bezoutStep(prevT, t, q)
	}
	return prevR, prevS, prevT
}

// bezoutStep returns prev - q*cur.
func bezoutStep(prev, cur, q *big.Int) *big.Int {
	next := new(big.Int).Mul(q, cur)
	return next.Sub(prev, next)
}

// ModInverse returns d in [0, m) with a*d ≡ 1 (mod m). It fails with
// ErrNotInvertible when gcd(a, m) != 1, which includes a ≡ 0 (mod m).
//
// Operand values are kept out of error messages: during key generation m is the
// totient.
func ModInverse(a, m *big.Int) (*big.Int, error) {
	if a == nil || m == nil {
		return nil, fmt.Errorf("%w: nil operand", ErrInvalidArgument)
	}
	if m.Cmp(one) <= 0 {
		return nil, fmt.Errorf("%w: modulus must be greater than 1", ErrInvalidArgument)
	}

	reduced := new(big.Int).Mod(a, m)
	if reduced.Sign() == 0 {
		return nil, fmt.Errorf("%w: operand is congruent to 0", ErrNotInvertible)
	}

	g, s, _ := ExtendedGCD(reduced, m)
	if !isOne(g) {
		return nil, fmt.Errorf("%w: operand shares a factor with the modulus", ErrNotInvertible)
	}
	return s.Mod(s, m), nil
}
