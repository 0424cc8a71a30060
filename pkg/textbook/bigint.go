package textbook

import "math/big"

var (
	zero = big.NewInt(0)
	one  = big.NewInt(1)
)

func isOne(x *big.Int) bool {
	return x.Cmp(one) == 0
}

func gcd(a, b *big.Int) *big.Int {
	return new(big.Int).GCD(nil, nil, a, b)
}

// candidateFromBytes turns len(buf)*8 random bits into an odd integer of exactly bits bits.
func candidateFromBytes(buf []byte, bits int) *big.Int {
	// Drop the excess high bits of the first byte.
	if excess := len(buf)*8 - bits; excess > 0 {
		buf[0] &= uint8(int(1<<(8-excess)) - 1)
	}
	c := new(big.Int).SetBytes(buf)
	c.SetBit(c, bits-1, 1)
	c.SetBit(c, 0, 1)
	return c
}

func minusOne(x *big.Int) *big.Int {
	return new(big.Int).Sub(x, one)
}
