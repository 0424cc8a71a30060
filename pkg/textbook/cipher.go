package textbook

import (
	"fmt"
	"math/big"
)

// CipherEngine performs raw modular exponentiation without padding.
//
// Operands must lie in [0, n). A message m >= n is not rejected unless CheckRange
// is set: it encrypts as m mod n and therefore decrypts to a different plaintext.
// Callers are responsible for chunking longer messages.
type CipherEngine struct {
	CheckRange bool
}

// Encrypt returns m^e mod n.
func (c CipherEngine) Encrypt(pub *PublicKey, m *big.Int) (*big.Int, error) {
	if pub == nil {
		return nil, fmt.Errorf("%w: nil public key", ErrInvalidArgument)
	}
	if err := c.validate(pub.E, pub.N, m); err != nil {
		return nil, fmt.Errorf("encrypt: %w", err)
	}
	return new(big.Int).Exp(m, pub.E, pub.N), nil
}

// Decrypt returns c^d mod n.
func (c CipherEngine) Decrypt(priv *PrivateKey, cipher *big.Int) (*big.Int, error) {
	if priv == nil {
		return nil, fmt.Errorf("%w: nil private key", ErrInvalidArgument)
	}
	if err := c.validate(priv.D, priv.N, cipher); err != nil {
		return nil, fmt.Errorf("decrypt: %w", err)
	}
	return new(big.Int).Exp(cipher, priv.D, priv.N), nil
}

func (c CipherEngine) validate(exp, n, x *big.Int) error {
	switch {
	case exp == nil || n == nil || x == nil:
		return fmt.Errorf("%w: nil operand", ErrInvalidArgument)
	case n.Cmp(one) <= 0:
		return fmt.Errorf("%w: modulus must be greater than 1", ErrInvalidArgument)
	case exp.Sign() < 0:
		return fmt.Errorf("%w: negative exponent", ErrInvalidArgument)
	case x.Cmp(zero) < 0:
		return fmt.Errorf("%w: negative operand", ErrInvalidArgument)
	case c.CheckRange && x.Cmp(n) >= 0:
		return fmt.Errorf("%w: operand has %d bits, modulus %d", ErrMessageRange, x.BitLen(), n.BitLen())
	}
	return nil
}

// Encrypt returns m^e mod n without range checking.
func Encrypt(pub *PublicKey, m *big.Int) (*big.Int, error) {
	return CipherEngine{}.Encrypt(pub, m)
}

// Decrypt returns c^d mod n without range checking.
func Decrypt(priv *PrivateKey, c *big.Int) (*big.Int, error) {
	return CipherEngine{}.Decrypt(priv, c)
}
