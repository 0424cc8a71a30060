// Package message converts between text or bytes and the integers textbook RSA
// operates on.
package message

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/user/textrsa/pkg/textbook"
)

// FromBytes reads b as a big-endian unsigned integer.
func FromBytes(b []byte) *big.Int {
	return new(big.Int).SetBytes(b)
}

// ToBytes is the inverse of FromBytes. Leading zero bytes of the original input
// are not recoverable.
func ToBytes(m *big.Int) []byte {
	return m.Bytes()
}

func FromString(s string) *big.Int {
	return FromBytes([]byte(s))
}

func ToString(m *big.Int) string {
	return string(ToBytes(m))
}

// FormatHex renders m as lowercase hexadecimal without a prefix.
func FormatHex(m *big.Int) string {
	return m.Text(16)
}

// ParseHex accepts hexadecimal with an optional 0x prefix.
func ParseHex(s string) (*big.Int, error) {
	s = strings.TrimPrefix(strings.TrimPrefix(strings.TrimSpace(s), "0x"), "0X")
	if s == "" {
		return nil, fmt.Errorf("%w: empty hex value", textbook.ErrInvalidArgument)
	}
	v, ok := new(big.Int).SetString(s, 16)
	if !ok {
		return nil, fmt.Errorf("%w: %q is not hexadecimal", textbook.ErrInvalidArgument, s)
	}
	if v.Sign() < 0 {
		return nil, fmt.Errorf("%w: negative hex value", textbook.ErrInvalidArgument)
	}
	return v, nil
}

// Fits reports whether m can be encrypted under modulus n without loss.
func Fits(m, n *big.Int) bool {
	return m.Sign() >= 0 && m.Cmp(n) < 0
}
