// Package textbook implements unpadded ("textbook") RSA over math/big: probable
// prime search, the extended Euclidean modular inverse, key pair generation and
// modular-exponentiation encryption.
//
// Textbook RSA is deterministic and malleable. It is suitable for teaching and
// testing, not for protecting data.
package textbook
