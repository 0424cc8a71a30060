package output

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/user/textrsa/internal/message"
	"github.com/user/textrsa/pkg/textbook"
)

// KeyPair is the printable form of a generated key pair. Values are hex encoded.
type KeyPair struct {
	Bits        int    `json:"bits"`
	ModulusBits int    `json:"modulus_bits"`
	E           string `json:"e"`
	D           string `json:"d,omitempty"`
	N           string `json:"n"`
}

// NewKeyPair renders pub and, when non-nil, priv.
func NewKeyPair(bits int, pub *textbook.PublicKey, priv *textbook.PrivateKey) KeyPair {
	kp := KeyPair{
		Bits:        bits,
		ModulusBits: pub.Size(),
		E:           message.FormatHex(pub.E),
		N:           message.FormatHex(pub.N),
	}
	if priv != nil {
		kp.D = message.FormatHex(priv.D)
	}
	return kp
}

func WriteKeyPair(w io.Writer, format string, kp KeyPair) error {
	switch format {
	case "table":
		return KeyTable(w, kp)
	case "json":
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		return encoder.Encode(kp)
	default:
		return fmt.Errorf("unsupported format: %s", format)
	}
}

func KeyTable(w io.Writer, kp KeyPair) error {
	table := newTable(w)
	table.SetHeader([]string{"Field", "Value"})
	table.SetAutoWrapText(false)

	table.Append([]string{"Prime bits", fmt.Sprintf("%d", kp.Bits)})
	table.Append([]string{"Modulus bits", fmt.Sprintf("%d", kp.ModulusBits)})
	table.Append([]string{"e", kp.E})
	if kp.D != "" {
		table.Append([]string{"d", kp.D})
	}
	table.Append([]string{"n", kp.N})

	table.Render()
	return nil
}
