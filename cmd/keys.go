package main

import (
	"fmt"
	"math/big"

	"github.com/spf13/cobra"

	"github.com/user/textrsa/internal/message"
	"github.com/user/textrsa/internal/output"
	"github.com/user/textrsa/pkg/textbook"
)

func (a *app) keygenCmd() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "keygen",
		Short: "Generate a key pair and print e, d and n in hex",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			pub, priv, err := a.cfg.KeyPairGenerator().GenerateKeyPair(cmd.Context(), a.cfg.Bits)
			if err != nil {
				return fmt.Errorf("failed to generate key pair: %w", err)
			}
			return output.WriteKeyPair(cmd.OutOrStdout(), format, output.NewKeyPair(a.cfg.Bits, pub, priv))
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "table", "Output format (table, json)")
	return cmd
}

func (a *app) encryptCmd() *cobra.Command {
	var e, n, text, hexText string
	var unchecked bool

	cmd := &cobra.Command{
		Use:   "encrypt",
		Short: "Encrypt a message with a public key given in hex",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			exp, mod, err := parseKey(e, n)
			if err != nil {
				return err
			}

			m := message.FromString(text)
			if hexText != "" {
				if m, err = message.ParseHex(hexText); err != nil {
					return err
				}
			}

			c, err := textbook.CipherEngine{CheckRange: !unchecked}.Encrypt(&textbook.PublicKey{E: exp, N: mod}, m)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), message.FormatHex(c))
			return nil
		},
	}

	cmd.Flags().StringVar(&e, "e", "", "Public exponent (hex)")
	cmd.Flags().StringVar(&n, "n", "", "Modulus (hex)")
	cmd.Flags().StringVarP(&text, "message", "m", "", "Message to encrypt")
	cmd.Flags().StringVar(&hexText, "message-hex", "", "Message to encrypt, as a hex integer")
	cmd.Flags().BoolVar(&unchecked, "unchecked", false, "Allow messages not below n; they are silently reduced mod n")
	cmd.MarkFlagsMutuallyExclusive("message", "message-hex")
	cobra.CheckErr(cmd.MarkFlagRequired("e"))
	cobra.CheckErr(cmd.MarkFlagRequired("n"))
	return cmd
}

func (a *app) decryptCmd() *cobra.Command {
	var d, n, ciphertext string
	var asHex bool

	cmd := &cobra.Command{
		Use:   "decrypt",
		Short: "Decrypt a hex ciphertext with a private key given in hex",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			exp, mod, err := parseKey(d, n)
			if err != nil {
				return err
			}

			c, err := message.ParseHex(ciphertext)
			if err != nil {
				return err
			}

			m, err := textbook.CipherEngine{CheckRange: true}.Decrypt(&textbook.PrivateKey{D: exp, N: mod}, c)
			if err != nil {
				return err
			}

			if asHex {
				fmt.Fprintln(cmd.OutOrStdout(), message.FormatHex(m))
			} else {
				fmt.Fprintln(cmd.OutOrStdout(), message.ToString(m))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&d, "d", "", "Private exponent (hex)")
	cmd.Flags().StringVar(&n, "n", "", "Modulus (hex)")
	cmd.Flags().StringVarP(&ciphertext, "ciphertext", "c", "", "Ciphertext (hex)")
	cmd.Flags().BoolVar(&asHex, "hex", false, "Print the recovered integer in hex instead of as text")
	cobra.CheckErr(cmd.MarkFlagRequired("d"))
	cobra.CheckErr(cmd.MarkFlagRequired("n"))
	cobra.CheckErr(cmd.MarkFlagRequired("ciphertext"))
	return cmd
}

// parseKey decodes an exponent and modulus given in hex.
func parseKey(exponent, modulus string) (*big.Int, *big.Int, error) {
	exp, err := message.ParseHex(exponent)
	if err != nil {
		return nil, nil, fmt.Errorf("exponent: %w", err)
	}
	mod, err := message.ParseHex(modulus)
	if err != nil {
		return nil, nil, fmt.Errorf("modulus: %w", err)
	}
	return exp, mod, nil
}
