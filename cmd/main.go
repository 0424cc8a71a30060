package main

import (
	"context"
	"fmt"
	"io"
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/user/textrsa/internal/config"
	"github.com/user/textrsa/internal/message"
	"github.com/user/textrsa/pkg/textbook"
)

type app struct {
	cfg *config.Config
}

func newRootCmd() *cobra.Command {
	a := &app{}
	var text string

	rootCmd := &cobra.Command{
		Use:   "textrsa",
		Short: "Textbook RSA key generation, encryption and decryption",
		Long: `textrsa generates RSA key pairs from two probable primes and encrypts
integers by modular exponentiation, without padding.

Run without a subcommand it generates a key pair, encrypts --message,
decrypts the ciphertext and prints each step. Textbook RSA is deterministic
and malleable; it is for study, not for protecting data.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cmd.Flags())
			if err != nil {
				return err
			}
			if err := cfg.SetupLogger(cmd.ErrOrStderr()); err != nil {
				return err
			}
			cfg.Print(log.StandardLogger())
			a.cfg = cfg
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runDemo(cmd.Context(), cmd.OutOrStdout(), text)
		},
	}

	config.Flags(rootCmd.PersistentFlags())
	rootCmd.Flags().StringVarP(&text, "message", "m", "hello", "Message to encrypt in the demo")

	rootCmd.AddCommand(
		a.keygenCmd(),
		a.encryptCmd(),
		a.decryptCmd(),
		a.benchCmd(),
		a.serveCmd(),
	)
	return rootCmd
}

func (a *app) runDemo(ctx context.Context, w io.Writer, text string) error {
	pub, priv, err := a.cfg.KeyPairGenerator().GenerateKeyPair(ctx, a.cfg.Bits)
	if err != nil {
		return fmt.Errorf("failed to generate key pair: %w", err)
	}

	fmt.Fprintf(w, "Public key (%d-bit modulus)\n", pub.Size())
	fmt.Fprintf(w, "  e: %s\n", message.FormatHex(pub.E))
	fmt.Fprintf(w, "  n: %s\n", message.FormatHex(pub.N))

	engine := textbook.CipherEngine{CheckRange: true}

	m := message.FromString(text)
	c, err := engine.Encrypt(pub, m)
	if err != nil {
		return fmt.Errorf("failed to encrypt %q: %w", text, err)
	}
	fmt.Fprintf(w, "Ciphertext: %s\n", message.FormatHex(c))

	recovered, err := engine.Decrypt(priv, c)
	if err != nil {
		return fmt.Errorf("failed to decrypt: %w", err)
	}
	if recovered.Cmp(m) != 0 {
		return fmt.Errorf("decrypted message %s differs from plaintext %s", message.FormatHex(recovered), message.FormatHex(m))
	}
	fmt.Fprintf(w, "Decrypted: %s\n", message.ToString(recovered))
	return nil
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
