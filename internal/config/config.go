package config

import (
	"errors"
	"fmt"
	"io/fs"
	"sort"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/mitchellh/mapstructure"
	log "github.com/sirupsen/logrus"
	flag "github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/user/textrsa/pkg/textbook"
)

type Config struct {
	LogLevel      string        `json:"log-level"`
	LogFormat     string        `json:"log-format"`
	Bits          int           `json:"bits"`
	Rounds        int           `json:"rounds"`
	MaxAttempts   int           `json:"max-attempts"`
	KeyAttempts   int           `json:"key-attempts"`
	Workers       int           `json:"workers"`
	ListenAddress string        `json:"listen-address"`
	KeyTTL        time.Duration `json:"key-ttl"`
	JobWorkers    int           `json:"job-workers"`
}

const (
	LogLevel      = "log-level"
	LogFormat     = "log-format"
	Bits          = "bits"
	Rounds        = "rounds"
	MaxAttempts   = "max-attempts"
	KeyAttempts   = "key-attempts"
	Workers       = "workers"
	ListenAddress = "listen-address"
	KeyTTL        = "key-ttl"
	JobWorkers    = "job-workers"

	envPrefix = "TEXTRSA"
)

var keys = []string{
	LogLevel, LogFormat, Bits, Rounds, MaxAttempts, KeyAttempts,
	Workers, ListenAddress, KeyTTL, JobWorkers,
}

// Flags registers every configuration option on flags.
func Flags(flags *flag.FlagSet) {
	flags.String(LogLevel, "info", "Log level (debug, info, warn, error).")
	flags.String(LogFormat, "text", "Log format (text, json).")
	flags.Int(Bits, 512, "Bit length of each prime; the modulus is about twice as long.")
	flags.Int(Rounds, textbook.DefaultRounds, "Miller-Rabin rounds per prime candidate.")
	flags.Int(MaxAttempts, 0, "Candidates tested per prime before giving up (0 scales with bit length).")
	flags.Int(KeyAttempts, 16, "Attempts to find distinct primes and a coprime exponent.")
	flags.Int(Workers, 1, "Goroutines searching for each prime.")
	flags.String(ListenAddress, ":8080", "Address the HTTP service binds to.")
	flags.Duration(KeyTTL, 0, "Lifetime of keys held by the HTTP service (0 keeps them until deleted).")
	flags.Int(JobWorkers, 1, "Benchmark jobs the HTTP service runs concurrently.")
}

// Load resolves configuration from, in increasing priority: defaults, a textrsa
// config file in . or /etc, a .env file, TEXTRSA_* environment variables and
// flags explicitly set on flags.
func Load(flags *flag.FlagSet) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}

	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	v.SetConfigName("textrsa")
	v.AddConfigPath(".")
	v.AddConfigPath("/etc")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	for _, key := range keys {
		f := flags.Lookup(key)
		if f == nil {
			return nil, fmt.Errorf("flag %q not registered", key)
		}
		if err := v.BindPFlag(key, f); err != nil {
			return nil, fmt.Errorf("binding flag %q: %w", key, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, decoderHook); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func decoderHook(dc *mapstructure.DecoderConfig) {
	dc.TagName = "json"
	dc.ErrorUnused = true
}

func (c Config) Validate() error {
	var errs []string
	if c.Bits < 2 {
		errs = append(errs, fmt.Sprintf("%s must be at least 2", Bits))
	}
	if c.Rounds < 0 {
		errs = append(errs, fmt.Sprintf("%s must not be negative", Rounds))
	}
	if c.MaxAttempts < 0 {
		errs = append(errs, fmt.Sprintf("%s must not be negative", MaxAttempts))
	}
	if c.KeyAttempts < 1 {
		errs = append(errs, fmt.Sprintf("%s must be positive", KeyAttempts))
	}
	if c.Workers < 1 {
		errs = append(errs, fmt.Sprintf("%s must be positive", Workers))
	}
	if c.JobWorkers < 1 {
		errs = append(errs, fmt.Sprintf("%s must be positive", JobWorkers))
	}
	if c.KeyTTL < 0 {
		errs = append(errs, fmt.Sprintf("%s must not be negative", KeyTTL))
	}
	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, err.Error())
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		errs = append(errs, fmt.Sprintf("unsupported %s %q", LogFormat, c.LogFormat))
	}

	if len(errs) > 0 {
		sort.Strings(errs)
		return fmt.Errorf("invalid configuration: %s", strings.Join(errs, "; "))
	}
	return nil
}

// KeyPairGenerator builds a crypto/rand backed generator from the prime search settings.
func (c Config) KeyPairGenerator(opts ...textbook.PrimeOption) *textbook.KeyPairGenerator {
	primeOpts := append([]textbook.PrimeOption{
		textbook.WithRounds(c.Rounds),
		textbook.WithMaxAttempts(c.MaxAttempts),
		textbook.WithWorkers(c.Workers),
	}, opts...)

	return textbook.NewKeyPairGenerator(nil,
		textbook.WithPrimeGenerator(textbook.NewPrimeGenerator(primeOpts...)),
		textbook.WithKeyAttempts(c.KeyAttempts),
	)
}

// Print logs every resolved option.
func (c Config) Print(logger log.FieldLogger) {
	logger.WithFields(log.Fields{
		LogLevel:      c.LogLevel,
		LogFormat:     c.LogFormat,
		Bits:          c.Bits,
		Rounds:        c.Rounds,
		MaxAttempts:   c.MaxAttempts,
		KeyAttempts:   c.KeyAttempts,
		Workers:       c.Workers,
		ListenAddress: c.ListenAddress,
		KeyTTL:        c.KeyTTL.String(),
		JobWorkers:    c.JobWorkers,
	}).Debug("configuration")
}
