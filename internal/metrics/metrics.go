package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	labelBits      = "bits"
	labelOperation = "operation"
	labelOutcome   = "outcome"

	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

var (
	KeysGeneratedCount = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "textrsa_keys_generated_count",
			Help: "Number of key pairs generated successfully, by prime bit length",
		},
		[]string{labelBits},
	)
	KeyGenerationFailedCount = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "textrsa_key_generation_failed_count",
			Help: "Number of key pair generations that failed",
		},
		[]string{labelBits},
	)
	KeyGenerationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "textrsa_key_generation_duration_seconds",
			Help:    "Time spent generating a key pair",
			Buckets: prometheus.ExponentialBuckets(0.001, 4, 10),
		},
		[]string{labelBits},
	)
	PrimeCandidates = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "textrsa_prime_candidates",
			Help:    "Candidates tested before a probable prime was found",
			Buckets: prometheus.ExponentialBuckets(1, 2, 14),
		},
		[]string{labelBits},
	)
	CipherOperationsCount = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "textrsa_cipher_operations_count",
			Help: "Encrypt and decrypt calls, by outcome",
		},
		[]string{labelOperation, labelOutcome},
	)
	StoredKeysTotal = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "textrsa_stored_keys_total",
			Help: "Key pairs currently held by the key store",
		},
	)
	BenchmarkJobsCount = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "textrsa_benchmark_jobs_count",
			Help: "Benchmark jobs finished, by final status",
		},
		[]string{labelOutcome},
	)
)

var AllMetrics = []prometheus.Collector{
	KeysGeneratedCount,
	KeyGenerationFailedCount,
	KeyGenerationDuration,
	PrimeCandidates,
	CipherOperationsCount,
	StoredKeysTotal,
	BenchmarkJobsCount,
}

// Register adds every collector to reg.
func Register(reg prometheus.Registerer) error {
	for _, c := range AllMetrics {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// ObservePrime matches the textbook.WithObserver callback signature.
func ObservePrime(bits, attempts int) {
	PrimeCandidates.WithLabelValues(strconv.Itoa(bits)).Observe(float64(attempts))
}

func ObserveKeyGeneration(bits int, seconds float64, err error) {
	label := strconv.Itoa(bits)
	if err != nil {
		KeyGenerationFailedCount.WithLabelValues(label).Inc()
		return
	}
	KeysGeneratedCount.WithLabelValues(label).Inc()
	KeyGenerationDuration.WithLabelValues(label).Observe(seconds)
}

func ObserveCipher(operation string, err error) {
	outcome := OutcomeSuccess
	if err != nil {
		outcome = OutcomeFailure
	}
	CipherOperationsCount.WithLabelValues(operation, outcome).Inc()
}
