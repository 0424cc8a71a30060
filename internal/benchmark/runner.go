package benchmark

import (
	"context"
	"errors"
	"fmt"
	"math"
	"runtime"
	"sync"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
	log "github.com/sirupsen/logrus"
)

type Runner struct {
	config   Config
	progress chan<- ProgressUpdate
	keySink  func(Sample)
	observe  func(bits, attempts int)
}

func NewRunner(config Config) *Runner {
	return &Runner{config: config.withDefaults()}
}

// SetProgressChannel publishes progress without blocking; updates are dropped
// when ch is full.
func (r *Runner) SetProgressChannel(ch chan<- ProgressUpdate) {
	r.progress = ch
}

// SetKeySink receives every sample that carries a key pair.
func (r *Runner) SetKeySink(fn func(Sample)) {
	r.keySink = fn
}

// SetPrimeObserver is forwarded to the prime generators of every operation.
func (r *Runner) SetPrimeObserver(fn func(bits, attempts int)) {
	r.observe = fn
}

func (r *Runner) Run() ([]Result, error) {
	return r.RunContext(context.Background())
}

func (r *Runner) RunContext(ctx context.Context) ([]Result, error) {
	var results []Result
	seen := make(map[string]bool)

	for _, name := range r.config.Operations {
		op, err := getOperation(name, r.config, r.observe)
		if err != nil {
			return nil, err
		}

		for _, size := range r.config.KeySizes {
			if !isValidKeySize(op, size) {
				if r.config.Verbose {
					log.Warnf("Skipping key size %d for %s (minimum %d)", size, name, op.MinKeySize())
				}
				continue
			}

			combo := fmt.Sprintf("%s-%d", name, size)
			if seen[combo] {
				continue
			}
			seen[combo] = true

			result, err := r.runSingleBenchmark(ctx, op, size)
			if err != nil {
				return results, err
			}
			results = append(results, result)
		}
	}

	return results, nil
}

func (r *Runner) runSingleBenchmark(parent context.Context, op Operation, keySize int) (Result, error) {
	result := Result{
		Operation:  op.Name(),
		KeySize:    keySize,
		Iterations: r.config.Iterations,
		Parallel:   r.config.Parallel,
	}

	totalIterations := r.config.Iterations * r.config.Parallel
	var progress *progressbar.ProgressBar

	if r.config.ShowProgress {
		progress = progressbar.NewOptions(totalIterations,
			progressbar.OptionSetDescription(fmt.Sprintf("[%s-%d]", op.Name(), keySize)),
			progressbar.OptionSetWidth(40),
			progressbar.OptionShowCount(),
			progressbar.OptionShowIts(),
			progressbar.OptionOnCompletion(func() {
				fmt.Println()
			}),
		)
	}

	initialCPU, _ := cpu.Percent(100*time.Millisecond, false)
	initialMem, _ := mem.VirtualMemory()

	ctx, cancel := context.WithTimeout(parent, time.Duration(r.config.Timeout)*time.Second)
	defer cancel()

	var timings []time.Duration
	var errCount, done int
	var mu sync.Mutex

	startTime := time.Now()

	var wg sync.WaitGroup
	for i := 0; i < r.config.Parallel; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			for j := 0; j < r.config.Iterations; j++ {
				if ctx.Err() != nil {
					return
				}

				iterStart := time.Now()
				sample, err := op.Run(ctx, keySize)
				elapsed := time.Since(iterStart)

				if err != nil && errors.Is(err, ctx.Err()) {
					// Interrupted, not failed.
					return
				}

				mu.Lock()
				if err != nil {
					errCount++
					if r.config.Verbose {
						log.WithError(err).Warnf("%s-%d iteration failed", op.Name(), keySize)
					}
				} else {
					timings = append(timings, elapsed)
				}
				done++
				update := ProgressUpdate{
					Current:    done,
					Total:      totalIterations,
					Percentage: float64(done) / float64(totalIterations) * 100,
					Rate:       float64(done) / time.Since(startTime).Seconds(),
					Operation:  op.Name(),
					KeySize:    keySize,
				}
				mu.Unlock()

				if err == nil && sample.Public != nil && r.keySink != nil {
					r.keySink(sample)
				}
				r.publish(update)

				if progress != nil {
					progress.Add(1)
				}
			}
		}()
	}

	wg.Wait()

	result.TotalTime = time.Since(startTime)
	result.Errors = errCount
	result.Completed = len(timings)
	result.CompletedAt = time.Now()

	if len(timings) > 0 {
		result.AverageTime = calculateAverage(timings)
		result.MinTime = calculateMin(timings)
		result.MaxTime = calculateMax(timings)
		result.StdDev = calculateStdDev(timings, result.AverageTime)
		result.OpsPerSecond = float64(len(timings)) / result.TotalTime.Seconds()
	}

	finalCPU, _ := cpu.Percent(100*time.Millisecond, false)
	finalMem, _ := mem.VirtualMemory()

	if len(initialCPU) > 0 && len(finalCPU) > 0 {
		result.CPUUsage = finalCPU[0] - initialCPU[0]
	}

	if initialMem != nil && finalMem != nil && finalMem.Used > initialMem.Used {
		result.MemoryUsed = finalMem.Used - initialMem.Used
	}

	runtime.GC()

	if err := parent.Err(); err != nil {
		return result, fmt.Errorf("benchmark %s-%d interrupted: %w", op.Name(), keySize, err)
	}
	if r.config.Verbose && ctx.Err() != nil {
		log.Warnf("%s-%d hit the %ds timeout after %d iterations", op.Name(), keySize, r.config.Timeout, done)
	}

	return result, nil
}

func (r *Runner) publish(update ProgressUpdate) {
	if r.progress == nil {
		return
	}
	select {
	case r.progress <- update:
	default:
	}
}

func calculateAverage(timings []time.Duration) time.Duration {
	if len(timings) == 0 {
		return 0
	}

	var sum time.Duration
	for _, t := range timings {
		sum += t
	}
	return sum / time.Duration(len(timings))
}

func calculateMin(timings []time.Duration) time.Duration {
	if len(timings) == 0 {
		return 0
	}

	min := timings[0]
	for _, t := range timings[1:] {
		if t < min {
			min = t
		}
	}
	return min
}

func calculateMax(timings []time.Duration) time.Duration {
	if len(timings) == 0 {
		return 0
	}

	max := timings[0]
	for _, t := range timings[1:] {
		if t > max {
			max = t
		}
	}
	return max
}

func calculateStdDev(timings []time.Duration, avg time.Duration) time.Duration {
	if len(timings) <= 1 {
		return 0
	}

	var sum float64
	avgFloat := float64(avg)

	for _, t := range timings {
		diff := float64(t) - avgFloat
		sum += diff * diff
	}

	variance := sum / float64(len(timings)-1)
	stdDev := math.Sqrt(variance)

	return time.Duration(stdDev)
}
