package server

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/user/textrsa/internal/benchmark"
	"github.com/user/textrsa/internal/metrics"
	"github.com/user/textrsa/internal/storage"
)

const (
	StatusQueued     = "queued"
	StatusRunning    = "running"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
	StatusTerminated = "terminated"
)

var errPoolStopped = errors.New("worker pool is shutting down")

type BenchmarkJob struct {
	ID          string                        `json:"id"`
	Config      benchmark.Config              `json:"config"`
	Status      string                        `json:"status"`
	StartedAt   time.Time                     `json:"started_at"`
	UpdatedAt   time.Time                     `json:"updated_at"`
	CompletedAt *time.Time                    `json:"completed_at,omitempty"`
	Results     []benchmark.Result            `json:"results,omitempty"`
	Error       string                        `json:"error,omitempty"`
	Progress    chan benchmark.ProgressUpdate `json:"-"`
}

func (j BenchmarkJob) finished() bool {
	return j.CompletedAt != nil
}

type JobStore struct {
	mu   sync.RWMutex
	jobs map[string]*BenchmarkJob
}

func NewJobStore() *JobStore {
	return &JobStore{jobs: make(map[string]*BenchmarkJob)}
}

func (js *JobStore) Add(job *BenchmarkJob) {
	js.mu.Lock()
	defer js.mu.Unlock()
	js.jobs[job.ID] = job
}

func (js *JobStore) Remove(jobID string) {
	js.mu.Lock()
	defer js.mu.Unlock()
	delete(js.jobs, jobID)
}

// Get returns a snapshot, safe to read while the job keeps running.
func (js *JobStore) Get(jobID string) (BenchmarkJob, bool) {
	js.mu.RLock()
	defer js.mu.RUnlock()

	job, exists := js.jobs[jobID]
	if !exists {
		return BenchmarkJob{}, false
	}
	return *job, true
}

// List returns snapshots of every job, oldest first.
func (js *JobStore) List() []BenchmarkJob {
	js.mu.RLock()
	jobs := make([]BenchmarkJob, 0, len(js.jobs))
	for _, job := range js.jobs {
		jobs = append(jobs, *job)
	}
	js.mu.RUnlock()

	sort.Slice(jobs, func(i, j int) bool {
		return jobs[i].StartedAt.Before(jobs[j].StartedAt)
	})
	return jobs
}

func (js *JobStore) UpdateStatus(jobID, status string) {
	js.mu.Lock()
	defer js.mu.Unlock()

	if job, exists := js.jobs[jobID]; exists && job.CompletedAt == nil {
		job.Status = status
		job.UpdatedAt = time.Now()
	}
}

// CompleteJob records the outcome and returns the final status. A job that was
// terminated keeps that status along with the partial results.
func (js *JobStore) CompleteJob(jobID string, results []benchmark.Result, err error) string {
	js.mu.Lock()
	defer js.mu.Unlock()

	job, exists := js.jobs[jobID]
	if !exists {
		return ""
	}

	completedAt := time.Now()
	job.CompletedAt = &completedAt
	job.UpdatedAt = completedAt
	job.Results = results

	switch {
	case job.Status == StatusTerminated || errors.Is(err, context.Canceled):
		job.Status = StatusTerminated
	case err != nil:
		job.Status = StatusFailed
		job.Error = err.Error()
	default:
		job.Status = StatusCompleted
	}
	return job.Status
}

type WorkerPool struct {
	workers    int
	jobQueue   chan *BenchmarkJob
	wg         sync.WaitGroup
	ctx        context.Context
	cancel     context.CancelFunc
	jobStore   *JobStore
	keyStore   *storage.KeyStore
	defaults   benchmark.Config
	activeJobs map[string]context.CancelFunc
	mu         sync.Mutex
	stopped    bool
	log        log.FieldLogger
}

// NewWorkerPool returns a pool running jobs numWorkers at a time. Prime search
// settings missing from a job's config are taken from defaults.
func NewWorkerPool(ctx context.Context, numWorkers int, jobStore *JobStore, keyStore *storage.KeyStore, defaults benchmark.Config) *WorkerPool {
	if numWorkers <= 0 {
		numWorkers = 1
	}

	ctx, cancel := context.WithCancel(ctx)

	return &WorkerPool{
		workers:    numWorkers,
		jobQueue:   make(chan *BenchmarkJob, numWorkers*2),
		ctx:        ctx,
		cancel:     cancel,
		jobStore:   jobStore,
		keyStore:   keyStore,
		defaults:   defaults,
		activeJobs: make(map[string]context.CancelFunc),
		log:        log.WithField("component", "worker-pool"),
	}
}

func (wp *WorkerPool) Start() {
	wp.log.Infof("Starting worker pool with %d workers", wp.workers)

	for i := 0; i < wp.workers; i++ {
		wp.wg.Add(1)
		go wp.worker(i)
	}
}

func (wp *WorkerPool) Stop() {
	wp.mu.Lock()
	if wp.stopped {
		wp.mu.Unlock()
		return
	}
	wp.stopped = true
	wp.cancel()
	close(wp.jobQueue)
	wp.mu.Unlock()

	wp.wg.Wait()
	wp.log.Info("Worker pool stopped")
}

func (wp *WorkerPool) Submit(job *BenchmarkJob) error {
	wp.mu.Lock()
	defer wp.mu.Unlock()

	if wp.stopped || wp.ctx.Err() != nil {
		return errPoolStopped
	}

	select {
	case wp.jobQueue <- job:
		return nil
	default:
		return fmt.Errorf("job queue is full")
	}
}

func (wp *WorkerPool) worker(id int) {
	defer wp.wg.Done()
	logger := wp.log.WithField("worker", id)
	logger.Debug("worker started")

	for {
		select {
		case job, ok := <-wp.jobQueue:
			if !ok {
				logger.Debug("worker stopping")
				return
			}

			logger.WithField("job_id", job.ID).Info("processing job")
			wp.processJob(job)

		case <-wp.ctx.Done():
			logger.Debug("worker stopping due to context cancellation")
			return
		}
	}
}

func (wp *WorkerPool) TerminateJob(jobID string) {
	wp.mu.Lock()
	if cancel, exists := wp.activeJobs[jobID]; exists {
		cancel()
		delete(wp.activeJobs, jobID)
	}
	wp.mu.Unlock()
}

func (wp *WorkerPool) processJob(job *BenchmarkJob) {
	jobCtx, jobCancel := context.WithCancel(wp.ctx)

	wp.mu.Lock()
	wp.activeJobs[job.ID] = jobCancel
	wp.mu.Unlock()

	defer func() {
		wp.mu.Lock()
		delete(wp.activeJobs, job.ID)
		wp.mu.Unlock()
		jobCancel()
		if job.Progress != nil {
			close(job.Progress)
		}
	}()

	logger := wp.log.WithField("job_id", job.ID)

	// Terminated while queued.
	if current, ok := wp.jobStore.Get(job.ID); ok && current.Status == StatusTerminated {
		wp.finish(logger, job.ID, nil, context.Canceled)
		return
	}
	wp.jobStore.UpdateStatus(job.ID, StatusRunning)

	runner := benchmark.NewRunner(wp.jobConfig(job.Config))
	if job.Progress != nil {
		runner.SetProgressChannel(job.Progress)
	}
	runner.SetPrimeObserver(metrics.ObservePrime)
	runner.SetKeySink(func(sample benchmark.Sample) {
		wp.keyStore.Store(sample.Public, sample.Private, sample.Bits, job.ID)
	})

	results, err := runner.RunContext(jobCtx)
	metrics.StoredKeysTotal.Set(float64(wp.keyStore.Count()))
	wp.finish(logger, job.ID, results, err)
}

func (wp *WorkerPool) finish(logger log.FieldLogger, jobID string, results []benchmark.Result, err error) {
	status := wp.jobStore.CompleteJob(jobID, results, err)
	metrics.BenchmarkJobsCount.WithLabelValues(status).Inc()

	entry := logger.WithFields(log.Fields{
		"status":  status,
		"results": len(results),
	})
	if status == StatusFailed {
		entry.WithError(err).Warn("job failed")
		return
	}
	entry.Info("job finished")
}

func (wp *WorkerPool) jobConfig(cfg benchmark.Config) benchmark.Config {
	if cfg.Workers == 0 {
		cfg.Workers = wp.defaults.Workers
	}
	if cfg.Rounds == 0 {
		cfg.Rounds = wp.defaults.Rounds
	}
	return cfg
}
