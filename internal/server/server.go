package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"runtime"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"

	"github.com/user/textrsa/internal/benchmark"
	"github.com/user/textrsa/internal/config"
	"github.com/user/textrsa/internal/message"
	"github.com/user/textrsa/internal/metrics"
	"github.com/user/textrsa/internal/storage"
	"github.com/user/textrsa/pkg/sysinfo"
	"github.com/user/textrsa/pkg/textbook"
)

// MaxKeyBits caps the prime bit length accepted from requests.
const MaxKeyBits = 4096

type Server struct {
	router     *mux.Router
	httpServer *http.Server
	keyStore   *storage.KeyStore
	keys       *textbook.KeyPairGenerator
	cipher     textbook.CipherEngine
	jobStore   *JobStore
	workerPool *WorkerPool
	sysInfo    *sysinfo.SystemInfo
	registry   *prometheus.Registry
	upgrader   websocket.Upgrader
	bits       int
	log        log.FieldLogger
}

type keyRequest struct {
	Bits int `json:"bits"`
}

type keyResponse struct {
	ID          string     `json:"id"`
	Bits        int        `json:"bits"`
	ModulusBits int        `json:"modulus_bits"`
	E           string     `json:"e"`
	N           string     `json:"n"`
	BenchmarkID string     `json:"benchmark_id,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
}

type encryptRequest struct {
	Message    *string `json:"message,omitempty"`
	MessageHex string  `json:"message_hex,omitempty"`
}

type encryptResponse struct {
	CiphertextHex string `json:"ciphertext_hex"`
}

type decryptRequest struct {
	CiphertextHex string `json:"ciphertext_hex"`
}

type decryptResponse struct {
	MessageHex string `json:"message_hex"`
	Message    string `json:"message"`
}

// NewServer wires the key store, job queue and routes. Background goroutines stop
// when ctx is done or Shutdown is called.
func NewServer(ctx context.Context, cfg config.Config) (*Server, error) {
	sysInfo, err := sysinfo.CollectContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to collect system info: %w", err)
	}

	registry := prometheus.NewRegistry()
	if err := metrics.Register(registry); err != nil {
		return nil, fmt.Errorf("failed to register metrics: %w", err)
	}
	if err := registry.Register(collectors.NewGoCollector()); err != nil {
		return nil, fmt.Errorf("failed to register metrics: %w", err)
	}

	keyStore := storage.NewKeyStore(ctx, cfg.KeyTTL)
	jobStore := NewJobStore()

	s := &Server{
		router:   mux.NewRouter(),
		keyStore: keyStore,
		keys:     cfg.KeyPairGenerator(textbook.WithObserver(metrics.ObservePrime)),
		cipher:   textbook.CipherEngine{CheckRange: true},
		jobStore: jobStore,
		sysInfo:  sysInfo,
		registry: registry,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		bits: cfg.Bits,
		log:  log.WithField("component", "server"),
	}

	s.workerPool = NewWorkerPool(ctx, cfg.JobWorkers, jobStore, keyStore, benchmark.Config{
		Workers: cfg.Workers,
		Rounds:  cfg.Rounds,
	})

	s.setupRoutes()
	s.httpServer = &http.Server{
		Addr:              cfg.ListenAddress,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s, nil
}

func (s *Server) setupRoutes() {
	api := s.router.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/system-info", s.handleSystemInfo).Methods("GET")
	api.HandleFunc("/keys", s.handleCreateKey).Methods("POST")
	api.HandleFunc("/keys", s.handleListKeys).Methods("GET")
	api.HandleFunc("/keys/{id}", s.handleGetKey).Methods("GET")
	api.HandleFunc("/keys/{id}", s.handleDeleteKey).Methods("DELETE")
	api.HandleFunc("/keys/{id}/encrypt", s.handleEncrypt).Methods("POST")
	api.HandleFunc("/keys/{id}/decrypt", s.handleDecrypt).Methods("POST")
	api.HandleFunc("/benchmarks", s.handleCreateBenchmark).Methods("POST")
	api.HandleFunc("/benchmarks", s.handleListBenchmarks).Methods("GET")
	api.HandleFunc("/benchmarks/{id}", s.handleGetBenchmark).Methods("GET")
	api.HandleFunc("/benchmarks/{id}/progress", s.handleBenchmarkProgress).Methods("GET")
	api.HandleFunc("/benchmarks/{id}/terminate", s.handleTerminateBenchmark).Methods("POST")

	s.router.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves until Shutdown is called.
func (s *Server) Start() error {
	s.workerPool.Start()

	s.log.WithFields(log.Fields{
		"address":     s.httpServer.Addr,
		"job_workers": s.workerPool.workers,
	}).Info("textrsa server starting")

	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	err := s.httpServer.Shutdown(ctx)
	s.workerPool.Stop()
	return err
}

func (s *Server) handleSystemInfo(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.sysInfo)
}

func (s *Server) handleCreateKey(w http.ResponseWriter, r *http.Request) {
	var req keyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.Bits == 0 {
		req.Bits = s.bits
	}
	if req.Bits > MaxKeyBits {
		http.Error(w, fmt.Sprintf("bits must not exceed %d", MaxKeyBits), http.StatusBadRequest)
		return
	}

	start := time.Now()
	pub, priv, err := s.keys.GenerateKeyPair(r.Context(), req.Bits)
	metrics.ObserveKeyGeneration(req.Bits, time.Since(start).Seconds(), err)
	if err != nil {
		s.writeError(w, err)
		return
	}

	key := s.keyStore.Store(pub, priv, req.Bits, "")
	metrics.StoredKeysTotal.Set(float64(s.keyStore.Count()))

	s.log.WithFields(log.Fields{
		"key_id": key.ID,
		"bits":   req.Bits,
	}).Info("key pair generated")

	writeJSON(w, http.StatusCreated, newKeyResponse(key))
}

func (s *Server) handleListKeys(w http.ResponseWriter, r *http.Request) {
	benchmarkID := r.URL.Query().Get("benchmark_id")

	var keys []*storage.StoredKey
	if benchmarkID != "" {
		keys = s.keyStore.GetKeysByBenchmark(benchmarkID)
	} else {
		keys = s.keyStore.GetAllKeys()
		metrics.StoredKeysTotal.Set(float64(len(keys)))
	}

	response := make([]keyResponse, 0, len(keys))
	for _, key := range keys {
		response = append(response, newKeyResponse(key))
	}
	writeJSON(w, http.StatusOK, response)
}

func (s *Server) handleGetKey(w http.ResponseWriter, r *http.Request) {
	key, ok := s.lookupKey(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, newKeyResponse(key))
}

func (s *Server) handleDeleteKey(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	if !s.keyStore.DeleteKey(id) {
		http.Error(w, "Key not found", http.StatusNotFound)
		return
	}
	metrics.StoredKeysTotal.Set(float64(s.keyStore.Count()))
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleEncrypt(w http.ResponseWriter, r *http.Request) {
	key, ok := s.lookupKey(w, r)
	if !ok {
		return
	}

	var req encryptRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	var m *big.Int
	switch {
	case req.Message != nil && req.MessageHex != "":
		http.Error(w, "set either message or message_hex, not both", http.StatusBadRequest)
		return
	case req.Message != nil:
		m = message.FromString(*req.Message)
	default:
		var err error
		if m, err = message.ParseHex(req.MessageHex); err != nil {
			s.writeError(w, err)
			return
		}
	}

	c, err := s.cipher.Encrypt(key.Public, m)
	metrics.ObserveCipher("encrypt", err)
	if err != nil {
		s.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, encryptResponse{CiphertextHex: message.FormatHex(c)})
}

func (s *Server) handleDecrypt(w http.ResponseWriter, r *http.Request) {
	key, ok := s.lookupKey(w, r)
	if !ok {
		return
	}

	var req decryptRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	c, err := message.ParseHex(req.CiphertextHex)
	if err != nil {
		s.writeError(w, err)
		return
	}

	m, err := s.cipher.Decrypt(key.Private(), c)
	metrics.ObserveCipher("decrypt", err)
	if err != nil {
		s.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, decryptResponse{
		MessageHex: message.FormatHex(m),
		Message:    message.ToString(m),
	})
}

func (s *Server) handleCreateBenchmark(w http.ResponseWriter, r *http.Request) {
	var cfg benchmark.Config
	if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	for _, size := range cfg.KeySizes {
		if size > MaxKeyBits {
			http.Error(w, fmt.Sprintf("key sizes must not exceed %d", MaxKeyBits), http.StatusBadRequest)
			return
		}
	}
	if cfg.Parallel == 0 {
		cfg.Parallel = runtime.NumCPU()
	}
	// Progress goes over the websocket, never to the server's stdout.
	cfg.ShowProgress = false

	s.log.WithFields(log.Fields{
		"operations": cfg.Operations,
		"key_sizes":  cfg.KeySizes,
		"parallel":   cfg.Parallel,
		"iterations": cfg.Iterations,
	}).Info("creating benchmark job")

	now := time.Now()
	job := &BenchmarkJob{
		ID:        uuid.New().String(),
		Config:    cfg,
		Status:    StatusQueued,
		StartedAt: now,
		UpdatedAt: now,
		Progress:  make(chan benchmark.ProgressUpdate, 100),
	}

	s.jobStore.Add(job)

	if err := s.workerPool.Submit(job); err != nil {
		s.jobStore.Remove(job.ID)
		http.Error(w, "Server is busy, please try again later", http.StatusServiceUnavailable)
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]string{
		"job_id": job.ID,
		"status": StatusQueued,
	})
}

func (s *Server) handleListBenchmarks(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.jobStore.List())
}

func (s *Server) handleGetBenchmark(w http.ResponseWriter, r *http.Request) {
	job, exists := s.jobStore.Get(mux.Vars(r)["id"])
	if !exists {
		http.Error(w, "Benchmark not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, job)
}

func (s *Server) handleTerminateBenchmark(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	job, exists := s.jobStore.Get(id)
	if !exists {
		http.Error(w, "Benchmark not found", http.StatusNotFound)
		return
	}
	if job.finished() {
		http.Error(w, fmt.Sprintf("Benchmark already %s", job.Status), http.StatusConflict)
		return
	}

	s.jobStore.UpdateStatus(id, StatusTerminated)
	s.workerPool.TerminateJob(id)

	writeJSON(w, http.StatusOK, map[string]string{
		"status":  StatusTerminated,
		"message": "Benchmark termination initiated",
	})
}

func (s *Server) handleBenchmarkProgress(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	job, exists := s.jobStore.Get(id)
	if !exists {
		http.Error(w, "Benchmark not found", http.StatusNotFound)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.WithError(err).Warn("websocket upgrade failed")
		return
	}
	defer conn.Close()

	progress := job.Progress
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case update, ok := <-progress:
			if !ok {
				progress = nil
				continue
			}
			err := conn.WriteJSON(map[string]any{
				"status":     StatusRunning,
				"completed":  false,
				"current":    update.Current,
				"total":      update.Total,
				"percentage": update.Percentage,
				"rate":       update.Rate,
				"operation":  update.Operation,
				"key_size":   update.KeySize,
			})
			if err != nil {
				return
			}
		case <-ticker.C:
			current, exists := s.jobStore.Get(id)
			if !exists {
				return
			}
			if current.finished() {
				conn.WriteJSON(map[string]any{
					"status":    current.Status,
					"completed": true,
					"error":     current.Error,
				})
				return
			}
		case <-r.Context().Done():
			return
		}
	}
}

func (s *Server) lookupKey(w http.ResponseWriter, r *http.Request) (*storage.StoredKey, bool) {
	key, exists := s.keyStore.GetKey(mux.Vars(r)["id"])
	if !exists {
		http.Error(w, "Key not found", http.StatusNotFound)
		return nil, false
	}
	return key, true
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.log.WithError(err).Error("request failed")
	}
	http.Error(w, err.Error(), status)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, textbook.ErrInvalidArgument),
		errors.Is(err, textbook.ErrMessageRange),
		errors.Is(err, textbook.ErrNotInvertible):
		return http.StatusBadRequest
	case errors.Is(err, textbook.ErrPrimeGeneration),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func newKeyResponse(key *storage.StoredKey) keyResponse {
	return keyResponse{
		ID:          key.ID,
		Bits:        key.Bits,
		ModulusBits: key.Public.Size(),
		E:           message.FormatHex(key.Public.E),
		N:           message.FormatHex(key.Public.N),
		BenchmarkID: key.BenchmarkID,
		CreatedAt:   key.CreatedAt,
		ExpiresAt:   key.ExpiresAt,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
