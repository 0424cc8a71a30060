package benchmark

import "time"

type Config struct {
	Operations   []string `json:"operations"`
	KeySizes     []int    `json:"key_sizes"`
	Iterations   int      `json:"iterations"`
	Parallel     int      `json:"parallel"`
	Workers      int      `json:"workers"`
	Rounds       int      `json:"rounds"`
	ShowProgress bool     `json:"show_progress"`
	Timeout      int      `json:"timeout"`
	Verbose      bool     `json:"verbose"`
}

type Result struct {
	Operation    string        `json:"operation"`
	KeySize      int           `json:"key_size"`
	Iterations   int           `json:"iterations"`
	Parallel     int           `json:"parallel"`
	TotalTime    time.Duration `json:"total_time"`
	AverageTime  time.Duration `json:"average_time"`
	MinTime      time.Duration `json:"min_time"`
	MaxTime      time.Duration `json:"max_time"`
	StdDev       time.Duration `json:"std_dev"`
	OpsPerSecond float64       `json:"ops_per_second"`
	CPUUsage     float64       `json:"cpu_usage"`
	MemoryUsed   uint64        `json:"memory_used"`
	Completed    int           `json:"completed"`
	Errors       int           `json:"errors"`
	CompletedAt  time.Time     `json:"completed_at"`
}

// ProgressUpdate is published after every finished iteration.
type ProgressUpdate struct {
	Current    int     `json:"current"`
	Total      int     `json:"total"`
	Percentage float64 `json:"percentage"`
	Rate       float64 `json:"rate"`
	Operation  string  `json:"operation"`
	KeySize    int     `json:"key_size"`
}

const (
	defaultTimeout    = 300
	defaultIterations = 10
)

func (c Config) withDefaults() Config {
	if len(c.Operations) == 0 {
		c.Operations = []string{OperationKeygen}
	}
	if c.Iterations < 1 {
		c.Iterations = defaultIterations
	}
	if c.Parallel < 1 {
		c.Parallel = 1
	}
	if c.Workers < 1 {
		c.Workers = 1
	}
	if c.Timeout < 1 {
		c.Timeout = defaultTimeout
	}
	return c
}
