package output

import (
	"fmt"
	"io"

	"github.com/user/textrsa/internal/benchmark"
	"github.com/user/textrsa/pkg/sysinfo"
)

type Data struct {
	SystemInfo *sysinfo.SystemInfo
	Results    []benchmark.Result
	Config     benchmark.Config
}

type Formatter interface {
	Format(w io.Writer, data Data) error
}

func NewFormatter(format string) (Formatter, error) {
	switch format {
	case "table":
		return &TableFormatter{}, nil
	case "json":
		return &JSONFormatter{}, nil
	case "csv":
		return &CSVFormatter{}, nil
	default:
		return nil, fmt.Errorf("unsupported format: %s", format)
	}
}

type summary struct {
	completed int
	errors    int
	totalTime float64
}

func summarize(results []benchmark.Result) summary {
	var s summary
	for _, result := range results {
		s.completed += result.Completed
		s.errors += result.Errors
		s.totalTime += result.TotalTime.Seconds()
	}
	return s
}

func (s summary) throughput() float64 {
	if s.totalTime <= 0 {
		return 0
	}
	return float64(s.completed) / s.totalTime
}
