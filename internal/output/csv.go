package output

import (
	"encoding/csv"
	"fmt"
	"io"
	"time"

	"github.com/user/textrsa/pkg/sysinfo"
)

type CSVFormatter struct{}

func (c *CSVFormatter) Format(w io.Writer, data Data) error {
	writer := csv.NewWriter(w)

	header := []string{
		"Timestamp",
		"Operation",
		"PrimeBits",
		"Iterations",
		"Parallel",
		"Completed",
		"TotalTime(ms)",
		"AverageTime(ms)",
		"MinTime(ms)",
		"MaxTime(ms)",
		"StdDev(ms)",
		"OpsPerSecond",
		"CPUUsage(%)",
		"MemoryUsed(MB)",
		"Errors",
		"OS",
		"Architecture",
		"CPUModel",
		"CPUCores",
		"WordSize",
		"TotalMemory(GB)",
	}

	if err := writer.Write(header); err != nil {
		return err
	}

	info := data.SystemInfo
	if info == nil {
		info = &sysinfo.SystemInfo{}
	}

	for _, result := range data.Results {
		row := []string{
			result.CompletedAt.Format(time.RFC3339),
			result.Operation,
			fmt.Sprintf("%d", result.KeySize),
			fmt.Sprintf("%d", result.Iterations),
			fmt.Sprintf("%d", result.Parallel),
			fmt.Sprintf("%d", result.Completed),
			fmt.Sprintf("%.2f", float64(result.TotalTime.Nanoseconds())/1e6),
			fmt.Sprintf("%.2f", float64(result.AverageTime.Nanoseconds())/1e6),
			fmt.Sprintf("%.2f", float64(result.MinTime.Nanoseconds())/1e6),
			fmt.Sprintf("%.2f", float64(result.MaxTime.Nanoseconds())/1e6),
			fmt.Sprintf("%.2f", float64(result.StdDev.Nanoseconds())/1e6),
			fmt.Sprintf("%.2f", result.OpsPerSecond),
			fmt.Sprintf("%.2f", result.CPUUsage),
			fmt.Sprintf("%.2f", float64(result.MemoryUsed)/(1024*1024)),
			fmt.Sprintf("%d", result.Errors),
			info.OS,
			info.Architecture,
			info.CPUModel,
			fmt.Sprintf("%d", info.CPUCores),
			fmt.Sprintf("%d", info.WordSize),
			fmt.Sprintf("%.2f", float64(info.TotalMemory)/(1024*1024*1024)),
		}

		if err := writer.Write(row); err != nil {
			return err
		}
	}

	writer.Flush()
	return writer.Error()
}
