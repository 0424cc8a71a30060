package output

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/olekukonko/tablewriter"
)

type TableFormatter struct{}

func (t *TableFormatter) Format(w io.Writer, data Data) error {
	fmt.Fprintln(w, "\nBenchmark Results")
	fmt.Fprintln(w, "================")
	if info := data.SystemInfo; info != nil {
		fmt.Fprintf(w, "%s/%s, %s (%d cores), %d-bit words, %s\n",
			info.OS, info.Architecture, info.CPUModel, info.CPUCores, info.WordSize, info.GoVersion)
	}
	fmt.Fprintln(w)

	table := newTable(w)
	table.SetHeader([]string{
		"Operation",
		"Prime Bits",
		"Runs",
		"Completed",
		"Avg Time",
		"Min Time",
		"Max Time",
		"Std Dev",
		"Ops/Sec",
		"CPU %",
		"Memory MB",
		"Errors",
	})

	for _, r := range data.Results {
		table.Append([]string{
			r.Operation,
			strconv.Itoa(r.KeySize),
			fmt.Sprintf("%dx%d", r.Parallel, r.Iterations),
			strconv.Itoa(r.Completed),
			formatDuration(r.AverageTime),
			formatDuration(r.MinTime),
			formatDuration(r.MaxTime),
			formatDuration(r.StdDev),
			fmt.Sprintf("%.2f", r.OpsPerSecond),
			fmt.Sprintf("%.1f", r.CPUUsage),
			fmt.Sprintf("%.2f", float64(r.MemoryUsed)/(1024*1024)),
			strconv.Itoa(r.Errors),
		})
	}

	table.Render()

	s := summarize(data.Results)
	fmt.Fprintf(w, "\n%d operations completed, %d failed in %s",
		s.completed, s.errors, formatDuration(time.Duration(s.totalTime*float64(time.Second))))
	if s.totalTime > 0 {
		fmt.Fprintf(w, " (%.2f ops/sec)", s.throughput())
	}
	fmt.Fprintln(w)

	return nil
}

func newTable(w io.Writer) *tablewriter.Table {
	table := tablewriter.NewWriter(w)
	table.SetBorder(false)
	table.SetCenterSeparator("|")
	table.SetColumnSeparator("|")
	table.SetRowSeparator("-")
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	return table
}

func formatDuration(d time.Duration) string {
	if d < time.Millisecond {
		return fmt.Sprintf("%.2fµs", float64(d.Nanoseconds())/1000)
	} else if d < time.Second {
		return fmt.Sprintf("%.2fms", float64(d.Nanoseconds())/1e6)
	} else if d < time.Minute {
		return fmt.Sprintf("%.2fs", d.Seconds())
	}
	return fmt.Sprintf("%.2fm", d.Minutes())
}
