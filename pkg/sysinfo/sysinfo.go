package sysinfo

import (
	"context"
	"math/bits"
	"runtime"
	"strings"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/load"
	"github.com/shirou/gopsutil/v3/mem"
)

type SystemInfo struct {
	OS           string  `json:"os"`
	Architecture string  `json:"architecture"`
	CPUModel     string  `json:"cpu_model"`
	CPUCores     int     `json:"cpu_cores"`
	CPUThreads   int     `json:"cpu_threads"`
	TotalMemory  uint64  `json:"total_memory"`
	GoVersion    string  `json:"go_version"`
	Hostname     string  `json:"hostname"`
	Platform     string  `json:"platform"`
	LoadAverage  float64 `json:"load_average"`
	WordSize     int     `json:"word_size"`
}

func Collect() (*SystemInfo, error) {
	return CollectContext(context.Background())
}

// CollectContext gathers host details. Probes that fail leave their fields empty;
// only cancellation of ctx is reported.
func CollectContext(ctx context.Context) (*SystemInfo, error) {
	info := &SystemInfo{
		OS:           runtime.GOOS,
		Architecture: runtime.GOARCH,
		GoVersion:    runtime.Version(),
		CPUCores:     runtime.NumCPU(),
		// big.Int arithmetic runs on machine words of this width.
		WordSize: bits.UintSize,
	}

	cpuInfo, err := cpu.InfoWithContext(ctx)
	if err == nil && len(cpuInfo) > 0 {
		info.CPUModel = strings.TrimSpace(cpuInfo[0].ModelName)
	}

	// Logical count
	threads, err := cpu.CountsWithContext(ctx, true)
	if err == nil {
		info.CPUThreads = threads
	}

	memInfo, err := mem.VirtualMemoryWithContext(ctx)
	if err == nil {
		info.TotalMemory = memInfo.Total
	}

	hostInfo, err := host.InfoWithContext(ctx)
	if err == nil {
		info.Hostname = hostInfo.Hostname
		info.Platform = hostInfo.Platform
	}

	loadAvg, err := load.AvgWithContext(ctx)
	if err == nil {
		info.LoadAverage = loadAvg.Load1
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return info, nil
}
