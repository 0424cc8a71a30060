package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/user/textrsa/internal/benchmark"
	"github.com/user/textrsa/internal/output"
	"github.com/user/textrsa/pkg/sysinfo"
)

func (a *app) benchCmd() *cobra.Command {
	var (
		operations   []string
		keySizes     []int
		iterations   int
		parallel     int
		outputFormat string
		outputFile   string
		verbose      bool
		showProgress bool
		timeout      int
	)

	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Benchmark prime search, key generation and encrypt/decrypt round trips",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			w := cmd.OutOrStdout()

			sysInfo, err := sysinfo.CollectContext(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to collect system info: %w", err)
			}

			if verbose {
				fmt.Fprintf(w, "System Information:\n")
				fmt.Fprintf(w, "  OS: %s\n", sysInfo.OS)
				fmt.Fprintf(w, "  Architecture: %s (%d-bit words)\n", sysInfo.Architecture, sysInfo.WordSize)
				fmt.Fprintf(w, "  CPU: %s (%d cores)\n", sysInfo.CPUModel, sysInfo.CPUCores)
				fmt.Fprintf(w, "  Memory: %.2f GB\n", float64(sysInfo.TotalMemory)/(1024*1024*1024))
				fmt.Fprintf(w, "  Go Version: %s\n", sysInfo.GoVersion)
				fmt.Fprintln(w)
			}

			formatter, err := output.NewFormatter(outputFormat)
			if err != nil {
				return fmt.Errorf("invalid output format: %w", err)
			}

			if len(keySizes) == 0 {
				keySizes = []int{a.cfg.Bits}
			}

			config := benchmark.Config{
				Operations:   operations,
				KeySizes:     keySizes,
				Iterations:   iterations,
				Parallel:     parallel,
				Workers:      a.cfg.Workers,
				Rounds:       a.cfg.Rounds,
				ShowProgress: showProgress,
				Timeout:      timeout,
				Verbose:      verbose,
			}

			results, err := benchmark.NewRunner(config).RunContext(cmd.Context())
			if err != nil {
				return fmt.Errorf("benchmark failed: %w", err)
			}

			var writer io.Writer = w
			if outputFile != "" {
				f, err := os.Create(outputFile)
				if err != nil {
					return fmt.Errorf("failed to create output file: %w", err)
				}
				defer f.Close()
				writer = f
			}

			outputData := output.Data{
				SystemInfo: sysInfo,
				Results:    results,
				Config:     config,
			}
			if err := formatter.Format(writer, outputData); err != nil {
				return fmt.Errorf("failed to format output: %w", err)
			}
			return nil
		},
	}

	cmd.Flags().StringSliceVarP(&operations, "operations", "a", []string{benchmark.OperationKeygen}, "Operations to benchmark (prime, keygen, roundtrip)")
	cmd.Flags().IntSliceVarP(&keySizes, "key-sizes", "k", nil, "Prime bit lengths to test (default: --bits)")
	cmd.Flags().IntVarP(&iterations, "iterations", "i", 10, "Number of iterations per test")
	cmd.Flags().IntVarP(&parallel, "parallel", "p", 1, "Number of parallel runs")
	cmd.Flags().StringVarP(&outputFormat, "format", "f", "table", "Output format (table, json, csv)")
	cmd.Flags().StringVarP(&outputFile, "output", "o", "", "Output file (default: stdout)")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output")
	cmd.Flags().BoolVar(&showProgress, "progress", true, "Show progress bar")
	cmd.Flags().IntVarP(&timeout, "timeout", "t", 300, "Timeout in seconds per test")
	return cmd
}
