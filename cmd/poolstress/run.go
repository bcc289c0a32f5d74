package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pavanmanishd/slabpool"
)

var (
	runProducers    int
	runConsumers    int
	runOps          int
	runBlockSize    int
	runMaxBlocks    int
	runStaticBlocks int
	runMemoryLimit  uint64
	runMetricsAddr  string
	runDumpMetrics  bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a producer/consumer soak against the pool",
	Long: `Run builds a pool from the configuration file (or defaults), applies any
flag overrides, and runs producers and consumers until every producer has
finished its operations. It exits non-zero if a slot was handed out twice,
a record changed while live, or the pool did not drain.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := LoadConfigFile(configPath)
		if err != nil {
			return err
		}
		applyRunFlags(cmd, &cfg)
		if verbose {
			cfg.Log.Level = "debug"
		}
		if err := cfg.Validate(); err != nil {
			return err
		}

		log, err := cfg.Log.Build()
		if err != nil {
			return err
		}
		defer func() { _ = log.Sync() }()
		slabpool.SetLogger(log)

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		return runStress(ctx, cfg, log, cmd.OutOrStdout())
	},
}

func init() {
	f := runCmd.Flags()
	f.IntVar(&runProducers, "producers", 0, "Producer goroutines")
	f.IntVar(&runConsumers, "consumers", 0, "Consumer goroutines")
	f.IntVar(&runOps, "ops", 0, "Allocations per producer")
	f.IntVar(&runBlockSize, "block-size", 0, "Slots per block")
	f.IntVar(&runMaxBlocks, "max-blocks", 0, "Maximum number of blocks")
	f.IntVar(&runStaticBlocks, "static-blocks", 0, "Blocks that are never released")
	f.Uint64Var(&runMemoryLimit, "memory-limit", 0, "Byte budget for blocks (0 is unlimited)")
	f.StringVar(&runMetricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address while running")
	f.BoolVar(&runDumpMetrics, "dump-metrics", false, "Print the final Prometheus metrics")
	rootCmd.AddCommand(runCmd)
}

// applyRunFlags copies every flag the user set onto cfg.
func applyRunFlags(cmd *cobra.Command, cfg *Config) {
	f := cmd.Flags()
	if f.Changed("producers") {
		cfg.Load.Producers = runProducers
	}
	if f.Changed("consumers") {
		cfg.Load.Consumers = runConsumers
	}
	if f.Changed("ops") {
		cfg.Load.Operations = runOps
	}
	if f.Changed("block-size") {
		cfg.Pool.BlockSize = runBlockSize
	}
	if f.Changed("max-blocks") {
		cfg.Pool.MaxBlocks = runMaxBlocks
	}
	if f.Changed("static-blocks") {
		cfg.Pool.StaticBlocks = runStaticBlocks
	}
	if f.Changed("memory-limit") {
		cfg.Pool.MemoryLimit = runMemoryLimit
	}
}

func runStress(ctx context.Context, cfg Config, log *zap.Logger, out io.Writer) error {
	stress, err := NewStress(cfg, log)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(slabpool.NewCollector("poolstress", stress.Pool()))

	if runMetricsAddr != "" {
		ln, err := net.Listen("tcp", runMetricsAddr)
		if err != nil {
			return fmt.Errorf("listen %s: %w", runMetricsAddr, err)
		}
		srv := &http.Server{
			Handler:           promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Warn("metrics server stopped", zap.Error(err))
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
		log.Info("serving metrics", zap.String("addr", ln.Addr().String()))
	}

	report, runErr := stress.Run(ctx)
	printReport(out, report)
	if runDumpMetrics {
		if err := dumpMetrics(out, reg); err != nil {
			return errors.Join(runErr, err)
		}
	}
	return runErr
}

func printReport(out io.Writer, r Report) {
	fmt.Fprintf(out, "allocations:   %d\n", r.Allocations)
	fmt.Fprintf(out, "full retries:  %d\n", r.FullRetries)
	fmt.Fprintf(out, "oom events:    %d\n", r.OutOfMemory)
	fmt.Fprintf(out, "mismatches:    %d\n", r.Mismatches)
	fmt.Fprintf(out, "peak blocks:   %d/%d\n", r.PeakBlocks, r.Final.MaxBlocks)
	fmt.Fprintf(out, "final blocks:  %d\n", r.Final.Blocks)
	fmt.Fprintf(out, "duration:      %s\n", r.Duration)
}

func dumpMetrics(out io.Writer, reg *prometheus.Registry) error {
	families, err := reg.Gather()
	if err != nil {
		return fmt.Errorf("gather metrics: %w", err)
	}
	sort.Slice(families, func(i, j int) bool { return families[i].GetName() < families[j].GetName() })
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			fmt.Fprintf(out, "%s %g\n", mf.GetName(), m.GetGauge().GetValue())
		}
	}
	return nil
}
