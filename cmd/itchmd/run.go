package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/flowmd/itchmd/internal/model"
	"github.com/flowmd/itchmd/internal/obs"
	"github.com/flowmd/itchmd/internal/pipeline"
)

var (
	runProd        bool
	runMetricsAddr string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the pipeline and run until interrupted",
	RunE:  runPipeline,
}

func init() {
	runCmd.Flags().BoolVar(&runProd, "prod", false, "use production (JSON) logging")
	runCmd.Flags().StringVar(&runMetricsAddr, "metrics-addr", ":9100", "address to serve /metrics on")
	rootCmd.AddCommand(runCmd)
}

func runPipeline(cmd *cobra.Command, args []string) error {
	logger, syncLogger := obs.NewLogger(runProd)
	defer syncLogger()

	cfg := pipeline.DefaultConfig()
	if configPath != "" {
		loaded, err := pipeline.LoadConfig(configPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = loaded
	}

	reg := prometheus.NewRegistry()
	metrics := obs.NewMetrics(reg, nil)

	pl, err := pipeline.New(cfg, nil, metrics.ObserveLatency)
	if err != nil {
		return fmt.Errorf("build pipeline: %w", err)
	}
	metrics.SetStats(pl.Stats())

	if err := pl.RegisterSubscriber(newLogSubscriber(logger)); err != nil {
		return fmt.Errorf("register demo subscriber: %w", err)
	}

	if err := pl.Start(); err != nil {
		return fmt.Errorf("start pipeline: %w", err)
	}
	logger.Info("pipeline started", "multicast_group", cfg.MulticastGroup, "port", cfg.Port)

	ctx, cancel := context.WithCancel(context.Background())
	metricsErrCh := obs.ServeMetrics(ctx, runMetricsAddr, reg)

	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	for {
		select {
		case <-ticker.C:
			metrics.Sync()
			snap := pl.Statistics()
			logger.Info("statistics",
				"packets_received", snap.PacketsReceived,
				"packets_dropped", snap.PacketsDropped,
				"messages_parsed", snap.MessagesParsed,
				"parse_errors", snap.ParseErrors,
				"messages_dispatched", snap.MessagesDispatched,
				"fan_out_drops", snap.FanOutDrops,
				"avg_latency_ns", snap.AvgLatencyNs(),
			)
		case err := <-metricsErrCh:
			if err != nil {
				logger.Error("metrics server failed", "error", err)
			}
		case <-sigCh:
			logger.Info("shutdown requested")
			cancel()
			pl.Stop()
			logger.Info("shutdown complete")
			return nil
		}
	}
}

// logSubscriber is the pipeline's demo subscriber: it logs every record
// at debug level and never unsubscribes.
type logSubscriber struct {
	logger *slog.Logger
}

func newLogSubscriber(logger *slog.Logger) *logSubscriber {
	return &logSubscriber{logger: logger}
}

func (s *logSubscriber) Name() string { return "log" }

func (s *logSubscriber) Initialize() error {
	s.logger.Info("log subscriber initialized")
	return nil
}

func (s *logSubscriber) OnMessage(rec model.Record) bool {
	s.logger.Debug("record",
		"kind", rec.Kind.String(),
		"instrument_id", rec.InstrumentID,
		"order_id", rec.OrderID,
		"side", rec.Side.String(),
		"quantity", rec.Quantity,
		"price", rec.Price,
	)
	return true
}

func (s *logSubscriber) Shutdown() {
	s.logger.Info("log subscriber shutting down")
}
