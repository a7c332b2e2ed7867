package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/flowmd/itchmd/internal/model"
	"github.com/flowmd/itchmd/internal/pipeline"
)

var statsDuration time.Duration

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Run the pipeline briefly and print a final statistics snapshot",
	Long: `stats starts the pipeline, lets it run for --duration, stops it, and
prints the resulting Statistics snapshot. Since the pipeline is strictly
in-process (no cross-process delivery), this is the diagnostic
equivalent of attaching to a running instance.`,
	RunE: runStats,
}

func init() {
	statsCmd.Flags().DurationVar(&statsDuration, "duration", 5*time.Second, "how long to run before snapshotting")
	rootCmd.AddCommand(statsCmd)
}

type discardSubscriber struct{}

func (discardSubscriber) Name() string               { return "discard" }
func (discardSubscriber) Initialize() error           { return nil }
func (discardSubscriber) OnMessage(model.Record) bool { return true }
func (discardSubscriber) Shutdown()                   {}

func runStats(cmd *cobra.Command, args []string) error {
	cfg := pipeline.DefaultConfig()
	if configPath != "" {
		loaded, err := pipeline.LoadConfig(configPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = loaded
	}

	pl, err := pipeline.New(cfg, nil, nil)
	if err != nil {
		return fmt.Errorf("build pipeline: %w", err)
	}
	if err := pl.RegisterSubscriber(discardSubscriber{}); err != nil {
		return fmt.Errorf("register subscriber: %w", err)
	}
	if err := pl.Start(); err != nil {
		return fmt.Errorf("start pipeline: %w", err)
	}

	time.Sleep(statsDuration)
	pl.Stop()

	snap := pl.Statistics()
	fmt.Printf("packets_received:    %d\n", snap.PacketsReceived)
	fmt.Printf("packets_dropped:      %d\n", snap.PacketsDropped)
	fmt.Printf("messages_parsed:      %d\n", snap.MessagesParsed)
	fmt.Printf("parse_errors:         %d\n", snap.ParseErrors)
	fmt.Printf("messages_dispatched:  %d\n", snap.MessagesDispatched)
	fmt.Printf("fan_out_drops:        %d\n", snap.FanOutDrops)
	fmt.Printf("min_latency_ns:       %d\n", snap.MinLatencyNs)
	fmt.Printf("max_latency_ns:       %d\n", snap.MaxLatencyNs)
	fmt.Printf("avg_latency_ns:       %.1f\n", snap.AvgLatencyNs())
	return nil
}
