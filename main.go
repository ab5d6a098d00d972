package main

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"chorus/arbiter"
	"chorus/config"
	"chorus/engine"
	"chorus/log"
	"chorus/monitoring"
	"chorus/sysmon"
	"chorus/ui"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
)

var (
	version = "1.0.0"

	configFlag  string
	agentsFlag  string
	statusEvery time.Duration

	rootCmd = &cobra.Command{
		Use:   "chorus",
		Short: "Chorus - an adaptive multi-agent activity scheduler",
		RunE: func(cmd *cobra.Command, args []string) error {
			log.Initialize()
			defer log.Close()

			cfg, err := config.Load(configFlag)
			if err != nil {
				return err
			}

			return run(cmd.Context(), cfg)
		},
	}

	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the version number of chorus",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("chorus version %s\n", version)
		},
	}
)

// demoExecutor stands in for the chat-transport action executor. It simulates
// an utterance taking a little while and occasionally failing.
type demoExecutor struct{}

func (demoExecutor) Execute(ctx context.Context, agentID string, kind arbiter.ActionKind) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(time.Duration(500+rand.Intn(1500)) * time.Millisecond):
	}
	if rand.Float64() < 0.1 {
		return fmt.Errorf("agent %s: %s action failed", agentID, kind)
	}
	log.InfoLog.Printf("agent %s spoke spontaneously", agentID)
	return nil
}

func run(ctx context.Context, cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	eng := engine.New(engine.Config{
		MaxWorkers: cfg.MaxWorkers,
		MinWorkers: cfg.MinWorkers,
		Backoff:    engine.NewExponentialBackoff(cfg.BaseDelay(), cfg.MaxDelay()),
	})
	eng.Start()

	monitor := sysmon.NewMonitor(cfg.SampleInterval(), cfg.SmoothingAlpha)
	controller := sysmon.NewController(sysmon.ControllerConfig{
		HighWatermark: cfg.HighWatermark,
		LowWatermark:  cfg.LowWatermark,
		Streak:        cfg.WatermarkStreak,
		MinWorkers:    cfg.MinWorkers,
		MaxWorkers:    cfg.MaxWorkers,
	}, eng.SetWorkerLimit)
	monitor.RegisterCallback(controller.OnSample)

	var sink monitoring.Sink = monitoring.NopSink{}
	if cfg.MetricsAddr != "" {
		prom := monitoring.NewPrometheus(prometheus.NewRegistry())
		go prom.Serve(cfg.MetricsAddr)
		sink = prom
	}

	arb := arbiter.New(cfg, eng, demoExecutor{}, sink)
	for _, name := range strings.Split(agentsFlag, ",") {
		name = strings.TrimSpace(name)
		if name != "" {
			arb.Register(name)
		}
	}

	go monitor.Run(ctx)
	go arb.Run(ctx)

	if statusEvery > 0 {
		go func() {
			ticker := time.NewTicker(statusEvery)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					now := time.Now()
					fmt.Println(ui.RenderStatus(arb.Snapshots(now), eng.Stats(), now))
				}
			}
		}()
	}

	log.InfoLog.Printf("chorus running with tick interval %v", cfg.CheckInterval())
	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return eng.Shutdown(shutdownCtx)
}

func main() {
	rootCmd.Flags().StringVarP(&configFlag, "config", "c", "chorus.yaml", "Path to the configuration file")
	rootCmd.Flags().StringVarP(&agentsFlag, "agents", "a", "alice,bob,carol", "Comma-separated agent IDs to manage")
	rootCmd.Flags().DurationVar(&statusEvery, "status-every", 0, "Print a status block at this interval (0 disables)")
	rootCmd.AddCommand(versionCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
