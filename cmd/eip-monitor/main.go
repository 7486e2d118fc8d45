package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"k8s.io/client-go/dynamic"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"

	"github.com/rh-john/ocp-eip-monitoring-sub002/pkg/api"
	"github.com/rh-john/ocp-eip-monitoring-sub002/pkg/collector"
	"github.com/rh-john/ocp-eip-monitoring-sub002/pkg/config"
	"github.com/rh-john/ocp-eip-monitoring-sub002/pkg/fetcher"
	"github.com/rh-john/ocp-eip-monitoring-sub002/pkg/history"
	"github.com/rh-john/ocp-eip-monitoring-sub002/pkg/log"
)

var (
	// Version information (set via ldflags during build)
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

var (
	flagConfig   string
	flagPort     int
	flagInterval int
	flagLogLevel string
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "eip-monitor",
	Short: "Prometheus exporter for the OpenShift egress-IP subsystem",
	Long: `eip-monitor polls EgressIP and CloudPrivateIPConfig resources together
with the node inventory, cross-checks them for consistency, derives
distribution-fairness and health statistics, and exposes everything
on /metrics for Prometheus scraping.`,
	Version: Version,
	RunE:    run,
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf(
		"eip-monitor version %s\nCommit: %s\nBuilt: %s\n",
		Version, Commit, BuildTime,
	))

	rootCmd.Flags().StringVar(&flagConfig, "config", "", "path to optional YAML config file")
	rootCmd.Flags().IntVar(&flagPort, "port", 0, "HTTP serving port (overrides config)")
	rootCmd.Flags().IntVar(&flagInterval, "interval", 0, "poll interval in seconds (overrides config)")
	rootCmd.Flags().StringVar(&flagLogLevel, "log-level", "", "log level: debug, info, warn, error")
}

func run(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if flagPort != 0 {
		cfg.Port = flagPort
	}
	if flagInterval != 0 {
		cfg.PollInterval = time.Duration(flagInterval) * time.Second
	}
	if flagLogLevel != "" {
		cfg.LogLevel = flagLogLevel
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	log.Init(log.Config{
		Level:      log.Level(cfg.LogLevel),
		JSONOutput: cfg.LogJSON,
	})
	logger := log.WithComponent("main")
	logger.Info().Str("version", Version).Msg("starting eip-monitor")

	restCfg, err := clusterConfig()
	if err != nil {
		return fmt.Errorf("building cluster config: %w", err)
	}
	kubeClient, err := kubernetes.NewForConfig(restCfg)
	if err != nil {
		return fmt.Errorf("creating kubernetes client: %w", err)
	}
	dynClient, err := dynamic.NewForConfig(restCfg)
	if err != nil {
		return fmt.Errorf("creating dynamic client: %w", err)
	}

	perf := history.NewSampleWindow(100)
	f := fetcher.New(kubeClient, dynClient, cfg.APITimeout, cfg.NodeCapacity, perf)

	engine := collector.New(collector.Config{
		PollInterval: cfg.PollInterval,
		Version:      Version,
	}, f, perf)
	engine.Start()

	server := api.NewServer(engine, Version, cfg.HealthMaxAge)
	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start(fmt.Sprintf(":%d", cfg.Port))
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info().Str("signal", sig.String()).Msg("shutting down")
	case err := <-errCh:
		// Port bind failure is the one fatal startup path.
		stopEngine(engine, cfg.APITimeout)
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn().Err(err).Msg("http shutdown")
	}
	stopEngine(engine, cfg.APITimeout)

	logger.Info().Msg("shutdown complete")
	return nil
}

// stopEngine halts the poll loop, giving an in-flight cycle up to one API
// timeout to finish.
func stopEngine(engine *collector.Engine, timeout time.Duration) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := engine.Stop(ctx); err != nil {
		logger := log.WithComponent("main")
		logger.Warn().Err(err).Msg("engine stop")
	}
}

// clusterConfig prefers the in-cluster service account and falls back to
// the local kubeconfig for development runs.
func clusterConfig() (*rest.Config, error) {
	if cfg, err := rest.InClusterConfig(); err == nil {
		return cfg, nil
	}
	loadingRules := clientcmd.NewDefaultClientConfigLoadingRules()
	return clientcmd.NewNonInteractiveDeferredLoadingClientConfig(
		loadingRules, &clientcmd.ConfigOverrides{},
	).ClientConfig()
}
