package main

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/wildparky/pflow/component"
	"github.com/wildparky/pflow/config"
	"github.com/wildparky/pflow/health"
	"github.com/wildparky/pflow/metric"
	"github.com/wildparky/pflow/natsclient"
	"github.com/wildparky/pflow/network"
)

const stopTimeout = 5 * time.Second

type runOptions struct {
	policy      string
	natsURL     string
	metrics     bool
	metricsPort int
	timeout     time.Duration
}

func newRunCmd() *cobra.Command {
	var opts runOptions

	cmd := &cobra.Command{
		Use:   "run <network-file>",
		Short: "Run a network until it goes quiet",
		Long: `Builds the network described by the file and runs it. The command
returns when every component has terminated, when --timeout elapses, or on
SIGINT/SIGTERM, which shuts the network down.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runNetwork(cmd, args[0], opts)
		},
	}

	cmd.Flags().StringVar(&opts.policy, "policy", "", "Failure policy: isolate or fail-fast (overrides the file)")
	cmd.Flags().StringVar(&opts.natsURL, "nats-url", "", "Publish component events to this NATS server (overrides the file)")
	cmd.Flags().BoolVar(&opts.metrics, "metrics", false, "Serve /metrics and /health")
	cmd.Flags().IntVar(&opts.metricsPort, "metrics-port", 0, "Metrics port (overrides the file)")
	cmd.Flags().DurationVar(&opts.timeout, "timeout", 0, "Stop the network after this long (0 = no limit)")
	return cmd
}

func runNetwork(cmd *cobra.Command, path string, opts runOptions) error {
	cfg, err := config.Load(path)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	applyRunFlags(cmd, cfg, opts)

	logger := setupLogger(cmd.ErrOrStderr(),
		logSetting(cmd, "log-level", envLogLevel, cfg.Logging.Level),
		logSetting(cmd, "log-format", envLogFormat, cfg.Logging.Format))
	logger.Info("Starting pflow", "version", Version, "config_path", path, "network", cfg.Network.Name)

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	registry := metric.NewMetricsRegistry()
	monitor := health.NewMonitor(cfg.Network.Name).WithMetrics(registry.CoreMetrics())

	if cfg.Metrics.Enabled {
		server := metric.NewServer(cfg.Metrics.Port, cfg.Metrics.Path, registry, monitor)
		if err := server.Start(); err != nil {
			return err
		}
		defer func() {
			if err := server.Stop(stopTimeout); err != nil {
				logger.Warn("Metrics server shutdown failed", "error", err)
			}
		}()
		logger.Info("Serving metrics", "address", server.Address())
	}

	deps := component.Dependencies{
		Logger:          logger,
		MetricsRegistry: registry,
		Stdout:          cmd.OutOrStdout(),
	}
	var sink component.EventSink = component.NewSlogSink(logger)

	if cfg.NATS.URL != "" {
		client, natsSink, err := connectNATS(ctx, cfg.NATS.URL, logger, registry)
		if err != nil {
			return err
		}
		defer func() {
			if err := natsSink.Stop(stopTimeout); err != nil {
				logger.Warn("NATS event sink shutdown failed", "error", err)
			}
			if err := client.Close(); err != nil {
				logger.Warn("NATS close failed", "error", err)
			}
		}()
		deps.NATSConn = client.Conn()
		sink = component.MultiSink{sink, natsSink}
	}

	n, err := buildNetwork(cfg, deps,
		network.WithLogger(logger),
		network.WithEventSink(sink),
		network.WithMetrics(registry),
		network.WithHealth(monitor))
	if err != nil {
		return err
	}
	logWarnings(logger, n)

	runCtx := ctx
	if opts.timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, opts.timeout)
		defer cancel()
	}

	signalCtx, signalCancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer signalCancel()
	go func() {
		select {
		case <-signalCtx.Done():
			select {
			case <-n.Done():
				return
			default:
			}
			if ctx.Err() == nil {
				logger.Info("Received shutdown signal")
			}
			n.Shutdown()
		case <-n.Done():
		}
	}()

	start := time.Now()
	runErr := n.Run(runCtx)
	failures := n.Failures()

	logger.Info("Network finished",
		"duration", time.Since(start).Round(time.Millisecond),
		"components", len(n.Components()),
		"failures", len(failures))

	if runErr != nil {
		return runErr
	}
	if len(failures) > 0 {
		return fmt.Errorf("network %s: %d component(s) failed, first: %w", n.Name(), len(failures), failures[0])
	}
	return nil
}

// applyRunFlags lets explicit flags override the network file
func applyRunFlags(cmd *cobra.Command, cfg *config.Config, opts runOptions) {
	flags := cmd.Flags()
	if flags.Changed("policy") {
		cfg.Network.Policy = opts.policy
	}
	if flags.Changed("nats-url") {
		cfg.NATS.URL = opts.natsURL
	}
	if flags.Changed("metrics") {
		cfg.Metrics.Enabled = opts.metrics
	}
	if flags.Changed("metrics-port") {
		cfg.Metrics.Port = opts.metricsPort
	}
}

func connectNATS(ctx context.Context, url string, logger *slog.Logger,
	registry *metric.MetricsRegistry) (*natsclient.Client, *component.NATSSink, error) {
	client, err := natsclient.NewClient(url,
		natsclient.WithName(appName),
		natsclient.WithLogger(logger),
		natsclient.WithMetrics(registry.CoreMetrics()))
	if err != nil {
		return nil, nil, err
	}
	if err := client.Connect(ctx); err != nil {
		return nil, nil, err
	}

	natsSink, err := component.NewNATSSink(client.Conn(), logger, component.NATSSinkConfig{Registry: registry})
	if err != nil {
		_ = client.Close()
		return nil, nil, err
	}
	if err := natsSink.Start(ctx); err != nil {
		_ = client.Close()
		return nil, nil, err
	}
	return client, natsSink, nil
}
