package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/t-botz/federation/internal/config"
	"github.com/t-botz/federation/internal/coordinator"
	"github.com/t-botz/federation/internal/healthcheck"
	"github.com/t-botz/federation/internal/metrics"
	"github.com/t-botz/federation/internal/source"
	"github.com/t-botz/federation/internal/storage"
	"github.com/t-botz/federation/internal/transport"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configFile string

	cmd := &cobra.Command{
		Use:   "gateway",
		Short: "Supergraph control plane of a federated GraphQL gateway",
		Long: `gateway loads a supergraph definition, serves it, and hot-swaps it when the
configured source produces a new one. Sources: a static file, a watched file,
an HTTP registry polled on an interval, or a NATS JetStream key-value bucket.

Every setting can be overridden with FEDERATION_* environment variables,
e.g. FEDERATION_SOURCE_MODE=poll.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := config.NewViper(configFile)
			if err != nil {
				return fmt.Errorf("read config: %w", err)
			}
			cfg, err := config.Load(v)
			if err != nil {
				return err
			}
			return run(cmd.Context(), cfg, os.Stderr)
		},
	}
	cmd.Flags().StringVarP(&configFile, "config", "c", "", "config file (YAML)")
	return cmd
}

func run(ctx context.Context, cfg *config.Config, logOut io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	logger := newLogger(cfg.Log, logOut)
	if os.Getenv(gin.EnvGinMode) == "" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	m := metrics.New()
	if err := m.Register(reg); err != nil {
		return fmt.Errorf("register metrics: %w", err)
	}

	client := transport.NewClient(cfg.HealthCheck.Timeout)
	prober := healthcheck.NewHTTPProber(client)
	gate := healthcheck.NewGate(prober,
		healthcheck.WithTimeout(cfg.HealthCheck.Timeout),
		healthcheck.WithMetrics(m))

	src, closeSrc, err := newSource(ctx, cfg.Source, logger, client)
	if err != nil {
		return fmt.Errorf("configure %s source: %w", cfg.Source.Mode, err)
	}
	defer closeSrc()

	coord := coordinator.New(logger,
		coordinator.WithSource(src),
		coordinator.WithHealthChecker(gate),
		coordinator.WithHistory(storage.NewMemoryStore(cfg.History.Limit)),
		coordinator.WithMetrics(m))

	monitor := healthcheck.NewMonitor(prober, cfg.Monitor.Interval,
		healthcheck.WithMaxFailures(cfg.Monitor.MaxFailures),
		healthcheck.WithProbeTimeout(cfg.Monitor.Timeout),
		healthcheck.WithMonitorLogger(logger),
		healthcheck.WithMonitorMetrics(m))

	srv := newServer(coord, monitor, reg, logger)
	httpSrv := &http.Server{
		Addr:              cfg.Listen,
		Handler:           srv.routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("gateway listening", "addr", cfg.Listen)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	shutdown := func() {
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		_ = coord.Stop(sctx)
		if err := httpSrv.Shutdown(sctx); err != nil {
			logger.Warn("http shutdown", "error", err)
		}
	}

	if err := coord.Load(ctx); err != nil {
		shutdown()
		return fmt.Errorf("load supergraph: %w", err)
	}

	if cfg.Monitor.Enabled {
		monitor.Start(ctx, coord.Services)
		defer monitor.Stop()
	}

	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case err := <-serveErr:
		if err != nil {
			shutdown()
			return fmt.Errorf("listen: %w", err)
		}
	}
	shutdown()
	logger.Info("gateway stopped")
	return nil
}

// newLogger builds the process logger from cfg.
func newLogger(cfg config.LogConfig, w io.Writer) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if cfg.Format == "text" {
		handler = slog.NewTextHandler(w, opts)
	} else {
		handler = slog.NewJSONHandler(w, opts)
	}
	return slog.New(handler).With("component", "gateway")
}

// newSource builds the configured source. The returned func releases what
// the source needs beyond its own cleanup hook, such as the NATS connection.
func newSource(ctx context.Context, cfg config.SourceConfig, logger *slog.Logger, client *transport.Client) (source.Source, func(), error) {
	noop := func() {}
	opts := []source.Option{
		source.WithLogger(logger.With("source", cfg.Mode)),
		source.WithHealthCheck(cfg.HealthCheck),
		source.WithDebounce(cfg.Debounce),
		source.WithInterval(cfg.Interval),
		source.WithClient(client),
	}

	switch cfg.Mode {
	case config.ModeStatic:
		src, err := source.NewStaticFile(cfg.Path)
		if err != nil {
			return nil, noop, err
		}
		return src, noop, nil

	case config.ModeFile:
		return source.NewFileWatcher(cfg.Path, opts...), noop, nil

	case config.ModePoll:
		return source.NewPoller(cfg.URL, opts...), noop, nil

	case config.ModeNATS:
		nc, err := nats.Connect(cfg.NATS.URL, nats.Name("federation-gateway"))
		if err != nil {
			return nil, noop, err
		}
		js, err := jetstream.New(nc)
		if err != nil {
			nc.Close()
			return nil, noop, err
		}
		kv, err := js.KeyValue(ctx, cfg.NATS.Bucket)
		if err != nil {
			nc.Close()
			return nil, noop, fmt.Errorf("open bucket %q: %w", cfg.NATS.Bucket, err)
		}
		return source.NewKVWatcher(kv, cfg.NATS.Key, opts...), nc.Close, nil

	default:
		return nil, noop, fmt.Errorf("unknown source mode %q", cfg.Mode)
	}
}
