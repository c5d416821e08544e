// Package main provides the entry point for linkport-server.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/yndnr/linkport/internal/core/service"
	"github.com/yndnr/linkport/internal/host/editor"
	"github.com/yndnr/linkport/internal/infra/buildinfo"
	"github.com/yndnr/linkport/internal/infra/confloader"
	"github.com/yndnr/linkport/internal/infra/shutdown"
	"github.com/yndnr/linkport/internal/server/config"
	"github.com/yndnr/linkport/internal/server/linkserver"
	"github.com/yndnr/linkport/internal/telemetry/logger"
	"github.com/yndnr/linkport/internal/telemetry/metric"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		configFile  = flag.String("config", "", "Path to configuration file")
		showVersion = flag.Bool("version", false, "Show version information")
		sets        []string
	)
	flag.Func("set", "Override a setting, key=value (repeatable, e.g. -set log.level=debug)", func(v string) error {
		sets = append(sets, v)
		return nil
	})
	flag.Parse()

	if *showVersion {
		fmt.Println(buildinfo.Banner("linkport-server"))
		return nil
	}

	overrides, err := confloader.ParseOverrides(sets)
	if err != nil {
		return err
	}

	cfg, keys, err := loadConfig(*configFile, overrides)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, err := initLogger(cfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	info := buildinfo.Get()
	log.Info("starting linkport-server",
		"version", info.Version,
		"commit", info.Commit,
		"config", *configFile)
	log.Debug("configuration sources applied", "keys", keys)

	metrics := metric.NewRegistry()

	executor := service.NewUIExecutor(cfg.Link.QueueSize, log)
	dispatcher, err := initNavigation(cfg, executor, log, metrics)
	if err != nil {
		_ = executor.Close()
		return fmt.Errorf("init navigation: %w", err)
	}

	server := linkserver.New(&linkserver.Config{
		AcceptTimeout: cfg.Link.AcceptTimeout,
		RetryInterval: cfg.Link.RetryInterval,
		ReadTimeout:   cfg.Link.ReadTimeout,
	}, service.NewOriginValidator(nil, cfg.Link.ResolveTimeout), dispatcher, log, metrics)

	ctx, stop := shutdown.WithSignals(context.Background())
	defer stop()

	// Hooks run in reverse order: stop accepting, then drain navigation.
	shutdownHandler := shutdown.NewHandler(shutdownTimeout)
	shutdownHandler.OnShutdown(func(context.Context) error {
		log.Info("stopping navigation executor")
		return executor.Close()
	})
	shutdownHandler.OnShutdown(func(ctx context.Context) error {
		log.Info("stopping link listener")
		return server.Shutdown(ctx)
	})

	if err := server.Start(ctx); err != nil {
		return fmt.Errorf("start link listener: %w", err)
	}

	if cfg.Metrics.Addr != "" {
		metricsServer := startMetricsServer(cfg.Metrics.Addr, metrics, log)
		shutdownHandler.OnShutdown(func(ctx context.Context) error {
			log.Info("stopping metrics endpoint")
			return metricsServer.Shutdown(ctx)
		})
	}

	if *configFile != "" {
		watcher, err := watchConfig(*configFile, overrides, log)
		if err != nil {
			log.Warn("configuration hot reload disabled", "error", err)
		} else {
			shutdownHandler.OnShutdown(func(context.Context) error {
				return watcher.Stop()
			})
		}
	}

	log.Info("linkport-server started, press Ctrl+C to stop",
		"address", linkserver.DefaultConfig().Address)
	if err := shutdownHandler.Wait(ctx); err != nil {
		log.Error("shutdown error", "error", err)
		return err
	}

	log.Info("linkport-server stopped gracefully")
	return nil
}

// loadConfig loads configuration from defaults, file, environment and
// overrides. It also returns the keys the sources set.
func loadConfig(configFile string, overrides map[string]any) (*config.ServerConfig, []string, error) {
	cfg := config.Default()

	opts := []confloader.Option{confloader.WithOverrides(overrides)}
	if configFile != "" {
		opts = append(opts, confloader.WithConfigFile(configFile))
	}
	loader := confloader.NewLoader(opts...)

	if err := loader.Load(cfg); err != nil {
		return nil, nil, err
	}
	cfg.Editor.FillFromEnv(os.Getenv)

	if err := config.Verify(cfg); err != nil {
		return nil, nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, loader.Keys(), nil
}

// initLogger installs the process logger and returns its slog form for
// components.
func initLogger(cfg *config.ServerConfig) (*slog.Logger, error) {
	log, err := logger.New(logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: os.Stderr,
	})
	if err != nil {
		return nil, err
	}

	slog.SetDefault(log)
	return log, nil
}

// initNavigation builds the editor host and the dispatcher on top of it.
func initNavigation(cfg *config.ServerConfig, executor service.Executor, log *slog.Logger, metrics *metric.Registry) (*service.Dispatcher, error) {
	effective := cfg.Editor.EffectiveRules()
	rules := make([]editor.Rule, 0, len(effective))
	for _, r := range effective {
		rules = append(rules, editor.Rule{
			ID:          r.ID,
			Pattern:     r.Pattern,
			Command:     r.Command,
			GotoCommand: r.GotoCommand,
		})
	}

	registry, err := editor.NewRegistry(rules)
	if err != nil {
		return nil, err
	}
	workspace, err := editor.NewWorkspace(cfg.Editor.Workspace)
	if err != nil {
		return nil, err
	}

	host := editor.New(registry, workspace, nil, log)
	log.Info("editor host ready",
		"workspace", workspace.Root(),
		"rules", registry.Len())

	return service.NewDispatcher(host, executor, &service.DispatcherConfig{
		Rate:  cfg.Link.DispatchRate,
		Burst: cfg.Link.DispatchBurst,
	}, log, metrics), nil
}

// startMetricsServer serves /metrics on a loopback address.
func startMetricsServer(addr string, metrics *metric.Registry, log *slog.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Info("metrics endpoint listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("metrics endpoint error", "error", err)
		}
	}()

	return srv
}

// watchConfig reloads configFile on change and applies the log level.
// Other settings take effect on restart.
func watchConfig(configFile string, overrides map[string]any, log *slog.Logger) (*confloader.Watcher, error) {
	watcher, err := confloader.NewWatcher(confloader.WithWatcherLogger(log))
	if err != nil {
		return nil, err
	}
	if err := watcher.Watch(configFile); err != nil {
		_ = watcher.Stop()
		return nil, err
	}

	watcher.OnChange(func(path string) {
		cfg, _, err := loadConfig(configFile, overrides)
		if err != nil {
			log.Warn("ignoring invalid configuration change", "file", path, "error", err)
			return
		}
		prev := logger.Level()
		if err := logger.SetLevel(cfg.Log.Level); err != nil {
			log.Warn("ignoring log level change", "file", path, "error", err)
			return
		}
		if cur := logger.Level(); cur != prev {
			log.Info("log level changed", "level", cur)
		}
	})
	watcher.StartAsync()

	return watcher, nil
}
