// Beacond is an MCP demo server wrapped around a diagnostics and lifecycle
// coordination layer.
//
// The binary speaks MCP over stdio and optionally exposes a diagnostics HTTP
// surface (health, stats, runtime logging controls, Prometheus metrics).
// Structured logs go to stderr; stdout belongs to the protocol transport.
//
// Usage:
//
//	# Start with defaults (config at ~/.config/beacond/config.yaml)
//	beacond
//
//	# Explicit config file and HTTP surface
//	beacond -config /etc/beacond/config.yaml -http
//
//	# Configure via environment
//	BEACOND_LOGGING_LEVEL=debug beacond
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/fyrsmithlabs/beacond/internal/config"
	"github.com/fyrsmithlabs/beacond/internal/http"
	"github.com/fyrsmithlabs/beacond/internal/lifecycle"
	"github.com/fyrsmithlabs/beacond/internal/logging"
	mcpserver "github.com/fyrsmithlabs/beacond/internal/mcp"
	"github.com/fyrsmithlabs/beacond/internal/telemetry"
)

// Version information (set via ldflags during build)
var (
	version   = "dev"
	gitCommit = "unknown"
	buildDate = "unknown"
)

func main() {
	configPath := flag.String("config", "", "path to config file (default ~/.config/beacond/config.yaml)")
	httpEnabled := flag.Bool("http", false, "enable the diagnostics HTTP surface")
	flag.Parse()
	args := flag.Args()

	if len(args) > 0 {
		switch args[0] {
		case "version":
			printVersion()
			os.Exit(0)
		default:
			fmt.Fprintf(os.Stderr, "Unknown command: %s\n", args[0])
			fmt.Fprintf(os.Stderr, "\nUsage:\n")
			fmt.Fprintf(os.Stderr, "  beacond            Start the beacond server\n")
			fmt.Fprintf(os.Stderr, "  beacond version    Show version information\n")
			os.Exit(1)
		}
	}

	if err := run(context.Background(), *configPath, *httpEnabled); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}

func printVersion() {
	fmt.Printf("beacond by Fyrsmith Labs\n")
	fmt.Printf("Version:    %s\n", version)
	fmt.Printf("Commit:     %s\n", gitCommit)
	fmt.Printf("Build Date: %s\n", buildDate)
}

// run starts the beacond server and blocks until shutdown.
//
// Initialization order:
//  1. Load and validate configuration
//  2. Build the diagnostics pipeline (logger)
//  3. Initialize telemetry providers
//  4. Create the lifecycle machine and enter INITIALIZING
//  5. Wire the MCP server and the log-notification sink
//  6. Start the HTTP surface and the config watcher
//  7. Serve MCP on stdio until shutdown
func run(ctx context.Context, configPath string, httpEnabled bool) error {
	if err := config.EnsureConfigDir(); err != nil {
		return err
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}
	if httpEnabled {
		cfg.Server.HTTPEnabled = true
	}

	logCfg, err := buildLoggingConfig(cfg)
	if err != nil {
		return err
	}
	logger, err := logging.NewLogger(logCfg)
	if err != nil {
		return fmt.Errorf("initializing logger: %w", err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	logger.Info(ctx, map[string]any{
		"message": "starting beacond",
		"version": version,
		"level":   cfg.Logging.Level,
		"http":    cfg.Server.HTTPEnabled,
	})

	telCfg := telemetry.NewDefaultConfig(cfg.Telemetry.ServiceName, cfg.Telemetry.ServiceVersion)
	telCfg.Enabled = cfg.Telemetry.Enabled
	telCfg.Endpoint = cfg.Telemetry.Endpoint
	telCfg.Protocol = cfg.Telemetry.Protocol
	telCfg.Insecure = cfg.Telemetry.Insecure
	telCfg.SampleRate = cfg.Telemetry.SampleRate
	telCfg.ExportInterval = cfg.Telemetry.ExportInterval
	tel, err := telemetry.New(ctx, telCfg)
	if err != nil {
		return fmt.Errorf("initializing telemetry: %w", err)
	}
	logger.Correlator().SetTracer(tel.Tracer("beacond"))

	machine := lifecycle.NewMachine(logger, mcpserver.Capabilities())
	machine.Initialize(ctx, lifecycle.ServerInfo{
		Name:    cfg.Server.Name,
		Version: cfg.Server.Version,
	})

	srv, err := mcpserver.NewServer(&mcpserver.Config{
		Name:    cfg.Server.Name,
		Version: cfg.Server.Version,
		Logger:  logger,
		Machine: machine,
	})
	if err != nil {
		return fmt.Errorf("creating MCP server: %w", err)
	}

	notifyFloor, err := logging.ParseSeverity(cfg.Logging.Notifier.Floor)
	if err != nil {
		return fmt.Errorf("invalid notifier floor: %w", err)
	}
	logger.SetNotificationSink(srv.Notifier(), notifyFloor)

	runCtx, cancelRun := context.WithCancel(ctx)
	defer cancelRun()

	if cfg.Server.HTTPEnabled {
		httpSrv, err := http.NewServer(logger, machine, &http.Config{
			Addr:      cfg.Server.HTTPAddr,
			Telemetry: tel,
		})
		if err != nil {
			return fmt.Errorf("creating HTTP server: %w", err)
		}
		go func() {
			if err := httpSrv.Start(); err != nil {
				logger.Warning(runCtx, map[string]any{
					"message": "http server stopped",
					"error":   err.Error(),
				})
			}
		}()
		machine.OnShutdown("http", func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, cfg.Server.ShutdownTimeout)
			defer cancel()
			return httpSrv.Shutdown(shutdownCtx)
		})
	}

	startConfigWatcher(runCtx, configPath, logger)

	machine.OnShutdown("telemetry", func(ctx context.Context) error {
		if err := tel.ForceFlush(ctx); err != nil {
			logger.Warning(ctx, map[string]any{
				"message": "telemetry flush failed",
				"error":   err.Error(),
			})
		}
		return tel.Shutdown(ctx)
	})
	machine.OnShutdown("transport", func(context.Context) error {
		cancelRun()
		return nil
	})
	machine.OnShutdown("logger", func(context.Context) error {
		return logger.Sync()
	})

	machine.HandleSignals(ctx)

	err = srv.Run(runCtx)
	// Transport closure (client went away) also drives a full shutdown.
	machine.Shutdown(context.WithoutCancel(ctx), "transport closed")
	<-machine.Done()

	if err != nil && runCtx.Err() == nil {
		return err
	}
	return nil
}

// buildLoggingConfig maps the app configuration into the diagnostics
// pipeline's own config type.
func buildLoggingConfig(cfg *config.Config) (*logging.Config, error) {
	level, err := logging.ParseSeverity(cfg.Logging.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid logging level: %w", err)
	}
	floor, err := logging.ParseSeverity(cfg.Logging.Notifier.Floor)
	if err != nil {
		return nil, fmt.Errorf("invalid notifier floor: %w", err)
	}

	logCfg := logging.NewDefaultConfig()
	logCfg.Level = level
	logCfg.Format = cfg.Logging.Format
	logCfg.Fields = map[string]string{"service": cfg.Server.Name}
	logCfg.Redaction.Enabled = cfg.Logging.Redaction.Enabled
	logCfg.Redaction.Keys = cfg.Logging.Redaction.Keys
	logCfg.RateLimit.Enabled = cfg.Logging.RateLimit.Enabled
	logCfg.RateLimit.Window = cfg.Logging.RateLimit.Window
	logCfg.RateLimit.MaxPerWindow = cfg.Logging.RateLimit.MaxPerWindow
	logCfg.Notifier.Floor = floor
	logCfg.Notifier.ForwardsPerSecond = cfg.Logging.Notifier.ForwardsPerSecond
	logCfg.Notifier.Burst = cfg.Logging.Notifier.Burst
	return logCfg, nil
}

// startConfigWatcher applies config file edits to the runtime toggles. A
// watcher failure is logged and the server keeps the settings it booted with.
func startConfigWatcher(ctx context.Context, configPath string, logger *logging.Logger) {
	watcher, err := config.NewWatcher(configPath)
	if err != nil {
		logger.Warning(ctx, map[string]any{
			"message": "config watcher unavailable",
			"error":   err.Error(),
		})
		return
	}
	if err := watcher.Start(ctx); err != nil {
		logger.Warning(ctx, map[string]any{
			"message": "config watcher failed to start",
			"error":   err.Error(),
		})
		watcher.Stop()
		return
	}

	go func() {
		defer watcher.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case cfg := <-watcher.Changes():
				applyRuntimeSettings(ctx, cfg, logger)
			case err := <-watcher.Errors():
				logger.Warning(ctx, map[string]any{
					"message": "config reload failed",
					"error":   err.Error(),
				})
			}
		}
	}()
}

// applyRuntimeSettings applies the runtime-mutable logging knobs from a
// reloaded configuration.
func applyRuntimeSettings(ctx context.Context, cfg *config.Config, logger *logging.Logger) {
	if err := logger.SetLevel(cfg.Logging.Level); err != nil {
		logger.Warning(ctx, map[string]any{
			"message": "reloaded level rejected",
			"level":   cfg.Logging.Level,
		})
	}
	logger.SetSensitiveDataFilter(cfg.Logging.Redaction.Enabled)
	logger.SetRateLimiting(cfg.Logging.RateLimit.Enabled)

	logger.Notice(ctx, map[string]any{
		"message":   "configuration reloaded",
		"level":     cfg.Logging.Level,
		"redaction": cfg.Logging.Redaction.Enabled,
		"rateLimit": cfg.Logging.RateLimit.Enabled,
	})
}
