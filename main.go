// pattern: Imperative Shell
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	flag "github.com/spf13/pflag"

	"devagent/internal/config"
	"devagent/internal/instance"
	"devagent/internal/logging"
	"devagent/internal/process"
	"devagent/internal/tsnsrv"
	"devagent/internal/web"
)

var version = "dev"

func main() {
	configDir := flag.String("config-dir", "", "config directory (default: ~/.config/devagent)")
	port := flag.Int("port", 0, "web server port (0 = use config, which defaults to 7681)")
	shell := flag.String("shell", "", "shell to spawn for new sessions (default: zsh, override via SHELL_CMD)")
	staticDir := flag.String("static-dir", "", "directory of static web client assets to serve")
	showVersion := flag.Bool("version", false, "print version and exit")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: devagent [options]\n\n")
		fmt.Fprintf(os.Stderr, "Starts the terminal gateway: a WebSocket-to-PTY bridge plus its REST/SSE collaborators.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
	}

	flag.Parse()

	if *showVersion {
		fmt.Println(version)
		return
	}

	run(*configDir, *port, *shell, *staticDir)
}

// resolveDataDir returns the directory for lock/port/log files.
func resolveDataDir(configDir string) string {
	if configDir != "" {
		return configDir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".config", "devagent")
	}
	return filepath.Join(home, ".config", "devagent")
}

func run(configDir string, portFlag int, shellFlag, staticDirFlag string) {
	cfg, err := loadConfig(configDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to load config: %v\n", err)
	}
	if shellFlag != "" {
		cfg.Shell = shellFlag
	}
	if staticDirFlag != "" {
		cfg.StaticDir = staticDirFlag
	}
	if portFlag != 0 {
		cfg.Web.Port = portFlag
	}

	dataDir := resolveDataDir(configDir)
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to create data directory: %v\n", err)
		os.Exit(1)
	}
	if err := os.MkdirAll(cfg.ProbeDir, 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to create probe directory: %v\n", err)
		os.Exit(1)
	}

	fl, err := instance.Lock(dataDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer instance.Cleanup(dataDir, fl)

	logPath := filepath.Join(dataDir, "devagent.log")
	logManager, err := logging.NewManager(logging.Config{
		FilePath:       logPath,
		MaxSizeMB:      10,
		MaxBackups:     3,
		MaxAgeDays:     7,
		ChannelBufSize: 1000,
		Level:          cfg.LogLevel,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logging: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logManager.Close() }()

	appLogger := logManager.For("app")
	appLogger.Info("gateway starting", "shell", cfg.Shell, "static_dir", cfg.StaticDir, "probe_dir", cfg.ProbeDir)

	watchCtx, stopWatch := context.WithCancel(context.Background())
	defer stopWatch()
	if watcher, err := config.NewWatcher(filepath.Join(dataDir, "config.yaml"), logManager.For("config")); err != nil {
		appLogger.Warn("config watcher unavailable", "error", err)
	} else {
		go func() {
			if err := watcher.Start(watchCtx); err != nil {
				appLogger.Warn("config watcher stopped", "error", err)
			}
		}()
	}

	webServer := web.New(
		web.Config{
			Bind:      cfg.Web.Bind,
			Port:      cfg.Web.Port,
			Shell:     cfg.Shell,
			StaticDir: cfg.StaticDir,
			ProbeDir:  cfg.ProbeDir,
		},
		logManager,
		logManager.Entries(),
	)
	ln, err := webServer.Listen()
	if err != nil {
		appLogger.Error("web server listen error", "error", err)
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if err := instance.WritePort(dataDir, webServer.Addr()); err != nil {
		appLogger.Error("failed to write port file", "error", err)
	}

	appLogger.Info("web server listening", "addr", webServer.Addr())

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- webServer.Serve(ln)
	}()
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := webServer.Shutdown(ctx); err != nil {
			appLogger.Error("web server shutdown error", "error", err)
		}
	}()

	if cfg.Tailscale.Enabled {
		supervisor, err := startTsnsrv(&cfg, webServer.Addr(), logManager)
		if err != nil {
			appLogger.Warn("tsnsrv failed to start (continuing without tailscale)", "error", err)
		} else {
			defer func() { _ = supervisor.Stop() }()

			stateDir := cfg.ResolveTokenPath(cfg.Tailscale.StateDir)
			tc := cfg.Tailscale
			go func() {
				for i := 0; i < 30; i++ {
					url, ok := tsnsrv.ReadServiceURL(stateDir, tc)
					if ok {
						appLogger.Info("tailscale URL resolved", "url", url)
						return
					}
					time.Sleep(1 * time.Second)
				}
				appLogger.Warn("tailscale URL resolution timed out")
			}()
		}
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		appLogger.Info("shutting down on signal", "signal", sig)
	case err := <-serveErr:
		if err != nil && err != http.ErrServerClosed {
			appLogger.Error("web server error", "error", err)
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	}

	appLogger.Info("gateway stopped")
}

// loadConfig loads the configuration from the specified directory or default location.
func loadConfig(configDir string) (config.Config, error) {
	if configDir != "" {
		return config.LoadFrom(filepath.Join(configDir, "config.yaml"))
	}
	return config.Load()
}

// startTsnsrv validates config, builds the process config, and starts the tsnsrv supervisor.
func startTsnsrv(cfg *config.Config, upstreamAddr string, logProvider logging.LoggerProvider) (*process.Supervisor, error) {
	logger := logProvider.For("tsnsrv")

	if err := cfg.Tailscale.Validate(cfg.ResolveTokenPath); err != nil {
		return nil, fmt.Errorf("tailscale config validation: %w", err)
	}

	pc, err := tsnsrv.BuildProcessConfig(cfg.Tailscale, upstreamAddr, cfg.ResolveTokenPath)
	if err != nil {
		return nil, fmt.Errorf("tsnsrv config: %w", err)
	}

	supervisor := process.NewSupervisor(pc, logger)
	if err := supervisor.Start(context.Background()); err != nil {
		return nil, fmt.Errorf("tsnsrv start: %w", err)
	}

	logger.Info("tsnsrv started", "upstream", upstreamAddr, "name", cfg.Tailscale.Name)
	return supervisor, nil
}
