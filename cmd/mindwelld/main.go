// Package main is the CLI entry point for mindwelld.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kardianos/service"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/mindwell/companion/internal/api"
	"github.com/mindwell/companion/internal/config"
	"github.com/mindwell/companion/internal/daemon"
	"github.com/mindwell/companion/internal/domain"
	"github.com/mindwell/companion/internal/infra"
	"github.com/mindwell/companion/internal/shell"
	"github.com/mindwell/companion/internal/store"
	"github.com/mindwell/companion/internal/window"
)

var (
	// Version info (set via ldflags)
	Version   = "0.1.0"
	Commit    = "dev"
	BuildTime = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "mindwelld",
	Short: "Mindwell Desktop Companion daemon - focus mode and wellness timers",
	Long: `mindwelld watches the active window, enforces a Focus Mode allow-list,
and drives the Pomodoro, eye-care, hydration and posture timers. A desktop
shell connects over a local socket to render popups and notifications; the
daemon keeps working (and keeps timing) without one.`,
	Version: Version,
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the daemon in the foreground",
	RunE:  runDaemon,
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the running daemon's focus and timer state",
	RunE:  runStatus,
}

var serviceCmd = &cobra.Command{
	Use:       "service [install|uninstall|start|stop]",
	Short:     "Manage mindwelld as an OS service",
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{"install", "uninstall", "start", "stop"},
	RunE:      runService,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("mindwelld %s (commit: %s, built: %s)\n", Version, Commit, BuildTime)
	},
}

var configPath string

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to mindwelld.toml")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(serviceCmd)
	rootCmd.AddCommand(versionCmd)
}

func runDaemon(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(cfg.DataDir, 0o700); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	logger := createLogger(cfg.LogPath)
	defer func() { _ = logger.Sync() }()

	settingsStore, closeStore, err := buildStore(cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	bridge, err := buildBridge(cfg, logger)
	if err != nil {
		return err
	}
	defer bridge.Close()

	var notifier domain.Notifier
	if dn, err := infra.NewDBusNotifier(logger); err == nil {
		defer dn.Close()
		notifier = dn
	} else {
		logger.Info("native notifications unavailable", zap.Error(err))
		notifier = infra.NopNotifier{}
	}

	runner := daemon.New(cfg, settingsStore, bridge,
		window.NewProcessResolver(logger), notifier, logger)

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		logger.Info("received shutdown signal")
		cancel()
	}()

	if cfg.ListenAddr != "" {
		apiServer := api.NewServer(cfg.ListenAddr, runner, logger)
		go func() {
			if err := apiServer.Run(ctx); err != nil {
				logger.Error("status api failed", zap.Error(err))
			}
		}()
	}

	if cfg.WatchSettings && !cfg.EncryptSettings {
		if fs, ok := settingsStore.(*store.FileStore); ok {
			watcher, err := store.NewWatcher(fs, logger)
			if err != nil {
				logger.Warn("settings watcher unavailable", zap.Error(err))
			} else {
				go watcher.Run(ctx, cfg.DefaultUser, func() {
					logger.Info("settings file changed on disk, reloading")
					runner.ReloadSettings()
				})
			}
		}
	}

	return runner.Run(ctx)
}

// buildStore picks the plain JSON file store or the encrypted database,
// keyed from the OS keyring.
func buildStore(cfg config.Config, logger *zap.Logger) (domain.SettingsStore, func(), error) {
	if !cfg.EncryptSettings {
		fs, err := store.NewFileStore(cfg.DataDir, logger)
		if err != nil {
			return nil, nil, err
		}
		return fs, func() {}, nil
	}

	keys := infra.NewKeyringProvider(cfg.DataDir, logger)
	key, err := keys.GetKey()
	if err != nil {
		return nil, nil, fmt.Errorf("obtain settings key: %w", err)
	}
	enc, err := store.NewEncryptedStore(cfg.DataDir, key, logger)
	if err != nil {
		return nil, nil, err
	}
	return enc, func() { _ = enc.Close() }, nil
}

func buildBridge(cfg config.Config, logger *zap.Logger) (domain.ShellBridge, error) {
	if cfg.ShellSocket == "" {
		logger.Info("no shell socket configured, running degraded")
		return shell.NewNopBridge(), nil
	}
	return shell.NewSocketBridge(cfg.ShellSocket, logger)
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if cfg.ListenAddr == "" {
		return fmt.Errorf("status api disabled in configuration")
	}

	client := &http.Client{Timeout: 2 * time.Second}
	resp, err := client.Get("http://" + cfg.ListenAddr + "/v1/status")
	if err != nil {
		fmt.Println("Status: NOT RUNNING")
		return nil
	}
	defer resp.Body.Close()

	var status struct {
		Product string                 `json:"product"`
		Session domain.SessionSnapshot `json:"session"`
		Timers  []domain.TimerSnapshot `json:"timers"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return fmt.Errorf("decode status response: %w", err)
	}

	fmt.Printf("\n=== %s ===\n", status.Product)
	fmt.Printf("User: %s\n", status.Session.UserID)
	if status.Session.FocusModeActive {
		fmt.Println("Focus Mode: ON")
	} else {
		fmt.Println("Focus Mode: off")
	}
	if status.Session.CurrentApp != "" {
		allowed := "blocked"
		if status.Session.CurrentAppWhitelisted {
			allowed = "allowed"
		}
		fmt.Printf("Current app: %s (%s)\n", status.Session.CurrentApp, allowed)
	}
	fmt.Println("\nWhitelist:")
	for _, app := range status.Session.Whitelist {
		fmt.Printf("  - %s\n", app)
	}
	fmt.Println("\nTimers:")
	for _, t := range status.Timers {
		state := "paused"
		if t.Running {
			state = "running"
		}
		fmt.Printf("  %-8s %s phase, %s, %ds left\n",
			t.Kind, t.Phase, state, t.RemainingSec())
	}
	fmt.Println()
	return nil
}

// program adapts the daemon to the OS service manager.
type program struct {
	cancel context.CancelFunc
	done   chan struct{}
}

func (p *program) Start(s service.Service) error {
	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel
	p.done = make(chan struct{})
	go func() {
		defer close(p.done)
		cmd := runCmd
		cmd.SetContext(ctx)
		_ = runDaemon(cmd, nil)
	}()
	return nil
}

func (p *program) Stop(s service.Service) error {
	p.cancel()
	select {
	case <-p.done:
	case <-time.After(5 * time.Second):
	}
	return nil
}

func runService(cmd *cobra.Command, args []string) error {
	svcConfig := &service.Config{
		Name:        "mindwelld",
		DisplayName: "Mindwell Desktop Companion",
		Description: "Focus mode enforcement and wellness timers.",
		Arguments:   []string{"run"},
	}
	svc, err := service.New(&program{}, svcConfig)
	if err != nil {
		return fmt.Errorf("create service handle: %w", err)
	}

	action := args[0]
	if err := service.Control(svc, action); err != nil {
		return fmt.Errorf("service %s: %w", action, err)
	}
	fmt.Printf("service %s: ok\n", action)
	return nil
}

func createLogger(logPath string) *zap.Logger {
	cfg := zap.NewProductionConfig()
	if logPath != "" {
		cfg.OutputPaths = []string{logPath}
		cfg.ErrorOutputPaths = []string{logPath}
	}
	cfg.EncoderConfig.TimeKey = "time"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	logger, err := cfg.Build()
	if err != nil {
		// Fallback to stderr if file logging fails
		logger, _ = zap.NewProduction()
	}
	return logger
}
