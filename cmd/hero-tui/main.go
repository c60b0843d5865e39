package main

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/vsource/hero/internal/banner"
	"github.com/vsource/hero/internal/content"
	"github.com/vsource/hero/internal/model"
	"github.com/vsource/hero/internal/preload"
	"github.com/vsource/hero/internal/socketrpc"
	"github.com/vsource/hero/internal/tui"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	version   = "dev"
	commit    = "unknown"
	buildTime = "unknown"
	goVersion = runtime.Version()
)

var (
	configPath string
	socketPath string
	slidesPath string
	local      bool
)

var rootCmd = &cobra.Command{
	Use:   "hero-tui",
	Short: "Hero TUI - terminal preview of the homepage banner",
	Long: `Hero TUI renders the homepage banner in the terminal and drives it with
keys, focus changes and mouse gestures.

By default it connects to a running hero service over its Unix socket.
With --local it mounts its own banner in-process instead.`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadCLIConfig(configPath)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		if socketPath != "" {
			cfg.SocketPath = socketPath
		}
		if slidesPath != "" {
			cfg.SlidesPath = slidesPath
		}
		if local {
			return runLocal(cfg)
		}
		return runRemote(cfg)
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Hero TUI - Banner Preview\n")
		fmt.Fprintf(out, "  Version:    %s\n", version)
		fmt.Fprintf(out, "  Commit:     %s\n", commit)
		fmt.Fprintf(out, "  Built:      %s\n", buildTime)
		fmt.Fprintf(out, "  Go version: %s\n", goVersion)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default is $HOME/.config/hero/config.yml)")
	rootCmd.Flags().StringVar(&socketPath, "socket", "", "override socket path to connect to hero service")
	rootCmd.Flags().BoolVar(&local, "local", false, "run the banner in-process instead of connecting to the service")
	rootCmd.Flags().StringVar(&slidesPath, "slides", "", "slide deck for --local (default: built-in deck)")

	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runRemote(cfg cliConfig) error {
	client, err := socketrpc.Dial(cfg.SocketPath)
	if err != nil {
		return fmt.Errorf("cannot connect to hero service at %s: %w\nIs the hero service running? Start it with: hero serve", cfg.SocketPath, err)
	}
	defer client.Close()

	return runTUI(cfg, client, client, "socket")
}

// runLocal mounts a private banner. Analytics stay with the service, so the
// stats panel is disabled here.
func runLocal(cfg cliConfig) error {
	deck, err := content.Load(cfg.SlidesPath)
	if err != nil {
		return err
	}

	logger, cleanup := localLogger(cfg.LogLevel)
	defer cleanup()

	host, err := banner.New(deck.Slides, banner.Config{
		Interval:       cfg.Interval,
		SwipeThreshold: cfg.SwipeThreshold,
		LoadTimeout:    cfg.LoadTimeout,
		Preloader:      preload.NewLoader(preload.Config{AssetsDir: cfg.AssetsDir}, logger.Named("preload")),
		Logger:         logger,
	})
	if err != nil {
		return err
	}
	defer host.Close()

	return runTUI(cfg, host, nil, "local")
}

func runTUI(cfg cliConfig, remote model.Remote, stats model.StatsQuerier, source string) error {
	hero := tui.NewHeroPage(tui.HeroConfig{
		Remote:          remote,
		Stats:           stats,
		RefreshInterval: cfg.RefreshInterval,
		CellWidthPx:     cfg.CellWidthPx,
		Source:          source,
	})
	app := tui.NewApp(hero, tui.NewSlidesPage(remote))

	p := tea.NewProgram(app, tea.WithAltScreen(), tea.WithMouseAllMotion(), tea.WithReportFocus())
	if _, err := p.Run(); err != nil {
		if strings.Contains(err.Error(), "TTY") || strings.Contains(err.Error(), "/dev/tty") {
			return fmt.Errorf("TUI requires a real terminal")
		}
		return fmt.Errorf("error running TUI: %w", err)
	}

	return nil
}

// localLogger writes to ~/.local/state/hero/hero-tui.log since the terminal
// belongs to the UI.
func localLogger(level string) (*zap.Logger, func()) {
	home, err := os.UserHomeDir()
	if err != nil {
		return zap.NewNop(), func() {}
	}
	dir := filepath.Join(home, ".local", "state", "hero")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return zap.NewNop(), func() {}
	}

	config := zap.NewProductionConfig()
	if lvl, err := zap.ParseAtomicLevel(level); err == nil {
		config.Level = lvl
	}
	config.OutputPaths = []string{filepath.Join(dir, "hero-tui.log")}
	config.ErrorOutputPaths = config.OutputPaths

	logger, err := config.Build()
	if err != nil {
		return zap.NewNop(), func() {}
	}
	return logger, func() { _ = logger.Sync() }
}
