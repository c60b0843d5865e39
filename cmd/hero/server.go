package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/vsource/hero/internal/backup"
	"github.com/vsource/hero/internal/banner"
	"github.com/vsource/hero/internal/content"
	"github.com/vsource/hero/internal/duckdb"
	"github.com/vsource/hero/internal/httpserver"
	"github.com/vsource/hero/internal/model"
	"github.com/vsource/hero/internal/preload"
	"github.com/vsource/hero/internal/socketrpc"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// runServer mounts the banner and serves it until ctx ends or a signal
// arrives.
func runServer(ctx context.Context, cfg appConfig, logger *zap.Logger) error {
	deck, err := content.Load(cfg.SlidesPath)
	if err != nil {
		return fmt.Errorf("failed to load slides: %w", err)
	}

	// Analytics are optional; the banner runs without them.
	var (
		store  *duckdb.Store
		stats  model.StatsQuerier
		clicks banner.ClickRecorder
	)
	if cfg.AnalyticsEnabled {
		store, err = duckdb.NewStore(cfg.DBPath, cfg.QueryTimeout)
		if err != nil {
			return fmt.Errorf("failed to initialize DuckDB: %w", err)
		}
		defer store.Close()
		stats, clicks = store, store
	}

	loader := preload.NewLoader(preload.Config{
		AssetsDir:   cfg.AssetsDir,
		Concurrency: cfg.PreloadConcurrency,
		Timeout:     cfg.PreloadTimeout,
	}, logger.Named("preload"))

	host, err := banner.New(deck.Slides, banner.Config{
		Interval:       cfg.Interval,
		SwipeThreshold: cfg.SwipeThreshold,
		LoadTimeout:    cfg.LoadTimeout,
		Preloader:      loader,
		Clicks:         clicks,
		Route: func(target string) {
			logger.Info("call to action routed", zap.String("target", target))
		},
		Logger: logger,
	})
	if err != nil {
		return fmt.Errorf("failed to mount banner: %w", err)
	}
	defer host.Close()

	if store != nil {
		recorder := duckdb.NewRecorder(store, host, duckdb.RecorderConfig{
			Describe: host.Describe,
			Logger:   logger,
		})
		defer recorder.Stop()

		// Start retention cleaner for automatic analytics expiry
		if cleaner := duckdb.NewRetentionCleaner(store, duckdb.RetentionConfig{
			RetentionDays: cfg.RetentionDays,
			Logger:        logger,
		}); cleaner != nil {
			defer cleaner.Stop()
		}

		// Start periodic snapshots when enabled.
		backups, err := backup.NewManager(store, backup.Config{
			Enabled:    cfg.BackupEnabled,
			Interval:   cfg.BackupInterval,
			Dir:        cfg.BackupDir,
			KeepLast:   cfg.BackupKeepLast,
			BucketURL:  cfg.BackupBucketURL,
			S3Endpoint: cfg.BackupS3Endpoint,
			S3Region:   cfg.BackupS3Region,
		}, logger)
		if err != nil {
			return fmt.Errorf("failed to initialize backups: %w", err)
		}
		if backups != nil {
			defer backups.Stop()
		}
	}

	// Set up context and signal handling before errgroup
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if cfg.WatchSlides && cfg.SlidesPath != "" {
		watcher, err := content.NewWatcher(cfg.SlidesPath, func(d content.Deck) {
			if err := host.Mount(d.Slides); err != nil {
				logger.Warn("remounting banner", zap.Error(err))
				return
			}
			logger.Info("slide deck reloaded",
				zap.Int("slides", len(d.Slides)),
				zap.String("mount_id", host.MountID()))
		}, logger.Named("content"))
		if err != nil {
			return fmt.Errorf("failed to watch slides: %w", err)
		}
		if err := watcher.Start(ctx); err != nil {
			watcher.Stop()
			return fmt.Errorf("failed to watch slides: %w", err)
		}
		defer watcher.Stop()
	}

	// Start HTTP API server if enabled
	if cfg.APIEnabled {
		apiServer := httpserver.NewServer(httpserver.Config{
			Addr:      cfg.APIAddr,
			Banner:    host,
			Stats:     stats,
			AssetsDir: cfg.AssetsDir,
			Logger:    logger,
		})
		if err := apiServer.Start(); err != nil {
			return fmt.Errorf("failed to start API server: %w", err)
		}
		defer func() {
			if err := apiServer.Stop(); err != nil {
				logger.Warn("stopping API server", zap.Error(err))
			}
		}()
	}

	// Start socket RPC server for TUI IPC
	socketUp := false
	sockServer := socketrpc.NewServer(cfg.SocketPath, host, stats, logger)
	if err := sockServer.Start(); err != nil {
		logger.Warn("failed to start socket server", zap.String("path", cfg.SocketPath), zap.Error(err))
	} else {
		socketUp = true
		defer sockServer.Stop()
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	go func() {
		select {
		case <-sigCh:
		case <-ctx.Done():
			return
		}
		fmt.Println("\nShutting down gracefully... (press Ctrl+C again to force)")
		cancel()

		// Shutdown deadline starts now, not at boot.
		deadline := time.NewTimer(10 * time.Second)
		defer deadline.Stop()

		select {
		case <-sigCh:
			fmt.Println("\nForce shutdown.")
		case <-deadline.C:
			fmt.Println("Shutdown timed out, forcing exit.")
		}
		cleanupSocket(cfg.SocketPath)
		os.Exit(1)
	}()

	printStartupBanner(cfg, len(deck.Slides), socketUp)
	logger.Info("banner service started",
		zap.String("mount_id", host.MountID()),
		zap.Int("slides", len(deck.Slides)),
		zap.Duration("interval", cfg.Interval))

	g, gctx := errgroup.WithContext(ctx)

	// Snapshot trace for operators running at debug level.
	if logger.Core().Enabled(zap.DebugLevel) {
		feed, unsubscribe := host.Subscribe()
		defer unsubscribe()
		g.Go(func() error {
			for {
				select {
				case <-gctx.Done():
					return nil
				case snap, ok := <-feed:
					if !ok {
						return nil
					}
					logger.Debug("banner state",
						zap.String("mount_id", snap.MountID),
						zap.Int("current", snap.Current),
						zap.Bool("transitioning", snap.Transitioning),
						zap.Bool("autoplay", snap.Autoplay))
				}
			}
		})
	}

	// Wait for context cancellation (from signal handler) in the errgroup
	g.Go(func() error {
		<-gctx.Done()
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("server: errgroup exited with error", zap.Error(err))
	}
	logger.Info("banner service stopping")
	return nil
}

func cleanupSocket(path string) {
	if path != "" {
		os.Remove(path)
	}
}

func printStartupBanner(cfg appConfig, slides int, socketUp bool) {
	dim := lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	green := lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	red := lipgloss.NewStyle().Foreground(lipgloss.Color("160"))
	yellow := lipgloss.NewStyle().Foreground(lipgloss.Color("220"))
	bold := lipgloss.NewStyle().Bold(true)

	check := green.Render("●")
	dot := dim.Render("●")

	logo := red.Bold(true).Render(`
    ╦ ╦╔═╗╦═╗╔═╗
    ╠═╣║╣ ╠╦╝║ ║
    ╩ ╩╚═╝╩╚═╚═╝`)

	row := func(ok bool, label, value string) string {
		mark := dot
		if ok {
			mark = check
		}
		return fmt.Sprintf("    %s  %-14s %s", mark, label, value)
	}
	disabled := dim.Render("disabled")

	lines := []string{"", logo, "    " + dim.Render("v"+version), ""}
	separator := dim.Render("    ─────────────────────────────────")
	lines = append(lines, separator, "")

	lines = append(lines, bold.Render("    Banner"), "")
	deck := "built-in"
	if cfg.SlidesPath != "" {
		deck = shortenPath(cfg.SlidesPath)
	}
	lines = append(lines, row(true, "Slides", fmt.Sprintf("%d %s", slides, dim.Render("("+deck+")"))))
	lines = append(lines, row(true, "Autoplay", dim.Render("every "+cfg.Interval.String())))
	if cfg.WatchSlides && cfg.SlidesPath != "" {
		lines = append(lines, row(true, "Hot reload", dim.Render("watching")))
	} else {
		lines = append(lines, row(false, "Hot reload", disabled))
	}
	lines = append(lines, "")

	lines = append(lines, bold.Render("    Gateway"), "")
	if cfg.APIEnabled {
		lines = append(lines, row(true, "HTTP API", green.Render(cfg.APIAddr)))
	} else {
		lines = append(lines, row(false, "HTTP API", disabled))
	}
	if socketUp {
		lines = append(lines, row(true, "Unix Socket", green.Render(shortenPath(cfg.SocketPath))))
	} else {
		lines = append(lines, row(false, "Unix Socket", dim.Render("unavailable")))
	}
	lines = append(lines, "")

	lines = append(lines, bold.Render("    Storage"), "")
	if cfg.AnalyticsEnabled {
		lines = append(lines, row(true, "Analytics", dim.Render(shortenPath(cfg.DBPath))))
	} else {
		lines = append(lines, row(false, "Analytics", disabled))
	}
	if cfg.AnalyticsEnabled && cfg.RetentionDays > 0 {
		lines = append(lines, row(true, "Retention", dim.Render(fmt.Sprintf("%d days", cfg.RetentionDays))))
	} else {
		lines = append(lines, row(false, "Retention", disabled))
	}
	if cfg.BackupEnabled {
		lines = append(lines, row(true, "Snapshots", dim.Render(shortenPath(cfg.BackupDir))))
	} else {
		lines = append(lines, row(false, "Snapshots", disabled))
	}
	lines = append(lines, "")

	lines = append(lines, bold.Render("    Config"), "")
	if cfg.ConfigPath != "" {
		lines = append(lines, row(true, "Config File", dim.Render(shortenPath(cfg.ConfigPath))))
	} else {
		lines = append(lines, row(false, "Config File", dim.Render("default (no file)")))
	}

	lines = append(lines, "", separator, "")
	lines = append(lines, "    "+dim.Render("Press ")+yellow.Render("Ctrl+C")+dim.Render(" to stop"), "")

	fmt.Println(strings.Join(lines, "\n"))
}

func shortenPath(path string) string {
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	if strings.HasPrefix(path, home) {
		return "~" + path[len(home):]
	}
	return path
}
