package main

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/vsource/hero/internal/model"
	"github.com/vsource/hero/internal/socketrpc"

	"github.com/spf13/viper"
)

const (
	defaultBindHost           = "127.0.0.1"
	defaultAPIPort            = 3000
	defaultQueryTimeout       = 30 * time.Second
	defaultRetentionDays      = 90 // 0 = disabled
	defaultPreloadConcurrency = 4
	defaultPreloadTimeout     = 15 * time.Second
	defaultLogLevel           = "info"
	defaultBackupInterval     = 24 * time.Hour
	defaultBackupKeepLast     = 7
)

// appConfig is internal runtime configuration.
// It is package-private to keep defaults and shape local to the CLI entrypoint.
type appConfig struct {
	Interval           time.Duration `mapstructure:"interval"`
	SwipeThreshold     float64       `mapstructure:"swipe-threshold"`
	LoadTimeout        time.Duration `mapstructure:"load-timeout"`
	SlidesPath         string        `mapstructure:"slides-path"`
	AssetsDir          string        `mapstructure:"assets-dir"`
	WatchSlides        bool          `mapstructure:"watch-slides"`
	APIEnabled         bool          `mapstructure:"api-enabled"`
	APIPort            int           `mapstructure:"api-port"`
	APIAddr            string        `mapstructure:"api-addr"`
	SocketPath         string        `mapstructure:"socket-path"`
	DBPath             string        `mapstructure:"db-path"`
	AnalyticsEnabled   bool          `mapstructure:"analytics-enabled"`
	QueryTimeout       time.Duration `mapstructure:"query-timeout"`
	RetentionDays      int           `mapstructure:"retention-days"`
	PreloadConcurrency int           `mapstructure:"preload-concurrency"`
	PreloadTimeout     time.Duration `mapstructure:"preload-timeout"`
	BackupEnabled      bool          `mapstructure:"backup-enabled"`
	BackupInterval     time.Duration `mapstructure:"backup-interval"`
	BackupDir          string        `mapstructure:"backup-dir"`
	BackupKeepLast     int           `mapstructure:"backup-keep-last"`
	BackupBucketURL    string        `mapstructure:"backup-bucket-url"`
	BackupS3Endpoint   string        `mapstructure:"backup-s3-endpoint"`
	BackupS3Region     string        `mapstructure:"backup-s3-region"`
	LogLevel           string        `mapstructure:"log-level"`
	LogFile            string        `mapstructure:"log-file"`
	ConfigPath         string        `mapstructure:"-"` // not from config file
}

// loadConfig layers defaults, the config file, HERO_* environment variables
// and finally any flags bound by bind.
func loadConfig(configPath string, bind func(v *viper.Viper) error) (appConfig, error) {
	var cfg appConfig

	home, err := os.UserHomeDir()
	if err != nil {
		return cfg, fmt.Errorf("finding home directory: %w", err)
	}

	v := viper.New()
	v.SetEnvPrefix("HERO")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))

	v.SetDefault("interval", model.DefaultInterval)
	v.SetDefault("swipe-threshold", model.DefaultSwipeThreshold)
	v.SetDefault("load-timeout", time.Duration(0))
	v.SetDefault("slides-path", "")
	v.SetDefault("assets-dir", "")
	v.SetDefault("watch-slides", true)
	v.SetDefault("api-enabled", true)
	v.SetDefault("api-port", defaultAPIPort)
	v.SetDefault("api-addr", "")
	v.SetDefault("socket-path", socketrpc.DefaultSocketPath())
	v.SetDefault("db-path", filepath.Join(home, ".local", "share", "hero", "hero.duckdb"))
	v.SetDefault("analytics-enabled", true)
	v.SetDefault("query-timeout", defaultQueryTimeout)
	v.SetDefault("retention-days", defaultRetentionDays)
	v.SetDefault("preload-concurrency", defaultPreloadConcurrency)
	v.SetDefault("preload-timeout", defaultPreloadTimeout)
	v.SetDefault("backup-enabled", false)
	v.SetDefault("backup-interval", defaultBackupInterval)
	v.SetDefault("backup-dir", filepath.Join(home, ".local", "share", "hero", "backups"))
	v.SetDefault("backup-keep-last", defaultBackupKeepLast)
	v.SetDefault("backup-bucket-url", "")
	v.SetDefault("backup-s3-endpoint", "")
	v.SetDefault("backup-s3-region", "")
	v.SetDefault("log-level", defaultLogLevel)
	v.SetDefault("log-file", "")

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigFile(filepath.Join(home, ".config", "hero", "config.yml"))
	}

	if err := v.ReadInConfig(); err != nil {
		var configFileNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFound) && !os.IsNotExist(err) {
			return cfg, err
		}
	}

	if bind != nil {
		if err := bind(v); err != nil {
			return cfg, err
		}
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, err
	}
	cfg.ConfigPath = v.ConfigFileUsed()
	if _, err := os.Stat(cfg.ConfigPath); err != nil {
		cfg.ConfigPath = ""
	}

	if err := cfg.validate(); err != nil {
		return cfg, err
	}

	cfg.SlidesPath = expandHome(home, cfg.SlidesPath)
	cfg.AssetsDir = expandHome(home, cfg.AssetsDir)
	cfg.DBPath = expandHome(home, cfg.DBPath)
	cfg.SocketPath = expandHome(home, cfg.SocketPath)
	cfg.LogFile = expandHome(home, cfg.LogFile)
	cfg.BackupDir = expandHome(home, cfg.BackupDir)

	if cfg.APIAddr == "" {
		cfg.APIAddr = net.JoinHostPort(defaultBindHost, strconv.Itoa(cfg.APIPort))
	}

	return cfg, nil
}

func (c appConfig) validate() error {
	switch {
	case c.Interval <= 0:
		return fmt.Errorf("invalid interval: %s", c.Interval)
	case c.SwipeThreshold < 0:
		return fmt.Errorf("invalid swipe-threshold: %v", c.SwipeThreshold)
	case c.LoadTimeout < 0:
		return fmt.Errorf("invalid load-timeout: %s", c.LoadTimeout)
	case c.APIPort <= 0 || c.APIPort > 65535:
		return fmt.Errorf("invalid api-port: %d", c.APIPort)
	case c.QueryTimeout <= 0:
		return fmt.Errorf("invalid query-timeout: %s", c.QueryTimeout)
	case c.RetentionDays < 0:
		return fmt.Errorf("invalid retention-days: %d", c.RetentionDays)
	case c.PreloadConcurrency <= 0:
		return fmt.Errorf("invalid preload-concurrency: %d", c.PreloadConcurrency)
	case c.PreloadTimeout <= 0:
		return fmt.Errorf("invalid preload-timeout: %s", c.PreloadTimeout)
	case c.BackupEnabled && !c.AnalyticsEnabled:
		return fmt.Errorf("backup-enabled requires analytics-enabled")
	}
	return nil
}

// expandHome expands a leading ~/ in path.
func expandHome(home, path string) string {
	if strings.HasPrefix(path, "~/") {
		return filepath.Join(home, path[2:])
	}
	return path
}
