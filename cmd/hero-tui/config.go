package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"github.com/vsource/hero/internal/model"
	"github.com/vsource/hero/internal/socketrpc"
)

// cliConfig holds only TUI-relevant configuration. The banner keys are used
// by --local, which runs the banner in-process.
type cliConfig struct {
	RefreshInterval time.Duration `mapstructure:"refresh-interval"`
	CellWidthPx     float64       `mapstructure:"cell-width-px"`
	SocketPath      string        `mapstructure:"socket-path"`
	Interval        time.Duration `mapstructure:"interval"`
	SwipeThreshold  float64       `mapstructure:"swipe-threshold"`
	LoadTimeout     time.Duration `mapstructure:"load-timeout"`
	SlidesPath      string        `mapstructure:"slides-path"`
	AssetsDir       string        `mapstructure:"assets-dir"`
	LogLevel        string        `mapstructure:"log-level"`
}

func loadCLIConfig(configPath string) (cliConfig, error) {
	var cfg cliConfig

	home, err := os.UserHomeDir()
	if err != nil {
		return cfg, fmt.Errorf("finding home directory: %w", err)
	}

	v := viper.New()
	v.SetEnvPrefix("HERO")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))

	v.SetDefault("refresh-interval", model.DefaultRefresh)
	v.SetDefault("cell-width-px", model.DefaultCellWidthPx)
	v.SetDefault("socket-path", socketrpc.DefaultSocketPath())
	v.SetDefault("interval", model.DefaultInterval)
	v.SetDefault("swipe-threshold", model.DefaultSwipeThreshold)
	v.SetDefault("load-timeout", time.Duration(0))
	v.SetDefault("slides-path", "")
	v.SetDefault("assets-dir", "")
	v.SetDefault("log-level", "info")

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

	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, err
	}
	if cfg.RefreshInterval <= 0 {
		return cfg, fmt.Errorf("invalid refresh-interval: %s", cfg.RefreshInterval)
	}
	if cfg.CellWidthPx <= 0 {
		return cfg, fmt.Errorf("invalid cell-width-px: %v", cfg.CellWidthPx)
	}

	for _, p := range []*string{&cfg.SocketPath, &cfg.SlidesPath, &cfg.AssetsDir} {
		if strings.HasPrefix(*p, "~/") {
			*p = filepath.Join(home, (*p)[2:])
		}
	}

	return cfg, nil
}
