package main

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
)

// newLogger builds the service logger. Output goes to logFile, or to
// ~/.local/state/hero/hero.log when logFile is empty; "stderr" and "stdout"
// are passed through to zap unchanged.
func newLogger(level, logFile string) (*zap.Logger, error) {
	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log-level %q: %w", level, err)
	}

	out, err := resolveLogPath(logFile)
	if err != nil {
		return nil, err
	}

	config := zap.NewProductionConfig()
	config.Level = lvl
	config.OutputPaths = []string{out}
	config.ErrorOutputPaths = []string{"stderr"}

	logger, err := config.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return logger, nil
}

func resolveLogPath(logFile string) (string, error) {
	switch logFile {
	case "stderr", "stdout":
		return logFile, nil
	case "":
		home, err := os.UserHomeDir()
		if err != nil {
			return "stderr", nil
		}
		logFile = filepath.Join(home, ".local", "state", "hero", "hero.log")
	}
	if err := os.MkdirAll(filepath.Dir(logFile), 0755); err != nil {
		return "", fmt.Errorf("creating log directory: %w", err)
	}
	return logFile, nil
}
