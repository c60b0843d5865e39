package main

import (
	"fmt"
	"os"
	"runtime"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Build variables - set by ldflags during build.
var (
	version   = "dev"
	commit    = "unknown"
	buildTime = "unknown"
	goVersion = runtime.Version()
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "hero",
	Short: "Hero - homepage banner slideshow service",
	Long: `Hero runs the crossfade slideshow behind the VSource homepage banner.

It owns the slide rotation, serves its state over HTTP and a Unix socket,
and records which slides visitors actually saw.

Run without arguments to start the service.`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return serveCmd.RunE(cmd, args)
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the banner service",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(configPath, bindServeFlags(cmd))
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		logger, err := newLogger(cfg.LogLevel, cfg.LogFile)
		if err != nil {
			return err
		}
		defer func() { _ = logger.Sync() }()

		return runServer(cmd.Context(), cfg, logger)
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Hero - Banner Slideshow Service\n")
		fmt.Fprintf(out, "  Version:    %s\n", version)
		fmt.Fprintf(out, "  Commit:     %s\n", commit)
		fmt.Fprintf(out, "  Built:      %s\n", buildTime)
		fmt.Fprintf(out, "  Go version: %s\n", goVersion)
	},
}

// bindServeFlags binds the flags that were set on cmd over the config file
// and environment.
func bindServeFlags(cmd *cobra.Command) func(v *viper.Viper) error {
	return func(v *viper.Viper) error {
		for _, name := range []string{"slides-path", "assets-dir", "api-addr", "socket-path", "db-path", "log-level"} {
			f := cmd.Flags().Lookup(name)
			if f == nil || !f.Changed {
				continue
			}
			if err := v.BindPFlag(name, f); err != nil {
				return fmt.Errorf("binding --%s: %w", name, err)
			}
		}
		return nil
	}
}

func addServeFlags(cmd *cobra.Command) {
	cmd.Flags().String("slides-path", "", "slide deck YAML file (default: built-in deck)")
	cmd.Flags().String("assets-dir", "", "directory served under /images and used to preload slides")
	cmd.Flags().String("api-addr", "", "HTTP listen address (default 127.0.0.1:3000)")
	cmd.Flags().String("socket-path", "", "Unix socket for the terminal preview")
	cmd.Flags().String("db-path", "", "analytics database file")
	cmd.Flags().String("log-level", "", "log level (debug, info, warn, error)")
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default is $HOME/.config/hero/config.yml)")

	addServeFlags(rootCmd)
	addServeFlags(serveCmd)

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(slidesCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
