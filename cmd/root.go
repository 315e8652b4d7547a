package cmd

import (
	"fmt"
	"log/slog"
	"os"

	cfgpkg "github.com/KaramelBytes/outfall-cli/internal/config"
	"github.com/KaramelBytes/outfall-cli/internal/logging"
	"github.com/spf13/cobra"
)

var (
	// Global flags
	cfgFile       string
	flagLogLevel  string
	flagLogFormat string
	flagLogFile   string

	// Loaded configuration
	cfg *cfgpkg.Global
	// Structured logger; stderr plus optional rotating file
	logger   *slog.Logger
	closeLog = func() error { return nil }
)

var rootCmd = &cobra.Command{
	Use:   "outfall",
	Short: "Outfall: trace pollution sources in discharge-outlet inventories",
	Long: `Outfall reads a discharge-outlet inventory (CSV/TSV/XLSX), clusters outlets by
location with DBSCAN, ranks owning entities and clusters by pollutant load and
writes a trace report with an optional GeoJSON map and HTML charts.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return setup(cmd)
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		return closeLog()
	},
}

// Execute is the entry point called by main.main()
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "✗ Error:", err)
		os.Exit(1)
	}
}

func init() {
	// Persistent global flags available to all subcommands
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ~/.outfall/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "log level: debug|info|warn|error (overrides config)")
	rootCmd.PersistentFlags().StringVar(&flagLogFormat, "log-format", "", "log format: text|json (overrides config)")
	rootCmd.PersistentFlags().StringVar(&flagLogFile, "log-file", "", "also write JSON logs to this rotating file (overrides config)")
}

// setup loads configuration and builds the logger before any command runs.
func setup(cmd *cobra.Command) error {
	c, err := cfgpkg.Load(cfgFile)
	if err != nil {
		// Non-fatal: fall back to built-in defaults
		fmt.Fprintf(os.Stderr, "⚠ Warning: failed to load config: %v\n", err)
		c = cfgpkg.Default()
	}
	cfg = c

	f := cmd.Root().PersistentFlags()
	opt := logging.Options{Level: cfg.LogLevel, Format: cfg.LogFormat, File: cfg.LogFile}
	if f.Changed("log-level") {
		opt.Level = flagLogLevel
	}
	if f.Changed("log-format") {
		opt.Format = flagLogFormat
	}
	if f.Changed("log-file") {
		opt.File = flagLogFile
	}
	l, closeFn, err := logging.New(opt, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	logger, closeLog = l, closeFn
	logger.Debug("configuration loaded", "module", "cmd", "command", cmd.Name(), "config", cfgFile)
	return nil
}
